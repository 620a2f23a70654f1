package contentstream

import (
	"fmt"

	"github.com/tsawler/pdfio/core"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands

	// ImageDict and ImageData are set for a BI operation, which stands for
	// the whole BI ... ID ... EI inline image.
	ImageDict core.Dict
	ImageData []byte
}

// Parser parses PDF content streams into a sequence of operations.
// Each operation consists of an operator and its operands.
type Parser struct {
	tokens   *Tokenizer
	objects  *core.Parser
	operands []core.Object
	ops      []Operation
}

// NewParser creates a new content stream parser. Several ranges are parsed
// as one stream.
func NewParser(data ...[]byte) *Parser {
	tokens := NewTokenizer(data...)
	objects := core.NewParserFromLexer(tokens.Lexer())
	objects.SetForbidReferences(true)
	return &Parser{tokens: tokens, objects: objects}
}

// SetMaxDepth bounds nesting of array and dictionary operands
func (p *Parser) SetMaxDepth(depth int) {
	p.objects.SetMaxDepth(depth)
}

// Parse parses the content stream and returns all operations in order.
// Operands left over at the end of the stream are dropped.
func (p *Parser) Parse() ([]Operation, error) {
	for {
		op, err := p.Next()
		if err != nil {
			return nil, err
		}
		if op == nil {
			return p.ops, nil
		}
		p.ops = append(p.ops, *op)
	}
}

// Next returns the next operation, or nil at the end of the stream.
func (p *Parser) Next() (*Operation, error) {
	for {
		tok, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}

		switch {
		case tok.Type == core.TokenEOF:
			p.operands = nil
			return nil, nil
		case tok.Type == core.TokenComment:
			continue
		case tok.IsKeyword("BI"):
			return p.parseInlineImage()
		case tok.Type == core.TokenKeyword && !isOperandKeyword(tok):
			op := &Operation{Operator: string(tok.Value), Operands: p.operands}
			p.operands = nil
			return op, nil
		}

		operand, err := p.objects.ParseObjectFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("at position %d: %w", tok.Pos, err)
		}
		p.operands = append(p.operands, operand)
	}
}

// parseInlineImage reads the key/value pairs after BI up to ID, then the
// image data the tokenizer captured.
func (p *Parser) parseInlineImage() (*Operation, error) {
	op := &Operation{Operator: "BI", Operands: p.operands, ImageDict: make(core.Dict)}
	p.operands = nil

	for {
		tok, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.IsKeyword("ID"):
			op.ImageData = p.tokens.InlineImageData()
			return op, nil
		case tok.Type == core.TokenEOF:
			return nil, core.NewError(core.CodeUnexpectedEOF, "inline image without ID")
		case tok.Type == core.TokenComment:
			continue
		case tok.Type != core.TokenName:
			return nil, core.NewError(core.CodeInvalidDataType, "inline image key at position %d is %q, not a name", tok.Pos, tok.Value)
		}

		key := string(tok.Value)
		valTok, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		if valTok.IsKeyword("ID") || valTok.Type == core.TokenEOF {
			return nil, core.NewError(core.CodeInvalidObject, "inline image key /%s has no value", key)
		}
		value, err := p.objects.ParseObjectFrom(valTok)
		if err != nil {
			return nil, fmt.Errorf("inline image key /%s: %w", key, err)
		}
		op.ImageDict[key] = value
	}
}

func isOperandKeyword(tok *core.Token) bool {
	switch string(tok.Value) {
	case "true", "false", "null":
		return true
	}
	return false
}

package core

import (
	"fmt"
	"io"

	tstrconv "github.com/tdewolff/parse/v2/strconv"
)

// DefaultMaxDepth bounds nesting of arrays and dictionaries, and reference
// chains followed on behalf of a single parse.
const DefaultMaxDepth = 1000

// ReferenceResolver is an interface for resolving indirect references.
// This allows the parser to resolve indirect stream lengths when needed.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser reads PDF values from a Lexer by recursive descent. Nesting depth
// is passed explicitly through every recursive call and bounded by MaxDepth.
type Parser struct {
	lexer      *Lexer
	resolver   ReferenceResolver
	maxDepth   int
	session    EncryptSession
	sessionRef IndirectRef
	noRefs     bool
}

// NewParser creates a new PDF parser reading from in at its current position
func NewParser(in InputDevice) *Parser {
	return NewParserFromLexer(NewLexer(in))
}

// NewParserFromLexer creates a parser sharing an existing lexer
func NewParserFromLexer(l *Lexer) *Parser {
	return &Parser{lexer: l, maxDepth: DefaultMaxDepth}
}

// Lexer returns the parser's lexer
func (p *Parser) Lexer() *Lexer {
	return p.lexer
}

// SetReferenceResolver sets the reference resolver for the parser.
// This is needed to resolve indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetMaxDepth sets the nesting bound; values below 1 restore the default.
func (p *Parser) SetMaxDepth(depth int) {
	if depth < 1 {
		depth = DefaultMaxDepth
	}
	p.maxDepth = depth
}

// SetDecryption makes the parser decrypt strings with the key of ref.
// A nil session disables decryption.
func (p *Parser) SetDecryption(session EncryptSession, ref IndirectRef) {
	p.session = session
	p.sessionRef = ref
}

// SetForbidReferences makes "num gen R" an InvalidDataType error, as
// required inside content streams.
func (p *Parser) SetForbidReferences(forbid bool) {
	p.noRefs = forbid
}

// nextToken returns the next token that is not a comment
func (p *Parser) nextToken() (*Token, error) {
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenComment {
			return tok, nil
		}
	}
}

// ParseObject parses and returns the next PDF object from the input.
// It returns io.EOF, unwrapped, when the input holds no further token.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.nextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenEOF {
		return nil, io.EOF
	}
	return p.parseValue(tok, 0)
}

// ParseObjectFrom parses the value that begins with tok, which the caller
// already read.
func (p *Parser) ParseObjectFrom(tok *Token) (Object, error) {
	return p.parseValue(tok, 0)
}

func (p *Parser) parseValue(tok *Token, depth int) (Object, error) {
	if depth > p.maxDepth {
		return nil, NewError(CodeMaxRecursionReached, "nesting deeper than %d at position %d", p.maxDepth, tok.Pos)
	}

	switch tok.Type {
	case TokenEOF:
		return nil, NewError(CodeUnexpectedEOF, "expected a value")

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, NewError(CodeInvalidDataType, "unexpected keyword %q at position %d", tok.Value, tok.Pos)

	case TokenInteger:
		return p.parseNumber(tok)

	case TokenReal:
		f, n := tstrconv.ParseFloat(tok.Value)
		if n != len(tok.Value) {
			return nil, NewError(CodeInvalidDataType, "invalid real %q at position %d", tok.Value, tok.Pos)
		}
		return Real(f), nil

	case TokenString:
		data, err := p.decryptString(tok.Value)
		if err != nil {
			return nil, err
		}
		return String(data), nil

	case TokenHexString:
		data, err := p.decryptString(tok.Value)
		if err != nil {
			return nil, err
		}
		return HexString(data), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray(depth)

	case TokenDictStart:
		return p.parseDict(depth)
	}

	return nil, NewError(CodeInvalidDataType, "unexpected token %q at position %d", tok.Value, tok.Pos)
}

// parseNumber parses an integer, or an indirect reference when the integer
// is followed by a second integer and the keyword R.
func (p *Parser) parseNumber(tok *Token) (Object, error) {
	first, err := tokenInt(tok)
	if err != nil {
		// too large for int64, keep it as a real
		f, n := tstrconv.ParseFloat(tok.Value)
		if n != len(tok.Value) {
			return nil, err
		}
		return Real(f), nil
	}

	second, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if second.Type != TokenInteger {
		p.lexer.Unread(second)
		return Int(first), nil
	}

	third, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if third.Type != TokenIndirectRef {
		p.lexer.Unread(third)
		p.lexer.Unread(second)
		return Int(first), nil
	}

	if p.noRefs {
		return nil, NewError(CodeInvalidDataType, "indirect reference at position %d is not allowed here", tok.Pos)
	}
	gen, err := tokenInt(second)
	if err != nil {
		return nil, err
	}
	if first < 0 || gen < 0 || gen > 65535 {
		return nil, NewError(CodeInvalidObject, "invalid reference %d %d R at position %d", first, gen, tok.Pos)
	}
	return IndirectRef{Number: int(first), Generation: int(gen)}, nil
}

// parseArray parses the elements of an array after "[".
func (p *Parser) parseArray(depth int) (Object, error) {
	arr := Array{}
	for {
		tok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, NewError(CodeUnexpectedEOF, "unexpected EOF in array")
		}

		obj, err := p.parseValue(tok, depth+1)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDict parses the entries of a dictionary after "<<". The Contents
// string of a signature dictionary is never decrypted, so it is read raw and
// decrypted afterwards only when the dictionary turns out not to be a /Sig.
func (p *Parser) parseDict(depth int) (Object, error) {
	dict := make(Dict)
	var rawContents []byte
	for {
		tok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			if rawContents != nil {
				if t, _ := dict.GetName("Type"); t != "Sig" {
					data, err := p.decryptString(rawContents)
					if err != nil {
						return nil, err
					}
					dict["Contents"] = HexString(data)
				}
			}
			return dict, nil
		case TokenEOF:
			return nil, NewError(CodeUnexpectedEOF, "unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, NewError(CodeInvalidDataType, "expected name for dictionary key at position %d, got %q", tok.Pos, tok.Value)
		}
		key := string(tok.Value)

		valTok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		if key == "Contents" && valTok.Type == TokenHexString && p.session != nil {
			rawContents = valTok.Value
			dict[key] = HexString(valTok.Value)
			continue
		}

		value, err := p.parseValue(valTok, depth+1)
		if err != nil {
			return nil, fmt.Errorf("dictionary value for key '%s': %w", key, err)
		}
		dict[key] = value
	}
}

func (p *Parser) decryptString(data []byte) ([]byte, error) {
	if p.session == nil {
		return data, nil
	}
	return p.session.DecryptString(p.sessionRef, data)
}

// ReadInteger reads the next token, which must be an integer
func (p *Parser) ReadInteger() (int64, error) {
	tok, err := p.nextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type == TokenEOF {
		return 0, NewError(CodeUnexpectedEOF, "expected an integer")
	}
	if tok.Type != TokenInteger {
		return 0, NewError(CodeInvalidDataType, "expected an integer at position %d, got %q", tok.Pos, tok.Value)
	}
	return tokenInt(tok)
}

// ExpectKeyword reads the next token and fails with InvalidObject unless it
// is the given keyword.
func (p *Parser) ExpectKeyword(kw string) error {
	tok, err := p.nextToken()
	if err != nil {
		return err
	}
	if tok.Type == TokenEOF {
		return NewError(CodeUnexpectedEOF, "expected '%s'", kw)
	}
	if !tok.IsKeyword(kw) {
		return NewError(CodeInvalidObject, "expected '%s' at position %d, got %q", kw, tok.Pos, tok.Value)
	}
	return nil
}

// ReadObjectHeader reads "num gen obj" and returns the reference.
func (p *Parser) ReadObjectHeader() (IndirectRef, error) {
	num, err := p.ReadInteger()
	if err != nil {
		return IndirectRef{}, fmt.Errorf("object number: %w", err)
	}
	gen, err := p.ReadInteger()
	if err != nil {
		return IndirectRef{}, fmt.Errorf("generation number: %w", err)
	}
	ref := IndirectRef{Number: int(num), Generation: int(gen)}
	if err := p.ExpectKeyword("obj"); err != nil {
		return ref, fmt.Errorf("object %d %d: %w", num, gen, err)
	}
	return ref, nil
}

// ParseIndirectObject parses a complete indirect object definition, stream
// payload included: "num gen obj <object> endobj" or
// "num gen obj <dict> stream ... endstream endobj".
func (p *Parser) ParseIndirectObject() (IndirectRef, Object, error) {
	ref, err := p.ReadObjectHeader()
	if err != nil {
		return ref, nil, err
	}

	tok, err := p.nextToken()
	if err != nil {
		return ref, nil, err
	}
	if tok.IsKeyword("endobj") {
		return ref, Null{}, nil
	}
	obj, err := p.parseValue(tok, 0)
	if err != nil {
		return ref, nil, fmt.Errorf("object %s: %w", ref, err)
	}

	tok, err = p.nextToken()
	if err != nil {
		return ref, nil, err
	}
	if tok.IsKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return ref, nil, NewError(CodeInvalidObject, "stream must follow a dictionary in object %s", ref)
		}
		data, err := p.readStreamData(dict)
		if err != nil {
			return ref, nil, fmt.Errorf("object %s: %w", ref, err)
		}
		obj = &Stream{Dict: dict, Data: data}
		tok, err = p.nextToken()
		if err != nil {
			return ref, nil, err
		}
	}

	if !tok.IsKeyword("endobj") {
		return ref, nil, NewError(CodeInvalidObject, "expected 'endobj' in object %s, got %q", ref, tok.Value)
	}
	return ref, obj, nil
}

// readStreamData reads the payload following the stream keyword, and the
// endstream keyword after it.
func (p *Parser) readStreamData(dict Dict) ([]byte, error) {
	length, err := streamLength(dict, p.resolver)
	if err != nil {
		return nil, err
	}
	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, err
	}
	data, err := readFull(p.lexer.Input(), length)
	if err != nil {
		return nil, err
	}
	if err := p.ExpectKeyword("endstream"); err != nil {
		return nil, err
	}
	return data, nil
}

// streamLength returns the value of /Length, following an indirect
// reference through resolver.
func streamLength(dict Dict, resolver ReferenceResolver) (int64, error) {
	lengthObj := dict.Get("Length")
	switch v := lengthObj.(type) {
	case Int:
		if v < 0 {
			return 0, NewError(CodeInvalidStream, "negative stream length %d", v)
		}
		return int64(v), nil
	case IndirectRef:
		if resolver == nil {
			return 0, NewError(CodeInvalidStream, "stream length %s needs a reference resolver", v)
		}
		resolved, err := resolver.ResolveReference(v)
		if err != nil {
			return 0, fmt.Errorf("stream length %s: %w", v, err)
		}
		n, ok := resolved.(Int)
		if !ok || n < 0 {
			return 0, NewError(CodeInvalidStream, "stream length %s resolved to %v", v, resolved)
		}
		return int64(n), nil
	case nil:
		return 0, NewError(CodeInvalidStream, "stream dictionary missing /Length")
	}
	return 0, NewError(CodeInvalidStream, "invalid type for stream length: %T", lengthObj)
}

func tokenInt(tok *Token) (int64, error) {
	v, n := tstrconv.ParseInt(tok.Value)
	if n != len(tok.Value) || n == 0 {
		return 0, NewError(CodeInvalidDataType, "invalid integer %q at position %d", tok.Value, tok.Pos)
	}
	return v, nil
}

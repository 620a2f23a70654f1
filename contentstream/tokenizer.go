package contentstream

import (
	"github.com/tsawler/pdfio/core"
)

// initialImageBuffer is the starting capacity for inline image data.
const initialImageBuffer = 4096

// Tokenizer splits content stream data into tokens. The data may be given
// as several ranges, as for a page whose /Contents is an array; the ranges
// are read back to back and end of input is reported once all are consumed.
//
// After the ID keyword the tokenizer captures the raw inline image bytes
// up to the first EI that is followed by whitespace or the end of input.
type Tokenizer struct {
	in    *rangeInput
	lexer *core.Lexer

	inline []byte
}

// NewTokenizer creates a tokenizer over the concatenation of ranges
func NewTokenizer(ranges ...[]byte) *Tokenizer {
	in := newRangeInput(ranges)
	return &Tokenizer{in: in, lexer: core.NewLexer(in)}
}

// Lexer returns the underlying lexer, which reads the same input
func (t *Tokenizer) Lexer() *core.Lexer {
	return t.lexer
}

// NextToken returns the next token. Comments are returned as TokenComment
// and the end of all ranges as TokenEOF. When the token is the ID keyword,
// the image data that follow have already been read; see InlineImageData.
func (t *Tokenizer) NextToken() (*core.Token, error) {
	tok, err := t.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.IsKeyword("ID") {
		if t.lexer.Pending() > 0 {
			return nil, core.NewError(core.CodeInvalidObject, "tokens read past ID at position %d", tok.Pos)
		}
		data, err := t.readInlineImage()
		if err != nil {
			return nil, err
		}
		t.inline = data
	}
	return tok, nil
}

// InlineImageData returns the data captured after the most recent ID keyword
func (t *Tokenizer) InlineImageData() []byte {
	return t.inline
}

// readInlineImage consumes the single whitespace byte after ID, then bytes
// until EI followed by whitespace or end of input. The EI is consumed but
// not returned.
func (t *Tokenizer) readInlineImage() ([]byte, error) {
	if b, err := t.in.Peek(); err == nil && core.IsWhitespace(b) {
		t.in.ReadByte()
	}

	buf := make([]byte, 0, initialImageBuffer)
	for {
		b, err := t.in.ReadByte()
		if err != nil {
			return nil, core.NewError(core.CodeUnexpectedEOF, "inline image data without EI")
		}
		if len(buf) == cap(buf) {
			grown := make([]byte, len(buf), 2*cap(buf))
			copy(grown, buf)
			buf = grown
		}
		buf = append(buf, b)

		n := len(buf)
		if n < 2 || buf[n-2] != 'E' || buf[n-1] != 'I' {
			continue
		}
		next, err := t.in.Peek()
		if err != nil || core.IsWhitespace(next) {
			return buf[:n-2], nil
		}
	}
}

package core

import (
	"bytes"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, operators
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenProcStart   // {
	TokenProcEnd     // }
	TokenIndirectRef // R (after two numbers)
)

// TokenKind is the coarse classification of a token by its first byte.
type TokenKind int

const (
	KindRegular TokenKind = iota
	KindDelimiter
)

// Token represents a lexical token. For strings, hex strings and names,
// Value holds the decoded bytes.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // Position in the input
}

// Kind reports whether the token starts with a delimiter byte
func (t *Token) Kind() TokenKind {
	switch t.Type {
	case TokenString, TokenHexString, TokenName, TokenArrayStart, TokenArrayEnd,
		TokenDictStart, TokenDictEnd, TokenProcStart, TokenProcEnd, TokenComment:
		return KindDelimiter
	}
	return KindRegular
}

// IsKeyword reports whether the token is the given keyword
func (t *Token) IsKeyword(kw string) bool {
	return t != nil && t.Type == TokenKeyword && string(t.Value) == kw
}

const (
	classRegular byte = iota
	classWhitespace
	classDelimiter
)

// charClass maps every byte to its PDF character class.
var charClass [256]byte

func init() {
	for _, c := range []byte{0x00, '\t', '\n', '\f', '\r', ' '} {
		charClass[c] = classWhitespace
	}
	for _, c := range []byte("()<>[]{}/%") {
		charClass[c] = classDelimiter
	}
}

// Lexer performs lexical analysis of PDF content read from an InputDevice.
// Tokens pushed back with Unread are returned before reading further input.
type Lexer struct {
	in    InputDevice
	queue []*Token
}

// NewLexer creates a new lexer reading from in at its current position
func NewLexer(in InputDevice) *Lexer {
	return &Lexer{in: in}
}

// Input returns the underlying input device
func (l *Lexer) Input() InputDevice {
	return l.in
}

// Unread pushes a token back; it is returned by the next NextToken call.
func (l *Lexer) Unread(tok *Token) {
	l.queue = append([]*Token{tok}, l.queue...)
}

// Pending returns the number of pushed back tokens
func (l *Lexer) Pending() int {
	return len(l.queue)
}

// Reset drops queued tokens and seeks the input to pos
func (l *Lexer) Reset(pos int64) error {
	l.queue = l.queue[:0]
	_, err := l.in.Seek(pos, io.SeekStart)
	return err
}

// NextToken returns the next token from the input. End of input is reported
// as a TokenEOF token, not as an error.
func (l *Lexer) NextToken() (*Token, error) {
	if len(l.queue) > 0 {
		tok := l.queue[0]
		l.queue = l.queue[1:]
		return tok, nil
	}

	if err := l.skipWhitespace(); err != nil {
		return nil, err
	}

	b, err := l.in.Peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.in.Position()}, nil
	}
	if err != nil {
		return nil, err
	}

	pos := l.in.Position()
	switch b {
	case '%':
		return l.readComment()
	case '[':
		l.in.ReadByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: pos}, nil
	case ']':
		l.in.ReadByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: pos}, nil
	case '{':
		l.in.ReadByte()
		return &Token{Type: TokenProcStart, Value: []byte{'{'}, Pos: pos}, nil
	case '}':
		l.in.ReadByte()
		return &Token{Type: TokenProcEnd, Value: []byte{'}'}, Pos: pos}, nil
	case '(':
		return l.readString()
	case '<':
		l.in.ReadByte()
		if next, err := l.in.Peek(); err == nil && next == '<' {
			l.in.ReadByte()
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: pos}, nil
		}
		return l.readHexString(pos)
	case '>':
		l.in.ReadByte()
		if next, err := l.in.Peek(); err == nil && next == '>' {
			l.in.ReadByte()
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: pos}, nil
		}
		return nil, NewError(CodeInvalidDataType, "unexpected '>' at position %d", pos)
	case '/':
		return l.readName()
	case ')':
		l.in.ReadByte()
		return nil, NewError(CodeInvalidDataType, "unbalanced ')' at position %d", pos)
	}

	return l.readRegular()
}

// skipWhitespace skips all whitespace characters
func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.in.Peek()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if charClass[b] != classWhitespace {
			return nil
		}
		l.in.ReadByte()
	}
}

// readComment reads a comment (% to end of line)
func (l *Lexer) readComment() (*Token, error) {
	pos := l.in.Position()
	var buf bytes.Buffer
	for {
		b, err := l.in.Peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b == '\r' || b == '\n' {
			break
		}
		l.in.ReadByte()
		buf.WriteByte(b)
	}
	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: pos}, nil
}

// readString reads a literal string (hello)
func (l *Lexer) readString() (*Token, error) {
	pos := l.in.Position()
	l.in.ReadByte()

	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		b, err := l.readByteEOF("literal string")
		if err != nil {
			return nil, err
		}

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			next, err := l.readByteEOF("literal string")
			if err != nil {
				return nil, err
			}
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				// line continuation, CRLF counts as one
				if p, err := l.in.Peek(); err == nil && p == '\n' {
					l.in.ReadByte()
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := next - '0'
				for i := 0; i < 2; i++ {
					p, err := l.in.Peek()
					if err != nil || p < '0' || p > '7' {
						break
					}
					l.in.ReadByte()
					val = val*8 + (p - '0')
				}
				buf.WriteByte(val)
			default:
				// unknown escapes keep the character, \( \) \\ included
				buf.WriteByte(next)
			}
		default:
			buf.WriteByte(b)
		}
	}

	return &Token{Type: TokenString, Value: buf.Bytes(), Pos: pos}, nil
}

// readHexString reads the rest of a hexadecimal string after '<'. Bytes
// that are not hex digits are ignored; an odd digit count is padded with 0.
func (l *Lexer) readHexString(pos int64) (*Token, error) {
	var digits []byte
	for {
		b, err := l.readByteEOF("hex string")
		if err != nil {
			return nil, err
		}
		if b == '>' {
			break
		}
		if isHexDigit(b) {
			digits = append(digits, b)
		}
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}

	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexValue(digits[2*i])<<4 | hexValue(digits[2*i+1])
	}
	return &Token{Type: TokenHexString, Value: out, Pos: pos}, nil
}

// readName reads a name object /Type
func (l *Lexer) readName() (*Token, error) {
	pos := l.in.Position()
	l.in.ReadByte()

	var buf bytes.Buffer
	for {
		b, err := l.in.Peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if charClass[b] != classRegular {
			break
		}
		l.in.ReadByte()

		if b == '#' {
			h, err := l.peekHexPair()
			if err != nil {
				return nil, err
			}
			if h >= 0 {
				buf.WriteByte(byte(h))
				continue
			}
		}
		buf.WriteByte(b)
	}

	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: pos}, nil
}

// peekHexPair consumes two hex digits following '#' in a name. It returns
// -1 without consuming anything when they are not both present.
func (l *Lexer) peekHexPair() (int, error) {
	start := l.in.Position()
	h1, err := l.in.ReadByte()
	if err == nil && isHexDigit(h1) {
		h2, err := l.in.ReadByte()
		if err == nil && isHexDigit(h2) {
			return int(hexValue(h1)<<4 | hexValue(h2)), nil
		}
	}
	if _, err := l.in.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	return -1, nil
}

// readRegular reads a run of regular characters and classifies it as an
// integer, a real, the reference keyword R, or another keyword.
func (l *Lexer) readRegular() (*Token, error) {
	pos := l.in.Position()
	var buf bytes.Buffer
	for {
		b, err := l.in.Peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if charClass[b] != classRegular {
			break
		}
		l.in.ReadByte()
		buf.WriteByte(b)
	}

	value := buf.Bytes()
	typ := classifyRegular(value)
	return &Token{Type: typ, Value: value, Pos: pos}, nil
}

func classifyRegular(value []byte) TokenType {
	if len(value) == 1 && value[0] == 'R' {
		return TokenIndirectRef
	}

	numeric, digits, dots := true, 0, 0
	for i, c := range value {
		switch {
		case isDigit(c):
			digits++
		case c == '.':
			dots++
		case (c == '-' || c == '+') && i == 0:
		default:
			numeric = false
		}
	}
	if !numeric || digits == 0 || dots > 1 {
		return TokenKeyword
	}
	if dots == 1 {
		return TokenReal
	}
	return TokenInteger
}

// SkipStreamEOL positions the input at the first byte of stream data that
// follows the stream keyword: spaces and tabs are skipped, then one CRLF,
// LF or bare CR is consumed.
func (l *Lexer) SkipStreamEOL() error {
	for {
		b, err := l.in.Peek()
		if err != nil {
			return NewError(CodeUnexpectedEOF, "unexpected EOF after stream keyword")
		}
		switch b {
		case ' ', '\t':
			l.in.ReadByte()
		case '\r':
			l.in.ReadByte()
			if next, err := l.in.Peek(); err == nil && next == '\n' {
				l.in.ReadByte()
			}
			return nil
		case '\n':
			l.in.ReadByte()
			return nil
		default:
			return nil
		}
	}
}

func (l *Lexer) readByteEOF(what string) (byte, error) {
	b, err := l.in.ReadByte()
	if err == io.EOF {
		return 0, NewError(CodeUnexpectedEOF, "unexpected EOF in %s", what)
	}
	return b, err
}

// Helper functions

func isWhitespace(b byte) bool {
	return charClass[b] == classWhitespace
}

func isDelimiter(b byte) bool {
	return charClass[b] == classDelimiter
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// IsWhitespace reports whether b is a PDF whitespace byte
func IsWhitespace(b byte) bool {
	return isWhitespace(b)
}

// IsDelimiter reports whether b is a PDF delimiter byte
func IsDelimiter(b byte) bool {
	return isDelimiter(b)
}

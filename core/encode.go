package core

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
)

// Encoder writes objects in PDF syntax. When an encryption session is set,
// strings are encrypted with the key of the object being written.
type Encoder struct {
	w       *bufio.Writer
	session EncryptSession
	ref     IndirectRef
}

// NewEncoder creates an encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// SetEncryption makes the encoder encrypt strings for ref; nil disables it.
func (e *Encoder) SetEncryption(session EncryptSession, ref IndirectRef) {
	e.session = session
	e.ref = ref
}

// Flush writes buffered bytes to the underlying writer
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Encode writes obj. Streams are written by their owning indirect object,
// so a *Stream here is an InvalidDataType error.
func (e *Encoder) Encode(obj Object) error {
	switch v := obj.(type) {
	case nil, Null:
		e.w.WriteString("null")
	case Bool:
		e.w.WriteString(v.String())
	case Int:
		e.w.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewError(CodeInvalidDataType, "real %v cannot be written", f)
		}
		e.w.WriteString(formatReal(f))
	case String:
		data, err := e.encrypt([]byte(v))
		if err != nil {
			return err
		}
		writeLiteral(e.w, data)
	case HexString:
		data, err := e.encrypt([]byte(v))
		if err != nil {
			return err
		}
		writeHex(e.w, data)
	case Name:
		writeName(e.w, string(v))
	case Operator:
		e.w.WriteString(string(v))
	case IndirectRef:
		e.w.WriteString(strconv.Itoa(v.Number))
		e.w.WriteByte(' ')
		e.w.WriteString(strconv.Itoa(v.Generation))
		e.w.WriteString(" R")
	case Array:
		e.w.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				e.w.WriteByte(' ')
			}
			if err := e.Encode(elem); err != nil {
				return err
			}
		}
		e.w.WriteByte(']')
	case Dict:
		e.w.WriteString("<<")
		for i, key := range v.Keys() {
			if i > 0 {
				e.w.WriteByte(' ')
			}
			writeName(e.w, key)
			e.w.WriteByte(' ')
			if err := e.Encode(v[key]); err != nil {
				return err
			}
		}
		e.w.WriteString(">>")
	default:
		return NewError(CodeInvalidDataType, "cannot write %T inline", obj)
	}
	return nil
}

// formatReal writes f without an exponent and always with a decimal point,
// so an integral real does not read back as an integer.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func (e *Encoder) encrypt(data []byte) ([]byte, error) {
	if e.session == nil {
		return data, nil
	}
	return e.session.EncryptString(e.ref, data)
}

// writeLiteral writes data as a literal string. CR and LF are escaped
// because a reader normalises raw line ends inside strings.
func writeLiteral(w *bufio.Writer, data []byte) {
	w.WriteByte('(')
	for _, c := range data {
		switch c {
		case '(', ')', '\\':
			w.WriteByte('\\')
			w.WriteByte(c)
		case '\r':
			w.WriteString(`\r`)
		case '\n':
			w.WriteString(`\n`)
		default:
			w.WriteByte(c)
		}
	}
	w.WriteByte(')')
}

const hexDigits = "0123456789ABCDEF"

func writeHex(w *bufio.Writer, data []byte) {
	w.WriteByte('<')
	for _, c := range data {
		w.WriteByte(hexDigits[c>>4])
		w.WriteByte(hexDigits[c&0x0f])
	}
	w.WriteByte('>')
}

func writeName(w *bufio.Writer, name string) {
	w.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7e || c == '#' || charClass[c] != classRegular {
			w.WriteByte('#')
			w.WriteByte(hexDigits[c>>4])
			w.WriteByte(hexDigits[c&0x0f])
			continue
		}
		w.WriteByte(c)
	}
}

// Serialize returns obj in PDF syntax without encryption.
func Serialize(obj Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package filters

import (
	"bytes"
	"encoding/ascii85"

	"github.com/pkg/errors"
)

// ASCIIHexDecode decodes pairs of hex digits. Whitespace is ignored, '>'
// ends the data, and an odd final digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, err := hexDigitToByte(c)
		if err != nil {
			return nil, err
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCIIHexEncode writes data as upper case hex digits followed by '>'.
func ASCIIHexEncode(data []byte) ([]byte, error) {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, len(data)*2+1)
	for _, c := range data {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return append(out, '>'), nil
}

// ASCII85Decode decodes base-85 data. 'z' stands for four zero bytes and
// "~>" ends the data. A partial final group is padded with 'u'.
func ASCII85Decode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	var group [5]byte
	n := 0

	flush := func(count int) {
		var v uint32
		for _, d := range group {
			v = v*85 + uint32(d)
		}
		for j := 0; j < count; j++ {
			out.WriteByte(byte(v >> (24 - 8*j)))
		}
	}

	if bytes.HasPrefix(data, []byte("<~")) {
		data = data[2:]
	}
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isWhitespace(c):
			continue
		case c == '~':
			i = len(data)
			continue
		case c == 'z' && n == 0:
			out.Write([]byte{0, 0, 0, 0})
			continue
		case c < '!' || c > 'u':
			return nil, errors.Errorf("invalid ASCII85 character %q", c)
		}
		group[n] = c - '!'
		n++
		if n == 5 {
			flush(4)
			n = 0
		}
	}
	if n > 1 {
		for k := n; k < 5; k++ {
			group[k] = 84
		}
		flush(n - 1)
	}
	return out.Bytes(), nil
}

// ASCII85Encode writes data as base-85 followed by "~>".
func ASCII85Encode(data []byte) ([]byte, error) {
	out := make([]byte, ascii85.MaxEncodedLen(len(data)), ascii85.MaxEncodedLen(len(data))+2)
	n := ascii85.Encode(out, data)
	return append(out[:n], '~', '>'), nil
}

// hexDigitToByte converts a hexadecimal character to its numeric value (0-15).
func hexDigitToByte(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	}
	return 0, errors.Errorf("invalid hex digit %q", c)
}

package core

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var utf16BOM = []byte{0xfe, 0xff}
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// pdfDocHigh maps the PDFDocEncoding bytes that differ from Latin-1.
var pdfDocHigh = map[byte]rune{
	0x18: 0x02d8, 0x19: 0x02c7, 0x1a: 0x02c6, 0x1b: 0x02d9,
	0x1c: 0x02dd, 0x1d: 0x02db, 0x1e: 0x02da, 0x1f: 0x02dc,
	0x80: 0x2022, 0x81: 0x2020, 0x82: 0x2021, 0x83: 0x2026,
	0x84: 0x2014, 0x85: 0x2013, 0x86: 0x0192, 0x87: 0x2044,
	0x88: 0x2039, 0x89: 0x203a, 0x8a: 0x2212, 0x8b: 0x2030,
	0x8c: 0x201e, 0x8d: 0x201c, 0x8e: 0x201d, 0x8f: 0x2018,
	0x90: 0x2019, 0x91: 0x201a, 0x92: 0x2122, 0x93: 0xfb01,
	0x94: 0xfb02, 0x95: 0x0141, 0x96: 0x0152, 0x97: 0x0160,
	0x98: 0x0178, 0x99: 0x017d, 0x9a: 0x0131, 0x9b: 0x0142,
	0x9c: 0x0153, 0x9d: 0x0161, 0x9e: 0x017e, 0xa0: 0x20ac,
}

// TextString encodes s as a PDF text string. Printable ASCII is stored as
// is; anything else is stored as UTF-16BE with a byte order mark.
func TextString(s string) String {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		return String(s)
	}

	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(s)
	if err != nil {
		return String(s)
	}
	return String(out)
}

// Text decodes a PDF text string: UTF-16BE or UTF-8 when a byte order mark
// is present, PDFDocEncoding otherwise.
func (s String) Text() string {
	return decodeText([]byte(s))
}

// Text decodes a hex text string, see String.Text.
func (s HexString) Text() string {
	return decodeText([]byte(s))
}

func decodeText(b []byte) string {
	if bytes.HasPrefix(b, utf16BOM) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	}
	if bytes.HasPrefix(b, utf8BOM) {
		return string(b[len(utf8BOM):])
	}

	var sb strings.Builder
	for _, c := range b {
		if r, ok := pdfDocHigh[c]; ok {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

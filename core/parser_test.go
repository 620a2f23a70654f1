package core

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, src string) Object {
	t.Helper()
	obj, err := NewParser(input(src)).ParseObject()
	if err != nil {
		t.Fatalf("ParseObject(%q) failed: %v", src, err)
	}
	return obj
}

// TestParserValues tests parsing of every value kind
func TestParserValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Object
	}{
		{"null", "null", Null{}},
		{"true", "true", Bool(true)},
		{"false", "false", Bool(false)},
		{"integer", "-42", Int(-42)},
		{"real", "3.25", Real(3.25)},
		{"string", "(x y)", String("x y")},
		{"hex string", "<4142>", HexString("AB")},
		{"name", "/Font", Name("Font")},
		{"reference", "12 3 R", IndirectRef{Number: 12, Generation: 3}},
		{"integers without R", "[1 2 3]", Array{Int(1), Int(2), Int(3)}},
		{"reference in array", "[1 2 R 3]", Array{IndirectRef{Number: 1, Generation: 2}, Int(3)}},
		{"empty array", "[]", Array{}},
		{"empty dict", "<<>>", Dict{}},
		{
			name:  "nested dict",
			input: "<</A 1 /B [true /X] /C <</D null>>>>",
			want: Dict{
				"A": Int(1),
				"B": Array{Bool(true), Name("X")},
				"C": Dict{"D": Null{}},
			},
		},
		{
			name:  "comments between values",
			input: "[1 % one\n 2]",
			want:  Array{Int(1), Int(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParserLargeInteger tests that integers beyond int64 become reals
func TestParserLargeInteger(t *testing.T) {
	got, ok := parse(t, "99999999999999999999").(Real)
	if !ok {
		t.Fatalf("expected Real, got %T", got)
	}
	if got < 9.9e19 || got > 1.01e20 {
		t.Errorf("value = %v", got)
	}
}

// TestParserEOF tests that an exhausted input reports io.EOF
func TestParserEOF(t *testing.T) {
	p := NewParser(input("1 % trailing comment"))
	if _, err := p.ParseObject(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ParseObject(); err != io.EOF {
		t.Errorf("error = %v, want io.EOF", err)
	}
}

// TestParserErrors tests error codes of malformed values
func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing dict value", "<</A>>", ErrInvalidDataType},
		{"unterminated array", "[1 2", ErrUnexpectedEOF},
		{"unterminated dict", "<</A 1", ErrUnexpectedEOF},
		{"non-name key", "<< 1 2 >>", ErrInvalidDataType},
		{"bare keyword", "endobj", ErrInvalidDataType},
		{"generation out of range", "1 70000 R", ErrInvalidObject},
		{"stray array end", "]", ErrInvalidDataType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(input(tt.input)).ParseObject()
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestParserForbidReferences tests that content mode rejects references
func TestParserForbidReferences(t *testing.T) {
	p := NewParser(input("[1 0 R]"))
	p.SetForbidReferences(true)
	if _, err := p.ParseObject(); !errors.Is(err, ErrInvalidDataType) {
		t.Errorf("error = %v, want ErrInvalidDataType", err)
	}

	p = NewParser(input("[1 0]"))
	p.SetForbidReferences(true)
	if _, err := p.ParseObject(); err != nil {
		t.Errorf("plain integers should parse: %v", err)
	}
}

// TestParserMaxDepth tests the nesting bound on hostile input
func TestParserMaxDepth(t *testing.T) {
	const levels = 100000

	t.Run("dictionaries", func(t *testing.T) {
		src := strings.Repeat("<</A ", levels) + "1" + strings.Repeat(">>", levels)
		_, err := NewParser(input(src)).ParseObject()
		if !errors.Is(err, ErrMaxRecursionReached) {
			t.Errorf("error = %v, want ErrMaxRecursionReached", err)
		}
	})

	t.Run("arrays", func(t *testing.T) {
		src := strings.Repeat("[", levels)
		_, err := NewParser(input(src)).ParseObject()
		if !errors.Is(err, ErrMaxRecursionReached) {
			t.Errorf("error = %v, want ErrMaxRecursionReached", err)
		}
	})

	t.Run("custom bound", func(t *testing.T) {
		p := NewParser(input("[[[[[1]]]]]"))
		p.SetMaxDepth(5)
		if _, err := p.ParseObject(); err != nil {
			t.Errorf("five levels should parse: %v", err)
		}

		p = NewParser(input("[[[[[[1]]]]]]"))
		p.SetMaxDepth(5)
		if _, err := p.ParseObject(); !errors.Is(err, ErrMaxRecursionReached) {
			t.Errorf("error = %v, want ErrMaxRecursionReached", err)
		}
	})
}

// TestParseIndirectObject tests complete object definitions
func TestParseIndirectObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRef IndirectRef
		want    Object
	}{
		{
			name:    "dictionary",
			input:   "1 0 obj\n<</Type /Catalog>>\nendobj",
			wantRef: IndirectRef{Number: 1},
			want:    Dict{"Type": Name("Catalog")},
		},
		{
			name:    "empty object",
			input:   "3 0 obj endobj",
			wantRef: IndirectRef{Number: 3},
			want:    Null{},
		},
		{
			name:    "stream with CRLF",
			input:   "12 1 obj\n<</Length 5>>\nstream\r\nHello\nendstream\nendobj",
			wantRef: IndirectRef{Number: 12, Generation: 1},
			want:    &Stream{Dict: Dict{"Length": Int(5)}, Data: []byte("Hello")},
		},
		{
			name:    "stream with binary data",
			input:   "4 0 obj <</Length 4>> stream\n\x00\xff)(\nendstream endobj",
			wantRef: IndirectRef{Number: 4},
			want:    &Stream{Dict: Dict{"Length": Int(4)}, Data: []byte("\x00\xff)(")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, obj, err := NewParser(input(tt.input)).ParseIndirectObject()
			if err != nil {
				t.Fatalf("ParseIndirectObject failed: %v", err)
			}
			if ref != tt.wantRef {
				t.Errorf("ref = %v, want %v", ref, tt.wantRef)
			}
			if diff := cmp.Diff(tt.want, obj); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParseIndirectObjectErrors tests broken object definitions
func TestParseIndirectObjectErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing obj keyword", "1 0 <<>> endobj", ErrInvalidObject},
		{"missing endobj", "1 0 obj 5 6 7", ErrInvalidObject},
		{"stream after array", "1 0 obj [] stream\nendstream endobj", ErrInvalidObject},
		{"missing length", "1 0 obj <<>> stream\nabc\nendstream endobj", ErrInvalidStream},
		{"negative length", "1 0 obj <</Length -1>> stream\nabc\nendstream endobj", ErrInvalidStream},
		{"length beyond input", "1 0 obj <</Length 99>> stream\nabc", ErrUnexpectedEOF},
		{"indirect length without resolver", "1 0 obj <</Length 2 0 R>> stream\nabc\nendstream endobj", ErrInvalidStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewParser(input(tt.input)).ParseIndirectObject()
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestParseStreamWithIndirectLength tests /Length resolved through a resolver
func TestParseStreamWithIndirectLength(t *testing.T) {
	p := NewParser(input("5 0 obj <</Length 6 0 R>> stream\nabc\nendstream endobj"))
	p.SetReferenceResolver(&mockResolver{objects: map[IndirectRef]Object{
		{Number: 6}: Int(3),
	}})

	_, obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject failed: %v", err)
	}
	s, ok := obj.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", obj)
	}
	if string(s.Data) != "abc" {
		t.Errorf("data = %q, want %q", s.Data, "abc")
	}
}

// TestParserDecryption tests string decryption and the signature exemption
func TestParserDecryption(t *testing.T) {
	enc := func(s string) string { return string(xorBytes([]byte(s))) }
	hex := func(s string) string {
		const digits = "0123456789ABCDEF"
		var b strings.Builder
		for _, c := range []byte(s) {
			b.WriteByte(digits[c>>4])
			b.WriteByte(digits[c&0x0f])
		}
		return "<" + b.String() + ">"
	}

	src := "<</Type /Sig /Contents " + hex("\x01\x02") + " /Name " + hex(enc("ab")) + ">>"
	p := NewParser(input(src))
	p.SetDecryption(&xorSession{}, IndirectRef{Number: 1})
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatal(err)
	}
	want := Dict{"Type": Name("Sig"), "Contents": HexString("\x01\x02"), "Name": HexString("ab")}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("signature dictionary mismatch (-want +got):\n%s", diff)
	}

	src = "<</Contents " + hex(enc("xy")) + " /T (" + enc("t") + ")>>"
	p = NewParser(input(src))
	p.SetDecryption(&xorSession{}, IndirectRef{Number: 1})
	obj, err = p.ParseObject()
	if err != nil {
		t.Fatal(err)
	}
	want = Dict{"Contents": HexString("xy"), "T": String("t")}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("plain dictionary mismatch (-want +got):\n%s", diff)
	}
}

// BenchmarkParserDict measures parsing a typical page dictionary
func BenchmarkParserDict(b *testing.B) {
	src := []byte("<</Type /Page /MediaBox [0 0 612 792] /Contents 5 0 R /Resources <</Font <</F1 6 0 R>>>>>>")
	for i := 0; i < b.N; i++ {
		if _, err := NewParser(NewBytesInput(src)).ParseObject(); err != nil {
			b.Fatal(err)
		}
	}
}

package contentstream

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pdfio/core"
)

// TestParse tests operator and operand grouping
func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Operation
	}{
		{
			name:  "operator without operands",
			input: "q",
			want:  []Operation{{Operator: "q"}},
		},
		{
			name:  "integer operand",
			input: "100 Tz",
			want:  []Operation{{Operator: "Tz", Operands: []core.Object{core.Int(100)}}},
		},
		{
			name:  "real operand",
			input: "1.5 w",
			want:  []Operation{{Operator: "w", Operands: []core.Object{core.Real(1.5)}}},
		},
		{
			name:  "name and size",
			input: "/F1 12 Tf",
			want:  []Operation{{Operator: "Tf", Operands: []core.Object{core.Name("F1"), core.Int(12)}}},
		},
		{
			name:  "text matrix",
			input: "1 0 0 1 100 200 Tm",
			want: []Operation{{Operator: "Tm", Operands: []core.Object{
				core.Int(1), core.Int(0), core.Int(0), core.Int(1), core.Int(100), core.Int(200),
			}}},
		},
		{
			name:  "text block",
			input: "BT\n/F1 12 Tf\n100 200 Td\n(Hello) Tj\nET",
			want: []Operation{
				{Operator: "BT"},
				{Operator: "Tf", Operands: []core.Object{core.Name("F1"), core.Int(12)}},
				{Operator: "Td", Operands: []core.Object{core.Int(100), core.Int(200)}},
				{Operator: "Tj", Operands: []core.Object{core.String("Hello")}},
				{Operator: "ET"},
			},
		},
		{
			name:  "array operand",
			input: "[(Hello) -250 (World)] TJ",
			want: []Operation{{Operator: "TJ", Operands: []core.Object{
				core.Array{core.String("Hello"), core.Int(-250), core.String("World")},
			}}},
		},
		{
			name:  "hex string",
			input: "<48656C6C6F> Tj",
			want:  []Operation{{Operator: "Tj", Operands: []core.Object{core.HexString("Hello")}}},
		},
		{
			name:  "escaped and nested string",
			input: `(Text (with \(nested\)\n parens)) Tj`,
			want:  []Operation{{Operator: "Tj", Operands: []core.Object{core.String("Text (with (nested)\n parens)")}}},
		},
		{
			name:  "negative numbers",
			input: "-10 -20.5 Td",
			want:  []Operation{{Operator: "Td", Operands: []core.Object{core.Int(-10), core.Real(-20.5)}}},
		},
		{
			name:  "name escapes",
			input: "/Name#20With#20Spaces Do",
			want:  []Operation{{Operator: "Do", Operands: []core.Object{core.Name("Name With Spaces")}}},
		},
		{
			name:  "quote operators",
			input: "(a) ' 1 2 (b) \" T*",
			want: []Operation{
				{Operator: "'", Operands: []core.Object{core.String("a")}},
				{Operator: "\"", Operands: []core.Object{core.Int(1), core.Int(2), core.String("b")}},
				{Operator: "T*"},
			},
		},
		{
			name:  "dictionary operand",
			input: "/OC <</Type /OCMD /Visible true>> BDC EMC",
			want: []Operation{
				{Operator: "BDC", Operands: []core.Object{
					core.Name("OC"), core.Dict{"Type": core.Name("OCMD"), "Visible": core.Bool(true)},
				}},
				{Operator: "EMC"},
			},
		},
		{
			name:  "booleans and null are operands",
			input: "true false null sh",
			want:  []Operation{{Operator: "sh", Operands: []core.Object{core.Bool(true), core.Bool(false), core.Null{}}}},
		},
		{
			name:  "comments",
			input: "q % save\n1 w %width\nQ",
			want: []Operation{
				{Operator: "q"},
				{Operator: "w", Operands: []core.Object{core.Int(1)}},
				{Operator: "Q"},
			},
		},
		{
			name:  "trailing operands dropped",
			input: "Q 1 2",
			want:  []Operation{{Operator: "Q"}},
		},
		{
			name:  "whitespace only",
			input: "   \n\t\r  ",
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := NewParser([]byte(tt.input)).Parse()
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, ops); diff != "" {
				t.Errorf("operations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParseMultipleRanges tests that ranges are parsed as one stream
func TestParseMultipleRanges(t *testing.T) {
	ops, err := NewParser([]byte("q 1 0 0 "), []byte{}, []byte("1 0 0 cm\n"), []byte("Q")).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []Operation{
		{Operator: "q"},
		{Operator: "cm", Operands: []core.Object{
			core.Int(1), core.Int(0), core.Int(0), core.Int(1), core.Int(0), core.Int(0),
		}},
		{Operator: "Q"},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
}

// TestParseInlineImage tests that BI ... ID ... EI becomes one operation
func TestParseInlineImage(t *testing.T) {
	input := "q\nBI\n/W 2\n/H 1\n/CS /G\n/BPC 8\nID \xffEIx\x00EI\nQ"
	ops, err := NewParser([]byte(input)).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []Operation{
		{Operator: "q"},
		{
			Operator:  "BI",
			ImageDict: core.Dict{"W": core.Int(2), "H": core.Int(1), "CS": core.Name("G"), "BPC": core.Int(8)},
			ImageData: []byte("\xffEIx\x00"),
		},
		{Operator: "Q"},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
}

// TestParseErrors tests rejected content
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"indirect reference", "1 0 R Do", core.ErrInvalidDataType},
		{"stray array end", "] TJ", core.ErrInvalidDataType},
		{"unterminated array", "[1 2", core.ErrUnexpectedEOF},
		{"inline image without ID", "BI /W 1", core.ErrUnexpectedEOF},
		{"inline image without EI", "BI /W 1 ID abc", core.ErrUnexpectedEOF},
		{"inline image key not a name", "BI 1 2 ID x EI", core.ErrInvalidDataType},
		{"inline image key without value", "BI /W ID x EI", core.ErrInvalidObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser([]byte(tt.input)).Parse()
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
		})
	}
}

// TestParseMaxDepth tests that nested operands are bounded
func TestParseMaxDepth(t *testing.T) {
	input := strings.Repeat("[", 100000) + strings.Repeat("]", 100000) + " TJ"
	p := NewParser([]byte(input))
	p.SetMaxDepth(1000)
	if _, err := p.Parse(); !errors.Is(err, core.ErrMaxRecursionReached) {
		t.Errorf("got error %v, want MaxRecursionReached", err)
	}
}

// TestParseNext tests incremental parsing
func TestParseNext(t *testing.T) {
	p := NewParser([]byte("q Q"))
	for _, want := range []string{"q", "Q"} {
		op, err := p.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if op == nil || op.Operator != want {
			t.Fatalf("got %v, want %s", op, want)
		}
	}
	op, err := p.Next()
	if err != nil || op != nil {
		t.Errorf("expected end of stream, got %v, %v", op, err)
	}
}

// BenchmarkParse measures parsing of a typical text block
func BenchmarkParse(b *testing.B) {
	data := []byte(strings.Repeat("BT /F1 12 Tf 100 700 Td [(Hello) -250 (World)] TJ ET\n", 200))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewParser(data).Parse(); err != nil {
			b.Fatal(err)
		}
	}
}

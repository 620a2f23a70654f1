package contentstream

import (
	"bytes"
	"io"
	"testing"

	"github.com/tsawler/pdfio/core"
)

// TestInlineImageCapture tests where inline image data end
func TestInlineImageCapture(t *testing.T) {
	tests := []struct {
		name  string
		input string
		data  string
		next  string
	}{
		{"false EI match is kept", "ID\x00\x00EIxyz\x00\x00EI ", "\x00EIxyz\x00\x00", ""},
		{"EI at end of input", "ID abcEI", "abc", ""},
		{"EI followed by newline", "ID \nabc\nEI\nQ", "\nabc\n", "Q"},
		{"empty data", "ID EI q", "", "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewTokenizer([]byte(tt.input))
			id, err := tok.NextToken()
			if err != nil {
				t.Fatalf("NextToken failed: %v", err)
			}
			if !id.IsKeyword("ID") {
				t.Fatalf("expected ID, got %q", id.Value)
			}
			if got := string(tok.InlineImageData()); got != tt.data {
				t.Errorf("data = %q, want %q", got, tt.data)
			}

			next, err := tok.NextToken()
			if err != nil {
				t.Fatalf("NextToken failed: %v", err)
			}
			if tt.next == "" {
				if next.Type != core.TokenEOF {
					t.Errorf("expected EOF, got %q", next.Value)
				}
			} else if !next.IsKeyword(tt.next) {
				t.Errorf("next token = %q, want %q", next.Value, tt.next)
			}
		})
	}
}

// TestInlineImageGrowth tests data larger than the initial buffer
func TestInlineImageGrowth(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 'E', 0x01}, 3*initialImageBuffer)
	input := append([]byte("ID "), data...)
	input = append(input, "\nEI\n"...)

	tok := NewTokenizer(input)
	if _, err := tok.NextToken(); err != nil {
		t.Fatalf("NextToken failed: %v", err)
	}
	want := append(append([]byte{}, data...), '\n')
	if !bytes.Equal(tok.InlineImageData(), want) {
		t.Errorf("captured %d bytes, want %d", len(tok.InlineImageData()), len(want))
	}
}

// TestTokenizerRanges tests reading across range boundaries
func TestTokenizerRanges(t *testing.T) {
	tok := NewTokenizer([]byte("1 "), nil, []byte("/N"), []byte(" (s)"), []byte{})
	want := []core.TokenType{core.TokenInteger, core.TokenName, core.TokenString, core.TokenEOF}
	for i, typ := range want {
		got, err := tok.NextToken()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if got.Type != typ {
			t.Errorf("token %d: type %v, want %v", i, got.Type, typ)
		}
	}

	// EOF stays EOF
	got, err := tok.NextToken()
	if err != nil || got.Type != core.TokenEOF {
		t.Errorf("expected repeated EOF, got %v, %v", got, err)
	}
}

// TestInlineImageAcrossRanges tests image data split over ranges
func TestInlineImageAcrossRanges(t *testing.T) {
	tok := NewTokenizer([]byte("ID ab"), []byte("cE"), []byte("I Q"))
	if _, err := tok.NextToken(); err != nil {
		t.Fatalf("NextToken failed: %v", err)
	}
	if got := string(tok.InlineImageData()); got != "abc" {
		t.Errorf("data = %q, want %q", got, "abc")
	}
}

// TestRangeInput tests reads and seeks over the concatenation
func TestRangeInput(t *testing.T) {
	in := newRangeInput([][]byte{[]byte("abc"), nil, []byte("de"), []byte("f")})

	buf := make([]byte, 4)
	n, err := in.Read(buf)
	if err != nil || n != 4 || string(buf) != "abcd" {
		t.Fatalf("Read = %d, %q, %v", n, buf[:n], err)
	}
	if in.Position() != 4 {
		t.Errorf("Position = %d, want 4", in.Position())
	}

	if _, err := in.Seek(-2, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	b, err := in.ReadByte()
	if err != nil || b != 'e' {
		t.Errorf("ReadByte = %q, %v", b, err)
	}

	if _, err := in.Seek(1, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	rest, err := io.ReadAll(in)
	if err != nil || string(rest) != "bcdef" {
		t.Errorf("ReadAll = %q, %v", rest, err)
	}
	if !in.EOF() {
		t.Error("expected EOF")
	}
	if _, err := in.Peek(); err != io.EOF {
		t.Errorf("Peek at end = %v", err)
	}
	if _, err := in.Seek(-1, io.SeekStart); err == nil {
		t.Error("negative seek should fail")
	}
}

package filters

import (
	"bytes"
	"testing"
)

// TestRunLengthDecode tests literal runs, repeat runs and the EOD marker
func TestRunLengthDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    []byte
		wantErr bool
	}{
		{"literal", []byte{2, 'a', 'b', 'c', 128}, []byte("abc"), false},
		{"repeat", []byte{254, 'x', 128}, []byte("xxx"), false},
		{"mixed", []byte{0, 'a', 255, 'b', 128}, []byte("abb"), false},
		{"no EOD", []byte{1, 'a', 'b'}, []byte("ab"), false},
		{"data after EOD", []byte{0, 'a', 128, 0, 'b'}, []byte("a"), false},
		{"short literal", []byte{4, 'a'}, nil, true},
		{"repeat without byte", []byte{200}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RunLengthDecode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RunLengthDecode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRunLengthRoundTrip tests that encoded data decodes back to the input
func TestRunLengthRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("abc"),
		bytes.Repeat([]byte{'z'}, 300),
		append([]byte("ab"), bytes.Repeat([]byte{0}, 10)...),
		bytes.Repeat([]byte("ab"), 200),
		{},
	}

	for _, in := range inputs {
		enc, err := RunLengthEncode(in)
		if err != nil {
			t.Fatalf("RunLengthEncode failed: %v", err)
		}
		got, err := RunLengthDecode(enc)
		if err != nil {
			t.Fatalf("RunLengthDecode failed: %v", err)
		}
		if !bytes.Equal(got, in) {
			t.Errorf("round trip of %d bytes: got %d bytes", len(in), len(got))
		}
	}
}

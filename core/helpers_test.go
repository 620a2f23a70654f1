package core

import (
	"bytes"
	"io"
)

func input(s string) *BytesInput {
	return NewBytesInput([]byte(s))
}

// xorSession is a test EncryptSession: strings are XORed with 0xff, and
// stream data are XORed and prefixed with four marker bytes.
type xorSession struct {
	metadata bool
}

var streamMarker = []byte("IV!!")

func xorBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = c ^ 0xff
	}
	return out
}

func (s *xorSession) EnsureInitialized([]byte) error { return nil }
func (s *xorSession) Dictionary() Dict               { return Dict{"Filter": Name("Test")} }
func (s *xorSession) EncryptMetadata() bool          { return s.metadata }
func (s *xorSession) EncryptedLength(n int) int      { return n + len(streamMarker) }

func (s *xorSession) EncryptString(_ IndirectRef, data []byte) ([]byte, error) {
	return xorBytes(data), nil
}

func (s *xorSession) DecryptString(_ IndirectRef, data []byte) ([]byte, error) {
	return xorBytes(data), nil
}

func (s *xorSession) EncryptWriter(_ IndirectRef, w io.Writer) (io.WriteCloser, error) {
	if _, err := w.Write(streamMarker); err != nil {
		return nil, err
	}
	return &xorWriter{w: w}, nil
}

func (s *xorSession) DecryptReader(_ IndirectRef, r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, streamMarker)
	return bytes.NewReader(xorBytes(data)), nil
}

type xorWriter struct {
	w io.Writer
}

func (x *xorWriter) Write(p []byte) (int, error) {
	if _, err := x.w.Write(xorBytes(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (x *xorWriter) Close() error { return nil }

// mockResolver resolves references from a map
type mockResolver struct {
	objects map[IndirectRef]Object
}

func (m *mockResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m.objects[ref]; ok {
		return obj, nil
	}
	return Null{}, nil
}

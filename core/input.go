package core

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// InputDevice is a seekable byte source. Peek never consumes, and EOF
// reports whether the next read would return io.EOF.
type InputDevice interface {
	io.Reader
	io.ByteReader
	io.Seeker
	Peek() (byte, error)
	Position() int64
	EOF() bool
}

// BytesInput is an InputDevice over an in-memory buffer, such as a memory
// mapped file.
type BytesInput struct {
	data []byte
	pos  int64
}

// NewBytesInput creates an input device reading from data
func NewBytesInput(data []byte) *BytesInput {
	return &BytesInput{data: data}
}

func (b *BytesInput) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *BytesInput) ReadByte() (byte, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	c := b.data[b.pos]
	b.pos++
	return c, nil
}

func (b *BytesInput) Peek() (byte, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	return b.data[b.pos], nil
}

func (b *BytesInput) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, NewError(CodeValueOutOfRange, "invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, NewError(CodeValueOutOfRange, "negative position %d", abs)
	}
	b.pos = abs
	return abs, nil
}

func (b *BytesInput) Position() int64 { return b.pos }
func (b *BytesInput) EOF() bool       { return b.pos >= int64(len(b.data)) }

// Len returns the size of the underlying buffer
func (b *BytesInput) Len() int64 { return int64(len(b.data)) }

// Bytes returns the underlying buffer
func (b *BytesInput) Bytes() []byte { return b.data }

// SeekerInput adapts an io.ReadSeeker, buffering reads between seeks.
type SeekerInput struct {
	rs  io.ReadSeeker
	buf *bufio.Reader
	pos int64
}

// NewSeekerInput creates an input device over rs, starting at its current
// position.
func NewSeekerInput(rs io.ReadSeeker) (*SeekerInput, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &SeekerInput{rs: rs, buf: bufio.NewReader(rs), pos: pos}, nil
}

func (s *SeekerInput) Read(p []byte) (int, error) {
	n, err := s.buf.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *SeekerInput) ReadByte() (byte, error) {
	c, err := s.buf.ReadByte()
	if err == nil {
		s.pos++
	}
	return c, err
}

func (s *SeekerInput) Peek() (byte, error) {
	p, err := s.buf.Peek(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (s *SeekerInput) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset += s.pos
		whence = io.SeekStart
	}
	abs, err := s.rs.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	s.buf.Reset(s.rs)
	s.pos = abs
	return abs, nil
}

func (s *SeekerInput) Position() int64 { return s.pos }

func (s *SeekerInput) EOF() bool {
	_, err := s.buf.Peek(1)
	return err != nil
}

// ErrSourceClosed is returned by reads from a ClosableInput after Close.
var ErrSourceClosed = errors.New("source closed")

// ClosableInput guards an InputDevice whose backing memory or file is
// released while lazy objects still refer to it. After Close every read
// fails with ErrSourceClosed.
type ClosableInput struct {
	in     InputDevice
	closed bool
}

// NewClosableInput wraps in
func NewClosableInput(in InputDevice) *ClosableInput {
	return &ClosableInput{in: in}
}

// Close marks the source closed. It does not close the wrapped device.
func (c *ClosableInput) Close() {
	c.closed = true
}

// Closed reports whether Close was called
func (c *ClosableInput) Closed() bool {
	return c.closed
}

func (c *ClosableInput) Read(p []byte) (int, error) {
	if c.closed {
		return 0, errors.WithStack(ErrSourceClosed)
	}
	return c.in.Read(p)
}

func (c *ClosableInput) ReadByte() (byte, error) {
	if c.closed {
		return 0, errors.WithStack(ErrSourceClosed)
	}
	return c.in.ReadByte()
}

func (c *ClosableInput) Peek() (byte, error) {
	if c.closed {
		return 0, errors.WithStack(ErrSourceClosed)
	}
	return c.in.Peek()
}

func (c *ClosableInput) Seek(offset int64, whence int) (int64, error) {
	if c.closed {
		return 0, errors.WithStack(ErrSourceClosed)
	}
	return c.in.Seek(offset, whence)
}

func (c *ClosableInput) Position() int64 {
	if c.closed {
		return 0
	}
	return c.in.Position()
}

func (c *ClosableInput) EOF() bool {
	return c.closed || c.in.EOF()
}

// sourceClosed reports whether in was closed under its objects
func sourceClosed(in InputDevice) bool {
	c, ok := in.(interface{ Closed() bool })
	return ok && c.Closed()
}

// readFull reads exactly n bytes from in. The buffer grows with the data
// actually read, so a bogus length cannot force a huge allocation.
func readFull(in InputDevice, n int64) ([]byte, error) {
	var buf bytes.Buffer
	if n <= 1<<20 {
		buf.Grow(int(n))
	}
	read, err := io.CopyN(&buf, in, n)
	if err != nil {
		return buf.Bytes(), NewError(CodeUnexpectedEOF, "expected %d bytes, got %d", n, read)
	}
	return buf.Bytes(), nil
}

package core

import (
	"bufio"
	"io"
)

// OutputDevice is a byte sink that knows how many bytes it has accepted.
type OutputDevice interface {
	io.Writer
	Position() int64
	Flush() error
}

// Output counts the bytes written through a buffered writer. Position is
// the absolute position in the destination, starting at the base given to
// NewOutput.
type Output struct {
	w   *bufio.Writer
	pos int64
	err error
}

// NewOutput wraps w. base is the number of bytes the destination already
// holds, so positions stay absolute when appending.
func NewOutput(w io.Writer, base int64) *Output {
	return &Output{w: bufio.NewWriter(w), pos: base}
}

func (o *Output) Write(p []byte) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	n, err := o.w.Write(p)
	o.pos += int64(n)
	if err != nil {
		o.err = err
	}
	return n, err
}

// WriteString writes s
func (o *Output) WriteString(s string) (int, error) {
	return o.Write([]byte(s))
}

func (o *Output) Position() int64 { return o.pos }

func (o *Output) Flush() error {
	if o.err != nil {
		return o.err
	}
	return o.w.Flush()
}

package contentstream

import (
	"io"

	"github.com/pkg/errors"
)

// rangeInput reads several byte ranges as one input. Positions are
// logical offsets into the concatenation.
type rangeInput struct {
	ranges [][]byte
	starts []int64
	size   int64

	idx int   // current range
	off int   // offset in the current range
	pos int64 // logical position
}

func newRangeInput(ranges [][]byte) *rangeInput {
	in := &rangeInput{starts: make([]int64, len(ranges))}
	for i, r := range ranges {
		in.starts[i] = in.size
		in.size += int64(len(r))
	}
	in.ranges = ranges
	in.skipExhausted()
	return in
}

// skipExhausted moves past ranges with no bytes left.
func (in *rangeInput) skipExhausted() {
	for in.idx < len(in.ranges) && in.off >= len(in.ranges[in.idx]) {
		in.idx++
		in.off = 0
	}
}

func (in *rangeInput) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if in.idx >= len(in.ranges) {
			break
		}
		c := copy(p[n:], in.ranges[in.idx][in.off:])
		n += c
		in.off += c
		in.pos += int64(c)
		in.skipExhausted()
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (in *rangeInput) ReadByte() (byte, error) {
	b, err := in.Peek()
	if err != nil {
		return 0, err
	}
	in.off++
	in.pos++
	in.skipExhausted()
	return b, nil
}

func (in *rangeInput) Peek() (byte, error) {
	if in.idx >= len(in.ranges) {
		return 0, io.EOF
	}
	return in.ranges[in.idx][in.off], nil
}

func (in *rangeInput) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = in.pos + offset
	case io.SeekEnd:
		abs = in.size + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.Errorf("negative position %d", abs)
	}
	if abs > in.size {
		abs = in.size
	}

	in.idx, in.off = len(in.ranges), 0
	for i := range in.ranges {
		if abs < in.starts[i]+int64(len(in.ranges[i])) {
			in.idx = i
			in.off = int(abs - in.starts[i])
			break
		}
	}
	in.pos = abs
	return abs, nil
}

func (in *rangeInput) Position() int64 { return in.pos }
func (in *rangeInput) EOF() bool       { return in.idx >= len(in.ranges) }

package filters

import (
	"github.com/pkg/errors"
)

const runLengthEOD = 128

// RunLengthDecode expands PackBits style runs: a length byte 0-127 copies
// the next n+1 bytes, 129-255 repeats the next byte 257-n times, 128 ends
// the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == runLengthEOD:
			return out, nil
		case n < runLengthEOD:
			if i+n+1 > len(data) {
				return nil, errors.Errorf("literal run of %d bytes past end of data", n+1)
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, errors.New("repeat run without a byte")
			}
			for k := 0; k < 257-n; k++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out, nil
}

// RunLengthEncode is the inverse of RunLengthDecode. Runs of three or more
// equal bytes become repeat runs.
func RunLengthEncode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)+len(data)/128+2)
	for i := 0; i < len(data); {
		run := 1
		for i+run < len(data) && run < 128 && data[i+run] == data[i] {
			run++
		}
		if run >= 3 {
			out = append(out, byte(257-run), data[i])
			i += run
			continue
		}

		start := i
		for i < len(data) && i-start < 128 {
			if i+2 < len(data) && data[i] == data[i+1] && data[i] == data[i+2] {
				break
			}
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, data[start:i]...)
	}
	return append(out, runLengthEOD), nil
}

package filters

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// FlateDecode decompresses zlib data and undoes the predictor named by the
// Predictor parameter, if any.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "zlib header")
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		// Truncated streams are common; keep what was inflated.
		if len(out) == 0 || !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrap(err, "inflate")
		}
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor == 1 {
		return out, nil
	}
	out, err = unpredict(out, predictor, params)
	if err != nil {
		return nil, errors.Wrap(err, "predictor")
	}
	return out, nil
}

// FlateEncode compresses data with zlib. Predictors are never applied on
// encode.
func FlateEncode(data []byte, _ Params) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewFlateWriter returns a writer compressing into w. Close must be called
// to flush the final block; it does not close w.
func NewFlateWriter(w io.Writer) io.WriteCloser {
	return zlib.NewWriter(w)
}

package filters

import (
	"github.com/pkg/errors"
)

// Params holds decode parameters taken from a /DecodeParms dictionary,
// converted to Go primitives (int, float64, bool, string).
type Params map[string]interface{}

// ErrUnsupported is returned for filters that are recognised but cannot be
// applied in the requested direction.
var ErrUnsupported = errors.New("filter not supported")

// Filter transforms stream data in both directions.
type Filter interface {
	Decode(data []byte, params Params) ([]byte, error)
	Encode(data []byte, params Params) ([]byte, error)
}

type funcFilter struct {
	decode func([]byte, Params) ([]byte, error)
	encode func([]byte, Params) ([]byte, error)
}

func (f funcFilter) Decode(data []byte, params Params) ([]byte, error) {
	if f.decode == nil {
		return nil, ErrUnsupported
	}
	return f.decode(data, params)
}

func (f funcFilter) Encode(data []byte, params Params) ([]byte, error) {
	if f.encode == nil {
		return nil, ErrUnsupported
	}
	return f.encode(data, params)
}

// passthrough leaves image codec data encoded; decoding it belongs to an
// image layer.
func passthrough(data []byte, _ Params) ([]byte, error) {
	return data, nil
}

var registry = map[string]Filter{
	"FlateDecode":     funcFilter{decode: FlateDecode, encode: FlateEncode},
	"ASCIIHexDecode":  funcFilter{decode: noParams(ASCIIHexDecode), encode: noParams(ASCIIHexEncode)},
	"ASCII85Decode":   funcFilter{decode: noParams(ASCII85Decode), encode: noParams(ASCII85Encode)},
	"RunLengthDecode": funcFilter{decode: noParams(RunLengthDecode), encode: noParams(RunLengthEncode)},
	"CCITTFaxDecode":  funcFilter{decode: CCITTFaxDecode},
	"DCTDecode":       funcFilter{decode: passthrough, encode: passthrough},
	"JPXDecode":       funcFilter{decode: passthrough, encode: passthrough},
	"JBIG2Decode":     funcFilter{decode: passthrough, encode: passthrough},
}

// abbreviations used by inline images
var abbreviations = map[string]string{
	"Fl":  "FlateDecode",
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": "DCTDecode",
}

func noParams(fn func([]byte) ([]byte, error)) func([]byte, Params) ([]byte, error) {
	return func(data []byte, _ Params) ([]byte, error) {
		return fn(data)
	}
}

// Lookup returns the filter registered under name or its abbreviation.
func Lookup(name string) (Filter, bool) {
	if full, ok := abbreviations[name]; ok {
		name = full
	}
	f, ok := registry[name]
	return f, ok
}

// Decode applies the named filter's decoder.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "unknown filter %s", name)
	}
	out, err := f.Decode(data, params)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	return out, nil
}

// Encode applies the named filter's encoder.
func Encode(name string, data []byte, params Params) ([]byte, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "unknown filter %s", name)
	}
	out, err := f.Encode(data, params)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	return out, nil
}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

// getBoolParam extracts a boolean parameter from Params, returning
// defaultValue if it is missing or not a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

package core

import (
	"fmt"

	"github.com/tsawler/pdfio/internal/filters"
)

// Decode applies the stream's /Filter chain with its /DecodeParms and
// returns the decoded data.
func (s *Stream) Decode() ([]byte, error) {
	names, params, err := s.filterChain()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range names {
		if name == "Crypt" {
			// only the Identity crypt filter reaches here; sessions decrypt
			// before filtering
			continue
		}
		data, err = filters.Decode(name, data, toParams(params[i]))
		if err != nil {
			return nil, NewError(CodeInvalidStream, "filter %d (%s): %v", i, name, err)
		}
	}
	return data, nil
}

// Encode replaces the payload with data encoded by the named filter and
// sets /Filter and /Length. An empty name stores data unfiltered.
func (s *Stream) Encode(data []byte, filter string) error {
	if s.Dict == nil {
		s.Dict = make(Dict)
	}
	s.Dict.Delete("DecodeParms")
	if filter == "" {
		s.Dict.Delete("Filter")
		s.Data = data
	} else {
		enc, err := filters.Encode(filter, data, nil)
		if err != nil {
			return err
		}
		s.Dict["Filter"] = Name(filter)
		s.Data = enc
	}
	s.Dict["Length"] = Int(len(s.Data))
	return nil
}

// filterChain returns the filter names and one parameter dictionary (or
// nil) per filter.
func (s *Stream) filterChain() ([]string, []Dict, error) {
	var names []string
	switch f := s.Dict.Get("Filter").(type) {
	case nil, Null:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for i, elem := range f {
			n, ok := elem.(Name)
			if !ok {
				return nil, nil, NewError(CodeInvalidDataType, "filter %d is %T, not a name", i, elem)
			}
			names = append(names, string(n))
		}
	default:
		return nil, nil, NewError(CodeInvalidDataType, "invalid /Filter type %T", f)
	}

	params := make([]Dict, len(names))
	switch p := s.Dict.Get("DecodeParms").(type) {
	case Dict:
		for i := range params {
			params[i] = p
		}
	case Array:
		for i := range params {
			if i < len(p) {
				params[i], _ = p[i].(Dict)
			}
		}
	}
	return names, params, nil
}

// toParams converts a parameter dictionary to Go primitives
func toParams(d Dict) filters.Params {
	if d == nil {
		return nil
	}
	params := make(filters.Params, len(d))
	for k, v := range d {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		case String:
			params[k] = string(obj)
		default:
			params[k] = fmt.Sprint(v)
		}
	}
	return params
}

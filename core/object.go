package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object represents a PDF value
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType represents the type of PDF object
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjHexString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
	ObjOperator
)

// String returns the string representation of the object type
func (t ObjectType) String() string {
	switch t {
	case ObjNull:
		return "Null"
	case ObjBool:
		return "Bool"
	case ObjInt:
		return "Int"
	case ObjReal:
		return "Real"
	case ObjString:
		return "String"
	case ObjHexString:
		return "HexString"
	case ObjName:
		return "Name"
	case ObjArray:
		return "Array"
	case ObjDict:
		return "Dict"
	case ObjStream:
		return "Stream"
	case ObjIndirect:
		return "IndirectRef"
	case ObjOperator:
		return "Operator"
	default:
		return "Unknown"
	}
}

// Null represents a PDF null object
type Null struct{}

func (n Null) Type() ObjectType { return ObjNull }
func (n Null) String() string   { return "null" }

// Bool represents a PDF boolean
type Bool bool

func (b Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Int represents a PDF integer
type Int int64

func (i Int) Type() ObjectType { return ObjInt }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }

// Real represents a PDF real number
type Real float64

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) String() string   { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String represents a literal PDF string. The value holds the decoded bytes.
type String string

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string   { return string(s) }

// HexString represents a PDF string written in hexadecimal form. The value
// holds the decoded bytes; the form is kept so a rewrite stays in hex.
type HexString string

func (s HexString) Type() ObjectType { return ObjHexString }
func (s HexString) String() string   { return string(s) }

// Name represents a PDF name
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// Operator is a bare keyword that is not a PDF value on its own, such as a
// content stream operator (Tj, cm, BI).
type Operator string

func (o Operator) Type() ObjectType { return ObjOperator }
func (o Operator) String() string   { return string(o) }

// Array represents a PDF array
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	var parts []string
	for _, obj := range a {
		parts = append(parts, obj.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the length of the array
func (a Array) Len() int {
	return len(a)
}

// Get retrieves an element at the given index
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// GetInt retrieves an integer at the given index
func (a Array) GetInt(index int) (Int, bool) {
	i, ok := a.Get(index).(Int)
	return i, ok
}

// GetName retrieves a name at the given index
func (a Array) GetName(index int) (Name, bool) {
	n, ok := a.Get(index).(Name)
	return n, ok
}

// GetBytes retrieves the bytes of a literal or hex string at the given index
func (a Array) GetBytes(index int) ([]byte, bool) {
	return stringBytes(a.Get(index))
}

// Dict represents a PDF dictionary. Keys are stored without the leading
// slash. Serialization follows Keys(), which makes the output deterministic.
type Dict map[string]Object

func (d Dict) Type() ObjectType { return ObjDict }
func (d Dict) String() string {
	var parts []string
	for _, key := range d.Keys() {
		parts = append(parts, fmt.Sprintf("/%s %s", key, d[key].String()))
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get retrieves a value from the dictionary
func (d Dict) Get(key string) Object {
	return d[key]
}

// GetName retrieves a name value
func (d Dict) GetName(key string) (Name, bool) {
	name, ok := d[key].(Name)
	return name, ok
}

// GetInt retrieves an integer value
func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d[key].(Int)
	return i, ok
}

// GetDict retrieves a dictionary value
func (d Dict) GetDict(key string) (Dict, bool) {
	dict, ok := d[key].(Dict)
	return dict, ok
}

// GetArray retrieves an array value
func (d Dict) GetArray(key string) (Array, bool) {
	arr, ok := d[key].(Array)
	return arr, ok
}

// GetBool retrieves a boolean value
func (d Dict) GetBool(key string) (Bool, bool) {
	b, ok := d[key].(Bool)
	return b, ok
}

// GetBytes retrieves the bytes of a literal or hex string value
func (d Dict) GetBytes(key string) ([]byte, bool) {
	return stringBytes(d[key])
}

// GetIndirectRef retrieves an indirect reference
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	ref, ok := d[key].(IndirectRef)
	return ref, ok
}

// Has checks if a key exists in the dictionary
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Set sets a value in the dictionary
func (d Dict) Set(key string, value Object) {
	d[key] = value
}

// Delete removes a key from the dictionary
func (d Dict) Delete(key string) {
	delete(d, key)
}

// Keys returns the keys in serialization order: Type first, then sorted.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		if k != "Type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := d["Type"]; ok {
		keys = append([]string{"Type"}, keys...)
	}
	return keys
}

// Clone returns a shallow copy of the dictionary
func (d Dict) Clone() Dict {
	c := make(Dict, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Stream represents a PDF stream: a dictionary and its raw, still filtered
// payload.
type Stream struct {
	Dict Dict
	Data []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// IndirectRef represents an indirect object reference
type IndirectRef struct {
	Number     int
	Generation int
}

func (r IndirectRef) Type() ObjectType { return ObjIndirect }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// Compare orders references by object number, then generation.
func (r IndirectRef) Compare(o IndirectRef) int {
	switch {
	case r.Number < o.Number:
		return -1
	case r.Number > o.Number:
		return 1
	case r.Generation < o.Generation:
		return -1
	case r.Generation > o.Generation:
		return 1
	}
	return 0
}

// Less reports whether r sorts before o
func (r IndirectRef) Less(o IndirectRef) bool {
	return r.Compare(o) < 0
}

func stringBytes(obj Object) ([]byte, bool) {
	switch v := obj.(type) {
	case String:
		return []byte(v), true
	case HexString:
		return []byte(v), true
	}
	return nil, false
}

package core

import (
	"fmt"
)

// ObjectStream is a decoded /Type /ObjStm stream. Its header lists N pairs
// of object number and offset relative to /First.
type ObjectStream struct {
	stream   *Stream
	n        int
	first    int
	extends  *IndirectRef
	maxDepth int

	decoded []byte
	offsets []objStmEntry
	objects map[int]Object
}

type objStmEntry struct {
	num    int
	offset int
}

// NewObjectStream checks the object stream dictionary; the data are
// decoded on first access.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, NewError(CodeBrokenFile, "nil object stream")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, NewError(CodeBrokenFile, "stream type %q is not ObjStm", t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, NewError(CodeBrokenFile, "object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, NewError(CodeBrokenFile, "object stream has invalid /First")
	}

	os := &ObjectStream{
		stream:   stream,
		n:        int(n),
		first:    int(first),
		maxDepth: DefaultMaxDepth,
		objects:  make(map[int]Object),
	}
	if ref, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		os.extends = &ref
	}
	return os, nil
}

// SetMaxDepth bounds nesting of the contained objects
func (os *ObjectStream) SetMaxDepth(depth int) {
	os.maxDepth = depth
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

// First returns the offset of the first object in the decoded data
func (os *ObjectStream) First() int {
	return os.first
}

// Extends returns the reference to another object stream this one extends, or nil.
func (os *ObjectStream) Extends() *IndirectRef {
	return os.extends
}

func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}
	data, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("object stream: %w", err)
	}
	if os.first > len(data) {
		return NewError(CodeBrokenFile, "/First %d beyond decoded length %d", os.first, len(data))
	}

	p := NewParser(NewBytesInput(data[:os.first]))
	entries := make([]objStmEntry, 0, os.n)
	for i := 0; i < os.n; i++ {
		num, err := p.ReadInteger()
		if err != nil {
			return NewError(CodeBrokenFile, "object stream header pair %d: %v", i, err)
		}
		off, err := p.ReadInteger()
		if err != nil {
			return NewError(CodeBrokenFile, "object stream header pair %d: %v", i, err)
		}
		if num < 1 || off < 0 || int(off) > len(data)-os.first {
			return NewError(CodeBrokenFile, "object stream header pair %d (%d %d) out of range", i, num, off)
		}
		entries = append(entries, objStmEntry{num: int(num), offset: int(off)})
	}

	os.decoded = data
	os.offsets = entries
	return nil
}

// GetObjectByIndex parses the object at position index in the header and
// returns it with its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, NewError(CodeBrokenFile, "index %d outside object stream of %d objects", index, len(os.offsets))
	}
	e := os.offsets[index]
	if obj, ok := os.objects[index]; ok {
		return obj, e.num, nil
	}

	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		if next := os.first + os.offsets[index+1].offset; next >= os.first+e.offset && next <= end {
			end = next
		}
	}
	p := NewParser(NewBytesInput(os.decoded[os.first+e.offset : end]))
	p.SetMaxDepth(os.maxDepth)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object %d in object stream: %w", e.num, err)
	}
	os.objects[index] = obj
	return obj, e.num, nil
}

// GetObjectByNumber finds an object by number and returns it with its index
func (os *ObjectStream) GetObjectByNumber(num int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	for i, e := range os.offsets {
		if e.num == num {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, NewError(CodeBrokenFile, "object %d not in object stream", num)
}

// ObjectNumbers returns the object numbers in header order
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.offsets))
	for i, e := range os.offsets {
		nums[i] = e.num
	}
	return nums, nil
}

package core

import (
	"bytes"
	"fmt"
	"io"
)

// XRefEntryType is the kind of a cross-reference entry
type XRefEntryType uint8

const (
	XRefFree XRefEntryType = iota
	XRefInUse
	XRefCompressed
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefFree:
		return "free"
	case XRefInUse:
		return "in use"
	case XRefCompressed:
		return "compressed"
	}
	return fmt.Sprintf("XRefEntryType(%d)", uint8(t))
}

// XRefEntry is one cross-reference entry as read from a file
type XRefEntry struct {
	Type XRefEntryType
	// Offset is the byte offset for in-use entries, relative to the header,
	// and the next free object number for free entries.
	Offset     int64
	Generation int
	// ObjStm and Index locate a compressed object.
	ObjStm int
	Index  int
}

// XRefTable is one cross-reference section with its trailer
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
	// Stream is the reference of the xref stream object when the section
	// was stored as a stream.
	Stream *IndirectRef
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// startxrefWindow is how far from the end of the file startxref is searched
const startxrefWindow = 1024

// XRefParser reads cross-reference sections, in table or stream form.
// Offsets given to it are absolute positions in its input.
type XRefParser struct {
	in       InputDevice
	resolver ReferenceResolver
	maxDepth int
}

// NewXRefParser creates a new XRef parser
func NewXRefParser(in InputDevice) *XRefParser {
	return &XRefParser{in: in, maxDepth: DefaultMaxDepth}
}

// SetReferenceResolver is used for an xref stream whose /Length is an
// indirect reference.
func (x *XRefParser) SetReferenceResolver(r ReferenceResolver) {
	x.resolver = r
}

// SetMaxDepth bounds nesting inside trailer dictionaries
func (x *XRefParser) SetMaxDepth(depth int) {
	x.maxDepth = depth
}

func (x *XRefParser) parserAt(offset int64) (*Parser, error) {
	lexer := NewLexer(x.in)
	if err := lexer.Reset(offset); err != nil {
		return nil, err
	}
	p := NewParserFromLexer(lexer)
	p.SetMaxDepth(x.maxDepth)
	p.SetReferenceResolver(x.resolver)
	return p, nil
}

// FindXRef returns the value written after the last startxref keyword. The
// value is relative to the file header.
func (x *XRefParser) FindXRef() (int64, error) {
	size, err := x.in.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	start := size - startxrefWindow
	if start < 0 {
		start = 0
	}
	if _, err := x.in.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	tail, err := readFull(x.in, size-start)
	if err != nil {
		return 0, err
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, NewError(CodeInvalidXRef, "startxref not found")
	}
	p, err := x.parserAt(start + int64(idx) + int64(len("startxref")))
	if err != nil {
		return 0, err
	}
	offset, err := p.ReadInteger()
	if err != nil {
		return 0, fmt.Errorf("startxref value: %w", err)
	}
	return offset, nil
}

// ParseXRef parses the section at offset, a table introduced by "xref" or
// an xref stream object.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	p, err := x.parserAt(offset)
	if err != nil {
		return nil, err
	}
	tok, err := p.nextToken()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.IsKeyword("xref"):
		return x.parseTable(p)
	case tok.Type == TokenInteger:
		if err := p.lexer.Reset(offset); err != nil {
			return nil, err
		}
		return x.parseXRefStream(p)
	}
	return nil, NewError(CodeInvalidXRef, "no cross-reference section at offset %d, found %q", offset, tok.Value)
}

// parseTable reads subsections until the trailer keyword, then the
// trailer dictionary.
func (x *XRefParser) parseTable(p *Parser) (*XRefTable, error) {
	table := NewXRefTable()
	for {
		tok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.IsKeyword("trailer"):
			obj, err := p.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			dict, ok := obj.(Dict)
			if !ok {
				return nil, NewError(CodeInvalidXRef, "trailer is %s, not a dictionary", obj.Type())
			}
			table.Trailer = dict
			return table, nil
		case tok.Type == TokenEOF:
			return nil, NewError(CodeUnexpectedEOF, "xref table without trailer")
		case tok.Type != TokenInteger:
			return nil, NewError(CodeInvalidXRef, "invalid subsection header %q at position %d", tok.Value, tok.Pos)
		}

		first, err := tokenInt(tok)
		if err != nil {
			return nil, err
		}
		count, err := p.ReadInteger()
		if err != nil {
			return nil, fmt.Errorf("subsection %d: %w", first, err)
		}
		if first < 0 || count < 0 {
			return nil, NewError(CodeInvalidXRef, "invalid subsection %d %d", first, count)
		}
		for i := int64(0); i < count; i++ {
			entry, err := x.parseEntry(p)
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			if _, dup := table.Entries[int(first+i)]; !dup {
				table.Set(int(first+i), entry)
			}
		}
	}
}

// parseEntry reads "offset generation n|f".
func (x *XRefParser) parseEntry(p *Parser) (*XRefEntry, error) {
	offset, err := p.ReadInteger()
	if err != nil {
		return nil, err
	}
	gen, err := p.ReadInteger()
	if err != nil {
		return nil, err
	}
	tok, err := p.nextToken()
	if err != nil {
		return nil, err
	}
	entry := &XRefEntry{Offset: offset, Generation: int(gen)}
	switch {
	case tok.IsKeyword("n"):
		entry.Type = XRefInUse
	case tok.IsKeyword("f"):
		entry.Type = XRefFree
	default:
		return nil, NewError(CodeInvalidXRef, "invalid entry type %q at position %d", tok.Value, tok.Pos)
	}
	return entry, nil
}

// parseXRefStream reads an xref stream object and unpacks its records
// using /W and /Index.
func (x *XRefParser) parseXRefStream(p *Parser) (*XRefTable, error) {
	ref, obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, NewError(CodeInvalidXRef, "object %s is not an xref stream", ref)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, NewError(CodeInvalidXRef, "object %s has type %q, not XRef", ref, t)
	}

	widths, err := xrefWidths(stream.Dict)
	if err != nil {
		return nil, err
	}
	index, err := xrefIndex(stream.Dict)
	if err != nil {
		return nil, err
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream %s: %w", ref, err)
	}

	recordLen := widths[0] + widths[1] + widths[2]
	table := NewXRefTable()
	table.Stream = &ref
	table.Trailer = stream.Dict

	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for n := 0; n < count; n++ {
			if pos+recordLen > len(data) {
				return nil, NewError(CodeInvalidXRef, "xref stream %s: data ends at record for object %d", ref, first+n)
			}
			rec := data[pos : pos+recordLen]
			pos += recordLen
			if entry := decodeXRefRecord(rec, widths); entry != nil {
				if _, dup := table.Entries[first+n]; !dup {
					table.Set(first+n, entry)
				}
			}
		}
	}
	return table, nil
}

func xrefWidths(d Dict) ([3]int, error) {
	var w [3]int
	arr, ok := d.GetArray("W")
	if !ok || len(arr) < 3 {
		return w, NewError(CodeInvalidXRef, "xref stream /W must hold three integers")
	}
	for i := 0; i < 3; i++ {
		n, ok := arr.GetInt(i)
		if !ok || n < 0 || n > 8 {
			return w, NewError(CodeInvalidXRef, "invalid /W field %d", i)
		}
		w[i] = int(n)
	}
	if w[1] == 0 {
		return w, NewError(CodeInvalidXRef, "xref stream /W has no offset field")
	}
	return w, nil
}

func xrefIndex(d Dict) ([]int, error) {
	arr, ok := d.GetArray("Index")
	if !ok {
		size, ok := d.GetInt("Size")
		if !ok || size < 0 {
			return nil, NewError(CodeInvalidXRef, "xref stream without /Size")
		}
		return []int{0, int(size)}, nil
	}
	if len(arr)%2 != 0 {
		return nil, NewError(CodeInvalidXRef, "xref stream /Index has odd length %d", len(arr))
	}
	index := make([]int, len(arr))
	for i := range arr {
		n, ok := arr.GetInt(i)
		if !ok || n < 0 {
			return nil, NewError(CodeInvalidXRef, "invalid /Index element %d", i)
		}
		index[i] = int(n)
	}
	return index, nil
}

// decodeXRefRecord unpacks one record. Unknown types return nil, which
// readers treat as a reference to null.
func decodeXRefRecord(rec []byte, w [3]int) *XRefEntry {
	typ := int64(1)
	if w[0] > 0 {
		typ = readBigEndianInt(rec[:w[0]])
	}
	f2 := readBigEndianInt(rec[w[0] : w[0]+w[1]])
	f3 := readBigEndianInt(rec[w[0]+w[1]:])

	switch typ {
	case 0:
		return &XRefEntry{Type: XRefFree, Offset: f2, Generation: int(f3)}
	case 1:
		return &XRefEntry{Type: XRefInUse, Offset: f2, Generation: int(f3)}
	case 2:
		return &XRefEntry{Type: XRefCompressed, ObjStm: int(f2), Index: int(f3)}
	}
	return nil
}

// readBigEndianInt reads an unsigned big-endian integer of len(b) bytes
func readBigEndianInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// MergeXRefTables merges sections ordered oldest first; later entries
// override earlier ones and the newest trailer is kept.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for num, entry := range table.Entries {
			merged.Set(num, entry)
		}
		merged.Trailer = table.Trailer
	}
	return merged
}

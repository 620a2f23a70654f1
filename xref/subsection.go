package xref

import (
	"fmt"

	"github.com/tsawler/pdfio/core"
)

// EntryType is the kind of a cross-reference entry
type EntryType uint8

const (
	Free EntryType = iota
	InUse
	Compressed
)

func (t EntryType) String() string {
	switch t {
	case Free:
		return "free"
	case InUse:
		return "in use"
	case Compressed:
		return "compressed"
	}
	return fmt.Sprintf("EntryType(%d)", uint8(t))
}

// Entry is one cross-reference entry as written
type Entry struct {
	Type       EntryType
	Generation int
	// Offset is set for InUse entries.
	Offset int64
	// NextFree is set for Free entries.
	NextFree int
	// Container and Index are set for Compressed entries.
	Container int
	Index     int
}

// NumberedEntry is an entry with the reference it describes
type NumberedEntry struct {
	Ref core.IndirectRef
	Entry
}

// Subsection is a run of consecutive object numbers
type Subsection struct {
	First int
	Last  int

	records map[int]Record
}

// Count returns the number of entries in the subsection
func (s Subsection) Count() int {
	return s.Last - s.First + 1
}

// Subsections is the layout of one cross-reference section
type Subsections struct {
	list []Subsection
	last int
}

// List returns the subsections in order
func (s *Subsections) List() []Subsection {
	return s.list
}

// Size returns the /Size value, one more than the highest object number.
func (s *Subsections) Size() int {
	return s.last + 1
}

// Len returns the total number of entries
func (s *Subsections) Len() int {
	n := 0
	for _, sec := range s.list {
		n += sec.Count()
	}
	return n
}

// ResolveNextFree returns the first free number after num, searching the
// subsections in order. A number without a record is free. The result is 0
// when no free number follows.
func (s *Subsections) ResolveNextFree(num int) int {
	for _, sec := range s.list {
		start := sec.First
		if start <= num {
			start = num + 1
		}
		for n := start; n <= sec.Last; n++ {
			r, ok := sec.records[n]
			if !ok || r.IsFree() {
				return n
			}
		}
	}
	return 0
}

// Entries returns one entry per object number in subsection order. Free
// entries carry the same next free number ResolveNextFree returns; it is
// filled in by one backward pass.
func (s *Subsections) Entries() []NumberedEntry {
	entries := make([]NumberedEntry, 0, s.Len())
	for _, sec := range s.list {
		for n := sec.First; n <= sec.Last; n++ {
			entries = append(entries, entryFor(sec, n))
		}
	}

	next := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type != Free {
			continue
		}
		entries[i].NextFree = next
		next = entries[i].Ref.Number
	}
	return entries
}

func entryFor(sec Subsection, n int) NumberedEntry {
	r, ok := sec.records[n]
	switch {
	case !ok:
		return NumberedEntry{
			Ref:   core.IndirectRef{Number: n, Generation: core.MaxGeneration},
			Entry: Entry{Type: Free, Generation: core.MaxGeneration},
		}
	case r.Compressed:
		return NumberedEntry{Ref: r.Ref, Entry: Entry{Type: Compressed, Container: r.Container, Index: r.Index}}
	case r.IsFree():
		return NumberedEntry{Ref: r.Ref, Entry: Entry{Type: Free, Generation: r.Ref.Generation}}
	}
	return NumberedEntry{Ref: r.Ref, Entry: Entry{Type: InUse, Generation: r.Ref.Generation, Offset: r.Offset}}
}

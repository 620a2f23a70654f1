package xref

import (
	"sort"

	"github.com/tsawler/pdfio/core"
)

// Record is the accounting of one object number
type Record struct {
	Ref core.IndirectRef
	// Offset is the byte offset of an in-use object, relative to the
	// header. It is negative for free objects.
	Offset int64

	Compressed bool
	// Container and Index locate a compressed object in its object stream.
	Container int
	Index     int
}

// IsFree reports whether the record frees its number
func (r Record) IsFree() bool {
	return !r.Compressed && r.Offset < 0
}

// IsUnavailable reports whether the number exists but has no data here
func (r Record) IsUnavailable() bool {
	return r.IsFree() && r.Ref.Generation == core.MaxGeneration
}

// Accountant collects the records of one cross-reference section. Records
// are keyed by object number; registering a number again replaces the
// previous record, generation included. Object number 0 is reserved and
// ignored.
type Accountant struct {
	records map[int]Record
}

// NewAccountant creates an empty accountant
func NewAccountant() *Accountant {
	return &Accountant{records: make(map[int]Record)}
}

// AddInUse records an object written at offset
func (a *Accountant) AddInUse(ref core.IndirectRef, offset int64) {
	if offset < 0 {
		offset = 0
	}
	a.add(Record{Ref: ref, Offset: offset})
}

// AddFree records a free number. ref.Generation is the generation the
// number gets when it is used again.
func (a *Accountant) AddFree(ref core.IndirectRef) {
	a.add(Record{Ref: ref, Offset: -1})
}

// AddUnavailable records a number that exists but must not be reused
func (a *Accountant) AddUnavailable(num int) {
	a.add(Record{Ref: core.IndirectRef{Number: num, Generation: core.MaxGeneration}, Offset: -1})
}

// AddCompressed records an object stored at index in the object stream
// container. Only the stream format can write it.
func (a *Accountant) AddCompressed(ref core.IndirectRef, container, index int) {
	a.add(Record{Ref: ref, Compressed: true, Container: container, Index: index})
}

func (a *Accountant) add(r Record) {
	if r.Ref.Number <= 0 {
		return
	}
	a.records[r.Ref.Number] = r
}

// Len returns the number of records
func (a *Accountant) Len() int {
	return len(a.records)
}

// Record returns the record for num
func (a *Accountant) Record(num int) (Record, bool) {
	r, ok := a.records[num]
	return r, ok
}

// Records returns all records ordered by object number
func (a *Accountant) Records() []Record {
	recs := make([]Record, 0, len(a.records))
	for _, r := range a.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Ref.Number < recs[j].Ref.Number
	})
	return recs
}

// BuildSubsections groups the records into subsections. With incremental
// false, the result is one subsection covering 0 through lastObjectNumber.
// With incremental true, a subsection holding only object 0 comes first and
// the records follow in runs of consecutive numbers; a run starting at
// object 1 extends the first subsection.
func (a *Accountant) BuildSubsections(incremental bool, lastObjectNumber int) *Subsections {
	recs := a.Records()
	if n := len(recs); n > 0 && recs[n-1].Ref.Number > lastObjectNumber {
		lastObjectNumber = recs[n-1].Ref.Number
	}
	s := &Subsections{last: lastObjectNumber}

	if !incremental {
		sec := Subsection{First: 0, Last: lastObjectNumber, records: make(map[int]Record, len(recs))}
		for _, r := range recs {
			if !r.IsUnavailable() {
				sec.records[r.Ref.Number] = r
			}
		}
		s.list = []Subsection{sec}
		return s
	}

	s.list = []Subsection{{First: 0, Last: 0, records: make(map[int]Record)}}
	for _, r := range recs {
		cur := &s.list[len(s.list)-1]
		if r.Ref.Number != cur.Last+1 {
			s.list = append(s.list, Subsection{First: r.Ref.Number, Last: r.Ref.Number - 1, records: make(map[int]Record)})
			cur = &s.list[len(s.list)-1]
		}
		cur.Last = r.Ref.Number
		if !r.IsUnavailable() {
			cur.records[r.Ref.Number] = r
		}
	}
	return s
}

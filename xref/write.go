package xref

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/internal/filters"
)

// Format selects how a cross-reference section is written
type Format int

const (
	// FormatTable writes an xref table followed by a trailer dictionary.
	FormatTable Format = iota
	// FormatStream writes a cross-reference stream object, PDF 1.5 and later.
	FormatStream
)

func (f Format) String() string {
	switch f {
	case FormatTable:
		return "table"
	case FormatStream:
		return "stream"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Options describes the section being written
type Options struct {
	// Incremental selects the layout of an incremental update. Set it only
	// when the previous section's offset is known and valid.
	Incremental bool
	// LastObjectNumber is the highest object number of the document.
	LastObjectNumber int
	// Trailer holds the trailer keys other than /Size. For the stream
	// format they are merged into the stream dictionary.
	Trailer core.Dict
	// MagicOffset is the position of the header in the output. It is
	// subtracted from positions to get offsets.
	MagicOffset int64

	// StreamRef is the reference of the xref stream object.
	StreamRef core.IndirectRef
	// NoCompress writes the xref stream without FlateDecode.
	NoCompress bool

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Write writes the section at the current position of out and returns the
// startxref value, the section's offset relative to the header.
func (a *Accountant) Write(out core.OutputDevice, format Format, opts Options) (int64, error) {
	switch format {
	case FormatTable:
		return a.writeTable(out, opts)
	case FormatStream:
		return a.writeStream(out, opts)
	}
	return 0, errors.Errorf("unknown xref format %v", format)
}

func (a *Accountant) writeTable(out core.OutputDevice, opts Options) (int64, error) {
	startxref := out.Position() - opts.MagicOffset
	sections := a.BuildSubsections(opts.Incremental, opts.LastObjectNumber)
	entries := sections.Entries()
	log := opts.logger()

	var buf bytes.Buffer
	buf.WriteString("xref\n")
	i := 0
	for _, sec := range sections.List() {
		log.Debug("writing xref subsection", "first", sec.First, "count", sec.Count())
		fmt.Fprintf(&buf, "%d %d\n", sec.First, sec.Count())
		for end := i + sec.Count(); i < end; i++ {
			if err := writeTableEntry(&buf, entries[i]); err != nil {
				return 0, err
			}
		}
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "writing xref table")
	}

	trailer := opts.Trailer.Clone()
	trailer["Size"] = core.Int(sections.Size())
	data, err := core.Serialize(trailer)
	if err != nil {
		return 0, errors.Wrap(err, "trailer")
	}
	if _, err := io.WriteString(out, "trailer\n"); err != nil {
		return 0, err
	}
	if _, err := out.Write(data); err != nil {
		return 0, err
	}
	if _, err := io.WriteString(out, "\n"); err != nil {
		return 0, err
	}
	return startxref, writeStartXRef(out, startxref)
}

// writeTableEntry writes one 20-byte line
func writeTableEntry(w io.Writer, e NumberedEntry) error {
	var value int64
	var kind byte
	switch e.Type {
	case InUse:
		value, kind = e.Offset, 'n'
	case Free:
		value, kind = int64(e.NextFree), 'f'
	default:
		return core.NewError(core.CodeInvalidDataType, "object %s is compressed, which an xref table cannot express", e.Ref)
	}
	_, err := fmt.Fprintf(w, "%010d %05d %c \n", value, e.Generation, kind)
	return err
}

func writeStartXRef(out io.Writer, startxref int64) error {
	_, err := io.WriteString(out, "startxref\n"+strconv.FormatInt(startxref, 10)+"\n%%EOF\n")
	return err
}

// writeStream writes the xref stream object. The object's own entry is
// encoded from a placeholder and patched with its offset before output.
func (a *Accountant) writeStream(out core.OutputDevice, opts Options) (int64, error) {
	ref := opts.StreamRef
	if ref.Number <= 0 {
		return 0, core.NewError(core.CodeInvalidObject, "xref stream needs an object number")
	}
	if opts.LastObjectNumber < ref.Number {
		opts.LastObjectNumber = ref.Number
	}

	a.AddInUse(ref, 0)
	sections := a.BuildSubsections(opts.Incremental, opts.LastObjectNumber)
	entries := sections.Entries()

	selfOffset := out.Position() - opts.MagicOffset
	w := fieldWidths(entries, selfOffset)
	records, selfAt := encodeRecords(entries, w, ref.Number)
	if selfAt < 0 {
		return 0, errors.Errorf("xref stream %s missing from its own records", ref)
	}
	putBigEndian(records[selfAt+w[0]:selfAt+w[0]+w[1]], selfOffset)
	a.AddInUse(ref, selfOffset)

	log := opts.logger()
	index := make(core.Array, 0, 2*len(sections.List()))
	for _, sec := range sections.List() {
		log.Debug("writing xref stream subsection", "first", sec.First, "count", sec.Count())
		index = append(index, core.Int(sec.First), core.Int(sec.Count()))
	}

	dict := opts.Trailer.Clone()
	dict["Type"] = core.Name("XRef")
	dict["Size"] = core.Int(sections.Size())
	dict["Index"] = index
	dict["W"] = core.Array{core.Int(w[0]), core.Int(w[1]), core.Int(w[2])}

	data := records
	if opts.NoCompress {
		delete(dict, "Filter")
	} else {
		enc, err := filters.FlateEncode(records, nil)
		if err != nil {
			return 0, errors.Wrap(err, "compressing xref stream")
		}
		data = enc
		dict["Filter"] = core.Name("FlateDecode")
	}

	obj := core.NewIndirectObject(ref, &core.Stream{Dict: dict, Data: data})
	if err := obj.WriteObject(out, nil); err != nil {
		return 0, errors.Wrapf(err, "writing xref stream %s", ref)
	}
	return selfOffset, writeStartXRef(out, selfOffset)
}

// fieldWidths returns /W: one type byte, enough bytes for the largest
// offset or object number, and one or two bytes for generations and
// indexes.
func fieldWidths(entries []NumberedEntry, selfOffset int64) [3]int {
	maxField2, maxField3 := selfOffset, int64(0)
	for _, e := range entries {
		f2, f3 := recordFields(e)
		if f2 > maxField2 {
			maxField2 = f2
		}
		if f3 > maxField3 {
			maxField3 = f3
		}
	}
	return [3]int{1, byteWidth(maxField2), byteWidth(maxField3)}
}

func recordFields(e NumberedEntry) (int64, int64) {
	switch e.Type {
	case InUse:
		return e.Offset, int64(e.Generation)
	case Compressed:
		return int64(e.Container), int64(e.Index)
	}
	return int64(e.NextFree), int64(e.Generation)
}

func byteWidth(v int64) int {
	n := 1
	for v > 0xff {
		v >>= 8
		n++
	}
	return n
}

// encodeRecords packs the entries and returns the position of the record
// for selfNum, or -1.
func encodeRecords(entries []NumberedEntry, w [3]int, selfNum int) ([]byte, int) {
	size := w[0] + w[1] + w[2]
	buf := make([]byte, len(entries)*size)
	selfAt := -1
	for i, e := range entries {
		rec := buf[i*size : (i+1)*size]
		f2, f3 := recordFields(e)
		rec[0] = byte(typeCode(e.Type))
		putBigEndian(rec[w[0]:w[0]+w[1]], f2)
		putBigEndian(rec[w[0]+w[1]:], f3)
		if e.Type == InUse && e.Ref.Number == selfNum {
			selfAt = i * size
		}
	}
	return buf, selfAt
}

func typeCode(t EntryType) int {
	switch t {
	case InUse:
		return 1
	case Compressed:
		return 2
	}
	return 0
}

// putBigEndian writes v into all of b, most significant byte first
func putBigEndian(b []byte, v int64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

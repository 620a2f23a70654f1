// Package xref keeps the cross-reference accounting of a PDF being written
// and serializes it as a classic table or as a cross-reference stream.
//
// A writer registers every object it emits with an [Accountant], together
// with free and unavailable object numbers:
//
//	acc := xref.NewAccountant()
//	acc.AddInUse(core.IndirectRef{Number: 1}, 15)
//	acc.AddFree(core.IndirectRef{Number: 2, Generation: 1})
//	startxref, err := acc.Write(out, xref.FormatTable, xref.Options{
//	    LastObjectNumber: 2,
//	    Trailer:          core.Dict{"Root": core.IndirectRef{Number: 1}},
//	})
//
// # Subsections
//
// A file that was never updated incrementally has a single subsection
// starting at object 0. An incremental update starts with a one-entry
// subsection for object 0 and then packs the registered objects into runs
// of consecutive numbers.
//
// # Free List
//
// Free entries link to the next free object number found after them, in
// subsection order. Numbers inside a subsection that have no record count
// as free and are written with generation 65535. The list ends at 0.
//
// # Formats
//
// [FormatTable] writes the "xref" keyword, 20-byte entry lines, and the
// trailer dictionary. [FormatStream] writes one stream object whose
// dictionary is the trailer; its own entry is encoded with a placeholder
// that is patched in memory once its offset is known, so the output is
// never sought backwards.
package xref

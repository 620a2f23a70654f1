// Package writer serializes an object list into a PDF file.
//
// A [Writer] writes every object of the list once the document is
// assembled, either as a complete file or as an incremental update
// appended to an existing one:
//
//	w := writer.New(objects, trailer)
//	if err := w.Write(f); err != nil {
//	    return err
//	}
//
// Incremental updates only write objects that changed since they were
// loaded, and link the new cross-reference section to the previous one
// with /Prev:
//
//	w := writer.New(objects, trailer, writer.WithIncrementalUpdate(prevXRef))
//	err := w.WriteUpdate(out, original)
//
// A [StreamingWriter] instead writes each stream to the output as soon as
// its data are appended, then drops the object from the list, so large
// documents never sit in memory as a whole.
package writer

package pdfio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/reader"
	"github.com/tsawler/pdfio/writer"
)

// Document is a PDF file's objects and trailer together with the options
// used to save it. Each configuration method returns a new Document that
// shares the objects but not the options, allowing method chaining.
type Document struct {
	// Source
	filename string
	source   []byte
	reader   *reader.Reader

	objects *core.ObjectList
	trailer core.Dict

	// Lifecycle
	ownsReader bool

	// Configuration
	options SaveOptions
}

func fromReader(r *reader.Reader, filename string, source []byte) *Document {
	return &Document{
		filename:   filename,
		source:     source,
		reader:     r,
		objects:    r.Objects(),
		trailer:    r.Trailer(),
		ownsReader: true,
		options:    defaultSaveOptions(),
	}
}

// clone creates a shallow copy of the Document with a copy of options.
func (d *Document) clone() *Document {
	return &Document{
		filename: d.filename,
		source:   d.source,
		reader:   d.reader,
		objects:  d.objects,
		trailer:  d.trailer,
		options:  d.options.clone(),
	}
}

// Close releases the file the document was read from. It is safe to call
// Close multiple times; copies made by configuration methods do not own
// the file.
func (d *Document) Close() error {
	if d.ownsReader && d.reader != nil {
		err := d.reader.Close()
		d.ownsReader = false
		return err
	}
	return nil
}

// Objects returns the document's object list
func (d *Document) Objects() *core.ObjectList {
	return d.objects
}

// Trailer returns the trailer the document was read with
func (d *Document) Trailer() core.Dict {
	return d.trailer
}

// Reader returns the reader of a document opened from a file or bytes,
// or nil for a document created with New.
func (d *Document) Reader() *reader.Reader {
	return d.reader
}

// Version returns the header version the document is saved with.
func (d *Document) Version() core.Version {
	if d.options.version != (core.Version{}) {
		return d.options.version
	}
	if d.reader != nil {
		return d.reader.Version()
	}
	return core.Version17
}

// Catalog returns the document catalog
func (d *Document) Catalog() (core.Dict, error) {
	ref, ok := d.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, core.NewError(core.CodeInvalidDataType, "trailer has no /Root reference")
	}
	obj, ok := d.objects.GetObject(ref)
	if !ok {
		return nil, core.NewError(core.CodeInvalidObject, "catalog %s not found", ref)
	}
	return obj.Dict()
}

// SetInfo sets an entry of the document information dictionary, creating
// the dictionary when the document has none.
func (d *Document) SetInfo(key string, value core.Object) error {
	switch info := d.trailer.Get("Info").(type) {
	case core.IndirectRef:
		if obj, ok := d.objects.GetObject(info); ok {
			return obj.SetKey(key, value)
		}
	case core.Dict:
		info[key] = value
		return nil
	}
	obj, err := d.objects.CreateObject(core.Dict{key: value})
	if err != nil {
		return err
	}
	d.trailer = d.trailer.Clone()
	d.trailer["Info"] = obj.Reference()
	return nil
}

// ============================================================================
// Configuration Methods (return new Document instance)
// ============================================================================

// WithVersion sets the header version. Saving with a cross-reference
// stream raises it to at least 1.5.
func (d *Document) WithVersion(v core.Version) *Document {
	newDoc := d.clone()
	newDoc.options.version = v
	return newDoc
}

// XRefStream saves the cross-reference section as a compressed stream.
//
// Example:
//
//	err := doc.XRefStream().Save(out)
func (d *Document) XRefStream() *Document {
	newDoc := d.clone()
	newDoc.options.xrefStream = true
	return newDoc
}

// NoCompression stores a cross-reference stream unfiltered.
func (d *Document) NoCompression() *Document {
	newDoc := d.clone()
	newDoc.options.noCompress = true
	return newDoc
}

// RewriteXRefTable makes SaveIncremental list every object instead of
// linking the new section to the previous one.
func (d *Document) RewriteXRefTable() *Document {
	newDoc := d.clone()
	newDoc.options.rewriteXRef = true
	return newDoc
}

// Encrypt encrypts strings and streams with session when saving.
//
// Example:
//
//	session, _ := crypt.NewAESV2(key, encryptDict)
//	err := doc.Encrypt(session).Save(out)
func (d *Document) Encrypt(session core.EncryptSession) *Document {
	newDoc := d.clone()
	newDoc.options.session = session
	return newDoc
}

// Producer sets the producer used for the file identifier of documents
// without an information dictionary.
func (d *Document) Producer(producer string) *Document {
	newDoc := d.clone()
	newDoc.options.producer = producer
	return newDoc
}

// Logger sets the logger used while saving.
func (d *Document) Logger(logger *slog.Logger) *Document {
	newDoc := d.clone()
	newDoc.options.logger = logger
	return newDoc
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Save writes the complete document to w.
func (d *Document) Save(w io.Writer) error {
	wr := writer.New(d.objects, d.trailer, d.options.writerOptions(d.Version())...)
	if err := wr.Write(w); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SaveFile writes the complete document to the named file.
func (d *Document) SaveFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := d.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveIncremental writes the original file followed by the changed objects
// to w. Only documents read from a file or from bytes can be updated.
func (d *Document) SaveIncremental(w io.Writer) error {
	if d.reader == nil {
		return fmt.Errorf("document has no original file to update")
	}

	var source io.Reader
	switch {
	case d.source != nil:
		source = bytes.NewReader(d.source)
	case d.filename != "":
		f, err := os.Open(d.filename)
		if err != nil {
			return fmt.Errorf("failed to open original: %w", err)
		}
		defer f.Close()
		source = f
	default:
		return fmt.Errorf("document has no original file to update")
	}

	opts := append(d.options.writerOptions(d.Version()),
		writer.WithIncrementalUpdate(d.reader.StartXRef()),
		writer.WithMagicOffset(d.reader.MagicOffset()))
	wr := writer.New(d.objects, d.trailer, opts...)
	if err := wr.WriteUpdate(w, source); err != nil {
		return fmt.Errorf("failed to save update: %w", err)
	}
	return nil
}

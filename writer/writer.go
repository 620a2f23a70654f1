package writer

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/xref"
)

// binaryMarker is the comment line after the version, with four bytes
// above 127 so transfer programs treat the file as binary.
const binaryMarker = "%\xe2\xe3\xcf\xd3\n"

// DefaultProducer is written into the synthesized info dictionary
const DefaultProducer = "pdfio"

// Writer writes an object list and trailer as a PDF file
type Writer struct {
	objects *core.ObjectList
	trailer core.Dict

	version     core.Version
	xrefStream  bool
	incremental bool
	prevXRef    int64
	rewriteXRef bool
	magicOffset int64
	session     core.EncryptSession
	noFlate     bool
	logger      *slog.Logger
	producer    string
	now         func() time.Time

	encryptObj *core.IndirectObject
	id         fileID
}

// New creates a writer for objects. trailer supplies /Root, /Info and, for
// incremental updates, the /ID of the original file.
func New(objects *core.ObjectList, trailer core.Dict, opts ...Option) *Writer {
	w := &Writer{
		objects:  objects,
		trailer:  trailer,
		version:  core.Version17,
		logger:   slog.Default(),
		producer: DefaultProducer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.trailer == nil {
		w.trailer = make(core.Dict)
	}
	if w.xrefStream && w.version.Less(core.Version15) {
		w.version = core.Version15
	}
	return w
}

// Version returns the version written in the header
func (w *Writer) Version() core.Version {
	return w.version
}

// recovering reports whether unchanged objects of an incremental update are
// listed at their original offsets, because the section cannot link to
// the previous one.
func (w *Writer) recovering() bool {
	return w.incremental && (w.prevXRef <= 0 || w.rewriteXRef)
}

// linked reports whether the section is written as an update of the one at
// prevXRef.
func (w *Writer) linked() bool {
	return w.incremental && !w.recovering()
}

// Write writes the document to dst. For an incremental update dst must be
// an io.Seeker positioned at the end of the original file; WriteUpdate
// copies the original instead.
func (w *Writer) Write(dst io.Writer) error {
	if !w.incremental {
		return w.write(core.NewOutput(dst, w.magicOffset))
	}
	seeker, ok := dst.(io.Seeker)
	if !ok {
		return errors.New("incremental update needs a seekable destination or WriteUpdate")
	}
	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "locating end of original file")
	}
	return w.write(core.NewOutput(dst, pos))
}

// WriteUpdate copies source to dst and appends the document as an
// incremental update. A /Prev offset at or past the end of source is
// treated as unknown.
func (w *Writer) WriteUpdate(dst io.Writer, source io.Reader) error {
	w.incremental = true
	out := core.NewOutput(dst, 0)
	n, err := io.Copy(out, source)
	if err != nil {
		return errors.Wrap(err, "copying original file")
	}
	if w.prevXRef >= n-w.magicOffset {
		w.logger.Warn("previous xref offset beyond original file, recovering offsets",
			"prev", w.prevXRef, "size", n)
		w.prevXRef = 0
	}
	return w.write(out)
}

func (w *Writer) write(out *core.Output) error {
	if err := w.prepare(); err != nil {
		return err
	}
	defer w.rollbackEncrypt()

	if !w.incremental {
		if err := w.writeHeader(out); err != nil {
			return err
		}
	}

	acc := xref.NewAccountant()
	written, err := w.writeObjects(out, acc)
	if err != nil {
		return err
	}
	w.pushFree(acc)

	if err := w.writeXRef(out, acc); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return errors.Wrap(err, "flushing output")
	}

	for _, obj := range written {
		obj.SetDirty(false)
	}
	w.objects.ResetFreeObjectsInvalidated()
	return nil
}

// prepare computes the file identifier and creates the /Encrypt object.
func (w *Writer) prepare() error {
	id, err := w.fileIdentifier()
	if err != nil {
		return err
	}
	w.id = id

	if w.session == nil {
		return nil
	}
	if err := w.session.EnsureInitialized(w.id.first(w.incremental)); err != nil {
		return errors.Wrap(err, "initializing encryption")
	}
	obj, err := w.objects.CreateObject(w.session.Dictionary())
	if err != nil {
		return errors.Wrap(err, "creating encryption dictionary")
	}
	w.encryptObj = obj
	return nil
}

// rollbackEncrypt removes the /Encrypt object again; each save writes a
// new one.
func (w *Writer) rollbackEncrypt() {
	if w.encryptObj == nil {
		return
	}
	w.objects.RemoveObject(w.encryptObj.Reference())
	w.encryptObj = nil
}

func (w *Writer) writeHeader(out io.Writer) error {
	_, err := io.WriteString(out, "%PDF-"+w.version.String()+"\n"+binaryMarker)
	return errors.Wrap(err, "writing header")
}

// writeObjects writes the objects in list order and records their offsets.
// Unchanged objects of an incremental update are skipped, or listed at
// their original offset when the previous section is unusable.
func (w *Writer) writeObjects(out core.OutputDevice, acc *xref.Accountant) ([]*core.IndirectObject, error) {
	var written []*core.IndirectObject
	for _, obj := range w.objects.Objects() {
		ref := obj.Reference()
		if w.incremental && !obj.IsDirty() {
			if !w.recovering() {
				continue
			}
			if offset, ok := obj.SourceOffset(); ok && offset-w.magicOffset >= 0 {
				acc.AddInUse(ref, offset-w.magicOffset)
				continue
			}
		}

		acc.AddInUse(ref, out.Position()-w.magicOffset)
		if err := obj.WriteObject(out, w.sessionFor(obj)); err != nil {
			return nil, errors.Wrapf(err, "writing object %s", ref)
		}
		written = append(written, obj)
	}

	if w.recovering() {
		for _, obj := range w.objects.ReservedObjects() {
			if offset, ok := obj.SourceOffset(); ok && offset-w.magicOffset >= 0 {
				acc.AddInUse(obj.Reference(), offset-w.magicOffset)
			}
		}
	}
	return written, nil
}

// sessionFor returns the session encrypting obj; the /Encrypt dictionary
// itself stays in clear text.
func (w *Writer) sessionFor(obj *core.IndirectObject) core.EncryptSession {
	if w.session == nil || obj == w.encryptObj {
		return nil
	}
	return w.session
}

// pushFree records free and unavailable numbers. A linked update only
// repeats them when the free list changed since the last save; otherwise
// the previous sections still describe it. Reserved numbers stay in use
// in an update and are free in a full save, which does not write them.
func (w *Writer) pushFree(acc *xref.Accountant) {
	if !w.incremental {
		for _, obj := range w.objects.ReservedObjects() {
			ref := obj.Reference()
			ref.Generation++
			if ref.Generation >= core.MaxGeneration {
				acc.AddUnavailable(ref.Number)
			} else {
				acc.AddFree(ref)
			}
		}
	}
	if w.linked() && !w.objects.FreeObjectsInvalidated() {
		return
	}
	for _, ref := range w.objects.FreeObjects() {
		acc.AddFree(ref)
	}
	for _, num := range w.objects.UnavailableObjects() {
		acc.AddUnavailable(num)
	}
}

// trailerDict builds the trailer keys other than /Size
func (w *Writer) trailerDict() core.Dict {
	t := make(core.Dict)
	if root := w.trailer.Get("Root"); root != nil {
		t["Root"] = root
	}
	if info := w.trailer.Get("Info"); info != nil {
		t["Info"] = info
	}
	if w.encryptObj != nil {
		t["Encrypt"] = w.encryptObj.Reference()
	} else if enc := w.trailer.Get("Encrypt"); enc != nil && w.incremental {
		// an update without a session keeps the file's encryption
		t["Encrypt"] = enc
	}
	t["ID"] = w.id.array(w.incremental)
	if w.linked() {
		t["Prev"] = core.Int(w.prevXRef)
	}
	return t
}

func (w *Writer) writeXRef(out core.OutputDevice, acc *xref.Accountant) error {
	opts := xref.Options{
		Incremental:      w.linked(),
		LastObjectNumber: w.objects.LastObjectNumber(),
		Trailer:          w.trailerDict(),
		MagicOffset:      w.magicOffset,
		NoCompress:       w.noFlate,
		Logger:           w.logger,
	}
	format := xref.FormatTable
	if w.xrefStream {
		format = xref.FormatStream
		opts.StreamRef = core.IndirectRef{Number: w.objects.LastObjectNumber() + 1}
	}
	startxref, err := acc.Write(out, format, opts)
	if err != nil {
		return errors.Wrap(err, "writing cross-reference section")
	}
	w.logger.Debug("wrote cross-reference section", "format", format, "startxref", startxref, "entries", acc.Len())
	return nil
}

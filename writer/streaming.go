package writer

import (
	"io"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/xref"
)

// StreamingWriter writes stream objects as their data are appended. It
// observes the object list: BeginAppend on an object writes its header and
// dictionary, the data go straight to the output, and closing the appender
// finishes the object and removes it from the list. /Length is written as
// a reference to a separate object holding the final count.
//
// Objects changed after they were written are not written again. Finish
// writes the remaining objects and the cross-reference section.
type StreamingWriter struct {
	w *Writer

	out     *core.Output
	acc     *xref.Accountant
	current *pendingStream
	done    bool
}

type pendingStream struct {
	obj    *core.IndirectObject
	length *core.IndirectObject
	count  *countingWriter
	enc    io.WriteCloser
}

var _ core.ObjectObserver = (*StreamingWriter)(nil)

// NewStreaming writes the header to dst and attaches the writer to
// objects. Incremental options are ignored; the output is a complete file.
func NewStreaming(dst io.Writer, objects *core.ObjectList, trailer core.Dict, opts ...Option) (*StreamingWriter, error) {
	w := New(objects, trailer, opts...)
	w.incremental = false

	s := &StreamingWriter{
		w:   w,
		out: core.NewOutput(dst, w.magicOffset),
		acc: xref.NewAccountant(),
	}
	if err := w.prepare(); err != nil {
		return nil, err
	}
	if err := w.writeHeader(s.out); err != nil {
		w.rollbackEncrypt()
		return nil, err
	}
	objects.SetObserver(s)
	return s, nil
}

// BeginAppendStream writes obj up to the stream keyword and returns the
// sink for its data.
func (s *StreamingWriter) BeginAppendStream(obj *core.IndirectObject) (io.Writer, error) {
	if s.done {
		return nil, errors.New("streaming writer already finished")
	}
	if s.current != nil {
		return nil, errors.Errorf("stream of object %s still open", s.current.obj.Reference())
	}
	dict, err := obj.Dict()
	if err != nil {
		return nil, err
	}
	length, err := s.w.objects.CreateObject(core.Int(0))
	if err != nil {
		return nil, errors.Wrap(err, "creating length object")
	}

	ref := obj.Reference()
	dict = dict.Clone()
	dict["Length"] = length.Reference()
	session := s.w.sessionFor(obj)

	s.acc.AddInUse(ref, s.out.Position()-s.w.magicOffset)
	if err := core.WriteObjectHeader(s.out, ref); err != nil {
		return nil, err
	}
	enc := core.NewEncoder(s.out)
	enc.SetEncryption(session, ref)
	if err := enc.Encode(dict); err != nil {
		return nil, errors.Wrapf(err, "writing object %s", ref)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(s.out, "\nstream\n"); err != nil {
		return nil, err
	}

	p := &pendingStream{obj: obj, length: length, count: &countingWriter{w: s.out}}
	var sink io.Writer = p.count
	if core.StreamNeedsEncryption(session, dict) {
		p.enc, err = session.EncryptWriter(ref, p.count)
		if err != nil {
			return nil, err
		}
		sink = p.enc
	}
	s.current = p
	return sink, nil
}

// EndAppendStream finishes the object, stores its length and drops it
// from the list.
func (s *StreamingWriter) EndAppendStream(obj *core.IndirectObject) error {
	p := s.current
	if p == nil || p.obj != obj {
		return errors.Errorf("object %s has no open stream", obj.Reference())
	}
	s.current = nil
	if p.enc != nil {
		if err := p.enc.Close(); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(s.out, "\nendstream\nendobj\n"); err != nil {
		return err
	}
	p.length.SetValue(core.Int(p.count.n))
	s.w.objects.Detach(obj.Reference())
	s.w.logger.Debug("streamed object", "ref", obj.Reference(), "length", p.count.n)
	return nil
}

// Finish writes the objects still in the list and the cross-reference
// section, then detaches from the list.
func (s *StreamingWriter) Finish() error {
	if s.done {
		return nil
	}
	if s.current != nil {
		return errors.Errorf("stream of object %s still open", s.current.obj.Reference())
	}
	s.done = true
	s.w.objects.SetObserver(nil)
	defer s.w.rollbackEncrypt()

	if _, err := s.w.writeObjects(s.out, s.acc); err != nil {
		return err
	}
	s.w.pushFree(s.acc)
	if err := s.w.writeXRef(s.out, s.acc); err != nil {
		return err
	}
	return errors.Wrap(s.out.Flush(), "flushing output")
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/midbel/hexdump"
	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/internal/filters"
)

// LoadConfig carries what a lazy object needs to parse itself from its
// source.
type LoadConfig struct {
	// MaxDepth bounds value nesting; 0 means DefaultMaxDepth.
	MaxDepth int
	// Session decrypts strings and stream data; nil for clear text files.
	Session EncryptSession
	// Resolver resolves an indirect /Length.
	Resolver ReferenceResolver
	Logger   *slog.Logger
}

func (c LoadConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

type loadState uint8

const (
	notLoaded loadState = iota
	loaded
)

// tailDumpSize is how many bytes are dumped when endstream is missing.
const tailDumpSize = 32

// IndirectObject is a numbered object. An object read from a file is bound
// to its source offset and parses itself on first access; the stream
// payload has its own, independent load state.
type IndirectObject struct {
	ref       IndirectRef
	value     Object
	data      []byte
	hasStream bool

	dirty   bool
	revised bool

	valueState  loadState
	streamState loadState

	in           InputDevice
	offset       int64
	streamOffset int64
	cfg          LoadConfig

	list      *ObjectList
	appending bool
}

// NewIndirectObject creates a loaded object holding value. A *Stream value
// gives the object a stream payload. Fresh objects are dirty.
func NewIndirectObject(ref IndirectRef, value Object) *IndirectObject {
	o := &IndirectObject{
		ref:         ref,
		valueState:  loaded,
		streamState: loaded,
		dirty:       true,
	}
	o.assign(value)
	return o
}

// NewLazyObject creates an object whose definition starts at offset in in.
func NewLazyObject(ref IndirectRef, in InputDevice, offset int64, cfg LoadConfig) *IndirectObject {
	return &IndirectObject{
		ref:    ref,
		in:     in,
		offset: offset,
		cfg:    cfg,
	}
}

func (o *IndirectObject) assign(value Object) {
	if s, ok := value.(*Stream); ok {
		if s.Dict == nil {
			s.Dict = make(Dict)
		}
		o.value = s.Dict
		o.data = s.Data
		o.hasStream = true
		return
	}
	if value == nil {
		value = Null{}
	}
	o.value = value
	o.data = nil
	o.hasStream = false
}

// Reference returns the object's identity
func (o *IndirectObject) Reference() IndirectRef {
	return o.ref
}

// SourceOffset returns the offset of the object header in its source, and
// false when the object has no source.
func (o *IndirectObject) SourceOffset() (int64, bool) {
	return o.offset, o.in != nil
}

// IsLoaded reports whether the value has been parsed
func (o *IndirectObject) IsLoaded() bool {
	return o.valueState == loaded
}

// IsStreamLoaded reports whether the stream payload has been read
func (o *IndirectObject) IsStreamLoaded() bool {
	return o.streamState == loaded
}

// IsDirty reports whether the object changed since it was loaded or last
// written.
func (o *IndirectObject) IsDirty() bool {
	return o.dirty
}

// SetDirty sets or clears the dirty flag. Clearing it does not clear the
// revised flag.
func (o *IndirectObject) SetDirty(dirty bool) {
	o.dirty = dirty
	if dirty {
		o.revised = true
	}
}

// IsRevised reports whether the object was mutated since it was loaded,
// which pins it in memory.
func (o *IndirectObject) IsRevised() bool {
	return o.revised
}

func (o *IndirectObject) touch() {
	o.dirty = true
	o.revised = true
}

// EnsureLoaded parses the object from its source if needed.
func (o *IndirectObject) EnsureLoaded() error {
	if o.valueState == loaded {
		return nil
	}
	if o.in == nil {
		return NewError(CodeInvalidObject, "object %s has no source", o.ref)
	}
	if sourceClosed(o.in) {
		return errors.Wrapf(ErrSourceClosed, "loading object %s", o.ref)
	}

	lexer := NewLexer(o.in)
	if err := lexer.Reset(o.offset); err != nil {
		return err
	}
	p := NewParserFromLexer(lexer)
	p.SetMaxDepth(o.cfg.MaxDepth)
	p.SetDecryption(o.cfg.Session, o.ref)

	found, err := p.ReadObjectHeader()
	if err != nil {
		return err
	}
	if found != o.ref {
		o.cfg.logger().Warn("object identity mismatch",
			"expected", o.ref.String(), "found", found.String(), "offset", o.offset)
	}

	tok, err := p.nextToken()
	if err != nil {
		return err
	}
	var value Object = Null{}
	if !tok.IsKeyword("endobj") {
		value, err = p.ParseObjectFrom(tok)
		if err != nil {
			return fmt.Errorf("object %s: %w", o.ref, err)
		}
		tok, err = p.nextToken()
		if err != nil {
			return err
		}
	}

	hasStream := false
	switch {
	case tok.IsKeyword("stream"):
		if _, ok := value.(Dict); !ok {
			return NewError(CodeInvalidObject, "object %s: stream keyword after %s", o.ref, value.Type())
		}
		if err := lexer.SkipStreamEOL(); err != nil {
			return err
		}
		o.streamOffset = o.in.Position()
		hasStream = true
	case tok.IsKeyword("endobj"):
	case tok.Type == TokenEOF:
		return NewError(CodeUnexpectedEOF, "object %s: missing endobj", o.ref)
	default:
		return NewError(CodeInvalidObject, "object %s: expected 'endobj', got %q", o.ref, tok.Value)
	}

	o.value = value
	o.hasStream = hasStream
	o.valueState = loaded
	if !hasStream {
		o.streamState = loaded
	}
	return nil
}

// EnsureStreamLoaded reads the stream payload if needed. The data are kept
// filtered and decrypted. An indirect /Length is resolved first, so the
// source is sought to the payload only afterwards.
func (o *IndirectObject) EnsureStreamLoaded() error {
	if err := o.EnsureLoaded(); err != nil {
		return err
	}
	if o.streamState == loaded {
		return nil
	}

	if sourceClosed(o.in) {
		return errors.Wrapf(ErrSourceClosed, "loading stream of object %s", o.ref)
	}

	dict := o.value.(Dict)
	length, err := streamLength(dict, o.cfg.Resolver)
	if err != nil {
		return fmt.Errorf("object %s: %w", o.ref, err)
	}
	if _, err := o.in.Seek(o.streamOffset, io.SeekStart); err != nil {
		return err
	}
	raw, err := readFull(o.in, length)
	if err != nil {
		return fmt.Errorf("object %s stream: %w", o.ref, err)
	}
	o.checkEndStream(o.streamOffset + length)

	data := raw
	if o.needsDecryption(dict) {
		r, err := o.cfg.Session.DecryptReader(o.ref, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("object %s stream: %w", o.ref, err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return fmt.Errorf("object %s stream: %w", o.ref, err)
		}
	}

	o.data = data
	o.streamState = loaded
	return nil
}

func (o *IndirectObject) needsDecryption(dict Dict) bool {
	if t, _ := dict.GetName("Type"); t == "XRef" {
		return false
	}
	return StreamNeedsEncryption(o.cfg.Session, dict)
}

// checkEndStream logs the bytes found where endstream was expected.
func (o *IndirectObject) checkEndStream(pos int64) {
	lexer := NewLexer(o.in)
	if err := lexer.Reset(pos); err != nil {
		return
	}
	tok, err := lexer.NextToken()
	if err == nil && tok.IsKeyword("endstream") {
		return
	}

	log := o.cfg.logger()
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	tail := make([]byte, tailDumpSize)
	if _, err := o.in.Seek(pos, io.SeekStart); err != nil {
		return
	}
	n, _ := io.ReadFull(o.in, tail)
	log.Debug("stream has no endstream keyword",
		"object", o.ref.String(), "offset", pos, "found", "\n"+hexdump.Dump(tail[:n]))
}

// TryUnload drops the parsed value and stream so they are read again on
// next access. It does nothing and returns false unless the object is
// loaded, has not been revised, and its source is still open.
func (o *IndirectObject) TryUnload() bool {
	if o.valueState != loaded || o.revised || o.in == nil || sourceClosed(o.in) {
		return false
	}
	o.value = nil
	o.data = nil
	o.hasStream = false
	o.valueState = notLoaded
	o.streamState = notLoaded
	return true
}

// Value returns the object's value, loading it first. For a stream object
// this is the stream dictionary.
func (o *IndirectObject) Value() (Object, error) {
	if err := o.EnsureLoaded(); err != nil {
		return nil, err
	}
	return o.value, nil
}

// Dict returns the value as a dictionary
func (o *IndirectObject) Dict() (Dict, error) {
	v, err := o.Value()
	if err != nil {
		return nil, err
	}
	d, ok := v.(Dict)
	if !ok {
		return nil, NewError(CodeInvalidDataType, "object %s is %s, not a dictionary", o.ref, v.Type())
	}
	return d, nil
}

// HasStream reports whether the object carries a stream payload
func (o *IndirectObject) HasStream() (bool, error) {
	if err := o.EnsureLoaded(); err != nil {
		return false, err
	}
	return o.hasStream, nil
}

// StreamData returns the filtered payload
func (o *IndirectObject) StreamData() ([]byte, error) {
	if err := o.EnsureStreamLoaded(); err != nil {
		return nil, err
	}
	return o.data, nil
}

// Stream returns the stream dictionary and filtered payload, or nil when
// the object has no stream.
func (o *IndirectObject) Stream() (*Stream, error) {
	if err := o.EnsureStreamLoaded(); err != nil {
		return nil, err
	}
	if !o.hasStream {
		return nil, nil
	}
	return &Stream{Dict: o.value.(Dict), Data: o.data}, nil
}

// SetValue replaces the value. A *Stream also replaces the payload.
func (o *IndirectObject) SetValue(value Object) {
	o.assign(value)
	o.valueState = loaded
	o.streamState = loaded
	o.touch()
}

// SetKey sets a key of the object's dictionary
func (o *IndirectObject) SetKey(key string, value Object) error {
	d, err := o.Dict()
	if err != nil {
		return err
	}
	d[key] = value
	o.touch()
	return nil
}

// SetStreamData replaces the payload with data that are already encoded
// as the dictionary's /Filter describes. /Length is updated.
func (o *IndirectObject) SetStreamData(data []byte) error {
	d, err := o.Dict()
	if err != nil {
		return err
	}
	o.hasStream = true
	o.data = data
	o.streamState = loaded
	d["Length"] = Int(len(data))
	o.touch()
	return nil
}

// EncodeStreamData encodes data with the named filter and stores the
// result as the payload.
func (o *IndirectObject) EncodeStreamData(data []byte, filter string) error {
	d, err := o.Dict()
	if err != nil {
		return err
	}
	if filter == "" {
		d.Delete("Filter")
		d.Delete("DecodeParms")
		return o.SetStreamData(data)
	}
	encoded, err := filters.Encode(filter, data, nil)
	if err != nil {
		return err
	}
	d["Filter"] = Name(filter)
	d.Delete("DecodeParms")
	return o.SetStreamData(encoded)
}

// BeginAppend returns a writer for new stream data. With compress the data
// are Flate encoded. When the owning list has an observer, the data go to
// the sink the observer returns; otherwise they are kept in memory. Close
// completes the stream.
func (o *IndirectObject) BeginAppend(compress bool) (io.WriteCloser, error) {
	d, err := o.Dict()
	if err != nil {
		return nil, err
	}
	if o.appending {
		return nil, NewError(CodeInvalidStream, "object %s: stream append already in progress", o.ref)
	}
	d.Delete("DecodeParms")
	if compress {
		d["Filter"] = Name("FlateDecode")
	} else {
		d.Delete("Filter")
	}
	o.hasStream = true
	o.streamState = loaded
	o.touch()

	a := &streamAppender{obj: o}
	if obs := o.observer(); obs != nil {
		a.sink, err = obs.BeginAppendStream(o)
		if err != nil {
			return nil, err
		}
		a.observed = obs
	} else {
		a.buf = new(bytes.Buffer)
		a.sink = a.buf
	}
	if compress {
		a.flate = filters.NewFlateWriter(a.sink)
	}
	o.appending = true
	return a, nil
}

func (o *IndirectObject) observer() ObjectObserver {
	if o.list == nil {
		return nil
	}
	return o.list.observer
}

type streamAppender struct {
	obj      *IndirectObject
	sink     io.Writer
	buf      *bytes.Buffer
	flate    io.WriteCloser
	observed ObjectObserver
	closed   bool
}

func (a *streamAppender) Write(p []byte) (int, error) {
	if a.closed {
		return 0, NewError(CodeInvalidStream, "write to closed stream of object %s", a.obj.ref)
	}
	if a.flate != nil {
		return a.flate.Write(p)
	}
	return a.sink.Write(p)
}

func (a *streamAppender) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.obj.appending = false
	if a.flate != nil {
		if err := a.flate.Close(); err != nil {
			return err
		}
	}
	if a.observed != nil {
		return a.observed.EndAppendStream(a.obj)
	}
	a.obj.data = a.buf.Bytes()
	a.obj.value.(Dict)["Length"] = Int(len(a.obj.data))
	return nil
}

// WriteObject writes the complete object definition. With a session the value
// strings and the payload are encrypted with the object's key, and /Length
// is written as the encrypted size. The object itself is not modified.
func (o *IndirectObject) WriteObject(out io.Writer, session EncryptSession) error {
	if err := o.EnsureStreamLoaded(); err != nil {
		return err
	}

	value := o.value
	var payload []byte
	if o.hasStream {
		dict := o.value.(Dict).Clone()
		payload = o.data
		if StreamNeedsEncryption(session, dict) {
			enc, err := encryptPayload(session, o.ref, payload)
			if err != nil {
				return fmt.Errorf("object %s: %w", o.ref, err)
			}
			payload = enc
		}
		dict["Length"] = Int(len(payload))
		value = dict
	}

	if err := WriteObjectHeader(out, o.ref); err != nil {
		return err
	}
	enc := NewEncoder(out)
	enc.SetEncryption(session, o.ref)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("object %s: %w", o.ref, err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	if o.hasStream {
		if _, err := io.WriteString(out, "\nstream\n"); err != nil {
			return err
		}
		if _, err := out.Write(payload); err != nil {
			return err
		}
		if _, err := io.WriteString(out, "\nendstream"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(out, "\nendobj\n")
	return err
}

// WriteObjectHeader writes "num gen obj" and a newline.
func WriteObjectHeader(out io.Writer, ref IndirectRef) error {
	_, err := io.WriteString(out, strconv.Itoa(ref.Number)+" "+strconv.Itoa(ref.Generation)+" obj\n")
	return err
}

func encryptPayload(session EncryptSession, ref IndirectRef, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(session.EncryptedLength(len(data)))
	w, err := session.EncryptWriter(ref, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

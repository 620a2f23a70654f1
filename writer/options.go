package writer

import (
	"log/slog"

	"github.com/tsawler/pdfio/core"
)

// Option configures a Writer
type Option func(*Writer)

// WithVersion sets the version written in the header (default 1.7)
func WithVersion(v core.Version) Option {
	return func(w *Writer) {
		w.version = v
	}
}

// WithXRefStream writes the cross-reference section as a stream. The
// version is raised to 1.5 when it is older.
func WithXRefStream() Option {
	return func(w *Writer) {
		w.xrefStream = true
	}
}

// WithIncrementalUpdate writes only changed objects and links the new
// section to the one at prevXRef. A prevXRef of 0 or less means the
// previous section is unknown; unchanged objects are then listed with the
// offsets they were read from.
func WithIncrementalUpdate(prevXRef int64) Option {
	return func(w *Writer) {
		w.incremental = true
		w.prevXRef = prevXRef
	}
}

// WithRewriteXRefTable makes an incremental update write a section that
// lists every object instead of linking to the previous section.
func WithRewriteXRefTable() Option {
	return func(w *Writer) {
		w.rewriteXRef = true
	}
}

// WithMagicOffset sets the position of the header in the output, for files
// embedded in a larger container. Offsets are relative to the header.
func WithMagicOffset(offset int64) Option {
	return func(w *Writer) {
		w.magicOffset = offset
	}
}

// WithEncryption encrypts strings and streams with session. The session's
// dictionary is written as the /Encrypt object.
func WithEncryption(session core.EncryptSession) Option {
	return func(w *Writer) {
		w.session = session
	}
}

// WithNoFlateCompress stores the cross-reference stream unfiltered
func WithNoFlateCompress() Option {
	return func(w *Writer) {
		w.noFlate = true
	}
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithProducer sets the producer used when the document has no /Info
// dictionary to derive the file identifier from.
func WithProducer(producer string) Option {
	return func(w *Writer) {
		w.producer = producer
	}
}

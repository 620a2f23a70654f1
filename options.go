package pdfio

import (
	"log/slog"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/writer"
)

// SaveOptions holds configuration for saving a document.
type SaveOptions struct {
	// Header version; the zero value keeps the version read from the file
	version core.Version

	// Cross-reference section
	xrefStream  bool
	noCompress  bool
	rewriteXRef bool

	session  core.EncryptSession
	producer string
	logger   *slog.Logger
}

// defaultSaveOptions returns the default save options.
func defaultSaveOptions() SaveOptions {
	return SaveOptions{
		xrefStream:  false,
		noCompress:  false,
		rewriteXRef: false,
		producer:    writer.DefaultProducer,
		logger:      nil, // slog.Default()
	}
}

// clone creates a copy of SaveOptions.
func (o SaveOptions) clone() SaveOptions {
	return SaveOptions{
		version:     o.version,
		xrefStream:  o.xrefStream,
		noCompress:  o.noCompress,
		rewriteXRef: o.rewriteXRef,
		session:     o.session,
		producer:    o.producer,
		logger:      o.logger,
	}
}

// writerOptions translates the options for a save of a file with header
// version current.
func (o SaveOptions) writerOptions(current core.Version) []writer.Option {
	version := o.version
	if version == (core.Version{}) {
		version = current
	}
	opts := []writer.Option{
		writer.WithVersion(version),
		writer.WithProducer(o.producer),
	}
	if o.xrefStream {
		opts = append(opts, writer.WithXRefStream())
	}
	if o.noCompress {
		opts = append(opts, writer.WithNoFlateCompress())
	}
	if o.rewriteXRef {
		opts = append(opts, writer.WithRewriteXRefTable())
	}
	if o.session != nil {
		opts = append(opts, writer.WithEncryption(o.session))
	}
	if o.logger != nil {
		opts = append(opts, writer.WithLogger(o.logger))
	}
	return opts
}

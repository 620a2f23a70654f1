// Package pdfio provides a fluent API for reading, modifying and saving PDF
// files at the object level.
//
// Basic usage:
//
//	doc, err := pdfio.Open("document.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer doc.Close()
//
//	catalog, _ := doc.Objects().GetObject(core.IndirectRef{Number: 1})
//	catalog.SetKey("Lang", core.String("en"))
//	err = doc.SaveIncremental(out)
//
// With options:
//
//	err := doc.XRefStream().
//	    Encrypt(session).
//	    Save(out)
//
// For advanced use cases, the lower-level reader, writer and xref packages
// are also available.
package pdfio

import (
	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/reader"
)

// Open memory maps a PDF file and returns a Document for it. The Document
// must be closed when done.
//
// Example:
//
//	doc, err := pdfio.Open("document.pdf")
func Open(filename string, opts ...reader.Option) (*Document, error) {
	r, err := reader.Open(filename, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filename)
	}
	return fromReader(r, filename, nil), nil
}

// FromBytes reads a PDF file held in memory. data must not be modified
// while the Document is in use.
func FromBytes(data []byte, opts ...reader.Option) (*Document, error) {
	r, err := reader.FromBytes(data, opts...)
	if err != nil {
		return nil, err
	}
	return fromReader(r, "", data), nil
}

// New creates an empty document holding a catalog (object 1) and an empty
// page tree (object 2).
//
// Example:
//
//	doc, err := pdfio.New()
//	err = doc.Save(out)
func New() (*Document, error) {
	objects := core.NewObjectList()
	catalog, err := objects.CreateObject(core.Dict{"Type": core.Name("Catalog")})
	if err != nil {
		return nil, err
	}
	pages, err := objects.CreateObject(core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{},
		"Count": core.Int(0),
	})
	if err != nil {
		return nil, err
	}
	if err := catalog.SetKey("Pages", pages.Reference()); err != nil {
		return nil, err
	}
	return &Document{
		objects: objects,
		trailer: core.Dict{"Root": catalog.Reference()},
		options: defaultSaveOptions(),
	}, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	doc := pdfio.Must(pdfio.Open("document.pdf"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// Package reader loads the structure of a PDF file into a
// [core.ObjectList].
//
// # Opening Files
//
// [Open] memory maps a file; [New] reads any io.ReadSeeker and [FromBytes]
// an in-memory copy:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// The header may follow other data. Its position is the magic offset, and
// every offset in the cross-reference sections is relative to it.
//
// # Cross-Reference Sections
//
// Sections are followed from startxref through /Prev, newest first, with
// a bound on the chain length ([WithMaxRecursionDepth]) and a check for
// sections visited twice. Tables, streams and hybrid files with /XRefStm
// are supported.
//
// # Objects
//
// In-use objects are added as lazy objects and parsed on first access.
// Objects stored in object streams are loaded while the file is opened.
// Cross-reference streams, object streams and the /Encrypt dictionary are
// not part of the list; their numbers are freed so a writer can reuse them.
//
// # Encryption
//
// Pass a session with [WithSession] to decrypt strings and streams. The
// /Encrypt dictionary itself is available in clear text from
// [Reader.Encrypt].
package reader

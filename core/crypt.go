package core

import "io"

// EncryptSession is the per-document encryption state. Key derivation and
// cipher selection happen before a session exists; objects and writers
// only use its per-object transforms.
type EncryptSession interface {
	// EnsureInitialized binds the session to the first element of the
	// file identifier. It is called before any object is written.
	EnsureInitialized(fileID []byte) error

	// Dictionary returns the /Encrypt dictionary describing the session.
	Dictionary() Dict

	EncryptString(ref IndirectRef, data []byte) ([]byte, error)
	DecryptString(ref IndirectRef, data []byte) ([]byte, error)

	// EncryptWriter returns a writer encrypting stream data for ref into w.
	// Close flushes any padding.
	EncryptWriter(ref IndirectRef, w io.Writer) (io.WriteCloser, error)

	// DecryptReader wraps the raw stream bytes of ref.
	DecryptReader(ref IndirectRef, r io.Reader) (io.Reader, error)

	// EncryptedLength returns the encrypted size of n plaintext bytes.
	EncryptedLength(n int) int

	// EncryptMetadata reports whether /Type /Metadata streams are encrypted.
	EncryptMetadata() bool
}

// isMetadataExempt reports whether a stream with dictionary d is left in
// clear text by session.
func isMetadataExempt(session EncryptSession, d Dict) bool {
	if session == nil || session.EncryptMetadata() {
		return false
	}
	t, _ := d.GetName("Type")
	return t == "Metadata"
}

// StreamNeedsEncryption reports whether session applies to a stream with
// dictionary d.
func StreamNeedsEncryption(session EncryptSession, d Dict) bool {
	return session != nil && !isMetadataExempt(session, d)
}

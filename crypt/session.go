package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"io"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
)

// Cipher selects the algorithm of a session
type Cipher int

const (
	RC4 Cipher = iota
	AESV2
)

func (c Cipher) String() string {
	if c == AESV2 {
		return "AESV2"
	}
	return "RC4"
}

// ErrInvalidPadding is returned when AES data do not end in valid padding.
var ErrInvalidPadding = errors.New("crypt: invalid padding")

// Session implements core.EncryptSession for one document
type Session struct {
	cipher Cipher
	key    []byte
	dict   core.Dict
	ivs    io.Reader
	fileID []byte
}

var _ core.EncryptSession = (*Session)(nil)

// NewRC4 creates an RC4 session. key is the file key of 5 to 16 bytes and
// dict the /Encrypt dictionary written with the document.
func NewRC4(key []byte, dict core.Dict) (*Session, error) {
	return newSession(RC4, key, dict)
}

// NewAESV2 creates an AES-128 session, as selected by /CFM /AESV2.
func NewAESV2(key []byte, dict core.Dict) (*Session, error) {
	if len(key) != 16 {
		return nil, errors.Errorf("crypt: AESV2 needs a 16 byte key, got %d", len(key))
	}
	return newSession(AESV2, key, dict)
}

func newSession(c Cipher, key []byte, dict core.Dict) (*Session, error) {
	if len(key) < 5 || len(key) > 16 {
		return nil, errors.Errorf("crypt: key length %d outside 5..16", len(key))
	}
	if dict == nil {
		return nil, errors.New("crypt: missing encryption dictionary")
	}
	return &Session{
		cipher: c,
		key:    append([]byte(nil), key...),
		dict:   dict.Clone(),
		ivs:    rand.Reader,
	}, nil
}

// SetIVSource replaces the source of AES initialization vectors.
func (s *Session) SetIVSource(r io.Reader) {
	s.ivs = r
}

// Cipher returns the session's algorithm
func (s *Session) Cipher() Cipher {
	return s.cipher
}

// FileID returns the identifier passed to EnsureInitialized
func (s *Session) FileID() []byte {
	return s.fileID
}

// EnsureInitialized records the first element of the file identifier. Once
// bound, later calls keep the first identifier.
func (s *Session) EnsureInitialized(fileID []byte) error {
	if s.fileID != nil {
		return nil
	}
	s.fileID = append([]byte{}, fileID...)
	return nil
}

// Dictionary returns a copy of the /Encrypt dictionary
func (s *Session) Dictionary() core.Dict {
	return s.dict.Clone()
}

// EncryptMetadata reports the dictionary's /EncryptMetadata flag, true when
// absent.
func (s *Session) EncryptMetadata() bool {
	if b, ok := s.dict.Get("EncryptMetadata").(core.Bool); ok {
		return bool(b)
	}
	return true
}

// objectKey computes the per-object key: MD5 of the file key, the low three
// bytes of the object number and the low two bytes of the generation, plus
// "sAlT" for AES.
func (s *Session) objectKey(ref core.IndirectRef) []byte {
	h := md5.New()
	h.Write(s.key)
	h.Write([]byte{
		byte(ref.Number), byte(ref.Number >> 8), byte(ref.Number >> 16),
		byte(ref.Generation), byte(ref.Generation >> 8),
	})
	if s.cipher == AESV2 {
		h.Write([]byte("sAlT"))
	}
	n := len(s.key) + 5
	if n > 16 {
		n = 16
	}
	return h.Sum(nil)[:n]
}

// EncryptedLength returns the size of n bytes once encrypted. AES adds the
// 16 byte IV and pads to the next full block.
func (s *Session) EncryptedLength(n int) int {
	if s.cipher == AESV2 {
		return aes.BlockSize + (n/aes.BlockSize+1)*aes.BlockSize
	}
	return n
}

// EncryptString encrypts data for the object ref
func (s *Session) EncryptString(ref core.IndirectRef, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(s.EncryptedLength(len(data)))
	w, err := s.EncryptWriter(ref, &buf)
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

// DecryptString decrypts data of the object ref
func (s *Session) DecryptString(ref core.IndirectRef, data []byte) ([]byte, error) {
	if s.cipher == RC4 {
		c, err := rc4.NewCipher(s.objectKey(ref))
		if err != nil {
			return nil, errors.Wrap(err, "crypt")
		}
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out, nil
	}
	return s.decryptAES(ref, data)
}

func (s *Session) decryptAES(ref core.IndirectRef, data []byte) ([]byte, error) {
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, errors.Errorf("crypt: AES data of object %s has length %d", ref, len(data))
	}
	block, err := aes.NewCipher(s.objectKey(ref))
	if err != nil {
		return nil, errors.Wrap(err, "crypt")
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return unpad(out)
}

// unpad removes PKCS#7 padding
func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

// EncryptWriter returns a writer encrypting into w. Close writes the final
// padded block; it never closes w.
func (s *Session) EncryptWriter(ref core.IndirectRef, w io.Writer) (io.WriteCloser, error) {
	if s.cipher == RC4 {
		c, err := rc4.NewCipher(s.objectKey(ref))
		if err != nil {
			return nil, errors.Wrap(err, "crypt")
		}
		return &rc4Writer{c: c, w: w}, nil
	}

	block, err := aes.NewCipher(s.objectKey(ref))
	if err != nil {
		return nil, errors.Wrap(err, "crypt")
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(s.ivs, iv); err != nil {
		return nil, errors.Wrap(err, "crypt: reading IV")
	}
	if _, err := w.Write(iv); err != nil {
		return nil, err
	}
	return &cbcWriter{mode: cipher.NewCBCEncrypter(block, iv), w: w}, nil
}

// DecryptReader returns the clear text of the raw stream data in r. AES data
// are read completely so the padding can be removed.
func (s *Session) DecryptReader(ref core.IndirectRef, r io.Reader) (io.Reader, error) {
	if s.cipher == RC4 {
		c, err := rc4.NewCipher(s.objectKey(ref))
		if err != nil {
			return nil, errors.Wrap(err, "crypt")
		}
		return &cipher.StreamReader{S: c, R: r}, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return bytes.NewReader(nil), nil
	}
	plain, err := s.decryptAES(ref, data)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(plain), nil
}

type rc4Writer struct {
	c   *rc4.Cipher
	w   io.Writer
	buf []byte
}

func (r *rc4Writer) Write(p []byte) (int, error) {
	if cap(r.buf) < len(p) {
		r.buf = make([]byte, len(p))
	}
	out := r.buf[:len(p)]
	r.c.XORKeyStream(out, p)
	return r.w.Write(out)
}

func (r *rc4Writer) Close() error { return nil }

type cbcWriter struct {
	mode    cipher.BlockMode
	w       io.Writer
	pending []byte
	closed  bool
}

func (c *cbcWriter) Write(p []byte) (int, error) {
	if c.closed {
		return 0, errors.New("crypt: write after close")
	}
	c.pending = append(c.pending, p...)
	full := len(c.pending) / aes.BlockSize * aes.BlockSize
	if full == 0 {
		return len(p), nil
	}
	out := make([]byte, full)
	c.mode.CryptBlocks(out, c.pending[:full])
	c.pending = append(c.pending[:0], c.pending[full:]...)
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close pads the remaining bytes to a full block and writes it
func (c *cbcWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	n := aes.BlockSize - len(c.pending)
	last := append(c.pending, bytes.Repeat([]byte{byte(n)}, n)...)
	c.mode.CryptBlocks(last, last)
	_, err := c.w.Write(last)
	return err
}

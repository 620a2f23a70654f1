// Package crypt provides encryption sessions for the standard security
// handler's RC4 and AESV2 ciphers.
//
// A session starts from a file key that has already been derived from the
// passwords. Each object is encrypted with its own key, computed from the
// file key and the object's reference:
//
//	session, err := crypt.NewAESV2(fileKey, encryptDict)
//	w := writer.New(objects, trailer, writer.WithEncryption(session))
package crypt

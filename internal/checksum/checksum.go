// Package checksum computes content digests for HTTP entity tags and search
// index signatures.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Seeker digests r from its current offset to EOF and rewinds to the start.
func Seeker(r io.ReadSeeker) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ETag formats a digest as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Package hasher computes content digests for inventory files.
//
// The digest is SHA-256 over the raw file bytes exactly as stored, so
// identical content always produces an identical hex string regardless
// of path or name. Duplicate detection depends on this determinism.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// Sentinel errors classifying per-file hash failures. Callers record
// these and continue; neither aborts a batch.
var (
	// ErrNotFound means the file vanished between discovery and hashing.
	ErrNotFound = errors.New("file not found")
	// ErrIO means the file exists but could not be read.
	ErrIO = errors.New("i/o error")
)

// HashFile returns the SHA-256 digest of the file's content as a
// 64-character hex string. No resizing, no metadata stripping: the raw
// bytes are hashed as stored.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the SHA-256 digest of b as a hex string. Useful for
// tests and for hashing in-memory derivatives.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

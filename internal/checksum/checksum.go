// Package checksum validates downloaded artifacts against vendor-supplied
// digests. The algorithm set is a closed enumeration: BLAKE2b-512 is the
// preferred wide hash, SHA-512/SHA-256/SHA-1 are accepted for vendors that
// only publish those.
package checksum

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Preference order. Earlier algorithms win when reporting a mismatch.
var algorithms = []string{"b2", "sha512", "sha256", "sha1"}

// ErrNoChecksums is returned when no supported digest is supplied. An
// unverifiable download is never trusted.
var ErrNoChecksums = errors.New("CHK_EMPTY: no supported checksum supplied")

// MismatchError reports that every supplied digest failed to match.
type MismatchError struct {
	Algorithm string
	Expected  string
	Actual    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("CHK_MISMATCH: %s digest mismatch: expected %s, got %s", e.Algorithm, e.Expected, e.Actual)
}

func newHash(algorithm string) hash.Hash {
	switch algorithm {
	case "b2":
		h, err := blake2b.New512(nil)
		if err != nil {
			// Unkeyed BLAKE2b construction cannot fail.
			panic(err)
		}
		return h
	case "sha512":
		return sha512.New()
	case "sha256":
		return sha256.New()
	case "sha1":
		return sha1.New()
	}
	return nil
}

// AnySupported reports whether sums contains at least one digest for a
// supported algorithm. Unknown algorithm names alone cannot verify anything.
func AnySupported(sums map[string]string) bool {
	for _, algorithm := range algorithms {
		if sums[algorithm] != "" {
			return true
		}
	}
	return false
}

// Verify streams r once and checks it against the supplied digests.
// Passing any supported digest is sufficient; if all supplied supported
// digests mismatch, the error reports the most preferred one. With no
// supported digest at all the verification fails closed.
func Verify(r io.Reader, sums map[string]string) error {
	hashes := make(map[string]hash.Hash)
	writers := make([]io.Writer, 0, len(algorithms))
	for _, algorithm := range algorithms {
		if sums[algorithm] == "" {
			continue
		}
		h := newHash(algorithm)
		hashes[algorithm] = h
		writers = append(writers, h)
	}
	if len(hashes) == 0 {
		return ErrNoChecksums
	}
	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return fmt.Errorf("CHK_READ: %w", err)
	}

	var mismatch *MismatchError
	for _, algorithm := range algorithms {
		h, ok := hashes[algorithm]
		if !ok {
			continue
		}
		expected := strings.ToLower(strings.TrimSpace(sums[algorithm]))
		actual := hex.EncodeToString(h.Sum(nil))
		if actual == expected {
			return nil
		}
		if mismatch == nil {
			mismatch = &MismatchError{Algorithm: algorithm, Expected: expected, Actual: actual}
		}
	}
	return mismatch
}

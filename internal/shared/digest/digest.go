// Package digest hashes served documents for ETags and change detection.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names a hash function.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
)

// Hasher produces hex digests with one algorithm.
type Hasher struct {
	algorithm Algorithm
}

// New creates a hasher. Unknown algorithms hash with BLAKE2b.
func New(algorithm Algorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// Default returns the BLAKE2b hasher.
func Default() *Hasher {
	return New(BLAKE2b)
}

// Hash computes the hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := blake2b.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// HashString computes the hex digest of s.
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields hashes fields independent of their order.
func (h *Hasher) HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return h.HashString(strings.Join(sorted, "|"))
}

const etagLen = 16

// ETag returns a strong entity tag for a document body.
func ETag(body string) string {
	return `"` + Default().HashString(body)[:etagLen] + `"`
}

// Matches reports whether an If-None-Match header value names etag.
// Weak validators compare equal to their strong form.
func Matches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

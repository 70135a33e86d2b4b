// Package digest provides the content-fingerprint type shared by the
// content store, fetcher, and sandbox host: a 256-bit BLAKE3 digest
// rendered as lowercase hex, matching the digest convention the original
// implementation uses (see original_source/hash_adapter.rs and fetch.rs).
package digest

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes (256 bits).
const Size = 32

// Digest is a content fingerprint and integrity check.
type Digest [Size]byte

// Parse decodes a lowercase-hex digest string.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != Size*2 {
		return d, fmt.Errorf("DIGEST_PARSE: expected %d hex chars, got %d", Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("DIGEST_PARSE: %w", err)
	}
	copy(d[:], b)
	return d, nil
}

// String renders the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest (never a valid content hash).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Of hashes b and returns its digest.
func Of(b []byte) Digest {
	var d Digest
	sum := blake3.Sum256(b)
	copy(d[:], sum[:])
	return d
}

// Hasher accumulates bytes and produces a Digest, mirroring hash.Hash but
// returning the fixed-width Digest type instead of a []byte.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a ready-to-write Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum finalizes the running hash into a Digest without mutating state
// that would prevent further writes (blake3 supports this natively).
func (h *Hasher) Sum() Digest {
	var d Digest
	sum := h.h.Sum(nil)
	copy(d[:], sum)
	return d
}

// OfReader streams r through a Hasher and returns the resulting Digest.
func OfReader(r io.Reader) (Digest, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return h.Sum(), nil
}

// Verify reports whether b hashes to want.
func Verify(b []byte, want Digest) bool {
	return Of(b) == want
}

// Package fingerprint computes the Blake3 digest GoPro clip grouping uses
// to recognize that a .MP4 and its matching .LRV are the same physical
// recording.
package fingerprint

import (
	"io"

	"lukechampine.com/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Digest is a 32-byte Blake3 fingerprint.
type Digest [Size]byte

// Hasher streams bytes into a Blake3 digest, matching the io.Writer-based
// hash.Hash shape the rest of this tree already uses for sums.
type Hasher struct {
	h *blake3.Hasher
}

// New returns a ready-to-write Hasher.
func New() *Hasher {
	return &Hasher{h: blake3.New(Size, nil)}
}

// Write feeds bytes into the running digest.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the current digest without resetting the hasher.
func (h *Hasher) Sum() Digest {
	var d Digest
	copy(d[:], h.h.Sum(nil))
	return d
}

// Of streams r into a fresh Hasher and returns its digest, for one-shot
// fingerprinting of a single sample's bytes.
func Of(r io.Reader) (Digest, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return h.Sum(), nil
}

// OfBytes fingerprints a byte slice directly.
func OfBytes(b []byte) Digest {
	h := New()
	_, _ = h.Write(b)
	return h.Sum()
}

func (d Digest) String() string {
	const hex = "0123456789abcdef"
	out := make([]byte, Size*2)
	for i, b := range d {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out)
}

// IsZero reports whether d is the unset zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

package addchain

import (
	"encoding/binary"
	"encoding/hex"

	sha256simd "github.com/minio/sha256-simd"
)

// Fingerprint returns the SHA-256 of the chain's canonical encoding: every
// element as a 4-byte big-endian length followed by its big-endian bytes.
// Equal chains have equal fingerprints.
func (c Chain) Fingerprint() [32]byte {
	h := sha256simd.New()
	var size [4]byte
	for _, x := range c {
		b := x.Bytes()
		binary.BigEndian.PutUint32(size[:], uint32(len(b)))
		h.Write(size[:])
		h.Write(b)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// FingerprintHex is the hex encoding of Fingerprint
func (c Chain) FingerprintHex() string {
	fp := c.Fingerprint()
	return hex.EncodeToString(fp[:])
}

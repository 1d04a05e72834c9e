package addchain

import (
	"crypto/sha256"
	"math/big"
	"testing"
)

func TestFingerprint(t *testing.T) {
	testCases := []struct {
		name     string
		chain    Chain
		encoding []byte
	}{
		{
			name:     "empty",
			chain:    Chain{},
			encoding: []byte{},
		},
		{
			name:     "trivial",
			chain:    NewChain(),
			encoding: []byte{0, 0, 0, 1, 1},
		},
		{
			name:  "small",
			chain: Uint64s(1, 2, 3, 6, 256),
			encoding: []byte{
				0, 0, 0, 1, 1,
				0, 0, 0, 1, 2,
				0, 0, 0, 1, 3,
				0, 0, 0, 1, 6,
				0, 0, 0, 2, 1, 0,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			want := sha256.Sum256(tc.encoding)
			if got := tc.chain.Fingerprint(); got != want {
				t.Errorf("fingerprint %x, want %x", got, want)
			}
		})
	}
}

func TestFingerprintDistinguishesChains(t *testing.T) {
	// Same concatenated bytes, different element boundaries
	a := Chain{big.NewInt(1), big.NewInt(0x0102)}
	b := Chain{big.NewInt(1), big.NewInt(0x01), big.NewInt(0x02)}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different chains share a fingerprint")
	}

	c := Uint64s(1, 2, 3, 5)
	if c.Fingerprint() != c.Clone().Fingerprint() {
		t.Error("clone changes the fingerprint")
	}
	if len(c.FingerprintHex()) != 64 {
		t.Errorf("hex fingerprint %q", c.FingerprintHex())
	}
}

package framedecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBitsToUintRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 31).Draw(rt, "n")
		val := rapid.Uint32Range(0, (uint32(1)<<uint(n))-1).Draw(rt, "val")

		bits := make([]byte, n)
		uintToBits(val, bits, n)
		got := bitsToUint(bits, n)

		assert.Equal(t, val, got)
	})
}

func TestGf2RemainderDivisibility(t *testing.T) {
	// A value that is an exact multiple of the generator polynomial (in
	// GF(2) polynomial arithmetic) must reduce to zero.
	for _, poly := range []uint32{bchPolyRA, bchPolyHdr, bchPolyDA, bchPolyLCW1, bchPolyLCW2, bchPolyLCW3} {
		assert.Equal(t, uint32(0), gf2Remainder(poly, 0), "poly %d", poly)
		assert.Equal(t, uint32(0), gf2Remainder(poly, poly), "poly %d", poly)
	}
}

func TestSyndromeTablesCorrectSingleBitErrors(t *testing.T) {
	cases := []struct {
		name  string
		table []syndromeEntry
		poly  uint32
		nbits int
	}{
		{"ra", tables.ra, bchPolyRA, 31},
		{"hdr", tables.hdr, bchPolyHdr, 7},
		{"da", tables.da, bchPolyDA, 31},
		{"lcw1", tables.lcw1, bchPolyLCW1, 7},
		{"lcw2", tables.lcw2, bchPolyLCW2, 14},
		{"lcw3", tables.lcw3, bchPolyLCW3, 26},
	}
	for _, c := range cases {
		for bit := 0; bit < c.nbits; bit++ {
			// A codeword of all zeros is always valid for a linear code;
			// flipping one bit must be corrected back to zero.
			corrupted := uint32(1) << uint(bit)
			corrected, errs, ok := correct(c.table, c.poly, corrupted)
			assert.True(t, ok, "%s: bit %d uncorrectable", c.name, bit)
			assert.Equal(t, 1, errs, "%s: bit %d", c.name, bit)
			assert.Equal(t, uint32(0), corrected, "%s: bit %d", c.name, bit)
		}
	}
}

func TestSyndromeTableZeroSyndromeIsClean(t *testing.T) {
	corrected, errs, ok := correct(tables.ra, bchPolyRA, 0)
	assert.True(t, ok)
	assert.Equal(t, 0, errs)
	assert.Equal(t, uint32(0), corrected)
}

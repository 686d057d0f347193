package framedecode

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

// distinctMarkers builds an n-byte slice where each element is a unique
// value, so a permutation can be checked for bijectivity regardless of
// each bit's actual value.
func distinctMarkers(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestDeInterleaveIsAPermutation(t *testing.T) {
	in := distinctMarkers(64)
	out1, out2 := deInterleave(in)

	combined := append(append([]byte{}, out1...), out2...)
	assert.Len(t, combined, 64)

	sorted := append([]byte{}, combined...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, v := range sorted {
		assert.Equal(t, byte(i), v, "deInterleave must be a bijection on input positions")
	}
}

func TestDeInterleave3IsAPermutation(t *testing.T) {
	in := distinctMarkers(96)
	out1, out2, out3 := deInterleave3(in)

	combined := append(append(append([]byte{}, out1...), out2...), out3...)
	assert.Len(t, combined, 96)

	sorted := append([]byte{}, combined...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, v := range sorted {
		assert.Equal(t, byte(i), v, "deInterleave3 must be a bijection on input positions")
	}
}

func TestDeInterleaveNMatchesDeInterleaveAt32Symbols(t *testing.T) {
	in := distinctMarkers(64)
	out1, out2 := deInterleave(in)
	n1, n2 := deInterleaveN(in, 32)

	assert.Equal(t, out1, n1)
	assert.Equal(t, out2, n2)
}

func TestDeInterleaveNHandlesOddSymbolCount(t *testing.T) {
	// An odd symbol count (the IDA descrambler's final partial block)
	// must not panic and must only return bits it actually wrote.
	in := distinctMarkers(2 * 5)
	out1, out2 := deInterleaveN(in, 5)

	assert.LessOrEqual(t, len(out1), 5)
	assert.LessOrEqual(t, len(out2), 5)
	assert.Equal(t, 8, len(out1)+len(out2))
}

func TestDeInterleaveLLRMatchesBitPermutation(t *testing.T) {
	in := make([]float32, 64)
	for i := range in {
		in[i] = float32(i)
	}
	out1, out2 := deInterleaveLLR(in)

	bitIn := distinctMarkers(64)
	bitOut1, bitOut2 := deInterleave(bitIn)

	for i := range out1 {
		assert.Equal(t, float32(bitOut1[i]), out1[i])
	}
	for i := range out2 {
		assert.Equal(t, float32(bitOut2[i]), out2[i])
	}
}

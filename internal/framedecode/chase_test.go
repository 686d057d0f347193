package framedecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChaseBCH31ReducesToStandardBCHWhenCorrectable(t *testing.T) {
	// An all-zero 31-bit block is a valid codeword (syndrome zero); Chase
	// must return it unchanged with zero errors, exactly as the plain
	// syndrome-table path would, regardless of whether LLR is supplied.
	block := make([]byte, 31)

	data, check, errs := chaseBCH31(tables.ra, bchPolyRA, bchRAData, block, nil)
	assert.Equal(t, 0, errs)
	for _, b := range data {
		assert.Equal(t, byte(0), b)
	}
	for _, b := range check {
		assert.Equal(t, byte(0), b)
	}
}

func TestChaseBCH31FallsBackWithoutLLR(t *testing.T) {
	// A block with too many errors for the plain syndrome table (three
	// bit errors against the all-zero codeword, beyond its t=2 capability),
	// and no LLR supplied, must report uncorrectable rather than panicking.
	block := make([]byte, 31)
	for i := 0; i < 3; i++ {
		block[i] = 1
	}
	_, _, errs := chaseBCH31(tables.ra, bchPolyRA, bchRAData, block, nil)
	assert.Equal(t, -1, errs)
}

func TestChaseBCH31RescuesWithLLR(t *testing.T) {
	// Corrupt a clean (all-zero) codeword with a burst of errors beyond
	// the plain table's t=2 capability, but confine them to the 5
	// least-reliable positions (as flagged by llr); Chase should recover
	// the original all-zero codeword.
	block := make([]byte, 31)
	llr := make([]float32, 31)
	for i := range llr {
		llr[i] = 10.0 // everything reliable by default
	}
	flipPositions := []int{2, 5, 11, 17, 23}
	for _, p := range flipPositions {
		block[p] = 1
		llr[p] = 0.1 // mark as least reliable so Chase considers flipping it
	}

	data, check, errs := chaseBCH31(tables.ra, bchPolyRA, bchRAData, block, llr)
	assert.GreaterOrEqual(t, errs, 0)
	for _, b := range data {
		assert.Equal(t, byte(0), b)
	}
	for _, b := range check {
		assert.Equal(t, byte(0), b)
	}
}

func TestCheckParity32EvenParity(t *testing.T) {
	block := make([]byte, 32)
	data := make([]byte, bchRAData)
	check := make([]byte, 31-bchRAData)

	assert.True(t, checkParity32(block, data, check), "all-zero block must have even parity")

	block[31] = 1
	assert.False(t, checkParity32(block, data, check))

	data[0] = 1
	assert.True(t, checkParity32(block, data, check))
}

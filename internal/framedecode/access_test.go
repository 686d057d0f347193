package framedecode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cemaxecuter/iridium-sniffer/internal/iridium"
)

func TestMatchAccessCodeExactOnly(t *testing.T) {
	dl := append([]byte{}, iridium.AccessCodeDL...)
	dir, ok := matchAccessCode(dl)
	assert.True(t, ok)
	assert.Equal(t, iridium.DirectionDownlink, dir)

	ul := append([]byte{}, iridium.AccessCodeUL...)
	dir, ok = matchAccessCode(ul)
	assert.True(t, ok)
	assert.Equal(t, iridium.DirectionUplink, dir)

	// A single flipped bit must NOT match; the access code check is exact.
	corrupted := append([]byte{}, iridium.AccessCodeDL...)
	corrupted[0] ^= 1
	_, ok = matchAccessCode(corrupted)
	assert.False(t, ok)
}

func TestMatchAccessCodeShortInput(t *testing.T) {
	_, ok := matchAccessCode(make([]byte, 10))
	assert.False(t, ok)
}

func TestExtractSigned12(t *testing.T) {
	// Positive: sign bit 0, magnitude bits form 1000.
	bits := make([]byte, 12)
	val := 1000
	for i := 11; i >= 1; i-- {
		bits[i] = byte(val & 1)
		val >>= 1
	}
	assert.Equal(t, 1000, extractSigned12(bits))

	// Negative: sign bit 1, same magnitude bits -> mag - 2048.
	bits[0] = 1
	assert.Equal(t, 1000-2048, extractSigned12(bits))
}

func TestExtractUint(t *testing.T) {
	bits := []byte{1, 0, 1, 1}
	assert.Equal(t, 0b1011, extractUint(bits, 4))
}

package framedecode

import "github.com/cemaxecuter/iridium-sniffer/internal/iridium"

// matchAccessCode reports whether bits[:24] exactly matches one of the two
// fixed access-code patterns, and which (spec §4.D access-code check: an
// exact match, no error tolerance).
func matchAccessCode(bits []byte) (iridium.Direction, bool) {
	if len(bits) < 24 {
		return iridium.DirectionUndefined, false
	}
	if bytesEqual(bits[:24], iridium.AccessCodeDL) {
		return iridium.DirectionDownlink, true
	}
	if bytesEqual(bits[:24], iridium.AccessCodeUL) {
		return iridium.DirectionUplink, true
	}
	return iridium.DirectionUndefined, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func extractUint(bits []byte, n int) int {
	v := 0
	for i := 0; i < n; i++ {
		v = (v << 1) | int(bits[i])
	}
	return v
}

// extractSigned12 decodes a 12-bit two's-complement field: bit 0 is the
// sign bit (weight -2048), bits 1..11 the remaining value bits (spec §4.D
// IRA fields).
func extractSigned12(bits []byte) int {
	sign := bits[0]
	mag := 0
	for i := 1; i < 12; i++ {
		mag = (mag << 1) | int(bits[i])
	}
	if sign != 0 {
		return mag - (1 << 11)
	}
	return mag
}

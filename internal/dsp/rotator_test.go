package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// phaseIncrForFreq builds the per-sample phase increment for a relative
// frequency (cycles/sample), matching how the downmix stage derives it
// (a unit phasor at -2*pi*f per sample).
func phaseIncrForFreq(cyclesPerSample float64) complex64 {
	return complex64(complex(math.Cos(2*math.Pi*cyclesPerSample), -math.Sin(2*math.Pi*cyclesPerSample)))
}

func TestRotatorRoundTrip(t *testing.T) {
	in := make([]complex64, 256)
	for i := range in {
		in[i] = complex(float32(math.Cos(float64(i)*0.01)), float32(math.Sin(float64(i)*0.01)))
	}

	fwd := NewRotator(phaseIncrForFreq(0.013))
	shifted := make([]complex64, len(in))
	fwd.RotateInto(shifted, in)

	rev := NewRotator(phaseIncrForFreq(-0.013))
	restored := make([]complex64, len(in))
	rev.RotateInto(restored, shifted)

	for i := range in {
		assert.InDelta(t, float64(real(in[i])), float64(real(restored[i])), 1e-3)
		assert.InDelta(t, float64(imag(in[i])), float64(imag(restored[i])), 1e-3)
	}
}

func TestRotatorPreservesMagnitude(t *testing.T) {
	in := make([]complex64, 64)
	for i := range in {
		in[i] = complex(float32(1.0), float32(0.0))
	}
	r := NewRotator(phaseIncrForFreq(0.07))
	out := make([]complex64, len(in))
	r.RotateInto(out, in)

	for _, s := range out {
		assert.InDelta(t, 1.0, float64(cabs(s)), 1e-3)
	}
}

package dsp

import "math"

// Rotator applies a complex frequency shift sample-by-sample, re-normalizing
// its phase accumulator periodically to prevent drift (rotator.h). Used by
// the downmix stage for its coarse and fine CFO corrections and its phase
// alignment (spec §4.B steps 1, 5 and 8).
type Rotator struct {
	phase     complex64
	phaseIncr complex64
}

// NewRotator creates a rotator with the given per-sample phase increment
// (exp(-j*2*pi*f_rel), computed by the caller).
func NewRotator(phaseIncr complex64) *Rotator {
	return &Rotator{phase: 1, phaseIncr: phaseIncr}
}

// SetPhase sets the rotator's current phase directly.
func (r *Rotator) SetPhase(phase complex64) { r.phase = phase }

// SetPhaseIncr sets the rotator's per-sample phase increment.
func (r *Rotator) SetPhaseIncr(incr complex64) { r.phaseIncr = incr }

// RotateInto rotates n samples from in into out: out[i] = in[i] * phase,
// advancing phase by phaseIncr each step, then renormalizes phase to unit
// magnitude (rotator_rotate_n).
func (r *Rotator) RotateInto(out, in []complex64) {
	n := len(in)
	for i := 0; i < n; i++ {
		out[i] = in[i] * r.phase
		r.phase *= r.phaseIncr
	}
	mag := cabs(r.phase)
	if mag > 0 {
		r.phase /= complex(mag, 0)
	}
}

func cabs(c complex64) float32 {
	re, im := real(c), imag(c)
	return float32(math.Sqrt(float64(re*re + im*im)))
}

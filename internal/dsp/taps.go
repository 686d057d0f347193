package dsp

import "math"

func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// sinc returns the normalized sinc function, sin(pi*x)/(pi*x).
func sinc(x float32) float32 {
	if absf32(x) < 1e-10 {
		return 1
	}
	pix := float32(math.Pi) * x
	return float32(math.Sin(float64(pix))) / pix
}

// RRCTaps generates root-raised-cosine filter taps (fir_filter.c's
// rrc_taps), forced to an odd length, energy-normalized to the given gain.
// Used for the downmix stage's matched filter (spec §4.B step 6, 51 taps,
// alpha 0.4); the sync-word correlation templates use RCTaps instead.
func RRCTaps(gain, sampleRate, symbolRate, alpha float32, ntaps int) []float32 {
	ntaps |= 1
	taps := make([]float32, ntaps)
	sps := sampleRate / symbolRate
	center := ntaps / 2

	var energy float32
	for i := 0; i < ntaps; i++ {
		t := float32(i-center) / sps
		switch {
		case absf32(t) < 1e-10:
			taps[i] = 1 - alpha + 4*alpha/float32(math.Pi)
		case absf32(absf32(t)-1/(4*alpha)) < 1e-6:
			q := float32(math.Pi) / (4 * alpha)
			taps[i] = alpha / float32(math.Sqrt2) *
				((1+2/float32(math.Pi))*float32(math.Sin(float64(q))) +
					(1-2/float32(math.Pi))*float32(math.Cos(float64(q))))
		default:
			piT := float32(math.Pi) * t
			num := float32(math.Sin(float64(piT*(1-alpha)))) + 4*alpha*t*float32(math.Cos(float64(piT*(1+alpha))))
			den := piT * (1 - (4*alpha*t)*(4*alpha*t))
			taps[i] = num / den
		}
		energy += taps[i] * taps[i]
	}
	scale := gain / float32(math.Sqrt(float64(energy)))
	for i := range taps {
		taps[i] *= scale
	}
	return taps
}

// RCTaps generates raised-cosine filter taps (fir_filter.c's rc_taps), used
// to shape the sync-correlation templates after zero-insertion upsampling.
func RCTaps(sampleRate, symbolRate, alpha float32, ntaps int) []float32 {
	ntaps |= 1
	taps := make([]float32, ntaps)
	sps := sampleRate / symbolRate
	center := ntaps / 2

	for i := 0; i < ntaps; i++ {
		t := float32(i-center) / sps
		switch {
		case absf32(t) < 1e-10:
			taps[i] = 1
		case alpha > 0 && absf32(absf32(t)-1/(2*alpha)) < 1e-6:
			taps[i] = float32(math.Pi) / 4 * sinc(1/(2*alpha))
		default:
			cosTerm := float32(math.Cos(float64(float32(math.Pi) * alpha * t)))
			den := 1 - (2*alpha*t)*(2*alpha*t)
			taps[i] = sinc(t) * cosTerm / den
		}
	}
	return taps
}

// LPFTaps generates windowed-sinc low-pass filter taps with a
// Blackman-Harris window (fir_filter.c's lpf_taps), used for the
// anti-alias decimation filter and the noise-limit filter (spec §4.B
// steps 2-3).
func LPFTaps(gain, sampleRate, cutoffFreq, transitionWidth float32) []float32 {
	ntaps := int(4.0 / (transitionWidth / sampleRate))
	ntaps |= 1
	taps := make([]float32, ntaps)
	center := ntaps / 2
	omegaC := 2 * float32(math.Pi) * cutoffFreq / sampleRate

	window := make([]float32, ntaps)
	BlackmanHarrisWindow(window)

	var energy float32
	for i := 0; i < ntaps; i++ {
		n := float32(i - center)
		var h float32
		if absf32(n) < 1e-10 {
			h = omegaC / float32(math.Pi)
		} else {
			h = float32(math.Sin(float64(omegaC*n))) / (float32(math.Pi) * n)
		}
		taps[i] = h * window[i]
		energy += taps[i]
	}
	if absf32(energy) > 0 {
		scale := gain / energy
		for i := range taps {
			taps[i] *= scale
		}
	}
	return taps
}

// BoxTaps generates a simple averaging filter of the given length
// (fir_filter.c's box_taps), used for smoothing magnitude-squared in burst
// start detection (spec §4.B step 4).
func BoxTaps(length int) []float32 {
	taps := make([]float32, length)
	val := float32(1) / float32(length)
	for i := range taps {
		taps[i] = val
	}
	return taps
}

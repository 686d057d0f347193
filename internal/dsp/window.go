package dsp

import "math"

// BlackmanENBW is the equivalent noise bandwidth of a Blackman window in
// bins (spec §4.A threshold linearization, GLOSSARY ENBW).
const BlackmanENBW = 1.72

// BlackmanWindow fills w (length n) with a Blackman window, matching
// window_func.c's blackman_window exactly (a three-term cosine window, not
// gonum's default coefficients, since the original's constants are the
// bit-exact contract for §4.A's amplitude scaling).
func BlackmanWindow(w []float32) {
	n := len(w)
	if n == 1 {
		w[0] = 1
		return
	}
	for i := 0; i < n; i++ {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		w[i] = float32(0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x))
	}
}

// BlackmanHarrisWindow fills w (length n) with a 4-term Blackman-Harris
// window, used by the low-pass filter tap generator (fir_filter.c's
// lpf_taps).
func BlackmanHarrisWindow(w []float32) {
	n := len(w)
	if n == 1 {
		w[0] = 1
		return
	}
	for i := 0; i < n; i++ {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		w[i] = float32(0.35875 -
			0.48829*math.Cos(x) +
			0.14128*math.Cos(2*x) -
			0.01168*math.Cos(3*x))
	}
}

package dsp

// CubicInterp performs Catmull-Rom cubic interpolation between y1 and y2
// using the neighboring samples y0 and y3, at fractional offset mu in
// [0,1). Used by the Gardner timing recovery loop for fractional-index
// sampling (spec §4.C step 1, qpsk_demod.c's cubic_interp).
func CubicInterp(y0, y1, y2, y3 complex64, mu float32) complex64 {
	mu2 := mu * mu
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return a0*complex(mu*mu2, 0) + a1*complex(mu2, 0) + a2*complex(mu, 0) + a3
}

// QuadraticPeakInterp returns the sub-bin offset of a parabola's vertex
// given three equally-spaced samples (alpha, beta, gamma) around a detected
// peak at beta, via delta = 0.5*(alpha-gamma)/(alpha-2*beta+gamma). Used by
// both fine-CFO estimation (§4.B step 5) and sync-correlation peak
// interpolation (§4.B step 7).
func QuadraticPeakInterp(alpha, beta, gamma float32) float32 {
	denom := alpha - 2*beta + gamma
	if denom == 0 {
		return 0
	}
	return 0.5 * (alpha - gamma) / denom
}

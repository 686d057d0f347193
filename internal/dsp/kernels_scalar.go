package dsp

// firComplexScalar computes out[i] = sum_k taps[k] * in[i+k] (real taps,
// complex input), matching fir_filter.c's fir_filter_ccf. in must have at
// least len(out)+len(taps)-1 samples.
func firComplexScalar(taps []float32, in, out []complex64) {
	ntaps := len(taps)
	for i := range out {
		var acc complex64
		for k := 0; k < ntaps; k++ {
			acc += complex(taps[k], 0) * in[i+k]
		}
		out[i] = acc
	}
}

// firComplexDecimateScalar computes out[i] = sum_k taps[k] * in[i*dec+k]
// (fir_filter_ccf_dec).
func firComplexDecimateScalar(taps []float32, in []complex64, out []complex64, decimation int) {
	ntaps := len(taps)
	for i := range out {
		var acc complex64
		base := i * decimation
		for k := 0; k < ntaps; k++ {
			acc += complex(taps[k], 0) * in[base+k]
		}
		out[i] = acc
	}
}

// firRealScalar computes out[i] = sum_k taps[k] * in[i+k] over real signals
// (fir_filter_fff).
func firRealScalar(taps []float32, in, out []float32) {
	ntaps := len(taps)
	for i := range out {
		var acc float32
		for k := 0; k < ntaps; k++ {
			acc += taps[k] * in[i+k]
		}
		out[i] = acc
	}
}

// windowMultiplyScalar computes out[i] = samples[i] * window[i].
func windowMultiplyScalar(samples []complex64, window []float32, out []complex64) {
	for i := range samples {
		out[i] = samples[i] * complex(window[i], 0)
	}
}

// fftShiftMagSquaredScalar performs an fftshift (DC to center) combined
// with magnitude-squared, matching the first processing step of spec
// §4.A: "forward FFT, produce DC-centered magnitude-squared M[bin]".
func fftShiftMagSquaredScalar(fftOut []complex64, magShifted []float32) {
	n := len(fftOut)
	half := n / 2
	for i := 0; i < n; i++ {
		src := fftOut[i]
		mag := real(src)*real(src) + imag(src)*imag(src)
		dst := (i + half) % n
		magShifted[dst] = mag
	}
}

// baselineUpdateScalar computes sum[i] = sum[i] - old[i] + new[i] in place.
func baselineUpdateScalar(sum []float32, old, new []float32) {
	for i := range sum {
		sum[i] = sum[i] - old[i] + new[i]
	}
}

// relativeMagnitudeScalar computes out[i] = mag[i]/base[i], or 0 when
// base[i] is zero (avoids a NaN/Inf propagating into an unprimed baseline).
func relativeMagnitudeScalar(mag, baseline []float32, out []float32) {
	for i := range mag {
		if baseline[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = mag[i] / baseline[i]
	}
}

package dsp

import "golang.org/x/sys/cpu"

// Kernels is a dispatch table of DSP primitives, selected once at package
// init between a portable implementation and an AVX2-gated one, mirroring
// simd_kernels.h's "detect once, set function pointers" contract (spec
// §4.x). Go offers no portable SIMD intrinsics without assembly, so both
// table entries below are pure Go today; the dispatch *shape* is kept so a
// future vectorized kernel (via golang.org/x/sys/cpu feature gates, exactly
// as this table already gates on) has a slot to land in without touching
// call sites.
type Kernels struct {
	FIRComplex          func(taps []float32, in, out []complex64)
	FIRComplexDecimate  func(taps []float32, in []complex64, out []complex64, decimation int)
	FIRReal             func(taps []float32, in, out []float32)
	WindowMultiply      func(samples []complex64, window []float32, out []complex64)
	FFTShiftMagSquared  func(fftOut []complex64, magShifted []float32)
	BaselineUpdate      func(sum []float32, old, new []float32)
	RelativeMagnitude   func(mag, baseline []float32, out []float32)
	HasVectorizedKernel bool
}

// Default is the process-wide kernel table, selected at init.
var Default = selectKernels()

func selectKernels() Kernels {
	if cpu.X86.HasAVX2 && cpu.X86.HasFMA {
		return avx2Kernels()
	}
	return scalarKernels()
}

func scalarKernels() Kernels {
	return Kernels{
		FIRComplex:         firComplexScalar,
		FIRComplexDecimate: firComplexDecimateScalar,
		FIRReal:            firRealScalar,
		WindowMultiply:     windowMultiplyScalar,
		FFTShiftMagSquared: fftShiftMagSquaredScalar,
		BaselineUpdate:     baselineUpdateScalar,
		RelativeMagnitude:  relativeMagnitudeScalar,
	}
}

// avx2Kernels currently returns the same scalar implementations with the
// flag set; no assembly kernel exists (config's UseSIMD is not consulted;
// the table is chosen from CPU features alone). Swapping in a real
// vectorized implementation only requires changing this function.
func avx2Kernels() Kernels {
	k := scalarKernels()
	k.HasVectorizedKernel = true
	return k
}

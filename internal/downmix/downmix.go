// Package downmix implements stage B: per-burst coarse/fine carrier offset
// correction, decimation, matched filtering, sync-word correlation, and
// phase alignment (spec §4.B).
package downmix

import (
	"math"

	"github.com/google/uuid"

	"github.com/cemaxecuter/iridium-sniffer/internal/detector"
	"github.com/cemaxecuter/iridium-sniffer/internal/dsp"
	"github.com/cemaxecuter/iridium-sniffer/internal/fftplan"
	"github.com/cemaxecuter/iridium-sniffer/internal/iridium"
)

// Tunable constants carried verbatim from the original downmix pipeline
// (burst_downmix.c).
const (
	cfoFFTOversample = 16
	rrcNTaps         = 51
	rcNTaps          = 51
	rrcAlpha         = float32(0.4)
	startThreshold   = float32(0.28)
	preStartUs       = 100.0
)

// Frame is the B->C frame record (spec §3 Frame record).
type Frame struct {
	ID                 uuid.UUID
	TimestampNanos     int64
	CenterFrequencyHz  float64
	SampleRateHz       float64
	SamplesPerSymbol   float32
	Direction          iridium.Direction
	SNRdB              float64
	NoiseDBHz          float64
	UWStartCorrection  float32
	IQ                 []complex64
}

// Downmixer holds the per-process filters, FFT plans, and pre-built
// sync-word correlation templates shared by every downmix worker.
type Downmixer struct {
	outputSampleRate float64
	sps              float32
	searchDepth      int
	preStartSamples  int

	inputFIR []float32
	noiseFIR []float32
	startFIR []float32
	rrcFIR   []float32
	rcFIR    []float32

	cfoFFTSize  int
	cfoFFTTotal int
	cfoWindow   []float32
	cfoPlan     *fftplan.Plan

	corrFFTSize  int
	syncSearchLen int
	corrFwdPlan  *fftplan.Plan
	corrInvPlan  *fftplan.Plan

	dlSyncFFT []complex64
	ulSyncFFT []complex64
	dlSyncLen int
	ulSyncLen int
}

// New builds a Downmixer for the given output sample rate.
func New(outputSampleRate float64, searchDepth int) (*Downmixer, error) {
	sps := float32(outputSampleRate / iridium.SymbolRateHz)
	dm := &Downmixer{
		outputSampleRate: outputSampleRate,
		sps:              sps,
		searchDepth:      searchDepth,
		preStartSamples:  int(preStartUs * 1e-6 * outputSampleRate),
	}
	if dm.searchDepth <= 0 {
		dm.searchDepth = int(outputSampleRate)
	}

	// Anti-alias LPF designed against a generic 10 MHz input rate, matching
	// the original's fixed-design-rate simplification (burst_downmix.c's
	// burst_downmix_create comment: "We design for a generic 10 MHz input").
	cutoff := float32(outputSampleRate) * 0.4
	transition := float32(outputSampleRate) * 0.2
	dm.inputFIR = dsp.LPFTaps(1.0, 10_000_000.0, cutoff, transition)

	burstWidth := float32(40_000.0)
	dm.noiseFIR = dsp.LPFTaps(1.0, float32(outputSampleRate), burstWidth/2, burstWidth)

	boxLen := int(sps * 2)
	if boxLen < 3 {
		boxLen = 3
	}
	dm.startFIR = dsp.BoxTaps(boxLen)

	dm.rrcFIR = dsp.RRCTaps(1.0, float32(outputSampleRate), iridium.SymbolRateHz, rrcAlpha, rrcNTaps)
	dm.rcFIR = dsp.RCTaps(float32(outputSampleRate), iridium.SymbolRateHz, rrcAlpha, rcNTaps)

	raw := int(sps * 26)
	dm.cfoFFTSize = 1
	for dm.cfoFFTSize*2 <= raw {
		dm.cfoFFTSize *= 2
	}
	dm.cfoFFTTotal = dm.cfoFFTSize * cfoFFTOversample
	dm.cfoWindow = make([]float32, dm.cfoFFTSize)
	dsp.BlackmanWindow(dm.cfoWindow)

	syncSearchSymbols := iridium.PreambleLengthLong + iridium.UWLength + 8
	dm.syncSearchLen = int(float32(syncSearchSymbols) * sps)
	ulSyncSymbols := iridium.PreambleLengthUL + iridium.UWLength
	ulSyncSamples := int(float32(ulSyncSymbols) * sps)
	dm.corrFFTSize = nextPow2(dm.syncSearchLen + ulSyncSamples)

	var err error
	dm.cfoPlan, err = fftplan.New(dm.cfoFFTTotal)
	if err != nil {
		return nil, err
	}
	dm.corrFwdPlan, err = fftplan.New(dm.corrFFTSize)
	if err != nil {
		return nil, err
	}
	dm.corrInvPlan, err = fftplan.NewInverse(dm.corrFFTSize)
	if err != nil {
		return nil, err
	}

	dm.dlSyncFFT, dm.dlSyncLen = dm.generateSyncWord(iridium.UniqueWordDL, iridium.PreambleLengthDL, false)
	dm.ulSyncFFT, dm.ulSyncLen = dm.generateSyncWord(iridium.UniqueWordUL, iridium.PreambleLengthUL, true)

	return dm, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// generateSyncWord builds the frequency-domain correlation template for one
// direction's preamble+unique-word sequence (burst_downmix.c's
// generate_sync_word): build symbols, upsample by inserting sps-1 zeros,
// RC-shape, time-reverse+conjugate, zero-pad, FFT.
func (dm *Downmixer) generateSyncWord(uw []int, preambleLen int, uplink bool) ([]complex64, int) {
	uwLen := len(uw)
	total := preambleLen + uwLen
	symbols := make([]complex64, total)
	s0 := complex64(complex(1, 1))
	s1 := complex64(complex(-1, -1))
	for i := 0; i < preambleLen; i++ {
		if uplink {
			if i%2 == 0 {
				symbols[i] = s1
			} else {
				symbols[i] = s0
			}
		} else {
			symbols[i] = s0
		}
	}
	for i, s := range uw {
		if s == 0 {
			symbols[preambleLen+i] = s0
		} else {
			symbols[preambleLen+i] = s1
		}
	}

	isps := int(dm.sps + 0.5)
	paddedLen := total*isps - (isps - 1)
	padded := make([]complex64, paddedLen)
	for i, s := range symbols {
		padded[i*isps] = s
	}

	shaped := filterSame(dm.rcFIR, padded)

	// Reverse and conjugate for use as a correlation template.
	for i, j := 0, len(shaped)-1; i < j; i, j = i+1, j-1 {
		shaped[i], shaped[j] = conj(shaped[j]), conj(shaped[i])
	}
	if len(shaped)%2 == 1 {
		mid := len(shaped) / 2
		shaped[mid] = conj(shaped[mid])
	}

	fftIn := make([]complex64, dm.corrFFTSize)
	copy(fftIn, shaped)
	fftOut := make([]complex64, dm.corrFFTSize)
	if err := dm.corrFwdPlan.Execute(fftOut, fftIn); err != nil {
		panic(err) // plan construction already validated; execute failures here are a programming error
	}
	return fftOut, paddedLen
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

// filterSame zero-pads in by half the filter length on each side so the
// convolution output has the same length as in (matches the zero-padded
// convolution used throughout the original for same-length filtering).
func filterSame(taps []float32, in []complex64) []complex64 {
	half := (len(taps) - 1) / 2
	padded := make([]complex64, len(in)+len(taps)-1)
	copy(padded[half:], in)
	out := make([]complex64, len(in))
	dsp.Default.FIRComplex(taps, padded, out)
	return out
}

// Process runs the full 9-step downmix pipeline over one burst, returning
// (nil, false) if the burst is abandoned at any stage (spec §4.B).
func (dm *Downmixer) Process(burst detector.Burst) (*Frame, bool) {
	if len(burst.IQ) < 100 {
		return nil, false
	}

	work := make([]complex64, len(burst.IQ))
	copy(work, burst.IQ)

	centerFrequency := burst.CaptureCenterFreq
	inSampleRate := burst.CaptureSampleRate

	// Step 1: coarse CFO correction.
	relativeFreq := float32(burst.CenterBin-burst.FFTSize/2) / float32(burst.FFTSize)
	{
		rot := dsp.NewRotator(complexExp(-2 * math.Pi * float64(relativeFreq)))
		rot.RotateInto(work, work)
		centerFrequency += float64(relativeFreq) * inSampleRate
	}

	// Step 2: decimate to output rate, anti-alias filtered.
	decimation := int(math.Round(inSampleRate / dm.outputSampleRate))
	if decimation < 1 {
		decimation = 1
	}
	nOut := (len(work) - len(dm.inputFIR) + 1) / decimation
	if nOut <= 0 {
		return nil, false
	}
	decimated := make([]complex64, nOut)
	dsp.Default.FIRComplexDecimate(dm.inputFIR, work, decimated, decimation)
	if len(decimated) < 100 {
		return nil, false
	}

	// Step 2b: noise-limiting filter.
	filteredLen := len(decimated) - len(dm.noiseFIR) + 1
	var afterNoise []complex64
	if filteredLen > 100 {
		afterNoise = make([]complex64, filteredLen)
		dsp.Default.FIRComplex(dm.noiseFIR, decimated, afterNoise)
	} else {
		afterNoise = decimated
	}

	// Step 3: find burst start.
	start := dm.findBurstStart(afterNoise)
	if start >= len(afterNoise)-100 {
		return nil, false
	}
	frame := afterNoise[start:]

	// Step 4/5: fine CFO estimate and correction.
	centerOffset := dm.estimateFineCFO(frame)
	corrected := make([]complex64, len(frame))
	{
		rot := dsp.NewRotator(complexExp(-2 * math.Pi * float64(centerOffset)))
		rot.RotateInto(corrected, frame)
		centerFrequency += float64(centerOffset) * dm.outputSampleRate
	}

	// Step 6: RRC matched filter.
	matched := filterSame(dm.rrcFIR, corrected)

	// Step 7: sync-word correlation.
	direction, uwStart, uwCorrection, corrPeak := dm.correlateSync(matched)
	if uwStart < 0 || uwStart >= len(matched) {
		return nil, false
	}

	// Step 8: phase alignment.
	aligned := make([]complex64, len(matched))
	{
		mag := cabs32(corrPeak)
		var phaseCorrection complex64 = 1
		if mag > 0 {
			phaseCorrection = conj(corrPeak) / complex(mag, 0)
		}
		rot := dsp.NewRotator(1)
		rot.SetPhase(phaseCorrection)
		rot.RotateInto(aligned, matched)
	}

	// Step 9: frame extraction.
	var minLen, maxLen int
	if centerFrequency > iridium.SimplexFrequencyMinHz {
		minLen = int(float32(iridium.MinFrameLengthSimplex) * dm.sps)
		maxLen = int(float32(iridium.MaxFrameLengthSimplex) * dm.sps)
	} else {
		minLen = int(float32(iridium.MinFrameLengthNormal) * dm.sps)
		maxLen = int(float32(iridium.MaxFrameLengthNormal) * dm.sps)
	}
	available := len(aligned) - uwStart
	if available < minLen {
		return nil, false
	}
	extractLen := available
	if extractLen > maxLen {
		extractLen = maxLen
	}

	// Timestamp: wall-clock at burst.Start plus the decimated-domain offset
	// of the UW within the downmixed stream (uwStart samples at
	// outputSampleRate).
	timestampNanos := burst.WallClockBaseNanos +
		int64(float64(uwStart)/dm.outputSampleRate*1e9)

	out := &Frame{
		ID:                burst.ID,
		TimestampNanos:    timestampNanos,
		CenterFrequencyHz: centerFrequency,
		SampleRateHz:      dm.outputSampleRate,
		SamplesPerSymbol:  dm.sps,
		Direction:         direction,
		SNRdB:             burst.SNRdB,
		NoiseDBHz:         burst.NoiseDBHz,
		UWStartCorrection: uwCorrection,
		IQ:                append([]complex64(nil), aligned[uwStart:uwStart+extractLen]...),
	}
	return out, true
}

func (dm *Downmixer) findBurstStart(frame []complex64) int {
	search := dm.searchDepth
	if search > len(frame) {
		search = len(frame)
	}
	magLen := search + len(dm.startFIR) - 1
	if magLen > len(frame) {
		magLen = len(frame)
	}
	mag := make([]float32, magLen)
	for i := 0; i < magLen; i++ {
		re, im := real(frame[i]), imag(frame[i])
		mag[i] = re*re + im*im
	}

	halfFIR := (len(dm.startFIR) - 1) / 2
	filteredLen := magLen - len(dm.startFIR) + 1
	if filteredLen <= 0 {
		return 0
	}
	if filteredLen > search {
		filteredLen = search
	}
	filtered := make([]float32, filteredLen)
	dsp.Default.FIRReal(dm.startFIR, mag, filtered)

	var maxVal float32
	for _, v := range filtered {
		if v > maxVal {
			maxVal = v
		}
	}
	threshold := startThreshold * maxVal

	start := 0
	for start < filteredLen {
		if filtered[start] >= threshold {
			break
		}
		start++
	}
	if start > 0 {
		start = start + halfFIR - dm.preStartSamples
		if start < 0 {
			start = 0
		}
	}
	return start
}

// estimateFineCFO squares the signal to collapse the DQPSK constellation to
// a single tone at 2x CFO, then locates its frequency via a zero-padded,
// quadratically-interpolated FFT peak search (spec §4.B step 5).
func (dm *Downmixer) estimateFineCFO(frame []complex64) float32 {
	n := dm.cfoFFTSize
	if n > len(frame) {
		n = len(frame)
	}
	fftIn := make([]complex64, dm.cfoFFTTotal)
	for i := 0; i < n; i++ {
		sq := frame[i] * frame[i]
		fftIn[i] = sq * complex(dm.cfoWindow[i], 0)
	}
	fftOut := make([]complex64, dm.cfoFFTTotal)
	if err := dm.cfoPlan.Execute(fftOut, fftIn); err != nil {
		return 0
	}

	var maxMag float32
	maxIdxShifted := 0
	for i, c := range fftOut {
		m := real(c)*real(c) + imag(c)*imag(c)
		if m > maxMag {
			maxMag = m
			maxIdxShifted = i
		}
	}
	maxIdx := fftUnshiftIndex(maxIdxShifted, dm.cfoFFTTotal)

	var correction float32
	if maxIdxShifted > 0 && maxIdxShifted < dm.cfoFFTTotal-1 {
		idxM1 := fftShiftIndex(maxIdx-1, dm.cfoFFTTotal)
		idxP1 := fftShiftIndex(maxIdx+1, dm.cfoFFTTotal)
		alpha := magSq(fftOut[idxM1])
		beta := maxMag
		gamma := magSq(fftOut[idxP1])
		correction = dsp.QuadraticPeakInterp(alpha, beta, gamma)
	}

	return (float32(maxIdx) + correction) / float32(dm.cfoFFTTotal) / 2
}

// correlateSync runs forward+inverse FFT frequency-domain correlation
// against both pre-built sync templates and returns the better-matching
// direction, the unique-word start sample index, the quadratic sub-sample
// interpolation correction, and the complex correlation value at the peak
// (spec §4.B step 7).
func (dm *Downmixer) correlateSync(frame []complex64) (iridium.Direction, int, float32, complex64) {
	searchLen := dm.syncSearchLen
	if searchLen > len(frame) {
		searchLen = len(frame)
	}

	fwdIn := make([]complex64, dm.corrFFTSize)
	copy(fwdIn, frame[:searchLen])
	fwdOut := make([]complex64, dm.corrFFTSize)
	if err := dm.corrFwdPlan.Execute(fwdOut, fwdIn); err != nil {
		return iridium.DirectionUndefined, -1, 0, 0
	}

	dlIn := make([]complex64, dm.corrFFTSize)
	ulIn := make([]complex64, dm.corrFFTSize)
	for i := 0; i < dm.corrFFTSize; i++ {
		dlIn[i] = fwdOut[i] * dm.dlSyncFFT[i]
		ulIn[i] = fwdOut[i] * dm.ulSyncFFT[i]
	}
	dlOut := make([]complex64, dm.corrFFTSize)
	ulOut := make([]complex64, dm.corrFFTSize)
	_ = dm.corrInvPlan.Execute(dlOut, dlIn)
	_ = dm.corrInvPlan.Execute(ulOut, ulIn)

	maxDL, offsetDL := peakMag(dlOut[:searchLen])
	maxUL, offsetUL := peakMag(ulOut[:searchLen])

	var (
		direction iridium.Direction
		corrOff   int
		ifftOut   []complex64
		syncLen   int
	)
	if maxDL >= maxUL {
		direction = iridium.DirectionDownlink
		corrOff = offsetDL
		ifftOut = dlOut
		syncLen = dm.dlSyncLen
	} else {
		direction = iridium.DirectionUplink
		corrOff = offsetUL
		ifftOut = ulOut
		syncLen = dm.ulSyncLen
	}
	corrResult := ifftOut[corrOff]

	var correction float32
	if corrOff > 0 && corrOff < searchLen-1 {
		alpha := magSq(ifftOut[corrOff-1])
		beta := magSq(ifftOut[corrOff])
		gamma := magSq(ifftOut[corrOff+1])
		correction = dsp.QuadraticPeakInterp(alpha, beta, gamma)
	}

	preambleOffset := corrOff - syncLen + 1
	preambleSymbols := iridium.PreambleLengthDL
	if direction == iridium.DirectionUplink {
		preambleSymbols = iridium.PreambleLengthUL
	}
	uwStart := preambleOffset + int(float32(preambleSymbols)*dm.sps)

	return direction, uwStart, correction, corrResult
}

func peakMag(samples []complex64) (float32, int) {
	var maxMag float32
	offset := 0
	for i, c := range samples {
		m := magSq(c)
		if m > maxMag {
			maxMag = m
			offset = i
		}
	}
	return maxMag, offset
}

func magSq(c complex64) float32 {
	re, im := real(c), imag(c)
	return re*re + im*im
}

func cabs32(c complex64) float32 {
	return float32(math.Sqrt(float64(magSq(c))))
}

func complexExp(theta float64) complex64 {
	return complex64(complex(math.Cos(theta), math.Sin(theta)))
}

// fftUnshiftIndex / fftShiftIndex convert between a natural (FFTW-ordered)
// FFT bin index and its signed-frequency representation (burst_downmix.c's
// fft_unshift_index / fft_shift_index).
func fftUnshiftIndex(idx, size int) int {
	if idx >= size/2 {
		return idx - size
	}
	return idx
}

func fftShiftIndex(idx, size int) int {
	if idx < 0 {
		return idx + size
	}
	return idx
}

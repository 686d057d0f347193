// Package demod implements stage C: decimation to one sample per symbol
// (Gardner timing recovery or integer-stride fallback), decision-directed
// PLL phase tracking, hard-decision QPSK demod with confidence scoring,
// dual-direction unique-word verification with a soft-decision rescue
// path, DQPSK differential decode, and symbol-to-bit mapping (spec §4.C).
package demod

import (
	"math"

	"github.com/google/uuid"

	"github.com/cemaxecuter/iridium-sniffer/internal/downmix"
	"github.com/cemaxecuter/iridium-sniffer/internal/dsp"
	"github.com/cemaxecuter/iridium-sniffer/internal/iridium"
)

const (
	pllAlpha         = float32(0.2)
	sqrt1_2          = float32(0.70710678118654752)
	confidenceAngle  = float32(22) // degrees from ideal constellation
	magnitudeDrop    = float32(8.0)
	maxLowCount      = 3
	uwMaxErrors      = 2
	uwSoftThreshold  = float32(3.0)
	gardnerKp        = float32(0.02)
	gardnerKi        = float32(0.0002)
)

// dqpskMap maps (new-old)%4 phase-quadrant transitions to decoded symbols.
var dqpskMap = [4]int{0, 2, 3, 1}

// Frame is the C->D demodulated-frame record (spec §3 Frame record).
type Frame struct {
	ID               uuid.UUID
	TimestampNanos   int64
	CenterFrequencyHz float64
	Direction        iridium.Direction
	SNRdB            float64
	NoiseDBHz        float64
	ConfidencePct    int
	Level            float32
	SymbolCount      int
	PayloadSymbols   int
	Bits             []byte    // one byte per bit, values 0/1
	LLR              []float32 // per-bit reliability, larger = more confident
}

// Process runs the full stage C pipeline on a downmixed frame. It returns
// false if the unique word cannot be verified by either the hard or the
// soft-decision rescue check (spec §4.C step 4).
func Process(in *downmix.Frame, useGardner bool) (*Frame, bool) {
	sps := in.SamplesPerSymbol
	if sps < 1 {
		sps = 1
	}

	var decimated []complex64
	if useGardner {
		decimated = decimateGardner(in.IQ, sps)
	} else {
		decimated = decimateSimple(in.IQ, sps)
	}
	if len(decimated) == 0 {
		return nil, false
	}

	pllOut := make([]complex64, len(decimated))
	totalPhase := qpskPLL(decimated, pllOut, pllAlpha)

	symbols, level, confidence := demodQPSK(pllOut)
	if len(symbols) == 0 {
		return nil, false
	}
	pllOut = pllOut[:len(symbols)]

	direction := in.Direction
	dlOK := checkSyncWord(symbols, iridium.UniqueWordDL)
	ulOK := checkSyncWord(symbols, iridium.UniqueWordUL)
	switch {
	case !dlOK && !ulOK:
		dlErr := softCheckSyncWord(pllOut, iridium.UniqueWordDL)
		ulErr := softCheckSyncWord(pllOut, iridium.UniqueWordUL)
		minErr := dlErr
		if ulErr < minErr {
			minErr = ulErr
		}
		if minErr > uwSoftThreshold {
			return nil, false
		}
		if ulErr < dlErr {
			direction = iridium.DirectionUplink
		} else {
			direction = iridium.DirectionDownlink
		}
	case ulOK && !dlOK:
		direction = iridium.DirectionUplink
	case dlOK && !ulOK:
		direction = iridium.DirectionDownlink
	}

	llr := mapSymbolsToLLR(pllOut)
	decodeDQPSK(symbols)
	bits := mapSymbolsToBits(symbols)

	out := &Frame{
		ID:                in.ID,
		TimestampNanos:    in.TimestampNanos,
		Direction:         direction,
		SNRdB:             in.SNRdB,
		NoiseDBHz:         in.NoiseDBHz,
		ConfidencePct:     confidence,
		Level:             level,
		SymbolCount:       len(symbols),
		PayloadSymbols:    len(symbols) - iridium.UWLength,
		Bits:              bits,
		LLR:               llr,
	}

	if len(symbols) > 0 {
		duration := float64(len(symbols)) / iridium.SymbolRateHz
		out.CenterFrequencyHz = in.CenterFrequencyHz +
			float64(totalPhase)/duration/math.Pi/2.0
	} else {
		out.CenterFrequencyHz = in.CenterFrequencyHz
	}
	return out, true
}

// cubicInterpAt interpolates samples at fractional position pos, clamping
// the base index so the four-tap Catmull-Rom window stays in range (spec
// §4.C step 1, qpsk_demod.c's cubic_interp).
func cubicInterpAt(samples []complex64, pos float32) complex64 {
	idx := int(pos)
	mu := pos - float32(idx)
	if idx < 1 {
		idx = 1
	}
	if idx >= len(samples)-2 {
		idx = len(samples) - 3
	}
	return dsp.CubicInterp(samples[idx-1], samples[idx], samples[idx+1], samples[idx+2], mu)
}

// decimateGardner recovers one sample per symbol via a Gardner timing-error
// detector driving a PI loop over cubic-interpolated fractional positions
// (spec §4.C step 1).
func decimateGardner(in []complex64, sps float32) []complex64 {
	n := len(in)
	if n < 4 {
		return nil
	}
	out := make([]complex64, 0, n/int(sps)+1)
	var pos float32
	var timingOffset float32
	var prevSym complex64

	for pos < float32(n-3) {
		onTime := cubicInterpAt(in, pos)
		out = append(out, onTime)

		if len(out) > 1 {
			midPos := pos - sps*0.5
			if midPos >= 1.0 {
				mid := cubicInterpAt(in, midPos)
				diff := prevSym - onTime
				errVal := real(diff * complex(real(mid), -imag(mid)))
				if errVal > 1.0 {
					errVal = 1.0
				}
				if errVal < -1.0 {
					errVal = -1.0
				}
				timingOffset += gardnerKi * errVal
				adjust := gardnerKp*errVal + timingOffset
				if adjust > 0.5 {
					adjust = 0.5
				}
				if adjust < -0.5 {
					adjust = -0.5
				}
				pos += adjust
			}
		}

		prevSym = onTime
		pos += sps
	}
	return out
}

// decimateSimple is the integer-stride fallback decimator.
func decimateSimple(in []complex64, sps float32) []complex64 {
	step := int(sps)
	if step < 1 {
		step = 1
	}
	out := make([]complex64, 0, len(in)/step+1)
	for i := 0; i < len(in); i += step {
		out = append(out, in[i])
	}
	return out
}

// qpskPLL applies decision-directed first-order phase tracking, returning
// the accumulated loop phase correction (used to refine the center
// frequency estimate; spec §4.C step 2).
func qpskPLL(in, out []complex64, alpha float32) float32 {
	phiHat := complex64(1)
	var totalPhase float32

	for i, s := range in {
		corrected := s * phiHat
		out[i] = corrected

		re, im := real(corrected), imag(corrected)
		var xHat complex64
		switch {
		case re >= 0 && im >= 0:
			xHat = complex(sqrt1_2, sqrt1_2)
		case re >= 0:
			xHat = complex(sqrt1_2, -sqrt1_2)
		case im < 0:
			xHat = complex(-sqrt1_2, -sqrt1_2)
		default:
			xHat = complex(-sqrt1_2, sqrt1_2)
		}

		er := complex(real(xHat), -imag(xHat)) * corrected
		erMag := cabs(er)
		if erMag < 1e-10 {
			continue
		}
		phiHatT := er / complex(erMag, 0)

		angle := float32(math.Atan2(float64(imag(phiHatT)), float64(real(phiHatT))))
		scaledAngle := alpha * angle
		correction := complex(float32(math.Cos(float64(scaledAngle))), float32(math.Sin(float64(scaledAngle))))

		totalPhase += scaledAngle

		phiHat = complex(real(correction), -imag(correction)) * phiHat
		phiMag := cabs(phiHat)
		if phiMag > 0 {
			phiHat /= complex(phiMag, 0)
		}
	}
	return totalPhase
}

// demodQPSK hard-decides each phase-tracked symbol, stops at the first
// sustained signal drop (end of frame), and returns the mean magnitude
// level and the percentage of symbols within confidenceAngle degrees of
// their ideal constellation point (spec §4.C step 3).
func demodQPSK(in []complex64) ([]int, float32, int) {
	var maxMag float32
	lowCount := 0
	offsets := make([]float32, 0, len(in))
	magnitudes := make([]float32, 0, len(in))
	symbols := make([]int, 0, len(in))

	for _, s := range in {
		re, im := real(s), imag(s)
		mag := float32(math.Sqrt(float64(re*re + im*im)))
		magnitudes = append(magnitudes, mag)
		if mag > maxMag {
			maxMag = mag
		}

		var sym int
		switch {
		case re >= 0 && im >= 0:
			sym = 0
		case re < 0 && im >= 0:
			sym = 1
		case re < 0:
			sym = 2
		default:
			sym = 3
		}
		symbols = append(symbols, sym)

		phase := (float32(math.Atan2(float64(im), float64(re))) + math.Pi) * 180.0 / math.Pi
		offsets = append(offsets, 45.0-float32(math.Mod(float64(phase), 90.0)))

		if mag < maxMag/magnitudeDrop {
			lowCount++
			if lowCount >= maxLowCount {
				symbols = symbols[:len(symbols)-maxLowCount]
				magnitudes = magnitudes[:len(magnitudes)-maxLowCount]
				offsets = offsets[:len(offsets)-maxLowCount]
				break
			}
		} else {
			lowCount = 0
		}
	}

	n := len(symbols)
	var nOK int
	var sum float32
	for i := 0; i < n; i++ {
		sum += magnitudes[i]
		if absf32(offsets[i]) <= confidenceAngle {
			nOK++
		}
	}
	var level float32
	var confidence int
	if n > 0 {
		level = sum / float32(n)
		confidence = (100 * nOK) / n
	}
	return symbols, level, confidence
}

// decodeDQPSK differentially decodes symbols in place (spec §4.C step 5).
func decodeDQPSK(symbols []int) {
	oldSym := 0
	for i, s := range symbols {
		diff := (s - oldSym + 4) % 4
		oldSym = s
		symbols[i] = dqpskMap[diff]
	}
}

// checkSyncWord performs the hard-decision Hamming-like unique-word check:
// accumulated quadrant distance (with 3-step wraparound folded to 1) must
// not exceed uwMaxErrors (spec §4.C step 4).
func checkSyncWord(symbols []int, uw []int) bool {
	if len(symbols) < iridium.UWLength {
		return false
	}
	var diffs int
	for i := 0; i < iridium.UWLength; i++ {
		d := symbols[i] - uw[i]
		if d < 0 {
			d = -d
		}
		if d == 3 {
			d = 1
		}
		diffs += d
	}
	return diffs <= uwMaxErrors
}

// softCheckSyncWord scores the unique word using pre-decision phase error
// rather than hard quadrant decisions, rescuing borderline frames the hard
// check rejects (spec §4.C step 4).
func softCheckSyncWord(pllOut []complex64, uw []int) float32 {
	if len(pllOut) < iridium.UWLength {
		return 999.0
	}
	var totalError float32
	for i := 0; i < iridium.UWLength; i++ {
		expected := math.Pi*0.25 + float64(uw[i])*math.Pi*0.5
		actual := math.Atan2(float64(imag(pllOut[i])), float64(real(pllOut[i])))
		if actual < 0 {
			actual += 2 * math.Pi
		}
		diff := actual - expected
		if diff > math.Pi {
			diff -= 2 * math.Pi
		}
		if diff < -math.Pi {
			diff += 2 * math.Pi
		}
		totalError += float32(math.Abs(diff) * (2.0 / math.Pi))
	}
	return totalError
}

// mapSymbolsToLLR derives a per-bit reliability score from the phase-
// tracked (pre-decision) constellation point: the MSB's reliability is the
// symbol's distance from the imaginary axis, the LSB's from the real axis.
// Used downstream by the frame decoder's Chase decoder to rank bits for
// flipping when standard BCH correction fails.
func mapSymbolsToLLR(pllOut []complex64) []float32 {
	llr := make([]float32, len(pllOut)*2)
	for i, s := range pllOut {
		llr[2*i] = absf32(real(s))
		llr[2*i+1] = absf32(imag(s))
	}
	return llr
}

// mapSymbolsToBits expands each 2-bit symbol MSB first (spec §4.C step 6).
func mapSymbolsToBits(symbols []int) []byte {
	bits := make([]byte, len(symbols)*2)
	for i, s := range symbols {
		bits[2*i] = byte((s >> 1) & 1)
		bits[2*i+1] = byte(s & 1)
	}
	return bits
}

func cabs(c complex64) float32 {
	re, im := real(c), imag(c)
	return float32(math.Sqrt(float64(re*re + im*im)))
}

func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

package detector

import "github.com/cemaxecuter/iridium-sniffer/internal/dsp"

// baseline is the per-bin running noise-floor history: a history_size x
// fft_size matrix of magnitude-squared samples plus a running column sum.
// Invariant (§8 invariant 1): sum[bin] exactly equals the column sum of the
// last historySize magnitudes written to history[:, bin].
type baseline struct {
	history   [][]float32 // [historySize][fftSize]
	sum       []float32   // [fftSize]
	cursor    int
	filled    int
	primed    bool
	fftSize   int
	histSize  int
	kernelSet dsp.Kernels
}

func newBaseline(fftSize, historySize int, kernels dsp.Kernels) *baseline {
	b := &baseline{
		history:   make([][]float32, historySize),
		sum:       make([]float32, fftSize),
		fftSize:   fftSize,
		histSize:  historySize,
		kernelSet: kernels,
	}
	for i := range b.history {
		b.history[i] = make([]float32, fftSize)
	}
	return b
}

// update writes mag into the oldest history row, adjusts the running sum,
// and advances the cursor (spec §4.A step 9).
func (b *baseline) update(mag []float32) {
	old := b.history[b.cursor]
	b.kernelSet.BaselineUpdate(b.sum, old, mag)
	copy(b.history[b.cursor], mag)
	b.cursor = (b.cursor + 1) % b.histSize
	if !b.primed {
		b.filled++
		if b.filled >= b.histSize {
			b.primed = true
		}
	}
}

// reset fully clears the baseline history, running sum, and primed flag
// (spec §4.A step 8 squelch reset; §8 boundary behavior: squelch_count
// reaching 10 clears the baseline for the next frame).
func (b *baseline) reset() {
	for i := range b.history {
		for j := range b.history[i] {
			b.history[i][j] = 0
		}
	}
	for j := range b.sum {
		b.sum[j] = 0
	}
	b.cursor = 0
	b.filled = 0
	b.primed = false
}

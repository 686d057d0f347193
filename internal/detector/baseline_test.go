package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cemaxecuter/iridium-sniffer/internal/dsp"
)

func TestBaselineSumMatchesHistoryColumnSum(t *testing.T) {
	const fftSize = 8
	const histSize = 4

	b := newBaseline(fftSize, histSize, dsp.Default)

	frames := [][]float32{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{2, 2, 2, 2, 2, 2, 2, 2},
		{0, 1, 0, 1, 0, 1, 0, 1},
		{5, 5, 5, 5, 5, 5, 5, 5},
		{10, 10, 10, 10, 10, 10, 10, 10}, // pushes the first frame out
	}
	for _, f := range frames {
		b.update(append([]float32{}, f...))
	}

	// Only the last histSize frames remain in the window.
	want := make([]float32, fftSize)
	for _, f := range frames[len(frames)-histSize:] {
		for bin := range f {
			want[bin] += f[bin]
		}
	}

	for bin := range want {
		assert.InDelta(t, want[bin], b.sum[bin], 1e-3, "bin %d", bin)
	}
}

func TestBaselinePrimedAfterHistorySizeUpdates(t *testing.T) {
	const fftSize = 4
	const histSize = 3

	b := newBaseline(fftSize, histSize, dsp.Default)
	assert.False(t, b.primed)

	for i := 0; i < histSize-1; i++ {
		b.update(make([]float32, fftSize))
		assert.False(t, b.primed)
	}
	b.update(make([]float32, fftSize))
	assert.True(t, b.primed)
}

func TestBaselineResetClearsSumAndPrimed(t *testing.T) {
	const fftSize = 4
	const histSize = 2

	b := newBaseline(fftSize, histSize, dsp.Default)
	for i := 0; i < histSize; i++ {
		b.update([]float32{1, 1, 1, 1})
	}
	assert.True(t, b.primed)

	b.reset()
	assert.False(t, b.primed)
	assert.Equal(t, 0, b.filled)
	for _, v := range b.sum {
		assert.Equal(t, float32(0), v)
	}
}

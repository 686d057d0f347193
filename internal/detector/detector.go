package detector

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"hz.tools/sdr"

	"github.com/cemaxecuter/iridium-sniffer/internal/config"
	"github.com/cemaxecuter/iridium-sniffer/internal/dsp"
	"github.com/cemaxecuter/iridium-sniffer/internal/fftplan"
	"github.com/cemaxecuter/iridium-sniffer/internal/ringbuffer"
)

// Stats holds the detector's atomic counters (spec §5 shared resources:
// statistics counters are atomic).
type Stats struct {
	FramesProcessed  atomic.Int64
	BurstsEmitted    atomic.Int64
	BurstsDropped    atomic.Int64
	RingUnderruns    atomic.Int64
	SquelchEngaged   atomic.Int64
	QueueFullDropped atomic.Int64
}

// Detector implements stage A: sliding-FFT burst detection with adaptive
// noise-floor tracking (spec §4.A).
type Detector struct {
	cfg    *config.Config
	log    *log.Logger
	ring   *ringbuffer.Ring
	base   *baseline
	window []float32
	plan   *fftplan.Plan
	kernel dsp.Kernels

	thresholdLinear float32
	burstWidthBins  int
	binHz           float64

	active       []*activeBurst
	squelchCount int
	pending      []complex64
	epochNanos   int64
	samplesSeen  int64

	Stats Stats

	emit func(Burst)
}

// SetEpoch anchors sample index 0 to a wall-clock time, so retired bursts
// can carry an absolute timestamp (spec §4.B frame timestamping). Call
// once before the first Feed.
func (d *Detector) SetEpoch(nanos int64) {
	d.epochNanos = nanos
}

// New constructs a detector from a resolved config. emit is called for
// every retired burst; it must not block beyond the caller's own queue
// backpressure semantics (spec §4.A emission note).
func New(cfg *config.Config, logger *log.Logger, emit func(Burst)) (*Detector, error) {
	fftSize := cfg.FFTSize
	plan, err := fftplan.New(fftSize)
	if err != nil {
		return nil, fmt.Errorf("detector: fft plan: %w", err)
	}

	window := make([]float32, fftSize)
	dsp.BlackmanWindow(window)
	// Scale by 1/0.42 so the window's amplitude response matches the
	// literal SNR in dB (spec §4.A FFT sizing).
	for i := range window {
		window[i] /= 0.42
	}

	binHz := cfg.SampleRateHz / float64(fftSize)
	burstWidthBins := int(cfg.BurstWidthHz / binHz)
	if burstWidthBins < 1 {
		burstWidthBins = 1
	}

	thresholdLinear := float32(math.Pow(10, cfg.DetectionThresholdDB/10) /
		float64(cfg.NoiseHistoryLength) / dsp.BlackmanENBW)

	ringSize := ringbuffer.Size(cfg.SampleRateHz, cfg.MaxBurstLenSamples,
		cfg.BurstPreRollSamples, cfg.BurstPostRollSamples, fftSize)

	d := &Detector{
		cfg:             cfg,
		log:             logger,
		ring:            ringbuffer.New(ringSize),
		base:            newBaseline(fftSize, cfg.NoiseHistoryLength, dsp.Default),
		window:          window,
		plan:            plan,
		kernel:          dsp.Default,
		thresholdLinear: thresholdLinear,
		burstWidthBins:  burstWidthBins,
		binHz:           binHz,
		emit:            emit,
	}
	return d, nil
}

// Feed ingests newly-converted complex samples, ring-buffering them and
// running the per-frame detection pipeline on every complete fftSize
// stride (spec §4.A: "one FFT-length stride, no overlap").
func (d *Detector) Feed(samples []complex64) {
	d.pending = append(d.pending, samples...)
	fftSize := d.cfg.FFTSize
	for len(d.pending) >= fftSize {
		frame := d.pending[:fftSize]
		d.ring.Append(sdr.SamplesC64(frame))
		d.processFrame(frame)
		d.pending = d.pending[fftSize:]
	}
}

func (d *Detector) processFrame(frame []complex64) {
	fftSize := d.cfg.FFTSize
	index := d.ring.NextIndex()

	windowed := make([]complex64, fftSize)
	d.kernel.WindowMultiply(frame, d.window, windowed)

	fftOut := make([]complex64, fftSize)
	if err := d.plan.Execute(fftOut, windowed); err != nil {
		d.log.Warn("detector: fft execute failed", "err", err)
		return
	}
	mag := make([]float32, fftSize)
	d.kernel.FFTShiftMagSquared(fftOut, mag)

	d.Stats.FramesProcessed.Add(1)

	if !d.base.primed {
		// Baseline not primed: skip detection, still feed the baseline
		// (spec §4.A step 2, step 9).
		d.base.update(mag)
		return
	}

	rel := make([]float32, fftSize)
	d.kernel.RelativeMagnitude(mag, d.base.sum, rel)

	// Step 3: update liveness of active bursts.
	for _, b := range d.active {
		c := b.centerBin
		if d.exceedsThreshold(rel, c) {
			b.lastActive = index
		}
	}

	// Step 4: mask spectrum around every active burst.
	d.maskAround(rel, d.active)

	// Step 5: extract peaks outside burstWidth/2 of the spectrum ends.
	peaks := d.extractPeaks(rel)

	// Step 6: retire gone bursts.
	forcedBaselineUpdate := false
	var stillActive []*activeBurst
	var retired []*activeBurst
	for _, b := range d.active {
		lengthTriggered := index-b.start > int64(d.cfg.MaxBurstLenSamples)
		silenceTriggered := b.lastActive+int64(d.cfg.BurstPostRollSamples) <= index
		if lengthTriggered || silenceTriggered {
			retired = append(retired, b)
			if lengthTriggered {
				forcedBaselineUpdate = true
			}
		} else {
			stillActive = append(stillActive, b)
		}
	}
	d.active = stillActive
	for _, b := range retired {
		d.retireBurst(b, index)
	}

	// Step 7: instantiate new bursts from remaining peaks.
	var newBursts []*activeBurst
	for _, bin := range peaks {
		if d.insideMask(bin, d.active) || d.insideMask(bin, newBursts) {
			continue
		}
		nb := d.newBurstAt(bin, index, rel[bin])
		newBursts = append(newBursts, nb)
		d.maskAround(rel, []*activeBurst{nb})
	}

	// Step 8: squelch.
	total := len(d.active) + len(newBursts)
	if total > d.cfg.MaxConcurrentBursts {
		d.Stats.SquelchEngaged.Add(1)
		// Discard all newly-created bursts from this frame.
		newBursts = nil
		// Retire the rest (everything that was active before this frame).
		for _, b := range d.active {
			d.retireBurst(b, index)
		}
		d.active = nil
		d.squelchCount += 3
		if d.squelchCount >= 10 {
			d.base.reset()
			d.squelchCount = 0
		}
	} else if d.squelchCount > 0 {
		d.squelchCount--
	}

	d.active = append(d.active, newBursts...)

	// Step 9: baseline update only when no bursts are active, or forced by
	// a length-triggered retirement.
	if len(d.active) == 0 || forcedBaselineUpdate {
		d.base.update(mag)
	}
}

func (d *Detector) exceedsThreshold(rel []float32, centerBin int) bool {
	for _, off := range [3]int{-1, 0, 1} {
		bin := centerBin + off
		if bin < 0 || bin >= len(rel) {
			continue
		}
		if rel[bin] > d.thresholdLinear {
			return true
		}
	}
	return false
}

func (d *Detector) maskAround(rel []float32, bursts []*activeBurst) {
	half := d.burstWidthBins / 2
	for _, b := range bursts {
		lo := b.centerBin - half
		hi := b.centerBin + half
		if lo < 0 {
			lo = 0
		}
		if hi >= len(rel) {
			hi = len(rel) - 1
		}
		for i := lo; i <= hi; i++ {
			rel[i] = 0
		}
	}
}

func (d *Detector) insideMask(bin int, bursts []*activeBurst) bool {
	half := d.burstWidthBins / 2
	for _, b := range bursts {
		if bin >= b.centerBin-half && bin <= b.centerBin+half {
			return true
		}
	}
	return false
}

// extractPeaks returns bins (outside burstWidth/2 of the spectrum ends)
// where rel[bin] exceeds threshold, sorted by magnitude descending (spec
// §4.A step 5).
func (d *Detector) extractPeaks(rel []float32) []int {
	half := d.burstWidthBins / 2
	var peaks []int
	for bin := half; bin < len(rel)-half; bin++ {
		if rel[bin] > d.thresholdLinear {
			peaks = append(peaks, bin)
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return rel[peaks[i]] > rel[peaks[j]] })
	return peaks
}

func (d *Detector) newBurstAt(bin int, index int64, rel float32) *activeBurst {
	historySize := float64(d.cfg.NoiseHistoryLength)
	fftSize := float64(d.cfg.FFTSize)
	snr := 10 * math.Log10(float64(rel)*historySize*dsp.BlackmanENBW)
	noise := 10 * math.Log10(float64(d.base.sum[bin])/historySize/(fftSize*fftSize)/
		dsp.BlackmanENBW/(d.cfg.SampleRateHz/fftSize))
	return &activeBurst{
		id:         uuid.New(),
		start:      index - int64(d.cfg.BurstPreRollSamples),
		lastActive: index - int64(d.cfg.BurstPreRollSamples),
		centerBin:  bin,
		snrDB:      snr,
		noiseDBHz:  noise,
	}
}

func (d *Detector) retireBurst(b *activeBurst, stopIndex int64) {
	raw, err := d.ring.Extract(b.start, stopIndex+int64(d.cfg.BurstPreRollSamples))
	if err != nil {
		d.Stats.RingUnderruns.Add(1)
		d.log.Warn("detector: ring extract failed", "err", err)
		return
	}
	if len(raw) == 0 {
		d.Stats.RingUnderruns.Add(1)
		return
	}
	startNanos := d.epochNanos + int64(float64(b.start)/d.cfg.SampleRateHz*1e9)
	burst := Burst{
		ID:                 b.id,
		Start:               b.start,
		Stop:                stopIndex,
		CenterBin:           b.centerBin,
		SNRdB:               b.snrDB,
		NoiseDBHz:           b.noiseDBHz,
		CaptureCenterFreq:   d.cfg.CenterFrequencyHz,
		CaptureSampleRate:   d.cfg.SampleRateHz,
		FFTSize:             d.cfg.FFTSize,
		WallClockBaseNanos:  startNanos,
		IQ:                  []complex64(raw),
	}
	d.Stats.BurstsEmitted.Add(1)
	if d.emit != nil {
		d.emit(burst)
	}
}

// Package ringbuffer implements the circular IQ store described in spec
// §3: sized for the longest possible burst plus pre/post-roll plus FFT
// headroom, minimum two seconds, single-producer append-only.
package ringbuffer

import (
	"fmt"

	"hz.tools/sdr"
)

// Ring is a circular store of recent complex samples. It is written by
// exactly one producer (the detector) and read by that same producer when
// extracting bursts; there is no cross-goroutine sharing, matching the
// "no sharing" resource-model note in §5.
type Ring struct {
	buf   sdr.SamplesC64
	write int64 // absolute sample index of the next write
	size  int64
}

// Size computes the minimum ring capacity for the given parameters: longest
// burst plus pre-roll plus post-roll plus four FFT frames of headroom,
// floored at two seconds of samples (spec §3).
func Size(sampleRateHz float64, maxBurstLen, preRoll, postRoll, fftSize int) int64 {
	n := int64(maxBurstLen + preRoll + postRoll + 4*fftSize)
	min := int64(2 * sampleRateHz)
	if n < min {
		n = min
	}
	return n
}

// New allocates a ring of the given sample capacity.
func New(capacity int64) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		buf:  make(sdr.SamplesC64, capacity),
		size: capacity,
	}
}

// Append writes samples starting at the ring's current write cursor and
// advances it. It never blocks.
func (r *Ring) Append(samples sdr.SamplesC64) {
	for _, s := range samples {
		r.buf[r.write%r.size] = s
		r.write++
	}
}

// NextIndex returns the absolute sample index that the next Append will
// write to (i.e. the current index, "index" in spec §4.A's per-frame steps).
func (r *Ring) NextIndex() int64 { return r.write }

// OldestAvailable returns the oldest absolute sample index still resident
// in the ring.
func (r *Ring) OldestAvailable() int64 {
	if r.write <= r.size {
		return 0
	}
	return r.write - r.size
}

// Extract returns a freshly allocated copy of samples [start, stop), clamped
// to the oldest available index (spec §4.A emission / §8 invariant 2). If
// the clamped range is empty, an empty slice is returned with no error —
// ring-buffer under-run is a silent, counted condition, not an error value,
// per §7's transient-input taxonomy; callers bump their own counters.
func (r *Ring) Extract(start, stop int64) (sdr.SamplesC64, error) {
	if stop < start {
		return nil, fmt.Errorf("ringbuffer: extract range invalid: start=%d stop=%d", start, stop)
	}
	oldest := r.OldestAvailable()
	if start < oldest {
		start = oldest
	}
	if stop > r.write {
		stop = r.write
	}
	if stop <= start {
		return sdr.SamplesC64{}, nil
	}
	n := stop - start
	out := make(sdr.SamplesC64, n)
	for i := int64(0); i < n; i++ {
		out[i] = r.buf[(start+i)%r.size]
	}
	return out, nil
}

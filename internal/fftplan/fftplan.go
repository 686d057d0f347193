// Package fftplan wraps hz.tools/fftw's plan construction behind a
// process-wide mutex. FFT plan creation is not thread-safe in any common
// FFT library (fftw included); this is a requirement of the library, not
// of this design (spec §9 design note), and matches the original's
// fftw_lock.h: serialize construction, execute plans freely once built.
package fftplan

import (
	"fmt"
	"sync"

	"hz.tools/fftw"
	"hz.tools/sdr/fft"
)

var planMu sync.Mutex

// Plan is a forward or inverse FFT of a fixed size. Distinct Plans may
// execute concurrently; a single Plan stages data through its own in/out
// buffers, so it is not safe for concurrent Execute calls.
type Plan struct {
	size    int
	inverse bool
	plan    fft.Plan
	in, out []complex64
}

// New constructs a forward FFT plan of the given size. Construction is
// serialized across the whole process.
func New(size int) (*Plan, error) {
	return build(size, false)
}

// NewInverse constructs an inverse FFT plan of the given size.
func NewInverse(size int) (*Plan, error) {
	return build(size, true)
}

func build(size int, inverse bool) (*Plan, error) {
	planMu.Lock()
	defer planMu.Unlock()

	in := make([]complex64, size)
	out := make([]complex64, size)

	var (
		p   fft.Plan
		err error
	)
	if inverse {
		p, err = fftw.PlanInverse(in, out)
	} else {
		p, err = fftw.Plan(in, out)
	}
	if err != nil {
		return nil, fmt.Errorf("fftplan: plan construction failed: %w", err)
	}
	return &Plan{size: size, inverse: inverse, plan: p, in: in, out: out}, nil
}

// Execute runs the plan over src, writing size complex samples into dst.
// Execution takes no lock; calls on distinct Plans may run concurrently,
// calls on the same Plan may not.
func (p *Plan) Execute(dst, src []complex64) error {
	if len(src) != p.size || len(dst) != p.size {
		return fmt.Errorf("fftplan: expected %d samples, got in=%d out=%d", p.size, len(src), len(dst))
	}
	copy(p.in, src)
	if err := p.plan.Execute(); err != nil {
		return fmt.Errorf("fftplan: execute: %w", err)
	}
	copy(dst, p.out)
	return nil
}

// Size returns the plan's transform length.
func (p *Plan) Size() int { return p.size }

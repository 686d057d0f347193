// Package pipeline wires the four detection/demodulation/decode stages
// into a bounded, queue-connected worker topology and drives it to
// completion or cancellation (spec §5 Concurrency & Resource Model).
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cemaxecuter/iridium-sniffer/internal/config"
	"github.com/cemaxecuter/iridium-sniffer/internal/demod"
	"github.com/cemaxecuter/iridium-sniffer/internal/detector"
	"github.com/cemaxecuter/iridium-sniffer/internal/downmix"
	"github.com/cemaxecuter/iridium-sniffer/internal/framedecode"
	"github.com/cemaxecuter/iridium-sniffer/internal/metrics"
	"github.com/cemaxecuter/iridium-sniffer/internal/sink"
)

// queueDepth bounds every inter-stage channel. A send onto a full channel
// drops the record and counts it in QueueFullDropped instead of blocking
// the producer (spec §5: bounded queues).
const queueDepth = 256

// Pipeline owns every stage and the channels connecting them. Construct
// with New, then run with Run.
type Pipeline struct {
	cfg     *config.Config
	log     *log.Logger
	metrics *metrics.Registry

	det        *detector.Detector
	downmixers []*downmix.Downmixer
	raw        *sink.RawWriter

	burstCh   chan detector.Burst
	downmixCh chan *downmix.Frame
	demodCh   chan *demod.Frame
}

// New constructs a pipeline from a resolved config. raw is the sink every
// successfully demodulated (unique-word-verified) frame is written to,
// regardless of whether frame decode further classifies it.
func New(cfg *config.Config, logger *log.Logger, reg *metrics.Registry, raw *sink.RawWriter) (*Pipeline, error) {
	p := &Pipeline{
		cfg:       cfg,
		log:       logger,
		metrics:   reg,
		raw:       raw,
		burstCh:   make(chan detector.Burst, queueDepth),
		downmixCh: make(chan *downmix.Frame, queueDepth),
		demodCh:   make(chan *demod.Frame, queueDepth),
	}

	det, err := detector.New(cfg, logger, p.emitBurst)
	if err != nil {
		return nil, err
	}
	det.SetEpoch(time.Now().UnixNano())
	p.det = det

	for i := 0; i < cfg.DownmixWorkers; i++ {
		dm, err := downmix.New(cfg.OutputSampleRateHz, cfg.SearchDepth)
		if err != nil {
			return nil, err
		}
		p.downmixers = append(p.downmixers, dm)
	}

	return p, nil
}

// emitBurst is the detector's callback: it enqueues a retired burst onto
// the downmix queue, counting a drop if the queue is full rather than
// blocking the detector (spec §5: the detector never blocks on downstream
// backpressure; it drops and counts instead).
func (p *Pipeline) emitBurst(b detector.Burst) {
	select {
	case p.burstCh <- b:
	default:
		p.det.Stats.QueueFullDropped.Add(1)
		if p.metrics != nil {
			p.metrics.QueueFullDropped.Inc()
		}
	}
}

// Run feeds samples into the detector and drives every downstream stage
// until ctx is cancelled or the samples channel closes, at which point it
// shuts the pipeline down producer-first: the sample feeder stops, then
// burstCh is closed once feeding completes, then downmixCh and demodCh
// close once their respective worker pools drain (spec §5: strict
// producer-first shutdown ordering).
func (p *Pipeline) Run(ctx context.Context, samples <-chan []complex64) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(p.burstCh)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case s, ok := <-samples:
				if !ok {
					return nil
				}
				p.det.Feed(s)
			}
		}
	})

	downmixDone := make(chan struct{})
	g.Go(func() error {
		defer close(downmixDone)
		dg, _ := errgroup.WithContext(ctx)
		for _, dm := range p.downmixers {
			dm := dm
			dg.Go(func() error {
				for b := range p.burstCh {
					frame, ok := dm.Process(b)
					if p.metrics != nil {
						if ok {
							p.metrics.DownmixAccepted.Inc()
						} else {
							p.metrics.DownmixRejected.Inc()
						}
					}
					if !ok {
						continue
					}
					select {
					case p.downmixCh <- frame:
					default:
						if p.metrics != nil {
							p.metrics.QueueFullDropped.Inc()
						}
					}
				}
				return nil
			})
		}
		return dg.Wait()
	})

	g.Go(func() error {
		<-downmixDone
		close(p.downmixCh)
		return nil
	})

	demodDone := make(chan struct{})
	g.Go(func() error {
		defer close(demodDone)
		for f := range p.downmixCh {
			out, ok := demod.Process(f, p.cfg.UseGardner)
			if p.metrics != nil {
				if ok {
					p.metrics.DemodAccepted.Inc()
					p.metrics.ObserveSNR(out.SNRdB)
				} else {
					p.metrics.DemodRejected.Inc()
				}
			}
			if !ok {
				continue
			}
			select {
			case p.demodCh <- out:
			default:
				if p.metrics != nil {
					p.metrics.QueueFullDropped.Inc()
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		<-demodDone
		close(p.demodCh)
		return nil
	})

	g.Go(func() error {
		for f := range p.demodCh {
			if p.raw != nil {
				if err := p.raw.Write(f); err != nil {
					p.log.Warn("pipeline: raw sink write failed", "err", err)
				}
			}
			p.decodeAndTrack(f)
		}
		return nil
	})

	g.Go(func() error {
		return p.statsLoop(ctx)
	})

	return g.Wait()
}

// decodeAndTrack runs frame and IDA decode on a demodulated frame and
// counts the result. Per-burst decode only: stitching consecutive IDA
// bursts into a reassembled higher-layer message is out of scope (spec §1
// Non-goals: the ACARS/SBD reassembler).
func (p *Pipeline) decodeAndTrack(f *demod.Frame) {
	if fr, ok := framedecode.Decode(f); ok {
		if p.metrics != nil {
			switch fr.Kind {
			case framedecode.KindIRA:
				p.metrics.FramesDecodedIRA.Inc()
			case framedecode.KindIBC:
				p.metrics.FramesDecodedIBC.Inc()
			}
		}
		return
	}
	if _, ok := framedecode.DecodeIDA(f); ok {
		if p.metrics != nil {
			p.metrics.FramesDecodedIDA.Inc()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.FramesUnmatched.Inc()
	}
}

// statsLoop logs and republishes the detector's atomic counters once per
// second until ctx is cancelled (spec §5: a dedicated stats thread).
func (p *Pipeline) statsLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var last [5]int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := &p.det.Stats
			p.log.Info("pipeline: stats",
				"frames", s.FramesProcessed.Load(),
				"bursts_emitted", s.BurstsEmitted.Load(),
				"bursts_dropped", s.BurstsDropped.Load(),
				"ring_underruns", s.RingUnderruns.Load(),
				"squelch_engaged", s.SquelchEngaged.Load(),
				"queue_full_dropped", s.QueueFullDropped.Load(),
			)
			cur := [5]int64{s.FramesProcessed.Load(), s.BurstsEmitted.Load(), s.BurstsDropped.Load(), s.RingUnderruns.Load(), s.SquelchEngaged.Load()}
			if m := p.metrics; m != nil {
				m.FramesProcessed.Add(float64(cur[0] - last[0]))
				m.BurstsEmitted.Add(float64(cur[1] - last[1]))
				m.BurstsDropped.Add(float64(cur[2] - last[2]))
				m.RingUnderruns.Add(float64(cur[3] - last[3]))
				m.SquelchEngaged.Add(float64(cur[4] - last[4]))
				m.QueueDepth.WithLabelValues("burst").Set(float64(len(p.burstCh)))
				m.QueueDepth.WithLabelValues("downmix").Set(float64(len(p.downmixCh)))
				m.QueueDepth.WithLabelValues("demod").Set(float64(len(p.demodCh)))
			}
			last = cur
		}
	}
}

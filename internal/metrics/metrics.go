// Package metrics exposes the pipeline's per-stage throughput and queue
// depth as Prometheus instruments (spec §5 Concurrency & Resource Model:
// statistics surfaced via atomics, here mirrored into exported gauges and
// counters for scraping).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"
)

// snrWindowSize bounds the rolling window DemodSNRMean is computed over.
const snrWindowSize = 256

// Registry groups every instrument the pipeline updates. Register it with
// a prometheus.Registerer once at startup.
type Registry struct {
	FramesProcessed  prometheus.Counter
	BurstsEmitted    prometheus.Counter
	BurstsDropped    prometheus.Counter
	RingUnderruns    prometheus.Counter
	SquelchEngaged   prometheus.Counter
	QueueFullDropped prometheus.Counter

	DownmixAccepted prometheus.Counter
	DownmixRejected prometheus.Counter

	DemodAccepted prometheus.Counter
	DemodRejected prometheus.Counter

	FramesDecodedIRA prometheus.Counter
	FramesDecodedIBC prometheus.Counter
	FramesDecodedIDA prometheus.Counter
	FramesUnmatched  prometheus.Counter

	QueueDepth   *prometheus.GaugeVec
	DemodSNRMean prometheus.Gauge

	snrMu     sync.Mutex
	snrWindow []float64
	snrCursor int
}

// New builds a Registry with the receiver's namespace/subsystem
// convention and registers every instrument with reg.
func New(reg prometheus.Registerer) *Registry {
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iridium_sniffer",
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(c)
		return c
	}

	r := &Registry{
		FramesProcessed:  counter("detector_frames_processed_total", "FFT frames processed by the burst detector"),
		BurstsEmitted:    counter("detector_bursts_emitted_total", "Bursts retired and handed to the downmix stage"),
		BurstsDropped:    counter("detector_bursts_dropped_total", "Bursts dropped before reaching the downmix stage"),
		RingUnderruns:    counter("detector_ring_underruns_total", "Burst IQ extractions that underran the ring buffer"),
		SquelchEngaged:   counter("detector_squelch_engaged_total", "Frames where the concurrent-burst squelch triggered"),
		QueueFullDropped: counter("pipeline_queue_full_dropped_total", "Records dropped because a downstream queue was full"),

		DownmixAccepted: counter("downmix_accepted_total", "Bursts that produced a downmixed frame"),
		DownmixRejected: counter("downmix_rejected_total", "Bursts rejected by the downmix stage"),

		DemodAccepted: counter("demod_accepted_total", "Downmixed frames that passed unique-word verification"),
		DemodRejected: counter("demod_rejected_total", "Downmixed frames rejected by unique-word verification"),

		FramesDecodedIRA: counter("framedecode_ira_total", "Frames classified as IRA ring-alert records"),
		FramesDecodedIBC: counter("framedecode_ibc_total", "Frames classified as IBC broadcast-control records"),
		FramesDecodedIDA: counter("framedecode_ida_total", "Frames classified as IDA data bursts"),
		FramesUnmatched:  counter("framedecode_unmatched_total", "Demodulated frames matching no known frame type"),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "iridium_sniffer",
			Name:      "pipeline_queue_depth",
			Help:      "Current depth of each inter-stage queue",
		}, []string{"stage"}),
		DemodSNRMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "iridium_sniffer",
			Name:      "demod_snr_db_mean",
			Help:      "Mean SNR, in dB, of the last 256 unique-word-verified frames",
		}),
	}
	reg.MustRegister(r.QueueDepth)
	reg.MustRegister(r.DemodSNRMean)
	return r
}

// ObserveSNR folds one frame's SNR (dB) into the rolling window and
// republishes its mean. Safe for concurrent use by multiple demod workers.
func (r *Registry) ObserveSNR(snrDB float64) {
	r.snrMu.Lock()
	defer r.snrMu.Unlock()

	if len(r.snrWindow) < snrWindowSize {
		r.snrWindow = append(r.snrWindow, snrDB)
	} else {
		r.snrWindow[r.snrCursor] = snrDB
		r.snrCursor = (r.snrCursor + 1) % snrWindowSize
	}
	r.DemodSNRMean.Set(stat.Mean(r.snrWindow, nil))
}

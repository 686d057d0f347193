// Command iridium-sniffer ingests raw IQ samples, detects Iridium bursts,
// demodulates them, and decodes IRA/IBC/IDA frames, writing RAW-format
// text lines to stdout (or a file) for downstream tooling (spec §6
// External Interfaces).
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/cemaxecuter/iridium-sniffer/internal/config"
	"github.com/cemaxecuter/iridium-sniffer/internal/iqsample"
	"github.com/cemaxecuter/iridium-sniffer/internal/metrics"
	"github.com/cemaxecuter/iridium-sniffer/internal/pipeline"
	"github.com/cemaxecuter/iridium-sniffer/internal/sink"
)

// ingestChunkSamples is how many IQ samples are read per feed iteration.
// Must be small enough that the detector sees bounded latency between
// ring-buffer writes and FFT processing.
const ingestChunkSamples = 1 << 16

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "iridium-sniffer:", err)
		os.Exit(1)
	}
}

func run() error {
	// First pass: pull out --config (if any), ignoring every other flag,
	// so we know which YAML file to layer defaults on top of before the
	// real flag set is built.
	preScan := pflag.NewFlagSet("iridium-sniffer-config-prescan", pflag.ContinueOnError)
	preScan.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	var configPath string
	preScan.StringVar(&configPath, "config", "", "YAML config file")
	if err := preScan.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("iridium-sniffer", pflag.ExitOnError)
	fs.String("config", "", "YAML config file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if err := cfg.Resolve(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	format, err := iqsample.ParseFormat(cfg.InputFormat)
	if err != nil {
		return err
	}

	input, closeInput, err := openInput(cfg.InputPath)
	if err != nil {
		return err
	}
	defer closeInput()

	output, closeOutput, err := openOutput(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer closeOutput()

	reg := prometheus.NewRegistry()
	metricsReg := metrics.New(reg)
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server failed", "err", err)
			}
		}()
		logger.Info("metrics listening", "addr", cfg.MetricsListen)
	}

	raw := sink.NewRawWriter(output, "")

	pl, err := pipeline.New(cfg, logger, metricsReg, raw)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples := make(chan []complex64, 4)
	go feedSamples(ctx, input, format, samples, logger)

	logger.Info("iridium-sniffer starting",
		"center_frequency_hz", cfg.CenterFrequencyHz,
		"sample_rate_hz", cfg.SampleRateHz,
		"fft_size", cfg.FFTSize,
		"input_format", format.String(),
	)

	return pl.Run(ctx, samples)
}

// feedSamples reads fixed-size chunks of raw IQ bytes from r, converts
// them, and pushes them onto out until EOF or ctx is cancelled.
func feedSamples(ctx context.Context, r io.Reader, format iqsample.Format, out chan<- []complex64, logger *log.Logger) {
	defer close(out)

	bytesPerSample := map[iqsample.Format]int{
		iqsample.FormatI8:  2,
		iqsample.FormatI16: 4,
		iqsample.FormatF32: 8,
	}[format]

	buf := make([]byte, ingestChunkSamples*bytesPerSample)
	br := bufio.NewReaderSize(r, len(buf))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := io.ReadFull(br, buf)
		if n > 0 {
			// Truncate to a whole number of samples (the final chunk of a
			// file may be short).
			usable := n - n%bytesPerSample
			if usable > 0 {
				samples, convErr := iqsample.ToComplex64(format, buf[:usable])
				if convErr != nil {
					logger.Warn("sample conversion failed", "err", convErr)
				} else {
					select {
					case out <- []complex64(samples):
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				logger.Warn("input read failed", "err", err)
			}
			return
		}
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	return bw, func() { bw.Flush(); f.Close() }, nil
}

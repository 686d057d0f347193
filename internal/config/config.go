// Package config holds the typed configuration surface for the receiver
// pipeline: defaults, YAML file loading, and CLI override registration.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Iridium channelization constants (external interfaces, §6).
const (
	BaseFrequencyHz = 1_616_000_000.0
	ChannelWidthHz  = 41_666.667
)

// Config is the full receiver configuration surface (spec §6). It is
// immutable after Resolve is called, per the design note restricting
// shared mutable state to atomics/queues/the FFT planner mutex/an
// immutable-after-init config struct.
type Config struct {
	CenterFrequencyHz    float64 `yaml:"center_frequency_hz"`
	SampleRateHz         float64 `yaml:"sample_rate_hz"`
	DetectionThresholdDB float64 `yaml:"detection_threshold_db"`
	FFTSize              int     `yaml:"fft_size"` // 0 = auto
	BurstPreRollSamples  int     `yaml:"burst_pre_roll_samples"`
	BurstPostRollSamples int     `yaml:"burst_post_roll_samples"`
	BurstWidthHz         float64 `yaml:"burst_width_hz"`
	MaxConcurrentBursts  int     `yaml:"max_concurrent_bursts"`
	MaxBurstLenSamples   int     `yaml:"max_burst_len_samples"`
	NoiseHistoryLength   int     `yaml:"noise_history_length"`
	OutputSampleRateHz   float64 `yaml:"output_sample_rate_hz"`
	SearchDepth          int     `yaml:"search_depth"`
	UseGPU               bool    `yaml:"use_gpu"`
	UseSIMD              bool    `yaml:"use_simd"`
	UseGardner           bool    `yaml:"use_gardner"`

	DownmixWorkers int `yaml:"downmix_workers"`

	InputPath     string `yaml:"input_path"`      // "" = stdin
	InputFormat   string `yaml:"input_format"`     // i8, i16, or f32
	OutputPath    string `yaml:"output_path"`      // "" = stdout
	MetricsListen string `yaml:"metrics_listen"`   // "" = metrics disabled
	LogLevel      string `yaml:"log_level"`

	resolved bool
}

// Default returns the configuration surface's documented defaults.
func Default() *Config {
	return &Config{
		CenterFrequencyHz:    1_622_000_000,
		SampleRateHz:         10_000_000,
		DetectionThresholdDB: 16,
		FFTSize:              0,
		BurstPostRollSamples: 0, // derived: sample_rate * 16ms
		BurstWidthHz:         40_000,
		MaxConcurrentBursts:  0, // derived: 80% of channel count
		MaxBurstLenSamples:   0, // derived: sample_rate * 90ms
		NoiseHistoryLength:   512,
		OutputSampleRateHz:   153_125, // nominal 6.125 sps at 25 ksym/s
		SearchDepth:          1,
		UseGPU:               false,
		UseSIMD:              true,
		UseGardner:           true,
		DownmixWorkers:       4,
		InputFormat:          "i16",
		LogLevel:             "info",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags wires pflag overrides for every field on top of whatever
// Load produced; call Parse on fs before Resolve.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&c.CenterFrequencyHz, "center-frequency-hz", c.CenterFrequencyHz, "capture center frequency in Hz")
	fs.Float64Var(&c.SampleRateHz, "sample-rate-hz", c.SampleRateHz, "capture sample rate in samples/sec")
	fs.Float64Var(&c.DetectionThresholdDB, "detection-threshold-db", c.DetectionThresholdDB, "burst detection threshold in dB above noise floor")
	fs.IntVar(&c.FFTSize, "fft-size", c.FFTSize, "detector FFT size (0 = auto)")
	fs.IntVar(&c.BurstPreRollSamples, "burst-pre-roll-samples", c.BurstPreRollSamples, "samples captured before burst start (0 = auto: 2*fft_size)")
	fs.IntVar(&c.BurstPostRollSamples, "burst-post-roll-samples", c.BurstPostRollSamples, "samples captured after burst end (0 = auto: 16ms)")
	fs.Float64Var(&c.BurstWidthHz, "burst-width-hz", c.BurstWidthHz, "expected burst bandwidth in Hz")
	fs.IntVar(&c.MaxConcurrentBursts, "max-concurrent-bursts", c.MaxConcurrentBursts, "squelch threshold (0 = auto: 80% of channel count)")
	fs.IntVar(&c.MaxBurstLenSamples, "max-burst-len-samples", c.MaxBurstLenSamples, "force-retire bursts longer than this many samples (0 = auto: 90ms)")
	fs.IntVar(&c.NoiseHistoryLength, "noise-history-length", c.NoiseHistoryLength, "number of FFT frames in the noise-floor baseline history")
	fs.Float64Var(&c.OutputSampleRateHz, "output-sample-rate-hz", c.OutputSampleRateHz, "downmix output sample rate in Hz")
	fs.IntVar(&c.SearchDepth, "search-depth", c.SearchDepth, "burst-start search window in output samples (0 = auto: one second)")
	fs.BoolVar(&c.UseGPU, "use-gpu", c.UseGPU, "GPU offload (accepted but has no effect: no GPU backend exists)")
	fs.BoolVar(&c.UseSIMD, "use-simd", c.UseSIMD, "vectorized DSP kernels (accepted but has no effect: kernels follow CPU features)")
	fs.BoolVar(&c.UseGardner, "use-gardner", c.UseGardner, "use Gardner timing recovery instead of integer-stride decimation")
	fs.IntVar(&c.DownmixWorkers, "downmix-workers", c.DownmixWorkers, "size of the downmix worker pool")
	fs.StringVar(&c.InputPath, "input", c.InputPath, "IQ capture file path (empty = stdin)")
	fs.StringVar(&c.InputFormat, "input-format", c.InputFormat, "IQ wire format: i8, i16, or f32")
	fs.StringVar(&c.OutputPath, "output", c.OutputPath, "RAW output file path (empty = stdout)")
	fs.StringVar(&c.MetricsListen, "metrics-listen", c.MetricsListen, "Prometheus metrics listen address (empty = disabled)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
}

// Resolve fills in every auto/derived field and validates ranges. It must
// be called exactly once before the config is handed to the pipeline.
func (c *Config) Resolve() error {
	if c.resolved {
		return nil
	}
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("config: sample_rate_hz must be positive")
	}
	if c.FFTSize == 0 {
		c.FFTSize = nearestPowerOfTwo(c.SampleRateHz / 1000)
	}
	if c.BurstPreRollSamples == 0 {
		c.BurstPreRollSamples = 2 * c.FFTSize
	}
	if c.BurstPostRollSamples == 0 {
		c.BurstPostRollSamples = int(c.SampleRateHz * 0.016)
	}
	if c.MaxBurstLenSamples == 0 {
		c.MaxBurstLenSamples = int(c.SampleRateHz * 0.090)
	}
	if c.MaxConcurrentBursts == 0 {
		channels := c.SampleRateHz / ChannelWidthHz
		c.MaxConcurrentBursts = int(0.8 * channels)
		if c.MaxConcurrentBursts < 1 {
			c.MaxConcurrentBursts = 1
		}
	}
	if c.DownmixWorkers <= 0 {
		c.DownmixWorkers = 4
	}
	c.resolved = true
	return nil
}

// nearestPowerOfTwo picks the power of two nearest to x (spec §4.A FFT sizing).
func nearestPowerOfTwo(x float64) int {
	if x <= 1 {
		return 1
	}
	lo := 1
	for lo*2 <= int(x) {
		lo *= 2
	}
	hi := lo * 2
	if float64(hi)-x < x-float64(lo) {
		return hi
	}
	return lo
}

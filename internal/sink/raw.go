// Package sink formats demodulated frames for output. RawWriter reproduces
// iridium-toolkit's RAW text line format so downstream tooling (iridium-toolkit
// itself, or anything built against it) can consume this receiver's output
// unmodified (spec §6 External Interfaces: RAW text format).
package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/cemaxecuter/iridium-sniffer/internal/demod"
)

// RawWriter serializes demodulated frames as:
//
//	RAW: <file_info> <ts_ms:012.4f> <freq_hz:010d> N:<mag:05.2f><noise:+06.2f>
//	     I:<id:011d> <conf:3d>% <level:.5f> <payload_syms:3d> <bits...>
//
// grounded on frame_output.c's frame_output_print. The relative timestamp
// is anchored to the whole second containing the first frame written.
type RawWriter struct {
	w        io.Writer
	fileInfo string

	mu          sync.Mutex
	initialized bool
	t0Nanos     int64
}

// NewRawWriter constructs a RawWriter. If fileInfo is empty, it is
// auto-generated from the first frame's timestamp ("i-<unix-seconds>-t1").
func NewRawWriter(w io.Writer, fileInfo string) *RawWriter {
	return &RawWriter{w: w, fileInfo: fileInfo}
}

// Write formats and emits one RAW line.
func (rw *RawWriter) Write(f *demod.Frame) error {
	rw.mu.Lock()
	if !rw.initialized {
		rw.t0Nanos = (f.TimestampNanos / 1_000_000_000) * 1_000_000_000
		if rw.fileInfo == "" {
			rw.fileInfo = fmt.Sprintf("i-%d-t1", rw.t0Nanos/1_000_000_000)
		}
		rw.initialized = true
	}
	t0 := rw.t0Nanos
	fileInfo := rw.fileInfo
	rw.mu.Unlock()

	tsMs := float64(f.TimestampNanos-t0) / 1_000_000.0
	freqHz := int(f.CenterFrequencyHz + 0.5)
	payloadSyms := f.PayloadSymbols
	if payloadSyms < 0 {
		payloadSyms = 0
	}

	var bits []byte
	for _, b := range f.Bits {
		bits = append(bits, '0'+b)
	}

	_, err := fmt.Fprintf(rw.w, "RAW: %s %012.4f %010d N:%05.2f%+06.2f I:%011d %3d%% %.5f %3d %s\n",
		fileInfo,
		tsMs,
		freqHz,
		f.SNRdB,
		f.NoiseDBHz,
		idToUint64(f.ID),
		f.ConfidencePct,
		f.Level,
		payloadSyms,
		bits,
	)
	return err
}

// idToUint64 derives a stable 64-bit value from a burst's UUID for the
// RAW format's fixed-width integer ID field.
func idToUint64(id [16]byte) uint64 {
	return binary.BigEndian.Uint64(id[:8])
}

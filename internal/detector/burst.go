// Package detector implements stage A: slides a windowed FFT across the
// input stream, tracks a noise-floor baseline per bin, and emits completed
// bursts (spec §4.A).
package detector

import "github.com/google/uuid"

// activeBurst tracks a burst between its first detection and retirement.
// Invariant (§3, §8 invariant 2): start <= lastActive <= currentIndex.
type activeBurst struct {
	id         uuid.UUID
	start      int64
	lastActive int64
	centerBin  int
	snrDB      float64
	noiseDBHz  float64
}

// Burst is the A->B burst record: metadata plus a freshly-allocated IQ
// buffer spanning [start, stop+preRoll] (spec §3 Burst record).
type Burst struct {
	ID                 uuid.UUID
	Start              int64
	Stop               int64
	CenterBin          int
	SNRdB              float64
	NoiseDBHz          float64
	CaptureCenterFreq  float64
	CaptureSampleRate  float64
	FFTSize            int
	WallClockBaseNanos int64
	IQ                 []complex64
}

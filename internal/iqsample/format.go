// Package iqsample normalizes the three IQ ingress wire formats (§6 IQ
// ingress) to hz.tools/sdr's complex-float sample type before ring-buffering.
package iqsample

import (
	"encoding/binary"
	"fmt"
	"math"

	"hz.tools/sdr"
)

// Format identifies the wire representation of an incoming IQ buffer.
type Format int

const (
	FormatI8 Format = iota
	FormatI16
	FormatF32
)

// ParseFormat maps a config/CLI format name ("i8", "i16", "f32") to a
// Format value.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "i8":
		return FormatI8, nil
	case "i16":
		return FormatI16, nil
	case "f32":
		return FormatF32, nil
	default:
		return 0, fmt.Errorf("iqsample: unknown input format %q", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatI8:
		return "i8-interleaved"
	case FormatI16:
		return "i16-interleaved"
	case FormatF32:
		return "f32-interleaved"
	default:
		return "unknown"
	}
}

// ToComplex64 converts a raw interleaved IQ byte buffer of the given format
// into hz.tools' canonical complex-sample slice. The caller's bytes are not
// retained; the consumer takes ownership of the returned buffer.
func ToComplex64(format Format, raw []byte) (sdr.SamplesC64, error) {
	switch format {
	case FormatI8:
		return convertI8(raw)
	case FormatI16:
		return convertI16(raw)
	case FormatF32:
		return convertF32(raw)
	default:
		return nil, fmt.Errorf("iqsample: unknown format %d", format)
	}
}

func convertI8(raw []byte) (sdr.SamplesC64, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("iqsample: i8 buffer length %d not a multiple of 2", len(raw))
	}
	n := len(raw) / 2
	out := make(sdr.SamplesC64, n)
	for i := 0; i < n; i++ {
		re := float32(int8(raw[2*i])) / 128.0
		im := float32(int8(raw[2*i+1])) / 128.0
		out[i] = complex(re, im)
	}
	return out, nil
}

func convertI16(raw []byte) (sdr.SamplesC64, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("iqsample: i16 buffer length %d not a multiple of 4", len(raw))
	}
	n := len(raw) / 4
	out := make(sdr.SamplesC64, n)
	for i := 0; i < n; i++ {
		re := int16(binary.LittleEndian.Uint16(raw[4*i:]))
		im := int16(binary.LittleEndian.Uint16(raw[4*i+2:]))
		out[i] = complex(float32(re)/32768.0, float32(im)/32768.0)
	}
	return out, nil
}

func convertF32(raw []byte) (sdr.SamplesC64, error) {
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("iqsample: f32 buffer length %d not a multiple of 8", len(raw))
	}
	n := len(raw) / 8
	out := make(sdr.SamplesC64, n)
	for i := 0; i < n; i++ {
		reBits := binary.LittleEndian.Uint32(raw[8*i:])
		imBits := binary.LittleEndian.Uint32(raw[8*i+4:])
		out[i] = complex(
			math.Float32frombits(reBits),
			math.Float32frombits(imBits),
		)
	}
	return out, nil
}

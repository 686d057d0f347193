// Package framedecode implements stage D: access-code verification,
// de-interleaving, BCH(31,21)/(7,3) error correction with Chase
// soft-decision fallback, and IRA/IBC classification and field extraction
// (spec §4.D).
package framedecode

import (
	"github.com/cemaxecuter/iridium-sniffer/internal/demod"
	"github.com/cemaxecuter/iridium-sniffer/internal/iridium"
)

// Kind identifies which structured record a decoded frame holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindIRA
	KindIBC
)

// Frame is the D-stage structured output: common framing metadata plus
// exactly one of IRA or IBC, selected by Kind (spec §3 Frame/IRA/IBC
// records).
type Frame struct {
	Kind           Kind
	TimestampNanos int64
	FrequencyHz    float64
	Direction      iridium.Direction
	SNRdB          float64

	IRA IRA
	IBC IBC
}

const ibcMaxBits = 262

// Decode classifies a demodulated frame as IBC or IRA and extracts its
// structured fields, or returns ok=false if neither access code nor
// either frame type's BCH+parity gate is satisfied (spec §4.D: try IBC
// first, then IRA; frame_decode.c's frame_decode).
func Decode(in *demod.Frame) (*Frame, bool) {
	if len(in.Bits) < 24 {
		return nil, false
	}
	direction, ok := matchAccessCode(in.Bits)
	if !ok {
		return nil, false
	}

	data := in.Bits[24:]
	var dataLLR []float32
	if in.LLR != nil && len(in.LLR) >= 24 {
		dataLLR = in.LLR[24:]
	}

	out := &Frame{
		TimestampNanos: in.TimestampNanos,
		FrequencyHz:    in.CenterFrequencyHz,
		Direction:      direction,
		SNRdB:          in.SNRdB,
	}

	if ibc, ok := decodeIBC(data, dataLLR); ok {
		out.Kind = KindIBC
		out.IBC = ibc
		return out, true
	}
	if ira, ok := decodeIRA(data, dataLLR); ok {
		out.Kind = KindIRA
		out.IRA = ira
		return out, true
	}
	return nil, false
}

// decodeIBC checks the BCH(7,3) header then Chase-decodes successive
// 64-bit blocks as long as both halves pass BCH+parity, per
// frame_decode.c's IBC branch.
func decodeIBC(data []byte, llr []float32) (IBC, bool) {
	if len(data) < 6+64 {
		return IBC{}, false
	}

	hdrVal, _, ok := correct(tables.hdr, bchPolyHdr, bitsToUint(data, 6))
	if !ok {
		return IBC{}, false
	}
	hdrData := make([]byte, 3)
	uintToBits(hdrVal>>4, hdrData, 3)
	bcType := extractUint(hdrData, 3)

	limit := len(data)
	if limit > ibcMaxBits {
		limit = ibcMaxBits
	}

	var bchStream []byte
	offset := 6
	for offset+64 <= limit {
		di1, di2 := deInterleave(data[offset : offset+64])
		var li1, li2 []float32
		if llr != nil && offset+64 <= len(llr) {
			li1, li2 = deInterleaveLLR(llr[offset : offset+64])
		}
		d1, c1, e1 := chaseBCH31(tables.ra, bchPolyRA, bchRAData, di1, li1)
		d2, c2, e2 := chaseBCH31(tables.ra, bchPolyRA, bchRAData, di2, li2)
		if e1 < 0 || e2 < 0 {
			break
		}
		if !checkParity32(di1, d1, c1) || !checkParity32(di2, d2, c2) {
			break
		}
		bchStream = append(bchStream, d1...)
		bchStream = append(bchStream, d2...)
		offset += 64
	}

	// The first 64-bit block must decode cleanly for IBC to be confirmed
	// at all; everything after is best-effort.
	if len(bchStream) < 2*bchRAData {
		return IBC{}, false
	}

	return parseIBC(bchStream, bcType), true
}

// decodeIRA Chase-decodes the first three 32-bit header blocks (via
// de_interleave3) and, if all three pass BCH+parity, continues decoding
// 64-bit blocks for as long as they verify, per frame_decode.c's IRA
// branch.
func decodeIRA(data []byte, llr []float32) (IRA, bool) {
	if len(data) < 96 {
		return IRA{}, false
	}

	ra1, ra2, ra3 := deInterleave3(data[:96])
	var la1, la2, la3 []float32
	if llr != nil && len(llr) >= 96 {
		la1, la2, la3 = deInterleave3LLR(llr[:96])
	}

	d1, c1, e1 := chaseBCH31(tables.ra, bchPolyRA, bchRAData, ra1, la1)
	d2, c2, e2 := chaseBCH31(tables.ra, bchPolyRA, bchRAData, ra2, la2)
	d3, c3, e3 := chaseBCH31(tables.ra, bchPolyRA, bchRAData, ra3, la3)
	if e1 < 0 || e2 < 0 || e3 < 0 {
		return IRA{}, false
	}
	if !checkParity32(ra1, d1, c1) || !checkParity32(ra2, d2, c2) || !checkParity32(ra3, d3, c3) {
		return IRA{}, false
	}

	bchStream := append(append(append([]byte{}, d1...), d2...), d3...)

	offset := 96
	for offset+64 <= len(data) {
		di1, di2 := deInterleave(data[offset : offset+64])
		var li1, li2 []float32
		if llr != nil && offset+64 <= len(llr) {
			li1, li2 = deInterleaveLLR(llr[offset : offset+64])
		}
		rd1, rc1, ea := chaseBCH31(tables.ra, bchPolyRA, bchRAData, di1, li1)
		rd2, rc2, eb := chaseBCH31(tables.ra, bchPolyRA, bchRAData, di2, li2)
		if ea < 0 || eb < 0 {
			break
		}
		if !checkParity32(di1, rd1, rc1) || !checkParity32(di2, rd2, rc2) {
			break
		}
		bchStream = append(bchStream, rd1...)
		bchStream = append(bchStream, rd2...)
		offset += 64
	}

	return parseIRA(bchStream), true
}

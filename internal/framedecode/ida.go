package framedecode

import (
	"github.com/cemaxecuter/iridium-sniffer/internal/demod"
	"github.com/cemaxecuter/iridium-sniffer/internal/iridium"
)

// IDABurst is a single decoded IDA (data) burst: a CRC-checked fragment of
// a possibly multi-burst higher-layer message (spec §3 IDA record, §4.D
// IDA payload decode).
type IDABurst struct {
	TimestampNanos int64
	FrequencyHz    float64
	Direction      iridium.Direction
	SNRdB          float64
	DACtr          int
	DALen          int
	Continuation   bool
	CRCOk          bool
	Payload        []byte
}

const ibcDAChunkCount = 4

// daChunkOrder reorders the four 31-bit BCH chunks extracted from a
// 124-bit block: b4, b2, b3, b1 (ida_decode.c's descramble_payload).
var daChunkOrder = [ibcDAChunkCount]int{3, 1, 2, 0}

// DecodeIDA detects and decodes an IDA data burst: access code, LCW with
// ft==2, then descrambled+BCH-corrected payload with a CRC-CCITT-FALSE
// check (spec §4.D; ida_decode.c's ida_decode).
func DecodeIDA(in *demod.Frame) (*IDABurst, bool) {
	if len(in.Bits) < 24+46+124 {
		return nil, false
	}
	direction, ok := matchAccessCode(in.Bits)
	if !ok {
		return nil, false
	}

	data := in.Bits[24:]
	l, ok := decodeLCW(data)
	if !ok || l.ft != 2 {
		return nil, false
	}

	payloadData := data[46:]
	bchStream := descramblePayload(payloadData, 512)
	if len(bchStream) < 196 {
		return nil, false
	}

	cont := bchStream[3] != 0
	daCtr := int(bchStream[5])<<2 | int(bchStream[6])<<1 | int(bchStream[7])
	daLen := int(bchStream[11])<<4 | int(bchStream[12])<<3 | int(bchStream[13])<<2 |
		int(bchStream[14])<<1 | int(bchStream[15])
	zero1 := int(bchStream[17])<<2 | int(bchStream[18])<<1 | int(bchStream[19])
	if zero1 != 0 || daLen > 20 {
		return nil, false
	}

	payload := make([]byte, 20)
	for i := 0; i < 20; i++ {
		var b byte
		for bit := 0; bit < 8; bit++ {
			b = (b << 1) | bchStream[20+i*8+bit]
		}
		payload[i] = b
	}

	crcOK := false
	if daLen > 0 {
		crcOK = verifyIDACRC(bchStream)
	}

	payloadLen := daLen
	if payloadLen == 0 {
		payloadLen = 20
	}

	return &IDABurst{
		TimestampNanos: in.TimestampNanos,
		FrequencyHz:    in.CenterFrequencyHz,
		Direction:      direction,
		SNRdB:          in.SNRdB,
		DACtr:          daCtr,
		DALen:          daLen,
		Continuation:   cont,
		CRCOk:          crcOK,
		Payload:        payload[:payloadLen],
	}, true
}

// verifyIDACRC packs the header bits, 12 zero padding bits, and the
// payload bits (excluding the trailing 4-bit stuffing) into bytes and
// checks the CRC-CCITT-FALSE trailer, per ida_decode.c's ida_decode CRC
// section.
func verifyIDACRC(bchStream []byte) bool {
	crcBits := 20 + 12 + (len(bchStream) - 20 - 4)
	crcBytes := crcBits / 8
	if crcBytes > 64 {
		return false
	}
	buf := make([]byte, 64)
	bitPos := 0

	for i := 0; i < 20; i++ {
		buf[bitPos/8] |= bchStream[i] << uint(7-bitPos%8)
		bitPos++
	}
	bitPos += 12
	for i := 20; i < len(bchStream)-4; i++ {
		buf[bitPos/8] |= bchStream[i] << uint(7-bitPos%8)
		bitPos++
	}

	return crcCCITT(buf[:(bitPos+7)/8]) == 0
}

// crcCCITT computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func crcCCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// descramblePayload processes data in 124-bit blocks: de-interleaves each
// into two 62-bit halves, concatenates into 124 bits, splits into four
// 31-bit BCH(31,20) codewords in b4/b2/b3/b1 order, and BCH-corrects each
// (no Chase fallback — the de-interleaved bit order here has no natural
// LLR to carry, matching ida_decode.c's descramble_payload which also
// only calls the standard decoder). Appends the leftover partial block's
// bits (after dropping each half's first bit) as extra 31-bit codewords.
// Stops at the first uncorrectable block.
func descramblePayload(data []byte, maxBch int) []byte {
	var bchStream []byte

	nFull := len(data) / 124
	remain := len(data) % 124

	for blk := 0; blk < nFull; blk++ {
		block := data[blk*124 : blk*124+124]
		half1, half2 := deInterleaveN(block, 62)

		combined := make([]byte, 0, 124)
		combined = append(combined, half1...)
		combined = append(combined, half2...)

		var chunks [ibcDAChunkCount][]byte
		chunks[0] = combined[0:31]
		chunks[1] = combined[31:62]
		chunks[2] = combined[62:93]
		chunks[3] = combined[93:124]

		done := false
		for _, idx := range daChunkOrder {
			if len(bchStream)+bchDAData > maxBch {
				break
			}
			val := bitsToUint(chunks[idx], 31)
			corrected, _, ok := correct(tables.da, bchPolyDA, val)
			if !ok {
				done = true
				break
			}
			dataBits := make([]byte, bchDAData)
			uintToBits(corrected>>bchDASyn, dataBits, bchDAData)
			bchStream = append(bchStream, dataBits...)
		}
		if done {
			return bchStream
		}
	}

	if remain >= 4 && len(bchStream)+2*(remain/2-1) <= maxBch {
		nSymLast := remain / 2
		h1, h2 := deInterleaveN(data[nFull*124:], nSymLast)
		halfLen := nSymLast
		if halfLen > 1 && len(bchStream)+bchDAData <= maxBch {
			var combined []byte
			for i := 1; i < halfLen && i < len(h2); i++ {
				combined = append(combined, h2[i])
			}
			for i := 1; i < halfLen && i < len(h1); i++ {
				combined = append(combined, h1[i])
			}

			pos := 0
			for pos+31 <= len(combined) && len(bchStream)+bchDAData <= maxBch {
				val := bitsToUint(combined[pos:pos+31], 31)
				corrected, _, ok := correct(tables.da, bchPolyDA, val)
				if !ok {
					break
				}
				dataBits := make([]byte, bchDAData)
				uintToBits(corrected>>bchDASyn, dataBits, bchDAData)
				bchStream = append(bchStream, dataBits...)
				pos += 31
			}
		}
	}

	return bchStream
}

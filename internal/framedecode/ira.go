package framedecode

import "github.com/cemaxecuter/iridium-sniffer/internal/geo"

// IRAPage is one paging block within an IRA ring-alert frame.
type IRAPage struct {
	TMSI  uint32
	MSCID int
}

// IRA is a decoded ring-alert frame: satellite identity, beam, the
// satellite's own position, and zero or more paging blocks (spec §3 IRA
// record, §4.D IRA fields).
type IRA struct {
	SatID    int
	BeamID   int
	Position geo.Position
	Pages    []IRAPage
}

// parseIRA reads the 63-bit IRA header (satellite/beam ID + XYZ position)
// followed by zero or more 42-bit paging blocks, terminated by either an
// all-ones block or running out of bits (max 12 pages). Grounded on
// frame_decode.c's parse_ira.
func parseIRA(bchData []byte) IRA {
	var ira IRA
	if len(bchData) < 63 {
		return ira
	}

	ira.SatID = extractUint(bchData[0:], 7)
	ira.BeamID = extractUint(bchData[7:], 6)

	x := extractSigned12(bchData[13:])
	y := extractSigned12(bchData[25:])
	z := extractSigned12(bchData[37:])
	ira.Position = geo.FromXYZ4km(x, y, z)

	offset := 63
	for offset+42 <= len(bchData) && len(ira.Pages) < 12 {
		page := bchData[offset : offset+42]

		allOnes := true
		for _, b := range page {
			if b == 0 {
				allOnes = false
				break
			}
		}
		if allOnes {
			break
		}

		var tmsi uint32
		for i := 0; i < 32; i++ {
			tmsi = (tmsi << 1) | uint32(page[i])
		}
		ira.Pages = append(ira.Pages, IRAPage{
			TMSI:  tmsi,
			MSCID: extractUint(page[34:], 5),
		})
		offset += 42
	}
	return ira
}

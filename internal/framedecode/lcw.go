package framedecode

// lcwPerm is the 46-entry, 1-indexed LCW de-interleave permutation table
// (spec §4.D LCW decode; ida_decode.c's lcw_perm, from iridium-toolkit).
var lcwPerm = [46]int{
	40, 39, 36, 35, 32, 31, 28, 27, 24, 23,
	20, 19, 16, 15, 12, 11, 8, 7, 4, 3,
	41, 38, 37, 34, 33, 30, 29, 26, 25, 22,
	21, 18, 17, 14, 13, 10, 9, 6, 5, 2,
	1, 46, 45, 44, 43, 42,
}

// lcw is a decoded Link Control Word: only the format-type (ft) field is
// used by the IDA detector (ft==2 selects an IDA payload), so that's all
// this carries.
type lcw struct {
	ft int
}

// decodeLCW applies the pair-swap the global symbol_reverse would have
// applied upstream (explicit here since de-interleave elsewhere skips it,
// see interleave.go), then the 46-entry permutation, then BCH-corrects its
// three constituent sub-codewords (spec §4.D LCW decode; ida_decode.c's
// decode_lcw).
func decodeLCW(data []byte) (lcw, bool) {
	if len(data) < 46 {
		return lcw{}, false
	}

	swapped := make([]byte, 46)
	for i := 0; i < 46; i += 2 {
		swapped[i] = data[i+1]
		swapped[i+1] = data[i]
	}

	bits := make([]byte, 46)
	for i := 0; i < 46; i++ {
		bits[i] = swapped[lcwPerm[i]-1]
	}

	v1, _, ok := correct(tables.lcw1, bchPolyLCW1, bitsToUint(bits[0:7], 7))
	if !ok {
		return lcw{}, false
	}
	ft := int(v1>>4) & 0x7

	v2 := bitsToUint(bits[7:20], 13) << 1
	if _, _, ok := correct(tables.lcw2, bchPolyLCW2, v2); !ok {
		return lcw{}, false
	}

	v3 := bitsToUint(bits[20:46], 26)
	if _, _, ok := correct(tables.lcw3, bchPolyLCW3, v3); !ok {
		return lcw{}, false
	}

	return lcw{ft: ft}, true
}

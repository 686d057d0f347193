package framedecode

// De-interleaving permutations (spec §4.D de-interleave).
//
// iridium-toolkit applies a global pair-swap (symbol_reverse) to the raw
// bitstream before de-interleaving, and de-interleave has its own internal
// pair-swap; the two cancel. This decoder never applies the upstream
// swap, so these permutations skip their internal one too and land on the
// same net result (resolved Open Question: the no-pair-swap reading is
// the one that reproduces iridium-toolkit's bit order).

// deInterleave splits 64 bits (32 symbols) into two 32-bit streams: odd
// symbol indices in reverse order, then even symbol indices in reverse
// order.
func deInterleave(in []byte) (out1, out2 []byte) {
	out1 = make([]byte, 32)
	out2 = make([]byte, 32)
	p := 0
	for s := 31; s >= 1; s -= 2 {
		out1[p] = in[2*s]
		out1[p+1] = in[2*s+1]
		p += 2
	}
	p = 0
	for s := 30; s >= 0; s -= 2 {
		out2[p] = in[2*s]
		out2[p+1] = in[2*s+1]
		p += 2
	}
	return out1, out2
}

// deInterleaveLLR applies the same permutation as deInterleave to
// per-bit reliability scores, so Chase decoding sees the right ordering.
func deInterleaveLLR(in []float32) (out1, out2 []float32) {
	out1 = make([]float32, 32)
	out2 = make([]float32, 32)
	p := 0
	for s := 31; s >= 1; s -= 2 {
		out1[p] = in[2*s]
		out1[p+1] = in[2*s+1]
		p += 2
	}
	p = 0
	for s := 30; s >= 0; s -= 2 {
		out2[p] = in[2*s]
		out2[p+1] = in[2*s+1]
		p += 2
	}
	return out1, out2
}

// deInterleave3 splits 96 bits (48 symbols) into three 32-bit streams with
// reverse stride-3 symbol order.
func deInterleave3(in []byte) (out1, out2, out3 []byte) {
	out1 = make([]byte, 32)
	out2 = make([]byte, 32)
	out3 = make([]byte, 32)
	p1, p2, p3 := 0, 0, 0
	for s := 47; s >= 2; s -= 3 {
		out1[p1] = in[2*s]
		out1[p1+1] = in[2*s+1]
		p1 += 2
	}
	for s := 46; s >= 1; s -= 3 {
		out2[p2] = in[2*s]
		out2[p2+1] = in[2*s+1]
		p2 += 2
	}
	for s := 45; s >= 0; s -= 3 {
		out3[p3] = in[2*s]
		out3[p3+1] = in[2*s+1]
		p3 += 2
	}
	return out1, out2, out3
}

// deInterleave3LLR is deInterleave3's reliability-score counterpart.
func deInterleave3LLR(in []float32) (out1, out2, out3 []float32) {
	out1 = make([]float32, 32)
	out2 = make([]float32, 32)
	out3 = make([]float32, 32)
	p1, p2, p3 := 0, 0, 0
	for s := 47; s >= 2; s -= 3 {
		out1[p1] = in[2*s]
		out1[p1+1] = in[2*s+1]
		p1 += 2
	}
	for s := 46; s >= 1; s -= 3 {
		out2[p2] = in[2*s]
		out2[p2+1] = in[2*s+1]
		p2 += 2
	}
	for s := 45; s >= 0; s -= 3 {
		out3[p3] = in[2*s]
		out3[p3+1] = in[2*s+1]
		p3 += 2
	}
	return out1, out2, out3
}

// deInterleaveN generalizes deInterleave to nSym symbols (2*nSym bits),
// used by the IDA payload descrambler for its 62- and final partial-block
// symbol counts. For an odd nSym, symbol 0 is copied to neither output, so
// the two outputs together hold 2*(nSym-1) bits.
func deInterleaveN(in []byte, nSym int) (out1, out2 []byte) {
	out1 = make([]byte, nSym)
	out2 = make([]byte, nSym)
	p := 0
	for s := nSym - 1; s >= 1; s -= 2 {
		out1[p] = in[2*s]
		out1[p+1] = in[2*s+1]
		p += 2
	}
	p2 := 0
	for s := nSym - 2; s >= 0; s -= 2 {
		out2[p2] = in[2*s]
		out2[p2+1] = in[2*s+1]
		p2 += 2
	}
	return out1[:p], out2[:p2]
}

package bibtex

import (
	"encoding/binary"
	"math/bits"
)

const (
	swarLo = 0x0101010101010101
	swarHi = 0x8080808080808080
)

func broadcast(c byte) uint64 { return swarLo * uint64(c) }

// swarEq flags the high bit of every byte of w equal to the byte in pat.
// Bits above the lowest flagged byte may be false positives, so callers only
// ever read the lowest one.
func swarEq(w, pat uint64) uint64 {
	x := w ^ pat
	return (x - swarLo) &^ x & swarHi
}

func swarIndex2(s string, a, b byte) (int, byte) {
	p := bytesOf(s)
	pa, pb := broadcast(a), broadcast(b)
	i := 0
	for ; i+8 <= len(p); i += 8 {
		w := binary.LittleEndian.Uint64(p[i:])
		if m := swarEq(w, pa) | swarEq(w, pb); m != 0 {
			j := i + bits.TrailingZeros64(m)>>3
			return j, p[j]
		}
	}
	for ; i < len(p); i++ {
		if p[i] == a || p[i] == b {
			return i, p[i]
		}
	}
	return -1, 0
}

func swarIndex3(s string, a, b, c byte) (int, byte) {
	p := bytesOf(s)
	pa, pb, pc := broadcast(a), broadcast(b), broadcast(c)
	i := 0
	for ; i+8 <= len(p); i += 8 {
		w := binary.LittleEndian.Uint64(p[i:])
		if m := swarEq(w, pa) | swarEq(w, pb) | swarEq(w, pc); m != 0 {
			j := i + bits.TrailingZeros64(m)>>3
			return j, p[j]
		}
	}
	for ; i < len(p); i++ {
		if p[i] == a || p[i] == b || p[i] == c {
			return i, p[i]
		}
	}
	return -1, 0
}

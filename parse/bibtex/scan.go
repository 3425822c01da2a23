package bibtex

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// =========================
// Delimiter Scanner
// =========================

// Structural bytes of the grammar. The frequent set ({ } ,) dominates real
// bibliographies; the infrequent set (@ =) is only consulted in the prefix
// before the first frequent hit.
const (
	AT        byte = '@'
	LBRACE    byte = '{'
	RBRACE    byte = '}'
	LPAREN    byte = '('
	RPAREN    byte = ')'
	COMMA     byte = ','
	EQUAL     byte = '='
	QUOTE     byte = '"'
	HASH      byte = '#'
	PERCENT   byte = '%'
	BACKSLASH byte = '\\'
)

type scanStrategy uint8

const (
	// strategyIndex narrows successive strings.IndexByte calls over bounded
	// blocks. IndexByte is vectorized by the runtime on AVX2/ASIMD hardware.
	strategyIndex scanStrategy = iota
	// strategySWAR tests eight bytes per step inside a uint64.
	strategySWAR
)

// indexBlock bounds how far one IndexByte call may run past a hit of a
// sibling needle.
const indexBlock = 512

var activeStrategy = detectStrategy()

func detectStrategy() scanStrategy {
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		return strategyIndex
	}
	return strategySWAR
}

// ScanStrategy names the scanning strategy picked for this CPU.
func ScanStrategy() string {
	if activeStrategy == strategySWAR {
		return "swar"
	}
	return "index"
}

// FindDelimiter returns the offset and value of the first '@', '{', '}', '='
// or ',' in s at or after start. It returns -1 and 0 when none remains.
func FindDelimiter(s string, start int) (int, byte) {
	if start < 0 || start >= len(s) {
		return -1, 0
	}
	rest := s[start:]
	i, c := find3(rest, LBRACE, RBRACE, COMMA)
	window := rest
	if i >= 0 {
		window = rest[:i]
	}
	if j, d := find2(window, AT, EQUAL); j >= 0 {
		return start + j, d
	}
	if i < 0 {
		return -1, 0
	}
	return start + i, c
}

// FindBraceDelimiter finds the next '{', '}' or '\' at or after start. It
// drives balanced-brace scanning, where nothing else is structural.
func FindBraceDelimiter(s string, start int) (int, byte) {
	if start < 0 || start >= len(s) {
		return -1, 0
	}
	i, c := find3(s[start:], LBRACE, RBRACE, BACKSLASH)
	if i < 0 {
		return -1, 0
	}
	return start + i, c
}

// FindQuoteDelimiter finds the next '"', '{', '}' or '\' at or after start.
// Braces are reported so the caller can track depth inside a quoted value.
func FindQuoteDelimiter(s string, start int) (int, byte) {
	if start < 0 || start >= len(s) {
		return -1, 0
	}
	rest := s[start:]
	i, c := find3(rest, QUOTE, LBRACE, BACKSLASH)
	window := rest
	if i >= 0 {
		window = rest[:i]
	}
	if j := find1(window, RBRACE); j >= 0 {
		return start + j, RBRACE
	}
	if i < 0 {
		return -1, 0
	}
	return start + i, c
}

// FindByte returns the offset of the first c at or after start, or -1.
func FindByte(s string, c byte, start int) int {
	if start < 0 || start >= len(s) {
		return -1
	}
	if i := find1(s[start:], c); i >= 0 {
		return start + i
	}
	return -1
}

// FindBytes2 returns the first of a or b at or after start.
func FindBytes2(s string, a, b byte, start int) (int, byte) {
	if start < 0 || start >= len(s) {
		return -1, 0
	}
	i, c := find2(s[start:], a, b)
	if i < 0 {
		return -1, 0
	}
	return start + i, c
}

// FindBytes3 returns the first of a, b or c at or after start.
func FindBytes3(s string, a, b, c byte, start int) (int, byte) {
	if start < 0 || start >= len(s) {
		return -1, 0
	}
	i, d := find3(s[start:], a, b, c)
	if i < 0 {
		return -1, 0
	}
	return start + i, d
}

func find1(s string, a byte) int {
	return strings.IndexByte(s, a)
}

func find2(s string, a, b byte) (int, byte) {
	if activeStrategy == strategySWAR {
		return swarIndex2(s, a, b)
	}
	return blockIndex2(s, a, b)
}

func find3(s string, a, b, c byte) (int, byte) {
	if activeStrategy == strategySWAR {
		return swarIndex3(s, a, b, c)
	}
	return blockIndex3(s, a, b, c)
}

func blockIndex2(s string, a, b byte) (int, byte) {
	for base := 0; base < len(s); base += indexBlock {
		block := s[base:min(base+indexBlock, len(s))]
		best, hit := -1, byte(0)
		if i := strings.IndexByte(block, a); i >= 0 {
			best, hit, block = i, a, block[:i]
		}
		if i := strings.IndexByte(block, b); i >= 0 {
			best, hit = i, b
		}
		if best >= 0 {
			return base + best, hit
		}
	}
	return -1, 0
}

func blockIndex3(s string, a, b, c byte) (int, byte) {
	for base := 0; base < len(s); base += indexBlock {
		block := s[base:min(base+indexBlock, len(s))]
		best, hit := -1, byte(0)
		if i := strings.IndexByte(block, a); i >= 0 {
			best, hit, block = i, a, block[:i]
		}
		if i := strings.IndexByte(block, b); i >= 0 {
			best, hit, block = i, b, block[:i]
		}
		if i := strings.IndexByte(block, c); i >= 0 {
			best, hit = i, c
		}
		if best >= 0 {
			return base + best, hit
		}
	}
	return -1, 0
}

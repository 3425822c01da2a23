package bibtex

import "strings"

// =========================
// Chunk Splitter
// =========================

// Chunk is the half-open byte range [Start, End) of the input parsed by one
// worker.
type Chunk struct {
	Start int
	End   int
}

func (c Chunk) Len() int { return c.End - c.Start }

type SplitOptions struct {
	// MinChunkSize is the smallest chunk worth a worker.
	MinChunkSize int
	// SearchWindow bounds the search for a record start on each side of an
	// ideal split point.
	SearchWindow int
}

func (o SplitOptions) withDefaults() SplitOptions {
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = DefaultMinChunkSize
	}
	if o.SearchWindow <= 0 {
		o.SearchWindow = DefaultSearchWindow
	}
	return o
}

// SplitChunks partitions src into at most n contiguous chunks that start at
// record boundaries. Chunks cover src exactly and are in input order.
//
// When src is large enough to split but contains no usable boundary at all,
// SplitChunks returns the whole input as one chunk together with an error
// matching ErrChunkBoundary.
func SplitChunks(src string, n int, opts SplitOptions) ([]Chunk, error) {
	opts = opts.withDefaults()
	whole := []Chunk{{Start: 0, End: len(src)}}
	n = min(n, len(src)/opts.MinChunkSize)
	if n <= 1 {
		return whole, nil
	}
	size := len(src) / n
	chunks := make([]Chunk, 0, n)
	prev := 0
	for k := 1; k < n; k++ {
		lo := prev + opts.MinChunkSize
		ideal := max(k*size, lo)
		if ideal >= len(src) {
			break
		}
		b, ok := nearestBoundary(src, ideal, lo, opts.SearchWindow)
		if !ok {
			break
		}
		chunks = append(chunks, Chunk{Start: prev, End: b})
		prev = b
	}
	if len(chunks) == 0 {
		return whole, errAt(KindChunkBoundary, 0, "no record boundary found to split %d bytes into %d chunks", len(src), n)
	}
	return append(chunks, Chunk{Start: prev, End: len(src)}), nil
}

// nearestBoundary looks for the record start closest to ideal within
// [max(lo, ideal-window), ideal+window). Failing that it takes the first
// record start after the window.
func nearestBoundary(src string, ideal, lo, window int) (int, bool) {
	backLo := max(lo, ideal-window)
	fwdHi := min(len(src), ideal+window)

	back := -1
	for hi := ideal; hi > backLo; {
		i := strings.LastIndexByte(src[backLo:hi], AT)
		if i < 0 {
			break
		}
		cand := backLo + i
		if isRecordStart(src, cand) {
			back = cand
			break
		}
		hi = cand
	}
	fwd := nextRecordStart(src, ideal, fwdHi)

	switch {
	case back >= 0 && fwd >= 0:
		if fwd-ideal < ideal-back {
			return fwd, true
		}
		return back, true
	case back >= 0:
		return back, true
	case fwd >= 0:
		return fwd, true
	}
	if fwd = nextRecordStart(src, fwdHi, len(src)); fwd >= 0 {
		return fwd, true
	}
	return 0, false
}

func nextRecordStart(src string, from, to int) int {
	for from < to {
		i := strings.IndexByte(src[from:to], AT)
		if i < 0 {
			return -1
		}
		cand := from + i
		if cand > 0 && isRecordStart(src, cand) {
			return cand
		}
		from = cand + 1
	}
	return -1
}

// isRecordStart reports whether the '@' at i opens a record at the top level
// as far as local context can tell: it is the first non-blank byte of its
// line and is followed by a type name and '{' or '('. A '@' of that shape
// inside a multi-line braced or quoted value leaves the preceding chunk
// unterminated, which the coordinator detects.
func isRecordStart(src string, i int) bool {
	for j := i - 1; ; j-- {
		if j < 0 || src[j] == '\n' {
			break
		}
		if c := src[j]; c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	k := i + 1
	for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
		k++
	}
	start := k
	for k < len(src) && isIdent(src[k]) {
		k++
	}
	if k == start {
		return false
	}
	for k < len(src) && isSpace(src[k]) {
		k++
	}
	return k < len(src) && (src[k] == LBRACE || src[k] == LPAREN)
}

package bibtex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies a ParseError.
type ErrorKind uint8

const (
	// KindLexical: unterminated brace or quote, bad character, bad number.
	KindLexical ErrorKind = iota + 1
	// KindStructural: missing '=', missing key, empty type, unclosed record.
	KindStructural
	// KindChunkBoundary: the input has no record boundary to split at.
	KindChunkBoundary
	KindUndefinedVariable
	KindCircularReference
	// KindInternal wraps a recovered panic.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindStructural:
		return "structural"
	case KindChunkBoundary:
		return "chunk boundary"
	case KindUndefinedVariable:
		return "undefined variable"
	case KindCircularReference:
		return "circular reference"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

var (
	ErrLexical           = errors.New("bibtex: lexical error")
	ErrStructural        = errors.New("bibtex: structural error")
	ErrChunkBoundary     = errors.New("bibtex: no valid chunk boundary")
	ErrUndefinedVariable = errors.New("bibtex: undefined string variable")
	ErrCircularReference = errors.New("bibtex: circular string definition")
	ErrInternal          = errors.New("bibtex: internal error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindLexical:
		return ErrLexical
	case KindStructural:
		return ErrStructural
	case KindChunkBoundary:
		return ErrChunkBoundary
	case KindUndefinedVariable:
		return ErrUndefinedVariable
	case KindCircularReference:
		return ErrCircularReference
	case KindInternal:
		return ErrInternal
	}
	return nil
}

// ParseError reports where and why parsing failed. Line and Column are
// 1-based; Column counts runes.
type ParseError struct {
	Kind    ErrorKind
	Offset  int
	Line    int
	Column  int
	Message string
	// Snippet is the input text around Offset.
	Snippet string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bibtex:%d:%d: %s", e.Line, e.Column, e.Message)
}

// Is matches the sentinel of the error's kind.
func (e *ParseError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (e *ParseError) Unwrap() error { return e.Cause }

func errAt(kind ErrorKind, off int, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Offset: off, Message: fmt.Sprintf(format, args...)}
}

// locate fills in line, column and snippet from the full input.
func (e *ParseError) locate(src string) {
	pos := positionAt(src, e.Offset)
	e.Line, e.Column = pos.Line, pos.Column
	e.Snippet = snippet(src, e.Offset)
}

const snippetRadius = 20

func snippet(src string, off int) string {
	off = max(0, min(off, len(src)))
	lo, hi := max(0, off-snippetRadius), min(len(src), off+snippetRadius)
	for lo > 0 && !utf8.RuneStart(src[lo]) {
		lo--
	}
	for hi < len(src) && !utf8.RuneStart(src[hi]) {
		hi++
	}
	s := src[lo:hi]
	if i := strings.LastIndexByte(s[:off-lo], '\n'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r")
}

// =========================
// Positions
// =========================

// Position is a 1-based line/column location. Column counts runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

func positionAt(src string, off int) Position {
	off = max(0, min(off, len(src)))
	start := strings.LastIndexByte(src[:off], '\n') + 1
	return Position{
		Offset: off,
		Line:   strings.Count(src[:start], "\n") + 1,
		Column: utf8.RuneCountInString(src[start:off]) + 1,
	}
}

// lineTable answers repeated position queries with a binary search over
// line starts.
type lineTable struct {
	src    string
	starts []int
}

func newLineTable(src string) *lineTable {
	starts := make([]int, 1, strings.Count(src, "\n")+1)
	for i := 0; ; {
		j := FindByte(src, '\n', i)
		if j < 0 {
			break
		}
		starts = append(starts, j+1)
		i = j + 1
	}
	return &lineTable{src: src, starts: starts}
}

func (t *lineTable) position(off int) Position {
	off = max(0, min(off, len(t.src)))
	line := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > off }) - 1
	start := t.starts[line]
	return Position{Offset: off, Line: line + 1, Column: utf8.RuneCountInString(t.src[start:off]) + 1}
}

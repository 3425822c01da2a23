package bibtex

import (
	"strings"
	"unsafe"
)

// viewString returns a string sharing memory with b. b must not change
// afterwards.
func viewString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// bytesOf is the read-only inverse of viewString.
func bytesOf(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// within reports whether sub points into the memory of src.
func within(sub, src string) bool {
	if len(sub) == 0 || len(src) == 0 {
		return false
	}
	lo := uintptr(unsafe.Pointer(unsafe.StringData(src)))
	p := uintptr(unsafe.Pointer(unsafe.StringData(sub)))
	return p >= lo && p+uintptr(len(sub)) <= lo+uintptr(len(src))
}

// lower folds ASCII case. strings.ToLower already returns s unchanged when
// there is nothing to fold.
func lower(s string) string { return strings.ToLower(s) }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// identClass marks bytes allowed in entry types, keys of fields, and string
// variable names: everything except whitespace, control bytes and the
// grammar's punctuation.
var identClass = func() (t [256]bool) {
	for c := 0x21; c < 0x7f; c++ {
		t[c] = true
	}
	for c := 0x80; c < 0x100; c++ {
		t[c] = true
	}
	for _, c := range []byte(`"#%'(),={}@`) {
		t[c] = false
	}
	return t
}()

func isIdent(c byte) bool { return identClass[c] }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// shrink returns s with cap == len, copying only when there is slack.
func shrink[T any](s []T) []T {
	if cap(s) == len(s) {
		return s
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// offsetOf returns the offset of sub within src when sub is a view into it.
func offsetOf(sub, src string) (int, bool) {
	if !within(sub, src) {
		return 0, false
	}
	lo := uintptr(unsafe.Pointer(unsafe.StringData(src)))
	return int(uintptr(unsafe.Pointer(unsafe.StringData(sub))) - lo), true
}

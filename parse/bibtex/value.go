package bibtex

import (
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindLiteral ValueKind = iota
	KindNumber
	KindVariable
	KindConcat
)

func (k ValueKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindNumber:
		return "number"
	case KindVariable:
		return "variable"
	case KindConcat:
		return "concat"
	default:
		return "unknown"
	}
}

// Value is a field or string-definition value.
//
// Literal and Variable carry their text in place. Concat keeps its operands
// behind a pointer so that the three common variants stay small. A literal
// whose text was cut straight out of the input is "borrowed"; one built from
// new bytes (concatenation, normalization) is owned.
type Value struct {
	text  string
	parts *[]Value
	num   int64
	kind  ValueKind
	owned bool
}

// NewLiteral returns an owned literal.
func NewLiteral(s string) Value { return Value{kind: KindLiteral, text: s, owned: true} }

// viewLiteral wraps text sliced from the input.
func viewLiteral(s string) Value { return Value{kind: KindLiteral, text: s} }

func NewNumber(n int64) Value { return Value{kind: KindNumber, num: n} }

func NewVariable(name string) Value { return Value{kind: KindVariable, text: name} }

// NewConcat joins parts in order. The parts are copied.
func NewConcat(parts ...Value) Value {
	p := make([]Value, len(parts))
	copy(p, parts)
	return Value{kind: KindConcat, parts: &p}
}

func (v Value) Kind() ValueKind { return v.kind }

// Text returns the literal text or the variable name.
func (v Value) Text() string { return v.text }

// Int returns the number held by a KindNumber value.
func (v Value) Int() (int64, bool) { return v.num, v.kind == KindNumber }

// Parts returns the operands of a concatenation.
func (v Value) Parts() []Value {
	if v.parts == nil {
		return nil
	}
	return *v.parts
}

// Borrowed reports whether the literal text is a view into the parsed input.
func (v Value) Borrowed() bool {
	return v.kind == KindLiteral && !v.owned && v.text != ""
}

// String renders the value as plain text: literals as is, numbers in decimal,
// unresolved variables by name, concatenations as the joined operands.
func (v Value) String() string {
	switch v.kind {
	case KindLiteral, KindVariable:
		return v.text
	case KindNumber:
		return strconv.FormatInt(v.num, 10)
	case KindConcat:
		var sb strings.Builder
		for _, p := range v.Parts() {
			sb.WriteString(p.String())
		}
		return sb.String()
	}
	return ""
}

// Source renders the value in BibTeX syntax.
func (v Value) Source() string {
	switch v.kind {
	case KindLiteral:
		return "{" + v.text + "}"
	case KindNumber:
		return strconv.FormatInt(v.num, 10)
	case KindVariable:
		return v.text
	case KindConcat:
		parts := v.Parts()
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = p.Source()
		}
		return strings.Join(out, " # ")
	}
	return ""
}

// Equal compares kind and content. Ownership is ignored.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindConcat:
		a, b := v.Parts(), o.Parts()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	default:
		return v.text == o.text
	}
}

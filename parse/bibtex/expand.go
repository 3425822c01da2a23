package bibtex

import (
	"slices"
	"strconv"
	"strings"
)

// =========================
// Value Expander
// =========================

// UndefinedPolicy decides what a reference to an unknown string variable
// becomes.
type UndefinedPolicy uint8

const (
	// UndefinedKeep leaves the reference as a Variable value and records a
	// Warning. Its String() is the variable name.
	UndefinedKeep UndefinedPolicy = iota
	// UndefinedEmpty replaces the reference with "" and records a Warning.
	UndefinedEmpty
	// UndefinedError fails the parse with KindUndefinedVariable.
	UndefinedError
)

func (p UndefinedPolicy) String() string {
	switch p {
	case UndefinedKeep:
		return "keep"
	case UndefinedEmpty:
		return "empty"
	case UndefinedError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseUndefinedPolicy accepts "keep", "empty" or "error".
func ParseUndefinedPolicy(s string) (UndefinedPolicy, bool) {
	switch lower(s) {
	case "keep", "":
		return UndefinedKeep, true
	case "empty":
		return UndefinedEmpty, true
	case "error":
		return UndefinedError, true
	}
	return UndefinedKeep, false
}

// Warning is a non-fatal finding, currently always an unresolved string
// variable.
type Warning struct {
	Offset   int
	Key      string // entry key, empty for @string and @preamble
	Field    string // field name, or the @string name
	Variable string
	Message  string
}

func (w Warning) String() string { return w.Message }

var monthMacros = [...][2]string{
	{"jan", "January"}, {"feb", "February"}, {"mar", "March"},
	{"apr", "April"}, {"may", "May"}, {"jun", "June"},
	{"jul", "July"}, {"aug", "August"}, {"sep", "September"},
	{"oct", "October"}, {"nov", "November"}, {"dec", "December"},
}

// stringTable is the global, read-only result of merging every @string of
// the input. Names are lower-cased.
type stringTable struct {
	values map[string]Value
	names  []string // first-definition order
}

func (t *stringTable) lookup(name string) (Value, bool) {
	v, ok := t.values[lower(name)]
	return v, ok
}

type resolveState uint8

const (
	unresolved resolveState = iota
	resolving
	resolved
)

// tableBuilder resolves the winning definitions on demand so that a
// definition may reference another one declared anywhere in the input.
type tableBuilder struct {
	src      string
	opts     *Options
	defs     map[string]*StringDef
	state    map[string]resolveState
	table    *stringTable
	stack    []string
	warnings []Warning
}

// buildStringTable merges per-chunk definitions in chunk order. A later
// definition of the same name replaces an earlier one.
func buildStringTable(src string, chunks [][]*StringDef, opts *Options) (*stringTable, []Warning, error) {
	n := 0
	for _, defs := range chunks {
		n += len(defs)
	}
	b := &tableBuilder{
		src:   src,
		opts:  opts,
		defs:  make(map[string]*StringDef, n),
		state: make(map[string]resolveState, n),
		table: &stringTable{values: make(map[string]Value, n+len(monthMacros))},
	}
	if opts.MonthMacros {
		for _, m := range monthMacros {
			b.table.values[m[0]] = NewLiteral(m[1])
			b.state[m[0]] = resolved
		}
	}
	for _, defs := range chunks {
		for _, d := range defs {
			name := lower(d.Name)
			if _, seen := b.defs[name]; !seen {
				b.table.names = append(b.table.names, name)
			}
			b.defs[name] = d
			b.state[name] = unresolved
		}
	}
	for _, name := range b.table.names {
		if _, err := b.resolve(name); err != nil {
			return nil, nil, err
		}
	}
	b.table.names = shrink(b.table.names)
	return b.table, b.warnings, nil
}

func (b *tableBuilder) resolve(name string) (Value, error) {
	switch b.state[name] {
	case resolved:
		return b.table.values[name], nil
	case resolving:
		d := b.defs[name]
		cycle := append(slices.Clone(b.stack[indexOf(b.stack, name):]), name)
		return Value{}, errAt(KindCircularReference, d.offset,
			"circular string definition: %s", strings.Join(cycle, " -> "))
	}
	d := b.defs[name]
	b.state[name] = resolving
	b.stack = append(b.stack, name)
	x := expander{src: b.src, opts: b.opts, lookup: b.lookupDef}
	x.site = site{offset: d.offset, kind: RecordString, field: d.Name}
	v, err := x.expand(d.Value)
	b.stack = b.stack[:len(b.stack)-1]
	if err != nil {
		return Value{}, err
	}
	b.warnings = append(b.warnings, x.warnings...)
	b.state[name] = resolved
	b.table.values[name] = v
	return v, nil
}

func (b *tableBuilder) lookupDef(name string) (Value, bool, error) {
	key := lower(name)
	if _, ok := b.state[key]; !ok {
		return Value{}, false, nil
	}
	v, err := b.resolve(key)
	return v, err == nil, err
}

func indexOf(s []string, v string) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return 0
}

// site locates the value being expanded, for warnings and errors.
type site struct {
	offset int
	kind   RecordKind
	key    string
	field  string
}

// expander rewrites values into their final form. Literals that need no
// change stay borrowed; concatenations and normalized text become owned.
type expander struct {
	src      string
	opts     *Options
	lookup   func(name string) (Value, bool, error)
	site     site
	warnings []Warning
}

func newExpander(src string, opts *Options, table *stringTable) *expander {
	return &expander{src: src, opts: opts, lookup: func(name string) (Value, bool, error) {
		v, ok := table.lookup(name)
		return v, ok, nil
	}}
}

// expandRecords resolves every entry field and preamble in place.
func (x *expander) expandRecords(records []Record) error {
	for _, r := range records {
		switch rec := r.(type) {
		case *Entry:
			for i := range rec.Fields {
				f := &rec.Fields[i]
				x.site = site{offset: rec.offset, kind: RecordEntry, key: rec.Key, field: f.Name}
				v, err := x.expand(f.Value)
				if err != nil {
					return err
				}
				f.Value = v
			}
		case *Preamble:
			x.site = site{offset: rec.offset, kind: RecordPreamble}
			v, err := x.expand(rec.Value)
			if err != nil {
				return err
			}
			rec.Value = v
		}
	}
	return nil
}

func (x *expander) expand(v Value) (Value, error) {
	switch v.kind {
	case KindLiteral:
		return x.normalize(v), nil
	case KindNumber:
		return v, nil
	case KindVariable:
		return x.variable(v)
	case KindConcat:
		return x.concat(v)
	}
	return v, nil
}

func (x *expander) variable(v Value) (Value, error) {
	r, ok, err := x.lookup(v.text)
	if err != nil {
		return Value{}, err
	}
	if ok {
		return r, nil
	}
	off := x.site.offset
	if o, ok := offsetOf(v.text, x.src); ok {
		off = o
	}
	msg := x.undefinedMessage(v.text)
	switch x.opts.Undefined {
	case UndefinedError:
		return Value{}, errAt(KindUndefinedVariable, off, "%s", msg)
	case UndefinedEmpty:
		x.warn(off, v.text, msg)
		return NewLiteral(""), nil
	default:
		x.warn(off, v.text, msg)
		return v, nil
	}
}

func (x *expander) undefinedMessage(name string) string {
	prefix := "undefined string variable " + strconv.Quote(name)
	switch x.site.kind {
	case RecordString:
		return prefix + " in @string " + x.site.field
	case RecordPreamble:
		return prefix + " in @preamble"
	default:
		return prefix + " in field " + x.site.field + " of " + x.site.key
	}
}

func (x *expander) warn(off int, name, msg string) {
	x.warnings = append(x.warnings, Warning{
		Offset:   off,
		Key:      x.site.key,
		Field:    x.site.field,
		Variable: name,
		Message:  msg,
	})
}

// concat materializes the joined text of all operands as one owned literal.
func (x *expander) concat(v Value) (Value, error) {
	parts := v.Parts()
	var scratch [8]Value
	done := scratch[:0]
	size := 0
	for _, p := range parts {
		r, err := x.expand(p)
		if err != nil {
			return Value{}, err
		}
		done = append(done, r)
		if r.kind == KindNumber {
			size += 20
		} else {
			size += len(r.text)
		}
	}
	var sb strings.Builder
	sb.Grow(size)
	for _, r := range done {
		if r.kind == KindNumber {
			sb.WriteString(strconv.FormatInt(r.num, 10))
			continue
		}
		sb.WriteString(r.text)
	}
	return x.normalize(NewLiteral(sb.String())), nil
}

// normalize collapses whitespace runs when NormalizeWhitespace is set.
func (x *expander) normalize(v Value) Value {
	if !x.opts.NormalizeWhitespace {
		return v
	}
	s, changed := collapseSpace(v.text)
	if !changed {
		return v
	}
	return NewLiteral(s)
}

func collapseSpace(s string) (string, bool) {
	clean := true
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) && (s[i] != ' ' || i == 0 || i == len(s)-1 || s[i+1] == ' ') {
			clean = false
			break
		}
	}
	if clean {
		return s, false
	}
	return strings.Join(strings.Fields(s), " "), true
}

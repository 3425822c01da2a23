package bibtex

import "strings"

// =========================
// Records
// =========================

type RecordKind uint8

const (
	RecordEntry RecordKind = iota
	RecordString
	RecordPreamble
	RecordComment
)

func (k RecordKind) String() string {
	switch k {
	case RecordEntry:
		return "entry"
	case RecordString:
		return "string"
	case RecordPreamble:
		return "preamble"
	case RecordComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Record is one top-level item of a BibTeX file: *Entry, *StringDef,
// *Preamble or *Comment.
type Record interface {
	Kind() RecordKind
	// Offset is the byte offset of the record in the input.
	Offset() int
}

// Field is a name/value pair of an entry. Names compare case-insensitively.
type Field struct {
	Name  string
	Value Value
}

// Entry is a bibliographic record such as @article{key, ...}.
type Entry struct {
	Type   string
	Key    string
	Fields []Field
	offset int
}

func (e *Entry) Kind() RecordKind { return RecordEntry }
func (e *Entry) Offset() int      { return e.offset }

// Field returns the value of the first field called name.
func (e *Entry) Field(name string) (Value, bool) {
	for i := range e.Fields {
		if strings.EqualFold(e.Fields[i].Name, name) {
			return e.Fields[i].Value, true
		}
	}
	return Value{}, false
}

// Get returns the field as plain text, or "" when absent.
func (e *Entry) Get(name string) string {
	v, _ := e.Field(name)
	return v.String()
}

func (e *Entry) Has(name string) bool {
	_, ok := e.Field(name)
	return ok
}

// EntryType classifies the entry's type name.
func (e *Entry) EntryType() EntryType { return ParseEntryType(e.Type) }

// MissingFields lists the required fields of the entry's type that it lacks.
func (e *Entry) MissingFields() []string {
	var missing []string
	for _, name := range e.EntryType().RequiredFields() {
		if !e.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// StringDef is @string{name = value}.
type StringDef struct {
	Name   string
	Value  Value
	offset int
}

func (s *StringDef) Kind() RecordKind { return RecordString }
func (s *StringDef) Offset() int      { return s.offset }

// Preamble is @preamble{value}.
type Preamble struct {
	Value  Value
	offset int
}

func (p *Preamble) Kind() RecordKind { return RecordPreamble }
func (p *Preamble) Offset() int      { return p.offset }

type CommentForm uint8

const (
	// CommentBlock is @comment{...}, @comment(...) or @comment up to end of line.
	CommentBlock CommentForm = iota
	// CommentLine is a % line.
	CommentLine
	// CommentImplicit is free text between records.
	CommentImplicit
)

func (f CommentForm) String() string {
	switch f {
	case CommentBlock:
		return "block"
	case CommentLine:
		return "line"
	case CommentImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

type Comment struct {
	Text   string
	Form   CommentForm
	offset int
}

func (c *Comment) Kind() RecordKind { return RecordComment }
func (c *Comment) Offset() int      { return c.offset }

// =========================
// Entry types
// =========================

type EntryType uint8

const (
	TypeCustom EntryType = iota
	TypeArticle
	TypeBook
	TypeBooklet
	TypeInBook
	TypeInCollection
	TypeInProceedings
	TypeManual
	TypeMastersThesis
	TypeMisc
	TypePhdThesis
	TypeProceedings
	TypeTechReport
	TypeUnpublished
)

var entryTypeNames = map[string]EntryType{
	"article":       TypeArticle,
	"book":          TypeBook,
	"booklet":       TypeBooklet,
	"inbook":        TypeInBook,
	"incollection":  TypeInCollection,
	"inproceedings": TypeInProceedings,
	"conference":    TypeInProceedings,
	"manual":        TypeManual,
	"mastersthesis": TypeMastersThesis,
	"misc":          TypeMisc,
	"phdthesis":     TypePhdThesis,
	"proceedings":   TypeProceedings,
	"techreport":    TypeTechReport,
	"unpublished":   TypeUnpublished,
}

// ParseEntryType maps a type name to its EntryType, ignoring case. Unknown
// names map to TypeCustom.
func ParseEntryType(name string) EntryType {
	return entryTypeNames[lower(name)]
}

func (t EntryType) String() string {
	for name, v := range entryTypeNames {
		if v == t && name != "conference" {
			return name
		}
	}
	return "custom"
}

var requiredFields = map[EntryType][]string{
	TypeArticle:       {"author", "title", "journal", "year"},
	TypeBook:          {"author", "title", "publisher", "year"},
	TypeBooklet:       {"title"},
	TypeInBook:        {"author", "title", "chapter", "publisher", "year"},
	TypeInCollection:  {"author", "title", "booktitle", "publisher", "year"},
	TypeInProceedings: {"author", "title", "booktitle", "year"},
	TypeManual:        {"title"},
	TypeMastersThesis: {"author", "title", "school", "year"},
	TypePhdThesis:     {"author", "title", "school", "year"},
	TypeProceedings:   {"title", "year"},
	TypeTechReport:    {"author", "title", "institution", "year"},
	TypeUnpublished:   {"author", "title", "note"},
}

// RequiredFields lists the fields standard BibTeX styles expect for the type.
// Misc and custom types require nothing.
func (t EntryType) RequiredFields() []string {
	return requiredFields[t]
}

// RequiredFields is a shorthand for ParseEntryType(typ).RequiredFields().
func RequiredFields(typ string) []string {
	return ParseEntryType(typ).RequiredFields()
}

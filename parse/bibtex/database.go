package bibtex

import (
	"sort"
	"sync"
)

// =========================
// Database
// =========================

// Database is the read-only result of a parse. Borrowed values point into
// src, which the Database keeps alive.
type Database struct {
	src       string
	records   []Record
	entries   []*Entry
	preambles []*Preamble
	comments  []*Comment
	strings   *stringTable
	warnings  []Warning

	byKey  map[string]*Entry
	dups   []Duplicate
	byType map[string][]*Entry

	search     *searchIndex
	searchOnce sync.Once
	lines      *lineTable
	linesOnce  sync.Once

	stats ParseStats
}

// Duplicate lists every entry sharing one key, in input order.
type Duplicate struct {
	Key     string
	Entries []*Entry
}

// DatabaseStats counts the contents of a Database.
type DatabaseStats struct {
	Records       int
	Entries       int
	Strings       int
	Preambles     int
	Comments      int
	Warnings      int
	DuplicateKeys int
	// EntriesByType is keyed by lower-cased entry type.
	EntriesByType map[string]int
}

// assemble concatenates chunk results in chunk order and builds the indices.
func assemble(src string, results []*chunkResult, table *stringTable, warnings []Warning, opts *Options) *Database {
	var nRec, nEnt, nWarn int
	for _, r := range results {
		nRec += len(r.records)
		nEnt += len(r.entries)
		nWarn += len(r.warnings)
	}
	db := &Database{
		src:     src,
		records: make([]Record, 0, nRec),
		entries: make([]*Entry, 0, nEnt),
		strings: table,
	}
	if nWarn+len(warnings) > 0 {
		db.warnings = make([]Warning, 0, nWarn+len(warnings))
		db.warnings = append(db.warnings, warnings...)
	}
	for _, r := range results {
		db.records = append(db.records, r.records...)
		db.entries = append(db.entries, r.entries...)
		db.warnings = append(db.warnings, r.warnings...)
	}
	for _, rec := range db.records {
		switch r := rec.(type) {
		case *Preamble:
			db.preambles = append(db.preambles, r)
		case *Comment:
			db.comments = append(db.comments, r)
		}
	}
	db.preambles = shrink(db.preambles)
	db.comments = shrink(db.comments)

	db.indexKeys()
	if !opts.LazyFieldIndex {
		db.searchIndex()
	}
	return db
}

// indexKeys builds the key and type maps. The last entry with a key wins.
func (db *Database) indexKeys() {
	db.byKey = make(map[string]*Entry, len(db.entries))
	db.byType = make(map[string][]*Entry)
	dupAt := map[string]int{}
	for _, e := range db.entries {
		if prev, ok := db.byKey[e.Key]; ok {
			i, seen := dupAt[e.Key]
			if !seen {
				i = len(db.dups)
				dupAt[e.Key] = i
				db.dups = append(db.dups, Duplicate{Key: e.Key, Entries: []*Entry{prev}})
			}
			db.dups[i].Entries = append(db.dups[i].Entries, e)
		}
		db.byKey[e.Key] = e
		t := lower(e.Type)
		db.byType[t] = append(db.byType[t], e)
	}
	for t, list := range db.byType {
		db.byType[t] = shrink(list)
	}
}

func (db *Database) searchIndex() *searchIndex {
	db.searchOnce.Do(func() {
		db.search = buildSearchIndex(db.entries)
	})
	return db.search
}

// Entries returns every entry in input order, duplicates included.
func (db *Database) Entries() []*Entry { return db.entries }

// Records returns every record in input order: entries, @string
// definitions, preambles and comments.
func (db *Database) Records() []Record { return db.records }

func (db *Database) Preambles() []*Preamble { return db.preambles }

func (db *Database) Comments() []*Comment { return db.comments }

func (db *Database) Warnings() []Warning { return db.warnings }

// Duplicates lists keys used by more than one entry, ordered by the key's
// first appearance.
func (db *Database) Duplicates() []Duplicate { return db.dups }

func (db *Database) Len() int { return len(db.entries) }

// FindByKey returns the last entry with the given key. Keys are
// case-sensitive.
func (db *Database) FindByKey(key string) (*Entry, bool) {
	e, ok := db.byKey[key]
	return e, ok
}

// FindByType returns the entries of a type in input order, ignoring case.
func (db *Database) FindByType(typ string) []*Entry {
	return db.byType[lower(typ)]
}

// FindByField returns the entries whose field name contains substr, in input
// order. The field name ignores case; substr does not.
func (db *Database) FindByField(name, substr string) []*Entry {
	return db.searchIndex().contains(db.entries, name, substr)
}

// FindByFieldValue returns the entries whose field name equals value.
func (db *Database) FindByFieldValue(name, value string) []*Entry {
	return db.searchIndex().equals(db.entries, name, value)
}

// Get returns the resolved text of a field of e.
func (db *Database) Get(e *Entry, name string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.Field(name)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// String returns the resolved value of a string variable, ignoring case.
func (db *Database) String(name string) (Value, bool) {
	return db.strings.lookup(name)
}

// StringNames lists the defined string variables, lower-cased, in order of
// first definition.
func (db *Database) StringNames() []string { return db.strings.names }

// Types lists the lower-cased entry types present, sorted.
func (db *Database) Types() []string {
	types := make([]string, 0, len(db.byType))
	for t := range db.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (db *Database) Stats() DatabaseStats {
	st := DatabaseStats{
		Records:       len(db.records),
		Entries:       len(db.entries),
		Strings:       len(db.strings.names),
		Preambles:     len(db.preambles),
		Comments:      len(db.comments),
		Warnings:      len(db.warnings),
		DuplicateKeys: len(db.dups),
		EntriesByType: make(map[string]int, len(db.byType)),
	}
	for t, list := range db.byType {
		st.EntriesByType[t] = len(list)
	}
	return st
}

// ParseStats returns the statistics of the parse that built db.
func (db *Database) ParseStats() ParseStats { return db.stats }

// Position converts a byte offset of the input into a line and column.
func (db *Database) Position(offset int) Position {
	db.linesOnce.Do(func() {
		db.lines = newLineTable(db.src)
	})
	return db.lines.position(offset)
}

// Source returns the parsed input.
func (db *Database) Source() string { return db.src }

// Package export dumps a parsed bibliography as JSON, YAML or BSON documents
// for loading into other tools.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatBSON writes one BSON document per entry back to back, the layout
	// mongorestore reads.
	FormatBSON Format = "bson"
)

var ErrUnknownFormat = errors.New("export: unknown format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatBSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Field is one resolved field. Raw is set for variables left undefined.
type Field struct {
	Name  string `json:"name" yaml:"name" bson:"name"`
	Value string `json:"value" yaml:"value" bson:"value"`
	Raw   string `json:"raw,omitempty" yaml:"raw,omitempty" bson:"raw,omitempty"`
}

type Entry struct {
	Key    string  `json:"key" yaml:"key" bson:"_id"`
	Type   string  `json:"type" yaml:"type" bson:"type"`
	Line   int     `json:"line" yaml:"line" bson:"line"`
	Fields []Field `json:"fields" yaml:"fields" bson:"fields"`
}

// Entries converts entries to export records in the given order.
func Entries(db *bibtex.Database, entries []*bibtex.Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		rec := Entry{
			Key:    e.Key,
			Type:   strings.ToLower(e.Type),
			Line:   db.Position(e.Offset()).Line,
			Fields: make([]Field, len(e.Fields)),
		}
		for j, f := range e.Fields {
			ef := Field{Name: strings.ToLower(f.Name), Value: f.Value.String()}
			if f.Value.Kind() == bibtex.KindVariable {
				ef.Raw = f.Value.Source()
			}
			rec.Fields[j] = ef
		}
		out[i] = rec
	}
	return out
}

// Write encodes entries to w.
func Write(w io.Writer, format Format, entries []Entry) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case FormatBSON:
		for i := range entries {
			doc, err := bson.Marshal(&entries[i])
			if err != nil {
				return fmt.Errorf("export: encode %s: %w", entries[i].Key, err)
			}
			if _, err := w.Write(doc); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ReadBSON decodes a stream written with FormatBSON.
func ReadBSON(data []byte) ([]Entry, error) {
	var out []Entry
	for len(data) > 0 {
		if len(data) < 5 {
			return nil, fmt.Errorf("export: truncated bson document")
		}
		n := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
		if n < 5 || n > len(data) {
			return nil, fmt.Errorf("export: bad bson document length %d", n)
		}
		var e Entry
		if err := bson.Unmarshal(data[:n], &e); err != nil {
			return nil, fmt.Errorf("export: decode: %w", err)
		}
		out = append(out, e)
		data = data[n:]
	}
	return out, nil
}

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const src = `@string{acm = {ACM Press}}

@Book{knuth1984,
  Title     = {The {\TeX}book},
  publisher = acm,
  year      = 1984
}

@misc{web,
  note = unknown
}
`

func parsed(t *testing.T) (*bibtex.Database, []Entry) {
	t.Helper()
	db, err := bibtex.ParseString(src)
	require.NoError(t, err)
	return db, Entries(db, db.Entries())
}

func TestEntries(t *testing.T) {
	_, entries := parsed(t)
	require.Len(t, entries, 2)

	book := entries[0]
	assert.Equal(t, "knuth1984", book.Key)
	assert.Equal(t, "book", book.Type)
	assert.Equal(t, 3, book.Line)
	assert.Equal(t, []Field{
		{Name: "title", Value: `The {\TeX}book`},
		{Name: "publisher", Value: "ACM Press"},
		{Name: "year", Value: "1984"},
	}, book.Fields)

	web := entries[1]
	require.Len(t, web.Fields, 1)
	assert.Equal(t, "unknown", web.Fields[0].Raw)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("BSON")
	require.NoError(t, err)
	assert.Equal(t, FormatBSON, f)

	_, err = ParseFormat("csv")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestWrite(t *testing.T) {
	_, entries := parsed(t)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatJSON, entries))
		var back []Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, entries, back)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatYAML, entries))
		var back []Entry
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, entries, back)
	})

	t.Run("bson", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatBSON, entries))
		back, err := ReadBSON(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, entries, back)

		_, err = ReadBSON(buf.Bytes()[:buf.Len()-1])
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Write(&bytes.Buffer{}, Format("csv"), entries))
	})
}

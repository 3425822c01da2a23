package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveParse(t *testing.T) {
	m := NewMetrics("bq")
	var _ bibtex.Observer = m

	m.ObserveParse(bibtex.ParseStats{Bytes: 100, Entries: 4, Chunks: 2, Threads: 2, Total: time.Millisecond})
	m.ObserveParse(bibtex.ParseStats{Bytes: 50, Entries: 1, Chunks: 1, Threads: 1, Warnings: 2, Fallback: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParsesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.BytesTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EntriesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WarningsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Chunks))
	assert.Equal(t, 4, testutil.CollectAndCount(m.PhaseDuration))
}

func TestObserveRealParse(t *testing.T) {
	m := NewMetrics("bq")
	db, err := bibtex.NewParser(bibtex.Options{Observer: m}).ParseString("@article{a, title = {T}}\n@book{b, title = {U}}\n")
	require.NoError(t, err)
	assert.Equal(t, 2, db.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParsesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EntriesTotal))
}

func TestWriteText(t *testing.T) {
	m := NewMetrics("bq")
	m.ObserveParse(bibtex.ParseStats{Bytes: 10, Entries: 1})

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "bq_parser_parses_total 1")
	assert.Contains(t, out, "bq_parser_bytes_total 10")
	assert.Contains(t, out, `bq_parser_phase_duration_seconds_count{phase="split"} 1`)
}

package pkg

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "@article{k,\n  title = {Compressed},\n}\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCheckFileExist(t *testing.T) {
	path := writeFile(t, "a.bib", []byte(sample))

	exist, err := CheckFileExist(path)
	require.NoError(t, err)
	assert.True(t, exist)

	exist, err = CheckFileExist(filepath.Join(t.TempDir(), "missing.bib"))
	require.NoError(t, err)
	assert.False(t, exist)
}

func TestReadFile(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := enc.EncodeAll([]byte(sample), nil)
	require.NoError(t, enc.Close())

	tests := []struct {
		name string
		data []byte
	}{
		{"plain.bib", []byte(sample)},
		{"plain.bib.gz", gz.Bytes()},
		{"plain.bib.zst", zst},
		{"empty.bib", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(writeFile(t, tt.name, tt.data))
			require.NoError(t, err)
			if tt.data == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, sample, string(got))
		})
	}

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.bib"))
	assert.Error(t, err)
}

func TestReadAllCorruptGzip(t *testing.T) {
	_, err := ReadAll(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}), 0)
	assert.Error(t, err)
}

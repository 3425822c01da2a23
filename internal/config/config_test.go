package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Parser.Threads)
	assert.Equal(t, bibtex.DefaultMinChunkSize, cfg.Parser.MinChunkSize)
	assert.Equal(t, bibtex.DefaultSearchWindow, cfg.Parser.SearchWindow)
	assert.Equal(t, "keep", cfg.Parser.Undefined)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
parser:
  threads: 4
  undefined: empty
  month_macros: true
logging:
  level: debug
  format: json
`)
	t.Setenv("BQ_PARSER_THREADS", "8")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Parser.Threads, "env overrides the file")
	assert.Equal(t, "empty", cfg.Parser.Undefined)
	assert.True(t, cfg.Parser.MonthMacros)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, bibtex.DefaultSearchWindow, cfg.Parser.SearchWindow)
}

func TestLoadFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("threads", 0, "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--threads=-1"}))

	cfg, err := Load(writeConfig(t, "parser:\n  threads: 2\n"), flags)
	require.NoError(t, err)
	assert.Equal(t, bibtex.AutoThreads, cfg.Parser.Threads)
	assert.Equal(t, "warn", cfg.Logging.Level, "unset flags keep the default")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "parser: [unclosed"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"auto threads", func(c *Config) { c.Parser.Threads = -1 }, false},
		{"negative threads", func(c *Config) { c.Parser.Threads = -2 }, true},
		{"zero chunk", func(c *Config) { c.Parser.MinChunkSize = 0 }, true},
		{"zero window", func(c *Config) { c.Parser.SearchWindow = 0 }, true},
		{"bad policy", func(c *Config) { c.Parser.Undefined = "ignore" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"metrics without namespace", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Namespace = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParserOptions(t *testing.T) {
	cfg := Default()
	cfg.Parser.Threads = 3
	cfg.Parser.Undefined = "error"
	cfg.Parser.NormalizeWhitespace = true

	opts := cfg.ParserOptions(nil, nil)
	assert.Equal(t, 3, opts.Threads)
	assert.Equal(t, bibtex.UndefinedError, opts.Undefined)
	assert.True(t, opts.NormalizeWhitespace)
	assert.Equal(t, bibtex.DefaultMinChunkSize, opts.MinChunkSize)
	assert.Nil(t, opts.Logger)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "min_chunk_size:")

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, *cfg, back)

	cfg2, err := Load(writeConfig(t, string(out)), nil)
	require.NoError(t, err)
	assert.True(t, cfg2.Metrics.Enabled)
}

// Package config provides configuration management for bq.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. BQ_PARSER_THREADS.
const EnvPrefix = "BQ"

// Config holds all configuration for bq.
type Config struct {
	Parser  ParserConfig  `mapstructure:"parser" yaml:"parser"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ParserConfig mirrors bibtex.Options.
type ParserConfig struct {
	// Threads: 0 sequential, -1 one worker per CPU, n workers otherwise.
	Threads             int    `mapstructure:"threads" yaml:"threads"`
	MinChunkSize        int    `mapstructure:"min_chunk_size" yaml:"min_chunk_size"`
	SearchWindow        int    `mapstructure:"search_window" yaml:"search_window"`
	Undefined           string `mapstructure:"undefined" yaml:"undefined"`
	NormalizeWhitespace bool   `mapstructure:"normalize_whitespace" yaml:"normalize_whitespace"`
	MonthMacros         bool   `mapstructure:"month_macros" yaml:"month_macros"`
	LazyFieldIndex      bool   `mapstructure:"lazy_field_index" yaml:"lazy_field_index"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"threads":   "parser.threads",
	"log-level": "logging.level",
	"undefined": "parser.undefined",
	"metrics":   "metrics.enabled",
}

// Load reads configuration from defaults, an optional YAML file, BQ_*
// environment variables and, when flags is not nil, explicitly set flags,
// in increasing order of precedence.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/bq")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Parser defaults
	v.SetDefault("parser.threads", 0)
	v.SetDefault("parser.min_chunk_size", bibtex.DefaultMinChunkSize)
	v.SetDefault("parser.search_window", bibtex.DefaultSearchWindow)
	v.SetDefault("parser.undefined", "keep")
	v.SetDefault("parser.normalize_whitespace", false)
	v.SetDefault("parser.month_macros", false)
	v.SetDefault("parser.lazy_field_index", false)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "bq")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Parser.Threads < bibtex.AutoThreads {
		return fmt.Errorf("invalid parser threads: %d", c.Parser.Threads)
	}
	if c.Parser.MinChunkSize <= 0 {
		return fmt.Errorf("parser min_chunk_size must be positive")
	}
	if c.Parser.SearchWindow <= 0 {
		return fmt.Errorf("parser search_window must be positive")
	}
	if _, ok := bibtex.ParseUndefinedPolicy(c.Parser.Undefined); !ok {
		return fmt.Errorf("invalid parser undefined policy: %q", c.Parser.Undefined)
	}

	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics namespace is required when metrics are enabled")
	}

	return nil
}

// ParserOptions converts the parser section into bibtex.Options.
func (c *Config) ParserOptions(logger *zap.Logger, observer bibtex.Observer) bibtex.Options {
	policy, _ := bibtex.ParseUndefinedPolicy(c.Parser.Undefined)
	return bibtex.Options{
		Threads:             c.Parser.Threads,
		MinChunkSize:        c.Parser.MinChunkSize,
		SearchWindow:        c.Parser.SearchWindow,
		Undefined:           policy,
		NormalizeWhitespace: c.Parser.NormalizeWhitespace,
		MonthMacros:         c.Parser.MonthMacros,
		LazyFieldIndex:      c.Parser.LazyFieldIndex,
		Logger:              logger,
		Observer:            observer,
	}
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

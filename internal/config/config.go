// Package config loads CLI configuration from an optional file and
// SHERLOUK_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sherlouk/internal/ingest"
	"sherlouk/internal/upload"
)

// Config holds all application configuration.
type Config struct {
	Upload  UploadConfig  `mapstructure:"upload"`
	Parse   ParseConfig   `mapstructure:"parse"`
	DDL     DDLConfig     `mapstructure:"ddl"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// UploadConfig holds upload acceptance limits.
type UploadConfig struct {
	MaxBytes   int64    `mapstructure:"max_bytes"`
	Extensions []string `mapstructure:"extensions"`
}

// ParseConfig holds the default parse options.
type ParseConfig struct {
	Delimiter  string `mapstructure:"delimiter"`
	Encoding   string `mapstructure:"encoding"`
	HasHeaders bool   `mapstructure:"has_headers"`
	SkipRows   int    `mapstructure:"skip_rows"`
	Duplicates string `mapstructure:"duplicates"`
}

// DDLConfig holds DDL preview defaults.
type DDLConfig struct {
	Dialect    string `mapstructure:"dialect"`
	Table      string `mapstructure:"table"`
	PrimaryKey string `mapstructure:"primary_key"`
}

// MetricsConfig selects and tunes the metrics backend.
type MetricsConfig struct {
	Backend    string        `mapstructure:"backend"`
	Tags       string        `mapstructure:"tags"`
	FlushEvery time.Duration `mapstructure:"flush_every"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var envBindings = map[string]string{
	"upload.max_bytes":    "SHERLOUK_UPLOAD_MAX_BYTES",
	"upload.extensions":   "SHERLOUK_UPLOAD_EXTENSIONS",
	"parse.delimiter":     "SHERLOUK_PARSE_DELIMITER",
	"parse.encoding":      "SHERLOUK_PARSE_ENCODING",
	"parse.has_headers":   "SHERLOUK_PARSE_HAS_HEADERS",
	"parse.skip_rows":     "SHERLOUK_PARSE_SKIP_ROWS",
	"parse.duplicates":    "SHERLOUK_PARSE_DUPLICATES",
	"ddl.dialect":         "SHERLOUK_DDL_DIALECT",
	"ddl.table":           "SHERLOUK_DDL_TABLE",
	"ddl.primary_key":     "SHERLOUK_DDL_PRIMARY_KEY",
	"metrics.backend":     "SHERLOUK_METRICS_BACKEND",
	"metrics.tags":        "SHERLOUK_METRICS_TAGS",
	"metrics.flush_every": "SHERLOUK_METRICS_FLUSH_EVERY",
	"log.level":           "SHERLOUK_LOG_LEVEL",
}

// Load reads path (may be empty) and the environment on top of defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHERLOUK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := ingest.DefaultParseConfig()
	pol := upload.DefaultPolicy()

	v.SetDefault("upload.max_bytes", pol.MaxBytes)
	v.SetDefault("upload.extensions", pol.Extensions)

	v.SetDefault("parse.delimiter", def.Delimiter)
	v.SetDefault("parse.encoding", def.Encoding)
	v.SetDefault("parse.has_headers", def.HasHeaders)
	v.SetDefault("parse.skip_rows", def.SkipRows)
	v.SetDefault("parse.duplicates", string(def.Duplicates))

	v.SetDefault("ddl.dialect", "mysql")
	v.SetDefault("ddl.table", "imported_data")
	v.SetDefault("ddl.primary_key", "auto")

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.tags", "")
	v.SetDefault("metrics.flush_every", "60s")

	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot honour.
func (c *Config) Validate() error {
	if c.Parse.SkipRows < 0 {
		return fmt.Errorf("config: parse.skip_rows must be >= 0, got %d", c.Parse.SkipRows)
	}
	if !ingest.ValidDelimiter(c.Parse.Delimiter) {
		return fmt.Errorf("config: parse.delimiter must be one of auto , ; tab |, got %q", c.Parse.Delimiter)
	}
	switch ingest.DuplicatePolicy(c.Parse.Duplicates) {
	case "", ingest.DuplicateSuffix, ingest.DuplicateOverwrite:
	default:
		return fmt.Errorf("config: parse.duplicates must be suffix or overwrite, got %q", c.Parse.Duplicates)
	}
	switch strings.ToLower(c.Metrics.Backend) {
	case "", "none", "datadog":
	default:
		return fmt.Errorf("config: metrics.backend must be none or datadog, got %q", c.Metrics.Backend)
	}
	return nil
}

// ParseOptions converts the parse section to ingest options.
func (c *Config) ParseOptions() ingest.ParseConfig {
	return ingest.ParseConfig{
		Delimiter:  c.Parse.Delimiter,
		Encoding:   c.Parse.Encoding,
		HasHeaders: c.Parse.HasHeaders,
		SkipRows:   c.Parse.SkipRows,
		Duplicates: ingest.DuplicatePolicy(c.Parse.Duplicates),
	}
}

// UploadPolicy converts the upload section to an upload.Policy.
func (c *Config) UploadPolicy() upload.Policy {
	p := upload.Policy{MaxBytes: c.Upload.MaxBytes}
	for _, e := range c.Upload.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		p.Extensions = append(p.Extensions, e)
	}
	return p
}

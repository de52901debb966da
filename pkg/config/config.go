// Package config provides YAML-based project configuration for typimports.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidColor       = errors.New("invalid color mode")
	ErrInvalidWorkers     = errors.New("workers must not be negative")
	ErrInvalidMaxFileSize = errors.New("invalid max file size")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidSentinel    = errors.New("sentinel name must be a Python identifier")
)

// Output formats.
const (
	FormatText    = "text"
	FormatCompact = "compact"
	FormatTable   = "table"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Formats lists the accepted output formats.
func Formats() []string {
	return []string{FormatText, FormatCompact, FormatTable, FormatJSON, FormatYAML}
}

// Config holds all typimports configuration.
type Config struct {
	Check     CheckConfig     `mapstructure:"check"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// CheckConfig controls file discovery and analysis.
type CheckConfig struct {
	SentinelName    string   `mapstructure:"sentinel_name"`
	SentinelModules []string `mapstructure:"sentinel_modules"`
	Exclude         []string `mapstructure:"exclude"`
	MaxFileSize     string   `mapstructure:"max_file_size"`
	Workers         int      `mapstructure:"workers"`
	IncludeHidden   bool     `mapstructure:"include_hidden"`
	NoQA            bool     `mapstructure:"noqa"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// Validate checks the configuration for invalid values.
func (cfg *Config) Validate() error {
	if !slices.Contains(Formats(), cfg.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Output.Format)
	}

	switch cfg.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidColor, cfg.Output.Color)
	}

	if cfg.Check.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Check.Workers)
	}

	_, sizeErr := cfg.Check.MaxFileSizeBytes()
	if sizeErr != nil {
		return sizeErr
	}

	_, levelErr := cfg.Logging.SlogLevel()
	if levelErr != nil {
		return levelErr
	}

	if !IsIdentifier(cfg.Check.SentinelName) {
		return fmt.Errorf("%w: %q", ErrInvalidSentinel, cfg.Check.SentinelName)
	}

	return nil
}

// MaxFileSizeBytes parses MaxFileSize ("1MB", "512 KiB"). Zero disables the limit.
func (check CheckConfig) MaxFileSizeBytes() (int64, error) {
	if strings.TrimSpace(check.MaxFileSize) == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(check.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxFileSize, check.MaxFileSize, err)
	}

	return int64(size), nil //nolint:gosec // file size limits fit in int64
}

// SlogLevel maps the configured level name to an [slog.Level].
func (logging LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(logging.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, logging.Level)
	}

	return level, nil
}

// IsIdentifier reports whether name is a plain ASCII Python identifier.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}

	for idx, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case idx > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

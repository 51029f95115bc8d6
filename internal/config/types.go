// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ironhull/modkit/pkg/walker"
)

var (
	// ErrInvalidChecksumLevel is returned when a ChecksumLevel value is not recognized.
	ErrInvalidChecksumLevel = errors.New("invalid checksum level")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ChecksumLevel names a walker.Level in configuration.
	ChecksumLevel string

	// InvalidChecksumLevelError is returned when a ChecksumLevel value is not recognized.
	// It wraps ErrInvalidChecksumLevel for errors.Is() compatibility.
	InvalidChecksumLevelError struct {
		Value ChecksumLevel
	}

	// LogLevel names a charmbracelet/log level.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidWatchConfigError collects WatchConfig field errors.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ModsRoot is the directory holding one folder per mod.
		ModsRoot string `json:"mods_root" mapstructure:"mods_root"`
		// ModListPath overrides the persisted mod list location.
		ModListPath string `json:"modlist_path" mapstructure:"modlist_path"`
		// ChecksumLevel selects the fields contributing to checksums.
		ChecksumLevel ChecksumLevel `json:"checksum_level" mapstructure:"checksum_level"`
		// Workers bounds parallel parsing; 0 means one per CPU.
		Workers int `json:"workers" mapstructure:"workers"`
		// SchemaDir is where schema documents are exported.
		SchemaDir string `json:"schema_dir" mapstructure:"schema_dir"`
		// LogLevel is the minimum level logged.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Watch configures `modkit watch`.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period before a reload, as a Go duration.
		Debounce string `json:"debounce" mapstructure:"debounce"`
		// Ignore lists extra glob patterns excluded from watching.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}
)

// String returns the string representation of the ChecksumLevel.
func (l ChecksumLevel) String() string { return string(l) }

// Level converts the configured name to a walker.Level.
func (l ChecksumLevel) Level() (walker.Level, error) {
	lv, err := walker.ParseLevel(string(l))
	if err != nil {
		return walker.LevelBasic, &InvalidChecksumLevelError{Value: l}
	}
	return lv, nil
}

// IsValid returns whether the ChecksumLevel is a known level name.
func (l ChecksumLevel) IsValid() (bool, []error) {
	if _, err := l.Level(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidChecksumLevelError.
func (e *InvalidChecksumLevelError) Error() string {
	return fmt.Sprintf("invalid checksum level %q (valid: basic, strict, everything)", e.Value)
}

// Unwrap returns ErrInvalidChecksumLevel for errors.Is() compatibility.
func (e *InvalidChecksumLevelError) Unwrap() error { return ErrInvalidChecksumLevel }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Level converts the configured name to a log.Level.
func (l LogLevel) Level() (log.Level, error) {
	lv, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel, &InvalidLogLevelError{Value: l}
	}
	return lv, nil
}

// IsValid returns whether the LogLevel is a known level name.
func (l LogLevel) IsValid() (bool, []error) {
	if _, err := l.Level(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// DebounceDuration parses Debounce.
func (c WatchConfig) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch.debounce: must be positive, got %s", d)
	}
	return d, nil
}

// IsValid returns whether the WatchConfig has valid fields.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if _, err := c.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	for i, p := range c.Ignore {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("watch.ignore[%d]: pattern must not be empty", i))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields. It delegates to the
// field types; values that passed the CUE schema still go through here
// because flags and environment variables bypass the schema.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.ModsRoot) == "" {
		errs = append(errs, errors.New("mods_root: must not be empty"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must be >= 0, got %d", c.Workers))
	}
	if valid, fieldErrs := c.ChecksumLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ModsRoot:      "mods",
		ModListPath:   "", // <mods_root>/modlist.cue
		ChecksumLevel: "strict",
		Workers:       0,
		SchemaDir:     "schemas",
		LogLevel:      "info",
		Watch: WatchConfig{
			Debounce: "300ms",
			Ignore:   []string{},
		},
	}
}

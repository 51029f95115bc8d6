// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ironhull/modkit/internal/issue"
	"github.com/ironhull/modkit/pkg/walker"
)

// isolated returns options that never see the real user config.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	dir := t.TempDir()
	return LoadOptions{ConfigDirPath: filepath.Join(dir, "cfg"), WorkDir: filepath.Join(dir, "work")}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ModsRoot != "mods" {
		t.Errorf("ModsRoot = %q, want mods", cfg.ModsRoot)
	}
	if cfg.ChecksumLevel != "strict" {
		t.Errorf("ChecksumLevel = %q, want strict", cfg.ChecksumLevel)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if d, err := cfg.Watch.DebounceDuration(); err != nil || d != 300*time.Millisecond {
		t.Errorf("DebounceDuration() = %v, %v", d, err)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), isolated(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	if !reflect.DeepEqual(cfg.ChecksumLevel, DefaultConfig().ChecksumLevel) || cfg.ModsRoot != "mods" {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	cfgPath := filepath.Join(opts.ConfigDirPath, ConfigFileName+"."+ConfigFileExt)
	writeConfig(t, cfgPath, `
mods_root:      "/srv/game/mods"
checksum_level: "everything"
workers:        4
watch: debounce: "2s"
`)

	cfg, path, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != cfgPath {
		t.Errorf("resolved path = %q, want %q", path, cfgPath)
	}
	if cfg.ModsRoot != "/srv/game/mods" || cfg.ChecksumLevel != "everything" || cfg.Workers != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SchemaDir != "schemas" || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: schema_dir=%q log_level=%q", cfg.SchemaDir, cfg.LogLevel)
	}
	if d, _ := cfg.Watch.DebounceDuration(); d != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", d)
	}
}

func TestLoad_WorkDirFallback(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	local := filepath.Join(opts.WorkDir, "config.cue")
	writeConfig(t, local, `schema_dir: "out/schemas"`)

	cfg, path, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != local || cfg.SchemaDir != "out/schemas" {
		t.Errorf("path = %q, SchemaDir = %q", path, cfg.SchemaDir)
	}
}

func TestLoad_CustomPath(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		opts := isolated(t)
		// A user config that must be ignored when a path is given.
		writeConfig(t, filepath.Join(opts.ConfigDirPath, "config.cue"), `log_level: "error"`)
		custom := filepath.Join(t.TempDir(), "custom.cue")
		writeConfig(t, custom, `log_level: "debug"`)
		opts.ConfigFilePath = custom

		cfg, path, err := Load(context.Background(), opts)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if path != custom || cfg.LogLevel != "debug" {
			t.Errorf("path = %q, LogLevel = %q", path, cfg.LogLevel)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		opts := isolated(t)
		opts.ConfigFilePath = filepath.Join(t.TempDir(), "missing.cue")

		_, _, err := Load(context.Background(), opts)
		var ae *issue.ActionableError
		if !errors.As(err, &ae) {
			t.Fatalf("error = %T, want *issue.ActionableError", err)
		}
		if ae.Operation != "load configuration" || ae.Resource != opts.ConfigFilePath {
			t.Errorf("ActionableError = %+v", ae)
		}
		if !ae.HasSuggestions() {
			t.Error("expected suggestions")
		}
	})
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "unknown level", content: `checksum_level: "paranoid"`, wantMsg: "checksum_level"},
		{name: "negative workers", content: `workers: -1`, wantMsg: "workers"},
		{name: "unknown field", content: `container_engine: "docker"`, wantMsg: "container_engine"},
		{name: "bad debounce", content: `watch: debounce: "soon"`, wantMsg: "debounce"},
		{name: "syntax error", content: `mods_root: "unterminated`, wantMsg: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := isolated(t)
			cfgPath := filepath.Join(opts.ConfigDirPath, "config.cue")
			writeConfig(t, cfgPath, tt.content)

			_, _, err := Load(context.Background(), opts)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			msg := err.Error()
			if !strings.Contains(msg, "load configuration") || !strings.Contains(msg, cfgPath) {
				t.Errorf("error lacks operation or resource: %s", msg)
			}
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error %q does not mention %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MODKIT_CHECKSUM_LEVEL", "basic")
	t.Setenv("MODKIT_WORKERS", "3")
	t.Setenv("MODKIT_WATCH_DEBOUNCE", "1s")

	opts := isolated(t)
	writeConfig(t, filepath.Join(opts.ConfigDirPath, "config.cue"), `checksum_level: "everything"`)

	cfg, _, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChecksumLevel != "basic" || cfg.Workers != 3 || cfg.Watch.Debounce != "1s" {
		t.Errorf("cfg = %+v, want env values", cfg)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("MODKIT_LOG_LEVEL", "loud")

	_, _, err := Load(context.Background(), isolated(t))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "loud") {
		t.Errorf("error should name the bad value: %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestProvider(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, filepath.Join(opts.ConfigDirPath, "config.cue"), `workers: 8`)

	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}

	_, err = NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: "  "})
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Errorf("error = %v, want ErrInvalidLoadOptions", err)
	}
}

func TestLoadOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       LoadOptions
		wantFields int
	}{
		{name: "all empty", opts: LoadOptions{}},
		{name: "all valid", opts: LoadOptions{ConfigFilePath: "/tmp/c.cue", ConfigDirPath: "/tmp/c", WorkDir: "."}},
		{name: "whitespace file", opts: LoadOptions{ConfigFilePath: "   "}, wantFields: 1},
		{name: "multiple", opts: LoadOptions{ConfigFilePath: " ", ConfigDirPath: "\t", WorkDir: "\n"}, wantFields: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.Validate()
			if tt.wantFields == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var le *InvalidLoadOptionsError
			if !errors.As(err, &le) {
				t.Fatalf("Validate() = %v, want *InvalidLoadOptionsError", err)
			}
			if len(le.FieldErrors) != tt.wantFields {
				t.Errorf("FieldErrors = %d, want %d", len(le.FieldErrors), tt.wantFields)
			}
		})
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.ModsRoot = "/data/mods"
	want.ModListPath = "/data/state/modlist.cue"
	want.ChecksumLevel = "basic"
	want.Workers = 2
	want.Watch.Ignore = []string{"**/*.bak", "drafts/**"}

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "generated.cue")
	writeConfig(t, opts.ConfigFilePath, GenerateCUE(want))

	got, _, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load(generated) error = %v\n%s", err, GenerateCUE(want))
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestResolveModListPath(t *testing.T) {
	t.Parallel()

	cfg := &Config{ModsRoot: "mods"}
	if got := cfg.ResolveModListPath(); got != filepath.Join("mods", "modlist.cue") {
		t.Errorf("ResolveModListPath() = %q", got)
	}
	cfg.ModListPath = "/state/list.cue"
	if got := cfg.ResolveModListPath(); got != "/state/list.cue" {
		t.Errorf("ResolveModListPath() = %q", got)
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	if lv, err := ChecksumLevel("Everything").Level(); err != nil || lv != walker.LevelEverything {
		t.Errorf("ChecksumLevel(Everything).Level() = %v, %v", lv, err)
	}
	if _, err := ChecksumLevel("max").Level(); !errors.Is(err, ErrInvalidChecksumLevel) {
		t.Errorf("ChecksumLevel(max).Level() error = %v", err)
	}
	if lv, err := LogLevel("debug").Level(); err != nil || lv != log.DebugLevel {
		t.Errorf("LogLevel(debug).Level() = %v, %v", lv, err)
	}
	if valid, errs := LogLevel("chatty").IsValid(); valid || !errors.Is(errs[0], ErrInvalidLogLevel) {
		t.Errorf("LogLevel(chatty).IsValid() = %v, %v", valid, errs)
	}
	if valid, errs := (WatchConfig{Debounce: "0s", Ignore: []string{" "}}).IsValid(); valid || len(errs) != 1 {
		t.Errorf("WatchConfig.IsValid() = %v, %v", valid, errs)
	} else {
		var we *InvalidWatchConfigError
		if !errors.As(errs[0], &we) || len(we.FieldErrors) != 2 {
			t.Errorf("watch errors = %v", errs)
		}
	}
}

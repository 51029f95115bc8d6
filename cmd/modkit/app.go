// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/ironhull/modkit/internal/config"
	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/internal/issue"
	"github.com/ironhull/modkit/internal/modreg"
	"github.com/ironhull/modkit/internal/pipeline"
	"github.com/ironhull/modkit/pkg/walker"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads configuration through it.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlagValues holds the persistent flags shared by all commands.
	rootFlagValues struct {
		configPath  string
		modsRoot    string
		modListPath string
		verbose     bool
	}
)

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) *App {
	app := &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads the configuration and applies flag overrides on top.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.IssueID == 0 {
			ae.IssueID = issue.ConfigLoadFailedId
		}
		return nil, err
	}
	if flags.modsRoot != "" {
		cfg.ModsRoot = flags.modsRoot
	}
	if flags.modListPath != "" {
		cfg.ModListPath = flags.modListPath
	}
	if flags.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// logger returns a stderr logger at the configured level.
func (a *App) logger(cfg *config.Config, prefix string) *log.Logger {
	level, err := cfg.LogLevel.Level()
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{Prefix: prefix, Level: level})
}

// registry opens the mod list of the configured mods root.
func (a *App) registry(cfg *config.Config) *modreg.Registry {
	return modreg.New(modreg.Config{
		ModsRoot: cfg.ModsRoot,
		ListPath: cfg.ResolveModListPath(),
		Logger:   a.logger(cfg, "modreg"),
	})
}

// newPipeline builds a pipeline from the configuration. level overrides the
// configured checksum level when non-empty.
func (a *App) newPipeline(cfg *config.Config, level string, cache *docload.Cache, onProgress func(pipeline.Progress)) (*pipeline.Pipeline, error) {
	lv, err := checksumLevel(cfg, level)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		ModsRoot:   cfg.ModsRoot,
		ListPath:   cfg.ResolveModListPath(),
		Level:      lv,
		Workers:    cfg.Workers,
		Cache:      cache,
		Logger:     a.logger(cfg, "pipeline"),
		OnProgress: onProgress,
	})
}

func checksumLevel(cfg *config.Config, flag string) (walker.Level, error) {
	if flag != "" {
		return config.ChecksumLevel(flag).Level()
	}
	return cfg.ChecksumLevel.Level()
}

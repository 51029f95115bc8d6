// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironhull/modkit/internal/config"
	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/internal/watch"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload mods whenever their files change",
		Long: `Load the enabled mods, then watch the mods root and reload after every
change to a document, manifest or the mod list. Unchanged documents are
served from a parse cache between reloads.

Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			debounce, err := cfg.Watch.DebounceDuration()
			if err != nil {
				return actionable(err, "watch mods", cfg.ModsRoot)
			}

			cache := docload.NewCache()
			reload := func(ctx context.Context) error {
				return app.reload(ctx, cfg, level, cache, flags.verbose)
			}
			if err := reload(cmd.Context()); err != nil {
				return err
			}

			w, err := watch.New(watch.Config{
				ModsRoot: cfg.ModsRoot,
				ListPath: cfg.ResolveModListPath(),
				Ignore:   cfg.Watch.Ignore,
				Debounce: debounce,
				Logger:   app.logger(cfg, "watch"),
				OnChange: func(ctx context.Context, changed []string) error {
					fmt.Fprintf(app.stdout, "\n%s %s\n", SubtitleStyle.Render("changed:"), strings.Join(changed, ", "))
					return reload(ctx)
				},
			})
			if err != nil {
				return actionable(err, "watch mods", cfg.ModsRoot)
			}
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("Watching "+cfg.ModsRoot+" (Ctrl+C to stop)"))
			if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return actionable(err, "watch mods", cfg.ModsRoot)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "checksum level: basic, strict or everything (default from config)")
	return cmd
}

// reload runs one load and prints its report. A faulted load is reported
// but not returned, so watching continues until the mods are fixed.
func (a *App) reload(ctx context.Context, cfg *config.Config, level string, cache *docload.Cache, verbose bool) error {
	p, err := a.newPipeline(cfg, level, cache, nil)
	if err != nil {
		return actionable(err, "load mods", cfg.ModsRoot)
	}
	res, err := p.Run(ctx)
	if res == nil {
		return actionable(err, "load mods", cfg.ModsRoot)
	}
	printReport(a.stdout, a.stderr, res, verbose)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(actionable(err, "load mods", cfg.ModsRoot), verbose))
	}
	return nil
}

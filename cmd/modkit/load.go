// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ironhull/modkit/internal/config"
	"github.com/ironhull/modkit/internal/pipeline"
)

func newLoadCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load, validate and checksum the enabled mods",
		Long: `Load every enabled mod in load order, merge their documents, validate
the result and print the aggregate checksum.

Unparseable documents and invalid instances are reported and skipped. The
command fails when the load faults: duplicate ids, a missing required
document, or an unreadable mods root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			p, err := app.newPipeline(cfg, level, nil, stageReporter(app.stderr))
			if err != nil {
				return actionable(err, "load mods", cfg.ModsRoot)
			}
			res, err := p.Run(cmd.Context())
			if res == nil {
				return actionable(err, "load mods", cfg.ModsRoot)
			}
			printReport(app.stdout, app.stderr, res, flags.verbose)
			if err != nil {
				return &ExitError{Code: 1, Err: actionable(err, "load mods", cfg.ModsRoot)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "checksum level: basic, strict or everything (default from config)")
	return cmd
}

func newChecksumCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "checksum",
		Short: "Print the aggregate checksum of the enabled mods",
		Long: `Print only the aggregate checksum, formatted as 0x%08x. Two installs
with the same checksum at the same level load identical content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if !flags.verbose {
				cfg.LogLevel = config.LogLevel("error")
			}
			p, err := app.newPipeline(cfg, level, nil, nil)
			if err != nil {
				return actionable(err, "compute checksum", cfg.ModsRoot)
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return actionable(err, "compute checksum", cfg.ModsRoot)
			}
			fmt.Fprintf(app.stdout, "0x%08x\n", res.Checksum)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "checksum level: basic, strict or everything (default from config)")
	return cmd
}

// stageReporter prints a line to w each time the pipeline enters a stage.
// Progress callbacks may arrive from several goroutines.
func stageReporter(w io.Writer) func(pipeline.Progress) {
	var (
		mu   sync.Mutex
		last = pipeline.StageIdle
	)
	return func(p pipeline.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Stage == last || p.Stage.IsTerminal() {
			return
		}
		last = p.Stage
		fmt.Fprintln(w, VerboseStyle.Render("→ "+p.Stage.String()))
	}
}

// printReport writes the mod list, skipped units and summary of a load.
// Problems go to stderr and the summary to stdout.
func printReport(stdout, stderr io.Writer, res *pipeline.Result, verbose bool) {
	fmt.Fprintln(stdout, TitleStyle.Render("Mods"))
	for _, m := range res.Mods {
		name := m.Folder
		if m.Manifest != nil {
			name = fmt.Sprintf("%s %s", m.Folder, SubtitleStyle.Render(m.Manifest.Version))
		}
		switch {
		case m.Err != nil:
			fmt.Fprintf(stdout, "  %s %s\n", errorIcon, name)
		case !m.Enabled:
			fmt.Fprintf(stdout, "  - %s\n", disabledStyle.Render(m.Folder))
		default:
			fmt.Fprintf(stdout, "  %s %s\n", successIcon, name)
		}
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintf(stderr, "%s [%s] %s\n", warningIcon, d.Code, d.Error())
	}
	for _, err := range res.Errors {
		fmt.Fprintf(stderr, "%s %v\n", warningIcon, err)
	}
	for _, ve := range res.ValidationErrors {
		fmt.Fprintf(stderr, "%s %s: %s\n", errorIcon, CmdStyle.Render(ve.Path), ve.Message)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, TitleStyle.Render("Content"))
	for _, cat := range res.Database.Categories() {
		ids := res.Database.IDs(cat)
		fmt.Fprintf(stdout, "  %-16s %d\n", cat, len(ids))
		if verbose {
			for _, id := range ids {
				in, _ := res.Database.Get(cat, id)
				fmt.Fprintf(stdout, "    %s %s\n", id, VerboseStyle.Render(fmt.Sprintf("0x%08x", in.Checksum)))
			}
		}
	}
	if res.Controls != nil && res.Controls.Len() > 0 {
		fmt.Fprintf(stdout, "  %-16s %d compiled\n", "controls", res.Controls.Len())
	}

	fmt.Fprintln(stdout)
	skipped := len(res.Errors) + len(res.ValidationErrors)
	if res.Stage == pipeline.StageFaulted {
		fmt.Fprintf(stdout, "%s Load faulted (%d problem(s) reported)\n", errorIcon, skipped+1)
		return
	}
	if skipped > 0 {
		fmt.Fprintf(stdout, "%s Loaded with %d problem(s) skipped\n", warningIcon, skipped)
	} else {
		fmt.Fprintf(stdout, "%s Loaded %d instance(s)\n", successIcon, res.Database.Len())
	}
	fmt.Fprintf(stdout, "Checksum (%s): %s\n", res.Level, checksumStyle.Render(fmt.Sprintf("0x%08x", res.Checksum)))
}

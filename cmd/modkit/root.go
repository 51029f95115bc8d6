// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

// NewRootCommand builds the modkit command tree.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}
	root := newRootCommand(app, flags)
	return root
}

func newRootCommand(app *App, flags *rootFlagValues) *cobra.Command {
	root := &cobra.Command{
		Use:   "modkit",
		Short: "Load, validate and checksum game mods",
		Long: TitleStyle.Render("modkit") + SubtitleStyle.Render(" - mod ingestion and determinism checks") + `

modkit reads the mods under a mods root in load order, merges their
documents by id, validates every instance and prints a checksum that
players compare before a multiplayer session.

` + SubtitleStyle.Render("Examples:") + `
  modkit load                     Load all enabled mods and report problems
  modkit checksum --level basic   Print the aggregate checksum
  modkit mods list                Show the load order
  modkit mods move armor 0        Load 'armor' first
  modkit schema export            Write JSON schemas for modders`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modkit/config.cue)")
	pf.StringVar(&flags.modsRoot, "mods-root", "", "directory holding one folder per mod")
	pf.StringVar(&flags.modListPath, "modlist", "", "mod list file (default is <mods-root>/modlist.cue)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newLoadCommand(app, flags),
		newChecksumCommand(app, flags),
		newModsCommand(app, flags),
		newSchemaCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	app := NewApp(Dependencies{})
	flags := &rootFlagValues{}
	root := newRootCommand(app, flags)

	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler(&flags.verbose)),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ironhull/modkit/internal/modreg"
)

func newModsCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mods",
		Short: "Inspect and edit the mod list",
		Long: `Inspect and edit the persisted mod list.

The list records the load order and which mods are enabled. Folders added
under the mods root are appended enabled; folders that disappear are dropped.`,
	}
	cmd.AddCommand(
		newModsListCommand(app, flags),
		newModsToggleCommand(app, flags, true),
		newModsToggleCommand(app, flags, false),
		newModsMoveCommand(app, flags),
	)
	return cmd
}

func newModsListCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List mods in load order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			disc, err := app.registry(cfg).Discover()
			if err != nil {
				return actionable(err, "list mods", cfg.ModsRoot)
			}
			if len(disc.Mods) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No mods found in "+cfg.ModsRoot))
				return nil
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render("Load order"))
			for _, m := range disc.Mods {
				fmt.Fprintf(app.stdout, "  %2d  %s\n", m.Position, describeMod(m))
			}
			for _, d := range disc.Diagnostics {
				fmt.Fprintf(app.stderr, "%s [%s] %s\n", warningIcon, d.Code, d.Error())
			}
			return nil
		},
	}
}

func describeMod(m modreg.Descriptor) string {
	state := SuccessStyle.Render("enabled")
	if !m.Enabled {
		state = disabledStyle.Render("disabled")
	}
	if m.Err != nil {
		state = ErrorStyle.Render("invalid")
	}
	if m.Manifest == nil {
		return fmt.Sprintf("%-20s %s", m.Folder, state)
	}
	return fmt.Sprintf("%-20s %s %s %s", m.Folder, m.Manifest.Name, SubtitleStyle.Render(m.Manifest.Version), state)
}

func newModsToggleCommand(app *App, flags *rootFlagValues, enable bool) *cobra.Command {
	use, short, verb := "disable <folder>", "Exclude a mod from loading", "Disabled"
	if enable {
		use, short, verb = "enable <folder>", "Include a mod when loading", "Enabled"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := app.registry(cfg).SetEnabled(args[0], enable); err != nil {
				return actionable(err, "update mod list", args[0])
			}
			fmt.Fprintf(app.stdout, "%s %s %s\n", successIcon, verb, CmdStyle.Render(args[0]))
			return nil
		},
	}
}

func newModsMoveCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "move <folder> <position>",
		Short: "Change the load position of a mod",
		Long: `Move a mod to a 0-based position in the load order. Later mods
override fields of earlier ones when they define the same document.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("position must be an integer, got %q", args[1])
			}
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := app.registry(cfg).Move(args[0], position); err != nil {
				return actionable(err, "update mod list", args[0])
			}
			fmt.Fprintf(app.stdout, "%s Moved %s to position %d\n", successIcon, CmdStyle.Render(args[0]), position)
			return nil
		},
	}
}

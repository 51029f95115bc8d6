// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironhull/modkit/internal/issue"
	"github.com/ironhull/modkit/pkg/content"
	"github.com/ironhull/modkit/pkg/walker"
)

func newSchemaCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with content schemas",
	}

	var outDir string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON schema for every content category",
		Long: `Write <category>.schema.json for every exported content category.

Editors use the schemas to complete and check mod documents. The output
directory defaults to schema_dir from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			dir := outDir
			if dir == "" {
				dir = cfg.SchemaDir
			}
			written, err := exportSchemas(content.DefaultCatalog(), dir)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("export schemas").
					WithResource(dir).
					WithIssue(issue.SchemaExportFailedId).
					WithSuggestion("Check that the output directory is writable").
					Wrap(err).
					BuildError()
			}
			for _, path := range written {
				fmt.Fprintf(app.stdout, "%s %s\n", successIcon, path)
			}
			return nil
		},
	}
	export.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default from config)")

	cmd.AddCommand(export)
	return cmd
}

// exportSchemas writes one schema file per exported category of catalog
// into dir and returns the written paths in catalog order.
func exportSchemas(catalog content.Catalog, dir string) ([]string, error) {
	reg := walker.NewRegistry()
	if err := catalog.Register(reg); err != nil {
		return nil, err
	}
	w := walker.New(reg)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create schema directory: %w", err)
	}

	var written []string
	for _, cat := range catalog {
		if !cat.ExportSchema {
			continue
		}
		file := cat.Name + ".schema.json"
		doc, err := w.Schema(cat.Type, file)
		if err != nil {
			return written, fmt.Errorf("schema for %s: %w", cat.Name, err)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return written, fmt.Errorf("encode schema for %s: %w", cat.Name, err)
		}
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return written, fmt.Errorf("failed to write schema: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

// SPDX-License-Identifier: MPL-2.0

package modreg

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironhull/modkit/pkg/cueutil"
)

//go:embed modlist_schema.cue
var modListSchema []byte

type (
	// Entry is one persisted mod list row.
	Entry struct {
		Folder  string `json:"folder"`
		Enabled bool   `json:"enabled"`
	}

	modListFile struct {
		Mods []Entry `json:"mods"`
	}
)

// LoadList reads the persisted mod list. A missing file is an empty list.
func LoadList(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mod list: %w", err)
	}

	result, err := cueutil.ParseAndDecode[modListFile](
		modListSchema,
		data,
		"#ModList",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}
	return result.Value.Mods, nil
}

// SaveList writes the mod list to path in CUE format, atomically.
func SaveList(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(listToCUE(entries)), 0o644); err != nil {
		return fmt.Errorf("failed to write mod list: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename mod list: %w", err)
	}
	return nil
}

func listToCUE(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString("// modlist.cue - load order of mods; earlier mods are overridden by later ones\n")
	sb.WriteString("// Managed by modkit. Reorder with `modkit mods move`.\n\n")

	if len(entries) == 0 {
		sb.WriteString("mods: []\n")
		return sb.String()
	}
	sb.WriteString("mods: [\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\t{folder: %q, enabled: %t},\n", e.Folder, e.Enabled)
	}
	sb.WriteString("]\n")
	return sb.String()
}

// Reconcile merges the persisted list with the folders present on disk.
// Persisted entries whose folder still exists keep their order and flag
// (first occurrence wins for duplicates); vanished folders are dropped; new
// folders are appended enabled, in the order given (callers pass them
// sorted by name). Reconcile does not modify its inputs.
func Reconcile(persisted []Entry, present []string) []Entry {
	exists := make(map[string]bool, len(present))
	for _, f := range present {
		exists[f] = true
	}

	out := make([]Entry, 0, len(present))
	listed := make(map[string]bool, len(persisted))
	for _, e := range persisted {
		if !exists[e.Folder] || listed[e.Folder] {
			continue
		}
		listed[e.Folder] = true
		out = append(out, e)
	}
	for _, f := range present {
		if listed[f] {
			continue
		}
		listed[f] = true
		out = append(out, Entry{Folder: f, Enabled: true})
	}
	return out
}

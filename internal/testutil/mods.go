// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type (
	// ModsRoot is a temporary mods root populated by tests.
	ModsRoot struct {
		t    testing.TB
		Path string
	}

	// Mod is one mod folder inside a ModsRoot.
	Mod struct {
		root   *ModsRoot
		Folder string
		Path   string
	}
)

// NewModsRoot creates an empty mods root under t.TempDir().
func NewModsRoot(t testing.TB) *ModsRoot {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mods")
	MustMkdirAll(t, path, 0o755)
	return &ModsRoot{t: t, Path: path}
}

// Mod creates a mod folder with a mod.cue manifest.
func (r *ModsRoot) Mod(folder, version string) *Mod {
	r.t.Helper()
	m := r.Bare(folder)
	m.File("mod.cue", fmt.Sprintf("name: %q\nversion: %q\n", folder, version))
	return m
}

// Bare creates a mod folder without a manifest.
func (r *ModsRoot) Bare(folder string) *Mod {
	r.t.Helper()
	path := filepath.Join(r.Path, folder)
	MustMkdirAll(r.t, path, 0o755)
	return &Mod{root: r, Folder: folder, Path: path}
}

// ListFile writes the persisted mod list verbatim.
func (r *ModsRoot) ListFile(content string) {
	r.t.Helper()
	MustWriteFile(r.t, filepath.Join(r.Path, "modlist.cue"), content)
}

// File writes a file relative to the mod folder, creating parents.
func (m *Mod) File(rel, content string) *Mod {
	m.root.t.Helper()
	MustWriteFile(m.root.t, filepath.Join(m.Path, filepath.FromSlash(rel)), content)
	return m
}

// Doc writes a content document: <mod>/<category>/<rel>.
func (m *Mod) Doc(category, rel, content string) *Mod {
	m.root.t.Helper()
	return m.File(category+"/"+rel, content)
}

// Remove deletes the mod folder.
func (m *Mod) Remove() {
	m.root.t.Helper()
	if err := os.RemoveAll(m.Path); err != nil {
		m.root.t.Fatalf("failed to remove mod %s: %v", m.Folder, err)
	}
}

// MustWriteFile writes content to path, creating parent directories.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustMkdirAll creates path and its parents or fails the test.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

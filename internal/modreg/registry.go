// SPDX-License-Identifier: MPL-2.0

package modreg

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultListFile is the persisted list file name inside the mods root.
const DefaultListFile = "modlist.cue"

var (
	// ErrModsRootNotFound is returned when the mods root does not exist.
	ErrModsRootNotFound = errors.New("mods root not found")
	// ErrUnknownMod is returned when an operation names a folder that is not
	// in the mod list.
	ErrUnknownMod = errors.New("unknown mod folder")
	// ErrInvalidPosition is returned when Move is given an out-of-range position.
	ErrInvalidPosition = errors.New("invalid mod position")
)

type (
	// Config configures a Registry.
	Config struct {
		// ModsRoot is the directory holding one folder per mod.
		ModsRoot string
		// ListPath is the persisted list file. Defaults to
		// <ModsRoot>/modlist.cue.
		ListPath string
		// Logger receives discovery warnings. Defaults to a stderr logger.
		Logger *log.Logger
	}

	// Registry owns the mod list of one mods root. Its methods are safe for
	// concurrent use; each mutation reads, updates and persists the list
	// under one lock.
	Registry struct {
		cfg    Config
		logger *log.Logger
		mu     sync.Mutex
	}

	// Descriptor is one discovered mod.
	Descriptor struct {
		Folder   string
		Path     string
		Enabled  bool
		Position int
		Manifest *Manifest
		// Err is set when the manifest could not be loaded; such mods are
		// listed but never loaded.
		Err error
	}

	// Discovery is the result of one discovery pass.
	Discovery struct {
		Mods        []Descriptor
		Diagnostics []Diagnostic
	}

	// UnknownModError names a folder missing from the mod list.
	UnknownModError struct {
		Folder string
	}
)

// Error implements the error interface for UnknownModError.
func (e *UnknownModError) Error() string {
	return fmt.Sprintf("unknown mod folder %q (run `modkit mods list` to see discovered mods)", e.Folder)
}

// Unwrap returns ErrUnknownMod for errors.Is() compatibility.
func (e *UnknownModError) Unwrap() error { return ErrUnknownMod }

// New creates a Registry. Nothing is read until Discover is called.
func New(cfg Config) *Registry {
	if cfg.ListPath == "" {
		cfg.ListPath = filepath.Join(cfg.ModsRoot, DefaultListFile)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "modreg"})
	}
	return &Registry{cfg: cfg, logger: logger}
}

// NewDiscard creates a Registry whose logger discards output.
func NewDiscard(modsRoot string) *Registry {
	return New(Config{ModsRoot: modsRoot, Logger: log.New(io.Discard)})
}

// ModsRoot returns the mods root directory.
func (r *Registry) ModsRoot() string { return r.cfg.ModsRoot }

// ListPath returns the persisted list file path.
func (r *Registry) ListPath() string { return r.cfg.ListPath }

// Loadable reports whether the mod should be loaded.
func (d *Descriptor) Loadable() bool { return d.Enabled && d.Err == nil }

// Name returns the manifest name, or the folder when there is no manifest.
func (d *Descriptor) Name() string {
	if d.Manifest != nil {
		return d.Manifest.Name
	}
	return d.Folder
}

// Loadable returns the enabled mods with valid manifests, in load order.
func (d *Discovery) Loadable() []Descriptor {
	var out []Descriptor
	for _, m := range d.Mods {
		if m.Loadable() {
			out = append(out, m)
		}
	}
	return out
}

// Discover lists the mod folders, reconciles and persists the mod list, then
// reads every manifest. Only a missing or unreadable mods root, or a failure
// to read or write the list file, is returned as an error; per-mod problems
// are reported as diagnostics.
func (r *Registry) Discover() (*Discovery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.reconcileLocked()
	if err != nil {
		return nil, err
	}

	disc := &Discovery{Mods: make([]Descriptor, 0, len(entries))}
	for i, e := range entries {
		d := Descriptor{
			Folder:   e.Folder,
			Path:     filepath.Join(r.cfg.ModsRoot, e.Folder),
			Enabled:  e.Enabled,
			Position: i,
		}
		d.Manifest, d.Err = ReadManifest(d.Path)
		if d.Err != nil {
			diag := manifestDiagnostic(d.Path, d.Err)
			disc.Diagnostics = append(disc.Diagnostics, diag)
			r.logger.Warn("skipping mod", "folder", d.Folder, "code", diag.Code, "err", d.Err)
		}
		disc.Mods = append(disc.Mods, d)
	}
	return disc, nil
}

// List returns the reconciled mod list without reading manifests.
func (r *Registry) List() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconcileLocked()
}

// SetEnabled changes the enable flag of a mod and persists the list.
func (r *Registry) SetEnabled(folder string, enabled bool) error {
	return r.mutate(func(entries []Entry) ([]Entry, error) {
		i := slices.IndexFunc(entries, func(e Entry) bool { return e.Folder == folder })
		if i < 0 {
			return nil, &UnknownModError{Folder: folder}
		}
		entries[i].Enabled = enabled
		return entries, nil
	})
}

// Move places a mod at position (0-based) in the load order and persists
// the list.
func (r *Registry) Move(folder string, position int) error {
	return r.mutate(func(entries []Entry) ([]Entry, error) {
		i := slices.IndexFunc(entries, func(e Entry) bool { return e.Folder == folder })
		if i < 0 {
			return nil, &UnknownModError{Folder: folder}
		}
		if position < 0 || position >= len(entries) {
			return nil, fmt.Errorf("%w %d (valid: 0..%d)", ErrInvalidPosition, position, len(entries)-1)
		}
		e := entries[i]
		entries = slices.Delete(entries, i, i+1)
		return slices.Insert(entries, position, e), nil
	})
}

func (r *Registry) mutate(fn func([]Entry) ([]Entry, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.reconcileLocked()
	if err != nil {
		return err
	}
	entries, err = fn(entries)
	if err != nil {
		return err
	}
	return SaveList(r.cfg.ListPath, entries)
}

// reconcileLocked reads folders and the list file, reconciles them and
// writes the result back when it changed.
func (r *Registry) reconcileLocked() ([]Entry, error) {
	present, err := r.folders()
	if err != nil {
		return nil, err
	}
	persisted, err := LoadList(r.cfg.ListPath)
	if err != nil {
		return nil, err
	}

	entries := Reconcile(persisted, present)
	_, statErr := os.Stat(r.cfg.ListPath)
	if !slices.Equal(entries, persisted) || errors.Is(statErr, os.ErrNotExist) {
		if err := SaveList(r.cfg.ListPath, entries); err != nil {
			return nil, err
		}
		r.logger.Debug("mod list updated", "path", r.cfg.ListPath, "mods", len(entries))
	}
	return entries, nil
}

// folders returns the mod folder names under the mods root, sorted.
// Hidden folders are ignored.
func (r *Registry) folders() ([]string, error) {
	dirEntries, err := os.ReadDir(r.cfg.ModsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModsRootNotFound, r.cfg.ModsRoot)
		}
		return nil, fmt.Errorf("failed to read mods root: %w", err)
	}

	var names []string
	for _, de := range dirEntries {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		names = append(names, de.Name())
	}
	slices.Sort(names)
	return names, nil
}

func manifestDiagnostic(path string, err error) Diagnostic {
	code := CodeManifestInvalid
	switch {
	case errors.Is(err, ErrManifestNotFound):
		code = CodeManifestMissing
	case !errors.Is(err, ErrInvalidManifest):
		code = CodeFolderUnreadable
	}
	return Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  err.Error(),
		Path:     path,
		Cause:    err,
	}
}

// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when content under a mods root changes.
//
// Events are filtered to mod documents and manifests and coalesced over a
// debounce window, so the callback fires once with the full set of changed
// paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/ironhull/modkit/internal/docload"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores are excluded regardless of Config.Ignore: VCS metadata,
// editor swap files and atomic-write temp files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/*.tmp",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// ModsRoot is the directory to watch recursively. Required.
		ModsRoot string

		// ListPath is the persisted mod list. Edits to it always trigger a
		// reload, even when it lives outside ModsRoot. Discovery rewrites
		// it only when the list changes, so reloads do not feed back.
		ListPath string

		// Patterns select the files that trigger callbacks, as doublestar
		// globs relative to ModsRoot. Empty means docload.DocumentPattern.
		Patterns []string

		// Ignore are additional doublestar globs that never trigger callbacks.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires.
		Debounce time.Duration

		// OnChange receives the deduplicated, sorted changed paths relative
		// to ModsRoot. Errors are logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error

		Logger *log.Logger
	}

	// Watcher monitors a mods root. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		root     string
		listPath string
		started  atomic.Bool
	}
)

// New resolves the mods root, validates the globs, and registers every
// non-ignored directory under the root with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if strings.TrimSpace(cfg.ModsRoot) == "" {
		return nil, errors.New("watch: mods root is required")
	}
	root, err := filepath.Abs(cfg.ModsRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve mods root: %w", err)
	}
	if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("watch: mods root %q is not a directory", root)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{docload.DocumentPattern}
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	ignores := slices.Concat(defaultIgnores, cfg.Ignore)
	var listPath string
	if cfg.ListPath != "" {
		if listPath, err = filepath.Abs(cfg.ListPath); err != nil {
			return nil, fmt.Errorf("watch: resolve mod list: %w", err)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		ignores:  ignores,
		logger:   logger,
		debounce: debounce,
		root:     root,
		listPath: listPath,
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close after init failure", "err", closeErr)
		}
		return nil, err
	}
	if listPath != "" && outside(root, listPath) {
		// The list's folder may not exist yet; the mods root is still watched.
		if addErr := fsw.Add(filepath.Dir(listPath)); addErr != nil {
			logger.Warn("cannot watch mod list folder", "path", listPath, "err", addErr)
		}
	}
	return w, nil
}

// Root returns the absolute mods root being watched.
func (w *Watcher) Root() string { return w.root }

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire runs on the timer goroutine. A reload still in progress
	// reschedules rather than overlapping, so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("reload still running, rescheduling")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Info("change detected", "files", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("reload failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}

			// New mod folders and category subfolders join the watch.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			changed, ok := w.relevantEvent(evt.Name)
			if !ok {
				continue
			}

			mu.Lock()
			pending[changed] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// Relevant reports whether a path relative to the mods root should trigger
// a reload: it matches a watch pattern and no ignore pattern.
func (w *Watcher) Relevant(rel string) bool {
	normalized := filepath.ToSlash(rel)
	return !matchAny(w.ignores, normalized) && matchAny(w.patterns, normalized)
}

// relevantEvent maps an fsnotify path to the name reported to OnChange.
// Paths under the root are reported relative to it; the mod list is
// reported as given when it lives elsewhere.
func (w *Watcher) relevantEvent(name string) (string, bool) {
	name = filepath.Clean(name)
	rel, err := filepath.Rel(w.root, name)
	if err != nil || outside(w.root, name) {
		return name, w.listPath != "" && name == w.listPath
	}
	if name == w.listPath {
		return filepath.ToSlash(rel), true
	}
	return filepath.ToSlash(rel), w.Relevant(rel)
}

// outside reports whether path is not below root.
func outside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // unreadable folders are reported by discovery
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk mods root: %w", walkErr)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.ignoredDir(path) {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("add new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) ignoredDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	normalized := filepath.ToSlash(rel)
	return matchAny(w.ignores, normalized) || matchAny(w.ignores, normalized+"/")
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, normalized string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, err)
		}
	}
	return nil
}

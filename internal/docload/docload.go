// SPDX-License-Identifier: MPL-2.0

// Package docload reads the content documents of enabled mods and parses
// them into generic document trees.
//
// Reading is sequential and follows load order. Parsing runs on a bounded
// worker pool; results are written back by input index, so the output order
// is always the declared mod order regardless of which worker finishes first.
package docload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ironhull/modkit/internal/modreg"
	"github.com/ironhull/modkit/pkg/doctree"
)

// DocumentPattern selects the content files of one category folder.
const DocumentPattern = "**/*.{cue,json,yaml,yml,toml}"

// ErrDuplicateDocument is returned when one mod provides the same document
// key twice in a category (e.g. armor.yaml and armor.json).
var ErrDuplicateDocument = errors.New("duplicate document in mod")

type (
	// Source identifies where a document came from.
	Source struct {
		// Mod is the mod folder name; ModIndex its load position.
		Mod      string
		ModIndex int
		Category string
		// Key is the category-relative path without extension, e.g.
		// "weapons/cannon". Documents with equal keys merge across mods.
		Key    string
		File   string
		Format doctree.Format
	}

	// Raw is a document read from disk but not yet parsed.
	Raw struct {
		Source
		Data []byte
	}

	// Document is a parsed document.
	Document struct {
		Source
		Tree *doctree.Node
	}

	// ProgressFunc receives the number of completed and total units of the
	// current step. It may be called from several goroutines.
	ProgressFunc func(completed, total int)

	// Config configures a Loader.
	Config struct {
		// Workers bounds parallel parsing. Defaults to GOMAXPROCS.
		Workers int
		// Cache, when set, is consulted before parsing.
		Cache  *Cache
		Logger *log.Logger
	}

	// Loader reads and parses documents.
	Loader struct {
		workers int
		cache   *Cache
		logger  *log.Logger
	}

	// ReadError reports a file or folder that could not be read.
	ReadError struct {
		Path string
		Err  error
	}

	// DuplicateDocumentError names the two files providing one document key.
	DuplicateDocumentError struct {
		Mod      string
		Category string
		Key      string
		Files    [2]string
	}
)

// Error implements the error interface for ReadError.
func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error { return e.Err }

// Error implements the error interface for DuplicateDocumentError.
func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("mod %s provides %s document %q twice (%s, %s); keeping the first",
		e.Mod, e.Category, e.Key, e.Files[0], e.Files[1])
}

// Unwrap returns ErrDuplicateDocument for errors.Is() compatibility.
func (e *DuplicateDocumentError) Unwrap() error { return ErrDuplicateDocument }

// String renders "<mod>:<category>/<key>".
func (s Source) String() string {
	return s.Mod + ":" + s.Category + "/" + s.Key
}

// New creates a Loader.
func New(cfg Config) *Loader {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{workers: workers, cache: cfg.Cache, logger: logger}
}

// Read reads every document of the given categories from mods, in mod
// order then category order then key order. Unreadable files are reported
// and skipped.
func (l *Loader) Read(mods []modreg.Descriptor, categories []string, progress ProgressFunc) ([]Raw, []error) {
	var (
		sources []Source
		errs    []error
	)
	for i, m := range mods {
		for _, cat := range categories {
			found, err := l.list(m, i, cat)
			errs = append(errs, err...)
			sources = append(sources, found...)
		}
	}

	raws := make([]Raw, 0, len(sources))
	for i, src := range sources {
		data, err := os.ReadFile(src.File)
		if err != nil {
			errs = append(errs, &ReadError{Path: src.File, Err: err})
		} else {
			raws = append(raws, Raw{Source: src, Data: data})
		}
		if progress != nil {
			progress(i+1, len(sources))
		}
	}
	return raws, errs
}

// list finds the documents of one category folder of one mod.
func (l *Loader) list(m modreg.Descriptor, index int, category string) ([]Source, []error) {
	dir := filepath.Join(m.Path, category)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{&ReadError{Path: dir, Err: err}}
	}
	if !info.IsDir() {
		return nil, []error{&ReadError{Path: dir, Err: errors.New("category path is not a directory")}}
	}

	matches, err := doublestar.Glob(os.DirFS(dir), DocumentPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, []error{&ReadError{Path: dir, Err: err}}
	}
	slices.Sort(matches)

	var (
		out  []Source
		errs []error
		seen = make(map[string]string, len(matches))
	)
	for _, rel := range matches {
		format, ok := doctree.FormatOf(rel)
		if !ok {
			continue
		}
		key := strings.TrimSuffix(rel, path.Ext(rel))
		file := filepath.Join(dir, filepath.FromSlash(rel))
		if first, dup := seen[key]; dup {
			errs = append(errs, &DuplicateDocumentError{Mod: m.Folder, Category: category, Key: key, Files: [2]string{first, file}})
			continue
		}
		seen[key] = file
		out = append(out, Source{
			Mod:      m.Folder,
			ModIndex: index,
			Category: category,
			Key:      key,
			File:     file,
			Format:   format,
		})
	}
	l.logger.Debug("listed documents", "mod", m.Folder, "category", category, "count", len(out))
	return out, errs
}

// Parse parses raws on the worker pool. The returned documents keep the
// input order; unparseable documents are reported and skipped. Parse returns
// early with ctx.Err() when ctx is cancelled.
func (l *Loader) Parse(ctx context.Context, raws []Raw, progress ProgressFunc) ([]Document, []error) {
	var (
		trees = make([]*doctree.Node, len(raws))
		perr  = make([]error, len(raws))
		done  atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trees[i], perr[i] = l.parseOne(raws[i])
			if progress != nil {
				progress(int(done.Add(1)), len(raws))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, []error{err}
	}

	docs := make([]Document, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		if perr[i] != nil {
			errs = append(errs, perr[i])
			continue
		}
		docs = append(docs, Document{Source: raw.Source, Tree: trees[i]})
	}
	return docs, errs
}

func (l *Loader) parseOne(raw Raw) (*doctree.Node, error) {
	if l.cache != nil {
		if tree, ok := l.cache.Get(raw.Format, raw.Data); ok {
			return tree, nil
		}
	}
	tree, err := doctree.Parse(raw.Format, raw.Data, raw.File)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.Put(raw.Format, raw.Data, tree)
		// The cached copy must not alias the tree handed to the merger.
		tree = tree.Clone()
	}
	return tree, nil
}

// SPDX-License-Identifier: MPL-2.0

// Package specmerge combines the partial documents that several mods provide
// for the same content item into one tree per id.
package specmerge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/pkg/doctree"
)

var (
	// ErrDuplicateID is returned when two distinct documents of a category
	// resolve to the same id. It aborts the load.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrMergeConflict is returned when two mods disagree on the shape of a
	// value (mapping versus non-mapping).
	ErrMergeConflict = errors.New("merge conflict")
)

type (
	// Merged is one content item after merging.
	Merged struct {
		// Key is the shared document key.
		Key string
		ID  string
		// Tree is the merged document with the id field filled in.
		Tree *doctree.Node
		// Sources lists the contributing documents in merge order.
		Sources []docload.Source
	}

	// Outcome is the result of merging one category.
	Outcome struct {
		Category string
		// Items holds the merged items in first-appearance order.
		Items []Merged
		// Errors holds per-key problems; the affected keys are not in Items.
		Errors []error
		// Fatal holds errors that must abort the load.
		Fatal []error
	}

	// MergeError reports a document key dropped because its documents could
	// not be merged.
	MergeError struct {
		Category string
		Key      string
		// Path is the dotted location of the conflict inside the document.
		Path   string
		Source docload.Source
		Reason string
	}

	// DuplicateIDError reports two document keys resolving to one id.
	DuplicateIDError struct {
		Category string
		ID       string
		Keys     [2]string
		Sources  [2]docload.Source
	}
)

// Error implements the error interface for MergeError.
func (e *MergeError) Error() string {
	loc := e.Category + "/" + e.Key
	if e.Path != "" {
		loc += " at " + e.Path
	}
	return fmt.Sprintf("cannot merge %s from %s: %s", loc, e.Source.Mod, e.Reason)
}

// Unwrap returns ErrMergeConflict for errors.Is() compatibility.
func (e *MergeError) Unwrap() error { return ErrMergeConflict }

// Error implements the error interface for DuplicateIDError.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s id %q is declared by both %s (%s) and %s (%s)",
		e.Category, e.ID, e.Keys[0], e.Sources[0].File, e.Keys[1], e.Sources[1].File)
}

// Unwrap returns ErrDuplicateID for errors.Is() compatibility.
func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// Err returns the first fatal error, or nil.
func (o *Outcome) Err() error {
	if len(o.Fatal) == 0 {
		return nil
	}
	return o.Fatal[0]
}

// Merge groups the documents of one category by document key and deep-merges
// each group in slice order, which must be load order. A later non-null value
// replaces an earlier one, mappings merge key by key, and sequences replace
// wholesale.
//
// The id of an item is the value of idKey in the merged tree, or the document
// key when that field is absent; the resolved id is written back under idKey.
func Merge(category, idKey string, docs []docload.Document) *Outcome {
	out := &Outcome{Category: category}

	var order []string
	groups := make(map[string][]docload.Document)
	for _, d := range docs {
		if _, seen := groups[d.Key]; !seen {
			order = append(order, d.Key)
		}
		groups[d.Key] = append(groups[d.Key], d)
	}

	owners := make(map[string]int, len(order))
	for _, key := range order {
		group := groups[key]
		item, err := mergeGroup(category, key, idKey, group)
		if err != nil {
			out.Errors = append(out.Errors, err)
			continue
		}
		if i, dup := owners[item.ID]; dup {
			prev := out.Items[i]
			out.Fatal = append(out.Fatal, &DuplicateIDError{
				Category: category,
				ID:       item.ID,
				Keys:     [2]string{prev.Key, item.Key},
				Sources:  [2]docload.Source{prev.Sources[0], item.Sources[0]},
			})
			continue
		}
		owners[item.ID] = len(out.Items)
		out.Items = append(out.Items, item)
	}
	return out
}

func mergeGroup(category, key, idKey string, group []docload.Document) (Merged, error) {
	item := Merged{Key: key, Tree: doctree.Mapping()}
	for _, d := range group {
		if err := mergeInto(item.Tree, d.Tree, nil); err != nil {
			var me *MergeError
			if errors.As(err, &me) {
				me.Category, me.Key, me.Source = category, key, d.Source
			}
			return Merged{}, err
		}
		item.Sources = append(item.Sources, d.Source)
	}

	id, err := resolveID(item.Tree, idKey, key)
	if err != nil {
		return Merged{}, &MergeError{
			Category: category,
			Key:      key,
			Path:     idKey,
			Source:   item.Sources[len(item.Sources)-1],
			Reason:   err.Error(),
		}
	}
	item.ID = id
	return item, nil
}

// mergeInto merges src into dst; both must be mappings.
func mergeInto(dst, src *doctree.Node, path []string) error {
	for _, e := range src.Entries {
		if e.Value.IsNull() {
			continue
		}
		at := append(path[:len(path):len(path)], e.Key)
		cur, ok := dst.Get(e.Key)
		switch {
		case !ok || cur.IsNull():
			dst.Set(e.Key, e.Value.Clone())
		case cur.Kind == doctree.KindMapping && e.Value.Kind == doctree.KindMapping:
			if err := mergeInto(cur, e.Value, at); err != nil {
				return err
			}
		case cur.Kind == doctree.KindMapping || e.Value.Kind == doctree.KindMapping:
			return &MergeError{
				Path:   strings.Join(at, "."),
				Reason: fmt.Sprintf("cannot replace a %s with a %s", cur.Kind, e.Value.Kind),
			}
		default:
			dst.Set(e.Key, e.Value.Clone())
		}
	}
	return nil
}

func resolveID(tree *doctree.Node, idKey, key string) (string, error) {
	v, ok := tree.Get(idKey)
	if !ok || v.IsNull() {
		tree.Set(idKey, doctree.Scalar(key))
		return key, nil
	}
	s, isString := v.Value.(string)
	if v.Kind != doctree.KindScalar || !isString {
		return "", fmt.Errorf("id must be a string, got %v", v.Interface())
	}
	if s == "" {
		return "", errors.New("id must not be empty")
	}
	return s, nil
}

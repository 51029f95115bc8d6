// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"maps"
	"slices"

	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/pkg/walker"
)

type (
	// Instance is one validated content item. It is read-only once the
	// pipeline reaches Ready.
	Instance struct {
		Category string
		ID       string
		// Sources lists the merged documents in load order.
		Sources []docload.Source
		// Value is a pointer to the category type, e.g. *content.BlockSpec.
		Value    any
		Checksum uint32
	}

	// Database holds the validated instances of one load, per category.
	Database struct {
		categories []string
		items      map[string]map[string]*Instance
	}

	// idSet answers reference lookups while validating, before the database
	// is complete.
	idSet map[string]map[string]bool
)

func newDatabase(categories []string) *Database {
	db := &Database{categories: slices.Clone(categories), items: make(map[string]map[string]*Instance, len(categories))}
	for _, c := range categories {
		db.items[c] = make(map[string]*Instance)
	}
	return db
}

func (db *Database) add(in *Instance) {
	db.items[in.Category][in.ID] = in
}

// Categories returns the category names in catalog order.
func (db *Database) Categories() []string { return slices.Clone(db.categories) }

// Get returns one instance.
func (db *Database) Get(category, id string) (*Instance, bool) {
	in, ok := db.items[category][id]
	return in, ok
}

// IDs returns the ids of a category in sorted order.
func (db *Database) IDs(category string) []string {
	return slices.Sorted(maps.Keys(db.items[category]))
}

// Instances returns the instances of a category sorted by id.
func (db *Database) Instances(category string) []*Instance {
	ids := db.IDs(category)
	out := make([]*Instance, len(ids))
	for i, id := range ids {
		out[i] = db.items[category][id]
	}
	return out
}

// Len returns the total number of instances.
func (db *Database) Len() int {
	n := 0
	for _, m := range db.items {
		n += len(m)
	}
	return n
}

// Known implements walker.RefResolver.
func (db *Database) Known(category, id string) bool {
	_, ok := db.items[category][id]
	return ok
}

// Checksum combines the instance checksums into one value. Ids combine
// within a category and categories combine with each other as dictionary
// entries, so the result does not depend on load or map order.
func (db *Database) Checksum() uint32 {
	var total uint32
	for _, c := range db.categories {
		var cat uint32
		for id, in := range db.items[c] {
			cat ^= walker.Pair(walker.StringChecksum(id), in.Checksum)
		}
		total ^= walker.Pair(walker.StringChecksum(c), cat)
	}
	return total
}

func (s idSet) add(category, id string) {
	if s[category] == nil {
		s[category] = make(map[string]bool)
	}
	s[category][id] = true
}

// Known implements walker.RefResolver.
func (s idSet) Known(category, id string) bool { return s[category][id] }

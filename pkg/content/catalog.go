// SPDX-License-Identifier: MPL-2.0

package content

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/ironhull/modkit/pkg/walker"
)

// Category keys.
const (
	CategoryResources     = "resources"
	CategoryBlocks        = "blocks"
	CategoryControlGroups = "control_groups"
	CategoryRules         = "rules"
)

// DefaultRulesID is the rules document every load must provide.
const DefaultRulesID = "default"

type (
	// Category is one kind of content: its folder name inside a mod, the
	// Go type its documents bind to, and the ids that must exist after merge.
	Category struct {
		Name         string
		Type         reflect.Type
		Required     []string
		ExportSchema bool
	}

	// Catalog is the ordered list of categories loaded by the pipeline.
	Catalog []Category
)

// DefaultCatalog returns the game's content categories.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: CategoryResources, Type: reflect.TypeFor[ResourceSpec](), ExportSchema: true},
		{Name: CategoryBlocks, Type: reflect.TypeFor[BlockSpec](), ExportSchema: true},
		{Name: CategoryControlGroups, Type: reflect.TypeFor[ControlGroupSpec](), ExportSchema: true},
		{Name: CategoryRules, Type: reflect.TypeFor[RulesSpec](), Required: []string{DefaultRulesID}, ExportSchema: true},
	}
}

// Names returns the category names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}

// Lookup returns the category with the given name.
func (c Catalog) Lookup(name string) (Category, bool) {
	i := slices.IndexFunc(c, func(cat Category) bool { return cat.Name == name })
	if i < 0 {
		return Category{}, false
	}
	return c[i], true
}

// Register binds every category to its type in reg. A conflicting
// registration is returned as-is (a *walker.DuplicateKeyError).
func (c Catalog) Register(reg *walker.Registry) error {
	for _, cat := range c {
		if err := reg.Register(cat.Name, cat.Type); err != nil {
			return fmt.Errorf("register category %s: %w", cat.Name, err)
		}
	}
	return nil
}

// IDKey returns the document key of the category's id field, or "id".
func (cat Category) IDKey(reg *walker.Registry) string {
	if f, ok := reg.IDField(cat.Type); ok {
		return f.Key
	}
	return "id"
}

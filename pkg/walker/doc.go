// SPDX-License-Identifier: MPL-2.0

// Package walker implements the reflective spec tree walk shared by the
// checksum, validation and schema operations.
//
// A spec type is any Go type reachable from a registered content category.
// Each declared type is classified once into a Kind (primitive, vector, enum,
// collection, dictionary, composite) plus optional capability hooks, and the
// result is cached in a Registry. The classification depends only on the
// declared type, so two peers walking structurally-equal values execute the
// same code path and produce the same checksum.
//
// Struct fields carry declarative metadata in the `spec` tag:
//
//	type BlockSpec struct {
//	    ID        string             `mapstructure:"id" spec:"id,nonnull"`
//	    MaxHealth float64            `mapstructure:"max_health" spec:"min=0"`
//	    Cost      map[string]float64 `mapstructure:"cost" spec:"resources"`
//	    Name      string             `mapstructure:"name" spec:"level=everything" desc:"Display name"`
//	}
//
// The same tags are interpreted by all three operations: the checksum skips
// fields above the requested Level, validation enforces nonnull/min/max/ref/
// resources, and the schema documents them.
package walker

// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// KindInvalid marks declared types the walker cannot classify.
	KindInvalid Kind = iota
	// KindPrimitive covers bool, integer, float and string types.
	KindPrimitive
	// KindVector covers fixed-size numeric value types implementing Vector.
	KindVector
	// KindEnum covers named integer types implementing Enum.
	KindEnum
	// KindCollection covers slices and arrays.
	KindCollection
	// KindDictionary covers maps.
	KindDictionary
	// KindComposite covers structs walked field by field.
	KindComposite
)

const (
	// HookChecksum marks types implementing Checksummer.
	HookChecksum Hooks = 1 << iota
	// HookValidate marks types implementing Validator.
	HookValidate
	// HookSchema marks types implementing SchemaProvider.
	HookSchema
)

const (
	// LevelBasic fields contribute to every checksum.
	LevelBasic Level = iota
	// LevelStrict fields contribute to Strict and Everything checksums.
	LevelStrict
	// LevelEverything fields contribute only to Everything checksums.
	LevelEverything
)

// ErrInvalidLevel is returned when a checksum level name is not recognized.
var ErrInvalidLevel = errors.New("invalid checksum level")

type (
	// Kind classifies a declared spec type.
	Kind int

	// Hooks is a bit set of the capability interfaces a type implements.
	Hooks uint8

	// Level is the checksum strictness tier. Filtering is monotonic: a field
	// visible at a lower level is visible at every higher level.
	Level int

	// InvalidLevelError is returned when a Level name is not recognized.
	// It wraps ErrInvalidLevel for errors.Is() compatibility.
	InvalidLevelError struct {
		Value string
	}

	// Vector is implemented by fixed-size numeric value types (positions,
	// sizes, directions). Components must always return the same length.
	Vector interface {
		Components() []float64
	}

	// Enum is implemented by named integer types. The value is an index
	// into EnumNames.
	Enum interface {
		EnumNames() []string
	}

	// Checksummer lets a type compute its own checksum contribution.
	Checksummer interface {
		SpecChecksum(level Level) uint32
	}

	// Validator lets a type take over validation of its own subtree. The
	// path is a private copy; implementations may delegate back to the
	// generic field walk with vc.ValidateFields.
	Validator interface {
		ValidateSpec(vc *ValidationContext, path Path)
	}

	// SchemaProvider lets a type replace its generated schema.
	SchemaProvider interface {
		SpecSchema() *Schema
	}
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindVector:
		return "vector"
	case KindEnum:
		return "enum"
	case KindCollection:
		return "collection"
	case KindDictionary:
		return "dictionary"
	case KindComposite:
		return "composite"
	default:
		return "invalid"
	}
}

// Has reports whether all bits of h2 are set in h.
func (h Hooks) Has(h2 Hooks) bool { return h&h2 == h2 }

// String returns the level name as written in `spec` tags and configuration.
func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelStrict:
		return "strict"
	case LevelEverything:
		return "everything"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Validate returns nil if the Level is one of the defined tiers.
func (l Level) Validate() error {
	switch l {
	case LevelBasic, LevelStrict, LevelEverything:
		return nil
	default:
		return &InvalidLevelError{Value: l.String()}
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return LevelBasic, nil
	case "strict":
		return LevelStrict, nil
	case "everything":
		return LevelEverything, nil
	default:
		return LevelBasic, &InvalidLevelError{Value: s}
	}
}

// Error implements the error interface for InvalidLevelError.
func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid checksum level %q (valid: basic, strict, everything)", e.Value)
}

// Unwrap returns ErrInvalidLevel for errors.Is() compatibility.
func (e *InvalidLevelError) Unwrap() error { return ErrInvalidLevel }

// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	// TagName is the struct tag holding walker attributes.
	TagName = "spec"
	// DescriptionTagName is the struct tag holding the schema description.
	DescriptionTagName = "desc"
	// KeyTagName is the struct tag holding the document key of a field.
	KeyTagName = "mapstructure"

	// DefaultResourceCategory is the category referenced by `resources`
	// fields when no category is given.
	DefaultResourceCategory = "resources"
)

// ErrInvalidTag is returned when a `spec` tag cannot be parsed.
var ErrInvalidTag = errors.New("invalid spec tag")

type (
	// Tags is the attribute set attached to one struct field.
	Tags struct {
		// ID marks the field identifying an instance within its category.
		ID bool
		// Level is the checksum tier of the field.
		Level Level
		// NonNull rejects nil pointers, nil maps/slices and empty strings.
		NonNull bool
		// HasMin/Min and HasMax/Max bound numeric values (inclusive).
		HasMin bool
		Min    float64
		HasMax bool
		Max    float64
		// Ref names the category a string (or []string) value must reference.
		Ref string
		// Resources names the category keys of a resource dictionary must
		// reference; values must be non-negative. Empty means not a resource
		// dictionary.
		Resources string
		// Description is documented in the generated schema.
		Description string
	}

	// InvalidTagError reports a malformed `spec` tag on a struct field.
	InvalidTagError struct {
		Type   reflect.Type
		Field  string
		Option string
		Reason string
	}
)

// Error implements the error interface for InvalidTagError.
func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("%s.%s: spec tag option %q: %s", e.Type, e.Field, e.Option, e.Reason)
}

// Unwrap returns ErrInvalidTag for errors.Is() compatibility.
func (e *InvalidTagError) Unwrap() error { return ErrInvalidTag }

// parseTags reads the `spec` and `desc` tags of a struct field.
func parseTags(owner reflect.Type, sf reflect.StructField) (Tags, error) {
	tags := Tags{Description: sf.Tag.Get(DescriptionTagName)}
	raw, ok := sf.Tag.Lookup(TagName)
	if !ok || raw == "" {
		return tags, nil
	}

	for opt := range strings.SplitSeq(raw, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		name, value, hasValue := strings.Cut(opt, "=")
		bad := func(reason string) error {
			return &InvalidTagError{Type: owner, Field: sf.Name, Option: opt, Reason: reason}
		}

		switch name {
		case "id":
			tags.ID = true
		case "nonnull":
			tags.NonNull = true
		case "level":
			lvl, err := ParseLevel(value)
			if err != nil {
				return tags, bad(err.Error())
			}
			tags.Level = lvl
		case "min", "max":
			f, err := strconv.ParseFloat(value, 64)
			if !hasValue || err != nil {
				return tags, bad("expected a number")
			}
			if name == "min" {
				tags.HasMin, tags.Min = true, f
			} else {
				tags.HasMax, tags.Max = true, f
			}
		case "ref":
			if value == "" {
				return tags, bad("expected a category name")
			}
			tags.Ref = value
		case "resources":
			tags.Resources = DefaultResourceCategory
			if hasValue && value != "" {
				tags.Resources = value
			}
		default:
			return tags, bad("unknown option")
		}
	}

	if tags.HasMin && tags.HasMax && tags.Min > tags.Max {
		return tags, &InvalidTagError{Type: owner, Field: sf.Name, Option: raw, Reason: "min exceeds max"}
	}
	return tags, nil
}

// fieldKey returns the document key of a struct field and whether the field
// participates in the walk at all.
func fieldKey(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get(KeyTagName)
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return "", false
	case "":
		return sf.Name, true
	default:
		return name, true
	}
}

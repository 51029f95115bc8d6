// SPDX-License-Identifier: MPL-2.0

package content

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/ironhull/modkit/pkg/doctree"
)

// ErrBind is returned when a merged document does not fit its category type.
var ErrBind = errors.New("cannot bind document")

var componentSetterType = reflect.TypeFor[ComponentSetter]()

// BindError reports a merged document that could not be decoded into its
// category type.
type BindError struct {
	Category string
	ID       string
	Err      error
}

// Error implements the error interface for BindError.
func (e *BindError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Category, e.ID, e.Err)
}

// Unwrap returns both ErrBind and the decoder error.
func (e *BindError) Unwrap() []error { return []error{ErrBind, e.Err} }

// Bind decodes a merged document tree into a new instance of the category
// type and returns a pointer to it. Unknown keys are rejected.
func Bind(cat Category, id string, tree *doctree.Node) (any, error) {
	ptr := reflect.New(cat.Type)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			vectorHook,
			mapstructure.TextUnmarshallerHookFunc(),
		),
		ErrorUnused: true,
		Result:      ptr.Interface(),
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("internal error: building decoder: %w", err)
	}
	if err := dec.Decode(tree.Interface()); err != nil {
		return nil, &BindError{Category: cat.Name, ID: id, Err: err}
	}
	return ptr.Interface(), nil
}

// vectorHook decodes a numeric sequence into a ComponentSetter type.
func vectorHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Slice || !reflect.PointerTo(to).Implements(componentSetterType) {
		return data, nil
	}
	items, ok := data.([]any)
	if !ok {
		return data, nil
	}
	comps := make([]float64, len(items))
	for i, it := range items {
		switch x := it.(type) {
		case int64:
			comps[i] = float64(x)
		case float64:
			comps[i] = x
		case int:
			comps[i] = float64(x)
		default:
			return nil, fmt.Errorf("%w: component %d is %T, expected a number", ErrInvalidVector, i, it)
		}
	}
	out := reflect.New(to)
	if err := out.Interface().(ComponentSetter).SetComponents(comps); err != nil {
		return nil, err
	}
	return out.Elem().Interface(), nil
}

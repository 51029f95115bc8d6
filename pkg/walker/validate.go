// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
)

type (
	// ValidationError is one field-level problem: a dotted path and a message.
	ValidationError struct {
		Path    string
		Message string
	}

	// RefResolver answers whether an id exists in a category. It backs the
	// `ref` and `resources` validators.
	RefResolver interface {
		Known(category, id string) bool
	}

	// ValidationContext accumulates errors for one or more validation walks.
	// Validation never stops at the first problem.
	ValidationContext struct {
		w    *Walker
		refs RefResolver
		errs []ValidationError
	}

	validateOp struct {
		vc *ValidationContext
	}
)

// Error renders "<dotted.path> <message>".
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + " " + e.Message
}

// NewValidationContext creates a context resolving references with refs.
// A nil resolver accepts every reference.
func (w *Walker) NewValidationContext(refs RefResolver) *ValidationContext {
	return &ValidationContext{w: w, refs: refs}
}

// Validate walks v and records every violation under root. It returns an
// error only when v's type cannot be walked; validation findings are read
// from vc.Errors.
func (w *Walker) Validate(v any, root Path, vc *ValidationContext) error {
	t, rv, err := w.root(v)
	if err != nil {
		return err
	}
	if vc.w == nil {
		vc.w = w
	}
	w.walk(&validateOp{vc: vc}, t, rv, root.Clone())
	return nil
}

// Errorf records a validation error at path.
func (vc *ValidationContext) Errorf(path Path, format string, args ...any) {
	vc.errs = append(vc.errs, ValidationError{Path: path.String(), Message: fmt.Sprintf(format, args...)})
}

// Errors returns the recorded errors in walk order.
func (vc *ValidationContext) Errors() []ValidationError {
	return slices.Clone(vc.errs)
}

// Len returns the number of recorded errors.
func (vc *ValidationContext) Len() int { return len(vc.errs) }

// Known reports whether id exists in category according to the resolver.
func (vc *ValidationContext) Known(category, id string) bool {
	if vc.refs == nil {
		return true
	}
	return vc.refs.Known(category, id)
}

// ValidateFields runs the generic field-by-field validation of a composite
// value, bypassing its Validator hook. Custom validators call it for the
// parts they do not special-case.
func (vc *ValidationContext) ValidateFields(v any, path Path) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	info, err := vc.w.reg.Describe(rv.Type())
	if err != nil {
		vc.Errorf(path, "cannot validate: %v", err)
		return
	}
	if info.Kind != KindComposite {
		vc.Errorf(path, "cannot validate fields of %s value", info.Kind)
		return
	}
	op := &validateOp{vc: vc}
	op.composite(node{info: info, val: rv, path: path.Clone()})
}

func (op *validateOp) null(node) Result { return Result{} }

func (op *validateOp) primitive(n node) Result {
	if k := n.val.Kind(); k == reflect.Float32 || k == reflect.Float64 {
		if f := n.val.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			op.vc.Errorf(n.path, "must be a finite number")
		}
	}
	return Result{}
}

func (op *validateOp) vector(n node) Result {
	for _, c := range n.iface().(Vector).Components() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			op.vc.Errorf(n.path, "components must be finite numbers")
			break
		}
	}
	return Result{}
}

func (op *validateOp) custom(n node) (Result, bool) {
	if !n.info.Hooks.Has(HookValidate) {
		return Result{}, false
	}
	path := n.path.Clone()
	func() {
		defer func() {
			if r := recover(); r != nil {
				op.vc.Errorf(n.path, "validator panicked: %v", r)
			}
		}()
		n.iface().(Validator).ValidateSpec(op.vc, path)
	}()
	return Result{}, true
}

func (op *validateOp) dictionary(n node) Result {
	t := n.info.Type
	for _, e := range sortedEntries(n.val) {
		op.vc.w.walk(op, t.Elem(), e.val, n.path.Key(e.key))
	}
	return Result{}
}

func (op *validateOp) collection(n node) Result {
	elem := n.info.Type.Elem()
	for i := range n.val.Len() {
		op.vc.w.walk(op, elem, n.val.Index(i), n.path.Index(i))
	}
	return Result{}
}

func (op *validateOp) enum(n node) Result {
	names := n.iface().(Enum).EnumNames()
	var idx int64
	if n.val.CanInt() {
		idx = n.val.Int()
	} else {
		idx = int64(n.val.Uint())
	}
	if idx < 0 || idx >= int64(len(names)) {
		op.vc.Errorf(n.path, "invalid value %d (valid: %v)", idx, names)
	}
	return Result{}
}

func (op *validateOp) composite(n node) Result {
	for _, f := range n.info.Fields {
		fv := n.field(f)
		path := n.path.Field(f.Key)
		op.checkField(f, fv, path)
		op.vc.w.walk(op, f.Type, fv, path)
	}
	return Result{}
}

// checkField applies the attribute validators of f to its value.
func (op *validateOp) checkField(f Field, v reflect.Value, path Path) {
	tags := f.Tags
	if tags.NonNull && isNullish(v) {
		op.vc.Errorf(path, "must not be null or empty")
		return
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	if tags.HasMin || tags.HasMax {
		if num, ok := numeric(v); ok {
			if tags.HasMin && num < tags.Min {
				op.vc.Errorf(path, "must be >= %s (got %s)", formatNum(tags.Min), formatNum(num))
			}
			if tags.HasMax && num > tags.Max {
				op.vc.Errorf(path, "must be <= %s (got %s)", formatNum(tags.Max), formatNum(num))
			}
		}
	}

	if tags.Ref != "" {
		op.checkRefs(tags.Ref, v, path)
	}
	if tags.Resources != "" {
		checkResources(op.vc, tags.Resources, v, path)
	}
}

func (op *validateOp) checkRefs(category string, v reflect.Value, path Path) {
	switch v.Kind() {
	case reflect.String:
		if id := v.String(); id != "" && !op.vc.Known(category, id) {
			op.vc.Errorf(path, "references unknown %s id %q", category, id)
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			op.checkRefs(category, v.Index(i), path.Index(i))
		}
	}
}

type entry struct {
	key string
	val reflect.Value
}

// sortedEntries returns map entries ordered by their formatted key so that
// validation reports are stable across runs.
func sortedEntries(m reflect.Value) []entry {
	entries := make([]entry, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: formatKey(iter.Key()), val: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.key, b.key) })
	return entries
}

func formatKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func isNullish(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return v.Len() == 0
	default:
		return false
	}
}

func numeric(v reflect.Value) (float64, bool) {
	switch {
	case v.CanInt():
		return float64(v.Int()), true
	case v.CanUint():
		return float64(v.Uint()), true
	case v.CanFloat():
		return v.Float(), true
	default:
		return 0, false
	}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

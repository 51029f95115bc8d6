// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"fmt"
	"reflect"
)

type (
	// Walker runs the checksum, validation and schema operations over spec
	// values using the type descriptors cached in its Registry. A Walker has
	// no mutable state of its own and walks sequentially.
	Walker struct {
		reg *Registry
	}

	// Result is what one walk step produces. Checksum fills Sum, Schema
	// fills Schema; validation reports through its ValidationContext.
	Result struct {
		Sum    uint32
		Schema *Schema
	}

	// node is one step of the walk. val is invalid for type-only walks.
	node struct {
		info *TypeInfo
		val  reflect.Value
		path Path
	}

	// operation is implemented by the checksum, validation and schema passes.
	// walk decides which method runs; each method recurses through walk for
	// children.
	operation interface {
		null(n node) Result
		primitive(n node) Result
		vector(n node) Result
		custom(n node) (Result, bool)
		dictionary(n node) Result
		collection(n node) Result
		enum(n node) Result
		composite(n node) Result
	}
)

// New creates a Walker over reg.
func New(reg *Registry) *Walker {
	return &Walker{reg: reg}
}

// Registry returns the type registry backing the walker.
func (w *Walker) Registry() *Registry {
	return w.reg
}

// walk dispatches one node: null, primitive, vector, custom hook, dictionary,
// collection, enum, composite, in that order. The Kind comes from the
// declared type t; v only decides null-ness.
func (w *Walker) walk(op operation, t reflect.Type, v reflect.Value, path Path) Result {
	for t.Kind() == reflect.Pointer {
		if v.IsValid() {
			if v.IsNil() {
				return op.null(node{info: w.reg.mustDescribe(t), path: path})
			}
			v = v.Elem()
		}
		t = t.Elem()
	}

	n := node{info: w.reg.mustDescribe(t), val: v, path: path}
	switch n.info.Kind {
	case KindPrimitive:
		return op.primitive(n)
	case KindVector:
		return op.vector(n)
	}
	if r, ok := op.custom(n); ok {
		return r
	}
	switch n.info.Kind {
	case KindDictionary:
		return op.dictionary(n)
	case KindCollection:
		return op.collection(n)
	case KindEnum:
		return op.enum(n)
	case KindComposite:
		return op.composite(n)
	default:
		panic(fmt.Sprintf("walker: unhandled kind %s for %s", n.info.Kind, t))
	}
}

// root prepares the entry of a value walk, describing the type first so
// unsupported types surface as errors instead of panics mid-walk.
func (w *Walker) root(v any) (reflect.Type, reflect.Value, error) {
	if v == nil {
		return nil, reflect.Value{}, fmt.Errorf("walker: nil value")
	}
	rv := reflect.ValueOf(v)
	if _, err := w.reg.Describe(rv.Type()); err != nil {
		return nil, reflect.Value{}, err
	}
	return rv.Type(), rv, nil
}

// field returns the value of f in the composite n, or an invalid value for
// type-only walks.
func (n node) field(f Field) reflect.Value {
	if !n.val.IsValid() {
		return reflect.Value{}
	}
	return n.val.Field(f.Index)
}

// iface returns the node value as an interface holding a pointer, so both
// value and pointer receiver methods are reachable. Non-addressable values
// are copied first; type-only nodes yield a pointer to the zero value.
func (n node) iface() any {
	return pointerTo(n.info.Type, n.val)
}

func pointerTo(t reflect.Type, v reflect.Value) any {
	if v.IsValid() && v.CanAddr() {
		return v.Addr().Interface()
	}
	p := reflect.New(t)
	if v.IsValid() {
		p.Elem().Set(v)
	}
	return p.Interface()
}

// SPDX-License-Identifier: MPL-2.0

// Package doctree is the format-neutral document model shared by the loader
// and the merger: every content file, whatever its syntax, becomes a tree of
// scalars, sequences and mappings.
package doctree

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

const (
	// KindNull is an explicit null value.
	KindNull Kind = iota
	// KindScalar holds a bool, int64, float64 or string.
	KindScalar
	// KindSequence holds ordered items.
	KindSequence
	// KindMapping holds ordered key/value entries with unique keys.
	KindMapping
)

type (
	// Kind is the shape of a Node.
	Kind int

	// Node is one value of a parsed document.
	Node struct {
		Kind Kind
		// Value is set for scalars: bool, int64, float64 or string.
		Value any
		// Items is set for sequences.
		Items []*Node
		// Entries is set for mappings, in document order.
		Entries []Entry
	}

	// Entry is one key/value pair of a mapping.
	Entry struct {
		Key   string
		Value *Node
	}
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Null returns a null node.
func Null() *Node { return &Node{Kind: KindNull} }

// Scalar returns a scalar node. Integers are widened to int64 and float32 to
// float64.
func Scalar(v any) *Node {
	switch x := v.(type) {
	case int:
		v = int64(x)
	case int8:
		v = int64(x)
	case int16:
		v = int64(x)
	case int32:
		v = int64(x)
	case uint:
		v = int64(x)
	case uint8:
		v = int64(x)
	case uint16:
		v = int64(x)
	case uint32:
		v = int64(x)
	case uint64:
		v = int64(x)
	case float32:
		v = float64(x)
	}
	return &Node{Kind: KindScalar, Value: v}
}

// Sequence returns a sequence node.
func Sequence(items ...*Node) *Node {
	return &Node{Kind: KindSequence, Items: items}
}

// Mapping returns a mapping node. Later entries replace earlier ones with the
// same key.
func Mapping(entries ...Entry) *Node {
	n := &Node{Kind: KindMapping}
	for _, e := range entries {
		n.Set(e.Key, e.Value)
	}
	return n
}

// IsNull reports whether n is nil or an explicit null.
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == KindNull
}

// Get returns the value stored under key in a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindMapping {
		return nil, false
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set stores value under key, keeping the position of an existing key.
// It panics if n is not a mapping.
func (n *Node) Set(key string, value *Node) {
	if n.Kind != KindMapping {
		panic("doctree: Set on " + n.Kind.String())
	}
	for i := range n.Entries {
		if n.Entries[i].Key == key {
			n.Entries[i].Value = value
			return
		}
	}
	n.Entries = append(n.Entries, Entry{Key: key, Value: value})
}

// Keys returns the mapping keys in document order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != KindMapping {
		return nil
	}
	keys := make([]string, len(n.Entries))
	for i, e := range n.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Value: n.Value}
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = it.Clone()
		}
	}
	if n.Entries != nil {
		c.Entries = make([]Entry, len(n.Entries))
		for i, e := range n.Entries {
			c.Entries[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	return c
}

// Interface converts n to plain Go values: nil, scalars, []any and
// map[string]any. It is the input of typed binding.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindScalar:
		return n.Value
	case KindSequence:
		out := make([]any, len(n.Items))
		for i, it := range n.Items {
			out[i] = it.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.Entries))
		for _, e := range n.Entries {
			out[e.Key] = e.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromAny builds a tree from decoded Go values. Map keys are sorted, since
// Go maps carry no document order. Date and time values become RFC 3339
// strings.
func FromAny(v any) (*Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(x), nil
	case time.Time:
		return Scalar(x.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		return Scalar(x.String()), nil
	case []any:
		items := make([]*Node, len(x))
		for i, it := range x {
			n, err := FromAny(it)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = n
		}
		return Sequence(items...), nil
	case map[string]any:
		n := &Node{Kind: KindMapping, Entries: make([]Entry, 0, len(x))}
		for _, k := range slices.Sorted(maps.Keys(x)) {
			child, err := FromAny(x[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			n.Entries = append(n.Entries, Entry{Key: k, Value: child})
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported document value of type %T", v)
	}
}

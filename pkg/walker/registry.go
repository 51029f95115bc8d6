// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedType is returned when a declared type has no Kind.
	ErrUnsupportedType = errors.New("unsupported spec type")
	// ErrDuplicateKey is returned when two different types are registered
	// under the same category key.
	ErrDuplicateKey = errors.New("duplicate category key")

	vectorType         = reflect.TypeFor[Vector]()
	enumType           = reflect.TypeFor[Enum]()
	checksummerType    = reflect.TypeFor[Checksummer]()
	validatorType      = reflect.TypeFor[Validator]()
	schemaProviderType = reflect.TypeFor[SchemaProvider]()
)

type (
	// Field describes one walked struct field.
	Field struct {
		// Name is the Go field name; checksum order is alphabetical by Name.
		Name string
		// Key is the document key (mapstructure tag or Name).
		Key string
		// Index is the struct field index.
		Index int
		// Type is the declared field type.
		Type reflect.Type
		// Tags are the parsed field attributes.
		Tags Tags
	}

	// TypeInfo is the cached classification of one declared type.
	TypeInfo struct {
		Type  reflect.Type
		Kind  Kind
		Hooks Hooks
		// Fields lists composite fields sorted by Name.
		Fields []Field
		// ID is the index into Fields of the id field, or -1.
		ID int
	}

	// Registry caches TypeInfo per declared type and maps category keys to
	// their root types. It is safe for concurrent use and is read-mostly
	// once the categories are registered.
	Registry struct {
		mu         sync.RWMutex
		types      map[reflect.Type]*TypeInfo
		categories map[string]reflect.Type
	}

	// UnsupportedTypeError reports a declared type the walker cannot classify.
	UnsupportedTypeError struct {
		Type reflect.Type
		// Via is the dotted field chain that reached Type, if any.
		Via string
	}

	// DuplicateKeyError reports two types registered under one category key.
	DuplicateKeyError struct {
		Key      string
		Existing reflect.Type
		Incoming reflect.Type
	}
)

// Error implements the error interface for UnsupportedTypeError.
func (e *UnsupportedTypeError) Error() string {
	if e.Via != "" {
		return fmt.Sprintf("unsupported spec type %s (via %s)", e.Type, e.Via)
	}
	return fmt.Sprintf("unsupported spec type %s", e.Type)
}

// Unwrap returns ErrUnsupportedType for errors.Is() compatibility.
func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// Error implements the error interface for DuplicateKeyError.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("category key %q registered for both %s and %s", e.Key, e.Existing, e.Incoming)
}

// Unwrap returns ErrDuplicateKey for errors.Is() compatibility.
func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		types:      make(map[reflect.Type]*TypeInfo),
		categories: make(map[string]reflect.Type),
	}
}

// Register binds a category key to a composite root type, describing the
// whole reachable type graph. Registering the same type twice is a no-op;
// registering a different type under an existing key returns a
// *DuplicateKeyError.
func (r *Registry) Register(key string, t reflect.Type) error {
	t = deref(t)
	info, err := r.Describe(t)
	if err != nil {
		return err
	}
	if info.Kind != KindComposite {
		return &UnsupportedTypeError{Type: t, Via: "category " + key + " (root must be a struct)"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.categories[key]; ok {
		if existing == t {
			return nil
		}
		return &DuplicateKeyError{Key: key, Existing: existing, Incoming: t}
	}
	r.categories[key] = t
	return nil
}

// Lookup returns the root type registered under key.
func (r *Registry) Lookup(key string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.categories[key]
	return t, ok
}

// Categories returns the registered category keys in sorted order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.categories))
	for k := range r.categories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IDField returns the id field of a composite type, if it declares one.
func (r *Registry) IDField(t reflect.Type) (Field, bool) {
	info, err := r.Describe(t)
	if err != nil || info.ID < 0 {
		return Field{}, false
	}
	return info.Fields[info.ID], true
}

// Describe returns the cached TypeInfo for t (pointers are dereferenced),
// classifying t and every type reachable from it on first use.
func (r *Registry) Describe(t reflect.Type) (*TypeInfo, error) {
	t = deref(t)

	r.mu.RLock()
	info, ok := r.types[t]
	r.mu.RUnlock()
	if ok {
		return info, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var added []reflect.Type
	info, err := r.describeLocked(t, nil, &added)
	if err != nil {
		// Types reached before the failure may point back at a failed one.
		for _, a := range added {
			delete(r.types, a)
		}
		return nil, err
	}
	return info, nil
}

// mustDescribe is used inside walks, where the root type was already
// described and every reachable type is therefore cached.
func (r *Registry) mustDescribe(t reflect.Type) *TypeInfo {
	info, err := r.Describe(t)
	if err != nil {
		panic(fmt.Sprintf("walker: type %s escaped registration: %v", t, err))
	}
	return info
}

func (r *Registry) describeLocked(t reflect.Type, via []string, added *[]reflect.Type) (*TypeInfo, error) {
	if info, ok := r.types[t]; ok {
		return info, nil
	}

	info := &TypeInfo{Type: t, Kind: classify(t), Hooks: hooksOf(t), ID: -1}
	if info.Kind == KindInvalid {
		return nil, &UnsupportedTypeError{Type: t, Via: strings.Join(via, ".")}
	}
	// Store before descending so recursive types terminate.
	r.types[t] = info
	*added = append(*added, t)

	switch info.Kind {
	case KindCollection:
		if _, err := r.describeLocked(deref(t.Elem()), append(via, "[]"), added); err != nil {
			return nil, err
		}
	case KindDictionary:
		if classify(deref(t.Key())) != KindPrimitive {
			return nil, &UnsupportedTypeError{Type: t.Key(), Via: strings.Join(append(via, "<key>"), ".")}
		}
		if _, err := r.describeLocked(deref(t.Elem()), append(via, "<value>"), added); err != nil {
			return nil, err
		}
	case KindComposite:
		fields, err := r.describeFields(t, via, added)
		if err != nil {
			return nil, err
		}
		info.Fields = fields
		for i := range fields {
			if fields[i].Tags.ID {
				info.ID = i
				break
			}
		}
	}
	return info, nil
}

func (r *Registry) describeFields(t reflect.Type, via []string, added *[]reflect.Type) ([]Field, error) {
	var fields []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		key, ok := fieldKey(sf)
		if !ok {
			continue
		}
		tags, err := parseTags(t, sf)
		if err != nil {
			return nil, err
		}
		if _, err := r.describeLocked(deref(sf.Type), append(via, sf.Name), added); err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: sf.Name, Key: key, Index: i, Type: sf.Type, Tags: tags})
	}
	slices.SortFunc(fields, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	return fields, nil
}

// classify derives the Kind from the declared type alone.
func classify(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Float32, reflect.Float64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if isInteger(t) && implements(t, enumType) {
			return KindEnum
		}
		return KindPrimitive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if implements(t, enumType) {
			return KindEnum
		}
		return KindPrimitive
	case reflect.Struct, reflect.Array:
		if implements(t, vectorType) {
			return KindVector
		}
		if t.Kind() == reflect.Array {
			return KindCollection
		}
		return KindComposite
	case reflect.Slice:
		return KindCollection
	case reflect.Map:
		return KindDictionary
	default:
		return KindInvalid
	}
}

func hooksOf(t reflect.Type) Hooks {
	var h Hooks
	if implements(t, checksummerType) {
		h |= HookChecksum
	}
	if implements(t, validatorType) {
		h |= HookValidate
	}
	if implements(t, schemaProviderType) {
		h |= HookSchema
	}
	return h
}

// implements checks both the value and pointer method sets.
func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"fmt"
	"reflect"
)

// SchemaDialect is the JSON Schema dialect of generated documents.
const SchemaDialect = "https://json-schema.org/draft/2020-12/schema"

type (
	// Schema is the subset of JSON Schema the walker emits.
	Schema struct {
		Ref                  string             `json:"$ref,omitempty"`
		Type                 string             `json:"type,omitempty"`
		Description          string             `json:"description,omitempty"`
		Properties           map[string]*Schema `json:"properties,omitempty"`
		PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`
		PropertyNames        *Schema            `json:"propertyNames,omitempty"`
		AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
		Required             []string           `json:"required,omitempty"`
		Items                *Schema            `json:"items,omitempty"`
		MinItems             *int               `json:"minItems,omitempty"`
		MaxItems             *int               `json:"maxItems,omitempty"`
		Enum                 []string           `json:"enum,omitempty"`
		Minimum              *float64           `json:"minimum,omitempty"`
		Maximum              *float64           `json:"maximum,omitempty"`
		Pattern              string             `json:"pattern,omitempty"`
		OneOf                []*Schema          `json:"oneOf,omitempty"`
		// Reference names the category whose ids the value must match.
		Reference string `json:"x-reference,omitempty"`
	}

	// Document is a complete schema for one category root type.
	Document struct {
		Dialect string `json:"$schema"`
		ID      string `json:"$id"`
		Title   string `json:"title,omitempty"`
		Schema
		Defs map[string]*Schema `json:"$defs,omitempty"`
	}

	schemaOp struct {
		w        *Walker
		defs     map[string]*Schema
		defTypes map[string]reflect.Type
		names    map[reflect.Type]string
	}
)

// Schema describes the composite type t as a JSON-Schema document. Only id
// fields are required, since any other field may be omitted by a partial
// document and filled in by the merge.
func (w *Walker) Schema(t reflect.Type, id string) (*Document, error) {
	info, err := w.reg.Describe(t)
	if err != nil {
		return nil, err
	}
	if info.Kind != KindComposite {
		return nil, fmt.Errorf("schema root %s must be a struct, got %s", info.Type, info.Kind)
	}

	op := &schemaOp{
		w:        w,
		defs:     make(map[string]*Schema),
		defTypes: make(map[string]reflect.Type),
		names:    make(map[reflect.Type]string),
	}
	// Reserve the root name so self references resolve to the document root.
	op.names[info.Type] = ""
	root := op.object(info)

	doc := &Document{
		Dialect: SchemaDialect,
		ID:      id,
		Title:   info.Type.Name(),
		Schema:  *root,
	}
	if len(op.defs) > 0 {
		doc.Defs = op.defs
	}
	return doc, nil
}

func (op *schemaOp) walkType(t reflect.Type) *Schema {
	return op.w.walk(op, t, reflect.Value{}, nil).Schema
}

func (op *schemaOp) null(node) Result { return Result{Schema: &Schema{Type: "null"}} }

func (op *schemaOp) primitive(n node) Result {
	return Result{Schema: primitiveSchema(n.info.Type)}
}

// vector accepts the component list. Struct vectors may also be written as a
// mapping of their field keys, e.g. {x: 1, y: 0, z: 0}.
func (op *schemaOp) vector(n node) Result {
	size := len(n.iface().(Vector).Components())
	list := &Schema{
		Type:     "array",
		Items:    &Schema{Type: "number"},
		MinItems: &size,
		MaxItems: &size,
	}
	t := n.info.Type
	if t.Kind() != reflect.Struct {
		return Result{Schema: list}
	}
	closed := false
	obj := &Schema{Type: "object", Properties: make(map[string]*Schema), AdditionalProperties: &closed}
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if key, ok := fieldKey(sf); ok {
			obj.Properties[key] = &Schema{Type: "number"}
		}
	}
	return Result{Schema: &Schema{OneOf: []*Schema{list, obj}}}
}

func (op *schemaOp) custom(n node) (Result, bool) {
	if !n.info.Hooks.Has(HookSchema) {
		return Result{}, false
	}
	return Result{Schema: n.iface().(SchemaProvider).SpecSchema()}, true
}

func (op *schemaOp) dictionary(n node) Result {
	return Result{Schema: &Schema{
		Type:              "object",
		PatternProperties: map[string]*Schema{resourceKeyPattern: op.walkType(n.info.Type.Elem())},
	}}
}

func (op *schemaOp) collection(n node) Result {
	s := &Schema{Type: "array", Items: op.walkType(n.info.Type.Elem())}
	if n.info.Type.Kind() == reflect.Array {
		size := n.info.Type.Len()
		s.MinItems, s.MaxItems = &size, &size
	}
	return Result{Schema: s}
}

func (op *schemaOp) enum(n node) Result {
	return Result{Schema: &Schema{Type: "string", Enum: n.iface().(Enum).EnumNames()}}
}

func (op *schemaOp) composite(n node) Result {
	name, seen := op.names[n.info.Type]
	if seen && name == "" {
		return Result{Schema: &Schema{Ref: "#"}}
	}
	if !seen {
		name = op.defName(n.info.Type)
		op.names[n.info.Type] = name
		// Placeholder first so recursive references terminate.
		op.defs[name] = &Schema{}
		*op.defs[name] = *op.object(n.info)
	}
	return Result{Schema: &Schema{Ref: "#/$defs/" + name}}
}

// object builds the inline object schema of a composite type.
func (op *schemaOp) object(info *TypeInfo) *Schema {
	closed := false
	s := &Schema{
		Type:                 "object",
		Properties:           make(map[string]*Schema, len(info.Fields)),
		AdditionalProperties: &closed,
	}
	for _, f := range info.Fields {
		s.Properties[f.Key] = op.fieldSchema(f)
		if f.Tags.ID {
			s.Required = append(s.Required, f.Key)
		}
	}
	return s
}

// fieldSchema documents the attribute tags of f on a copy of its type schema.
func (op *schemaOp) fieldSchema(f Field) *Schema {
	base := op.walkType(f.Type)
	s := *base
	tags := f.Tags
	if tags.Description != "" {
		s.Description = tags.Description
	}
	if tags.HasMin {
		m := tags.Min
		s.Minimum = &m
	}
	if tags.HasMax {
		m := tags.Max
		s.Maximum = &m
	}
	if tags.Ref != "" {
		if s.Type == "array" && s.Items != nil {
			items := *s.Items
			items.Reference = tags.Ref
			s.Items = &items
		} else {
			s.Reference = tags.Ref
		}
	}
	if tags.Resources != "" {
		documentResources(&s, tags.Resources)
	}
	return &s
}

// defName picks a $defs key for t, qualifying it when two packages declare
// types with the same name.
func (op *schemaOp) defName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		name = "anonymous"
	}
	if other, taken := op.defTypes[name]; taken && other != t {
		name = fmt.Sprintf("%s_%d", name, len(op.defTypes))
	}
	op.defTypes[name] = t
	return name
}

func primitiveSchema(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	default:
		return &Schema{Type: "integer"}
	}
}

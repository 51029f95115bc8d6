// SPDX-License-Identifier: MPL-2.0

package doctree

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ironhull/modkit/pkg/cueutil"
)

const (
	// FormatCUE is a CUE document (.cue).
	FormatCUE Format = "cue"
	// FormatJSON is a JSON document (.json), compiled as CUE.
	FormatJSON Format = "json"
	// FormatYAML is a YAML document (.yaml, .yml).
	FormatYAML Format = "yaml"
	// FormatTOML is a TOML document (.toml).
	FormatTOML Format = "toml"
)

var (
	// ErrUnknownFormat is returned for file extensions with no parser.
	ErrUnknownFormat = errors.New("unknown document format")
	// ErrNotMapping is returned when a document's top level is not a mapping.
	ErrNotMapping = errors.New("document root is not a mapping")
	// ErrTooManyNodes is returned when YAML alias expansion would build a
	// tree far larger than the document itself.
	ErrTooManyNodes = errors.New("document expands to too many nodes")
)

// minYAMLNodeBudget is the smallest number of nodes a YAML document may
// expand to. Larger files get one node per byte.
const minYAMLNodeBudget = 1 << 20

type (
	// Format identifies a document syntax.
	Format string

	// ParseError reports a document that could not be parsed.
	ParseError struct {
		File   string
		Format Format
		Err    error
	}
)

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s document %s: %v", e.Format, e.File, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *ParseError) Unwrap() error { return e.Err }

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{FormatCUE, FormatJSON, FormatYAML, FormatTOML}
}

// FormatOf returns the format of a file name based on its extension.
func FormatOf(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue":
		return FormatCUE, true
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// Parse parses data in the given format. The root must be a mapping.
// Parse is safe for concurrent use.
func Parse(format Format, data []byte, filename string) (*Node, error) {
	var (
		n   *Node
		err error
	)
	switch format {
	case FormatCUE, FormatJSON:
		n, err = parseCUE(data, filename)
	case FormatYAML:
		n, err = parseYAML(data, filename)
	case FormatTOML:
		n, err = parseTOML(data, filename)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, &ParseError{File: filename, Format: format, Err: err}
	}
	if n.Kind != KindMapping {
		return nil, &ParseError{File: filename, Format: format, Err: fmt.Errorf("%w (got %s)", ErrNotMapping, n.Kind)}
	}
	return n, nil
}

func parseCUE(data []byte, filename string) (*Node, error) {
	v, err := cueutil.Compile(data, cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return fromCUE(v)
}

func fromCUE(v cue.Value) (*Node, error) {
	switch v.Kind() {
	case cue.NullKind:
		return Null(), nil
	case cue.BoolKind:
		b, err := v.Bool()
		return Scalar(b), err
	case cue.IntKind:
		i, err := v.Int64()
		return Scalar(i), err
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return Scalar(f), err
	case cue.StringKind:
		s, err := v.String()
		return Scalar(s), err
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		seq := Sequence()
		for iter.Next() {
			item, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, item)
		}
		return seq, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		m := &Node{Kind: KindMapping}
		for iter.Next() {
			child, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, Entry{Key: iter.Label(), Value: child})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s: unsupported CUE value of kind %s", v.Path(), v.Kind())
	}
}

func parseYAML(data []byte, filename string) (*Node, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// Empty file.
		return &Node{Kind: KindMapping}, nil
	}
	c := &yamlConverter{budget: max(minYAMLNodeBudget, len(data))}
	return c.convert(&doc)
}

// yamlConverter builds a Node tree from a yaml.v3 tree, expanding aliases.
// Every node built counts against budget.
type yamlConverter struct {
	budget int
}

func (c *yamlConverter) convert(y *yaml.Node) (*Node, error) {
	if c.budget--; c.budget < 0 {
		return nil, fmt.Errorf("line %d: %w", y.Line, ErrTooManyNodes)
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: KindMapping}, nil
		}
		return c.convert(y.Content[0])
	case yaml.AliasNode:
		return c.convert(y.Alias)
	case yaml.ScalarNode:
		return yamlScalar(y)
	case yaml.SequenceNode:
		seq := Sequence()
		for _, child := range y.Content {
			item, err := c.convert(child)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, item)
		}
		return seq, nil
	case yaml.MappingNode:
		m := &Node{Kind: KindMapping}
		for i := 0; i+1 < len(y.Content); i += 2 {
			k, v := y.Content[i], y.Content[i+1]
			child, err := c.convert(v)
			if err != nil {
				return nil, err
			}
			if k.ShortTag() == "!!merge" {
				if child.Kind != KindMapping {
					return nil, fmt.Errorf("line %d: merge key expects a mapping", k.Line)
				}
				for _, e := range child.Entries {
					if _, exists := m.Get(e.Key); !exists {
						m.Set(e.Key, e.Value)
					}
				}
				continue
			}
			m.Set(k.Value, child)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", y.Line)
	}
}

func yamlScalar(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, err
		}
		return Scalar(b), nil
	case "!!int":
		var i int64
		if err := y.Decode(&i); err != nil {
			return nil, err
		}
		return Scalar(i), nil
	case "!!float":
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, err
		}
		return Scalar(f), nil
	case "!!str", "!!timestamp", "!!binary":
		return Scalar(y.Value), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML tag %s", y.Line, strconv.Quote(y.ShortTag()))
	}
}

func parseTOML(data []byte, filename string) (*Node, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}
	var raw map[string]any
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return FromAny(raw)
}

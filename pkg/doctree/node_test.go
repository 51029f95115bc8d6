// SPDX-License-Identifier: MPL-2.0

package doctree

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestParseFormats(t *testing.T) {
	t.Parallel()

	want := map[string]any{
		"id":         "armor",
		"max_health": int64(200),
		"mass":       1.5,
		"enabled":    true,
		"tags":       []any{"light", "cheap"},
		"cost":       map[string]any{"iron": int64(5)},
		"upgrades":   nil,
	}

	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{
			name:   "cue",
			format: FormatCUE,
			data: `
id:         "armor"
max_health: 200
mass:       1.5
enabled:    true
tags: ["light", "cheap"]
cost: iron: 5
upgrades: null
`,
		},
		{
			name:   "json",
			format: FormatJSON,
			data:   `{"id": "armor", "max_health": 200, "mass": 1.5, "enabled": true, "tags": ["light", "cheap"], "cost": {"iron": 5}, "upgrades": null}`,
		},
		{
			name:   "yaml",
			format: FormatYAML,
			data: `
id: armor
max_health: 200
mass: 1.5
enabled: true
tags: [light, cheap]
cost:
  iron: 5
upgrades: ~
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n, err := Parse(tt.format, []byte(tt.data), "armor."+string(tt.format))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := n.Interface(); !reflect.DeepEqual(got, want) {
				t.Errorf("Interface() = %#v\nwant %#v", got, want)
			}
			if keys := n.Keys(); keys[0] != "id" || keys[len(keys)-1] != "upgrades" {
				t.Errorf("Keys() = %v, want document order", keys)
			}
		})
	}
}

func TestParseTOML(t *testing.T) {
	t.Parallel()

	data := `
id = "armor"
max_health = 200
tags = ["light"]

[cost]
iron = 5
copper = 2.5
`
	n, err := Parse(FormatTOML, []byte(data), "armor.toml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := map[string]any{
		"id":         "armor",
		"max_health": int64(200),
		"tags":       []any{"light"},
		"cost":       map[string]any{"iron": int64(5), "copper": 2.5},
	}
	if got := n.Interface(); !reflect.DeepEqual(got, want) {
		t.Errorf("Interface() = %#v, want %#v", got, want)
	}
	cost, _ := n.Get("cost")
	if keys := cost.Keys(); !reflect.DeepEqual(keys, []string{"copper", "iron"}) {
		t.Errorf("TOML keys = %v, want sorted", keys)
	}
}

func TestParseYAMLMergeKey(t *testing.T) {
	t.Parallel()

	data := `
base: &base
  mass: 1
  max_health: 10
id: heavy
stats:
  <<: *base
  max_health: 50
`
	n, err := Parse(FormatYAML, []byte(data), "heavy.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	stats, _ := n.Get("stats")
	want := map[string]any{"mass": int64(1), "max_health": int64(50)}
	if got := stats.Interface(); !reflect.DeepEqual(got, want) {
		t.Errorf("stats = %#v, want %#v", got, want)
	}
}

// nestedAliases returns a small YAML document in which every level refers
// to the previous one ten times, so its expanded size is 10^levels.
func nestedAliases(levels int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= levels; i++ {
		prev := fmt.Sprintf("*l%d", i-1)
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, strings.TrimSuffix(strings.Repeat(prev+", ", 10), ", "))
	}
	return b.String()
}

func TestParseYAMLAliasExpansion(t *testing.T) {
	t.Parallel()

	t.Run("shared anchors within budget", func(t *testing.T) {
		t.Parallel()
		n, err := Parse(FormatYAML, []byte(nestedAliases(2)), "wheels.yaml")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		l2, _ := n.Get("l2")
		if len(l2.Items) != 10 || len(l2.Items[0].Items) != 10 {
			t.Errorf("l2 = %v, want 10x10 expanded items", l2.Interface())
		}
	})

	t.Run("exponential expansion rejected", func(t *testing.T) {
		t.Parallel()
		data := nestedAliases(7)
		if len(data) > 1024 {
			t.Fatalf("document is %d bytes, want a small one", len(data))
		}
		_, err := Parse(FormatYAML, []byte(data), "bomb.yaml")
		var pe *ParseError
		if !errors.As(err, &pe) || pe.File != "bomb.yaml" {
			t.Fatalf("Parse() error = %v, want *ParseError", err)
		}
		if !errors.Is(err, ErrTooManyNodes) {
			t.Errorf("Parse() error = %v, want ErrTooManyNodes", err)
		}
	})
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  Format
		data    string
		wantIs  error
		wantErr bool
	}{
		{name: "cue syntax", format: FormatCUE, data: `id: "armor`, wantErr: true},
		{name: "json syntax", format: FormatJSON, data: `{"id": }`, wantErr: true},
		{name: "yaml syntax", format: FormatYAML, data: "id: [unclosed", wantErr: true},
		{name: "toml syntax", format: FormatTOML, data: "id = ", wantErr: true},
		{name: "root sequence", format: FormatYAML, data: "- a\n- b\n", wantIs: ErrNotMapping, wantErr: true},
		{name: "unknown format", format: Format("ini"), data: "a=b", wantIs: ErrUnknownFormat, wantErr: true},
		{name: "empty yaml", format: FormatYAML, data: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(tt.format, []byte(tt.data), "doc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.File != "doc" {
				t.Errorf("Parse() error = %v, want *ParseError for doc", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"a.cue":  FormatCUE,
		"a.JSON": FormatJSON,
		"a.yml":  FormatYAML,
		"a.yaml": FormatYAML,
		"a.toml": FormatTOML,
	}
	for name, want := range tests {
		if got, ok := FormatOf(name); !ok || got != want {
			t.Errorf("FormatOf(%q) = %q, %v", name, got, ok)
		}
	}
	if _, ok := FormatOf("README.md"); ok {
		t.Error("FormatOf(README.md) should not match")
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := Mapping(
		Entry{Key: "id", Value: Scalar("armor")},
		Entry{Key: "tags", Value: Sequence(Scalar("a"))},
	)
	c := orig.Clone()
	c.Set("id", Scalar("other"))
	tags, _ := c.Get("tags")
	tags.Items[0] = Scalar("b")

	if id, _ := orig.Get("id"); id.Value != "armor" {
		t.Errorf("original id changed to %v", id.Value)
	}
	if tags, _ := orig.Get("tags"); tags.Items[0].Value != "a" {
		t.Errorf("original tags changed to %v", tags.Items[0].Value)
	}
}

func TestSetKeepsPosition(t *testing.T) {
	t.Parallel()

	m := Mapping(Entry{Key: "a", Value: Scalar(1)}, Entry{Key: "b", Value: Scalar(2)})
	m.Set("a", Scalar(3))
	if keys := m.Keys(); !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("Keys() = %v", keys)
	}
	if v, _ := m.Get("a"); v.Value != int64(3) {
		t.Errorf("a = %v, want 3", v.Value)
	}
}

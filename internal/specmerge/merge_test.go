// SPDX-License-Identifier: MPL-2.0

package specmerge

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/pkg/doctree"
)

func doc(t *testing.T, mod string, index int, key, yaml string) docload.Document {
	t.Helper()

	file := mod + "/blocks/" + key + ".yaml"
	tree, err := doctree.Parse(doctree.FormatYAML, []byte(yaml), file)
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", file, err)
	}
	return docload.Document{
		Source: docload.Source{
			Mod:      mod,
			ModIndex: index,
			Category: "blocks",
			Key:      key,
			File:     file,
			Format:   doctree.FormatYAML,
		},
		Tree: tree,
	}
}

func TestMergeOverride(t *testing.T) {
	t.Parallel()

	out := Merge("blocks", "id", []docload.Document{
		doc(t, "base", 0, "armor", "X: 1\nY: 2\n"),
		doc(t, "override", 1, "armor", "X: 9\n"),
	})
	if err := out.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(out.Items) != 1 || len(out.Errors) != 0 {
		t.Fatalf("Items = %d, Errors = %v", len(out.Items), out.Errors)
	}

	got := out.Items[0]
	want := map[string]any{"X": int64(9), "Y": int64(2), "id": "armor"}
	if !reflect.DeepEqual(got.Tree.Interface(), want) {
		t.Errorf("merged = %v, want %v", got.Tree.Interface(), want)
	}
	if got.ID != "armor" {
		t.Errorf("ID = %q, want armor", got.ID)
	}
	if len(got.Sources) != 2 || got.Sources[0].Mod != "base" || got.Sources[1].Mod != "override" {
		t.Errorf("Sources = %v", got.Sources)
	}
}

func TestMergeSemantics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		over string
		want map[string]any
	}{
		{
			name: "sequences replace wholesale",
			base: "tags: [heavy, metal]\n",
			over: "tags: [light]\n",
			want: map[string]any{"tags": []any{"light"}, "id": "armor"},
		},
		{
			name: "nested mappings merge",
			base: "cost: {iron: 5, copper: 2}\n",
			over: "cost: {iron: 7}\n",
			want: map[string]any{"cost": map[string]any{"iron": int64(7), "copper": int64(2)}, "id": "armor"},
		},
		{
			name: "null does not erase",
			base: "mass: 4\n",
			over: "mass: null\n",
			want: map[string]any{"mass": int64(4), "id": "armor"},
		},
		{
			name: "scalar may become a sequence",
			base: "size: 1\n",
			over: "size: [1, 2, 3]\n",
			want: map[string]any{"size": []any{int64(1), int64(2), int64(3)}, "id": "armor"},
		},
		{
			name: "explicit id wins over key",
			base: "id: plating\n",
			over: "mass: 2\n",
			want: map[string]any{"id": "plating", "mass": int64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := Merge("blocks", "id", []docload.Document{
				doc(t, "base", 0, "armor", tt.base),
				doc(t, "override", 1, "armor", tt.over),
			})
			if len(out.Items) != 1 {
				t.Fatalf("Items = %d, Errors = %v, Fatal = %v", len(out.Items), out.Errors, out.Fatal)
			}
			if got := out.Items[0].Tree.Interface(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("merged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	t.Parallel()

	base := doc(t, "base", 0, "armor", "cost: {iron: 5}\n")
	over := doc(t, "override", 1, "armor", "cost: {iron: 7}\n")
	Merge("blocks", "id", []docload.Document{base, over})

	cost, _ := base.Tree.Get("cost")
	iron, _ := cost.Get("iron")
	if iron.Value != int64(5) {
		t.Errorf("base document mutated: iron = %v", iron.Value)
	}
	if _, ok := base.Tree.Get("id"); ok {
		t.Error("id written into the input document")
	}
}

func TestMergeConflict(t *testing.T) {
	t.Parallel()

	out := Merge("blocks", "id", []docload.Document{
		doc(t, "base", 0, "armor", "cost: {iron: 5}\n"),
		doc(t, "base", 0, "wheel", "mass: 1\n"),
		doc(t, "override", 1, "armor", "cost: 12\n"),
	})
	if out.Err() != nil {
		t.Fatalf("conflict must not be fatal: %v", out.Err())
	}
	if len(out.Items) != 1 || out.Items[0].Key != "wheel" {
		t.Fatalf("Items = %v, want only wheel", out.Items)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1", out.Errors)
	}

	var me *MergeError
	if !errors.As(out.Errors[0], &me) {
		t.Fatalf("error = %T, want *MergeError", out.Errors[0])
	}
	if !errors.Is(me, ErrMergeConflict) {
		t.Error("MergeError does not wrap ErrMergeConflict")
	}
	if me.Key != "armor" || me.Path != "cost" || me.Source.Mod != "override" {
		t.Errorf("MergeError = %+v", me)
	}
}

func TestMergeInvalidID(t *testing.T) {
	t.Parallel()

	out := Merge("blocks", "id", []docload.Document{
		doc(t, "base", 0, "armor", "id: 12\n"),
		doc(t, "base", 0, "wheel", "id: \"\"\n"),
	})
	if len(out.Items) != 0 || len(out.Errors) != 2 {
		t.Fatalf("Items = %v, Errors = %v", out.Items, out.Errors)
	}
	for _, err := range out.Errors {
		if !errors.Is(err, ErrMergeConflict) {
			t.Errorf("error %v does not wrap ErrMergeConflict", err)
		}
	}
}

func TestMergeDuplicateID(t *testing.T) {
	t.Parallel()

	out := Merge("blocks", "id", []docload.Document{
		doc(t, "base", 0, "armor", "id: plate\n"),
		doc(t, "extra", 1, "armor_heavy", "id: plate\n"),
		doc(t, "extra", 1, "wheel", "mass: 1\n"),
	})

	err := out.Err()
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Err() = %v, want ErrDuplicateID", err)
	}
	var dup *DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("Err() = %T, want *DuplicateIDError", err)
	}
	if dup.ID != "plate" || dup.Keys != [2]string{"armor", "armor_heavy"} {
		t.Errorf("DuplicateIDError = %+v", dup)
	}
	if dup.Sources[0].Mod != "base" || dup.Sources[1].Mod != "extra" {
		t.Errorf("Sources = %v", dup.Sources)
	}
	if len(out.Items) != 2 {
		t.Errorf("Items = %d, want 2 (armor, wheel)", len(out.Items))
	}
}

func TestMergeKeepsFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	out := Merge("blocks", "id", []docload.Document{
		doc(t, "base", 0, "wheel", "mass: 1\n"),
		doc(t, "base", 0, "armor", "mass: 2\n"),
		doc(t, "override", 1, "cannon", "mass: 3\n"),
		doc(t, "override", 1, "wheel", "mass: 4\n"),
	})

	var ids []string
	for _, it := range out.Items {
		ids = append(ids, it.ID)
	}
	if want := []string{"wheel", "armor", "cannon"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

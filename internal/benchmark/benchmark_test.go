// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ironhull/modkit/internal/control"
	"github.com/ironhull/modkit/internal/docload"
	"github.com/ironhull/modkit/internal/modreg"
	"github.com/ironhull/modkit/internal/pipeline"
	"github.com/ironhull/modkit/internal/specmerge"
	"github.com/ironhull/modkit/internal/testutil"
	"github.com/ironhull/modkit/pkg/content"
	"github.com/ironhull/modkit/pkg/doctree"
	"github.com/ironhull/modkit/pkg/walker"
)

const (
	// sampleBlockYAML is a representative block with every field kind.
	sampleBlockYAML = `display_name: Armor Plate
max_health: 100
mass: 2
armor: 0.5
size: [1, 1, 1]
shape: cube
cost: {iron: 5, copper: 2}
tags: [heavy, hull]
hardpoints:
  - name: top
    offset: [0, 1, 0]
    direction: [0, 1, 0]
    size: 1
  - name: front
    offset: [0, 0, 1]
    direction: [0, 0, 1]
    size: 2
color: "#808080"
`

	sampleBlockJSON = `{"display_name": "Armor Plate", "max_health": 100, "mass": 2, "armor": 0.5,
"size": [1, 1, 1], "shape": "cube", "cost": {"iron": 5, "copper": 2}, "tags": ["heavy", "hull"],
"hardpoints": [{"name": "top", "offset": [0, 1, 0], "direction": [0, 1, 0], "size": 1}],
"color": "#808080"}`

	sampleBlockCUE = `display_name: "Armor Plate"
max_health:   100
mass:         2
armor:        0.5
size: [1, 1, 1]
shape: "cube"
cost: {iron: 5, copper: 2}
tags: ["heavy", "hull"]
hardpoints: [{name: "top", offset: [0, 1, 0], direction: [0, 1, 0], size: 1}]
color: "#808080"
`

	sampleBlockTOML = `display_name = "Armor Plate"
max_health = 100
mass = 2
armor = 0.5
size = [1, 1, 1]
shape = "cube"
tags = ["heavy", "hull"]
color = "#808080"

[cost]
iron = 5
copper = 2

[[hardpoints]]
name = "top"
offset = [0, 1, 0]
direction = [0, 1, 0]
size = 1
`

	sampleManifest = `name:        "Benchmark"
version:     "1.2.3"
description: "Mod used to profile the loader"
`

	sampleRules = `max_blocks_per_vehicle: 200
starting_resources: {iron: 50}
gravity: [0, -9.81, 0]
respawn_seconds: 5
`
)

// populate writes mods mods with blocks blocks each, plus the resources and
// rules every block refers to.
func populate(b *testing.B, mods, blocks int) string {
	b.Helper()
	root := testutil.NewModsRoot(b)
	core := root.Mod("core", "1.0.0").
		Doc("resources", "iron.yaml", "stack_size: 100\n").
		Doc("resources", "copper.yaml", "stack_size: 50\n").
		Doc("rules", "default.yaml", sampleRules)
	for i := range blocks {
		core.Doc("blocks", fmt.Sprintf("block_%03d.yaml", i), sampleBlockYAML)
	}
	for m := 1; m < mods; m++ {
		mod := root.Mod(fmt.Sprintf("addon_%02d", m), "1.0.0")
		for i := range blocks / 4 {
			mod.Doc("blocks", fmt.Sprintf("block_%03d.toml", i*4), fmt.Sprintf("mass = %d\n", m+i))
		}
	}
	return root.Path
}

// BenchmarkDocumentParsing benchmarks doctree.Parse for each format.
func BenchmarkDocumentParsing(b *testing.B) {
	samples := []struct {
		format doctree.Format
		data   string
	}{
		{doctree.FormatYAML, sampleBlockYAML},
		{doctree.FormatJSON, sampleBlockJSON},
		{doctree.FormatCUE, sampleBlockCUE},
		{doctree.FormatTOML, sampleBlockTOML},
	}
	for _, s := range samples {
		b.Run(string(s.format), func(b *testing.B) {
			data := []byte(s.data)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if _, err := doctree.Parse(s.format, data, "armor"); err != nil {
					b.Fatalf("Parse failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkManifestParsing benchmarks CUE schema validation of mod.cue.
func BenchmarkManifestParsing(b *testing.B) {
	data := []byte(sampleManifest)
	b.ResetTimer()
	for b.Loop() {
		if _, err := modreg.ParseManifest(data, "mod.cue"); err != nil {
			b.Fatalf("ParseManifest failed: %v", err)
		}
	}
}

// BenchmarkDiscovery benchmarks mod list reconciliation and manifest reads.
func BenchmarkDiscovery(b *testing.B) {
	path := populate(b, 20, 0)
	reg := modreg.New(modreg.Config{ModsRoot: path, Logger: log.New(io.Discard)})

	b.ResetTimer()
	for b.Loop() {
		disc, err := reg.Discover()
		if err != nil {
			b.Fatalf("Discover failed: %v", err)
		}
		if len(disc.Mods) != 20 {
			b.Fatalf("expected 20 mods, got %d", len(disc.Mods))
		}
	}
}

// BenchmarkMerge benchmarks deep-merging overrides from several mods.
func BenchmarkMerge(b *testing.B) {
	var docs []docload.Document
	for m := range 8 {
		for i := range 50 {
			tree, err := doctree.Parse(doctree.FormatYAML, []byte(sampleBlockYAML), "x.yaml")
			if err != nil {
				b.Fatalf("Parse failed: %v", err)
			}
			docs = append(docs, docload.Document{
				Source: docload.Source{Mod: fmt.Sprintf("mod%d", m), ModIndex: m, Category: content.CategoryBlocks, Key: fmt.Sprintf("block_%d", i)},
				Tree:   tree,
			})
		}
	}

	b.ResetTimer()
	for b.Loop() {
		out := specmerge.Merge(content.CategoryBlocks, "id", docs)
		if err := out.Err(); err != nil {
			b.Fatalf("Merge failed: %v", err)
		}
	}
}

// BenchmarkBindValidateChecksum benchmarks the per-instance walker passes.
func BenchmarkBindValidateChecksum(b *testing.B) {
	catalog := content.DefaultCatalog()
	reg := walker.NewRegistry()
	if err := catalog.Register(reg); err != nil {
		b.Fatalf("Register failed: %v", err)
	}
	w := walker.New(reg)
	cat, _ := catalog.Lookup(content.CategoryBlocks)
	// Merge writes the resolved id into the tree before binding.
	tree, err := doctree.Parse(doctree.FormatYAML, []byte("id: armor\n"+sampleBlockYAML), "armor.yaml")
	if err != nil {
		b.Fatalf("Parse failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		v, err := content.Bind(cat, "armor", tree)
		if err != nil {
			b.Fatalf("Bind failed: %v", err)
		}
		vc := w.NewValidationContext(nil)
		if err := w.Validate(v, walker.NewPath(cat.Name, "armor"), vc); err != nil {
			b.Fatalf("Validate failed: %v", err)
		}
		if vc.Len() != 0 {
			b.Fatalf("unexpected validation errors: %v", vc.Errors())
		}
		if _, err := w.Checksum(v, walker.LevelEverything); err != nil {
			b.Fatalf("Checksum failed: %v", err)
		}
	}
}

// BenchmarkControlEvaluate benchmarks evaluating nested control groups.
func BenchmarkControlEvaluate(b *testing.B) {
	specs := make(map[string]*content.ControlGroupSpec)
	prev := ""
	for i := range 32 {
		id := fmt.Sprintf("group_%02d", i)
		cond := content.ConditionSpec{Op: content.OpInput, Input: fmt.Sprintf("key_%d", i%8)}
		if prev != "" {
			cond = content.ConditionSpec{Op: content.OpOr, Terms: []content.ConditionSpec{
				cond, {Op: content.OpGroup, Group: prev},
			}}
		}
		specs[id] = &content.ControlGroupSpec{ID: id, Condition: cond}
		prev = id
	}
	set, errs := control.CompileSet(specs)
	if len(errs) != 0 {
		b.Fatalf("CompileSet failed: %v", errs)
	}

	b.ResetTimer()
	for b.Loop() {
		active := set.Evaluate("key_3")
		if !active[prev] {
			b.Fatal("expected the last group to be active")
		}
	}
}

// BenchmarkFullPipeline benchmarks a complete load from disk.
func BenchmarkFullPipeline(b *testing.B) {
	path := populate(b, 4, 64)
	run := func(b *testing.B, cache *docload.Cache) {
		b.Helper()
		p, err := pipeline.NewDiscard(pipeline.Options{ModsRoot: path, Level: walker.LevelStrict, Cache: cache})
		if err != nil {
			b.Fatalf("New failed: %v", err)
		}
		res, err := p.Run(b.Context())
		if err != nil {
			b.Fatalf("Run failed: %v", err)
		}
		if len(res.Errors) != 0 || len(res.ValidationErrors) != 0 {
			b.Fatalf("unexpected problems: %v %v", res.Errors, res.ValidationErrors)
		}
	}

	b.Run("cold", func(b *testing.B) {
		for b.Loop() {
			run(b, nil)
		}
	})
	b.Run("cached", func(b *testing.B) {
		cache := docload.NewCache()
		run(b, cache)
		b.ResetTimer()
		for b.Loop() {
			run(b, cache)
		}
	})
}

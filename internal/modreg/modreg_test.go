// SPDX-License-Identifier: MPL-2.0

package modreg

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ironhull/modkit/internal/testutil"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		persisted []Entry
		present   []string
		want      []Entry
	}{
		{
			name:      "vanished dropped, new appended enabled",
			persisted: []Entry{{Folder: "A", Enabled: true}, {Folder: "B", Enabled: false}},
			present:   []string{"B", "C"},
			want:      []Entry{{Folder: "B", Enabled: false}, {Folder: "C", Enabled: true}},
		},
		{
			name:    "empty list",
			present: []string{"a", "b"},
			want:    []Entry{{Folder: "a", Enabled: true}, {Folder: "b", Enabled: true}},
		},
		{
			name:      "order kept",
			persisted: []Entry{{Folder: "z", Enabled: true}, {Folder: "a", Enabled: true}},
			present:   []string{"a", "z"},
			want:      []Entry{{Folder: "z", Enabled: true}, {Folder: "a", Enabled: true}},
		},
		{
			name:      "duplicates collapse to first",
			persisted: []Entry{{Folder: "a", Enabled: false}, {Folder: "a", Enabled: true}},
			present:   []string{"a"},
			want:      []Entry{{Folder: "a", Enabled: false}},
		},
		{
			name:      "nothing present",
			persisted: []Entry{{Folder: "a", Enabled: true}},
			want:      []Entry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			before := append([]Entry(nil), tt.persisted...)
			got := Reconcile(tt.persisted, tt.present)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reconcile() = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(before, tt.persisted) {
				t.Error("Reconcile() modified its input")
			}
		})
	}
}

func TestListRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modlist.cue")
	entries := []Entry{{Folder: "core", Enabled: true}, {Folder: "extra \"quoted\"", Enabled: false}}
	if err := SaveList(path, entries); err != nil {
		t.Fatalf("SaveList() error = %v", err)
	}
	got, err := LoadList(path)
	if err != nil {
		t.Fatalf("LoadList() error = %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("LoadList() = %v, want %v", got, entries)
	}
}

func TestLoadList(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		got, err := LoadList(filepath.Join(t.TempDir(), "nope.cue"))
		if err != nil || got != nil {
			t.Errorf("LoadList() = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("enabled defaults to true", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "modlist.cue")
		testutil.MustWriteFile(t, path, `mods: [{folder: "core"}]`)
		got, err := LoadList(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || !got[0].Enabled {
			t.Errorf("LoadList() = %v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "modlist.cue")
		testutil.MustWriteFile(t, path, `mods: [{folder: "core", enabled: "yes"}]`)
		if _, err := LoadList(path); err == nil {
			t.Error("expected error")
		}
	})
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "cue", data: `name: "Core", version: "1.2.3", description: "Base content"`},
		{name: "json", data: `{"name": "Core", "version": "v0.1.0-beta.1"}`},
		{name: "missing version", data: `name: "Core"`, wantErr: true},
		{name: "not semver", data: `name: "Core", version: "1.2"`, wantErr: true},
		{name: "leading zero", data: `name: "Core", version: "01.2.3"`, wantErr: true},
		{name: "unknown field", data: `name: "Core", version: "1.0.0", author: "x"`, wantErr: true},
		{name: "empty name", data: `name: "", version: "1.0.0"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := ParseManifest([]byte(tt.data), "mod.cue")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidManifest) {
					t.Errorf("error %v does not wrap ErrInvalidManifest", err)
				}
				return
			}
			if m.Name != "Core" || !strings.HasPrefix(m.CanonicalVersion(), "v") {
				t.Errorf("ParseManifest() = %+v", m)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := testutil.NewModsRoot(t)
	root.Mod("core", "1.0.0")
	root.Mod("extras", "0.2.0")
	root.Bare("broken")
	root.Bare("badver").File("mod.json", `{"name": "badver", "version": "latest"}`)
	root.Bare(".hidden")

	reg := NewDiscard(root.Path)
	disc, err := reg.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	var folders []string
	for _, m := range disc.Mods {
		folders = append(folders, m.Folder)
	}
	if want := []string{"badver", "broken", "core", "extras"}; !reflect.DeepEqual(folders, want) {
		t.Errorf("folders = %v, want %v", folders, want)
	}

	var loadable []string
	for _, m := range disc.Loadable() {
		loadable = append(loadable, m.Folder)
	}
	if want := []string{"core", "extras"}; !reflect.DeepEqual(loadable, want) {
		t.Errorf("loadable = %v, want %v", loadable, want)
	}

	codes := map[string]DiagnosticCode{}
	for _, d := range disc.Diagnostics {
		codes[filepath.Base(d.Path)] = d.Code
	}
	want := map[string]DiagnosticCode{"broken": CodeManifestMissing, "badver": CodeManifestInvalid}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("diagnostics = %v, want %v", codes, want)
	}

	// The reconciled list, bad mods included, is persisted immediately.
	list, err := LoadList(reg.ListPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Errorf("persisted list = %v, want 4 entries", list)
	}
}

func TestDiscoverReconcilesPersistedList(t *testing.T) {
	t.Parallel()

	root := testutil.NewModsRoot(t)
	root.Mod("B", "1.0.0")
	root.Mod("C", "1.0.0")
	root.ListFile(`mods: [{folder: "A", enabled: true}, {folder: "B", enabled: false}]`)

	reg := NewDiscard(root.Path)
	disc, err := reg.Discover()
	if err != nil {
		t.Fatal(err)
	}
	got := make([]Entry, 0, len(disc.Mods))
	for _, m := range disc.Mods {
		got = append(got, Entry{Folder: m.Folder, Enabled: m.Enabled})
	}
	want := []Entry{{Folder: "B", Enabled: false}, {Folder: "C", Enabled: true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}

	persisted, err := LoadList(reg.ListPath())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(persisted, want) {
		t.Errorf("persisted = %v, want %v", persisted, want)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	reg := NewDiscard(filepath.Join(t.TempDir(), "nope"))
	_, err := reg.Discover()
	if !errors.Is(err, ErrModsRootNotFound) {
		t.Errorf("Discover() error = %v, want ErrModsRootNotFound", err)
	}
}

func TestSetEnabledAndMove(t *testing.T) {
	t.Parallel()

	root := testutil.NewModsRoot(t)
	root.Mod("a", "1.0.0")
	root.Mod("b", "1.0.0")
	root.Mod("c", "1.0.0")

	reg := NewDiscard(root.Path)
	if err := reg.SetEnabled("b", false); err != nil {
		t.Fatalf("SetEnabled() error = %v", err)
	}
	if err := reg.Move("c", 0); err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	got, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{{Folder: "c", Enabled: true}, {Folder: "a", Enabled: true}, {Folder: "b", Enabled: false}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	if err := reg.SetEnabled("zzz", true); !errors.Is(err, ErrUnknownMod) {
		t.Errorf("SetEnabled(unknown) error = %v", err)
	}
	if err := reg.Move("a", 3); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Move(out of range) error = %v", err)
	}
}

func TestSchemaErrorPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		data     string
		wantPath string
	}{
		{name: "manifest version", file: "mod.cue", data: `name: "Core", version: "one"`, wantPath: "version"},
		{name: "manifest name", file: "mod.cue", data: `name: "", version: "1.0.0"`, wantPath: "name"},
		{name: "list folder", file: "modlist.cue", data: `mods: [{folder: "core"}, {folder: ""}]`, wantPath: "mods[1].folder"},
		{name: "list enabled", file: "modlist.cue", data: `mods: [{folder: "core", enabled: "yes"}]`, wantPath: "mods[0].enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.file)
			var err error
			if tt.file == "mod.cue" {
				_, err = ParseManifest([]byte(tt.data), path)
			} else {
				testutil.MustWriteFile(t, path, tt.data)
				_, err = LoadList(path)
			}
			if err == nil {
				t.Fatal("expected error")
			}
			msg := err.Error()
			if !strings.Contains(msg, path+": "+tt.wantPath+": ") && !strings.Contains(msg, "\n  "+tt.wantPath+": ") {
				t.Errorf("error %q does not name %s", msg, tt.wantPath)
			}
			if strings.Contains(msg, "#") {
				t.Errorf("error %q leaks a schema definition label", msg)
			}
		})
	}
}

// SPDX-License-Identifier: MPL-2.0

package modreg

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/ironhull/modkit/pkg/cueutil"
)

// ManifestFiles are the manifest file names looked up in a mod folder,
// in order of preference.
var ManifestFiles = []string{"mod.cue", "mod.json"}

var (
	//go:embed mod_schema.cue
	manifestSchema []byte

	// ErrManifestNotFound is returned when a mod folder has no manifest.
	ErrManifestNotFound = errors.New("mod manifest not found")
	// ErrInvalidManifest is returned when a manifest fails to parse or validate.
	ErrInvalidManifest = errors.New("invalid mod manifest")
)

type (
	// Manifest is the metadata a mod declares about itself.
	Manifest struct {
		Name        string `json:"name"`
		Version     string `json:"version"`
		Description string `json:"description,omitempty"`
		// File is the manifest path it was read from.
		File string `json:"-"`
	}

	// InvalidManifestError wraps the parse or validation failure of one
	// manifest file.
	InvalidManifestError struct {
		File string
		Err  error
	}
)

// Error implements the error interface for InvalidManifestError.
func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid mod manifest %s: %v", e.File, e.Err)
}

// Unwrap returns both ErrInvalidManifest and the cause.
func (e *InvalidManifestError) Unwrap() []error { return []error{ErrInvalidManifest, e.Err} }

// CanonicalVersion returns the version with a leading "v", as x/mod/semver
// expects.
func (m *Manifest) CanonicalVersion() string {
	if strings.HasPrefix(m.Version, "v") {
		return m.Version
	}
	return "v" + m.Version
}

// ReadManifest reads the manifest of the mod folder at dir.
func ReadManifest(dir string) (*Manifest, error) {
	for _, name := range ManifestFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest at %s: %w", path, err)
		}
		return ParseManifest(data, path)
	}
	return nil, fmt.Errorf("%w in %s (expected one of %s)", ErrManifestNotFound, dir, strings.Join(ManifestFiles, ", "))
}

// ParseManifest parses and validates manifest bytes. path is used for error
// messages.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	result, err := cueutil.ParseAndDecode[Manifest](
		manifestSchema,
		data,
		"#Manifest",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, &InvalidManifestError{File: path, Err: err}
	}

	m := result.Value
	m.File = path
	// The schema only checks the shape; semver rejects e.g. leading zeros.
	if !semver.IsValid(m.CanonicalVersion()) {
		return nil, &InvalidManifestError{File: path, Err: fmt.Errorf("version %q is not a valid semantic version", m.Version)}
	}
	return m, nil
}

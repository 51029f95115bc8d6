// SPDX-License-Identifier: MPL-2.0

// Package testutil builds mods roots on disk for tests: mod folders with
// manifests, category documents and persisted mod lists, created under
// t.TempDir() and failing the test on any I/O error.
package testutil

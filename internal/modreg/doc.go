// SPDX-License-Identifier: MPL-2.0

// Package modreg discovers mod folders under the mods root, reads their
// manifests and maintains the persisted, ordered enable list.
//
// The persisted list is reconciled against the folders actually present on
// every discovery: entries for vanished folders are dropped, new folders are
// appended enabled, and everything else keeps its position and flag. The
// reconciled list is written back immediately so a crash later in the load
// never loses a newly discovered mod.
package modreg

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for modkit.
//
// Commands receive an *App carrying the configuration provider and output
// writers, so tests and testscript can run the whole command tree in
// process.
package cmd

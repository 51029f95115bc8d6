// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is read from config.cue in the user configuration directory
// (or the working directory), validated against the embedded CUE schema
// (config_schema.cue), and overridden by MODKIT_* environment variables.
// Command-line flags are applied on top by the CLI.
package config

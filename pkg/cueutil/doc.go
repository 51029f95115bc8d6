// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Mod manifests, the persisted mod list and the configuration file are all
// parsed with the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// # Usage
//
//	//go:embed mod_schema.cue
//	var manifestSchema []byte
//
//	result, err := cueutil.ParseAndDecode[Manifest](
//	    manifestSchema,
//	    data,
//	    "#Manifest",
//	    cueutil.WithFilename("mod.cue"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes CUE path for debugging
//	}
//	return result.Value, nil
//
// Content documents have no fixed schema; Compile turns them into a plain
// cue.Value that the doctree package converts to a generic tree.
package cueutil

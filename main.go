// SPDX-License-Identifier: MPL-2.0

// Command modkit loads, validates and checksums game mods.
package main

import (
	"os"

	cmd "github.com/ironhull/modkit/cmd/modkit"
)

func main() {
	os.Exit(cmd.Main())
}

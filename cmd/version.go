// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import "fmt"

// Version is set at build time via -ldflags.
var Version = "dev"

// RunVersion prints the build version.
func RunVersion() error {
	fmt.Printf("uplinkd %s\n", Version)
	return nil
}

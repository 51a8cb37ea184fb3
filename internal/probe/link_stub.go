// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package probe

import "fmt"

func readLinkState(iface string) (bool, error) {
	return false, fmt.Errorf("link state detection not supported on this platform")
}

func readSourceAddr(iface string) (string, error) {
	return "", fmt.Errorf("interface addressing not supported on this platform")
}

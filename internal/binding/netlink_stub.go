// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package binding

import (
	"fmt"
	"net"
)

// MacvlanBinder is unavailable off Linux; every operation fails.
type MacvlanBinder struct{}

func NewMacvlanBinder() *MacvlanBinder {
	return &MacvlanBinder{}
}

func (b *MacvlanBinder) Detach(linkName string) error {
	return fmt.Errorf("macvlan binding not supported on this platform")
}

func (b *MacvlanBinder) Attach(parent, linkName string, hwaddr net.HardwareAddr, nsPid int) error {
	return fmt.Errorf("macvlan binding not supported on this platform")
}

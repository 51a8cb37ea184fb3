// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package probe

import (
	"fmt"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// readLinkState reports carrier for iface. Ethtool link state is
// preferred; netlink operational state is the fallback for drivers that
// do not implement the ethtool op. A nonexistent interface is a plain
// down result, never an error surfaced to the caller.
func readLinkState(iface string) (bool, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return false, nil
	}

	attrs := link.Attrs()
	if attrs.Flags&unix.IFF_UP == 0 {
		return false, nil
	}

	if et, err := ethtool.NewEthtool(); err == nil {
		defer et.Close()
		if state, err := et.LinkState(iface); err == nil {
			return state == 1, nil
		}
	}

	return attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown, nil
}

// readSourceAddr returns the first IPv4 address on iface, used as the
// ping source so the probe exercises this interface's path.
func readSourceAddr(iface string) (string, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return "", fmt.Errorf("interface %s not found: %w", iface, err)
	}
	addrs, err := netlink.AddrList(link, unix.AF_INET)
	if err != nil {
		return "", fmt.Errorf("failed to list addresses on %s: %w", iface, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no IPv4 address on %s", iface)
	}
	return addrs[0].IP.String(), nil
}

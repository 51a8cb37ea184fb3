// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package binding

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// MacvlanBinder implements NetworkBinder with a macvlan device bridged
// onto the physical uplink.
type MacvlanBinder struct{}

// NewMacvlanBinder returns the netlink-backed binder.
func NewMacvlanBinder() *MacvlanBinder {
	return &MacvlanBinder{}
}

// Detach deletes the named device from the host namespace. A device
// that does not exist (including one living inside the workload's
// namespace, which dies with the workload restart) is not an error.
func (b *MacvlanBinder) Detach(linkName string) error {
	link, err := netlink.LinkByName(linkName)
	if err != nil {
		if _, ok := err.(netlink.LinkNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to look up %s: %w", linkName, err)
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("failed to delete %s: %w", linkName, err)
	}
	return nil
}

// Attach creates the macvlan on parent with the given hardware address,
// brings it up and, when nsPid is set, moves it into that process's
// network namespace.
func (b *MacvlanBinder) Attach(parent, linkName string, hwaddr net.HardwareAddr, nsPid int) error {
	parentLink, err := netlink.LinkByName(parent)
	if err != nil {
		return fmt.Errorf("parent interface %s not found: %w", parent, err)
	}

	attrs := netlink.NewLinkAttrs()
	attrs.Name = linkName
	attrs.ParentIndex = parentLink.Attrs().Index
	attrs.HardwareAddr = hwaddr

	mv := &netlink.Macvlan{
		LinkAttrs: attrs,
		Mode:      netlink.MACVLAN_MODE_BRIDGE,
	}
	if err := netlink.LinkAdd(mv); err != nil {
		return fmt.Errorf("failed to create macvlan %s on %s: %w", linkName, parent, err)
	}

	if err := netlink.LinkSetUp(mv); err != nil {
		return fmt.Errorf("failed to bring up %s: %w", linkName, err)
	}

	if nsPid > 0 {
		handle, err := netns.GetFromPid(nsPid)
		if err != nil {
			return fmt.Errorf("failed to open netns of pid %d: %w", nsPid, err)
		}
		defer handle.Close()
		if err := netlink.LinkSetNsFd(mv, int(handle)); err != nil {
			return fmt.Errorf("failed to move %s into workload namespace: %w", linkName, err)
		}
	}

	return nil
}

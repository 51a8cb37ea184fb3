// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netutil

import (
	"crypto/sha256"
	"fmt"
	"net"
)

func ParseMAC(macStr string) (net.HardwareAddr, error) {
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		return nil, err
	}
	return hw, nil
}

func FormatMAC(mac net.HardwareAddr) string {
	if len(mac) != 6 {
		return ""
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// DeriveMAC generates a deterministic locally-administered unicast MAC
// address from the client-identifier seed and an interface name. The same
// (seed, interface) pair always yields the same address, so the upstream
// address server keeps its reservation stable across restarts, while
// different interfaces get distinct addresses.
// Prefix: 02:75:6c (Locally Administered, 'u', 'l')
func DeriveMAC(seed, ifaceName string) net.HardwareAddr {
	sum := sha256.Sum256([]byte(seed + "/" + ifaceName))
	return net.HardwareAddr{
		0x02, // Locally-administered, unicast
		0x75, // 'u'
		0x6c, // 'l'
		sum[0],
		sum[1],
		sum[2],
	}
}

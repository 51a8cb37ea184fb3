// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package lease

import (
	"context"
	"fmt"
	"net"
	"time"
)

func requestDHCP(ctx context.Context, iface string, hwaddr net.HardwareAddr, clientID []byte, hint net.IP, timeout time.Duration) (net.IP, error) {
	return nil, fmt.Errorf("DHCP acquisition not supported on this platform")
}

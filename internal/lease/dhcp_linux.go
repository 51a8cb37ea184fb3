// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package lease

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"
)

// requestDHCP performs one DISCOVER/REQUEST exchange on iface. The
// requested-address option is a hint only; whatever the server grants
// is returned.
func requestDHCP(ctx context.Context, iface string, hwaddr net.HardwareAddr, clientID []byte, hint net.IP, timeout time.Duration) (net.IP, error) {
	client, err := nclient4.New(iface,
		nclient4.WithHWAddr(hwaddr),
		nclient4.WithTimeout(timeout),
		nclient4.WithRetry(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open DHCP client on %s: %w", iface, err)
	}
	defer client.Close()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	modifiers := []dhcpv4.Modifier{
		dhcpv4.WithOption(dhcpv4.OptClientIdentifier(clientID)),
	}
	if hint != nil {
		modifiers = append(modifiers, dhcpv4.WithOption(dhcpv4.OptRequestedIPAddress(hint)))
	}

	offer, err := client.Request(reqCtx, modifiers...)
	if err != nil {
		return nil, err
	}

	addr := offer.ACK.YourIPAddr
	if addr == nil || addr.IsUnspecified() {
		return nil, fmt.Errorf("server acknowledged without an address")
	}
	return addr, nil
}

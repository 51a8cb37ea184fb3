// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"grimm.is/uplinkd/internal/api"
)

// RunProbe asks the daemon for an on-demand probe of one interface.
// The probe is read-only; it never triggers a switch.
func RunProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	addr := apiFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: uplinkd probe [flags] <interface>")
	}
	iface := fs.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := api.NewClient(*addr).Probe(ctx, iface)
	if err != nil {
		return err
	}

	fmt.Printf("Interface: %s\n", res.Interface)
	fmt.Printf("Link:      %v\n", res.LinkUp)
	for _, tr := range res.Targets {
		if tr.Success {
			fmt.Printf("  %-16s ok (%s)\n", tr.Target, tr.Latency)
		} else {
			fmt.Printf("  %-16s %s\n", tr.Target, tr.Error)
		}
	}
	if res.Up {
		fmt.Println("Result:    healthy")
	} else {
		fmt.Println("Result:    unhealthy")
	}
	return nil
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"grimm.is/uplinkd/internal/api"
)

// RunSwitch asks the daemon to switch the active interface. The switch
// runs the full bind sequence, so this can take a while.
func RunSwitch(args []string) error {
	fs := flag.NewFlagSet("switch", flag.ExitOnError)
	addr := apiFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: uplinkd switch [flags] <interface>")
	}
	iface := fs.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("Switching to %s...\n", iface)
	if err := api.NewClient(*addr).Switch(ctx, iface); err != nil {
		return err
	}
	fmt.Println("Switch complete.")
	return nil
}

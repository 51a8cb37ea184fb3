// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"grimm.is/uplinkd/internal/api"
)

// RunRestart asks the daemon to reseed from persisted state and restart
// its monitoring loop.
func RunRestart(args []string) error {
	fs := flag.NewFlagSet("restart", flag.ExitOnError)
	addr := apiFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := api.NewClient(*addr).Restart(ctx); err != nil {
		return err
	}
	fmt.Println("Monitoring loop restarting.")
	return nil
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"grimm.is/uplinkd/internal/api"
	"grimm.is/uplinkd/internal/config"
)

func apiFlag(fs *flag.FlagSet) *string {
	return fs.String("api", config.Defaults().APIListen, "daemon API address")
}

// RunStatus prints the controller's current state.
func RunStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := apiFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := api.NewClient(*addr).Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("State:      %s\n", st.State)
	fmt.Printf("Active:     %s\n", st.ActiveInterface)
	fmt.Printf("Priority:   %v\n", st.Interfaces)
	if st.Record != nil {
		fmt.Printf("Hardware:   %s\n", st.Record.HardwareID)
		fmt.Printf("Last switch: %s\n", st.Record.LastSwitch.Local().Format(time.RFC1123))
		if st.Record.ConsecutiveFailures > 0 {
			fmt.Printf("Failures:   %d consecutive\n", st.Record.ConsecutiveFailures)
		}
	}
	if st.LastProbe != nil {
		health := "unhealthy"
		if st.LastProbe.Up {
			health = "healthy"
		}
		fmt.Printf("Last probe: %s (%s)\n", st.LastProbe.Interface, health)
	}
	return nil
}

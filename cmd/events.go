// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"grimm.is/uplinkd/internal/api"
)

// RunEvents prints the most recent controller events, newest first.
func RunEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	addr := apiFlag(fs)
	limit := fs.Int("n", 20, "number of events to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := api.NewClient(*addr).Events(ctx, *limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	for _, ev := range events {
		line := fmt.Sprintf("%s  %-15s", ev.Time.Local().Format("2006-01-02 15:04:05"), ev.Type)
		if ev.Interface != "" {
			line += "  " + ev.Interface
		}
		if ev.Detail != "" {
			line += "  " + ev.Detail
		}
		fmt.Println(line)
	}
	return nil
}

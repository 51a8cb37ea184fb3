// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"fmt"
	"os"

	"grimm.is/uplinkd/cmd"
)

const usage = `uplinkd keeps a containerized workload reachable on the LAN by
binding it to the healthiest uplink interface.

Usage: uplinkd <command> [flags]

Commands:
  run       Run the monitoring daemon in the foreground
  status    Show controller state and the active interface
  events    Show recent probe and switch events
  switch    Manually switch to a named interface
  probe     Probe a named interface without switching
  restart   Restart the daemon's monitoring loop
  version   Print the build version

Run 'uplinkd <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmd.RunRun(os.Args[2:])
	case "status":
		err = cmd.RunStatus(os.Args[2:])
	case "events":
		err = cmd.RunEvents(os.Args[2:])
	case "switch":
		err = cmd.RunSwitch(os.Args[2:])
	case "probe":
		err = cmd.RunProbe(os.Args[2:])
	case "restart":
		err = cmd.RunRestart(os.Args[2:])
	case "version":
		err = cmd.RunVersion()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmd implements the uplinkd subcommands. The daemon runs in
// the foreground; the management subcommands talk to it over the
// local API.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"grimm.is/uplinkd/internal/api"
	"grimm.is/uplinkd/internal/binding"
	"grimm.is/uplinkd/internal/config"
	"grimm.is/uplinkd/internal/controller"
	"grimm.is/uplinkd/internal/lease"
	"grimm.is/uplinkd/internal/logging"
	"grimm.is/uplinkd/internal/metrics"
	"grimm.is/uplinkd/internal/probe"
	"grimm.is/uplinkd/internal/state"
	"grimm.is/uplinkd/internal/workload"
)

// RunRun starts the monitoring daemon in the foreground.
func RunRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("config", "", "path to configuration file (HCL)")
	interfaces := fs.String("interfaces", "", "comma-separated interface priority list")
	probeTargets := fs.String("probe-targets", "", "comma-separated probe targets")
	probeTimeout := fs.Duration("probe-timeout", 0, "per-target probe timeout")
	checkInterval := fs.Duration("check-interval", 0, "probe cycle interval")
	maxLeaseAttempts := fs.Int("max-lease-attempts", 0, "address lease attempts per switch")
	staticAddress := fs.String("static-address", "", "advisory address hint")
	hardwareID := fs.String("hardware-id", "", "fixed hardware identifier (MAC)")
	apiListen := fs.String("api-listen", "", "management API listen address")
	stateDir := fs.String("state-dir", "", "state directory")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ov := config.Overrides{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interfaces":
			ov.Interfaces = interfaces
		case "probe-targets":
			ov.ProbeTargets = probeTargets
		case "probe-timeout":
			ov.ProbeTimeout = probeTimeout
		case "check-interval":
			ov.CheckInterval = checkInterval
		case "max-lease-attempts":
			ov.MaxLeaseAttempts = maxLeaseAttempts
		case "static-address":
			ov.StaticAddress = staticAddress
		case "hardware-id":
			ov.HardwareID = hardwareID
		case "api-listen":
			ov.APIListen = apiListen
		case "state-dir":
			ov.StateDir = stateDir
		case "log-level":
			ov.LogLevel = logLevel
		}
	})

	path := *configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.Resolve(path, nil, ov)
	if err != nil {
		return err
	}

	logger, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logging.SetDefault(logger)

	logger.Info("uplinkd starting",
		"version", Version,
		"interfaces", cfg.Interfaces,
		"config", path)

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidFile := filepath.Join(cfg.StateDir, "uplinkd.pid")
	if err := writePIDFile(pidFile); err != nil {
		return err
	}
	defer os.Remove(pidFile)

	store, err := state.Open(filepath.Join(cfg.StateDir, "uplinkd.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	prober := probe.New(cfg.ProbeTargets, cfg.ProbeTimeout, logger.Component("probe"))
	leases := lease.NewManager(lease.Config{
		MaxAttempts: cfg.MaxLeaseAttempts,
		Timeout:     cfg.LeaseTimeout,
		Backoff:     cfg.LeaseBackoff,
		BackoffMax:  cfg.LeaseBackoffMax,
		Seed:        cfg.ClientIDSeed,
	}, logger.Component("lease"))
	docker := workload.NewDockerClient(cfg.DockerSocket)
	health := workload.NewHealthChecker(cfg.HealthRetries, cfg.HealthInterval, logger.Component("health"))
	executor := binding.NewExecutor(cfg, binding.NewMacvlanBinder(), docker, leases, health, logger.Component("binding"))

	mets := metrics.New()
	ctrl, err := controller.New(cfg, prober, executor, store, mets, logger.Component("controller"))
	if err != nil {
		return err
	}

	server := api.NewServer(ctrl, store, mets.Handler(), logger.Component("api"))
	if err := server.Start(cfg.APIListen); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutting down", "signal", sig.String())
		cancel()
	}()

	err = ctrl.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := server.Stop(shutdownCtx); serr != nil {
		logger.Warn("Management API shutdown incomplete", "error", serr)
	}

	logger.Info("uplinkd stopped")
	return err
}

const defaultConfigFile = "/etc/uplinkd/uplinkd.hcl"

func buildLogger(cfg *config.Config) (*logging.Logger, func(), error) {
	lc := logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	}

	closeLog := func() {}
	if cfg.Syslog.Enabled {
		sw, err := logging.NewSyslogWriter(cfg.Syslog)
		if err != nil {
			return nil, nil, fmt.Errorf("syslog forwarding: %w", err)
		}
		lc.Format = "json"
		lc.Output = io.MultiWriter(os.Stderr, sw)
		closeLog = func() { sw.Close() }
	}

	return logging.New(lc), closeLog, nil
}

func writePIDFile(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(string(data)); err == nil {
			if proc, err := os.FindProcess(pid); err == nil {
				if proc.Signal(syscall.Signal(0)) == nil {
					return fmt.Errorf("daemon already running (PID %d)", pid)
				}
			}
		}
		// Stale PID file from a dead process.
		os.Remove(path)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config resolves the effective uplinkd configuration from
// built-in defaults, the persisted HCL configuration file, process
// environment variables and explicit command-line overrides, in that
// order of increasing precedence. The result is immutable for the
// lifetime of one controller run.
package config

import (
	"time"

	"grimm.is/uplinkd/internal/logging"
)

// Config is the effective configuration consumed by every component.
type Config struct {
	// Interfaces is the candidate uplink list in priority order.
	Interfaces []string

	// FallbackInterface is the legacy single-uplink interface. It is
	// accepted as a valid active interface even when it no longer
	// appears in the priority list.
	FallbackInterface string

	// ProbeTargets are remote addresses used only for reachability
	// checks, tried in order until one answers.
	ProbeTargets []string

	// ProbeTimeout bounds each per-target reachability check.
	ProbeTimeout time.Duration

	// CheckInterval is the controller's probe cycle period.
	CheckInterval time.Duration

	// MaxLeaseAttempts bounds address acquisition retries per switch.
	MaxLeaseAttempts int

	// LeaseTimeout bounds a single lease attempt.
	LeaseTimeout time.Duration

	// LeaseBackoff is the base delay between lease attempts; the delay
	// grows linearly per attempt up to LeaseBackoffMax.
	LeaseBackoff    time.Duration
	LeaseBackoffMax time.Duration

	// ClientIDSeed is the stable seed for client-identifier and
	// hardware-identifier derivation.
	ClientIDSeed string

	// HardwareID, when set, overrides the derived hardware identifier
	// verbatim (MAC string form).
	HardwareID string

	// StaticAddress is an advisory address hint passed to the address
	// server. The server may ignore it; that is never an error.
	StaticAddress string

	// WorkloadContainer is the managed container's name.
	WorkloadContainer string

	// WorkloadLink is the name of the workload's virtual network device.
	WorkloadLink string

	// Health endpoint checked after a bind before declaring success.
	HealthPort     int
	HealthPath     string
	HealthRetries  int
	HealthInterval time.Duration

	// DockerSocket is the path of the container runtime API socket.
	DockerSocket string

	// APIListen is the management API listen address.
	APIListen string

	// StateDir holds the binding record database and PID file.
	StateDir string

	LogLevel  string
	LogFormat string

	Syslog logging.SyslogConfig
}

// Defaults returns the built-in configuration, the lowest-precedence
// source.
func Defaults() *Config {
	return &Config{
		Interfaces:        []string{"eth0"},
		FallbackInterface: "eth0",
		ProbeTargets:      []string{"1.1.1.1", "8.8.8.8"},
		ProbeTimeout:      2 * time.Second,
		CheckInterval:     30 * time.Second,
		MaxLeaseAttempts:  3,
		LeaseTimeout:      10 * time.Second,
		LeaseBackoff:      2 * time.Second,
		LeaseBackoffMax:   10 * time.Second,
		ClientIDSeed:      "uplinkd",
		WorkloadContainer: "workload",
		WorkloadLink:      "wl0",
		HealthPort:        8123,
		HealthPath:        "/",
		HealthRetries:     5,
		HealthInterval:    2 * time.Second,
		DockerSocket:      "/var/run/docker.sock",
		APIListen:         "127.0.0.1:9620",
		StateDir:          "/var/lib/uplinkd",
		LogLevel:          "info",
		LogFormat:         "console",
		Syslog:            logging.DefaultSyslogConfig(),
	}
}

// fileConfig mirrors the persisted HCL configuration file. All fields
// are optional; absent fields leave the lower-precedence value intact.
// Durations are HCL strings ("30s", "2m").
type fileConfig struct {
	Interfaces        []string `hcl:"interfaces,optional"`
	FallbackInterface *string  `hcl:"fallback_interface,optional"`
	ProbeTargets      []string `hcl:"probe_targets,optional"`
	ProbeTimeout      *string  `hcl:"probe_timeout,optional"`
	CheckInterval     *string  `hcl:"check_interval,optional"`
	MaxLeaseAttempts  *int     `hcl:"max_lease_attempts,optional"`
	LeaseTimeout      *string  `hcl:"lease_timeout,optional"`
	LeaseBackoff      *string  `hcl:"lease_backoff,optional"`
	LeaseBackoffMax   *string  `hcl:"lease_backoff_max,optional"`
	ClientIDSeed      *string  `hcl:"client_id_seed,optional"`
	HardwareID        *string  `hcl:"hardware_id,optional"`
	StaticAddress     *string  `hcl:"static_address,optional"`
	WorkloadContainer *string  `hcl:"workload_container,optional"`
	WorkloadLink      *string  `hcl:"workload_link,optional"`
	HealthPort        *int     `hcl:"health_port,optional"`
	HealthPath        *string  `hcl:"health_path,optional"`
	HealthRetries     *int     `hcl:"health_retries,optional"`
	HealthInterval    *string  `hcl:"health_interval,optional"`
	DockerSocket      *string  `hcl:"docker_socket,optional"`
	APIListen         *string  `hcl:"api_listen,optional"`
	StateDir          *string  `hcl:"state_dir,optional"`
	LogLevel          *string  `hcl:"log_level,optional"`
	LogFormat         *string  `hcl:"log_format,optional"`

	Syslog *logging.SyslogConfig `hcl:"syslog,block"`
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"grimm.is/uplinkd/internal/errors"
)

// Overrides carries explicit command-line values, the highest-precedence
// source. Nil fields are unset.
type Overrides struct {
	Interfaces       *string // comma-separated priority list
	ProbeTargets     *string // comma-separated
	ProbeTimeout     *time.Duration
	CheckInterval    *time.Duration
	MaxLeaseAttempts *int
	StaticAddress    *string
	HardwareID       *string
	APIListen        *string
	StateDir         *string
	LogLevel         *string
}

// EnvLookup resolves an environment variable; it matches os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// Resolve merges defaults, the persisted configuration file at path (if
// non-empty), environment variables and command overrides into one
// effective configuration. Each parameter is resolved independently:
// presence at a higher-precedence source always wins. Malformed values
// at any source fail fast.
func Resolve(path string, env EnvLookup, ov Overrides) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if env == nil {
		env = os.LookupEnv
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}
	applyOverrides(cfg, ov)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return errors.Wrapf(err, errors.KindValidation, "failed to load configuration file %s", path)
	}

	if fc.Interfaces != nil {
		cfg.Interfaces = fc.Interfaces
	}
	if fc.FallbackInterface != nil {
		cfg.FallbackInterface = *fc.FallbackInterface
	}
	if fc.ProbeTargets != nil {
		cfg.ProbeTargets = fc.ProbeTargets
	}
	if fc.MaxLeaseAttempts != nil {
		cfg.MaxLeaseAttempts = *fc.MaxLeaseAttempts
	}
	if fc.ClientIDSeed != nil {
		cfg.ClientIDSeed = *fc.ClientIDSeed
	}
	if fc.HardwareID != nil {
		cfg.HardwareID = *fc.HardwareID
	}
	if fc.StaticAddress != nil {
		cfg.StaticAddress = *fc.StaticAddress
	}
	if fc.WorkloadContainer != nil {
		cfg.WorkloadContainer = *fc.WorkloadContainer
	}
	if fc.WorkloadLink != nil {
		cfg.WorkloadLink = *fc.WorkloadLink
	}
	if fc.HealthPort != nil {
		cfg.HealthPort = *fc.HealthPort
	}
	if fc.HealthPath != nil {
		cfg.HealthPath = *fc.HealthPath
	}
	if fc.HealthRetries != nil {
		cfg.HealthRetries = *fc.HealthRetries
	}
	if fc.DockerSocket != nil {
		cfg.DockerSocket = *fc.DockerSocket
	}
	if fc.APIListen != nil {
		cfg.APIListen = *fc.APIListen
	}
	if fc.StateDir != nil {
		cfg.StateDir = *fc.StateDir
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.Syslog != nil {
		cfg.Syslog = *fc.Syslog
	}

	durations := []struct {
		raw  *string
		name string
		dst  *time.Duration
	}{
		{fc.ProbeTimeout, "probe_timeout", &cfg.ProbeTimeout},
		{fc.CheckInterval, "check_interval", &cfg.CheckInterval},
		{fc.LeaseTimeout, "lease_timeout", &cfg.LeaseTimeout},
		{fc.LeaseBackoff, "lease_backoff", &cfg.LeaseBackoff},
		{fc.LeaseBackoffMax, "lease_backoff_max", &cfg.LeaseBackoffMax},
		{fc.HealthInterval, "health_interval", &cfg.HealthInterval},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return errors.Wrapf(err, errors.KindValidation, "invalid %s in %s", d.name, path)
		}
		*d.dst = v
	}

	return nil
}

func applyEnv(cfg *Config, env EnvLookup) error {
	if v, ok := env("UPLINKD_INTERFACES"); ok {
		cfg.Interfaces = splitList(v)
	}
	if v, ok := env("UPLINKD_FALLBACK_INTERFACE"); ok {
		cfg.FallbackInterface = v
	}
	if v, ok := env("UPLINKD_PROBE_TARGETS"); ok {
		cfg.ProbeTargets = splitList(v)
	}
	if v, ok := env("UPLINKD_CLIENT_ID_SEED"); ok {
		cfg.ClientIDSeed = v
	}
	if v, ok := env("UPLINKD_HARDWARE_ID"); ok {
		cfg.HardwareID = v
	}
	if v, ok := env("UPLINKD_STATIC_ADDRESS"); ok {
		cfg.StaticAddress = v
	}
	if v, ok := env("UPLINKD_WORKLOAD_CONTAINER"); ok {
		cfg.WorkloadContainer = v
	}
	if v, ok := env("UPLINKD_WORKLOAD_LINK"); ok {
		cfg.WorkloadLink = v
	}
	if v, ok := env("UPLINKD_DOCKER_SOCKET"); ok {
		cfg.DockerSocket = v
	}
	if v, ok := env("UPLINKD_API_LISTEN"); ok {
		cfg.APIListen = v
	}
	if v, ok := env("UPLINKD_STATE_DIR"); ok {
		cfg.StateDir = v
	}
	if v, ok := env("UPLINKD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := env("UPLINKD_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"UPLINKD_MAX_LEASE_ATTEMPTS", &cfg.MaxLeaseAttempts},
		{"UPLINKD_HEALTH_PORT", &cfg.HealthPort},
		{"UPLINKD_HEALTH_RETRIES", &cfg.HealthRetries},
	}
	for _, e := range ints {
		v, ok := env(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, errors.KindValidation, "invalid %s", e.key)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"UPLINKD_PROBE_TIMEOUT", &cfg.ProbeTimeout},
		{"UPLINKD_CHECK_INTERVAL", &cfg.CheckInterval},
		{"UPLINKD_LEASE_TIMEOUT", &cfg.LeaseTimeout},
		{"UPLINKD_LEASE_BACKOFF", &cfg.LeaseBackoff},
		{"UPLINKD_LEASE_BACKOFF_MAX", &cfg.LeaseBackoffMax},
		{"UPLINKD_HEALTH_INTERVAL", &cfg.HealthInterval},
	}
	for _, e := range durations {
		v, ok := env(e.key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, errors.KindValidation, "invalid %s", e.key)
		}
		*e.dst = d
	}

	return nil
}

func applyOverrides(cfg *Config, ov Overrides) {
	if ov.Interfaces != nil {
		cfg.Interfaces = splitList(*ov.Interfaces)
	}
	if ov.ProbeTargets != nil {
		cfg.ProbeTargets = splitList(*ov.ProbeTargets)
	}
	if ov.ProbeTimeout != nil {
		cfg.ProbeTimeout = *ov.ProbeTimeout
	}
	if ov.CheckInterval != nil {
		cfg.CheckInterval = *ov.CheckInterval
	}
	if ov.MaxLeaseAttempts != nil {
		cfg.MaxLeaseAttempts = *ov.MaxLeaseAttempts
	}
	if ov.StaticAddress != nil {
		cfg.StaticAddress = *ov.StaticAddress
	}
	if ov.HardwareID != nil {
		cfg.HardwareID = *ov.HardwareID
	}
	if ov.APIListen != nil {
		cfg.APIListen = *ov.APIListen
	}
	if ov.StateDir != nil {
		cfg.StateDir = *ov.StateDir
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the effective configuration. Any failure here is
// fatal at startup; validation never runs mid-cycle.
func (c *Config) Validate() error {
	if len(c.Interfaces) == 0 {
		return errors.New(errors.KindValidation, "interface priority list is empty")
	}
	seen := make(map[string]bool, len(c.Interfaces))
	for _, name := range c.Interfaces {
		if name == "" {
			return errors.New(errors.KindValidation, "interface priority list contains an empty name")
		}
		if seen[name] {
			return errors.Errorf(errors.KindValidation, "interface %s listed more than once", name)
		}
		seen[name] = true
	}
	if len(c.ProbeTargets) == 0 {
		return errors.New(errors.KindValidation, "no probe targets configured")
	}
	if c.ProbeTimeout <= 0 {
		return errors.New(errors.KindValidation, "probe_timeout must be positive")
	}
	if c.CheckInterval <= 0 {
		return errors.New(errors.KindValidation, "check_interval must be positive")
	}
	if c.MaxLeaseAttempts < 1 {
		return errors.New(errors.KindValidation, "max_lease_attempts must be at least 1")
	}
	if c.LeaseTimeout <= 0 || c.LeaseBackoff <= 0 || c.LeaseBackoffMax <= 0 {
		return errors.New(errors.KindValidation, "lease timing values must be positive")
	}
	if c.HardwareID != "" {
		if _, err := net.ParseMAC(c.HardwareID); err != nil {
			return errors.Wrapf(err, errors.KindValidation, "invalid hardware_id %q", c.HardwareID)
		}
	}
	if c.StaticAddress != "" {
		if ip := net.ParseIP(c.StaticAddress); ip == nil {
			return errors.Errorf(errors.KindValidation, "invalid static_address %q", c.StaticAddress)
		}
	}
	if c.WorkloadContainer == "" {
		return errors.New(errors.KindValidation, "workload_container must be set")
	}
	if c.WorkloadLink == "" {
		return errors.New(errors.KindValidation, "workload_link must be set")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf(errors.KindValidation, "invalid log_level %q", c.LogLevel)
	}
	return nil
}

// ActiveAllowed reports whether name is acceptable as the active
// interface: a member of the priority list or the legacy fallback. The
// empty name is never allowed, even when no fallback is configured.
func (c *Config) ActiveAllowed(name string) bool {
	if name == "" {
		return false
	}
	if name == c.FallbackInterface {
		return true
	}
	for _, iface := range c.Interfaces {
		if iface == name {
			return true
		}
	}
	return false
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package probe tests whether a named interface is link-up and has real
// upstream connectivity. Probes are sourced from the interface's own
// address so results reflect per-interface reachability rather than the
// system default route.
package probe

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"grimm.is/uplinkd/internal/clock"
	"grimm.is/uplinkd/internal/logging"
)

// TargetResult records the outcome of one probe target.
type TargetResult struct {
	Target  string        `json:"target"`
	Success bool          `json:"success"`
	Latency time.Duration `json:"latency,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Result is the outcome of probing one interface. It is ephemeral; only
// the most recent result per interface is ever kept.
type Result struct {
	Interface string         `json:"interface"`
	Timestamp time.Time      `json:"timestamp"`
	LinkUp    bool           `json:"link_up"`
	Targets   []TargetResult `json:"targets,omitempty"`
	Up        bool           `json:"up"`
}

// Prober probes interfaces against a fixed target set.
type Prober struct {
	targets []string
	timeout time.Duration
	logger  *logging.Logger
}

// New creates a Prober. timeout bounds each per-target check, so a full
// probe never blocks longer than len(targets) * timeout.
func New(targets []string, timeout time.Duration, logger *logging.Logger) *Prober {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Prober{
		targets: targets,
		timeout: timeout,
		logger:  logger,
	}
}

// Overridable for tests and non-Linux builds. LinkStateFunc reports
// whether the interface exists and has carrier; SourceAddrFunc returns
// the interface's primary IPv4 address; PingFunc checks one target.
var (
	LinkStateFunc  = readLinkState
	SourceAddrFunc = readSourceAddr
	PingFunc       = pingTarget
)

// Probe checks link state first and short-circuits to failure without
// contacting any target if the link is down or the interface does not
// exist. Targets are then tried in order; the first answer wins.
func (p *Prober) Probe(ctx context.Context, iface string) Result {
	res := Result{
		Interface: iface,
		Timestamp: clock.Now(),
	}

	up, err := LinkStateFunc(iface)
	if err != nil {
		p.logger.Debug("Link state read failed", "interface", iface, "error", err)
		return res
	}
	res.LinkUp = up
	if !up {
		p.logger.Debug("Link down, skipping targets", "interface", iface)
		return res
	}

	source, err := SourceAddrFunc(iface)
	if err != nil {
		p.logger.Debug("No usable source address", "interface", iface, "error", err)
		return res
	}

	for _, target := range p.targets {
		tr := TargetResult{Target: target}
		latency, err := PingFunc(ctx, target, source, p.timeout)
		if err != nil {
			tr.Error = err.Error()
			res.Targets = append(res.Targets, tr)
			continue
		}
		tr.Success = true
		tr.Latency = latency
		res.Targets = append(res.Targets, tr)
		res.Up = true
		break
	}

	if !res.Up {
		p.logger.Debug("All probe targets unreachable", "interface", iface, "targets", len(p.targets))
	}
	return res
}

func pingTarget(ctx context.Context, target, source string, timeout time.Duration) (time.Duration, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.Source = source
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("packet loss")
	}
	return stats.AvgRtt, nil
}

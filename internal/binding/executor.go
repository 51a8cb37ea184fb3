// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package binding attaches the workload's virtual network device to a
// physical uplink, acquires an address for it and verifies the workload
// is reachable before declaring the bind successful.
package binding

import (
	"context"
	"net"
	"time"

	"grimm.is/uplinkd/internal/config"
	"grimm.is/uplinkd/internal/lease"
	"grimm.is/uplinkd/internal/logging"
	"grimm.is/uplinkd/internal/netutil"
	"grimm.is/uplinkd/internal/state"
	"grimm.is/uplinkd/internal/workload"
)

// Stage identifies where a bind failed, so operators can tell a
// network-layer fault from an application-layer one.
type Stage string

const (
	StageAttach       Stage = "attach"
	StageRestart      Stage = "restart"
	StageLease        Stage = "lease"
	StageReachability Stage = "reachability"
)

// Outcome is the result of one bind operation.
type Outcome struct {
	OK            bool
	NoOp          bool  // target was already active and verified
	Stage         Stage // failure stage when !OK
	Address       net.IP
	HardwareID    net.HardwareAddr
	LeaseAttempts int
	Err           error
}

// NetworkBinder replaces the workload's virtual network device.
// Re-binding must be idempotent.
type NetworkBinder interface {
	// Detach removes the current virtual device if present.
	Detach(linkName string) error
	// Attach creates the virtual device on the parent interface with
	// the given hardware address and moves it into the network
	// namespace of pid (0 leaves it in the host namespace).
	Attach(parent, linkName string, hwaddr net.HardwareAddr, nsPid int) error
}

// Lifecycle restarts the workload and reports its state. Satisfied by
// workload.DockerClient.
type Lifecycle interface {
	Inspect(ctx context.Context, name string) (*workload.ContainerState, error)
	Restart(ctx context.Context, name string, timeout time.Duration) error
}

// LeaseAcquirer obtains an address on the bound interface. Satisfied by
// lease.Manager.
type LeaseAcquirer interface {
	Acquire(ctx context.Context, iface string, hwaddr net.HardwareAddr, hint net.IP) lease.Result
}

// HealthCheck verifies the workload's own health endpoint.
type HealthCheck interface {
	Check(ctx context.Context, url string) error
}

// Executor performs the full bind sequence.
type Executor struct {
	cfg       *config.Config
	binder    NetworkBinder
	lifecycle Lifecycle
	leases    LeaseAcquirer
	health    HealthCheck
	logger    *logging.Logger
}

// NewExecutor wires a bind executor.
func NewExecutor(cfg *config.Config, binder NetworkBinder, lifecycle Lifecycle, leases LeaseAcquirer, health HealthCheck, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Executor{
		cfg:       cfg,
		binder:    binder,
		lifecycle: lifecycle,
		leases:    leases,
		health:    health,
		logger:    logger,
	}
}

// HardwareID computes the identifier the workload presents on iface:
// the configured override verbatim when present, otherwise a
// deterministic derivation from the client-identifier seed.
func (e *Executor) HardwareID(iface string) (net.HardwareAddr, error) {
	if e.cfg.HardwareID != "" {
		return netutil.ParseMAC(e.cfg.HardwareID)
	}
	return netutil.DeriveMAC(e.cfg.ClientIDSeed, iface), nil
}

// Bind attaches the workload to iface. current is the last persisted
// binding record, if any; re-binding to the already active, verified
// interface is a no-op that still reports success and forces no
// duplicate lease attempt.
func (e *Executor) Bind(ctx context.Context, iface string, current *state.BindingRecord) Outcome {
	hwaddr, err := e.HardwareID(iface)
	if err != nil {
		return Outcome{Stage: StageAttach, Err: err}
	}

	if current != nil && current.ActiveInterface == iface && current.HardwareID == hwaddr.String() {
		if st, err := e.lifecycle.Inspect(ctx, e.cfg.WorkloadContainer); err == nil && st.Running {
			e.logger.Info("Interface already bound and workload running, nothing to do",
				"interface", iface)
			return Outcome{OK: true, NoOp: true, HardwareID: hwaddr}
		}
	}

	e.logger.Info("Binding workload to interface",
		"interface", iface, "hardware_id", hwaddr.String())

	if err := e.binder.Detach(e.cfg.WorkloadLink); err != nil {
		e.logger.Warn("Failed to detach existing device, continuing",
			"link", e.cfg.WorkloadLink, "error", err)
	}

	nsPid := 0
	if st, err := e.lifecycle.Inspect(ctx, e.cfg.WorkloadContainer); err == nil && st.Running {
		nsPid = st.Pid
	}

	if err := e.binder.Attach(iface, e.cfg.WorkloadLink, hwaddr, nsPid); err != nil {
		return Outcome{Stage: StageAttach, HardwareID: hwaddr, Err: err}
	}

	if err := e.lifecycle.Restart(ctx, e.cfg.WorkloadContainer, 10*time.Second); err != nil {
		return Outcome{Stage: StageRestart, HardwareID: hwaddr, Err: err}
	}

	var hint net.IP
	if e.cfg.StaticAddress != "" {
		hint = net.ParseIP(e.cfg.StaticAddress)
	}
	res := e.leases.Acquire(ctx, iface, hwaddr, hint)
	if !res.Granted() {
		return Outcome{
			Stage:         StageLease,
			HardwareID:    hwaddr,
			LeaseAttempts: len(res.Attempts),
			Err:           lastAttemptError(res),
		}
	}

	url := workload.HealthURL(res.Address.String(), e.cfg.HealthPort, e.cfg.HealthPath)
	if err := e.health.Check(ctx, url); err != nil {
		return Outcome{
			Stage:         StageReachability,
			Address:       res.Address,
			HardwareID:    hwaddr,
			LeaseAttempts: len(res.Attempts),
			Err:           err,
		}
	}

	e.logger.Info("Bind verified end to end",
		"interface", iface, "address", res.Address.String())
	return Outcome{OK: true, Address: res.Address, HardwareID: hwaddr, LeaseAttempts: len(res.Attempts)}
}

func lastAttemptError(res lease.Result) error {
	if n := len(res.Attempts); n > 0 && res.Attempts[n-1].Error != "" {
		return &leaseError{outcome: res.Outcome, detail: res.Attempts[n-1].Error}
	}
	return &leaseError{outcome: res.Outcome, detail: "no address granted"}
}

type leaseError struct {
	outcome lease.Outcome
	detail  string
}

func (e *leaseError) Error() string {
	return "lease " + string(e.outcome) + ": " + e.detail
}

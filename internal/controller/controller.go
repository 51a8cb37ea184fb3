// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package controller runs the failover state machine: it probes the
// active uplink each cycle, selects a replacement when it degrades and
// drives the bind sequence, serializing every switch-class operation
// behind one lock so an operator-triggered switch can never interleave
// with an in-flight automatic failover.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/uplinkd/internal/binding"
	"grimm.is/uplinkd/internal/clock"
	"grimm.is/uplinkd/internal/config"
	"grimm.is/uplinkd/internal/errors"
	"grimm.is/uplinkd/internal/logging"
	"grimm.is/uplinkd/internal/metrics"
	"grimm.is/uplinkd/internal/probe"
	"grimm.is/uplinkd/internal/state"
)

// State is the controller's externally visible state.
type State string

const (
	// StateStable: the active interface passed its last probe.
	StateStable State = "stable"
	// StateProbing: a health check is in flight.
	StateProbing State = "probing"
	// StateSwitching: bind/lease/verify in progress, switch lock held.
	StateSwitching State = "switching"
	// StateDegraded: no healthy alternative found; the last-known
	// binding is retained and the next cycle retries.
	StateDegraded State = "degraded"
)

// Trigger identifies what initiated a switch operation.
type Trigger string

const (
	TriggerFailover Trigger = "failover"
	TriggerManual   Trigger = "manual"
)

// Prober tests an interface's health. Satisfied by probe.Prober.
type Prober interface {
	Probe(ctx context.Context, iface string) probe.Result
}

// Binder performs the bind sequence. Satisfied by binding.Executor.
type Binder interface {
	Bind(ctx context.Context, iface string, current *state.BindingRecord) binding.Outcome
}

// Store persists the binding record and event log. Satisfied by
// state.Store.
type Store interface {
	Binding() (*state.BindingRecord, error)
	SaveBinding(state.BindingRecord) error
	AppendEvent(state.Event) error
}

// Status is a read-only snapshot for management tooling. Readers get it
// without the switch lock and must tolerate slight staleness.
type Status struct {
	State           State                `json:"state"`
	ActiveInterface string               `json:"active_interface"`
	Interfaces      []string             `json:"interfaces"`
	Record          *state.BindingRecord `json:"record,omitempty"`
	LastProbe       *probe.Result        `json:"last_probe,omitempty"`
}

// Controller ties probing, selection and binding together.
type Controller struct {
	cfg    *config.Config
	prober Prober
	binder Binder
	store  Store
	mets   *metrics.Metrics
	logger *logging.Logger

	// switchMu is the switch lock: at most one switch-class operation
	// (automatic or manual) system-wide. Contenders fail fast.
	switchMu sync.Mutex

	mu        sync.RWMutex
	st        State
	active    string
	record    *state.BindingRecord
	lastProbe *probe.Result

	restartCh chan struct{}
}

// New builds a controller seeded from the persisted binding record when
// one exists, otherwise from the head of the priority list.
func New(cfg *config.Config, prober Prober, binder Binder, store Store, mets *metrics.Metrics, logger *logging.Logger) (*Controller, error) {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	if mets == nil {
		mets = metrics.New()
	}

	c := &Controller{
		cfg:       cfg,
		prober:    prober,
		binder:    binder,
		store:     store,
		mets:      mets,
		logger:    logger,
		st:        StateProbing,
		restartCh: make(chan struct{}, 1),
	}
	if err := c.reseed(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) reseed() error {
	rec, err := c.store.Binding()
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to load binding record")
	}

	active := c.cfg.Interfaces[0]
	if rec != nil && rec.ActiveInterface != "" {
		if c.cfg.ActiveAllowed(rec.ActiveInterface) {
			active = rec.ActiveInterface
		} else {
			c.logger.Warn("Persisted interface no longer configured, reseeding from priority list",
				"persisted", rec.ActiveInterface, "seed", active)
		}
	}

	c.mu.Lock()
	c.record = rec
	c.active = active
	c.st = StateProbing
	c.mu.Unlock()
	return nil
}

// Run executes the monitoring loop until ctx is canceled. The stop is
// honored between cycles, never mid-bind: a switch that already holds
// the lock completes (success or failure) before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("Failover controller starting",
		"interfaces", c.cfg.Interfaces,
		"active", c.Active(),
		"interval", c.cfg.CheckInterval)

	c.cycle(ctx)

	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Failover controller stopped")
			return nil
		case <-c.restartCh:
			c.logger.Info("Monitoring loop restart requested")
			if err := c.reseed(); err != nil {
				c.logger.Error("Failed to reseed after restart", "error", err)
			}
			c.cycle(ctx)
		case <-ticker.C:
			c.cycle(ctx)
		}
	}
}

// cycle is one pass of the state machine: probe the active interface,
// and on failure try to fail over.
func (c *Controller) cycle(ctx context.Context) {
	c.setState(StateProbing)
	active := c.Active()

	res := c.prober.Probe(ctx, active)
	c.observeProbe(res)

	if res.Up {
		c.setState(StateStable)
		return
	}

	c.logger.Warn("Active interface unhealthy", "interface", active)
	c.appendEvent(state.Event{Type: state.EventProbeFailure, Interface: active})

	candidate, found := SelectBest(c.cfg.Interfaces, active, func(iface string) bool {
		r := c.prober.Probe(ctx, iface)
		c.observeProbe(r)
		return r.Up
	})
	if !found {
		c.logger.Warn("No healthy candidate interface, entering degraded state")
		c.appendEvent(state.Event{Type: state.EventDegraded, Interface: active})
		c.setState(StateDegraded)
		return
	}

	if err := c.switchTo(candidate, TriggerFailover); err != nil {
		// Recoverable by design: the next tick retries.
		c.logger.Error("Failover did not complete", "interface", candidate, "error", err)
	}
}

// ManualSwitch is the operator-triggered path. It validates the target
// and enters the same mutual-exclusion path as automatic failover.
func (c *Controller) ManualSwitch(iface string) error {
	if !c.cfg.ActiveAllowed(iface) {
		return errors.Errorf(errors.KindValidation, "interface %s is not in the configured priority list", iface)
	}
	return c.switchTo(iface, TriggerManual)
}

// switchTo performs one switch operation under the switch lock. A
// contender that cannot take the lock fails immediately with a conflict
// instead of queueing.
func (c *Controller) switchTo(iface string, trigger Trigger) error {
	if !c.switchMu.TryLock() {
		c.mets.SwitchTotal.WithLabelValues(string(trigger), "conflict").Inc()
		return errors.New(errors.KindConflict, "switch already in progress")
	}
	defer c.switchMu.Unlock()

	c.setState(StateSwitching)
	opID := uuid.NewString()
	prior := c.Record()

	c.logger.Info("Switching active interface",
		"interface", iface, "trigger", trigger, "operation", opID)
	c.appendEvent(state.Event{
		Type:        state.EventSwitchAttempt,
		Interface:   iface,
		OperationID: opID,
		Detail:      string(trigger),
	})

	// The bind runs on its own budgeted context so a shutdown between
	// cycles never abandons a half-finished binding.
	bindCtx, cancel := context.WithTimeout(context.Background(), c.bindBudget())
	defer cancel()

	out := c.binder.Bind(bindCtx, iface, prior)
	c.mets.LeaseAttemptsTotal.Add(float64(out.LeaseAttempts))
	if out.OK {
		// A no-op rebind leaves the persisted record untouched: the
		// interface was already active and verified, so there is no new
		// switch to record.
		if out.NoOp {
			c.appendEvent(state.Event{
				Type:        state.EventSwitchSuccess,
				Interface:   iface,
				OperationID: opID,
				Detail:      string(trigger) + " no-op",
			})
			c.mets.SwitchTotal.WithLabelValues(string(trigger), "success").Inc()
			c.setState(StateStable)

			c.logger.Info("Interface already bound, nothing to do",
				"interface", iface, "operation", opID)
			return nil
		}

		rec := state.BindingRecord{
			ActiveInterface:     iface,
			HardwareID:          out.HardwareID.String(),
			LastSwitch:          clock.Now(),
			ConsecutiveFailures: 0,
		}
		if err := c.store.SaveBinding(rec); err != nil {
			c.logger.Error("Failed to persist binding record", "error", err)
		}

		c.mu.Lock()
		c.record = &rec
		c.active = iface
		c.mu.Unlock()

		detail := string(trigger)
		if out.Address != nil {
			detail += " address=" + out.Address.String()
		}
		c.appendEvent(state.Event{
			Type:        state.EventSwitchSuccess,
			Interface:   iface,
			OperationID: opID,
			Detail:      detail,
		})
		c.mets.SwitchTotal.WithLabelValues(string(trigger), "success").Inc()
		c.mets.ConsecutiveFailures.Set(0)
		c.setState(StateStable)

		c.logger.Info("Switch complete", "interface", iface, "operation", opID)
		return nil
	}

	// Failure: the prior binding is retained unchanged apart from the
	// failure counter.
	rec := state.BindingRecord{ActiveInterface: c.Active()}
	if prior != nil {
		rec = *prior
	}
	rec.ConsecutiveFailures++
	if err := c.store.SaveBinding(rec); err != nil {
		c.logger.Error("Failed to persist binding record", "error", err)
	}

	c.mu.Lock()
	c.record = &rec
	c.mu.Unlock()

	eventType := state.EventSwitchFailure
	if out.Stage == binding.StageLease {
		eventType = state.EventLeaseFailure
	}
	c.appendEvent(state.Event{
		Type:        eventType,
		Interface:   iface,
		OperationID: opID,
		Detail:      "stage=" + string(out.Stage) + " " + out.Err.Error(),
	})
	c.mets.SwitchTotal.WithLabelValues(string(trigger), "failure").Inc()
	c.mets.ConsecutiveFailures.Set(float64(rec.ConsecutiveFailures))
	c.setState(StateDegraded)

	c.logger.Warn("Switch failed, prior binding retained",
		"interface", iface, "stage", out.Stage, "operation", opID, "error", out.Err)
	return errors.Wrapf(out.Err, errors.KindUnavailable, "bind to %s failed at %s stage", iface, out.Stage)
}

// ProbeInterface runs an on-demand, read-only probe of a named
// interface. No state is mutated.
func (c *Controller) ProbeInterface(ctx context.Context, iface string) probe.Result {
	return c.prober.Probe(ctx, iface)
}

// RestartLoop asks the monitoring loop to reseed and run a cycle now.
func (c *Controller) RestartLoop() {
	select {
	case c.restartCh <- struct{}{}:
	default:
	}
}

// Status returns a lock-free snapshot for management tooling.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		State:           c.st,
		ActiveInterface: c.active,
		Interfaces:      c.cfg.Interfaces,
	}
	if c.record != nil {
		rec := *c.record
		st.Record = &rec
	}
	if c.lastProbe != nil {
		lp := *c.lastProbe
		st.LastProbe = &lp
	}
	return st
}

// Active returns the interface the controller currently considers
// bound.
func (c *Controller) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Record returns a copy of the in-memory binding record.
func (c *Controller) Record() *state.BindingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.record == nil {
		return nil
	}
	rec := *c.record
	return &rec
}

// CurrentState returns the controller state.
func (c *Controller) CurrentState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st
}

func (c *Controller) setState(st State) {
	c.mu.Lock()
	c.st = st
	c.mu.Unlock()
	c.mets.SetState(string(st))
}

func (c *Controller) observeProbe(res probe.Result) {
	result := "failure"
	up := 0.0
	if res.Up {
		result = "success"
		up = 1.0
	}
	c.mets.ProbeResult.WithLabelValues(res.Interface).Set(up)
	c.mets.ProbeTotal.WithLabelValues(res.Interface, result).Inc()

	c.mu.Lock()
	if res.Interface == c.active {
		lp := res
		c.lastProbe = &lp
	}
	c.mu.Unlock()
}

func (c *Controller) appendEvent(ev state.Event) {
	if err := c.store.AppendEvent(ev); err != nil {
		c.logger.Error("Failed to append event", "type", ev.Type, "error", err)
	}
}

// bindBudget bounds one bind operation: worst-case lease attempts plus
// health polling plus device and restart slack.
func (c *Controller) bindBudget() time.Duration {
	leaseWorst := time.Duration(c.cfg.MaxLeaseAttempts) * (c.cfg.LeaseTimeout + c.cfg.LeaseBackoffMax)
	healthWorst := time.Duration(c.cfg.HealthRetries+1) * c.cfg.HealthInterval * 2
	return leaseWorst + healthWorst + 30*time.Second
}

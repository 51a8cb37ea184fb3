// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package lease obtains a network address for the workload on a chosen
// interface via DHCP, with bounded retries and client-identifier
// rotation.
package lease

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"grimm.is/uplinkd/internal/clock"
	"grimm.is/uplinkd/internal/logging"
)

// Outcome classifies how an acquisition (or one attempt) ended.
type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeRejected Outcome = "rejected"
)

// Attempt records one lease attempt. Attempts are created per try and
// discarded with the Result once the caller is done.
type Attempt struct {
	Interface string
	Ordinal   int // 1..MaxAttempts
	ClientID  []byte
	Requested net.IP // advisory hint, may be nil
	Granted   net.IP
	Outcome   Outcome
	Error     string
}

// Result is the terminal outcome of an acquisition. Exhausting all
// attempts is a failure result, never a panic or error return: the
// caller decides whether to retain the previous binding.
type Result struct {
	Address  net.IP
	Outcome  Outcome
	Attempts []Attempt
}

// Granted reports whether an address was obtained.
func (r Result) Granted() bool { return r.Outcome == OutcomeGranted }

// Config bounds the acquisition loop.
type Config struct {
	MaxAttempts int
	Timeout     time.Duration // per attempt
	Backoff     time.Duration // base delay, grows linearly per retry
	BackoffMax  time.Duration // delay ceiling
	Seed        string        // client-identifier seed
}

// RequestFunc performs a single DHCP exchange on iface, presenting the
// given hardware address and client identifier, optionally hinting a
// requested address. It returns the granted address.
type RequestFunc func(ctx context.Context, iface string, hwaddr net.HardwareAddr, clientID []byte, hint net.IP, timeout time.Duration) (net.IP, error)

// Manager runs the bounded acquisition loop.
type Manager struct {
	cfg     Config
	logger  *logging.Logger
	request RequestFunc
}

// NewManager creates a Manager using the platform DHCP client.
func NewManager(cfg Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		request: requestDHCP,
	}
}

// SetRequestFunc replaces the DHCP exchange. Intended for tests.
func (m *Manager) SetRequestFunc(fn RequestFunc) {
	m.request = fn
}

// DeriveClientID produces the client identifier for one attempt. A
// fresh identifier per attempt keeps the address server from reusing a
// stale, possibly blacklisted one; the derivation is deterministic so
// the same (seed, interface, ordinal) triple is reproducible.
func DeriveClientID(seed, iface string, ordinal int) []byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s/%s/%d", seed, iface, ordinal))
	// Type 0: non-hardware identifier, followed by 6 derived bytes.
	id := make([]byte, 7)
	id[0] = 0x00
	copy(id[1:], sum[:6])
	return id
}

// Acquire requests an address on iface, retrying up to MaxAttempts with
// a growing, capped delay between attempts. The hint is advisory: a
// grant of a different address is still a success. Total wall-clock
// cost is bounded by MaxAttempts*(Timeout+BackoffMax).
func (m *Manager) Acquire(ctx context.Context, iface string, hwaddr net.HardwareAddr, hint net.IP) Result {
	res := Result{Outcome: OutcomeTimeout}

	for ordinal := 1; ordinal <= m.cfg.MaxAttempts; ordinal++ {
		if ordinal > 1 {
			delay := m.backoff(ordinal)
			m.logger.Debug("Backing off before lease retry",
				"interface", iface, "attempt", ordinal, "delay", delay)
			select {
			case <-ctx.Done():
				return res
			case <-time.After(delay):
			}
		}

		attempt := Attempt{
			Interface: iface,
			Ordinal:   ordinal,
			ClientID:  DeriveClientID(m.cfg.Seed, iface, ordinal),
			Requested: hint,
		}

		start := clock.Now()
		addr, err := m.request(ctx, iface, hwaddr, attempt.ClientID, hint, m.cfg.Timeout)
		switch {
		case err == nil:
			attempt.Granted = addr
			attempt.Outcome = OutcomeGranted
			res.Attempts = append(res.Attempts, attempt)
			res.Address = addr
			res.Outcome = OutcomeGranted
			m.logger.Info("Lease granted",
				"interface", iface, "address", addr.String(), "attempt", ordinal,
				"elapsed", clock.Since(start))
			return res
		case isTimeout(err):
			attempt.Outcome = OutcomeTimeout
		default:
			attempt.Outcome = OutcomeRejected
		}
		attempt.Error = err.Error()
		res.Attempts = append(res.Attempts, attempt)
		res.Outcome = attempt.Outcome

		m.logger.Warn("Lease attempt failed",
			"interface", iface, "attempt", ordinal, "outcome", attempt.Outcome, "error", err)
	}

	return res
}

func (m *Manager) backoff(ordinal int) time.Duration {
	d := m.cfg.Backoff * time.Duration(ordinal-1)
	if d > m.cfg.BackoffMax {
		d = m.cfg.BackoffMax
	}
	return d
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// nclient4 reports exhausted retransmissions as a plain error.
	return strings.Contains(err.Error(), "timed out")
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package lease

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MaxAttempts: 3,
		Timeout:     50 * time.Millisecond,
		Backoff:     time.Millisecond,
		BackoffMax:  3 * time.Millisecond,
		Seed:        "test-seed",
	}
}

type fakeExchange struct {
	calls   []Attempt
	results []func() (net.IP, error)
}

func (f *fakeExchange) fn(_ context.Context, iface string, _ net.HardwareAddr, clientID []byte, hint net.IP, _ time.Duration) (net.IP, error) {
	f.calls = append(f.calls, Attempt{Interface: iface, ClientID: clientID, Requested: hint})
	next := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return next()
}

func granted(ip string) func() (net.IP, error) {
	return func() (net.IP, error) { return net.ParseIP(ip), nil }
}

func failWith(err error) func() (net.IP, error) {
	return func() (net.IP, error) { return nil, err }
}

func TestAcquireFirstAttempt(t *testing.T) {
	fake := &fakeExchange{results: []func() (net.IP, error){granted("192.168.1.77")}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	res := m.Acquire(context.Background(), "eth1", nil, nil)

	if !res.Granted() {
		t.Fatalf("expected grant, got %+v", res)
	}
	if res.Address.String() != "192.168.1.77" {
		t.Errorf("address = %v", res.Address)
	}
	if len(res.Attempts) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(res.Attempts))
	}
}

func TestAcquireRetriesThenSucceeds(t *testing.T) {
	fake := &fakeExchange{results: []func() (net.IP, error){
		failWith(fmt.Errorf("request timed out")),
		granted("10.0.0.5"),
	}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	res := m.Acquire(context.Background(), "eth1", nil, nil)

	if !res.Granted() {
		t.Fatalf("expected grant after retry, got %+v", res)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(res.Attempts))
	}
	if res.Attempts[0].Outcome != OutcomeTimeout {
		t.Errorf("first attempt outcome = %v", res.Attempts[0].Outcome)
	}
}

func TestAcquireNeverExceedsMaxAttempts(t *testing.T) {
	fake := &fakeExchange{results: []func() (net.IP, error){failWith(fmt.Errorf("no offer, timed out"))}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	res := m.Acquire(context.Background(), "eth1", nil, nil)

	if res.Granted() {
		t.Fatal("should not be granted")
	}
	if len(fake.calls) != 3 {
		t.Errorf("expected exactly MaxAttempts=3 exchanges, got %d", len(fake.calls))
	}
	if res.Outcome != OutcomeTimeout {
		t.Errorf("terminal outcome = %v", res.Outcome)
	}
	for i, a := range res.Attempts {
		if a.Ordinal != i+1 {
			t.Errorf("attempt %d has ordinal %d", i, a.Ordinal)
		}
	}
}

func TestAcquireRotatesClientID(t *testing.T) {
	fake := &fakeExchange{results: []func() (net.IP, error){failWith(fmt.Errorf("rejected: NAK"))}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	m.Acquire(context.Background(), "eth1", nil, nil)

	if len(fake.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(fake.calls))
	}
	for i := 0; i < len(fake.calls); i++ {
		for j := i + 1; j < len(fake.calls); j++ {
			if bytes.Equal(fake.calls[i].ClientID, fake.calls[j].ClientID) {
				t.Errorf("attempts %d and %d reused a client identifier", i+1, j+1)
			}
		}
	}
}

func TestDeriveClientIDDeterministic(t *testing.T) {
	a := DeriveClientID("seed", "eth0", 1)
	b := DeriveClientID("seed", "eth0", 1)
	if !bytes.Equal(a, b) {
		t.Error("same inputs must yield the same identifier")
	}
	c := DeriveClientID("seed", "eth0", 2)
	if bytes.Equal(a, c) {
		t.Error("different ordinals must yield different identifiers")
	}
	d := DeriveClientID("seed", "eth1", 1)
	if bytes.Equal(a, d) {
		t.Error("different interfaces must yield different identifiers")
	}
}

func TestAcquireHintIsAdvisory(t *testing.T) {
	hint := net.ParseIP("192.168.1.50")
	// Server ignores the hint and grants something else.
	fake := &fakeExchange{results: []func() (net.IP, error){granted("192.168.1.99")}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	res := m.Acquire(context.Background(), "eth1", nil, hint)

	if !res.Granted() {
		t.Fatal("ignored hint must not fail the acquisition")
	}
	if res.Address.String() != "192.168.1.99" {
		t.Errorf("address = %v", res.Address)
	}
	if !fake.calls[0].Requested.Equal(hint) {
		t.Errorf("hint not passed through: %v", fake.calls[0].Requested)
	}
}

func TestAcquireRejectedOutcome(t *testing.T) {
	fake := &fakeExchange{results: []func() (net.IP, error){failWith(fmt.Errorf("got NAK from server"))}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	res := m.Acquire(context.Background(), "eth1", nil, nil)

	if res.Outcome != OutcomeRejected {
		t.Errorf("expected rejected outcome, got %v", res.Outcome)
	}
}

func TestAcquireHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeExchange{results: []func() (net.IP, error){
		func() (net.IP, error) {
			cancel() // cancel while the first attempt is in flight
			return nil, fmt.Errorf("timed out")
		},
	}}
	m := NewManager(testConfig(), nil)
	m.SetRequestFunc(fake.fn)

	res := m.Acquire(ctx, "eth1", nil, nil)

	if res.Granted() {
		t.Fatal("should not be granted")
	}
	if len(fake.calls) != 1 {
		t.Errorf("cancellation should stop retries, got %d calls", len(fake.calls))
	}
}

func TestBackoffCeiling(t *testing.T) {
	m := NewManager(Config{MaxAttempts: 10, Backoff: 2 * time.Millisecond, BackoffMax: 5 * time.Millisecond}, nil)
	if d := m.backoff(2); d != 2*time.Millisecond {
		t.Errorf("backoff(2) = %v", d)
	}
	if d := m.backoff(3); d != 4*time.Millisecond {
		t.Errorf("backoff(3) = %v", d)
	}
	if d := m.backoff(9); d != 5*time.Millisecond {
		t.Errorf("backoff should be capped at ceiling, got %v", d)
	}
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package probe

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func withStubs(t *testing.T, link func(string) (bool, error), ping func(context.Context, string, string, time.Duration) (time.Duration, error)) {
	t.Helper()
	origLink, origSource, origPing := LinkStateFunc, SourceAddrFunc, PingFunc
	LinkStateFunc = link
	SourceAddrFunc = func(string) (string, error) { return "192.168.1.10", nil }
	PingFunc = ping
	t.Cleanup(func() {
		LinkStateFunc, SourceAddrFunc, PingFunc = origLink, origSource, origPing
	})
}

func TestProbeLinkDownShortCircuits(t *testing.T) {
	pinged := 0
	withStubs(t,
		func(string) (bool, error) { return false, nil },
		func(context.Context, string, string, time.Duration) (time.Duration, error) {
			pinged++
			return 0, nil
		})

	p := New([]string{"1.1.1.1", "8.8.8.8"}, time.Second, nil)
	res := p.Probe(context.Background(), "eth0")

	if res.Up {
		t.Error("down link must report failure")
	}
	if res.LinkUp {
		t.Error("LinkUp should be false")
	}
	if pinged != 0 {
		t.Errorf("no targets should be contacted on link-down, got %d pings", pinged)
	}
}

func TestProbeFirstTargetSuccessStops(t *testing.T) {
	var pinged []string
	withStubs(t,
		func(string) (bool, error) { return true, nil },
		func(_ context.Context, target, _ string, _ time.Duration) (time.Duration, error) {
			pinged = append(pinged, target)
			return 10 * time.Millisecond, nil
		})

	p := New([]string{"1.1.1.1", "8.8.8.8"}, time.Second, nil)
	res := p.Probe(context.Background(), "eth0")

	if !res.Up {
		t.Error("probe should succeed")
	}
	if len(pinged) != 1 || pinged[0] != "1.1.1.1" {
		t.Errorf("probe should stop after first success, pinged %v", pinged)
	}
}

func TestProbeFallsThroughToLaterTargets(t *testing.T) {
	withStubs(t,
		func(string) (bool, error) { return true, nil },
		func(_ context.Context, target, _ string, _ time.Duration) (time.Duration, error) {
			if target == "8.8.8.8" {
				return 20 * time.Millisecond, nil
			}
			return 0, fmt.Errorf("timeout")
		})

	p := New([]string{"1.1.1.1", "8.8.8.8"}, time.Second, nil)
	res := p.Probe(context.Background(), "eth0")

	if !res.Up {
		t.Error("second target should carry the probe")
	}
	if len(res.Targets) != 2 {
		t.Errorf("expected 2 target results, got %d", len(res.Targets))
	}
	if res.Targets[0].Success || !res.Targets[1].Success {
		t.Errorf("unexpected per-target results: %+v", res.Targets)
	}
}

func TestProbeAllTargetsFail(t *testing.T) {
	withStubs(t,
		func(string) (bool, error) { return true, nil },
		func(context.Context, string, string, time.Duration) (time.Duration, error) {
			return 0, fmt.Errorf("unreachable")
		})

	p := New([]string{"1.1.1.1", "8.8.8.8"}, time.Second, nil)
	res := p.Probe(context.Background(), "eth0")

	if res.Up {
		t.Error("probe should fail when every target fails")
	}
	if len(res.Targets) != 2 {
		t.Errorf("all targets should have been tried, got %d", len(res.Targets))
	}
}

func TestProbeNonexistentInterface(t *testing.T) {
	withStubs(t,
		func(string) (bool, error) { return false, nil },
		func(context.Context, string, string, time.Duration) (time.Duration, error) {
			t.Fatal("must not ping")
			return 0, nil
		})

	p := New([]string{"1.1.1.1"}, time.Second, nil)
	res := p.Probe(context.Background(), "does-not-exist")

	if res.Up || res.LinkUp {
		t.Error("nonexistent interface must be a failure result, not a panic")
	}
}

func TestProbeNoSourceAddress(t *testing.T) {
	origSource := SourceAddrFunc
	withStubs(t,
		func(string) (bool, error) { return true, nil },
		func(context.Context, string, string, time.Duration) (time.Duration, error) {
			t.Fatal("must not ping without a source address")
			return 0, nil
		})
	SourceAddrFunc = func(string) (string, error) { return "", fmt.Errorf("no address") }
	t.Cleanup(func() { SourceAddrFunc = origSource })

	p := New([]string{"1.1.1.1"}, time.Second, nil)
	res := p.Probe(context.Background(), "eth0")

	if res.Up {
		t.Error("interface without an address cannot be healthy")
	}
	if !res.LinkUp {
		t.Error("link itself was up")
	}
}

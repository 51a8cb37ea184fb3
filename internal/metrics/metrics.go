// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes uplinkd's Prometheus registry. Metrics only
// observe controller behavior; they never feed interface selection.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the controller updates.
type Metrics struct {
	registry *prometheus.Registry

	ProbeResult         *prometheus.GaugeVec
	ProbeTotal          *prometheus.CounterVec
	SwitchTotal         *prometheus.CounterVec
	LeaseAttemptsTotal  prometheus.Counter
	ConsecutiveFailures prometheus.Gauge
	controllerState     *prometheus.GaugeVec
}

// New builds a self-contained registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProbeResult: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uplinkd_probe_up",
			Help: "Latest probe result per interface (1 = healthy).",
		}, []string{"interface"}),
		ProbeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uplinkd_probe_total",
			Help: "Probe cycles by result.",
		}, []string{"interface", "result"}),
		SwitchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uplinkd_switch_total",
			Help: "Switch operations by trigger and result.",
		}, []string{"trigger", "result"}),
		LeaseAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uplinkd_lease_attempts_total",
			Help: "Individual address lease attempts.",
		}),
		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uplinkd_consecutive_failures",
			Help: "Consecutive failed switch operations.",
		}),
		controllerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uplinkd_controller_state",
			Help: "Current controller state (1 for the active state).",
		}, []string{"state"}),
	}

	m.registry.MustRegister(
		m.ProbeResult,
		m.ProbeTotal,
		m.SwitchTotal,
		m.LeaseAttemptsTotal,
		m.ConsecutiveFailures,
		m.controllerState,
	)
	return m
}

// SetState marks one controller state active and clears the others.
func (m *Metrics) SetState(active string) {
	for _, s := range []string{"stable", "probing", "switching", "degraded"} {
		v := 0.0
		if s == active {
			v = 1.0
		}
		m.controllerState.WithLabelValues(s).Set(v)
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

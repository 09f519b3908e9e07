// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the orchestration core.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
type Metrics struct {
	// RequestsTotal counts provider invocations by provider and trigger.
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures provider invocation latency.
	RequestDurationSeconds *prometheus.HistogramVec

	// TimeoutsTotal counts invocations that exceeded the fixed timeout.
	TimeoutsTotal *prometheus.CounterVec

	// FailuresTotal counts invocations that returned an error.
	FailuresTotal *prometheus.CounterVec

	// StaleDiscardsTotal counts results rejected by the freshest-wins gate.
	StaleDiscardsTotal *prometheus.CounterVec

	// InvalidPayloadsTotal counts payloads dropped by structural validation.
	InvalidPayloadsTotal *prometheus.CounterVec

	// BatchesEmittedTotal counts reconciliation batches pushed to consumers.
	BatchesEmittedTotal prometheus.Counter

	// PassesTotal counts reconciliation passes, including empty ones.
	PassesTotal prometheus.Counter

	// MessagesCurrent is the size of the currently-valid message set.
	MessagesCurrent prometheus.Gauge
}

// NewMetrics creates all orchestration metrics registered with reg.
//
// # Inputs
//
//   - reg: Registry to register with. Nil uses the default registerer
//     (which the /metrics endpoint serves).
//
// # Outputs
//
//   - *Metrics: The created metrics. Never nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Provider invocations by provider and trigger kind",
			},
			[]string{"provider", "trigger"},
		),
		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lintmux",
				Subsystem: "dispatch",
				Name:      "request_duration_seconds",
				Help:      "Provider invocation latency",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"provider"},
		),
		TimeoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "dispatch",
				Name:      "timeouts_total",
				Help:      "Provider invocations that exceeded the fixed timeout",
			},
			[]string{"provider"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "dispatch",
				Name:      "failures_total",
				Help:      "Provider invocations that returned an error",
			},
			[]string{"provider"},
		),
		StaleDiscardsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "dispatch",
				Name:      "stale_discards_total",
				Help:      "Results rejected by the freshest-request-wins gate",
			},
			[]string{"provider"},
		),
		InvalidPayloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "dispatch",
				Name:      "invalid_payloads_total",
				Help:      "Payloads dropped whole by structural validation",
			},
			[]string{"provider"},
		),
		BatchesEmittedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "store",
				Name:      "batches_emitted_total",
				Help:      "Reconciliation batches pushed to consumers",
			},
		),
		PassesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lintmux",
				Subsystem: "store",
				Name:      "passes_total",
				Help:      "Reconciliation passes, including ones that emitted nothing",
			},
		),
		MessagesCurrent: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "lintmux",
				Subsystem: "store",
				Name:      "messages_current",
				Help:      "Size of the currently-valid message set",
			},
		),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide metrics registered with the
// default Prometheus registry. Created on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(nil)
	})
	return defaultMetrics
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridfall/gridfall/internal/authority"
)

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridfall_syscall_executions_total",
			Help: "System call executions by operation and outcome.",
		},
		[]string{"op", "status"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridfall_syscall_duration_seconds",
			Help:    "Wall time per system call including settlement wait.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"op"},
	)

	overridesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridfall_syscall_overrides_in_flight",
			Help: "Speculative overrides currently masking committed values.",
		},
	)
)

// Execution outcome labels.
const (
	statusOK           = "ok"
	statusNoop         = "noop"
	statusRejected     = "rejected"
	statusPrecondition = "precondition"
	statusError        = "error"
)

// RegisterMetrics registers this package's collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{executionsTotal, executionDuration, overridesInFlight} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func recordExecution(op authority.Op, status string, start time.Time) {
	executionsTotal.WithLabelValues(string(op), status).Inc()
	executionDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
}

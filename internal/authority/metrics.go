// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package authority

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridfall_authority_submissions_total",
			Help: "Transactions submitted to the authority, by operation and outcome.",
		},
		[]string{"op", "status"},
	)

	settlementLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridfall_authority_settlement_latency_seconds",
			Help:    "Time from submission to settlement, by operation.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"op"},
	)

	commitsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gridfall_authority_commits_received_total",
			Help: "State-sync commit frames received from the authority.",
		},
	)
)

// RegisterMetrics registers this package's collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{submissionsTotal, settlementLatency, commitsReceived} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func recordSubmission(op Op, status string) {
	submissionsTotal.WithLabelValues(string(op), status).Inc()
}

func recordSettlement(op Op, since time.Time) {
	settlementLatency.WithLabelValues(string(op)).Observe(time.Since(since).Seconds())
}

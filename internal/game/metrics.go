// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package game

import "github.com/prometheus/client_golang/prometheus"

// CommitsApplied counts state-sync commits written to the committed tier.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommitsApplied = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gridfall_commits_applied_total",
		Help: "Total number of authoritative state-sync commits applied",
	},
	[]string{"table"},
)

// RegisterMetrics registers game package metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(CommitsApplied)
}

// RecordCommitApplied increments the applied-commit counter for a table.
func RecordCommitApplied(table string) {
	CommitsApplied.WithLabelValues(table).Inc()
}

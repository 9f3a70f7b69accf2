package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts tracks retry attempts per operation and step
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcvault_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"operation", "step"},
	)

	// ErrorsTotal tracks classified errors per category and severity
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcvault_errors_total",
			Help: "Total number of classified errors",
		},
		[]string{"category", "severity"},
	)

	// RollbackActions tracks compensating actions by outcome
	RollbackActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcvault_rollback_actions_total",
			Help: "Total number of executed rollback actions",
		},
		[]string{"outcome"},
	)

	// OperationDuration tracks end-to-end workflow duration
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idcvault_operation_duration_seconds",
			Help:    "Workflow duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type", "outcome"},
	)

	// RecoveredParts tracks how many resource parts a partial recovery salvaged
	RecoveredParts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "idcvault_recovered_parts",
			Help: "Resource parts salvaged by the last partial recovery",
		},
		[]string{"operation"},
	)

	// SnapshotsStored tracks persisted snapshots by status
	SnapshotsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcvault_snapshots_stored_total",
			Help: "Total number of snapshots persisted",
		},
		[]string{"status"},
	)
)

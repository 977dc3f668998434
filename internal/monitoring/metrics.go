package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for SecurePlay analytics
var (
	// Ingestion pipeline metrics
	EventsAdmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secureplay_events_admitted_total",
			Help: "Events accepted at the ingestion boundary",
		},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureplay_events_rejected_total",
			Help: "Events rejected at the ingestion boundary by reason",
		},
		[]string{"reason"},
	)

	EventsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secureplay_events_written_total",
			Help: "Events durably written to the event store",
		},
	)

	// Background task metrics
	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureplay_tasks_completed_total",
			Help: "Background tasks completed successfully by type",
		},
		[]string{"task_type"},
	)

	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureplay_tasks_failed_total",
			Help: "Background task attempts that returned an error by type",
		},
		[]string{"task_type"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secureplay_task_duration_seconds",
			Help:    "Background task execution time by type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	// Alert engine metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureplay_alerts_fired_total",
			Help: "Alerts created by the alert engine by type and severity",
		},
		[]string{"alert_type", "severity"},
	)

	AlertsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureplay_alerts_deduplicated_total",
			Help: "Alert candidates suppressed by the deduplication window",
		},
		[]string{"alert_type"},
	)

	// Scoring metrics
	ResilienceScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "secureplay_resilience_score",
			Help: "Latest overall resilience score per organization",
		},
		[]string{"organization_id"},
	)

	HighRiskUsers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "secureplay_high_risk_users",
			Help: "Users at HIGH or CRITICAL risk per organization",
		},
		[]string{"organization_id"},
	)

	RiskCalculations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secureplay_risk_calculations_total",
			Help: "Individual user risk score calculations performed",
		},
	)

	// API metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secureplay_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

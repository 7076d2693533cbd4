// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	BloodRequestsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blood_requests_submitted_total",
			Help: "Blood requests submitted, by outcome (ok or error code)",
		},
		[]string{"outcome", "critical"},
	)

	UrgencyScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blood_request_urgency_score",
			Help:    "Distribution of computed urgency scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	AlertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_delivery_attempts_total",
			Help: "Donor alert delivery attempts by template and result",
		},
		[]string{"template", "result"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "alert_dispatch_duration_seconds",
			Help: "Wall time of one broadcast batch",
		},
		[]string{"template"},
	)

	DirectoryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cache_lookups_total",
			Help: "Donor directory cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

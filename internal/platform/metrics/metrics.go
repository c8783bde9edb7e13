// File: internal/platform/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_submissions_total",
			Help: "Listing submissions by outcome",
		},
		[]string{"listing_type", "outcome"},
	)

	SubmissionDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_submission_degraded_total",
			Help: "Submission steps that failed without aborting the submission",
		},
		[]string{"step"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_submission_duration_seconds",
			Help:    "End-to-end submission duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"consistency"},
	)

	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blob_upload_duration_seconds",
			Help:    "Duration of individual blob uploads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "result"},
	)

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Wizard step transitions attempted",
		},
		[]string{"action", "result"},
	)

	DraftAutosaveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_autosave_writes_total",
			Help: "Draft autosave store writes",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

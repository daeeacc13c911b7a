package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	requestsTotal        *prometheus.CounterVec
	latencySeconds       *prometheus.HistogramVec
	uploadsAccepted      *prometheus.CounterVec
	uploadsRejected      *prometheus.CounterVec
	evaluationsTotal     *prometheus.CounterVec
	batchDurationSeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors for the grading
// pipeline and the HTTP surface.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		uploadsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_uploads_accepted_total",
			Help: "Total number of submission documents accepted for processing.",
		}, []string{"status"})

		uploadsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_uploads_rejected_total",
			Help: "Total number of uploaded files rejected during ingestion.",
		}, []string{"reason"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_evaluations_total",
			Help: "Total number of submission evaluations by outcome.",
		}, []string{"outcome"})

		batchDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grader_batch_duration_seconds",
			Help:    "Duration of background batch evaluation runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		})

		prometheus.MustRegister(requestsTotal, latencySeconds, uploadsAccepted, uploadsRejected, evaluationsTotal, batchDurationSeconds)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// UploadsAccepted exposes the counter for accepted submission documents.
func UploadsAccepted() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsAccepted
}

// UploadsRejected exposes the counter for rejected upload files.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejected
}

// EvaluationsTotal exposes the counter for evaluation outcomes.
func EvaluationsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// BatchDuration exposes the histogram for batch evaluation durations.
func BatchDuration() prometheus.Histogram {
	RegisterMetrics()
	return batchDurationSeconds
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120},
		},
		[]string{"method", "path"},
	)

	// Generation metrics
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowchat_generations_total",
			Help: "Finished generations by outcome",
		},
		[]string{"outcome"}, // "completed", "cancelled", "transport", "provider"
	)

	GenerationChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowchat_generation_chunks_total",
			Help: "Total streamed chunks delivered to clients",
		},
	)

	// Queue metrics
	QueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flowchat_queue_length",
			Help: "Tasks waiting in the persistence queue",
		},
	)

	QueueAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowchat_queue_attempts_total",
			Help: "Commit attempts by result",
		},
		[]string{"result"}, // "success" or "failure"
	)

	QueueTasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowchat_queue_tasks_completed_total",
			Help: "Tasks removed from the queue by terminal outcome",
		},
		[]string{"outcome"}, // "success" or "failed"
	)

	// Store metrics
	StoreWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowchat_store_write_failures_total",
			Help: "Durable chat writes that failed and left a chat unsaved",
		},
	)
)

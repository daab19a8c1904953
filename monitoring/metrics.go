// Package monitoring provides metrics and observability for the briefing backend
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	jobTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_job_transitions_total",
			Help: "Total number of processing job status transitions",
		},
		[]string{"kind", "status"},
	)

	jobTransitionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_job_transition_conflicts_total",
			Help: "Total number of compare-and-set transition conflicts",
		},
		[]string{"kind"},
	)

	stageExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "briefing_stage_execution_duration_seconds",
			Help:    "Duration of pipeline stage executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "stage", "outcome"},
	)

	stageRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_stage_retries_total",
			Help: "Total number of stage execution retries",
		},
		[]string{"kind", "stage"},
	)

	schedulerQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "briefing_scheduler_queue_size",
			Help: "Current size of the pipeline job queue",
		},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "briefing_active_workers",
			Help: "Number of active pipeline workers",
		},
	)

	// Event stream metrics
	streamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "briefing_stream_subscribers",
			Help: "Number of live event stream subscriptions",
		},
	)

	streamEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_stream_events_published_total",
			Help: "Total number of events offered to subscribers",
		},
		[]string{"kind"},
	)

	streamEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "briefing_stream_events_dropped_total",
			Help: "Total number of events dropped due to subscriber buffer overflow",
		},
	)

	streamResyncMarkers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "briefing_stream_resync_markers_total",
			Help: "Total number of resync markers sent to degraded subscribers",
		},
	)

	// Archival metrics
	archiveOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_archive_operations_total",
			Help: "Total number of artifact archival operations",
		},
		[]string{"kind", "status"},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "briefing_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)

// RecordTransition records a successful job status transition
func RecordTransition(kind, status string) {
	jobTransitionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordTransitionConflict records a rejected compare-and-set attempt
func RecordTransitionConflict(kind string) {
	jobTransitionConflicts.WithLabelValues(kind).Inc()
}

// RecordStageExecution records the duration and outcome of one stage execution
func RecordStageExecution(kind, stage, outcome string, duration float64) {
	stageExecutionDuration.WithLabelValues(kind, stage, outcome).Observe(duration)
}

// RecordStageRetry records a retried stage execution
func RecordStageRetry(kind, stage string) {
	stageRetriesTotal.WithLabelValues(kind, stage).Inc()
}

// UpdateQueueSize updates the scheduler queue size gauge
func UpdateQueueSize(size int) {
	schedulerQueueSize.Set(float64(size))
}

// UpdateActiveWorkers updates the active workers gauge
func UpdateActiveWorkers(count int) {
	activeWorkers.Set(float64(count))
}

// UpdateStreamSubscribers updates the live subscription gauge
func UpdateStreamSubscribers(count int) {
	streamSubscribers.Set(float64(count))
}

// RecordEventPublished records an event offered to subscribers
func RecordEventPublished(kind string) {
	streamEventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventDropped records an event dropped from a full subscriber buffer
func RecordEventDropped() {
	streamEventsDropped.Inc()
}

// RecordResyncMarker records a resync marker sent to a degraded subscriber
func RecordResyncMarker() {
	streamResyncMarkers.Inc()
}

// RecordArchiveOperation records an artifact archival attempt
func RecordArchiveOperation(kind, status string) {
	archiveOperations.WithLabelValues(kind, status).Inc()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration)
}

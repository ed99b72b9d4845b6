// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Package metrics exposes Prometheus instrumentation for the pipeline.
//
// Collectors are registered with the default registry at package init and
// served by the API at /metrics. Call sites use the Record* helpers rather
// than touching collectors directly so label values stay consistent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer outcomes used as the "outcome" label.
const (
	OutcomeStored       = "stored"
	OutcomeCheckpoint   = "checkpoint"
	OutcomeMalformed    = "malformed"
	OutcomeUnrecognized = "unrecognized"
	OutcomeStoreFailed  = "store_failed"
	OutcomeControl      = "control"
)

var (
	// Ingestion endpoint
	IngestConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "attentive_ingest_connections_active",
			Help: "Number of open ingestion websocket connections",
		},
	)

	IngestConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attentive_ingest_connections_total",
			Help: "Total ingestion websocket connections accepted",
		},
	)

	IngestFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_ingest_frames_total",
			Help: "Ingestion frames by event type",
		},
		[]string{"event_type"}, // data, SESSION_END, other
	)

	IngestDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attentive_ingest_decode_failures_total",
			Help: "Inbound messages that could not be decoded",
		},
	)

	IngestComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attentive_ingest_compute_duration_seconds",
			Help:    "Time spent computing attention metrics for one frame",
			Buckets: []float64{0.000005, 0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001},
		},
	)

	IngestForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_ingest_forwarded_total",
			Help: "Frames forwarded to the relay by result",
		},
		[]string{"result"}, // ok, error
	)

	// Relay
	RelayPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_relay_published_total",
			Help: "Messages published to the relay by result",
		},
		[]string{"result"},
	)

	RelayConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_relay_connect_attempts_total",
			Help: "Relay connection attempts by result",
		},
		[]string{"result"},
	)

	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attentive_connection_state",
			Help: "Dependency connection state (0=disconnected, 1=connecting, 2=connected)",
		},
		[]string{"dependency"}, // relay, store
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attentive_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Persistence consumer
	ConsumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_consumer_messages_total",
			Help: "Relay messages handled by the persistence consumer by outcome",
		},
		[]string{"outcome"},
	)

	ConsumerCheckpointLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attentive_consumer_checkpoint_lag_seconds",
			Help:    "Delay between a SESSION_END timestamp and its observation by the consumer",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	StoreWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attentive_store_write_duration_seconds",
			Help:    "Duration of durable store event inserts",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Reports
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attentive_reports_total",
			Help: "Report generations by final status",
		},
		[]string{"status"},
	)

	ReportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attentive_report_duration_seconds",
			Help:    "Report generation duration",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// HTTP API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attentive_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordIngestConnectionOpened increments the active and total connection counts.
func RecordIngestConnectionOpened() {
	IngestConnectionsActive.Inc()
	IngestConnectionsTotal.Inc()
}

// RecordIngestConnectionClosed decrements the active connection gauge.
func RecordIngestConnectionClosed() {
	IngestConnectionsActive.Dec()
}

// RecordIngestFrame counts a decoded frame by its event type.
func RecordIngestFrame(eventType string) {
	switch eventType {
	case "data", "SESSION_END":
	default:
		eventType = "other"
	}
	IngestFrames.WithLabelValues(eventType).Inc()
}

// RecordIngestDecodeFailure counts an undecodable inbound message.
func RecordIngestDecodeFailure() {
	IngestDecodeFailures.Inc()
}

// RecordIngestCompute observes metric computation time.
func RecordIngestCompute(d time.Duration) {
	IngestComputeDuration.Observe(d.Seconds())
}

// RecordIngestForward counts a forward attempt.
func RecordIngestForward(err error) {
	IngestForwarded.WithLabelValues(resultLabel(err)).Inc()
}

// RecordRelayPublish counts a relay publish attempt.
func RecordRelayPublish(err error) {
	RelayPublished.WithLabelValues(resultLabel(err)).Inc()
}

// RecordRelayConnectAttempt counts a relay connect attempt.
func RecordRelayConnectAttempt(err error) {
	RelayConnectAttempts.WithLabelValues(resultLabel(err)).Inc()
}

// RecordConnectionState sets the state gauge for a dependency.
func RecordConnectionState(dependency string, state int) {
	ConnectionState.WithLabelValues(dependency).Set(float64(state))
}

// RecordCircuitBreakerTransition updates breaker state and counts the transition.
func RecordCircuitBreakerTransition(name, from, to string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordConsumerMessage counts a consumer outcome (see Outcome* constants).
func RecordConsumerMessage(outcome string) {
	ConsumerMessages.WithLabelValues(outcome).Inc()
}

// RecordCheckpointLag observes SESSION_END observation lag. Negative lag
// (client clock ahead of ours) is recorded as zero.
func RecordCheckpointLag(lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	ConsumerCheckpointLag.Observe(lag.Seconds())
}

// RecordStoreWrite observes one insert.
func RecordStoreWrite(d time.Duration) {
	StoreWriteDuration.Observe(d.Seconds())
}

// RecordReport counts a finished report generation.
func RecordReport(status string, d time.Duration) {
	ReportsGenerated.WithLabelValues(status).Inc()
	ReportDuration.Observe(d.Seconds())
}

// RecordAPIRequest observes one HTTP request.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package metrics holds the Prometheus instruments of the messaging service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_db_query_duration_seconds",
			Help:    "Duration of Postgres queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_db_query_errors_total",
			Help: "Total number of failed Postgres queries",
		},
		[]string{"operation"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// WebSocket Metrics
	WSHandshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_handshakes_total",
			Help: "WebSocket handshakes by outcome",
		},
		[]string{"outcome"}, // accepted, cors_rejected, auth_rejected
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of open WebSocket connections",
		},
	)

	WSOnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_online_users",
			Help: "Number of users with at least one live socket",
		},
	)

	WSEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_received_total",
			Help: "Client events received by type",
		},
		[]string{"event"},
	)

	// Dispatch Metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages persisted and dispatched by kind",
		},
		[]string{"kind"}, // private, group
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "send_message events rejected before persistence",
		},
		[]string{"reason"}, // validation, not_member, rate_limited, store_error
	)

	FanoutDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_deliveries_total",
			Help: "Per-recipient fan-out outcomes",
		},
		[]string{"path", "outcome"}, // path: live, queued; outcome: ok, error
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_dispatch_duration_seconds",
			Help:    "Time from send_message to sender acknowledgment",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Offline Queue Metrics
	QueueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_queue_operations_total",
			Help: "Offline queue operations by outcome",
		},
		[]string{"operation", "outcome"}, // enqueue/drain, ok/error/unavailable
	)

	QueueDrainedEnvelopes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_queue_drained_envelopes_total",
			Help: "Envelopes replayed to reconnecting users",
		},
	)

	QueueDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_queue_degraded",
			Help: "1 while the offline queue is unavailable (live-only delivery)",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_bus_published_total",
			Help: "Events published to the bus by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	NotificationsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_relayed_total",
			Help: "Notifications relayed to users by path",
		},
		[]string{"path"}, // live, queued, dropped
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Group role authorization decisions",
		},
		[]string{"action", "decision"}, // decision: allow, deny
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordHandshake counts a WebSocket handshake outcome.
func RecordHandshake(outcome string) {
	WSHandshakes.WithLabelValues(outcome).Inc()
}

// RecordFanout counts one recipient delivery attempt.
func RecordFanout(path string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	FanoutDeliveries.WithLabelValues(path, outcome).Inc()
}

// RecordQueueOperation counts an offline queue call. unavailable marks
// calls that failed because Redis could not be reached.
func RecordQueueOperation(operation string, err error, unavailable bool) {
	outcome := "ok"
	switch {
	case unavailable:
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	QueueOperations.WithLabelValues(operation, outcome).Inc()
}

// SetQueueDegraded flips the degraded-mode gauge.
func SetQueueDegraded(degraded bool) {
	if degraded {
		QueueDegraded.Set(1)
		return
	}
	QueueDegraded.Set(0)
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package metrics provides Prometheus metrics for the messaging service.

Metrics are registered with promauto on the default registry and exposed at
/metrics in Prometheus text format:

	curl http://localhost:3000/metrics

# Available Metrics

Database:
  - chat_db_query_duration_seconds (histogram), labels: operation
  - chat_db_query_errors_total (counter), labels: operation

REST API:
  - api_requests_total (counter), labels: method, endpoint, status_code
  - api_request_duration_seconds (histogram), labels: method, endpoint
  - api_active_requests (gauge)

WebSocket:
  - websocket_handshakes_total (counter), labels: outcome
    (accepted, cors_rejected, auth_rejected)
  - websocket_connections_active (gauge)
  - websocket_online_users (gauge)
  - websocket_events_received_total (counter), labels: event

Dispatch:
  - chat_messages_sent_total (counter), labels: kind (private, group)
  - chat_messages_rejected_total (counter), labels: reason
  - chat_fanout_deliveries_total (counter), labels: path (live, queued), outcome
  - chat_dispatch_duration_seconds (histogram)

Offline queue:
  - offline_queue_operations_total (counter), labels: operation, outcome
    (ok, error, unavailable)
  - offline_queue_drained_envelopes_total (counter)
  - offline_queue_degraded (gauge): 1 while Redis is unreachable

Events and authorization:
  - event_bus_published_total (counter), labels: topic, outcome
  - notifications_relayed_total (counter), labels: path (live, queued, dropped)
  - authz_decisions_total (counter), labels: action, decision

# Usage

	start := time.Now()
	err := doQuery()
	metrics.RecordDBQuery("insert_private_message", time.Since(start), err)

	var unavailable *queue.QueueUnavailableError
	metrics.RecordQueueOperation("enqueue", err, errors.As(err, &unavailable))

# Testing

Use prometheus testutil to read counters before and after the code under test:

	before := testutil.ToFloat64(metrics.QueueDrainedEnvelopes)
*/
package metrics

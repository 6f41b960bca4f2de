// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package services adapts long-running components to suture.Service.

	type Service interface {
	    Serve(ctx context.Context) error
	}

Available services:

  - HTTPServerService: *http.Server with graceful shutdown
  - WebSocketHubService: the socket hub; clients close on shutdown
  - QueueMonitorService: periodic offline queue check feeding the
    offline_queue_degraded gauge

The notification relay (events.Relay) implements suture.Service itself and
is added to the tree directly.

Every service returns ctx.Err() on a requested stop and a wrapped error on
failure, which suture counts toward its restart backoff.
*/
package services

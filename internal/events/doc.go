// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package events carries notifications and chat message events over a
// Watermill bus.
//
// The transport is chosen from configuration:
//
//   - events.nats_url set: core NATS through watermill-nats
//   - events.embedded_nats: an in-process nats-server, then core NATS
//   - neither: an in-process gochannel pub/sub
//
// Other services publish notifications to the notifications topic. The
// Relay delivers each one to the addressed user's live sockets or, when the
// user is offline, to the offline queue so it replays on reconnect. The
// dispatcher publishes every persisted message to the messages topic.
package events

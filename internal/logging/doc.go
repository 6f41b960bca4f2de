// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package logging provides centralized zerolog-based structured logging for Assist Move.
//
// # Overview
//
// The package provides:
//   - Structured JSON logging for production and console output for development
//   - Context-aware logging carrying request, correlation and socket IDs
//   - An slog adapter for the suture supervisor tree
//   - A Watermill logger adapter for the event bus
//   - A security logger for handshake and token decisions with masked values
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Int64("user_id", 7).Str("room", "group:10").Msg("Joined room")
//	logging.Error().Err(err).Int64("message_id", id).Msg("Enqueue failed")
//
//	// Context-aware logging
//	logging.Ctx(ctx).Warn().Msg("Offline queue unavailable")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Context Fields
//
// Ctx adds request_id, correlation_id and socket_id when present:
//
//	ctx = logging.ContextWithSocketID(ctx, client.ID())
//	logging.Ctx(ctx).Debug().Str("event", "send_message").Msg("Socket event")
//
// # Adapters
//
//	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg)
//	ch := gochannel.NewGoChannel(gochannel.Config{}, logging.NewEventLogger())
//
// # Security Logging
//
// Admission decisions go through SecurityLogger so emails, tokens and
// client-supplied headers are masked or bounded:
//
//	audit := logging.NewSecurityLogger()
//	audit.LogHandshakeRejected("cors", origin, r.RemoteAddr, r.UserAgent(), err.Error())
//
// # Output Formats
//
// JSON Format (Production):
//
//	{"level":"info","time":"2026-01-02T10:30:00Z","message":"Server starting","port":3000}
//
// Console Format (Development):
//
//	10:30:00 INF Server starting port=3000
//
// # Testing
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//
// All exported functions are safe for concurrent use.
package logging

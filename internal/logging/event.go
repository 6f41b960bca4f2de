// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// EventLogger adapts zerolog to watermill.LoggerAdapter so the event bus
// logs through the same pipeline as the rest of the service.
type EventLogger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = (*EventLogger)(nil)

// NewEventLogger creates an EventLogger from the global logger.
func NewEventLogger() *EventLogger {
	return &EventLogger{logger: WithComponent("events")}
}

// NewEventLoggerWithLogger creates an EventLogger from a specific logger.
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

func (e *EventLogger) Error(msg string, err error, fields watermill.LogFields) {
	e.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (e *EventLogger) Info(msg string, fields watermill.LogFields) {
	e.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (e *EventLogger) Debug(msg string, fields watermill.LogFields) {
	e.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Trace maps to zerolog's trace level, which is below debug.
func (e *EventLogger) Trace(msg string, fields watermill.LogFields) {
	e.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

// With returns a logger carrying fields on every entry.
func (e *EventLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &EventLogger{logger: e.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// Security event names.
const (
	EventHandshakeAccepted = "handshake_accepted"
	EventHandshakeRejected = "handshake_rejected"
	EventTokenRejected     = "token_rejected"
)

// SecurityEvent is an authentication or admission decision for audit logging.
type SecurityEvent struct {
	// Event is one of the Event* constants.
	Event string
	// Transport is "websocket" or "rest".
	Transport string
	// UserID is the authenticated user, zero when unknown.
	UserID int64
	// Email is the authenticated user's email (masked when logged).
	Email string
	// Origin is the request Origin header.
	Origin string
	// IPAddress is the client address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Reason is a short machine-readable rejection cause.
	Reason string
	// Success indicates if the request was admitted.
	Success bool
	// Error is the error message if the request was rejected.
	Error string
	// Details contains additional values, sanitized by key.
	Details map[string]string
}

// SecurityLogger logs admission decisions with sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: WithComponent("security"),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent logs a security event. Rejections log at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Info().Str("status", "success")
	} else {
		e = l.logger.Warn().Str("status", "failed")
	}
	e = e.Str("event", event.Event)

	if event.Transport != "" {
		e = e.Str("transport", event.Transport)
	}
	if event.UserID != 0 {
		e = e.Int64("user_id", event.UserID)
	}
	if event.Email != "" {
		e = e.Str("email", SanitizeEmail(event.Email))
	}
	if event.Origin != "" {
		e = e.Str("origin", SanitizeHeader(event.Origin))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(SanitizeHeader(event.UserAgent), 100))
	}
	if event.Reason != "" {
		e = e.Str("reason", event.Reason)
	}
	if event.Error != "" {
		e = e.Str("error", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("Security event")
}

// LogHandshakeAccepted records an admitted WebSocket handshake.
func (l *SecurityLogger) LogHandshakeAccepted(userID int64, email, origin, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventHandshakeAccepted,
		Transport: "websocket",
		UserID:    userID,
		Email:     email,
		Origin:    origin,
		IPAddress: ip,
		Success:   true,
	})
}

// LogHandshakeRejected records a refused WebSocket handshake.
func (l *SecurityLogger) LogHandshakeRejected(reason, origin, ip, userAgent, errMsg string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventHandshakeRejected,
		Transport: "websocket",
		Origin:    origin,
		IPAddress: ip,
		UserAgent: userAgent,
		Reason:    reason,
		Error:     errMsg,
	})
}

// LogTokenRejected records a REST request refused for its bearer token.
func (l *SecurityLogger) LogTokenRejected(path, ip, errMsg string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventTokenRejected,
		Transport: "rest",
		IPAddress: ip,
		Error:     errMsg,
		Details:   map[string]string{"path": path},
	})
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail masks an email address.
// Example: "ana.souza@example.com" -> "an***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}

	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return "***"
	}

	localPart := email[:atIndex]
	domain := email[atIndex:]

	if len(localPart) <= 2 {
		return "***" + domain
	}
	return localPart[:2] + "***" + domain
}

// SanitizeError replaces messages that may echo a credential with a
// generic text and truncates the rest.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"bearer",
		"authorization",
		"cookie",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}

	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	sensitiveKeys := map[string]bool{
		"access_token":  true,
		"token":         true,
		"password":      true,
		"secret":        true,
		"jwt_secret":    true,
		"authorization": true,
		"bearer":        true,
		"cookie":        true,
	}

	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}

	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}

	return SanitizeHeader(value)
}

// SanitizeHeader strips control characters from a client-supplied header
// value and bounds its length.
func SanitizeHeader(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return truncateString(s, 200)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...(truncated)"
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package config

import (
	"fmt"
	"strings"
	"time"
)

// minJWTSecretLength applies in production only.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateWebSocket(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" && c.IsProduction() {
			return fmt.Errorf("CORS_ORIGIN=* is not allowed in production")
		}
		if origin == "*" {
			continue
		}
		if err := validateOriginURL(origin); err != nil {
			return err
		}
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	if !strings.HasPrefix(c.WebSocket.Path, "/") {
		return fmt.Errorf("WS_PATH must start with '/', got %q", c.WebSocket.Path)
	}
	if c.WebSocket.SendRate > 0 && c.WebSocket.SendBurst < 1 {
		return fmt.Errorf("WS_SEND_BURST must be at least 1 when WS_SEND_RATE is set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if !c.QueueEnabled() {
		return nil
	}
	if err := validateRedisURL(c.Redis.URL); err != nil {
		return err
	}
	if c.Queue.KeyPrefix == "" {
		return fmt.Errorf("QUEUE_KEY_PREFIX must not be empty")
	}
	if c.Queue.InboxPrefix == c.Queue.KeyPrefix {
		return fmt.Errorf("QUEUE_INBOX_PREFIX must differ from QUEUE_KEY_PREFIX")
	}
	if c.Queue.TTL < time.Minute {
		return fmt.Errorf("QUEUE_TTL must be at least 1m, got %s", c.Queue.TTL)
	}
	if c.Queue.MaxLength < 1 {
		return fmt.Errorf("QUEUE_MAX_LENGTH must be at least 1")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.NATSURL != "" && c.Events.EmbeddedNATS {
		return fmt.Errorf("NATS_URL and NATS_EMBEDDED are mutually exclusive")
	}
	if c.Events.NATSURL != "" {
		if err := validateNATSURL(c.Events.NATSURL); err != nil {
			return err
		}
	}
	if c.Events.NotificationsTopic == "" || c.Events.MessagesTopic == "" {
		return fmt.Errorf("event topics must not be empty")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console; got %q", c.Logging.Format)
	}
	return nil
}

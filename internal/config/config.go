// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package config loads the messaging service configuration.
//
// Configuration is layered with koanf: built-in defaults, then an optional
// YAML file (CONFIG_PATH or ./config.yaml), then environment variables. See
// LoadWithKoanf for the precedence rules and envTransformFunc for the
// recognised variable names.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Redis     RedisConfig     `koanf:"redis"`
	Queue     QueueConfig     `koanf:"queue"`
	Database  DatabaseConfig  `koanf:"database"`
	Events    EventsConfig    `koanf:"events"`
	Authz     AuthzConfig     `koanf:"authz"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// SecurityConfig holds token verification and origin policy.
//
// Environment Variables:
//   - JWT_SECRET: HS256 signing secret shared with the login service (required)
//   - CORS_ORIGIN / CORS_ORIGINS: comma-separated allow-list
//   - RATE_LIMIT_REQS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT: REST rate limiting
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// WebSocketConfig holds socket endpoint settings.
type WebSocketConfig struct {
	// Path is where the upgrade handler is mounted.
	Path string `koanf:"path"`

	// SendRate and SendBurst bound send_message events per socket.
	// SendRate <= 0 disables the limiter.
	SendRate  float64 `koanf:"send_rate"`
	SendBurst int     `koanf:"send_burst"`
}

// RedisConfig holds offline queue connection settings. An empty URL runs
// the service in live-only mode.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// QueueConfig bounds each user's offline queue.
type QueueConfig struct {
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
	MaxLength int64         `koanf:"max_length"`

	// InboxPrefix keys the unread notification lists.
	InboxPrefix string `koanf:"inbox_prefix"`

	// Circuit breaker around Redis calls.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MaxConns       int32  `koanf:"max_conns"`
	MigrateOnStart bool   `koanf:"migrate_on_start"`
}

// EventsConfig selects the notification bus transport.
//
// With NATSURL empty and EmbeddedNATS false the bus is in-process.
type EventsConfig struct {
	NATSURL      string `koanf:"nats_url"`
	EmbeddedNATS bool   `koanf:"embedded_nats"`
	EmbeddedPort int    `koanf:"embedded_port"`

	NotificationsTopic string `koanf:"notifications_topic"`
	MessagesTopic      string `koanf:"messages_topic"`
}

// AuthzConfig holds group role policy settings.
type AuthzConfig struct {
	// PolicyPath is a casbin CSV policy replacing the built-in role policy.
	PolicyPath string `koanf:"policy_path"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// QueueEnabled reports whether an offline queue backend is configured.
func (c *Config) QueueEnabled() bool {
	return c.Redis.URL != ""
}

// IsProduction reports whether the service runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration using the koanf layering.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

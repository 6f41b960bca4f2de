// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package config loads and validates the service configuration.

# Configuration Sources

Sources are layered with koanf v2, highest priority last:

 1. Built-in defaults (defaultConfig)
 2. YAML file: $CONFIG_PATH, ./config.yaml, /etc/assistmove/config.yaml
 3. Environment variables (see envMappings)

Comma-separated values such as CORS_ORIGIN are split into lists.

# Environment Variables

Server:
  - HTTP_PORT / PORT: listen port (default: 3000)
  - HTTP_HOST: bind address (default: 0.0.0.0)
  - SHUTDOWN_TIMEOUT: graceful shutdown bound (default: 10s)
  - ENVIRONMENT / NODE_ENV: "production" enables strict checks

Security:
  - JWT_SECRET: HMAC secret shared with the login service (required)
  - CORS_ORIGIN / CORS_ORIGINS: allowed browser origins for REST and sockets
  - RATE_LIMIT_REQS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Sockets:
  - WS_PATH: upgrade path (default: /ws)
  - WS_SEND_RATE, WS_SEND_BURST: per-socket send_message limiter

Offline queue:
  - REDIS_URL: empty runs live-only (degraded) delivery
  - QUEUE_KEY_PREFIX (default: queue:), QUEUE_TTL (default: 168h),
    QUEUE_MAX_LENGTH (default: 500)
  - QUEUE_BREAKER_FAILURES, QUEUE_BREAKER_TIMEOUT

Storage:
  - DATABASE_URL: PostgreSQL connection string (required)
  - DB_MAX_CONNS, MIGRATE_ON_START

Events:
  - NATS_URL: external NATS server; NATS_EMBEDDED runs one in-process
  - NOTIFICATIONS_TOPIC, CHAT_MESSAGES_TOPIC

Authorization:
  - AUTHZ_POLICY_PATH: casbin CSV policy replacing the built-in group roles

Logging:
  - LOG_LEVEL, LOG_FORMAT (json, console), LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("invalid configuration")
	}

Load validates the result; Validate reports the first problem with the
environment variable name that controls it.
*/
package config

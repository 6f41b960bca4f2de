// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package main is the Assist Move messaging server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, optional YAML file, environment)
//  2. Logging (zerolog)
//  3. PostgreSQL store and schema migrations
//  4. Offline queue (Redis, or a no-op queue when unconfigured)
//  5. Presence registry and WebSocket hub
//  6. Group role enforcer, conversation service, event bus
//  7. Dispatcher, notification relay, connection gate
//  8. HTTP router and server
//  9. Supervisor tree (suture), until SIGINT or SIGTERM
//
// Supervisor layout:
//
//	assistmove
//	├── data-layer       queue-monitor
//	├── messaging-layer  websocket-hub, notification-relay
//	└── api-layer        http-server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/assistmove/internal/api"
	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/authz"
	"github.com/tomtom215/assistmove/internal/config"
	"github.com/tomtom215/assistmove/internal/conversation"
	"github.com/tomtom215/assistmove/internal/dispatcher"
	"github.com/tomtom215/assistmove/internal/events"
	"github.com/tomtom215/assistmove/internal/gate"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/presence"
	"github.com/tomtom215/assistmove/internal/queue"
	"github.com/tomtom215/assistmove/internal/store"
	"github.com/tomtom215/assistmove/internal/supervisor"
	"github.com/tomtom215/assistmove/internal/supervisor/services"
	ws "github.com/tomtom215/assistmove/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting Assist Move with supervisor tree")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := openStore(ctx, cfg)
	defer st.Close()

	q := openQueue(ctx, cfg)
	defer func() {
		if err := q.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close offline queue")
		}
	}()

	registry := presence.NewMemory(st)
	hub := ws.NewHub(registry)
	registry.OnStatusChange(hub.BroadcastUserStatus)

	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{PolicyPath: cfg.Authz.PolicyPath})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize group role enforcer")
	}

	bus, err := events.NewBus(&cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close event bus")
		}
	}()
	logging.Info().Str("transport", bus.Transport()).Msg("Event bus ready")

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	handler := api.NewHandler(api.Deps{
		Config:       cfg,
		Conversation: conversation.NewService(st, enforcer),
		Dispatcher:   dispatcher.New(st, registry, hub, q, bus),
		Gate:         gate.New(cfg.Security.CORSOrigins, jwtManager),
		Hub:          hub,
		Presence:     registry,
		Queue:        q,
		Inbox:        q,
		DB:           st,
		Bus:          bus,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, jwtManager).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if redisQueue, ok := q.(*queue.Redis); ok {
		tree.AddDataService(services.NewQueueMonitorService(redisQueue, 0))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(events.NewRelay(bus, hub, q))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// openStore connects to PostgreSQL and applies migrations when enabled.
func openStore(ctx context.Context, cfg *config.Config) *store.Store {
	st, err := store.New(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if cfg.Database.MigrateOnStart {
		result, err := st.Migrate()
		if err != nil {
			st.Close()
			logging.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
		logging.Info().
			Uint("version", result.Version).
			Bool("changed", result.Changed).
			Msg("Database schema up to date")
	}
	return st
}

// openQueue returns the Redis offline queue and notification inbox, or a
// no-op backend when Redis is not configured. A Redis that is unreachable at
// startup is not fatal: the server runs degraded and the queue monitor
// reports recovery.
func openQueue(ctx context.Context, cfg *config.Config) queue.Backend {
	if !cfg.QueueEnabled() {
		logging.Warn().Msg("Redis not configured, offline delivery disabled")
		return queue.NewNoop()
	}

	q, err := queue.NewRedis(ctx, &cfg.Redis, &cfg.Queue)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize offline queue")
	}
	return q
}

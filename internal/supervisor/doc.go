// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package supervisor runs the long-lived services of the process under a
suture v4 tree with restart backoff and bounded graceful shutdown.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewQueueMonitorService(redisQueue, 15*time.Second))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(relay)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("supervisor stopped")
	}

Supervisor events (service failures, restarts, backoff) go to zerolog via
the slog adapter in internal/logging.
*/
package supervisor

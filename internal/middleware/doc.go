// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package middleware provides the HTTP middleware shared by the REST routes
and the WebSocket endpoint.

Key Components:

  - RequestID: X-Request-ID propagation and logging context seeding
  - PrometheusMetrics: request count, latency and in-flight instrumentation

Both are chi-compatible func(http.Handler) http.Handler constructors:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Group(func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Get("/api/mensagens/usuarios", h.Users)
	})

Metrics are labeled with the chi route pattern (/api/grupos/{id}/membros)
rather than the raw path, so ids never reach label values.

See Also:

  - internal/auth: bearer authentication middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware

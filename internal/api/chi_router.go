// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/middleware"
)

// DefaultWebSocketPath is used when the configuration leaves it empty.
const DefaultWebSocketPath = "/ws"

// Router builds the chi route tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          *auth.Middleware
}

// NewRouter creates a Router. CORS and rate limiting for the REST routes
// come from the security configuration.
func NewRouter(handler *Handler, validator auth.TokenValidator) *Router {
	cfg := DefaultChiMiddlewareConfig()
	if handler.config != nil {
		sec := handler.config.Security
		cfg.CORSAllowedOrigins = sec.CORSOrigins
		cfg.RateLimitDisabled = sec.RateLimitDisabled
		if sec.RateLimitReqs > 0 {
			cfg.RateLimitRequests = sec.RateLimitReqs
		}
		if sec.RateLimitWindow > 0 {
			cfg.RateLimitWindow = sec.RateLimitWindow
		}
	}

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(cfg),
		auth:          auth.NewMiddleware(validator, respondAuthFailure),
	}
}

// Setup returns the HTTP handler serving every route.
//
//	GET   /health                            liveness with dependency states
//	GET   /health/live                       bare liveness
//	GET   /metrics                           Prometheus exposition
//	GET   /swagger/*                         API explorer, document at /swagger/doc.json
//	GET   {websocket.path}                   socket handshake (gate: origin, token)
//	GET   /api/mensagens/usuarios            user directory
//	GET   /api/mensagens/conversas           latest private messages
//	GET   /api/mensagens/conversa/{otherUserId}
//	PATCH /api/mensagens/{id}/lida
//	GET   /api/grupos
//	POST  /api/grupos
//	GET   /api/grupos/{id}/membros
//	POST  /api/grupos/{id}/membros
//	GET   /api/grupos/{id}/mensagens
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// The gate answers CORS and auth failures itself with connect_error.
	r.Get(router.websocketPath(), h.WebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.CORS())
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.auth.Authenticate)

		r.Route("/mensagens", func(r chi.Router) {
			r.Get("/usuarios", h.Users)
			r.Get("/conversas", h.Conversations)
			r.Get("/conversa/{otherUserId}", h.Conversation)
			r.Patch("/{id}/lida", h.MarkRead)
		})

		r.Route("/grupos", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/{id}/membros", h.ListMembers)
			r.Post("/{id}/membros", h.AddMember)
			r.Get("/{id}/mensagens", h.GroupMessages)
		})
	})

	return r
}

func (router *Router) websocketPath() string {
	if cfg := router.handler.config; cfg != nil && cfg.WebSocket.Path != "" {
		return cfg.WebSocket.Path
	}
	return DefaultWebSocketPath
}

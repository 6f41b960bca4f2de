// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/assistmove/internal/config"
	"github.com/tomtom215/assistmove/internal/conversation"
	"github.com/tomtom215/assistmove/internal/dispatcher"
	"github.com/tomtom215/assistmove/internal/events"
	"github.com/tomtom215/assistmove/internal/gate"
	"github.com/tomtom215/assistmove/internal/presence"
	"github.com/tomtom215/assistmove/internal/queue"
	ws "github.com/tomtom215/assistmove/internal/websocket"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer. Inbox, DB and Bus are
// optional.
type Deps struct {
	Config       *config.Config
	Conversation *conversation.Service
	Dispatcher   *dispatcher.Dispatcher
	Gate         *gate.Gate
	Hub          *ws.Hub
	Presence     presence.Registry
	Queue        queue.Queue
	Inbox        queue.Inbox
	DB           Pinger
	Bus          *events.Bus
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: /health
//   - handlers_messages.go: /api/mensagens
//   - handlers_groups.go: /api/grupos
//   - handlers_ws.go: WebSocket upgrade
//   - socket_handler.go: socket event routing
type Handler struct {
	config       *config.Config
	conversation *conversation.Service
	dispatcher   *dispatcher.Dispatcher
	gate         *gate.Gate
	hub          *ws.Hub
	presence     presence.Registry
	queue        queue.Queue
	inbox        queue.Inbox
	db           Pinger
	bus          *events.Bus
	upgrader     websocket.Upgrader
	startTime    time.Time
}

// NewHandler creates the API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		config:       d.Config,
		conversation: d.Conversation,
		dispatcher:   d.Dispatcher,
		gate:         d.Gate,
		hub:          d.Hub,
		presence:     d.Presence,
		queue:        d.Queue,
		inbox:        d.Inbox,
		db:           d.DB,
		bus:          d.Bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{"bearer"},
			// The gate has already checked the origin before Upgrade runs.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
}

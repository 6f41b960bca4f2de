// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
	"github.com/tomtom215/assistmove/internal/presence"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Event names.
const (
	EventJoinGroups       = "join_groups"
	EventSendMessage      = "send_message"
	EventReadMessage      = "read_message"
	EventTyping           = "typing"
	EventNotificationRead = "notification:read"
	EventPing             = "ping"
	EventPong             = "pong"
	EventMessageSent      = "message_sent"
	EventNewMessage       = "new_message"
	EventMessageError     = "message_error"
	EventJoinedGroups     = "joined_groups"
	EventMessageRead      = "message_read"
	EventUserStatus       = "user_status"
	EventUserTyping       = "user_typing"
	EventNotification     = "notification"
	EventConnectError     = "connect_error"
)

var (
	// ErrSocketNotFound is returned when emitting to a socket that left.
	ErrSocketNotFound = errors.New("socket not connected")

	// ErrSendBufferFull is returned when a slow socket cannot take more frames.
	ErrSendBufferFull = errors.New("socket send buffer full")
)

// Message is an outbound frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound is a frame read from a client. Data stays raw until the handler
// decodes it for the specific event.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub maintains the set of active clients and routes events to them.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once
	presence   presence.Registry
	mu         sync.RWMutex
}

// NewHub creates a Hub that keeps registry in step with its clients.
func NewHub(registry presence.Registry) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		presence:   registry,
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Shutdown is checked first, then client lifecycle events, then broadcasts,
// so client state is consistent before any broadcast is delivered.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.RegisterConnection(client.UserID(), client.id)
	}
	metrics.WSConnections.Inc()
	client.markRegistered()

	logging.Info().
		Str("socket_id", client.id).
		Int64("user_id", client.UserID()).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	total := len(h.clients)
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.UnregisterConnection(client.UserID(), client.id)
	}
	metrics.WSConnections.Dec()

	logging.Info().
		Str("socket_id", client.id).
		Int64("user_id", client.UserID()).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients must be called with mu held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].seq < clients[j].seq
	})
	return clients
}

// broadcastToClients delivers in connection order and drops clients whose
// buffer is full.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	var dropped []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
		default:
			dropped = append(dropped, client)
		}
	}
	for _, client := range dropped {
		close(client.send)
		delete(h.clients, client.id)
	}
	h.mu.Unlock()

	for _, client := range dropped {
		if h.presence != nil {
			h.presence.UnregisterConnection(client.UserID(), client.id)
		}
		metrics.WSConnections.Dec()
		logging.Warn().Str("socket_id", client.id).Msg("dropping slow websocket client")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := h.sortedClients()
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client.id)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if h.presence != nil {
			h.presence.UnregisterConnection(client.UserID(), client.id)
		}
		metrics.WSConnections.Dec()
	}
	logging.Info().Int("clients", len(clients)).Msg("closed all websocket clients during shutdown")
}

// EmitToSocket queues one event for a single socket.
func (h *Hub) EmitToSocket(socketID, event string, data interface{}) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[socketID]
	if !ok {
		return fmt.Errorf("emit %s to %s: %w", event, socketID, ErrSocketNotFound)
	}
	select {
	case client.send <- Message{Type: event, Data: data}:
		return nil
	default:
		return fmt.Errorf("emit %s to %s: %w", event, socketID, ErrSendBufferFull)
	}
}

// EmitToUser queues an event on every socket of userID and returns how many
// sockets accepted it. The error joins the per-socket failures and is nil
// when at least one socket accepted the event.
func (h *Hub) EmitToUser(userID int64, event string, data interface{}) (int, error) {
	if h.presence == nil {
		return 0, fmt.Errorf("emit %s to user %d: no presence registry", event, userID)
	}

	var (
		delivered int
		errs      []error
	)
	for _, socketID := range h.presence.Sockets(userID) {
		if err := h.EmitToSocket(socketID, event, data); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		if len(errs) == 0 {
			return 0, fmt.Errorf("emit %s to user %d: %w", event, userID, ErrSocketNotFound)
		}
		return 0, errors.Join(errs...)
	}
	return delivered, nil
}

// EmitToRoom queues an event on every socket in room except exceptSocket.
func (h *Hub) EmitToRoom(room, exceptSocket, event string, data interface{}) int {
	if h.presence == nil {
		return 0
	}

	delivered := 0
	for _, socketID := range h.presence.RoomMembers(room) {
		if socketID == exceptSocket {
			continue
		}
		if err := h.EmitToSocket(socketID, event, data); err != nil {
			logging.Debug().Err(err).Str("room", room).Msg("room emit skipped socket")
			continue
		}
		delivered++
	}
	return delivered
}

// BroadcastJSON queues an event for every connected client.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// UserStatusData is the user_status payload.
type UserStatusData struct {
	UserID int64  `json:"userId"`
	Status string `json:"status"`
}

// BroadcastUserStatus announces a presence transition to everyone.
func (h *Hub) BroadcastUserStatus(userID int64, status string) {
	h.BroadcastJSON(EventUserStatus, UserStatusData{UserID: userID, Status: status})
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

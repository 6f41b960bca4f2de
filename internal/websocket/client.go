// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// clientSeq orders clients by connection time for broadcasts.
var clientSeq atomic.Uint64

// Handler receives the lifecycle and inbound events of every client.
// Calls for one client are never concurrent.
type Handler interface {
	OnConnect(ctx context.Context, c *Client)
	OnEvent(ctx context.Context, c *Client, in Inbound)
	OnDisconnect(ctx context.Context, c *Client)
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	seq      uint64
	id       string
	identity auth.Identity
	hub      *Hub
	conn     *websocket.Conn
	send     chan Message
	handler  Handler
	limiter  *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	registered     chan struct{}
	registeredOnce sync.Once
}

// NewClient creates a client for an authenticated connection. limiter may
// be nil to disable send throttling.
func NewClient(hub *Hub, conn *websocket.Conn, identity auth.Identity, handler Handler, limiter *rate.Limiter) *Client {
	id := uuid.NewString()
	ctx := logging.ContextWithSocketID(context.Background(), id)
	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx, cancel := context.WithCancel(ctx)

	return &Client{
		seq:        clientSeq.Add(1),
		id:         id,
		identity:   identity,
		hub:        hub,
		conn:       conn,
		send:       make(chan Message, sendBufferSize),
		handler:    handler,
		limiter:    limiter,
		ctx:        ctx,
		cancel:     cancel,
		registered: make(chan struct{}),
	}
}

// ID returns the socket id.
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated user's id.
func (c *Client) UserID() int64 { return c.identity.ID }

// Identity returns the authenticated identity.
func (c *Client) Identity() auth.Identity { return c.identity }

// Context is canceled when the client disconnects.
func (c *Client) Context() context.Context { return c.ctx }

// AllowSend reports whether the client may send another message now.
func (c *Client) AllowSend() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// Emit queues an event for this client.
func (c *Client) Emit(event string, data interface{}) error {
	return c.hub.EmitToSocket(c.id, event, data)
}

func (c *Client) markRegistered() {
	c.registeredOnce.Do(func() { close(c.registered) })
}

// Start registers the client with the hub and starts its pumps. It returns
// false if the hub has stopped.
func (c *Client) Start() bool {
	select {
	case c.hub.Register <- c:
	case <-c.hub.Done():
		c.close()
		return false
	}

	select {
	case <-c.registered:
	case <-c.hub.Done():
		c.close()
		return false
	}

	go c.writePump()
	go c.readPump()
	return true
}

func (c *Client) close() {
	c.cancel()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// readPump runs the connect callback, then dispatches inbound frames in
// order until the connection fails.
func (c *Client) readPump() {
	defer func() {
		if c.handler != nil {
			c.handler.OnDisconnect(c.ctx, c)
		}
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.Done():
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Ctx(c.ctx).Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if c.handler != nil {
		c.handler.OnConnect(c.ctx, c)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Ctx(c.ctx).Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			metrics.WSEventsReceived.WithLabelValues("invalid").Inc()
			_ = c.Emit(EventMessageError, ErrorData{Message: "Formato de evento inválido"})
			continue
		}
		metrics.WSEventsReceived.WithLabelValues(eventLabel(in.Type)).Inc()

		if in.Type == EventPing {
			_ = c.Emit(EventPong, nil)
			continue
		}
		if c.handler != nil {
			c.handler.OnEvent(c.ctx, c, in)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Ctx(c.ctx).Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeJSON(message); err != nil {
				logging.Ctx(c.ctx).Debug().Err(err).Msg("failed to write websocket frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeJSON(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ErrorData is the message_error and connect_error payload.
type ErrorData struct {
	Message string `json:"message"`
}

var knownEvents = map[string]struct{}{
	EventJoinGroups:  {},
	EventSendMessage: {},
	EventReadMessage: {},
	EventTyping:      {},
	EventPing:        {},

	EventNotificationRead: {},
}

// eventLabel bounds metric cardinality to the known client events.
func eventLabel(event string) string {
	if _, ok := knownEvents[event]; ok {
		return event
	}
	return "unknown"
}

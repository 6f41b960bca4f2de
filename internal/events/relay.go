// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
	"github.com/tomtom215/assistmove/internal/models"
	"github.com/tomtom215/assistmove/internal/queue"
)

// EventNotification is the socket event notifications are emitted as.
const EventNotification = "notification"

// ErrInvalidNotification marks a payload that can never be delivered.
var ErrInvalidNotification = errors.New("invalid notification")

// UserEmitter delivers an event to every live socket of a user.
type UserEmitter interface {
	EmitToUser(userID int64, event string, data interface{}) (int, error)
}

// Relay consumes the notifications topic and delivers each notification
// live, or keeps it in the user's unread inbox until a later connection
// marks it read. It implements suture.Service.
type Relay struct {
	bus     *Bus
	emitter UserEmitter
	inbox   queue.Inbox
}

// NewRelay creates a Relay.
func NewRelay(bus *Bus, emitter UserEmitter, inbox queue.Inbox) *Relay {
	return &Relay{bus: bus, emitter: emitter, inbox: inbox}
}

// Serve subscribes and relays until ctx is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	topic := r.bus.NotificationsTopic()
	msgs, err := r.bus.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	logging.Info().Str("topic", topic).Str("transport", r.bus.Transport()).Msg("Notification relay started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("topic", topic).Msg("Notification relay stopped")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.process(ctx, msg)
		}
	}
}

func (r *Relay) process(ctx context.Context, msg *message.Message) {
	if id := msg.Metadata.Get("correlation_id"); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	var n models.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed notification")
		metrics.NotificationsRelayed.WithLabelValues("dropped").Inc()
		msg.Ack()
		return
	}

	// Failures are logged and counted by Deliver. A nack would make
	// gochannel redeliver immediately, in a loop, while Redis is down.
	_ = r.Deliver(ctx, n)
	msg.Ack()
}

// Deliver emits n to the user's live sockets, or keeps it unread when the
// user has none. A notification without an id is given one.
func (r *Relay) Deliver(ctx context.Context, n models.Notification) error {
	log := logging.Ctx(ctx).With().Int64("user_id", n.UserID).Str("type", n.Type).Logger()

	if n.UserID <= 0 {
		log.Warn().Msg("dropping notification without user_id")
		metrics.NotificationsRelayed.WithLabelValues("dropped").Inc()
		return ErrInvalidNotification
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	delivered, err := r.emitter.EmitToUser(n.UserID, EventNotification, n)
	if err == nil && delivered > 0 {
		metrics.NotificationsRelayed.WithLabelValues("live").Inc()
		return nil
	}

	env, err := queue.NewEnvelope(0, "notification:"+strconv.FormatInt(n.UserID, 10), EventNotification, n)
	if err != nil {
		metrics.NotificationsRelayed.WithLabelValues("dropped").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	env.ID = n.ID
	if err := r.inbox.Keep(ctx, n.UserID, env); err != nil {
		metrics.NotificationsRelayed.WithLabelValues("dropped").Inc()
		log.Error().Err(err).Msg("notification lost: user offline and inbox unavailable")
		return err
	}

	metrics.NotificationsRelayed.WithLabelValues("queued").Inc()
	log.Debug().Str("notification_id", n.ID).Msg("notification kept for offline user")
	return nil
}

// ReplayUnread emits every unread notification of userID through emit,
// oldest first, without removing them. It returns the number emitted.
func ReplayUnread(ctx context.Context, inbox queue.Inbox, userID int64, emit func(event string, payload json.RawMessage) error) (int, error) {
	envs, err := inbox.Unread(ctx, userID)
	if err != nil {
		return 0, err
	}
	for i := range envs {
		if err := emit(envs[i].EventName(), envs[i].Payload); err != nil {
			return i, fmt.Errorf("replay notification %s: %w", envs[i].ID, err)
		}
	}
	return len(envs), nil
}

// String names the service in supervisor logs.
func (r *Relay) String() string {
	return "notification-relay"
}

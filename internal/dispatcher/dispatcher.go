// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package dispatcher turns send_message events into persisted messages and
// delivers them.
//
// A send runs in a fixed order: validate, persist, resolve recipients,
// deliver each recipient live or through the offline queue, acknowledge the
// sender. A failure for one recipient never stops delivery to the others
// and never undoes the persisted message.
//
// Per recipient, live delivery and offline replay are serialized: a socket
// receives live messages only after its replay has finished, and a message
// is either emitted live or queued behind everything already queued. A
// reconnecting user therefore sees messages in send order.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
	"github.com/tomtom215/assistmove/internal/models"
	"github.com/tomtom215/assistmove/internal/queue"
)

// Socket events emitted by the dispatcher.
const (
	EventNewMessage  = "new_message"
	EventMessageSent = "message_sent"
)

// ErrNotGroupMember rejects a group send from a non-member.
var ErrNotGroupMember = errors.New("sender is not a member of the group")

// MessageStore persists messages and resolves group membership.
type MessageStore interface {
	InsertPrivateMessage(ctx context.Context, senderID, recipientID int64, content string) (*models.Message, error)
	InsertGroupMessage(ctx context.Context, senderID, groupID int64, content string) (*models.Message, error)
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)
	GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	MarkPrivateReadBatch(ctx context.Context, ids []int64, recipientID int64) (int64, error)
}

// Presence answers which of a user's sockets take live messages.
type Presence interface {
	ReadySockets(userID int64) []string
	MarkReady(socketID string)
}

// Emitter queues events on live sockets.
type Emitter interface {
	EmitToSocket(socketID, event string, data interface{}) error
}

// Publisher receives every persisted message. Publishing is best effort.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *models.Message) error
}

// RecipientFanoutError records a recipient who could neither be reached
// live nor queued.
type RecipientFanoutError struct {
	RecipientID int64
	MessageID   int64
	Err         error
}

func (e *RecipientFanoutError) Error() string {
	return fmt.Sprintf("deliver message %d to user %d: %v", e.MessageID, e.RecipientID, e.Err)
}

func (e *RecipientFanoutError) Unwrap() error { return e.Err }

// Result summarizes one dispatched message.
type Result struct {
	Message   *models.Message
	Live      []int64
	Queued    []int64
	Failures  []*RecipientFanoutError
	AckFailed bool
}

const lockStripes = 64

// Dispatcher routes messages between senders, storage and recipients.
type Dispatcher struct {
	store     MessageStore
	presence  Presence
	emitter   Emitter
	queue     queue.Queue
	publisher Publisher

	// recipients guards each user's presence check, emit or enqueue and
	// replay, striped by user id.
	recipients [lockStripes]sync.Mutex
}

// New creates a Dispatcher. publisher may be nil.
func New(store MessageStore, presence Presence, emitter Emitter, q queue.Queue, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		store:     store,
		presence:  presence,
		emitter:   emitter,
		queue:     q,
		publisher: publisher,
	}
}

func (d *Dispatcher) lock(userID int64) func() {
	mu := &d.recipients[uint64(userID)%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// HandleSendMessage dispatches req from sender and returns the persisted
// message. Recipient failures are logged and counted, not returned.
func (d *Dispatcher) HandleSendMessage(ctx context.Context, sender auth.Identity, socketID string, req SendRequest) (*models.Message, error) {
	res, err := d.Dispatch(ctx, sender, socketID, req)
	if err != nil {
		return nil, err
	}
	return res.Message, nil
}

// Dispatch is HandleSendMessage with the full delivery outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, sender auth.Identity, socketID string, req SendRequest) (*Result, error) {
	start := time.Now()
	defer func() { metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()

	log := logging.Ctx(ctx).With().Int64("sender_id", sender.ID).Logger()

	var (
		msg        *models.Message
		recipients []int64
		kind       string
		err        error
	)

	switch r := req.(type) {
	case PrivateSend:
		kind = "private"
		msg, err = d.store.InsertPrivateMessage(ctx, sender.ID, r.RecipientID, r.Content)
		if err != nil {
			metrics.MessagesRejected.WithLabelValues("store_error").Inc()
			return nil, fmt.Errorf("persist private message: %w", err)
		}
		msg.Attachments = attachments(r.Attachments)
		recipients = []int64{r.RecipientID}

	case GroupSend:
		kind = "group"
		member, err := d.store.IsGroupMember(ctx, r.GroupID, sender.ID)
		if err != nil {
			return nil, fmt.Errorf("check membership of group %d: %w", r.GroupID, err)
		}
		if !member {
			metrics.MessagesRejected.WithLabelValues("not_member").Inc()
			return nil, ErrNotGroupMember
		}

		msg, err = d.store.InsertGroupMessage(ctx, sender.ID, r.GroupID, r.Content)
		if err != nil {
			metrics.MessagesRejected.WithLabelValues("store_error").Inc()
			return nil, fmt.Errorf("persist group message: %w", err)
		}
		msg.Attachments = attachments(r.Attachments)

		members, err := d.store.GroupMemberIDs(ctx, r.GroupID)
		if err != nil {
			// The message is stored; members can still read it from history.
			log.Error().Err(err).Int64("group_id", r.GroupID).Msg("failed to resolve group members")
		}
		for _, id := range members {
			if id != sender.ID {
				recipients = append(recipients, id)
			}
		}

	default:
		metrics.MessagesRejected.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Message: msgInvalidPayload}
	}

	res := &Result{Message: msg}
	for _, recipientID := range recipients {
		live, err := d.deliver(ctx, msg, recipientID, sender.ID, socketID)
		switch {
		case err != nil:
			res.Failures = append(res.Failures, err)
			log.Error().
				Err(err.Err).
				Int64("recipient_id", recipientID).
				Int64("message_id", msg.ID).
				Msg("recipient fan-out failed")
		case live:
			res.Live = append(res.Live, recipientID)
		default:
			res.Queued = append(res.Queued, recipientID)
		}
	}

	if err := d.emitter.EmitToSocket(socketID, EventMessageSent, msg); err != nil {
		res.AckFailed = true
		log.Warn().Err(err).Int64("message_id", msg.ID).Msg("failed to acknowledge sender")
	}

	if d.publisher != nil {
		if err := d.publisher.PublishMessage(ctx, msg); err != nil {
			log.Warn().Err(err).Int64("message_id", msg.ID).Msg("failed to publish message event")
		}
	}

	metrics.MessagesSent.WithLabelValues(kind).Inc()
	log.Debug().
		Int64("message_id", msg.ID).
		Str("conversation_key", msg.ConversationKey()).
		Int("live", len(res.Live)).
		Int("queued", len(res.Queued)).
		Int("failed", len(res.Failures)).
		Msg("message dispatched")

	return res, nil
}

// deliver emits msg on the recipient's ready sockets, or queues it when
// none accepted it. The sending socket never receives new_message for its
// own message. It reports whether delivery was live.
func (d *Dispatcher) deliver(ctx context.Context, msg *models.Message, recipientID, senderID int64, senderSocket string) (bool, *RecipientFanoutError) {
	defer d.lock(recipientID)()

	var emitErrs []error
	delivered := 0

	for _, socketID := range d.presence.ReadySockets(recipientID) {
		if socketID == senderSocket {
			continue
		}
		if err := d.emitter.EmitToSocket(socketID, EventNewMessage, msg); err != nil {
			emitErrs = append(emitErrs, err)
			continue
		}
		delivered++
	}
	if delivered > 0 {
		metrics.RecordFanout("live", nil)
		return true, nil
	}

	// A note to self from the only open socket is already acknowledged.
	if recipientID == senderID && len(emitErrs) == 0 {
		return true, nil
	}

	env, err := queue.NewEnvelope(msg.ID, msg.ConversationKey(), "", msg)
	if err == nil {
		err = d.queue.Enqueue(ctx, recipientID, env)
	}
	metrics.RecordFanout("queued", err)
	if err != nil {
		if len(emitErrs) > 0 {
			err = errors.Join(append(emitErrs, err)...)
		}
		return false, &RecipientFanoutError{RecipientID: recipientID, MessageID: msg.ID, Err: err}
	}
	return false, nil
}

// DeliverPending replays userID's queued events on socketID in enqueue
// order, marks the socket ready for live delivery, then marks the replayed
// private messages read. It returns the number of events emitted. When the
// socket stops accepting events the rest are put back at the head of the
// queue. The socket is marked ready even when the queue is unavailable.
func (d *Dispatcher) DeliverPending(ctx context.Context, userID int64, socketID string) (int, error) {
	log := logging.Ctx(ctx).With().Int64("user_id", userID).Logger()

	emitted, privateIDs, err := d.replay(ctx, userID, socketID)
	if err != nil {
		return 0, err
	}
	if emitted == 0 {
		return 0, nil
	}

	if len(privateIDs) > 0 {
		if _, err := d.store.MarkPrivateReadBatch(ctx, privateIDs, userID); err != nil {
			log.Error().Err(err).Int("count", len(privateIDs)).Msg("failed to mark replayed messages read")
		}
	}

	log.Info().Int("replayed", emitted).Msg("offline queue replayed")
	return emitted, nil
}

// replay drains and emits under the recipient lock so no live message for
// userID can overtake a queued one.
func (d *Dispatcher) replay(ctx context.Context, userID int64, socketID string) (int, []int64, error) {
	defer d.lock(userID)()
	defer d.presence.MarkReady(socketID)

	envs, err := d.queue.Drain(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	var privateIDs []int64
	emitted := 0
	for i := range envs {
		env := envs[i]
		if err := d.emitter.EmitToSocket(socketID, env.EventName(), env.Payload); err != nil {
			rest := envs[i:]
			if qerr := d.queue.Requeue(ctx, userID, rest); qerr != nil {
				logging.Ctx(ctx).Error().
					Err(qerr).
					Int64("user_id", userID).
					Int("count", len(rest)).
					Msg("failed to requeue undelivered envelopes")
			}
			logging.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Int("requeued", len(rest)).Msg("replay interrupted")
			break
		}
		emitted++
		if env.EventName() == EventNewMessage && env.MessageID > 0 && strings.HasPrefix(env.ConversationKey, "dm:") {
			privateIDs = append(privateIDs, env.MessageID)
		}
	}
	return emitted, privateIDs, nil
}

func attachments(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// ClientMessage maps a dispatch error to the text shown in message_error.
func ClientMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrNotGroupMember):
		return "Você não pertence a este grupo"
	default:
		return "Erro ao enviar mensagem"
	}
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package queue holds undelivered events for offline users.
//
// Each user has one Redis list, "queue:{user_id}", whose elements are JSON
// envelopes appended in delivery order. Drain reads and clears the list in
// one server-side step, so two concurrent connections of the same user
// cannot both replay an envelope.
//
// Notifications use a second list per user, "unread:{user_id}", which is
// read without being cleared and shrinks only as the client marks entries
// read.
package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// EventNewMessage is the default envelope event.
const EventNewMessage = "new_message"

// Envelope is one queued event.
type Envelope struct {
	ID              string          `json:"id,omitempty"`
	MessageID       int64           `json:"message_id"`
	ConversationKey string          `json:"conversation_key"`
	Event           string          `json:"event,omitempty"`
	Payload         json.RawMessage `json:"payload"`
	EnqueuedAt      time.Time       `json:"enqueued_at"`
}

// EventName returns the socket event the envelope replays as.
func (e *Envelope) EventName() string {
	if e.Event == "" {
		return EventNewMessage
	}
	return e.Event
}

// NewEnvelope marshals payload into an envelope for the given message.
func NewEnvelope(messageID int64, conversationKey, event string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal envelope payload: %w", err)
	}
	return Envelope{
		MessageID:       messageID,
		ConversationKey: conversationKey,
		Event:           event,
		Payload:         raw,
		EnqueuedAt:      time.Now().UTC(),
	}, nil
}

// Queue is the offline queue contract.
type Queue interface {
	// Enqueue appends env to userID's queue.
	Enqueue(ctx context.Context, userID int64, env Envelope) error

	// Drain atomically returns and clears userID's queue in enqueue order.
	Drain(ctx context.Context, userID int64) ([]Envelope, error)

	// Requeue puts envs back at the head of userID's queue, keeping their
	// order ahead of anything enqueued since they were drained.
	Requeue(ctx context.Context, userID int64, envs []Envelope) error

	// Len returns the number of queued envelopes for userID.
	Len(ctx context.Context, userID int64) (int64, error)

	Close() error
}

// Inbox keeps notifications for users who were offline until the client
// marks them read. Unread does not remove anything.
type Inbox interface {
	// Keep appends env to userID's unread notifications. env.ID must be set.
	Keep(ctx context.Context, userID int64, env Envelope) error

	// Unread returns userID's unread notifications, oldest first.
	Unread(ctx context.Context, userID int64) ([]Envelope, error)

	// MarkRead removes the notification with the given id and reports
	// whether it was found.
	MarkRead(ctx context.Context, userID int64, id string) (bool, error)
}

// Backend is an offline queue that also keeps unread notifications.
type Backend interface {
	Queue
	Inbox
}

// QueueUnavailableError reports that the backing store could not be
// reached. The service keeps running in live-only mode.
type QueueUnavailableError struct {
	Op  string
	Err error
}

func (e *QueueUnavailableError) Error() string {
	return fmt.Sprintf("offline queue unavailable during %s: %v", e.Op, e.Err)
}

func (e *QueueUnavailableError) Unwrap() error { return e.Err }

// Key returns the list key of a user's queue.
func Key(prefix string, userID int64) string {
	return prefix + strconv.FormatInt(userID, 10)
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package queue

import (
	"context"
	"errors"

	"github.com/tomtom215/assistmove/internal/metrics"
)

var errNotConfigured = errors.New("redis not configured")

var _ Backend = (*Noop)(nil)

// Noop is used when no Redis URL is configured. Enqueue always fails with
// QueueUnavailableError and Drain returns nothing.
type Noop struct{}

// NewNoop creates a Noop queue and marks the service degraded.
func NewNoop() *Noop {
	metrics.SetQueueDegraded(true)
	return &Noop{}
}

func (*Noop) Enqueue(context.Context, int64, Envelope) error {
	metrics.RecordQueueOperation("enqueue", errNotConfigured, true)
	return &QueueUnavailableError{Op: "enqueue", Err: errNotConfigured}
}

func (*Noop) Drain(context.Context, int64) ([]Envelope, error) {
	return nil, nil
}

func (*Noop) Len(context.Context, int64) (int64, error) {
	return 0, nil
}

func (*Noop) Close() error { return nil }

func (*Noop) Requeue(context.Context, int64, []Envelope) error {
	metrics.RecordQueueOperation("requeue", errNotConfigured, true)
	return &QueueUnavailableError{Op: "requeue", Err: errNotConfigured}
}

func (*Noop) Keep(context.Context, int64, Envelope) error {
	metrics.RecordQueueOperation("keep", errNotConfigured, true)
	return &QueueUnavailableError{Op: "keep", Err: errNotConfigured}
}

func (*Noop) Unread(context.Context, int64) ([]Envelope, error) {
	return nil, nil
}

func (*Noop) MarkRead(context.Context, int64, string) (bool, error) {
	return false, nil
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockContextHub is a test double for ContextHub.
type mockContextHub struct {
	runErr   error
	runCount atomic.Int32
}

func (m *mockContextHub) RunWithContext(ctx context.Context) error {
	m.runCount.Add(1)
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

var _ suture.Service = (*WebSocketHubService)(nil)

func TestWebSocketHubService_Serve(t *testing.T) {
	t.Run("returns on cancel", func(t *testing.T) {
		hub := &mockContextHub{}
		svc := NewWebSocketHubService(hub)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}
	})

	t.Run("propagates hub error", func(t *testing.T) {
		hub := &mockContextHub{runErr: errors.New("hub crashed")}
		if err := NewWebSocketHubService(hub).Serve(context.Background()); !errors.Is(err, hub.runErr) {
			t.Errorf("Serve() = %v, want hub error", err)
		}
	})
}

func TestWebSocketHubService_RestartedBySupervisor(t *testing.T) {
	hub := &mockContextHub{runErr: errors.New("hub crashed")}
	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewWebSocketHubService(hub))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	<-sup.ServeBackground(ctx)

	if hub.runCount.Load() < 2 {
		t.Errorf("hub ran %d times, expected restarts", hub.runCount.Load())
	}
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

//go:build integration

package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/assistmove/internal/config"
	"github.com/tomtom215/assistmove/internal/testinfra"
)

func setupRedisQueue(t *testing.T, maxLength int64, ttl time.Duration) *Redis {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	container, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, ctx, container) })

	q, err := NewRedis(ctx,
		&config.RedisConfig{URL: container.URL},
		&config.QueueConfig{KeyPrefix: "queue:", TTL: ttl, MaxLength: maxLength, BreakerFailures: 5, BreakerTimeout: time.Second},
	)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestRedis_EnqueueDrainOrder(t *testing.T) {
	q := setupRedisQueue(t, 500, time.Hour)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		env, _ := NewEnvelope(i, "dm:1:2", "", map[string]int64{"id": i})
		if err := q.Enqueue(ctx, 2, env); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	if n, err := q.Len(ctx, 2); err != nil || n != 3 {
		t.Fatalf("Len() = %d, %v", n, err)
	}

	envs, err := q.Drain(ctx, 2)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(envs) != 3 {
		t.Fatalf("len(envs) = %d, want 3", len(envs))
	}
	for i, env := range envs {
		if env.MessageID != int64(i+1) {
			t.Errorf("envs[%d].MessageID = %d, want %d", i, env.MessageID, i+1)
		}
	}

	again, err := q.Drain(ctx, 2)
	if err != nil || len(again) != 0 {
		t.Errorf("second Drain() = %v, %v; want empty", again, err)
	}
}

func TestRedis_MaxLengthKeepsNewest(t *testing.T) {
	q := setupRedisQueue(t, 2, time.Hour)
	ctx := context.Background()

	for i := int64(1); i <= 4; i++ {
		_ = q.Enqueue(ctx, 5, Envelope{MessageID: i, ConversationKey: "dm:1:5"})
	}

	envs, _ := q.Drain(ctx, 5)
	if len(envs) != 2 || envs[0].MessageID != 3 || envs[1].MessageID != 4 {
		t.Errorf("expected newest two envelopes [3 4], got %+v", envs)
	}
}

func TestRedis_TTL(t *testing.T) {
	q := setupRedisQueue(t, 10, time.Hour)
	ctx := context.Background()

	_ = q.Enqueue(ctx, 9, Envelope{MessageID: 1})
	ttl, err := q.client.TTL(ctx, Key("queue:", 9)).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want (0, 1h]", ttl)
	}
}

func TestRedis_ConcurrentDrainDeliversOnce(t *testing.T) {
	q := setupRedisQueue(t, 500, time.Hour)
	ctx := context.Background()

	for i := int64(1); i <= 50; i++ {
		_ = q.Enqueue(ctx, 3, Envelope{MessageID: i, ConversationKey: "group:1"})
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
		seen  = map[int64]int{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			envs, err := q.Drain(ctx, 3)
			if err != nil {
				t.Errorf("Drain() error = %v", err)
				return
			}
			mu.Lock()
			total += len(envs)
			for _, env := range envs {
				seen[env.MessageID]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 50 {
		t.Errorf("drained %d envelopes, want 50", total)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("message %d delivered %d times", id, n)
		}
	}
}

func TestRedis_MalformedEntrySkipped(t *testing.T) {
	q := setupRedisQueue(t, 10, time.Hour)
	ctx := context.Background()

	_ = q.Enqueue(ctx, 4, Envelope{MessageID: 1})
	q.client.RPush(ctx, Key("queue:", 4), "not-json")
	_ = q.Enqueue(ctx, 4, Envelope{MessageID: 2})

	envs, err := q.Drain(ctx, 4)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(envs) != 2 {
		t.Errorf("expected malformed entry skipped, got %d envelopes", len(envs))
	}
}

func TestRedis_RequeueGoesToHead(t *testing.T) {
	q := setupRedisQueue(t, 500, time.Hour)
	ctx := context.Background()

	// Messages 2 and 3 were drained but not delivered; message 4 arrived
	// while they were out of the list.
	_ = q.Enqueue(ctx, 6, Envelope{MessageID: 4, ConversationKey: "dm:1:6"})
	if err := q.Requeue(ctx, 6, []Envelope{{MessageID: 2}, {MessageID: 3}}); err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}

	envs, err := q.Drain(ctx, 6)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	var got []int64
	for _, env := range envs {
		got = append(got, env.MessageID)
	}
	if len(got) != 3 || got[0] != 2 || got[1] != 3 || got[2] != 4 {
		t.Errorf("order after requeue = %v, want [2 3 4]", got)
	}

	if err := q.Requeue(ctx, 6, []Envelope{{MessageID: 9}}); err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	ttl, _ := q.client.TTL(ctx, Key("queue:", 6)).Result()
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL after requeue = %v, want (0, 1h]", ttl)
	}
}

func TestRedis_InboxKeepsUntilRead(t *testing.T) {
	q := setupRedisQueue(t, 10, time.Hour)
	ctx := context.Background()

	for _, id := range []string{"n1", "n2", "n3"} {
		if err := q.Keep(ctx, 7, Envelope{ID: id, Event: "notification"}); err != nil {
			t.Fatalf("Keep(%s) error = %v", id, err)
		}
	}

	// Reading twice returns the same entries.
	for i := 0; i < 2; i++ {
		unread, err := q.Unread(ctx, 7)
		if err != nil {
			t.Fatalf("Unread() error = %v", err)
		}
		if len(unread) != 3 || unread[0].ID != "n1" || unread[2].ID != "n3" {
			t.Fatalf("Unread() = %+v, want n1..n3", unread)
		}
	}

	found, err := q.MarkRead(ctx, 7, "n2")
	if err != nil || !found {
		t.Fatalf("MarkRead(n2) = %v, %v", found, err)
	}
	if found, _ := q.MarkRead(ctx, 7, "n2"); found {
		t.Error("second MarkRead(n2) should find nothing")
	}

	unread, _ := q.Unread(ctx, 7)
	if len(unread) != 2 || unread[0].ID != "n1" || unread[1].ID != "n3" {
		t.Errorf("Unread() after MarkRead = %+v, want n1 and n3", unread)
	}
	if n, _ := q.Len(ctx, 7); n != 0 {
		t.Errorf("inbox entries leaked into the offline queue: Len() = %d", n)
	}
}

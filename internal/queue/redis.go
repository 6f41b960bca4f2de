// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/assistmove/internal/config"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
)

// drainScript reads the whole list and deletes it in one atomic step.
var drainScript = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
if #items > 0 then
  redis.call('DEL', KEYS[1])
end
return items
`)

// requeueScript pushes ARGV[2..n] onto the head of the list so that
// ARGV[2] ends up first, then refreshes the TTL (ARGV[1], seconds).
var requeueScript = redis.NewScript(`
local ttl = tonumber(ARGV[1])
for i = #ARGV, 2, -1 do
  redis.call('LPUSH', KEYS[1], ARGV[i])
end
if ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
end
return #ARGV - 1
`)

var _ Backend = (*Redis)(nil)

// Redis is a Queue and Inbox backed by Redis lists, one of each per user.
type Redis struct {
	client      *redis.Client
	breaker     *gobreaker.CircuitBreaker[interface{}]
	prefix      string
	inboxPrefix string
	ttl         time.Duration
	maxLength   int64
}

// NewRedis creates the Redis queue. Connection failures are not fatal: the
// queue starts degraded and recovers once Redis answers.
func NewRedis(ctx context.Context, rcfg *config.RedisConfig, qcfg *config.QueueConfig) (*Redis, error) {
	opts, err := redis.ParseURL(rcfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if rcfg.DialTimeout > 0 {
		opts.DialTimeout = rcfg.DialTimeout
	}
	if rcfg.ReadTimeout > 0 {
		opts.ReadTimeout = rcfg.ReadTimeout
	}
	if rcfg.WriteTimeout > 0 {
		opts.WriteTimeout = rcfg.WriteTimeout
	}

	q := NewRedisWithClient(redis.NewClient(opts), qcfg)

	if err := q.client.Ping(ctx).Err(); err != nil {
		metrics.SetQueueDegraded(true)
		logging.Error().
			Err(err).
			Bool("degraded_mode", true).
			Str("addr", opts.Addr).
			Msg("Redis unreachable, offline queue degraded")
	} else {
		metrics.SetQueueDegraded(false)
		logging.Info().Str("addr", opts.Addr).Msg("Connected to Redis offline queue")
	}
	return q, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, qcfg *config.QueueConfig) *Redis {
	failures := qcfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "offline-queue",
		MaxRequests: 1,
		Timeout:     qcfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("offline queue circuit breaker state change")
		},
	})

	inboxPrefix := qcfg.InboxPrefix
	if inboxPrefix == "" {
		inboxPrefix = "unread:"
	}

	return &Redis{
		client:      client,
		breaker:     breaker,
		prefix:      qcfg.KeyPrefix,
		inboxPrefix: inboxPrefix,
		ttl:         qcfg.TTL,
		maxLength:   qcfg.MaxLength,
	}
}

// Enqueue appends env, trims the list to the newest maxLength entries and
// refreshes the TTL.
func (q *Redis) Enqueue(ctx context.Context, userID int64, env Envelope) error {
	data, err := encode(&env)
	if err != nil {
		return err
	}
	if err := q.push(ctx, Key(q.prefix, userID), data); err != nil {
		return q.unavailable("enqueue", userID, err)
	}

	q.recordOK("enqueue")
	logging.Debug().
		Int64("user_id", userID).
		Int64("message_id", env.MessageID).
		Str("conversation_key", env.ConversationKey).
		Msg("envelope queued")
	return nil
}

// Drain returns and clears userID's queue. Entries that fail to decode are
// logged and skipped.
func (q *Redis) Drain(ctx context.Context, userID int64) ([]Envelope, error) {
	key := Key(q.prefix, userID)
	res, err := q.breaker.Execute(func() (interface{}, error) {
		return drainScript.Run(ctx, q.client, []string{key}).StringSlice()
	})
	if err != nil {
		return nil, q.unavailable("drain", userID, err)
	}
	q.recordOK("drain")

	raw, _ := res.([]string)
	out := decodeEnvelopes(userID, raw)
	metrics.QueueDrainedEnvelopes.Add(float64(len(out)))
	return out, nil
}

// Requeue pushes envs back onto the head of userID's queue in one script
// call. The list is not trimmed, so requeued entries are never dropped in
// favor of newer ones.
func (q *Redis) Requeue(ctx context.Context, userID int64, envs []Envelope) error {
	if len(envs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(envs)+1)
	args = append(args, int64(q.ttl/time.Second))
	for i := range envs {
		data, err := encode(&envs[i])
		if err != nil {
			return err
		}
		args = append(args, data)
	}

	_, err := q.breaker.Execute(func() (interface{}, error) {
		return requeueScript.Run(ctx, q.client, []string{Key(q.prefix, userID)}, args...).Result()
	})
	if err != nil {
		return q.unavailable("requeue", userID, err)
	}
	q.recordOK("requeue")
	logging.Debug().Int64("user_id", userID).Int("count", len(envs)).Msg("envelopes requeued at head")
	return nil
}

func encode(env *Envelope) ([]byte, error) {
	if env.EnqueuedAt.IsZero() {
		env.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// push appends data to key under the length and TTL limits in one
// MULTI/EXEC.
func (q *Redis) push(ctx context.Context, key string, data []byte) error {
	_, err := q.breaker.Execute(func() (interface{}, error) {
		pipe := q.client.TxPipeline()
		pipe.RPush(ctx, key, data)
		if q.maxLength > 0 {
			pipe.LTrim(ctx, key, -q.maxLength, -1)
		}
		if q.ttl > 0 {
			pipe.Expire(ctx, key, q.ttl)
		}
		_, execErr := pipe.Exec(ctx)
		return nil, execErr
	})
	return err
}

// decodeEnvelopes decodes raw list entries, skipping malformed ones.
func decodeEnvelopes(userID int64, raw []string) []Envelope {
	out := make([]Envelope, 0, len(raw))
	for i, item := range raw {
		var env Envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			logging.Warn().
				Err(err).
				Int64("user_id", userID).
				Int("position", i).
				Msg("skipping malformed queue entry")
			continue
		}
		out = append(out, env)
	}
	return out
}

// Len returns the queue length for userID.
func (q *Redis) Len(ctx context.Context, userID int64) (int64, error) {
	res, err := q.breaker.Execute(func() (interface{}, error) {
		return q.client.LLen(ctx, Key(q.prefix, userID)).Result()
	})
	if err != nil {
		return 0, q.unavailable("len", userID, err)
	}
	q.recordOK("len")
	n, _ := res.(int64)
	return n, nil
}

// Ping checks Redis through the breaker.
func (q *Redis) Ping(ctx context.Context) error {
	_, err := q.breaker.Execute(func() (interface{}, error) {
		return nil, q.client.Ping(ctx).Err()
	})
	if err != nil {
		return &QueueUnavailableError{Op: "ping", Err: err}
	}
	return nil
}

// BreakerState reports the circuit breaker state for health output.
func (q *Redis) BreakerState() string {
	return q.breaker.State().String()
}

// Close closes the Redis client.
func (q *Redis) Close() error {
	return q.client.Close()
}

func (q *Redis) recordOK(op string) {
	metrics.RecordQueueOperation(op, nil, false)
	metrics.SetQueueDegraded(false)
}

func (q *Redis) unavailable(op string, userID int64, err error) error {
	metrics.RecordQueueOperation(op, err, true)
	metrics.SetQueueDegraded(true)

	logging.Error().
		Err(err).
		Str("operation", op).
		Int64("user_id", userID).
		Bool("degraded_mode", true).
		Str("breaker_state", q.breaker.State().String()).
		Msg("offline queue unavailable")

	return &QueueUnavailableError{Op: op, Err: err}
}

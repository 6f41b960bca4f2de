// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package queue

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// markReadScript removes the first entry whose decoded "id" equals ARGV[1].
var markReadScript = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
for _, item in ipairs(items) do
  local ok, env = pcall(cjson.decode, item)
  if ok and type(env) == 'table' and env['id'] == ARGV[1] then
    return redis.call('LREM', KEYS[1], 1, item)
  end
end
return 0
`)

var errMissingID = errors.New("notification envelope has no id")

func (q *Redis) inboxKey(userID int64) string {
	return q.inboxPrefix + strconv.FormatInt(userID, 10)
}

// Keep appends env to userID's unread notifications under the same length
// and TTL limits as the offline queue.
func (q *Redis) Keep(ctx context.Context, userID int64, env Envelope) error {
	if env.ID == "" {
		return errMissingID
	}
	data, err := encode(&env)
	if err != nil {
		return err
	}
	if err := q.push(ctx, q.inboxKey(userID), data); err != nil {
		return q.unavailable("keep", userID, err)
	}
	q.recordOK("keep")
	return nil
}

// Unread returns userID's unread notifications, oldest first.
func (q *Redis) Unread(ctx context.Context, userID int64) ([]Envelope, error) {
	res, err := q.breaker.Execute(func() (interface{}, error) {
		return q.client.LRange(ctx, q.inboxKey(userID), 0, -1).Result()
	})
	if err != nil {
		return nil, q.unavailable("unread", userID, err)
	}
	q.recordOK("unread")

	raw, _ := res.([]string)
	return decodeEnvelopes(userID, raw), nil
}

// MarkRead removes the unread notification with the given id.
func (q *Redis) MarkRead(ctx context.Context, userID int64, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	res, err := q.breaker.Execute(func() (interface{}, error) {
		return markReadScript.Run(ctx, q.client, []string{q.inboxKey(userID)}, id).Int64()
	})
	if err != nil {
		return false, q.unavailable("mark_read", userID, err)
	}
	q.recordOK("mark_read")

	removed, _ := res.(int64)
	return removed > 0, nil
}

// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package testinfra starts Postgres and Redis containers for integration
// tests through testcontainers-go.
//
//	func TestOfflineReplay(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//
//	    redis, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redis)
//
//	    q, _ := queue.NewRedis(ctx, &config.RedisConfig{URL: redis.URL}, &config.QueueConfig{...})
//	    // ...
//	}
//
// Files in this package carry the integration build tag; run them with
// `go test -tags integration ./...`. Tests skip when Docker is unavailable.
package testinfra

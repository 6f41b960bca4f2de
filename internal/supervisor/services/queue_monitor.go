// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package services

import (
	"context"
	"time"

	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
)

// QueuePinger is satisfied by *queue.Redis.
type QueuePinger interface {
	Ping(ctx context.Context) error
}

// QueueMonitorService checks the offline queue so the degraded gauge
// recovers while no messages flow, and logs each transition once.
type QueueMonitorService struct {
	queue    QueuePinger
	interval time.Duration
	timeout  time.Duration

	healthy bool
	checked bool
}

// NewQueueMonitorService creates a monitor checking every interval (default 15s).
func NewQueueMonitorService(q QueuePinger, interval time.Duration) *QueueMonitorService {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &QueueMonitorService{queue: q, interval: interval, timeout: 2 * time.Second}
}

// Serve implements suture.Service.
func (m *QueueMonitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *QueueMonitorService) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.queue.Ping(pingCtx)
	cancel()

	healthy := err == nil
	metrics.SetQueueDegraded(!healthy)

	if m.checked && healthy == m.healthy {
		return
	}
	m.checked = true
	m.healthy = healthy

	if healthy {
		logging.Info().Msg("offline queue reachable")
		return
	}
	logging.Warn().Err(err).Bool("degraded_mode", true).Msg("offline queue unreachable, delivering live only")
}

func (m *QueueMonitorService) String() string {
	return "queue-monitor"
}

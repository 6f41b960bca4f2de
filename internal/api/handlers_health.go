// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"context"
	"net/http"
	"time"
)

// Dependency states reported by /health.
const (
	stateOK          = "ok"
	stateUnavailable = "unavailable"
	stateDisabled    = "disabled"
)

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status      string  `json:"status"`
	Database    string  `json:"database"`
	Queue       string  `json:"queue"`
	QueueState  string  `json:"queue_breaker,omitempty"`
	Events      string  `json:"events"`
	Connections int     `json:"connections"`
	OnlineUsers int     `json:"online_users"`
	Uptime      float64 `json:"uptime"`
}

type breakerReporter interface {
	BreakerState() string
}

// Health reports process and dependency status. It answers 200 while the
// database is reachable; a missing queue only degrades delivery.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:   "healthy",
		Database: pingState(ctx, h.db),
		Queue:    stateDisabled,
		Events:   stateDisabled,
		Uptime:   time.Since(h.startTime).Seconds(),
	}

	if p, ok := h.queue.(Pinger); ok {
		status.Queue = pingState(ctx, p)
	}
	if b, ok := h.queue.(breakerReporter); ok {
		status.QueueState = b.BreakerState()
	}
	if h.bus != nil {
		status.Events = h.bus.Transport()
	}
	if h.hub != nil {
		status.Connections = h.hub.GetClientCount()
	}
	if h.presence != nil {
		status.OnlineUsers = h.presence.OnlineCount()
	}

	code := http.StatusOK
	switch {
	case status.Database == stateUnavailable:
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case status.Queue == stateUnavailable || status.Queue == stateDisabled:
		status.Status = "degraded"
	}

	respondData(w, code, status, -1, start)
}

// HealthLive returns 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, -1, time.Now())
}

func pingState(ctx context.Context, p Pinger) string {
	if p == nil {
		return stateDisabled
	}
	if err := p.Ping(ctx); err != nil {
		return stateUnavailable
	}
	return stateOK
}

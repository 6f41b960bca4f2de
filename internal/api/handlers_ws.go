// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/assistmove/internal/gate"
	"github.com/tomtom215/assistmove/internal/logging"
	ws "github.com/tomtom215/assistmove/internal/websocket"
)

// WebSocket admits a handshake through the gate and upgrades it.
//
// A rejected handshake is answered before the upgrade with the gate's
// status and a connect_error body, so the client sees the reason without
// opening a socket.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Admit(r)
	if err != nil {
		respondConnectError(w, gate.StatusFor(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Error().Err(err).Int64("user_id", identity.ID).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, *identity, &socketHandler{h: h}, h.sendLimiter())
	if !client.Start() {
		logging.Warn().Int64("user_id", identity.ID).Msg("WebSocket hub stopped, connection dropped")
		return
	}
	logging.Info().
		Int64("user_id", identity.ID).
		Str("socket_id", client.ID()).
		Msg("WebSocket client connected")
}

// sendLimiter returns a fresh per-socket send limiter, or nil when
// throttling is disabled.
func (h *Handler) sendLimiter() *rate.Limiter {
	if h.config == nil || h.config.WebSocket.SendRate <= 0 {
		return nil
	}
	burst := h.config.WebSocket.SendBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.config.WebSocket.SendRate), burst)
}

func respondConnectError(w http.ResponseWriter, status int, message string) {
	body, err := json.Marshal(ws.Message{
		Type: ws.EventConnectError,
		Data: ws.ErrorData{Message: message},
	})
	if err != nil {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to write connect_error")
	}
}

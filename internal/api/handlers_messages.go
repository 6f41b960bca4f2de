// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/assistmove/internal/conversation"
	"github.com/tomtom215/assistmove/internal/logging"
	ws "github.com/tomtom215/assistmove/internal/websocket"
)

// Users lists the other active users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	users, err := h.conversation.ListUsers(r.Context(), identity(r).ID)
	if err != nil {
		respondServiceError(w, err, "")
		return
	}
	respondData(w, http.StatusOK, users, len(users), start)
}

// Conversations lists the caller's latest private messages.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msgs, err := h.conversation.ListConversations(r.Context(), identity(r).ID)
	if err != nil {
		respondServiceError(w, err, "")
		return
	}
	respondData(w, http.StatusOK, msgs, len(msgs), start)
}

// Conversation returns the private history between the caller and
// {otherUserId}, oldest first. Supports limit and offset.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	otherID, ok := pathID(r, "otherUserId")
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id de usuário inválido", nil)
		return
	}

	page := conversation.Page{
		Limit:  getIntParam(r, "limit", conversation.DefaultLimit),
		Offset: getIntParam(r, "offset", 0),
	}
	msgs, err := h.conversation.GetConversation(r.Context(), identity(r).ID, otherID, page)
	if err != nil {
		respondServiceError(w, err, "")
		return
	}
	respondData(w, http.StatusOK, msgs, len(msgs), start)
}

// MarkRead flags a received private message read and notifies the sender.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	messageID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id de mensagem inválido", nil)
		return
	}

	receipt, err := h.conversation.Acknowledge(r.Context(), messageID, identity(r).ID)
	if err != nil {
		respondServiceError(w, err, "Apenas o destinatário pode marcar a mensagem como lida")
		return
	}
	if receipt.Changed {
		h.announceRead(receipt.SenderID, receipt.ReadBy, receipt)
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"messageId": receipt.MessageID,
		"lida":      true,
		"changed":   receipt.Changed,
	}, -1, start)
}

// announceRead emits message_read to the sender's and the reader's sockets.
func (h *Handler) announceRead(senderID, readerID int64, data interface{}) {
	if h.hub == nil {
		return
	}
	for _, userID := range []int64{senderID, readerID} {
		if _, err := h.hub.EmitToUser(userID, ws.EventMessageRead, data); err != nil {
			logging.Debug().Err(err).Int64("user_id", userID).Msg("message_read not delivered")
		}
		if senderID == readerID {
			break
		}
	}
}

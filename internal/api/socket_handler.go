// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/conversation"
	"github.com/tomtom215/assistmove/internal/dispatcher"
	"github.com/tomtom215/assistmove/internal/events"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
	"github.com/tomtom215/assistmove/internal/presence"
	"github.com/tomtom215/assistmove/internal/queue"
	ws "github.com/tomtom215/assistmove/internal/websocket"
)

// socketHandler routes the events of admitted sockets to the dispatcher,
// the presence registry and the read model.
type socketHandler struct {
	h *Handler
}

var _ ws.Handler = (*socketHandler)(nil)

type joinedGroups struct {
	OK     bool    `json:"ok"`
	Groups []int64 `json:"groups"`
}

type typingRequest struct {
	RecipientID auth.UserID `json:"destinatario_id"`
	GroupID     auth.UserID `json:"grupo_id"`
	IsTyping    bool        `json:"isTyping"`
}

type userTyping struct {
	UserID   int64  `json:"userId"`
	GroupID  *int64 `json:"grupoId,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// OnConnect replays the offline queue, then the unread notifications, onto
// the new socket.
func (s *socketHandler) OnConnect(ctx context.Context, c *ws.Client) {
	s.deliverPending(ctx, c)
	s.replayNotifications(ctx, c)
}

func (s *socketHandler) deliverPending(ctx context.Context, c *ws.Client) {
	if s.h.dispatcher == nil {
		return
	}
	n, err := s.h.dispatcher.DeliverPending(ctx, c.UserID(), c.ID())
	if err != nil {
		var unavailable *queue.QueueUnavailableError
		if errors.As(err, &unavailable) {
			logging.Ctx(ctx).Warn().Err(err).Int64("user_id", c.UserID()).Msg("offline queue unavailable, nothing replayed")
			return
		}
		logging.Ctx(ctx).Error().Err(err).Int64("user_id", c.UserID()).Msg("offline replay failed")
		return
	}
	if n > 0 {
		logging.Ctx(ctx).Debug().Int("replayed", n).Msg("pending events delivered on connect")
	}
}

func (s *socketHandler) replayNotifications(ctx context.Context, c *ws.Client) {
	if s.h.inbox == nil {
		return
	}
	n, err := events.ReplayUnread(ctx, s.h.inbox, c.UserID(), func(event string, payload json.RawMessage) error {
		return c.Emit(event, payload)
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("user_id", c.UserID()).Int("replayed", n).Msg("unread notification replay incomplete")
		return
	}
	if n > 0 {
		logging.Ctx(ctx).Debug().Int("notifications", n).Msg("unread notifications delivered on connect")
	}
}

// OnEvent handles one inbound client event.
func (s *socketHandler) OnEvent(ctx context.Context, c *ws.Client, in ws.Inbound) {
	switch in.Type {
	case ws.EventJoinGroups:
		s.joinGroups(ctx, c)
	case ws.EventSendMessage:
		s.sendMessage(ctx, c, in.Data)
	case ws.EventReadMessage:
		s.readMessage(ctx, c, in.Data)
	case ws.EventTyping:
		s.typing(c, in.Data)
	case ws.EventNotificationRead:
		s.notificationRead(ctx, c, in.Data)
	default:
		logging.Ctx(ctx).Debug().Str("event", sanitizeLogValue(in.Type)).Msg("ignoring unknown socket event")
	}
}

// OnDisconnect logs the departure. The hub unregisters the socket.
func (s *socketHandler) OnDisconnect(ctx context.Context, c *ws.Client) {
	logging.Ctx(ctx).Info().Int64("user_id", c.UserID()).Msg("WebSocket client disconnected")
}

func (s *socketHandler) joinGroups(ctx context.Context, c *ws.Client) {
	groups, err := s.h.presence.JoinGroups(ctx, c.UserID(), c.ID())
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("user_id", c.UserID()).Msg("join_groups failed")
		_ = c.Emit(ws.EventJoinedGroups, joinedGroups{OK: false, Groups: []int64{}})
		return
	}
	if groups == nil {
		groups = []int64{}
	}
	_ = c.Emit(ws.EventJoinedGroups, joinedGroups{OK: true, Groups: groups})
}

func (s *socketHandler) sendMessage(ctx context.Context, c *ws.Client, data json.RawMessage) {
	if !c.AllowSend() {
		metrics.MessagesRejected.WithLabelValues("rate_limited").Inc()
		_ = c.Emit(ws.EventMessageError, ws.ErrorData{Message: "Muitas mensagens, aguarde um instante"})
		return
	}

	req, err := dispatcher.ParseSendPayload(data)
	if err != nil {
		metrics.MessagesRejected.WithLabelValues("validation").Inc()
		_ = c.Emit(ws.EventMessageError, ws.ErrorData{Message: dispatcher.ClientMessage(err)})
		return
	}

	if _, err := s.h.dispatcher.HandleSendMessage(ctx, c.Identity(), c.ID(), req); err != nil {
		_ = c.Emit(ws.EventMessageError, ws.ErrorData{Message: dispatcher.ClientMessage(err)})
	}
}

func (s *socketHandler) readMessage(ctx context.Context, c *ws.Client, data json.RawMessage) {
	messageID, ok := parseMessageID(data)
	if !ok {
		_ = c.Emit(ws.EventMessageError, ws.ErrorData{Message: "id de mensagem inválido"})
		return
	}

	receipt, err := s.h.conversation.Acknowledge(ctx, messageID, c.UserID())
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrNotFound), errors.Is(err, conversation.ErrForbidden):
			logging.Ctx(ctx).Debug().Err(err).Int64("message_id", messageID).Msg("read_message ignored")
		default:
			logging.Ctx(ctx).Error().Err(err).Int64("message_id", messageID).Msg("read_message failed")
		}
		return
	}
	if receipt.Changed {
		s.h.announceRead(receipt.SenderID, receipt.ReadBy, receipt)
	}
}

func (s *socketHandler) typing(c *ws.Client, data json.RawMessage) {
	var req typingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	switch {
	case req.GroupID > 0:
		groupID := int64(req.GroupID)
		room := presence.RoomName(groupID)
		if !contains(s.h.presence.RoomMembers(room), c.ID()) {
			return
		}
		s.h.hub.EmitToRoom(room, c.ID(), ws.EventUserTyping, userTyping{
			UserID:   c.UserID(),
			GroupID:  &groupID,
			IsTyping: req.IsTyping,
		})
	case req.RecipientID > 0:
		_, _ = s.h.hub.EmitToUser(int64(req.RecipientID), ws.EventUserTyping, userTyping{
			UserID:   c.UserID(),
			IsTyping: req.IsTyping,
		})
	}
}

func (s *socketHandler) notificationRead(ctx context.Context, c *ws.Client, data json.RawMessage) {
	if s.h.inbox == nil {
		return
	}
	id, ok := parseNotificationID(data)
	if !ok {
		return
	}
	found, err := s.h.inbox.MarkRead(ctx, c.UserID(), id)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("user_id", c.UserID()).Msg("notification:read failed")
		return
	}
	logging.Ctx(ctx).Debug().Str("notification_id", sanitizeLogValue(id)).Bool("found", found).Msg("notification marked read")
}

// parseNotificationID accepts a bare string id or an object carrying id.
func parseNotificationID(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", false
		}
		id = obj.ID
	}
	id = strings.TrimSpace(id)
	return id, id != "" && len(id) <= 128
}

// parseMessageID accepts a bare id (number or numeric string) or an object
// carrying messageId or id.
func parseMessageID(data json.RawMessage) (int64, bool) {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, "{") {
		var obj struct {
			MessageID auth.UserID `json:"messageId"`
			ID        auth.UserID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return 0, false
		}
		if obj.MessageID > 0 {
			return int64(obj.MessageID), true
		}
		return int64(obj.ID), obj.ID > 0
	}

	id, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	return id, err == nil && id > 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

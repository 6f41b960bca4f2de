// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/conversation"
	"github.com/tomtom215/assistmove/internal/models"
	"github.com/tomtom215/assistmove/internal/presence"
)

const groupForbiddenMessage = "Acesso negado ao grupo"

type createGroupRequest struct {
	Nome      string  `json:"nome" validate:"max=120"`
	Descricao *string `json:"descricao" validate:"omitempty,max=500"`
}

type addMemberRequest struct {
	UsuarioID auth.UserID `json:"usuario_id"`
	Papel     string      `json:"papel" validate:"omitempty,oneof=owner admin membro"`
}

// ListGroups lists the caller's active groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groups, err := h.conversation.ListGroups(r.Context(), identity(r).ID)
	if err != nil {
		respondServiceError(w, err, groupForbiddenMessage)
		return
	}
	respondData(w, http.StatusOK, groups, len(groups), start)
}

// CreateGroup creates a group owned by the caller.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Corpo da requisição inválido", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	group, err := h.conversation.CreateGroup(r.Context(), identity(r).ID, req.Nome, req.Descricao)
	if err != nil {
		respondServiceError(w, err, groupForbiddenMessage)
		return
	}

	h.joinRoom(identity(r).ID, group.ID)
	respondData(w, http.StatusCreated, group, -1, start)
}

// ListMembers lists the members of {id}. Members only.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id de grupo inválido", nil)
		return
	}

	members, err := h.conversation.ListMembers(r.Context(), groupID, identity(r).ID)
	if err != nil {
		respondServiceError(w, err, groupForbiddenMessage)
		return
	}
	respondData(w, http.StatusOK, members, len(members), start)
}

// AddMember adds or updates a member of {id}. Requires a role allowed to
// manage members.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id de grupo inválido", nil)
		return
	}

	var req addMemberRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Corpo da requisição inválido", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	membership, err := h.conversation.AddMember(r.Context(), identity(r).ID, groupID, int64(req.UsuarioID), req.Papel)
	if err != nil {
		respondServiceError(w, err, groupForbiddenMessage)
		return
	}

	h.joinRoom(membership.UsuarioID, groupID)
	respondData(w, http.StatusCreated, membership, -1, start)
}

// GroupMessages returns the history of {id}, oldest first. Members only.
func (h *Handler) GroupMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id de grupo inválido", nil)
		return
	}

	page := conversation.Page{
		Limit:  getIntParam(r, "limit", conversation.GroupHistoryLimit),
		Offset: getIntParam(r, "offset", 0),
	}
	msgs, err := h.conversation.ListGroupMessages(r.Context(), groupID, identity(r).ID, page)
	if err != nil {
		respondServiceError(w, err, groupForbiddenMessage)
		return
	}
	respondData(w, http.StatusOK, msgs, len(msgs), start)
}

// roomJoiner is implemented by registries that can add a socket to a room
// outside of join_groups.
type roomJoiner interface {
	Join(socketID, room string)
}

// joinRoom puts the open sockets of userID into the group's room so typing
// indicators reach them without a new join_groups.
func (h *Handler) joinRoom(userID, groupID int64) {
	joiner, ok := h.presence.(roomJoiner)
	if !ok {
		return
	}
	for _, socketID := range h.presence.Sockets(userID) {
		joiner.Join(socketID, presence.RoomName(groupID))
	}
}

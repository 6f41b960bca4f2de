// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package models defines the persisted chat entities and their wire shapes.
//
// JSON field names follow the Portuguese names the Assist Move clients
// already consume (destinatario_id, grupo_id, conteudo, lida).
package models

import (
	"fmt"
	"time"
)

// MessageKindText is the only message kind the chat produces.
const MessageKindText = "texto"

// Member roles inside a group.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "membro"
)

// User is an addressable account. Owned by the auth subsystem.
type User struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Message is a persisted chat message. Exactly one of RecipientID and
// GroupID is set.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"remetente_id"`
	RecipientID *int64    `json:"destinatario_id,omitempty"`
	GroupID     *int64    `json:"grupo_id,omitempty"`
	Content     string    `json:"conteudo"`
	Kind        string    `json:"tipo"`
	Read        bool      `json:"lida"`
	CreatedAt   time.Time `json:"data_criacao"`
	Attachments []string  `json:"anexos"`
}

// IsGroup reports whether the message belongs to a group conversation.
func (m *Message) IsGroup() bool {
	return m.GroupID != nil
}

// ConversationKey identifies the conversation a message belongs to:
// "group:{id}" or "dm:{low}:{high}" for a private pair.
func (m *Message) ConversationKey() string {
	if m.IsGroup() {
		return GroupConversationKey(*m.GroupID)
	}
	var other int64
	if m.RecipientID != nil {
		other = *m.RecipientID
	}
	return PrivateConversationKey(m.SenderID, other)
}

// GroupConversationKey returns the key of a group conversation.
func GroupConversationKey(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

// PrivateConversationKey returns the order-independent key of a private pair.
func PrivateConversationKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// Group is a chat group.
type Group struct {
	ID          int64     `json:"id"`
	Nome        string    `json:"nome"`
	Descricao   *string   `json:"descricao"`
	Ativo       bool      `json:"ativo"`
	DataCriacao time.Time `json:"data_criacao"`
}

// GroupMember is a membership row joined with the user profile.
type GroupMember struct {
	UsuarioID int64  `json:"usuario_id"`
	Papel     string `json:"papel"`
	Nome      string `json:"nome"`
	Email     string `json:"email"`
}

// Notification is a system notification relayed to a user.
type Notification struct {
	ID      string                 `json:"id"`
	UserID  int64                  `json:"user_id"`
	Type    string                 `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Membership is a single grupo_membros row.
type Membership struct {
	GrupoID   int64  `json:"grupo_id"`
	UsuarioID int64  `json:"usuario_id"`
	Papel     string `json:"papel"`
}

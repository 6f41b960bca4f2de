// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package conversation is the read side of the chat: history, read
// receipts, the user directory and group management.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/assistmove/internal/authz"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/models"
	"github.com/tomtom215/assistmove/internal/store"
)

// Paging bounds.
const (
	DefaultLimit      = 200
	MaxLimit          = 1000
	RecentLimit       = 200
	GroupHistoryLimit = 200
)

var (
	// ErrNotFound is returned for unknown messages and groups.
	ErrNotFound = store.ErrNotFound

	// ErrForbidden is returned when the caller is not a participant.
	ErrForbidden = errors.New("access denied")

	// ErrNotAdmin is returned when a member lacks the role for an action.
	ErrNotAdmin = errors.New("only group administrators may do this")
)

// InputError rejects a request argument. Message is shown to the client.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// Store is the persistence the read model needs.
type Store interface {
	Conversation(ctx context.Context, userID, otherID int64, limit, offset int) ([]models.Message, error)
	RecentPrivateMessages(ctx context.Context, userID int64, limit int) ([]models.Message, error)
	GroupMessages(ctx context.Context, groupID int64, limit, offset int) ([]models.Message, error)
	PrivateMessage(ctx context.Context, id int64) (*models.Message, error)
	MarkPrivateRead(ctx context.Context, id, readerID int64) (bool, error)
	MemberRole(ctx context.Context, groupID, userID int64) (string, error)
	CreateGroup(ctx context.Context, creatorID int64, nome string, descricao *string) (*models.Group, error)
	AddGroupMember(ctx context.Context, groupID, userID int64, papel string) (*models.Membership, error)
	GroupsForUser(ctx context.Context, userID int64) ([]models.Group, error)
	GroupMembers(ctx context.Context, groupID int64) ([]models.GroupMember, error)
	ActiveUsers(ctx context.Context) ([]models.User, error)
}

// Page selects a window of history.
type Page struct {
	Limit  int
	Offset int
}

// normalize applies the default and caps the limit.
func (p Page) normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Receipt describes the outcome of a read acknowledgement.
type Receipt struct {
	MessageID int64 `json:"messageId"`
	ReadBy    int64 `json:"readBy"`
	SenderID  int64 `json:"-"`
	Changed   bool  `json:"-"`
}

// Service answers history queries and manages groups.
type Service struct {
	store    Store
	enforcer *authz.Enforcer
}

// NewService creates a Service.
func NewService(s Store, enforcer *authz.Enforcer) *Service {
	return &Service{store: s, enforcer: enforcer}
}

// GetConversation returns the private messages between userID and otherID,
// oldest first.
func (s *Service) GetConversation(ctx context.Context, userID, otherID int64, page Page) ([]models.Message, error) {
	if otherID <= 0 {
		return nil, &InputError{Message: "id de usuário inválido"}
	}
	page = page.normalize(DefaultLimit, MaxLimit)
	msgs, err := s.store.Conversation(ctx, userID, otherID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return nonNil(msgs), nil
}

// ListConversations returns the latest private messages involving userID,
// newest first.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]models.Message, error) {
	msgs, err := s.store.RecentPrivateMessages(ctx, userID, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	return nonNil(msgs), nil
}

// MarkRead flags a private message read. Only its recipient may do so. It
// reports false when the message was already read.
func (s *Service) MarkRead(ctx context.Context, messageID, readerID int64) (bool, error) {
	r, err := s.Acknowledge(ctx, messageID, readerID)
	if err != nil {
		return false, err
	}
	return r.Changed, nil
}

// Acknowledge is MarkRead returning the receipt to broadcast.
func (s *Service) Acknowledge(ctx context.Context, messageID, readerID int64) (*Receipt, error) {
	msg, err := s.store.PrivateMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.RecipientID == nil || *msg.RecipientID != readerID {
		return nil, ErrForbidden
	}

	r := &Receipt{MessageID: msg.ID, ReadBy: readerID, SenderID: msg.SenderID}
	if msg.Read {
		return r, nil
	}

	r.Changed, err = s.store.MarkPrivateRead(ctx, messageID, readerID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListGroupMessages returns a group's history, newest first. Only members
// may read it.
func (s *Service) ListGroupMessages(ctx context.Context, groupID, userID int64, page Page) ([]models.Message, error) {
	if err := s.authorize(ctx, groupID, userID, authz.ActionRead); err != nil {
		return nil, err
	}
	page = page.normalize(GroupHistoryLimit, GroupHistoryLimit)
	msgs, err := s.store.GroupMessages(ctx, groupID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("load group messages: %w", err)
	}
	return nonNil(msgs), nil
}

// ListUsers returns every active user except userID.
func (s *Service) ListUsers(ctx context.Context, userID int64) ([]models.User, error) {
	users, err := s.store.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListGroups returns the groups userID belongs to.
func (s *Service) ListGroups(ctx context.Context, userID int64) ([]models.Group, error) {
	groups, err := s.store.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// ListMembers returns the members of a group the caller belongs to.
func (s *Service) ListMembers(ctx context.Context, groupID, userID int64) ([]models.GroupMember, error) {
	if err := s.authorize(ctx, groupID, userID, authz.ActionListMembers); err != nil {
		return nil, err
	}
	members, err := s.store.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if members == nil {
		members = []models.GroupMember{}
	}
	return members, nil
}

// CreateGroup creates a group owned by creatorID, who becomes its admin.
func (s *Service) CreateGroup(ctx context.Context, creatorID int64, nome string, descricao *string) (*models.Group, error) {
	nome = strings.TrimSpace(nome)
	if nome == "" {
		return nil, &InputError{Message: "nome é obrigatório"}
	}
	if descricao != nil {
		d := strings.TrimSpace(*descricao)
		descricao = &d
		if d == "" {
			descricao = nil
		}
	}

	group, err := s.store.CreateGroup(ctx, creatorID, nome, descricao)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	logging.Ctx(ctx).Info().
		Int64("group_id", group.ID).
		Int64("creator_id", creatorID).
		Msg("group created")
	return group, nil
}

// AddMember adds or updates userID's role in the group. The actor must be an
// admin or owner. An empty papel means membro.
func (s *Service) AddMember(ctx context.Context, actorID, groupID, userID int64, papel string) (*models.Membership, error) {
	if userID <= 0 {
		return nil, &InputError{Message: "usuario_id é obrigatório"}
	}
	if papel == "" {
		papel = models.RoleMember
	}
	if !validRole(papel) {
		return nil, &InputError{Message: "papel inválido"}
	}

	if err := s.authorize(ctx, groupID, actorID, authz.ActionAddMember); err != nil {
		return nil, err
	}

	m, err := s.store.AddGroupMember(ctx, groupID, userID, papel)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	logging.Ctx(ctx).Info().
		Int64("group_id", groupID).
		Int64("user_id", userID).
		Str("papel", papel).
		Msg("group member added")
	return m, nil
}

// authorize checks membership and then the role policy. Non-members get
// ErrForbidden, members without the permission get ErrNotAdmin.
func (s *Service) authorize(ctx context.Context, groupID, userID int64, action string) error {
	role, err := s.store.MemberRole(ctx, groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("load membership: %w", err)
	}

	allowed, err := s.enforcer.Can(role, action)
	if err != nil {
		return err
	}
	if !allowed {
		if action == authz.ActionAddMember {
			return ErrNotAdmin
		}
		return ErrForbidden
	}
	return nil
}

func validRole(papel string) bool {
	switch papel {
	case models.RoleOwner, models.RoleAdmin, models.RoleMember:
		return true
	}
	return false
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}

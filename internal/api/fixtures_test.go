// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/authz"
	"github.com/tomtom215/assistmove/internal/config"
	"github.com/tomtom215/assistmove/internal/conversation"
	"github.com/tomtom215/assistmove/internal/dispatcher"
	"github.com/tomtom215/assistmove/internal/gate"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/models"
	"github.com/tomtom215/assistmove/internal/presence"
	"github.com/tomtom215/assistmove/internal/queue"
	"github.com/tomtom215/assistmove/internal/store"
	ws "github.com/tomtom215/assistmove/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

const (
	testSecret    = "api_test_secret_with_more_than_32_characters"
	allowedOrigin = "http://allowed.test"
)

type memberKey struct{ group, user int64 }

// memStore backs the read model, the dispatcher and presence in memory.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*models.Message
	groups   map[int64]*models.Group
	roles    map[memberKey]string
	users    []models.User
}

func newMemStore() *memStore {
	s := &memStore{
		nextID:   100,
		messages: map[int64]*models.Message{},
		groups:   map[int64]*models.Group{},
		roles:    map[memberKey]string{},
		users: []models.User{
			{ID: 1, Nome: "Ana", Email: "ana@example.com"},
			{ID: 2, Nome: "Bruno", Email: "bruno@example.com"},
			{ID: 3, Nome: "Carla", Email: "carla@example.com"},
		},
	}
	s.groups[10] = &models.Group{ID: 10, Nome: "Equipe", Ativo: true}
	s.roles[memberKey{10, 1}] = models.RoleOwner
	s.roles[memberKey{10, 2}] = models.RoleMember
	return s
}

func (s *memStore) insert(m *models.Message) *models.Message {
	s.nextID++
	m.ID = s.nextID
	m.Kind = models.MessageKindText
	m.CreatedAt = time.Now().UTC()
	s.messages[m.ID] = m
	cp := *m
	return &cp
}

func (s *memStore) InsertPrivateMessage(_ context.Context, senderID, recipientID int64, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(&models.Message{SenderID: senderID, RecipientID: &recipientID, Content: content}), nil
}

func (s *memStore) InsertGroupMessage(_ context.Context, senderID, groupID int64, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(&models.Message{SenderID: senderID, GroupID: &groupID, Content: content}), nil
}

func (s *memStore) IsGroupMember(_ context.Context, groupID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roles[memberKey{groupID, userID}]
	return ok, nil
}

func (s *memStore) GroupMemberIDs(_ context.Context, groupID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for k := range s.roles {
		if k.group == groupID {
			ids = append(ids, k.user)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) GroupIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for k := range s.roles {
		if k.user == userID {
			ids = append(ids, k.group)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) MarkPrivateReadBatch(_ context.Context, ids []int64, recipientID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m, ok := s.messages[id]; ok && m.RecipientID != nil && *m.RecipientID == recipientID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) Conversation(_ context.Context, userID, otherID int64, limit, offset int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.sortedLocked() {
		if m.RecipientID == nil {
			continue
		}
		if (m.SenderID == userID && *m.RecipientID == otherID) || (m.SenderID == otherID && *m.RecipientID == userID) {
			out = append(out, *m)
		}
	}
	return page(out, limit, offset), nil
}

func (s *memStore) RecentPrivateMessages(_ context.Context, userID int64, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	msgs := s.sortedLocked()
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.RecipientID != nil && (m.SenderID == userID || *m.RecipientID == userID) {
			out = append(out, *m)
		}
	}
	return page(out, limit, 0), nil
}

func (s *memStore) GroupMessages(_ context.Context, groupID int64, limit, offset int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.sortedLocked() {
		if m.GroupID != nil && *m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return page(out, limit, offset), nil
}

func (s *memStore) PrivateMessage(_ context.Context, id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.RecipientID == nil {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) MarkPrivateRead(_ context.Context, id, readerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.RecipientID == nil || *m.RecipientID != readerID || m.Read {
		return false, nil
	}
	m.Read = true
	return true, nil
}

func (s *memStore) MemberRole(_ context.Context, groupID, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[memberKey{groupID, userID}]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func (s *memStore) CreateGroup(_ context.Context, creatorID int64, nome string, descricao *string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g := &models.Group{ID: s.nextID, Nome: nome, Descricao: descricao, Ativo: true, DataCriacao: time.Now().UTC()}
	s.groups[g.ID] = g
	s.roles[memberKey{g.ID, creatorID}] = models.RoleAdmin
	return g, nil
}

func (s *memStore) AddGroupMember(_ context.Context, groupID, userID int64, papel string) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[memberKey{groupID, userID}] = papel
	return &models.Membership{GrupoID: groupID, UsuarioID: userID, Papel: papel}, nil
}

func (s *memStore) GroupsForUser(_ context.Context, userID int64) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Group
	for k := range s.roles {
		if k.user == userID {
			out = append(out, *s.groups[k.group])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GroupMembers(_ context.Context, groupID int64) ([]models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GroupMember
	for k, role := range s.roles {
		if k.group == groupID {
			out = append(out, models.GroupMember{UsuarioID: k.user, Papel: role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsuarioID < out[j].UsuarioID })
	return out, nil
}

func (s *memStore) ActiveUsers(context.Context) ([]models.User, error) {
	return append([]models.User(nil), s.users...), nil
}

func (s *memStore) isRead(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[id] != nil && s.messages[id].Read
}

// sortedLocked must be called with mu held.
func (s *memStore) sortedLocked() []*models.Message {
	out := make([]*models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func page(msgs []models.Message, limit, offset int) []models.Message {
	if offset >= len(msgs) {
		return nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs
}

// memQueue is an in-memory offline queue and notification inbox.
type memQueue struct {
	mu     sync.Mutex
	lists  map[int64][]queue.Envelope
	unread map[int64][]queue.Envelope
}

func newMemQueue() *memQueue {
	return &memQueue{lists: map[int64][]queue.Envelope{}, unread: map[int64][]queue.Envelope{}}
}

func (q *memQueue) Enqueue(_ context.Context, userID int64, env queue.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[userID] = append(q.lists[userID], env)
	return nil
}

func (q *memQueue) Drain(_ context.Context, userID int64) ([]queue.Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	envs := q.lists[userID]
	delete(q.lists, userID)
	return envs, nil
}

func (q *memQueue) Len(_ context.Context, userID int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.lists[userID])), nil
}

func (q *memQueue) Requeue(_ context.Context, userID int64, envs []queue.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[userID] = append(append([]queue.Envelope(nil), envs...), q.lists[userID]...)
	return nil
}

func (q *memQueue) Keep(_ context.Context, userID int64, env queue.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unread[userID] = append(q.unread[userID], env)
	return nil
}

func (q *memQueue) Unread(_ context.Context, userID int64) ([]queue.Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Envelope(nil), q.unread[userID]...), nil
}

func (q *memQueue) MarkRead(_ context.Context, userID int64, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, env := range q.unread[userID] {
		if env.ID == id {
			q.unread[userID] = append(q.unread[userID][:i], q.unread[userID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (q *memQueue) unreadCount(userID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.unread[userID])
}

func (q *memQueue) Ping(context.Context) error { return nil }

func (q *memQueue) Close() error { return nil }

// testEnv is a running server with in-memory dependencies.
type testEnv struct {
	server   *httptest.Server
	store    *memStore
	queue    *memQueue
	registry *presence.Memory
	hub      *ws.Hub
	jwt      *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			CORSOrigins:       []string{allowedOrigin},
			RateLimitDisabled: true,
		},
		WebSocket: config.WebSocketConfig{Path: "/ws"},
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	st := newMemStore()
	q := newMemQueue()
	registry := presence.NewMemory(st)
	hub := ws.NewHub(registry)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()

	handler := NewHandler(Deps{
		Config:       cfg,
		Conversation: conversation.NewService(st, enforcer),
		Dispatcher:   dispatcher.New(st, registry, hub, q, nil),
		Gate:         gate.New(cfg.Security.CORSOrigins, jwtManager),
		Hub:          hub,
		Presence:     registry,
		Queue:        q,
		Inbox:        q,
	})
	server := httptest.NewServer(NewRouter(handler, jwtManager).Setup())

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-hub.Done()
	})

	return &testEnv{server: server, store: st, queue: q, registry: registry, hub: hub, jwt: jwtManager}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.jwt.GenerateToken(auth.Identity{ID: userID, Name: "user"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func (e *testEnv) request(t *testing.T, method, path string, userID int64, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

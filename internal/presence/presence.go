// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package presence tracks which users are online, through which sockets,
// and which group rooms each socket has joined.
//
// A user is online while at least one socket is registered for them. All
// operations are idempotent: registering the same socket twice or
// unregistering an unknown one leaves the registry unchanged.
//
// A new socket starts pending. It counts as online but is left out of
// ReadySockets until MarkReady, so direct messages keep going to the
// offline queue while that queue is replayed onto the socket.
package presence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
	"github.com/tomtom215/assistmove/internal/models"
)

// Status values carried by user_status events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// MembershipSource resolves the groups a user belongs to.
type MembershipSource interface {
	GroupIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// StatusFunc is called after a user goes online or offline.
type StatusFunc func(userID int64, status string)

// Registry is the presence contract used by the transport and dispatcher.
type Registry interface {
	RegisterConnection(userID int64, socketID string) bool
	UnregisterConnection(userID int64, socketID string) bool
	JoinGroups(ctx context.Context, userID int64, socketID string) ([]int64, error)
	IsOnline(userID int64) bool
	Sockets(userID int64) []string
	ReadySockets(userID int64) []string
	MarkReady(socketID string)
	RoomMembers(room string) []string
	OnlineCount() int
}

// RoomName returns the room a group's sockets join.
func RoomName(groupID int64) string {
	return models.GroupConversationKey(groupID)
}

// Memory is an in-process Registry.
type Memory struct {
	mu          sync.RWMutex
	userSockets map[int64]map[string]struct{}
	socketRooms map[string]map[string]struct{}
	roomSockets map[string]map[string]struct{}
	pending     map[string]struct{}

	memberships MembershipSource
	onStatus    StatusFunc
}

// NewMemory creates an empty registry. memberships may be nil when
// JoinGroups is not used.
func NewMemory(memberships MembershipSource) *Memory {
	return &Memory{
		userSockets: make(map[int64]map[string]struct{}),
		socketRooms: make(map[string]map[string]struct{}),
		roomSockets: make(map[string]map[string]struct{}),
		pending:     make(map[string]struct{}),
		memberships: memberships,
	}
}

// OnStatusChange installs the online/offline transition callback. The
// callback runs outside the registry lock.
func (m *Memory) OnStatusChange(fn StatusFunc) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

// RegisterConnection records socketID for userID and reports whether the
// user was offline before the call.
func (m *Memory) RegisterConnection(userID int64, socketID string) bool {
	m.mu.Lock()
	sockets, ok := m.userSockets[userID]
	if !ok {
		sockets = make(map[string]struct{})
		m.userSockets[userID] = sockets
	}
	if _, dup := sockets[socketID]; dup {
		m.mu.Unlock()
		return false
	}
	sockets[socketID] = struct{}{}
	m.pending[socketID] = struct{}{}
	cameOnline := len(sockets) == 1
	online := len(m.userSockets)
	fn := m.onStatus
	m.mu.Unlock()

	metrics.WSOnlineUsers.Set(float64(online))
	logging.Debug().
		Int64("user_id", userID).
		Str("socket_id", socketID).
		Bool("came_online", cameOnline).
		Msg("socket registered")

	if cameOnline && fn != nil {
		fn(userID, StatusOnline)
	}
	return cameOnline
}

// UnregisterConnection removes socketID and its room memberships. It
// reports whether the user went offline.
func (m *Memory) UnregisterConnection(userID int64, socketID string) bool {
	m.mu.Lock()
	m.leaveAllLocked(socketID)
	delete(m.pending, socketID)

	sockets, ok := m.userSockets[userID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if _, present := sockets[socketID]; !present {
		m.mu.Unlock()
		return false
	}
	delete(sockets, socketID)
	wentOffline := len(sockets) == 0
	if wentOffline {
		delete(m.userSockets, userID)
	}
	online := len(m.userSockets)
	fn := m.onStatus
	m.mu.Unlock()

	metrics.WSOnlineUsers.Set(float64(online))
	logging.Debug().
		Int64("user_id", userID).
		Str("socket_id", socketID).
		Bool("went_offline", wentOffline).
		Msg("socket unregistered")

	if wentOffline && fn != nil {
		fn(userID, StatusOffline)
	}
	return wentOffline
}

// JoinGroups joins socketID to the room of every group userID belongs to
// and returns the group ids.
func (m *Memory) JoinGroups(ctx context.Context, userID int64, socketID string) ([]int64, error) {
	if m.memberships == nil {
		return nil, fmt.Errorf("join groups: no membership source configured")
	}

	groupIDs, err := m.memberships.GroupIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load memberships for user %d: %w", userID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A socket that disconnected while memberships loaded must not be
	// resurrected into rooms.
	if _, ok := m.userSockets[userID][socketID]; !ok {
		return groupIDs, nil
	}
	for _, id := range groupIDs {
		m.joinLocked(socketID, RoomName(id))
	}
	return groupIDs, nil
}

// Join adds socketID to room.
func (m *Memory) Join(socketID, room string) {
	m.mu.Lock()
	m.joinLocked(socketID, room)
	m.mu.Unlock()
}

func (m *Memory) joinLocked(socketID, room string) {
	rooms, ok := m.socketRooms[socketID]
	if !ok {
		rooms = make(map[string]struct{})
		m.socketRooms[socketID] = rooms
	}
	rooms[room] = struct{}{}

	members, ok := m.roomSockets[room]
	if !ok {
		members = make(map[string]struct{})
		m.roomSockets[room] = members
	}
	members[socketID] = struct{}{}
}

func (m *Memory) leaveAllLocked(socketID string) {
	for room := range m.socketRooms[socketID] {
		members := m.roomSockets[room]
		delete(members, socketID)
		if len(members) == 0 {
			delete(m.roomSockets, room)
		}
	}
	delete(m.socketRooms, socketID)
}

// IsOnline reports whether userID has at least one registered socket.
func (m *Memory) IsOnline(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userSockets[userID]) > 0
}

// Sockets returns userID's sockets in sorted order.
func (m *Memory) Sockets(userID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.userSockets[userID])
}

// ReadySockets returns userID's sockets that finished their offline
// replay, in sorted order.
func (m *Memory) ReadySockets(userID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.userSockets[userID]))
	for socketID := range m.userSockets[userID] {
		if _, waiting := m.pending[socketID]; !waiting {
			out = append(out, socketID)
		}
	}
	sort.Strings(out)
	return out
}

// MarkReady moves socketID from pending to ready. Unknown sockets are
// ignored.
func (m *Memory) MarkReady(socketID string) {
	m.mu.Lock()
	delete(m.pending, socketID)
	m.mu.Unlock()
}

// RoomMembers returns the sockets joined to room in sorted order.
func (m *Memory) RoomMembers(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.roomSockets[room])
}

// OnlineCount returns the number of online users.
func (m *Memory) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userSockets)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

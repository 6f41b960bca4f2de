// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package dispatcher

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/models"
	"github.com/tomtom215/assistmove/internal/presence"
	"github.com/tomtom215/assistmove/internal/queue"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// fakeStore keeps messages and memberships in memory.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	messages  map[int64]*models.Message
	members   map[int64][]int64
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[int64]*models.Message), members: make(map[int64][]int64)}
}

func (s *fakeStore) insert(m *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.nextID++
	m.ID = s.nextID
	m.Kind = models.MessageKindText
	m.CreatedAt = time.Now().UTC()
	stored := *m
	s.messages[m.ID] = &stored
	return m, nil
}

func (s *fakeStore) InsertPrivateMessage(_ context.Context, senderID, recipientID int64, content string) (*models.Message, error) {
	return s.insert(&models.Message{SenderID: senderID, RecipientID: &recipientID, Content: content})
}

func (s *fakeStore) InsertGroupMessage(_ context.Context, senderID, groupID int64, content string) (*models.Message, error) {
	return s.insert(&models.Message{SenderID: senderID, GroupID: &groupID, Content: content})
}

func (s *fakeStore) IsGroupMember(_ context.Context, groupID, userID int64) (bool, error) {
	for _, id := range s.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) GroupMemberIDs(_ context.Context, groupID int64) ([]int64, error) {
	return s.members[groupID], nil
}

func (s *fakeStore) MarkPrivateReadBatch(_ context.Context, ids []int64, recipientID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok || m.RecipientID == nil || *m.RecipientID != recipientID || m.Read {
			continue
		}
		m.Read = true
		n++
	}
	return n, nil
}

func (s *fakeStore) read(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[id].Read
}

// fakePresence maps users to ready socket ids and records MarkReady calls.
type fakePresence struct {
	ready  map[int64][]string
	marked []string
}

func (p *fakePresence) ReadySockets(userID int64) []string { return p.ready[userID] }

func (p *fakePresence) MarkReady(socketID string) { p.marked = append(p.marked, socketID) }

type emitted struct {
	socket string
	event  string
	data   []byte
}

// fakeEmitter records emitted events. Sockets listed in broken reject them.
type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
	broken map[string]bool
	// failAfter makes the nth successful emit onward fail when > 0.
	failAfter int
	// afterEmit runs outside the lock after each recorded event.
	afterEmit func()
}

func (e *fakeEmitter) EmitToSocket(socketID, event string, data interface{}) error {
	e.mu.Lock()
	if e.broken[socketID] {
		e.mu.Unlock()
		return errors.New("send buffer full")
	}
	if e.failAfter > 0 && len(e.events) >= e.failAfter {
		e.mu.Unlock()
		return errors.New("socket closed")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.events = append(e.events, emitted{socket: socketID, event: event, data: raw})
	hook := e.afterEmit
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (e *fakeEmitter) on(socketID, event string) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, ev := range e.events {
		if ev.socket == socketID && ev.event == event {
			out = append(out, ev)
		}
	}
	return out
}

// memQueue is an in-memory queue.Queue.
type memQueue struct {
	mu     sync.Mutex
	lists  map[int64][]queue.Envelope
	downed bool
}

func newMemQueue() *memQueue { return &memQueue{lists: make(map[int64][]queue.Envelope)} }

func (q *memQueue) Enqueue(_ context.Context, userID int64, env queue.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.downed {
		return &queue.QueueUnavailableError{Op: "enqueue", Err: errors.New("connection refused")}
	}
	q.lists[userID] = append(q.lists[userID], env)
	return nil
}

func (q *memQueue) Drain(_ context.Context, userID int64) ([]queue.Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.downed {
		return nil, &queue.QueueUnavailableError{Op: "drain", Err: errors.New("connection refused")}
	}
	out := q.lists[userID]
	delete(q.lists, userID)
	return out, nil
}

func (q *memQueue) Requeue(_ context.Context, userID int64, envs []queue.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.downed {
		return &queue.QueueUnavailableError{Op: "requeue", Err: errors.New("connection refused")}
	}
	q.lists[userID] = append(append([]queue.Envelope(nil), envs...), q.lists[userID]...)
	return nil
}

func (q *memQueue) Len(_ context.Context, userID int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.lists[userID])), nil
}

func (q *memQueue) Close() error { return nil }

type recordingPublisher struct {
	published []*models.Message
	err       error
}

func (p *recordingPublisher) PublishMessage(_ context.Context, msg *models.Message) error {
	p.published = append(p.published, msg)
	return p.err
}

type fixture struct {
	store    *fakeStore
	presence *fakePresence
	emitter  *fakeEmitter
	queue    *memQueue
	pub      *recordingPublisher
	d        *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		store:    newFakeStore(),
		presence: &fakePresence{ready: map[int64][]string{}},
		emitter:  &fakeEmitter{broken: map[string]bool{}},
		queue:    newMemQueue(),
		pub:      &recordingPublisher{},
	}
	f.d = New(f.store, f.presence, f.emitter, f.queue, f.pub)
	return f
}

var (
	alice = auth.Identity{ID: 1, Name: "Alice"}
	bob   = auth.Identity{ID: 2, Name: "Bob"}
	carol = auth.Identity{ID: 3, Name: "Carol"}
)

func decodeMessage(t *testing.T, raw []byte) models.Message {
	t.Helper()
	var m models.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return m
}

func TestDispatch_PrivateOnline(t *testing.T) {
	f := newFixture()
	f.presence.ready[alice.ID] = []string{"a1"}
	f.presence.ready[bob.ID] = []string{"b1", "b2"}

	res, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "oi"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(res.Live) != 1 || res.Live[0] != bob.ID {
		t.Errorf("Live = %v, want [2]", res.Live)
	}

	for _, s := range []string{"b1", "b2"} {
		evs := f.emitter.on(s, EventNewMessage)
		if len(evs) != 1 {
			t.Fatalf("socket %s got %d new_message, want 1", s, len(evs))
		}
		if got := decodeMessage(t, evs[0].data); got.Content != "oi" || got.ID != res.Message.ID {
			t.Errorf("socket %s payload = %+v", s, got)
		}
	}

	acks := f.emitter.on("a1", EventMessageSent)
	if len(acks) != 1 {
		t.Fatalf("sender acks = %d, want 1", len(acks))
	}
	if len(f.emitter.on("a1", EventNewMessage)) != 0 {
		t.Error("sender must not receive new_message for its own message")
	}
	if n, _ := f.queue.Len(context.Background(), bob.ID); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	if len(f.pub.published) != 1 {
		t.Errorf("published = %d, want 1", len(f.pub.published))
	}
}

func TestDispatch_PrivateOfflineQueues(t *testing.T) {
	f := newFixture()
	f.presence.ready[alice.ID] = []string{"a1"}

	res, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "PRIV-1"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(res.Queued) != 1 {
		t.Fatalf("Queued = %v, want [2]", res.Queued)
	}

	envs, _ := f.queue.Drain(context.Background(), bob.ID)
	if len(envs) != 1 {
		t.Fatalf("queued envelopes = %d, want 1", len(envs))
	}
	if envs[0].MessageID != res.Message.ID {
		t.Errorf("MessageID = %d, want %d", envs[0].MessageID, res.Message.ID)
	}
	if envs[0].ConversationKey != "dm:1:2" {
		t.Errorf("ConversationKey = %q, want dm:1:2", envs[0].ConversationKey)
	}
	if len(f.emitter.on("a1", EventMessageSent)) != 1 {
		t.Error("sender should be acknowledged even when the recipient is offline")
	}
}

func TestDispatch_AttachmentsTravelWithoutBeingStored(t *testing.T) {
	f := newFixture()
	f.presence.ready[alice.ID] = []string{"a1"}

	res, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "foto", Attachments: []string{"a.png"}})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	acks := f.emitter.on("a1", EventMessageSent)
	if len(acks) != 1 {
		t.Fatalf("sender acks = %d, want 1", len(acks))
	}
	if got := decodeMessage(t, acks[0].data).Attachments; !reflect.DeepEqual(got, []string{"a.png"}) {
		t.Errorf("ack anexos = %v, want [a.png]", got)
	}

	envs, _ := f.queue.Drain(context.Background(), bob.ID)
	if len(envs) != 1 {
		t.Fatalf("queued envelopes = %d, want 1", len(envs))
	}
	if got := decodeMessage(t, envs[0].Payload).Attachments; !reflect.DeepEqual(got, []string{"a.png"}) {
		t.Errorf("queued anexos = %v, want [a.png]", got)
	}

	f.store.mu.Lock()
	stored := f.store.messages[res.Message.ID]
	f.store.mu.Unlock()
	if len(stored.Attachments) != 0 {
		t.Errorf("stored anexos = %v, want none", stored.Attachments)
	}
}

func TestDispatch_BrokenSocketFallsBackToQueue(t *testing.T) {
	f := newFixture()
	f.presence.ready[bob.ID] = []string{"b1"}
	f.emitter.broken["b1"] = true

	res, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "x"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(res.Queued) != 1 {
		t.Errorf("Queued = %v, want recipient queued", res.Queued)
	}
}

func TestDispatch_QueueDownIsIsolated(t *testing.T) {
	f := newFixture()
	f.queue.downed = true
	f.store.members[9] = []int64{alice.ID, bob.ID, carol.ID}
	f.presence.ready[carol.ID] = []string{"c1"}

	res, err := f.d.Dispatch(context.Background(), alice, "a1", GroupSend{GroupID: 9, Content: "GRP-1"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(res.Live) != 1 || res.Live[0] != carol.ID {
		t.Errorf("Live = %v, want [3]", res.Live)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(res.Failures))
	}

	fe := res.Failures[0]
	if fe.RecipientID != bob.ID || fe.MessageID != res.Message.ID {
		t.Errorf("failure = %+v", fe)
	}
	var qerr *queue.QueueUnavailableError
	if !errors.As(fe, &qerr) {
		t.Errorf("failure should unwrap to QueueUnavailableError, got %v", fe.Err)
	}
	if len(f.emitter.on("a1", EventMessageSent)) != 1 {
		t.Error("sender should be acknowledged despite a recipient failure")
	}
}

func TestDispatch_GroupExcludesSender(t *testing.T) {
	f := newFixture()
	f.store.members[9] = []int64{alice.ID, bob.ID, carol.ID}
	f.presence.ready[alice.ID] = []string{"a1", "a2"}
	f.presence.ready[bob.ID] = []string{"b1"}

	res, err := f.d.Dispatch(context.Background(), alice, "a1", GroupSend{GroupID: 9, Content: "GRP-1"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(res.Live) != 1 || res.Live[0] != bob.ID {
		t.Errorf("Live = %v, want [2]", res.Live)
	}
	if len(res.Queued) != 1 || res.Queued[0] != carol.ID {
		t.Errorf("Queued = %v, want [3]", res.Queued)
	}
	if len(f.emitter.on("a2", EventNewMessage)) != 0 {
		t.Error("sender's other sockets are not group recipients")
	}
	if n, _ := f.queue.Len(context.Background(), alice.ID); n != 0 {
		t.Error("sender must never be queued for a group message")
	}

	got := decodeMessage(t, f.emitter.on("b1", EventNewMessage)[0].data)
	if got.GroupID == nil || *got.GroupID != 9 {
		t.Errorf("payload grupo_id = %v, want 9", got.GroupID)
	}
}

func TestDispatch_GroupNonMember(t *testing.T) {
	f := newFixture()
	f.store.members[9] = []int64{bob.ID}

	_, err := f.d.Dispatch(context.Background(), alice, "a1", GroupSend{GroupID: 9, Content: "x"})
	if !errors.Is(err, ErrNotGroupMember) {
		t.Fatalf("expected ErrNotGroupMember, got %v", err)
	}
	if len(f.store.messages) != 0 {
		t.Error("nothing should be persisted for a non-member")
	}
	if got := ClientMessage(err); got != "Você não pertence a este grupo" {
		t.Errorf("ClientMessage() = %q", got)
	}
}

func TestDispatch_PersistFailure(t *testing.T) {
	f := newFixture()
	f.store.insertErr = errors.New("connection reset")
	f.presence.ready[bob.ID] = []string{"b1"}

	_, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.emitter.events) != 0 {
		t.Error("no event may be emitted when persistence fails")
	}
	if got := ClientMessage(err); got != "Erro ao enviar mensagem" {
		t.Errorf("ClientMessage() = %q", got)
	}
}

func TestDispatch_SelfMessage(t *testing.T) {
	f := newFixture()
	f.presence.ready[alice.ID] = []string{"a1", "a2"}

	res, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: alice.ID, Content: "note"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(f.emitter.on("a2", EventNewMessage)) != 1 {
		t.Error("other sockets of the sender should receive the note")
	}
	if len(f.emitter.on("a1", EventNewMessage)) != 0 {
		t.Error("sending socket only gets the acknowledgement")
	}
	if len(res.Queued) != 0 {
		t.Errorf("self message must not be queued, got %v", res.Queued)
	}
}

func TestDispatch_SelfMessageSingleSocket(t *testing.T) {
	f := newFixture()
	f.presence.ready[alice.ID] = []string{"a1"}

	if _, err := f.d.Dispatch(context.Background(), alice, "a1", PrivateSend{RecipientID: alice.ID, Content: "note"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if n, _ := f.queue.Len(context.Background(), alice.ID); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}

func TestDispatch_PublishFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.pub.err = errors.New("bus closed")

	if _, err := f.d.HandleSendMessage(context.Background(), alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "x"}); err != nil {
		t.Fatalf("HandleSendMessage() error = %v", err)
	}
}

func TestDeliverPending_OfflineScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.members[9] = []int64{alice.ID, bob.ID}
	f.presence.ready[alice.ID] = []string{"a1"}

	priv, err := f.d.HandleSendMessage(ctx, alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "PRIV-1"})
	if err != nil {
		t.Fatalf("private send: %v", err)
	}
	grp, err := f.d.HandleSendMessage(ctx, alice, "a1", GroupSend{GroupID: 9, Content: "GRP-1"})
	if err != nil {
		t.Fatalf("group send: %v", err)
	}

	f.presence.ready[bob.ID] = []string{"b1"}
	n, err := f.d.DeliverPending(ctx, bob.ID, "b1")
	if err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("replayed = %d, want 2", n)
	}

	evs := f.emitter.on("b1", EventNewMessage)
	if len(evs) != 2 {
		t.Fatalf("new_message events = %d, want 2", len(evs))
	}
	first, second := decodeMessage(t, evs[0].data), decodeMessage(t, evs[1].data)
	if first.ID != priv.ID || first.Content != "PRIV-1" {
		t.Errorf("first replayed = %+v, want PRIV-1", first)
	}
	if second.ID != grp.ID || second.Content != "GRP-1" {
		t.Errorf("second replayed = %+v, want GRP-1", second)
	}

	if !f.store.read(priv.ID) {
		t.Error("replayed private message should be marked read")
	}
	if f.store.read(grp.ID) {
		t.Error("group messages carry no read flag")
	}

	// A second connection replays nothing.
	f.presence.ready[bob.ID] = []string{"b1", "b2"}
	n, err = f.d.DeliverPending(ctx, bob.ID, "b2")
	if err != nil || n != 0 {
		t.Errorf("second DeliverPending() = %d, %v; want 0, nil", n, err)
	}
	if len(f.emitter.on("b2", EventNewMessage)) != 0 {
		t.Error("second connection must not receive duplicates")
	}
}

func TestDeliverPending_RequeuesOnEmitFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i, content := range []string{"m1", "m2", "m3"} {
		env, _ := queue.NewEnvelope(int64(i+1), "dm:1:2", "", map[string]string{"conteudo": content})
		_ = f.queue.Enqueue(ctx, bob.ID, env)
	}
	f.emitter.failAfter = 1
	// Another writer, such as a second instance, queues m4 mid-replay.
	f.emitter.afterEmit = func() {
		env, _ := queue.NewEnvelope(4, "dm:1:2", "", map[string]string{"conteudo": "m4"})
		_ = f.queue.Enqueue(ctx, bob.ID, env)
	}

	n, err := f.d.DeliverPending(ctx, bob.ID, "b1")
	if err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	if n != 1 {
		t.Errorf("replayed = %d, want 1", n)
	}

	rest, _ := f.queue.Drain(ctx, bob.ID)
	var ids []int64
	for _, env := range rest {
		ids = append(ids, env.MessageID)
	}
	if len(ids) != 3 || ids[0] != 2 || ids[1] != 3 || ids[2] != 4 {
		t.Errorf("queue after interrupted replay = %v, want [2 3 4]", ids)
	}
}

func TestDeliverPending_CustomEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	env, _ := queue.NewEnvelope(0, "", "notification", models.Notification{UserID: bob.ID, Title: "Aviso"})
	_ = f.queue.Enqueue(ctx, bob.ID, env)

	if _, err := f.d.DeliverPending(ctx, bob.ID, "b1"); err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	if len(f.emitter.on("b1", "notification")) != 1 {
		t.Error("expected notification replayed under its own event name")
	}
}

func TestDeliverPending_QueueDown(t *testing.T) {
	f := newFixture()
	f.queue.downed = true

	_, err := f.d.DeliverPending(context.Background(), bob.ID, "b1")
	var qerr *queue.QueueUnavailableError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected QueueUnavailableError, got %v", err)
	}
	if len(f.presence.marked) != 1 || f.presence.marked[0] != "b1" {
		t.Errorf("marked = %v, socket must go live even when the queue is down", f.presence.marked)
	}
}

func receivedIDs(t *testing.T, e *fakeEmitter, socketID string) []int64 {
	t.Helper()
	var ids []int64
	for _, ev := range e.on(socketID, EventNewMessage) {
		ids = append(ids, decodeMessage(t, ev.data).ID)
	}
	return ids
}

func TestDeliverPending_SocketRegisteredBeforeReplay(t *testing.T) {
	store := newFakeStore()
	emitter := &fakeEmitter{broken: map[string]bool{}}
	q := newMemQueue()
	registry := presence.NewMemory(nil)
	d := New(store, registry, emitter, q, nil)
	ctx := context.Background()

	m1, err := d.HandleSendMessage(ctx, alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "M1"})
	if err != nil {
		t.Fatalf("send M1: %v", err)
	}

	// Bob's socket is registered, but its replay has not run yet.
	registry.RegisterConnection(bob.ID, "b1")
	res, err := d.Dispatch(ctx, alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "M2"})
	if err != nil {
		t.Fatalf("send M2: %v", err)
	}
	if len(res.Queued) != 1 {
		t.Errorf("M2 should queue behind M1 while b1 replays, Live = %v", res.Live)
	}

	if _, err := d.DeliverPending(ctx, bob.ID, "b1"); err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	m3, err := d.HandleSendMessage(ctx, alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "M3"})
	if err != nil {
		t.Fatalf("send M3: %v", err)
	}

	want := []int64{m1.ID, res.Message.ID, m3.ID}
	if got := receivedIDs(t, emitter, "b1"); !reflect.DeepEqual(got, want) {
		t.Errorf("bob received %v, want %v", got, want)
	}
}

func TestDeliverPending_ConcurrentSendsKeepOrder(t *testing.T) {
	store := newFakeStore()
	emitter := &fakeEmitter{broken: map[string]bool{}}
	q := newMemQueue()
	registry := presence.NewMemory(nil)
	d := New(store, registry, emitter, q, nil)
	ctx := context.Background()

	const total = 40
	halfway := make(chan struct{})
	var sent []int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			msg, err := d.HandleSendMessage(ctx, alice, "a1", PrivateSend{RecipientID: bob.ID, Content: "x"})
			if err != nil {
				t.Errorf("send %d: %v", i, err)
				return
			}
			sent = append(sent, msg.ID)
			if i == total/4 {
				close(halfway)
			}
		}
	}()

	<-halfway
	registry.RegisterConnection(bob.ID, "b1")
	if _, err := d.DeliverPending(ctx, bob.ID, "b1"); err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	wg.Wait()

	if got := receivedIDs(t, emitter, "b1"); !reflect.DeepEqual(got, sent) {
		t.Errorf("bob received %v, want send order %v", got, sent)
	}
	if n, _ := q.Len(ctx, bob.ID); n != 0 {
		t.Errorf("queue length = %d, every message should have reached b1", n)
	}
}

func TestClientMessage_Validation(t *testing.T) {
	err := &ValidationError{Field: "conteudo", Message: msgRequiredFields}
	if got := ClientMessage(err); got != msgRequiredFields {
		t.Errorf("ClientMessage() = %q, want %q", got, msgRequiredFields)
	}
}

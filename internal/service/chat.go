package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fruithappens/Coffeecue-sub003/internal/bus"
	"github.com/fruithappens/Coffeecue-sub003/internal/listener"
	"github.com/fruithappens/Coffeecue-sub003/internal/model"
)

// ChatMessagesKey is the shared key holding the full chat log snapshot.
// It is global across stations: every context sees every station's messages
// so station-to-station chat works; station scoping is a display concern.
const ChatMessagesKey = "chat:messages"

// DefaultChatPollInterval is the heartbeat that re-reads the shared log even
// when no change notification fired. Cross-context wake-up is not guaranteed
// to be timely or exactly-once; the poll papers over missed signals.
const DefaultChatPollInterval = 10 * time.Second

var (
	ErrChatNotInitialized = errors.New("chat channel not initialized")
	ErrChatDisposed       = errors.New("chat channel disposed")
)

type chatState int

const (
	chatUninitialized chatState = iota
	chatInitialized
	chatDisposed
)

// ChatService is one station context's view of the shared chat log.
// Lifecycle: Uninitialized → Initialized (polling) → Disposed.
type ChatService struct {
	bus          *bus.Bus
	pollInterval time.Duration
	listeners    *listener.Registry[[]model.ChatMessage]

	mu sync.Mutex
	// pubMu serializes publishes outside mu so an incoming remote merge can
	// never interlock with an outgoing publish.
	pubMu       sync.Mutex
	state       chatState
	identity    model.StationProfile
	messages    []model.ChatMessage
	unsubscribe func()
	stopPoll    chan struct{}
}

func NewChatService(b *bus.Bus, pollInterval time.Duration) *ChatService {
	if pollInterval <= 0 {
		pollInterval = DefaultChatPollInterval
	}
	return &ChatService{
		bus:          b,
		pollInterval: pollInterval,
		listeners:    listener.NewRegistry[[]model.ChatMessage](),
	}
}

// AddListener registers fn for full-log updates; the returned func removes it.
func (s *ChatService) AddListener(fn func([]model.ChatMessage)) func() {
	return s.listeners.Add(fn)
}

// Initialize establishes the identity stamped onto outgoing messages,
// performs one immediate load and starts the heartbeat. Calling it again on
// an initialized channel only updates the identity.
func (s *ChatService) Initialize(ctx context.Context, stationID, stationName, baristaName string) error {
	s.mu.Lock()
	switch s.state {
	case chatDisposed:
		s.mu.Unlock()
		return ErrChatDisposed
	case chatInitialized:
		s.identity = model.StationProfile{StationID: stationID, StationName: stationName, BaristaName: baristaName}
		s.mu.Unlock()
		return nil
	}
	s.identity = model.StationProfile{StationID: stationID, StationName: stationName, BaristaName: baristaName}
	s.state = chatInitialized
	s.unsubscribe = s.bus.Subscribe(ChatMessagesKey, s.onRemote)
	s.stopPoll = make(chan struct{})
	stop := s.stopPoll
	s.mu.Unlock()

	go s.pollLoop(stop)

	s.LoadMessages(ctx)
	log.Printf("[Chat] channel initialized for station %s (%s)", stationID, stationName)
	return nil
}

func (s *ChatService) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.LoadMessages(context.Background())
		case <-stop:
			return
		}
	}
}

// LoadMessages reads the shared snapshot, unions it into the in-memory set
// and notifies listeners with the full current log.
func (s *ChatService) LoadMessages(ctx context.Context) []model.ChatMessage {
	var remote []model.ChatMessage
	if _, err := s.bus.Load(ctx, ChatMessagesKey, &remote); err != nil {
		log.Printf("[Chat] load failed: %v", err)
	}

	s.mu.Lock()
	merged, added := bus.MergeByID(s.messages, remote, messageID)
	if added > 0 {
		sortMessages(merged)
	}
	s.messages = merged
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.listeners.Notify(snapshot)
	return snapshot
}

// onRemote handles a change published by another context.
func (s *ChatService) onRemote(raw []byte) {
	var remote []model.ChatMessage
	if raw != nil {
		if err := json.Unmarshal(raw, &remote); err != nil {
			log.Printf("[Chat] ignoring corrupt remote snapshot: %v", err)
			return
		}
	}

	s.mu.Lock()
	merged, added := bus.MergeByID(s.messages, remote, messageID)
	if added > 0 {
		sortMessages(merged)
	}
	s.messages = merged
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.listeners.Notify(snapshot)
}

// Send stamps a message with the channel identity, appends it and publishes
// the full log. The sender sees its own message synchronously — no round
// trip. Fails only when the channel has no identity yet.
func (s *ChatService) Send(ctx context.Context, content string, isUrgent bool) (model.ChatMessage, error) {
	s.mu.Lock()
	if s.state != chatInitialized {
		s.mu.Unlock()
		return model.ChatMessage{}, ErrChatNotInitialized
	}

	sender := s.identity.BaristaName
	if sender == "" {
		sender = s.identity.StationName
	}
	msg := model.ChatMessage{
		ID:          uuid.NewString(),
		StationID:   s.identity.StationID,
		StationName: s.identity.StationName,
		Sender:      sender,
		BaristaName: s.identity.BaristaName,
		Content:     content,
		IsUrgent:    isUrgent,
		CreatedAt:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	snapshot := s.snapshotLocked()
	s.pubMu.Lock()
	s.mu.Unlock()
	err := s.bus.Publish(ctx, ChatMessagesKey, snapshot)
	s.pubMu.Unlock()

	if err != nil {
		log.Printf("[Chat] publish after send failed: %v", err)
	}
	s.listeners.Notify(snapshot)
	return msg, err
}

// DeleteMessage removes a message by id and republishes the remaining log.
// Returns false when the id is not held locally.
func (s *ChatService) DeleteMessage(ctx context.Context, id string) bool {
	s.mu.Lock()
	if s.state != chatInitialized {
		s.mu.Unlock()
		return false
	}
	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.pubMu.Lock()
	s.mu.Unlock()
	if err := s.bus.Publish(ctx, ChatMessagesKey, snapshot); err != nil {
		log.Printf("[Chat] publish after delete failed: %v", err)
	}
	s.pubMu.Unlock()

	s.listeners.Notify(snapshot)
	return true
}

// ResetMessages clears the shared log. Admin/debug operation.
func (s *ChatService) ResetMessages(ctx context.Context) error {
	s.mu.Lock()
	s.messages = nil
	s.pubMu.Lock()
	s.mu.Unlock()
	err := s.bus.Publish(ctx, ChatMessagesKey, []model.ChatMessage{})
	s.pubMu.Unlock()

	s.listeners.Notify([]model.ChatMessage{})
	return err
}

// Messages returns the current in-memory log.
func (s *ChatService) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Cleanup stops the heartbeat, drops the subscription and listeners, and
// transitions to Disposed. Idempotent.
func (s *ChatService) Cleanup() {
	s.mu.Lock()
	if s.state == chatDisposed {
		s.mu.Unlock()
		return
	}
	if s.stopPoll != nil {
		close(s.stopPoll)
		s.stopPoll = nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.state = chatDisposed
	s.mu.Unlock()

	s.listeners.Clear()
}

func (s *ChatService) snapshotLocked() []model.ChatMessage {
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func messageID(m model.ChatMessage) string { return m.ID }

// sortMessages orders merged entries chronologically. Cross-context order is
// otherwise unspecified; each context's own timestamps are monotonic.
func sortMessages(msgs []model.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

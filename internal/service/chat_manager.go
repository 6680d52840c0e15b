package service

import (
	"context"
	"sync"
	"time"

	"github.com/fruithappens/Coffeecue-sub003/internal/bus"
	"github.com/fruithappens/Coffeecue-sub003/internal/model"
)

// ChatManager hands out one initialized chat channel per station served by
// this process. Channels are created lazily with the station's profile as
// identity and share the one underlying store connection.
type ChatManager struct {
	bus      *bus.Bus
	profiles *ProfileService
	poll     time.Duration
	onUpdate func([]model.ChatMessage)

	mu       sync.Mutex
	channels map[string]*ChatService
	closed   bool
}

func NewChatManager(b *bus.Bus, profiles *ProfileService, poll time.Duration) *ChatManager {
	return &ChatManager{
		bus:      b,
		profiles: profiles,
		poll:     poll,
		channels: make(map[string]*ChatService),
	}
}

// OnUpdate sets a hook attached to every channel (present and future).
// Used to feed the dashboard push hub. Must be called before Channel.
func (m *ChatManager) OnUpdate(fn func([]model.ChatMessage)) {
	m.mu.Lock()
	m.onUpdate = fn
	m.mu.Unlock()
}

// Channel returns the station's chat channel, initializing it on first use.
// A channel becomes visible in the map only after Initialize succeeded, so
// a concurrent caller can never receive one that still rejects sends. Two
// racing first callers may both build a channel; the loser's is disposed.
func (m *ChatManager) Channel(ctx context.Context, stationID string) (*ChatService, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrChatDisposed
	}
	if ch, ok := m.channels[stationID]; ok {
		m.mu.Unlock()
		return ch, nil
	}
	ch := NewChatService(m.bus, m.poll)
	if m.onUpdate != nil {
		ch.AddListener(m.onUpdate)
	}
	m.mu.Unlock()

	profile := m.profiles.Get(ctx, stationID)
	if err := ch.Initialize(ctx, profile.StationID, profile.StationName, profile.BaristaName); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		ch.Cleanup()
		return nil, ErrChatDisposed
	}
	if existing, ok := m.channels[stationID]; ok {
		m.mu.Unlock()
		ch.Cleanup()
		return existing, nil
	}
	m.channels[stationID] = ch
	m.mu.Unlock()
	return ch, nil
}

// Refresh re-stamps a channel's identity after a profile change.
func (m *ChatManager) Refresh(ctx context.Context, stationID string) {
	m.mu.Lock()
	ch, ok := m.channels[stationID]
	m.mu.Unlock()
	if !ok {
		return
	}
	profile := m.profiles.Get(ctx, stationID)
	_ = ch.Initialize(ctx, profile.StationID, profile.StationName, profile.BaristaName)
}

// Close disposes every channel. Idempotent.
func (m *ChatManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	channels := make([]*ChatService, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Cleanup()
	}
}

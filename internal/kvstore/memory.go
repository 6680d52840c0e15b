package kvstore

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Medium is an in-process shared key/value space. Every Attach call creates
// an independent context (the moral equivalent of one more open tab): all
// contexts see the same data, and a write in one context synchronously fires
// the watch handlers of every other context.
//
// It backs tests and single-process deployments; the Postgres store provides
// the same contract across processes.
type Medium struct {
	mu     sync.Mutex
	data   map[string][]byte
	stores map[*MemoryStore]struct{}
}

func NewMedium() *Medium {
	return &Medium{
		data:   make(map[string][]byte),
		stores: make(map[*MemoryStore]struct{}),
	}
}

// Attach creates a new context connected to this medium.
func (m *Medium) Attach() *MemoryStore {
	s := &MemoryStore{
		medium:   m,
		origin:   uuid.NewString(),
		watchers: make(map[string]map[int]func(Change)),
	}
	m.mu.Lock()
	m.stores[s] = struct{}{}
	m.mu.Unlock()
	return s
}

func (m *Medium) write(origin, key string, value []byte) {
	m.mu.Lock()
	if value == nil {
		delete(m.data, key)
	} else {
		cp := make([]byte, len(value))
		copy(cp, value)
		m.data[key] = cp
	}
	var targets []*MemoryStore
	for s := range m.stores {
		if s.origin != origin {
			targets = append(targets, s)
		}
	}
	m.mu.Unlock()

	// Deliver outside the medium lock so a handler can read back through
	// its own store without deadlocking.
	for _, s := range targets {
		s.dispatch(Change{Key: key, Value: value, Origin: origin})
	}
}

func (m *Medium) read(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true
}

func (m *Medium) detach(s *MemoryStore) {
	m.mu.Lock()
	delete(m.stores, s)
	m.mu.Unlock()
}

// MemoryStore is one context attached to a Medium.
type MemoryStore struct {
	medium *Medium
	origin string

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]func(Change)
	closed   bool
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.medium.read(key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	s.medium.write(s.origin, key, value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.medium.write(s.origin, key, nil)
	return nil
}

func (s *MemoryStore) Watch(key string, fn func(Change)) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]func(Change))
	}
	s.watchers[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[key], id)
			s.mu.Unlock()
		})
	}
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.watchers = make(map[string]map[int]func(Change))
	s.mu.Unlock()
	s.medium.detach(s)
	return nil
}

func (s *MemoryStore) dispatch(ch Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.watchers[ch.Key]))
	for _, fn := range s.watchers[ch.Key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[KV] watch handler panic on %q: %v", ch.Key, r)
				}
			}()
			fn(ch)
		}()
	}
}

package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notifyChannel = "kv_changes"

// notifyPayload rides pg_notify. It carries only the key and the writer's
// context id; the value is re-read on delivery because NOTIFY payloads are
// capped well below catalog snapshot sizes.
type notifyPayload struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// PostgresStore implements Store on a kv_entries table, with LISTEN/NOTIFY
// as the cross-context change signal. One PostgresStore is one context; its
// own writes are filtered out of the notification stream by origin id.
type PostgresStore struct {
	pool   *pgxpool.Pool
	origin string

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]func(Change)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:     pool,
		origin:   uuid.NewString(),
		watchers: make(map[string]map[int]func(Change)),
	}
}

// Start launches the listen loop. It returns once LISTEN is established so
// callers do not miss changes written after startup.
func (s *PostgresStore) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	ready := make(chan error, 1)
	go s.listenLoop(runCtx, ready)

	select {
	case err := <-ready:
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (s *PostgresStore) listenLoop(ctx context.Context, ready chan<- error) {
	defer close(s.done)
	first := true

	for {
		if ctx.Err() != nil {
			if first {
				ready <- ctx.Err()
			}
			return
		}

		conn, err := s.pool.Acquire(ctx)
		if err == nil {
			_, err = conn.Exec(ctx, "LISTEN "+notifyChannel)
		}
		if err != nil {
			if conn != nil {
				conn.Release()
			}
			if first {
				ready <- fmt.Errorf("listen %s: %w", notifyChannel, err)
				return
			}
			log.Printf("[KV] listen reconnect failed: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if first {
			first = false
			ready <- nil
		}

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				conn.Release()
				if ctx.Err() != nil {
					return
				}
				log.Printf("[KV] notification wait failed, reconnecting: %v", err)
				time.Sleep(time.Second)
				break
			}
			s.handleNotification(ctx, n.Payload)
		}
	}
}

func (s *PostgresStore) handleNotification(ctx context.Context, payload string) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		log.Printf("[KV] bad notify payload %q: %v", payload, err)
		return
	}
	if p.Origin == s.origin {
		return // own write
	}

	s.mu.Lock()
	watched := len(s.watchers[p.Key]) > 0
	s.mu.Unlock()
	if !watched {
		return
	}

	value, err := s.Get(ctx, p.Key)
	if err != nil && err != ErrNotFound {
		log.Printf("[KV] read after change of %q failed: %v", p.Key, err)
		return
	}
	s.dispatch(Change{Key: p.Key, Value: value, Origin: p.Origin})
}

func (s *PostgresStore) dispatch(ch Change) {
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

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, "SELECT value FROM kv_entries WHERE key = $1", key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value, origin, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, origin = EXCLUDED.origin, updated_at = NOW()
	`, key, value, s.origin)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return s.notify(ctx, key)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM kv_entries WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return s.notify(ctx, key)
}

func (s *PostgresStore) notify(ctx context.Context, key string) error {
	payload, _ := json.Marshal(notifyPayload{Key: key, Origin: s.origin})
	_, err := s.pool.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, string(payload))
	if err != nil {
		return fmt.Errorf("notify %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Watch(key string, fn func(Change)) (remove func()) {
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

func (s *PostgresStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.mu.Lock()
	s.watchers = make(map[string]map[int]func(Change))
	s.mu.Unlock()
	return nil
}

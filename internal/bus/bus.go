// Package bus is the cross-context snapshot bus: each shared key holds the
// full serialized state of one concern, a publish replaces the whole
// snapshot, and other contexts are woken through the store's change signal.
// Publish is the commit — there is no separate local-apply step.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/fruithappens/Coffeecue-sub003/internal/kvstore"
)

type Bus struct {
	store kvstore.Store
}

func New(store kvstore.Store) *Bus {
	return &Bus{store: store}
}

// Publish serializes v and writes it under key. Every other live context
// observes the write through its watch handlers; the writer does not.
func (b *Bus) Publish(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %q: %w", key, err)
	}
	if err := b.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("publish %q: %w", key, err)
	}
	return nil
}

// Load reads the snapshot under key into out. It returns false when the key
// is absent, and treats a corrupt payload as absent (logged, never an
// error): callers fall back to their defaults.
func (b *Bus) Load(ctx context.Context, key string, out any) (bool, error) {
	data, err := b.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %q: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[Bus] corrupt snapshot under %q, ignoring: %v", key, err)
		return false, nil
	}
	return true, nil
}

// Subscribe invokes fn with the raw snapshot whenever another context
// publishes under key. fn receives nil when the key was deleted.
func (b *Bus) Subscribe(key string, fn func(raw []byte)) (remove func()) {
	return b.store.Watch(key, func(ch kvstore.Change) {
		fn(ch.Value)
	})
}

// Delete removes the snapshot under key.
func (b *Bus) Delete(ctx context.Context, key string) error {
	return b.store.Delete(ctx, key)
}

// MergeByID unions remote entries into local by id: remote entries with an
// unseen id are appended in their remote order, entries whose id is already
// present locally are left untouched (the first writer of an id wins; merge
// never edits or removes a local entry). Returns the merged set and the
// number of entries taken from remote.
func MergeByID[T any](local, remote []T, id func(T) string) ([]T, int) {
	seen := make(map[string]struct{}, len(local))
	for _, e := range local {
		seen[id(e)] = struct{}{}
	}
	merged := local
	added := 0
	for _, e := range remote {
		if _, ok := seen[id(e)]; ok {
			continue
		}
		seen[id(e)] = struct{}{}
		merged = append(merged, e)
		added++
	}
	return merged, added
}

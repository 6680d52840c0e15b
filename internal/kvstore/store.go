// Package kvstore provides the shared persistent key/value medium that
// independent station contexts synchronize through. A Store is one context's
// connection to the medium: reads and writes are synchronous, and watch
// handlers fire only for changes made by other contexts (the writer already
// knows what it wrote).
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Change describes a value written by another context.
type Change struct {
	Key    string
	Value  []byte // nil when the key was deleted
	Origin string // context id of the writer
}

// Store is one context's handle on the shared medium.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Watch registers fn for changes to key made by other contexts.
	// The returned func removes the registration and is safe to call twice.
	Watch(key string, fn func(Change)) (remove func())
	Close() error
}

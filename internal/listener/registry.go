// Package listener provides the observer fan-out used to push catalog and
// chat updates to in-process consumers.
package listener

import (
	"log"
	"sync"
)

// Registry fans a payload out to registered listeners. Notify is best-effort:
// a panicking listener is logged and the remaining listeners still run.
type Registry[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{listeners: make(map[int]func(T))}
}

// Add registers fn and returns its removal func. The removal func is safe to
// call more than once and safe to call while a Notify is in flight.
func (r *Registry[T]) Add(fn func(T)) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Notify invokes every registered listener with v.
func (r *Registry[T]) Notify(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		safeCall(fn, v)
	}
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Clear drops all listeners.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.listeners = make(map[int]func(T))
	r.mu.Unlock()
}

func safeCall[T any](fn func(T), v T) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[Listener] listener panic: %v", p)
		}
	}()
	fn(v)
}

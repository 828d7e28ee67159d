// Package kv defines the raw key-value backend contract the ledger's
// persistent storage layer (spec.md §4.2, §6 "Persisted state layout") is
// built on, plus a name->factory registry so a deployment can pick pebble,
// bbolt, leveldb, or an in-memory backend at startup — the same pattern
// the teacher uses for its content-addressed nodestore
// (internal/storage/nodestore.RegisterBackend/CreateBackend).
package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// ErrClosed is returned when operating on a closed backend.
var ErrClosed = errors.New("kv: backend is closed")

// Backend is a byte-oriented, ordered key-value store. All keys passed to
// a single Backend are implicitly namespaced by the caller (the region
// package prefixes every key with its region id) so one Backend instance
// can back every region (spec.md §4.2's "distinct memory region
// identified by a fixed small integer").
type Backend interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// Iterate returns entries with start <= key < end in ascending key
	// order. A nil end means "no upper bound".
	Iterate(ctx context.Context, start, end []byte) (Iterator, error)
	// Close releases any resources (file handles, etc). Safe to call on
	// an in-memory backend as a no-op.
	Close() error
}

// Iterator walks a key range in ascending order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Factory constructs a Backend from a filesystem path (ignored by
// in-memory backends).
type Factory func(path string) (Backend, error)

var (
	mu         sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register adds a named backend factory. Called from each backend
// package's init().
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Open constructs a backend by name.
func Open(name, path string) (Backend, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kv: unknown backend %q", name)
	}
	return f(path)
}

// Available lists registered backend names.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

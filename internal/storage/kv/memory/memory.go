// Package memory implements an in-memory kv.Backend, used for tests and
// for ephemeral/dev deployments that don't need durability.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/icrc151/ledgerd/internal/storage/kv"
)

func init() {
	kv.Register("memory", func(string) (kv.Backend, error) { return New(), nil })
}

// Backend is a sorted in-memory map guarded by a mutex.
type Backend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New constructs an empty in-memory backend.
func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, kv.ErrClosed
	}
	v, ok := b.data[string(key)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return kv.ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	b.data[string(key)] = v
	return nil
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return kv.ErrClosed
	}
	delete(b.data, string(key))
	return nil
}

func (b *Backend) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, kv.ErrClosed
	}
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		kb := []byte(k)
		if bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][2][]byte, len(keys))
	for i, k := range keys {
		pairs[i] = [2][]byte{[]byte(k), b.data[k]}
	}
	return &iterator{pairs: pairs, idx: -1}, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type iterator struct {
	pairs [][2][]byte
	idx   int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.pairs)
}

func (it *iterator) Key() []byte   { return it.pairs[it.idx][0] }
func (it *iterator) Value() []byte { return it.pairs[it.idx][1] }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Close() error  { return nil }

// Package pebble adapts github.com/cockroachdb/pebble to the kv.Backend
// contract. Pebble is the ledger's recommended production backend: an
// LSM-tree store built for exactly this append-heavy, range-scan-heavy
// access pattern (tx log appends, ordered balance/allowance iteration).
package pebble

import (
	"context"

	"github.com/cockroachdb/pebble"

	"github.com/icrc151/ledgerd/internal/storage/kv"
)

func init() {
	kv.Register("pebble", func(path string) (kv.Backend, error) { return Open(path) })
}

// Backend wraps a pebble.DB.
type Backend struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble-backed store at path.
func Open(path string) (*Backend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	v, closer, err := b.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	return b.db.Set(key, value, pebble.Sync)
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	return b.db.Delete(key, pebble.Sync)
}

func (b *Backend) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	it, err := b.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return nil, err
	}
	return &iterator{it: it, first: true}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type iterator struct {
	it    *pebble.Iterator
	first bool
}

func (it *iterator) Next() bool {
	if it.first {
		it.first = false
		return it.it.First()
	}
	return it.it.Next()
}

func (it *iterator) Key() []byte   { return it.it.Key() }
func (it *iterator) Value() []byte { return it.it.Value() }
func (it *iterator) Err() error    { return it.it.Error() }
func (it *iterator) Close() error  { return it.it.Close() }

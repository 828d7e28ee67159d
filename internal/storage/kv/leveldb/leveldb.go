// Package leveldb adapts github.com/syndtr/goleveldb to the kv.Backend
// contract, as an alternative to pebble/bbolt for deployments already
// standardized on leveldb-format stores.
package leveldb

import (
	"context"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/icrc151/ledgerd/internal/storage/kv"
)

func init() {
	kv.Register("leveldb", func(path string) (kv.Backend, error) { return Open(path) })
}

// Backend wraps a leveldb.DB.
type Backend struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a leveldb-backed store at path.
func Open(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	v, err := b.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	return v, err
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	return b.db.Put(key, value, nil)
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	return b.db.Delete(key, nil)
}

func (b *Backend) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	rng := &util.Range{Start: start, Limit: end}
	it := b.db.NewIterator(rng, nil)
	return &iterator{it: it}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type iterator struct {
	it ldbIterator
}

// ldbIterator narrows the goleveldb iterator to the methods we use.
type ldbIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

func (it *iterator) Next() bool    { return it.it.Next() }
func (it *iterator) Key() []byte   { return it.it.Key() }
func (it *iterator) Value() []byte { return it.it.Value() }
func (it *iterator) Err() error    { return it.it.Error() }
func (it *iterator) Close() error  { it.it.Release(); return nil }

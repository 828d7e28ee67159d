// Package bbolt adapts go.etcd.io/bbolt to the kv.Backend contract,
// grounded on the teacher's internal/storage/keyValueDb/bbolt adapter
// (single bucket, cursor-based ordered iteration).
package bbolt

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/icrc151/ledgerd/internal/storage/kv"
)

func init() {
	kv.Register("bbolt", func(path string) (kv.Backend, error) { return Open(path) })
}

var bucketName = []byte("kv")

// Backend wraps a single bbolt database file with one bucket.
type Backend struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt-backed store at path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return kv.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

func (b *Backend) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, err
	}
	return &iterator{tx: tx, cursor: tx.Bucket(bucketName).Cursor(), start: start, end: end, first: true}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type iterator struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	start  []byte
	end    []byte
	first  bool
	k, v   []byte
}

func (it *iterator) Next() bool {
	if it.first {
		it.first = false
		it.k, it.v = it.cursor.Seek(it.start)
	} else {
		it.k, it.v = it.cursor.Next()
	}
	if it.k == nil {
		return false
	}
	if it.end != nil && string(it.k) >= string(it.end) {
		it.k, it.v = nil, nil
		return false
	}
	return true
}

func (it *iterator) Key() []byte   { return it.k }
func (it *iterator) Value() []byte { return it.v }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Close() error  { return it.tx.Rollback() }

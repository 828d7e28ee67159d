// Package region implements the ledger's segmented persisted state
// (spec.md §4.2, §6): a fixed set of memory regions, each either a sorted
// key->value Map or an append-only Log, all multiplexed onto a single
// kv.Backend by prefixing every key with the region's one-byte id. This
// mirrors the teacher's keyValueDb design of one physical store serving
// several logical namespaces, generalized from XRPL's ledger/transaction
// split to the eleven regions this ledger persists.
package region

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/icrc151/ledgerd/internal/storage/kv"
)

// ID identifies one of the fixed memory regions. Values are stable across
// versions: never renumber an in-use region.
type ID uint8

const (
	TokenRegistry  ID = 0  // token id -> encoded TokenMeta
	Balances       ID = 1  // (token,account) balance key -> u128 LE
	Allowances     ID = 2  // (token,owner,spender) key -> u128 LE
	TxLogData      ID = 3  // tx index (be64) -> 256-byte record
	SystemState    ID = 4  // singletons: token nonce, ledger principal
	// 5, 7, 8 reserved for future use.
	ExtendedMemos   ID = 9  // tx index (be64) -> memo bytes > 32B
	AllowanceExpiry ID = 10 // allowance key -> expires_at_ns (u64 LE)
	TxLogCounter    ID = 11 // singleton: persisted next tx index
	Dedup           ID = 12 // dedup key -> tx index (u64 LE)
	Controllers     ID = 13 // principal bytes -> 0x01 marker byte
	HolderCounts    ID = 14 // token id -> holder count (u64 LE)
)

func prefixKey(id ID, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(id)
	copy(out[1:], key)
	return out
}

func rangeBounds(id ID) (start, end []byte) {
	start = []byte{byte(id)}
	if id == 255 {
		return start, nil
	}
	return start, []byte{byte(id) + 1}
}

// Map is a sorted key->value store scoped to one region, supporting get,
// insert, remove, contains, len and ordered iteration (spec.md §4.2).
type Map struct {
	backend kv.Backend
	id      ID
}

// NewMap scopes backend to the given region.
func NewMap(backend kv.Backend, id ID) *Map {
	return &Map{backend: backend, id: id}
}

// Get returns (value, true, nil) if key exists, (nil, false, nil) if not.
func (m *Map) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, err := m.backend.Get(ctx, prefixKey(m.id, key))
	if err == kv.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Insert sets key to value, overwriting any existing entry.
func (m *Map) Insert(ctx context.Context, key, value []byte) error {
	return m.backend.Set(ctx, prefixKey(m.id, key), value)
}

// Remove deletes key if present; removing an absent key is a no-op.
func (m *Map) Remove(ctx context.Context, key []byte) error {
	return m.backend.Delete(ctx, prefixKey(m.id, key))
}

// Contains reports whether key exists in the region.
func (m *Map) Contains(ctx context.Context, key []byte) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

// Len counts entries in the region by ordered scan. Intended for small
// regions (token registry, controllers); callers needing a count over a
// large region (balances, allowances) should maintain a dedicated counter
// region instead (see HolderCounts).
func (m *Map) Len(ctx context.Context) (uint64, error) {
	start, end := rangeBounds(m.id)
	it, err := m.backend.Iterate(ctx, start, end)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	var n uint64
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// Entry is one (key, value) pair yielded by Iterate, with the region
// prefix already stripped from Key.
type Entry struct {
	Key   []byte
	Value []byte
}

// Iterate returns every entry in the region in ascending key order. startKey
// and endKey bound the unprefixed key range; a nil endKey means unbounded.
func (m *Map) Iterate(ctx context.Context, startKey, endKey []byte) ([]Entry, error) {
	regionStart, regionEnd := rangeBounds(m.id)
	lo := prefixKey(m.id, startKey)
	hi := regionEnd
	if endKey != nil {
		hi = prefixKey(m.id, endKey)
	}
	if bytes.Compare(lo, regionStart) < 0 {
		lo = regionStart
	}

	it, err := m.backend.Iterate(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Entry
	for it.Next() {
		k := it.Key()
		v := it.Value()
		entry := Entry{
			Key:   append([]byte(nil), k[1:]...),
			Value: append([]byte(nil), v...),
		}
		out = append(out, entry)
	}
	return out, it.Err()
}

// Log is an append-only sequence of fixed-size records addressed by a
// stable, monotonically increasing 64-bit index (spec.md §4.2's "log
// indexed by stable 64-bit offsets"). The next index is itself persisted
// (in counterRegion) so restart doesn't require a full scan of dataRegion.
type Log struct {
	data    kv.Backend
	dataID  ID
	counter *Map
	next    uint64
}

var counterKey = []byte("next")

// OpenLog loads (or initializes) the log's persisted counter.
func OpenLog(ctx context.Context, backend kv.Backend, dataID, counterRegionID ID) (*Log, error) {
	counter := NewMap(backend, counterRegionID)
	v, ok, err := counter.Get(ctx, counterKey)
	if err != nil {
		return nil, err
	}
	var next uint64
	if ok {
		next = binary.LittleEndian.Uint64(v)
	}
	return &Log{data: backend, dataID: dataID, counter: counter, next: next}, nil
}

func indexKey(index uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], index)
	return k[:]
}

// Append stores record at the next index and returns that index.
func (l *Log) Append(ctx context.Context, record []byte) (uint64, error) {
	index := l.next
	if err := l.data.Set(ctx, prefixKey(l.dataID, indexKey(index)), record); err != nil {
		return 0, err
	}
	l.next++
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], l.next)
	if err := l.counter.Insert(ctx, counterKey, buf[:]); err != nil {
		return 0, err
	}
	return index, nil
}

// Get returns the record at index, if any.
func (l *Log) Get(ctx context.Context, index uint64) ([]byte, bool, error) {
	v, err := l.data.Get(ctx, prefixKey(l.dataID, indexKey(index)))
	if err == kv.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Len returns the number of appended records (and thus the next free
// index).
func (l *Log) Len() uint64 { return l.next }

// Range returns up to limit records starting at index (inclusive), for
// paginated history reads (spec.md §6 get_transactions).
func (l *Log) Range(ctx context.Context, start, limit uint64) ([][]byte, error) {
	if limit == 0 {
		return nil, nil
	}
	end := start + limit
	if end > l.next || end < start {
		end = l.next
	}
	out := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		v, ok, err := l.Get(ctx, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// Package txlog implements the ledger's transaction log and duplicate
// detection (spec.md §4.1, §4.6 step 5 "duplicate suppression"): an
// append-only sequence of 256-byte records, a side map for memos that
// overflow the record's inline 32-byte field, and a dedup map from
// (caller, token, created_at_time, memo) to the tx index it first
// produced.
package txlog

import (
	"context"
	"encoding/binary"

	"github.com/icrc151/ledgerd/internal/ledger/record"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

// Log is the persisted transaction log.
type Log struct {
	entries  *region.Log
	dedup    *region.Map
	extMemos *region.Map
}

// New scopes a Log onto an append-only entries log plus the dedup and
// extended-memo maps.
func New(entries *region.Log, dedup, extMemos *region.Map) *Log {
	return &Log{entries: entries, dedup: dedup, extMemos: extMemos}
}

func indexKey(index uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], index)
	return k[:]
}

// Append encodes rec and stores it at the next tx index. If rec's memo
// overflowed the inline field (record.MemoExtended), fullMemo is stored
// in the extended memo map under the same index.
func (l *Log) Append(ctx context.Context, rec record.Record, fullMemo []byte) (uint64, error) {
	buf := record.Encode(rec)
	index, err := l.entries.Append(ctx, buf[:])
	if err != nil {
		return 0, err
	}
	if rec.MemoExtended() {
		if err := l.extMemos.Insert(ctx, indexKey(index), fullMemo); err != nil {
			return 0, err
		}
	}
	return index, nil
}

// Entry pairs a decoded record with its memo: the full memo (pulled from
// the extended memo map) when the record's inline memo overflowed,
// otherwise the record's 32-byte inline memo field, zero-padded.
type Entry struct {
	Index  uint64
	Record record.Record
	Memo   []byte
}

// Get returns the transaction at index, if any.
func (l *Log) Get(ctx context.Context, index uint64) (Entry, bool, error) {
	raw, ok, err := l.entries.Get(ctx, index)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	var buf [record.Size]byte
	copy(buf[:], raw)
	rec, err := record.Decode(buf)
	if err != nil {
		return Entry{}, false, err
	}
	e := Entry{Index: index, Record: rec}
	if rec.MemoExtended() {
		memo, ok, err := l.extMemos.Get(ctx, indexKey(index))
		if err != nil {
			return Entry{}, false, err
		}
		if ok {
			e.Memo = memo
		}
	} else if rec.HasMemo() {
		e.Memo = append([]byte(nil), rec.Memo[:]...)
	}
	return e, true, nil
}

// Len returns the number of appended transactions.
func (l *Log) Len() uint64 { return l.entries.Len() }

// Range returns up to limit transactions starting at index start, for
// get_transactions pagination (spec.md §6, capped and defaulted by the
// query layer).
func (l *Log) Range(ctx context.Context, start, limit uint64) ([]Entry, error) {
	raws, err := l.entries.Range(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raws))
	for i, raw := range raws {
		index := start + uint64(i)
		var buf [record.Size]byte
		copy(buf[:], raw)
		rec, err := record.Decode(buf)
		if err != nil {
			return nil, err
		}
		e := Entry{Index: index, Record: rec}
		if rec.MemoExtended() {
			memo, ok, err := l.extMemos.Get(ctx, indexKey(index))
			if err != nil {
				return nil, err
			}
			if ok {
				e.Memo = memo
			}
		} else if rec.HasMemo() {
			e.Memo = append([]byte(nil), rec.Memo[:]...)
		}
		out = append(out, e)
	}
	return out, nil
}

// CheckDuplicate looks up a dedup key, returning the tx index it was
// first recorded against, if any.
func (l *Log) CheckDuplicate(ctx context.Context, dedupKey [32]byte) (uint64, bool, error) {
	v, ok, err := l.dedup.Get(ctx, dedupKey[:])
	if err != nil || !ok {
		return 0, false, err
	}
	return binary.LittleEndian.Uint64(v), true, nil
}

// RecordDedup remembers that dedupKey produced txIndex, so a retried
// identical request can be answered without re-executing it.
func (l *Log) RecordDedup(ctx context.Context, dedupKey [32]byte, txIndex uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], txIndex)
	return l.dedup.Insert(ctx, dedupKey[:], buf[:])
}

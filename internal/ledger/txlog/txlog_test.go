package txlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/record"
	"github.com/icrc151/ledgerd/internal/storage/kv/memory"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

func newLog(t *testing.T) *Log {
	backend := memory.New()
	entries, err := region.OpenLog(context.Background(), backend, region.TxLogData, region.TxLogCounter)
	require.NoError(t, err)
	return New(entries, region.NewMap(backend, region.Dedup), region.NewMap(backend, region.ExtendedMemos))
}

func TestAppendAndGetInlineMemo(t *testing.T) {
	ctx := context.Background()
	l := newLog(t)
	rec := record.NewTransfer(keys.TokenID{1}, keys.AccountKey{2}, keys.AccountKey{3}, amount.FromUint64(100), amount.Zero(), 1, []byte("hi"))

	idx, err := l.Append(ctx, rec, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx)

	e, ok, err := l.Get(ctx, idx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.OpTransfer, e.Record.Op)
	require.Equal(t, []byte("hi"), e.Memo[:2])
}

func TestAppendAndGetExtendedMemo(t *testing.T) {
	ctx := context.Background()
	l := newLog(t)
	longMemo := []byte("this memo is definitely longer than thirty two bytes")
	rec := record.NewTransfer(keys.TokenID{1}, keys.AccountKey{2}, keys.AccountKey{3}, amount.FromUint64(1), amount.Zero(), 1, longMemo)
	require.True(t, rec.MemoExtended())

	idx, err := l.Append(ctx, rec, longMemo)
	require.NoError(t, err)

	e, ok, err := l.Get(ctx, idx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, longMemo, e.Memo)
}

func TestLenAndRange(t *testing.T) {
	ctx := context.Background()
	l := newLog(t)
	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, record.NewMint(keys.TokenID{1}, keys.AccountKey{2}, amount.FromUint64(uint64(i)), uint64(i), nil), nil)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(5), l.Len())

	entries, err := l.Range(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].Index)
	require.Equal(t, uint64(2), entries[1].Index)
}

func TestCheckDuplicateAndRecordDedup(t *testing.T) {
	ctx := context.Background()
	l := newLog(t)
	dedupKey := keys.DedupKey([]byte("caller"), keys.TokenID{1}, 1000, nil)

	_, found, err := l.CheckDuplicate(ctx, dedupKey)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, l.RecordDedup(ctx, dedupKey, 7))

	idx, found, err := l.CheckDuplicate(ctx, dedupKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(7), idx)
}

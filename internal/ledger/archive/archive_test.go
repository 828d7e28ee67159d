package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/record"
	"github.com/icrc151/ledgerd/internal/ledger/txlog"
)

func TestRecordAndForAccount(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	defer s.Close()

	var token keys.TokenID
	token[0] = 0xAB
	var from, to keys.AccountKey
	from[0] = 0x01
	to[0] = 0x02
	amt, _ := amount.FromDecimalString("100")
	fee, _ := amount.FromDecimalString("1")

	rec := record.NewTransfer(token, from, to, amt, fee, 1234, nil)
	entry := txlog.Entry{Index: 7, Record: rec}

	require.NoError(t, s.Record(ctx, entry))
	require.NoError(t, s.Record(ctx, entry)) // idempotent re-record

	rows, err := s.ForAccount(ctx, from, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(7), rows[0].Index)
	require.Equal(t, "transfer", rows[0].Op)
	require.Equal(t, "100", rows[0].Amount)

	rows, err = s.ForAccount(ctx, to, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var stranger keys.AccountKey
	stranger[0] = 0xFF
	rows, err = s.ForAccount(ctx, stranger, 10)
	require.NoError(t, err)
	require.Len(t, rows, 0)
}

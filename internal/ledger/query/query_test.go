package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/balances"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/store"
	_ "github.com/icrc151/ledgerd/internal/storage/kv/memory"
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "memory", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	q, err := New(s, time.Now())
	require.NoError(t, err)
	return q, s
}

func TestGetBalanceCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	q, s := newService(t)
	token := keys.TokenID{1}
	acct := keys.AccountKey{2}

	require.NoError(t, s.Balances.SetBalance(ctx, token, acct, amount.FromUint64(100)))
	bal, err := q.GetBalance(ctx, token, acct)
	require.NoError(t, err)
	require.Equal(t, 0, bal.Cmp(amount.FromUint64(100)))

	require.NoError(t, s.Balances.SetBalance(ctx, token, acct, amount.FromUint64(999)))
	stale, err := q.GetBalance(ctx, token, acct)
	require.NoError(t, err)
	require.Equal(t, 0, stale.Cmp(amount.FromUint64(100)), "cached value must be stale until invalidated")

	q.InvalidateBalance(token, acct)
	fresh, err := q.GetBalance(ctx, token, acct)
	require.NoError(t, err)
	require.Equal(t, 0, fresh.Cmp(amount.FromUint64(999)))
}

func TestGetAllowanceDetailsReportsExpiry(t *testing.T) {
	ctx := context.Background()
	q, s := newService(t)
	token := keys.TokenID{1}
	owner := keys.AccountKey{2}
	spender := keys.AccountKey{3}

	require.NoError(t, s.Balances.SetAllowance(ctx, token, owner, spender, balances.Allowance{Amount: amount.FromUint64(100), ExpiresAt: 1}))
	details, err := q.GetAllowanceDetails(ctx, token, owner, spender)
	require.NoError(t, err)
	require.True(t, details.Expired, "expiry of 1ns since epoch must already be past")
}

func TestGetTransactionsOnEmptyLog(t *testing.T) {
	ctx := context.Background()
	q, _ := newService(t)
	count := q.GetTransactionCount(ctx)
	require.Equal(t, uint64(0), count)

	txs, err := q.GetTransactions(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestHealthCheckAndInfo(t *testing.T) {
	ctx := context.Background()
	q, s := newService(t)
	require.NoError(t, s.SetLedgerPrincipal(ctx, []byte("ledger")))

	health := q.HealthCheck(ctx)
	require.True(t, health.Healthy)

	info, err := q.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("ledger"), info.LedgerPrincipal)
	require.Equal(t, uint64(0), info.TokenCount)
}

func TestGetStorageStats(t *testing.T) {
	ctx := context.Background()
	q, s := newService(t)
	require.NoError(t, s.Auth.Add(ctx, []byte("controller")))

	stats, err := q.GetStorageStats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.ControllerCount)
}

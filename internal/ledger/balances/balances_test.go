package balances

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/storage/kv/memory"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

func newStore() *Store {
	backend := memory.New()
	return New(
		region.NewMap(backend, region.Balances),
		region.NewMap(backend, region.Allowances),
		region.NewMap(backend, region.AllowanceExpiry),
		region.NewMap(backend, region.HolderCounts),
	)
}

func TestGetBalanceDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	bal, err := s.GetBalance(ctx, keys.TokenID{1}, keys.AccountKey{2})
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestSetBalanceZeroElisionAndHolderCount(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	token := keys.TokenID{1}
	acct := keys.AccountKey{2}

	n, err := s.GetHolderCount(ctx, token)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	require.NoError(t, s.SetBalance(ctx, token, acct, amount.FromUint64(100)))
	n, err = s.GetHolderCount(ctx, token)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	bal, err := s.GetBalance(ctx, token, acct)
	require.NoError(t, err)
	require.Equal(t, 0, bal.Cmp(amount.FromUint64(100)))

	require.NoError(t, s.SetBalance(ctx, token, acct, amount.Zero()))
	n, err = s.GetHolderCount(ctx, token)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n, "holder count must drop when balance returns to zero")

	bal, err = s.GetBalance(ctx, token, acct)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestHolderCountMultipleAccounts(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	token := keys.TokenID{1}

	require.NoError(t, s.SetBalance(ctx, token, keys.AccountKey{1}, amount.FromUint64(10)))
	require.NoError(t, s.SetBalance(ctx, token, keys.AccountKey{2}, amount.FromUint64(20)))
	require.NoError(t, s.SetBalance(ctx, token, keys.AccountKey{3}, amount.FromUint64(30)))

	n, err := s.GetHolderCount(ctx, token)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	require.NoError(t, s.SetBalance(ctx, token, keys.AccountKey{2}, amount.Zero()))
	n, err = s.GetHolderCount(ctx, token)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
}

func TestAllowanceRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	token := keys.TokenID{1}
	owner := keys.AccountKey{2}
	spender := keys.AccountKey{3}

	a, err := s.GetAllowance(ctx, token, owner, spender)
	require.NoError(t, err)
	require.True(t, a.Amount.IsZero())
	require.Equal(t, uint64(0), a.ExpiresAt)

	require.NoError(t, s.SetAllowance(ctx, token, owner, spender, Allowance{Amount: amount.FromUint64(500), ExpiresAt: 123456}))
	a, err = s.GetAllowance(ctx, token, owner, spender)
	require.NoError(t, err)
	require.Equal(t, 0, a.Amount.Cmp(amount.FromUint64(500)))
	require.Equal(t, uint64(123456), a.ExpiresAt)
}

func TestSetAllowanceZeroClearsExpiry(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	token := keys.TokenID{1}
	owner := keys.AccountKey{2}
	spender := keys.AccountKey{3}

	require.NoError(t, s.SetAllowance(ctx, token, owner, spender, Allowance{Amount: amount.FromUint64(500), ExpiresAt: 123456}))
	require.NoError(t, s.SetAllowance(ctx, token, owner, spender, Allowance{Amount: amount.Zero()}))

	a, err := s.GetAllowance(ctx, token, owner, spender)
	require.NoError(t, err)
	require.True(t, a.Amount.IsZero())
	require.Equal(t, uint64(0), a.ExpiresAt, "clearing the allowance must also clear its expiry")
}

package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/storage/kv/memory"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

func newRegistry() *Registry {
	backend := memory.New()
	return New(region.NewMap(backend, region.TokenRegistry))
}

func nm(name, symbol string, decimals uint8, fee amount.Amount) NewMeta {
	var recipient keys.AccountKey
	recipient[0] = 0xAA
	return NewMeta{Name: name, Symbol: symbol, Decimals: decimals, Fee: fee, FeeRecipient: recipient, CreatedAt: 1, Controller: []byte{0x01}}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()
	id := keys.TokenID{1}

	require.NoError(t, r.Create(ctx, id, nm("Test Coin", "TST", 8, amount.FromUint64(DefaultFee))))

	m, ok, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Test Coin", m.Name)
	require.Equal(t, "TST", m.Symbol)
	require.Equal(t, uint8(8), m.Decimals)
	require.Equal(t, 0, m.Fee.Cmp(amount.FromUint64(DefaultFee)))
	require.True(t, m.TotalSupply.IsZero())
	require.Equal(t, byte(0xAA), m.FeeRecipient[0])
	require.Equal(t, uint64(1), m.CreatedAt)
	require.Equal(t, []byte{0x01}, m.Controller)
}

func TestCreateRejectsDuplicateAndBadBounds(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()
	id := keys.TokenID{2}

	require.NoError(t, r.Create(ctx, id, nm("Coin", "C", 0, amount.Zero())))
	require.Error(t, r.Create(ctx, id, nm("Coin2", "C2", 0, amount.Zero())), "duplicate token id must be rejected")

	require.Error(t, r.Create(ctx, keys.TokenID{3}, nm("", "C", 0, amount.Zero())), "empty name must be rejected")
	require.Error(t, r.Create(ctx, keys.TokenID{4}, nm(strings.Repeat("x", 256), "C", 0, amount.Zero())), "name over 255 bytes must be rejected")
	require.Error(t, r.Create(ctx, keys.TokenID{5}, nm("Coin", "", 0, amount.Zero())), "empty symbol must be rejected")
	require.Error(t, r.Create(ctx, keys.TokenID{6}, nm("Coin", "C", 19, amount.Zero())), "decimals over 18 must be rejected")
}

func TestSetFee(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()
	id := keys.TokenID{7}
	require.NoError(t, r.Create(ctx, id, nm("Coin", "C", 0, amount.FromUint64(100))))

	require.NoError(t, r.SetFee(ctx, id, amount.FromUint64(500)))
	m, _, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, m.Fee.Cmp(amount.FromUint64(500)))
}

func TestAddAndSubSupply(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()
	id := keys.TokenID{8}
	require.NoError(t, r.Create(ctx, id, nm("Coin", "C", 0, amount.Zero())))

	require.NoError(t, r.AddSupply(ctx, id, amount.FromUint64(1000)))
	m, _, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, m.TotalSupply.Cmp(amount.FromUint64(1000)))

	require.NoError(t, r.SubSupply(ctx, id, amount.FromUint64(400)))
	m, _, err = r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, m.TotalSupply.Cmp(amount.FromUint64(600)))

	require.Error(t, r.SubSupply(ctx, id, amount.FromUint64(10_000)), "burning more than supply must fail")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()
	require.NoError(t, r.Create(ctx, keys.TokenID{1}, nm("A", "A", 0, amount.Zero())))
	require.NoError(t, r.Create(ctx, keys.TokenID{2}, nm("B", "B", 0, amount.Zero())))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/icrc151/ledgerd/internal/storage/kv/memory"
)

func TestOpenWiresAllRegions(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.Registry)
	require.NotNil(t, s.Balances)
	require.NotNil(t, s.TxLog)
	require.NotNil(t, s.Auth)
}

func TestNextTokenNoncePersistsAndIncrements(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	defer s.Close()

	n0, err := s.NextTokenNonce(ctx)
	require.NoError(t, err)
	n1, err := s.NextTokenNonce(ctx)
	require.NoError(t, err)
	n2, err := s.NextTokenNonce(ctx)
	require.NoError(t, err)

	require.Equal(t, uint64(0), n0)
	require.Equal(t, uint64(1), n1)
	require.Equal(t, uint64(2), n2)
}

func TestLedgerPrincipal(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.LedgerPrincipal(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetLedgerPrincipal(ctx, []byte("ledger-principal")))
	p, ok, err := s.LedgerPrincipal(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("ledger-principal"), p)
}

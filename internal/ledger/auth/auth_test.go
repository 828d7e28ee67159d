package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/storage/kv/memory"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

func newSet() *Set {
	backend := memory.New()
	return New(region.NewMap(backend, region.Controllers))
}

func TestAddIsControllerRemove(t *testing.T) {
	ctx := context.Background()
	s := newSet()
	p1 := []byte("principal-1")
	p2 := []byte("principal-2")

	ok, err := s.IsController(ctx, p1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Add(ctx, p1))
	ok, err = s.IsController(ctx, p1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Add(ctx, p2))
	require.NoError(t, s.Remove(ctx, p1))
	ok, err = s.IsController(ctx, p1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveLastControllerRefused(t *testing.T) {
	ctx := context.Background()
	s := newSet()
	p1 := []byte("only-one")
	require.NoError(t, s.Add(ctx, p1))

	err := s.Remove(ctx, p1)
	require.Error(t, err)

	ok, err := s.IsController(ctx, p1)
	require.NoError(t, err)
	require.True(t, ok, "last controller must remain after a refused removal")
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	s := newSet()
	p1 := []byte("controller")
	require.NoError(t, s.Add(ctx, p1))

	require.NoError(t, s.Require(ctx, p1))
	require.Error(t, s.Require(ctx, []byte("not-a-controller")))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newSet()
	require.NoError(t, s.Add(ctx, []byte("b")))
	require.NoError(t, s.Add(ctx, []byte("a")))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, []byte("a"), list[0])
	require.Equal(t, []byte("b"), list[1])
}

package kv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/storage/kv"
	_ "github.com/icrc151/ledgerd/internal/storage/kv/bbolt"
	_ "github.com/icrc151/ledgerd/internal/storage/kv/leveldb"
	"github.com/icrc151/ledgerd/internal/storage/kv/memory"
	_ "github.com/icrc151/ledgerd/internal/storage/kv/pebble"
)

func TestBackendsImplementSameContract(t *testing.T) {
	ctx := context.Background()

	backends := map[string]func(t *testing.T) kv.Backend{
		"memory": func(t *testing.T) kv.Backend { return memory.New() },
		"bbolt":  func(t *testing.T) kv.Backend { b, err := kv.Open("bbolt", filepath.Join(t.TempDir(), "db.bolt")); require.NoError(t, err); return b },
		"pebble": func(t *testing.T) kv.Backend { b, err := kv.Open("pebble", filepath.Join(t.TempDir(), "pebble")); require.NoError(t, err); return b },
		"leveldb": func(t *testing.T) kv.Backend {
			b, err := kv.Open("leveldb", filepath.Join(t.TempDir(), "leveldb"))
			require.NoError(t, err)
			return b
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			defer b.Close()

			_, err := b.Get(ctx, []byte("missing"))
			require.ErrorIs(t, err, kv.ErrNotFound)

			require.NoError(t, b.Set(ctx, []byte("a"), []byte("1")))
			require.NoError(t, b.Set(ctx, []byte("b"), []byte("2")))
			require.NoError(t, b.Set(ctx, []byte("c"), []byte("3")))

			v, err := b.Get(ctx, []byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), v)

			it, err := b.Iterate(ctx, []byte("a"), []byte("c"))
			require.NoError(t, err)
			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Err())
			require.NoError(t, it.Close())
			require.Equal(t, []string{"a", "b"}, keys)

			require.NoError(t, b.Delete(ctx, []byte("a")))
			_, err = b.Get(ctx, []byte("a"))
			require.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}

func TestAvailableListsRegisteredBackends(t *testing.T) {
	names := kv.Available()
	require.Contains(t, names, "memory")
	require.Contains(t, names, "bbolt")
	require.Contains(t, names, "pebble")
	require.Contains(t, names, "leveldb")
}

// Package store is the ledger's composition root: it opens a kv.Backend
// and wires every region onto the domain packages (registry, balances,
// txlog, auth) that interpret it, the way the teacher's
// internal/di.Container wires its node's storage, codec and crypto
// pieces together before the server loop starts.
package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/icrc151/ledgerd/internal/ledger/auth"
	"github.com/icrc151/ledgerd/internal/ledger/balances"
	"github.com/icrc151/ledgerd/internal/ledger/registry"
	"github.com/icrc151/ledgerd/internal/ledger/txlog"
	"github.com/icrc151/ledgerd/internal/storage/kv"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

// Store bundles the open backend with every domain-facing view onto it.
type Store struct {
	Backend  kv.Backend
	Registry *registry.Registry
	Balances *balances.Store
	TxLog    *txlog.Log
	Auth     *auth.Set

	system *region.Map
}

// Open opens backendName at path (or in memory, for "memory") and wires
// every region.
func Open(ctx context.Context, backendName, path string) (*Store, error) {
	b, err := kv.Open(backendName, path)
	if err != nil {
		return nil, fmt.Errorf("store: open backend %q: %w", backendName, err)
	}

	entries, err := region.OpenLog(ctx, b, region.TxLogData, region.TxLogCounter)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("store: open tx log: %w", err)
	}

	s := &Store{
		Backend: b,
		Registry: registry.New(region.NewMap(b, region.TokenRegistry)),
		Balances: balances.New(
			region.NewMap(b, region.Balances),
			region.NewMap(b, region.Allowances),
			region.NewMap(b, region.AllowanceExpiry),
			region.NewMap(b, region.HolderCounts),
		),
		TxLog: txlog.New(entries, region.NewMap(b, region.Dedup), region.NewMap(b, region.ExtendedMemos)),
		Auth:  auth.New(region.NewMap(b, region.Controllers)),
		system: region.NewMap(b, region.SystemState),
	}
	return s, nil
}

// Close releases the underlying backend's resources.
func (s *Store) Close() error { return s.Backend.Close() }

var tokenNonceKey = []byte("token_nonce")
var ledgerPrincipalKey = []byte("ledger_principal")

// NextTokenNonce atomically returns the next nonce to feed into
// keys.DeriveTokenID for create_token, persisting the incremented value.
func (s *Store) NextTokenNonce(ctx context.Context) (uint64, error) {
	v, ok, err := s.system.Get(ctx, tokenNonceKey)
	if err != nil {
		return 0, err
	}
	var n uint64
	if ok {
		n = binary.LittleEndian.Uint64(v)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n+1)
	if err := s.system.Insert(ctx, tokenNonceKey, buf[:]); err != nil {
		return 0, err
	}
	return n, nil
}

// LedgerPrincipal returns the principal identifying this ledger instance
// (used as the domain-separation input to token id derivation), or
// ok=false if genesis hasn't set one yet.
func (s *Store) LedgerPrincipal(ctx context.Context) ([]byte, bool, error) {
	return s.system.Get(ctx, ledgerPrincipalKey)
}

// SetLedgerPrincipal records the ledger's own principal at genesis.
func (s *Store) SetLedgerPrincipal(ctx context.Context, principal []byte) error {
	return s.system.Insert(ctx, ledgerPrincipalKey, principal)
}

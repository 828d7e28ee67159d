// Package query implements the ledger's read-only views (spec.md §6):
// balance/allowance lookups, token metadata, transaction history, and the
// supplemented introspection endpoints (get_info, health_check,
// get_storage_stats) recovered from original_source/src/queries.rs. Balance
// lookups are fronted by an LRU cache, the same pattern the teacher uses
// for its nodestore's node cache; allowances and metadata are read from
// the store on every call.
package query

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/registry"
	"github.com/icrc151/ledgerd/internal/ledger/store"
	"github.com/icrc151/ledgerd/internal/ledger/txlog"
)

// DefaultTxPageSize and MaxTxPageSize bound get_transactions (spec.md §6).
const (
	DefaultTxPageSize = 100
	MaxTxPageSize     = 1000
	balanceCacheSize  = 4096
)

// Service answers read-only RPC queries against a store.Store.
type Service struct {
	store      *store.Store
	startedAt  time.Time
	balanceLRU *lru.Cache[balanceCacheKey, amount.Amount]
	balanceSF  singleflight.Group
}

type balanceCacheKey struct {
	token keys.TokenID
	acct  keys.AccountKey
}

// New builds a query Service. startedAt feeds get_info/health_check's
// uptime reporting.
func New(s *store.Store, startedAt time.Time) (*Service, error) {
	c, err := lru.New[balanceCacheKey, amount.Amount](balanceCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{store: s, startedAt: startedAt, balanceLRU: c}, nil
}

// InvalidateBalance drops a cached balance; call after any pipeline
// operation that mutates it, since the cache has no other eviction signal.
func (q *Service) InvalidateBalance(token keys.TokenID, acct keys.AccountKey) {
	q.balanceLRU.Remove(balanceCacheKey{token, acct})
}

// GetBalance returns an account's balance, serving from cache when present.
// Concurrent cache misses for the same (token, account) are collapsed
// into a single store read via balanceSF, so a burst of requests for a
// cold balance doesn't stampede the backend.
func (q *Service) GetBalance(ctx context.Context, token keys.TokenID, acct keys.AccountKey) (amount.Amount, error) {
	key := balanceCacheKey{token, acct}
	if v, ok := q.balanceLRU.Get(key); ok {
		return v, nil
	}

	sfKey := string(token[:]) + string(acct[:])
	v, err, _ := q.balanceSF.Do(sfKey, func() (interface{}, error) {
		if v, ok := q.balanceLRU.Get(key); ok {
			return v, nil
		}
		v, err := q.store.Balances.GetBalance(ctx, token, acct)
		if err != nil {
			return amount.Amount{}, err
		}
		q.balanceLRU.Add(key, v)
		return v, nil
	})
	if err != nil {
		return amount.Amount{}, err
	}
	return v.(amount.Amount), nil
}

// BalancesFor returns an account's balance across every registered token
// it holds a nonzero balance of (spec.md §6 supplemented "get_balances_for").
func (q *Service) BalancesFor(ctx context.Context, acct keys.AccountKey) (map[keys.TokenID]amount.Amount, error) {
	tokens, err := q.store.Registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[keys.TokenID]amount.Amount)
	for _, meta := range tokens {
		bal, err := q.GetBalance(ctx, meta.ID, acct)
		if err != nil {
			return nil, err
		}
		if !bal.IsZero() {
			out[meta.ID] = bal
		}
	}
	return out, nil
}

// AllowanceDetails is the response shape for the supplemented
// get_allowance_details query, which returns the expiry alongside the
// amount (plain get_allowance in spec.md §6 returns only the amount).
type AllowanceDetails struct {
	Allowance amount.Amount
	ExpiresAt uint64
	Expired   bool
}

// GetAllowance returns the allowance amount a spender holds over an
// owner's account, lazily treating an expired allowance as zero.
func (q *Service) GetAllowance(ctx context.Context, token keys.TokenID, owner, spender keys.AccountKey) (amount.Amount, error) {
	a, err := q.store.Balances.GetAllowance(ctx, token, owner, spender)
	if err != nil {
		return amount.Amount{}, err
	}
	if a.ExpiresAt != 0 && uint64(time.Now().UnixNano()) >= a.ExpiresAt {
		return amount.Zero(), nil
	}
	return a.Amount, nil
}

// GetAllowanceDetails is the supplemented query returning the full
// allowance record, including expiry.
func (q *Service) GetAllowanceDetails(ctx context.Context, token keys.TokenID, owner, spender keys.AccountKey) (AllowanceDetails, error) {
	a, err := q.store.Balances.GetAllowance(ctx, token, owner, spender)
	if err != nil {
		return AllowanceDetails{}, err
	}
	expired := a.ExpiresAt != 0 && uint64(time.Now().UnixNano()) >= a.ExpiresAt
	return AllowanceDetails{Allowance: a.Amount, ExpiresAt: a.ExpiresAt, Expired: expired}, nil
}

// GetTokenMetadata returns a registered token's metadata.
func (q *Service) GetTokenMetadata(ctx context.Context, token keys.TokenID) (registry.Meta, bool, error) {
	return q.store.Registry.Get(ctx, token)
}

// ListTokens returns every registered token's metadata.
func (q *Service) ListTokens(ctx context.Context) ([]registry.Meta, error) {
	return q.store.Registry.List(ctx)
}

// GetTotalSupply returns a token's total supply.
func (q *Service) GetTotalSupply(ctx context.Context, token keys.TokenID) (amount.Amount, error) {
	meta, ok, err := q.store.Registry.Get(ctx, token)
	if err != nil {
		return amount.Amount{}, err
	}
	if !ok {
		return amount.Amount{}, fmt.Errorf("query: unknown token")
	}
	return meta.TotalSupply, nil
}

// GetHolderCount returns the number of accounts with a nonzero balance of
// token.
func (q *Service) GetHolderCount(ctx context.Context, token keys.TokenID) (uint64, error) {
	return q.store.Balances.GetHolderCount(ctx, token)
}

// GetTransactionCount returns the length of the transaction log.
func (q *Service) GetTransactionCount(ctx context.Context) uint64 {
	return q.store.TxLog.Len()
}

// GetTransaction returns a single transaction by index.
func (q *Service) GetTransaction(ctx context.Context, index uint64) (txlog.Entry, bool, error) {
	return q.store.TxLog.Get(ctx, index)
}

// GetTransactions returns a page of transactions starting at start. A
// zero limit defaults to DefaultTxPageSize; limit is capped at
// MaxTxPageSize (spec.md §6 "get_transactions").
func (q *Service) GetTransactions(ctx context.Context, start, limit uint64) ([]txlog.Entry, error) {
	if limit == 0 {
		limit = DefaultTxPageSize
	}
	if limit > MaxTxPageSize {
		limit = MaxTxPageSize
	}
	return q.store.TxLog.Range(ctx, start, limit)
}

// ListControllers returns every controller principal.
func (q *Service) ListControllers(ctx context.Context) ([][]byte, error) {
	return q.store.Auth.List(ctx)
}

// Info is the supplemented get_info response: static ledger identity and
// summary counters, recovered from original_source/src/queries.rs's
// info query.
type Info struct {
	LedgerPrincipal []byte
	TokenCount      uint64
	TransactionCount uint64
	UptimeSeconds   float64
}

// GetInfo assembles the ledger's summary info.
func (q *Service) GetInfo(ctx context.Context) (Info, error) {
	principal, _, err := q.store.LedgerPrincipal(ctx)
	if err != nil {
		return Info{}, err
	}
	tokens, err := q.store.Registry.List(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		LedgerPrincipal:  principal,
		TokenCount:       uint64(len(tokens)),
		TransactionCount: q.store.TxLog.Len(),
		UptimeSeconds:    time.Since(q.startedAt).Seconds(),
	}, nil
}

// HealthStatus is the supplemented health_check response.
type HealthStatus struct {
	Healthy bool
	Detail  string
}

// HealthCheck reports whether the storage backend is reachable by
// performing a trivial read against the token registry.
func (q *Service) HealthCheck(ctx context.Context) HealthStatus {
	if _, err := q.store.Registry.List(ctx); err != nil {
		return HealthStatus{Healthy: false, Detail: err.Error()}
	}
	return HealthStatus{Healthy: true, Detail: "ok"}
}

// StorageStats is the supplemented get_storage_stats response: per-region
// entry counts, useful for capacity monitoring (original_source's
// memory-region accounting, surfaced here instead of raw byte offsets
// since Go backends don't expose stable memory page counts).
type StorageStats struct {
	TokenCount        uint64
	TransactionCount  uint64
	ControllerCount   uint64
}

// GetStorageStats reports coarse storage occupancy.
func (q *Service) GetStorageStats(ctx context.Context) (StorageStats, error) {
	tokens, err := q.store.Registry.List(ctx)
	if err != nil {
		return StorageStats{}, err
	}
	controllers, err := q.store.Auth.List(ctx)
	if err != nil {
		return StorageStats{}, err
	}
	return StorageStats{
		TokenCount:       uint64(len(tokens)),
		TransactionCount: q.store.TxLog.Len(),
		ControllerCount:  uint64(len(controllers)),
	}, nil
}

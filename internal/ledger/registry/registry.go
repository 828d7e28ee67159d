// Package registry implements per-token metadata: creation, fee
// configuration, and total supply tracking (spec.md §4.3 "Token
// registry"). Unlike the transaction log record, a token's metadata has
// no bit-exact wire format requirement, so it's persisted as JSON the way
// the teacher persists node configuration — one field addition away from
// a schema migration, not a byte-offset renumbering.
package registry

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

// NewMeta carries the fields Create persists for a fresh token, kept as a
// struct instead of a long positional parameter list since several of its
// fields (FeeRecipient, Logo, Description) are optional.
type NewMeta struct {
	Name         string
	Symbol       string
	Decimals     uint8
	Fee          amount.Amount
	FeeRecipient keys.AccountKey
	Logo         string
	Description  string
	CreatedAt    uint64
	Controller   []byte
}

const (
	minNameLen    = 1
	maxNameLen    = 255
	minSymbolLen  = 1
	maxSymbolLen  = 32
	maxDecimals   = 18
	// DefaultFee is charged when create_token doesn't specify one.
	DefaultFee = 10_000
)

// Meta is a token's registered metadata (spec.md §3 "TokenMetadata").
type Meta struct {
	ID           keys.TokenID
	Name         string
	Symbol       string
	Decimals     uint8
	Fee          amount.Amount
	FeeRecipient keys.AccountKey
	TotalSupply  amount.Amount
	Logo         string
	Description  string
	CreatedAt    uint64
	Controller   []byte
}

type wireMeta struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	Fee          string `json:"fee"`
	FeeRecipient string `json:"fee_recipient"`
	TotalSupply  string `json:"total_supply"`
	Logo         string `json:"logo,omitempty"`
	Description  string `json:"description,omitempty"`
	CreatedAt    uint64 `json:"created_at"`
	Controller   string `json:"controller"`
}

func encode(m Meta) ([]byte, error) {
	return json.Marshal(wireMeta{
		Name:         m.Name,
		Symbol:       m.Symbol,
		Decimals:     m.Decimals,
		Fee:          m.Fee.String(),
		FeeRecipient: hex.EncodeToString(m.FeeRecipient[:]),
		TotalSupply:  m.TotalSupply.String(),
		Logo:         m.Logo,
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
		Controller:   hex.EncodeToString(m.Controller),
	})
}

func decode(id keys.TokenID, buf []byte) (Meta, error) {
	var w wireMeta
	if err := json.Unmarshal(buf, &w); err != nil {
		return Meta{}, err
	}
	fee, ok := amount.FromDecimalString(w.Fee)
	if !ok {
		return Meta{}, fmt.Errorf("registry: bad stored fee %q", w.Fee)
	}
	supply, ok := amount.FromDecimalString(w.TotalSupply)
	if !ok {
		return Meta{}, fmt.Errorf("registry: bad stored total_supply %q", w.TotalSupply)
	}
	var feeRecipient keys.AccountKey
	if w.FeeRecipient != "" {
		raw, err := hex.DecodeString(w.FeeRecipient)
		if err != nil {
			return Meta{}, fmt.Errorf("registry: bad stored fee_recipient %q: %w", w.FeeRecipient, err)
		}
		copy(feeRecipient[:], raw)
	}
	var controller []byte
	if w.Controller != "" {
		raw, err := hex.DecodeString(w.Controller)
		if err != nil {
			return Meta{}, fmt.Errorf("registry: bad stored controller %q: %w", w.Controller, err)
		}
		controller = raw
	}
	return Meta{
		ID:           id,
		Name:         w.Name,
		Symbol:       w.Symbol,
		Decimals:     w.Decimals,
		Fee:          fee,
		FeeRecipient: feeRecipient,
		TotalSupply:  supply,
		Logo:         w.Logo,
		Description:  w.Description,
		CreatedAt:    w.CreatedAt,
		Controller:   controller,
	}, nil
}

// Registry is the persisted token metadata store.
type Registry struct {
	tokens *region.Map
}

// New scopes a registry onto region.TokenRegistry.
func New(tokens *region.Map) *Registry {
	return &Registry{tokens: tokens}
}

// Get returns a token's metadata, or ok=false if unregistered.
func (r *Registry) Get(ctx context.Context, id keys.TokenID) (Meta, bool, error) {
	v, ok, err := r.tokens.Get(ctx, id[:])
	if err != nil || !ok {
		return Meta{}, false, err
	}
	m, err := decode(id, v)
	return m, err == nil, err
}

// Create registers a new token. Fails if name/symbol/decimals are out of
// bounds (spec.md §4.3) or the id is already registered.
func (r *Registry) Create(ctx context.Context, id keys.TokenID, nm NewMeta) error {
	if n := len(nm.Name); n < minNameLen || n > maxNameLen {
		return fmt.Errorf("registry: name length %d not in range %d-%d", n, minNameLen, maxNameLen)
	}
	if n := len(nm.Symbol); n < minSymbolLen || n > maxSymbolLen {
		return fmt.Errorf("registry: symbol length %d not in range %d-%d", n, minSymbolLen, maxSymbolLen)
	}
	if nm.Decimals > maxDecimals {
		return fmt.Errorf("registry: decimals %d exceeds max %d", nm.Decimals, maxDecimals)
	}
	exists, err := r.tokens.Contains(ctx, id[:])
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("registry: token already registered")
	}
	buf, err := encode(Meta{
		ID:           id,
		Name:         nm.Name,
		Symbol:       nm.Symbol,
		Decimals:     nm.Decimals,
		Fee:          nm.Fee,
		FeeRecipient: nm.FeeRecipient,
		TotalSupply:  amount.Zero(),
		Logo:         nm.Logo,
		Description:  nm.Description,
		CreatedAt:    nm.CreatedAt,
		Controller:   nm.Controller,
	})
	if err != nil {
		return err
	}
	return r.tokens.Insert(ctx, id[:], buf)
}

// SetFee updates a registered token's transfer/approve fee.
func (r *Registry) SetFee(ctx context.Context, id keys.TokenID, fee amount.Amount) error {
	m, ok, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("registry: unknown token")
	}
	m.Fee = fee
	buf, err := encode(m)
	if err != nil {
		return err
	}
	return r.tokens.Insert(ctx, id[:], buf)
}

// AddSupply adjusts total_supply by delta (positive for mint, negative
// magnitude applied via SubSupply for burn) and persists the result.
func (r *Registry) AddSupply(ctx context.Context, id keys.TokenID, delta amount.Amount) error {
	m, ok, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("registry: unknown token")
	}
	sum, ok := m.TotalSupply.Add(delta)
	if !ok {
		return fmt.Errorf("registry: total supply overflow")
	}
	m.TotalSupply = sum
	buf, err := encode(m)
	if err != nil {
		return err
	}
	return r.tokens.Insert(ctx, id[:], buf)
}

// SubSupply decreases total_supply by delta (burn). Fails if delta
// exceeds the current supply.
func (r *Registry) SubSupply(ctx context.Context, id keys.TokenID, delta amount.Amount) error {
	m, ok, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("registry: unknown token")
	}
	diff, ok := m.TotalSupply.Sub(delta)
	if !ok {
		return fmt.Errorf("registry: total supply underflow")
	}
	m.TotalSupply = diff
	buf, err := encode(m)
	if err != nil {
		return err
	}
	return r.tokens.Insert(ctx, id[:], buf)
}

// List returns every registered token's metadata in ascending token-id
// order.
func (r *Registry) List(ctx context.Context) ([]Meta, error) {
	entries, err := r.tokens.Iterate(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0, len(entries))
	for _, e := range entries {
		var id keys.TokenID
		copy(id[:], e.Key)
		m, err := decode(id, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Package balances implements the ledger's balance and allowance storage
// (spec.md §4.4): per-(token,account) balances with zero-elision, a
// separate allowance map (amount + optional expiry), and a per-token
// holder count maintained as balances cross the zero boundary.
package balances

import (
	"context"
	"encoding/binary"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/storage/region"
)

// Store is the persisted balance/allowance layer.
type Store struct {
	balances     *region.Map
	allowances   *region.Map
	expiry       *region.Map
	holderCounts *region.Map
}

// New scopes a Store onto the four regions it needs.
func New(balances, allowances, expiry, holderCounts *region.Map) *Store {
	return &Store{balances: balances, allowances: allowances, expiry: expiry, holderCounts: holderCounts}
}

// GetBalance returns an account's balance, defaulting to zero when no
// entry is stored (spec.md §4.4 "balances are zero-elided": an account
// with zero balance simply has no entry).
func (s *Store) GetBalance(ctx context.Context, token keys.TokenID, account keys.AccountKey) (amount.Amount, error) {
	key := keys.BalanceKey(token, account)
	v, ok, err := s.balances.Get(ctx, key[:])
	if err != nil {
		return amount.Amount{}, err
	}
	if !ok {
		return amount.Zero(), nil
	}
	var le [16]byte
	copy(le[:], v)
	return amount.FromLEBytes(le), nil
}

// SetBalance stores an account's new balance. A zero balance removes the
// entry entirely rather than storing an explicit zero, and the token's
// holder count is adjusted as the balance crosses the zero boundary in
// either direction.
func (s *Store) SetBalance(ctx context.Context, token keys.TokenID, account keys.AccountKey, newBalance amount.Amount) error {
	key := keys.BalanceKey(token, account)
	old, err := s.GetBalance(ctx, token, account)
	if err != nil {
		return err
	}
	wasHolder := !old.IsZero()
	isHolder := !newBalance.IsZero()

	if isHolder {
		le := newBalance.ToLEBytes()
		if err := s.balances.Insert(ctx, key[:], le[:]); err != nil {
			return err
		}
	} else if wasHolder {
		if err := s.balances.Remove(ctx, key[:]); err != nil {
			return err
		}
	}

	switch {
	case isHolder && !wasHolder:
		return s.adjustHolderCount(ctx, token, 1)
	case wasHolder && !isHolder:
		return s.adjustHolderCount(ctx, token, -1)
	default:
		return nil
	}
}

func (s *Store) adjustHolderCount(ctx context.Context, token keys.TokenID, delta int64) error {
	n, err := s.GetHolderCount(ctx, token)
	if err != nil {
		return err
	}
	if delta < 0 && n > 0 {
		n--
	} else if delta > 0 {
		n++
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return s.holderCounts.Insert(ctx, token[:], buf[:])
}

// GetHolderCount returns the number of accounts with a nonzero balance of
// token.
func (s *Store) GetHolderCount(ctx context.Context, token keys.TokenID) (uint64, error) {
	v, ok, err := s.holderCounts.Get(ctx, token[:])
	if err != nil || !ok {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}

// Allowance is a stored (amount, optional expiry) pair.
type Allowance struct {
	Amount    amount.Amount
	ExpiresAt uint64 // 0 means no expiry
}

// GetAllowance returns the allowance a spender holds over an owner's
// tokens, defaulting to a zero allowance with no expiry.
func (s *Store) GetAllowance(ctx context.Context, token keys.TokenID, owner, spender keys.AccountKey) (Allowance, error) {
	key := keys.AllowanceKey(token, owner, spender)
	v, ok, err := s.allowances.Get(ctx, key[:])
	if err != nil {
		return Allowance{}, err
	}
	if !ok {
		return Allowance{Amount: amount.Zero()}, nil
	}
	var le [16]byte
	copy(le[:], v)
	a := Allowance{Amount: amount.FromLEBytes(le)}

	expV, ok, err := s.expiry.Get(ctx, key[:])
	if err != nil {
		return Allowance{}, err
	}
	if ok {
		a.ExpiresAt = binary.LittleEndian.Uint64(expV)
	}
	return a, nil
}

// SetAllowance stores a new allowance. An allowance of zero clears both
// the amount and any recorded expiry, so approve(0) fully revokes a
// spender's allowance rather than leaving a stale zero-amount entry
// (spec.md §4.4, §4.6 approve pipeline).
func (s *Store) SetAllowance(ctx context.Context, token keys.TokenID, owner, spender keys.AccountKey, a Allowance) error {
	key := keys.AllowanceKey(token, owner, spender)
	if a.Amount.IsZero() {
		if err := s.allowances.Remove(ctx, key[:]); err != nil {
			return err
		}
		return s.expiry.Remove(ctx, key[:])
	}
	le := a.Amount.ToLEBytes()
	if err := s.allowances.Insert(ctx, key[:], le[:]); err != nil {
		return err
	}
	if a.ExpiresAt == 0 {
		return s.expiry.Remove(ctx, key[:])
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], a.ExpiresAt)
	return s.expiry.Insert(ctx, key[:], buf[:])
}

// Package pipeline implements the ledger's operation pipelines (spec.md
// §4.6): transfer, approve, transfer_from, mint and burn. Transfer,
// approve and transfer_from run the canonical sequence — validate, resolve
// fee, check timestamp drift, check operation preconditions, check for a
// duplicate, commit, append to the log. Mint and burn charge no fee and
// skip the duplicate check: they neither look up nor record a dedup key,
// so a resubmitted mint or burn commits again. The ledger runs single-threaded and
// cooperatively (spec.md §9 "Concurrency"), so commits need no locking:
// a pipeline either fully commits or returns before touching storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/icrc151/ledgerd/internal/ledger"
	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/balances"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/lerr"
	"github.com/icrc151/ledgerd/internal/ledger/record"
	"github.com/icrc151/ledgerd/internal/ledger/registry"
	"github.com/icrc151/ledgerd/internal/ledger/store"
)

// Drift bounds for created_at_time (spec.md §4.6 step 3), matching
// original_source/src/validation.rs's MAX_FUTURE_DRIFT/MAX_PAST_DRIFT.
const (
	MaxFutureDriftNs uint64 = 300_000_000_000 // 300s
	MaxPastDriftNs    uint64 = 600_000_000_000 // 600s
)

// Ledger runs operation pipelines against a store.Store.
type Ledger struct {
	store *store.Store
	now   func() uint64
}

// New builds a Ledger. now returns the current ledger time in
// nanoseconds; production callers pass a monotonic wall-clock source,
// tests pass a fixed or stepped fake.
func New(s *store.Store, now func() uint64) *Ledger {
	return &Ledger{store: s, now: now}
}

// checkCreatedAt enforces spec.md §4.6 step 3: when the caller supplies
// created_at_time, it must fall within [now-MaxPastDrift, now+MaxFutureDrift].
func (l *Ledger) checkCreatedAt(createdAt *uint64) (uint64, *lerr.LedgerError) {
	nowNs := l.now()
	if createdAt == nil {
		return nowNs, nil
	}
	ts := *createdAt
	if ts > nowNs && ts-nowNs > MaxFutureDriftNs {
		return nowNs, lerr.CreatedInFutureErr(nowNs)
	}
	if ts < nowNs && nowNs-ts > MaxPastDriftNs {
		return nowNs, lerr.TooOldErr()
	}
	return ts, nil
}

// resolveFee returns the token's configured fee, or rejects a caller-
// supplied fee that doesn't match it (spec.md §4.6 step 2, BadFee).
func resolveFee(meta registry.Meta, requested *amount.Amount) (amount.Amount, *lerr.LedgerError) {
	if requested == nil {
		return meta.Fee, nil
	}
	if requested.Cmp(meta.Fee) != 0 {
		return amount.Amount{}, lerr.BadFeeErr(meta.Fee)
	}
	return meta.Fee, nil
}

// dedupKeyFor computes the duplicate-submission key from the effective
// timestamp — created_at_time if the caller supplied one, else the ledger's
// current time — always, regardless of whether the caller supplied a
// timestamp (original_source/src/operations.rs:127-165 runs
// compute_dedup_key/check_duplicate unconditionally against
// created_at_time.unwrap_or(now)).
func dedupKeyFor(caller ledger.Principal, token keys.TokenID, effectiveTs uint64, memo []byte) [32]byte {
	return keys.DedupKey(caller, token, effectiveTs, memo)
}

// allowanceEffective returns a's amount, treating an expired allowance
// (ExpiresAt set and already past) as zero without mutating storage —
// expiry is enforced lazily at read time (spec.md §4.4 "Allowance expiry").
func allowanceEffective(a balances.Allowance, nowNs uint64) amount.Amount {
	if a.ExpiresAt != 0 && nowNs >= a.ExpiresAt {
		return amount.Zero()
	}
	return a.Amount
}

// TransferArgs carries a transfer's parameters. Caller owns From.
type TransferArgs struct {
	Caller         ledger.Principal
	FromSubaccount []byte
	To             ledger.Account
	Token          keys.TokenID
	Amount         amount.Amount
	Fee            *amount.Amount
	Memo           []byte
	CreatedAtNs    *uint64
}

// Transfer moves Amount from the caller's account to To, charging the
// token's configured fee (spec.md §4.6 "transfer").
func (l *Ledger) Transfer(ctx context.Context, args TransferArgs) (uint64, *lerr.LedgerError) {
	from := ledger.Account{Owner: args.Caller, Subaccount: args.FromSubaccount}

	if verr := ledger.ValidateTransferParams(from, args.To, args.Amount, args.Memo); verr != nil {
		return 0, verr
	}
	if verr := ledger.ValidateTokenID(args.Token); verr != nil {
		return 0, verr
	}

	meta, ok, err := l.store.Registry.Get(ctx, args.Token)
	if err != nil {
		return 0, lerr.GenericErr(500, "lookup token: %v", err)
	}
	if !ok {
		return 0, lerr.GenericErr(404, "unknown token")
	}
	fee, verr := resolveFee(meta, args.Fee)
	if verr != nil {
		return 0, verr
	}

	effectiveTs, verr := l.checkCreatedAt(args.CreatedAtNs)
	if verr != nil {
		return 0, verr
	}

	total, ok := args.Amount.Add(fee)
	if !ok {
		return 0, lerr.GenericErr(500, "amount+fee overflow")
	}
	fromBal, err := l.store.Balances.GetBalance(ctx, args.Token, from.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read balance: %v", err)
	}
	if fromBal.Less(total) {
		return 0, lerr.InsufficientFundsErr(fromBal)
	}

	dedupKey := dedupKeyFor(args.Caller, args.Token, effectiveTs, args.Memo)
	if existing, found, err := l.store.TxLog.CheckDuplicate(ctx, dedupKey); err != nil {
		return 0, lerr.GenericErr(500, "dedup check: %v", err)
	} else if found {
		return 0, lerr.DuplicateErr(existing)
	}

	newFromBal, _ := fromBal.Sub(total)
	if err := l.store.Balances.SetBalance(ctx, args.Token, from.Key(), newFromBal); err != nil {
		return 0, lerr.GenericErr(500, "debit: %v", err)
	}
	toBal, err := l.store.Balances.GetBalance(ctx, args.Token, args.To.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read recipient balance: %v", err)
	}
	newToBal, ok := toBal.Add(args.Amount)
	if !ok {
		return 0, lerr.GenericErr(500, "credit overflow")
	}
	if err := l.store.Balances.SetBalance(ctx, args.Token, args.To.Key(), newToBal); err != nil {
		return 0, lerr.GenericErr(500, "credit: %v", err)
	}
	if !fee.IsZero() {
		if err := l.creditFee(ctx, args.Token, meta, fee); err != nil {
			return 0, lerr.GenericErr(500, "credit fee: %v", err)
		}
	}

	rec := record.NewTransfer(args.Token, from.Key(), args.To.Key(), args.Amount, fee, effectiveTs, args.Memo)
	index, err := l.store.TxLog.Append(ctx, rec, args.Memo)
	if err != nil {
		return 0, lerr.GenericErr(500, "append: %v", err)
	}
	if err := l.store.TxLog.RecordDedup(ctx, dedupKey, index); err != nil {
		return 0, lerr.GenericErr(500, "record dedup: %v", err)
	}
	return index, nil
}

// creditFee adds fee to the token's configured fee recipient balance
// (spec.md §4.6 step 6 "Credit fee recipient"); total_supply is untouched
// since the fee moves between existing balances rather than being minted
// or burned (original_source/src/operations.rs:181-196).
func (l *Ledger) creditFee(ctx context.Context, token keys.TokenID, meta registry.Meta, fee amount.Amount) error {
	bal, err := l.store.Balances.GetBalance(ctx, token, meta.FeeRecipient)
	if err != nil {
		return err
	}
	newBal, ok := bal.Add(fee)
	if !ok {
		return fmt.Errorf("fee recipient balance overflow")
	}
	return l.store.Balances.SetBalance(ctx, token, meta.FeeRecipient, newBal)
}

// ApproveArgs carries an approve's parameters. Caller owns the allowance.
type ApproveArgs struct {
	Caller            ledger.Principal
	FromSubaccount    []byte
	Spender           ledger.Account
	Token             keys.TokenID
	Amount            amount.Amount
	Fee               *amount.Amount
	Memo              []byte
	CreatedAtNs       *uint64
	ExpectedAllowance *amount.Amount
	ExpiresAt         *uint64
}

// Approve sets the allowance Spender holds over the caller's account
// (spec.md §4.6 "approve"). Unlike transfer, a zero amount is permitted —
// it revokes the allowance.
func (l *Ledger) Approve(ctx context.Context, args ApproveArgs) (uint64, *lerr.LedgerError) {
	owner := ledger.Account{Owner: args.Caller, Subaccount: args.FromSubaccount}

	if verr := ledger.ValidateApproveParams(owner, args.Spender, args.Amount, args.Memo); verr != nil {
		return 0, verr
	}
	if verr := ledger.ValidateTokenID(args.Token); verr != nil {
		return 0, verr
	}

	meta, ok, err := l.store.Registry.Get(ctx, args.Token)
	if err != nil {
		return 0, lerr.GenericErr(500, "lookup token: %v", err)
	}
	if !ok {
		return 0, lerr.GenericErr(404, "unknown token")
	}
	fee, verr := resolveFee(meta, args.Fee)
	if verr != nil {
		return 0, verr
	}

	effectiveTs, verr := l.checkCreatedAt(args.CreatedAtNs)
	if verr != nil {
		return 0, verr
	}

	if args.ExpiresAt != nil && *args.ExpiresAt <= effectiveTs {
		return 0, lerr.ExpiredErr(effectiveTs)
	}

	current, err := l.store.Balances.GetAllowance(ctx, args.Token, owner.Key(), args.Spender.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read allowance: %v", err)
	}
	if args.ExpectedAllowance != nil && current.Amount.Cmp(*args.ExpectedAllowance) != 0 {
		return 0, lerr.AllowanceChangedErr(current.Amount)
	}

	ownerBal, err := l.store.Balances.GetBalance(ctx, args.Token, owner.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read balance: %v", err)
	}
	if ownerBal.Less(fee) {
		return 0, lerr.InsufficientFundsErr(ownerBal)
	}

	dedupKey := dedupKeyFor(args.Caller, args.Token, effectiveTs, args.Memo)
	if existing, found, err := l.store.TxLog.CheckDuplicate(ctx, dedupKey); err != nil {
		return 0, lerr.GenericErr(500, "dedup check: %v", err)
	} else if found {
		return 0, lerr.DuplicateErr(existing)
	}

	newOwnerBal, _ := ownerBal.Sub(fee)
	if err := l.store.Balances.SetBalance(ctx, args.Token, owner.Key(), newOwnerBal); err != nil {
		return 0, lerr.GenericErr(500, "charge fee: %v", err)
	}
	if !fee.IsZero() {
		if err := l.creditFee(ctx, args.Token, meta, fee); err != nil {
			return 0, lerr.GenericErr(500, "credit fee: %v", err)
		}
	}
	var expiresAt uint64
	if args.ExpiresAt != nil {
		expiresAt = *args.ExpiresAt
	}
	if err := l.store.Balances.SetAllowance(ctx, args.Token, owner.Key(), args.Spender.Key(), balances.Allowance{Amount: args.Amount, ExpiresAt: expiresAt}); err != nil {
		return 0, lerr.GenericErr(500, "set allowance: %v", err)
	}

	rec := record.NewApprove(args.Token, owner.Key(), args.Spender.Key(), args.Amount, fee, effectiveTs, args.Memo)
	index, err := l.store.TxLog.Append(ctx, rec, args.Memo)
	if err != nil {
		return 0, lerr.GenericErr(500, "append: %v", err)
	}
	if err := l.store.TxLog.RecordDedup(ctx, dedupKey, index); err != nil {
		return 0, lerr.GenericErr(500, "record dedup: %v", err)
	}
	return index, nil
}

// TransferFromArgs carries a transfer_from's parameters. Caller is the
// spender drawing against an allowance over From.
type TransferFromArgs struct {
	Caller      ledger.Principal
	From        ledger.Account
	To          ledger.Account
	Token       keys.TokenID
	Amount      amount.Amount
	Fee         *amount.Amount
	Memo        []byte
	CreatedAtNs *uint64
}

// TransferFrom moves Amount from From to To using the caller's allowance
// (spec.md §4.6 "transfer_from").
func (l *Ledger) TransferFrom(ctx context.Context, args TransferFromArgs) (uint64, *lerr.LedgerError) {
	spender := ledger.Account{Owner: args.Caller}

	if verr := ledger.ValidateTransferParams(args.From, args.To, args.Amount, args.Memo); verr != nil {
		return 0, verr
	}
	if verr := ledger.ValidateAccount(spender); verr != nil {
		return 0, verr
	}
	if verr := ledger.ValidateTokenID(args.Token); verr != nil {
		return 0, verr
	}

	meta, ok, err := l.store.Registry.Get(ctx, args.Token)
	if err != nil {
		return 0, lerr.GenericErr(500, "lookup token: %v", err)
	}
	if !ok {
		return 0, lerr.GenericErr(404, "unknown token")
	}
	fee, verr := resolveFee(meta, args.Fee)
	if verr != nil {
		return 0, verr
	}

	effectiveTs, verr := l.checkCreatedAt(args.CreatedAtNs)
	if verr != nil {
		return 0, verr
	}

	total, ok := args.Amount.Add(fee)
	if !ok {
		return 0, lerr.GenericErr(500, "amount+fee overflow")
	}

	allowance, err := l.store.Balances.GetAllowance(ctx, args.Token, args.From.Key(), spender.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read allowance: %v", err)
	}
	effectiveAllowance := allowanceEffective(allowance, l.now())
	if effectiveAllowance.Less(total) {
		return 0, lerr.InsufficientFundsErr(effectiveAllowance)
	}

	fromBal, err := l.store.Balances.GetBalance(ctx, args.Token, args.From.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read balance: %v", err)
	}
	if fromBal.Less(total) {
		return 0, lerr.InsufficientFundsErr(fromBal)
	}

	dedupKey := dedupKeyFor(args.Caller, args.Token, effectiveTs, args.Memo)
	if existing, found, err := l.store.TxLog.CheckDuplicate(ctx, dedupKey); err != nil {
		return 0, lerr.GenericErr(500, "dedup check: %v", err)
	} else if found {
		return 0, lerr.DuplicateErr(existing)
	}

	newFromBal, _ := fromBal.Sub(total)
	if err := l.store.Balances.SetBalance(ctx, args.Token, args.From.Key(), newFromBal); err != nil {
		return 0, lerr.GenericErr(500, "debit: %v", err)
	}
	toBal, err := l.store.Balances.GetBalance(ctx, args.Token, args.To.Key())
	if err != nil {
		return 0, lerr.GenericErr(500, "read recipient balance: %v", err)
	}
	newToBal, ok := toBal.Add(args.Amount)
	if !ok {
		return 0, lerr.GenericErr(500, "credit overflow")
	}
	if err := l.store.Balances.SetBalance(ctx, args.Token, args.To.Key(), newToBal); err != nil {
		return 0, lerr.GenericErr(500, "credit: %v", err)
	}
	newAllowanceAmt, _ := effectiveAllowance.Sub(total)
	if err := l.store.Balances.SetAllowance(ctx, args.Token, args.From.Key(), spender.Key(), balances.Allowance{Amount: newAllowanceAmt, ExpiresAt: allowance.ExpiresAt}); err != nil {
		return 0, lerr.GenericErr(500, "update allowance: %v", err)
	}
	if !fee.IsZero() {
		if err := l.creditFee(ctx, args.Token, meta, fee); err != nil {
			return 0, lerr.GenericErr(500, "credit fee: %v", err)
		}
	}

	rec := record.NewTransferFrom(args.Token, args.From.Key(), args.To.Key(), spender.Key(), args.Amount, fee, effectiveTs, args.Memo)
	index, err := l.store.TxLog.Append(ctx, rec, args.Memo)
	if err != nil {
		return 0, lerr.GenericErr(500, "append: %v", err)
	}
	if err := l.store.TxLog.RecordDedup(ctx, dedupKey, index); err != nil {
		return 0, lerr.GenericErr(500, "record dedup: %v", err)
	}
	return index, nil
}

// MintArgs carries a mint's parameters. Mint is an admin operation: the
// caller must be a controller (spec.md §4.5, §4.6 "mint").
type MintArgs struct {
	Caller      ledger.Principal
	To          ledger.Account
	Token       keys.TokenID
	Amount      amount.Amount
	Memo        []byte
	CreatedAtNs *uint64
}

// Mint credits To with Amount new tokens, increasing total supply. Admin
// operations use the plain-error dialect (spec.md §7), not LedgerError.
func (l *Ledger) Mint(ctx context.Context, args MintArgs) (uint64, error) {
	if err := l.store.Auth.Require(ctx, args.Caller); err != nil {
		return 0, err
	}
	if verr := ledger.ValidateAccount(args.To); verr != nil {
		return 0, errors.New(verr.Error())
	}
	if verr := ledger.ValidateAmount(args.Amount, false); verr != nil {
		return 0, errors.New(verr.Error())
	}
	if verr := ledger.ValidateMemo(args.Memo); verr != nil {
		return 0, errors.New(verr.Error())
	}
	if verr := ledger.ValidateTokenID(args.Token); verr != nil {
		return 0, errors.New(verr.Error())
	}

	if _, ok, err := l.store.Registry.Get(ctx, args.Token); err != nil {
		return 0, err
	} else if !ok {
		return 0, fmt.Errorf("pipeline: unknown token")
	}

	effectiveTs, verr := l.checkCreatedAt(args.CreatedAtNs)
	if verr != nil {
		return 0, errors.New(verr.Error())
	}

	toBal, err := l.store.Balances.GetBalance(ctx, args.Token, args.To.Key())
	if err != nil {
		return 0, err
	}
	newToBal, ok := toBal.Add(args.Amount)
	if !ok {
		return 0, fmt.Errorf("pipeline: mint would overflow recipient balance")
	}
	if err := l.store.Balances.SetBalance(ctx, args.Token, args.To.Key(), newToBal); err != nil {
		return 0, err
	}
	if err := l.store.Registry.AddSupply(ctx, args.Token, args.Amount); err != nil {
		return 0, err
	}

	rec := record.NewMint(args.Token, args.To.Key(), args.Amount, effectiveTs, args.Memo)
	return l.store.TxLog.Append(ctx, rec, args.Memo)
}

// BurnArgs carries a burn's parameters. Burn is an admin operation.
type BurnArgs struct {
	Caller      ledger.Principal
	From        ledger.Account
	Token       keys.TokenID
	Amount      amount.Amount
	Memo        []byte
	CreatedAtNs *uint64
}

// Burn destroys Amount tokens held by From, decreasing total supply.
// Burn never charges a fee (record.NewBurn never sets FlagHasFee).
func (l *Ledger) Burn(ctx context.Context, args BurnArgs) (uint64, error) {
	if err := l.store.Auth.Require(ctx, args.Caller); err != nil {
		return 0, err
	}
	if verr := ledger.ValidateAccount(args.From); verr != nil {
		return 0, errors.New(verr.Error())
	}
	if verr := ledger.ValidateAmount(args.Amount, false); verr != nil {
		return 0, errors.New(verr.Error())
	}
	if verr := ledger.ValidateMemo(args.Memo); verr != nil {
		return 0, errors.New(verr.Error())
	}
	if verr := ledger.ValidateTokenID(args.Token); verr != nil {
		return 0, errors.New(verr.Error())
	}

	if _, ok, err := l.store.Registry.Get(ctx, args.Token); err != nil {
		return 0, err
	} else if !ok {
		return 0, fmt.Errorf("pipeline: unknown token")
	}

	effectiveTs, verr := l.checkCreatedAt(args.CreatedAtNs)
	if verr != nil {
		return 0, errors.New(verr.Error())
	}

	fromBal, err := l.store.Balances.GetBalance(ctx, args.Token, args.From.Key())
	if err != nil {
		return 0, err
	}
	if fromBal.Less(args.Amount) {
		return 0, fmt.Errorf("pipeline: insufficient balance to burn")
	}
	newFromBal, _ := fromBal.Sub(args.Amount)
	if err := l.store.Balances.SetBalance(ctx, args.Token, args.From.Key(), newFromBal); err != nil {
		return 0, err
	}
	if err := l.store.Registry.SubSupply(ctx, args.Token, args.Amount); err != nil {
		return 0, err
	}

	rec := record.NewBurn(args.Token, args.From.Key(), args.Amount, effectiveTs, args.Memo)
	return l.store.TxLog.Append(ctx, rec, args.Memo)
}

// CreateTokenArgs carries create_token's parameters (spec.md §3, §4.3,
// §6). FeeRecipient, Logo and Description are optional; FeeRecipient
// defaults to the calling controller's default account and InitialSupply,
// if positive, is synchronously minted to the controller as part of
// token creation (original_source/src/operations.rs's create_token).
type CreateTokenArgs struct {
	Name          string
	Symbol        string
	Decimals      uint8
	Fee           *amount.Amount
	FeeRecipient  *ledger.Account
	InitialSupply *amount.Amount
	Logo          string
	Description   string
}

// CreateToken registers a new token and returns its derived id. Admin
// operation.
func (l *Ledger) CreateToken(ctx context.Context, caller ledger.Principal, args CreateTokenArgs) (keys.TokenID, error) {
	if err := l.store.Auth.Require(ctx, caller); err != nil {
		return keys.TokenID{}, err
	}
	tokenFee := amount.FromUint64(ledger.DefaultTokenFee)
	if args.Fee != nil {
		tokenFee = *args.Fee
	}
	controllerAccount := ledger.DefaultAccount(caller)
	feeRecipient := controllerAccount
	if args.FeeRecipient != nil {
		feeRecipient = *args.FeeRecipient
	}

	principal, ok, err := l.store.LedgerPrincipal(ctx)
	if err != nil {
		return keys.TokenID{}, err
	}
	if !ok {
		return keys.TokenID{}, fmt.Errorf("pipeline: ledger has no principal set (genesis incomplete)")
	}
	nonce, err := l.store.NextTokenNonce(ctx)
	if err != nil {
		return keys.TokenID{}, err
	}
	id := keys.DeriveTokenID(principal, nonce)
	if err := l.store.Registry.Create(ctx, id, registry.NewMeta{
		Name:         args.Name,
		Symbol:       args.Symbol,
		Decimals:     args.Decimals,
		Fee:          tokenFee,
		FeeRecipient: feeRecipient.Key(),
		Logo:         args.Logo,
		Description:  args.Description,
		CreatedAt:    l.now(),
		Controller:   []byte(caller),
	}); err != nil {
		return keys.TokenID{}, err
	}

	if args.InitialSupply != nil && !args.InitialSupply.IsZero() {
		if _, err := l.Mint(ctx, MintArgs{
			Caller: caller,
			To:     controllerAccount,
			Token:  id,
			Amount: *args.InitialSupply,
		}); err != nil {
			return keys.TokenID{}, fmt.Errorf("pipeline: mint initial supply: %w", err)
		}
	}
	return id, nil
}

// SetTokenFee updates a registered token's fee. Admin operation.
func (l *Ledger) SetTokenFee(ctx context.Context, caller ledger.Principal, token keys.TokenID, fee amount.Amount) error {
	if err := l.store.Auth.Require(ctx, caller); err != nil {
		return err
	}
	return l.store.Registry.SetFee(ctx, token, fee)
}

// AddController grants controller status to principal. Admin operation.
func (l *Ledger) AddController(ctx context.Context, caller, principal ledger.Principal) error {
	if err := l.store.Auth.Require(ctx, caller); err != nil {
		return err
	}
	return l.store.Auth.Add(ctx, principal)
}

// RemoveController revokes controller status from principal. Admin
// operation; refused if principal is the last remaining controller.
func (l *Ledger) RemoveController(ctx context.Context, caller, principal ledger.Principal) error {
	if err := l.store.Auth.Require(ctx, caller); err != nil {
		return err
	}
	return l.store.Auth.Remove(ctx, principal)
}

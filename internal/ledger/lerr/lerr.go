// Package lerr implements the ledger's typed error dialect (spec.md §7).
//
// Write paths that wallets branch on programmatically (transfer, approve,
// transfer_from) return a LedgerError with one of the Kind values below.
// Admin paths (mint, burn, create_token, controller management) instead
// return a plain error built from a message string — see
// internal/ledger/pipeline for where the two dialects meet.
package lerr

import (
	"fmt"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
)

// Kind identifies which of the typed error variants an operation returned.
type Kind int

const (
	// BadFee means the caller supplied a fee that does not equal the
	// token's configured fee.
	BadFee Kind = iota
	// InsufficientFunds means the balance (or, for transfer_from, the
	// allowance) is less than amount+fee.
	InsufficientFunds
	// AllowanceChanged means expected_allowance did not match the
	// stored allowance on an approve call.
	AllowanceChanged
	// Expired means an approve's expires_at is not strictly after the
	// transaction's effective timestamp.
	Expired
	// TooOld means created_at_time is more than 600s behind the clock.
	TooOld
	// CreatedInFuture means created_at_time is more than 300s ahead of
	// the clock.
	CreatedInFuture
	// Duplicate means the dedup key was already recorded.
	Duplicate
	// TemporarilyUnavailable is reserved; never emitted by core paths.
	TemporarilyUnavailable
	// Generic covers validation failures (400), missing entities (404),
	// authorization failures (403), and internal overflow (500).
	Generic
)

// LedgerError is the typed error returned by transfer/approve/transfer_from.
type LedgerError struct {
	Kind Kind

	ExpectedFee      amount.Amount // BadFee
	Balance          amount.Amount // InsufficientFunds
	CurrentAllowance amount.Amount // AllowanceChanged
	LedgerTime       uint64        // Expired, CreatedInFuture
	DuplicateOf      uint64        // Duplicate
	Code             int           // Generic
	Message          string        // Generic
}

func (e *LedgerError) Error() string {
	switch e.Kind {
	case BadFee:
		return fmt.Sprintf("bad fee: expected %s", e.ExpectedFee)
	case InsufficientFunds:
		return fmt.Sprintf("insufficient funds: balance %s", e.Balance)
	case AllowanceChanged:
		return fmt.Sprintf("allowance changed: current %s", e.CurrentAllowance)
	case Expired:
		return fmt.Sprintf("allowance expired at ledger time %d", e.LedgerTime)
	case TooOld:
		return "created_at_time too old"
	case CreatedInFuture:
		return fmt.Sprintf("created_at_time in future, ledger time %d", e.LedgerTime)
	case Duplicate:
		return fmt.Sprintf("duplicate of tx %d", e.DuplicateOf)
	case TemporarilyUnavailable:
		return "temporarily unavailable"
	default:
		return fmt.Sprintf("generic error %d: %s", e.Code, e.Message)
	}
}

// BadFeeErr builds a BadFee error.
func BadFeeErr(expected amount.Amount) *LedgerError {
	return &LedgerError{Kind: BadFee, ExpectedFee: expected}
}

// InsufficientFundsErr builds an InsufficientFunds error. balance carries
// the stored balance, except on the transfer_from allowance path where it
// carries the allowance value instead (spec.md §4.6 step 4, matching the
// Rust source's observable behavior).
func InsufficientFundsErr(balance amount.Amount) *LedgerError {
	return &LedgerError{Kind: InsufficientFunds, Balance: balance}
}

// AllowanceChangedErr builds an AllowanceChanged error.
func AllowanceChangedErr(current amount.Amount) *LedgerError {
	return &LedgerError{Kind: AllowanceChanged, CurrentAllowance: current}
}

// ExpiredErr builds an Expired error.
func ExpiredErr(ledgerTime uint64) *LedgerError {
	return &LedgerError{Kind: Expired, LedgerTime: ledgerTime}
}

// TooOldErr builds a TooOld error.
func TooOldErr() *LedgerError { return &LedgerError{Kind: TooOld} }

// CreatedInFutureErr builds a CreatedInFuture error.
func CreatedInFutureErr(ledgerTime uint64) *LedgerError {
	return &LedgerError{Kind: CreatedInFuture, LedgerTime: ledgerTime}
}

// DuplicateErr builds a Duplicate error.
func DuplicateErr(duplicateOf uint64) *LedgerError {
	return &LedgerError{Kind: Duplicate, DuplicateOf: duplicateOf}
}

// GenericErr builds a Generic error with an HTTP-flavored status code:
// 400 validation, 403 authorization, 404 missing entity, 500 overflow/bug.
func GenericErr(code int, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: Generic, Code: code, Message: fmt.Sprintf(format, args...)}
}

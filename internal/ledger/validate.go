package ledger

import (
	"unicode/utf8"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/lerr"
)

const (
	maxMemoBytes       = 64 * 1024
	utf8NulScanCeiling = 1024
	minPrincipalLen    = 1
	maxPrincipalLen    = 29
	subaccountLen      = 32
	// DefaultTokenFee is charged when create_token doesn't specify one
	// (spec.md §4.3).
	DefaultTokenFee = 10_000
	maxTokenNameLen   = 255
	maxTokenSymbolLen = 32
	maxDecimals       = 18
)

// ValidateAccount enforces spec.md §4.6 step 1's per-account checks:
// non-anonymous, principal length 1-29, subaccount exactly 32 bytes when
// present.
func ValidateAccount(a Account) *lerr.LedgerError {
	if a.Owner.IsAnonymous() {
		return lerr.GenericErr(400, "anonymous principal not allowed")
	}
	if n := len(a.Owner); n < minPrincipalLen || n > maxPrincipalLen {
		return lerr.GenericErr(400, "principal length %d not in range 1-29", n)
	}
	if a.Subaccount != nil && len(a.Subaccount) != subaccountLen {
		return lerr.GenericErr(400, "subaccount must be exactly 32 bytes, got %d", len(a.Subaccount))
	}
	return nil
}

// ValidateTokenID rejects the reserved all-zero token id.
func ValidateTokenID(id keys.TokenID) *lerr.LedgerError {
	if id.IsZero() {
		return lerr.GenericErr(400, "token id cannot be all zeros")
	}
	return nil
}

// ValidateAmount rejects zero (unless allowZero) and amounts above
// u128::MAX/2 (spec.md §9 "Integer semantics").
func ValidateAmount(a amount.Amount, allowZero bool) *lerr.LedgerError {
	if !allowZero && a.IsZero() {
		return lerr.GenericErr(400, "amount must be greater than 0")
	}
	if a.ExceedsMaxSafe() {
		return lerr.GenericErr(400, "amount too large, may cause overflow")
	}
	return nil
}

// ValidateMemo rejects memos over 64KiB, and rejects memos of 1KiB or
// less that parse as UTF-8 text containing an embedded NUL (spec.md §4.6
// step 1).
func ValidateMemo(memo []byte) *lerr.LedgerError {
	if len(memo) > maxMemoBytes {
		return lerr.GenericErr(400, "memo size %d exceeds 64KiB limit", len(memo))
	}
	if len(memo) > 0 && len(memo) <= utf8NulScanCeiling && utf8.Valid(memo) {
		for _, b := range memo {
			if b == 0 {
				return lerr.GenericErr(400, "text memo contains null bytes")
			}
		}
	}
	return nil
}

// ValidateTransferParams runs the shared transfer/transfer_from checks:
// both accounts valid, amount valid, memo valid, from != to.
func ValidateTransferParams(from, to Account, amt amount.Amount, memo []byte) *lerr.LedgerError {
	if err := ValidateAccount(from); err != nil {
		return err
	}
	if err := ValidateAccount(to); err != nil {
		return err
	}
	if err := ValidateAmount(amt, false); err != nil {
		return err
	}
	if err := ValidateMemo(memo); err != nil {
		return err
	}
	if from.Equal(to) {
		return lerr.GenericErr(400, "cannot transfer to same account")
	}
	return nil
}

// ValidateApproveParams runs the shared approve checks: both accounts
// valid, amount valid (zero allowed), memo valid, owner != spender.
func ValidateApproveParams(owner, spender Account, amt amount.Amount, memo []byte) *lerr.LedgerError {
	if err := ValidateAccount(owner); err != nil {
		return err
	}
	if err := ValidateAccount(spender); err != nil {
		return err
	}
	if err := ValidateAmount(amt, true); err != nil {
		return err
	}
	if err := ValidateMemo(memo); err != nil {
		return err
	}
	if owner.Equal(spender) {
		return lerr.GenericErr(400, "cannot approve spending to self")
	}
	return nil
}

// ValidateTokenName enforces the 1-255 byte bound on a new token's name.
func ValidateTokenName(name string) *lerr.LedgerError {
	if n := len(name); n < 1 || n > maxTokenNameLen {
		return lerr.GenericErr(400, "name length %d not in range 1-%d", n, maxTokenNameLen)
	}
	return nil
}

// ValidateTokenSymbol enforces the 1-32 byte bound on a new token's symbol.
func ValidateTokenSymbol(symbol string) *lerr.LedgerError {
	if n := len(symbol); n < 1 || n > maxTokenSymbolLen {
		return lerr.GenericErr(400, "symbol length %d not in range 1-%d", n, maxTokenSymbolLen)
	}
	return nil
}

// ValidateDecimals enforces the 0-18 bound on a new token's decimals.
func ValidateDecimals(decimals uint8) *lerr.LedgerError {
	if decimals > maxDecimals {
		return lerr.GenericErr(400, "decimals %d exceeds max %d", decimals, maxDecimals)
	}
	return nil
}

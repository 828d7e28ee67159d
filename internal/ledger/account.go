package ledger

import (
	"bytes"

	"github.com/icrc151/ledgerd/internal/ledger/keys"
)

// Principal is an opaque 1-29 byte caller identifier (spec.md GLOSSARY).
// The single byte 0x04 (Anonymous) is the reserved "anonymous" identity.
type Principal []byte

// Anonymous is the reserved anonymous principal: the single byte 0x04, the
// same convention the Internet Computer's candid Principal type uses for
// Principal.anonymous() (original_source/src/validation.rs).
var Anonymous = Principal{0x04}

// Equal reports whether two principals are byte-identical.
func (p Principal) Equal(other Principal) bool { return bytes.Equal(p, other) }

// IsAnonymous reports whether p is the reserved anonymous principal.
func (p Principal) IsAnonymous() bool { return p.Equal(Anonymous) }

// Account is a (owner, subaccount?) pair (spec.md §3 "Account").
type Account struct {
	Owner      Principal
	Subaccount []byte // nil, or exactly 32 bytes
}

// Key hashes the account into its 32-byte storage key.
func (a Account) Key() keys.AccountKey {
	return keys.AccountKeyOf(a.Owner, a.Subaccount)
}

// Equal reports whether two accounts denote the same (owner, subaccount).
func (a Account) Equal(b Account) bool {
	return a.Owner.Equal(b.Owner) && bytes.Equal(a.Subaccount, b.Subaccount)
}

// DefaultAccount builds an Account with no subaccount.
func DefaultAccount(owner Principal) Account {
	return Account{Owner: owner}
}

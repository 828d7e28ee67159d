// Package keys derives the domain-separated storage keys used throughout
// the ledger (spec.md §3, §4.1). Every derived key is a SHA-256 digest of a
// purpose tag ("icrc151:<purpose>:v1") followed by the hashed inputs; the
// tag keeps keys from different maps from ever colliding even if their raw
// inputs happen to coincide, the same discipline the teacher applies to
// keylet derivation (internal/core/ledger/keylet).
package keys

import "crypto/sha256"

// AccountKey is the 32-byte hash identifying an (owner, subaccount) pair.
type AccountKey [32]byte

// TokenID is an opaque 32-byte token identifier.
type TokenID [32]byte

// ZeroToken is the reserved, invalid token id.
var ZeroToken TokenID

// IsZero reports whether id is the all-zero (invalid) token id.
func (id TokenID) IsZero() bool { return id == ZeroToken }

// IsZero reports whether k is the all-zero account key.
func (k AccountKey) IsZero() bool { return k == AccountKey{} }

func domainHash(tag string, parts ...[]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// AccountKeyOf hashes an (owner, subaccount) pair into its storage key.
// subaccount is nil for the default subaccount, in which case 32 zero
// bytes are hashed in its place (spec.md §3 "Account").
func AccountKeyOf(owner []byte, subaccount []byte) AccountKey {
	sub := subaccount
	if sub == nil {
		sub = make([]byte, 32)
	}
	return AccountKey(domainHash("icrc151:account:v1", owner, sub))
}

// DeriveTokenID derives a new token id from the ledger's own principal and
// a monotonic per-ledger nonce (spec.md §3 "TokenId").
func DeriveTokenID(ledgerPrincipal []byte, nonce uint64) TokenID {
	return TokenID(domainHash("icrc151:token:v1", ledgerPrincipal, beUint64(nonce)))
}

// BalanceKey hashes a (token, account) pair into the balance map's key.
func BalanceKey(token TokenID, account AccountKey) [32]byte {
	return domainHash("icrc151:balance:v1", token[:], account[:])
}

// AllowanceKey hashes a (token, owner, spender) triple into the allowance
// map's (and allowance-expiry map's) key.
func AllowanceKey(token TokenID, owner, spender AccountKey) [32]byte {
	return domainHash("icrc151:allowance:v1", token[:], owner[:], spender[:])
}

// DedupKey hashes the idempotence fingerprint of a write: caller, token,
// created_at_time, and an optional memo (spec.md §3 "Dedup map").
func DedupKey(caller []byte, token TokenID, createdAtNs uint64, memo []byte) [32]byte {
	if memo == nil {
		return domainHash("icrc151:dedup:v1", caller, token[:], beUint64(createdAtNs))
	}
	return domainHash("icrc151:dedup:v1", caller, token[:], beUint64(createdAtNs), memo)
}

func beUint64(n uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

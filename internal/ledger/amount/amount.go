// Package amount implements the ledger's u128 arithmetic substrate.
//
// Balances, allowances, fees and supply are all spec'd as unsigned 128-bit
// integers with checked (never-wrapping) arithmetic. Go has no native u128,
// so Amount wraps math/big.Int and enforces the [0, 2^128) range on every
// operation that could leave it.
package amount

import "math/big"

// Max is the largest representable amount: 2^128 - 1.
var Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// MaxSafe is u128::MAX / 2, the validator's overflow margin (spec.md §4.6
// step 1, §9 "Integer semantics"): amounts above this are rejected at
// input so that amount+fee can never overflow 128 bits when fee is bound
// by the same cap.
var MaxSafe = new(big.Int).Rsh(Max, 1)

// Amount is an unsigned 128-bit integer.
type Amount struct {
	v big.Int
}

// Zero is the additive identity.
func Zero() Amount { return Amount{} }

// FromUint64 builds an Amount from a u64.
func FromUint64(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// FromBigInt builds an Amount from a big.Int, rejecting negative values or
// values that exceed 2^128-1.
func FromBigInt(b *big.Int) (Amount, bool) {
	if b.Sign() < 0 || b.Cmp(Max) > 0 {
		return Amount{}, false
	}
	var a Amount
	a.v.Set(b)
	return a, true
}

// FromLEBytes decodes a little-endian, zero-padded 16-byte amount, matching
// the wire layout of the transaction log record (spec.md §4.1 offsets
// 130/146).
func FromLEBytes(b [16]byte) Amount {
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	var a Amount
	a.v.SetBytes(be)
	return a
}

// ToLEBytes encodes the amount as little-endian, zero-padded to 16 bytes.
func (a Amount) ToLEBytes() [16]byte {
	be := a.v.Bytes() // big-endian, most significant byte first, up to 16 bytes
	var out [16]byte
	n := len(be)
	for i := 0; i < n; i++ {
		out[i] = be[n-1-i]
	}
	return out
}

// IsZero reports whether the amount is 0.
func (a Amount) IsZero() bool { return a.v.Sign() == 0 }

// Sign returns -1, 0 or +1; amounts are never negative in practice but the
// zero value of big.Int is 0, so this is always 0 or +1.
func (a Amount) Sign() int { return a.v.Sign() }

// Cmp compares two amounts.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// GreaterEq reports a >= b.
func (a Amount) GreaterEq(b Amount) bool { return a.v.Cmp(&b.v) >= 0 }

// Less reports a < b.
func (a Amount) Less(b Amount) bool { return a.v.Cmp(&b.v) < 0 }

// Add returns a+b and ok=false if the result would exceed 2^128-1.
func (a Amount) Add(b Amount) (Amount, bool) {
	var sum big.Int
	sum.Add(&a.v, &b.v)
	if sum.Cmp(Max) > 0 {
		return Amount{}, false
	}
	return Amount{v: sum}, true
}

// Sub returns a-b and ok=false if b > a (unsigned underflow).
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.v.Cmp(&b.v) < 0 {
		return Amount{}, false
	}
	var diff big.Int
	diff.Sub(&a.v, &b.v)
	return Amount{v: diff}, true
}

// ExceedsMaxSafe reports whether the amount is above u128::MAX/2, the
// validator's input bound (spec.md §4.6 step 1).
func (a Amount) ExceedsMaxSafe() bool { return a.v.Cmp(MaxSafe) > 0 }

// String renders the amount in base 10.
func (a Amount) String() string { return a.v.String() }

// FromDecimalString parses a base-10 string (as produced by String) back
// into an Amount, for round-tripping through JSON-encoded storage.
func FromDecimalString(s string) (Amount, bool) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, false
	}
	return FromBigInt(b)
}

// BigInt returns a copy of the underlying big.Int.
func (a Amount) BigInt() *big.Int { return new(big.Int).Set(&a.v) }

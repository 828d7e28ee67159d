// Package record implements the ledger's fixed-size 256-byte transaction
// log record (spec.md §4.1). The layout is bit-exact and stable: fields
// are never reordered, and every unused byte is zeroed so the encoded
// bytes are canonical and round-trip identically (spec.md §8 property 6).
package record

import (
	"encoding/binary"
	"fmt"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
)

// Op identifies which of the five operations produced a record.
type Op uint8

const (
	OpTransfer     Op = 0
	OpMint         Op = 1
	OpBurn         Op = 2
	OpApprove      Op = 3
	OpTransferFrom Op = 4
)

var opNames = [...]string{"transfer", "mint", "burn", "approve", "transfer_from"}

// String returns the lowercase, wire-facing name of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Flag bits, spec.md §4.1 offset 1.
const (
	FlagHasFee        uint8 = 1 << 0
	FlagHasMemo       uint8 = 1 << 1
	FlagHasSpender    uint8 = 1 << 2
	FlagMemoExtended  uint8 = 1 << 3
)

// Size is the fixed, canonical wire size of a record.
const Size = 256

const (
	offOp          = 0
	offFlags       = 1
	offToken       = 2
	offFrom        = 34
	offTo          = 66
	offSpender     = 98
	offAmount      = 130
	offFee         = 146
	offTimestamp   = 162
	offMemo        = 170
	offReserved    = 202
	reservedLen    = 54
	memoInlineLen  = 32
)

// Record is the decoded form of a 256-byte log entry.
type Record struct {
	Op          Op
	Flags       uint8
	TokenID     keys.TokenID
	FromKey     keys.AccountKey
	ToKey       keys.AccountKey
	SpenderKey  keys.AccountKey
	Amount      amount.Amount
	Fee         amount.Amount
	TimestampNs uint64
	// Memo holds up to the first 32 bytes of the memo; if FlagMemoExtended
	// is set the full memo lives in the extended memo map instead.
	Memo [32]byte
}

// HasFee reports whether the fee flag is set.
func (r Record) HasFee() bool { return r.Flags&FlagHasFee != 0 }

// HasMemo reports whether a memo was supplied at all.
func (r Record) HasMemo() bool { return r.Flags&FlagHasMemo != 0 }

// HasSpender reports whether the spender field is meaningful (approve,
// transfer_from).
func (r Record) HasSpender() bool { return r.Flags&FlagHasSpender != 0 }

// MemoExtended reports whether the full memo overflowed into the extended
// memo map and the inline Memo field holds only a 32-byte prefix.
func (r Record) MemoExtended() bool { return r.Flags&FlagMemoExtended != 0 }

// Encode packs the record into its canonical 256-byte wire form.
func Encode(r Record) [Size]byte {
	var buf [Size]byte
	buf[offOp] = uint8(r.Op)
	buf[offFlags] = r.Flags
	copy(buf[offToken:offToken+32], r.TokenID[:])
	copy(buf[offFrom:offFrom+32], r.FromKey[:])
	copy(buf[offTo:offTo+32], r.ToKey[:])
	copy(buf[offSpender:offSpender+32], r.SpenderKey[:])
	amtLE := r.Amount.ToLEBytes()
	copy(buf[offAmount:offAmount+16], amtLE[:])
	feeLE := r.Fee.ToLEBytes()
	copy(buf[offFee:offFee+16], feeLE[:])
	binary.LittleEndian.PutUint64(buf[offTimestamp:offTimestamp+8], r.TimestampNs)
	copy(buf[offMemo:offMemo+memoInlineLen], r.Memo[:])
	// buf[offReserved:offReserved+reservedLen] is already zero.
	return buf
}

// Decode unpacks a canonical 256-byte record.
func Decode(buf [Size]byte) (Record, error) {
	var r Record
	r.Op = Op(buf[offOp])
	r.Flags = buf[offFlags]
	copy(r.TokenID[:], buf[offToken:offToken+32])
	copy(r.FromKey[:], buf[offFrom:offFrom+32])
	copy(r.ToKey[:], buf[offTo:offTo+32])
	copy(r.SpenderKey[:], buf[offSpender:offSpender+32])

	var amtLE, feeLE [16]byte
	copy(amtLE[:], buf[offAmount:offAmount+16])
	copy(feeLE[:], buf[offFee:offFee+16])
	r.Amount = amount.FromLEBytes(amtLE)
	r.Fee = amount.FromLEBytes(feeLE)

	r.TimestampNs = binary.LittleEndian.Uint64(buf[offTimestamp : offTimestamp+8])
	copy(r.Memo[:], buf[offMemo:offMemo+memoInlineLen])

	if r.Op > OpTransferFrom {
		return Record{}, fmt.Errorf("record: unknown op %d", r.Op)
	}
	return r, nil
}

// setMemo copies up to 32 bytes of memo into the inline field, setting
// FlagHasMemo and (when the memo overflows) FlagMemoExtended.
func setMemo(r *Record, memo []byte) {
	if memo == nil {
		return
	}
	r.Flags |= FlagHasMemo
	n := len(memo)
	if n > memoInlineLen {
		n = memoInlineLen
	}
	copy(r.Memo[:n], memo[:n])
	if len(memo) > memoInlineLen {
		r.Flags |= FlagMemoExtended
	}
}

// NewTransfer builds a transfer record (op=0).
func NewTransfer(token keys.TokenID, from, to keys.AccountKey, amt, fee amount.Amount, ts uint64, memo []byte) Record {
	r := Record{Op: OpTransfer, TokenID: token, FromKey: from, ToKey: to, Amount: amt, Fee: fee, TimestampNs: ts}
	if !fee.IsZero() {
		r.Flags |= FlagHasFee
	}
	setMemo(&r, memo)
	return r
}

// NewMint builds a mint record (op=1). Mint never charges a fee.
func NewMint(token keys.TokenID, to keys.AccountKey, amt amount.Amount, ts uint64, memo []byte) Record {
	r := Record{Op: OpMint, TokenID: token, ToKey: to, Amount: amt, TimestampNs: ts}
	setMemo(&r, memo)
	return r
}

// NewBurn builds a burn record (op=2). Burn never charges a fee
// (spec.md §4.6 "Burn fee policy").
func NewBurn(token keys.TokenID, from keys.AccountKey, amt amount.Amount, ts uint64, memo []byte) Record {
	r := Record{Op: OpBurn, TokenID: token, FromKey: from, Amount: amt, TimestampNs: ts}
	setMemo(&r, memo)
	return r
}

// NewApprove builds an approve record (op=3); the spender field is always
// meaningful so FlagHasSpender is always set.
func NewApprove(token keys.TokenID, owner, spender keys.AccountKey, amt, fee amount.Amount, ts uint64, memo []byte) Record {
	r := Record{Op: OpApprove, Flags: FlagHasSpender, TokenID: token, FromKey: owner, SpenderKey: spender, Amount: amt, Fee: fee, TimestampNs: ts}
	if !fee.IsZero() {
		r.Flags |= FlagHasFee
	}
	setMemo(&r, memo)
	return r
}

// NewTransferFrom builds a transfer_from record (op=4).
func NewTransferFrom(token keys.TokenID, from, to, spender keys.AccountKey, amt, fee amount.Amount, ts uint64, memo []byte) Record {
	r := Record{Op: OpTransferFrom, Flags: FlagHasSpender, TokenID: token, FromKey: from, ToKey: to, SpenderKey: spender, Amount: amt, Fee: fee, TimestampNs: ts}
	if !fee.IsZero() {
		r.Flags |= FlagHasFee
	}
	setMemo(&r, memo)
	return r
}

package record

import (
	"testing"

	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token := keys.TokenID{1}
	from := keys.AccountKey{2}
	to := keys.AccountKey{3}

	testcases := []struct {
		name string
		rec  Record
	}{
		{"transfer with fee and memo", NewTransfer(token, from, to, amount.FromUint64(100), amount.FromUint64(10), 12345, []byte("hi"))},
		{"mint no memo", NewMint(token, to, amount.FromUint64(1000), 999, nil)},
		{"burn", NewBurn(token, from, amount.FromUint64(50), 1, nil)},
		{"approve with spender", NewApprove(token, from, to, amount.FromUint64(300), amount.Zero(), 7, nil)},
		{"transfer_from", NewTransferFrom(token, from, to, keys.AccountKey{9}, amount.FromUint64(200), amount.FromUint64(10), 42, []byte("memo"))},
		{"extended memo sets flag", NewTransfer(token, from, to, amount.FromUint64(1), amount.Zero(), 1, make([]byte, 40))},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			buf := Encode(tc.rec)
			require.Len(t, buf, Size)

			decoded, err := Decode(buf)
			require.NoError(t, err)
			require.Equal(t, tc.rec.Op, decoded.Op)
			require.Equal(t, tc.rec.Flags, decoded.Flags)
			require.Equal(t, tc.rec.TokenID, decoded.TokenID)
			require.Equal(t, tc.rec.FromKey, decoded.FromKey)
			require.Equal(t, tc.rec.ToKey, decoded.ToKey)
			require.Equal(t, tc.rec.SpenderKey, decoded.SpenderKey)
			require.Equal(t, 0, tc.rec.Amount.Cmp(decoded.Amount))
			require.Equal(t, 0, tc.rec.Fee.Cmp(decoded.Fee))
			require.Equal(t, tc.rec.TimestampNs, decoded.TimestampNs)
			require.Equal(t, tc.rec.Memo, decoded.Memo)

			reEncoded := Encode(decoded)
			require.Equal(t, buf, reEncoded, "re-encoding a decoded record must be byte-identical")
		})
	}
}

func TestReservedBytesAreZero(t *testing.T) {
	rec := NewTransfer(keys.TokenID{1}, keys.AccountKey{2}, keys.AccountKey{3}, amount.FromUint64(1), amount.FromUint64(1), 1, []byte("x"))
	buf := Encode(rec)
	for i := offReserved; i < offReserved+reservedLen; i++ {
		require.Zero(t, buf[i], "reserved byte %d must be zero", i)
	}
}

func TestMemoExtendedFlag(t *testing.T) {
	short := NewTransfer(keys.TokenID{1}, keys.AccountKey{2}, keys.AccountKey{3}, amount.FromUint64(1), amount.Zero(), 1, []byte("short"))
	require.False(t, short.MemoExtended())
	require.True(t, short.HasMemo())

	long := NewTransfer(keys.TokenID{1}, keys.AccountKey{2}, keys.AccountKey{3}, amount.FromUint64(1), amount.Zero(), 1, make([]byte, 33))
	require.True(t, long.MemoExtended())
}

func TestBurnNeverSetsFeeFlag(t *testing.T) {
	rec := NewBurn(keys.TokenID{1}, keys.AccountKey{2}, amount.FromUint64(1), 1, nil)
	require.False(t, rec.HasFee())
	require.True(t, rec.Fee.IsZero())
}

func TestDecodeRejectsUnknownOp(t *testing.T) {
	buf := Encode(NewMint(keys.TokenID{1}, keys.AccountKey{2}, amount.FromUint64(1), 1, nil))
	buf[offOp] = 99
	_, err := Decode(buf)
	require.Error(t, err)
}

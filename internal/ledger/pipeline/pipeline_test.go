package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icrc151/ledgerd/internal/ledger"
	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/lerr"
	"github.com/icrc151/ledgerd/internal/ledger/store"
	_ "github.com/icrc151/ledgerd/internal/storage/kv/memory"
)

const testFee = 10_000

func newTestLedger(t *testing.T, nowNs uint64) (*Ledger, ledger.Principal) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "memory", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	controller := ledger.Principal("controller-principal")
	require.NoError(t, s.Auth.Add(ctx, controller))
	require.NoError(t, s.SetLedgerPrincipal(ctx, []byte("this-ledger")))

	clock := nowNs
	l := New(s, func() uint64 { return clock })
	return l, controller
}

func mintToken(t *testing.T, l *Ledger, controller ledger.Principal, to ledger.Account, amt uint64) (tokenID [32]byte) {
	t.Helper()
	ctx := context.Background()
	id, err := l.CreateToken(ctx, controller, CreateTokenArgs{Name: "Test Coin", Symbol: "TST", Decimals: 0, Fee: amountPtr(testFee)})
	require.NoError(t, err)
	_, err = l.Mint(ctx, MintArgs{Caller: controller, To: to, Token: id, Amount: amount.FromUint64(amt)})
	require.NoError(t, err)
	return id
}

func amountPtr(n uint64) *amount.Amount {
	a := amount.FromUint64(n)
	return &a
}

func TestTransferHappyPath(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	idx, verr := l.Transfer(ctx, TransferArgs{
		Caller: alice.Owner,
		To:     bob,
		Token:  token,
		Amount: amount.FromUint64(100_000),
	})
	require.Nil(t, verr)
	require.Equal(t, uint64(1), idx) // index 0 was the mint

	aliceBal := mustBalance(t, l, token, alice)
	bobBal := mustBalance(t, l, token, bob)
	require.Equal(t, 0, aliceBal.Cmp(amount.FromUint64(1_000_000-100_000-testFee)))
	require.Equal(t, 0, bobBal.Cmp(amount.FromUint64(100_000)))

	// The fee is credited to the token's fee recipient (the creating
	// controller's default account), not burned from total_supply.
	meta, ok, err := l.store.Registry.Get(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, meta.TotalSupply.Cmp(amount.FromUint64(1_000_000)))
	feeRecipientBal, err := l.store.Balances.GetBalance(ctx, token, meta.FeeRecipient)
	require.NoError(t, err)
	require.Equal(t, 0, feeRecipientBal.Cmp(amount.FromUint64(testFee)))
}

func TestCreateTokenWithInitialSupplyAndFeeRecipient(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	treasury := ledger.DefaultAccount(ledger.Principal("treasury"))
	supply := amount.FromUint64(1_000_000)

	id, err := l.CreateToken(ctx, controller, CreateTokenArgs{
		Name: "Coin", Symbol: "C", Decimals: 0,
		FeeRecipient:  &treasury,
		InitialSupply: &supply,
	})
	require.NoError(t, err)

	meta, ok, err := l.store.Registry.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, treasury.Key(), meta.FeeRecipient)
	require.Equal(t, 0, meta.TotalSupply.Cmp(supply))

	controllerAcct := ledger.DefaultAccount(controller)
	bal := mustBalance(t, l, id, controllerAcct)
	require.Equal(t, 0, bal.Cmp(supply))
}

// TestTransferDuplicateDetectionWithoutCreatedAt confirms duplicate
// detection still runs when the caller omits created_at_time: the dedup
// key is always computed from the effective (ledger-clock) timestamp,
// never skipped (original_source/src/operations.rs:127-165).
func TestTransferDuplicateDetectionWithoutCreatedAt(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	args := TransferArgs{Caller: alice.Owner, To: bob, Token: token, Amount: amount.FromUint64(100)}

	idx1, verr := l.Transfer(ctx, args)
	require.Nil(t, verr)

	_, verr = l.Transfer(ctx, args)
	require.NotNil(t, verr)
	require.Equal(t, lerr.Duplicate, verr.Kind)
	require.Equal(t, idx1, verr.DuplicateOf)
}

func mustBalance(t *testing.T, l *Ledger, token [32]byte, acct ledger.Account) amount.Amount {
	t.Helper()
	bal, err := l.store.Balances.GetBalance(context.Background(), token, acct.Key())
	require.NoError(t, err)
	return bal
}

func TestTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 100)

	_, verr := l.Transfer(ctx, TransferArgs{Caller: alice.Owner, To: bob, Token: token, Amount: amount.FromUint64(1_000_000)})
	require.NotNil(t, verr)
	require.Equal(t, lerr.InsufficientFunds, verr.Kind)
}

func TestTransferBadFee(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	badFee := amount.FromUint64(999)
	_, verr := l.Transfer(ctx, TransferArgs{Caller: alice.Owner, To: bob, Token: token, Amount: amount.FromUint64(1), Fee: &badFee})
	require.NotNil(t, verr)
	require.Equal(t, lerr.BadFee, verr.Kind)
}

func TestTransferDuplicateDetection(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	createdAt := uint64(1_000_000_000)
	args := TransferArgs{Caller: alice.Owner, To: bob, Token: token, Amount: amount.FromUint64(100), CreatedAtNs: &createdAt}

	idx1, verr := l.Transfer(ctx, args)
	require.Nil(t, verr)

	idx2, verr := l.Transfer(ctx, args)
	require.NotNil(t, verr)
	require.Equal(t, lerr.Duplicate, verr.Kind)
	require.Equal(t, idx1, verr.DuplicateOf)
	_ = idx2
}

func TestTransferCreatedAtDriftRejected(t *testing.T) {
	ctx := context.Background()
	const baseNow = 700_000_000_000 // 700s, comfortably past MaxPastDriftNs of 600s
	l, controller := newTestLedger(t, baseNow)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	tooOld := uint64(1)
	_, verr := l.Transfer(ctx, TransferArgs{Caller: alice.Owner, To: bob, Token: token, Amount: amount.FromUint64(1), CreatedAtNs: &tooOld})
	require.NotNil(t, verr)
	require.Equal(t, lerr.TooOld, verr.Kind)

	tooFuture := uint64(baseNow) + MaxFutureDriftNs + 1
	_, verr = l.Transfer(ctx, TransferArgs{Caller: alice.Owner, To: bob, Token: token, Amount: amount.FromUint64(1), CreatedAtNs: &tooFuture})
	require.NotNil(t, verr)
	require.Equal(t, lerr.CreatedInFuture, verr.Kind)
}

func TestApproveAndTransferFrom(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	carol := ledger.DefaultAccount(ledger.Principal("carol"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	_, verr := l.Approve(ctx, ApproveArgs{Caller: alice.Owner, Spender: bob, Token: token, Amount: amount.FromUint64(200_000)})
	require.Nil(t, verr)

	idx, verr := l.TransferFrom(ctx, TransferFromArgs{Caller: bob.Owner, From: alice, To: carol, Token: token, Amount: amount.FromUint64(100_000)})
	require.Nil(t, verr)
	require.Greater(t, idx, uint64(0))

	carolBal := mustBalance(t, l, token, carol)
	require.Equal(t, 0, carolBal.Cmp(amount.FromUint64(100_000)))

	allowance, err := l.store.Balances.GetAllowance(ctx, token, alice.Key(), bob.Key())
	require.NoError(t, err)
	require.Equal(t, 0, allowance.Amount.Cmp(amount.FromUint64(200_000-100_000-testFee)))
}

func TestTransferFromExceedsAllowance(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	carol := ledger.DefaultAccount(ledger.Principal("carol"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	_, verr := l.Approve(ctx, ApproveArgs{Caller: alice.Owner, Spender: bob, Token: token, Amount: amount.FromUint64(100)})
	require.Nil(t, verr)

	_, verr = l.TransferFrom(ctx, TransferFromArgs{Caller: bob.Owner, From: alice, To: carol, Token: token, Amount: amount.FromUint64(100_000)})
	require.NotNil(t, verr)
	require.Equal(t, lerr.InsufficientFunds, verr.Kind)
}

func TestApproveExpiredAllowanceTreatedAsZero(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	carol := ledger.DefaultAccount(ledger.Principal("carol"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	expiresAt := uint64(1_000_000_001)
	_, verr := l.Approve(ctx, ApproveArgs{Caller: alice.Owner, Spender: bob, Token: token, Amount: amount.FromUint64(500_000), ExpiresAt: &expiresAt})
	require.Nil(t, verr)

	// Advance the ledger clock past expiry.
	advanceClock(l, 2_000_000_000)

	_, verr = l.TransferFrom(ctx, TransferFromArgs{Caller: bob.Owner, From: alice, To: carol, Token: token, Amount: amount.FromUint64(1)})
	require.NotNil(t, verr)
	require.Equal(t, lerr.InsufficientFunds, verr.Kind)
}

func advanceClock(l *Ledger, to uint64) {
	l.now = func() uint64 { return to }
}

func TestApproveExpiresAtInPastRejected(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	past := uint64(1)
	_, verr := l.Approve(ctx, ApproveArgs{Caller: alice.Owner, Spender: bob, Token: token, Amount: amount.FromUint64(1), ExpiresAt: &past})
	require.NotNil(t, verr)
	require.Equal(t, lerr.Expired, verr.Kind)
}

func TestApproveAllowanceChanged(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1_000_000_000)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	bob := ledger.DefaultAccount(ledger.Principal("bob"))
	token := mintToken(t, l, controller, alice, 1_000_000)

	_, verr := l.Approve(ctx, ApproveArgs{Caller: alice.Owner, Spender: bob, Token: token, Amount: amount.FromUint64(100)})
	require.Nil(t, verr)

	wrongExpected := amount.FromUint64(999)
	_, verr = l.Approve(ctx, ApproveArgs{Caller: alice.Owner, Spender: bob, Token: token, Amount: amount.FromUint64(200), ExpectedAllowance: &wrongExpected})
	require.NotNil(t, verr)
	require.Equal(t, lerr.AllowanceChanged, verr.Kind)
}

func TestMintRequiresController(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	id, err := l.CreateToken(ctx, controller, CreateTokenArgs{Name: "Coin", Symbol: "C", Decimals: 0})
	require.NoError(t, err)

	_, err = l.Mint(ctx, MintArgs{Caller: ledger.Principal("not-a-controller"), To: alice, Token: id, Amount: amount.FromUint64(1)})
	require.Error(t, err)
}

func TestBurnReducesSupplyAndBalance(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	token := mintToken(t, l, controller, alice, 1_000)

	_, err := l.Burn(ctx, BurnArgs{Caller: controller, From: alice, Token: token, Amount: amount.FromUint64(400)})
	require.NoError(t, err)

	bal := mustBalance(t, l, token, alice)
	require.Equal(t, 0, bal.Cmp(amount.FromUint64(600)))

	meta, ok, err := l.store.Registry.Get(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, meta.TotalSupply.Cmp(amount.FromUint64(600)))
}

func TestBurnInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	alice := ledger.DefaultAccount(ledger.Principal("alice"))
	token := mintToken(t, l, controller, alice, 10)

	_, err := l.Burn(ctx, BurnArgs{Caller: controller, From: alice, Token: token, Amount: amount.FromUint64(1_000_000)})
	require.Error(t, err)
}

func TestAddAndRemoveController(t *testing.T) {
	ctx := context.Background()
	l, controller := newTestLedger(t, 1)
	newController := ledger.Principal("new-controller")

	require.NoError(t, l.AddController(ctx, controller, newController))
	ok, err := l.store.Auth.IsController(ctx, newController)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.RemoveController(ctx, controller, newController))
	ok, err = l.store.Auth.IsController(ctx, newController)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddControllerRequiresAuth(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, 1)
	err := l.AddController(ctx, ledger.Principal("impostor"), ledger.Principal("someone"))
	require.Error(t, err)
}

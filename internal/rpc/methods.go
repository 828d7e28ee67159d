package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/icrc151/ledgerd/internal/ledger"
	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/pipeline"
	"github.com/icrc151/ledgerd/internal/ledger/registry"
	"github.com/icrc151/ledgerd/internal/ledger/txlog"
)

// registerAllMethods wires every spec.md §5/§6 operation onto s.registry.
// Write methods (§5) use the caller-principal + lerr.LedgerError dialect;
// admin methods (mint, burn, create_token, controller management, §5
// "Admin operations") use the plain-error dialect and require RoleAdmin at
// the transport layer on top of the pipeline's own controller check.
func registerAllMethods(s *Server) {
	s.registry.Register("transfer", HandlerFunc(s.handleTransfer))
	s.registry.Register("approve", HandlerFunc(s.handleApprove))
	s.registry.Register("transfer_from", HandlerFunc(s.handleTransferFrom))
	s.registry.Register("mint_tokens", AdminHandlerFunc(s.handleMint))
	s.registry.Register("burn_tokens", AdminHandlerFunc(s.handleBurn))
	s.registry.Register("create_token", AdminHandlerFunc(s.handleCreateToken))
	s.registry.Register("set_token_fee", AdminHandlerFunc(s.handleSetTokenFee))
	s.registry.Register("add_controller", AdminHandlerFunc(s.handleAddController))
	s.registry.Register("remove_controller", AdminHandlerFunc(s.handleRemoveController))

	s.registry.Register("get_balance", HandlerFunc(s.handleGetBalance))
	s.registry.Register("get_balances_for", HandlerFunc(s.handleGetBalancesFor))
	s.registry.Register("get_allowance", HandlerFunc(s.handleGetAllowance))
	s.registry.Register("get_allowance_details", HandlerFunc(s.handleGetAllowanceDetails))
	s.registry.Register("get_token_metadata", HandlerFunc(s.handleGetTokenMetadata))
	s.registry.Register("list_tokens", HandlerFunc(s.handleListTokens))
	s.registry.Register("get_total_supply", HandlerFunc(s.handleGetTotalSupply))
	s.registry.Register("get_holder_count", HandlerFunc(s.handleGetHolderCount))
	s.registry.Register("get_transaction_count", HandlerFunc(s.handleGetTransactionCount))
	s.registry.Register("get_transaction", HandlerFunc(s.handleGetTransaction))
	s.registry.Register("get_transactions", HandlerFunc(s.handleGetTransactions))
	s.registry.Register("list_controllers", HandlerFunc(s.handleListControllers))
	s.registry.Register("get_info", HandlerFunc(s.handleGetInfo))
	s.registry.Register("health_check", HandlerFunc(s.handleHealthCheck))
	s.registry.Register("get_storage_stats", HandlerFunc(s.handleGetStorageStats))
}

// callerPrincipal recovers the principal that authenticated this RPC
// call. Transport-level authentication isn't part of this layer's scope
// (spec.md's Non-goals exclude a wallet-signing surface); the caller
// supplies its principal explicitly in every write request, the same way
// an already-authenticated internal caller would.
func callerPrincipal(s string) (ledger.Principal, *RpcError) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return nil, errInvalidParams("caller is not a valid non-empty hex principal")
	}
	return ledger.Principal(b), nil
}

// invalidateFeeRecipient drops the cached balance of a token's configured
// fee recipient after a fee-bearing operation credits it. Best-effort: a
// lookup failure just leaves a stale cache entry to expire on its own.
func (s *Server) invalidateFeeRecipient(ctx context.Context, token keys.TokenID) {
	meta, ok, err := s.query.GetTokenMetadata(ctx, token)
	if err != nil || !ok {
		return
	}
	s.query.InvalidateBalance(token, meta.FeeRecipient)
}

// --- write methods ---

type transferParams struct {
	Caller         string  `json:"caller"`
	FromSubaccount string  `json:"from_subaccount,omitempty"`
	To             wireAccount `json:"to"`
	Token          string  `json:"token"`
	Amount         string  `json:"amount"`
	Fee            *string `json:"fee,omitempty"`
	Memo           string  `json:"memo,omitempty"`
	CreatedAtNs    *uint64 `json:"created_at_ns,omitempty"`
}

func (s *Server) handleTransfer(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p transferParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := callerPrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	to, rerr := decodeAccount(p.To)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	amt, rerr := decodeAmount(p.Amount)
	if rerr != nil {
		return nil, rerr
	}
	memo, rerr := decodeMemo(p.Memo)
	if rerr != nil {
		return nil, rerr
	}
	var subaccount []byte
	if p.FromSubaccount != "" {
		b, err := hex.DecodeString(p.FromSubaccount)
		if err != nil {
			return nil, errInvalidParams("from_subaccount is not valid hex")
		}
		subaccount = b
	}

	args := pipeline.TransferArgs{
		Caller:         caller,
		FromSubaccount: subaccount,
		To:             to,
		Token:          token,
		Amount:         amt,
		Memo:           memo,
		CreatedAtNs:    p.CreatedAtNs,
	}
	if p.Fee != nil {
		f, rerr := decodeAmount(*p.Fee)
		if rerr != nil {
			return nil, rerr
		}
		args.Fee = &f
	}
	index, lerr := s.ledger.Transfer(ctx.Context, args)
	if lerr != nil {
		return nil, fromLedgerError(lerr)
	}
	from := ledger.Account{Owner: caller, Subaccount: subaccount}
	s.query.InvalidateBalance(token, from.Key())
	s.query.InvalidateBalance(token, to.Key())
	s.invalidateFeeRecipient(ctx.Context, token)
	s.publishTx(ctx.Context, index)
	return map[string]interface{}{"index": index}, nil
}

type approveParams struct {
	Caller            string  `json:"caller"`
	FromSubaccount    string  `json:"from_subaccount,omitempty"`
	Spender           wireAccount `json:"spender"`
	Token             string  `json:"token"`
	Amount            string  `json:"amount"`
	Fee               *string `json:"fee,omitempty"`
	Memo              string  `json:"memo,omitempty"`
	CreatedAtNs       *uint64 `json:"created_at_ns,omitempty"`
	ExpectedAllowance *string `json:"expected_allowance,omitempty"`
	ExpiresAt         *uint64 `json:"expires_at,omitempty"`
}

func (s *Server) handleApprove(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p approveParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := callerPrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	spender, rerr := decodeAccount(p.Spender)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	amt, rerr := decodeAmount(p.Amount)
	if rerr != nil {
		return nil, rerr
	}
	memo, rerr := decodeMemo(p.Memo)
	if rerr != nil {
		return nil, rerr
	}
	var subaccount []byte
	if p.FromSubaccount != "" {
		b, err := hex.DecodeString(p.FromSubaccount)
		if err != nil {
			return nil, errInvalidParams("from_subaccount is not valid hex")
		}
		subaccount = b
	}

	args := pipeline.ApproveArgs{
		Caller:         caller,
		FromSubaccount: subaccount,
		Spender:        spender,
		Token:          token,
		Amount:         amt,
		Memo:           memo,
		CreatedAtNs:    p.CreatedAtNs,
		ExpiresAt:      p.ExpiresAt,
	}
	if p.Fee != nil {
		f, rerr := decodeAmount(*p.Fee)
		if rerr != nil {
			return nil, rerr
		}
		args.Fee = &f
	}
	if p.ExpectedAllowance != nil {
		e, rerr := decodeAmount(*p.ExpectedAllowance)
		if rerr != nil {
			return nil, rerr
		}
		args.ExpectedAllowance = &e
	}

	index, lerr := s.ledger.Approve(ctx.Context, args)
	if lerr != nil {
		return nil, fromLedgerError(lerr)
	}
	owner := ledger.Account{Owner: caller, Subaccount: subaccount}
	s.query.InvalidateBalance(token, owner.Key())
	s.invalidateFeeRecipient(ctx.Context, token)
	s.publishTx(ctx.Context, index)
	return map[string]interface{}{"index": index}, nil
}

type transferFromParams struct {
	Caller      string  `json:"caller"`
	From        wireAccount `json:"from"`
	To          wireAccount `json:"to"`
	Token       string  `json:"token"`
	Amount      string  `json:"amount"`
	Fee         *string `json:"fee,omitempty"`
	Memo        string  `json:"memo,omitempty"`
	CreatedAtNs *uint64 `json:"created_at_ns,omitempty"`
}

func (s *Server) handleTransferFrom(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p transferFromParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := callerPrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	from, rerr := decodeAccount(p.From)
	if rerr != nil {
		return nil, rerr
	}
	to, rerr := decodeAccount(p.To)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	amt, rerr := decodeAmount(p.Amount)
	if rerr != nil {
		return nil, rerr
	}
	memo, rerr := decodeMemo(p.Memo)
	if rerr != nil {
		return nil, rerr
	}

	args := pipeline.TransferFromArgs{
		Caller:      caller,
		From:        from,
		To:          to,
		Token:       token,
		Amount:      amt,
		Memo:        memo,
		CreatedAtNs: p.CreatedAtNs,
	}
	if p.Fee != nil {
		f, rerr := decodeAmount(*p.Fee)
		if rerr != nil {
			return nil, rerr
		}
		args.Fee = &f
	}

	index, lerr := s.ledger.TransferFrom(ctx.Context, args)
	if lerr != nil {
		return nil, fromLedgerError(lerr)
	}
	s.query.InvalidateBalance(token, from.Key())
	s.query.InvalidateBalance(token, to.Key())
	s.invalidateFeeRecipient(ctx.Context, token)
	s.publishTx(ctx.Context, index)
	return map[string]interface{}{"index": index}, nil
}

type mintParams struct {
	Caller      string  `json:"caller"`
	To          wireAccount `json:"to"`
	Token       string  `json:"token"`
	Amount      string  `json:"amount"`
	Memo        string  `json:"memo,omitempty"`
	CreatedAtNs *uint64 `json:"created_at_ns,omitempty"`
}

func (s *Server) handleMint(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p mintParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := decodePrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	to, rerr := decodeAccount(p.To)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	amt, rerr := decodeAmount(p.Amount)
	if rerr != nil {
		return nil, rerr
	}
	memo, rerr := decodeMemo(p.Memo)
	if rerr != nil {
		return nil, rerr
	}

	index, err := s.ledger.Mint(ctx.Context, pipeline.MintArgs{
		Caller: caller, To: to, Token: token, Amount: amt, Memo: memo, CreatedAtNs: p.CreatedAtNs,
	})
	if err != nil {
		return nil, fromPlainError(err)
	}
	s.query.InvalidateBalance(token, to.Key())
	s.publishTx(ctx.Context, index)
	return map[string]interface{}{"index": index}, nil
}

type burnParams struct {
	Caller      string  `json:"caller"`
	From        wireAccount `json:"from"`
	Token       string  `json:"token"`
	Amount      string  `json:"amount"`
	Memo        string  `json:"memo,omitempty"`
	CreatedAtNs *uint64 `json:"created_at_ns,omitempty"`
}

func (s *Server) handleBurn(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p burnParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := decodePrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	from, rerr := decodeAccount(p.From)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	amt, rerr := decodeAmount(p.Amount)
	if rerr != nil {
		return nil, rerr
	}
	memo, rerr := decodeMemo(p.Memo)
	if rerr != nil {
		return nil, rerr
	}

	index, err := s.ledger.Burn(ctx.Context, pipeline.BurnArgs{
		Caller: caller, From: from, Token: token, Amount: amt, Memo: memo, CreatedAtNs: p.CreatedAtNs,
	})
	if err != nil {
		return nil, fromPlainError(err)
	}
	s.query.InvalidateBalance(token, from.Key())
	s.publishTx(ctx.Context, index)
	return map[string]interface{}{"index": index}, nil
}

type createTokenParams struct {
	Caller        string       `json:"caller"`
	Name          string       `json:"name"`
	Symbol        string       `json:"symbol"`
	Decimals      uint8        `json:"decimals"`
	InitialSupply *string      `json:"initial_supply,omitempty"`
	Fee           *string      `json:"fee,omitempty"`
	FeeRecipient  *wireAccount `json:"fee_recipient,omitempty"`
	Logo          string       `json:"logo,omitempty"`
	Description   string       `json:"description,omitempty"`
}

func (s *Server) handleCreateToken(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p createTokenParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := decodePrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	var feePtr *amount.Amount
	if p.Fee != nil {
		f, rerr := decodeAmount(*p.Fee)
		if rerr != nil {
			return nil, rerr
		}
		feePtr = &f
	}
	var initialSupplyPtr *amount.Amount
	if p.InitialSupply != nil {
		a, rerr := decodeAmount(*p.InitialSupply)
		if rerr != nil {
			return nil, rerr
		}
		initialSupplyPtr = &a
	}
	var feeRecipientPtr *ledger.Account
	if p.FeeRecipient != nil {
		acct, rerr := decodeAccount(*p.FeeRecipient)
		if rerr != nil {
			return nil, rerr
		}
		feeRecipientPtr = &acct
	}

	id, err := s.ledger.CreateToken(ctx.Context, caller, pipeline.CreateTokenArgs{
		Name:          p.Name,
		Symbol:        p.Symbol,
		Decimals:      p.Decimals,
		Fee:           feePtr,
		FeeRecipient:  feeRecipientPtr,
		InitialSupply: initialSupplyPtr,
		Logo:          p.Logo,
		Description:   p.Description,
	})
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"token": encodeTokenID(id)}, nil
}

type setTokenFeeParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Fee    string `json:"fee"`
}

func (s *Server) handleSetTokenFee(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p setTokenFeeParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := decodePrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	fee, rerr := decodeAmount(p.Fee)
	if rerr != nil {
		return nil, rerr
	}
	if err := s.ledger.SetTokenFee(ctx.Context, caller, token, fee); err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"ok": true}, nil
}

type controllerParams struct {
	Caller    string `json:"caller"`
	Principal string `json:"principal"`
}

func (s *Server) handleAddController(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p controllerParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := decodePrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	principal, rerr := decodePrincipal(p.Principal)
	if rerr != nil {
		return nil, rerr
	}
	if err := s.ledger.AddController(ctx.Context, caller, principal); err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"ok": true}, nil
}

func (s *Server) handleRemoveController(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p controllerParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	caller, rerr := decodePrincipal(p.Caller)
	if rerr != nil {
		return nil, rerr
	}
	principal, rerr := decodePrincipal(p.Principal)
	if rerr != nil {
		return nil, rerr
	}
	if err := s.ledger.RemoveController(ctx.Context, caller, principal); err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"ok": true}, nil
}

// --- read methods ---

type getBalanceParams struct {
	Account wireAccount `json:"account"`
	Token   string  `json:"token"`
}

func (s *Server) handleGetBalance(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p getBalanceParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	acct, rerr := decodeAccount(p.Account)
	if rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	bal, err := s.query.GetBalance(ctx.Context, token, acct.Key())
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"balance": bal.String()}, nil
}

func (s *Server) handleGetBalancesFor(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Account wireAccount `json:"account"`
	}
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	acct, rerr := decodeAccount(p.Account)
	if rerr != nil {
		return nil, rerr
	}
	balances, err := s.query.BalancesFor(ctx.Context, acct.Key())
	if err != nil {
		return nil, fromPlainError(err)
	}
	out := make(map[string]string, len(balances))
	for token, bal := range balances {
		out[encodeTokenID(token)] = bal.String()
	}
	return map[string]interface{}{"balances": out}, nil
}

type allowanceParams struct {
	Token   string  `json:"token"`
	Owner   wireAccount `json:"owner"`
	Spender wireAccount `json:"spender"`
}

func (s *Server) decodeAllowanceParams(raw json.RawMessage) (keys.TokenID, keys.AccountKey, keys.AccountKey, *RpcError) {
	var p allowanceParams
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return keys.TokenID{}, keys.AccountKey{}, keys.AccountKey{}, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return keys.TokenID{}, keys.AccountKey{}, keys.AccountKey{}, rerr
	}
	owner, rerr := decodeAccount(p.Owner)
	if rerr != nil {
		return keys.TokenID{}, keys.AccountKey{}, keys.AccountKey{}, rerr
	}
	spender, rerr := decodeAccount(p.Spender)
	if rerr != nil {
		return keys.TokenID{}, keys.AccountKey{}, keys.AccountKey{}, rerr
	}
	return token, owner.Key(), spender.Key(), nil
}

func (s *Server) handleGetAllowance(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	token, owner, spender, rerr := s.decodeAllowanceParams(raw)
	if rerr != nil {
		return nil, rerr
	}
	amt, err := s.query.GetAllowance(ctx.Context, token, owner, spender)
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"allowance": amt.String()}, nil
}

func (s *Server) handleGetAllowanceDetails(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	token, owner, spender, rerr := s.decodeAllowanceParams(raw)
	if rerr != nil {
		return nil, rerr
	}
	details, err := s.query.GetAllowanceDetails(ctx.Context, token, owner, spender)
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{
		"allowance":  details.Allowance.String(),
		"expires_at": details.ExpiresAt,
		"expired":    details.Expired,
	}, nil
}

func (s *Server) handleGetTokenMetadata(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Token string `json:"token"`
	}
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	meta, ok, err := s.query.GetTokenMetadata(ctx.Context, token)
	if err != nil {
		return nil, fromPlainError(err)
	}
	if !ok {
		return nil, NewRpcError(CodeNotFound, "notFound", "unknown token")
	}
	return wireMeta(meta), nil
}

func wireMeta(m registry.Meta) map[string]interface{} {
	return map[string]interface{}{
		"token":         encodeTokenID(m.ID),
		"name":          m.Name,
		"symbol":        m.Symbol,
		"decimals":      m.Decimals,
		"fee":           m.Fee.String(),
		"fee_recipient": encodeAccountKey(m.FeeRecipient),
		"total_supply":  m.TotalSupply.String(),
		"logo":          m.Logo,
		"description":   m.Description,
		"created_at":    m.CreatedAt,
		"controller":    hex.EncodeToString(m.Controller),
	}
}

func (s *Server) handleListTokens(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	tokens, err := s.query.ListTokens(ctx.Context)
	if err != nil {
		return nil, fromPlainError(err)
	}
	out := make([]map[string]interface{}, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, wireMeta(t))
	}
	return map[string]interface{}{"tokens": out}, nil
}

func (s *Server) handleGetTotalSupply(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Token string `json:"token"`
	}
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	supply, err := s.query.GetTotalSupply(ctx.Context, token)
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"total_supply": supply.String()}, nil
}

func (s *Server) handleGetHolderCount(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Token string `json:"token"`
	}
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	token, rerr := decodeTokenID(p.Token)
	if rerr != nil {
		return nil, rerr
	}
	count, err := s.query.GetHolderCount(ctx.Context, token)
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{"holder_count": count}, nil
}

func (s *Server) handleGetTransactionCount(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{"count": s.query.GetTransactionCount(ctx.Context)}, nil
}

func (s *Server) handleGetTransaction(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Index uint64 `json:"index"`
	}
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	entry, ok, err := s.query.GetTransaction(ctx.Context, p.Index)
	if err != nil {
		return nil, fromPlainError(err)
	}
	if !ok {
		return nil, NewRpcError(CodeNotFound, "notFound", "no transaction at that index")
	}
	return wireEntry(entry), nil
}

func wireEntry(e txlog.Entry) map[string]interface{} {
	out := map[string]interface{}{
		"index":        e.Index,
		"op":           e.Record.Op,
		"token":        encodeTokenID(e.Record.TokenID),
		"from":         encodeAccountKey(e.Record.FromKey),
		"to":           encodeAccountKey(e.Record.ToKey),
		"amount":       e.Record.Amount.String(),
		"fee":          e.Record.Fee.String(),
		"timestamp_ns": e.Record.TimestampNs,
	}
	if e.Record.HasSpender() {
		out["spender"] = encodeAccountKey(e.Record.SpenderKey)
	}
	if e.Memo != nil {
		out["memo"] = hex.EncodeToString(e.Memo)
	}
	return out
}

func (s *Server) handleGetTransactions(ctx *RpcContext, raw json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Start uint64 `json:"start"`
		Limit uint64 `json:"limit"`
	}
	if rerr := unmarshalParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	entries, err := s.query.GetTransactions(ctx.Context, p.Start, p.Limit)
	if err != nil {
		return nil, fromPlainError(err)
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, wireEntry(e))
	}
	return map[string]interface{}{"transactions": out}, nil
}

func (s *Server) handleListControllers(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	controllers, err := s.query.ListControllers(ctx.Context)
	if err != nil {
		return nil, fromPlainError(err)
	}
	out := make([]string, 0, len(controllers))
	for _, c := range controllers {
		out = append(out, hex.EncodeToString(c))
	}
	return map[string]interface{}{"controllers": out}, nil
}

func (s *Server) handleGetInfo(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	info, err := s.query.GetInfo(ctx.Context)
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{
		"ledger_principal":  hex.EncodeToString(info.LedgerPrincipal),
		"token_count":       info.TokenCount,
		"transaction_count": info.TransactionCount,
		"uptime_seconds":    info.UptimeSeconds,
	}, nil
}

func (s *Server) handleHealthCheck(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	h := s.query.HealthCheck(ctx.Context)
	return map[string]interface{}{"healthy": h.Healthy, "detail": h.Detail}, nil
}

func (s *Server) handleGetStorageStats(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	stats, err := s.query.GetStorageStats(ctx.Context)
	if err != nil {
		return nil, fromPlainError(err)
	}
	return map[string]interface{}{
		"token_count":       stats.TokenCount,
		"transaction_count": stats.TransactionCount,
		"controller_count":  stats.ControllerCount,
	}, nil
}

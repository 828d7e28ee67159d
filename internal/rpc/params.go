package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/icrc151/ledgerd/internal/ledger"
	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/keys"
)

// wireAccount is the JSON shape of ledger.Account: owner and subaccount are
// hex-encoded byte strings, the same convention the teacher uses for
// account IDs and hashes in its RPC responses.
type wireAccount struct {
	Owner      string `json:"owner"`
	Subaccount string `json:"subaccount,omitempty"`
}

func decodeAccount(w wireAccount) (ledger.Account, *RpcError) {
	if w.Owner == "" {
		return ledger.Account{}, errInvalidParams("owner is required")
	}
	owner, err := hex.DecodeString(w.Owner)
	if err != nil {
		return ledger.Account{}, errInvalidParams("owner is not valid hex")
	}
	acct := ledger.Account{Owner: ledger.Principal(owner)}
	if w.Subaccount != "" {
		sub, err := hex.DecodeString(w.Subaccount)
		if err != nil {
			return ledger.Account{}, errInvalidParams("subaccount is not valid hex")
		}
		acct.Subaccount = sub
	}
	return acct, nil
}

func encodeAccountKey(k keys.AccountKey) string {
	return hex.EncodeToString(k[:])
}

func decodeTokenID(s string) (keys.TokenID, *RpcError) {
	var id keys.TokenID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return id, errInvalidParams("token is not a valid 32-byte hex id")
	}
	copy(id[:], b)
	return id, nil
}

func encodeTokenID(id keys.TokenID) string {
	return hex.EncodeToString(id[:])
}

func decodeAmount(s string) (amount.Amount, *RpcError) {
	a, ok := amount.FromDecimalString(s)
	if !ok {
		return amount.Amount{}, errInvalidParams("amount is not a valid non-negative decimal integer")
	}
	return a, nil
}

func decodeMemo(s string) ([]byte, *RpcError) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errInvalidParams("memo is not valid hex")
	}
	return b, nil
}

func decodePrincipal(s string) (ledger.Principal, *RpcError) {
	if s == "" {
		return nil, errInvalidParams("principal is required")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errInvalidParams("principal is not valid hex")
	}
	return ledger.Principal(b), nil
}

func encodePrincipal(p ledger.Principal) string {
	return hex.EncodeToString(p)
}

func unmarshalParams(params json.RawMessage, v interface{}) *RpcError {
	if len(params) == 0 {
		return errInvalidParams("params is required")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errInvalidParams(fmt.Sprintf("malformed params: %v", err))
	}
	return nil
}

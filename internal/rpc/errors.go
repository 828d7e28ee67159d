package rpc

import "github.com/icrc151/ledgerd/internal/ledger/lerr"

// RpcError is a JSON-RPC 2.0 error object, extended with an "error" slug
// field the same way the teacher's rippled-compatible errors carry both a
// numeric code and a named string.
type RpcError struct {
	Code        int    `json:"code"`
	ErrorString string `json:"error"`
	Message     string `json:"message,omitempty"`
}

func (e *RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// JSON-RPC 2.0 standard codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Ledger-domain codes, stable values a client can branch on without
// string-matching (spec.md §7's LedgerError.Kind surfaced over the wire).
const (
	CodeBadFee              = 1001
	CodeInsufficientFunds   = 1002
	CodeAllowanceChanged    = 1003
	CodeExpired             = 1004
	CodeTooOld              = 1005
	CodeCreatedInFuture     = 1006
	CodeDuplicate           = 1007
	CodeTemporarilyUnavail  = 1008
	CodeValidation          = 1009
	CodeNotFound            = 1010
	CodeUnauthorized        = 1011
)

func NewRpcError(code int, errorString, message string) *RpcError {
	return &RpcError{Code: code, ErrorString: errorString, Message: message}
}

func errParseError(message string) *RpcError {
	return NewRpcError(CodeParseError, "parseError", message)
}

func errInvalidParams(message string) *RpcError {
	return NewRpcError(CodeInvalidParams, "invalidParams", message)
}

func errMethodNotFound(method string) *RpcError {
	return NewRpcError(CodeMethodNotFound, "methodNotFound", "unknown method: "+method)
}

func errInternal(message string) *RpcError {
	return NewRpcError(CodeInternal, "internal", message)
}

func errUnauthorized(message string) *RpcError {
	return NewRpcError(CodeUnauthorized, "unauthorized", message)
}

// fromLedgerError maps the pipeline's typed wallet-facing error dialect
// onto a stable wire error.
func fromLedgerError(e *lerr.LedgerError) *RpcError {
	switch e.Kind {
	case lerr.BadFee:
		return NewRpcError(CodeBadFee, "badFee", e.Error())
	case lerr.InsufficientFunds:
		return NewRpcError(CodeInsufficientFunds, "insufficientFunds", e.Error())
	case lerr.AllowanceChanged:
		return NewRpcError(CodeAllowanceChanged, "allowanceChanged", e.Error())
	case lerr.Expired:
		return NewRpcError(CodeExpired, "expired", e.Error())
	case lerr.TooOld:
		return NewRpcError(CodeTooOld, "tooOld", e.Error())
	case lerr.CreatedInFuture:
		return NewRpcError(CodeCreatedInFuture, "createdInFuture", e.Error())
	case lerr.Duplicate:
		return NewRpcError(CodeDuplicate, "duplicate", e.Error())
	case lerr.TemporarilyUnavailable:
		return NewRpcError(CodeTemporarilyUnavail, "temporarilyUnavailable", e.Error())
	default:
		return NewRpcError(CodeValidation, "genericError", e.Error())
	}
}

// fromPlainError maps the pipeline's admin-dialect plain errors (mint,
// burn, create_token, controller management) onto a wire error.
func fromPlainError(err error) *RpcError {
	return NewRpcError(CodeValidation, "requestFailed", err.Error())
}

// Package jsonrpc serves an archive over JSON-RPC 2.0 and provides the
// matching client transport.
package jsonrpc

import (
	"encoding/json"

	"github.com/blockberries/chainbridge/types"
)

// Version is the protocol version carried by every message.
const Version = "2.0"

// Method names.
const (
	MethodHealth           = "health"
	MethodGetContractState = "getContractState"
	MethodGetTransactions  = "getTransactions"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeBackendError is reported when the archive fails a query.
	CodeBackendError = -32000

	// CodeUnauthorized is reported for missing or unknown API keys.
	CodeUnauthorized = -32001

	// CodeRateLimited is reported when a client exceeds its request rate.
	CodeRateLimited = -32005
)

// Standard errors.
var (
	ErrParseError     = &Error{Code: CodeParseError, Message: "Parse error"}
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}
	ErrMethodNotFound = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	ErrInvalidParams  = &Error{Code: CodeInvalidParams, Message: "Invalid params"}
	ErrInternalError  = &Error{Code: CodeInternalError, Message: "Internal error"}
	ErrUnauthorized   = &Error{Code: CodeUnauthorized, Message: "Unauthorized"}
	ErrRateLimited    = &Error{Code: CodeRateLimited, Message: "Rate limit exceeded"}
)

// NewResponse creates a successful response.
func NewResponse(id any, result any) (*Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{
		JSONRPC: Version,
		Result:  data,
		ID:      id,
	}, nil
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id any, err *Error) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   err,
		ID:      id,
	}
}

// NewErrorWithData creates an error with additional data.
func NewErrorWithData(code int, message string, data any) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// BatchRequest is a batch of JSON-RPC requests.
type BatchRequest []Request

// BatchResponse is a batch of JSON-RPC responses.
type BatchResponse []Response

// GetContractStateParams are the parameters of getContractState.
type GetContractStateParams struct {
	Address string `json:"address"`
}

// ContractStateResult is the result of getContractState. Boc holds the
// base64 container of the contract when it exists.
type ContractStateResult struct {
	Exists bool   `json:"exists"`
	Boc    string `json:"boc,omitempty"`
}

// GetTransactionsParams are the parameters of getTransactions. A missing
// From starts at the newest transaction.
type GetTransactionsParams struct {
	Address string               `json:"address"`
	From    *types.TransactionID `json:"from,omitempty"`
	Count   uint8                `json:"count"`
}

// TransactionsResult is the result of getTransactions, newest first.
type TransactionsResult struct {
	Transactions []types.RawTransaction `json:"transactions"`
}

// HealthResult is the result of health.
type HealthResult struct {
	Status string `json:"status"`
}

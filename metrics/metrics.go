// Package metrics defines the metrics collected by the bridge, its transports
// and the JSON-RPC server.
package metrics

import (
	"time"
)

// Metrics defines the interface for collecting bridge metrics.
// All methods are designed to be thread-safe and non-blocking.
type Metrics interface {
	// Bridge call metrics
	IncCalls(method, status string)
	ObserveCallDuration(method string, d time.Duration)
	ObserveHandleWait(d time.Duration)
	IncCallsInflight()
	DecCallsInflight()
	SetHandlesLive(count int)
	IncUndelivered()
	AddTxsDropped(count int)
	IncTxCache(result string)

	// Transport metrics
	ObserveTransportLatency(op string, d time.Duration)
	IncTransportErrors(op, errorType string)

	// Server metrics
	IncRPCRequests(method, result string)

	// HTTP handler (for serving metrics)
	Handler() any
}

// Bridge method labels.
const (
	MethodAccountState = "get_full_account_state"
	MethodTransactions = "get_transactions"
)

// Transport operation labels.
const (
	OpContractState = "contract_state"
	OpTransactions  = "transactions"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Cache result labels.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Transport error type labels.
const (
	ErrorTimeout  = "timeout"
	ErrorCanceled = "canceled"
	ErrorBackend  = "backend"
)

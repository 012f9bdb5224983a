package metrics

import (
	"time"
)

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// Bridge call metrics (no-op)

func (m *NopMetrics) IncCalls(method, status string)                     {}
func (m *NopMetrics) ObserveCallDuration(method string, d time.Duration) {}
func (m *NopMetrics) ObserveHandleWait(d time.Duration)                  {}
func (m *NopMetrics) IncCallsInflight()                                  {}
func (m *NopMetrics) DecCallsInflight()                                  {}
func (m *NopMetrics) SetHandlesLive(count int)                           {}
func (m *NopMetrics) IncUndelivered()                                    {}
func (m *NopMetrics) AddTxsDropped(count int)                            {}
func (m *NopMetrics) IncTxCache(result string)                           {}

// Transport metrics (no-op)

func (m *NopMetrics) ObserveTransportLatency(op string, d time.Duration) {}
func (m *NopMetrics) IncTransportErrors(op, errorType string)            {}

// Server metrics (no-op)

func (m *NopMetrics) IncRPCRequests(method, result string) {}

// Handler returns nil for no-op metrics.
func (m *NopMetrics) Handler() any {
	return nil
}

// Ensure NopMetrics implements Metrics.
var _ Metrics = (*NopMetrics)(nil)

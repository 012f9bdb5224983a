package transport

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/tracing/otel"
	"github.com/blockberries/chainbridge/types"
)

// Instrumented decorates a Transport with latency metrics, error counters,
// spans and debug logging.
type Instrumented struct {
	next    Transport
	metrics metrics.Metrics
	tracer  trace.Tracer
	logger  *logging.Logger
}

// Instrument wraps next. Nil collaborators are replaced by no-op ones.
func Instrument(next Transport, m metrics.Metrics, tracer trace.Tracer, logger *logging.Logger) *Instrumented {
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if tracer == nil {
		tracer = otel.NopTracer()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Instrumented{
		next:    next,
		metrics: m,
		tracer:  tracer,
		logger:  logger.WithComponent("transport"),
	}
}

// Unwrap returns the decorated transport.
func (t *Instrumented) Unwrap() Transport {
	return t.next
}

// GetContractState implements Transport.
func (t *Instrumented) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	ctx, span := t.tracer.Start(ctx, "transport.GetContractState",
		trace.WithAttributes(otel.AttrAddress.String(addr.String())))

	start := time.Now()
	state, err := t.next.GetContractState(ctx, addr)
	t.observe(metrics.OpContractState, start, err)

	t.logger.Debug("contract state",
		logging.Address(addr.String()),
		logging.Duration(time.Since(start)),
		logging.Error(err))

	otel.EndSpan(span, err)
	return state, err
}

// GetTransactions implements Transport.
func (t *Instrumented) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
	ctx, span := t.tracer.Start(ctx, "transport.GetTransactions",
		trace.WithAttributes(
			otel.AttrAddress.String(addr.String()),
			otel.AttrCount.Int(int(count)),
		))

	start := time.Now()
	txs, err := t.next.GetTransactions(ctx, addr, from, count)
	t.observe(metrics.OpTransactions, start, err)

	t.logger.Debug("transactions",
		logging.Address(addr.String()),
		logging.LT(uint64(from.LT)),
		logging.Count(len(txs)),
		logging.Duration(time.Since(start)),
		logging.Error(err))

	otel.EndSpan(span, err)
	return txs, err
}

// Close closes the decorated transport.
func (t *Instrumented) Close() error {
	return Close(t.next)
}

func (t *Instrumented) observe(op string, start time.Time, err error) {
	t.metrics.ObserveTransportLatency(op, time.Since(start))
	if err != nil {
		t.metrics.IncTransportErrors(op, ErrorType(err))
	}
}

// ErrorType classifies err into a metrics label.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.ErrorTimeout
	case errors.Is(err, context.Canceled):
		return metrics.ErrorCanceled
	default:
		return metrics.ErrorBackend
	}
}

var _ Transport = (*Instrumented)(nil)

// Package bridge runs blockchain read queries on behalf of callers that
// cannot wait for them. Each call returns at once; its outcome is later
// delivered on a caller-chosen port.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/tracing/otel"
	"github.com/blockberries/chainbridge/transport"
)

// DefaultTxCacheSize is the number of decoded transactions kept by default.
const DefaultTxCacheSize = 4096

// Bridge owns the transport handles, the scheduler and the port table.
type Bridge struct {
	registry      *Registry
	scheduler     *Scheduler
	ownsScheduler bool
	ports         *Ports
	decoder       *txDecoder

	logger  *logging.Logger
	metrics metrics.Metrics
	tracer  trace.Tracer

	callTimeout time.Duration
	txCacheSize int
	receiver    Receiver

	mu     sync.RWMutex
	closed bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithTracer sets the tracer used for call spans.
func WithTracer(t trace.Tracer) Option {
	return func(b *Bridge) { b.tracer = t }
}

// WithScheduler runs calls on s instead of the process-wide scheduler. The
// bridge does not close it.
func WithScheduler(s *Scheduler) Option {
	return func(b *Bridge) {
		b.scheduler = s
		b.ownsScheduler = false
	}
}

// WithWorkers runs calls on a scheduler of its own, limited to n concurrent
// calls and closed with the bridge.
func WithWorkers(n int) Option {
	return func(b *Bridge) {
		b.scheduler = NewScheduler(n)
		b.ownsScheduler = true
	}
}

// WithCallTimeout bounds how long a call may wait for its handle and run.
// Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.callTimeout = d }
}

// WithTxCacheSize sets the number of decoded transactions to keep. Zero
// disables the cache.
func WithTxCacheSize(n int) Option {
	return func(b *Bridge) { b.txCacheSize = n }
}

// WithReceiver sets the receiver of outcomes for unopened ports.
func WithReceiver(r Receiver) Option {
	return func(b *Bridge) { b.receiver = r }
}

// New creates a bridge.
func New(opts ...Option) (*Bridge, error) {
	b := &Bridge{
		registry:    NewRegistry(),
		txCacheSize: DefaultTxCacheSize,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNopLogger()
	}
	b.logger = b.logger.WithComponent("bridge")
	if b.metrics == nil {
		b.metrics = metrics.NewNopMetrics()
	}
	if b.tracer == nil {
		b.tracer = otel.NopTracer()
	}
	if b.scheduler == nil {
		b.scheduler = DefaultScheduler()
	}
	if b.callTimeout < 0 {
		return nil, fmt.Errorf("negative call timeout %s", b.callTimeout)
	}

	decoder, err := newTxDecoder(b.txCacheSize, b.metrics)
	if err != nil {
		return nil, err
	}
	b.decoder = decoder
	b.ports = NewPorts(b.receiver, b.logger, b.metrics)
	return b, nil
}

// Ports returns the port table outcomes are delivered through.
func (b *Bridge) Ports() *Ports {
	return b.ports
}

// Handles returns the live transport handles.
func (b *Bridge) Handles() []HandleID {
	return b.registry.Handles()
}

// Available reports whether handle resolves and its transport is not in
// use by a call.
func (b *Bridge) Available(handle HandleID) bool {
	g, err := b.registry.Lookup(handle)
	return err == nil && g.Available()
}

// CreateTransport registers t and returns its handle.
func (b *Bridge) CreateTransport(t transport.Transport) (HandleID, error) {
	if t == nil {
		return 0, newError(StatusInvalidInput, "", errors.New("nil transport"))
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrBridgeClosed
	}

	id := b.registry.Insert(t)
	b.metrics.SetHandlesLive(b.registry.Len())
	b.logger.Debug("transport created", logging.Handle(uint64(id)))
	return id, nil
}

// DestroyTransport waits for the call using handle, if any, removes the
// handle and closes its transport. Calls made with the handle afterwards
// fail with StatusMutexError.
func (b *Bridge) DestroyTransport(ctx context.Context, handle HandleID) error {
	t, err := b.registry.Remove(ctx, handle)
	if err != nil {
		return err
	}
	b.metrics.SetHandlesLive(b.registry.Len())
	b.logger.Debug("transport destroyed", logging.Handle(uint64(handle)))

	if err := transport.Close(t); err != nil {
		return fmt.Errorf("closing transport: %w", err)
	}
	return nil
}

// GetFullAccountState queues an account state query. The outcome payload
// is the account snapshot or null for accounts that are not on chain.
func (b *Bridge) GetFullAccountState(port int64, handle HandleID, address string) {
	b.dispatch(port, handle, metrics.MethodAccountState,
		[]attribute.KeyValue{otel.AttrAddress.String(address)},
		func(ctx context.Context, t transport.Transport) (string, error) {
			return fullAccountState(ctx, t, address)
		})
}

// GetTransactions queues a transaction history query of up to limit
// transactions starting at continuation, or at the newest transaction if
// continuation is nil.
func (b *Bridge) GetTransactions(port int64, handle HandleID, address string, continuation *string, limit uint8) {
	b.dispatch(port, handle, metrics.MethodTransactions,
		[]attribute.KeyValue{otel.AttrAddress.String(address), otel.AttrCount.Int(int(limit))},
		func(ctx context.Context, t transport.Transport) (string, error) {
			payload, dropped, err := transactionsPage(ctx, t, b.decoder, address, continuation, limit)
			if dropped > 0 {
				b.metrics.AddTxsDropped(dropped)
				b.logger.Debug("dropped undecodable transactions",
					logging.Address(address),
					logging.Count(dropped))
			}
			return payload, err
		})
}

// Close destroys every handle and closes the scheduler if the bridge
// created it. Calls queued afterwards on a shared scheduler fail with
// StatusMutexError.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var errs []error
	for _, id := range b.registry.Handles() {
		if err := b.DestroyTransport(ctx, id); err != nil && !errors.Is(err, ErrTransportNotFound) {
			errs = append(errs, fmt.Errorf("handle %s: %w", id, err))
		}
	}
	if b.ownsScheduler {
		if err := b.scheduler.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing scheduler: %w", err))
		}
	}
	return errors.Join(errs...)
}

// workflow is a query run against a leased transport.
type workflow func(ctx context.Context, t transport.Transport) (string, error)

// dispatch queues one call and delivers its outcome on port.
func (b *Bridge) dispatch(port int64, handle HandleID, method string, attrs []attribute.KeyValue, run workflow) {
	b.scheduler.Submit(func(ctx context.Context) {
		b.metrics.IncCallsInflight()
		defer b.metrics.DecCallsInflight()

		start := time.Now()
		ctx, span := b.tracer.Start(ctx, "bridge."+method, trace.WithAttributes(append(attrs,
			otel.AttrPort.Int64(port),
			otel.AttrHandle.Int64(int64(handle)))...))

		if b.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.callTimeout)
			defer cancel()
		}

		payload, err := b.execute(ctx, handle, run)

		outcome := Succeeded(payload)
		if err != nil {
			outcome = Failed(err)
		}
		span.SetAttributes(otel.AttrStatus.String(outcome.Status.String()))
		otel.EndSpan(span, err)

		elapsed := time.Since(start)
		b.metrics.IncCalls(method, outcome.Status.String())
		b.metrics.ObserveCallDuration(method, elapsed)
		b.logger.Debug("call finished",
			logging.Method(method),
			logging.Port(port),
			logging.Handle(uint64(handle)),
			logging.Status(outcome.Status.String()),
			logging.Duration(elapsed),
			logging.Error(err))

		b.ports.Deliver(port, outcome)
	})
}

type callResult struct {
	payload string
	err     error
}

// releaseGrace is how long a timed out call waits for its workflow to
// return before reporting the timeout with the lease still held.
const releaseGrace = 250 * time.Millisecond

// execute leases the transport of handle and runs the workflow on it. The
// lease is released as soon as the workflow returns and before the result
// is reported. If ctx ends first the workflow gets releaseGrace to return;
// after that the call reports a timeout and the lease is released whenever
// the workflow eventually returns.
func (b *Bridge) execute(ctx context.Context, handle HandleID, run workflow) (string, error) {
	guard, err := b.registry.Lookup(handle)
	if err != nil {
		return "", err
	}

	waitStart := time.Now()
	lease, err := guard.Acquire(ctx)
	b.metrics.ObserveHandleWait(time.Since(waitStart))
	if err != nil {
		return "", err
	}

	done := make(chan callResult, 1)
	go func() {
		res := runRecovered(ctx, lease.Transport(), run)
		lease.Release()
		done <- res
	}()

	select {
	case res := <-done:
		return res.payload, res.err
	case <-ctx.Done():
	}

	// Transports that honour ctx return promptly; wait for them so the
	// handle is back in place before the outcome is reported.
	grace := time.NewTimer(releaseGrace)
	defer grace.Stop()
	select {
	case res := <-done:
		if res.err == nil {
			return res.payload, nil
		}
		return "", newError(StatusTimeout, "running query", ctx.Err())
	case <-grace.C:
		return "", newError(StatusTimeout, "running query", ctx.Err())
	}
}

// runRecovered runs the workflow, turning a panic into a transport error.
func runRecovered(ctx context.Context, t transport.Transport, run workflow) (res callResult) {
	defer func() {
		if r := recover(); r != nil {
			res = callResult{err: newError(StatusTransportError, "", fmt.Errorf("query panicked: %v", r))}
		}
	}()
	payload, err := run(ctx, t)
	return callResult{payload: payload, err: err}
}

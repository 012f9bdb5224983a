package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
)

// Receiver takes outcomes for ports nobody opened, typically by posting
// them to the foreign host.
type Receiver func(port int64, outcome Outcome)

// Ports routes outcomes to the caller identified by a port number. Port
// numbers are chosen by callers; the bridge never allocates or reuses them.
type Ports struct {
	mu       sync.Mutex
	waiters  map[int64]chan Outcome
	receiver Receiver

	logger  *logging.Logger
	metrics metrics.Metrics
}

// NewPorts returns a port table. Nil collaborators are replaced by no-op
// ones; a nil receiver drops outcomes for unopened ports.
func NewPorts(receiver Receiver, logger *logging.Logger, m metrics.Metrics) *Ports {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	return &Ports{
		waiters:  make(map[int64]chan Outcome),
		receiver: receiver,
		logger:   logger.WithComponent("ports"),
		metrics:  m,
	}
}

// SetReceiver replaces the fallback receiver.
func (p *Ports) SetReceiver(r Receiver) {
	p.mu.Lock()
	p.receiver = r
	p.mu.Unlock()
}

// Open registers a one-shot waiter for port. The returned channel receives
// exactly one outcome unless the port is cancelled.
func (p *Ports) Open(port int64) (<-chan Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.waiters[port]; ok {
		return nil, fmt.Errorf("%w: %d", ErrPortInUse, port)
	}
	ch := make(chan Outcome, 1)
	p.waiters[port] = ch
	return ch, nil
}

// Cancel drops the waiter of port. It returns false if there was none.
func (p *Ports) Cancel(port int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.waiters[port]
	delete(p.waiters, port)
	return ok
}

// Pending returns the number of open ports.
func (p *Ports) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// Deliver hands outcome to the waiter of port, removing it, or to the
// receiver if the port is not open. It never blocks and returns false if
// the outcome was dropped.
func (p *Ports) Deliver(port int64, outcome Outcome) bool {
	p.mu.Lock()
	ch, ok := p.waiters[port]
	delete(p.waiters, port)
	receiver := p.receiver
	p.mu.Unlock()

	switch {
	case ok:
		ch <- outcome
		return true
	case receiver != nil:
		receiver(port, outcome)
		return true
	default:
		p.metrics.IncUndelivered()
		p.logger.Warn("outcome not delivered",
			logging.Port(port),
			logging.Status(outcome.Status.String()))
		return false
	}
}

// Wait opens port, runs call and waits for the outcome delivered on port.
// If ctx ends first the port is cancelled and ctx's error returned.
func (p *Ports) Wait(ctx context.Context, port int64, call func()) (Outcome, error) {
	ch, err := p.Open(port)
	if err != nil {
		return Outcome{}, err
	}
	call()

	select {
	case o := <-ch:
		return o, nil
	case <-ctx.Done():
		p.Cancel(port)
		return Outcome{}, ctx.Err()
	}
}

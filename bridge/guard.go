package bridge

import (
	"context"
	"sync"

	"github.com/blockberries/chainbridge/transport"
)

// Guard holds one transport behind an exclusive lock. A call takes the
// transport out of the slot for the duration of its query and puts it back
// when done, so the slot is empty exactly while a call owns the transport
// or after the guard was destroyed.
type Guard struct {
	// lock is held by whoever has a token in it.
	lock chan struct{}

	mu   sync.Mutex
	slot transport.Transport
}

// NewGuard returns a guard holding t.
func NewGuard(t transport.Transport) *Guard {
	return &Guard{
		lock: make(chan struct{}, 1),
		slot: t,
	}
}

// Acquire waits for exclusive access and takes the transport out of the
// slot. It fails with StatusMutexError if the slot is empty and with
// StatusTimeout if ctx ends first. Waiters are not served in FIFO order.
func (g *Guard) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case g.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, newError(StatusTimeout, "waiting for transport", ctx.Err())
	}

	g.mu.Lock()
	t := g.slot
	g.slot = nil
	g.mu.Unlock()

	if t == nil {
		<-g.lock
		return nil, newError(StatusMutexError, "", ErrTransportNotFound)
	}
	return &Lease{guard: g, transport: t}, nil
}

// Available reports whether the slot currently holds a transport.
func (g *Guard) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.slot != nil
}

// Destroy waits for the current holder, if any, then empties the slot for
// good and returns the transport it held.
func (g *Guard) Destroy(ctx context.Context) (transport.Transport, error) {
	select {
	case g.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, newError(StatusTimeout, "waiting for transport", ctx.Err())
	}
	defer func() { <-g.lock }()

	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.slot
	g.slot = nil
	if t == nil {
		return nil, newError(StatusMutexError, "", ErrTransportNotFound)
	}
	return t, nil
}

func (g *Guard) restore(t transport.Transport) {
	g.mu.Lock()
	g.slot = t
	g.mu.Unlock()
}

// Lease is exclusive ownership of a guarded transport.
type Lease struct {
	guard     *Guard
	transport transport.Transport
	once      sync.Once
}

// Transport returns the leased transport.
func (l *Lease) Transport() transport.Transport {
	return l.transport
}

// Release puts the transport back and unlocks the guard. Calling it more
// than once has no effect.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.guard.restore(l.transport)
		<-l.guard.lock
	})
}

package bridge

import (
	"context"
	"strconv"
	"sync"

	"github.com/blockberries/chainbridge/transport"
)

// HandleID is the opaque token a foreign caller holds for a transport. The
// upper 32 bits index the registry and the lower 32 bits carry the
// generation of that slot, so an id stops resolving once its transport is
// removed even if the slot is reused. Zero is never issued.
type HandleID uint64

func makeHandleID(index, generation uint32) HandleID {
	return HandleID(uint64(index)<<32 | uint64(generation))
}

func (id HandleID) index() uint32      { return uint32(id >> 32) }
func (id HandleID) generation() uint32 { return uint32(id) }

// String returns the decimal form of the id.
func (id HandleID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

type registryEntry struct {
	guard      *Guard
	generation uint32
}

// Registry is an arena of guarded transports addressed by HandleID.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
	free    []uint32
	live    int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Insert guards t and returns its handle.
func (r *Registry) Insert(t transport.Transport) HandleID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.entries))
		r.entries = append(r.entries, registryEntry{generation: 1})
	}

	e := &r.entries[idx]
	e.guard = NewGuard(t)
	r.live++
	return makeHandleID(idx, e.generation)
}

// Lookup returns the guard of id. Unknown and removed ids fail with
// StatusMutexError.
func (r *Registry) Lookup(id HandleID) (*Guard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(id)
}

func (r *Registry) lookupLocked(id HandleID) (*Guard, error) {
	idx := id.index()
	if int(idx) >= len(r.entries) {
		return nil, newError(StatusMutexError, "handle "+id.String(), ErrTransportNotFound)
	}
	e := r.entries[idx]
	if e.guard == nil || e.generation != id.generation() {
		return nil, newError(StatusMutexError, "handle "+id.String(), ErrTransportNotFound)
	}
	return e.guard, nil
}

// Remove destroys the guard of id once its current call, if any, has
// released it, and returns the transport it held. The caller owns the
// returned transport.
func (r *Registry) Remove(ctx context.Context, id HandleID) (transport.Transport, error) {
	guard, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	t, err := guard.Destroy(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := &r.entries[id.index()]
	if e.guard == guard {
		e.guard = nil
		e.generation++
		if e.generation == 0 {
			e.generation = 1
		}
		r.free = append(r.free, id.index())
		r.live--
	}
	return t, nil
}

// Handles returns the ids of all live handles.
func (r *Registry) Handles() []HandleID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]HandleID, 0, r.live)
	for i, e := range r.entries {
		if e.guard != nil {
			ids = append(ids, makeHandleID(uint32(i), e.generation))
		}
	}
	return ids
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

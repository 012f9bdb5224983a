package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGuard_AcquireRelease(t *testing.T) {
	ft := &fakeTransport{}
	g := NewGuard(ft)
	require.True(t, g.Available())

	lease, err := g.Acquire(context.Background())
	require.NoError(t, err)
	require.Same(t, ft, lease.Transport())
	require.False(t, g.Available())

	lease.Release()
	require.True(t, g.Available())

	// Releasing again must not unlock someone else's lease.
	other, err := g.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()
	require.False(t, g.Available())
	other.Release()
	require.True(t, g.Available())
}

func TestGuard_Exclusive(t *testing.T) {
	g := NewGuard(&fakeTransport{})

	lease, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	require.Equal(t, StatusTimeout, StatusOf(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan *Lease)
	go func() {
		l, err := g.Acquire(context.Background())
		if err == nil {
			acquired <- l
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquired a held guard")
	case <-time.After(20 * time.Millisecond):
	}

	lease.Release()
	select {
	case l := <-acquired:
		l.Release()
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by release")
	}
}

func TestGuard_Empty(t *testing.T) {
	g := NewGuard(nil)
	require.False(t, g.Available())

	for range 2 {
		_, err := g.Acquire(context.Background())
		require.Equal(t, StatusMutexError, StatusOf(err))
		require.ErrorIs(t, err, ErrTransportNotFound)
	}
}

func TestGuard_Destroy(t *testing.T) {
	ft := &fakeTransport{}
	g := NewGuard(ft)

	lease, err := g.Acquire(context.Background())
	require.NoError(t, err)

	// Destroy waits for the lease.
	destroyed := make(chan struct{})
	go func() {
		defer close(destroyed)
		got, err := g.Destroy(context.Background())
		if err == nil && got == ft {
			return
		}
		t.Errorf("Destroy() = %v, %v", got, err)
	}()

	select {
	case <-destroyed:
		t.Fatal("destroyed a leased guard")
	case <-time.After(20 * time.Millisecond):
	}
	lease.Release()
	<-destroyed

	require.False(t, g.Available())
	_, err = g.Acquire(context.Background())
	require.Equal(t, StatusMutexError, StatusOf(err))

	_, err = g.Destroy(context.Background())
	require.Equal(t, StatusMutexError, StatusOf(err))
}

func TestGuard_DestroyTimeout(t *testing.T) {
	g := NewGuard(&fakeTransport{})
	lease, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Destroy(ctx)
	require.Equal(t, StatusTimeout, StatusOf(err))
}

func TestGuard_Concurrent(t *testing.T) {
	ft := &fakeTransport{}
	g := NewGuard(ft)

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			_, _ = lease.Transport().GetContractState(context.Background(), addrA)
			lease.Release()
		}()
	}
	wg.Wait()

	require.EqualValues(t, 64, ft.calls.Load())
	require.EqualValues(t, 1, ft.maxActive.Load())
	require.True(t, g.Available())
}

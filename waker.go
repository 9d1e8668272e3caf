package wakeonwrite

import (
	"context"
	"errors"
	"sync"
)

type (
	// Waker is a resumption handle, used to inform a scheduler that a
	// suspended task may be able to make progress.
	//
	// Implementations must be safe to call any number of times, must not
	// block, and must be a no-op if the task they would resume is no longer
	// waiting. Waker values may be freely copied, a copy being the same
	// logical waker.
	Waker interface {
		Wake()
	}

	// WakerFunc adapts a function to the [Waker] interface.
	WakerFunc func()

	// Notifier is a [Waker] intended for goroutines which block, rather than
	// being polled by a [Scheduler]. Wakes are buffered (at most one pending),
	// so a Wake that happens before Wait is not lost.
	//
	// Notifier must be constructed with NewNotifier.
	Notifier struct {
		ch      chan struct{}
		waiting sync.Mutex
	}
)

var (
	// ErrNotifierBusy is returned by Notifier.Wait if it is called
	// concurrently.
	ErrNotifierBusy = errors.New(`wakeonwrite: notifier already has a waiter`)

	_ Waker = WakerFunc(nil)
	_ Waker = (*Notifier)(nil)
)

func (x WakerFunc) Wake() {
	x()
}

// NewNotifier initialises a [Notifier].
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Wake is non-blocking, and safe to call from any goroutine.
func (x *Notifier) Wake() {
	select {
	case x.ch <- struct{}{}:
	default:
		// already pending
	}
}

// Wait blocks until Wake has been called at least once since the last Wait
// returned, or the context is done. Only one goroutine may wait at a time.
func (x *Notifier) Wait(ctx context.Context) error {
	if !x.waiting.TryLock() {
		return ErrNotifierBusy
	}
	defer x.waiting.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-x.ch:
		return nil
	}
}

// C exposes the underlying channel, which will receive after Wake, for use
// in select statements. Receiving consumes the pending wake.
func (x *Notifier) C() <-chan struct{} {
	return x.ch
}

package wakeonwrite

import (
	"fmt"
)

type (
	// Cell wraps a value of type T, waking a registered [Waker] whenever the
	// value is accessed via Mut, and therefore potentially mutated.
	//
	// This is useful when a task is polling the state of the wrapped value,
	// and must be resumed whenever that value might have changed, so that it
	// can check whether it is now able to make progress. The polling task
	// registers its Waker with SetWaker, prior to reporting that it is not yet
	// ready, and all subsequent calls to Mut will wake it.
	//
	// Only Mut (and the methods implemented in terms of it) wake. Any mutation
	// that does not go through Mut, e.g. via a pointer, map, or slice stored
	// within T, or retained from a previous Mut call, is not observed.
	//
	// The zero value is ready to use, and has no registered Waker. Cell is not
	// safe for concurrent use: it must be guarded externally, see [Guard].
	Cell[T any] struct {
		value T
		waker Waker
	}
)

// New returns a Cell wrapping value, without any registered Waker.
func New[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// Get returns the wrapped value. It never wakes.
func (x *Cell[T]) Get() T {
	return x.value
}

// Mut returns a pointer to the wrapped value, first waking the registered
// Waker, if any. It wakes exactly once per call, regardless of whether the
// value is subsequently modified, and the Waker remains registered.
func (x *Cell[T]) Mut() *T {
	if x.waker != nil {
		x.waker.Wake()
	}
	return &x.value
}

// Set replaces the wrapped value, waking as per Mut.
func (x *Cell[T]) Set(value T) {
	*x.Mut() = value
}

// Update calls fn with a pointer to the wrapped value, waking as per Mut.
func (x *Cell[T]) Update(fn func(value *T)) {
	fn(x.Mut())
}

// SetWaker registers the Waker to be woken on each Mut, returning the
// previously registered Waker, or nil. It panics if waker is nil (use
// TakeWaker to clear the registration).
func (x *Cell[T]) SetWaker(waker Waker) (previous Waker) {
	if waker == nil {
		panic(`wakeonwrite: waker must not be nil`)
	}
	previous, x.waker = x.waker, waker
	return
}

// TakeWaker removes and returns the registered Waker, or nil.
func (x *Cell[T]) TakeWaker() (waker Waker) {
	waker, x.waker = x.waker, nil
	return
}

// Waker returns the registered Waker, leaving it registered, or nil.
func (x *Cell[T]) Waker() Waker {
	return x.waker
}

// String formats the wrapped value, without waking.
func (x *Cell[T]) String() string {
	return fmt.Sprint(x.value)
}

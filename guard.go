package wakeonwrite

import (
	"sync"
)

type (
	// Guard is a [Cell] behind a mutex, for sharing a Cell between
	// goroutines. It adds nothing to the semantics of the Cell.
	//
	// The zero value is ready to use.
	Guard[T any] struct {
		mu   sync.Mutex
		cell Cell[T]
	}
)

// NewGuard returns a Guard wrapping value.
func NewGuard[T any](value T) *Guard[T] {
	return &Guard[T]{cell: Cell[T]{value: value}}
}

// Lock acquires the mutex, returning the Cell, which must not be used after
// the corresponding Unlock.
func (x *Guard[T]) Lock() *Cell[T] {
	x.mu.Lock()
	return &x.cell
}

// Unlock releases the mutex acquired by Lock.
func (x *Guard[T]) Unlock() {
	x.mu.Unlock()
}

// With calls fn while holding the lock.
func (x *Guard[T]) With(fn func(cell *Cell[T])) {
	x.mu.Lock()
	defer x.mu.Unlock()
	fn(&x.cell)
}

// WithGuard is like Guard.With, but returns the result of fn.
func WithGuard[T, R any](guard *Guard[T], fn func(cell *Cell[T]) R) R {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return fn(&guard.cell)
}

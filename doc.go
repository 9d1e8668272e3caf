// Package wakeonwrite offers a value wrapper, [Cell], which wakes a
// registered [Waker] whenever the wrapped value is accessed mutably, and a
// cooperative [Scheduler] which polls tasks that wait on such cells.
//
// The purpose of this implementation is to make it as easy as possible to
// write a task that polls some shared state, and is resumed exactly when
// another task might have changed that state, without polling in a busy
// loop. A task that finds the state is not yet to its liking registers its
// waker with the cell, via [Cell.SetWaker], and reports that it is pending.
// Any subsequent call to [Cell.Mut] wakes it, at which point it re-checks.
//
// The detection is deliberately coarse: a wake means a mutable pointer was
// obtained, not that anything changed, and mutation that bypasses
// [Cell.Mut] (e.g. via a map or pointer within the value) is not observed.
//
// A [Cell] performs no locking. Share it between goroutines using a [Guard],
// or any other mutex.
package wakeonwrite

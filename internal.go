package wakeonwrite

import (
	"time"
)

type (
	// Internal models the internal API, accessible from within tasks and
	// hooks. It is unsafe to retain a reference to Internal, or to use
	// concurrently. The wakers it returns are not subject to either
	// restriction.
	Internal struct {
		scheduler *Scheduler
		// current is the task being polled, or nil within a RunHook
		current *taskState
	}
)

// Key returns the key of the task currently being polled, or nil if called
// from a RunHook.
func (x *Internal) Key() any {
	if x.current == nil {
		return nil
	}
	return x.current.key
}

// Waker returns the [Waker] for the task currently being polled, which will
// cause it to be polled again. It panics if called from a RunHook.
func (x *Internal) Waker() Waker {
	if x.current == nil {
		panic(`wakeonwrite: no task is being polled`)
	}
	return x.current
}

// WakerFor returns the [Waker] for the given task key.
func (x *Internal) WakerFor(key any) Waker {
	return x.scheduler.task(key)
}

// Wake is equivalent to WakerFor(key).Wake().
func (x *Internal) Wake(key any) {
	x.scheduler.task(key).
		Wake()
}

// WakeAfter wakes the given task key after the given duration, or
// immediately if the duration is not positive, replacing any previous
// WakeAfter for that key. Pending delayed wakes are discarded when the task
// completes, or Scheduler.Run returns.
func (x *Internal) WakeAfter(key any, d time.Duration) {
	x.scheduler.task(key).
		setTimer(d)
}

// Done returns true if the given task key has completed.
func (x *Internal) Done(key any) bool {
	return x.scheduler.task(key).done.Load()
}

// Pending returns the number of tasks which have not completed.
func (x *Internal) Pending() int {
	return x.scheduler.pending()
}

package wakeonwrite

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type (
	// Task performs a single poll step, synchronised with the main loop,
	// within Scheduler.Run. It returns true if the task has completed, or
	// false if it is pending, in which case it will only be polled again
	// after it has been woken (see Internal.Waker).
	// A non-nil error is fatal, and will be returned by Scheduler.Run.
	//
	// The context provided to Task will be cancelled after this function
	// returns, or when the Scheduler.Run context is canceled.
	//
	// A pending task is expected to arrange for its own wake, typically by
	// passing Internal.Waker to Cell.SetWaker, before returning. A task that
	// is woken must re-check its condition: a wake is not a guarantee that
	// anything changed.
	Task func(ctx context.Context, internal *Internal) (done bool, err error)

	taskState struct {
		key       any
		task      Task
		scheduler *Scheduler
		// woken is set by Wake, and consumed by the main loop, prior to each
		// poll, so that wakes during a poll result in another poll
		woken atomic.Bool
		// done is set once the task returns true, after which Wake is a no-op
		done atomic.Bool
		// timer is set by Internal.WakeAfter, and is only accessed from the
		// main loop
		timer clockwork.Timer
	}
)

var (
	_ Waker = (*taskState)(nil)
)

// Wake marks the task for polling, and wakes up the main loop. It is safe to
// call from any goroutine. Wakes between polls are coalesced, and wakes after
// the task is done are ignored.
func (x *taskState) Wake() {
	if x.done.Load() || !x.woken.CompareAndSwap(false, true) {
		return
	}
	if m := x.scheduler.metrics; m != nil {
		m.wakes.WithLabelValues(m.label(x.key)).Inc()
	}
	select {
	case x.scheduler.wakeCh <- struct{}{}:
	default:
		// main loop already has a pending wake
	}
}

// poll runs the task if it has been woken, returning any fatal error.
func (x *taskState) poll(ctx context.Context, internal *Internal) error {
	if x.done.Load() || !x.woken.CompareAndSwap(true, false) {
		return nil
	}

	internal.current = x
	defer func() { internal.current = nil }()

	done, err := x.task.call(ctx, internal)

	if m := x.scheduler.metrics; m != nil {
		m.polls.WithLabelValues(m.label(x.key)).Inc()
	}

	if err != nil {
		x.scheduler.logger.Debug(`task failed`, zap.Any(`key`, x.key), zap.Error(err))
		return err
	}

	if done {
		x.done.Store(true)
		x.stopTimer()
		x.scheduler.logger.Debug(`task done`, zap.Any(`key`, x.key))
	} else {
		x.scheduler.logger.Debug(`task pending`, zap.Any(`key`, x.key))
	}

	return nil
}

// setTimer replaces any pending delayed wake, waking immediately if d is not
// positive.
func (x *taskState) setTimer(d time.Duration) {
	x.stopTimer()
	if x.done.Load() {
		return
	}
	if d <= 0 {
		x.Wake()
		return
	}
	x.timer = x.scheduler.clock.AfterFunc(d, x.Wake)
}

func (x *taskState) stopTimer() {
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
}

package wakeonwrite

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type (
	// Scheduler polls "tasks", implementing a cooperative "main loop", in
	// which every Task is polled, one at a time, on the goroutine calling
	// Run. Tasks are only re-polled after they are woken, typically via a
	// [Cell] they have registered their [Waker] with.
	//
	// Scheduler must be constructed with NewScheduler. The Run method is used
	// to run the scheduler.
	//
	// See also the package docs for [wakeonwrite].
	Scheduler struct {
		// tasks are all configured Task values + poll state, identified by an arbitrary key
		tasks map[any]*taskState

		// keys are the task keys, in the order they were configured, which is the poll order
		keys []any

		// wakeCh is buffered, and is used to wake up the main loop, after a task is woken
		wakeCh chan struct{}

		// runHooks are called on each Scheduler.Run, just prior to starting the main loop.
		runHooks []RunHook

		logger  *zap.Logger
		clock   clockwork.Clock
		metrics *metrics

		// running is used to trigger a panic if Run is called concurrently
		running atomic.Int32
	}
)

// Run runs the scheduler, blocking until every task has completed, the
// context is cancelled, or an error is returned from a RunHook or a Task.
// It returns nil only if every task completed. A panic will occur if called
// concurrently (called again before the previous call returns), or if called
// on a scheduler which was not initialized with NewScheduler.
//
// Each Run polls every task which has not yet completed at least once, even
// if it was not woken. Tasks which completed during a previous Run are not
// polled again, and any delayed wakes (see Internal.WakeAfter) are discarded
// when Run returns.
func (x *Scheduler) Run(ctx context.Context) error {
	if len(x.tasks) == 0 {
		panic(`wakeonwrite: scheduler must be initialized with NewScheduler`)
	}

	// prevent more than one run call at a time (tasks are not safe to poll concurrently)
	if !x.running.CompareAndSwap(0, 1) {
		panic(`wakeonwrite: scheduler already running`)
	}
	defer x.running.Store(0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// always stop all timers on exit
	defer x.stopAllTimers()

	// the internal scheduler api, for hooks and tasks
	internal := Internal{scheduler: x}

	// run any configured run hooks
	for _, hook := range x.runHooks {
		if err := hook.call(ctx, &internal); err != nil {
			return err
		}
	}

	// every pending task gets polled at least once
	for _, key := range x.keys {
		x.tasks[key].Wake()
	}

	// scheduler main loop
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// poll each woken task, in order
		for _, key := range x.keys {
			if err := x.tasks[key].poll(ctx, &internal); err != nil {
				return err
			}
		}

		pending := x.pending()
		if x.metrics != nil {
			x.metrics.pending.Set(float64(pending))
		}
		if pending == 0 {
			x.logger.Info(`all tasks done`, zap.Int(`tasks`, len(x.tasks)))
			return nil
		}

		// wait for our next thing to do
		select {
		case <-ctx.Done():
			x.logger.Info(`scheduler stopped`, zap.Int(`pending`, pending), zap.Error(ctx.Err()))
			return ctx.Err()
		case <-x.wakeCh:
		}
	}
}

// task retrieves the task state, and will panic if the key is not found.
func (x *Scheduler) task(key any) (state *taskState) {
	state = x.tasks[key]
	if state == nil {
		panic(fmt.Sprintf(`wakeonwrite: task not found: %T: %v`, key, key))
	}
	return
}

func (x *Scheduler) pending() (n int) {
	for _, state := range x.tasks {
		if !state.done.Load() {
			n++
		}
	}
	return
}

func (x *Scheduler) stopAllTimers() {
	for _, state := range x.tasks {
		state.stopTimer()
	}
}

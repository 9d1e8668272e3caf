package wakeonwrite

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// newTestScheduler initialises a scheduler with no-op tasks for each key.
func newTestScheduler(t *testing.T, options []Option, keys ...any) *Scheduler {
	t.Helper()
	for _, key := range keys {
		options = append(options, WithTask(key, noopTask))
	}
	scheduler, err := NewScheduler(options...)
	require.NoError(t, err)
	return scheduler
}

func drainWakeCh(scheduler *Scheduler) (received bool) {
	select {
	case <-scheduler.wakeCh:
		return true
	default:
		return false
	}
}

func TestInternal_Key(t *testing.T) {
	scheduler := newTestScheduler(t, nil, "task1")
	internal := &Internal{scheduler: scheduler}

	// no current task (e.g. within a RunHook)
	require.Nil(t, internal.Key())

	internal.current = scheduler.tasks["task1"]
	require.Equal(t, "task1", internal.Key())
}

func TestInternal_Waker(t *testing.T) {
	scheduler := newTestScheduler(t, nil, "task1")
	internal := &Internal{scheduler: scheduler}

	require.PanicsWithValue(t, `wakeonwrite: no task is being polled`, func() {
		internal.Waker()
	})

	internal.current = scheduler.tasks["task1"]
	w := internal.Waker()
	require.Same(t, scheduler.tasks["task1"], w)
	require.Same(t, scheduler.tasks["task1"], internal.WakerFor("task1"))
}

func TestInternal_Wake(t *testing.T) {
	scheduler := newTestScheduler(t, nil, "task1", "task2")
	internal := &Internal{scheduler: scheduler}

	internal.Wake("task1")
	require.True(t, scheduler.tasks["task1"].woken.Load())
	require.False(t, scheduler.tasks["task2"].woken.Load())
	require.True(t, drainWakeCh(scheduler))

	// coalesced until polled
	internal.Wake("task1")
	require.False(t, drainWakeCh(scheduler))

	// a different task still wakes the main loop
	internal.Wake("task2")
	require.True(t, drainWakeCh(scheduler))
}

func TestInternal_Wake_done(t *testing.T) {
	scheduler := newTestScheduler(t, nil, "task1")
	internal := &Internal{scheduler: scheduler}

	scheduler.tasks["task1"].done.Store(true)
	internal.Wake("task1")
	require.False(t, scheduler.tasks["task1"].woken.Load())
	require.False(t, drainWakeCh(scheduler))
}

func TestInternal_taskNotFound(t *testing.T) {
	scheduler := newTestScheduler(t, nil, "task1")
	internal := &Internal{scheduler: scheduler}
	require.PanicsWithValue(t, `wakeonwrite: task not found: string: task2`, func() {
		internal.Wake("task2")
	})
}

func TestInternal_WakeAfter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	scheduler := newTestScheduler(t, []Option{WithClock(clock)}, "task1")
	internal := &Internal{scheduler: scheduler}
	state := scheduler.tasks["task1"]

	internal.WakeAfter("task1", time.Minute)
	require.NotNil(t, state.timer)
	require.False(t, state.woken.Load())

	clock.Advance(time.Second * 59)
	require.False(t, state.woken.Load())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return drainWakeCh(scheduler)
	}, time.Second*5, time.Millisecond)
	require.True(t, state.woken.Load())
}

func TestInternal_WakeAfter_replaces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	scheduler := newTestScheduler(t, []Option{WithClock(clock)}, "task1")
	internal := &Internal{scheduler: scheduler}
	state := scheduler.tasks["task1"]

	internal.WakeAfter("task1", time.Minute)
	first := state.timer
	internal.WakeAfter("task1", time.Hour)
	require.NotSame(t, first, state.timer)

	clock.Advance(time.Minute * 2)
	time.Sleep(time.Millisecond * 20)
	require.False(t, state.woken.Load())

	clock.Advance(time.Hour)
	require.Eventually(t, state.woken.Load, time.Second*5, time.Millisecond)
}

func TestInternal_WakeAfter_immediate(t *testing.T) {
	scheduler := newTestScheduler(t, []Option{WithClock(clockwork.NewFakeClock())}, "task1")
	internal := &Internal{scheduler: scheduler}
	state := scheduler.tasks["task1"]

	internal.WakeAfter("task1", time.Minute)
	internal.WakeAfter("task1", 0)
	require.Nil(t, state.timer)
	require.True(t, state.woken.Load())
}

func TestInternal_WakeAfter_done(t *testing.T) {
	scheduler := newTestScheduler(t, []Option{WithClock(clockwork.NewFakeClock())}, "task1")
	internal := &Internal{scheduler: scheduler}
	state := scheduler.tasks["task1"]

	state.done.Store(true)
	internal.WakeAfter("task1", time.Minute)
	require.Nil(t, state.timer)
	internal.WakeAfter("task1", -1)
	require.False(t, state.woken.Load())
}

func TestInternal_DoneAndPending(t *testing.T) {
	scheduler := newTestScheduler(t, nil, "task1", "task2", "task3")
	internal := &Internal{scheduler: scheduler}

	require.Equal(t, 3, internal.Pending())
	require.False(t, internal.Done("task2"))

	scheduler.tasks["task2"].done.Store(true)
	require.True(t, internal.Done("task2"))
	require.Equal(t, 2, internal.Pending())
}

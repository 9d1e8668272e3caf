package wakeonwrite

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type (
	Option interface {
		applyOption(c *schedulerConfig) error
	}

	optionFunc func(c *schedulerConfig) error

	schedulerConfig struct {
		tasks      map[any]*taskState    // see Scheduler.tasks
		keys       []any                 // see Scheduler.keys
		runHooks   []RunHook             // see Scheduler.runHooks
		logger     *zap.Logger           // see Scheduler.logger
		clock      clockwork.Clock       // see Scheduler.clock
		registerer prometheus.Registerer // optional, see newMetrics
	}
)

var (
	_ Option = optionFunc(nil)
)

// NewScheduler initialises a [Scheduler], with the given options.
// See also `With*` prefixed functions.
func NewScheduler(options ...Option) (*Scheduler, error) {
	c := schedulerConfig{
		tasks:  make(map[any]*taskState),
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}

	for _, option := range options {
		if err := option.applyOption(&c); err != nil {
			return nil, err
		}
	}

	if len(c.tasks) == 0 {
		return nil, errors.New(`wakeonwrite: no tasks configured`)
	}

	x := Scheduler{
		tasks:    c.tasks,
		keys:     c.keys,
		wakeCh:   make(chan struct{}, 1),
		runHooks: c.runHooks,
		logger:   c.logger,
		clock:    c.clock,
	}

	if c.registerer != nil {
		m, err := newMetrics(c.registerer)
		if err != nil {
			return nil, err
		}
		x.metrics = m
	}

	for _, state := range x.tasks {
		state.scheduler = &x
	}

	return &x, nil
}

// WithTask adds a task, identified by the given key. Configuring the same key
// more than once replaces the task, retaining the original poll order.
func WithTask(key any, task Task) Option {
	return optionFunc(func(c *schedulerConfig) (err error) {
		if task == nil {
			return errors.New(`wakeonwrite: task func must not be nil`)
		}
		var success bool
		defer func() {
			if !success {
				recover()
				err = fmt.Errorf(`wakeonwrite: task key type %T is not comparable`, key)
			}
		}()
		if _, ok := c.tasks[key]; !ok {
			c.keys = append(c.keys, key)
		}
		c.tasks[key] = &taskState{
			key:  key,
			task: task,
		}
		success = true
		return nil
	})
}

// WithRunHook adds a [RunHook] to be called on each [Scheduler.Run], just
// prior to starting the main loop. If more than one [RunHook] is configured,
// they will be called in the order they were configured.
func WithRunHook(hook RunHook) Option {
	return optionFunc(func(c *schedulerConfig) error {
		if hook == nil {
			return errors.New(`wakeonwrite: run hook must not be nil`)
		}
		c.runHooks = append(c.runHooks, hook)
		return nil
	})
}

// WithLogger configures the logger, which defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *schedulerConfig) error {
		if logger == nil {
			return errors.New(`wakeonwrite: logger must not be nil`)
		}
		c.logger = logger
		return nil
	})
}

// WithClock configures the clock used by Internal.WakeAfter, which defaults
// to the real clock.
func WithClock(clock clockwork.Clock) Option {
	return optionFunc(func(c *schedulerConfig) error {
		if clock == nil {
			return errors.New(`wakeonwrite: clock must not be nil`)
		}
		c.clock = clock
		return nil
	})
}

// WithMetrics registers scheduler metrics with the given registerer.
// Registration errors, e.g. due to metrics already being registered, are
// returned by New.
func WithMetrics(registerer prometheus.Registerer) Option {
	return optionFunc(func(c *schedulerConfig) error {
		if registerer == nil {
			return errors.New(`wakeonwrite: metrics registerer must not be nil`)
		}
		c.registerer = registerer
		return nil
	})
}

func (x optionFunc) applyOption(c *schedulerConfig) error {
	return x(c)
}

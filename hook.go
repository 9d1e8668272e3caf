package wakeonwrite

import (
	"context"
)

type (
	// RunHook is a hook which is called on each Scheduler.Run, just prior to
	// the first poll of any task. The context will be a descendent of the
	// Scheduler.Run context, and will be cancelled after the hook returns.
	RunHook func(ctx context.Context, internal *Internal) error
)

func (x Task) call(ctx context.Context, internal *Internal) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return x(ctx, internal)
}

func (x RunHook) call(ctx context.Context, internal *Internal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return x(ctx, internal)
}

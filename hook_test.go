package wakeonwrite

import (
	"context"
	"errors"
	"testing"
)

func TestTask_call(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, 123)
	internal := new(Internal)
	expectedError := errors.New(`test error`)

	var taskCtx context.Context
	task := Task(func(ctx context.Context, i *Internal) (bool, error) {
		if err := ctx.Err(); err != nil {
			t.Fatal(err)
		}
		if i != internal {
			t.Fatal(`unexpected internal`)
		}
		taskCtx = ctx
		return true, expectedError
	})

	done, err := task.call(ctx, internal)
	if !done || err != expectedError {
		t.Fatal(done, err)
	}
	if taskCtx == ctx || taskCtx.Value(ctxKey{}) != 123 || taskCtx.Err() == nil {
		t.Fatal(`unexpected ctx`, taskCtx)
	}
}

func TestRunHook_call(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, 123)
	internal := new(Internal)

	var hookCtx context.Context
	hook := RunHook(func(ctx context.Context, i *Internal) error {
		if err := ctx.Err(); err != nil {
			t.Fatal(err)
		}
		if i != internal {
			t.Fatal(`unexpected internal`)
		}
		hookCtx = ctx
		return nil
	})

	if err := hook.call(ctx, internal); err != nil {
		t.Fatal(err)
	}
	if hookCtx == ctx || hookCtx.Value(ctxKey{}) != 123 || hookCtx.Err() == nil {
		t.Fatal(`unexpected ctx`, hookCtx)
	}
}

func TestRunHook_call_withError(t *testing.T) {
	expectedError := errors.New(`test error`)
	hook := RunHook(func(ctx context.Context, internal *Internal) error {
		return expectedError
	})
	if err := hook.call(context.Background(), new(Internal)); err != expectedError {
		t.Fatal(`unexpected error`)
	}
}

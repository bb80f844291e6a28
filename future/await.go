package future

import "context"

// Await drives f from plain Go until it completes or ctx is done. Cancelling
// ctx stops polling and drops f; Await then returns ctx.Err(). f is dropped in
// both cases.
func Await(ctx context.Context, f Future) error {
	signal := make(chan struct{}, 1)
	w := NewWaker(func() {
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	defer w.Release()

	cx := NewContext(w)
	defer cx.Close()

	for {
		if f.Poll(cx) == Completed {
			f.Drop()
			return nil
		}
		select {
		case <-signal:
		case <-ctx.Done():
			f.Drop()
			return ctx.Err()
		}
	}
}

// AwaitTask drives task until it completes and returns its output.
func AwaitTask[T any](ctx context.Context, task Task[T]) (T, error) {
	f, slot := WithOutput(task)
	if err := Await(ctx, f); err != nil {
		var zero T
		return zero, err
	}
	v, _ := slot.Get()
	return v, nil
}

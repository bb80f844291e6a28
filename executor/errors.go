package executor

import "github.com/wippyai/ffi-runtime/errors"

var (
	// ErrTaskDropped is reported when the executor dropped a task before it
	// completed, usually because the executor was closed.
	ErrTaskDropped = errors.New(errors.PhaseExecutor, errors.KindCanceled).
			Detail("task dropped before completion").Build()

	// ErrTaskPanicked matches the error a task completes with when its poll
	// panicked.
	ErrTaskPanicked = errors.New(errors.PhaseExecutor, errors.KindPanicked).
			Detail("task panicked").Build()

	// ErrIncomplete is returned by BlockOn when the executor returned without
	// driving the future to completion.
	ErrIncomplete = errors.New(errors.PhaseExecutor, errors.KindIncomplete).
			Detail("block_on returned before the future completed").Build()
)

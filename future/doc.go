// Package future implements the poll protocol that lets a future produced on
// one side of the bridge be driven by an executor on the other.
//
// A Future is polled with a borrowed Context. Poll returns Completed or
// Pending; it never blocks. Before returning Pending a future must have
// obtained a Waker from the Context (or otherwise arranged a wake-up), and
// calling that waker from any goroutine schedules another poll. Once Completed
// is returned the driver drops the future and never polls it again. Dropping a
// Pending future cancels it.
//
// Typed results travel through an output slot (WithOutput, Slot) or a oneshot
// channel (Oneshot), never through PollFuture.
package future

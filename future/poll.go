package future

import "fmt"

// PollFuture is the result of one poll. Any payload is delivered through the
// concrete future's output slot, never through the result itself.
type PollFuture int8

const (
	Completed PollFuture = 0
	Pending   PollFuture = -1
)

func (p PollFuture) String() string {
	switch p {
	case Completed:
		return "Completed"
	case Pending:
		return "Pending"
	default:
		return fmt.Sprintf("PollFuture(%d)", int8(p))
	}
}

package handle

// Handle is an opaque producer-side address.
// Handle 0 is reserved and is the null handle.
type Handle uint32

// EventType identifies a lifecycle step of a handle.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventDropped
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   uint32
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
// Observers run synchronously on the goroutine that caused the event.
type Observer interface {
	OnHandleEvent(Event)
}

// Backend provides the underlying storage for erased values.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(kind uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a value and returns (value, true) if it was present.
	Drop(handle Handle) (any, bool)

	// Close releases all values held by the backend.
	Close() error
}

// Dropper is optionally implemented by stored values that need cleanup
// when their handle is removed.
type Dropper interface {
	Drop()
}

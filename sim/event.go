package sim

// A Handler processes events. Events are plain data; handlers type-switch on
// them.
type Handler interface {
	Handle(event any) error
}

// ScheduledEvent wraps a user event with the metadata the engine needs.
type ScheduledEvent struct {
	// Event is the payload delivered to the handler.
	Event any

	// Time is the cycle at which the event is processed.
	Time VTimeInCycle

	// Handler processes the event.
	Handler Handler

	// IsSecondary events are handled after all same-time primary events.
	IsSecondary bool
}

// TickEvent asks a handler to advance one cycle.
type TickEvent struct {
	Cycle VTimeInCycle
}

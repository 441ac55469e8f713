package sim

// A Latch holds a value that is written during one cycle and becomes visible
// in the next one.
type Latch interface {
	// Latch publishes the staged value and reports whether the visible value
	// changed.
	Latch() bool
}

// A Signal is a latched register. Readers always observe the value that was
// published at the end of the previous cycle; writers stage the next value.
type Signal[T comparable] struct {
	current T
	next    T
	staged  bool
}

// NewSignal creates a signal that initially holds v.
func NewSignal[T comparable](v T) *Signal[T] {
	return &Signal[T]{current: v, next: v}
}

// Get returns the value visible in this cycle.
func (s *Signal[T]) Get() T {
	return s.current
}

// Set stages the value that becomes visible in the next cycle. Setting the
// same signal twice in one cycle keeps the last value.
func (s *Signal[T]) Set(v T) {
	s.next = v
	s.staged = true
}

// Latch publishes the staged value.
func (s *Signal[T]) Latch() bool {
	if !s.staged {
		return false
	}

	s.staged = false
	changed := s.current != s.next
	s.current = s.next

	return changed
}

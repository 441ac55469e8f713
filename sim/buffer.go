package sim

import "log"

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A Buffer is the type-independent view of a bounded fifo queue.
type Buffer interface {
	Named
	Hookable

	Capacity() int
	Size() int
	IsFull() bool
	IsEmpty() bool

	// Remove all elements in the buffer
	Clear()
}

// A BoundedBuffer is a fifo queue that refuses elements once it holds
// capacity elements.
type BoundedBuffer[T any] struct {
	HookableBase

	name     string
	capacity int
	elements []T
}

// NewBuffer creates a bounded buffer.
func NewBuffer[T any](name string, capacity int) *BoundedBuffer[T] {
	NameMustBeValid(name)

	if capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &BoundedBuffer[T]{
		name:     name,
		capacity: capacity,
		elements: make([]T, 0, capacity),
	}
}

// Name returns the name of the buffer.
func (b *BoundedBuffer[T]) Name() string {
	return b.name
}

// CanPush tells if the buffer has room for one more element.
func (b *BoundedBuffer[T]) CanPush() bool {
	return len(b.elements) < b.capacity
}

// Push appends e. It returns false and leaves the buffer unchanged when the
// buffer is full.
func (b *BoundedBuffer[T]) Push(e T) bool {
	if len(b.elements) >= b.capacity {
		return false
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}

	return true
}

// Pop removes and returns the front element. Popping an empty buffer is a
// programming error.
func (b *BoundedBuffer[T]) Pop() T {
	if len(b.elements) == 0 {
		log.Panicf("pop from empty buffer %s", b.name)
	}

	e := b.elements[0]

	var zero T
	b.elements[0] = zero
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e
}

// Front returns the front element without removing it. The buffer must not be
// empty.
func (b *BoundedBuffer[T]) Front() T {
	if len(b.elements) == 0 {
		log.Panicf("front of empty buffer %s", b.name)
	}

	return b.elements[0]
}

// Peek returns the front element and whether there is one.
func (b *BoundedBuffer[T]) Peek() (T, bool) {
	if len(b.elements) == 0 {
		var zero T
		return zero, false
	}

	return b.elements[0], true
}

// Capacity returns the maximum number of elements.
func (b *BoundedBuffer[T]) Capacity() int {
	return b.capacity
}

// Size returns the number of elements held.
func (b *BoundedBuffer[T]) Size() int {
	return len(b.elements)
}

// IsFull tells if no more element can be pushed.
func (b *BoundedBuffer[T]) IsFull() bool {
	return len(b.elements) >= b.capacity
}

// IsEmpty tells if there is nothing to pop.
func (b *BoundedBuffer[T]) IsEmpty() bool {
	return len(b.elements) == 0
}

// Clear drops all the elements.
func (b *BoundedBuffer[T]) Clear() {
	b.elements = b.elements[:0]
}

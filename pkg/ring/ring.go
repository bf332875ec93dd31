// Package ring provides a fixed-capacity FIFO buffer that evicts the
// oldest element on overflow.
package ring

type Buffer[T any] struct {
	items []T
	cap   int
}

func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &Buffer[T]{cap: capacity}
}

func (b *Buffer[T]) Push(item T) {
	b.items = append(b.items, item)

	if len(b.items) > b.cap {
		b.items = b.items[len(b.items)-b.cap:]
	}
}

// Resize changes the capacity. Shrinking trims to the most recent n
// elements immediately.
func (b *Buffer[T]) Resize(n int) {
	if n < 1 {
		n = 1
	}

	b.cap = n

	if len(b.items) > n {
		b.items = b.items[len(b.items)-n:]
	}
}

func (b *Buffer[T]) Len() int {
	return len(b.items)
}

func (b *Buffer[T]) Cap() int {
	return b.cap
}

// Items returns the buffered elements oldest first. The returned slice
// is a copy.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)

	return out
}

// Tail returns up to n most recent elements, oldest first.
func (b *Buffer[T]) Tail(n int) []T {
	if n > len(b.items) {
		n = len(b.items)
	}

	out := make([]T, n)
	copy(out, b.items[len(b.items)-n:])

	return out
}

func (b *Buffer[T]) Clear() {
	b.items = nil
}

package iterator

import "sync/atomic"

// Iterator hands out Items round-robin. Safe for concurrent use; must not be copied.
type Iterator[T any] struct {
	Items []T
	index atomic.Uint64
}

func New[T any](items ...T) *Iterator[T] {
	return &Iterator[T]{Items: items}
}

// Next returns the current item and advances. The first call returns Items[0].
func (it *Iterator[T]) Next() T {
	n := uint64(len(it.Items))
	if n == 0 {
		var zero T
		return zero
	}
	i := it.index.Add(1) - 1
	if n&(n-1) == 0 {
		return it.Items[i&(n-1)]
	}
	return it.Items[i%n]
}

// Peek returns what Next would return without advancing.
func (it *Iterator[T]) Peek() T {
	n := len(it.Items)
	if n == 0 {
		var zero T
		return zero
	}
	i := it.index.Load()
	return it.Items[i%uint64(n)]
}

func (it *Iterator[T]) Len() int {
	return len(it.Items)
}

// Turns is how many times Next has been called.
func (it *Iterator[T]) Turns() uint64 {
	return it.index.Load()
}

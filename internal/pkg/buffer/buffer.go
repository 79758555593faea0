package buffer

import (
	"sync"
)

const (
	SmallSize = 32 * 1024
	LargeSize = 128 * 1024
)

var SPool = sync.Pool{
	New: func() any {
		b := make([]byte, SmallSize)
		return &b
	},
}

var LPool = sync.Pool{
	New: func() any {
		b := make([]byte, LargeSize)
		return &b
	},
}

// Buffer is an output region handed to callers. Free returns it to its pool;
// the bytes must not be used afterwards.
type Buffer struct {
	b    []byte
	back *[]byte
	pool *sync.Pool
}

// Get returns a buffer of length n. Sizes above LargeSize are allocated directly.
func Get(n int) *Buffer {
	var pool *sync.Pool
	switch {
	case n <= SmallSize:
		pool = &SPool
	case n <= LargeSize:
		pool = &LPool
	default:
		return &Buffer{b: make([]byte, n)}
	}
	bp := pool.Get().(*[]byte)
	return &Buffer{b: (*bp)[:n], back: bp, pool: pool}
}

func (b *Buffer) Bytes() []byte {
	return b.b
}

func (b *Buffer) Len() int {
	return len(b.b)
}

// Truncate shrinks the visible length to n.
func (b *Buffer) Truncate(n int) {
	b.b = b.b[:n]
}

// Free is safe to call more than once.
func (b *Buffer) Free() {
	if b.pool != nil {
		clear((*b.back)[:cap(b.b)])
		b.pool.Put(b.back)
	}
	b.b, b.back, b.pool = nil, nil, nil
}

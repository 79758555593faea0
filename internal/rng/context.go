package rng

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// Context is a per-call deterministic random stream. Not safe for concurrent use.
type Context struct {
	cipher *chacha20.Cipher
	level  int
	buf    [8]byte
}

func (c *Context) Level() int {
	return c.level
}

// Fill overwrites b with keystream bytes.
func (c *Context) Fill(b []byte) {
	clear(b)
	c.cipher.XORKeyStream(b, b)
}

func (c *Context) Uint32() uint32 {
	c.Fill(c.buf[:4])
	return binary.BigEndian.Uint32(c.buf[:4])
}

func (c *Context) Uint64() uint64 {
	c.Fill(c.buf[:])
	return binary.BigEndian.Uint64(c.buf[:])
}

// Intn returns a value in [0, n). n <= 0 returns 0.
func (c *Context) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(c.Uint64() % uint64(n))
}

// InRange returns a value in [min, max] inclusive.
func (c *Context) InRange(min, max int) int {
	if min >= max {
		return min
	}
	return min + c.Intn(max-min+1)
}

func (c *Context) Bool() bool {
	return c.Uint32()&1 == 1
}

// JitterPercent is the maximum deviation applied by Jitter. Level 1 is exact.
func (c *Context) JitterPercent() int {
	return (c.level - 1) * 10
}

// Jitter perturbs value by up to ±JitterPercent. The result never goes below zero.
func (c *Context) Jitter(value int) int {
	maxJitter := value * c.JitterPercent() / 100
	if maxJitter <= 0 {
		return value
	}
	v := value + c.InRange(-maxJitter, maxJitter)
	if v < 0 {
		return 0
	}
	return v
}

// Pick returns one element of items chosen uniformly.
func Pick[T any](c *Context, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[c.Intn(len(items))]
}

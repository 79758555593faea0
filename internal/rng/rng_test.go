package rng

import (
	"errors"
	"sync"
	"testing"
)

func TestContextLevelBounds(t *testing.T) {
	src := NewSourceFromUint64(1)
	for _, level := range []int{0, 6, -1} {
		if _, err := src.Context(level); !errors.Is(err, ErrInvalidLevel) {
			t.Errorf("Context(%d) err = %v, want ErrInvalidLevel", level, err)
		}
	}
	for level := MinLevel; level <= MaxLevel; level++ {
		if _, err := src.Context(level); err != nil {
			t.Errorf("Context(%d) unexpected error: %v", level, err)
		}
	}
}

func TestSameSeedSameStream(t *testing.T) {
	a, _ := NewSourceFromUint64(42).Context(3)
	b, _ := NewSourceFromUint64(42).Context(3)
	for i := 0; i < 64; i++ {
		if x, y := a.Uint32(), b.Uint32(); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestContextsAreIndependent(t *testing.T) {
	src := NewSourceFromUint64(42)
	a, _ := src.Context(1)
	b, _ := src.Context(1)
	if a.Uint64() == b.Uint64() {
		t.Error("consecutive contexts produced the same first draw")
	}
}

func TestJitterLevelOneIsExact(t *testing.T) {
	c, _ := NewSourceFromUint64(7).Context(1)
	for i := 0; i < 100; i++ {
		if v := c.Jitter(300); v != 300 {
			t.Fatalf("Jitter(300) = %d at level 1", v)
		}
	}
}

func TestJitterBounds(t *testing.T) {
	c, _ := NewSourceFromUint64(7).Context(5)
	for i := 0; i < 1000; i++ {
		v := c.Jitter(300)
		if v < 180 || v > 420 {
			t.Fatalf("Jitter(300) = %d, want within ±40%%", v)
		}
	}
}

func TestInRange(t *testing.T) {
	c, _ := NewSourceFromUint64(9).Context(2)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := c.InRange(10, 20)
		if v < 10 || v > 20 {
			t.Fatalf("InRange(10, 20) = %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 11 {
		t.Errorf("InRange covered %d values, want 11", len(seen))
	}
	if v := c.InRange(5, 5); v != 5 {
		t.Errorf("InRange(5, 5) = %d", v)
	}
}

func TestConcurrentContexts(t *testing.T) {
	src := NewSourceFromUint64(3)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := src.Context(2)
			if err != nil {
				t.Error(err)
				return
			}
			c.Uint64()
		}()
	}
	wg.Wait()
	if src.Calls() != 16 {
		t.Errorf("Calls() = %d, want 16", src.Calls())
	}
}

func TestPassphraseDeterministic(t *testing.T) {
	a, _ := SourceFromPassphrase("secret").Context(1)
	b, _ := SourceFromPassphrase("secret").Context(1)
	if a.Uint64() != b.Uint64() {
		t.Error("same passphrase produced different streams")
	}
}

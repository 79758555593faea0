package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/pbkdf2"
)

const (
	MinLevel = 1
	MaxLevel = 5

	SeedSize = chacha20.KeySize
)

var ErrInvalidLevel = errors.New("randomization level out of range")

// Source is the shared seed state. Every Context handed out gets its own
// keystream position, so contexts never share mutable state.
type Source struct {
	mu      sync.Mutex
	seed    [SeedSize]byte
	counter uint64
}

func NewSource(seed [SeedSize]byte) *Source {
	return &Source{seed: seed}
}

// NewSourceFromUint64 is a convenience for tests and reproducible runs.
func NewSourceFromUint64(v uint64) *Source {
	var seed [SeedSize]byte
	binary.BigEndian.PutUint64(seed[:8], v)
	return NewSource(seed)
}

// NewRandomSource seeds from crypto/rand.
func NewRandomSource() (*Source, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return NewSource(seed), nil
}

// SourceFromPassphrase derives the seed from a passphrase so both peers and
// test runs can share a reproducible stream.
func SourceFromPassphrase(passphrase string) *Source {
	key := pbkdf2.Key([]byte(passphrase), []byte("veil-rng"), 100_000, SeedSize, sha256.New)
	var seed [SeedSize]byte
	copy(seed[:], key)
	return NewSource(seed)
}

// Context returns a fresh per-call context at the given randomization level.
func (s *Source) Context(level int) (*Context, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidLevel, level, MinLevel, MaxLevel)
	}
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()

	var nonce [chacha20.NonceSize]byte
	binary.BigEndian.PutUint64(nonce[4:], n)
	c, err := chacha20.NewUnauthenticatedCipher(s.seed[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &Context{cipher: c, level: level}, nil
}

// Calls reports how many contexts were handed out.
func (s *Source) Calls() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

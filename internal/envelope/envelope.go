// Package envelope splits a handshake into self-describing fragments and
// reassembles them without any side channel.
//
// Wire format, all integers big-endian:
//
//	magic(4) | version(1) | fragment_count(2) |
//	fragment_count × [ sequence_index(2) | delay_ms(4) | payload_length(4) | payload ]
package envelope

import (
	"errors"
	"fmt"
)

const (
	Version = 1

	HeaderLen         = 4 + 1 + 2
	FragmentHeaderLen = 2 + 4 + 4

	MinFragmentSize = 100
	MaxFragmentSize = 500
	MinDelayMS      = 10
	MaxDelayMS      = 100

	MaxFragments = 1<<16 - 1
)

var Magic = [4]byte{'V', 'E', 'I', 'L'}

var (
	ErrInvalidFragmentSize = errors.New("fragment size out of range")
	ErrInvalidDelay        = errors.New("delay out of range")
	ErrEnvelopeCorrupt     = errors.New("envelope corrupt")
	ErrOutputTooSmall      = errors.New("output buffer too small")
	ErrTooManyFragments    = errors.New("too many fragments")
)

// OutputTooSmallError carries the exact capacity the caller must provide.
type OutputTooSmallError struct {
	Required int
	Have     int
}

func (e *OutputTooSmallError) Error() string {
	return fmt.Sprintf("output buffer too small: need %d bytes, have %d", e.Required, e.Have)
}

func (e *OutputTooSmallError) Is(target error) bool {
	return target == ErrOutputTooSmall
}

// Fragment is one ordered chunk. DelayMS is advisory pacing for the transport.
type Fragment struct {
	Index   uint16
	Total   uint16
	DelayMS uint32
	Payload []byte
}

type Envelope struct {
	Version   uint8
	Fragments []Fragment
}

// Len is the encoded size in bytes.
func (e *Envelope) Len() int {
	n := HeaderLen
	for _, f := range e.Fragments {
		n += FragmentHeaderLen + len(f.Payload)
	}
	return n
}

// PayloadLen is the size of the reassembled handshake.
func (e *Envelope) PayloadLen() int {
	n := 0
	for _, f := range e.Fragments {
		n += len(f.Payload)
	}
	return n
}

// EncodedLen is the envelope size for a handshake of n bytes split into k fragments.
func EncodedLen(n, k int) int {
	return HeaderLen + k*FragmentHeaderLen + n
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEnvelopeCorrupt, fmt.Sprintf(format, args...))
}

package envelope

import (
	"encoding/binary"
	"fmt"

	"veil/internal/rng"
)

// Split walks handshake from offset 0. Each chunk is fragmentSize perturbed by
// the context's jitter, clamped to [MinFragmentSize, MaxFragmentSize] and then
// to what remains. Delays are delayMS perturbed the same way and clamped to
// [MinDelayMS, MaxDelayMS]. Payloads alias handshake.
func Split(handshake []byte, fragmentSize, delayMS int, ctx *rng.Context) (*Envelope, error) {
	if fragmentSize < MinFragmentSize || fragmentSize > MaxFragmentSize {
		return nil, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidFragmentSize, fragmentSize, MinFragmentSize, MaxFragmentSize)
	}
	if delayMS < MinDelayMS || delayMS > MaxDelayMS {
		return nil, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidDelay, delayMS, MinDelayMS, MaxDelayMS)
	}
	if len(handshake) > MaxFragments*MinFragmentSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooManyFragments, len(handshake))
	}

	env := &Envelope{Version: Version}
	for offset := 0; offset < len(handshake); {
		size := clamp(ctx.Jitter(fragmentSize), MinFragmentSize, MaxFragmentSize)
		size = min(size, len(handshake)-offset)
		delay := clamp(ctx.Jitter(delayMS), MinDelayMS, MaxDelayMS)

		env.Fragments = append(env.Fragments, Fragment{
			Index:   uint16(len(env.Fragments)),
			DelayMS: uint32(delay),
			Payload: handshake[offset : offset+size],
		})
		offset += size
	}
	total := uint16(len(env.Fragments))
	for i := range env.Fragments {
		env.Fragments[i].Total = total
	}
	return env, nil
}

// Single wraps handshake in a one-fragment envelope, used when fragmentation is
// disabled so the decoder has a single code path.
func Single(handshake []byte, delayMS int) *Envelope {
	env := &Envelope{Version: Version}
	if len(handshake) > 0 {
		env.Fragments = []Fragment{{Index: 0, Total: 1, DelayMS: uint32(delayMS), Payload: handshake}}
	}
	return env
}

// MarshalTo writes the envelope into dst. When dst is too small nothing is
// written and an *OutputTooSmallError reports the required size.
func (e *Envelope) MarshalTo(dst []byte) (int, error) {
	n := e.Len()
	if len(dst) < n {
		return 0, &OutputTooSmallError{Required: n, Have: len(dst)}
	}
	if len(e.Fragments) > MaxFragments {
		return 0, fmt.Errorf("%w: %d", ErrTooManyFragments, len(e.Fragments))
	}
	copy(dst, Magic[:])
	dst[4] = e.Version
	binary.BigEndian.PutUint16(dst[5:], uint16(len(e.Fragments)))
	off := HeaderLen
	for _, f := range e.Fragments {
		binary.BigEndian.PutUint16(dst[off:], f.Index)
		binary.BigEndian.PutUint32(dst[off+2:], f.DelayMS)
		binary.BigEndian.PutUint32(dst[off+6:], uint32(len(f.Payload)))
		off += FragmentHeaderLen
		off += copy(dst[off:], f.Payload)
	}
	return off, nil
}

func (e *Envelope) Marshal() []byte {
	b := make([]byte, e.Len())
	// Sized from Len, cannot be too small.
	n, _ := e.MarshalTo(b)
	return b[:n]
}

// Encode is Split followed by MarshalTo.
func Encode(handshake []byte, fragmentSize, delayMS int, ctx *rng.Context, dst []byte) (int, error) {
	env, err := Split(handshake, fragmentSize, delayMS, ctx)
	if err != nil {
		return 0, err
	}
	return env.MarshalTo(dst)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

package envelope

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// IsEnvelope reports whether b starts with the envelope magic.
func IsEnvelope(b []byte) bool {
	return len(b) >= len(Magic) && bytes.Equal(b[:len(Magic)], Magic[:])
}

// Parse strictly validates b. Any truncation, over-long payload_length,
// trailing bytes, unknown version, or index set other than exactly
// {0..count-1} yields ErrEnvelopeCorrupt. Fragments are returned in index
// order; payloads alias b.
func Parse(b []byte) (*Envelope, error) {
	if !IsEnvelope(b) {
		return nil, corrupt("missing magic")
	}
	if len(b) < HeaderLen {
		return nil, corrupt("truncated header: %d bytes", len(b))
	}
	version := b[4]
	if version != Version {
		return nil, corrupt("unsupported version %d", version)
	}
	count := int(binary.BigEndian.Uint16(b[5:]))
	if count > (len(b)-HeaderLen)/FragmentHeaderLen {
		return nil, corrupt("%d fragments cannot fit in %d bytes", count, len(b))
	}

	frags := make([]Fragment, count)
	seen := make([]bool, count)
	off := HeaderLen
	for i := 0; i < count; i++ {
		if len(b)-off < FragmentHeaderLen {
			return nil, corrupt("fragment %d: truncated header", i)
		}
		index := binary.BigEndian.Uint16(b[off:])
		delay := binary.BigEndian.Uint32(b[off+2:])
		plen := binary.BigEndian.Uint32(b[off+6:])
		off += FragmentHeaderLen

		if uint64(plen) > uint64(len(b)-off) {
			return nil, corrupt("fragment %d: payload length %d exceeds remaining %d", i, plen, len(b)-off)
		}
		if int(index) >= count {
			return nil, corrupt("fragment %d: index %d out of range", i, index)
		}
		if seen[index] {
			return nil, corrupt("fragment %d: duplicate index %d", i, index)
		}
		seen[index] = true
		frags[index] = Fragment{
			Index:   index,
			Total:   uint16(count),
			DelayMS: delay,
			Payload: b[off : off+int(plen)],
		}
		off += int(plen)
	}
	if off != len(b) {
		return nil, corrupt("%d trailing bytes", len(b)-off)
	}
	return &Envelope{Version: version, Fragments: frags}, nil
}

// DecodedLen is the size Decode would write for b.
func DecodedLen(b []byte) (int, error) {
	if !IsEnvelope(b) {
		return len(b), nil
	}
	env, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return env.PayloadLen(), nil
}

// Decode reassembles b into dst. Input without the magic is not an envelope
// and is copied through unchanged. On any error dst is left untouched.
func Decode(b, dst []byte) (int, error) {
	if !IsEnvelope(b) {
		if len(dst) < len(b) {
			return 0, &OutputTooSmallError{Required: len(b), Have: len(dst)}
		}
		return copy(dst, b), nil
	}
	env, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return env.Reassemble(dst)
}

// Reassemble concatenates payloads in index order into dst.
func (e *Envelope) Reassemble(dst []byte) (int, error) {
	n := e.PayloadLen()
	if len(dst) < n {
		return 0, &OutputTooSmallError{Required: n, Have: len(dst)}
	}
	off := 0
	for i, f := range e.Fragments {
		if int(f.Index) != i {
			return 0, fmt.Errorf("%w: fragment %d has index %d", ErrEnvelopeCorrupt, i, f.Index)
		}
		off += copy(dst[off:], f.Payload)
	}
	return off, nil
}

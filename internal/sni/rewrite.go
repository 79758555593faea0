package sni

import (
	"encoding/binary"
	"math"

	"veil/internal/rng"
	"veil/internal/tlshello"
)

// Rewrite returns a copy of the ClientHello described by v with the hostname's
// ASCII case randomized and, when the hello carries no padding extension yet,
// an RFC 7685 padding extension appended. All enclosing length fields are
// updated so the result parses as a ClientHello with the same server name
// under case folding. Hellos offering pre_shared_key are refused with
// ErrResumption: their binders cover the hostname bytes.
func Rewrite(hello []byte, v tlshello.View, ctx *rng.Context) ([]byte, error) {
	return CaseRandom.Rewrite(hello, v, ctx)
}

// Rewrite is the package Rewrite with the hostname cased by c.
func (c Casing) Rewrite(hello []byte, v tlshello.View, ctx *rng.Context) ([]byte, error) {
	if !v.HasSNI {
		return nil, tlshello.ErrExtensionNotFound
	}
	if v.HasPSK {
		return nil, ErrResumption
	}
	if err := Validate(string(v.Hostname(hello))); err != nil {
		return nil, err
	}

	padLen := paddingBudget(hello, v, ctx.InRange(0, PaddingPerLevel*ctx.Level()))
	grow := 0
	if padLen >= 0 {
		grow = 4 + padLen
	}

	out := make([]byte, len(hello)+grow)
	insertAt := v.ExtensionsOffset + v.ExtensionsLength
	copy(out, hello[:insertAt])
	copy(out[insertAt+grow:], hello[insertAt:])

	c.apply(out[v.HostnameOffset:v.HostnameOffset+v.HostnameLength], ctx)
	if grow == 0 {
		return out, nil
	}

	// Padding content must be zero.
	binary.BigEndian.PutUint16(out[insertAt:], tlshello.ExtPadding)
	binary.BigEndian.PutUint16(out[insertAt+2:], uint16(padLen))
	clear(out[insertAt+4 : insertAt+grow])

	binary.BigEndian.PutUint16(out[v.ExtensionsLenOffset:], uint16(v.ExtensionsLength+grow))
	hsLen := uint24(out[v.HandshakeOffset+1:])
	putUint24(out[v.HandshakeOffset+1:], hsLen+uint32(grow))
	if v.HasRecord {
		recLen := binary.BigEndian.Uint16(out[3:])
		binary.BigEndian.PutUint16(out[3:], recLen+uint16(grow))
	}
	return out, nil
}

// paddingBudget shrinks want so every enclosing length stays in range.
// It returns -1 when no padding extension can be added.
func paddingBudget(hello []byte, v tlshello.View, want int) int {
	if v.HasPadding || v.ExtensionsLenOffset < 0 {
		return -1
	}
	room := math.MaxUint16 - v.ExtensionsLength - 4
	if v.HasRecord {
		recLen := int(binary.BigEndian.Uint16(hello[3:]))
		room = min(room, tlshello.MaxRecordLen-recLen-4)
	}
	if room < 0 {
		return -1
	}
	return min(want, room)
}

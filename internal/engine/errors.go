package engine

import (
	"errors"

	"veil/internal/envelope"
	"veil/internal/rng"
	"veil/internal/rotate"
	"veil/internal/sni"
	"veil/internal/tlshello"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotInitialized   = errors.New("engine not initialized")
)

// Status codes returned at the call boundary. Zero is success.
const (
	StatusOK                 = 0
	StatusInvalidParameter   = -1
	StatusMalformedHandshake = -2
	StatusExtensionNotFound  = -3
	StatusInvalidHostname    = -4
	StatusOutputTooSmall     = -5
	StatusEnvelopeCorrupt    = -6
	StatusPacketTooShort     = -7
	StatusNotInitialized     = -8
	StatusInternal           = -9
)

var statusTable = []struct {
	err    error
	status int
}{
	{ErrNotInitialized, StatusNotInitialized},
	{ErrInvalidParameter, StatusInvalidParameter},
	{envelope.ErrInvalidFragmentSize, StatusInvalidParameter},
	{envelope.ErrInvalidDelay, StatusInvalidParameter},
	{envelope.ErrTooManyFragments, StatusInvalidParameter},
	{rng.ErrInvalidLevel, StatusInvalidParameter},
	{rotate.ErrUnsupportedPacket, StatusInvalidParameter},
	{rotate.ErrPacketTooLarge, StatusInvalidParameter},
	{tlshello.ErrMalformedHandshake, StatusMalformedHandshake},
	{tlshello.ErrNotClientHello, StatusMalformedHandshake},
	{tlshello.ErrExtensionNotFound, StatusExtensionNotFound},
	{sni.ErrInvalidHostname, StatusInvalidHostname},
	{envelope.ErrOutputTooSmall, StatusOutputTooSmall},
	{envelope.ErrEnvelopeCorrupt, StatusEnvelopeCorrupt},
	{rotate.ErrPacketTooShort, StatusPacketTooShort},
}

// Status maps err onto the boundary status codes.
func Status(err error) int {
	if err == nil {
		return StatusOK
	}
	for _, s := range statusTable {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return StatusInternal
}

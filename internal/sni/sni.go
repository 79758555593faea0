package sni

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"veil/internal/rng"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/net/idna"
)

// PaddingPerLevel bounds the random padding: [0, PaddingPerLevel*level] bytes.
const PaddingPerLevel = 16

var (
	ErrInvalidHostname = errors.New("invalid hostname")
	ErrInvalidEncoding = errors.New("invalid SNI encoding")
	ErrResumption      = errors.New("ClientHello offers pre_shared_key")
)

// Encoded is a parsed SNI encoding. Hostname keeps the camouflaged case.
type Encoded struct {
	Mask     []byte
	Padding  []byte
	Hostname []byte
}

// Original undoes the case mask.
func (e Encoded) Original() []byte {
	out := make([]byte, len(e.Hostname))
	for i, c := range e.Hostname {
		if e.Mask[i/8]&(0x80>>(i%8)) != 0 {
			c = flipCase(c)
		}
		out[i] = c
	}
	return out
}

func Validate(hostname string) error {
	if len(hostname) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidHostname)
	}
	if len(hostname) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidHostname, len(hostname), math.MaxUint16)
	}
	for i := 0; i < len(hostname); i++ {
		c := hostname[i]
		if c >= 0x80 {
			return fmt.Errorf("%w: non-ASCII byte 0x%02x at %d", ErrInvalidHostname, c, i)
		}
		if c < 0x20 || c == 0x7f {
			return fmt.Errorf("%w: control byte 0x%02x at %d", ErrInvalidHostname, c, i)
		}
	}
	return nil
}

// EncodedLen is the size of Encode's output for a hostname and padding length.
func EncodedLen(hostnameLen, paddingLen int) int {
	return 2 + maskLen(hostnameLen) + 2 + paddingLen + hostnameLen
}

// Encode produces
//
//	[original_length u16][case_mask][padding_length u16][padding][hostname with case applied]
//
// Bit i of the mask (MSB first) is set when byte i had its case flipped.
// Letters are cased at random.
func Encode(hostname string, ctx *rng.Context) ([]byte, error) {
	return CaseRandom.Encode(hostname, ctx)
}

// Encode is the package Encode with the hostname cased by c.
func (c Casing) Encode(hostname string, ctx *rng.Context) ([]byte, error) {
	if err := Validate(hostname); err != nil {
		return nil, err
	}
	host := []byte(hostname)
	mask := c.apply(host, ctx)

	padding := make([]byte, ctx.InRange(0, PaddingPerLevel*ctx.Level()))
	ctx.Fill(padding)

	b := cryptobyte.NewFixedBuilder(make([]byte, 0, EncodedLen(len(host), len(padding))))
	b.AddUint16(uint16(len(host)))
	b.AddBytes(mask)
	b.AddUint16(uint16(len(padding)))
	b.AddBytes(padding)
	b.AddBytes(host)
	return b.Bytes()
}

func Decode(encoded []byte) (Encoded, error) {
	var e Encoded
	s := cryptobyte.String(encoded)
	var hostLen, padLen uint16
	if !s.ReadUint16(&hostLen) ||
		!s.ReadBytes(&e.Mask, maskLen(int(hostLen))) ||
		!s.ReadUint16(&padLen) ||
		!s.ReadBytes(&e.Padding, int(padLen)) ||
		!s.ReadBytes(&e.Hostname, int(hostLen)) ||
		!s.Empty() {
		return Encoded{}, ErrInvalidEncoding
	}
	return e, nil
}

// Stats summarises an encoding for logs and the sni command.
type Stats struct {
	HostnameLen int
	PaddingLen  int
	EncodedLen  int
	CaseFlips   int
	Suspicious  bool
}

func (e Encoded) Stats() Stats {
	flips := 0
	for _, m := range e.Mask {
		flips += bits.OnesCount8(m)
	}
	return Stats{
		HostnameLen: len(e.Hostname),
		PaddingLen:  len(e.Padding),
		EncodedLen:  EncodedLen(len(e.Hostname), len(e.Padding)),
		CaseFlips:   flips,
		Suspicious:  Suspicious(string(e.Original())),
	}
}

// ToASCII converts an internationalized name to its ACE form.
func ToASCII(name string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHostname, err)
	}
	return ascii, nil
}

// Suspicious flags names a classifier would find unusual: very short,
// shouting case, or mostly digits.
func Suspicious(hostname string) bool {
	if len(hostname) < 3 {
		return true
	}
	var upper, lower, digits int
	for i := 0; i < len(hostname); i++ {
		switch c := hostname[i]; {
		case c >= 'A' && c <= 'Z':
			upper++
		case c >= 'a' && c <= 'z':
			lower++
		case c >= '0' && c <= '9':
			digits++
		}
	}
	if upper > 0 && lower == 0 {
		return true
	}
	return float64(digits)/float64(len(hostname)) > 0.4
}

// randomizeCase flips letters in place and returns the flip mask.
func randomizeCase(host []byte, ctx *rng.Context) []byte {
	mask := make([]byte, maskLen(len(host)))
	for i, c := range host {
		if !isLetter(c) || !ctx.Bool() {
			continue
		}
		host[i] = flipCase(c)
		mask[i/8] |= 0x80 >> (i % 8)
	}
	return mask
}

func maskLen(n int) int {
	return (n + 7) / 8
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func flipCase(c byte) byte {
	if isLetter(c) {
		return c ^ 0x20
	}
	return c
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	binary.BigEndian.PutUint16(b[1:], uint16(v))
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(binary.BigEndian.Uint16(b[1:]))
}

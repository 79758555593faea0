// Package tlshello locates the handshake body and the server_name extension
// inside a TLS ClientHello without modifying it.
package tlshello

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

const (
	RecordTypeHandshake      = 0x16
	HandshakeTypeClientHello = 0x01

	RecordHeaderLen    = 5
	HandshakeHeaderLen = 4
	MaxRecordLen       = 1 << 14

	ExtServerName   = 0x0000
	ExtPadding      = 0x0015
	ExtPreSharedKey = 0x0029
)

var (
	ErrMalformedHandshake = errors.New("malformed TLS handshake")
	ErrNotClientHello     = errors.New("not a TLS ClientHello")
	// ErrExtensionNotFound is informational: the returned View is still valid.
	ErrExtensionNotFound = errors.New("server_name extension not found")
)

// View holds offsets into the buffer passed to Parse. It does not own the buffer.
type View struct {
	HasRecord bool

	HandshakeOffset int // first byte of the handshake header
	BodyOffset      int
	BodyLength      int

	// Offset of the extensions vector length prefix; -1 when the hello has no extensions block.
	ExtensionsLenOffset int
	ExtensionsOffset    int
	ExtensionsLength    int

	HasSNI         bool
	SNIOffset      int // extension header (type) offset
	SNILength      int // header included
	HostnameOffset int
	HostnameLength int

	HasPadding bool
	// HasPSK is set when the hello offers pre_shared_key, which must stay the
	// last extension and whose binders cover the hello bytes.
	HasPSK     bool
}

// Hostname returns the SNI bytes of b, which must be the buffer the view was parsed from.
func (v View) Hostname(b []byte) []byte {
	if !v.HasSNI {
		return nil
	}
	return b[v.HostnameOffset : v.HostnameOffset+v.HostnameLength]
}

// IsClientHello reports whether b starts like a handshake record carrying a ClientHello.
func IsClientHello(b []byte) bool {
	if len(b) < RecordHeaderLen+1 {
		return false
	}
	return b[0] == RecordTypeHandshake && b[1] == 0x03 && b[5] == HandshakeTypeClientHello
}

// Parse accepts either a handshake record or a bare handshake message.
// When the hello has no server_name extension the view is returned together
// with ErrExtensionNotFound.
func Parse(b []byte) (View, error) {
	v := View{ExtensionsLenOffset: -1}
	if len(b) == 0 {
		return v, fmt.Errorf("%w: empty input", ErrNotClientHello)
	}

	hs := cryptobyte.String(b)
	switch b[0] {
	case RecordTypeHandshake:
		in := cryptobyte.String(b)
		var major, minor uint8
		var record cryptobyte.String
		if !in.Skip(1) || !in.ReadUint8(&major) || !in.ReadUint8(&minor) {
			return v, fmt.Errorf("%w: short record header", ErrMalformedHandshake)
		}
		if major != 0x03 {
			return v, fmt.Errorf("%w: record version %d.%d", ErrNotClientHello, major, minor)
		}
		if !in.ReadUint16LengthPrefixed(&record) {
			return v, fmt.Errorf("%w: record length exceeds buffer", ErrMalformedHandshake)
		}
		v.HasRecord = true
		hs = record
	case HandshakeTypeClientHello:
	default:
		return v, fmt.Errorf("%w: leading byte 0x%02x", ErrNotClientHello, b[0])
	}

	v.HandshakeOffset = offset(b, hs)
	var msgType uint8
	var body cryptobyte.String
	if !hs.ReadUint8(&msgType) {
		return v, fmt.Errorf("%w: empty handshake", ErrMalformedHandshake)
	}
	if msgType != HandshakeTypeClientHello {
		return v, fmt.Errorf("%w: handshake type %d", ErrNotClientHello, msgType)
	}
	if !hs.ReadUint24LengthPrefixed(&body) {
		return v, fmt.Errorf("%w: handshake length exceeds buffer", ErrMalformedHandshake)
	}
	v.BodyOffset = offset(b, body)
	v.BodyLength = len(body)

	var sessionID, suites, compression cryptobyte.String
	if !body.Skip(2+32) ||
		!body.ReadUint8LengthPrefixed(&sessionID) ||
		!body.ReadUint16LengthPrefixed(&suites) ||
		!body.ReadUint8LengthPrefixed(&compression) {
		return v, fmt.Errorf("%w: truncated hello body", ErrMalformedHandshake)
	}
	if body.Empty() {
		return v, ErrExtensionNotFound
	}

	v.ExtensionsLenOffset = offset(b, body)
	var exts cryptobyte.String
	if !body.ReadUint16LengthPrefixed(&exts) || !body.Empty() {
		return v, fmt.Errorf("%w: bad extensions block", ErrMalformedHandshake)
	}
	v.ExtensionsOffset = offset(b, exts)
	v.ExtensionsLength = len(exts)

	for !exts.Empty() {
		start := offset(b, exts)
		var typ uint16
		var data cryptobyte.String
		if !exts.ReadUint16(&typ) || !exts.ReadUint16LengthPrefixed(&data) {
			return v, fmt.Errorf("%w: bad extension at offset %d", ErrMalformedHandshake, start)
		}
		switch typ {
		case ExtServerName:
			if v.HasSNI {
				return v, fmt.Errorf("%w: duplicate server_name extension", ErrMalformedHandshake)
			}
			host, err := serverName(data)
			if errors.Is(err, ErrExtensionNotFound) {
				continue
			}
			if err != nil {
				return v, err
			}
			v.HasSNI = true
			v.SNIOffset = start
			v.SNILength = 4 + len(data)
			v.HostnameOffset = offset(b, host)
			v.HostnameLength = len(host)
		case ExtPadding:
			v.HasPadding = true
		case ExtPreSharedKey:
			v.HasPSK = true
		}
	}

	if !v.HasSNI {
		return v, ErrExtensionNotFound
	}
	return v, nil
}

// ServerName returns the host_name entry of the ClientHello in b.
func ServerName(b []byte) (string, error) {
	v, err := Parse(b)
	if err != nil {
		return "", err
	}
	return string(v.Hostname(b)), nil
}

// RFC 6066, Section 3.
func serverName(data cryptobyte.String) (cryptobyte.String, error) {
	var list cryptobyte.String
	if !data.ReadUint16LengthPrefixed(&list) || list.Empty() || !data.Empty() {
		return nil, fmt.Errorf("%w: bad server name list", ErrMalformedHandshake)
	}
	for !list.Empty() {
		var nameType uint8
		var name cryptobyte.String
		if !list.ReadUint8(&nameType) || !list.ReadUint16LengthPrefixed(&name) {
			return nil, fmt.Errorf("%w: bad server name entry", ErrMalformedHandshake)
		}
		if nameType == 0 && !name.Empty() {
			return name, nil
		}
	}
	return nil, ErrExtensionNotFound
}

// offset of sub within b. cryptobyte only reslices, so sub shares b's backing array.
func offset(b []byte, sub cryptobyte.String) int {
	return cap(b) - cap(sub)
}

// Package hello produces browser-parroted ClientHello records. They serve as
// realistic input for the outgoing pipeline and as test vectors.
package hello

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"slices"

	"veil/internal/tlshello"

	utls "github.com/refraction-networking/utls"
)

var ErrUnknownFingerprint = errors.New("unknown fingerprint")

var fingerprints = map[string]utls.ClientHelloID{
	"chrome":  utls.HelloChrome_Auto,
	"firefox": utls.HelloFirefox_Auto,
	"safari":  utls.HelloSafari_Auto,
	"ios":     utls.HelloIOS_Auto,
	"edge":    utls.HelloEdge_Auto,
	"random":  utls.HelloRandomized,
}

// Fingerprints lists the accepted fingerprint names in sorted order.
func Fingerprints() []string {
	names := make([]string, 0, len(fingerprints))
	for name := range fingerprints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ClientHello builds the handshake a browser identified by fingerprint would
// send to serverName and returns it framed as a single TLS record. No
// connection is made.
func ClientHello(serverName, fingerprint string) ([]byte, error) {
	id, ok := fingerprints[fingerprint]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (valid: %v)", ErrUnknownFingerprint, fingerprint, Fingerprints())
	}

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	uconn := utls.UClient(c1, &utls.Config{ServerName: serverName}, id)
	if err := uconn.BuildHandshakeState(); err != nil {
		return nil, fmt.Errorf("failed to build %s ClientHello: %w", fingerprint, err)
	}
	raw := uconn.HandshakeState.Hello.Raw
	if len(raw) == 0 {
		return nil, fmt.Errorf("failed to build %s ClientHello: empty message", fingerprint)
	}
	return record(raw)
}

func record(msg []byte) ([]byte, error) {
	if len(msg) > tlshello.MaxRecordLen {
		return nil, fmt.Errorf("ClientHello of %d bytes does not fit one record", len(msg))
	}
	out := make([]byte, tlshello.RecordHeaderLen, tlshello.RecordHeaderLen+len(msg))
	out[0] = tlshello.RecordTypeHandshake
	// Legacy record version used by browsers for the first flight.
	out[1], out[2] = 0x03, 0x01
	binary.BigEndian.PutUint16(out[3:], uint16(len(msg)))
	return append(out, msg...), nil
}

package tlshello

import (
	"bytes"
	"errors"
	"testing"

	"veil/internal/tlshello/tlshellotest"

	"github.com/stretchr/testify/require"
)

func TestParseLocatesSNI(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{ServerName: "example.com"})
	orig := bytes.Clone(hello)

	v, err := Parse(hello)
	require.NoError(t, err)
	require.True(t, v.HasRecord)
	require.Equal(t, RecordHeaderLen, v.HandshakeOffset)
	require.Equal(t, RecordHeaderLen+HandshakeHeaderLen, v.BodyOffset)
	require.Equal(t, len(hello)-v.BodyOffset, v.BodyLength)
	require.True(t, v.HasSNI)
	require.Equal(t, "example.com", string(v.Hostname(hello)))
	require.Equal(t, []byte{0x00, 0x00}, hello[v.SNIOffset:v.SNIOffset+2])
	require.Equal(t, v.ExtensionsOffset+v.ExtensionsLength, len(hello))
	require.False(t, v.HasPadding)
	require.Equal(t, orig, hello, "Parse must not mutate input")
}

func TestParseBareHandshake(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{ServerName: "a.example", Bare: true})
	v, err := Parse(hello)
	require.NoError(t, err)
	require.False(t, v.HasRecord)
	require.Equal(t, 0, v.HandshakeOffset)
	require.Equal(t, "a.example", string(v.Hostname(hello)))
}

func TestParseWithoutSNI(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{
		Extensions: []tlshellotest.Extension{{Type: ExtPadding, Data: make([]byte, 8)}},
	})
	v, err := Parse(hello)
	require.ErrorIs(t, err, ErrExtensionNotFound)
	require.False(t, v.HasSNI)
	require.True(t, v.HasPadding)

	hello = tlshellotest.ClientHello(tlshellotest.Options{NoExtensions: true})
	v, err = Parse(hello)
	require.ErrorIs(t, err, ErrExtensionNotFound)
	require.Equal(t, -1, v.ExtensionsLenOffset)
}

func TestParseDetectsPSK(t *testing.T) {
	plain := tlshellotest.ClientHello(tlshellotest.Options{ServerName: "example.com"})
	v, err := Parse(plain)
	require.NoError(t, err)
	require.False(t, v.HasPSK)

	resumed := tlshellotest.ClientHello(tlshellotest.Options{
		ServerName: "example.com",
		Extensions: []tlshellotest.Extension{{Type: ExtPreSharedKey, Data: []byte{0, 0}}},
	})
	v, err = Parse(resumed)
	require.NoError(t, err)
	require.True(t, v.HasPSK)
}

func TestParseErrors(t *testing.T) {
	good := tlshellotest.ClientHello(tlshellotest.Options{ServerName: "example.com"})

	recordTooLong := bytes.Clone(good)
	recordTooLong[3], recordTooLong[4] = 0xff, 0xff

	handshakeTooLong := bytes.Clone(good)
	handshakeTooLong[6] = 0x7f

	serverHello := bytes.Clone(good)
	serverHello[5] = 0x02

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrNotClientHello},
		{"application data", []byte{0x17, 0x03, 0x03, 0x00, 0x01, 0x00}, ErrNotClientHello},
		{"truncated record header", []byte{0x16, 0x03}, ErrMalformedHandshake},
		{"record length beyond buffer", recordTooLong, ErrMalformedHandshake},
		{"handshake length beyond record", handshakeTooLong, ErrMalformedHandshake},
		{"truncated body", good[:60], ErrMalformedHandshake},
		{"server hello", serverHello, ErrNotClientHello},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsClientHello(t *testing.T) {
	require.True(t, IsClientHello(tlshellotest.ClientHello(tlshellotest.Options{ServerName: "x.org"})))
	require.False(t, IsClientHello([]byte{0x16, 0x03, 0x01}))
	require.False(t, IsClientHello([]byte("GET / HTTP/1.1\r\n")))
}

func TestServerName(t *testing.T) {
	name, err := ServerName(tlshellotest.ClientHello(tlshellotest.Options{ServerName: "Mixed.Example.COM"}))
	require.NoError(t, err)
	require.Equal(t, "Mixed.Example.COM", name)
}

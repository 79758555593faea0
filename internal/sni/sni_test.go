package sni

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"veil/internal/rng"
	"veil/internal/tlshello"
	"veil/internal/tlshello/tlshellotest"

	"github.com/stretchr/testify/require"
)

func newCtx(t *testing.T, seed uint64, level int) *rng.Context {
	t.Helper()
	ctx, err := rng.NewSourceFromUint64(seed).Context(level)
	require.NoError(t, err)
	return ctx
}

func TestEncodeCaseFoldingRecoversHostname(t *testing.T) {
	for seed := uint64(0); seed < 32; seed++ {
		enc, err := Encode("example.com", newCtx(t, seed, 3))
		require.NoError(t, err)

		e, err := Decode(enc)
		require.NoError(t, err)
		require.Equal(t, "example.com", strings.ToLower(string(e.Hostname)))
		require.Equal(t, "example.com", string(e.Original()))
		require.Len(t, enc, EncodedLen(len("example.com"), len(e.Padding)))
	}
}

func TestEncodeLayout(t *testing.T) {
	enc, err := Encode("example.com", newCtx(t, 5, 1))
	require.NoError(t, err)

	require.Equal(t, uint16(11), binary.BigEndian.Uint16(enc[0:2]))
	padLen := int(binary.BigEndian.Uint16(enc[2+2 : 2+2+2]))
	require.LessOrEqual(t, padLen, PaddingPerLevel)
	require.Len(t, enc, 2+2+2+padLen+11)
	require.True(t, bytes.EqualFold([]byte("example.com"), enc[len(enc)-11:]))
}

func TestEncodeMaskMatchesCase(t *testing.T) {
	enc, err := Encode("abcdefghijklmnop.example", newCtx(t, 11, 2))
	require.NoError(t, err)
	e, err := Decode(enc)
	require.NoError(t, err)

	for i, c := range e.Hostname {
		flipped := e.Mask[i/8]&(0x80>>(i%8)) != 0
		isUpper := c >= 'A' && c <= 'Z'
		require.Equal(t, flipped, isUpper, "byte %d (%q)", i, c)
	}
}

func TestEncodeInvalidHostname(t *testing.T) {
	ctx := newCtx(t, 1, 1)
	for _, h := range []string{"", "bücher.de", "bad\x00name", "tab\tname", strings.Repeat("a", 70000)} {
		_, err := Encode(h, ctx)
		require.ErrorIs(t, err, ErrInvalidHostname, "hostname %q", h)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	enc, err := Encode("example.com", newCtx(t, 2, 2))
	require.NoError(t, err)
	_, err = Decode(enc[:len(enc)-1])
	require.ErrorIs(t, err, ErrInvalidEncoding)
	_, err = Decode(append(bytes.Clone(enc), 0))
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestRewriteKeepsHelloValid(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{ServerName: "www.example.org"})
	v, err := tlshello.Parse(hello)
	require.NoError(t, err)

	for seed := uint64(0); seed < 16; seed++ {
		out, err := Rewrite(hello, v, newCtx(t, seed, 4))
		require.NoError(t, err)

		nv, err := tlshello.Parse(out)
		require.NoError(t, err)
		require.True(t, nv.HasPadding)
		require.True(t, bytes.EqualFold([]byte("www.example.org"), nv.Hostname(out)))
		require.Equal(t, len(out)-tlshello.RecordHeaderLen, int(binary.BigEndian.Uint16(out[3:5])))
		require.Greater(t, len(out), len(hello))
	}
}

func TestRewriteExistingPaddingOnlyChangesCase(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{
		ServerName: "example.com",
		Extensions: []tlshellotest.Extension{{Type: tlshello.ExtPadding, Data: make([]byte, 4)}},
	})
	v, err := tlshello.Parse(hello)
	require.NoError(t, err)

	out, err := Rewrite(hello, v, newCtx(t, 3, 5))
	require.NoError(t, err)
	require.Len(t, out, len(hello))
	hs, he := v.HostnameOffset, v.HostnameOffset+v.HostnameLength
	require.Equal(t, hello[:hs], out[:hs])
	require.Equal(t, hello[he:], out[he:])
	require.True(t, bytes.EqualFold(hello[hs:he], out[hs:he]))
}

func TestRewriteWithoutSNI(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{})
	v, _ := tlshello.Parse(hello)
	_, err := Rewrite(hello, v, newCtx(t, 3, 1))
	require.ErrorIs(t, err, tlshello.ErrExtensionNotFound)
}

func TestSuspicious(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"", true},
		{"a", true},
		{"ALLUPPERCASE", true},
		{"google.com", false},
		{"1234567.io", true},
		{"Example.Com", false},
	}
	for _, tt := range tests {
		if got := Suspicious(tt.name); got != tt.want {
			t.Errorf("Suspicious(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestToASCII(t *testing.T) {
	got, err := ToASCII("bücher.de")
	require.NoError(t, err)
	require.Equal(t, "xn--bcher-kva.de", got)
	require.NoError(t, Validate(got))
}

func TestRewriteRefusesPSKHello(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{
		ServerName: "example.com",
		Extensions: []tlshellotest.Extension{{Type: tlshello.ExtPreSharedKey, Data: []byte{0, 1, 2, 3}}},
	})
	v, err := tlshello.Parse(hello)
	require.NoError(t, err)
	require.True(t, v.HasPSK)

	for seed := uint64(0); seed < 4; seed++ {
		_, err := Rewrite(hello, v, newCtx(t, seed, 5))
		require.ErrorIs(t, err, ErrResumption)
	}
}

func TestCasingLower(t *testing.T) {
	for seed := uint64(0); seed < 8; seed++ {
		enc, err := CaseLower.Encode("WWW.Example.COM", newCtx(t, seed, 3))
		require.NoError(t, err)
		e, err := Decode(enc)
		require.NoError(t, err)
		require.Equal(t, "www.example.com", string(e.Hostname))
		require.Equal(t, "WWW.Example.COM", string(e.Original()))
	}
}

func TestCasingSafari(t *testing.T) {
	seen := map[string]bool{}
	for seed := uint64(0); seed < 64; seed++ {
		enc, err := CaseSafari.Encode("www.example.com", newCtx(t, seed, 3))
		require.NoError(t, err)
		e, err := Decode(enc)
		require.NoError(t, err)
		require.Contains(t, []string{"www.example.com", "Www.Example.Com"}, string(e.Hostname))
		require.Equal(t, "www.example.com", string(e.Original()))
		seen[string(e.Hostname)] = true
	}
	require.Len(t, seen, 2)
}

func TestCasingRewrite(t *testing.T) {
	hello := tlshellotest.ClientHello(tlshellotest.Options{ServerName: "Mail.Example.ORG"})
	v, err := tlshello.Parse(hello)
	require.NoError(t, err)

	out, err := CaseLower.Rewrite(hello, v, newCtx(t, 9, 2))
	require.NoError(t, err)
	nv, err := tlshello.Parse(out)
	require.NoError(t, err)
	require.Equal(t, "mail.example.org", string(nv.Hostname(out)))
}

func TestParseCasing(t *testing.T) {
	tests := []struct {
		name    string
		want    Casing
		wantErr bool
	}{
		{"random", CaseRandom, false},
		{"chrome", CaseLower, false},
		{"firefox", CaseLower, false},
		{"edge", CaseLower, false},
		{"ios", CaseSafari, false},
		{"safari", CaseSafari, false},
		{"opera?", CaseRandom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCasing(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, c)
		})
	}
}

func TestEncodedStats(t *testing.T) {
	enc, err := CaseLower.Encode("EXAMPLE.com", newCtx(t, 1, 2))
	require.NoError(t, err)
	e, err := Decode(enc)
	require.NoError(t, err)

	s := e.Stats()
	require.Equal(t, 11, s.HostnameLen)
	require.Equal(t, 7, s.CaseFlips)
	require.Equal(t, len(enc), s.EncodedLen)
	require.Equal(t, len(e.Padding), s.PaddingLen)
	require.False(t, s.Suspicious)
}

// Package tlshellotest builds ClientHello messages for tests.
package tlshellotest

import (
	"golang.org/x/crypto/cryptobyte"
)

type Extension struct {
	Type uint16
	Data []byte
}

type Options struct {
	ServerName string
	// Extensions are appended after server_name.
	Extensions []Extension
	// NoExtensions omits the extensions block entirely.
	NoExtensions bool
	// Bare omits the record header.
	Bare bool
	// Pad grows the cipher suite list so the hello reaches at least this many bytes.
	Pad int
}

// ClientHello returns a syntactically valid TLS 1.2 style ClientHello.
func ClientHello(o Options) []byte {
	hs := cryptobyte.NewBuilder(nil)
	hs.AddUint8(0x01)
	hs.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint16(0x0303)
		random := make([]byte, 32)
		for i := range random {
			random[i] = byte(i)
		}
		b.AddBytes(random)
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(make([]byte, 32))
		})
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			suites := []uint16{0x1301, 0x1302, 0x1303, 0xc02b, 0xc02f}
			for _, s := range suites {
				b.AddUint16(s)
			}
			for i := 0; i < o.Pad/2; i++ {
				b.AddUint16(0x0a0a)
			}
		})
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint8(0)
		})
		if o.NoExtensions {
			return
		}
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			if o.ServerName != "" {
				b.AddUint16(0x0000)
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
						b.AddUint8(0)
						b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
							b.AddBytes([]byte(o.ServerName))
						})
					})
				})
			}
			for _, e := range o.Extensions {
				b.AddUint16(e.Type)
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddBytes(e.Data)
				})
			}
		})
	})
	msg := hs.BytesOrPanic()
	if o.Bare {
		return msg
	}

	rec := cryptobyte.NewBuilder(nil)
	rec.AddUint8(0x16)
	rec.AddUint16(0x0301)
	rec.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(msg)
	})
	return rec.BytesOrPanic()
}

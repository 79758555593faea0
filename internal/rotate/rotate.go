// Package rotate rewrites the TCP/IP header fields classifiers fingerprint
// (TTL, window, option layout) so traffic looks like it comes from a rotating
// set of stacks. It is one-directional: the original values are not kept.
package rotate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"veil/internal/pkg/iterator"
	"veil/internal/rng"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

const (
	MinPacketLen   = 40 // IPv4 header + TCP header
	tcpHeaderLen   = 20
	maxOptionSpace = 40
	maxIPLength    = 65535
)

var (
	ErrPacketTooShort    = errors.New("packet too short")
	ErrUnsupportedPacket = errors.New("unsupported packet")
	ErrPacketTooLarge    = errors.New("packet too large")
)

type Rotator struct {
	profiles *iterator.Iterator[Profile]
	// sessions is nil when every packet gets fresh parameters.
	sessions *Sessions
	bufPool  sync.Pool
}

// New cycles through profiles in order; with none it uses DefaultProfiles.
// Every packet is rotated with fresh parameters.
func New(profiles ...Profile) *Rotator {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	return &Rotator{
		profiles: iterator.New(profiles...),
		bufPool: sync.Pool{
			New: func() any {
				return gopacket.NewSerializeBuffer()
			},
		},
	}
}

// NewWithSessions keeps the parameters of each flow for cfg.Interval, so a
// connection does not change stacks between packets.
func NewWithSessions(cfg SessionConfig, profiles ...Profile) *Rotator {
	r := New(profiles...)
	r.sessions = NewSessions(cfg)
	return r
}

// Sessions is nil for a Rotator built with New.
func (r *Rotator) Sessions() *Sessions {
	return r.sessions
}

// Len is the number of profiles in rotation.
func (r *Rotator) Len() int {
	return r.profiles.Len()
}

// Draws is how many parameter sets have been drawn from the profiles.
func (r *Rotator) Draws() uint64 {
	return r.profiles.Turns()
}

// Peek returns the profile the next draw will use.
func (r *Rotator) Peek() Profile {
	return r.profiles.Peek()
}

// Rotate returns a copy of packet with its header fingerprint rewritten using
// the next profile, or the flow's current parameters when sessions are on.
// IP and TCP checksums are recomputed.
func (r *Rotator) Rotate(packet []byte, ctx *rng.Context) ([]byte, error) {
	d, err := decode(packet)
	if err != nil {
		return nil, err
	}
	return r.rotate(d, d.tcp.Payload, ctx)
}

// RotateWithPayload replaces the TCP payload of packet before rotating it.
func (r *Rotator) RotateWithPayload(packet, payload []byte, ctx *rng.Context) ([]byte, error) {
	d, err := decode(packet)
	if err != nil {
		return nil, err
	}
	return r.rotate(d, payload, ctx)
}

// Payload returns a copy of the TCP payload of packet.
func Payload(packet []byte) ([]byte, error) {
	d, err := decode(packet)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), d.tcp.Payload...), nil
}

func (r *Rotator) rotate(d *decoded, payload []byte, ctx *rng.Context) ([]byte, error) {
	fixed := d.ipHeaderLen() + tcpHeaderLen + len(payload)
	used := optionLen(d.tcp.Options)
	if fixed+align4(used) > maxIPLength {
		return nil, fmt.Errorf("%w: %d payload bytes", ErrPacketTooLarge, len(payload))
	}
	// Option bytes the rotated header may take, NOPs and alignment included.
	room := min(maxOptionSpace, maxIPLength-fixed) &^ 3

	params := r.params(d.flow(), ctx)
	switch {
	case d.ip4 != nil:
		d.ip4.TTL = params.TTL
	case d.ip6 != nil:
		d.ip6.HopLimit = params.TTL
	}
	d.tcp.Window = params.Window
	d.tcp.Options = rotateOptions(d.tcp.Options, params, d.tcp.SYN, room-used)
	d.tcp.Padding = nil

	buf := r.bufPool.Get().(gopacket.SerializeBuffer)
	defer func() {
		buf.Clear()
		r.bufPool.Put(buf)
	}()

	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, d.network(), d.tcp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("serialize rotated packet: %w", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

func (r *Rotator) params(f Flow, ctx *rng.Context) Params {
	draw := func() Params {
		return r.profiles.Next().draw(ctx)
	}
	if r.sessions == nil {
		return draw()
	}
	return r.sessions.params(f, draw)
}

// rotateOptions drops end-of-list markers, refreshes MSS and window scale on
// SYN segments, and prepends up to maxNops of the requested NOPs.
func rotateOptions(in []layers.TCPOption, p Params, syn bool, maxNops int) []layers.TCPOption {
	kept := make([]layers.TCPOption, 0, len(in))
	for _, o := range in {
		if o.OptionType == layers.TCPOptionKindEndList {
			continue
		}
		if syn {
			switch {
			case o.OptionType == layers.TCPOptionKindMSS && len(o.OptionData) == 2 && p.MSS != 0:
				o.OptionData = binary.BigEndian.AppendUint16(nil, p.MSS)
			case o.OptionType == layers.TCPOptionKindWindowScale && len(o.OptionData) == 1 && p.WindowScale != 0:
				o.OptionData = []byte{p.WindowScale}
			}
		}
		kept = append(kept, o)
	}

	nops := min(p.NOPs, max(maxNops, 0))
	out := make([]layers.TCPOption, 0, nops+len(kept))
	for i := 0; i < nops; i++ {
		out = append(out, layers.TCPOption{OptionType: layers.TCPOptionKindNop, OptionLength: 1})
	}
	return append(out, kept...)
}

// optionLen is the encoded size of opts before alignment, end-of-list
// markers excluded.
func optionLen(opts []layers.TCPOption) int {
	n := 0
	for _, o := range opts {
		switch o.OptionType {
		case layers.TCPOptionKindEndList:
		case layers.TCPOptionKindNop:
			n++
		default:
			n += 2 + len(o.OptionData)
		}
	}
	return n
}

func align4(n int) int {
	return (n + 3) &^ 3
}

type decoded struct {
	ip4 *layers.IPv4
	ip6 *layers.IPv6
	tcp *layers.TCP
}

func (d *decoded) network() gopacket.SerializableLayer {
	if d.ip4 != nil {
		return d.ip4
	}
	return d.ip6
}

// ipHeaderLen counts toward the IP length limit: the IPv4 header does, the
// fixed IPv6 header does not.
func (d *decoded) ipHeaderLen() int {
	if d.ip4 != nil {
		return len(d.ip4.Contents)
	}
	return 0
}

func (d *decoded) flow() Flow {
	f := Flow{SrcPort: uint16(d.tcp.SrcPort), DstPort: uint16(d.tcp.DstPort)}
	if d.ip4 != nil {
		f.Src, _ = netip.AddrFromSlice(d.ip4.SrcIP)
		f.Dst, _ = netip.AddrFromSlice(d.ip4.DstIP)
	} else {
		f.Src, _ = netip.AddrFromSlice(d.ip6.SrcIP)
		f.Dst, _ = netip.AddrFromSlice(d.ip6.DstIP)
	}
	return f
}

func decode(packet []byte) (*decoded, error) {
	if len(packet) < MinPacketLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrPacketTooShort, len(packet), MinPacketLen)
	}

	var first gopacket.LayerType
	switch version := packet[0] >> 4; version {
	case 4:
		ihl := int(packet[0]&0x0f) * 4
		if len(packet) < ihl+20 {
			return nil, fmt.Errorf("%w: %d bytes with a %d-byte IPv4 header", ErrPacketTooShort, len(packet), ihl)
		}
		first = layers.LayerTypeIPv4
	case 6:
		if len(packet) < 40+20 {
			return nil, fmt.Errorf("%w: %d bytes for IPv6", ErrPacketTooShort, len(packet))
		}
		first = layers.LayerTypeIPv6
	default:
		return nil, fmt.Errorf("%w: IP version %d", ErrUnsupportedPacket, version)
	}

	d := &decoded{tcp: &layers.TCP{}}
	ip4, ip6 := &layers.IPv4{}, &layers.IPv6{}
	parser := gopacket.NewDecodingLayerParser(first, ip4, ip6, d.tcp)
	// The TCP payload is opaque here; stop after the transport layer.
	parser.IgnoreUnsupported = true
	found := make([]gopacket.LayerType, 0, 2)
	if err := parser.DecodeLayers(packet, &found); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPacket, err)
	}
	if first == layers.LayerTypeIPv4 && (ip4.FragOffset != 0 || ip4.Flags&layers.IPv4MoreFragments != 0) {
		return nil, fmt.Errorf("%w: IPv4 fragment", ErrUnsupportedPacket)
	}
	if len(found) != 2 || found[1] != layers.LayerTypeTCP {
		if first == layers.LayerTypeIPv4 {
			return nil, fmt.Errorf("%w: IPv4 protocol %s", ErrUnsupportedPacket, ip4.Protocol)
		}
		return nil, fmt.Errorf("%w: IPv6 next header %s", ErrUnsupportedPacket, ip6.NextHeader)
	}

	if first == layers.LayerTypeIPv4 {
		d.ip4 = ip4
		_ = d.tcp.SetNetworkLayerForChecksum(ip4)
	} else {
		d.ip6 = ip6
		_ = d.tcp.SetNetworkLayerForChecksum(ip6)
	}
	return d, nil
}

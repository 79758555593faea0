// Package rotatetest builds IP+TCP packets for tests.
package rotatetest

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

type Options struct {
	IPv6 bool
	// SYN adds MSS, SACK-permitted and window scale options.
	SYN     bool
	Payload []byte
	// SrcPort defaults to 40000.
	SrcPort uint16
}

// Packet serializes a checksummed packet. It panics on serialization errors.
func Packet(o Options) []byte {
	if o.SrcPort == 0 {
		o.SrcPort = 40000
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(o.SrcPort),
		DstPort: 443,
		Seq:     1000,
		SYN:     o.SYN,
		ACK:     !o.SYN,
		PSH:     !o.SYN,
		Window:  65535,
	}
	if o.SYN {
		tcp.Options = []layers.TCPOption{
			{OptionType: layers.TCPOptionKindMSS, OptionLength: 4, OptionData: []byte{0x05, 0xb4}},
			{OptionType: layers.TCPOptionKindSACKPermitted, OptionLength: 2},
			{OptionType: layers.TCPOptionKindNop, OptionLength: 1},
			{OptionType: layers.TCPOptionKindWindowScale, OptionLength: 3, OptionData: []byte{8}},
		}
	}

	var ip gopacket.SerializableLayer
	if o.IPv6 {
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolTCP,
			SrcIP:      net.ParseIP("2001:db8::1"),
			DstIP:      net.ParseIP("2001:db8::2"),
		}
		must(tcp.SetNetworkLayerForChecksum(ip6))
		ip = ip6
	} else {
		ip4 := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Flags:    layers.IPv4DontFragment,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    net.IPv4(192, 0, 2, 1).To4(),
			DstIP:    net.IPv4(198, 51, 100, 7).To4(),
		}
		must(tcp.SetNetworkLayerForChecksum(ip4))
		ip = ip4
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	must(gopacket.SerializeLayers(buf, opts, ip, tcp, gopacket.Payload(o.Payload)))
	return buf.Bytes()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

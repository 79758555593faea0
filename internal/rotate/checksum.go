package rotate

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrBadChecksum = errors.New("bad checksum")

// VerifyChecksums checks the IPv4 header checksum and the TCP checksum over
// the pseudo-header, using RFC 1071 one's complement arithmetic.
func VerifyChecksums(packet []byte) error {
	if len(packet) < MinPacketLen {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooShort, len(packet))
	}
	switch packet[0] >> 4 {
	case 4:
		ihl := int(packet[0]&0x0f) * 4
		total := int(binary.BigEndian.Uint16(packet[2:]))
		if ihl < 20 || total < ihl+20 || total > len(packet) {
			return fmt.Errorf("%w: IPv4 length %d, header %d, have %d", ErrPacketTooShort, total, ihl, len(packet))
		}
		if packet[9] != 6 {
			return fmt.Errorf("%w: IPv4 protocol %d", ErrUnsupportedPacket, packet[9])
		}
		if sum := fold(sum16(0, packet[:ihl])); sum != 0xffff {
			return fmt.Errorf("%w: IPv4 header", ErrBadChecksum)
		}
		seg := packet[ihl:total]
		var pseudo [12]byte
		copy(pseudo[0:8], packet[12:20])
		pseudo[9] = 6
		binary.BigEndian.PutUint16(pseudo[10:], uint16(len(seg)))
		return verifySegment(pseudo[:], seg)
	case 6:
		plen := int(binary.BigEndian.Uint16(packet[4:]))
		if len(packet) < 40+plen || plen < 20 {
			return fmt.Errorf("%w: IPv6 payload length %d, have %d", ErrPacketTooShort, plen, len(packet))
		}
		if packet[6] != 6 {
			return fmt.Errorf("%w: IPv6 next header %d", ErrUnsupportedPacket, packet[6])
		}
		seg := packet[40 : 40+plen]
		var pseudo [40]byte
		copy(pseudo[0:32], packet[8:40])
		binary.BigEndian.PutUint32(pseudo[32:], uint32(plen))
		pseudo[39] = 6
		return verifySegment(pseudo[:], seg)
	default:
		return fmt.Errorf("%w: IP version %d", ErrUnsupportedPacket, packet[0]>>4)
	}
}

func verifySegment(pseudo, seg []byte) error {
	if fold(sum16(sum16(0, pseudo), seg)) != 0xffff {
		return fmt.Errorf("%w: TCP", ErrBadChecksum)
	}
	return nil
}

func sum16(acc uint32, b []byte) uint32 {
	for len(b) >= 2 {
		acc += uint32(binary.BigEndian.Uint16(b))
		b = b[2:]
	}
	if len(b) == 1 {
		acc += uint32(b[0]) << 8
	}
	return acc
}

func fold(acc uint32) uint16 {
	for acc>>16 != 0 {
		acc = acc&0xffff + acc>>16
	}
	return uint16(acc)
}

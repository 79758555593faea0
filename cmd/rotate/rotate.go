package rotate

import (
	"errors"
	"fmt"
	"io"
	"os"

	"veil/internal/conf"
	"veil/internal/engine"
	"veil/internal/flog"
	"veil/internal/rotate"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/spf13/cobra"
)

var (
	confPath string
	inPath   string
	outPath  string
	level    int
)

var Cmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate TCP/IP header fingerprints in a capture file",
	Long:  "Read a pcap file, rotate the TTL, window and option layout of every IPv4/IPv6 TCP packet and write the result to a new pcap file.",
	Run:   runRotate,
}

func init() {
	Cmd.Flags().StringVarP(&confPath, "config", "c", "", "Path to the configuration file (defaults apply when empty)")
	Cmd.Flags().StringVar(&inPath, "pcap", "", "Input capture file")
	Cmd.Flags().StringVar(&outPath, "out", "", "Output capture file")
	Cmd.Flags().IntVar(&level, "level", 0, "Override pcap.level")
	_ = Cmd.MarkFlagRequired("pcap")
	_ = Cmd.MarkFlagRequired("out")
}

type stats struct {
	total   int
	rotated int
	skipped int
}

func runRotate(cmd *cobra.Command, args []string) {
	cfg, err := conf.LoadOrDefault(confPath)
	if err != nil {
		flog.Fatalf("Failed to load configuration: %v", err)
	}
	flog.SetLevel(cfg.Log.Level())
	if level != 0 {
		cfg.PCAP.Level = level
	}

	ec := cfg.Engine
	ec.DefaultLevel = cfg.PCAP.Level
	e, err := engine.NewFromConf(&ec)
	if err != nil {
		flog.Fatalf("Failed to initialize engine: %v", err)
	}
	defer e.Shutdown()

	in, err := os.Open(inPath)
	if err != nil {
		flog.Fatalf("Failed to open capture: %v", err)
	}
	defer in.Close()
	out, err := os.Create(outPath)
	if err != nil {
		flog.Fatalf("Failed to create output: %v", err)
	}
	defer out.Close()

	s, err := rotateCapture(e, &cfg.PCAP, in, out)
	if err != nil {
		flog.Fatalf("Failed to rotate %s: %v", inPath, err)
	}
	flog.Infof("Rotated %d of %d packets (%d copied unchanged) into %s", s.rotated, s.total, s.skipped, outPath)
	if rs := e.RotationStats(); rs.Sessions > 0 {
		flog.Infof("%d flows kept their stack, %.2f rotations per flow", rs.Sessions, rs.AvgRotations())
	}
}

func rotateCapture(e *engine.Engine, cfg *conf.PCAP, r io.Reader, w io.Writer) (stats, error) {
	var s stats
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return s, fmt.Errorf("failed to read capture header: %w", err)
	}
	writer := pcapgo.NewWriter(w)
	linkType := reader.LinkType()
	if err := writer.WriteFileHeader(uint32(cfg.Snaplen), linkType); err != nil {
		return s, fmt.Errorf("failed to write capture header: %w", err)
	}

	for {
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, fmt.Errorf("packet %d: %w", s.total+1, err)
		}
		s.total++

		outData, err := rotateFrame(e, linkType, data)
		switch {
		case err == nil:
			s.rotated++
		case *cfg.SkipNonTCP && isNotTCP(err):
			flog.Debugf("packet %d copied unchanged: %v", s.total, err)
			outData = data
			s.skipped++
		default:
			return s, fmt.Errorf("packet %d: %w", s.total, err)
		}

		ci.CaptureLength = min(len(outData), cfg.Snaplen)
		ci.Length = len(outData)
		if err := writer.WritePacket(ci, outData[:ci.CaptureLength]); err != nil {
			return s, fmt.Errorf("packet %d: %w", s.total, err)
		}
	}
}

var errNotIP = errors.New("not an IP frame")

func isNotTCP(err error) bool {
	return errors.Is(err, errNotIP) ||
		errors.Is(err, rotate.ErrUnsupportedPacket) ||
		errors.Is(err, rotate.ErrPacketTooShort)
}

// rotateFrame keeps the link-layer header and rotates the IP packet behind it.
func rotateFrame(e *engine.Engine, linkType layers.LinkType, frame []byte) ([]byte, error) {
	hdr, err := linkHeaderLen(linkType, frame)
	if err != nil {
		return nil, err
	}
	packet := frame[hdr:]
	out := make([]byte, hdr+len(packet)+64)
	copy(out, frame[:hdr])
	n, err := e.ApplyDynamicPatternRotation(packet, out[hdr:])
	if err != nil {
		return nil, err
	}
	return out[:hdr+n], nil
}

func linkHeaderLen(linkType layers.LinkType, frame []byte) (int, error) {
	switch linkType {
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeIPv6:
		return 0, nil
	case layers.LinkTypeEthernet:
		var eth layers.Ethernet
		if err := eth.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
			return 0, fmt.Errorf("%w: %v", errNotIP, err)
		}
		if eth.EthernetType != layers.EthernetTypeIPv4 && eth.EthernetType != layers.EthernetTypeIPv6 {
			return 0, fmt.Errorf("%w: ethertype %s", errNotIP, eth.EthernetType)
		}
		return len(eth.Contents), nil
	case layers.LinkTypeLinuxSLL:
		var sll layers.LinuxSLL
		if err := sll.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
			return 0, fmt.Errorf("%w: %v", errNotIP, err)
		}
		if sll.EthernetType != layers.EthernetTypeIPv4 && sll.EthernetType != layers.EthernetTypeIPv6 {
			return 0, fmt.Errorf("%w: ethertype %s", errNotIP, sll.EthernetType)
		}
		return len(sll.Contents), nil
	}
	return 0, fmt.Errorf("unsupported link type %s", linkType)
}

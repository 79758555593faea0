package run

import (
	"veil/internal/engine"
	"veil/internal/flog"
	"veil/internal/sni"

	"github.com/spf13/cobra"
)

var (
	fragmentBytes int
	delayMS       int
	level         int
	noSNI         bool
	noFragment    bool
	rotatePacket  bool
	sniCasing     string
)

var outgoingCmd = &cobra.Command{
	Use:   "outgoing",
	Short: "Obfuscate a handshake or packet",
	Run:   runOutgoing,
}

func init() {
	f := outgoingCmd.Flags()
	f.IntVar(&fragmentBytes, "fragment-bytes", 0, "Override security.fragmentation_bytes")
	f.IntVar(&delayMS, "delay-ms", 0, "Override security.delay_ms")
	f.IntVar(&level, "level", 0, "Override security.randomization_level")
	f.BoolVar(&noSNI, "no-sni", false, "Disable SNI obfuscation")
	f.BoolVar(&noFragment, "no-fragment", false, "Disable TLS fragmentation")
	f.BoolVar(&rotatePacket, "rotate", false, "Treat the input as an IP+TCP packet and rotate its headers")
	f.StringVar(&sniCasing, "sni-casing", "", "Override security.sni_casing (random, lower, or a browser name)")
}

func runOutgoing(cmd *cobra.Command, args []string) {
	cfg, e := setup()
	defer e.Shutdown()

	opts := engine.OptionsFromConf(&cfg.Security)
	if fragmentBytes != 0 {
		opts.FragmentationBytes = fragmentBytes
	}
	if delayMS != 0 {
		opts.DelayMS = delayMS
	}
	if level != 0 {
		opts.RandomizationLevel = level
	}
	if noSNI {
		opts.EnableSNIObfuscation = false
	}
	if noFragment {
		opts.EnableTLSFragmentation = false
	}
	if rotatePacket {
		opts.EnablePatternRotation = true
	}
	if sniCasing != "" {
		c, err := sni.ParseCasing(sniCasing)
		if err != nil {
			flog.Fatalf("Invalid --sni-casing: %v", err)
		}
		opts.SNICasing = c
	}

	in := readInput()
	out, err := e.Outgoing(in, opts)
	if err != nil {
		flog.Fatalf("Outgoing pipeline failed (status %d): %v", engine.Status(err), err)
	}
	defer out.Free()

	flog.Infof("Transformed %d bytes into %d bytes", len(in), out.Len())
	writeOutput(out.Bytes())
}

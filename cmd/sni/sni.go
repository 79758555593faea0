package sni

import (
	"encoding/hex"
	"fmt"

	"veil/internal/conf"
	"veil/internal/engine"
	"veil/internal/flog"
	"veil/internal/sni"

	"github.com/spf13/cobra"
)

var confPath string

var Cmd = &cobra.Command{
	Use:   "sni <hostname>",
	Short: "Print the obfuscated SNI encoding of a hostname",
	Args:  cobra.ExactArgs(1),
	Run:   runSNI,
}

func init() {
	Cmd.Flags().StringVarP(&confPath, "config", "c", "", "Path to the configuration file (defaults apply when empty)")
}

func runSNI(cmd *cobra.Command, args []string) {
	cfg, err := conf.LoadOrDefault(confPath)
	if err != nil {
		flog.Fatalf("Failed to load configuration: %v", err)
	}
	flog.SetLevel(cfg.Log.Level())

	host, err := sni.ToASCII(args[0])
	if err != nil {
		flog.Fatalf("Invalid hostname: %v", err)
	}
	if sni.Suspicious(host) {
		flog.Warnf("Hostname '%s' looks unusual and may attract attention", host)
	}

	e, err := engine.NewFromConf(&cfg.Engine)
	if err != nil {
		flog.Fatalf("Failed to initialize engine: %v", err)
	}
	defer e.Shutdown()

	out := make([]byte, 2*len(host)+1024)
	n, err := e.ApplySNIObfuscation(host, out)
	if err != nil {
		flog.Fatalf("SNI obfuscation failed (status %d): %v", engine.Status(err), err)
	}
	enc, err := sni.Decode(out[:n])
	if err != nil {
		flog.Fatalf("Failed to decode own encoding: %v", err)
	}

	st := enc.Stats()
	fmt.Printf("hostname:   %s\n", enc.Hostname)
	fmt.Printf("case flips: %d of %d bytes\n", st.CaseFlips, st.HostnameLen)
	fmt.Printf("padding:    %d bytes\n", st.PaddingLen)
	fmt.Printf("encoding:   %d bytes %s\n", st.EncodedLen, hex.EncodeToString(out[:n]))
}

package hello

import (
	"os"
	"strings"

	"veil/internal/flog"
	"veil/internal/hello"
	"veil/internal/sni"

	"github.com/spf13/cobra"
)

var (
	serverName  string
	fingerprint string
	outPath     string
)

var Cmd = &cobra.Command{
	Use:   "hello",
	Short: "Generate a browser-parroted ClientHello record",
	Long:  "Generate the ClientHello a browser would send, framed as a TLS record, for use as pipeline input.",
	Run:   runHello,
}

func init() {
	Cmd.Flags().StringVar(&serverName, "sni", "www.example.com", "Server name to carry")
	Cmd.Flags().StringVar(&fingerprint, "fingerprint", "chrome", "One of "+strings.Join(hello.Fingerprints(), ", "))
	Cmd.Flags().StringVarP(&outPath, "out", "o", "-", "Output file, - for stdout")
}

func runHello(cmd *cobra.Command, args []string) {
	rec, err := hello.ClientHello(serverName, fingerprint)
	if err != nil {
		flog.Fatalf("%v", err)
	}
	if outPath == "-" {
		_, err = os.Stdout.Write(rec)
	} else {
		err = os.WriteFile(outPath, rec, 0o644)
	}
	if err != nil {
		flog.Fatalf("Failed to write ClientHello: %v", err)
	}
	flog.Infof("Wrote %d-byte %s ClientHello for %s", len(rec), fingerprint, serverName)
	if _, err := sni.ParseCasing(fingerprint); err == nil && fingerprint != "random" {
		flog.Infof("Use --sni-casing %s when obfuscating it to keep the casing consistent", fingerprint)
	}
}

package main

import (
	"os"

	"veil/cmd/hello"
	"veil/cmd/inspect"
	"veil/cmd/rotate"
	"veil/cmd/run"
	"veil/cmd/sni"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "veil",
	Short:        "Handshake obfuscation toolkit",
	Long:         "veil fragments TLS handshakes into self-describing envelopes, camouflages SNI and rotates TCP/IP header fingerprints.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(rotate.Cmd)
	rootCmd.AddCommand(sni.Cmd)
	rootCmd.AddCommand(inspect.Cmd)
	rootCmd.AddCommand(hello.Cmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

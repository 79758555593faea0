package inspect

import (
	"errors"
	"fmt"
	"io"
	"os"

	"veil/internal/envelope"
	"veil/internal/flog"
	"veil/internal/rotate"
	"veil/internal/tlshello"

	"github.com/spf13/cobra"
)

var (
	inPath  string
	verbose bool
)

var Cmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe an envelope, ClientHello or packet",
	Run:   runInspect,
}

func init() {
	Cmd.Flags().StringVarP(&inPath, "in", "i", "-", "Input file, - for stdin")
	Cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every fragment")
}

func runInspect(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if inPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inPath)
	}
	if err != nil {
		flog.Fatalf("Failed to read input: %v", err)
	}
	if err := describe(os.Stdout, data); err != nil {
		flog.Fatalf("%v", err)
	}
}

func describe(w io.Writer, data []byte) error {
	switch {
	case envelope.IsEnvelope(data):
		env, err := envelope.Parse(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "envelope v%d: %s\n", env.Version, env.Stats())
		if verbose {
			for _, f := range env.Fragments {
				fmt.Fprintf(w, "  #%d/%d %4d bytes delay %3dms\n", f.Index, f.Total, len(f.Payload), f.DelayMS)
			}
		}
		return nil
	case tlshello.IsClientHello(data):
		v, err := tlshello.Parse(data)
		if err != nil && !errors.Is(err, tlshello.ErrExtensionNotFound) {
			return err
		}
		fmt.Fprintf(w, "ClientHello: %d bytes, body %d bytes, extensions %d bytes, padding %v\n",
			len(data), v.BodyLength, v.ExtensionsLength, v.HasPadding)
		if v.HasSNI {
			fmt.Fprintf(w, "  server_name: %s\n", v.Hostname(data))
		}
		return nil
	}

	payload, err := rotate.Payload(data)
	if err != nil {
		return fmt.Errorf("input is neither an envelope, a ClientHello nor an IP+TCP packet: %w", err)
	}
	fmt.Fprintf(w, "IP+TCP packet: %d bytes, payload %d bytes\n", len(data), len(payload))
	if cerr := rotate.VerifyChecksums(data); cerr != nil {
		fmt.Fprintf(w, "  checksums: %v\n", cerr)
	} else {
		fmt.Fprintf(w, "  checksums: ok\n")
	}
	if len(payload) > 0 {
		fmt.Fprint(w, "  payload ")
		return describe(w, payload)
	}
	return nil
}

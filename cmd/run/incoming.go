package run

import (
	"veil/internal/engine"
	"veil/internal/envelope"
	"veil/internal/flog"

	"github.com/spf13/cobra"
)

var incomingCmd = &cobra.Command{
	Use:   "incoming",
	Short: "Reassemble an envelope, passing plain input through",
	Run:   runIncoming,
}

func runIncoming(cmd *cobra.Command, args []string) {
	_, e := setup()
	defer e.Shutdown()

	in := readInput()
	if !envelope.IsEnvelope(in) {
		flog.Warnf("Input carries no envelope, copying through unchanged")
	}
	out, err := e.Incoming(in)
	if err != nil {
		flog.Fatalf("Incoming pipeline failed (status %d): %v", engine.Status(err), err)
	}
	defer out.Free()

	flog.Infof("Reassembled %d bytes from %d bytes", out.Len(), len(in))
	writeOutput(out.Bytes())
}

package run

import (
	"io"
	"os"

	"veil/internal/conf"
	"veil/internal/engine"
	"veil/internal/flog"

	"github.com/spf13/cobra"
)

var (
	confPath string
	inPath   string
	outPath  string
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transform pipeline over a file",
	Long:  "Run the outgoing or incoming pipeline once over an input file (or stdin) and write the result to a file (or stdout).",
}

func init() {
	Cmd.AddCommand(outgoingCmd)
	Cmd.AddCommand(incomingCmd)

	Cmd.PersistentFlags().StringVarP(&confPath, "config", "c", "", "Path to the configuration file (defaults apply when empty)")
	Cmd.PersistentFlags().StringVarP(&inPath, "in", "i", "-", "Input file, - for stdin")
	Cmd.PersistentFlags().StringVarP(&outPath, "out", "o", "-", "Output file, - for stdout")
}

// setup loads the configuration, applies its log level and starts an engine.
func setup() (*conf.Conf, *engine.Engine) {
	cfg, err := conf.LoadOrDefault(confPath)
	if err != nil {
		flog.Fatalf("Failed to load configuration: %v", err)
	}
	flog.SetLevel(cfg.Log.Level())

	e, err := engine.NewFromConf(&cfg.Engine)
	if err != nil {
		flog.Fatalf("Failed to initialize engine: %v", err)
	}
	return cfg, e
}

func readInput() []byte {
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
	return data
}

func writeOutput(data []byte) {
	var err error
	if outPath == "-" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(outPath, data, 0o644)
	}
	if err != nil {
		flog.Fatalf("Failed to write output: %v", err)
	}
}

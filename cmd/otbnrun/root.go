package main

import (
	"log/slog"
	"os"

	"github.com/sarchlab/otbn/core"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var opts options

var rootCmd = &cobra.Command{
	Use:   "otbnrun",
	Short: "Run a function of an accelerator application on the simulator.",
	Long: `otbnrun links the applications of a manifest, loads one of them ` +
		`onto a simulated accelerator, writes the inputs, calls a function ` +
		`and prints the outputs.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.trace {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
				&slog.HandlerOptions{Level: core.LevelTrace})))
		}

		opts.styled = term.IsTerminal(int(os.Stdout.Fd()))

		return run(cmd.OutOrStdout(), opts)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "application manifest (YAML)")
	f.StringVarP(&opts.app, "app", "a", "", "application to load")
	f.StringVarP(&opts.fn, "func", "f", "", "label of the function to call")
	f.StringArrayVar(&opts.inputs, "in", nil,
		"write words to a data label before the call, as label=w0,w1,...")
	f.StringArrayVar(&opts.outputs, "out", nil,
		"read words from a data label after the call, as label:nwords")
	f.BoolVar(&opts.scrub, "scrub", false, "zero data memory after reading the outputs")
	f.Uint32Var(&opts.imemSize, "imem-size", 0, "instruction memory size in bytes")
	f.Uint32Var(&opts.dmemSize, "dmem-size", 0, "data memory size in bytes")
	f.BoolVar(&opts.trace, "trace", false, "log every simulated instruction")

	for _, name := range []string{"manifest", "app", "func"} {
		if err := rootCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/config"
	"github.com/wippyai/ffi-runtime/executor"
	"github.com/wippyai/ffi-runtime/exports"
	"github.com/wippyai/ffi-runtime/handle"
	"github.com/wippyai/ffi-runtime/host"
	"github.com/wippyai/ffi-runtime/vptr"
)

var (
	rootOpts = struct {
		config  string
		verbose bool
	}{}

	cfg    = config.Default()
	logger = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "ffirun",
		Short: "Call the ffi producer through virtual pointers",
		Long: "ffirun exercises the producer exports: plain memory strings and slices, " +
			"closures, and futures driven by an executor, directly or from a wasm guest.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.config, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "Debug logging, including handle lifecycle")
}

func setup(cmd *cobra.Command, args []string) error {
	if rootOpts.config != "" {
		c, err := config.Load(rootOpts.config)
		if err != nil {
			return err
		}
		cfg = c
	}
	if rootOpts.verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	l, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	logger = l
	executor.SetLogger(l.Named("executor"))
	host.SetLogger(l.Named("host"))
	exports.SetLogger(l.Named("exports"))

	if rootOpts.verbose {
		vptr.Observe(handle.NewLogObserver(l.Named("handle"), vptr.KindNames()))
	}
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

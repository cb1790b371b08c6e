package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func main() {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("FLASHSTOCK_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	)

	if err := newRootCommand(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(logger pslog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "flashstock",
		Short:         "Flash sale stock reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")

	root.AddCommand(newServeCommand(logger))
	root.AddCommand(newSeedCommand(logger))
	root.AddCommand(newMigrateCommand(logger))
	return root
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	rootCmd := &cobra.Command{
		Use:           "tfbridge",
		Short:         "Bridge between the Testing Farm API and Tekton pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BRIDGE_CONFIG_FILE"), "Path to the operator YAML file")

	rootCmd.AddCommand(newServeCmd(logger))
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newStatusCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

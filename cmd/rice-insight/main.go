// Package main provides the rice-insight command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rice-insight",
		Short: "rice-insight - intent-aware code search for agents",
		Long: `rice-insight understands what a code search query is asking for,
retrieves candidates from a Qdrant index, and returns ranked, diversified
and explained results.

Examples:
  rice-insight analyze "how does the retry loop handle timeouts"
  rice-insight index ./repo --snapshot main
  rice-insight search "find the config loader" --snapshot main
  rice-insight batch queries.txt --format json`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", formatText, "output format (text, json)")
	rootCmd.PersistentFlags().String("metrics-out", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		analyzeCmd(),
		validateCmd(),
		decomposeCmd(),
		searchCmd(),
		batchCmd(),
		indexCmd(),
		snapshotsCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rice-insight %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	version string = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lumochat",
	Short: "Talk to the LumoPack packaging assistant from a terminal",
	Long: `lumochat drives the LumoPack box-ordering interview locally.

Sessions live in memory and prices come from the built-in catalog unless
--pricing-catalog points at a YAML file.

Quick Start:
  lumochat chat                                     # Start an interview
  lumochat analyze --length 20 --width 15 --height 10 --weight 2 --flute B`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initializeLogger(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// initializeLogger sends logs to stderr so they stay out of the transcript.
// Only warnings are shown unless verbose is set.
func initializeLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

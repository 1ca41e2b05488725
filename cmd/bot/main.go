package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer shutdownSystem()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		shutdownSystem()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bot",
		Short:         "Crypto trading-signal decision engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default $CONFIG_PATH or config.yaml)")

	root.AddCommand(
		newLiveCmd(&configPath),
		newNewsCmd(&configPath),
		newTradesCmd(&configPath),
		newServeCmd(&configPath),
		newRunCmd(&configPath),
	)
	return root
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "convo",
		Short:         "Bounded conversation memory with cached generation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "convo.yaml", "path to config file")

	root.AddCommand(
		newGenerateCmd(&configPath),
		newAlternativesCmd(&configPath),
		newInteractiveCmd(&configPath),
		newBatchCmd(&configPath),
		newChatCmd(&configPath),
		newCacheCmd(&configPath),
	)
	return root
}

// Command mutual-graph merges friend-list exports into one relationship
// graph and serves it to the browser.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritzau/mutual-graph/pkg/config"
	"github.com/ritzau/mutual-graph/pkg/logging"
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
	root := &cobra.Command{
		Use:           "mutual-graph",
		Short:         "Merge friend-list exports into a mutual connection graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-format", "compact", "Log format: compact or json")
	flags.String("hide-leaves", "auto", "Hide people only connected to an origin: auto, on or off")

	root.AddCommand(newMergeCmd())
	root.AddCommand(newServeCmd())
	return root
}

// loadConfig resolves configuration for cmd and applies the logging settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.Setup(cmd.ErrOrStderr(), cfg.LogFormat, logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt))
	return cfg, nil
}

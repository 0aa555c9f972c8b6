package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/mutual-graph/pkg/config"
	"github.com/ritzau/mutual-graph/pkg/logging"
	"github.com/ritzau/mutual-graph/pkg/pubsub"
	"github.com/ritzau/mutual-graph/pkg/session"
	"github.com/ritzau/mutual-graph/pkg/watcher"
	"github.com/ritzau/mutual-graph/pkg/web"
)

// Watch debounce settings: reload after a quiet second, at most every five.
const (
	watchQuietPeriod = time.Second
	watchMaxWait     = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Start the web server, optionally loading exports",
		RunE:  runServe,
	}
	cmd.Flags().IntP("port", "p", 8080, "Port for the web server")
	cmd.Flags().Bool("open", true, "Open the browser")
	cmd.Flags().BoolP("watch", "w", false, "Reload the given files when they change")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	pub := pubsub.NewSessionPublisher()
	defer pub.Close()

	m := session.NewManager(pub, session.Options{
		NodeChunk: cfg.NodeChunk,
		EdgeChunk: cfg.EdgeChunk,
	})
	defer m.Close()

	server := web.NewServer(m, pub, cfg.HideLeavesMode())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, cfg.Port)
	}()

	if len(args) > 0 {
		go preload(ctx, m, cfg, args)
	}
	if cfg.Watch && len(args) > 0 {
		if err := startWatching(ctx, m, cfg, args); err != nil {
			logging.Warn("File watching disabled", "error", err)
		}
	}

	if cfg.Open {
		// Wait a moment for server to start
		time.Sleep(500 * time.Millisecond)
		openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
	}

	return <-errCh
}

func preload(ctx context.Context, m *session.Manager, cfg *config.Config, paths []string) {
	if _, err := m.LoadPaths(ctx, paths, cfg.HideLeavesMode()); err != nil {
		logging.Error("Initial load failed", "error", err)
	}
}

func startWatching(ctx context.Context, m *session.Manager, cfg *config.Config, paths []string) error {
	fw, err := watcher.NewFileWatcher(paths)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), watchQuietPeriod, watchMaxWait)
	debouncer.Start(ctx)

	go watcher.Reload(ctx, debouncer.Output(), paths, func(ctx context.Context, paths []string) error {
		_, err := m.LoadPaths(ctx, paths, cfg.HideLeavesMode())
		return err
	})
	return nil
}

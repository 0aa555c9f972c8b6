package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/mutual-graph/pkg/output"
	"github.com/ritzau/mutual-graph/pkg/session"
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge FILE...",
		Short: "Merge exports and print a summary",
		Long: `Merge one or more exports into a single graph and print a summary.
With --output the merged records are written in the input format, so the
result can be loaded again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMerge,
	}
	cmd.Flags().StringP("output", "o", "", "Write the merged records to this file")
	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m := session.NewManager(nil, session.Options{
		NodeChunk: cfg.NodeChunk,
		EdgeChunk: cfg.EdgeChunk,
	})
	defer m.Close()

	s, err := m.LoadPaths(cmd.Context(), args, cfg.HideLeavesMode())
	if err != nil {
		output.PrintError(cmd.ErrOrStderr(), err)
		return err
	}
	output.PrintSummary(cmd.OutOrStdout(), s)

	if cfg.Output == "" {
		return nil
	}
	data, err := m.Export()
	if err != nil {
		output.PrintError(cmd.ErrOrStderr(), err)
		return err
	}
	if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
		err = fmt.Errorf("writing %s: %w", cfg.Output, err)
		output.PrintError(cmd.ErrOrStderr(), err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.Output)
	return nil
}

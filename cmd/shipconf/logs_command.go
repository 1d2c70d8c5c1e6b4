package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shipconf/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
		level  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tailCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = logs.Tail(tailCtx, cfg.LogPath(), logs.TailOptions{
				Limit:  lines,
				Follow: follow,
				Filter: logs.Filter{RunID: runID, MinLevel: level},
			}, func(e logs.Entry) error {
				_, werr := fmt.Fprintln(out, logs.Format(e))
				return werr
			})
			if follow && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&runID, "run", "", "Only show entries for this run id (prefix)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn or error")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shipconf/internal/history"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		failedOnly bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs or documents that failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("run history is disabled in the configuration")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if failedOnly {
				files, err := store.FailedFiles(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printFailedFiles(out, files)
				return nil
			}
			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(out, runs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "List documents moved to the problem folder")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	return cmd
}

func printRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortRunID(run.ID),
			run.StartedAt.Local().Format(historyTimeLayout),
			string(run.Status),
			yesNo(run.DryRun),
			strconv.Itoa(run.FilesTotal),
			strconv.Itoa(run.FilesSucceeded),
			strconv.Itoa(run.FilesFailed),
			duration,
			run.ErrorMessage,
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Header: "Run"},
		{Header: "Started"},
		{Header: "Status"},
		{Header: "Dry run"},
		{Header: "Files", Align: alignRight},
		{Header: "OK", Align: alignRight},
		{Header: "Failed", Align: alignRight},
		{Header: "Duration", Align: alignRight},
		{Header: "Error", Width: 50},
	}, rows))
}

func printFailedFiles(out io.Writer, files []history.FileRecord) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No failed documents recorded.")
		return
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.ProcessedAt.Local().Format(historyTimeLayout),
			shortRunID(f.RunID),
			f.FileName,
			f.ShipmentID,
			f.ErrorKind,
			f.ErrorMessage,
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Header: "Processed"},
		{Header: "Run"},
		{Header: "File"},
		{Header: "Shipment"},
		{Header: "Kind"},
		{Header: "Error", Width: 60},
	}, rows))
}

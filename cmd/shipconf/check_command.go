package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shipconf/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipRemote bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify folders, imaging tools and service credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipRemote: skipRemote})
			statuses := preflight.CheckSystemDeps(cfg)

			var lines []string
			lines = append(lines, renderSectionHeader("Folders and service", colorize)...)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if skipRemote {
				lines = append(lines, renderStatusLine("Service login", statusInfo, "skipped", colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Imaging tools", colorize)...)
			for _, s := range statuses {
				kind, detail := statusOK, s.Path
				if !s.Available {
					kind, detail = statusError, s.Detail
					if s.Optional {
						kind = statusWarn
					}
					if s.Description != "" {
						detail += " (" + s.Description + ")"
					}
				}
				lines = append(lines, renderStatusLine(s.Name, kind, detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if preflight.Failed(results, statuses) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipRemote, "skip-remote", false, "Skip the service login/logout round trip")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shipconf/internal/config"
	"shipconf/internal/document"
	"shipconf/internal/identifier"
	"shipconf/internal/services"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <file>...",
		Short: "Show the shipment identifier each file would be imported under",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			resolver, err := identifier.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(args))
			failures := 0
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				doc, err := document.New(path)
				if err != nil {
					return err
				}
				res, err := resolver.Resolve(services.WithFileName(cmd.Context(), doc.Name), doc)
				detail := ""
				if err != nil {
					failures++
					detail = err.Error()
				} else if len(res.Symbols) > 0 {
					detail = fmt.Sprintf("%d symbol(s) decoded", len(res.Symbols))
				}
				rows = append(rows, []string{doc.Name, res.ShipmentID, string(res.Source), outcomeLabel(err != nil, colorize), detail})
			}

			fmt.Fprintln(out, renderTable([]column{
				{Header: "File"},
				{Header: "Shipment"},
				{Header: "Source"},
				{Header: "Outcome"},
				{Header: "Detail", Width: 60},
			}, rows))
			if failures > 0 {
				return fmt.Errorf("%d of %d file(s) could not be resolved", failures, len(args))
			}
			return nil
		},
	}
}

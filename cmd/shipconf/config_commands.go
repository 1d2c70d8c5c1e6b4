package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shipconf/internal/config"
	"shipconf/internal/importer"
	"shipconf/internal/preflight"
)

// exampleShipmentID and exampleFileName fill the upload path preview.
const (
	exampleShipmentID = "SHIP42"
	exampleFileName   = "A.pdf"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool
	var withSecrets bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Long:        "Write a commented sample configuration. With --secrets, also write an owner-only .env beside it for SHIPCONF_API_USER and SHIPCONF_API_PASSWORD.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configInitTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", filepath.Dir(target), err)
			}

			secrets := config.SecretsPath(target)
			if !overwrite {
				if err := refuseExisting(target, "config file"); err != nil {
					return err
				}
				if withSecrets {
					if err := refuseExisting(secrets, "secrets file"); err != nil {
						return err
					}
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)

			if withSecrets {
				if err := config.CreateSecretsTemplate(secrets); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote credentials template to %s; fill in the API user and password.\n", secrets)
				fmt.Fprintln(out, "Set api.base_url and the shipment folders before running shipconf.")
				return nil
			}
			fmt.Fprintln(out, "Set api.base_url and the shipment folders, and export SHIPCONF_API_USER / SHIPCONF_API_PASSWORD before running shipconf.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files if present")
	cmd.Flags().BoolVar(&withSecrets, "secrets", false, "Also write a .env credentials template beside the configuration")
	return cmd
}

func configInitTarget(targetPath string) (string, error) {
	target := strings.TrimSpace(targetPath)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func refuseExisting(path, what string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%s already exists at %s (use --overwrite to replace it)", what, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check %s: %w", what, err)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration and show the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			uploadPath, err := importer.UploadPath(cfg.Shipment.URL, exampleShipmentID, exampleFileName)
			if err != nil {
				return fmt.Errorf("build upload path: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			source := path
			if !exists {
				source = path + " (not found; defaults and environment used)"
			}
			rows := [][]string{
				{"Config", source},
				{"Service", cfg.API.BaseURL},
				{"Credentials", fmt.Sprintf("user %s, password set", cfg.API.User)},
				{"Upload path", fmt.Sprintf("PUT %s%s", cfg.API.BaseURL, uploadPath)},
				{"Barcode types", strings.Join(cfg.Decode.BarcodeExtensions, ", ")},
				{"History", yesNo(cfg.History.Enabled)},
				{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
			}
			fmt.Fprintln(out, renderTable([]column{{Header: "Setting"}, {Header: "Value"}}, rows))

			// Shipment folders are never created; flag the ones a run would trip over.
			var lines []string
			for _, folder := range []struct{ name, path string }{
				{"Input folder", cfg.Shipment.InputDir},
				{"Output folder", cfg.Shipment.OutputDir},
				{"Problem folder", cfg.Shipment.ProblemDir},
			} {
				result := preflight.CheckDirectoryAccess(folder.name, folder.path)
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

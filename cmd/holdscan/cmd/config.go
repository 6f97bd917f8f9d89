package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/MeKo-Tech/holdscan/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate configuration",
		Long: `Inspect the resolved configuration or write a default configuration file.

Configuration is read from holdscan.yaml in the search paths, HOLDSCAN_*
environment variables and command-line flags, in increasing priority.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			return writeConfig(cmd, a.cfg, format)
		},
	}
	show.Flags().StringP("format", "f", "yaml", "output format: yaml or json")

	info := &cobra.Command{
		Use:   "info",
		Short: "Show where configuration was loaded from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), a.loader.ConfigInfo())
			return err
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				filename = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(filename); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", filename)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", filename, err)
			}
			if err := config.GenerateDefaultConfigFile(filename); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", filename)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	cmd.AddCommand(show, info, initCmd)
	return cmd
}

func writeConfig(cmd *cobra.Command, cfg *config.Config, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

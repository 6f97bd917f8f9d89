package cmd

import (
	"github.com/MeKo-Tech/holdscan/internal/batch"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Recognize holdings on many OCR pages in parallel",
		Long: `Recognize holdings on many OCR pages using a pool of parallel workers.
Directories are expanded to the JSON and YAML documents they contain.

Examples:
  holdscan batch pages/*.json
  holdscan batch pages/ --recursive --workers 8
  holdscan batch pages/ --format csv --output holdings.csv
  holdscan batch pages/ --format parquet --output holdings.parquet --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	defaults := batch.DefaultConfig()
	cmd.Flags().IntP("workers", "w", defaults.Workers, "number of parallel workers")
	cmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringSlice("include", defaults.IncludePatterns, "file patterns to include")
	cmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml, parquet")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	cmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	cmd.Flags().BoolP("quiet", "q", false, "suppress progress and status messages")
	cmd.Flags().Bool("stats", false, "print processing statistics to stderr")
	cmd.Flags().Bool("continue-on-error", false, "keep going when a page fails")
	addPolicyFlags(cmd)

	return cmd
}

// batchConfig maps the resolved configuration and flags to batch.Config.
func (a *app) batchConfig(cmd *cobra.Command) *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Format, cfg.OutputFile = a.outputSettings(cmd)

	if a.cfg.Batch.Workers > 0 {
		cfg.Workers = a.cfg.Batch.Workers
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}

	cfg.ContinueOnError = a.cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		cfg.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	cfg.Recursive, _ = cmd.Flags().GetBool("recursive")
	cfg.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	cfg.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	cfg.ShowProgress, _ = cmd.Flags().GetBool("progress")
	cfg.Quiet, _ = cmd.Flags().GetBool("quiet")
	cfg.ShowStats, _ = cmd.Flags().GetBool("stats")
	return &cfg
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	cfg := a.batchConfig(cmd)

	engine, err := a.engine(cmd)
	if err != nil {
		return err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	a.logger.Debug("Starting batch", "paths", len(args), "workers", cfg.Workers, "format", cfg.Format)
	result, err := batch.ProcessBatch(cmd.Context(), args, cfg, engine, store)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cfg.Format, cfg.OutputFile, cmd.OutOrStdout(), cfg.Quiet); err != nil {
		return err
	}
	if cfg.ShowStats && !cfg.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/holdscan/internal/eval"
	"github.com/spf13/cobra"
)

func newEvalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <dataset.yaml>",
		Short: "Measure recognition accuracy against a labelled dataset",
		Long: `Run every case of a labelled dataset and compare the recognized
(asset, amount) pairs with the expected ones. Reports per-case results plus
overall precision, recall and F1, both for full holdings and for amounts alone.

Examples:
  holdscan eval testdata/eval/holdings.yaml
  holdscan eval dataset.yaml --format json --output report.json
  holdscan eval dataset.yaml --min-f1 0.9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEval(cmd, args[0])
		},
	}

	cmd.Flags().StringP("format", "f", "text", "report format: text, json, yaml")
	cmd.Flags().StringP("output", "o", "", "report file (default stdout)")
	cmd.Flags().Float64("min-f1", 0, "fail when the overall F1 score is below this value")
	addPolicyFlags(cmd)

	return cmd
}

func (a *app) runEval(cmd *cobra.Command, path string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	minF1, _ := cmd.Flags().GetFloat64("min-f1")

	ds, err := eval.LoadDataset(path)
	if err != nil {
		return err
	}

	engine, err := a.engine(cmd)
	if err != nil {
		return err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	report, err := eval.Run(cmd.Context(), ds, engine, store)
	if err != nil {
		return err
	}
	a.logger.Debug("Evaluation finished", "dataset", report.Dataset, "cases", len(report.Cases), "f1", report.F1)

	if output == "" {
		if err := report.Write(cmd.OutOrStdout(), format); err != nil {
			return err
		}
	} else if err := writeReportFile(report, format, output); err != nil {
		return err
	}

	if report.F1 < minF1 {
		return fmt.Errorf("F1 score %.3f is below the required %.3f", report.F1, minF1)
	}
	return nil
}

func writeReportFile(report *eval.Report, format, output string) error {
	f, err := os.Create(output) //nolint:gosec // G304: path comes from the --output flag
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := report.Write(f, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

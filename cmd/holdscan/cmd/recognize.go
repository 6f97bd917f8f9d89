package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/holdscan/internal/batch"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/spf13/cobra"
)

func newRecognizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recognize [file]",
		Short: "Recognize the holdings on one OCR page",
		Long: `Recognize the holdings on one OCR page. The page is a JSON or YAML
document with the OCR text regions and, optionally, the user's catalog.
Without a file argument (or with "-") the page is read from stdin.

Examples:
  holdscan recognize page.json
  holdscan recognize page.json --format json --output holdings.json
  cat page.json | holdscan recognize --user alice --catalog-driver file --catalog-file catalog.yaml
  holdscan recognize page.json --report`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRecognize(cmd, args)
		},
	}

	cmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml, parquet")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	cmd.Flags().String("user", "", "user whose catalog is used when the page carries none")
	cmd.Flags().Bool("report", false, "print the full recognition report as JSON")
	addPolicyFlags(cmd)

	return cmd
}

func (a *app) runRecognize(cmd *cobra.Command, args []string) error {
	format, output := a.outputSettings(cmd)
	report, _ := cmd.Flags().GetBool("report")
	if !report && format == "parquet" && output == "" {
		return errors.New("parquet output requires --output")
	}

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}

	var (
		doc *ingest.Document
		err error
	)
	if name == "-" {
		doc, err = ingest.Decode(cmd.InOrStdin())
	} else {
		doc, err = ingest.DecodeFile(name)
	}
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("user") {
		doc.UserID, _ = cmd.Flags().GetString("user")
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

	res := batch.Recognize(cmd.Context(), engine, store, name, doc)
	if res.Err != nil {
		return res.Err
	}
	a.logger.Debug("Recognized page", "file", name, "holdings", len(res.Report.Results),
		"processor", res.Report.Processor, "duration", res.Duration)

	if report {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	}

	result := &batch.Result{Files: []batch.FileResult{res}, Duration: res.Duration, WorkerCount: 1}
	return result.SaveResults(format, output, cmd.OutOrStdout(), false)
}

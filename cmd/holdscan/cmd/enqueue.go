package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/queue"
	"github.com/spf13/cobra"
)

func newEnqueueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue [files...]",
		Short: "Submit OCR pages to the recognition queue",
		Long: `Submit OCR pages as recognition jobs. Each page is checked before it is
queued; the job ID printed for each file is the asynq task ID.

Examples:
  holdscan enqueue page.json
  holdscan enqueue page.json --job-id statement-2026-10
  holdscan enqueue pages/*.json --queue bulk`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEnqueue(cmd, args)
		},
	}

	addQueueFlags(cmd)
	cmd.Flags().String("job-id", "", "job ID for a single file (default random UUID)")
	addPolicyFlags(cmd)

	return cmd
}

func (a *app) runEnqueue(cmd *cobra.Command, args []string) error {
	jobID, _ := cmd.Flags().GetString("job-id")
	if jobID != "" && len(args) > 1 {
		return errors.New("--job-id can only be used with a single file")
	}

	documents := make([][]byte, len(args))
	for i, name := range args {
		data, err := readDocument(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		// Reject the whole submission before anything is queued.
		if _, err := ingest.DecodeBytes(data); err != nil {
			return fmt.Errorf("invalid document %s: %w", name, err)
		}
		documents[i] = data
	}

	client, err := queue.NewClient(a.queueConfig(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	policy := policyOverrides(cmd)
	for i, name := range args {
		info, err := client.Enqueue(cmd.Context(), jobID, documents[i], policy)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", name, err)
		}
		a.logger.Debug("Enqueued job", "file", name, "job_id", info.ID, "queue", info.Queue)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", name, info.ID, info.Queue)
	}
	return nil
}

func readDocument(stdin io.Reader, name string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name) //nolint:gosec // G304: user-provided page path
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"statement-splitter/cmd/splitter/config"
	"statement-splitter/internal/materializer"
	"statement-splitter/internal/trace"
)

var (
	confirmFile       string
	confirmOriginalID string
	confirmTag        string
	confirmUseAI      bool
	confirmOverride   bool
	confirmForce      bool
	confirmFormat     string
	confirmOutput     string
)

// confirmCmd parses a statement and writes the child entries.
var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Split a settlement transaction into child entries",
	Long: `Confirm parses the statement, re-checks the sum against the original
settlement transaction and writes one child entry per item, tags the
original as extracted and creates the correcting clone.

The command fails when the item sum does not match the original amount
(override with --proceed-on-mismatch) or when the original was already
split (override with --force).

Examples:
  splitter confirm --file statement.txt --original-id abc123 --tag march
  splitter confirm --file statement.txt --original-id abc123 --proceed-on-mismatch
  splitter confirm --file statement.txt --original-id abc123 --force`,

	PreRunE: validateConfirmFlags,
	RunE:    runConfirm,
}

func init() {
	rootCmd.AddCommand(confirmCmd)

	confirmCmd.Flags().StringVarP(&confirmFile, "file", "f", "", "path to the statement file (required)")
	confirmCmd.Flags().StringVar(&confirmOriginalID, "original-id", "", "ledger ID of the settlement transaction (required)")
	confirmCmd.Flags().StringVarP(&confirmTag, "tag", "t", "", "tag applied to the child entries")
	confirmCmd.Flags().BoolVar(&confirmUseAI, "use-ai", false, "force AI-assisted extraction")
	confirmCmd.Flags().BoolVar(&confirmOverride, "proceed-on-mismatch", false, "write the entries even when the sum does not match")
	confirmCmd.Flags().BoolVar(&confirmForce, "force", false, "split again even when the original is already tagged as extracted")
	confirmCmd.Flags().StringVar(&confirmFormat, "output-format", "console", "output format: console, json, csv")
	confirmCmd.Flags().StringVarP(&confirmOutput, "output-file", "o", "", "output file path (default: stdout)")

	confirmCmd.MarkFlagRequired("file")
	confirmCmd.MarkFlagRequired("original-id")
}

func validateConfirmFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(confirmFile, "statement file"); err != nil {
		return err
	}
	_, err := config.ReportConfig(confirmFormat)
	return err
}

func runConfirm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tracer := trace.New()

	data, err := os.ReadFile(confirmFile)
	if err != nil {
		return fmt.Errorf("failed to read statement file: %w", err)
	}

	svc, ledgerSvc, err := buildPipeline(ctx, confirmUseAI, tracer)
	if err != nil {
		return err
	}

	statement, err := svc.ParseUpload(ctx, filepath.Base(confirmFile), data, confirmUseAI)
	if err != nil {
		return err
	}

	mat, err := materializer.New(config.MaterializerConfig(), ledgerSvc, svc.Markers(), tracer)
	if err != nil {
		return err
	}
	result, err := mat.Confirm(ctx, materializer.Request{
		OriginalID:        confirmOriginalID,
		Items:             statement.Items,
		Tag:               confirmTag,
		ProceedOnMismatch: confirmOverride,
		Force:             confirmForce,
	})
	if err != nil {
		return err
	}

	generator, out, cleanup, err := openReport(confirmFormat, confirmOutput)
	if err != nil {
		return err
	}
	defer cleanup()
	return generator.WriteConfirm(result, out)
}

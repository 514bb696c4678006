package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"statement-splitter/cmd/splitter/config"
	"statement-splitter/internal/ledger"
	"statement-splitter/internal/parsers"
	"statement-splitter/internal/reconciler"
	"statement-splitter/internal/reporter"
	"statement-splitter/internal/trace"
)

var (
	previewFile       string
	previewOriginalID string
	previewTag        string
	previewUseAI      bool
	previewFormat     string
	previewOutput     string
	previewTrace      bool
)

// previewCmd parses one statement and shows the reconciled items without
// writing anything.
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Parse a statement and reconcile it against a settlement transaction",
	Long: `Preview parses an uploaded statement (CSV or extracted text), matches
the item sum against the original settlement transaction and shows the
items, totals and tags a confirmation would apply. Nothing is written.

Examples:
  splitter preview --file statement.txt --original-id abc123
  splitter preview --file statement.csv --original-id abc123 --tag march --use-ai
  splitter preview --file statement.txt --original-id abc123 --output-format json`,

	PreRunE: validatePreviewFlags,
	RunE:    runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVarP(&previewFile, "file", "f", "", "path to the statement file (required)")
	previewCmd.Flags().StringVar(&previewOriginalID, "original-id", "", "ledger ID of the settlement transaction (required)")
	previewCmd.Flags().StringVarP(&previewTag, "tag", "t", "", "tag applied to the child entries")
	previewCmd.Flags().BoolVar(&previewUseAI, "use-ai", false, "force AI-assisted extraction")
	previewCmd.Flags().StringVar(&previewFormat, "output-format", "console", "output format: console, json, csv")
	previewCmd.Flags().StringVarP(&previewOutput, "output-file", "o", "", "output file path (default: stdout)")
	previewCmd.Flags().BoolVar(&previewTrace, "trace", false, "print parse-stage diagnostics to stderr")

	previewCmd.MarkFlagRequired("file")
	previewCmd.MarkFlagRequired("original-id")
}

func validatePreviewFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(previewFile, "statement file"); err != nil {
		return err
	}
	_, err := config.ReportConfig(previewFormat)
	return err
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tracer := trace.New()

	data, err := os.ReadFile(previewFile)
	if err != nil {
		return fmt.Errorf("failed to read statement file: %w", err)
	}

	svc, _, err := buildPipeline(ctx, previewUseAI, tracer)
	if err != nil {
		return err
	}

	result, err := svc.Preview(ctx, reconciler.PreviewRequest{
		FileName:   filepath.Base(previewFile),
		Data:       data,
		OriginalID: previewOriginalID,
		Tag:        previewTag,
		UseAI:      previewUseAI,
	})
	if err != nil {
		return err
	}

	generator, out, cleanup, err := openReport(previewFormat, previewOutput)
	if err != nil {
		return err
	}
	defer cleanup()

	if previewTrace {
		generator.WriteTrace(tracer.Entries(), os.Stderr)
	}
	return generator.WritePreview(result, out)
}

// buildPipeline wires the preview service and ledger connection from the
// CLI configuration.
func buildPipeline(ctx context.Context, forceAI bool, tracer *trace.Recorder) (*reconciler.Service, ledger.Service, error) {
	svcConfig := config.ServiceConfig()

	ledgerSvc, err := config.LedgerService()
	if err != nil {
		return nil, nil, err
	}

	markers, err := parsers.NewMarkerTable(svcConfig.Parser.Markers)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := config.Extractor(ctx, forceAI, markers)
	if err != nil {
		return nil, nil, err
	}

	svc, err := reconciler.NewService(svcConfig, extractor, ledgerSvc, tracer)
	if err != nil {
		return nil, nil, err
	}
	return svc, ledgerSvc, nil
}

// openReport creates the report generator and output destination.
func openReport(format, outputFile string) (*reporter.ReportGenerator, *os.File, func(), error) {
	reportConfig, err := config.ReportConfig(format)
	if err != nil {
		return nil, nil, nil, err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return nil, nil, nil, err
	}

	if outputFile == "" {
		return generator, os.Stdout, func() {}, nil
	}
	out, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return generator, out, func() { out.Close() }, nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"statement-splitter/cmd/splitter/config"
	"statement-splitter/internal/matcher"
	"statement-splitter/internal/materializer"
	"statement-splitter/internal/reconciler"
	"statement-splitter/internal/trace"
)

var (
	batchFiles        []string
	batchCandidateIDs []string
	batchUseAI        bool
	batchConfirm      bool
	batchTag          string
	batchOverride     bool
	batchForce        bool
	batchWindowDays   int
	batchGraceDays    int
	batchFormat       string
	batchOutput       string
)

// batchCmd matches many statements against many settlement candidates.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Match multiple statements against settlement transactions",
	Long: `Batch parses every file, assigns each one to the best settlement
candidate by amount and date, and reports the groups. Candidates come
from --candidate-ids or are discovered in the ledger within the date
window spanned by the parsed items.

With --confirm, matched groups are split immediately; failures on one
group are reported and do not stop the others.

Examples:
  splitter batch --files march.txt,april.txt
  splitter batch --files march.txt --candidate-ids abc123,def456
  splitter batch --files march.txt,april.txt --confirm --tag card-split`,

	PreRunE: validateBatchFlags,
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSliceVarP(&batchFiles, "files", "f", []string{}, "comma-separated statement file paths (required)")
	batchCmd.Flags().StringSliceVar(&batchCandidateIDs, "candidate-ids", []string{}, "explicit settlement transaction IDs to match against")
	batchCmd.Flags().BoolVar(&batchUseAI, "use-ai", false, "force AI-assisted extraction")
	batchCmd.Flags().BoolVar(&batchConfirm, "confirm", false, "split the matched groups immediately")
	batchCmd.Flags().StringVarP(&batchTag, "tag", "t", "", "tag applied to the child entries")
	batchCmd.Flags().BoolVar(&batchOverride, "proceed-on-mismatch", false, "confirm groups even when their sums do not match")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "split again even when an original is already tagged as extracted")
	batchCmd.Flags().IntVar(&batchWindowDays, "window-days", 0, "days after the last item date a candidate may settle (0 = configured default)")
	batchCmd.Flags().IntVar(&batchGraceDays, "grace-before-days", -1, "days before the last item date a candidate may settle (-1 = configured default)")
	batchCmd.Flags().StringVar(&batchFormat, "output-format", "console", "output format: console, json, csv")
	batchCmd.Flags().StringVarP(&batchOutput, "output-file", "o", "", "output file path (default: stdout)")

	batchCmd.MarkFlagRequired("files")
}

func validateBatchFlags(cmd *cobra.Command, args []string) error {
	if len(batchFiles) == 0 {
		return fmt.Errorf("at least one statement file is required")
	}
	for i, file := range batchFiles {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}
	_, err := config.ReportConfig(batchFormat)
	return err
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tracer := trace.New()

	files := make([]reconciler.BatchFile, 0, len(batchFiles))
	for _, path := range batchFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, reconciler.BatchFile{Name: filepath.Base(path), Data: data})
	}

	svc, ledgerSvc, err := buildPipeline(ctx, batchUseAI, tracer)
	if err != nil {
		return err
	}
	m, err := matcher.New(config.MatcherConfig(batchWindowDays, batchGraceDays), tracer)
	if err != nil {
		return err
	}
	batch := reconciler.NewBatchService(svc, m, ledgerSvc, tracer)

	groups, err := batch.Preview(ctx, files, batchCandidateIDs, batchUseAI)
	if err != nil {
		return err
	}

	generator, out, cleanup, err := openReport(batchFormat, batchOutput)
	if err != nil {
		return err
	}
	defer cleanup()

	if !batchConfirm {
		return generator.WriteBatch(groups, out)
	}

	mat, err := materializer.New(config.MaterializerConfig(), ledgerSvc, svc.Markers(), tracer)
	if err != nil {
		return err
	}
	result, err := mat.ConfirmBatch(ctx, groups, batchTag, batchOverride, batchForce)
	if err != nil {
		return err
	}
	if err := generator.WriteBatch(groups, out); err != nil {
		return err
	}
	return generator.WriteConfirm(result, out)
}

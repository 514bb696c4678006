package reconciler

import (
	"context"

	"statement-splitter/internal/extract"
	"statement-splitter/internal/ingest"
	"statement-splitter/internal/ledger"
	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// Config assembles the settings of the preview pipeline.
type Config struct {
	CSV    *ingest.CSVConfig `json:"csv" mapstructure:"csv"`
	Parser *parsers.Config   `json:"parser" mapstructure:"parser"`
	Merge  *MergeConfig      `json:"merge" mapstructure:"merge"`

	// DefaultTag is applied when a request does not name one.
	DefaultTag string `json:"default_tag" mapstructure:"default_tag"`
	// AccountCurrency steers the AI prompt toward billed amounts.
	AccountCurrency string `json:"account_currency" mapstructure:"account_currency"`
	// UseAI enables the extractor for unstructured text.
	UseAI bool `json:"use_ai" mapstructure:"use_ai"`
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() *Config {
	return &Config{
		CSV:        ingest.DefaultCSVConfig(),
		Parser:     parsers.DefaultConfig(),
		Merge:      DefaultMergeConfig(),
		DefaultTag: "statement-split",
	}
}

// Service drives a statement from upload to reconciled preview.
type Service struct {
	config    *Config
	csv       *ingest.CSVIngester
	parser    *parsers.RowParser
	merger    *MergeReconciler
	markers   *parsers.MarkerTable
	extractor extract.Extractor
	ledger    ledger.Service
	tracer    *trace.Recorder
	logger    logger.Logger
}

// NewService creates the preview pipeline. The extractor may be nil, which
// disables AI assistance regardless of configuration.
func NewService(config *Config, extractor extract.Extractor, ledgerSvc ledger.Service, tracer *trace.Recorder) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Parser == nil {
		config.Parser = parsers.DefaultConfig()
	}

	csv, err := ingest.NewCSVIngester(config.CSV)
	if err != nil {
		return nil, err
	}
	parser, err := parsers.NewRowParser(config.Parser, tracer)
	if err != nil {
		return nil, err
	}
	merger, err := NewMergeReconciler(config.Merge, tracer)
	if err != nil {
		return nil, err
	}
	markers, err := parsers.NewMarkerTable(config.Parser.Markers)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:    config,
		csv:       csv,
		parser:    parser,
		merger:    merger,
		markers:   markers,
		extractor: extractor,
		ledger:    ledgerSvc,
		tracer:    tracer,
		logger:    logger.WithComponent("reconciler"),
	}, nil
}

// PreviewRequest is one statement upload to reconcile against an original.
type PreviewRequest struct {
	FileName   string
	Data       []byte
	OriginalID string
	Tag        string
	// UseAI forces the extractor on for this request.
	UseAI bool
}

// Preview parses the upload, reconciles it against the original settlement
// transaction and returns items, totals and the tags a confirmation would
// apply. A sum mismatch does not fail the preview; the totals carry the
// diff for the caller to inspect.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*models.ReconciliationResult, error) {
	if len(req.Data) == 0 {
		return nil, splittererrors.Validation(splittererrors.CodeMissingInput, "file", "no content uploaded")
	}
	if req.OriginalID == "" {
		return nil, splittererrors.Validation(splittererrors.CodeMissingInput, "original_id", "")
	}

	statement, err := s.ParseUpload(ctx, req.FileName, req.Data, req.UseAI)
	if err != nil {
		return nil, err
	}

	original, err := s.ledger.GetTransaction(ctx, req.OriginalID)
	if err != nil {
		return nil, err
	}

	totals := ReconcileTotals(original.Amount, statement, s.markers)
	s.tracer.Record("sum", "original %s, sum %s, diff %s", totals.Original, totals.Sum, totals.Diff)

	tag := req.Tag
	if tag == "" {
		tag = s.config.DefaultTag
	}

	return &models.ReconciliationResult{
		Items:  statement.Items,
		Totals: totals,
		Meta: models.Meta{
			ParentTag: models.ParentTag(original.Description),
			Tag:       models.SanitizeTag(tag),
		},
	}, nil
}

// ParseUpload turns an uploaded file into a parsed statement, running the
// full fallback chain: deterministic strategies, then the AI extractor,
// then the per-line heuristic.
func (s *Service) ParseUpload(ctx context.Context, fileName string, data []byte, forceAI bool) (*models.ParsedStatement, error) {
	kind := ingest.DetectKind(fileName, data)
	s.tracer.Record("ingest", "%s detected as %s", fileName, kind)

	switch kind {
	case ingest.KindCSV:
		return s.csv.Ingest(data, fileName)
	case ingest.KindText:
		return s.parseText(ctx, fileName, string(data), forceAI)
	default:
		return nil, splittererrors.UnsupportedFileType(fileName)
	}
}

func (s *Service) parseText(ctx context.Context, fileName, text string, forceAI bool) (*models.ParsedStatement, error) {
	sliced := ingest.TableSlice(text, s.markers)
	statement := s.parser.Parse(sliced, fileName)

	var extractErr error
	useAI := s.extractor != nil && (forceAI || s.config.UseAI || statement.IsEmpty())
	if useAI {
		result, err := s.extractor.Extract(ctx, sliced, s.config.AccountCurrency)
		switch {
		case err != nil:
			extractErr = err
			s.tracer.Record("extract", "extraction failed: %v", err)
			s.logger.WithError(err).Warn("AI extraction failed, falling back")
		default:
			s.tracer.Record("extract", "model proposed %d items", len(result.Items))
			statement.Items = s.merger.Merge(statement.Items, result.Items)
		}
	}

	if statement.IsEmpty() {
		statement.Items = s.parser.HeuristicScan(sliced)
	}
	if statement.IsEmpty() {
		if extractErr != nil {
			return nil, extractErr
		}
		return nil, splittererrors.New(splittererrors.CategoryParse,
			splittererrors.CodeNoRowsExtracted, "no statement rows could be extracted").
			WithSuggestion("check the statement text or enable AI-assisted parsing").
			WithContext("file", fileName)
	}
	return statement, nil
}

// Markers exposes the compiled marker table for downstream stages.
func (s *Service) Markers() *parsers.MarkerTable {
	return s.markers
}

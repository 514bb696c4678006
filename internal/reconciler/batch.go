package reconciler

import (
	"context"

	"statement-splitter/internal/ledger"
	"statement-splitter/internal/matcher"
	"statement-splitter/internal/models"
	"statement-splitter/internal/trace"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// BatchFile is one upload inside a batch run.
type BatchFile struct {
	Name string
	Data []byte
}

// BatchService previews many statements at once: each file becomes a
// group, groups are matched one-to-one against settlement candidates, and
// per-file failures are recorded on the group instead of aborting the run.
type BatchService struct {
	service *Service
	matcher *matcher.Matcher
	ledger  ledger.Service
	tracer  *trace.Recorder
	logger  logger.Logger
}

// NewBatchService creates a batch preview service.
func NewBatchService(service *Service, m *matcher.Matcher, ledgerSvc ledger.Service, tracer *trace.Recorder) *BatchService {
	return &BatchService{
		service: service,
		matcher: m,
		ledger:  ledgerSvc,
		tracer:  tracer,
		logger:  logger.WithComponent("batch"),
	}
}

// Preview parses every file, finds candidates and assigns them. With no
// explicit candidate IDs, candidates are discovered by searching the
// ledger for withdrawals inside the date window spanned by the groups.
func (bs *BatchService) Preview(ctx context.Context, files []BatchFile, candidateIDs []string, useAI bool) ([]*models.BatchGroup, error) {
	if len(files) == 0 {
		return nil, splittererrors.Validation(splittererrors.CodeMissingInput, "files", "no files uploaded")
	}

	groups := make([]*models.BatchGroup, 0, len(files))
	for _, file := range files {
		group := &models.BatchGroup{FileName: file.Name}
		statement, err := bs.service.ParseUpload(ctx, file.Name, file.Data, useAI)
		if err != nil {
			group.Error = err.Error()
			bs.logger.WithError(err).WithField("file", file.Name).Warn("Batch file failed to parse")
		} else {
			group.Items = statement.Items
			group.Sum = ComputeSum(statement.Items, bs.service.Markers())
		}
		groups = append(groups, group)
	}

	candidates, err := bs.findCandidates(ctx, groups, candidateIDs)
	if err != nil {
		return nil, err
	}

	bs.matcher.Match(groups, candidates)

	for _, group := range groups {
		group.Selectable = group.Error == "" &&
			group.Matched != nil &&
			group.Matched.Diff.Abs().LessThan(DefaultSumTolerance)
	}
	return groups, nil
}

// findCandidates resolves explicit IDs, or discovers withdrawals in the
// date window spanned by the groups' items.
func (bs *BatchService) findCandidates(ctx context.Context, groups []*models.BatchGroup, candidateIDs []string) ([]models.MatchCandidate, error) {
	if len(candidateIDs) > 0 {
		txs := make([]*ledger.Transaction, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			tx, err := bs.ledger.GetTransaction(ctx, id)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}
		return matcher.CandidatesFromTransactions(txs), nil
	}

	from, to, ok := bs.matcher.DiscoveryWindow(groups)
	if !ok {
		bs.tracer.Record("match", "no dated groups, skipping candidate discovery")
		return nil, nil
	}
	txs, err := bs.ledger.SearchTransactions(ctx, ledger.SearchQuery{
		From: from,
		To:   to,
		Type: ledger.TypeWithdrawal,
	})
	if err != nil {
		return nil, err
	}
	bs.tracer.Record("match", "discovered %d candidates between %s and %s",
		len(txs), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return matcher.CandidatesFromTransactions(txs), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portsrepo "github.com/finbooks/accounting_backend/internal/core/ports/repositories"
	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/dto"
	"github.com/finbooks/accounting_backend/internal/middleware"
	"github.com/finbooks/accounting_backend/internal/utils/money"
)

var (
	ErrUnbalancedJournal = errors.New("journal lines do not balance")
	ErrNoJournalLines    = errors.New("document produced no journal lines")
	// ErrMapperNotConfigured is a configuration defect, not a caller error.
	ErrMapperNotConfigured = errors.New("no document mapper configured for doc type")
)

// postingService turns business documents into balanced journal batches.
type postingService struct {
	journalRepo portsrepo.JournalRepositoryWithTx
	mappers     map[domain.DocType]portssvc.DocumentMapper
}

// NewPostingService creates a posting service with the given mapper set.
// Registration problems (empty doc type, duplicate mapper) are rejected here,
// at startup, so an unknown doc type at post time can only mean a missing
// registration.
func NewPostingService(journalRepo portsrepo.JournalRepositoryWithTx, mappers ...portssvc.DocumentMapper) (portssvc.PostingService, error) {
	registry := make(map[domain.DocType]portssvc.DocumentMapper, len(mappers))
	for _, m := range mappers {
		dt := m.DocType()
		if dt == "" {
			return nil, fmt.Errorf("document mapper %T has an empty doc type", m)
		}
		if _, exists := registry[dt]; exists {
			return nil, fmt.Errorf("duplicate document mapper registered for doc type %s", dt)
		}
		registry[dt] = m
	}
	return &postingService{journalRepo: journalRepo, mappers: registry}, nil
}

// Ensure postingService implements the PostingService interface.
var _ portssvc.PostingService = (*postingService)(nil)

// validateBalance converts each side to integer minor units and requires exact
// equality. Zero lines are always unbalanced; a no-op posting is never silent.
func validateBalance(lines []domain.JournalLine) error {
	if len(lines) == 0 {
		return ErrNoJournalLines
	}

	var debits, credits int64
	for _, l := range lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return fmt.Errorf("%w: negative amount on account %s", ErrUnbalancedJournal, l.AccountID)
		}
		debits += money.ToMinorUnits(l.Debit)
		credits += money.ToMinorUnits(l.Credit)
	}

	if debits != credits {
		return fmt.Errorf("%w: debits %s vs credits %s",
			ErrUnbalancedJournal, money.FromMinorUnits(debits).String(), money.FromMinorUnits(credits).String())
	}
	return nil
}

// Post maps the request to journal lines, validates the balance, and commits
// the batch and its lines in one transaction. A nil tx means the service owns
// the transaction lifecycle; otherwise it participates in the caller's
// transaction and leaves commit/rollback to the caller.
// Implements portssvc.PostingService.
func (s *postingService) Post(ctx context.Context, req dto.PostingRequest, tx pgx.Tx) (*portssvc.PostingResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	mapper, ok := s.mappers[req.DocType]
	if !ok {
		logger.Error("No document mapper registered", slog.String("doc_type", string(req.DocType)))
		return nil, fmt.Errorf("%w: %s", ErrMapperNotConfigured, req.DocType)
	}

	owns := tx == nil
	if owns {
		var err error
		tx, err = s.journalRepo.Begin(ctx)
		if err != nil {
			return nil, err
		}
		// Ignored once the transaction has been committed.
		defer s.journalRepo.Rollback(ctx, tx)
	}

	lines, err := mapper.MapToLines(req)
	if err != nil {
		return nil, err
	}

	if err := validateBalance(lines); err != nil {
		logger.Warn("Rejected unbalanced posting",
			slog.String("doc_type", string(req.DocType)),
			slog.String("doc_ref", req.DocRef),
			slog.String("error", err.Error()))
		return nil, err
	}

	now := time.Now().UTC()
	batch := domain.JournalBatch{
		BatchID:     uuid.NewString(),
		CompanyID:   req.CompanyID,
		DocType:     req.DocType,
		DocRef:      req.DocRef,
		BatchDate:   req.Date,
		Description: req.Description,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     req.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: req.UserID,
		},
	}

	for i := range lines {
		lines[i].LineID = uuid.NewString()
		lines[i].BatchID = batch.BatchID
		lines[i].Position = i
	}

	if err := s.journalRepo.CreateBatchInTx(ctx, tx, batch); err != nil {
		return nil, err
	}
	if err := s.journalRepo.InsertLinesInTx(ctx, tx, batch.BatchID, lines); err != nil {
		return nil, err
	}

	if owns {
		if err := s.journalRepo.Commit(ctx, tx); err != nil {
			return nil, err
		}
	}

	logger.Info("Journal batch posted",
		slog.String("batch_id", batch.BatchID),
		slog.String("doc_type", string(req.DocType)),
		slog.String("doc_ref", req.DocRef),
		slog.Int("line_count", len(lines)))
	return &portssvc.PostingResult{Batch: batch, Lines: lines}, nil
}

// GetBatch retrieves a posted batch with its lines, company scoped.
// Implements portssvc.PostingService.
func (s *postingService) GetBatch(ctx context.Context, companyID string, batchID string) (*domain.JournalBatch, []domain.JournalLine, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	batch, err := s.journalRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find batch by ID", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		}
		return nil, nil, err
	}

	if batch.CompanyID != companyID {
		// Obscure existence from other companies.
		return nil, nil, apperrors.ErrNotFound
	}

	lines, err := s.journalRepo.FindLinesByBatchID(ctx, batchID)
	if err != nil {
		logger.Error("Failed to fetch lines for batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		return nil, nil, fmt.Errorf("failed to retrieve lines for batch %s: %w", batchID, apperrors.ErrInternal)
	}

	return batch, lines, nil
}

// ListBatches retrieves a cursor-paginated page of a company's batches.
// Implements portssvc.PostingService.
func (s *postingService) ListBatches(ctx context.Context, companyID string, params dto.ListBatchesParams) ([]domain.JournalBatch, *string, error) {
	batches, nextToken, err := s.journalRepo.ListBatchesByCompany(ctx, companyID, params.Limit, params.NextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list batches for company %s: %w", companyID, err)
	}
	return batches, nextToken, nil
}

package services

import (
	"context"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/finbooks/accounting_backend/internal/dto"
	"github.com/jackc/pgx/v5"
)

// DocumentMapper translates one kind of business document into candidate
// journal lines. Mappers are pure: they may read reference data but never
// mutate state, and they never persist anything themselves.
type DocumentMapper interface {
	// DocType is the document type this mapper handles.
	DocType() domain.DocType

	// MapToLines produces the candidate lines for the request. Line IDs and
	// batch linkage are filled in by the posting engine.
	MapToLines(req dto.PostingRequest) ([]domain.JournalLine, error)
}

// PostingResult is the committed outcome of a posting call.
type PostingResult struct {
	Batch domain.JournalBatch
	Lines []domain.JournalLine
}

// PostingService turns business documents into balanced journal batches.
type PostingService interface {
	// Post maps the request to journal lines, validates the balance in minor
	// units, and commits the batch and its lines atomically. A nil tx means
	// the service owns the transaction lifecycle; a non-nil tx means the
	// caller already holds an open transaction and the service only
	// participates, leaving commit/rollback to the caller.
	Post(ctx context.Context, req dto.PostingRequest, tx pgx.Tx) (*PostingResult, error)

	// GetBatch retrieves a posted batch with its lines, company scoped.
	GetBatch(ctx context.Context, companyID string, batchID string) (*domain.JournalBatch, []domain.JournalLine, error)

	// ListBatches retrieves a cursor-paginated page of a company's batches.
	ListBatches(ctx context.Context, companyID string, params dto.ListBatchesParams) ([]domain.JournalBatch, *string, error)
}

package repositories

import (
	"context"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// JournalReader defines read operations for posted journal data
type JournalReader interface {
	// FindBatchByID retrieves a specific journal batch by its unique identifier.
	FindBatchByID(ctx context.Context, batchID string) (*domain.JournalBatch, error)

	// FindLinesByBatchID retrieves the lines of a batch in posting order.
	FindLinesByBatchID(ctx context.Context, batchID string) ([]domain.JournalLine, error)

	// ListBatchesByCompany retrieves a paginated list of batches for a company
	// using token-based pagination. It returns the batches, a token for the
	// next page, and an error.
	ListBatchesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.JournalBatch, *string, error)
}

// JournalWriter defines the commit-time write operations for the posting
// engine. Both methods participate in the caller-provided transaction; the
// batch row and its lines are only ever written together.
type JournalWriter interface {
	// CreateBatchInTx inserts the batch row inside the given transaction.
	CreateBatchInTx(ctx context.Context, tx pgx.Tx, batch domain.JournalBatch) error

	// InsertLinesInTx bulk-inserts the batch's lines inside the given transaction.
	InsertLinesInTx(ctx context.Context, tx pgx.Tx, batchID string, lines []domain.JournalLine) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction capabilities
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}

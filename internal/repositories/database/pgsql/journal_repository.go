package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portsrepo "github.com/finbooks/accounting_backend/internal/core/ports/repositories"
	"github.com/finbooks/accounting_backend/internal/utils/pagination"
)

const batchColumns = `batch_id, company_id, doc_type, doc_ref, batch_date, description, created_at, created_by, last_updated_at, last_updated_by`

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal batch data.
func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryWithTx {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryWithTx
var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

func scanBatch(row pgx.Row) (domain.JournalBatch, error) {
	var b domain.JournalBatch
	err := row.Scan(
		&b.BatchID,
		&b.CompanyID,
		&b.DocType,
		&b.DocRef,
		&b.BatchDate,
		&b.Description,
		&b.CreatedAt,
		&b.CreatedBy,
		&b.LastUpdatedAt,
		&b.LastUpdatedBy,
	)
	return b, err
}

// CreateBatchInTx inserts the batch row inside the given transaction. The
// unique (company_id, doc_type, doc_ref) index makes a re-post of the same
// source document fail here as apperrors.ErrDuplicate.
func (r *PgxJournalRepository) CreateBatchInTx(ctx context.Context, tx pgx.Tx, batch domain.JournalBatch) error {
	query := `
		INSERT INTO journal_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := tx.Exec(ctx, query,
		batch.BatchID,
		batch.CompanyID,
		batch.DocType,
		batch.DocRef,
		batch.BatchDate,
		batch.Description,
		batch.CreatedAt,
		batch.CreatedBy,
		batch.LastUpdatedAt,
		batch.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: document %s/%s already posted for company %s",
				apperrors.ErrDuplicate, batch.DocType, batch.DocRef, batch.CompanyID)
		}
		return fmt.Errorf("failed to insert journal batch %s: %w", batch.BatchID, err)
	}
	return nil
}

// InsertLinesInTx bulk-inserts the batch's lines inside the given transaction.
func (r *PgxJournalRepository) InsertLinesInTx(ctx context.Context, tx pgx.Tx, batchID string, lines []domain.JournalLine) error {
	query := `
		INSERT INTO journal_lines (line_id, batch_id, account_id, debit, credit, description, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.LineID,
			batchID,
			line.AccountID,
			line.Debit,
			line.Credit,
			line.Description,
			line.Position,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to insert journal lines for batch %s: %w", batchID, err)
	}
	return nil
}

// FindBatchByID retrieves a batch by its ID.
func (r *PgxJournalRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.JournalBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM journal_batches
		WHERE batch_id = $1;
	`
	b, err := scanBatch(r.Pool.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find journal batch by ID %s: %w", batchID, err)
	}
	return &b, nil
}

// FindLinesByBatchID retrieves the lines of a batch in posting order.
func (r *PgxJournalRepository) FindLinesByBatchID(ctx context.Context, batchID string) ([]domain.JournalLine, error) {
	query := `
		SELECT line_id, batch_id, account_id, debit, credit, description, position
		FROM journal_lines
		WHERE batch_id = $1
		ORDER BY position;
	`
	rows, err := r.Pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal lines for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	lines := []domain.JournalLine{}
	for rows.Next() {
		var l domain.JournalLine
		if err := rows.Scan(
			&l.LineID,
			&l.BatchID,
			&l.AccountID,
			&l.Debit,
			&l.Credit,
			&l.Description,
			&l.Position,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal line row for batch %s: %w", batchID, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal line rows for batch %s: %w", batchID, err)
	}
	return lines, nil
}

// ListBatchesByCompany retrieves a page of a company's batches using
// token-based pagination, newest first. The cursor is (batch_date, created_at)
// of the last item on the previous page.
func (r *PgxJournalRepository) ListBatchesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.JournalBatch, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine whether there is a next page.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + batchColumns + `
		FROM journal_batches
		WHERE company_id = $1
	`
	// Ordering must be stable; created_at breaks batch_date ties.
	orderByClause := `ORDER BY batch_date DESC, created_at DESC`

	args := []interface{}{companyID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken", apperrors.ErrValidation)
		}
		query += ` AND (batch_date, created_at) < ($2, $3) `
		args = append(args, lastDate, lastCreatedAt)
	}
	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query journal batches for company %s: %w", companyID, err)
	}
	defer rows.Close()

	batches := make([]domain.JournalBatch, 0, fetchLimit)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan journal batch row for company %s: %w", companyID, err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating journal batch rows for company %s: %w", companyID, err)
	}

	var nextTokenVal *string
	if len(batches) > limit {
		last := batches[limit-1]
		token := pagination.EncodeToken(last.BatchDate, last.CreatedAt)
		nextTokenVal = &token
		batches = batches[:limit]
	}
	return batches, nextTokenVal, nil
}

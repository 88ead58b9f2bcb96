package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portsrepo "github.com/finbooks/accounting_backend/internal/core/ports/repositories"
)

const planColumns = `plan_id, company_id, asset_id, method, useful_life_months, residual_value_pct, expense_account_id, accumulated_account_id, start_date, status, created_at, created_by, last_updated_at, last_updated_by`

type PgxDepreciationRepository struct {
	BaseRepository
}

// newPgxDepreciationRepository creates a new repository for fixed assets,
// depreciation plans and runs.
func newPgxDepreciationRepository(pool *pgxpool.Pool) portsrepo.DepreciationRepositoryWithTx {
	return &PgxDepreciationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxDepreciationRepository implements portsrepo.DepreciationRepositoryWithTx
var _ portsrepo.DepreciationRepositoryWithTx = (*PgxDepreciationRepository)(nil)

// SaveAsset persists a new fixed asset.
func (r *PgxDepreciationRepository) SaveAsset(ctx context.Context, asset domain.FixedAsset) error {
	query := `
		INSERT INTO fixed_assets (asset_id, company_id, name, cost, acquired_at, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.Pool.Exec(ctx, query,
		asset.AssetID,
		asset.CompanyID,
		asset.Name,
		asset.Cost,
		asset.AcquiredAt,
		asset.CreatedAt,
		asset.CreatedBy,
		asset.LastUpdatedAt,
		asset.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save asset %s: %w", asset.AssetID, err)
	}
	return nil
}

func scanAsset(row pgx.Row) (domain.FixedAsset, error) {
	var a domain.FixedAsset
	err := row.Scan(
		&a.AssetID,
		&a.CompanyID,
		&a.Name,
		&a.Cost,
		&a.AcquiredAt,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	return a, err
}

// FindAssetByID retrieves a fixed asset by its ID.
func (r *PgxDepreciationRepository) FindAssetByID(ctx context.Context, assetID string) (*domain.FixedAsset, error) {
	query := `
		SELECT asset_id, company_id, name, cost, acquired_at, created_at, created_by, last_updated_at, last_updated_by
		FROM fixed_assets
		WHERE asset_id = $1;
	`
	a, err := scanAsset(r.Pool.QueryRow(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find asset by ID %s: %w", assetID, err)
	}
	return &a, nil
}

// ListAssetsByCompany retrieves all fixed assets for a company.
func (r *PgxDepreciationRepository) ListAssetsByCompany(ctx context.Context, companyID string) ([]domain.FixedAsset, error) {
	query := `
		SELECT asset_id, company_id, name, cost, acquired_at, created_at, created_by, last_updated_at, last_updated_by
		FROM fixed_assets
		WHERE company_id = $1
		ORDER BY acquired_at, name;
	`
	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets for company %s: %w", companyID, err)
	}
	defer rows.Close()

	assets := []domain.FixedAsset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset row for company %s: %w", companyID, err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset rows for company %s: %w", companyID, err)
	}
	return assets, nil
}

func scanPlan(row pgx.Row) (domain.DepreciationPlan, error) {
	var p domain.DepreciationPlan
	err := row.Scan(
		&p.PlanID,
		&p.CompanyID,
		&p.AssetID,
		&p.Method,
		&p.UsefulLifeMonths,
		&p.ResidualValuePct,
		&p.ExpenseAccountID,
		&p.AccumulatedAccountID,
		&p.StartDate,
		&p.Status,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	return p, err
}

// SavePlan persists a new plan. The unique index on asset_id enforces one
// plan per asset and surfaces as apperrors.ErrDuplicate.
func (r *PgxDepreciationRepository) SavePlan(ctx context.Context, plan domain.DepreciationPlan) error {
	query := `
		INSERT INTO depreciation_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.Pool.Exec(ctx, query,
		plan.PlanID,
		plan.CompanyID,
		plan.AssetID,
		plan.Method,
		plan.UsefulLifeMonths,
		plan.ResidualValuePct,
		plan.ExpenseAccountID,
		plan.AccumulatedAccountID,
		plan.StartDate,
		plan.Status,
		plan.CreatedAt,
		plan.CreatedBy,
		plan.LastUpdatedAt,
		plan.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: plan for asset %s", apperrors.ErrDuplicate, plan.AssetID)
		}
		return fmt.Errorf("failed to save plan %s: %w", plan.PlanID, err)
	}
	return nil
}

// FindPlanByID retrieves a plan by its ID.
func (r *PgxDepreciationRepository) FindPlanByID(ctx context.Context, planID string) (*domain.DepreciationPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM depreciation_plans
		WHERE plan_id = $1;
	`
	p, err := scanPlan(r.Pool.QueryRow(ctx, query, planID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find plan by ID %s: %w", planID, err)
	}
	return &p, nil
}

// FindPlanByAssetID retrieves the plan for an asset, if one exists.
func (r *PgxDepreciationRepository) FindPlanByAssetID(ctx context.Context, assetID string) (*domain.DepreciationPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM depreciation_plans
		WHERE asset_id = $1;
	`
	p, err := scanPlan(r.Pool.QueryRow(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find plan by asset ID %s: %w", assetID, err)
	}
	return &p, nil
}

// UpdatePlan updates an editable plan's structural fields.
func (r *PgxDepreciationRepository) UpdatePlan(ctx context.Context, plan domain.DepreciationPlan) error {
	query := `
		UPDATE depreciation_plans
		SET method = $2, useful_life_months = $3, residual_value_pct = $4,
		    expense_account_id = $5, accumulated_account_id = $6, start_date = $7,
		    last_updated_at = $8, last_updated_by = $9
		WHERE plan_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		plan.PlanID,
		plan.Method,
		plan.UsefulLifeMonths,
		plan.ResidualValuePct,
		plan.ExpenseAccountID,
		plan.AccumulatedAccountID,
		plan.StartDate,
		plan.LastUpdatedAt,
		plan.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to execute update plan %s: %w", plan.PlanID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdatePlanStatusInTx advances the plan status inside the given transaction.
func (r *PgxDepreciationRepository) UpdatePlanStatusInTx(ctx context.Context, tx pgx.Tx, planID string, status domain.PlanStatus, userID string, now time.Time) error {
	query := `
		UPDATE depreciation_plans
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE plan_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, planID, status, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update status for plan %s: %w", planID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindRunByPlanAndPeriod retrieves the run posted for (plan, period), if any.
func (r *PgxDepreciationRepository) FindRunByPlanAndPeriod(ctx context.Context, planID string, period string) (*domain.DepreciationRun, error) {
	query := `
		SELECT run_id, plan_id, period, amount, batch_id, created_at, created_by
		FROM depreciation_runs
		WHERE plan_id = $1 AND period = $2;
	`
	var run domain.DepreciationRun
	err := r.Pool.QueryRow(ctx, query, planID, period).Scan(
		&run.RunID,
		&run.PlanID,
		&run.Period,
		&run.Amount,
		&run.BatchID,
		&run.CreatedAt,
		&run.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find run for plan %s period %s: %w", planID, period, err)
	}
	return &run, nil
}

// CountRuns returns how many runs have been posted for a plan.
func (r *PgxDepreciationRepository) CountRuns(ctx context.Context, planID string) (int, error) {
	var count int
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM depreciation_runs WHERE plan_id = $1;`, planID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs for plan %s: %w", planID, err)
	}
	return count, nil
}

// SumRunAmounts returns the cumulative depreciation posted for a plan.
func (r *PgxDepreciationRepository) SumRunAmounts(ctx context.Context, planID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM depreciation_runs WHERE plan_id = $1;`
	if err := r.Pool.QueryRow(ctx, query, planID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum run amounts for plan %s: %w", planID, err)
	}
	return sum, nil
}

// InsertRunInTx inserts the run row inside the given transaction. The unique
// (plan_id, period) index makes concurrent duplicates fail here as
// apperrors.ErrDuplicate.
func (r *PgxDepreciationRepository) InsertRunInTx(ctx context.Context, tx pgx.Tx, run domain.DepreciationRun) error {
	query := `
		INSERT INTO depreciation_runs (run_id, plan_id, period, amount, batch_id, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := tx.Exec(ctx, query,
		run.RunID,
		run.PlanID,
		run.Period,
		run.Amount,
		run.BatchID,
		run.CreatedAt,
		run.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: run for plan %s period %s", apperrors.ErrDuplicate, run.PlanID, run.Period)
		}
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}
	return nil
}

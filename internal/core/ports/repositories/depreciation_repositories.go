package repositories

import (
	"context"
	"time"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AssetReader defines read operations for fixed-asset data
type AssetReader interface {
	// FindAssetByID retrieves a fixed asset by its unique identifier.
	FindAssetByID(ctx context.Context, assetID string) (*domain.FixedAsset, error)

	// ListAssetsByCompany retrieves all fixed assets for a company.
	ListAssetsByCompany(ctx context.Context, companyID string) ([]domain.FixedAsset, error)
}

// AssetWriter defines write operations for fixed-asset data
type AssetWriter interface {
	// SaveAsset persists a new fixed asset.
	SaveAsset(ctx context.Context, asset domain.FixedAsset) error
}

// PlanReader defines read operations for depreciation plans
type PlanReader interface {
	// FindPlanByID retrieves a plan by its unique identifier.
	FindPlanByID(ctx context.Context, planID string) (*domain.DepreciationPlan, error)

	// FindPlanByAssetID retrieves the plan for an asset, if one exists.
	FindPlanByAssetID(ctx context.Context, assetID string) (*domain.DepreciationPlan, error)
}

// PlanWriter defines write operations for depreciation plans
type PlanWriter interface {
	// SavePlan persists a new plan.
	SavePlan(ctx context.Context, plan domain.DepreciationPlan) error

	// UpdatePlan updates an editable plan's structural fields.
	UpdatePlan(ctx context.Context, plan domain.DepreciationPlan) error

	// UpdatePlanStatusInTx advances the plan status inside the given transaction.
	UpdatePlanStatusInTx(ctx context.Context, tx pgx.Tx, planID string, status domain.PlanStatus, userID string, now time.Time) error
}

// RunReader defines read operations for depreciation runs
type RunReader interface {
	// FindRunByPlanAndPeriod retrieves the run posted for (plan, period), if any.
	FindRunByPlanAndPeriod(ctx context.Context, planID string, period string) (*domain.DepreciationRun, error)

	// CountRuns returns how many runs have been posted for a plan.
	CountRuns(ctx context.Context, planID string) (int, error)

	// SumRunAmounts returns the cumulative depreciation posted for a plan.
	SumRunAmounts(ctx context.Context, planID string) (decimal.Decimal, error)
}

// RunWriter defines write operations for depreciation runs
type RunWriter interface {
	// InsertRunInTx inserts the run row inside the given transaction. The
	// unique (plan_id, period) index makes concurrent duplicates fail here.
	InsertRunInTx(ctx context.Context, tx pgx.Tx, run domain.DepreciationRun) error
}

// DepreciationRepositoryFacade combines all depreciation-related repository interfaces
type DepreciationRepositoryFacade interface {
	AssetReader
	AssetWriter
	PlanReader
	PlanWriter
	RunReader
	RunWriter
}

// DepreciationRepositoryWithTx extends DepreciationRepositoryFacade with transaction capabilities
type DepreciationRepositoryWithTx interface {
	DepreciationRepositoryFacade
	TransactionManager
}

package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/finbooks/accounting_backend/internal/dto"
)

// RunOutcome is the result of a depreciation run. Duplicate is true when the
// period was already posted and the call performed no new writes.
type RunOutcome struct {
	Run       domain.DepreciationRun
	Duplicate bool
}

// DepreciationService owns fixed assets, depreciation plans and their runs.
type DepreciationService interface {
	// CreateAsset registers a fixed asset.
	CreateAsset(ctx context.Context, companyID string, req dto.CreateAssetRequest, userID string) (*domain.FixedAsset, error)

	// GetAsset retrieves an asset scoped to the company.
	GetAsset(ctx context.Context, companyID string, assetID string) (*domain.FixedAsset, error)

	// ListAssets retrieves all of a company's assets.
	ListAssets(ctx context.Context, companyID string) ([]domain.FixedAsset, error)

	// CreatePlan validates and persists a plan for an asset (one per asset).
	CreatePlan(ctx context.Context, companyID string, req dto.CreatePlanRequest, userID string) (*domain.DepreciationPlan, error)

	// GetPlan retrieves a plan scoped to the company.
	GetPlan(ctx context.Context, companyID string, planID string) (*domain.DepreciationPlan, error)

	// UpdatePlan updates a plan's structure; blocked once runs exist.
	UpdatePlan(ctx context.Context, companyID string, planID string, req dto.UpdatePlanRequest, userID string) (*domain.DepreciationPlan, error)

	// ActivatePlan explicitly advances a DRAFT plan to ACTIVE.
	ActivatePlan(ctx context.Context, companyID string, planID string, userID string) error

	// PreviewSchedule derives the full amortization schedule without posting.
	// The second return value is the amount already posted for the plan.
	PreviewSchedule(ctx context.Context, companyID string, planID string) ([]domain.SchedulePeriod, decimal.Decimal, error)

	// RunPlan posts one period's depreciation through the posting engine,
	// idempotent per (plan, period).
	RunPlan(ctx context.Context, companyID string, req dto.RunPlanRequest, userID string) (*RunOutcome, error)
}

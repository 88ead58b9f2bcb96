package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portsrepo "github.com/finbooks/accounting_backend/internal/core/ports/repositories"
	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/dto"
	"github.com/finbooks/accounting_backend/internal/middleware"
	"github.com/finbooks/accounting_backend/internal/utils/money"
)

var (
	ErrUnsupportedMethod   = errors.New("depreciation method is not supported")
	ErrPlanExists          = errors.New("asset already has a depreciation plan")
	ErrPlanFrozen          = errors.New("plan has posted runs and can no longer be edited")
	ErrScheduleComplete    = errors.New("depreciation schedule is fully posted")
	ErrPeriodOutOfSequence = errors.New("period is not the next due period for this plan")
	ErrPlanRefAmbiguous    = errors.New("exactly one of planID or assetID must be provided")
)

// periodFormat renders periods as "YYYY-MM".
const periodFormat = "2006-01"

type depreciationService struct {
	depRepo    portsrepo.DepreciationRepositoryWithTx
	accounts   portssvc.AccountReferenceChecker
	postingSvc portssvc.PostingService
}

// NewDepreciationService creates a new depreciation service.
func NewDepreciationService(
	depRepo portsrepo.DepreciationRepositoryWithTx,
	accounts portssvc.AccountReferenceChecker,
	postingSvc portssvc.PostingService,
) portssvc.DepreciationService {
	return &depreciationService{
		depRepo:    depRepo,
		accounts:   accounts,
		postingSvc: postingSvc,
	}
}

var _ portssvc.DepreciationService = (*depreciationService)(nil)

// CreateAsset registers a fixed asset. Implements portssvc.DepreciationService.
func (s *depreciationService) CreateAsset(ctx context.Context, companyID string, req dto.CreateAssetRequest, userID string) (*domain.FixedAsset, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.Cost.IsPositive() {
		return nil, fmt.Errorf("%w: asset cost must be positive", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	asset := domain.FixedAsset{
		AssetID:    uuid.NewString(),
		CompanyID:  companyID,
		Name:       req.Name,
		Cost:       money.RoundAmount(req.Cost),
		AcquiredAt: req.AcquiredAt,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.depRepo.SaveAsset(ctx, asset); err != nil {
		logger.Error("Failed to save asset", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, err
	}

	logger.Info("Asset created successfully", slog.String("asset_id", asset.AssetID), slog.String("company_id", companyID))
	return &asset, nil
}

// GetAsset retrieves an asset scoped to the company.
// Implements portssvc.DepreciationService.
func (s *depreciationService) GetAsset(ctx context.Context, companyID string, assetID string) (*domain.FixedAsset, error) {
	asset, err := s.depRepo.FindAssetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.CompanyID != companyID {
		// Obscure existence from other companies.
		return nil, apperrors.ErrNotFound
	}
	return asset, nil
}

// ListAssets retrieves all of a company's assets.
// Implements portssvc.DepreciationService.
func (s *depreciationService) ListAssets(ctx context.Context, companyID string) ([]domain.FixedAsset, error) {
	return s.depRepo.ListAssetsByCompany(ctx, companyID)
}

// validatePlanStructure checks the structural fields shared by create and
// update: method, useful life, residual percentage and posting accounts.
func (s *depreciationService) validatePlanStructure(ctx context.Context, companyID string, plan *domain.DepreciationPlan) error {
	if !domain.SupportedMethod(plan.Method) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, plan.Method)
	}
	if plan.UsefulLifeMonths <= 0 {
		return fmt.Errorf("%w: useful life must be a positive number of months", apperrors.ErrValidation)
	}
	if plan.ResidualValuePct.IsNegative() || plan.ResidualValuePct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: residual value percentage must be in [0, 100)", apperrors.ErrValidation)
	}
	if plan.ExpenseAccountID == plan.AccumulatedAccountID {
		return fmt.Errorf("%w: expense and accumulated accounts must differ", apperrors.ErrValidation)
	}
	accountIDs := []string{plan.ExpenseAccountID, plan.AccumulatedAccountID}
	accounts, err := s.accounts.GetAccountsByIDs(ctx, companyID, accountIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve posting accounts: %w", err)
	}
	for _, accountID := range accountIDs {
		account, ok := accounts[accountID]
		if !ok {
			return fmt.Errorf("%w: posting account %s", apperrors.ErrNotFound, accountID)
		}
		if !account.IsActive() {
			return fmt.Errorf("%w: posting account %s is inactive", apperrors.ErrValidation, accountID)
		}
	}
	return nil
}

// CreatePlan validates and persists a plan for an asset, at most one per asset.
// Implements portssvc.DepreciationService.
func (s *depreciationService) CreatePlan(ctx context.Context, companyID string, req dto.CreatePlanRequest, userID string) (*domain.DepreciationPlan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	asset, err := s.GetAsset(ctx, companyID, req.AssetID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.depRepo.FindPlanByAssetID(ctx, asset.AssetID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check for existing plan: %w", err)
		}
	} else if existing != nil {
		return nil, fmt.Errorf("%w: asset %s", ErrPlanExists, asset.AssetID)
	}

	now := time.Now().UTC()
	plan := domain.DepreciationPlan{
		PlanID:               uuid.NewString(),
		CompanyID:            companyID,
		AssetID:              asset.AssetID,
		Method:               req.Method,
		UsefulLifeMonths:     req.UsefulLifeMonths,
		ResidualValuePct:     req.ResidualValuePct,
		ExpenseAccountID:     req.ExpenseAccountID,
		AccumulatedAccountID: req.AccumulatedAccountID,
		StartDate:            req.StartDate,
		Status:               domain.PlanDraft,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.validatePlanStructure(ctx, companyID, &plan); err != nil {
		return nil, err
	}

	if err := s.depRepo.SavePlan(ctx, plan); err != nil {
		// The unique index on asset_id can still fire under concurrent creates.
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: asset %s", ErrPlanExists, asset.AssetID)
		}
		logger.Error("Failed to save plan", slog.String("error", err.Error()), slog.String("asset_id", asset.AssetID))
		return nil, err
	}

	logger.Info("Depreciation plan created", slog.String("plan_id", plan.PlanID), slog.String("asset_id", asset.AssetID))
	return &plan, nil
}

// GetPlan retrieves a plan scoped to the company.
// Implements portssvc.DepreciationService.
func (s *depreciationService) GetPlan(ctx context.Context, companyID string, planID string) (*domain.DepreciationPlan, error) {
	plan, err := s.depRepo.FindPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return plan, nil
}

// UpdatePlan updates a plan's structure. Once any run has been posted the plan
// is frozen and edits are rejected. Implements portssvc.DepreciationService.
func (s *depreciationService) UpdatePlan(ctx context.Context, companyID string, planID string, req dto.UpdatePlanRequest, userID string) (*domain.DepreciationPlan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	plan, err := s.GetPlan(ctx, companyID, planID)
	if err != nil {
		return nil, err
	}

	runCount, err := s.depRepo.CountRuns(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to count plan runs: %w", err)
	}
	if plan.Status != domain.PlanDraft || runCount > 0 {
		return nil, fmt.Errorf("%w: plan %s", ErrPlanFrozen, planID)
	}

	updated := *plan
	if req.Method != nil {
		updated.Method = *req.Method
	}
	if req.UsefulLifeMonths != nil {
		updated.UsefulLifeMonths = *req.UsefulLifeMonths
	}
	if req.ResidualValuePct != nil {
		updated.ResidualValuePct = *req.ResidualValuePct
	}
	if req.ExpenseAccountID != nil {
		updated.ExpenseAccountID = *req.ExpenseAccountID
	}
	if req.AccumulatedAccountID != nil {
		updated.AccumulatedAccountID = *req.AccumulatedAccountID
	}
	if req.StartDate != nil {
		updated.StartDate = *req.StartDate
	}

	if err := s.validatePlanStructure(ctx, companyID, &updated); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = userID

	if err := s.depRepo.UpdatePlan(ctx, updated); err != nil {
		logger.Error("Failed to update plan", slog.String("error", err.Error()), slog.String("plan_id", planID))
		return nil, err
	}

	return &updated, nil
}

// ActivatePlan explicitly advances a DRAFT plan to ACTIVE, freezing its
// structure ahead of the first run. Implements portssvc.DepreciationService.
func (s *depreciationService) ActivatePlan(ctx context.Context, companyID string, planID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	plan, err := s.GetPlan(ctx, companyID, planID)
	if err != nil {
		return err
	}
	if plan.Status == domain.PlanActive {
		return nil // already active, nothing to do
	}

	tx, err := s.depRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = s.depRepo.Rollback(ctx, tx) }()

	now := time.Now().UTC()
	if err := s.depRepo.UpdatePlanStatusInTx(ctx, tx, planID, domain.PlanActive, userID, now); err != nil {
		logger.Error("Failed to activate plan", slog.String("error", err.Error()), slog.String("plan_id", planID))
		return err
	}
	if err := s.depRepo.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Plan activated", slog.String("plan_id", planID))
	return nil
}

// periodAt returns the "YYYY-MM" period index months after the plan start.
func periodAt(start time.Time, index int) string {
	return start.AddDate(0, index, 0).Format(periodFormat)
}

// buildSchedule derives the full straight-line schedule for a plan. The
// monthly amount is the depreciable base divided by the useful life, rounded
// to cents; each period is clipped to the remaining base so cumulative never
// exceeds it, and the final period absorbs any rounding remainder so the
// schedule total equals the base exactly.
func buildSchedule(plan *domain.DepreciationPlan, cost decimal.Decimal) []domain.SchedulePeriod {
	hundred := decimal.NewFromInt(100)
	residual := money.RoundAmount(cost.Mul(plan.ResidualValuePct).Div(hundred))
	base := cost.Sub(residual)
	months := plan.UsefulLifeMonths

	monthly := money.RoundAmount(base.Div(decimal.NewFromInt(int64(months))))

	periods := make([]domain.SchedulePeriod, months)
	cumulative := decimal.Zero
	for i := 0; i < months; i++ {
		remaining := base.Sub(cumulative)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		amount := monthly
		if i == months-1 || monthly.GreaterThan(remaining) {
			amount = remaining
		}
		cumulative = cumulative.Add(amount)
		periods[i] = domain.SchedulePeriod{
			Period:     periodAt(plan.StartDate, i),
			Amount:     amount,
			Cumulative: cumulative,
		}
	}
	return periods
}

// PreviewSchedule derives the full amortization schedule without posting and
// reports how much has been posted so far. Implements portssvc.DepreciationService.
func (s *depreciationService) PreviewSchedule(ctx context.Context, companyID string, planID string) ([]domain.SchedulePeriod, decimal.Decimal, error) {
	plan, err := s.GetPlan(ctx, companyID, planID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	asset, err := s.depRepo.FindAssetByID(ctx, plan.AssetID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to resolve plan asset: %w", err)
	}
	posted, err := s.depRepo.SumRunAmounts(ctx, planID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to sum posted runs: %w", err)
	}
	return buildSchedule(plan, asset.Cost), posted, nil
}

// resolvePlan loads the plan from either a plan ID or an asset ID.
func (s *depreciationService) resolvePlan(ctx context.Context, companyID string, req dto.RunPlanRequest) (*domain.DepreciationPlan, error) {
	switch {
	case req.PlanID != "" && req.AssetID != "":
		return nil, fmt.Errorf("%w", ErrPlanRefAmbiguous)
	case req.PlanID != "":
		return s.GetPlan(ctx, companyID, req.PlanID)
	case req.AssetID != "":
		plan, err := s.depRepo.FindPlanByAssetID(ctx, req.AssetID)
		if err != nil {
			return nil, err
		}
		if plan.CompanyID != companyID {
			return nil, apperrors.ErrNotFound
		}
		return plan, nil
	default:
		return nil, fmt.Errorf("%w", ErrPlanRefAmbiguous)
	}
}

// RunPlan posts one period's depreciation through the posting engine. Runs are
// idempotent per (plan, period): a period that was already posted is reported
// back with Duplicate set, without writing anything. Periods must be posted in
// schedule order. Implements portssvc.DepreciationService.
func (s *depreciationService) RunPlan(ctx context.Context, companyID string, req dto.RunPlanRequest, userID string) (*portssvc.RunOutcome, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	plan, err := s.resolvePlan(ctx, companyID, req)
	if err != nil {
		return nil, err
	}

	asset, err := s.depRepo.FindAssetByID(ctx, plan.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan asset: %w", err)
	}

	runCount, err := s.depRepo.CountRuns(ctx, plan.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to count plan runs: %w", err)
	}

	period := req.Period
	if period == "" {
		if runCount >= plan.UsefulLifeMonths {
			return nil, fmt.Errorf("%w: plan %s", ErrScheduleComplete, plan.PlanID)
		}
		period = periodAt(plan.StartDate, runCount)
	}

	// An already-posted period is a no-op regardless of where the plan is in
	// its schedule.
	if existing, err := s.depRepo.FindRunByPlanAndPeriod(ctx, plan.PlanID, period); err == nil {
		return &portssvc.RunOutcome{Run: *existing, Duplicate: true}, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing run: %w", err)
	}

	if runCount >= plan.UsefulLifeMonths {
		return nil, fmt.Errorf("%w: plan %s", ErrScheduleComplete, plan.PlanID)
	}
	nextDue := periodAt(plan.StartDate, runCount)
	if period != nextDue {
		return nil, fmt.Errorf("%w: requested %s, next due %s", ErrPeriodOutOfSequence, period, nextDue)
	}

	schedule := buildSchedule(plan, asset.Cost)
	amount := schedule[runCount].Amount
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: derived amount for period %s is not positive", apperrors.ErrValidation, period)
	}

	periodDate, err := time.Parse(periodFormat, period)
	if err != nil {
		return nil, fmt.Errorf("%w: period must be formatted YYYY-MM", apperrors.ErrValidation)
	}

	tx, err := s.depRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = s.depRepo.Rollback(ctx, tx) }()

	postReq := dto.PostingRequest{
		CompanyID:   companyID,
		UserID:      userID,
		DocType:     domain.DocTypeDepreciation,
		DocRef:      fmt.Sprintf("DEP-%s-%s", plan.PlanID, period),
		Date:        periodDate,
		Description: fmt.Sprintf("Depreciation %s for %s", period, asset.Name),
		Depreciation: &dto.DepreciationPayload{
			ExpenseAccountID:     plan.ExpenseAccountID,
			AccumulatedAccountID: plan.AccumulatedAccountID,
			Amount:               amount,
		},
	}

	result, err := s.postingSvc.Post(ctx, postReq, tx)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.concurrentDuplicate(ctx, plan.PlanID, period)
		}
		logger.Error("Failed to post depreciation batch", slog.String("error", err.Error()), slog.String("plan_id", plan.PlanID))
		return nil, err
	}

	now := time.Now().UTC()
	run := domain.DepreciationRun{
		RunID:     uuid.NewString(),
		PlanID:    plan.PlanID,
		Period:    period,
		Amount:    amount,
		BatchID:   result.Batch.BatchID,
		CreatedAt: now,
		CreatedBy: userID,
	}
	if err := s.depRepo.InsertRunInTx(ctx, tx, run); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.concurrentDuplicate(ctx, plan.PlanID, period)
		}
		logger.Error("Failed to insert depreciation run", slog.String("error", err.Error()), slog.String("plan_id", plan.PlanID))
		return nil, err
	}

	if plan.Status == domain.PlanDraft {
		if err := s.depRepo.UpdatePlanStatusInTx(ctx, tx, plan.PlanID, domain.PlanActive, userID, now); err != nil {
			return nil, fmt.Errorf("failed to activate plan: %w", err)
		}
	}

	if err := s.depRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Depreciation run posted",
		slog.String("plan_id", plan.PlanID),
		slog.String("period", period),
		slog.String("batch_id", run.BatchID))
	return &portssvc.RunOutcome{Run: run, Duplicate: false}, nil
}

// concurrentDuplicate resolves the run that won a concurrent race for the same
// period. The caller's transaction is rolled back by its deferred cleanup; the
// lookup here runs outside it.
func (s *depreciationService) concurrentDuplicate(ctx context.Context, planID string, period string) (*portssvc.RunOutcome, error) {
	existing, err := s.depRepo.FindRunByPlanAndPeriod(ctx, planID, period)
	if err != nil {
		return nil, fmt.Errorf("%w: period %s for plan %s was posted concurrently", apperrors.ErrConflict, period, planID)
	}
	return &portssvc.RunOutcome{Run: *existing, Duplicate: true}, nil
}

package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portsrepo "github.com/finbooks/accounting_backend/internal/core/ports/repositories"
	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/core/services"
	"github.com/finbooks/accounting_backend/internal/dto"
)

// --- Mock DepreciationRepository ---
type MockDepreciationRepository struct {
	mock.Mock
}

// Ensure MockDepreciationRepository implements portsrepo.DepreciationRepositoryWithTx
var _ portsrepo.DepreciationRepositoryWithTx = (*MockDepreciationRepository)(nil)

func (m *MockDepreciationRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockDepreciationRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockDepreciationRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockDepreciationRepository) SaveAsset(ctx context.Context, asset domain.FixedAsset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockDepreciationRepository) FindAssetByID(ctx context.Context, assetID string) (*domain.FixedAsset, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FixedAsset), args.Error(1)
}

func (m *MockDepreciationRepository) ListAssetsByCompany(ctx context.Context, companyID string) ([]domain.FixedAsset, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FixedAsset), args.Error(1)
}

func (m *MockDepreciationRepository) SavePlan(ctx context.Context, plan domain.DepreciationPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockDepreciationRepository) UpdatePlan(ctx context.Context, plan domain.DepreciationPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockDepreciationRepository) UpdatePlanStatusInTx(ctx context.Context, tx pgx.Tx, planID string, status domain.PlanStatus, userID string, now time.Time) error {
	args := m.Called(ctx, tx, planID, status, userID, now)
	return args.Error(0)
}

func (m *MockDepreciationRepository) FindPlanByID(ctx context.Context, planID string) (*domain.DepreciationPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepreciationPlan), args.Error(1)
}

func (m *MockDepreciationRepository) FindPlanByAssetID(ctx context.Context, assetID string) (*domain.DepreciationPlan, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepreciationPlan), args.Error(1)
}

func (m *MockDepreciationRepository) FindRunByPlanAndPeriod(ctx context.Context, planID string, period string) (*domain.DepreciationRun, error) {
	args := m.Called(ctx, planID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepreciationRun), args.Error(1)
}

func (m *MockDepreciationRepository) CountRuns(ctx context.Context, planID string) (int, error) {
	args := m.Called(ctx, planID)
	return args.Int(0), args.Error(1)
}

func (m *MockDepreciationRepository) SumRunAmounts(ctx context.Context, planID string) (decimal.Decimal, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDepreciationRepository) InsertRunInTx(ctx context.Context, tx pgx.Tx, run domain.DepreciationRun) error {
	args := m.Called(ctx, tx, run)
	return args.Error(0)
}

// --- Mock AccountReferenceChecker ---
type MockAccountChecker struct {
	mock.Mock
}

var _ portssvc.AccountReferenceChecker = (*MockAccountChecker)(nil)

func (m *MockAccountChecker) GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, companyID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountChecker) GetAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, companyID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

// --- Mock PostingService ---
type MockPostingService struct {
	mock.Mock
}

var _ portssvc.PostingService = (*MockPostingService)(nil)

func (m *MockPostingService) Post(ctx context.Context, req dto.PostingRequest, tx pgx.Tx) (*portssvc.PostingResult, error) {
	args := m.Called(ctx, req, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.PostingResult), args.Error(1)
}

func (m *MockPostingService) GetBatch(ctx context.Context, companyID string, batchID string) (*domain.JournalBatch, []domain.JournalLine, error) {
	args := m.Called(ctx, companyID, batchID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.JournalBatch), args.Get(1).([]domain.JournalLine), args.Error(2)
}

func (m *MockPostingService) ListBatches(ctx context.Context, companyID string, params dto.ListBatchesParams) ([]domain.JournalBatch, *string, error) {
	args := m.Called(ctx, companyID, params)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return args.Get(0).([]domain.JournalBatch), token, args.Error(2)
}

// --- Test Suite Setup ---

type DepreciationServiceTestSuite struct {
	suite.Suite
	mockRepo    *MockDepreciationRepository
	mockAccs    *MockAccountChecker
	mockPosting *MockPostingService
	service     portssvc.DepreciationService
	companyID   string
	userID      string
}

func (suite *DepreciationServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockDepreciationRepository)
	suite.mockAccs = new(MockAccountChecker)
	suite.mockPosting = new(MockPostingService)
	suite.service = services.NewDepreciationService(suite.mockRepo, suite.mockAccs, suite.mockPosting)
	suite.companyID = "comp-1"
	suite.userID = "user-1"
}

func (suite *DepreciationServiceTestSuite) activeAccount(accountID string) *domain.Account {
	return &domain.Account{
		AccountID: accountID,
		CompanyID: suite.companyID,
		Status:    domain.AccountActive,
	}
}

func (suite *DepreciationServiceTestSuite) asset(cost string) *domain.FixedAsset {
	return &domain.FixedAsset{
		AssetID:    "asset-1",
		CompanyID:  suite.companyID,
		Name:       "Delivery van",
		Cost:       dec(cost),
		AcquiredAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *DepreciationServiceTestSuite) plan(lifeMonths int, residualPct string, status domain.PlanStatus) *domain.DepreciationPlan {
	return &domain.DepreciationPlan{
		PlanID:               "plan-1",
		CompanyID:            suite.companyID,
		AssetID:              "asset-1",
		Method:               domain.StraightLine,
		UsefulLifeMonths:     lifeMonths,
		ResidualValuePct:     dec(residualPct),
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:               status,
	}
}

// --- Asset Tests ---

func (suite *DepreciationServiceTestSuite) TestCreateAsset_Success() {
	ctx := context.Background()
	req := dto.CreateAssetRequest{
		Name:       "Delivery van",
		Cost:       dec("24000.00"),
		AcquiredAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRepo.On("SaveAsset", ctx, mock.AnythingOfType("domain.FixedAsset")).Return(nil).Once()

	asset, err := suite.service.CreateAsset(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(asset)
	suite.NotEmpty(asset.AssetID)
	suite.Equal(suite.companyID, asset.CompanyID)
	suite.True(asset.Cost.Equal(dec("24000.00")))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *DepreciationServiceTestSuite) TestCreateAsset_NonPositiveCostRejected() {
	ctx := context.Background()
	req := dto.CreateAssetRequest{Name: "Broken", Cost: decimal.Zero}

	asset, err := suite.service.CreateAsset(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.Nil(asset)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAsset", mock.Anything, mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestGetAsset_OtherCompanyHidden() {
	ctx := context.Background()
	foreign := suite.asset("1000.00")
	foreign.CompanyID = "comp-other"

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(foreign, nil).Once()

	asset, err := suite.service.GetAsset(ctx, suite.companyID, "asset-1")

	suite.Require().Error(err)
	suite.Nil(asset)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- Plan Tests ---

func (suite *DepreciationServiceTestSuite) expectAccountChecks(ctx context.Context) {
	suite.mockAccs.On("GetAccountsByIDs", ctx, suite.companyID, []string{"acc-exp", "acc-accum"}).Return(map[string]domain.Account{
		"acc-exp":   *suite.activeAccount("acc-exp"),
		"acc-accum": *suite.activeAccount("acc-accum"),
	}, nil)
}

func (suite *DepreciationServiceTestSuite) TestCreatePlan_Success() {
	ctx := context.Background()
	req := dto.CreatePlanRequest{
		AssetID:              "asset-1",
		Method:               domain.StraightLine,
		UsefulLifeMonths:     36,
		ResidualValuePct:     dec("10"),
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("24000.00"), nil).Once()
	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(nil, apperrors.ErrNotFound).Once()
	suite.expectAccountChecks(ctx)
	suite.mockRepo.On("SavePlan", ctx, mock.AnythingOfType("domain.DepreciationPlan")).Return(nil).Once()

	plan, err := suite.service.CreatePlan(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(plan)
	suite.Equal(domain.PlanDraft, plan.Status)
	suite.Equal("asset-1", plan.AssetID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *DepreciationServiceTestSuite) TestCreatePlan_AssetAlreadyPlanned() {
	ctx := context.Background()
	req := dto.CreatePlanRequest{
		AssetID:              "asset-1",
		Method:               domain.StraightLine,
		UsefulLifeMonths:     36,
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("24000.00"), nil).Once()
	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(suite.plan(36, "0", domain.PlanDraft), nil).Once()

	plan, err := suite.service.CreatePlan(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, services.ErrPlanExists)
	suite.mockRepo.AssertNotCalled(suite.T(), "SavePlan", mock.Anything, mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestCreatePlan_UnsupportedMethod() {
	ctx := context.Background()
	req := dto.CreatePlanRequest{
		AssetID:              "asset-1",
		Method:               domain.DepreciationMethod("DOUBLE_DECLINING"),
		UsefulLifeMonths:     36,
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("24000.00"), nil).Once()
	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(nil, apperrors.ErrNotFound).Once()

	plan, err := suite.service.CreatePlan(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, services.ErrUnsupportedMethod)
}

func (suite *DepreciationServiceTestSuite) TestCreatePlan_SamePostingAccountsRejected() {
	ctx := context.Background()
	req := dto.CreatePlanRequest{
		AssetID:              "asset-1",
		Method:               domain.StraightLine,
		UsefulLifeMonths:     36,
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-exp",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("24000.00"), nil).Once()
	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(nil, apperrors.ErrNotFound).Once()

	plan, err := suite.service.CreatePlan(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *DepreciationServiceTestSuite) TestCreatePlan_InactivePostingAccountRejected() {
	ctx := context.Background()
	req := dto.CreatePlanRequest{
		AssetID:              "asset-1",
		Method:               domain.StraightLine,
		UsefulLifeMonths:     36,
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	inactive := suite.activeAccount("acc-exp")
	inactive.Status = domain.AccountInactive

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("24000.00"), nil).Once()
	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccs.On("GetAccountsByIDs", ctx, suite.companyID, []string{"acc-exp", "acc-accum"}).Return(map[string]domain.Account{
		"acc-exp":   *inactive,
		"acc-accum": *suite.activeAccount("acc-accum"),
	}, nil).Once()

	plan, err := suite.service.CreatePlan(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *DepreciationServiceTestSuite) TestCreatePlan_UnknownPostingAccountRejected() {
	ctx := context.Background()
	req := dto.CreatePlanRequest{
		AssetID:              "asset-1",
		Method:               domain.StraightLine,
		UsefulLifeMonths:     36,
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		StartDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("24000.00"), nil).Once()
	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(nil, apperrors.ErrNotFound).Once()
	// The accumulated account resolves to another tenant, so the batch lookup
	// omits it.
	suite.mockAccs.On("GetAccountsByIDs", ctx, suite.companyID, []string{"acc-exp", "acc-accum"}).Return(map[string]domain.Account{
		"acc-exp": *suite.activeAccount("acc-exp"),
	}, nil).Once()

	plan, err := suite.service.CreatePlan(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockRepo.AssertNotCalled(suite.T(), "SavePlan", mock.Anything, mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestUpdatePlan_FrozenAfterRuns() {
	ctx := context.Background()
	plan := suite.plan(36, "10", domain.PlanActive)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(3, nil).Once()

	newLife := 48
	updated, err := suite.service.UpdatePlan(ctx, suite.companyID, "plan-1", dto.UpdatePlanRequest{UsefulLifeMonths: &newLife}, suite.userID)

	suite.Require().Error(err)
	suite.Nil(updated)
	suite.ErrorIs(err, services.ErrPlanFrozen)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdatePlan", mock.Anything, mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestActivatePlan_AlreadyActiveIsNoOp() {
	ctx := context.Background()
	plan := suite.plan(36, "10", domain.PlanActive)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()

	err := suite.service.ActivatePlan(ctx, suite.companyID, "plan-1", suite.userID)

	suite.Require().NoError(err)
	suite.mockRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

// --- Schedule Tests ---

func (suite *DepreciationServiceTestSuite) TestPreviewSchedule_EvenDivision() {
	ctx := context.Background()
	plan := suite.plan(12, "0", domain.PlanDraft)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("SumRunAmounts", ctx, "plan-1").Return(dec("300.00"), nil).Once()

	schedule, posted, err := suite.service.PreviewSchedule(ctx, suite.companyID, "plan-1")

	suite.Require().NoError(err)
	suite.Require().Len(schedule, 12)
	suite.Equal("2025-02", schedule[0].Period)
	suite.Equal("2026-01", schedule[11].Period)
	for _, p := range schedule {
		suite.True(p.Amount.Equal(dec("100.00")), "period %s amount %s", p.Period, p.Amount)
	}
	suite.True(schedule[11].Cumulative.Equal(dec("1200.00")))
	suite.True(posted.Equal(dec("300.00")))
}

func (suite *DepreciationServiceTestSuite) TestPreviewSchedule_FinalPeriodAbsorbsRemainder() {
	ctx := context.Background()
	plan := suite.plan(12, "0", domain.PlanDraft)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1000.00"), nil).Once()
	suite.mockRepo.On("SumRunAmounts", ctx, "plan-1").Return(decimal.Zero, nil).Once()

	schedule, _, err := suite.service.PreviewSchedule(ctx, suite.companyID, "plan-1")

	suite.Require().NoError(err)
	suite.Require().Len(schedule, 12)
	suite.True(schedule[0].Amount.Equal(dec("83.33")))
	suite.True(schedule[11].Amount.Equal(dec("83.37")))
	suite.True(schedule[11].Cumulative.Equal(dec("1000.00")))
}

func (suite *DepreciationServiceTestSuite) TestPreviewSchedule_ResidualReducesBase() {
	ctx := context.Background()
	plan := suite.plan(12, "10", domain.PlanDraft)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1000.00"), nil).Once()
	suite.mockRepo.On("SumRunAmounts", ctx, "plan-1").Return(decimal.Zero, nil).Once()

	schedule, _, err := suite.service.PreviewSchedule(ctx, suite.companyID, "plan-1")

	suite.Require().NoError(err)
	suite.Require().Len(schedule, 12)
	// 10% residual on 1000.00 leaves a 900.00 base.
	suite.True(schedule[0].Amount.Equal(dec("75.00")))
	suite.True(schedule[11].Cumulative.Equal(dec("900.00")))
}

func (suite *DepreciationServiceTestSuite) TestPreviewSchedule_CumulativeNeverExceedsBase() {
	ctx := context.Background()
	// Rounding 0.50/100 up to a whole cent would exhaust the base halfway
	// through the schedule; later periods must clip to the remainder instead
	// of overshooting.
	plan := suite.plan(100, "0", domain.PlanDraft)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("0.50"), nil).Once()
	suite.mockRepo.On("SumRunAmounts", ctx, "plan-1").Return(decimal.Zero, nil).Once()

	schedule, _, err := suite.service.PreviewSchedule(ctx, suite.companyID, "plan-1")

	suite.Require().NoError(err)
	suite.Require().Len(schedule, 100)
	base := dec("0.50")
	for _, p := range schedule {
		suite.False(p.Amount.IsNegative(), "period %s amount %s is negative", p.Period, p.Amount)
		suite.True(p.Cumulative.LessThanOrEqual(base), "period %s cumulative %s exceeds base", p.Period, p.Cumulative)
	}
	suite.True(schedule[49].Cumulative.Equal(base))
	suite.True(schedule[50].Amount.IsZero())
	suite.True(schedule[99].Cumulative.Equal(base))
}

// --- Run Tests ---

func (suite *DepreciationServiceTestSuite) TestRunPlan_FirstRunActivatesDraftPlan() {
	ctx := context.Background()
	tx := stubTx{}
	plan := suite.plan(12, "0", domain.PlanDraft)
	postingResult := &portssvc.PostingResult{
		Batch: domain.JournalBatch{BatchID: "batch-9", CompanyID: suite.companyID, DocType: domain.DocTypeDepreciation},
	}

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(0, nil).Once()
	suite.mockRepo.On("FindRunByPlanAndPeriod", ctx, "plan-1", "2025-02").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("Begin", ctx).Return(tx, nil).Once()
	suite.mockPosting.On("Post", ctx, mock.AnythingOfType("dto.PostingRequest"), tx).Return(postingResult, nil).Once()
	suite.mockRepo.On("InsertRunInTx", ctx, tx, mock.AnythingOfType("domain.DepreciationRun")).Return(nil).Once()
	suite.mockRepo.On("UpdatePlanStatusInTx", ctx, tx, "plan-1", domain.PlanActive, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockRepo.On("Commit", ctx, tx).Return(nil).Once()
	suite.mockRepo.On("Rollback", ctx, tx).Return(nil).Maybe()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{PlanID: "plan-1"}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(outcome)
	suite.False(outcome.Duplicate)
	suite.Equal("2025-02", outcome.Run.Period)
	suite.True(outcome.Run.Amount.Equal(dec("100.00")))
	suite.Equal("batch-9", outcome.Run.BatchID)

	postCall := suite.mockPosting.Calls[0].Arguments.Get(1).(dto.PostingRequest)
	suite.Equal("DEP-plan-1-2025-02", postCall.DocRef)
	suite.Require().NotNil(postCall.Depreciation)
	suite.True(postCall.Depreciation.Amount.Equal(dec("100.00")))

	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockPosting.AssertExpectations(suite.T())
}

func (suite *DepreciationServiceTestSuite) TestRunPlan_DuplicatePeriodIsIdempotent() {
	ctx := context.Background()
	plan := suite.plan(12, "0", domain.PlanActive)
	existing := &domain.DepreciationRun{
		RunID:   "run-1",
		PlanID:  "plan-1",
		Period:  "2025-02",
		Amount:  dec("100.00"),
		BatchID: "batch-9",
	}

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(1, nil).Once()
	suite.mockRepo.On("FindRunByPlanAndPeriod", ctx, "plan-1", "2025-02").Return(existing, nil).Once()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{PlanID: "plan-1", Period: "2025-02"}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(outcome)
	suite.True(outcome.Duplicate)
	suite.Equal("run-1", outcome.Run.RunID)
	// No writes for an already-posted period.
	suite.mockRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
	suite.mockPosting.AssertNotCalled(suite.T(), "Post", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestRunPlan_OutOfSequencePeriodRejected() {
	ctx := context.Background()
	plan := suite.plan(12, "0", domain.PlanActive)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(1, nil).Once()
	suite.mockRepo.On("FindRunByPlanAndPeriod", ctx, "plan-1", "2025-06").Return(nil, apperrors.ErrNotFound).Once()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{PlanID: "plan-1", Period: "2025-06"}, suite.userID)

	suite.Require().Error(err)
	suite.Nil(outcome)
	suite.ErrorIs(err, services.ErrPeriodOutOfSequence)
	suite.mockRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestRunPlan_CompletedScheduleRejected() {
	ctx := context.Background()
	plan := suite.plan(12, "0", domain.PlanActive)

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(12, nil).Once()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{PlanID: "plan-1"}, suite.userID)

	suite.Require().Error(err)
	suite.Nil(outcome)
	suite.ErrorIs(err, services.ErrScheduleComplete)
}

func (suite *DepreciationServiceTestSuite) TestRunPlan_ConcurrentDuplicateResolved() {
	ctx := context.Background()
	tx := stubTx{}
	plan := suite.plan(12, "0", domain.PlanActive)
	winner := &domain.DepreciationRun{
		RunID:   "run-other",
		PlanID:  "plan-1",
		Period:  "2025-02",
		Amount:  dec("100.00"),
		BatchID: "batch-other",
	}
	postingResult := &portssvc.PostingResult{
		Batch: domain.JournalBatch{BatchID: "batch-9", CompanyID: suite.companyID},
	}

	suite.mockRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(0, nil).Once()
	// Pre-check misses, then another request wins the insert race.
	suite.mockRepo.On("FindRunByPlanAndPeriod", ctx, "plan-1", "2025-02").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("Begin", ctx).Return(tx, nil).Once()
	suite.mockPosting.On("Post", ctx, mock.AnythingOfType("dto.PostingRequest"), tx).Return(postingResult, nil).Once()
	suite.mockRepo.On("InsertRunInTx", ctx, tx, mock.AnythingOfType("domain.DepreciationRun")).Return(apperrors.ErrDuplicate).Once()
	suite.mockRepo.On("Rollback", ctx, tx).Return(nil).Once()
	suite.mockRepo.On("FindRunByPlanAndPeriod", ctx, "plan-1", "2025-02").Return(winner, nil).Once()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{PlanID: "plan-1"}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(outcome)
	suite.True(outcome.Duplicate)
	suite.Equal("run-other", outcome.Run.RunID)
	suite.mockRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *DepreciationServiceTestSuite) TestRunPlan_AmbiguousPlanReference() {
	ctx := context.Background()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{PlanID: "plan-1", AssetID: "asset-1"}, suite.userID)

	suite.Require().Error(err)
	suite.Nil(outcome)
	suite.ErrorIs(err, services.ErrPlanRefAmbiguous)
}

func (suite *DepreciationServiceTestSuite) TestRunPlan_ResolvesByAssetID() {
	ctx := context.Background()
	plan := suite.plan(12, "0", domain.PlanActive)
	existing := &domain.DepreciationRun{RunID: "run-1", PlanID: "plan-1", Period: "2025-02", Amount: dec("100.00")}

	suite.mockRepo.On("FindPlanByAssetID", ctx, "asset-1").Return(plan, nil).Once()
	suite.mockRepo.On("FindAssetByID", ctx, "asset-1").Return(suite.asset("1200.00"), nil).Once()
	suite.mockRepo.On("CountRuns", ctx, "plan-1").Return(1, nil).Once()
	suite.mockRepo.On("FindRunByPlanAndPeriod", ctx, "plan-1", "2025-02").Return(existing, nil).Once()

	outcome, err := suite.service.RunPlan(ctx, suite.companyID, dto.RunPlanRequest{AssetID: "asset-1", Period: "2025-02"}, suite.userID)

	suite.Require().NoError(err)
	suite.True(outcome.Duplicate)
}

func TestDepreciationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DepreciationServiceTestSuite))
}

package dto

import (
	"time"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAssetRequest registers a fixed asset for a company.
type CreateAssetRequest struct {
	Name       string          `json:"name" binding:"required"`
	Cost       decimal.Decimal `json:"cost" binding:"required"`
	AcquiredAt time.Time       `json:"acquiredAt" binding:"required"`
}

// AssetResponse is a registered fixed asset.
type AssetResponse struct {
	AssetID    string          `json:"assetID"`
	CompanyID  string          `json:"companyID"`
	Name       string          `json:"name"`
	Cost       decimal.Decimal `json:"cost"`
	AcquiredAt time.Time       `json:"acquiredAt"`
	CreatedAt  time.Time       `json:"createdAt"`
	CreatedBy  string          `json:"createdBy"`
}

// ToAssetResponse converts a domain.FixedAsset to a DTO.
func ToAssetResponse(a *domain.FixedAsset) AssetResponse {
	return AssetResponse{
		AssetID:    a.AssetID,
		CompanyID:  a.CompanyID,
		Name:       a.Name,
		Cost:       a.Cost,
		AcquiredAt: a.AcquiredAt,
		CreatedAt:  a.CreatedAt,
		CreatedBy:  a.CreatedBy,
	}
}

// CreatePlanRequest defines the data needed to create a depreciation plan.
type CreatePlanRequest struct {
	AssetID              string                    `json:"assetID" binding:"required"`
	Method               domain.DepreciationMethod `json:"method" binding:"required"`
	UsefulLifeMonths     int                       `json:"usefulLifeMonths" binding:"required"`
	ResidualValuePct     decimal.Decimal           `json:"residualValuePct"`
	ExpenseAccountID     string                    `json:"expenseAccountID" binding:"required"`
	AccumulatedAccountID string                    `json:"accumulatedAccountID" binding:"required"`
	StartDate            time.Time                 `json:"startDate" binding:"required"`
}

// UpdatePlanRequest updates an editable plan. Pointers distinguish omitted
// fields from zero values.
type UpdatePlanRequest struct {
	Method               *domain.DepreciationMethod `json:"method"`
	UsefulLifeMonths     *int                       `json:"usefulLifeMonths"`
	ResidualValuePct     *decimal.Decimal           `json:"residualValuePct"`
	ExpenseAccountID     *string                    `json:"expenseAccountID"`
	AccumulatedAccountID *string                    `json:"accumulatedAccountID"`
	StartDate            *time.Time                 `json:"startDate"`
}

// PlanResponse is a depreciation plan.
type PlanResponse struct {
	PlanID               string                    `json:"planID"`
	CompanyID            string                    `json:"companyID"`
	AssetID              string                    `json:"assetID"`
	Method               domain.DepreciationMethod `json:"method"`
	UsefulLifeMonths     int                       `json:"usefulLifeMonths"`
	ResidualValuePct     decimal.Decimal           `json:"residualValuePct"`
	ExpenseAccountID     string                    `json:"expenseAccountID"`
	AccumulatedAccountID string                    `json:"accumulatedAccountID"`
	StartDate            time.Time                 `json:"startDate"`
	Status               domain.PlanStatus         `json:"status"`
	CreatedAt            time.Time                 `json:"createdAt"`
	CreatedBy            string                    `json:"createdBy"`
}

// ToPlanResponse converts a domain.DepreciationPlan to a DTO.
func ToPlanResponse(p *domain.DepreciationPlan) PlanResponse {
	return PlanResponse{
		PlanID:               p.PlanID,
		CompanyID:            p.CompanyID,
		AssetID:              p.AssetID,
		Method:               p.Method,
		UsefulLifeMonths:     p.UsefulLifeMonths,
		ResidualValuePct:     p.ResidualValuePct,
		ExpenseAccountID:     p.ExpenseAccountID,
		AccumulatedAccountID: p.AccumulatedAccountID,
		StartDate:            p.StartDate,
		Status:               p.Status,
		CreatedAt:            p.CreatedAt,
		CreatedBy:            p.CreatedBy,
	}
}

// RunPlanRequest triggers one depreciation run. The plan is resolved by plan
// ID or asset ID; when Period is empty the next due period is used.
type RunPlanRequest struct {
	PlanID  string `json:"planID"`
	AssetID string `json:"assetID"`
	Period  string `json:"period" binding:"omitempty,period"`
}

// RunResponse is the outcome of a depreciation run. Duplicate is true when
// the period had already been posted and no new writes were performed.
type RunResponse struct {
	RunID     string          `json:"runID"`
	PlanID    string          `json:"planID"`
	Period    string          `json:"period"`
	Amount    decimal.Decimal `json:"amount"`
	BatchID   string          `json:"batchID"`
	Duplicate bool            `json:"duplicate"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ToRunResponse converts a domain.DepreciationRun to a DTO.
func ToRunResponse(r *domain.DepreciationRun, duplicate bool) RunResponse {
	return RunResponse{
		RunID:     r.RunID,
		PlanID:    r.PlanID,
		Period:    r.Period,
		Amount:    r.Amount,
		BatchID:   r.BatchID,
		Duplicate: duplicate,
		CreatedAt: r.CreatedAt,
	}
}

// SchedulePeriodResponse is one derived schedule entry.
type SchedulePeriodResponse struct {
	Period     string          `json:"period"`
	Amount     decimal.Decimal `json:"amount"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// ScheduleResponse is the full derived amortization schedule for a plan.
// PostedToDate is the amount already posted through runs.
type ScheduleResponse struct {
	PlanID       string                   `json:"planID"`
	Total        decimal.Decimal          `json:"total"`
	PostedToDate decimal.Decimal          `json:"postedToDate"`
	Periods      []SchedulePeriodResponse `json:"periods"`
}

// ToScheduleResponse converts derived schedule periods to a DTO.
func ToScheduleResponse(planID string, periods []domain.SchedulePeriod, postedToDate decimal.Decimal) ScheduleResponse {
	res := ScheduleResponse{PlanID: planID, Total: decimal.Zero, PostedToDate: postedToDate}
	res.Periods = make([]SchedulePeriodResponse, len(periods))
	for i, p := range periods {
		res.Periods[i] = SchedulePeriodResponse{Period: p.Period, Amount: p.Amount, Cumulative: p.Cumulative}
		res.Total = res.Total.Add(p.Amount)
	}
	return res
}

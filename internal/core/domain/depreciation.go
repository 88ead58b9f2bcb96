package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepreciationMethod selects the schedule formula for a plan.
type DepreciationMethod string

const (
	StraightLine DepreciationMethod = "STRAIGHT_LINE"
)

// SupportedMethod reports whether the engine can compute schedules for m.
func SupportedMethod(m DepreciationMethod) bool {
	return m == StraightLine
}

// PlanStatus is the depreciation plan state machine. A DRAFT plan is editable;
// once a run has been posted the plan is ACTIVE and structurally frozen.
type PlanStatus string

const (
	PlanDraft  PlanStatus = "DRAFT"
	PlanActive PlanStatus = "ACTIVE"
)

// FixedAsset is a depreciable asset registered for a company. The plan derives
// its depreciable base from the asset's cost.
type FixedAsset struct {
	AssetID    string          `json:"assetID"`
	CompanyID  string          `json:"companyID"`
	Name       string          `json:"name"`
	Cost       decimal.Decimal `json:"cost"`
	AcquiredAt time.Time       `json:"acquiredAt"`
	AuditFields
}

// DepreciationPlan describes how one fixed asset amortizes. There is at most
// one plan per asset.
type DepreciationPlan struct {
	PlanID               string             `json:"planID"`
	CompanyID            string             `json:"companyID"`
	AssetID              string             `json:"assetID"`
	Method               DepreciationMethod `json:"method"`
	UsefulLifeMonths     int                `json:"usefulLifeMonths"`
	ResidualValuePct     decimal.Decimal    `json:"residualValuePct"` // 0 <= pct < 100
	ExpenseAccountID     string             `json:"expenseAccountID"`
	AccumulatedAccountID string             `json:"accumulatedAccountID"`
	StartDate            time.Time          `json:"startDate"`
	Status               PlanStatus         `json:"status"`
	AuditFields
}

// DepreciationRun is one period's posted depreciation for a plan, unique per
// (plan, period). Period is formatted "YYYY-MM".
type DepreciationRun struct {
	RunID     string          `json:"runID"`
	PlanID    string          `json:"planID"`
	Period    string          `json:"period"`
	Amount    decimal.Decimal `json:"amount"`
	BatchID   string          `json:"batchID"` // Journal batch posted for this run
	CreatedAt time.Time       `json:"createdAt"`
	CreatedBy string          `json:"createdBy"`
}

// SchedulePeriod is one entry of a derived amortization schedule.
type SchedulePeriod struct {
	Period     string          `json:"period"`
	Amount     decimal.Decimal `json:"amount"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

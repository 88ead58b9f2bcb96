package dto

import (
	"time"

	"github.com/finbooks/accounting_backend/internal/core/domain"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code            string  `json:"code" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	ParentAccountID *string `json:"parentAccountID"` // Optional, use pointer for nullability
	AccountTypeID   string  `json:"accountTypeID" binding:"required"`
	ReportGroup     string  `json:"reportGroup"`
	IsPayable       bool    `json:"isPayable"`
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateAccountRequest struct {
	Code            *string `json:"code"`
	Name            *string `json:"name"`
	ParentAccountID *string `json:"parentAccountID"` // Empty string clears the parent
	AccountTypeID   *string `json:"accountTypeID"`
	ReportGroup     *string `json:"reportGroup"`
	IsPayable       *bool   `json:"isPayable"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID       string               `json:"accountID"`
	CompanyID       string               `json:"companyID"`
	Code            string               `json:"code"`
	Name            string               `json:"name"`
	ParentAccountID string               `json:"parentAccountID"` // Empty string if null in DB
	AccountTypeID   string               `json:"accountTypeID"`
	ReportGroup     string               `json:"reportGroup"`
	Status          domain.AccountStatus `json:"status"`
	IsPayable       bool                 `json:"isPayable"`
	CreatedAt       time.Time            `json:"createdAt"`
	CreatedBy       string               `json:"createdBy"`
	LastUpdatedAt   time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy   string               `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:       acc.AccountID,
		CompanyID:       acc.CompanyID,
		Code:            acc.Code,
		Name:            acc.Name,
		ParentAccountID: acc.ParentAccountID,
		AccountTypeID:   acc.AccountTypeID,
		ReportGroup:     acc.ReportGroup,
		Status:          acc.Status,
		IsPayable:       acc.IsPayable,
		CreatedAt:       acc.CreatedAt,
		CreatedBy:       acc.CreatedBy,
		LastUpdatedAt:   acc.LastUpdatedAt,
		LastUpdatedBy:   acc.LastUpdatedBy,
	}
}

// AccountNodeResponse is one node of the chart-of-accounts tree.
type AccountNodeResponse struct {
	AccountResponse
	Children []AccountNodeResponse `json:"children"`
}

// ToAccountTreeResponse converts resolved domain tree nodes to DTOs.
func ToAccountTreeResponse(nodes []*domain.AccountNode) []AccountNodeResponse {
	res := make([]AccountNodeResponse, len(nodes))
	for i, n := range nodes {
		res[i] = AccountNodeResponse{
			AccountResponse: ToAccountResponse(&n.Account),
			Children:        ToAccountTreeResponse(n.Children),
		}
	}
	return res
}

// AccountInUseResponse is returned by the deactivation pre-flight check.
type AccountInUseResponse struct {
	AccountID string `json:"accountID"`
	InUse     bool   `json:"inUse"`
}

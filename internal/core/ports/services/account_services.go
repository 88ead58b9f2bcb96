package services

import (
	"context"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/finbooks/accounting_backend/internal/dto"
)

// AccountService manages a company's chart of accounts.
type AccountService interface {
	AccountReferenceChecker

	// CreateAccount validates tenant-scoped invariants and persists a new account.
	CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, userID string) (*domain.Account, error)

	// UpdateAccount applies a partial update, re-running every creation
	// validation plus the ancestor cycle check on the effective state.
	UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, userID string) (*domain.Account, error)

	// DeactivateAccount soft-deletes an account that is not in use.
	DeactivateAccount(ctx context.Context, companyID string, accountID string, userID string) error

	// ReactivateAccount re-enables a deactivated account.
	ReactivateAccount(ctx context.Context, companyID string, accountID string, userID string) error

	// GetAccountTree returns the chart reassembled into parent->children nodes.
	GetAccountTree(ctx context.Context, companyID string, includeInactive bool) ([]*domain.AccountNode, error)

	// IsAccountInUse pre-flights a deactivation: true when journal lines
	// reference the account or an active child points at it.
	IsAccountInUse(ctx context.Context, companyID string, accountID string) (bool, error)
}

// AccountReferenceChecker is the narrow read surface other engines use to
// confirm accounts exist and belong to the requesting company.
type AccountReferenceChecker interface {
	// GetAccountByID retrieves an account scoped to the company.
	GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error)

	// GetAccountsByIDs batch-resolves accounts scoped to the company.
	// Accounts that do not exist or belong to another company are simply
	// absent from the result map.
	GetAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error)
}

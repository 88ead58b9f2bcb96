package repositories

import (
	"context"
	"time"

	"github.com/finbooks/accounting_backend/internal/core/domain"
)

// AccountReader defines read operations for chart-of-accounts data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts by their IDs.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccountsByCompany retrieves all accounts for a company, optionally
	// including inactive ones. Used for tree assembly; charts are small enough
	// that this is not paginated.
	ListAccountsByCompany(ctx context.Context, companyID string, includeInactive bool) ([]domain.Account, error)

	// FindAccountTypeByID retrieves an account type by its ID.
	FindAccountTypeByID(ctx context.Context, accountTypeID string) (*domain.AccountType, error)

	// AccountCodeExists reports whether another account in the company already
	// uses the given code. excludeAccountID is skipped (empty on create).
	AccountCodeExists(ctx context.Context, companyID string, code string, excludeAccountID string) (bool, error)

	// HasJournalLines reports whether any journal line references the account.
	HasJournalLines(ctx context.Context, accountID string) (bool, error)

	// HasActiveChildren reports whether any active account has this account as parent.
	HasActiveChildren(ctx context.Context, accountID string) (bool, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount updates an existing account's details.
	UpdateAccount(ctx context.Context, account domain.Account) error

	// SetAccountStatus flips the account lifecycle status.
	SetAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}

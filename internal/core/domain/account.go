package domain

// AccountCategory is the fundamental accounting classification of an account type.
type AccountCategory string

const (
	Asset     AccountCategory = "ASSET"
	Liability AccountCategory = "LIABILITY"
	Equity    AccountCategory = "EQUITY"
	Revenue   AccountCategory = "REVENUE"
	Expense   AccountCategory = "EXPENSE"
)

// AccountStatus is the lifecycle state of an account. Accounts are never hard
// deleted; an inactive account keeps its history and can be reactivated.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
)

// AccountType is a company-scoped grouping of accounts (e.g. "Current Assets").
// Its category drives report placement; the engine only checks tenant ownership.
type AccountType struct {
	AccountTypeID string          `json:"accountTypeID"`
	CompanyID     string          `json:"companyID"`
	Name          string          `json:"name"`
	Category      AccountCategory `json:"category"`
}

// Account is a node in a company's chart of accounts.
type Account struct {
	AccountID       string        `json:"accountID"`       // Primary key (UUID)
	CompanyID       string        `json:"companyID"`       // FK -> companies.company_id (NOT NULL)
	Code            string        `json:"code"`            // Unique within the company
	Name            string        `json:"name"`            // User-defined name
	ParentAccountID string        `json:"parentAccountID"` // Self-referencing FK, empty when root
	AccountTypeID   string        `json:"accountTypeID"`   // FK -> account_types, same company
	ReportGroup     string        `json:"reportGroup"`     // Free-form report bucket
	Status          AccountStatus `json:"status"`
	IsPayable       bool          `json:"isPayable"`
	AuditFields
}

// IsActive reports whether the account can receive new journal lines.
func (a Account) IsActive() bool {
	return a.Status == AccountActive
}

// AccountNode is an account with its resolved children, as returned by the
// chart-of-accounts tree read.
type AccountNode struct {
	Account  Account        `json:"account"`
	Children []*AccountNode `json:"children"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocType identifies the kind of business document a journal batch was posted
// from. Each doc type has exactly one registered document mapper.
type DocType string

const (
	DocTypeSalesInvoice        DocType = "SALES_INVOICE"
	DocTypePayment             DocType = "PAYMENT"
	DocTypePosSale             DocType = "POS_SALE"
	DocTypeInventoryAdjustment DocType = "INVENTORY_ADJUSTMENT"
	DocTypeDepreciation        DocType = "DEPRECIATION"
)

// JournalBatch is one atomic group of balanced debit/credit lines recorded
// against the ledger. Batches are immutable once committed; corrections are
// made by posting a reversing batch.
type JournalBatch struct {
	BatchID     string    `json:"batchID"`   // Primary key (UUID)
	CompanyID   string    `json:"companyID"` // FK -> companies.company_id (NOT NULL)
	DocType     DocType   `json:"docType"`
	DocRef      string    `json:"docRef"` // Source document reference, unique per (company, doc type)
	BatchDate   time.Time `json:"batchDate"`
	Description string    `json:"description"`
	AuditFields
}

// JournalLine is a single debit or credit within a batch. Debit and credit are
// both non-negative; a typical line carries exactly one non-zero side, though
// only the batch-level balance is enforced.
type JournalLine struct {
	LineID      string          `json:"lineID"`
	BatchID     string          `json:"batchID"`
	AccountID   string          `json:"accountID"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	Position    int             `json:"position"` // Order within the batch
}

package dto

import (
	"time"

	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PostingRequest carries one business document to be turned into a balanced
// journal batch. Exactly one payload field must be set, matching DocType; the
// resolved document mapper reads its own payload and ignores the rest.
type PostingRequest struct {
	CompanyID   string          `json:"-"` // Set from the path by the handler
	UserID      string          `json:"-"` // Acting user, for audit fields
	DocType     domain.DocType  `json:"docType" binding:"required"`
	DocRef      string          `json:"docRef" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Description string          `json:"description"`

	SalesInvoice        *SalesInvoicePayload        `json:"salesInvoice,omitempty"`
	Payment             *PaymentPayload             `json:"payment,omitempty"`
	PosSale             *PosSalePayload             `json:"posSale,omitempty"`
	InventoryAdjustment *InventoryAdjustmentPayload `json:"inventoryAdjustment,omitempty"`
	Depreciation        *DepreciationPayload        `json:"depreciation,omitempty"`
}

// SalesInvoicePayload posts a sales invoice: debit receivable for the gross,
// credit revenue for the net and tax payable for the tax.
type SalesInvoicePayload struct {
	ReceivableAccountID string          `json:"receivableAccountID" binding:"required"`
	RevenueAccountID    string          `json:"revenueAccountID" binding:"required"`
	TaxAccountID        string          `json:"taxAccountID"`
	NetAmount           decimal.Decimal `json:"netAmount" binding:"required"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
}

// PaymentPayload posts a customer payment: debit bank, credit receivable.
type PaymentPayload struct {
	BankAccountID       string          `json:"bankAccountID" binding:"required"`
	ReceivableAccountID string          `json:"receivableAccountID" binding:"required"`
	Amount              decimal.Decimal `json:"amount" binding:"required"`
}

// PosSalePayload posts a point-of-sale sale: debit cash for the gross, credit
// revenue and tax payable. When cost fields are present a second leg moves the
// cost of goods sold out of inventory.
type PosSalePayload struct {
	CashAccountID      string          `json:"cashAccountID" binding:"required"`
	RevenueAccountID   string          `json:"revenueAccountID" binding:"required"`
	TaxAccountID       string          `json:"taxAccountID"`
	NetAmount          decimal.Decimal `json:"netAmount" binding:"required"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	CogsAccountID      string          `json:"cogsAccountID"`
	InventoryAccountID string          `json:"inventoryAccountID"`
	CostAmount         decimal.Decimal `json:"costAmount"`
}

// InventoryAdjustmentPayload posts a stock revaluation. A positive delta
// debits inventory against the adjustment account; a negative delta reverses
// the sides.
type InventoryAdjustmentPayload struct {
	InventoryAccountID  string          `json:"inventoryAccountID" binding:"required"`
	AdjustmentAccountID string          `json:"adjustmentAccountID" binding:"required"`
	Delta               decimal.Decimal `json:"delta" binding:"required"`
}

// DepreciationPayload posts one period of depreciation: debit expense, credit
// accumulated depreciation. Built by the depreciation engine, never by callers.
type DepreciationPayload struct {
	ExpenseAccountID     string          `json:"expenseAccountID" binding:"required"`
	AccumulatedAccountID string          `json:"accumulatedAccountID" binding:"required"`
	Amount               decimal.Decimal `json:"amount" binding:"required"`
}

// JournalLineResponse is one line of a posted batch.
type JournalLineResponse struct {
	LineID      string          `json:"lineID"`
	AccountID   string          `json:"accountID"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	Position    int             `json:"position"`
}

// JournalBatchResponse is a posted batch with (optionally) its lines.
type JournalBatchResponse struct {
	BatchID     string                `json:"batchID"`
	CompanyID   string                `json:"companyID"`
	DocType     domain.DocType        `json:"docType"`
	DocRef      string                `json:"docRef"`
	BatchDate   time.Time             `json:"batchDate"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"createdAt"`
	CreatedBy   string                `json:"createdBy"`
	Lines       []JournalLineResponse `json:"lines,omitempty"`
}

// ToJournalLineResponses converts domain lines to DTOs.
func ToJournalLineResponses(lines []domain.JournalLine) []JournalLineResponse {
	res := make([]JournalLineResponse, len(lines))
	for i, l := range lines {
		res[i] = JournalLineResponse{
			LineID:      l.LineID,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
			Position:    l.Position,
		}
	}
	return res
}

// ToJournalBatchResponse converts a domain batch (plus lines) to a DTO.
func ToJournalBatchResponse(batch *domain.JournalBatch, lines []domain.JournalLine) JournalBatchResponse {
	return JournalBatchResponse{
		BatchID:     batch.BatchID,
		CompanyID:   batch.CompanyID,
		DocType:     batch.DocType,
		DocRef:      batch.DocRef,
		BatchDate:   batch.BatchDate,
		Description: batch.Description,
		CreatedAt:   batch.CreatedAt,
		CreatedBy:   batch.CreatedBy,
		Lines:       ToJournalLineResponses(lines),
	}
}

// ListBatchesParams defines query parameters for listing batches.
type ListBatchesParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ListBatchesResponse is a page of batches plus the cursor for the next page.
type ListBatchesResponse struct {
	Batches   []JournalBatchResponse `json:"batches"`
	NextToken *string                `json:"nextToken,omitempty"`
}

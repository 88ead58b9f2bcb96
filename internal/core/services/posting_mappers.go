package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/dto"
	"github.com/finbooks/accounting_backend/internal/utils/money"
)

// DefaultMappers returns the full mapper set for the registry.
func DefaultMappers() []portssvc.DocumentMapper {
	return []portssvc.DocumentMapper{
		SalesInvoiceMapper{},
		PaymentMapper{},
		PosSaleMapper{},
		InventoryAdjustmentMapper{},
		DepreciationMapper{},
	}
}

func debitLine(accountID string, amount decimal.Decimal, description string) domain.JournalLine {
	return domain.JournalLine{
		AccountID:   accountID,
		Debit:       money.RoundAmount(amount),
		Credit:      decimal.Zero,
		Description: description,
	}
}

func creditLine(accountID string, amount decimal.Decimal, description string) domain.JournalLine {
	return domain.JournalLine{
		AccountID:   accountID,
		Debit:       decimal.Zero,
		Credit:      money.RoundAmount(amount),
		Description: description,
	}
}

// SalesInvoiceMapper posts a sales invoice: debit the receivable for the
// gross, credit revenue for the net and tax payable for the tax.
type SalesInvoiceMapper struct{}

func (SalesInvoiceMapper) DocType() domain.DocType { return domain.DocTypeSalesInvoice }

func (SalesInvoiceMapper) MapToLines(req dto.PostingRequest) ([]domain.JournalLine, error) {
	p := req.SalesInvoice
	if p == nil {
		return nil, fmt.Errorf("%w: sales invoice payload is required", apperrors.ErrValidation)
	}
	if p.NetAmount.IsNegative() || p.TaxAmount.IsNegative() {
		return nil, fmt.Errorf("%w: invoice amounts must not be negative", apperrors.ErrValidation)
	}
	if !p.TaxAmount.IsZero() && p.TaxAccountID == "" {
		return nil, fmt.Errorf("%w: tax account is required when tax amount is set", apperrors.ErrValidation)
	}

	gross := p.NetAmount.Add(p.TaxAmount)
	lines := []domain.JournalLine{
		debitLine(p.ReceivableAccountID, gross, req.Description),
		creditLine(p.RevenueAccountID, p.NetAmount, req.Description),
	}
	if !p.TaxAmount.IsZero() {
		lines = append(lines, creditLine(p.TaxAccountID, p.TaxAmount, "Sales tax"))
	}
	return lines, nil
}

// PaymentMapper posts a customer payment: debit bank, credit receivable.
type PaymentMapper struct{}

func (PaymentMapper) DocType() domain.DocType { return domain.DocTypePayment }

func (PaymentMapper) MapToLines(req dto.PostingRequest) ([]domain.JournalLine, error) {
	p := req.Payment
	if p == nil {
		return nil, fmt.Errorf("%w: payment payload is required", apperrors.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}

	return []domain.JournalLine{
		debitLine(p.BankAccountID, p.Amount, req.Description),
		creditLine(p.ReceivableAccountID, p.Amount, req.Description),
	}, nil
}

// PosSaleMapper posts a point-of-sale sale: debit cash for the gross, credit
// revenue and tax payable. When cost fields are present a second leg moves
// cost of goods sold out of inventory.
type PosSaleMapper struct{}

func (PosSaleMapper) DocType() domain.DocType { return domain.DocTypePosSale }

func (PosSaleMapper) MapToLines(req dto.PostingRequest) ([]domain.JournalLine, error) {
	p := req.PosSale
	if p == nil {
		return nil, fmt.Errorf("%w: pos sale payload is required", apperrors.ErrValidation)
	}
	if p.NetAmount.IsNegative() || p.TaxAmount.IsNegative() || p.CostAmount.IsNegative() {
		return nil, fmt.Errorf("%w: sale amounts must not be negative", apperrors.ErrValidation)
	}
	if !p.TaxAmount.IsZero() && p.TaxAccountID == "" {
		return nil, fmt.Errorf("%w: tax account is required when tax amount is set", apperrors.ErrValidation)
	}
	hasCost := !p.CostAmount.IsZero()
	if hasCost && (p.CogsAccountID == "" || p.InventoryAccountID == "") {
		return nil, fmt.Errorf("%w: cogs and inventory accounts are required when cost amount is set", apperrors.ErrValidation)
	}

	gross := p.NetAmount.Add(p.TaxAmount)
	lines := []domain.JournalLine{
		debitLine(p.CashAccountID, gross, req.Description),
		creditLine(p.RevenueAccountID, p.NetAmount, req.Description),
	}
	if !p.TaxAmount.IsZero() {
		lines = append(lines, creditLine(p.TaxAccountID, p.TaxAmount, "Sales tax"))
	}
	if hasCost {
		lines = append(lines,
			debitLine(p.CogsAccountID, p.CostAmount, "Cost of goods sold"),
			creditLine(p.InventoryAccountID, p.CostAmount, "Inventory relief"),
		)
	}
	return lines, nil
}

// InventoryAdjustmentMapper posts a stock revaluation. A positive delta
// debits inventory against the adjustment account; a negative delta reverses
// the sides.
type InventoryAdjustmentMapper struct{}

func (InventoryAdjustmentMapper) DocType() domain.DocType { return domain.DocTypeInventoryAdjustment }

func (InventoryAdjustmentMapper) MapToLines(req dto.PostingRequest) ([]domain.JournalLine, error) {
	p := req.InventoryAdjustment
	if p == nil {
		return nil, fmt.Errorf("%w: inventory adjustment payload is required", apperrors.ErrValidation)
	}
	if p.Delta.IsZero() {
		return nil, fmt.Errorf("%w: adjustment delta must not be zero", apperrors.ErrValidation)
	}

	amount := p.Delta.Abs()
	if p.Delta.IsPositive() {
		return []domain.JournalLine{
			debitLine(p.InventoryAccountID, amount, req.Description),
			creditLine(p.AdjustmentAccountID, amount, req.Description),
		}, nil
	}
	return []domain.JournalLine{
		debitLine(p.AdjustmentAccountID, amount, req.Description),
		creditLine(p.InventoryAccountID, amount, req.Description),
	}, nil
}

// DepreciationMapper posts one period of depreciation: debit expense, credit
// accumulated depreciation. Requests are built by the depreciation engine.
type DepreciationMapper struct{}

func (DepreciationMapper) DocType() domain.DocType { return domain.DocTypeDepreciation }

func (DepreciationMapper) MapToLines(req dto.PostingRequest) ([]domain.JournalLine, error) {
	p := req.Depreciation
	if p == nil {
		return nil, fmt.Errorf("%w: depreciation payload is required", apperrors.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: depreciation amount must be positive", apperrors.ErrValidation)
	}

	return []domain.JournalLine{
		debitLine(p.ExpenseAccountID, p.Amount, req.Description),
		creditLine(p.AccumulatedAccountID, p.Amount, req.Description),
	}, nil
}

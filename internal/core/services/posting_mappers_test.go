package services_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	"github.com/finbooks/accounting_backend/internal/core/services"
	"github.com/finbooks/accounting_backend/internal/dto"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sumSides(lines []domain.JournalLine) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

func baseRequest(docType domain.DocType) dto.PostingRequest {
	return dto.PostingRequest{
		CompanyID:   "comp-1",
		UserID:      "user-1",
		DocType:     docType,
		DocRef:      "DOC-001",
		Date:        time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "March posting",
	}
}

func TestSalesInvoiceMapper_GrossSplitsIntoNetAndTax(t *testing.T) {
	req := baseRequest(domain.DocTypeSalesInvoice)
	req.SalesInvoice = &dto.SalesInvoicePayload{
		ReceivableAccountID: "acc-ar",
		RevenueAccountID:    "acc-rev",
		TaxAccountID:        "acc-tax",
		NetAmount:           dec("100.00"),
		TaxAmount:           dec("19.00"),
	}

	lines, err := services.SalesInvoiceMapper{}.MapToLines(req)

	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "acc-ar", lines[0].AccountID)
	assert.True(t, lines[0].Debit.Equal(dec("119.00")))
	assert.Equal(t, "acc-rev", lines[1].AccountID)
	assert.True(t, lines[1].Credit.Equal(dec("100.00")))
	assert.Equal(t, "acc-tax", lines[2].AccountID)
	assert.True(t, lines[2].Credit.Equal(dec("19.00")))
	assert.Equal(t, "Sales tax", lines[2].Description)

	debits, credits := sumSides(lines)
	assert.True(t, debits.Equal(credits))
}

func TestSalesInvoiceMapper_NoTaxLineWhenTaxZero(t *testing.T) {
	req := baseRequest(domain.DocTypeSalesInvoice)
	req.SalesInvoice = &dto.SalesInvoicePayload{
		ReceivableAccountID: "acc-ar",
		RevenueAccountID:    "acc-rev",
		NetAmount:           dec("50.00"),
	}

	lines, err := services.SalesInvoiceMapper{}.MapToLines(req)

	require.NoError(t, err)
	require.Len(t, lines, 2)
	debits, credits := sumSides(lines)
	assert.True(t, debits.Equal(credits))
}

func TestSalesInvoiceMapper_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload *dto.SalesInvoicePayload
	}{
		{"missing payload", nil},
		{"negative net", &dto.SalesInvoicePayload{
			ReceivableAccountID: "acc-ar", RevenueAccountID: "acc-rev",
			NetAmount: dec("-10.00"),
		}},
		{"tax without tax account", &dto.SalesInvoicePayload{
			ReceivableAccountID: "acc-ar", RevenueAccountID: "acc-rev",
			NetAmount: dec("100.00"), TaxAmount: dec("19.00"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(domain.DocTypeSalesInvoice)
			req.SalesInvoice = tt.payload

			lines, err := services.SalesInvoiceMapper{}.MapToLines(req)

			require.Error(t, err)
			assert.Nil(t, lines)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestPaymentMapper_DebitsBankCreditsReceivable(t *testing.T) {
	req := baseRequest(domain.DocTypePayment)
	req.Payment = &dto.PaymentPayload{
		BankAccountID:       "acc-bank",
		ReceivableAccountID: "acc-ar",
		Amount:              dec("250.50"),
	}

	lines, err := services.PaymentMapper{}.MapToLines(req)

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "acc-bank", lines[0].AccountID)
	assert.True(t, lines[0].Debit.Equal(dec("250.50")))
	assert.Equal(t, "acc-ar", lines[1].AccountID)
	assert.True(t, lines[1].Credit.Equal(dec("250.50")))
}

func TestPaymentMapper_ZeroAmountRejected(t *testing.T) {
	req := baseRequest(domain.DocTypePayment)
	req.Payment = &dto.PaymentPayload{
		BankAccountID:       "acc-bank",
		ReceivableAccountID: "acc-ar",
		Amount:              decimal.Zero,
	}

	lines, err := services.PaymentMapper{}.MapToLines(req)

	require.Error(t, err)
	assert.Nil(t, lines)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPosSaleMapper_WithCostLeg(t *testing.T) {
	req := baseRequest(domain.DocTypePosSale)
	req.PosSale = &dto.PosSalePayload{
		CashAccountID:      "acc-cash",
		RevenueAccountID:   "acc-rev",
		TaxAccountID:       "acc-tax",
		NetAmount:          dec("80.00"),
		TaxAmount:          dec("15.20"),
		CogsAccountID:      "acc-cogs",
		InventoryAccountID: "acc-inv",
		CostAmount:         dec("45.00"),
	}

	lines, err := services.PosSaleMapper{}.MapToLines(req)

	require.NoError(t, err)
	require.Len(t, lines, 5)
	assert.True(t, lines[0].Debit.Equal(dec("95.20"))) // cash, gross
	assert.Equal(t, "acc-cogs", lines[3].AccountID)
	assert.True(t, lines[3].Debit.Equal(dec("45.00")))
	assert.Equal(t, "acc-inv", lines[4].AccountID)
	assert.True(t, lines[4].Credit.Equal(dec("45.00")))

	// The cost leg must keep the batch balanced as a whole.
	debits, credits := sumSides(lines)
	assert.True(t, debits.Equal(credits))
}

func TestPosSaleMapper_CostWithoutAccountsRejected(t *testing.T) {
	req := baseRequest(domain.DocTypePosSale)
	req.PosSale = &dto.PosSalePayload{
		CashAccountID:    "acc-cash",
		RevenueAccountID: "acc-rev",
		NetAmount:        dec("80.00"),
		CostAmount:       dec("45.00"),
	}

	lines, err := services.PosSaleMapper{}.MapToLines(req)

	require.Error(t, err)
	assert.Nil(t, lines)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestInventoryAdjustmentMapper_SignPicksSides(t *testing.T) {
	makeReq := func(delta string) dto.PostingRequest {
		req := baseRequest(domain.DocTypeInventoryAdjustment)
		req.InventoryAdjustment = &dto.InventoryAdjustmentPayload{
			InventoryAccountID:  "acc-inv",
			AdjustmentAccountID: "acc-adj",
			Delta:               dec(delta),
		}
		return req
	}

	up, err := services.InventoryAdjustmentMapper{}.MapToLines(makeReq("30.00"))
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, "acc-inv", up[0].AccountID)
	assert.True(t, up[0].Debit.Equal(dec("30.00")))

	down, err := services.InventoryAdjustmentMapper{}.MapToLines(makeReq("-30.00"))
	require.NoError(t, err)
	require.Len(t, down, 2)
	assert.Equal(t, "acc-adj", down[0].AccountID)
	assert.True(t, down[0].Debit.Equal(dec("30.00")))
	assert.Equal(t, "acc-inv", down[1].AccountID)
	assert.True(t, down[1].Credit.Equal(dec("30.00")))
}

func TestInventoryAdjustmentMapper_ZeroDeltaRejected(t *testing.T) {
	req := baseRequest(domain.DocTypeInventoryAdjustment)
	req.InventoryAdjustment = &dto.InventoryAdjustmentPayload{
		InventoryAccountID:  "acc-inv",
		AdjustmentAccountID: "acc-adj",
		Delta:               decimal.Zero,
	}

	lines, err := services.InventoryAdjustmentMapper{}.MapToLines(req)

	require.Error(t, err)
	assert.Nil(t, lines)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDepreciationMapper_DebitsExpenseCreditsAccumulated(t *testing.T) {
	req := baseRequest(domain.DocTypeDepreciation)
	req.Depreciation = &dto.DepreciationPayload{
		ExpenseAccountID:     "acc-exp",
		AccumulatedAccountID: "acc-accum",
		Amount:               dec("83.33"),
	}

	lines, err := services.DepreciationMapper{}.MapToLines(req)

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "acc-exp", lines[0].AccountID)
	assert.True(t, lines[0].Debit.Equal(dec("83.33")))
	assert.Equal(t, "acc-accum", lines[1].AccountID)
	assert.True(t, lines[1].Credit.Equal(dec("83.33")))
}

func TestDefaultMappers_CoverEveryDocType(t *testing.T) {
	mappers := services.DefaultMappers()
	require.Len(t, mappers, 5)

	seen := make(map[domain.DocType]bool)
	for _, m := range mappers {
		seen[m.DocType()] = true
	}
	for _, dt := range []domain.DocType{
		domain.DocTypeSalesInvoice,
		domain.DocTypePayment,
		domain.DocTypePosSale,
		domain.DocTypeInventoryAdjustment,
		domain.DocTypeDepreciation,
	} {
		assert.True(t, seen[dt], "missing mapper for %s", dt)
	}
}

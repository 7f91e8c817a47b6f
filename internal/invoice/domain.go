package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/tax"
)

// Status is derived from the payment position, never stored.
type Status string

const (
	StatusIssued        Status = "ISSUED"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
)

// Currency of the invoice face amounts.
const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// Line is one employee's billed amount on an invoice. Amounts are in the
// invoice currency.
type Line struct {
	ID           int64
	InvoiceID    int64
	EmployeeID   int64
	EmployeeName string
	Hours        decimal.Decimal
	TotalDays    int
	WorkedDays   decimal.Decimal
	Rate         decimal.Decimal // hourly rate for USD lines, zero otherwise
	Amount       decimal.Decimal
}

// Invoice is an immutable billing document for one PO and one calendar
// month. Only the paid amount changes after creation; every derived figure
// recomputes from the stored totals.
type Invoice struct {
	ID         int64
	Number     string
	CompanyID  int64
	POID       int64
	EntityType tax.EntityType
	Regime     tax.Regime
	Month      int
	Year       int
	Currency   string
	Lines      []Line
	Subtotal   decimal.Decimal
	CGST       decimal.Decimal
	SGST       decimal.Decimal
	IGST       decimal.Decimal
	Total      decimal.Decimal // face total in Currency
	TotalINR   decimal.Decimal // settlement total, equals Total for INR invoices
	Paid       decimal.Decimal // INR received to date
	CreatedAt  time.Time
}

// Due returns the outstanding INR balance, floored at zero so an
// overpayment never reads as a negative receivable.
func (i Invoice) Due() decimal.Decimal {
	due := i.TotalINR.Sub(i.Paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// TaxTotal returns the combined tax charge in the invoice currency.
func (i Invoice) TaxTotal() decimal.Decimal {
	return i.CGST.Add(i.SGST).Add(i.IGST)
}

// DerivedStatus classifies the invoice by its payment position.
func (i Invoice) DerivedStatus() Status {
	switch {
	case i.Paid.GreaterThanOrEqual(i.TotalINR) && i.Paid.IsPositive():
		return StatusPaid
	case i.Paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusIssued
	}
}

// Period formats the billing month as yyyy-mm.
func (i Invoice) Period() string {
	return time.Date(i.Year, time.Month(i.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

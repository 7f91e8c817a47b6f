package po

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/tax"
)

// PurchaseOrder is a client-approved budget line with a date range and
// billing terms. Owned by exactly one company; owns its employee assignments.
type PurchaseOrder struct {
	ID         int64
	CompanyID  int64
	Number     string
	Value      decimal.Decimal
	FromDate   time.Time
	ToDate     time.Time
	HourlyRate decimal.Decimal // hourly billing for the foreign entity
	Rates      tax.Rates
	CreatedAt  time.Time
}

// ContainsPeriod reports whether the billing month falls inside the PO's
// inclusive [FromDate, ToDate] range, compared at calendar-month granularity.
func (p PurchaseOrder) ContainsPeriod(month int, year int) bool {
	if p.FromDate.IsZero() || p.ToDate.IsZero() {
		return false
	}
	period := year*12 + month - 1
	start := p.FromDate.Year()*12 + int(p.FromDate.Month()) - 1
	end := p.ToDate.Year()*12 + int(p.ToDate.Month()) - 1
	return period >= start && period <= end
}

// MonthlyBudget returns the amortized monthly figure for the PO, and false
// when the date range or value is incomplete.
func (p PurchaseOrder) MonthlyBudget() (decimal.Decimal, bool) {
	return MonthlyBudget(p.Value, p.FromDate, p.ToDate)
}

// Employee is a billable assignment under a purchase order. Assignment is
// per-PO, not global: the same person on two POs is two rows.
type Employee struct {
	ID             int64
	POID           int64
	Name           string
	Email          string
	Location       string
	DateOfJoining  time.Time
	VendorPOCName  string
	VendorPOCEmail string
	ClientPOCName  string
	ClientPOCEmail string
	CreatedAt      time.Time
}

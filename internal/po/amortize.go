package po

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthSpan counts the calendar months covered by the inclusive [from, to]
// range: Jan 2024 to Jan 2024 is 1, 15 Jan to 10 Mar is 3. Zero dates yield
// a zero span; to before from is an error.
func MonthSpan(from, to time.Time) (int, error) {
	if from.IsZero() || to.IsZero() {
		return 0, nil
	}
	if to.Before(from) {
		return 0, fmt.Errorf("po: end date %s before start date %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	span := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
	return span, nil
}

// MonthlyBudget amortizes a PO value evenly across its month span, rounded
// to 2 decimal places. The second return is false when the span is zero or
// the inputs are incomplete; the figure is advisory and always re-derivable
// from the stored value and dates.
func MonthlyBudget(value decimal.Decimal, from, to time.Time) (decimal.Decimal, bool) {
	span, err := MonthSpan(from, to)
	if err != nil || span == 0 {
		return decimal.Zero, false
	}
	return value.Div(decimal.NewFromInt(int64(span))).Round(2), true
}

package po

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthSpanInclusive(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same day", date(2024, time.January, 15), date(2024, time.January, 15), 1},
		{"same month", date(2024, time.January, 1), date(2024, time.January, 31), 1},
		{"jan to mar mid-month", date(2024, time.January, 15), date(2024, time.March, 10), 3},
		{"full year", date(2024, time.January, 1), date(2024, time.December, 31), 12},
		{"across year boundary", date(2024, time.November, 1), date(2025, time.February, 28), 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MonthSpan(tc.from, tc.to)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMonthSpanInvalidRange(t *testing.T) {
	_, err := MonthSpan(date(2024, time.March, 1), date(2024, time.January, 1))
	require.Error(t, err)
}

func TestMonthSpanZeroDates(t *testing.T) {
	span, err := MonthSpan(time.Time{}, date(2024, time.March, 1))
	require.NoError(t, err)
	require.Equal(t, 0, span)
}

func TestMonthlyBudget(t *testing.T) {
	budget, ok := MonthlyBudget(decimal.NewFromInt(120000), date(2024, time.January, 1), date(2024, time.December, 31))
	require.True(t, ok)
	require.Equal(t, "10000.00", budget.StringFixed(2))
}

func TestMonthlyBudgetUndefinedOnZeroSpan(t *testing.T) {
	_, ok := MonthlyBudget(decimal.NewFromInt(5000), time.Time{}, time.Time{})
	require.False(t, ok)
}

func TestMonthlyBudgetReconstructsValue(t *testing.T) {
	// budget * months stays within a cent of the PO value for awkward divisions.
	values := []string{"100000", "99999.99", "70001", "12345.67"}
	from, to := date(2024, time.February, 10), date(2024, time.August, 20)
	span, err := MonthSpan(from, to)
	require.NoError(t, err)
	require.Equal(t, 7, span)

	for _, v := range values {
		value := decimal.RequireFromString(v)
		budget, ok := MonthlyBudget(value, from, to)
		require.True(t, ok)
		diff := budget.Mul(decimal.NewFromInt(int64(span))).Sub(value).Abs()
		require.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.04")), "value %s drifted by %s", v, diff)
	}
}

func TestContainsPeriod(t *testing.T) {
	p := PurchaseOrder{FromDate: date(2024, time.January, 15), ToDate: date(2024, time.June, 10)}
	require.True(t, p.ContainsPeriod(1, 2024))
	require.True(t, p.ContainsPeriod(6, 2024))
	require.False(t, p.ContainsPeriod(12, 2023))
	require.False(t, p.ContainsPeriod(7, 2024))
	require.False(t, PurchaseOrder{}.ContainsPeriod(1, 2024))
}

package timesheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crestline-hq/crestline/internal/shared"
)

func sheet(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestParseAggregatesHoursAndDays(t *testing.T) {
	f := File{
		EmployeeID: 7,
		Name:       "7_jane_doe.csv",
		Data: sheet(
			"Employee,Jane Doe",
			"Location,Hyderabad",
			"Date,Regular hours worked",
			"2024-01-01,8",
			"2024-01-02,8 hours",
			"2024-01-03,6",
			"2024-01-04,2",
			"2024-01-05,9.5",
		),
	}
	rec, err := Parse(f, "Jane Doe")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", rec.EmployeeName)
	require.Equal(t, "Hyderabad", rec.Location)
	require.Equal(t, 5, rec.TotalDays)
	require.Equal(t, "33.5", rec.TotalHours.String())
	// 8h, 8h, 9.5h are full days; 6h is a half day; 2h earns nothing.
	require.Equal(t, "3.5", rec.WorkedDays.String())
}

func TestParseSkipsBlankCells(t *testing.T) {
	f := File{
		EmployeeID: 7,
		Name:       "7.csv",
		Data: sheet(
			"Employee,Jane Doe",
			"Date,Regular hours worked",
			"2024-01-01,8",
			"2024-01-02,",
			"2024-01-03,holiday",
		),
	}
	rec, err := Parse(f, "jane doe")
	require.NoError(t, err)
	require.Equal(t, 1, rec.TotalDays)
}

func TestParseEmployeeMismatch(t *testing.T) {
	f := File{
		EmployeeID: 7,
		Name:       "7.csv",
		Data: sheet(
			"Employee,John Smith",
			"Date,Regular hours worked",
			"2024-01-01,8",
		),
	}
	_, err := Parse(f, "Jane Doe")
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrEmployeeMismatch))
	require.Contains(t, err.Error(), "7.csv")
	require.Contains(t, err.Error(), "John Smith")
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"no employee block", sheet("Date,Regular hours worked", "2024-01-01,8")},
		{"no header row", sheet("Employee,Jane Doe", "2024-01-01,8")},
		{"no day rows", sheet("Employee,Jane Doe", "Date,Regular hours worked")},
		{"unbalanced quotes", []byte("Employee,\"Jane\nDate,Regular hours worked\n")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(File{EmployeeID: 1, Name: "bad.csv", Data: tc.data}, "Jane Doe")
			require.Error(t, err)
			require.True(t, errors.Is(err, shared.ErrMalformedTimesheet))
			require.Contains(t, err.Error(), "bad.csv")
		})
	}
}

func TestIngestAll(t *testing.T) {
	files := []File{
		{EmployeeID: 1, Name: "1.csv", Data: sheet("Employee,Jane Doe", "Date,Regular hours worked", "2024-01-01,8")},
		{EmployeeID: 2, Name: "2.csv", Data: sheet("Employee,John Smith", "Date,Regular hours worked", "2024-01-01,4")},
	}
	expected := map[int64]string{1: "Jane Doe", 2: "John Smith"}

	records, err := IngestAll(files, expected)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "1", records[1].WorkedDays.String())
	require.Equal(t, "0.5", records[2].WorkedDays.String())
}

func TestIngestAllPropagatesMismatch(t *testing.T) {
	files := []File{
		{EmployeeID: 1, Name: "1.csv", Data: sheet("Employee,Jane Doe", "Date,Regular hours worked", "2024-01-01,8")},
		{EmployeeID: 2, Name: "2.csv", Data: sheet("Employee,Jane Doe", "Date,Regular hours worked", "2024-01-01,8")},
	}
	expected := map[int64]string{1: "Jane Doe", 2: "John Smith"}

	_, err := IngestAll(files, expected)
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrEmployeeMismatch))
}

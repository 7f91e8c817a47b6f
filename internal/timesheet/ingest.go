// Package timesheet parses uploaded per-employee timesheet files into
// aggregated billable figures.
//
// Files are CSV exports of the monthly timesheet sheet: a metadata block
// identifying the employee, a header row, then one row per day with the
// regular hours worked. Amounts are never computed here; the invoice
// computer combines the aggregates with the PO terms.
package timesheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/crestline-hq/crestline/internal/shared"
)

// File is one uploaded timesheet, already associated with the employee it is
// expected to cover.
type File struct {
	EmployeeID int64
	Name       string // original filename, used in error messages
	Data       []byte
}

// Record is the aggregated outcome of one parsed timesheet.
type Record struct {
	EmployeeID   int64
	EmployeeName string
	Location     string
	TotalHours   decimal.Decimal
	TotalDays    int             // day rows present in the sheet
	WorkedDays   decimal.Decimal // day credits: >=8h is 1, 4-7h is 0.5
	SourceFile   string
}

var hoursPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

var (
	four  = decimal.NewFromInt(4)
	eight = decimal.NewFromInt(8)
	half  = decimal.RequireFromString("0.5")
	one   = decimal.NewFromInt(1)
)

// Parse reads a single timesheet file and aggregates its day rows. The
// employee name embedded in the metadata block must match expectedName
// (case- and whitespace-insensitive); a mismatch blocks ingestion so a
// misassigned file is never billed under the wrong person.
func Parse(f File, expectedName string) (Record, error) {
	reader := csv.NewReader(bytes.NewReader(f.Data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rec := Record{EmployeeID: f.EmployeeID, SourceFile: f.Name}

	inDays := false
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", shared.ErrMalformedTimesheet, f.Name, err)
		}
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		switch {
		case !inDays && key == "employee":
			rec.EmployeeName = strings.TrimSpace(row[1])
		case !inDays && key == "location":
			rec.Location = strings.TrimSpace(row[1])
		case !inDays && strings.Contains(strings.ToLower(row[1]), "hour"):
			// Header row ("Date","Regular hours worked"); day rows follow.
			inDays = true
		case inDays:
			hours, ok := parseHours(row[1])
			if !ok {
				continue
			}
			rec.TotalDays++
			rec.TotalHours = rec.TotalHours.Add(hours)
			rec.WorkedDays = rec.WorkedDays.Add(dayCredit(hours))
		}
	}

	if rec.EmployeeName == "" || !inDays {
		return Record{}, fmt.Errorf("%w: %s: employee block or day rows missing", shared.ErrMalformedTimesheet, f.Name)
	}
	if rec.TotalDays == 0 {
		return Record{}, fmt.Errorf("%w: %s: no day entries", shared.ErrMalformedTimesheet, f.Name)
	}
	if expectedName != "" && !sameEmployee(rec.EmployeeName, expectedName) {
		return Record{}, fmt.Errorf("%w: %s names %q, expected %q", shared.ErrEmployeeMismatch, f.Name, rec.EmployeeName, expectedName)
	}
	return rec, nil
}

// IngestAll parses every file concurrently and returns records keyed by
// employee id. expected maps each employee id to the assignment name used
// for the identity check.
func IngestAll(files []File, expected map[int64]string) (map[int64]Record, error) {
	var (
		mu      sync.Mutex
		records = make(map[int64]Record, len(files))
	)
	var g errgroup.Group
	for _, f := range files {
		g.Go(func() error {
			rec, err := Parse(f, expected[f.EmployeeID])
			if err != nil {
				return err
			}
			mu.Lock()
			records[f.EmployeeID] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// parseHours accepts plain numbers and annotated cells such as "8 hours".
func parseHours(cell string) (decimal.Decimal, bool) {
	cell = strings.TrimSpace(strings.ToLower(cell))
	if cell == "" {
		return decimal.Zero, false
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return decimal.NewFromFloat(v), true
	}
	if strings.Contains(cell, "hour") {
		if m := hoursPattern.FindString(cell); m != "" {
			d, err := decimal.NewFromString(m)
			if err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// dayCredit converts hours into a billable day fraction: a full day at 8
// hours or more, a half day between 4 and 8, otherwise nothing.
func dayCredit(hours decimal.Decimal) decimal.Decimal {
	switch {
	case hours.GreaterThanOrEqual(eight):
		return one
	case hours.GreaterThanOrEqual(four):
		return half
	default:
		return decimal.Zero
	}
}

func sameEmployee(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

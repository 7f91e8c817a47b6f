package invoice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crestline-hq/crestline/internal/masterdata"
	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/internal/shared"
	"github.com/crestline-hq/crestline/internal/tax"
	"github.com/crestline-hq/crestline/internal/timesheet"
)

type fakeInvoiceRepo struct {
	invoices map[int64]Invoice
	nextID   int64
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[int64]Invoice), nextID: 1}
}

func (f *fakeInvoiceRepo) CreateInvoice(_ context.Context, inv Invoice) (*Invoice, error) {
	for _, existing := range f.invoices {
		if existing.POID == inv.POID && existing.Year == inv.Year && existing.Month == inv.Month {
			return nil, fmt.Errorf("%w: po %d period %04d-%02d", shared.ErrDuplicateInvoice, inv.POID, inv.Year, inv.Month)
		}
	}
	inv.ID = f.nextID
	f.nextID++
	inv.Paid = decimal.Zero
	inv.CreatedAt = time.Now()
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
	}
	f.invoices[inv.ID] = inv
	return &inv, nil
}

func (f *fakeInvoiceRepo) GetInvoice(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return &inv, nil
}

func (f *fakeInvoiceRepo) ListInvoices(_ context.Context, filter ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range f.invoices {
		if filter.CompanyID != 0 && inv.CompanyID != filter.CompanyID {
			continue
		}
		if filter.POID != 0 && inv.POID != filter.POID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeInvoiceRepo) UpdatePayment(_ context.Context, id int64, paid decimal.Decimal) (*Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	inv.Paid = paid
	f.invoices[id] = inv
	return &inv, nil
}

type fakeCompanies struct {
	companies map[int64]masterdata.Company
}

func (f *fakeCompanies) GetCompany(_ context.Context, id int64) (*masterdata.Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, fmt.Errorf("%w: company %d", shared.ErrNotFound, id)
	}
	return &c, nil
}

type fakePOs struct {
	orders    map[int64]po.PurchaseOrder
	employees map[int64][]po.Employee
}

func (f *fakePOs) GetPurchaseOrder(_ context.Context, id int64) (*po.PurchaseOrder, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	return &o, nil
}

func (f *fakePOs) ListEmployees(_ context.Context, poID int64) ([]po.Employee, error) {
	return f.employees[poID], nil
}

type capturedEvent struct {
	number string
	email  string
}

type fakeNotifier struct {
	events []capturedEvent
}

func (f *fakeNotifier) InvoiceIssued(_ context.Context, inv Invoice, email string) error {
	f.events = append(f.events, capturedEvent{number: inv.Number, email: email})
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeInvoiceRepo
	notifier *fakeNotifier
}

func newFixture(t *testing.T, entity tax.EntityType, client tax.ClientType) fixture {
	t.Helper()
	companies := &fakeCompanies{companies: map[int64]masterdata.Company{
		1: {
			ID:         1,
			Name:       "Meridian Analytics",
			EntityType: entity,
			ClientType: client,
			Email:      "billing@meridian.example",
			Active:     true,
		},
	}}
	pos := &fakePOs{
		orders: map[int64]po.PurchaseOrder{
			10: {
				ID:         10,
				CompanyID:  1,
				Number:     "PO-2026-014",
				Value:      decimal.RequireFromString("1200000"),
				FromDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				ToDate:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
				HourlyRate: decimal.RequireFromString("160"),
				Rates:      tax.DefaultRates(),
			},
		},
		employees: map[int64][]po.Employee{
			10: {{ID: 100, POID: 10, Name: "Ravi Kumar", Email: "ravi@meridian.example"}},
		},
	}
	repo := newFakeInvoiceRepo()
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, repo, companies, pos, nil, notifier, nil, decimal.RequireFromString("85"))
	return fixture{svc: svc, repo: repo, notifier: notifier}
}

// sheetFor builds a timesheet with the given full-day count for an employee.
func sheetFor(name string, fullDays int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Employee,%s\n", name)
	b.WriteString("Location,Hyderabad\n")
	b.WriteString("Date,Regular hours worked\n")
	for i := 0; i < fullDays; i++ {
		fmt.Fprintf(&b, "2026-03-%02d,8\n", i+1)
	}
	return []byte(b.String())
}

func request(files ...timesheet.File) GenerateRequest {
	return GenerateRequest{CompanyID: 1, POID: 10, Month: 3, Year: 2026, Files: files}
}

func raviFile(fullDays int) timesheet.File {
	return timesheet.File{EmployeeID: 100, Name: "100_ravi_kumar.csv", Data: sheetFor("Ravi Kumar", fullDays)}
}

func TestGenerateSameStateSplitsGST(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	inv, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.NoError(t, err)

	// 1200000 over 12 months is 100000; 20 of 20 days worked bills it all.
	require.Equal(t, "100000.00", inv.Subtotal.StringFixed(2))
	require.Equal(t, "9000.00", inv.CGST.StringFixed(2))
	require.Equal(t, "9000.00", inv.SGST.StringFixed(2))
	require.True(t, inv.IGST.IsZero())
	require.Equal(t, "118000.00", inv.Total.StringFixed(2))
	require.Equal(t, inv.Total.StringFixed(2), inv.TotalINR.StringFixed(2))
	require.Equal(t, CurrencyINR, inv.Currency)
	require.Equal(t, tax.RegimeDomesticSameState, inv.Regime)
	require.Equal(t, "INV-1-10-202603", inv.Number)
	require.Equal(t, StatusIssued, inv.DerivedStatus())
}

func TestGenerateOtherStateChargesIGST(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticTech, tax.ClientOtherState)

	inv, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.NoError(t, err)
	require.Equal(t, "18000.00", inv.IGST.StringFixed(2))
	require.True(t, inv.CGST.IsZero())
	require.True(t, inv.SGST.IsZero())
	require.Equal(t, "118000.00", inv.TotalINR.StringFixed(2))
}

func TestGenerateProratesPartialAttendance(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	file := timesheet.File{EmployeeID: 100, Name: "100_ravi_kumar.csv", Data: []byte(
		"Employee,Ravi Kumar\n" +
			"Date,Regular hours worked\n" +
			"2026-03-02,8\n" +
			"2026-03-03,6\n" + // half day
			"2026-03-04,2\n" + // no credit
			"2026-03-05,8\n",
	)}
	inv, err := fx.svc.Generate(context.Background(), request(file))
	require.NoError(t, err)

	// 100000 / 4 day rows * 2.5 credited days.
	require.Equal(t, "62500.00", inv.Lines[0].Amount.StringFixed(2))
	require.Equal(t, "2.5", inv.Lines[0].WorkedDays.String())
	require.Equal(t, 4, inv.Lines[0].TotalDays)
}

func TestGenerateForeignBillsHourlyInUSD(t *testing.T) {
	fx := newFixture(t, tax.EntityForeignUS, tax.ClientForeign)

	file := timesheet.File{EmployeeID: 100, Name: "100_ravi_kumar.csv", Data: []byte(
		"Employee,Ravi Kumar\n" +
			"Date,Regular hours worked\n" +
			"2026-03-02,8\n" +
			"2026-03-03,8\n" +
			"2026-03-04,9\n",
	)}
	inv, err := fx.svc.Generate(context.Background(), request(file))
	require.NoError(t, err)

	// 25 hours at $160 is $4000, settled at 85 INR per USD.
	require.Equal(t, CurrencyUSD, inv.Currency)
	require.Equal(t, "4000.00", inv.Total.StringFixed(2))
	require.Equal(t, "340000.00", inv.TotalINR.StringFixed(2))
	require.True(t, inv.CGST.IsZero())
	require.True(t, inv.SGST.IsZero())
	require.True(t, inv.IGST.IsZero())
	require.Equal(t, "160.00", inv.Lines[0].Rate.StringFixed(2))
}

func TestGenerateDuplicatePeriodRejected(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	_, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.NoError(t, err)

	_, err = fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.ErrorIs(t, err, shared.ErrDuplicateInvoice)
}

func TestGenerateMissingTimesheetNamesEmployee(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	_, err := fx.svc.Generate(context.Background(), request())
	require.ErrorIs(t, err, shared.ErrMissingTimesheet)
	require.Contains(t, err.Error(), "Ravi Kumar")
}

func TestGenerateUnassignedFileRejected(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	stray := timesheet.File{EmployeeID: 999, Name: "999_someone_else.csv", Data: sheetFor("Someone Else", 5)}
	_, err := fx.svc.Generate(context.Background(), request(raviFile(20), stray))
	require.ErrorIs(t, err, shared.ErrEmployeeMismatch)
}

func TestGeneratePeriodOutsidePORejected(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	req := request(raviFile(20))
	req.Month, req.Year = 2, 2027
	_, err := fx.svc.Generate(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)

	req.Month, req.Year = 13, 2026
	_, err = fx.svc.Generate(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)
}

func TestGenerateInactiveCompanyRejected(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)
	companies := fx.svc.companies.(*fakeCompanies)
	c := companies.companies[1]
	c.Active = false
	companies.companies[1] = c

	_, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestGenerateEmitsIssuedEvent(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	inv, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.NoError(t, err)
	require.Len(t, fx.notifier.events, 1)
	require.Equal(t, inv.Number, fx.notifier.events[0].number)
	require.Equal(t, "billing@meridian.example", fx.notifier.events[0].email)
}

func TestRecordPaymentRecomputesDue(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	inv, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.NoError(t, err)

	updated, err := fx.svc.RecordPayment(context.Background(), inv.ID, decimal.RequireFromString("100000"))
	require.NoError(t, err)
	require.Equal(t, "18000.00", updated.Due().StringFixed(2))
	require.Equal(t, StatusPartiallyPaid, updated.DerivedStatus())

	// Overpayment floors due at zero rather than going negative.
	updated, err = fx.svc.RecordPayment(context.Background(), inv.ID, decimal.RequireFromString("120000"))
	require.NoError(t, err)
	require.Equal(t, "0.00", updated.Due().StringFixed(2))
	require.Equal(t, StatusPaid, updated.DerivedStatus())

	_, err = fx.svc.RecordPayment(context.Background(), inv.ID, decimal.RequireFromString("-1"))
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = fx.svc.RecordPayment(context.Background(), 999, decimal.RequireFromString("10"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetReturnsStableDerivedFigures(t *testing.T) {
	fx := newFixture(t, tax.EntityDomesticServices, tax.ClientSameState)

	inv, err := fx.svc.Generate(context.Background(), request(raviFile(20)))
	require.NoError(t, err)

	first, err := fx.svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	second, err := fx.svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, first.Due().String(), second.Due().String())
	require.Equal(t, first.DerivedStatus(), second.DerivedStatus())
	require.Equal(t, first.TotalINR.String(), second.TotalINR.String())
}

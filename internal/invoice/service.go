package invoice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/masterdata"
	"github.com/crestline-hq/crestline/internal/observability"
	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/internal/shared"
	"github.com/crestline-hq/crestline/internal/tax"
	"github.com/crestline-hq/crestline/internal/timesheet"
)

// RepositoryPort defines data access methods for invoices.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv Invoice) (*Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
	UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal) (*Invoice, error)
}

// CompanyReader exposes the onboarding data the generator needs.
type CompanyReader interface {
	GetCompany(ctx context.Context, id int64) (*masterdata.Company, error)
}

// POReader exposes purchase orders and their employee assignments.
type POReader interface {
	GetPurchaseOrder(ctx context.Context, id int64) (*po.PurchaseOrder, error)
	ListEmployees(ctx context.Context, poID int64) ([]po.Employee, error)
}

// Notifier publishes invoice lifecycle events. Delivery is best effort and
// never blocks generation.
type Notifier interface {
	InvoiceIssued(ctx context.Context, inv Invoice, companyEmail string) error
}

// Renderer produces downloadable invoice documents.
type Renderer interface {
	HTML(inv Invoice, company masterdata.Company) ([]byte, error)
	PDF(ctx context.Context, inv Invoice, company masterdata.Company) ([]byte, error)
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	CompanyID  int64
	POID       int64
	Year       int
	Month      int
	EntityType tax.EntityType
}

// GenerateRequest carries everything needed to bill one PO for one month.
type GenerateRequest struct {
	CompanyID int64
	POID      int64
	Month     int
	Year      int
	Files     []timesheet.File
}

// Service computes, persists and serves invoices.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	companies CompanyReader
	pos       POReader
	renderer  Renderer
	notifier  Notifier
	metrics   *observability.Metrics
	fxUSDINR  decimal.Decimal
}

// NewService builds a Service instance. notifier and metrics may be nil.
func NewService(logger *slog.Logger, repo RepositoryPort, companies CompanyReader, pos POReader, renderer Renderer, notifier Notifier, metrics *observability.Metrics, fxUSDINR decimal.Decimal) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		companies: companies,
		pos:       pos,
		renderer:  renderer,
		notifier:  notifier,
		metrics:   metrics,
		fxUSDINR:  fxUSDINR,
	}
}

// Generate bills one purchase order for one calendar month. The company's
// tax regime is re-derived from its entity and client types on every run, so
// a masterdata correction takes effect on the next invoice without a
// migration. Generation is all or nothing: any timesheet problem aborts
// before anything is written.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Invoice, error) {
	if req.Month < 1 || req.Month > 12 || req.Year < 2000 {
		return nil, fmt.Errorf("%w: month %d year %d", shared.ErrInvalidPeriod, req.Month, req.Year)
	}

	company, err := s.companies.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if !company.Active {
		return nil, fmt.Errorf("%w: company %q is inactive", shared.ErrConfiguration, company.Name)
	}

	order, err := s.pos.GetPurchaseOrder(ctx, req.POID)
	if err != nil {
		return nil, err
	}
	if order.CompanyID != company.ID {
		return nil, fmt.Errorf("%w: po %d does not belong to company %d", shared.ErrNotFound, req.POID, req.CompanyID)
	}

	regime, err := tax.Resolve(company.EntityType, company.ClientType)
	if err != nil {
		return nil, err
	}

	if !order.ContainsPeriod(req.Month, req.Year) {
		return nil, fmt.Errorf("%w: %04d-%02d outside po %s (%s to %s)",
			shared.ErrInvalidPeriod, req.Year, req.Month, order.Number,
			order.FromDate.Format("2006-01-02"), order.ToDate.Format("2006-01-02"))
	}

	employees, err := s.pos.ListEmployees(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("%w: po %s has no employee assignments", shared.ErrConfiguration, order.Number)
	}

	records, err := s.ingest(employees, req.Files)
	if err != nil {
		return nil, err
	}

	inv, err := s.compute(*company, *order, regime, req.Month, req.Year, employees, records)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateInvoice(ctx, *inv)
	if err != nil {
		return nil, err
	}

	taxINR, _ := created.TaxTotal().Float64()
	if created.Currency != CurrencyINR {
		taxINR = 0
	}
	s.metrics.InvoiceGenerated(string(created.Regime), taxINR)
	s.logger.Info("invoice generated",
		slog.String("number", created.Number),
		slog.String("regime", string(created.Regime)),
		slog.String("total_inr", created.TotalINR.StringFixed(2)))

	if s.notifier != nil {
		if err := s.notifier.InvoiceIssued(ctx, *created, company.Email); err != nil {
			s.logger.Warn("invoice issued notification failed",
				slog.String("number", created.Number), slog.Any("error", err))
		}
	}
	return created, nil
}

// ingest checks timesheet coverage and parses every file. Each assigned
// employee must have exactly one file, and no file may reference an employee
// outside the PO.
func (s *Service) ingest(employees []po.Employee, files []timesheet.File) (map[int64]timesheet.Record, error) {
	expected := make(map[int64]string, len(employees))
	for _, emp := range employees {
		expected[emp.ID] = emp.Name
	}
	seen := make(map[int64]bool, len(files))
	for _, f := range files {
		if _, ok := expected[f.EmployeeID]; !ok {
			return nil, fmt.Errorf("%w: file %q references employee %d not assigned to this po",
				shared.ErrEmployeeMismatch, f.Name, f.EmployeeID)
		}
		seen[f.EmployeeID] = true
	}
	for _, emp := range employees {
		if !seen[emp.ID] {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingTimesheet, emp.Name)
		}
	}
	return timesheet.IngestAll(files, expected)
}

// compute builds the invoice in memory. Domestic entities bill a worked-day
// share of the amortized monthly budget plus GST; the foreign entity bills
// hours at the PO rate in USD with no tax and settles at the configured
// conversion rate.
func (s *Service) compute(company masterdata.Company, order po.PurchaseOrder, regime tax.Regime, month, year int, employees []po.Employee, records map[int64]timesheet.Record) (*Invoice, error) {
	inv := &Invoice{
		Number:     fmt.Sprintf("INV-%d-%d-%04d%02d", company.ID, order.ID, year, month),
		CompanyID:  company.ID,
		POID:       order.ID,
		EntityType: company.EntityType,
		Regime:     regime,
		Month:      month,
		Year:       year,
	}

	subtotal := decimal.Zero
	if regime == tax.RegimeForeign {
		if order.HourlyRate.IsZero() {
			return nil, fmt.Errorf("%w: po %s has no hourly rate", shared.ErrConfiguration, order.Number)
		}
		inv.Currency = CurrencyUSD
		for _, emp := range employees {
			rec := records[emp.ID]
			amount := rec.TotalHours.Mul(order.HourlyRate).Round(2)
			inv.Lines = append(inv.Lines, Line{
				EmployeeID:   emp.ID,
				EmployeeName: emp.Name,
				Hours:        rec.TotalHours,
				TotalDays:    rec.TotalDays,
				WorkedDays:   rec.WorkedDays,
				Rate:         order.HourlyRate,
				Amount:       amount,
			})
			subtotal = subtotal.Add(amount)
		}
		inv.Subtotal = subtotal
		inv.Total = subtotal
		inv.TotalINR = subtotal.Mul(s.fxUSDINR).Round(2)
		return inv, nil
	}

	budget, ok := order.MonthlyBudget()
	if !ok {
		return nil, fmt.Errorf("%w: po %s has no amortizable date range", shared.ErrConfiguration, order.Number)
	}
	inv.Currency = CurrencyINR
	for _, emp := range employees {
		rec := records[emp.ID]
		if rec.TotalDays == 0 {
			return nil, fmt.Errorf("%w: %s has no day entries", shared.ErrMalformedTimesheet, rec.SourceFile)
		}
		amount := budget.Div(decimal.NewFromInt(int64(rec.TotalDays))).Mul(rec.WorkedDays).Round(2)
		inv.Lines = append(inv.Lines, Line{
			EmployeeID:   emp.ID,
			EmployeeName: emp.Name,
			Hours:        rec.TotalHours,
			TotalDays:    rec.TotalDays,
			WorkedDays:   rec.WorkedDays,
			Amount:       amount,
		})
		subtotal = subtotal.Add(amount)
	}

	breakdown := regime.Apply(subtotal, order.Rates)
	inv.Subtotal = subtotal
	inv.CGST = breakdown.CGST
	inv.SGST = breakdown.SGST
	inv.IGST = breakdown.IGST
	inv.Total = subtotal.Add(breakdown.Total())
	inv.TotalINR = inv.Total
	return inv, nil
}

// Get loads one invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// List returns invoices matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// RecordPayment sets the INR amount received to date. The stored figure is
// the cumulative total, not an increment, matching what accounts reads off
// the bank statement.
func (s *Service) RecordPayment(ctx context.Context, id int64, paid decimal.Decimal) (*Invoice, error) {
	if paid.IsNegative() {
		return nil, fmt.Errorf("%w: paid amount %s is negative", shared.ErrInvalidAmount, paid.String())
	}
	inv, err := s.repo.UpdatePayment(ctx, id, paid)
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentRecorded()
	s.logger.Info("payment recorded",
		slog.String("number", inv.Number),
		slog.String("paid", inv.Paid.StringFixed(2)),
		slog.String("due", inv.Due().StringFixed(2)))
	return inv, nil
}

// RenderDocument produces the invoice document in the requested format.
func (s *Service) RenderDocument(ctx context.Context, id int64, format string) ([]byte, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	company, err := s.companies.GetCompany(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	switch format {
	case "pdf":
		return s.renderer.PDF(ctx, *inv, *company)
	case "msword":
		return s.renderer.HTML(*inv, *company)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrRender, format)
	}
}

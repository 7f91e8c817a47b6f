package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/internal/shared"
	"github.com/crestline-hq/crestline/internal/tax"
)

// RepositoryPort defines the persistence methods used by the service.
type RepositoryPort interface {
	CreateCompany(ctx context.Context, company Company, orders []po.PurchaseOrder, employees map[int][]po.Employee) (*Company, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	CountPurchaseOrders(ctx context.Context, companyID int64) (int, error)
	ListPurchaseOrders(ctx context.Context, companyID int64) ([]po.PurchaseOrder, error)
	ListEmployees(ctx context.Context, poID int64) ([]po.Employee, error)
	SetCompanyActive(ctx context.Context, id int64, active bool) error
}

// Service handles onboarding business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateCompany onboards a company with its purchase orders and employee
// assignments in a single atomic write. A foreign entity forces the client
// type to foreign; domestic entities must carry an explicit state setting so
// the tax regime is always resolvable at invoice time.
func (s *Service) CreateCompany(ctx context.Context, req CreateCompanyRequest) (*Company, error) {
	entity := tax.EntityType(req.EntityType)
	client := tax.ClientType(req.ClientType)
	if entity.Foreign() {
		client = tax.ClientForeign
	}
	if _, err := tax.Resolve(entity, client); err != nil {
		return nil, err
	}

	company := Company{
		Name:          req.Name,
		EntityType:    entity,
		ClientType:    client,
		ContactNumber: req.ContactNumber,
		BuildingNo:    req.BuildingNo,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		PinCode:       req.PinCode,
		GSTIN:         req.GSTIN,
		SAC:           req.SAC,
		Email:         req.Email,
		Active:        true,
	}

	orders := make([]po.PurchaseOrder, 0, len(req.PurchaseOrders))
	employees := make(map[int][]po.Employee, len(req.PurchaseOrders))
	for i, poReq := range req.PurchaseOrders {
		order, emps, err := buildPurchaseOrder(poReq)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		employees[i] = emps
	}

	return s.repo.CreateCompany(ctx, company, orders, employees)
}

// GetCompany fetches one company.
func (s *Service) GetCompany(ctx context.Context, id int64) (*Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// ListCompanies returns every onboarded company.
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.repo.ListCompanies(ctx)
}

// CountPurchaseOrders returns the number of POs under a company.
func (s *Service) CountPurchaseOrders(ctx context.Context, companyID int64) (int, error) {
	return s.repo.CountPurchaseOrders(ctx, companyID)
}

// ListPurchaseOrders returns the POs owned by a company.
func (s *Service) ListPurchaseOrders(ctx context.Context, companyID int64) ([]po.PurchaseOrder, error) {
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.ListPurchaseOrders(ctx, companyID)
}

// ListEmployees returns the assignments under a purchase order.
func (s *Service) ListEmployees(ctx context.Context, poID int64) ([]po.Employee, error) {
	return s.repo.ListEmployees(ctx, poID)
}

// SetCompanyActive toggles the active flag.
func (s *Service) SetCompanyActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.repo.GetCompany(ctx, id); err != nil {
		return err
	}
	return s.repo.SetCompanyActive(ctx, id, active)
}

func buildPurchaseOrder(req CreatePurchaseOrderRequest) (po.PurchaseOrder, []po.Employee, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil || value.IsNegative() {
		return po.PurchaseOrder{}, nil, fmt.Errorf("%w: po %s value %q", shared.ErrInvalidAmount, req.Number, req.Value)
	}
	from, err := parseDate(req.FromDate)
	if err != nil {
		return po.PurchaseOrder{}, nil, fmt.Errorf("po %s: from_date: %w", req.Number, err)
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		return po.PurchaseOrder{}, nil, fmt.Errorf("po %s: to_date: %w", req.Number, err)
	}
	if _, err := po.MonthSpan(from, to); err != nil {
		return po.PurchaseOrder{}, nil, err
	}

	rates := tax.DefaultRates()
	if rates.IGST, err = rateOrDefault(req.IGST, rates.IGST); err != nil {
		return po.PurchaseOrder{}, nil, err
	}
	if rates.CGST, err = rateOrDefault(req.CGST, rates.CGST); err != nil {
		return po.PurchaseOrder{}, nil, err
	}
	if rates.SGST, err = rateOrDefault(req.SGST, rates.SGST); err != nil {
		return po.PurchaseOrder{}, nil, err
	}

	hourlyRate := decimal.Zero
	if req.HourlyRate != "" {
		if hourlyRate, err = decimal.NewFromString(req.HourlyRate); err != nil || hourlyRate.IsNegative() {
			return po.PurchaseOrder{}, nil, fmt.Errorf("%w: po %s hourly rate %q", shared.ErrInvalidAmount, req.Number, req.HourlyRate)
		}
	}

	order := po.PurchaseOrder{
		Number:     req.Number,
		Value:      value,
		FromDate:   from,
		ToDate:     to,
		HourlyRate: hourlyRate,
		Rates:      rates,
	}

	employees := make([]po.Employee, 0, len(req.Employees))
	for _, empReq := range req.Employees {
		doj := time.Time{}
		if empReq.DateOfJoining != "" {
			if doj, err = parseDate(empReq.DateOfJoining); err != nil {
				return po.PurchaseOrder{}, nil, fmt.Errorf("employee %s: date_of_joining: %w", empReq.Name, err)
			}
		}
		employees = append(employees, po.Employee{
			Name:           empReq.Name,
			Email:          empReq.Email,
			Location:       empReq.Location,
			DateOfJoining:  doj,
			VendorPOCName:  empReq.VendorPOCName,
			VendorPOCEmail: empReq.VendorPOCEmail,
			ClientPOCName:  empReq.ClientPOCName,
			ClientPOCEmail: empReq.ClientPOCEmail,
		})
	}
	return order, employees, nil
}

func rateOrDefault(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: tax rate %q", shared.ErrInvalidAmount, raw)
	}
	return rate, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

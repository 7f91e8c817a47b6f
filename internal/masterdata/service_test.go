package masterdata

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/internal/shared"
	"github.com/crestline-hq/crestline/internal/tax"
)

type fakeRepo struct {
	companies map[int64]Company
	orders    map[int64][]po.PurchaseOrder
	employees map[int64][]po.Employee
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		companies: make(map[int64]Company),
		orders:    make(map[int64][]po.PurchaseOrder),
		employees: make(map[int64][]po.Employee),
		nextID:    1,
	}
}

func (f *fakeRepo) CreateCompany(_ context.Context, company Company, orders []po.PurchaseOrder, employees map[int][]po.Employee) (*Company, error) {
	company.ID = f.nextID
	f.nextID++
	f.companies[company.ID] = company
	for i := range orders {
		orders[i].ID = f.nextID
		orders[i].CompanyID = company.ID
		f.nextID++
		f.orders[company.ID] = append(f.orders[company.ID], orders[i])
		for _, emp := range employees[i] {
			emp.POID = orders[i].ID
			f.employees[orders[i].ID] = append(f.employees[orders[i].ID], emp)
		}
	}
	return &company, nil
}

func (f *fakeRepo) GetCompany(_ context.Context, id int64) (*Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, fmt.Errorf("%w: company %d", shared.ErrNotFound, id)
	}
	return &c, nil
}

func (f *fakeRepo) ListCompanies(_ context.Context) ([]Company, error) {
	var out []Company
	for _, c := range f.companies {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) CountPurchaseOrders(_ context.Context, companyID int64) (int, error) {
	return len(f.orders[companyID]), nil
}

func (f *fakeRepo) ListPurchaseOrders(_ context.Context, companyID int64) ([]po.PurchaseOrder, error) {
	return f.orders[companyID], nil
}

func (f *fakeRepo) ListEmployees(_ context.Context, poID int64) ([]po.Employee, error) {
	if _, ok := f.employees[poID]; !ok {
		return nil, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, poID)
	}
	return f.employees[poID], nil
}

func (f *fakeRepo) SetCompanyActive(_ context.Context, id int64, active bool) error {
	c, ok := f.companies[id]
	if !ok {
		return fmt.Errorf("%w: company %d", shared.ErrNotFound, id)
	}
	c.Active = active
	f.companies[id] = c
	return nil
}

func validCompanyRequest() CreateCompanyRequest {
	return CreateCompanyRequest{
		Name:       "Meridian Analytics",
		EntityType: string(tax.EntityDomesticTech),
		ClientType: string(tax.ClientOtherState),
		City:       "Hyderabad",
		State:      "Telangana",
		Country:    "India",
		PinCode:    "500081",
		GSTIN:      "36AABCM1234F1Z5",
		Email:      "billing@meridian.example",
		PurchaseOrders: []CreatePurchaseOrderRequest{
			{
				Number:   "PO-2026-014",
				Value:    "1200000",
				FromDate: "2026-01-01",
				ToDate:   "2026-12-31",
				Employees: []CreateEmployeeRequest{
					{Name: "Ravi Kumar", Email: "ravi@meridian.example", Location: "Hyderabad"},
				},
			},
		},
	}
}

func TestCreateCompanyPersistsNestedOrders(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	company, err := svc.CreateCompany(context.Background(), validCompanyRequest())
	require.NoError(t, err)
	require.True(t, company.Active)
	require.Equal(t, tax.ClientOtherState, company.ClientType)

	orders, err := svc.ListPurchaseOrders(context.Background(), company.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "PO-2026-014", orders[0].Number)
	require.Equal(t, "1200000", orders[0].Value.String())

	budget, ok := orders[0].MonthlyBudget()
	require.True(t, ok)
	require.Equal(t, "100000.00", budget.StringFixed(2))

	employees, err := svc.ListEmployees(context.Background(), orders[0].ID)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	require.Equal(t, "Ravi Kumar", employees[0].Name)

	_, err = svc.ListEmployees(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateCompanyDefaultsTaxRates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	company, err := svc.CreateCompany(context.Background(), validCompanyRequest())
	require.NoError(t, err)

	orders, err := svc.ListPurchaseOrders(context.Background(), company.ID)
	require.NoError(t, err)
	require.Equal(t, "18", orders[0].Rates.IGST.String())
	require.Equal(t, "9", orders[0].Rates.CGST.String())
	require.Equal(t, "9", orders[0].Rates.SGST.String())
}

func TestCreateCompanyForeignEntityForcesForeignClient(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	req := validCompanyRequest()
	req.EntityType = string(tax.EntityForeignUS)
	req.ClientType = string(tax.ClientSameState)
	req.PurchaseOrders[0].HourlyRate = "160"

	company, err := svc.CreateCompany(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, tax.ClientForeign, company.ClientType)
}

func TestCreateCompanyRejectsBadConfiguration(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	req := validCompanyRequest()
	req.EntityType = "offshore_trust"
	_, err := svc.CreateCompany(context.Background(), req)
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrConfiguration)

	req = validCompanyRequest()
	req.ClientType = "foreign"
	_, err = svc.CreateCompany(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestCreateCompanyRejectsBadAmountsAndDates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	req := validCompanyRequest()
	req.PurchaseOrders[0].Value = "-5"
	_, err := svc.CreateCompany(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	req = validCompanyRequest()
	req.PurchaseOrders[0].IGST = "not-a-rate"
	_, err = svc.CreateCompany(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	req = validCompanyRequest()
	req.PurchaseOrders[0].FromDate = "01/15/2026"
	_, err = svc.CreateCompany(context.Background(), req)
	require.Error(t, err)

	req = validCompanyRequest()
	req.PurchaseOrders[0].FromDate = "2026-12-31"
	req.PurchaseOrders[0].ToDate = "2026-01-01"
	_, err = svc.CreateCompany(context.Background(), req)
	require.Error(t, err)
}

func TestSetCompanyActive(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	company, err := svc.CreateCompany(context.Background(), validCompanyRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SetCompanyActive(context.Background(), company.ID, false))
	got, err := svc.GetCompany(context.Background(), company.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	err = svc.SetCompanyActive(context.Background(), 999, true)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

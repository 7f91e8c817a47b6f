package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestline-hq/crestline/internal/platform/db"
	"github.com/crestline-hq/crestline/internal/po"
	"github.com/crestline-hq/crestline/internal/shared"
)

// Repository persists companies and their purchase orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateCompany inserts a company together with its purchase orders and
// employee assignments in one transaction.
func (r *Repository) CreateCompany(ctx context.Context, company Company, orders []po.PurchaseOrder, employees map[int][]po.Employee) (*Company, error) {
	created := company
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO companies (name, entity_type, client_type, contact_number, building_no, city, state, country, pin_code, gstin, sac, email, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, created_at
		`, company.Name, company.EntityType, company.ClientType, company.ContactNumber,
			company.BuildingNo, company.City, company.State, company.Country,
			company.PinCode, company.GSTIN, company.SAC, company.Email, company.Active,
		).Scan(&created.ID, &created.CreatedAt)
		if err != nil {
			return fmt.Errorf("masterdata: insert company: %w", err)
		}

		for i := range orders {
			var poID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO purchase_orders (company_id, number, value, from_date, to_date, hourly_rate, igst_rate, cgst_rate, sgst_rate)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id
			`, created.ID, orders[i].Number, orders[i].Value, orders[i].FromDate, orders[i].ToDate,
				orders[i].HourlyRate, orders[i].Rates.IGST, orders[i].Rates.CGST, orders[i].Rates.SGST,
			).Scan(&poID)
			if err != nil {
				return fmt.Errorf("masterdata: insert purchase order %s: %w", orders[i].Number, err)
			}

			for _, emp := range employees[i] {
				_, err := tx.Exec(ctx, `
					INSERT INTO employees (po_id, name, email, location, date_of_joining, vendor_poc_name, vendor_poc_email, client_poc_name, client_poc_email)
					VALUES ($1, $2, $3, $4, NULLIF($5, '0001-01-01'::date), $6, $7, $8, $9)
				`, poID, emp.Name, emp.Email, emp.Location, emp.DateOfJoining,
					emp.VendorPOCName, emp.VendorPOCEmail, emp.ClientPOCName, emp.ClientPOCEmail)
				if err != nil {
					return fmt.Errorf("masterdata: insert employee %s: %w", emp.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetCompany loads one company by id.
func (r *Repository) GetCompany(ctx context.Context, id int64) (*Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, entity_type, client_type, contact_number, building_no, city, state, country, pin_code, gstin, sac, email, active, created_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.EntityType, &c.ClientType, &c.ContactNumber,
		&c.BuildingNo, &c.City, &c.State, &c.Country, &c.PinCode,
		&c.GSTIN, &c.SAC, &c.Email, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: company %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("masterdata: get company: %w", err)
	}
	return &c, nil
}

// ListCompanies returns all companies ordered by id.
func (r *Repository) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, entity_type, client_type, contact_number, building_no, city, state, country, pin_code, gstin, sac, email, active, created_at
		FROM companies
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.EntityType, &c.ClientType, &c.ContactNumber,
			&c.BuildingNo, &c.City, &c.State, &c.Country, &c.PinCode,
			&c.GSTIN, &c.SAC, &c.Email, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("masterdata: scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// CountPurchaseOrders counts the POs under a company.
func (r *Repository) CountPurchaseOrders(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE company_id = $1`, companyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("masterdata: count purchase orders: %w", err)
	}
	return n, nil
}

// ListPurchaseOrders returns the POs owned by a company ordered by id.
func (r *Repository) ListPurchaseOrders(ctx context.Context, companyID int64) ([]po.PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, number, value, from_date, to_date, hourly_rate, igst_rate, cgst_rate, sgst_rate, created_at
		FROM purchase_orders
		WHERE company_id = $1
		ORDER BY id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []po.PurchaseOrder
	for rows.Next() {
		var o po.PurchaseOrder
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.Number, &o.Value, &o.FromDate, &o.ToDate,
			&o.HourlyRate, &o.Rates.IGST, &o.Rates.CGST, &o.Rates.SGST, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("masterdata: scan purchase order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListEmployees returns the assignments under a purchase order ordered by id.
func (r *Repository) ListEmployees(ctx context.Context, poID int64) ([]po.Employee, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE id = $1)`, poID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("masterdata: check purchase order: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, poID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, po_id, name, email, location, COALESCE(date_of_joining, '0001-01-01'::date), vendor_poc_name, vendor_poc_email, client_poc_name, client_poc_email, created_at
		FROM employees
		WHERE po_id = $1
		ORDER BY id
	`, poID)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list employees: %w", err)
	}
	defer rows.Close()

	var employees []po.Employee
	for rows.Next() {
		var e po.Employee
		if err := rows.Scan(&e.ID, &e.POID, &e.Name, &e.Email, &e.Location, &e.DateOfJoining,
			&e.VendorPOCName, &e.VendorPOCEmail, &e.ClientPOCName, &e.ClientPOCEmail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("masterdata: scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// SetCompanyActive flips the active flag.
func (r *Repository) SetCompanyActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE companies SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("masterdata: set company active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: company %d", shared.ErrNotFound, id)
	}
	return nil
}

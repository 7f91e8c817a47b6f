package po

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestline-hq/crestline/internal/shared"
)

// Repository provides PostgreSQL backed reads for purchase orders and their
// employee assignments. Writes happen through the onboarding module.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPurchaseOrder fetches one PO by id.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	var p PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, number, value, from_date, to_date, hourly_rate, igst_rate, cgst_rate, sgst_rate, created_at
FROM purchase_orders WHERE id=$1`, id).Scan(
		&p.ID, &p.CompanyID, &p.Number, &p.Value, &p.FromDate, &p.ToDate,
		&p.HourlyRate, &p.Rates.IGST, &p.Rates.CGST, &p.Rates.SGST, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("po: get purchase order: %w", err)
	}
	return &p, nil
}

// ListEmployees returns the billable assignments under a PO ordered by id.
func (r *Repository) ListEmployees(ctx context.Context, poID int64) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, name, email, location, COALESCE(date_of_joining, '0001-01-01'::date), vendor_poc_name, vendor_poc_email, client_poc_name, client_poc_email, created_at
FROM employees WHERE po_id=$1 ORDER BY id`, poID)
	if err != nil {
		return nil, fmt.Errorf("po: list employees: %w", err)
	}
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.POID, &e.Name, &e.Email, &e.Location, &e.DateOfJoining,
			&e.VendorPOCName, &e.VendorPOCEmail, &e.ClientPOCName, &e.ClientPOCEmail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("po: scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("po: list employees: %w", err)
	}
	return employees, nil
}

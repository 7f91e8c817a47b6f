package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/platform/db"
	"github.com/crestline-hq/crestline/internal/shared"
)

// Repository persists invoices in PostgreSQL. A unique index on
// (po_id, year, month) is the write-side guarantee that a period is billed
// once.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, number, company_id, po_id, entity_type, regime, month, year, currency,
	subtotal, cgst, sgst, igst, total, total_inr, paid, created_at`

// CreateInvoice inserts the invoice and its lines in one transaction.
func (r *Repository) CreateInvoice(ctx context.Context, inv Invoice) (*Invoice, error) {
	created := inv
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (number, company_id, po_id, entity_type, regime, month, year, currency, subtotal, cgst, sgst, igst, total, total_inr, paid)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0)
			RETURNING id, paid, created_at
		`, inv.Number, inv.CompanyID, inv.POID, inv.EntityType, inv.Regime, inv.Month, inv.Year,
			inv.Currency, inv.Subtotal, inv.CGST, inv.SGST, inv.IGST, inv.Total, inv.TotalINR,
		).Scan(&created.ID, &created.Paid, &created.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: po %d period %04d-%02d", shared.ErrDuplicateInvoice, inv.POID, inv.Year, inv.Month)
			}
			return fmt.Errorf("invoice: insert: %w", err)
		}

		for i := range created.Lines {
			line := &created.Lines[i]
			line.InvoiceID = created.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_lines (invoice_id, employee_id, employee_name, hours, total_days, worked_days, rate, amount)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id
			`, line.InvoiceID, line.EmployeeID, line.EmployeeName, line.Hours,
				line.TotalDays, line.WorkedDays, line.Rate, line.Amount,
			).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("invoice: insert line for employee %d: %w", line.EmployeeID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetInvoice loads one invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("invoice: get: %w", err)
	}
	if inv.Lines, err = r.listLines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns invoices matching the filter, newest first, without
// their lines.
func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	if filter.CompanyID != 0 {
		args = append(args, filter.CompanyID)
		query += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if filter.POID != 0 {
		args = append(args, filter.POID)
		query += fmt.Sprintf(" AND po_id = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(" AND year = $%d", len(args))
	}
	if filter.Month != 0 {
		args = append(args, filter.Month)
		query += fmt.Sprintf(" AND month = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("invoice: list: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("invoice: scan: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// UpdatePayment sets the cumulative paid amount and returns the updated
// invoice with lines.
func (r *Repository) UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE invoices SET paid = $2 WHERE id = $1
		RETURNING `+invoiceColumns, id, paid)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("invoice: update payment: %w", err)
	}
	if inv.Lines, err = r.listLines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *Repository) listLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, employee_id, employee_name, hours, total_days, worked_days, rate, amount
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice: list lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.EmployeeID, &l.EmployeeName,
			&l.Hours, &l.TotalDays, &l.WorkedDays, &l.Rate, &l.Amount); err != nil {
			return nil, fmt.Errorf("invoice: scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CompanyID, &inv.POID, &inv.EntityType, &inv.Regime,
		&inv.Month, &inv.Year, &inv.Currency, &inv.Subtotal, &inv.CGST, &inv.SGST, &inv.IGST,
		&inv.Total, &inv.TotalINR, &inv.Paid, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colisflow/colisflow/internal/platform/db"
	"github.com/colisflow/colisflow/internal/tenants"
)

// Repository provides PostgreSQL backed persistence for monthly invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveGenerated upserts the invoice for (tenant, month) and replaces its line
// set, all inside one transaction. The existing row is locked first so
// concurrent generations for the same month serialise instead of racing the
// check-then-insert. A new invoice claims the tenant's next number; a
// regeneration keeps its number and leaves the counter untouched.
func (r *Repository) SaveGenerated(ctx context.Context, inv GeneratedInvoice) (SavedInvoice, error) {
	var saved SavedInvoice

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const findQuery = `
			SELECT id, invoice_number
			FROM invoices_monthly
			WHERE tenant_id = $1 AND month = $2
			FOR UPDATE`

		var existingID uuid.UUID
		var existingNumber string
		err := tx.QueryRow(ctx, findQuery, inv.TenantID, inv.Month).Scan(&existingID, &existingNumber)
		switch {
		case err == nil:
			const updateQuery = `
				UPDATE invoices_monthly
				SET subtotal_ht = $2, vat_amount = $3, total_ttc = $4,
				    shipment_count = $5, missing_pricing_count = $6, returns_count = $7,
				    status = 'draft', updated_at = NOW()
				WHERE id = $1`
			if _, err := tx.Exec(ctx, updateQuery,
				existingID, inv.SubtotalHT, inv.VATAmount, inv.TotalTTC,
				inv.ShipmentCount, inv.MissingPricingCount, inv.ReturnsCount,
			); err != nil {
				return fmt.Errorf("invoices: update invoice: %w", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, existingID); err != nil {
				return fmt.Errorf("invoices: delete lines: %w", err)
			}
			saved = SavedInvoice{ID: existingID, InvoiceNumber: existingNumber}

		case errors.Is(err, pgx.ErrNoRows):
			number, err := tenants.AllocateInvoiceNumber(ctx, tx, inv.TenantID)
			if err != nil {
				return err
			}
			var prefix string
			if err := tx.QueryRow(ctx,
				`SELECT invoice_prefix FROM tenant_settings WHERE tenant_id = $1`, inv.TenantID,
			).Scan(&prefix); err != nil {
				return fmt.Errorf("invoices: read invoice prefix: %w", err)
			}

			id := uuid.New()
			invoiceNumber := fmt.Sprintf("%s-%04d", prefix, number)
			const insertQuery = `
				INSERT INTO invoices_monthly (
					id, tenant_id, month, invoice_number,
					subtotal_ht, vat_amount, total_ttc,
					shipment_count, missing_pricing_count, returns_count,
					status, created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'draft', NOW(), NOW())`
			if _, err := tx.Exec(ctx, insertQuery,
				id, inv.TenantID, inv.Month, invoiceNumber,
				inv.SubtotalHT, inv.VATAmount, inv.TotalTTC,
				inv.ShipmentCount, inv.MissingPricingCount, inv.ReturnsCount,
			); err != nil {
				return fmt.Errorf("invoices: insert invoice: %w", err)
			}
			saved = SavedInvoice{ID: id, InvoiceNumber: invoiceNumber, Created: true}

		default:
			return fmt.Errorf("invoices: find invoice: %w", err)
		}

		const lineQuery = `
			INSERT INTO invoice_lines (
				id, tenant_id, invoice_id, line_type, description,
				carrier, weight_min_grams, weight_max_grams,
				quantity, unit_price_eur, total_eur, vat_amount
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
		for _, line := range inv.Lines {
			if _, err := tx.Exec(ctx, lineQuery,
				uuid.New(), inv.TenantID, saved.ID, line.Type, line.Description,
				line.Carrier, line.WeightMinGrams, line.WeightMaxGrams,
				line.Quantity, line.UnitPriceEUR, line.TotalEUR, line.VATAmount,
			); err != nil {
				return fmt.Errorf("invoices: insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return SavedInvoice{}, err
	}
	return saved, nil
}

const invoiceColumns = `
	id, tenant_id, month, invoice_number, subtotal_ht, vat_amount, total_ttc,
	shipment_count, missing_pricing_count, returns_count, status, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.Month,
		&inv.InvoiceNumber,
		&inv.SubtotalHT,
		&inv.VATAmount,
		&inv.TotalTTC,
		&inv.ShipmentCount,
		&inv.MissingPricingCount,
		&inv.ReturnsCount,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}

// GetInvoice loads one invoice header.
func (r *Repository) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices_monthly WHERE tenant_id = $1 AND id = $2`
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: get invoice: %w", err)
	}
	return inv, nil
}

// GetInvoiceWithLines loads an invoice and its lines in insertion order.
func (r *Repository) GetInvoiceWithLines(ctx context.Context, tenantID, id uuid.UUID) (InvoiceWithLines, error) {
	inv, err := r.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return InvoiceWithLines{}, err
	}

	const lineQuery = `
		SELECT id, invoice_id, line_type, description,
		       carrier, weight_min_grams, weight_max_grams,
		       quantity, unit_price_eur, total_eur, vat_amount
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, lineQuery, id)
	if err != nil {
		return InvoiceWithLines{}, fmt.Errorf("invoices: list lines: %w", err)
	}
	defer rows.Close()

	out := InvoiceWithLines{Invoice: inv}
	for rows.Next() {
		var line Line
		if err := rows.Scan(
			&line.ID,
			&line.InvoiceID,
			&line.Type,
			&line.Description,
			&line.Carrier,
			&line.WeightMinGrams,
			&line.WeightMaxGrams,
			&line.Quantity,
			&line.UnitPriceEUR,
			&line.TotalEUR,
			&line.VATAmount,
		); err != nil {
			return InvoiceWithLines{}, fmt.Errorf("invoices: scan line: %w", err)
		}
		out.Lines = append(out.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return InvoiceWithLines{}, fmt.Errorf("invoices: iterate lines: %w", err)
	}
	return out, nil
}

// ListInvoices returns a tenant's invoices, newest month first.
func (r *Repository) ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices_monthly WHERE tenant_id = $1 ORDER BY month DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("invoices: scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invoices: iterate invoices: %w", err)
	}
	return out, nil
}

// UpdateStatus moves an invoice to a new lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	const query = `
		UPDATE invoices_monthly
		SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, tenantID, id, status)
	if err != nil {
		return fmt.Errorf("invoices: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colisflow/colisflow/internal/billing"
)

// Repository provides PostgreSQL backed access to tenant master data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetTenant loads a tenant's identity fields.
func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	const query = `SELECT id, name, code, COALESCE(siren, '') FROM tenants WHERE id = $1`

	var t Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Code, &t.Siren)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, fmt.Errorf("tenants: get tenant: %w", err)
	}
	return t, nil
}

// GetSettings loads invoice numbering settings, falling back to defaults when
// the tenant has no settings row yet.
func (r *Repository) GetSettings(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	const query = `
		SELECT invoice_prefix, invoice_next_number, default_vat_rate
		FROM tenant_settings
		WHERE tenant_id = $1`

	var s Settings
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(&s.InvoicePrefix, &s.InvoiceNextNumber, &s.DefaultVATRatePct)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("tenants: get settings: %w", err)
	}
	return s, nil
}

// GetBillingConfig loads the tenant fee schedule, falling back to the default
// schedule when no row exists.
func (r *Repository) GetBillingConfig(ctx context.Context, tenantID uuid.UUID) (billing.Config, error) {
	const query = `
		SELECT software_fee_eur, storage_fee_per_m3, reception_fee_per_15min,
		       fuel_surcharge_pct, return_fee_eur, free_returns_pct, vat_rate_pct
		FROM tenant_billing_config
		WHERE tenant_id = $1`

	var cfg billing.Config
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&cfg.SoftwareFeeEUR,
		&cfg.StorageFeePerM3,
		&cfg.ReceptionFeePer15Min,
		&cfg.FuelSurchargePct,
		&cfg.ReturnFeeEUR,
		&cfg.FreeReturnsPct,
		&cfg.VATRatePct,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.DefaultConfig(), nil
	}
	if err != nil {
		return billing.Config{}, fmt.Errorf("tenants: get billing config: %w", err)
	}
	return cfg, nil
}

// AllocateInvoiceNumber atomically claims the tenant's next invoice number
// inside the caller's transaction. The increment-and-return happens in a
// single statement so concurrent generations cannot hand out the same number.
func AllocateInvoiceNumber(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (int64, error) {
	const query = `
		INSERT INTO tenant_settings (tenant_id, invoice_prefix, invoice_next_number, default_vat_rate)
		VALUES ($1, 'FAC', 2, 20.00)
		ON CONFLICT (tenant_id)
		DO UPDATE SET invoice_next_number = tenant_settings.invoice_next_number + 1
		RETURNING invoice_next_number - 1`

	var number int64
	if err := tx.QueryRow(ctx, query, tenantID).Scan(&number); err != nil {
		return 0, fmt.Errorf("tenants: allocate invoice number: %w", err)
	}
	return number, nil
}

package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for shipments and the
// period aggregates invoicing reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const shipmentColumns = `
	id, tenant_id, COALESCE(sendcloud_id, ''), carrier, weight_grams,
	COALESCE(country_code, ''), COALESCE(service_point_id, ''), is_return,
	shipped_at, COALESCE(pricing_status, ''), computed_cost_eur`

func scanShipment(row pgx.Row) (Shipment, error) {
	var s Shipment
	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.SendcloudID,
		&s.Carrier,
		&s.WeightGrams,
		&s.CountryCode,
		&s.ServicePointID,
		&s.IsReturn,
		&s.ShippedAt,
		&s.PricingStatus,
		&s.ComputedCostEUR,
	)
	return s, err
}

// GetShipment loads one shipment scoped to a tenant.
func (r *Repository) GetShipment(ctx context.Context, tenantID, id uuid.UUID) (Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE tenant_id = $1 AND id = $2`
	s, err := scanShipment(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Shipment{}, ErrNotFound
	}
	if err != nil {
		return Shipment{}, fmt.Errorf("shipments: get shipment: %w", err)
	}
	return s, nil
}

// ListForPeriod returns one page of a tenant's outbound shipments inside the
// inclusive [from, to] window, ordered stably for pagination.
func (r *Repository) ListForPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time, offset, limit int) ([]Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE tenant_id = $1 AND NOT is_return AND shipped_at >= $2 AND shipped_at <= $3
		ORDER BY shipped_at, id
		OFFSET $4 LIMIT $5`

	rows, err := r.pool.Query(ctx, query, tenantID, from, to, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("shipments: list for period: %w", err)
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("shipments: scan shipment: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shipments: iterate shipments: %w", err)
	}
	return out, nil
}

// ListPage returns one page of every shipment of a tenant, return parcels
// included, for bulk repricing.
func (r *Repository) ListPage(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE tenant_id = $1
		ORDER BY shipped_at, id
		OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, tenantID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("shipments: list page: %w", err)
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("shipments: scan shipment: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shipments: iterate shipments: %w", err)
	}
	return out, nil
}

// CountReturns counts the tenant's return parcels created inside the window.
func (r *Repository) CountReturns(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM returns
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at <= $3`

	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("shipments: count returns: %w", err)
	}
	return count, nil
}

// UpdatePricing writes the matching outcome back onto a shipment.
func (r *Repository) UpdatePricing(ctx context.Context, tenantID, id uuid.UUID, status string, cost *float64) error {
	const query = `
		UPDATE shipments
		SET pricing_status = $3, computed_cost_eur = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, tenantID, id, status, cost)
	if err != nil {
		return fmt.Errorf("shipments: update pricing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

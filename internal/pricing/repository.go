package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colisflow/colisflow/internal/platform/cache"
)

// Repository provides PostgreSQL backed access to pricing rules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRules returns every pricing rule of a tenant, active or not, in a
// stable order so that matcher tie-breaks stay deterministic.
func (r *Repository) ListRules(ctx context.Context, tenantID uuid.UUID) ([]Rule, error) {
	const query = `
		SELECT id, tenant_id, carrier, destination, weight_min_grams, weight_max_grams, unit_price_eur, active
		FROM pricing_rules
		WHERE tenant_id = $1
		ORDER BY carrier, weight_min_grams, created_at, id`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("pricing: list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID,
			&rule.TenantID,
			&rule.Carrier,
			&rule.Destination,
			&rule.WeightMinGrams,
			&rule.WeightMaxGrams,
			&rule.UnitPriceEUR,
			&rule.Active,
		); err != nil {
			return nil, fmt.Errorf("pricing: scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pricing: iterate rules: %w", err)
	}
	return rules, nil
}

// RulesSource abstracts rule lookup for callers that do not care about caching.
type RulesSource interface {
	ListRules(ctx context.Context, tenantID uuid.UUID) ([]Rule, error)
}

// CachedRules decorates a RulesSource with a Redis cache. Rule sets change
// only through imports, so a short TTL plus explicit invalidation is enough.
type CachedRules struct {
	source RulesSource
	store  *cache.Store
}

// NewCachedRules wraps source with the cache store.
func NewCachedRules(source RulesSource, store *cache.Store) *CachedRules {
	return &CachedRules{source: source, store: store}
}

func rulesCacheKey(tenantID uuid.UUID) string {
	return "pricing:rules:" + tenantID.String()
}

// ListRules serves cached rules, falling back to the underlying source.
func (c *CachedRules) ListRules(ctx context.Context, tenantID uuid.UUID) ([]Rule, error) {
	var rules []Rule
	err := c.store.FetchJSON(ctx, rulesCacheKey(tenantID), &rules, func(ctx context.Context) (interface{}, error) {
		return c.source.ListRules(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Invalidate drops the cached rule set for a tenant.
func (c *CachedRules) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.store.Invalidate(ctx, rulesCacheKey(tenantID))
}

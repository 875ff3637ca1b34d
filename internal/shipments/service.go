package shipments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/colisflow/colisflow/internal/observability"
	"github.com/colisflow/colisflow/internal/pricing"
)

const repricePageSize = 500

// RepositoryPort defines data access for shipment repricing.
type RepositoryPort interface {
	GetShipment(ctx context.Context, tenantID, id uuid.UUID) (Shipment, error)
	ListPage(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]Shipment, error)
	UpdatePricing(ctx context.Context, tenantID, id uuid.UUID, status string, cost *float64) error
}

// RulesSource yields a tenant's pricing rules.
type RulesSource interface {
	ListRules(ctx context.Context, tenantID uuid.UUID) ([]pricing.Rule, error)
}

// Service recomputes shipment transport pricing against the current rule
// set. The ingestion pipeline calls Reprice per webhook; RepriceAll runs
// after a pricing-rule import, usually via the background worker.
type Service struct {
	repo    RepositoryPort
	rules   RulesSource
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService builds a Service instance. Metrics may be nil.
func NewService(repo RepositoryPort, rules RulesSource, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, rules: rules, metrics: metrics, logger: logger}
}

func (s *Service) priceOne(shipment Shipment, rules []pricing.Rule) (string, *float64) {
	match := pricing.Match(pricing.Shipment{
		ID:             shipment.ID,
		Carrier:        shipment.Carrier,
		WeightGrams:    shipment.WeightGrams,
		CountryCode:    shipment.CountryCode,
		ServicePointID: shipment.ServicePointID,
	}, rules)
	if !match.Matched {
		return PricingStatusMissing, nil
	}
	price := match.Price
	return PricingStatusOK, &price
}

// Reprice matches one shipment and writes the outcome back. A miss is not an
// error; it marks the shipment missing so the gap shows up on the invoice.
func (s *Service) Reprice(ctx context.Context, tenantID, shipmentID uuid.UUID) (string, error) {
	shipment, err := s.repo.GetShipment(ctx, tenantID, shipmentID)
	if err != nil {
		return "", err
	}
	rules, err := s.rules.ListRules(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("shipments: load rules: %w", err)
	}

	status, cost := s.priceOne(shipment, rules)
	if err := s.repo.UpdatePricing(ctx, tenantID, shipmentID, status, cost); err != nil {
		return "", err
	}
	s.metrics.ShipmentRepriced(status)
	return status, nil
}

// RepriceAll walks every shipment of a tenant page by page and rewrites its
// pricing. Pages are fetched sequentially until a short page signals the end.
func (s *Service) RepriceAll(ctx context.Context, tenantID uuid.UUID) (RepriceSummary, error) {
	rules, err := s.rules.ListRules(ctx, tenantID)
	if err != nil {
		return RepriceSummary{}, fmt.Errorf("shipments: load rules: %w", err)
	}

	started := time.Now()
	var summary RepriceSummary
	for offset := 0; ; offset += repricePageSize {
		page, err := s.repo.ListPage(ctx, tenantID, offset, repricePageSize)
		if err != nil {
			return RepriceSummary{}, err
		}
		for _, shipment := range page {
			status, cost := s.priceOne(shipment, rules)
			if err := s.repo.UpdatePricing(ctx, tenantID, shipment.ID, status, cost); err != nil {
				return RepriceSummary{}, err
			}
			s.metrics.ShipmentRepriced(status)
			summary.Total++
			if status == PricingStatusOK {
				summary.Priced++
			} else {
				summary.Missing++
			}
		}
		if len(page) < repricePageSize {
			break
		}
	}

	if s.logger != nil {
		s.logger.Info("repriced tenant shipments",
			slog.String("tenant_id", tenantID.String()),
			slog.Int("total", summary.Total),
			slog.Int("missing", summary.Missing),
			slog.Duration("elapsed", time.Since(started)),
		)
	}
	return summary, nil
}

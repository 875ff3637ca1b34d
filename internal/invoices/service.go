package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/colisflow/colisflow/internal/billing"
	"github.com/colisflow/colisflow/internal/invoices/export"
	"github.com/colisflow/colisflow/internal/pricing"
	"github.com/colisflow/colisflow/internal/shared"
	"github.com/colisflow/colisflow/internal/shipments"
	"github.com/colisflow/colisflow/internal/tenants"
)

// shipmentPageSize bounds one fetch; the generation loop pages until a short
// page so a month is never silently truncated at a page boundary.
const shipmentPageSize = 1000

// RepositoryPort defines invoice persistence.
type RepositoryPort interface {
	SaveGenerated(ctx context.Context, inv GeneratedInvoice) (SavedInvoice, error)
	GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (Invoice, error)
	GetInvoiceWithLines(ctx context.Context, tenantID, id uuid.UUID) (InvoiceWithLines, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error
}

// ShipmentSource reads period shipments and return counts.
type ShipmentSource interface {
	ListForPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time, offset, limit int) ([]shipments.Shipment, error)
	CountReturns(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error)
}

// RulesSource yields a tenant's pricing rules.
type RulesSource interface {
	ListRules(ctx context.Context, tenantID uuid.UUID) ([]pricing.Rule, error)
}

// TenantSource reads tenant master data and the fee schedule.
type TenantSource interface {
	GetTenant(ctx context.Context, id uuid.UUID) (tenants.Tenant, error)
	GetSettings(ctx context.Context, tenantID uuid.UUID) (tenants.Settings, error)
	GetBillingConfig(ctx context.Context, tenantID uuid.UUID) (billing.Config, error)
}

// Service orchestrates monthly invoice generation and invoice reads.
type Service struct {
	repo      RepositoryPort
	shipments ShipmentSource
	rules     RulesSource
	tenants   TenantSource
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, shipmentSource ShipmentSource, rules RulesSource, tenantSource TenantSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, shipments: shipmentSource, rules: rules, tenants: tenantSource, logger: logger}
}

// Generate builds and persists the invoice for one (tenant, month). It is
// idempotent: regenerating replaces the line set and updates totals but keeps
// the invoice number, and the tenant's numbering counter moves only on first
// creation.
func (s *Service) Generate(ctx context.Context, tenantID uuid.UUID, input GenerateInput) (GenerateResult, error) {
	month, err := shared.ParseMonth(input.Month)
	if err != nil {
		return GenerateResult{}, err
	}
	from, to := month.Start(), month.End()

	var (
		cfg          billing.Config
		settings     tenants.Settings
		rules        []pricing.Rule
		returnsCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = s.tenants.GetBillingConfig(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.tenants.GetSettings(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = s.rules.ListRules(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		returnsCount, err = s.shipments.CountReturns(gctx, tenantID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return GenerateResult{}, fmt.Errorf("invoices: load generation inputs: %w", err)
	}

	// Tenant settings outrank the billing config row for the VAT rate.
	cfg.VATRatePct = billing.ResolveVATRate(settings.DefaultVATRatePct, cfg.VATRatePct)

	var periodShipments []shipments.Shipment
	for offset := 0; ; offset += shipmentPageSize {
		page, err := s.shipments.ListForPeriod(ctx, tenantID, from, to, offset, shipmentPageSize)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("invoices: fetch shipments: %w", err)
		}
		periodShipments = append(periodShipments, page...)
		if len(page) < shipmentPageSize {
			break
		}
	}

	groups, groupOrder, missingCount := groupShipments(periodShipments, rules)

	lines, breakdown, shippingTotal := s.buildLines(input, cfg, groups, groupOrder, returnsCount, len(periodShipments))
	totals := totalsOf(lines)

	saved, err := s.repo.SaveGenerated(ctx, GeneratedInvoice{
		TenantID:            tenantID,
		Month:               month.String(),
		SubtotalHT:          totals.SubtotalHT,
		VATAmount:           totals.VATAmount,
		TotalTTC:            totals.TotalTTC,
		ShipmentCount:       len(periodShipments),
		MissingPricingCount: missingCount,
		ReturnsCount:        returnsCount,
		Lines:               lines,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	if s.logger != nil {
		s.logger.Info("invoice generated",
			slog.String("tenant_id", tenantID.String()),
			slog.String("month", month.String()),
			slog.String("invoice_number", saved.InvoiceNumber),
			slog.Bool("created", saved.Created),
			slog.Float64("total_ttc", totals.TotalTTC),
			slog.Int("missing_pricing", missingCount),
			slog.Float64("shipping_total", shippingTotal),
		)
	}

	return GenerateResult{
		InvoiceID:           saved.ID,
		InvoiceNumber:       saved.InvoiceNumber,
		Month:               month.String(),
		SubtotalHT:          totals.SubtotalHT,
		VATAmount:           totals.VATAmount,
		TotalTTC:            totals.TotalTTC,
		ShipmentCount:       len(periodShipments),
		MissingPricingCount: missingCount,
		ReturnsCount:        returnsCount,
		FreeReturnsCount:    billing.FreeReturnsCount(len(periodShipments), cfg.FreeReturnsPct),
		LineCount:           len(lines),
		Breakdown:           breakdown,
	}, nil
}

// groupShipments buckets priced shipments per carrier and weight tier via the
// pricing matcher. Shipments without a price or a matching rule count as
// missing; they never block generation.
func groupShipments(periodShipments []shipments.Shipment, rules []pricing.Rule) (map[string]pricing.TierGroup, []string, int) {
	priced := make([]pricing.PricedShipment, 0, len(periodShipments))
	missing := 0

	for _, shipment := range periodShipments {
		if shipment.PricingStatus == shipments.PricingStatusMissing || shipment.ComputedCostEUR == nil {
			missing++
			continue
		}
		priced = append(priced, pricing.PricedShipment{
			Shipment: pricing.Shipment{
				ID:             shipment.ID,
				Carrier:        shipment.Carrier,
				WeightGrams:    shipment.WeightGrams,
				CountryCode:    shipment.CountryCode,
				ServicePointID: shipment.ServicePointID,
			},
			ComputedCostEUR: *shipment.ComputedCostEUR,
		})
	}

	groups, order, unmatched := pricing.GroupByTier(priced, rules)
	return groups, order, missing + unmatched
}

func feeLine(l billing.Line) Line {
	return Line{
		Type:         l.Type,
		Description:  l.Description,
		Quantity:     l.Quantity,
		UnitPriceEUR: l.UnitPriceEUR,
		TotalEUR:     l.TotalEUR,
		VATAmount:    l.VATAmount,
	}
}

func (s *Service) buildLines(
	input GenerateInput,
	cfg billing.Config,
	groups map[string]pricing.TierGroup,
	groupOrder []string,
	returnsCount, shipmentCount int,
) ([]Line, Breakdown, float64) {
	var lines []Line
	var breakdown Breakdown

	if l := billing.SoftwareFee(cfg); l != nil {
		lines = append(lines, feeLine(*l))
		breakdown.Software = l.TotalEUR
	}
	if l := billing.StorageFee(input.StorageM3, cfg); l != nil {
		lines = append(lines, feeLine(*l))
		breakdown.Storage = l.TotalEUR
	}
	if l := billing.ReceptionFee(input.ReceptionQuarters, cfg); l != nil {
		lines = append(lines, feeLine(*l))
		breakdown.Reception = l.TotalEUR
	}

	var shippingTotal float64
	for _, key := range groupOrder {
		group := groups[key]
		carrier := group.Carrier
		weightMin := group.WeightMinGrams
		weightMax := group.WeightMaxGrams
		shippingTotal += group.TotalEUR
		lines = append(lines, Line{
			Type:           billing.LineShipping,
			Description:    fmt.Sprintf("Prépa & Expédition - %s %d-%dg", carrier, weightMin, weightMax),
			Carrier:        &carrier,
			WeightMinGrams: &weightMin,
			WeightMaxGrams: &weightMax,
			Quantity:       float64(group.Count),
			UnitPriceEUR:   group.UnitPriceEUR,
			TotalEUR:       group.TotalEUR,
			VATAmount:      group.TotalEUR * (cfg.VATRatePct / 100),
		})
	}
	breakdown.Shipping = shippingTotal

	if l := billing.FuelSurcharge(shippingTotal, cfg); l != nil {
		lines = append(lines, feeLine(*l))
		breakdown.FuelSurcharge = l.TotalEUR
	}
	if l := billing.ReturnsFee(returnsCount, shipmentCount, cfg); l != nil {
		lines = append(lines, feeLine(*l))
		breakdown.Returns = l.TotalEUR
	}

	return lines, breakdown, shippingTotal
}

func totalsOf(lines []Line) billing.Totals {
	sums := make([]billing.Line, len(lines))
	for i, line := range lines {
		sums[i] = billing.Line{TotalEUR: line.TotalEUR, VATAmount: line.VATAmount}
	}
	return billing.CalculateTotals(sums)
}

// List returns a tenant's invoices, newest month first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, tenantID)
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (InvoiceWithLines, error) {
	return s.repo.GetInvoiceWithLines(ctx, tenantID, id)
}

// UpdateStatus moves an invoice between draft, sent and paid.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return s.repo.UpdateStatus(ctx, tenantID, id, status)
}

// ExportData is the frozen invoice view handed to the accounting exporters.
type ExportData struct {
	Snapshot export.Snapshot
	Siren    string
}

// BuildExport assembles the export snapshot for an invoice. Totals and lines
// come straight from the persisted rows; nothing is recomputed.
func (s *Service) BuildExport(ctx context.Context, tenantID, id uuid.UUID) (ExportData, error) {
	inv, err := s.repo.GetInvoiceWithLines(ctx, tenantID, id)
	if err != nil {
		return ExportData{}, err
	}
	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return ExportData{}, err
	}

	clientCode := tenant.Code
	if clientCode == "" {
		clientCode = "CLIENT"
	}
	siren := tenant.Siren
	if siren == "" {
		siren = "000000000"
	}

	snapshotLines := make([]export.SnapshotLine, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		snapshotLines = append(snapshotLines, export.SnapshotLine{
			Type:        line.Type,
			Description: line.Description,
			TotalHT:     line.TotalEUR,
			TVA:         line.VATAmount,
			TotalTTC:    line.TotalEUR + line.VATAmount,
		})
	}

	return ExportData{
		Snapshot: export.Snapshot{
			InvoiceNumber: inv.InvoiceNumber,
			Month:         inv.Month,
			CreatedAt:     inv.CreatedAt,
			ClientCode:    clientCode,
			ClientName:    tenant.Name,
			Lines:         snapshotLines,
			TotalHT:       inv.SubtotalHT,
			TotalTVA:      inv.VATAmount,
			TotalTTC:      inv.TotalTTC,
		},
		Siren: siren,
	}, nil
}

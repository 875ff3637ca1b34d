package billing

import (
	"fmt"
	"math"
)

// Invoice line types. The exporters map these to dedicated revenue accounts.
const (
	LineSoftware      = "software"
	LineStorage       = "storage"
	LineReception     = "reception"
	LineShipping      = "shipping"
	LineFuelSurcharge = "fuel_surcharge"
	LineReturns       = "returns"
)

// DefaultVATRatePct applies when neither tenant settings nor billing config
// specify a rate.
const DefaultVATRatePct = 20.00

// Config is the per-tenant fee schedule. It is immutable during a single
// generation run.
type Config struct {
	SoftwareFeeEUR       float64 `json:"software_fee_eur"`
	StorageFeePerM3      float64 `json:"storage_fee_per_m3"`
	ReceptionFeePer15Min float64 `json:"reception_fee_per_15min"`
	FuelSurchargePct     float64 `json:"fuel_surcharge_pct"`
	ReturnFeeEUR         float64 `json:"return_fee_eur"`
	FreeReturnsPct       float64 `json:"free_returns_pct"`
	VATRatePct           float64 `json:"vat_rate_pct"`
}

// DefaultConfig is the fee schedule used when a tenant has no explicit
// billing config row.
func DefaultConfig() Config {
	return Config{
		SoftwareFeeEUR:       49.00,
		StorageFeePerM3:      25.00,
		ReceptionFeePer15Min: 30.00,
		FuelSurchargePct:     4.00,
		ReturnFeeEUR:         0.90,
		FreeReturnsPct:       0.50,
		VATRatePct:           DefaultVATRatePct,
	}
}

// Line is one computed billing component. Calculators return nil instead of a
// zero-value line so invoices stay free of noise.
type Line struct {
	Type         string
	Description  string
	Quantity     float64
	UnitPriceEUR float64
	TotalEUR     float64
	VATAmount    float64
}

// Totals aggregates an invoice's line set.
type Totals struct {
	SubtotalHT float64
	VATAmount  float64
	TotalTTC   float64
}

// SoftwareFee always bills, once per month.
func SoftwareFee(cfg Config) *Line {
	total := cfg.SoftwareFeeEUR
	return &Line{
		Type:         LineSoftware,
		Description:  "Connexion Shopify, notifications de suivi clients, gestion commandes",
		Quantity:     1,
		UnitPriceEUR: cfg.SoftwareFeeEUR,
		TotalEUR:     total,
		VATAmount:    total * (cfg.VATRatePct / 100),
	}
}

// StorageFee bills warehouse volume; nil when nothing was stored.
func StorageFee(storageM3 float64, cfg Config) *Line {
	if storageM3 <= 0 {
		return nil
	}
	total := storageM3 * cfg.StorageFeePerM3
	return &Line{
		Type:         LineStorage,
		Description:  fmt.Sprintf("Stockage & Assurance - Calculé au m³ (%g m³)", storageM3),
		Quantity:     storageM3,
		UnitPriceEUR: cfg.StorageFeePerM3,
		TotalEUR:     total,
		VATAmount:    total * (cfg.VATRatePct / 100),
	}
}

// ReceptionFee bills goods-in handling per 15-minute block.
func ReceptionFee(quarters float64, cfg Config) *Line {
	if quarters <= 0 {
		return nil
	}
	total := quarters * cfg.ReceptionFeePer15Min
	return &Line{
		Type:         LineReception,
		Description:  fmt.Sprintf("Frais de réception & Contrôle - Calculé au 1/4h (%g x 15min)", quarters),
		Quantity:     quarters,
		UnitPriceEUR: cfg.ReceptionFeePer15Min,
		TotalEUR:     total,
		VATAmount:    total * (cfg.VATRatePct / 100),
	}
}

// FuelSurcharge bills a percentage of the shipping total. Quantity carries
// the percentage and UnitPriceEUR the base amount; the accounting exports
// read these fields positionally, so the encoding must not change.
func FuelSurcharge(shippingTotal float64, cfg Config) *Line {
	if shippingTotal <= 0 {
		return nil
	}
	total := shippingTotal * (cfg.FuelSurchargePct / 100)
	return &Line{
		Type:         LineFuelSurcharge,
		Description:  fmt.Sprintf("Surcharge Carburant CAP - %g%% du coût Prépa & Expédition", cfg.FuelSurchargePct),
		Quantity:     cfg.FuelSurchargePct,
		UnitPriceEUR: shippingTotal,
		TotalEUR:     total,
		VATAmount:    total * (cfg.VATRatePct / 100),
	}
}

// FreeReturnsCount floors the free allowance; fractional free returns never
// round up.
func FreeReturnsCount(totalShipments int, freeReturnsPct float64) int {
	return int(math.Floor(float64(totalShipments) * (freeReturnsPct / 100)))
}

// ReturnsFee bills returns beyond the free allowance; nil when there were no
// returns at all.
func ReturnsFee(totalReturns, totalShipments int, cfg Config) *Line {
	if totalReturns <= 0 {
		return nil
	}
	freeCount := FreeReturnsCount(totalShipments, cfg.FreeReturnsPct)
	billable := totalReturns - freeCount
	if billable < 0 {
		billable = 0
	}
	total := float64(billable) * cfg.ReturnFeeEUR

	description := fmt.Sprintf("Retour Client - %d facturés", billable)
	if freeCount > 0 {
		description = fmt.Sprintf("Retour Client - %d offerts (%g%%), %d facturés", freeCount, cfg.FreeReturnsPct, billable)
	}

	return &Line{
		Type:         LineReturns,
		Description:  description,
		Quantity:     float64(billable),
		UnitPriceEUR: cfg.ReturnFeeEUR,
		TotalEUR:     total,
		VATAmount:    total * (cfg.VATRatePct / 100),
	}
}

// CalculateTotals sums the line set and rounds each sum independently.
// Rounding happens on the sums, not line by line, which affects penny-level
// outcomes and must stay this way.
func CalculateTotals(lines []Line) Totals {
	var subtotal, vat float64
	for _, line := range lines {
		subtotal += line.TotalEUR
		vat += line.VATAmount
	}
	return Totals{
		SubtotalHT: RoundCurrency(subtotal),
		VATAmount:  RoundCurrency(vat),
		TotalTTC:   RoundCurrency(subtotal + vat),
	}
}

// RoundCurrency rounds half up to 2 decimals.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// ResolveVATRate picks the first positive rate, falling back to the default.
// Priority order is tenant settings, then billing config.
func ResolveVATRate(rates ...float64) float64 {
	for _, rate := range rates {
		if rate > 0 {
			return rate
		}
	}
	return DefaultVATRatePct
}

package pricing

import (
	"github.com/google/uuid"
)

// Destination vocabulary used as a pricing dimension alongside carrier and weight.
const (
	DestFranceRelay    = "france_relay"
	DestFranceDomicile = "france_domicile"
	DestBelgique       = "belgique"
	DestSuisse         = "suisse"
	DestEUDom          = "eu_dom"
)

// Rule prices a (carrier, destination, weight tier) combination.
// A nil Destination applies to every destination.
type Rule struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	Carrier        string    `json:"carrier"`
	Destination    *string   `json:"destination"`
	WeightMinGrams int       `json:"weight_min_grams"`
	WeightMaxGrams int       `json:"weight_max_grams"`
	UnitPriceEUR   float64   `json:"unit_price_eur"`
	Active         bool      `json:"active"`
}

// Shipment carries the attributes the matcher needs.
type Shipment struct {
	ID             uuid.UUID
	Carrier        string
	WeightGrams    int
	CountryCode    string
	ServicePointID string
}

// PricedShipment is a shipment whose transport cost has already been computed.
type PricedShipment struct {
	Shipment
	ComputedCostEUR float64
}

// MatchResult reports the outcome of matching one shipment against the rule set.
type MatchResult struct {
	Matched bool
	Rule    *Rule
	Price   float64
	Reason  string
}

// TierGroup accumulates shipments sharing a carrier and weight tier.
type TierGroup struct {
	Carrier        string
	WeightMinGrams int
	WeightMaxGrams int
	Count          int
	TotalEUR       float64
	UnitPriceEUR   float64
}

package shipments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pricing statuses written back after matching.
const (
	PricingStatusOK      = "ok"
	PricingStatusMissing = "missing"
)

// ErrNotFound indicates an unknown shipment.
var ErrNotFound = errors.New("shipments: not found")

// Shipment is one parcel row written by the carrier-aggregator sync.
type Shipment struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	SendcloudID     string
	Carrier         string
	WeightGrams     int
	CountryCode     string
	ServicePointID  string
	IsReturn        bool
	ShippedAt       time.Time
	PricingStatus   string
	ComputedCostEUR *float64
}

// RepriceSummary reports the outcome of a bulk repricing run.
type RepriceSummary struct {
	Total   int
	Priced  int
	Missing int
}

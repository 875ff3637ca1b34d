package invoices

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status enumerates invoice lifecycle values.
type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
	StatusPaid  Status = "paid"
)

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid:
		return true
	}
	return false
}

var (
	// ErrNotFound indicates an unknown invoice.
	ErrNotFound = errors.New("invoices: not found")
	// ErrInvalidStatus indicates a status outside draft/sent/paid.
	ErrInvalidStatus = errors.New("invoices: invalid status")
)

// Invoice is one monthly invoice. At most one exists per (tenant, month);
// regeneration updates it in place and keeps its number.
type Invoice struct {
	ID                  uuid.UUID `json:"id"`
	TenantID            uuid.UUID `json:"tenant_id"`
	Month               string    `json:"month"`
	InvoiceNumber       string    `json:"invoice_number"`
	SubtotalHT          float64   `json:"subtotal_ht"`
	VATAmount           float64   `json:"vat_amount"`
	TotalTTC            float64   `json:"total_ttc"`
	ShipmentCount       int       `json:"shipment_count"`
	MissingPricingCount int       `json:"missing_pricing_count"`
	ReturnsCount        int       `json:"returns_count"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Line is one billing component of an invoice. Carrier and weight bounds are
// set on shipping lines only.
type Line struct {
	ID             uuid.UUID `json:"id"`
	InvoiceID      uuid.UUID `json:"invoice_id"`
	Type           string    `json:"line_type"`
	Description    string    `json:"description"`
	Carrier        *string   `json:"carrier,omitempty"`
	WeightMinGrams *int      `json:"weight_min_grams,omitempty"`
	WeightMaxGrams *int      `json:"weight_max_grams,omitempty"`
	Quantity       float64   `json:"quantity"`
	UnitPriceEUR   float64   `json:"unit_price_eur"`
	TotalEUR       float64   `json:"total_eur"`
	VATAmount      float64   `json:"vat_amount"`
}

// InvoiceWithLines bundles an invoice with its line set.
type InvoiceWithLines struct {
	Invoice
	Lines []Line `json:"lines"`
}

// Breakdown mirrors each fee component's pre-tax total, for the caller's
// confirmation summary.
type Breakdown struct {
	Software      float64 `json:"software"`
	Storage       float64 `json:"storage"`
	Reception     float64 `json:"reception"`
	Shipping      float64 `json:"shipping"`
	FuelSurcharge float64 `json:"fuel_surcharge"`
	Returns       float64 `json:"returns"`
}

// GenerateInput is the generation request for one (tenant, month).
type GenerateInput struct {
	Month             string  `json:"month" validate:"required"`
	StorageM3         float64 `json:"storage_m3" validate:"gte=0"`
	ReceptionQuarters float64 `json:"reception_quarters" validate:"gte=0"`
}

// GenerateResult summarises a finished generation run.
type GenerateResult struct {
	InvoiceID           uuid.UUID `json:"id"`
	InvoiceNumber       string    `json:"invoice_number"`
	Month               string    `json:"month"`
	SubtotalHT          float64   `json:"subtotal_ht"`
	VATAmount           float64   `json:"vat_amount"`
	TotalTTC            float64   `json:"total_ttc"`
	ShipmentCount       int       `json:"shipment_count"`
	MissingPricingCount int       `json:"missing_pricing_count"`
	ReturnsCount        int       `json:"returns_count"`
	FreeReturnsCount    int       `json:"free_returns_count"`
	LineCount           int       `json:"line_count"`
	Breakdown           Breakdown `json:"breakdown"`
}

// GeneratedInvoice is the persistence input of one generation run.
type GeneratedInvoice struct {
	TenantID            uuid.UUID
	Month               string
	SubtotalHT          float64
	VATAmount           float64
	TotalTTC            float64
	ShipmentCount       int
	MissingPricingCount int
	ReturnsCount        int
	Lines               []Line
}

// SavedInvoice reports the persisted identity after an upsert.
type SavedInvoice struct {
	ID            uuid.UUID
	InvoiceNumber string
	Created       bool
}

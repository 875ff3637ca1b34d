package tenants

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates an unknown tenant.
var ErrNotFound = errors.New("tenants: not found")

// Tenant identifies one client of the platform.
type Tenant struct {
	ID    uuid.UUID
	Name  string
	Code  string
	Siren string
}

// Settings holds invoice numbering and the tenant-level VAT default.
type Settings struct {
	InvoicePrefix     string
	InvoiceNextNumber int64
	DefaultVATRatePct float64
}

// DefaultSettings applies to tenants without an explicit settings row.
func DefaultSettings() Settings {
	return Settings{
		InvoicePrefix:     "FAC",
		InvoiceNextNumber: 1,
		DefaultVATRatePct: 20.00,
	}
}

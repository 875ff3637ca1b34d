// Package export transforms persisted invoices into French accounting
// formats (FEC for tax audits, Sage CSV for bookkeeping imports).
//
// Both exporters operate on a frozen invoice snapshot. They never recompute
// pricing or fees; a snapshot whose totals are inconsistent with its lines
// will export unbalanced, which is a data-integrity bug upstream.
package export

import "time"

// SnapshotLine is one invoice line as the exporters see it.
type SnapshotLine struct {
	Type        string
	Description string
	TotalHT     float64
	TVA         float64
	TotalTTC    float64
}

// Snapshot is a frozen view of a persisted invoice and its tenant.
type Snapshot struct {
	InvoiceNumber string
	Month         string
	CreatedAt     time.Time
	ClientCode    string
	ClientName    string
	Lines         []SnapshotLine
	TotalHT       float64
	TotalTVA      float64
	TotalTTC      float64
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

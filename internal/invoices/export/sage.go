package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/colisflow/colisflow/internal/billing"
)

const (
	sageAccountSales        = "706000"
	sageAccountVATCollected = "445710"
	sageAccountClients      = "411"
)

const sageJournal = "VE"

// SageEntry is one Sage 100/50 journal row.
type SageEntry struct {
	Date           string
	Journal        string
	AccountGeneral string
	AccountTiers   string
	Label          string
	Debit          float64
	Credit         float64
	PieceRef       string
}

// BalanceReport is the result of ValidateSageBalance.
type BalanceReport struct {
	Valid       bool
	TotalDebit  float64
	TotalCredit float64
	Difference  float64
}

// FormatSageDate renders a date as DD/MM/YYYY.
func FormatSageDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatSageAmount renders an amount with a dot decimal and 2 fixed places.
func FormatSageAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func sageAccountForType(lineType string) string {
	switch lineType {
	case billing.LineSoftware:
		return "706100"
	case billing.LineStorage:
		return "706200"
	case billing.LineReception:
		return "706300"
	case billing.LineShipping:
		return "706400"
	case billing.LineFuelSurcharge:
		return "706500"
	case billing.LineReturns:
		return "706600"
	default:
		return sageAccountSales
	}
}

// SageEntries derives the Sage journal rows for an invoice. Revenue credits
// are grouped by line type onto dedicated accounts; lines of the same type
// sum into a single row. Group order follows first appearance in the line
// set, keeping output deterministic.
func SageEntries(inv Snapshot) []SageEntry {
	entries := make([]SageEntry, 0, len(inv.Lines)+2)
	date := FormatSageDate(inv.CreatedAt)

	entries = append(entries, SageEntry{
		Date:           date,
		Journal:        sageJournal,
		AccountGeneral: sageAccountClients + inv.ClientCode,
		AccountTiers:   inv.ClientCode,
		Label:          truncate(fmt.Sprintf("FAC %s %s", inv.InvoiceNumber, inv.ClientName), 35),
		Debit:          inv.TotalTTC,
		PieceRef:       inv.InvoiceNumber,
	})

	type group struct {
		totalHT     float64
		description string
	}
	groups := make(map[string]*group)
	var order []string
	for _, line := range inv.Lines {
		lineType := line.Type
		if lineType == "" {
			lineType = "other"
		}
		if g, ok := groups[lineType]; ok {
			g.totalHT += line.TotalHT
			continue
		}
		groups[lineType] = &group{totalHT: line.TotalHT, description: line.Description}
		order = append(order, lineType)
	}

	for _, lineType := range order {
		g := groups[lineType]
		entries = append(entries, SageEntry{
			Date:           date,
			Journal:        sageJournal,
			AccountGeneral: sageAccountForType(lineType),
			Label:          truncate(g.description, 35),
			Credit:         g.totalHT,
			PieceRef:       inv.InvoiceNumber,
		})
	}

	if inv.TotalTVA > 0 {
		entries = append(entries, SageEntry{
			Date:           date,
			Journal:        sageJournal,
			AccountGeneral: sageAccountVATCollected,
			Label:          fmt.Sprintf("TVA 20%% FAC %s", inv.InvoiceNumber),
			Credit:         inv.TotalTVA,
			PieceRef:       inv.InvoiceNumber,
		})
	}

	return entries
}

// SageCSV renders entries to the semicolon-delimited Sage import format.
// The label field is quoted to survive separators in descriptions.
func SageCSV(entries []SageEntry) string {
	var b strings.Builder
	b.WriteString("Date;Journal;Compte;Tiers;Libellé;Débit;Crédit;Pièce")
	for _, entry := range entries {
		b.WriteString("\n")
		b.WriteString(strings.Join([]string{
			entry.Date,
			entry.Journal,
			entry.AccountGeneral,
			entry.AccountTiers,
			`"` + entry.Label + `"`,
			FormatSageAmount(entry.Debit),
			FormatSageAmount(entry.Credit),
			entry.PieceRef,
		}, ";"))
	}
	return b.String()
}

// SageFilename names the export after the billing period.
func SageFilename(period string) string {
	return fmt.Sprintf("export_sage_%s.csv", period)
}

// ValidateSageBalance checks the double-entry invariant. Differences below
// one cent are tolerated as rounding noise.
func ValidateSageBalance(entries []SageEntry) BalanceReport {
	var totalDebit, totalCredit float64
	for _, entry := range entries {
		totalDebit += entry.Debit
		totalCredit += entry.Credit
	}
	difference := math.Abs(totalDebit - totalCredit)
	return BalanceReport{
		Valid:       difference < 0.01,
		TotalDebit:  billing.RoundCurrency(totalDebit),
		TotalCredit: billing.RoundCurrency(totalCredit),
		Difference:  billing.RoundCurrency(difference),
	}
}

package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Revenue and balance accounts of the plan comptable général used for
// logistics service invoices.
const (
	fecAccountClients      = "411000"
	fecAccountSales        = "706000"
	fecAccountVATCollected = "445710"
)

const (
	fecJournalCode  = "VE"
	fecJournalLabel = "Journal des Ventes"
)

// FECEntry is one row of the Fichier des Écritures Comptables, the mandated
// French tax-audit ledger (article A47 A-1 du Livre des procédures fiscales).
// The 18 columns are fixed; every one must be present in every row.
type FECEntry struct {
	JournalCode   string
	JournalLib    string
	EcritureNum   string
	EcritureDate  string
	CompteNum     string
	CompteLib     string
	CompAuxNum    string
	CompAuxLib    string
	PieceRef      string
	PieceDate     string
	EcritureLib   string
	Debit         string
	Credit        string
	EcritureLet   string
	DateLet       string
	ValidDate     string
	Montantdevise string
	Idevise       string
}

var fecHeader = []string{
	"JournalCode", "JournalLib", "EcritureNum", "EcritureDate",
	"CompteNum", "CompteLib", "CompAuxNum", "CompAuxLib",
	"PieceRef", "PieceDate", "EcritureLib", "Debit", "Credit",
	"EcritureLet", "DateLet", "ValidDate", "Montantdevise", "Idevise",
}

// FormatFECAmount renders an amount with the French comma decimal separator.
// The absolute value is taken; the debit/credit column carries the sign.
func FormatFECAmount(amount float64) string {
	if amount == 0 {
		return "0,00"
	}
	return strings.Replace(strconv.FormatFloat(math.Abs(amount), 'f', 2, 64), ".", ",", 1)
}

// FormatFECDate renders a date as YYYYMMDD.
func FormatFECDate(t time.Time) string {
	return t.Format("20060102")
}

// FECEntries derives the ledger rows for an invoice: one client debit for the
// TTC total, one sales credit per invoice line, and a VAT credit when VAT was
// collected. Debits and credits balance by construction.
func FECEntries(inv Snapshot) []FECEntry {
	entries := make([]FECEntry, 0, len(inv.Lines)+2)
	pieceDate := FormatFECDate(inv.CreatedAt)
	pieceRef := inv.InvoiceNumber
	entryNum := 1

	base := FECEntry{
		JournalCode:  fecJournalCode,
		JournalLib:   fecJournalLabel,
		EcritureDate: pieceDate,
		PieceRef:     pieceRef,
		PieceDate:    pieceDate,
		Debit:        "0,00",
		Credit:       "0,00",
		ValidDate:    pieceDate,
		Idevise:      "EUR",
	}

	client := base
	client.EcritureNum = fmt.Sprintf("%s-%d", pieceRef, entryNum)
	entryNum++
	client.CompteNum = fecAccountClients
	client.CompteLib = "Clients"
	client.CompAuxNum = inv.ClientCode
	client.CompAuxLib = inv.ClientName
	client.EcritureLib = fmt.Sprintf("Facture %s - %s", pieceRef, inv.ClientName)
	client.Debit = FormatFECAmount(inv.TotalTTC)
	entries = append(entries, client)

	for _, line := range inv.Lines {
		sale := base
		sale.EcritureNum = fmt.Sprintf("%s-%d", pieceRef, entryNum)
		entryNum++
		sale.CompteNum = fecAccountSales
		sale.CompteLib = "Prestations de services"
		sale.EcritureLib = truncate(line.Description, 100)
		sale.Credit = FormatFECAmount(line.TotalHT)
		entries = append(entries, sale)
	}

	if inv.TotalTVA > 0 {
		vat := base
		vat.EcritureNum = fmt.Sprintf("%s-%d", pieceRef, entryNum)
		vat.CompteNum = fecAccountVATCollected
		vat.CompteLib = "TVA collectée"
		vat.EcritureLib = fmt.Sprintf("TVA 20%% sur facture %s", pieceRef)
		vat.Credit = FormatFECAmount(inv.TotalTVA)
		entries = append(entries, vat)
	}

	return entries
}

func (e FECEntry) fields() []string {
	return []string{
		e.JournalCode, e.JournalLib, e.EcritureNum, e.EcritureDate,
		e.CompteNum, e.CompteLib, e.CompAuxNum, e.CompAuxLib,
		e.PieceRef, e.PieceDate, e.EcritureLib, e.Debit, e.Credit,
		e.EcritureLet, e.DateLet, e.ValidDate, e.Montantdevise, e.Idevise,
	}
}

// FECFile renders entries to the pipe-delimited FEC text format, header
// included. Every row carries exactly 18 fields.
func FECFile(entries []FECEntry) string {
	var b strings.Builder
	b.WriteString(strings.Join(fecHeader, "|"))
	for _, entry := range entries {
		b.WriteString("\n")
		b.WriteString(strings.Join(entry.fields(), "|"))
	}
	return b.String()
}

// FECFilename follows the mandated {SIREN}FEC{YYYYMMDD}.txt convention.
func FECFilename(siren string, closingDate time.Time) string {
	return fmt.Sprintf("%sFEC%s.txt", siren, FormatFECDate(closingDate))
}

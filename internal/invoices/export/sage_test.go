package export

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatSage(t *testing.T) {
	require.Equal(t, "01/07/2025", FormatSageDate(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "703.20", FormatSageAmount(703.2))
	require.Equal(t, "0.00", FormatSageAmount(0))
}

func TestSageEntries(t *testing.T) {
	entries := SageEntries(sampleSnapshot())
	require.Len(t, entries, 4)

	client := entries[0]
	require.Equal(t, "411CLIENT1", client.AccountGeneral)
	require.Equal(t, "CLIENT1", client.AccountTiers)
	require.Equal(t, 703.20, client.Debit)
	require.Equal(t, 0.0, client.Credit)
	require.Equal(t, "FAC-2025-0042", client.PieceRef)
	require.LessOrEqual(t, len([]rune(client.Label)), 35)

	software := entries[1]
	require.Equal(t, "706100", software.AccountGeneral)
	require.Equal(t, 49.00, software.Credit)

	shipping := entries[2]
	require.Equal(t, "706400", shipping.AccountGeneral)
	require.Equal(t, 537.00, shipping.Credit)

	vat := entries[3]
	require.Equal(t, "445710", vat.AccountGeneral)
	require.Equal(t, 117.20, vat.Credit)
	require.Equal(t, "TVA 20% FAC FAC-2025-0042", vat.Label)
}

func TestSageEntriesGroupsByLineType(t *testing.T) {
	inv := sampleSnapshot()
	inv.Lines = []SnapshotLine{
		{Type: "shipping", Description: "Prépa & Expédition - Colissimo 0-500g", TotalHT: 300.00},
		{Type: "shipping", Description: "Prépa & Expédition - Colissimo 500-1000g", TotalHT: 237.00},
		{Type: "fuel_surcharge", Description: "Surcharge Carburant CAP - 4% du coût Prépa & Expédition", TotalHT: 21.48},
		{Type: "", Description: "Ajustement", TotalHT: 27.52},
	}
	inv.TotalHT = 586.00

	entries := SageEntries(inv)
	// 1 client debit, 3 grouped credits, 1 VAT.
	require.Len(t, entries, 5)

	shipping := entries[1]
	require.Equal(t, "706400", shipping.AccountGeneral)
	require.InDelta(t, 537.00, shipping.Credit, 1e-9)
	// The first line of the group names the row.
	require.True(t, strings.HasPrefix(shipping.Label, "Prépa & Expédition - Colissimo 0-5"))

	fuel := entries[2]
	require.Equal(t, "706500", fuel.AccountGeneral)
	require.InDelta(t, 21.48, fuel.Credit, 1e-9)

	other := entries[3]
	require.Equal(t, "706000", other.AccountGeneral)
	require.InDelta(t, 27.52, other.Credit, 1e-9)
}

func TestSageEntriesBalanceRandomLines(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		entries := SageEntries(randomSnapshot(r))
		var debit, credit float64
		for _, e := range entries {
			debit += e.Debit
			credit += e.Credit
		}
		require.InDelta(t, debit, credit, 0.01)
		require.True(t, ValidateSageBalance(entries).Valid)
	}
}

func TestSageCSV(t *testing.T) {
	entries := SageEntries(sampleSnapshot())
	csv := SageCSV(entries)
	rows := strings.Split(csv, "\n")
	require.Len(t, rows, len(entries)+1)
	require.Equal(t, "Date;Journal;Compte;Tiers;Libellé;Débit;Crédit;Pièce", rows[0])

	client := strings.Split(rows[1], ";")
	require.Len(t, client, 8)
	require.Equal(t, "01/07/2025", client[0])
	require.Equal(t, "VE", client[1])
	require.Equal(t, "411CLIENT1", client[2])
	require.True(t, strings.HasPrefix(client[4], `"`))
	require.True(t, strings.HasSuffix(client[4], `"`))
	require.Equal(t, "703.20", client[5])
	require.Equal(t, "0.00", client[6])
}

func TestSageFilename(t *testing.T) {
	require.Equal(t, "export_sage_2025-06.csv", SageFilename("2025-06"))
}

func TestValidateSageBalance(t *testing.T) {
	balanced := SageEntries(sampleSnapshot())
	report := ValidateSageBalance(balanced)
	require.True(t, report.Valid)
	require.Equal(t, 703.20, report.TotalDebit)
	require.Equal(t, 703.20, report.TotalCredit)
	require.Equal(t, 0.0, report.Difference)

	// Sub-cent drift counts as rounding noise.
	drifted := append([]SageEntry{}, balanced...)
	drifted[0].Debit += 0.009
	require.True(t, ValidateSageBalance(drifted).Valid)

	broken := append([]SageEntry{}, balanced...)
	broken[0].Debit += 10
	badReport := ValidateSageBalance(broken)
	require.False(t, badReport.Valid)
	require.Equal(t, 10.0, badReport.Difference)
}

package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func makeRule(carrier string, dest *string, minGrams, maxGrams int, price float64) Rule {
	return Rule{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		Carrier:        carrier,
		Destination:    dest,
		WeightMinGrams: minGrams,
		WeightMaxGrams: maxGrams,
		UnitPriceEUR:   price,
		Active:         true,
	}
}

func TestDestination(t *testing.T) {
	cases := []struct {
		name         string
		country      string
		servicePoint string
		want         string
	}{
		{"france relay", "FR", "sp-123", DestFranceRelay},
		{"monaco relay", "MC", "sp-456", DestFranceRelay},
		{"france home", "FR", "", DestFranceDomicile},
		{"monaco home", "MC", "", DestFranceDomicile},
		{"belgium", "BE", "", DestBelgique},
		{"belgium ignores service point", "BE", "sp-789", DestBelgique},
		{"switzerland", "CH", "", DestSuisse},
		{"eu member", "DE", "", DestEUDom},
		{"eu member spain", "ES", "", DestEUDom},
		{"guadeloupe", "GP", "", DestEUDom},
		{"reunion", "RE", "", DestEUDom},
		{"rest of world", "US", "", "US"},
		{"lowercase input", "fr", "", DestFranceDomicile},
		{"padded input", " gb ", "", "GB"},
		{"empty", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Destination(tc.country, tc.servicePoint))
		})
	}
}

func TestValidateRule(t *testing.T) {
	valid := makeRule("Colissimo", nil, 0, 500, 4.50)
	require.True(t, ValidateRule(valid))

	noCarrier := valid
	noCarrier.Carrier = "  "
	require.False(t, ValidateRule(noCarrier))

	negativeMin := valid
	negativeMin.WeightMinGrams = -1
	require.False(t, ValidateRule(negativeMin))

	zeroMax := valid
	zeroMax.WeightMaxGrams = 0
	require.False(t, ValidateRule(zeroMax))

	inverted := valid
	inverted.WeightMinGrams = 500
	inverted.WeightMaxGrams = 500
	require.False(t, ValidateRule(inverted))

	negativePrice := valid
	negativePrice.UnitPriceEUR = -0.01
	require.False(t, ValidateRule(negativePrice))

	freeTier := valid
	freeTier.UnitPriceEUR = 0
	require.True(t, ValidateRule(freeTier))
}

func TestMatchWeightBoundary(t *testing.T) {
	rules := []Rule{
		makeRule("Colissimo", nil, 0, 500, 4.50),
		makeRule("Colissimo", nil, 500, 1000, 6.20),
	}

	under := Match(Shipment{Carrier: "Colissimo", WeightGrams: 499, CountryCode: "FR"}, rules)
	require.True(t, under.Matched)
	require.Equal(t, 4.50, under.Price)

	// 500g falls in the upper tier, the interval is half open.
	exact := Match(Shipment{Carrier: "Colissimo", WeightGrams: 500, CountryCode: "FR"}, rules)
	require.True(t, exact.Matched)
	require.Equal(t, 6.20, exact.Price)

	over := Match(Shipment{Carrier: "Colissimo", WeightGrams: 1000, CountryCode: "FR"}, rules)
	require.False(t, over.Matched)
}

func TestMatchCarrierCaseInsensitive(t *testing.T) {
	rules := []Rule{makeRule("Mondial Relay", nil, 0, 1000, 3.90)}

	res := Match(Shipment{Carrier: "MONDIAL RELAY", WeightGrams: 250, CountryCode: "FR"}, rules)
	require.True(t, res.Matched)
	require.Equal(t, 3.90, res.Price)
}

func TestMatchSpecificDestinationWins(t *testing.T) {
	generic := makeRule("Colissimo", nil, 0, 1000, 5.00)
	relay := makeRule("Colissimo", strPtr(DestFranceRelay), 0, 1000, 3.50)
	rules := []Rule{generic, relay}

	res := Match(Shipment{Carrier: "Colissimo", WeightGrams: 300, CountryCode: "FR", ServicePointID: "sp-1"}, rules)
	require.True(t, res.Matched)
	require.Equal(t, 3.50, res.Price)

	// Without a service point the relay rule no longer applies.
	home := Match(Shipment{Carrier: "Colissimo", WeightGrams: 300, CountryCode: "FR"}, rules)
	require.True(t, home.Matched)
	require.Equal(t, 5.00, home.Price)
}

func TestMatchFirstRuleWinsOnTie(t *testing.T) {
	first := makeRule("Chronopost", nil, 0, 1000, 7.00)
	second := makeRule("Chronopost", nil, 0, 1000, 6.00)

	res := Match(Shipment{Carrier: "Chronopost", WeightGrams: 100, CountryCode: "FR"}, []Rule{first, second})
	require.True(t, res.Matched)
	require.Equal(t, 7.00, res.Price)
}

func TestMatchSkipsInactiveAndInvalidRules(t *testing.T) {
	inactive := makeRule("Colissimo", nil, 0, 1000, 2.00)
	inactive.Active = false
	invalid := makeRule("Colissimo", nil, 800, 100, 1.00)
	valid := makeRule("Colissimo", nil, 0, 1000, 4.00)

	res := Match(Shipment{Carrier: "Colissimo", WeightGrams: 200, CountryCode: "FR"}, []Rule{inactive, invalid, valid})
	require.True(t, res.Matched)
	require.Equal(t, 4.00, res.Price)
}

func TestMatchFailureReasons(t *testing.T) {
	rules := []Rule{makeRule("Colissimo", nil, 0, 500, 4.50)}

	noCarrier := Match(Shipment{WeightGrams: 200, CountryCode: "FR"}, rules)
	require.False(t, noCarrier.Matched)
	require.Equal(t, "No carrier specified", noCarrier.Reason)

	badWeight := Match(Shipment{Carrier: "Colissimo", WeightGrams: 0, CountryCode: "FR"}, rules)
	require.False(t, badWeight.Matched)
	require.Equal(t, "Invalid weight", badWeight.Reason)

	noRule := Match(Shipment{Carrier: "UPS", WeightGrams: 200, CountryCode: "FR"}, rules)
	require.False(t, noRule.Matched)
	require.Equal(t, "No pricing rule for carrier=UPS, weight=200g, destination=france_domicile", noRule.Reason)
}

func TestGroupByTier(t *testing.T) {
	small := makeRule("Colissimo", nil, 0, 500, 4.50)
	large := makeRule("Colissimo", nil, 500, 1000, 6.20)
	rules := []Rule{small, large}

	shipments := []PricedShipment{
		{Shipment: Shipment{Carrier: "Colissimo", WeightGrams: 100, CountryCode: "FR"}, ComputedCostEUR: 4.50},
		{Shipment: Shipment{Carrier: "Colissimo", WeightGrams: 400, CountryCode: "FR"}, ComputedCostEUR: 4.50},
		{Shipment: Shipment{Carrier: "Colissimo", WeightGrams: 700, CountryCode: "FR"}, ComputedCostEUR: 6.20},
		{Shipment: Shipment{Carrier: "UPS", WeightGrams: 100, CountryCode: "FR"}, ComputedCostEUR: 9.99},
	}

	groups, order, unmatched := GroupByTier(shipments, rules)
	require.Len(t, groups, 2)
	require.Equal(t, []string{"Colissimo|0|500", "Colissimo|500|1000"}, order)
	require.Equal(t, 1, unmatched)

	smallTier := groups["Colissimo|0|500"]
	require.Equal(t, 2, smallTier.Count)
	require.InDelta(t, 9.00, smallTier.TotalEUR, 1e-9)
	require.Equal(t, 4.50, smallTier.UnitPriceEUR)

	largeTier := groups["Colissimo|500|1000"]
	require.Equal(t, 1, largeTier.Count)
	require.InDelta(t, 6.20, largeTier.TotalEUR, 1e-9)
}

func TestGroupByTierOrderFollowsFirstAppearance(t *testing.T) {
	rules := []Rule{
		makeRule("Colissimo", nil, 0, 500, 4.50),
		makeRule("Chronopost", nil, 0, 500, 7.00),
	}
	shipments := []PricedShipment{
		{Shipment: Shipment{Carrier: "Chronopost", WeightGrams: 100, CountryCode: "FR"}, ComputedCostEUR: 7.00},
		{Shipment: Shipment{Carrier: "Colissimo", WeightGrams: 100, CountryCode: "FR"}, ComputedCostEUR: 4.50},
		{Shipment: Shipment{Carrier: "Chronopost", WeightGrams: 200, CountryCode: "FR"}, ComputedCostEUR: 7.00},
	}

	_, order, unmatched := GroupByTier(shipments, rules)
	require.Equal(t, []string{"Chronopost|0|500", "Colissimo|0|500"}, order)
	require.Zero(t, unmatched)
}

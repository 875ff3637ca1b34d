package pricing

import (
	"fmt"
	"strings"
)

var countryDestinations = map[string]string{
	"FR": DestFranceDomicile,
	"MC": DestFranceDomicile,
	"BE": DestBelgique,
	"CH": DestSuisse,
}

var euMembers = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {}, "IT": {},
	"LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {}, "PT": {},
	"RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// French overseas territories billed at the eu_dom tariff.
var domTom = map[string]struct{}{
	"GP": {}, "MQ": {}, "GF": {}, "RE": {}, "YT": {}, "PM": {},
	"WF": {}, "PF": {}, "NC": {}, "BL": {}, "MF": {},
}

// Destination classifies a shipment's delivery type from its country code and
// service-point presence. It returns "" when no country is available.
func Destination(countryCode, servicePointID string) string {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" {
		return ""
	}
	if servicePointID != "" && (code == "FR" || code == "MC") {
		return DestFranceRelay
	}
	if dest, ok := countryDestinations[code]; ok {
		return dest
	}
	if _, ok := domTom[code]; ok {
		return DestEUDom
	}
	if _, ok := euMembers[code]; ok {
		return DestEUDom
	}
	return code
}

// ValidateRule reports whether a rule satisfies the structural invariants.
// Invalid rules are skipped by the matcher and rejected on import.
func ValidateRule(r Rule) bool {
	if strings.TrimSpace(r.Carrier) == "" {
		return false
	}
	if r.WeightMinGrams < 0 || r.WeightMaxGrams <= 0 {
		return false
	}
	if r.WeightMinGrams >= r.WeightMaxGrams {
		return false
	}
	if r.UnitPriceEUR < 0 {
		return false
	}
	return true
}

// Match finds the single best rule for a shipment. Carriers compare
// case-insensitively, the weight interval is half-open [min, max), and a rule
// naming a destination beats one applying to all destinations. Ties keep the
// first rule in list order.
func Match(s Shipment, rules []Rule) MatchResult {
	if strings.TrimSpace(s.Carrier) == "" {
		return MatchResult{Reason: "No carrier specified"}
	}
	if s.WeightGrams <= 0 {
		return MatchResult{Reason: "Invalid weight"}
	}

	dest := Destination(s.CountryCode, s.ServicePointID)

	var specific, generic *Rule
	for i := range rules {
		r := &rules[i]
		if !r.Active || !ValidateRule(*r) {
			continue
		}
		if !strings.EqualFold(r.Carrier, s.Carrier) {
			continue
		}
		if s.WeightGrams < r.WeightMinGrams || s.WeightGrams >= r.WeightMaxGrams {
			continue
		}
		if r.Destination == nil {
			if generic == nil {
				generic = r
			}
			continue
		}
		if dest != "" && strings.EqualFold(*r.Destination, dest) && specific == nil {
			specific = r
		}
	}

	winner := specific
	if winner == nil {
		winner = generic
	}
	if winner == nil {
		return MatchResult{
			Reason: fmt.Sprintf("No pricing rule for carrier=%s, weight=%dg, destination=%s", s.Carrier, s.WeightGrams, dest),
		}
	}
	return MatchResult{Matched: true, Rule: winner, Price: winner.UnitPriceEUR, Reason: "Matched"}
}

// GroupByTier runs the matcher over every priced shipment and accumulates the
// matched ones per carrier and weight tier. It returns the groups, the tier
// keys in first-seen order so callers emit lines deterministically, and the
// number of shipments no rule matched.
func GroupByTier(shipments []PricedShipment, rules []Rule) (map[string]TierGroup, []string, int) {
	groups := make(map[string]TierGroup)
	var order []string
	unmatched := 0
	for _, shipment := range shipments {
		match := Match(shipment.Shipment, rules)
		if !match.Matched || match.Rule == nil {
			unmatched++
			continue
		}
		key := fmt.Sprintf("%s|%d|%d", match.Rule.Carrier, match.Rule.WeightMinGrams, match.Rule.WeightMaxGrams)
		group, ok := groups[key]
		if !ok {
			group = TierGroup{
				Carrier:        match.Rule.Carrier,
				WeightMinGrams: match.Rule.WeightMinGrams,
				WeightMaxGrams: match.Rule.WeightMaxGrams,
				UnitPriceEUR:   match.Rule.UnitPriceEUR,
			}
			order = append(order, key)
		}
		group.Count++
		group.TotalEUR += shipment.ComputedCostEUR
		groups[key] = group
	}
	return groups, order, unmatched
}

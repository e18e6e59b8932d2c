package match

import (
	"strings"

	"gymops/internal/core"
)

// EffectivePrice returns the draft price for a canonical plan. Prepaid-in-
// full plans carry no recurring draft, so any label containing "pif" or
// "pay in full" is forced to zero regardless of its nominal list price.
func EffectivePrice(p core.PlanEntry) float64 {
	lower := strings.ToLower(p.Label)
	if strings.Contains(lower, "pif") || strings.Contains(lower, "pay in full") {
		return 0
	}
	return p.Price
}

// ResolvePlan maps a sale's free-text payment-plan label to a canonical plan
// price. Strategies are tried in order, first success wins:
//
//  1. exact match
//  2. case-insensitive exact match
//  3. substring match in either direction
//  4. token overlap: shared whitespace tokens longer than 2 characters,
//     highest positive count wins
//
// A miss returns (0, "", false); callers record the label as unmatched.
func ResolvePlan(label string, catalog []core.PlanEntry) (float64, string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, "", false
	}

	for _, p := range catalog {
		if p.Label == label {
			return EffectivePrice(p), p.Label, true
		}
	}

	lower := strings.ToLower(label)
	for _, p := range catalog {
		if strings.ToLower(p.Label) == lower {
			return EffectivePrice(p), p.Label, true
		}
	}

	for _, p := range catalog {
		planLower := strings.ToLower(p.Label)
		if strings.Contains(planLower, lower) || strings.Contains(lower, planLower) {
			return EffectivePrice(p), p.Label, true
		}
	}

	labelTokens := tokenSet(lower)
	bestScore := 0
	var best *core.PlanEntry
	for i := range catalog {
		planTokens := tokenSet(strings.ToLower(catalog[i].Label))
		shared := 0
		for tok := range labelTokens {
			if len(tok) > 2 && planTokens[tok] {
				shared++
			}
		}
		if shared > bestScore {
			bestScore = shared
			best = &catalog[i]
		}
	}
	if best != nil {
		return EffectivePrice(*best), best.Label, true
	}

	return 0, "", false
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

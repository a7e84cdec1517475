package score

import (
	"sort"

	"squeezerun/internal/models"
)

// Rank sorts candidates into the final presentation order: composite
// desc, then relative volume desc, catalyst strength desc, catalyst
// freshness (sooner event first), ATR% desc, price asc, and finally
// ticker asc so the order is a total order and runs are reproducible.
func Rank(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return rankLess(&candidates[i], &candidates[j])
	})
}

func rankLess(a, b *models.Candidate) bool {
	if a.Composite != b.Composite {
		return a.Composite > b.Composite
	}

	if av, bv := relVolume(a), relVolume(b); av != bv {
		return av > bv
	}

	if as, bs := catalystStrength(a), catalystStrength(b); as != bs {
		return as > bs
	}

	af, aok := catalystFreshness(a)
	bf, bok := catalystFreshness(b)
	switch {
	case aok && bok && af != bf:
		return af < bf
	case aok != bok:
		return aok // a dated catalyst outranks an undated one
	}

	if aa, ba := atrPct(a), atrPct(b); aa != ba {
		return aa > ba
	}

	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Ticker < b.Ticker
}

func relVolume(c *models.Candidate) float64 {
	if c.Features == nil {
		return 0
	}
	return c.Features.RelVolume()
}

func catalystStrength(c *models.Candidate) float64 {
	if c.Features == nil || c.Features.Catalyst == nil || c.Features.Catalyst.Placeholder {
		return 0
	}
	return c.Features.Catalyst.Strength
}

func catalystFreshness(c *models.Candidate) (float64, bool) {
	if c.Features == nil || c.Features.Catalyst == nil || c.Features.Catalyst.DaysToEvent == nil {
		return 0, false
	}
	return *c.Features.Catalyst.DaysToEvent, true
}

func atrPct(c *models.Candidate) float64 {
	if c.Features == nil || c.Features.Technicals.ATRPct == nil {
		return 0
	}
	return *c.Features.Technicals.ATRPct
}

// Package estimate derives missing squeeze inputs from whatever fields
// survived the provider fan-out. Every function here is pure: same
// record in, same estimate out, no I/O.
package estimate

import (
	"math"

	"squeezerun/internal/models"
)

// ShortInterest runs the tiered short-interest estimator. Tiers are
// checked in order and the first match wins; lower tiers carry lower
// confidence. Always returns a non-nil estimate (the last tier is a
// market-baseline default).
func ShortInterest(fr *models.FeatureRecord) *models.ShortInterest {
	// Tier 1: implied from days-to-cover against the float.
	if fr.ShortInterest.DaysToCover != nil && fr.FloatShares != nil && *fr.FloatShares > 0 {
		pct := clamp(15**fr.ShortInterest.DaysToCover, 0, 100)
		return &models.ShortInterest{
			Pct:         models.Float64(pct),
			DaysToCover: fr.ShortInterest.DaysToCover,
			Provenance:  models.ProvenanceEstimate,
			Confidence:  0.7,
		}
	}

	// Tier 2: borrow market stress.
	if fr.Borrow.FeePct != nil || fr.Borrow.UtilizationPct != nil {
		var fee, util float64
		if fr.Borrow.FeePct != nil {
			fee = math.Min(*fr.Borrow.FeePct, 200)
		}
		if fr.Borrow.UtilizationPct != nil {
			util = math.Min(*fr.Borrow.UtilizationPct, 100)
		}
		pct := clamp(0.4*(fee/3)+0.6*util, 0, 100)
		return &models.ShortInterest{
			Pct:        models.Float64(pct),
			Provenance: models.ProvenanceEstimate,
			Confidence: 0.6,
		}
	}

	// Tier 3: options skew against session activity.
	if fr.Options != nil && fr.Options.CallPutRatio != nil && fr.Technicals.RelVolume != nil {
		cp := *fr.Options.CallPutRatio
		rv := *fr.Technicals.RelVolume
		pct := clamp(8*math.Max(0, cp-1)*math.Min(10, rv), 0, 100)
		return &models.ShortInterest{
			Pct:        models.Float64(pct),
			Provenance: models.ProvenanceEstimate,
			Confidence: 0.5,
		}
	}

	// Tier 4: hot volatile tape implies crowded shorts.
	if fr.Technicals.Volatility30DPct != nil && fr.Technicals.RelVolume != nil &&
		*fr.Technicals.Volatility30DPct > 40 && *fr.Technicals.RelVolume > 2 {
		pct := clamp(math.Round(*fr.Technicals.Volatility30DPct**fr.Technicals.RelVolume/4), 0, 50)
		return &models.ShortInterest{
			Pct:        models.Float64(pct),
			Provenance: models.ProvenanceEstimate,
			Confidence: 0.3,
		}
	}

	// Tier 5: price-tier base rates. Low-priced names carry structurally
	// higher short interest.
	if fr.Price != nil {
		switch {
		case *fr.Price < 5:
			return &models.ShortInterest{
				Pct:        models.Float64(25),
				Provenance: models.ProvenanceEstimate,
				Confidence: 0.2,
			}
		case *fr.Price < 50:
			return &models.ShortInterest{
				Pct:        models.Float64(15),
				Provenance: models.ProvenanceEstimate,
				Confidence: 0.15,
			}
		}
	}

	// Tier 6: market baseline.
	return &models.ShortInterest{
		Pct:        models.Float64(8),
		Provenance: models.ProvenanceDefault,
		Confidence: 0.1,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

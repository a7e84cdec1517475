package estimate

import (
	"math"
	"time"

	"squeezerun/internal/models"
)

// earningsAnchors are the approximate day-of-year centers of the four
// US earnings seasons.
var earningsAnchors = []int{31, 120, 212, 304}

// Catalyst synthesizes a catalyst from price/volume behavior when no
// provider supplied one. Candidate signals are scored and the strongest
// wins; if nothing fires, a low-strength placeholder is returned so the
// record always carries a catalyst slot.
func Catalyst(fr *models.FeatureRecord, asOf time.Time) *models.Catalyst {
	var best *models.Catalyst

	consider := func(c *models.Catalyst) {
		if best == nil || c.Strength > best.Strength {
			best = c
		}
	}

	if rv := fr.Technicals.RelVolume; rv != nil && *rv > 3 {
		consider(&models.Catalyst{
			Type:     "volume_breakout",
			Strength: math.Min(*rv/5, 1),
		})
	}

	if d1 := fr.Technicals.PriceChange1DPct; d1 != nil {
		if math.Abs(*d1) > 10 {
			typ := "price_breakout"
			if *d1 < 0 {
				typ = "price_breakdown"
			}
			consider(&models.Catalyst{
				Type:     typ,
				Strength: math.Min(math.Abs(*d1)/20, 1),
			})
		}

		if d5 := fr.Technicals.PriceChange5DPct; d5 != nil && *d5 < -15 && *d1 > 5 {
			consider(&models.Catalyst{Type: "reversal_setup", Strength: 0.7})
		}

		if rsi := fr.Technicals.RSI; rsi != nil && *rsi < 25 && *d1 > 3 {
			consider(&models.Catalyst{Type: "oversold_bounce", Strength: 0.8})
		}
	}

	if vol := fr.Technicals.Volatility30DPct; vol != nil && *vol > 50 {
		consider(&models.Catalyst{
			Type:     "volatility_expansion",
			Strength: math.Min(*vol/100, 0.9),
		})
	}

	if d := daysToEarningsSeason(asOf); d <= 30 {
		dte := float64(d)
		consider(&models.Catalyst{
			Type:        "earnings_approach",
			Strength:    math.Max(0.3, 1-dte/30),
			DaysToEvent: &dte,
		})
	}

	if best != nil {
		return best
	}

	return &models.Catalyst{
		Type:        "technical_pattern",
		Strength:    0.1,
		Placeholder: true,
	}
}

// daysToEarningsSeason returns the day distance from asOf to the nearest
// earnings-season anchor, wrapping around year end.
func daysToEarningsSeason(asOf time.Time) int {
	doy := asOf.YearDay()
	best := 365
	for _, anchor := range earningsAnchors {
		d := doy - anchor
		if d < 0 {
			d = -d
		}
		if wrapped := 365 - d; wrapped < d {
			d = wrapped
		}
		if d < best {
			best = d
		}
	}
	return best
}

package estimate

import "squeezerun/internal/models"

// FINRAProxy converts one day of aggregated FINRA short-volume tape into
// a short-interest proxy. Returns nil when the tape row or the float is
// unusable; callers fall through to the estimator tiers.
func FINRAProxy(shortVol, totalVol float64, floatShares, adv30Shares *float64, basisDate string) *models.ShortInterest {
	if totalVol <= 0 || floatShares == nil || *floatShares <= 0 {
		return nil
	}

	svr := clamp(shortVol/totalVol, 0, 1)
	implied := clamp(svr**floatShares, 0, *floatShares)
	pct := 100 * implied / *floatShares

	si := &models.ShortInterest{
		Pct:        models.Float64(pct),
		Shares:     models.Float64(implied),
		Provenance: models.ProvenanceProxy,
		Confidence: 0.45,
		BasisDate:  basisDate,
	}
	if adv30Shares != nil && *adv30Shares > 0 {
		si.DaysToCover = models.Float64(implied / *adv30Shares)
	}
	return si
}

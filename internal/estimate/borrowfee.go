package estimate

import "squeezerun/internal/models"

// BorrowFee estimates a borrow fee from volatility, float size, recent
// return, turnover and price when no stock-loan vendor covered the
// symbol. Additive model starting from a 2% base, clamped to [0.1, 100].
func BorrowFee(fr *models.FeatureRecord) *models.Borrow {
	fee := 2.0

	if v := fr.Technicals.Volatility30DPct; v != nil {
		switch {
		case *v > 60:
			fee += 15
		case *v > 40:
			fee += 8
		case *v > 25:
			fee += 4
		}
	}

	if f := fr.FloatShares; f != nil && *f > 0 {
		switch {
		case *f < 25_000_000:
			fee += 20
		case *f < 50_000_000:
			fee += 12
		case *f < 100_000_000:
			fee += 6
		}

		if fr.ADV30Shares != nil {
			turnover := *fr.ADV30Shares / *f
			switch {
			case turnover > 0.02: // heavily traded borrow gets recalled and repriced
				fee += 5
			case turnover < 0.005:
				fee -= 3
			}
		}
	}

	if r := fr.Technicals.PriceChange30DPct; r != nil {
		switch {
		case *r > 30:
			fee += 10
		case *r < -30:
			fee -= 3
		}
	}

	if p := fr.Price; p != nil {
		switch {
		case *p < 5:
			fee += 8
		case *p < 10:
			fee += 4
		}
	}

	return &models.Borrow{
		FeePct:     models.Float64(clamp(fee, 0.1, 100)),
		Provenance: models.ProvenanceEstimate,
		Confidence: 0.3,
	}
}

// Package action maps a scored record onto a readiness tier and a
// discrete action. Rules run first-match; a strong-tape guard can
// upgrade past the tier ladder, and a technical confirmation check can
// downgrade a BUY that lacks chart support.
package action

import (
	"squeezerun/internal/config"
	"squeezerun/internal/gates"
	"squeezerun/internal/models"
)

// strongTapeRelVol is the relative volume at which the tape alone
// justifies entry, provided price holds VWAP and the composite is near
// the watch band.
const strongTapeRelVol = 5.0

// Mapper assigns tiers and actions under the preset's score bands.
type Mapper struct {
	cfg *config.Config
}

// New creates a Mapper for the preset.
func New(cfg *config.Config) *Mapper {
	return &Mapper{cfg: cfg}
}

// Map returns the readiness tier and action for one gated, scored
// record. coldTape disables the TRADE_READY tier entirely.
func (m *Mapper) Map(fr *models.FeatureRecord, composite int, coldTape bool) (models.Tier, models.Action) {
	tiers := m.cfg.Tiers
	score := float64(composite)
	rv := fr.RelVolume()
	aboveVWAP := fr.Technicals.VWAP != nil && *fr.Technicals.VWAP > 0 &&
		fr.Price != nil && *fr.Price > *fr.Technicals.VWAP
	hasCatalyst := fr.Catalyst != nil && !fr.Catalyst.Placeholder

	tier, act := models.TierNone, models.ActionNoAction
	switch {
	case !coldTape && score >= tiers.TradeReady.ScoreMin &&
		aboveVWAP && fr.HasFlag(gates.FlagPassTradeReady):
		tier, act = models.TierTradeReady, models.ActionBuy

	case score >= tiers.EarlyReady.ScoreMin && score <= tiers.EarlyReady.ScoreMax &&
		fr.HasFlag(gates.FlagPassEarly) && hasCatalyst:
		tier, act = models.TierEarlyReady, models.ActionEarlyReady

	case score >= tiers.Watch.ScoreMin:
		tier, act = models.TierWatch, models.ActionWatchlist

	case score >= tiers.Monitor.ScoreMin || (rv >= m.cfg.Momentum.HighPriorityRelVol && aboveVWAP):
		tier, act = models.TierMonitor, models.ActionMonitor
	}

	// Strong-tape guard: exceptional volume holding VWAP trades even
	// when the tier ladder says otherwise. Never while cold.
	if !coldTape && act != models.ActionBuy &&
		rv >= strongTapeRelVol && priceAtOrAboveVWAP(fr) &&
		score >= tiers.Watch.ScoreMin-5 {
		tier, act = models.TierTradeReady, models.ActionBuy
	}

	// A BUY needs at least two chart confirmations behind it.
	if act == models.ActionBuy && m.technicalConfirmations(fr) < 2 {
		tier, act = models.TierWatch, models.ActionWatchlist
	}

	return tier, act
}

func priceAtOrAboveVWAP(fr *models.FeatureRecord) bool {
	return fr.Technicals.VWAP != nil && *fr.Technicals.VWAP > 0 &&
		fr.Price != nil && *fr.Price >= *fr.Technicals.VWAP
}

// technicalConfirmations counts the chart signals supporting an entry.
func (m *Mapper) technicalConfirmations(fr *models.FeatureRecord) int {
	t := m.cfg.Thresholds
	n := 0

	if fr.Technicals.VWAPHeldOrReclaimed {
		n++
	}
	if fr.Technicals.EMA9 != nil && fr.Technicals.EMA20 != nil &&
		*fr.Technicals.EMA9 >= *fr.Technicals.EMA20 {
		n++
	}
	if fr.Technicals.ATRPct != nil && *fr.Technicals.ATRPct >= t.ATRPctMin {
		n++
	}
	if fr.Technicals.RSI != nil && *fr.Technicals.RSI >= t.RSIBuyMin && *fr.Technicals.RSI <= t.RSIBuyMax {
		n++
	}
	return n
}

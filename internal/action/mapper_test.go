package action

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"squeezerun/internal/config"
	"squeezerun/internal/gates"
	"squeezerun/internal/models"
)

func tradeReadyRecord() *models.FeatureRecord {
	fr := &models.FeatureRecord{Ticker: "BAR", Price: models.Float64(5.00)}
	fr.Technicals.VWAP = models.Float64(4.80)
	fr.Technicals.VWAPHeldOrReclaimed = true
	fr.Technicals.EMA9 = models.Float64(5.0)
	fr.Technicals.EMA20 = models.Float64(4.9)
	fr.Technicals.RSI = models.Float64(68)
	fr.Technicals.ATRPct = models.Float64(6)
	fr.Technicals.RelVolume = models.Float64(4.0)
	fr.Catalyst = &models.Catalyst{Type: "earnings", VerifiedInWindow: true, Strength: 0.9}
	fr.AddFlag(gates.FlagPassTradeReady)
	return fr
}

func TestMapTradeReadyBuy(t *testing.T) {
	m := New(config.Default())
	tier, act := m.Map(tradeReadyRecord(), 88, false)
	assert.Equal(t, models.TierTradeReady, tier)
	assert.Equal(t, models.ActionBuy, act)
}

func TestMapColdTapeDisablesTradeReady(t *testing.T) {
	m := New(config.Default())
	tier, act := m.Map(tradeReadyRecord(), 82, true)
	assert.NotEqual(t, models.TierTradeReady, tier)
	assert.NotEqual(t, models.ActionBuy, act)
	assert.Equal(t, models.TierWatch, tier, "still worth watching")
	assert.Equal(t, models.ActionWatchlist, act)
}

func TestMapEarlyReady(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "BAZ", Price: models.Float64(8)}
	fr.Technicals.RelVolume = models.Float64(2.0)
	fr.Catalyst = &models.Catalyst{Type: "earnings_approach", Strength: 0.5, DaysToEvent: models.Float64(16)}
	fr.AddFlag(gates.FlagPassEarly)

	tier, act := New(config.Default()).Map(fr, 61, false)
	assert.Equal(t, models.TierEarlyReady, tier)
	assert.Equal(t, models.ActionEarlyReady, act)
}

func TestMapEarlyReadyBandUpperBound(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "BAZ", Price: models.Float64(8)}
	fr.Technicals.RelVolume = models.Float64(2.0)
	fr.Catalyst = &models.Catalyst{Type: "earnings_approach", Strength: 0.5}
	fr.AddFlag(gates.FlagPassEarly)

	tier, act := New(config.Default()).Map(fr, 85, false)
	assert.Equal(t, models.TierWatch, tier, "above the early band falls to watch")
	assert.Equal(t, models.ActionWatchlist, act)
}

func TestMapWatchAndMonitorBands(t *testing.T) {
	m := New(config.Default())
	fr := &models.FeatureRecord{Ticker: "MEH", Price: models.Float64(10)}

	tier, act := m.Map(fr, 50, false)
	assert.Equal(t, models.TierWatch, tier)
	assert.Equal(t, models.ActionWatchlist, act)

	tier, act = m.Map(fr, 35, false)
	assert.Equal(t, models.TierMonitor, tier)
	assert.Equal(t, models.ActionMonitor, act)

	tier, act = m.Map(fr, 10, false)
	assert.Equal(t, models.TierNone, tier)
	assert.Equal(t, models.ActionNoAction, act)
}

func TestMapMonitorOnTapeAlone(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "TAPE", Price: models.Float64(10)}
	fr.Technicals.VWAP = models.Float64(9.50)
	fr.Technicals.RelVolume = models.Float64(3.5)

	tier, act := New(config.Default()).Map(fr, 20, false)
	assert.Equal(t, models.TierMonitor, tier, "heavy tape above vwap is worth monitoring")
	assert.Equal(t, models.ActionMonitor, act)
}

func TestMapStrongTapeGuardUpgrades(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "RIPS", Price: models.Float64(12)}
	fr.Technicals.VWAP = models.Float64(11.00)
	fr.Technicals.VWAPHeldOrReclaimed = true
	fr.Technicals.RelVolume = models.Float64(6.0)
	fr.Technicals.ATRPct = models.Float64(7)

	// Composite 42 is below watch but above watch-5; no momentum flags.
	tier, act := New(config.Default()).Map(fr, 42, false)
	assert.Equal(t, models.TierTradeReady, tier)
	assert.Equal(t, models.ActionBuy, act)
}

func TestMapStrongTapeGuardSuppressedWhenCold(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "RIPS", Price: models.Float64(12)}
	fr.Technicals.VWAP = models.Float64(11.00)
	fr.Technicals.VWAPHeldOrReclaimed = true
	fr.Technicals.RelVolume = models.Float64(6.0)
	fr.Technicals.ATRPct = models.Float64(7)

	_, act := New(config.Default()).Map(fr, 42, true)
	assert.NotEqual(t, models.ActionBuy, act)
}

func TestMapBuyNeedsTwoConfirmations(t *testing.T) {
	fr := tradeReadyRecord()
	// Strip the chart support: no vwap hold, flat EMAs, weak ATR, hot RSI.
	fr.Technicals.VWAPHeldOrReclaimed = false
	fr.Technicals.EMA9 = models.Float64(4.8)
	fr.Technicals.EMA20 = models.Float64(4.9)
	fr.Technicals.ATRPct = models.Float64(2)
	fr.Technicals.RSI = models.Float64(85)

	tier, act := New(config.Default()).Map(fr, 88, false)
	assert.Equal(t, models.TierWatch, tier, "one or zero confirmations downgrade")
	assert.Equal(t, models.ActionWatchlist, act)
}

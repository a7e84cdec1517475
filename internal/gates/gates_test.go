package gates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeezerun/internal/config"
	"squeezerun/internal/models"
)

func record(ticker string, price float64) *models.FeatureRecord {
	return &models.FeatureRecord{Ticker: ticker, Price: models.Float64(price)}
}

func TestHardElimination(t *testing.T) {
	e := New(config.Default())

	t.Run("penny stock", func(t *testing.T) {
		res := e.Apply([]*models.FeatureRecord{record("FOO", 0.25)}, false)
		assert.Empty(t, res.Passed)
		assert.Contains(t, res.Drops["FOO"], models.DropPriceBelowMinimum)
	})

	t.Run("no price", func(t *testing.T) {
		res := e.Apply([]*models.FeatureRecord{{Ticker: "NOPX"}}, false)
		assert.Contains(t, res.Drops["NOPX"], models.DropNoPriceData)
	})

	t.Run("held position", func(t *testing.T) {
		fr := record("HELD", 10)
		fr.Held = true
		res := e.Apply([]*models.FeatureRecord{fr}, false)
		assert.Contains(t, res.Drops["HELD"], models.DropPortfolioExclusion)
	})

	t.Run("mega float", func(t *testing.T) {
		fr := record("BIGF", 10)
		fr.FloatShares = models.Float64(600_000_000)
		res := e.Apply([]*models.FeatureRecord{fr}, false)
		assert.Contains(t, res.Drops["BIGF"], models.DropFloatExceedsMax)
	})

	t.Run("thin liquidity", func(t *testing.T) {
		fr := record("THIN", 10)
		fr.AvgDollarLiquidity30D = models.Float64(400_000)
		res := e.Apply([]*models.FeatureRecord{fr}, false)
		assert.Contains(t, res.Drops["THIN"], models.DropInsufficientLiquidity)
	})

	t.Run("unknown liquidity passes", func(t *testing.T) {
		res := e.Apply([]*models.FeatureRecord{record("UNKL", 10)}, false)
		assert.Len(t, res.Passed, 1)
	})

	t.Run("halted", func(t *testing.T) {
		fr := record("HALT", 10)
		fr.HaltedToday = true
		res := e.Apply([]*models.FeatureRecord{fr}, false)
		assert.Contains(t, res.Drops["HALT"], models.DropHaltsToday)
	})

	t.Run("wide spread", func(t *testing.T) {
		cfg := config.Default()
		cfg.Exclusions.MaxSpreadPct = 3
		fr := record("WIDE", 10)
		fr.SpreadPctToday = models.Float64(5)
		res := New(cfg).Apply([]*models.FeatureRecord{fr}, false)
		assert.Contains(t, res.Drops["WIDE"], models.DropExcessiveSpread)
	})

	t.Run("all reasons collected", func(t *testing.T) {
		fr := record("MULT", 0.10)
		fr.Held = true
		res := e.Apply([]*models.FeatureRecord{fr}, false)
		assert.ElementsMatch(t,
			[]string{models.DropPortfolioExclusion, models.DropPriceBelowMinimum},
			res.Drops["MULT"])
	})
}

func strongTapeRecord() *models.FeatureRecord {
	fr := record("BAR", 5.00)
	fr.Technicals.VWAP = models.Float64(4.80)
	fr.Technicals.RelVolume = models.Float64(4.0)
	fr.Technicals.PriceChange1DPct = models.Float64(6.0)
	fr.Technicals.RSI = models.Float64(68)
	fr.Technicals.ATRPct = models.Float64(6)
	fr.ShortInterest = models.ShortInterest{
		Pct:         models.Float64(35),
		DaysToCover: models.Float64(5),
		Provenance:  models.ProvenanceReal,
		Confidence:  1,
	}
	fr.Borrow = models.Borrow{
		FeePct:    models.Float64(12),
		TrendPP7D: models.Float64(2),
	}
	fr.Catalyst = &models.Catalyst{Type: "earnings", VerifiedInWindow: true, Strength: 0.9}
	fr.AvgDollarLiquidity30D = models.Float64(12_000_000)
	fr.FloatShares = models.Float64(80_000_000)
	return fr
}

func TestSoftScoreStrongTape(t *testing.T) {
	fr := strongTapeRecord()
	res := New(config.Default()).Apply([]*models.FeatureRecord{fr}, false)

	require.Len(t, res.Passed, 1)
	// 50 base +20 trade-ready +15 volume spike +5 rsi band +15 breakout
	// +20 short interest +10 cover +12 fee +10 trend +12 verified
	// catalyst +8 liquidity.
	assert.InDelta(t, 177.0, fr.GateScore, 1e-9)
	assert.True(t, fr.HasFlag(FlagPassTradeReady))
	assert.True(t, fr.HasFlag(FlagVolumeSpike))
	assert.True(t, fr.HasFlag(FlagGoodTechnicals))
	assert.True(t, fr.HasFlag(FlagMomentumBreakout))
	assert.False(t, fr.HasFlag(FlagPassEarly), "trade-ready excludes early")

	assert.Equal(t, 1, res.GateCounts[models.StageTradeReady])
	assert.Equal(t, 1, res.GateCounts[models.StageTechnical])
	assert.Equal(t, 1, res.GateCounts[models.StageSqueeze])
	assert.Equal(t, 1, res.GateCounts[models.StageCatalyst])
}

func TestSoftScoreEarlyReady(t *testing.T) {
	fr := record("BAZ", 8)
	fr.Technicals.RelVolume = models.Float64(2.0)
	fr.ShortInterest = models.ShortInterest{
		Pct:        models.Float64(15),
		Provenance: models.ProvenanceEstimate,
		Confidence: 0.15,
	}
	fr.Catalyst = &models.Catalyst{Type: "earnings_approach", Strength: 0.5}

	res := New(config.Default()).Apply([]*models.FeatureRecord{fr}, false)
	require.Len(t, res.Passed, 1)

	// 50 base +10 early +5 rel vol +8 short interest +5 catalyst
	// -3 non-real provenance.
	assert.InDelta(t, 75.0, fr.GateScore, 1e-9)
	assert.True(t, fr.HasFlag(FlagPassEarly))
	assert.Equal(t, 0, res.GateCounts[models.StageTradeReady])
	assert.Equal(t, 1, res.GateCounts[models.StageSqueeze])
	assert.Equal(t, 1, res.GateCounts[models.StageCatalyst])
}

func TestSoftScorePlaceholderCatalystDoesNotCount(t *testing.T) {
	fr := record("PLHD", 8)
	fr.Technicals.RelVolume = models.Float64(2.0)
	fr.Catalyst = &models.Catalyst{Type: "technical_pattern", Strength: 0.1, Placeholder: true}

	res := New(config.Default()).Apply([]*models.FeatureRecord{fr}, false)
	require.Len(t, res.Passed, 1)
	assert.False(t, fr.HasFlag(FlagPassEarly), "placeholder is not catalyst presence")
	assert.Equal(t, 0, res.GateCounts[models.StageCatalyst])
}

func TestSoftScoreBorrowFeeTiers(t *testing.T) {
	e := New(config.Default())

	warm := record("WARM", 10)
	warm.Technicals.RelVolume = models.Float64(2.0)
	warm.Borrow.FeePct = models.Float64(5) // above the minimum, below preferred
	res := e.Apply([]*models.FeatureRecord{warm}, false)
	require.Len(t, res.Passed, 1)
	// 50 base +5 rel vol +5 warm fee.
	assert.InDelta(t, 60.0, warm.GateScore, 1e-9)

	cheap := record("CHEP", 10)
	cheap.Technicals.RelVolume = models.Float64(2.0)
	cheap.Borrow.FeePct = models.Float64(1) // general collateral, no bonus
	e.Apply([]*models.FeatureRecord{cheap}, false)
	assert.InDelta(t, 55.0, cheap.GateScore, 1e-9)
}

func TestSoftScoreStaleBorrowQuote(t *testing.T) {
	fr := record("STLB", 10)
	fr.Technicals.RelVolume = models.Float64(2.0)
	fr.Borrow.FeePct = models.Float64(12)
	fr.Freshness.BorrowAgeDays = models.Float64(10)

	res := New(config.Default()).Apply([]*models.FeatureRecord{fr}, false)
	require.Len(t, res.Passed, 1)
	// 50 base +5 rel vol +12 fee -2 stale borrow quote.
	assert.InDelta(t, 65.0, fr.GateScore, 1e-9)
}

func TestSoftScoreDeadTapePenalty(t *testing.T) {
	fr := record("DEAD", 10)
	fr.Technicals.RelVolume = models.Float64(0.8)

	res := New(config.Default()).Apply([]*models.FeatureRecord{fr}, false)
	require.Len(t, res.Passed, 1)
	// 50 base -10 thin volume.
	assert.InDelta(t, 40.0, fr.GateScore, 1e-9)
}

func TestSoftScoreStaleShortInterest(t *testing.T) {
	fr := record("OLD", 10)
	fr.Technicals.RelVolume = models.Float64(2.0)
	fr.ShortInterest = models.ShortInterest{
		Pct:        models.Float64(25),
		Provenance: models.ProvenanceReal,
		AgeDays:    models.Float64(45),
	}

	res := New(config.Default()).Apply([]*models.FeatureRecord{fr}, false)
	require.Len(t, res.Passed, 1)
	// 50 base +5 rel vol +20 short interest -5 stale.
	assert.InDelta(t, 70.0, fr.GateScore, 1e-9)
	assert.True(t, fr.HasFlag(FlagStaleShortData))
}

func TestRelaxationLowersMomentumBar(t *testing.T) {
	fr := record("RLX", 6)
	fr.Technicals.VWAP = models.Float64(5.50)
	fr.Technicals.RelVolume = models.Float64(2.5) // below 3.0, above relaxed 2.3
	fr.Technicals.PriceChange1DPct = models.Float64(4.0)

	cold := New(config.Default()).Apply([]*models.FeatureRecord{fr}, true)
	require.Len(t, cold.Passed, 1)
	assert.True(t, fr.HasFlag(FlagPassTradeReady), "relaxed threshold admits the tape")

	fr2 := record("RLX", 6)
	fr2.Technicals.VWAP = models.Float64(5.50)
	fr2.Technicals.RelVolume = models.Float64(2.5)
	fr2.Technicals.PriceChange1DPct = models.Float64(4.0)
	warm := New(config.Default()).Apply([]*models.FeatureRecord{fr2}, false)
	require.Len(t, warm.Passed, 1)
	assert.False(t, fr2.HasFlag(FlagPassTradeReady))
}

func starvedCounts() map[string]int {
	return map[string]int{
		models.StageTradeReady: 1,
		models.StageTechnical:  0,
		models.StageSqueeze:    2,
		models.StageCatalyst:   1,
	}
}

func TestColdTapeActivatesAfterStreak(t *testing.T) {
	d := NewColdTapeDetector(config.Default().ColdTape)
	at := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

	assert.False(t, d.Observe(at, starvedCounts()))
	assert.False(t, d.Observe(at.Add(time.Minute), starvedCounts()))
	assert.True(t, d.Observe(at.Add(2*time.Minute), starvedCounts()), "third starved run flips cold")
	assert.True(t, d.Active())
}

func TestColdTapeHealthyRunResets(t *testing.T) {
	d := NewColdTapeDetector(config.Default().ColdTape)
	at := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

	d.Observe(at, starvedCounts())
	d.Observe(at.Add(time.Minute), starvedCounts())

	healthy := starvedCounts()
	healthy[models.StageTradeReady] = 5
	assert.False(t, d.Observe(at.Add(2*time.Minute), healthy))
	assert.False(t, d.Active())

	// Streak starts over after the healthy run.
	assert.False(t, d.Observe(at.Add(3*time.Minute), starvedCounts()))
	assert.False(t, d.Observe(at.Add(4*time.Minute), starvedCounts()))
	assert.True(t, d.Observe(at.Add(5*time.Minute), starvedCounts()))
}

func TestColdTapeWindowExpiresStaleRuns(t *testing.T) {
	d := NewColdTapeDetector(config.Default().ColdTape)
	at := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

	d.Observe(at, starvedCounts())
	d.Observe(at.Add(time.Minute), starvedCounts())

	// Third starved run lands beyond the 1800s window; earlier runs no
	// longer count toward the streak.
	assert.False(t, d.Observe(at.Add(time.Hour), starvedCounts()))
}

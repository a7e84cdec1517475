package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeezerun/internal/config"
	"squeezerun/internal/models"
)

func strongRecord() *models.FeatureRecord {
	fr := &models.FeatureRecord{Ticker: "BAR", Price: models.Float64(5.00)}
	fr.Technicals.RelVolume = models.Float64(4.0)
	fr.Technicals.VWAP = models.Float64(4.80)
	fr.Technicals.EMA9 = models.Float64(5.0)
	fr.Technicals.EMA20 = models.Float64(4.9)
	fr.Technicals.RSI = models.Float64(68)
	fr.Technicals.ATRPct = models.Float64(6)
	fr.ShortInterest = models.ShortInterest{
		Pct:         models.Float64(35),
		DaysToCover: models.Float64(5),
		Provenance:  models.ProvenanceReal,
	}
	fr.Borrow.FeePct = models.Float64(12)
	fr.Catalyst = &models.Catalyst{
		Type:             "earnings",
		VerifiedInWindow: true,
		DaysToEvent:      models.Float64(14),
		Strength:         0.9,
	}
	return fr
}

func TestScoreStrongTape(t *testing.T) {
	s := New(config.Default())
	composite, explain := s.Score(strongRecord(), false)

	assert.Equal(t, 88, composite)
	assert.InDelta(t, 0.85, explain.PresentWeight, 1e-9, "sentiment absent")
	assert.Len(t, explain.Components, 4)
	assert.Contains(t, explain.MissingFields, "sentiment")
	assert.False(t, explain.CeilingApplied)

	cat := explain.Components["catalyst"]
	assert.InDelta(t, 100.0, cat.Score, 1e-9, "verified earnings at 14 days saturates")
	assert.InDelta(t, 0.30, cat.Weight, 1e-9)
}

func TestScoreRenormalizesOverPresentWeights(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "ONLY"}
	fr.ShortInterest.Pct = models.Float64(30)

	composite, explain := New(config.Default()).Score(fr, false)

	assert.Equal(t, 75, composite, "single component passes through renormalization")
	assert.InDelta(t, 0.20, explain.PresentWeight, 1e-9)
	require.Contains(t, explain.Components, "squeeze")
	assert.InDelta(t, 75.0, explain.Components["squeeze"].Score, 1e-9)
}

func TestScoreEmptyRecord(t *testing.T) {
	composite, explain := New(config.Default()).Score(&models.FeatureRecord{Ticker: "NADA"}, false)
	assert.Equal(t, 0, composite)
	assert.Zero(t, explain.PresentWeight)
	assert.Empty(t, explain.Components)
}

func TestScoreColdTapeCeiling(t *testing.T) {
	composite, explain := New(config.Default()).Score(strongRecord(), true)
	assert.Equal(t, 82, composite)
	assert.True(t, explain.CeilingApplied)
}

func TestScorePlaceholderCatalystOmitted(t *testing.T) {
	fr := &models.FeatureRecord{Ticker: "PLHD"}
	fr.ShortInterest.Pct = models.Float64(20)
	fr.Catalyst = &models.Catalyst{Type: "technical_pattern", Strength: 0.1, Placeholder: true}

	_, explain := New(config.Default()).Score(fr, false)
	assert.NotContains(t, explain.Components, "catalyst")
	assert.Contains(t, explain.MissingFields, "catalyst")
}

func TestRSISweetSpot(t *testing.T) {
	assert.InDelta(t, 100, rsiSweetSpot(55), 1e-9)
	assert.InDelta(t, 100, rsiSweetSpot(62), 1e-9)
	assert.InDelta(t, 100, rsiSweetSpot(70), 1e-9)
	assert.InDelta(t, 75, rsiSweetSpot(75), 1e-9)
	assert.InDelta(t, 50, rsiSweetSpot(45), 1e-9)
	assert.InDelta(t, 0, rsiSweetSpot(10), 1e-9)
}

func TestATRBand(t *testing.T) {
	assert.InDelta(t, 100, atrBand(8), 1e-9)
	assert.InDelta(t, 100, atrBand(12), 1e-9)
	assert.InDelta(t, 90, atrBand(5), 1e-9)
	assert.InDelta(t, 45, atrBand(1.5), 1e-9)
	assert.InDelta(t, 0, atrBand(0), 1e-9)
}

func candidateWith(ticker string, composite int, rv, strength float64, dte *float64, price float64) models.Candidate {
	fr := &models.FeatureRecord{Ticker: ticker, Price: models.Float64(price)}
	fr.Technicals.RelVolume = models.Float64(rv)
	if strength > 0 {
		fr.Catalyst = &models.Catalyst{Type: "news", Strength: strength, DaysToEvent: dte}
	}
	return models.Candidate{Ticker: ticker, Composite: composite, Price: price, Features: fr}
}

func TestRankTieBreakChain(t *testing.T) {
	candidates := []models.Candidate{
		candidateWith("LOWS", 70, 5, 0.9, nil, 10),
		candidateWith("HIGH", 90, 1, 0.1, nil, 10),
		candidateWith("RVOL", 70, 6, 0.1, nil, 10),
		candidateWith("FRSH", 70, 5, 0.9, models.Float64(3), 10),
		candidateWith("CHEA", 70, 5, 0.9, models.Float64(3), 8),
	}

	Rank(candidates)

	order := make([]string, len(candidates))
	for i, c := range candidates {
		order[i] = c.Ticker
	}
	// Composite first, then rel volume, then strength, then dated
	// catalysts before undated, then price ascending.
	assert.Equal(t, []string{"HIGH", "RVOL", "CHEA", "FRSH", "LOWS"}, order)
}

func TestRankIsTotalOrder(t *testing.T) {
	a := candidateWith("AAAA", 50, 2, 0.5, nil, 10)
	b := candidateWith("BBBB", 50, 2, 0.5, nil, 10)
	Rank([]models.Candidate{b, a})

	got := []models.Candidate{b, a}
	Rank(got)
	assert.Equal(t, "AAAA", got[0].Ticker, "ticker breaks the final tie")
}

// Package gates implements the two-stage progressive filter: hard
// safety eliminations with reason codes, then additive soft scoring
// with two momentum readiness checks. Soft scoring never eliminates; it
// only annotates the record for the scorer and action mapper.
package gates

import (
	"math"

	"squeezerun/internal/config"
	"squeezerun/internal/models"
)

// Flags set on records during soft scoring.
const (
	FlagPassTradeReady   = "pass_trade_ready"
	FlagPassEarly        = "pass_early"
	FlagVolumeSpike      = "volume_spike"
	FlagHighPriority     = "high_priority"
	FlagOversoldBounce   = "oversold_bounce"
	FlagGoodTechnicals   = "good_technicals"
	FlagMomentumBreakout = "momentum_breakout"
	FlagStaleShortData   = "stale_short_interest"
)

// siStaleAgeDays is the age past which short-interest data is penalized.
const siStaleAgeDays = 30

// borrowStaleAgeDays is the age past which a borrow quote is penalized;
// fees move daily, so a week-old quote says little about crowding now.
const borrowStaleAgeDays = 7

// Result is the gate engine's output for one run.
type Result struct {
	Passed     []*models.FeatureRecord
	Drops      map[string][]string
	GateCounts map[string]int
}

// Engine applies the configured gates. Relaxation (cold tape) lowers the
// momentum and technical thresholds by the preset deltas.
type Engine struct {
	cfg *config.Config
}

// New creates a gate engine for the preset.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// effective holds the thresholds after optional cold-tape relaxation.
type effective struct {
	relVolTradeReady float64
	relVolEarly      float64
	rsiMin           float64
	rsiMax           float64
	atrPctMin        float64
}

func (e *Engine) thresholds(relaxed bool) effective {
	t := effective{
		relVolTradeReady: e.cfg.Momentum.RelVolTradeReady,
		relVolEarly:      e.cfg.Momentum.RelVolEarly,
		rsiMin:           e.cfg.Thresholds.RSIBuyMin,
		rsiMax:           e.cfg.Thresholds.RSIBuyMax,
		atrPctMin:        e.cfg.Thresholds.ATRPctMin,
	}
	if relaxed {
		r := e.cfg.ColdTape.Relaxation
		t.relVolTradeReady -= r.RelVolTradeReadyDelta
		t.relVolEarly -= r.RelVolEarlyDelta
		t.rsiMin -= r.RSIMinDelta
		t.atrPctMin -= r.ATRPctMinDelta
	}
	return t
}

// Apply runs both stages over the enriched records. Survivor order
// matches input order; ranking happens after scoring.
func (e *Engine) Apply(records []*models.FeatureRecord, relaxed bool) *Result {
	res := &Result{
		Drops: make(map[string][]string),
		GateCounts: map[string]int{
			models.StageTradeReady: 0,
			models.StageTechnical:  0,
			models.StageSqueeze:    0,
			models.StageCatalyst:   0,
		},
	}
	th := e.thresholds(relaxed)

	for _, fr := range records {
		if reasons := e.hardEliminate(fr); len(reasons) > 0 {
			res.Drops[fr.Ticker] = reasons
			continue
		}
		e.softScore(fr, th, res.GateCounts)
		res.Passed = append(res.Passed, fr)
	}
	return res
}

// hardEliminate returns every reason the record fails stage A. All
// reasons are collected, not just the first, so audits show the full
// picture.
func (e *Engine) hardEliminate(fr *models.FeatureRecord) []string {
	var reasons []string
	t := e.cfg.Thresholds

	if fr.Held {
		reasons = append(reasons, models.DropPortfolioExclusion)
	}
	if fr.Price == nil {
		reasons = append(reasons, models.DropNoPriceData)
	} else if *fr.Price <= t.PriceMin {
		reasons = append(reasons, models.DropPriceBelowMinimum)
	}
	if liq := fr.AvgDollarLiquidity30D; liq != nil && *liq > 0 && *liq <= t.AvgDollarLiquidityMin {
		reasons = append(reasons, models.DropInsufficientLiquidity)
	}
	if fr.FloatShares != nil && *fr.FloatShares > t.FloatSharesMax {
		reasons = append(reasons, models.DropFloatExceedsMax)
	}
	if e.cfg.Exclusions.ExcludeHaltsToday && fr.HaltedToday {
		reasons = append(reasons, models.DropHaltsToday)
	}
	if max := e.cfg.Exclusions.MaxSpreadPct; max > 0 && fr.SpreadPctToday != nil && *fr.SpreadPctToday > max {
		reasons = append(reasons, models.DropExcessiveSpread)
	}
	return reasons
}

// softScore computes the additive gate score starting from 50 and
// updates the per-stage starvation counts.
func (e *Engine) softScore(fr *models.FeatureRecord, th effective, counts map[string]int) {
	t := e.cfg.Thresholds
	score := 50.0

	rv := fr.RelVolume()
	change1D := 0.0
	if fr.Technicals.PriceChange1DPct != nil {
		change1D = *fr.Technicals.PriceChange1DPct
	}
	aboveVWAP := fr.Technicals.VWAP != nil && *fr.Technicals.VWAP > 0 &&
		fr.Price != nil && *fr.Price > *fr.Technicals.VWAP
	hasCatalyst := fr.Catalyst != nil && !fr.Catalyst.Placeholder

	// Momentum readiness.
	switch {
	case rv >= th.relVolTradeReady && math.Abs(change1D) >= e.cfg.Momentum.MinAbs1DChangePct && aboveVWAP:
		score += 20
		fr.AddFlag(FlagPassTradeReady)
		counts[models.StageTradeReady]++
	case rv >= th.relVolEarly && hasCatalyst:
		score += 10
		fr.AddFlag(FlagPassEarly)
	}

	// Volume.
	switch {
	case rv >= e.cfg.Momentum.HighPriorityRelVol:
		score += 15
		fr.AddFlag(FlagVolumeSpike)
		fr.AddFlag(FlagHighPriority)
	case rv >= 1.5:
		score += 5
	default:
		score -= 10
	}

	// Technicals.
	goodTechnicals := false
	if rsi := fr.Technicals.RSI; rsi != nil {
		if *rsi <= 35 && rv >= 2 {
			score += 8
			fr.AddFlag(FlagOversoldBounce)
		}
		if *rsi >= th.rsiMin && *rsi <= th.rsiMax {
			score += 5
			goodTechnicals = true
		}
	}
	if atr := fr.Technicals.ATRPct; atr != nil && *atr >= th.atrPctMin {
		goodTechnicals = true
	}
	if goodTechnicals {
		fr.AddFlag(FlagGoodTechnicals)
		counts[models.StageTechnical]++
	}
	if change1D > 5 {
		score += 15
		fr.AddFlag(FlagMomentumBreakout)
	}

	// Squeeze inputs.
	if si := fr.ShortInterest.Pct; si != nil {
		switch {
		case *si >= t.ShortInterestPctPref:
			score += 20
		case *si >= t.ShortInterestPctMin:
			score += 8
		case *si < 5:
			score -= 5
		}
		if *si >= t.ShortInterestPctMin {
			counts[models.StageSqueeze]++
		}
	}
	if dtc := fr.ShortInterest.DaysToCover; dtc != nil {
		switch {
		case *dtc >= t.DaysToCoverPref:
			score += 10
		case *dtc < t.DaysToCoverMin:
			score -= 5
		}
	}
	if fee := fr.Borrow.FeePct; fee != nil {
		switch {
		case *fee >= t.BorrowFeePctPref:
			score += 12
		case *fee >= t.BorrowFeePctMin:
			score += 5
		}
	}
	if trend := fr.Borrow.TrendPP7D; trend != nil && *trend > t.BorrowFeeTrendMinPP7D {
		score += 10
	}

	// Catalyst.
	if hasCatalyst {
		counts[models.StageCatalyst]++
		if fr.Catalyst.VerifiedInWindow {
			score += 12
		} else {
			score += 5
		}
	}

	// Liquidity depth.
	if liq := fr.AvgDollarLiquidity30D; liq != nil {
		switch {
		case *liq >= 10_000_000:
			score += 8
		case *liq >= 5_000_000:
			score += 4
		}
	}

	// Freshness and provenance discounts.
	if age := fr.ShortInterest.AgeDays; age != nil {
		if *age > siStaleAgeDays {
			score -= 5
		}
		if *age > e.cfg.Freshness.ShortInterestMaxAgeDays {
			fr.AddFlag(FlagStaleShortData)
		}
	}
	if age := fr.Freshness.BorrowAgeDays; age != nil && *age > borrowStaleAgeDays {
		score -= 2
	}
	if fr.ShortInterest.Pct != nil && fr.ShortInterest.Provenance != models.ProvenanceReal {
		score -= 3
	}

	fr.GateScore = math.Max(0, score)
}

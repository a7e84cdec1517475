// Package score computes the component-weighted composite. Each of the
// five components produces a 0..100 sub-score when at least one of its
// inputs is present; the composite renormalizes over the present
// weights so missing data never silently drags a symbol down.
package score

import (
	"math"
	"strings"

	"squeezerun/internal/config"
	"squeezerun/internal/models"
)

// Scorer blends component sub-scores under the preset weights.
type Scorer struct {
	cfg *config.Config
}

// New creates a Scorer for the preset.
func New(cfg *config.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the composite for one gated record. When coldTape is
// active the configured ceiling caps the result. The returned explain
// block carries every sub-score, the renormalization denominator and
// the missing-input list for the audit record.
func (s *Scorer) Score(fr *models.FeatureRecord, coldTape bool) (int, models.ScoreExplain) {
	w := s.cfg.Weights
	explain := models.ScoreExplain{
		Components:    make(map[string]models.ComponentScore),
		GateScore:     fr.GateScore,
		GateFlags:     fr.Flags,
		MissingFields: missingFields(fr),
	}

	var weighted, present float64
	add := func(name string, sub *float64, weight float64) {
		if sub == nil {
			return
		}
		explain.Components[name] = models.ComponentScore{Score: *sub, Weight: weight}
		weighted += *sub * weight
		present += weight
	}

	add("momentum", momentumScore(fr), w.Momentum)
	add("squeeze", squeezeScore(fr), w.Squeeze)
	add("catalyst", catalystScore(fr), w.Catalyst)
	add("sentiment", sentimentScore(fr), w.Sentiment)
	add("technical", technicalScore(fr), w.Technical)

	explain.PresentWeight = present
	if present <= 0 {
		return 0, explain
	}

	composite := int(math.Round(weighted / present))
	if coldTape && composite > s.cfg.ColdTape.ScoreCeiling {
		composite = s.cfg.ColdTape.ScoreCeiling
		explain.CeilingApplied = true
	}
	if composite < 0 {
		composite = 0
	}
	if composite > 100 {
		composite = 100
	}
	return composite, explain
}

// momentumScore blends relative volume, price-vs-VWAP and the EMA trend.
func momentumScore(fr *models.FeatureRecord) *float64 {
	var parts []float64

	if rv := fr.Technicals.RelVolume; rv != nil {
		v := 10 * math.Min(*rv, 10)
		if *rv >= 3 {
			v += 10
		}
		parts = append(parts, math.Min(v, 100))
	}

	if vwap := fr.Technicals.VWAP; vwap != nil && *vwap > 0 && fr.Price != nil {
		dev := (*fr.Price - *vwap) / *vwap
		parts = append(parts, 50*(1+math.Tanh(4*dev)))
	}

	if fr.Technicals.EMA9 != nil && fr.Technicals.EMA20 != nil && *fr.Technicals.EMA20 > 0 {
		slope := (*fr.Technicals.EMA9 - *fr.Technicals.EMA20) / *fr.Technicals.EMA20
		v := 50 * (1 + math.Tanh(50*slope))
		if *fr.Technicals.EMA9 >= *fr.Technicals.EMA20 {
			v += 10 // trend confirmation
		}
		parts = append(parts, math.Min(v, 100))
	}

	return mean(parts)
}

// squeezeScore blends short interest, cover time and borrow fee.
func squeezeScore(fr *models.FeatureRecord) *float64 {
	var parts []float64

	if si := fr.ShortInterest.Pct; si != nil {
		parts = append(parts, math.Min(*si*2.5, 100))
	}
	if dtc := fr.ShortInterest.DaysToCover; dtc != nil {
		parts = append(parts, 80*math.Min(*dtc/3, 1))
	}
	if fee := fr.Borrow.FeePct; fee != nil {
		parts = append(parts, math.Min(*fee*10, 100))
	}

	return mean(parts)
}

// catalystScore maps the catalyst type, recency and verification into a
// sub-score. Placeholder catalysts do not count as a present component.
func catalystScore(fr *models.FeatureRecord) *float64 {
	c := fr.Catalyst
	if c == nil || c.Placeholder {
		return nil
	}

	v := typeScore(c.Type)
	if c.DaysToEvent != nil {
		switch {
		case *c.DaysToEvent <= 7:
			v += 15
		case *c.DaysToEvent <= 30:
			v += 10
		}
	}
	if c.VerifiedInWindow {
		v *= 1.25
	} else {
		v *= 0.75
	}
	v = math.Min(v, 100)
	return &v
}

func typeScore(typ string) float64 {
	switch {
	case strings.Contains(typ, "earnings"):
		return 80
	case strings.Contains(typ, "news"), strings.Contains(typ, "fda"), strings.Contains(typ, "merger"):
		return 60
	default:
		return 40
	}
}

// sentimentScore blends the provider score with social velocity.
func sentimentScore(fr *models.FeatureRecord) *float64 {
	s := fr.Sentiment
	if s == nil {
		return nil
	}

	var parts []float64
	if s.Score != nil {
		parts = append(parts, clamp(*s.Score, 0, 100))
	}
	if s.MentionsToday != nil && s.AvgMentions7D != nil {
		velocity := *s.MentionsToday / math.Max(1, *s.AvgMentions7D)
		parts = append(parts, 100*math.Min(velocity, 3)/3)
	}

	return mean(parts)
}

// technicalScore blends the RSI sweet spot, ATR band and options skew.
func technicalScore(fr *models.FeatureRecord) *float64 {
	var parts []float64

	if rsi := fr.Technicals.RSI; rsi != nil {
		parts = append(parts, rsiSweetSpot(*rsi))
	}
	if atr := fr.Technicals.ATRPct; atr != nil {
		parts = append(parts, atrBand(*atr))
	}
	if fr.Options != nil && fr.Options.CallPutRatio != nil {
		skew := clamp(*fr.Options.CallPutRatio-1, 0, 2)
		parts = append(parts, 100*skew/2)
	}

	return mean(parts)
}

// rsiSweetSpot peaks at 100 inside [55,70] and decays 5 points per RSI
// point outside the band.
func rsiSweetSpot(rsi float64) float64 {
	var dist float64
	switch {
	case rsi < 55:
		dist = 55 - rsi
	case rsi > 70:
		dist = rsi - 70
	}
	return math.Max(0, 100-5*dist)
}

// atrBand rewards tradeable volatility: 3-8% scores 90, above 8% scores
// 100, below 3% scales down linearly.
func atrBand(atrPct float64) float64 {
	switch {
	case atrPct >= 8:
		return 100
	case atrPct >= 3:
		return 90
	case atrPct <= 0:
		return 0
	default:
		return 90 * atrPct / 3
	}
}

func mean(parts []float64) *float64 {
	if len(parts) == 0 {
		return nil
	}
	var sum float64
	for _, p := range parts {
		sum += p
	}
	v := sum / float64(len(parts))
	return &v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// missingFields lists the scoring inputs absent from the record, for the
// per-candidate audit trail.
func missingFields(fr *models.FeatureRecord) []string {
	var missing []string
	note := func(name string, absent bool) {
		if absent {
			missing = append(missing, name)
		}
	}

	note("price", fr.Price == nil)
	note("rel_volume", fr.Technicals.RelVolume == nil)
	note("vwap", fr.Technicals.VWAP == nil)
	note("ema", fr.Technicals.EMA9 == nil || fr.Technicals.EMA20 == nil)
	note("rsi", fr.Technicals.RSI == nil)
	note("atr_pct", fr.Technicals.ATRPct == nil)
	note("short_interest_pct", fr.ShortInterest.Pct == nil)
	note("days_to_cover", fr.ShortInterest.DaysToCover == nil)
	note("borrow_fee_pct", fr.Borrow.FeePct == nil)
	note("catalyst", fr.Catalyst == nil || fr.Catalyst.Placeholder)
	note("sentiment", fr.Sentiment == nil)
	note("options", fr.Options == nil)
	return missing
}

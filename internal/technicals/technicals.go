// Package technicals derives session and daily-bar indicators for one
// symbol. Indicator math (EMA, RSI, ATR) is delegated to talib; the
// session-level aggregates (VWAP, relative volume) are computed here.
package technicals

import (
	"math"

	"github.com/markcheno/go-talib"

	"squeezerun/internal/models"
	"squeezerun/internal/providers"
)

const (
	emaFastPeriod = 9
	emaSlowPeriod = 20
	rsiPeriod     = 14
	atrPeriod     = 14

	// volatilityWindow is the number of daily returns used for the 30d
	// realized volatility figure.
	volatilityWindow = 30
)

// Compute fills a Technicals sub-record from minute and daily bars.
// Missing or short inputs leave the corresponding fields nil; the
// function never fails.
func Compute(minute, daily []providers.Bar, adv30Shares, price *float64) models.Technicals {
	var t models.Technicals

	computeSession(&t, minute, adv30Shares)
	computeDaily(&t, daily)

	if price != nil && t.VWAP != nil && *t.VWAP > 0 {
		t.VWAPHeldOrReclaimed = *price >= *t.VWAP
	}
	return t
}

// computeSession derives VWAP, session volume and relative volume from
// today's minute bars.
func computeSession(t *models.Technicals, minute []providers.Bar, adv30Shares *float64) {
	if len(minute) == 0 {
		return
	}

	var pv, vol float64
	for _, b := range minute {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * b.Volume
		vol += b.Volume
	}
	t.Volume = models.Float64(vol)
	if vol > 0 {
		t.VWAP = models.Float64(pv / vol)
	}
	if adv30Shares != nil && *adv30Shares > 0 {
		t.RelVolume = models.Float64(vol / *adv30Shares)
	}
}

// computeDaily derives the trend, oscillator and change fields from the
// trailing daily bars (oldest first).
func computeDaily(t *models.Technicals, daily []providers.Bar) {
	n := len(daily)
	if n < 2 {
		return
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range daily {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	last := closes[n-1]

	if n > emaFastPeriod {
		t.EMA9 = models.Float64(talib.Ema(closes, emaFastPeriod)[n-1])
	}
	if n > emaSlowPeriod {
		t.EMA20 = models.Float64(talib.Ema(closes, emaSlowPeriod)[n-1])
	}
	if n > rsiPeriod {
		t.RSI = models.Float64(talib.Rsi(closes, rsiPeriod)[n-1])
	}
	if n > atrPeriod && last > 0 {
		atr := talib.Atr(highs, lows, closes, atrPeriod)[n-1]
		t.ATRPct = models.Float64(100 * atr / last)
	}

	t.PriceChange1DPct = changePct(closes, 1)
	t.PriceChange5DPct = changePct(closes, 5)
	t.PriceChange30DPct = changePct(closes, 30)
	t.Volatility30DPct = realizedVolatility(closes)
}

// changePct returns the percent change from k bars back to the latest
// close, or nil when the history is too short.
func changePct(closes []float64, k int) *float64 {
	n := len(closes)
	if n <= k {
		return nil
	}
	base := closes[n-1-k]
	if base <= 0 {
		return nil
	}
	return models.Float64(100 * (closes[n-1] - base) / base)
}

// realizedVolatility is the annualized standard deviation of daily
// percent returns over the trailing window, as a percentage.
func realizedVolatility(closes []float64) *float64 {
	n := len(closes)
	start := n - volatilityWindow - 1
	if start < 0 {
		start = 0
	}
	window := closes[start:]

	var returns []float64
	for i := 1; i < len(window); i++ {
		if window[i-1] <= 0 {
			continue
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}
	if len(returns) < 5 {
		return nil
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(returns)))

	return models.Float64(100 * std * math.Sqrt(252))
}

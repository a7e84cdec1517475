package technicals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeezerun/internal/models"
	"squeezerun/internal/providers"
)

func minuteBar(h, l, c, v float64) providers.Bar {
	return providers.Bar{Time: time.Now(), High: h, Low: l, Close: c, Volume: v}
}

func dailySeries(closes ...float64) []providers.Bar {
	bars := make([]providers.Bar, len(closes))
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = providers.Bar{
			Time:   day.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.02,
			Low:    c * 0.97,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestComputeSession(t *testing.T) {
	minute := []providers.Bar{
		minuteBar(10.2, 9.8, 10.0, 100_000), // typical 10.0
		minuteBar(10.6, 10.0, 10.4, 300_000), // typical 10.333...
	}

	got := Compute(minute, nil, models.Float64(200_000), models.Float64(10.50))

	require.NotNil(t, got.VWAP)
	wantVWAP := (10.0*100_000 + (10.6+10.0+10.4)/3*300_000) / 400_000
	assert.InDelta(t, wantVWAP, *got.VWAP, 1e-9)

	require.NotNil(t, got.Volume)
	assert.InDelta(t, 400_000, *got.Volume, 1e-9)

	require.NotNil(t, got.RelVolume)
	assert.InDelta(t, 2.0, *got.RelVolume, 1e-9)

	assert.True(t, got.VWAPHeldOrReclaimed, "price above vwap should hold")
}

func TestComputeSessionBelowVWAP(t *testing.T) {
	minute := []providers.Bar{minuteBar(10.2, 9.8, 10.0, 100_000)}
	got := Compute(minute, nil, nil, models.Float64(9.50))
	assert.False(t, got.VWAPHeldOrReclaimed)
	assert.Nil(t, got.RelVolume, "no ADV means no relative volume")
}

func TestComputeDailyTrend(t *testing.T) {
	// 40 sessions grinding steadily higher.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10 + 0.25*float64(i)
	}
	got := Compute(nil, dailySeries(closes...), nil, nil)

	require.NotNil(t, got.EMA9)
	require.NotNil(t, got.EMA20)
	assert.Greater(t, *got.EMA9, *got.EMA20, "fast EMA leads in an uptrend")

	require.NotNil(t, got.RSI)
	assert.Greater(t, *got.RSI, 70.0, "monotonic uptrend pins RSI high")

	require.NotNil(t, got.ATRPct)
	assert.Greater(t, *got.ATRPct, 0.0)

	require.NotNil(t, got.PriceChange1DPct)
	assert.InDelta(t, 100*0.25/19.5, *got.PriceChange1DPct, 1e-9)

	require.NotNil(t, got.PriceChange5DPct)
	require.NotNil(t, got.PriceChange30DPct)
	assert.Greater(t, *got.PriceChange30DPct, *got.PriceChange5DPct)

	require.NotNil(t, got.Volatility30DPct)
	assert.Greater(t, *got.Volatility30DPct, 0.0)
}

func TestComputeDailyShortHistory(t *testing.T) {
	got := Compute(nil, dailySeries(10, 10.5, 11), nil, nil)

	assert.Nil(t, got.EMA9)
	assert.Nil(t, got.EMA20)
	assert.Nil(t, got.RSI)
	assert.Nil(t, got.ATRPct)
	assert.Nil(t, got.PriceChange5DPct)
	assert.Nil(t, got.Volatility30DPct)

	require.NotNil(t, got.PriceChange1DPct)
	assert.InDelta(t, 100*0.5/10.5, *got.PriceChange1DPct, 1e-9)
}

func TestComputeEmptyInputs(t *testing.T) {
	got := Compute(nil, nil, nil, nil)
	assert.Nil(t, got.VWAP)
	assert.Nil(t, got.RSI)
	assert.False(t, got.VWAPHeldOrReclaimed)
}

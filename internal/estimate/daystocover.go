package estimate

import "math"

// DaysToCover estimates cover time from short shares and average daily
// volume, adjusted for turnover against the float. Result is clamped to
// [0.1, 30].
func DaysToCover(shortShares, avgVolume float64, floatShares *float64) float64 {
	dtc := shortShares / math.Max(1, avgVolume)

	if floatShares != nil && *floatShares > 0 {
		turnover := avgVolume / *floatShares
		switch {
		case turnover > 0.02: // fast tape covers quicker
			dtc *= 0.7
		case turnover < 0.005: // illiquid names take longer
			dtc *= 1.5
		}
	}

	return clamp(dtc, 0.1, 30)
}

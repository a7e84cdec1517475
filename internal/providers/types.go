package providers

import "time"

// Fundamentals is the share-structure record, TTL ~4h.
type Fundamentals struct {
	FloatShares       *float64  `json:"float_shares,omitempty"`
	MarketCap         *float64  `json:"market_cap,omitempty"`
	SharesOutstanding *float64  `json:"shares_outstanding,omitempty"`
	AsOf              time.Time `json:"asof"`
}

// Liquidity is the 30-day activity record, TTL ~24h.
type Liquidity struct {
	AvgDollarLiquidity30D *float64  `json:"avg_dollar_liquidity_30d,omitempty"`
	ADV30Shares           *float64  `json:"adv_30d_shares,omitempty"`
	AsOf                  time.Time `json:"asof"`
}

// Borrow is the stock-loan record, TTL ~4h.
type Borrow struct {
	FeePct         *float64  `json:"borrow_fee_pct,omitempty"`
	TrendPP7D      *float64  `json:"borrow_fee_trend_pp7d,omitempty"`
	UtilizationPct *float64  `json:"utilization_pct,omitempty"`
	AsOf           time.Time `json:"asof"`
}

// ShortInterest is the direct short-interest record, TTL ~24h.
type ShortInterest struct {
	Shares      *float64  `json:"short_interest_shares,omitempty"`
	Pct         *float64  `json:"short_interest_pct,omitempty"`
	DaysToCover *float64  `json:"days_to_cover,omitempty"`
	AsOf        time.Time `json:"asof"`
}

// CatalystItem is a single upcoming event or headline.
type CatalystItem struct {
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Catalyst is the provider-sourced catalyst record, TTL ~12h.
type Catalyst struct {
	Type             string         `json:"type"`
	VerifiedInWindow bool           `json:"verified_in_window"`
	DateValid        bool           `json:"date_valid"`
	DaysToEvent      *float64       `json:"days_to_event,omitempty"`
	Strength         float64        `json:"strength"`
	Items            []CatalystItem `json:"items,omitempty"`
}

// Quote is a live price snapshot; no TTL beyond the request.
type Quote struct {
	Last      float64   `json:"last"`
	PrevClose *float64  `json:"prev_close,omitempty"`
	SpreadPct *float64  `json:"spread_pct,omitempty"`
	Halted    bool      `json:"halted,omitempty"`
	AsOf      time.Time `json:"asof"`
}

// Bar is one OHLCV bar, minute or daily.
type Bar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// SnapshotRow is one symbol's row in the full-market snapshot used by
// the pre-filter.
type SnapshotRow struct {
	Ticker          string  `json:"ticker"`
	Price           float64 `json:"price"`
	DayVolume       float64 `json:"day_volume"`
	DayChangePct    float64 `json:"day_change_pct"`
	DayDollarVolume float64 `json:"day_dollar_volume"`
}

// Sentiment is the optional sentiment/social record, TTL ~1h.
type Sentiment struct {
	Score         *float64 `json:"score,omitempty"`
	MentionsToday *float64 `json:"mentions_today,omitempty"`
	AvgMentions7D *float64 `json:"avg_mentions_7d,omitempty"`
}

// Options is the optional options-flow record.
type Options struct {
	CallPutRatio *float64 `json:"call_put_ratio,omitempty"`
	IVPercentile *float64 `json:"iv_percentile,omitempty"`
}

// ShortVolumeRow is one symbol's aggregated FINRA daily short-volume
// tape entry (summed across tapes).
type ShortVolumeRow struct {
	Ticker      string  `json:"ticker"`
	ShortVolume float64 `json:"short_volume"`
	TotalVolume float64 `json:"total_volume"`
	Date        string  `json:"date"` // YYYY-MM-DD of the source file
}

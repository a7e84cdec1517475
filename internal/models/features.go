package models

import "time"

// Provenance labels where a derived field's value came from.
type Provenance string

const (
	ProvenanceReal     Provenance = "real"     // direct provider data
	ProvenanceProxy    Provenance = "proxy"    // derived from a related source (FINRA tape)
	ProvenanceEstimate Provenance = "estimate" // heuristic estimator output
	ProvenanceDefault  Provenance = "default"  // market baseline fallback
)

// ShortInterest carries short-interest data with its provenance discipline.
type ShortInterest struct {
	Pct         *float64   `json:"short_interest_pct,omitempty"`
	Shares      *float64   `json:"short_interest_shares,omitempty"`
	DaysToCover *float64   `json:"days_to_cover,omitempty"`
	Provenance  Provenance `json:"si_provenance,omitempty"`
	Confidence  float64    `json:"si_confidence,omitempty"`
	AgeDays     *float64   `json:"short_interest_age_days,omitempty"`
	BasisDate   string     `json:"basis_date,omitempty"` // YYYY-MM-DD of the source observation
}

// Borrow carries stock-loan data with the same provenance discipline.
type Borrow struct {
	FeePct         *float64   `json:"borrow_fee_pct,omitempty"`
	TrendPP7D      *float64   `json:"borrow_fee_trend_pp7d,omitempty"`
	UtilizationPct *float64   `json:"utilization_pct,omitempty"`
	Provenance     Provenance `json:"borrow_provenance,omitempty"`
	Confidence     float64    `json:"borrow_confidence,omitempty"`
}

// CatalystItem is a single catalyst headline or event.
type CatalystItem struct {
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Catalyst describes the best known upcoming or in-flight catalyst for a symbol.
type Catalyst struct {
	Type             string         `json:"type"`
	VerifiedInWindow bool           `json:"verified_in_window"`
	DaysToEvent      *float64       `json:"days_to_event,omitempty"`
	DateValid        bool           `json:"date_valid"`
	Strength         float64        `json:"strength"`
	Items            []CatalystItem `json:"items,omitempty"` // capped at 3
	Placeholder      bool           `json:"placeholder,omitempty"`
}

// Technicals holds session and daily-bar derived indicators.
type Technicals struct {
	VWAP                *float64 `json:"vwap,omitempty"`
	EMA9                *float64 `json:"ema9,omitempty"`
	EMA20               *float64 `json:"ema20,omitempty"`
	RSI                 *float64 `json:"rsi,omitempty"`
	ATRPct              *float64 `json:"atr_pct,omitempty"`
	RelVolume           *float64 `json:"rel_volume,omitempty"`
	Volume              *float64 `json:"volume,omitempty"`
	PriceChange1DPct    *float64 `json:"price_change_1d_pct,omitempty"`
	PriceChange5DPct    *float64 `json:"price_change_5d_pct,omitempty"`
	PriceChange30DPct   *float64 `json:"price_change_30d_pct,omitempty"`
	Volatility30DPct    *float64 `json:"volatility_30d_pct,omitempty"`
	VWAPHeldOrReclaimed bool     `json:"vwap_held_or_reclaimed"`
}

// Options holds the optional options-flow sub-record.
type Options struct {
	CallPutRatio *float64 `json:"call_put_ratio,omitempty"`
	IVPercentile *float64 `json:"iv_percentile,omitempty"`
}

// Sentiment holds the optional sentiment/social sub-record.
type Sentiment struct {
	Score         *float64 `json:"score,omitempty"` // 0..100
	MentionsToday *float64 `json:"mentions_today,omitempty"`
	AvgMentions7D *float64 `json:"avg_mentions_7d,omitempty"`
}

// Freshness tracks how stale the slow-moving inputs are.
type Freshness struct {
	ShortInterestAgeDays *float64 `json:"short_interest_age_days,omitempty"`
	BorrowAgeDays        *float64 `json:"borrow_age_days,omitempty"`
}

// FeatureRecord is the per-symbol, per-run union of provider outputs,
// estimator outputs and derived technicals. It exists only for the
// duration of a run.
type FeatureRecord struct {
	Ticker string   `json:"ticker"`
	Price  *float64 `json:"price,omitempty"`

	FloatShares           *float64 `json:"float_shares,omitempty"`
	SharesOutstanding     *float64 `json:"shares_outstanding,omitempty"`
	MarketCap             *float64 `json:"market_cap,omitempty"`
	ADV30Shares           *float64 `json:"adv_30d_shares,omitempty"`
	AvgDollarLiquidity30D *float64 `json:"avg_dollar_liquidity_30d,omitempty"`

	ShortInterest ShortInterest `json:"short_interest"`
	Borrow        Borrow        `json:"borrow"`
	Freshness     Freshness     `json:"freshness"`

	Catalyst   *Catalyst  `json:"catalyst,omitempty"`
	Technicals Technicals `json:"technicals"`
	Options    *Options   `json:"options,omitempty"`
	Sentiment  *Sentiment `json:"sentiment,omitempty"`

	SpreadPctToday *float64 `json:"spread_pct_today,omitempty"`
	HaltedToday    bool     `json:"halted_today,omitempty"`
	Held           bool     `json:"_held,omitempty"`

	// Set by the gate engine.
	Flags     []string `json:"flags,omitempty"`
	GateScore float64  `json:"gate_score"`

	// Set by the scorer / mapper.
	CompositeScore int    `json:"composite_score"`
	Tier           Tier   `json:"tier,omitempty"`
	Action         Action `json:"action,omitempty"`

	// Provider-specific leftovers that have no typed home.
	Extras map[string]any `json:"extras,omitempty"`
}

// HasFlag reports whether the gate engine set the named signal.
func (fr *FeatureRecord) HasFlag(name string) bool {
	for _, f := range fr.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// AddFlag appends a gate signal once.
func (fr *FeatureRecord) AddFlag(name string) {
	if !fr.HasFlag(name) {
		fr.Flags = append(fr.Flags, name)
	}
}

// PriceValue returns the price or 0 when unset.
func (fr *FeatureRecord) PriceValue() float64 {
	if fr.Price == nil {
		return 0
	}
	return *fr.Price
}

// RelVolume returns the session relative volume or 0 when unknown.
func (fr *FeatureRecord) RelVolume() float64 {
	if fr.Technicals.RelVolume == nil {
		return 0
	}
	return *fr.Technicals.RelVolume
}

// Float64 returns a pointer to v. Convenience for building records.
func Float64(v float64) *float64 { return &v }

// Clock abstracts time for deterministic runs.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Used by tests and replays.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

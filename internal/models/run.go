package models

import "time"

// Tier is the momentum readiness tier assigned to a candidate.
type Tier string

const (
	TierTradeReady Tier = "TRADE_READY"
	TierEarlyReady Tier = "EARLY_READY"
	TierWatch      Tier = "WATCH"
	TierMonitor    Tier = "MONITOR"
	TierNone       Tier = "NONE"
)

// Action is the discrete action mapped from (score, tier, signals).
type Action string

const (
	ActionBuy        Action = "BUY"
	ActionEarlyReady Action = "EARLY_READY" // displayed action; BUY candidate downstream
	ActionWatchlist  Action = "WATCHLIST"
	ActionMonitor    Action = "MONITOR"
	ActionNoAction   Action = "NO_ACTION"
	ActionExit       Action = "EXIT_CANDIDATE"
)

// Hard elimination reason codes emitted by the gate engine.
const (
	DropPortfolioExclusion    = "portfolio_exclusion"
	DropNoPriceData           = "no_price_data"
	DropPriceBelowMinimum     = "price_below_minimum"
	DropInsufficientLiquidity = "insufficient_liquidity"
	DropFloatExceedsMax       = "float_exceeds_max"
	DropHaltsToday            = "halts_today"
	DropExcessiveSpread       = "excessive_spread"
)

// Gate stage names used in Run.GateCounts and by the cold-tape detector.
const (
	StageTradeReady = "trade_ready"
	StageTechnical  = "technical"
	StageSqueeze    = "squeeze"
	StageCatalyst   = "catalyst"
)

// Risk is the mechanical risk frame attached to each candidate.
type Risk struct {
	StopLoss float64 `json:"stop_loss"`
	TP1      float64 `json:"tp1"`
	TP2      float64 `json:"tp2"`
}

// EntryHint describes the suggested entry pattern.
type EntryHint struct {
	Type string `json:"type"` // vwap_reclaim | base_breakout
}

// ComponentScore is one scored component inside a ScoreExplain.
type ComponentScore struct {
	Score  float64 `json:"score"`  // 0..100 sub-score
	Weight float64 `json:"weight"` // configured weight before renormalization
}

// ScoreExplain captures how a composite score was assembled so a run is
// auditable after the fact.
type ScoreExplain struct {
	Components     map[string]ComponentScore `json:"components"`
	PresentWeight  float64                   `json:"present_weight"`
	GateScore      float64                   `json:"gate_score"`
	GateFlags      []string                  `json:"gate_flags,omitempty"`
	MissingFields  []string                  `json:"missing_fields,omitempty"`
	CeilingApplied bool                      `json:"ceiling_applied,omitempty"`
}

// Candidate is one ranked discovery result.
type Candidate struct {
	Ticker       string         `json:"ticker"`
	Price        float64        `json:"price"`
	Composite    int            `json:"composite_score"`
	Tier         Tier           `json:"tier"`
	Action       Action         `json:"action"`
	EntryHint    EntryHint      `json:"entry_hint"`
	Risk         Risk           `json:"risk"`
	ScoreExplain ScoreExplain   `json:"score_explain"`
	Features     *FeatureRecord `json:"features,omitempty"`
}

// Run is the audited result of one discovery pass.
type Run struct {
	RunID            string              `json:"run_id"`
	AsOf             time.Time           `json:"asof"`
	Preset           string              `json:"preset"`
	ConfigDigest     string              `json:"config_digest"`
	UniverseCount    int                 `json:"universe_count"`
	PrefilteredCount int                 `json:"prefiltered_count"`
	EnrichedCount    int                 `json:"enriched_count"`
	PassedCount      int                 `json:"passed_count"`
	GateCounts       map[string]int      `json:"gate_counts"`
	RelaxationActive bool                `json:"relaxation_active"`
	Cancelled        bool                `json:"cancelled,omitempty"`
	Candidates       []Candidate         `json:"candidates"`
	Drops            map[string][]string `json:"drops"`
}

package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Env knobs recognized by the engine.
const (
	EnvConfigPath  = "SQUEEZE_CONFIG_PATH"      // selects the preset file
	EnvTestSymbols = "ENGINE_TEST_SYMBOLS"      // overrides the universe with a fixed list
	EnvMaxTickers  = "SCAN_MAX_TICKERS"         // caps pre-filter output
	EnvSkipCacheWr = "SKIP_CACHE_WRITES"        // disables disk cache writes
	EnvStrictMode  = "SQUEEZE_STRICT_PROVIDERS" // comma list of providers that must have credentials
	EnvRedisAddr   = "SQUEEZE_REDIS_ADDR"       // optional shared cold store
)

// Thresholds are the hard and soft gate thresholds.
type Thresholds struct {
	PriceMin                float64 `yaml:"price_min" json:"price_min"`
	FloatSharesMax          float64 `yaml:"float_shares_max" json:"float_shares_max"`
	ShortInterestPctMin     float64 `yaml:"short_interest_pct_min" json:"short_interest_pct_min"`
	ShortInterestPctPref    float64 `yaml:"short_interest_pct_preferred" json:"short_interest_pct_preferred"`
	DaysToCoverMin          float64 `yaml:"days_to_cover_min" json:"days_to_cover_min"`
	DaysToCoverPref         float64 `yaml:"days_to_cover_preferred" json:"days_to_cover_preferred"`
	BorrowFeePctMin         float64 `yaml:"borrow_fee_pct_min" json:"borrow_fee_pct_min"`
	BorrowFeePctPref        float64 `yaml:"borrow_fee_pct_preferred" json:"borrow_fee_pct_preferred"`
	BorrowFeeTrendMinPP7D   float64 `yaml:"borrow_fee_trend_min_pp_7d" json:"borrow_fee_trend_min_pp_7d"`
	AvgDollarLiquidityMin   float64 `yaml:"avg_dollar_liquidity_min" json:"avg_dollar_liquidity_min"`
	CatalystWindowDaysMin   float64 `yaml:"catalyst_window_days_min" json:"catalyst_window_days_min"`
	CatalystWindowDaysMax   float64 `yaml:"catalyst_window_days_max" json:"catalyst_window_days_max"`
	RSIBuyMin               float64 `yaml:"rsi_buy_min" json:"rsi_buy_min"`
	RSIBuyMax               float64 `yaml:"rsi_buy_max" json:"rsi_buy_max"`
	ATRPctMin               float64 `yaml:"atr_pct_min" json:"atr_pct_min"`
}

// Momentum holds the relative-volume tiers for readiness gating.
type Momentum struct {
	RelVolTradeReady   float64 `yaml:"rel_vol_trade_ready" json:"rel_vol_trade_ready"`
	RelVolEarly        float64 `yaml:"rel_vol_early" json:"rel_vol_early"`
	HighPriorityRelVol float64 `yaml:"high_priority_rel_vol" json:"high_priority_rel_vol"`
	MinAbs1DChangePct  float64 `yaml:"min_abs_1d_change_pct" json:"min_abs_1d_change_pct"`
}

// Weights are the composite component weights, renormalized over
// present components at scoring time.
type Weights struct {
	Momentum  float64 `yaml:"momentum" json:"momentum"`
	Squeeze   float64 `yaml:"squeeze" json:"squeeze"`
	Catalyst  float64 `yaml:"catalyst" json:"catalyst"`
	Sentiment float64 `yaml:"sentiment" json:"sentiment"`
	Technical float64 `yaml:"technical" json:"technical"`
}

// TierBand is the [scoreMin, scoreMax] band for one readiness tier.
type TierBand struct {
	ScoreMin float64 `yaml:"score_min" json:"score_min"`
	ScoreMax float64 `yaml:"score_max" json:"score_max"`
}

// Tiers configures the readiness tier score bands.
type Tiers struct {
	TradeReady TierBand `yaml:"trade_ready" json:"trade_ready"`
	EarlyReady TierBand `yaml:"early_ready" json:"early_ready"`
	Watch      TierBand `yaml:"watch" json:"watch"`
	Monitor    TierBand `yaml:"monitor" json:"monitor"`
}

// Relaxation is the threshold delta applied while cold tape is active.
type Relaxation struct {
	RelVolTradeReadyDelta float64 `yaml:"rel_vol_trade_ready_delta" json:"rel_vol_trade_ready_delta"`
	RelVolEarlyDelta      float64 `yaml:"rel_vol_early_delta" json:"rel_vol_early_delta"`
	RSIMinDelta           float64 `yaml:"rsi_min_delta" json:"rsi_min_delta"`
	ATRPctMinDelta        float64 `yaml:"atr_pct_min_delta" json:"atr_pct_min_delta"`
}

// ColdTape configures the cold-tape regime detector.
type ColdTape struct {
	// Runs is the number of consecutive runs with starved stage counts
	// required to activate. The detector counts runs, not wall clock;
	// WindowSec only bounds how stale a counted run may be.
	Runs         int        `yaml:"runs" json:"runs"`
	StageMax     int        `yaml:"stage_max" json:"stage_max"`
	WindowSec    int        `yaml:"window_sec" json:"window_sec"`
	ScoreCeiling int        `yaml:"score_ceiling" json:"score_ceiling"`
	Relaxation   Relaxation `yaml:"relaxation" json:"relaxation"`
}

// Exclusions configures optional hard gates.
type Exclusions struct {
	ExcludeHaltsToday bool    `yaml:"exclude_halts_today" json:"exclude_halts_today"`
	MaxSpreadPct      float64 `yaml:"max_spread_pct" json:"max_spread_pct"` // 0 disables
}

// FreshnessCfg configures data staleness penalties.
type FreshnessCfg struct {
	ShortInterestMaxAgeDays float64 `yaml:"short_interest_max_age_days" json:"short_interest_max_age_days"`
}

// ProviderCfg configures one upstream data provider.
type ProviderCfg struct {
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env" json:"api_key_env"`
	RPS         float64 `yaml:"rps" json:"rps"`
	Burst       int     `yaml:"burst" json:"burst"`
	Concurrency int     `yaml:"concurrency" json:"concurrency"`
	TimeoutSecs int     `yaml:"timeout_secs" json:"timeout_secs"`
	TTLSecs     int     `yaml:"ttl_secs" json:"ttl_secs"`
	Strict      bool    `yaml:"strict" json:"strict"` // missing credentials fail at startup
}

// Timeout returns the per-request timeout as a duration.
func (p ProviderCfg) Timeout() time.Duration { return time.Duration(p.TimeoutSecs) * time.Second }

// TTL returns the cache TTL as a duration. Zero means live data.
func (p ProviderCfg) TTL() time.Duration { return time.Duration(p.TTLSecs) * time.Second }

// Config is the full preset bundle for one engine instance.
type Config struct {
	Preset     string                 `yaml:"preset" json:"preset"`
	Thresholds Thresholds             `yaml:"thresholds" json:"thresholds"`
	Momentum   Momentum               `yaml:"momentum" json:"momentum"`
	Weights    Weights                `yaml:"weights" json:"weights"`
	Tiers      Tiers                  `yaml:"tiers" json:"tiers"`
	ColdTape   ColdTape               `yaml:"cold_tape" json:"cold_tape"`
	Exclusions Exclusions             `yaml:"exclusions" json:"exclusions"`
	Freshness  FreshnessCfg           `yaml:"freshness" json:"freshness"`
	Providers  map[string]ProviderCfg `yaml:"providers" json:"providers"`

	GlobalBudgetSecs   int    `yaml:"global_budget_secs" json:"global_budget_secs"`
	RefreshCadenceSecs int    `yaml:"refresh_cadence_secs" json:"refresh_cadence_secs"`
	MaxTickers         int    `yaml:"max_tickers" json:"max_tickers"`
	DataDir            string `yaml:"data_dir" json:"data_dir"`
}

// GlobalBudget is the wall-clock budget for one enrichment pass.
func (c *Config) GlobalBudget() time.Duration {
	return time.Duration(c.GlobalBudgetSecs) * time.Second
}

// RefreshCadence is the scheduler interval between runs.
func (c *Config) RefreshCadence() time.Duration {
	return time.Duration(c.RefreshCadenceSecs) * time.Second
}

// Default returns the production-ready default preset.
func Default() *Config {
	cfg := &Config{
		Preset: "default",
		Thresholds: Thresholds{
			PriceMin:              0.50,
			FloatSharesMax:        500_000_000,
			ShortInterestPctMin:   10,
			ShortInterestPctPref:  20,
			DaysToCoverMin:        1,
			DaysToCoverPref:       3,
			BorrowFeePctMin:       3,
			BorrowFeePctPref:      8,
			BorrowFeeTrendMinPP7D: 0,
			AvgDollarLiquidityMin: 500_000,
			CatalystWindowDaysMin: 0,
			CatalystWindowDaysMax: 30,
			RSIBuyMin:             60,
			RSIBuyMax:             75,
			ATRPctMin:             4,
		},
		Momentum: Momentum{
			RelVolTradeReady:   3.0,
			RelVolEarly:        1.8,
			HighPriorityRelVol: 3.0,
			MinAbs1DChangePct:  3.5,
		},
		Weights: Weights{
			Momentum:  0.25,
			Squeeze:   0.20,
			Catalyst:  0.30,
			Sentiment: 0.15,
			Technical: 0.10,
		},
		Tiers: Tiers{
			TradeReady: TierBand{ScoreMin: 75, ScoreMax: 100},
			EarlyReady: TierBand{ScoreMin: 60, ScoreMax: 80},
			Watch:      TierBand{ScoreMin: 45, ScoreMax: 100},
			Monitor:    TierBand{ScoreMin: 30, ScoreMax: 100},
		},
		ColdTape: ColdTape{
			Runs:         3,
			StageMax:     2,
			WindowSec:    1800,
			ScoreCeiling: 82,
			Relaxation: Relaxation{
				RelVolTradeReadyDelta: 0.7,
				RelVolEarlyDelta:      0.4,
				RSIMinDelta:           5,
				ATRPctMinDelta:        1,
			},
		},
		Exclusions: Exclusions{
			ExcludeHaltsToday: true,
			MaxSpreadPct:      0, // disabled unless set by the preset
		},
		Freshness: FreshnessCfg{
			ShortInterestMaxAgeDays: 14,
		},
		GlobalBudgetSecs:   30,
		RefreshCadenceSecs: 60,
		MaxTickers:         1200,
		DataDir:            "data",
	}

	cfg.Providers = map[string]ProviderCfg{
		"broker": {
			BaseURL:     "https://paper-api.alpaca.markets",
			APIKeyEnv:   "BROKER_API_KEY",
			RPS:         3,
			Burst:       3,
			Concurrency: 4,
			TimeoutSecs: 10,
			TTLSecs:     0, // live quotes/snapshot, no TTL beyond the request
		},
		"fundamentals": {
			BaseURL:     "https://query1.finance.yahoo.com",
			RPS:         1,
			Burst:       1,
			Concurrency: 1, // strict vendor
			TimeoutSecs: 8,
			TTLSecs:     4 * 3600,
		},
		"liquidity": {
			BaseURL:     "https://query1.finance.yahoo.com",
			RPS:         1,
			Burst:       1,
			Concurrency: 1,
			TimeoutSecs: 8,
			TTLSecs:     24 * 3600,
		},
		"borrow": {
			BaseURL:     "https://iborrowdesk.com/api",
			RPS:         0.5,
			Burst:       1,
			Concurrency: 1,
			TimeoutSecs: 8,
			TTLSecs:     4 * 3600,
		},
		"shortinterest": {
			BaseURL:     "https://api.fintel.io",
			APIKeyEnv:   "FINTEL_API_KEY",
			RPS:         0.5,
			Burst:       1,
			Concurrency: 1,
			TimeoutSecs: 8,
			TTLSecs:     24 * 3600,
		},
		"catalyst": {
			BaseURL:     "https://api.polygon.io",
			APIKeyEnv:   "POLYGON_API_KEY",
			RPS:         2,
			Burst:       2,
			Concurrency: 2,
			TimeoutSecs: 8,
			TTLSecs:     12 * 3600,
		},
		"finra": {
			BaseURL:     "https://cdn.finra.org/equity/regsho/daily",
			RPS:         1,
			Burst:       1,
			Concurrency: 1,
			TimeoutSecs: 10,
			TTLSecs:     24 * 3600,
		},
		"bars": {
			BaseURL:     "https://data.alpaca.markets",
			APIKeyEnv:   "BROKER_API_KEY",
			RPS:         3,
			Burst:       5,
			Concurrency: 4,
			TimeoutSecs: 20, // bars batches are slow
			TTLSecs:     5 * 60,
		},
		"sentiment": {
			BaseURL:     "https://tradestie.com/api/v1",
			RPS:         1,
			Burst:       1,
			Concurrency: 1,
			TimeoutSecs: 8,
			TTLSecs:     3600,
		},
	}

	return cfg
}

// Load reads the preset selected by SQUEEZE_CONFIG_PATH, falling back to
// the default preset when the variable is unset. Environment knobs are
// applied on top.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvMaxTickers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s=%q", EnvMaxTickers, v)
		}
		cfg.MaxTickers = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the preset for fatal misconfiguration. Invalid config
// aborts at startup, never mid-run.
func (c *Config) Validate() error {
	if c.Preset == "" {
		return fmt.Errorf("config: preset name is required")
	}
	if c.Thresholds.PriceMin < 0 {
		return fmt.Errorf("config: thresholds.price_min must be >= 0")
	}
	if c.Thresholds.FloatSharesMax <= 0 {
		return fmt.Errorf("config: thresholds.float_shares_max must be > 0")
	}
	if c.Thresholds.RSIBuyMin >= c.Thresholds.RSIBuyMax {
		return fmt.Errorf("config: rsi_buy_min %.1f must be below rsi_buy_max %.1f",
			c.Thresholds.RSIBuyMin, c.Thresholds.RSIBuyMax)
	}
	w := c.Weights
	total := w.Momentum + w.Squeeze + w.Catalyst + w.Sentiment + w.Technical
	if total <= 0 {
		return fmt.Errorf("config: component weights must sum to a positive value")
	}
	for _, v := range []float64{w.Momentum, w.Squeeze, w.Catalyst, w.Sentiment, w.Technical} {
		if v < 0 {
			return fmt.Errorf("config: component weights must be non-negative")
		}
	}
	if c.Tiers.EarlyReady.ScoreMin > c.Tiers.EarlyReady.ScoreMax {
		return fmt.Errorf("config: early_ready score band is inverted")
	}
	if c.ColdTape.Runs <= 0 {
		return fmt.Errorf("config: cold_tape.runs must be > 0")
	}
	if c.ColdTape.ScoreCeiling <= 0 || c.ColdTape.ScoreCeiling > 100 {
		return fmt.Errorf("config: cold_tape.score_ceiling must be in (0,100]")
	}
	if c.GlobalBudgetSecs <= 0 {
		return fmt.Errorf("config: global_budget must be > 0")
	}
	if c.MaxTickers <= 0 {
		return fmt.Errorf("config: max_tickers must be > 0")
	}
	return nil
}

// StrictProviders returns the providers whose credentials must be present
// at startup: those marked strict in the preset plus any named in the
// SQUEEZE_STRICT_PROVIDERS env list.
func (c *Config) StrictProviders() map[string]bool {
	strict := make(map[string]bool)
	for name, p := range c.Providers {
		if p.Strict {
			strict[name] = true
		}
	}
	if v := os.Getenv(EnvStrictMode); v != "" {
		for _, name := range splitComma(v) {
			strict[name] = true
		}
	}
	return strict
}

// CheckStrictCredentials fails when a strict provider's API key env var is
// empty. Called once at engine construction.
func (c *Config) CheckStrictCredentials() error {
	for name := range c.StrictProviders() {
		p, ok := c.Providers[name]
		if !ok {
			return fmt.Errorf("strict provider %q is not configured", name)
		}
		if p.APIKeyEnv == "" {
			continue // provider needs no credential
		}
		if os.Getenv(p.APIKeyEnv) == "" {
			return fmt.Errorf("strict provider %q: missing credential %s", name, p.APIKeyEnv)
		}
	}
	return nil
}

// Digest returns a stable sha256 digest of the preset. Identical presets
// produce identical digests across processes, which anchors run audits.
func (c *Config) Digest() string {
	// json.Marshal sorts map keys, so the encoding is canonical.
	data, err := json.Marshal(c)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// SkipCacheWrites reports whether disk cache writes are disabled.
func SkipCacheWrites() bool {
	v := os.Getenv(EnvSkipCacheWr)
	return v == "1" || v == "true" || v == "yes"
}

// TestSymbols returns the fixed universe override, if any.
func TestSymbols() []string {
	v := os.Getenv(EnvTestSymbols)
	if v == "" {
		return nil
	}
	return splitComma(v)
}

func splitComma(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

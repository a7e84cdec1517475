// Package universe selects the candidate tickers for one run: the
// broker's listed universe (or a fixed test list), minus holdings,
// narrowed by a cheap snapshot pre-filter before the expensive
// provider fan-out.
package universe

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"squeezerun/internal/config"
	"squeezerun/internal/providers"
)

// Snapshot pre-filter bounds. These are structural to the strategy (the
// scanner targets liquid low/mid-priced movers), not preset knobs.
const (
	preFilterPriceMin     = 2.0
	preFilterPriceMax     = 100.0
	preFilterVolumeMin    = 500_000
	preFilterAbsChangeMin = 2.0
	preFilterDollarVolMin = 1_000_000
)

// Builder produces the per-run candidate list.
type Builder struct {
	market providers.MarketPort
	cfg    *config.Config
}

// New creates a Builder over the given market port.
func New(market providers.MarketPort, cfg *config.Config) *Builder {
	return &Builder{market: market, cfg: cfg}
}

// Selection is the universe stage's output for one run.
type Selection struct {
	Tickers      []string // pre-filtered, sorted, capped
	Holdings     map[string]bool
	UniverseSize int // universe size before holdings removal and pre-filter
}

// Build returns the pre-filtered tickers (sorted), the holdings set and
// the size of the universe before any filtering, for the run audit.
// Universe failure is fatal for the run; holdings and snapshot failures
// degrade (empty holdings, shape-heuristic pre-filter).
func (b *Builder) Build(ctx context.Context) (*Selection, error) {
	holdings := b.holdings(ctx)

	base, err := b.universe(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(base))
	for _, t := range base {
		if !holdings[t] {
			candidates = append(candidates, t)
		}
	}

	filtered := b.preFilter(ctx, candidates)
	if b.cfg.MaxTickers > 0 && len(filtered) > b.cfg.MaxTickers {
		filtered = filtered[:b.cfg.MaxTickers]
	}

	log.Debug().
		Int("universe", len(base)).
		Int("prefiltered", len(filtered)).
		Int("holdings", len(holdings)).
		Msg("universe built")
	return &Selection{Tickers: filtered, Holdings: holdings, UniverseSize: len(base)}, nil
}

func (b *Builder) universe(ctx context.Context) ([]string, error) {
	if syms := config.TestSymbols(); len(syms) > 0 {
		out := make([]string, 0, len(syms))
		for _, s := range syms {
			out = append(out, strings.ToUpper(s))
		}
		sort.Strings(out)
		return out, nil
	}

	tickers, err := b.market.Universe(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (b *Builder) holdings(ctx context.Context) map[string]bool {
	held, err := b.market.Holdings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("holdings unavailable, treating portfolio as empty")
		return map[string]bool{}
	}
	out := make(map[string]bool, len(held))
	for _, t := range held {
		out[strings.ToUpper(t)] = true
	}
	return out
}

// preFilter narrows the universe with one snapshot call. When the
// snapshot is unavailable it falls back to a symbol shape heuristic so
// the run can still proceed.
func (b *Builder) preFilter(ctx context.Context, tickers []string) []string {
	snapshot, err := b.market.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("snapshot unavailable, using shape heuristic pre-filter")
		return shapeHeuristic(tickers)
	}

	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		row, ok := snapshot[t]
		if !ok {
			continue
		}
		if passesSnapshot(row) {
			out = append(out, t)
		}
	}
	return out
}

func passesSnapshot(row providers.SnapshotRow) bool {
	if row.Price < preFilterPriceMin || row.Price > preFilterPriceMax {
		return false
	}
	if row.DayVolume < preFilterVolumeMin {
		return false
	}
	if row.DayChangePct > -preFilterAbsChangeMin && row.DayChangePct < preFilterAbsChangeMin {
		return false
	}
	return row.DayDollarVolume >= preFilterDollarVolMin
}

// shapeHeuristic keeps short common-stock-looking symbols. Long symbols
// and X/Z suffixes skew toward warrants, units and test issues.
func shapeHeuristic(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if len(t) > 4 || strings.ContainsAny(t, "XZ") {
			continue
		}
		out = append(out, t)
	}
	return out
}

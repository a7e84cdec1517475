// Package enrich assembles per-symbol feature records: a concurrent
// fan-out across every provider kind, a merge, then local fallbacks
// (FINRA proxy, estimator tiers, catalyst synthesis, technicals) so each
// ticker yields a record even on partial provider failure.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"squeezerun/internal/config"
	"squeezerun/internal/estimate"
	"squeezerun/internal/models"
	"squeezerun/internal/net/fanout"
	"squeezerun/internal/providers"
	"squeezerun/internal/technicals"
)

// dailyBarDays is the daily-bar history depth: enough for EMA(20),
// RSI/ATR(14) warmup and the 30-day change/volatility fields.
const dailyBarDays = 60

const defaultConcurrency = 4

// Orchestrator runs the enrichment stage of one scan.
type Orchestrator struct {
	port  providers.Port
	cfg   *config.Config
	clock models.Clock
}

// New creates an Orchestrator over the given provider port.
func New(port providers.Port, cfg *config.Config, clock models.Clock) *Orchestrator {
	return &Orchestrator{port: port, cfg: cfg, clock: clock}
}

// Enrich fetches every provider kind for every ticker under the global
// wall-clock budget and merges the results into feature records, one per
// input ticker, in input order. Missing data stays nil; nothing here
// fails the run.
func (o *Orchestrator) Enrich(ctx context.Context, tickers []string, holdings map[string]bool) []*models.FeatureRecord {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.GlobalBudget())
	defer cancel()

	var (
		fundamentals map[string]*providers.Fundamentals
		liquidity    map[string]*providers.Liquidity
		borrow       map[string]*providers.Borrow
		shortInt     map[string]*providers.ShortInterest
		catalyst     map[string]*providers.Catalyst
		sentiment    map[string]*providers.Sentiment
		options      map[string]*providers.Options
		quotes       map[string]*providers.Quote
		minuteBars   map[string][]providers.Bar
		dailyBars    map[string][]providers.Bar
	)

	var wg sync.WaitGroup
	batch := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	batch(func() {
		fundamentals = fanout.Map(ctx, tickers, o.conc("fundamentals"), 0, o.port.Fundamentals)
	})
	batch(func() {
		liquidity = fanout.Map(ctx, tickers, o.conc("liquidity"), 0, o.port.Liquidity)
	})
	batch(func() {
		borrow = fanout.Map(ctx, tickers, o.conc("borrow"), 0, o.port.Borrow)
	})
	batch(func() {
		shortInt = fanout.Map(ctx, tickers, o.conc("shortinterest"), 0, o.port.ShortInterest)
	})
	batch(func() {
		catalyst = fanout.Map(ctx, tickers, o.conc("catalyst"), 0, o.port.Catalyst)
	})
	batch(func() {
		sentiment = fanout.Map(ctx, tickers, o.conc("sentiment"), 0, o.port.Sentiment)
	})
	batch(func() {
		options = fanout.Map(ctx, tickers, o.conc("catalyst"), 0, o.port.Options)
	})
	batch(func() {
		quotes = fanout.Map(ctx, tickers, o.conc("broker"), 0, o.port.Quote)
	})
	batch(func() {
		minuteBars = fanout.Map(ctx, tickers, o.conc("bars"), 0, o.port.MinuteBars)
	})
	batch(func() {
		dailyBars = fanout.Map(ctx, tickers, o.conc("bars"), 0, func(ctx context.Context, t string) ([]providers.Bar, error) {
			return o.port.DailyBars(ctx, t, dailyBarDays)
		})
	})
	wg.Wait()

	asOf := o.clock.Now()
	records := make([]*models.FeatureRecord, 0, len(tickers))
	for _, t := range tickers {
		fr := &models.FeatureRecord{Ticker: t, Held: holdings[t]}

		if f := fundamentals[t]; f != nil {
			fr.FloatShares = f.FloatShares
			fr.SharesOutstanding = f.SharesOutstanding
			fr.MarketCap = f.MarketCap
		}
		if l := liquidity[t]; l != nil {
			fr.AvgDollarLiquidity30D = l.AvgDollarLiquidity30D
			fr.ADV30Shares = l.ADV30Shares
		}
		if q := quotes[t]; q != nil {
			if q.Last > 0 {
				fr.Price = models.Float64(q.Last)
			}
			fr.SpreadPctToday = q.SpreadPct
			fr.HaltedToday = q.Halted
		}
		mergeShortInterest(fr, shortInt[t], asOf)
		mergeBorrow(fr, borrow[t], asOf)
		mergeCatalyst(fr, catalyst[t])
		if s := sentiment[t]; s != nil {
			fr.Sentiment = &models.Sentiment{
				Score:         s.Score,
				MentionsToday: s.MentionsToday,
				AvgMentions7D: s.AvgMentions7D,
			}
		}
		if opt := options[t]; opt != nil {
			fr.Options = &models.Options{
				CallPutRatio: opt.CallPutRatio,
				IVPercentile: opt.IVPercentile,
			}
		}

		minute, daily := minuteBars[t], dailyBars[t]
		fillPrice(fr, minute, daily)
		fr.Technicals = technicals.Compute(minute, daily, fr.ADV30Shares, fr.Price)

		o.applyShortInterestFallback(ctx, fr, asOf)
		o.applyBorrowFallback(fr)
		if fr.Catalyst == nil {
			fr.Catalyst = estimate.Catalyst(fr, asOf)
		}
		o.applyCatalystWindow(fr.Catalyst)

		records = append(records, fr)
	}

	log.Debug().Int("tickers", len(tickers)).Int("records", len(records)).Msg("enrichment complete")
	return records
}

func (o *Orchestrator) conc(kind string) int {
	if c, ok := o.port.(providers.Concurrency); ok {
		if n := c.Concurrency(kind); n > 0 {
			return n
		}
	}
	return defaultConcurrency
}

// mergeShortInterest installs a direct provider short-interest record as
// provenance "real" and stamps its age for the freshness penalty.
func mergeShortInterest(fr *models.FeatureRecord, si *providers.ShortInterest, asOf time.Time) {
	if si == nil || (si.Pct == nil && si.Shares == nil && si.DaysToCover == nil) {
		return
	}
	fr.ShortInterest = models.ShortInterest{
		Pct:         si.Pct,
		Shares:      si.Shares,
		DaysToCover: si.DaysToCover,
		Provenance:  models.ProvenanceReal,
		Confidence:  1.0,
	}
	if !si.AsOf.IsZero() {
		age := asOf.Sub(si.AsOf).Hours() / 24
		if age >= 0 {
			fr.ShortInterest.AgeDays = models.Float64(age)
			fr.Freshness.ShortInterestAgeDays = fr.ShortInterest.AgeDays
		}
		fr.ShortInterest.BasisDate = si.AsOf.Format("2006-01-02")
	}
}

func mergeBorrow(fr *models.FeatureRecord, b *providers.Borrow, asOf time.Time) {
	if b == nil || (b.FeePct == nil && b.TrendPP7D == nil && b.UtilizationPct == nil) {
		return
	}
	fr.Borrow = models.Borrow{
		FeePct:         b.FeePct,
		TrendPP7D:      b.TrendPP7D,
		UtilizationPct: b.UtilizationPct,
		Provenance:     models.ProvenanceReal,
		Confidence:     1.0,
	}
	if !b.AsOf.IsZero() {
		if age := asOf.Sub(b.AsOf).Hours() / 24; age >= 0 {
			fr.Freshness.BorrowAgeDays = models.Float64(age)
		}
	}
}

func mergeCatalyst(fr *models.FeatureRecord, c *providers.Catalyst) {
	if c == nil || c.Type == "" {
		return
	}
	out := &models.Catalyst{
		Type:             c.Type,
		VerifiedInWindow: c.VerifiedInWindow,
		DaysToEvent:      c.DaysToEvent,
		DateValid:        c.DateValid,
		Strength:         c.Strength,
	}
	for _, item := range c.Items {
		out.Items = append(out.Items, models.CatalystItem{Title: item.Title, Date: item.Date, URL: item.URL})
	}
	fr.Catalyst = out
}

// applyCatalystWindow re-validates the in-window claim against the
// configured catalyst window. A provider claim for an event outside
// [catalyst_window_days_min, catalyst_window_days_max] is revoked, and a
// dated event inside the window counts as verified even when the
// provider did not flag it. Undated catalysts keep the provider's claim.
func (o *Orchestrator) applyCatalystWindow(c *models.Catalyst) {
	if c == nil || c.DaysToEvent == nil {
		return
	}
	t := o.cfg.Thresholds
	inWindow := *c.DaysToEvent >= t.CatalystWindowDaysMin && *c.DaysToEvent <= t.CatalystWindowDaysMax
	c.VerifiedInWindow = inWindow && (c.VerifiedInWindow || c.DateValid)
}

// fillPrice applies the price fallback chain: provider last trade, then
// the first minute bar close, then the latest daily close.
func fillPrice(fr *models.FeatureRecord, minute, daily []providers.Bar) {
	if fr.Price != nil {
		return
	}
	if len(minute) > 0 && minute[0].Close > 0 {
		fr.Price = models.Float64(minute[0].Close)
		return
	}
	if len(daily) > 0 && daily[len(daily)-1].Close > 0 {
		fr.Price = models.Float64(daily[len(daily)-1].Close)
	}
}

// applyShortInterestFallback fills short interest when the direct record
// is missing: FINRA tape proxy first, then the estimator tiers. A real
// record with only days_to_cover missing keeps its provenance and gets
// the cover-time estimator instead.
func (o *Orchestrator) applyShortInterestFallback(ctx context.Context, fr *models.FeatureRecord, asOf time.Time) {
	if fr.ShortInterest.Pct == nil {
		if proxy := o.finraProxy(ctx, fr, asOf); proxy != nil {
			fr.ShortInterest = *proxy
		} else {
			fr.ShortInterest = *estimate.ShortInterest(fr)
		}
	}

	if fr.ShortInterest.DaysToCover == nil &&
		fr.ShortInterest.Shares != nil &&
		fr.ADV30Shares != nil && *fr.ADV30Shares > 0 {
		dtc := estimate.DaysToCover(*fr.ShortInterest.Shares, *fr.ADV30Shares, fr.FloatShares)
		fr.ShortInterest.DaysToCover = models.Float64(dtc)
	}
}

func (o *Orchestrator) finraProxy(ctx context.Context, fr *models.FeatureRecord, asOf time.Time) *models.ShortInterest {
	row, err := o.port.ShortVolume(ctx, fr.Ticker, asOf.Format("2006-01-02"))
	if err != nil || row == nil {
		return nil
	}
	return estimate.FINRAProxy(row.ShortVolume, row.TotalVolume, fr.FloatShares, fr.ADV30Shares, row.Date)
}

// applyBorrowFallback estimates a borrow fee only when the squeeze setup
// already rests on direct or proxied short interest. Stacking a fee
// estimate on top of an estimated short interest would compound guesses.
func (o *Orchestrator) applyBorrowFallback(fr *models.FeatureRecord) {
	if fr.Borrow.FeePct != nil || fr.Borrow.UtilizationPct != nil {
		return
	}
	switch fr.ShortInterest.Provenance {
	case models.ProvenanceReal, models.ProvenanceProxy:
		fr.Borrow = *estimate.BorrowFee(fr)
	}
}

// Package fake provides a frozen, in-memory Port for tests and offline
// scans. Responses are fixed at construction, so repeated runs against
// the same fixture set are byte-identical.
package fake

import (
	"context"
	"errors"
	"sort"
	"strings"

	"squeezerun/internal/providers"
)

// Symbol is the frozen provider state for one ticker. Nil sub-records
// read as absent data, exactly like a provider returning null.
type Symbol struct {
	Fundamentals  *providers.Fundamentals
	Liquidity     *providers.Liquidity
	Borrow        *providers.Borrow
	ShortInterest *providers.ShortInterest
	Catalyst      *providers.Catalyst
	Sentiment     *providers.Sentiment
	Options       *providers.Options
	Quote         *providers.Quote
	MinuteBars    []providers.Bar
	DailyBars     []providers.Bar
	ShortVolume   *providers.ShortVolumeRow
}

// Port implements providers.Port and providers.MarketPort over fixtures.
type Port struct {
	Symbols  map[string]*Symbol
	Rows     map[string]providers.SnapshotRow
	Held     []string
	NoSnapshot bool // force the pre-filter onto its shape heuristic
}

// NewPort creates an empty fixture port.
func NewPort() *Port {
	return &Port{
		Symbols: make(map[string]*Symbol),
		Rows:    make(map[string]providers.SnapshotRow),
	}
}

// Add registers a symbol fixture and a matching snapshot row.
func (p *Port) Add(ticker string, sym *Symbol) *Port {
	ticker = strings.ToUpper(ticker)
	p.Symbols[ticker] = sym

	row := providers.SnapshotRow{Ticker: ticker, Price: 10, DayVolume: 1_000_000, DayChangePct: 5}
	if sym.Quote != nil {
		row.Price = sym.Quote.Last
	}
	row.DayDollarVolume = row.Price * row.DayVolume
	p.Rows[ticker] = row
	return p
}

func (p *Port) symbol(ticker string) *Symbol {
	return p.Symbols[strings.ToUpper(ticker)]
}

func (p *Port) Fundamentals(_ context.Context, ticker string) (*providers.Fundamentals, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Fundamentals, nil
	}
	return nil, nil
}

func (p *Port) Liquidity(_ context.Context, ticker string) (*providers.Liquidity, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Liquidity, nil
	}
	return nil, nil
}

func (p *Port) Borrow(_ context.Context, ticker string) (*providers.Borrow, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Borrow, nil
	}
	return nil, nil
}

func (p *Port) ShortInterest(_ context.Context, ticker string) (*providers.ShortInterest, error) {
	if s := p.symbol(ticker); s != nil {
		return s.ShortInterest, nil
	}
	return nil, nil
}

func (p *Port) Catalyst(_ context.Context, ticker string) (*providers.Catalyst, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Catalyst, nil
	}
	return nil, nil
}

func (p *Port) Sentiment(_ context.Context, ticker string) (*providers.Sentiment, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Sentiment, nil
	}
	return nil, nil
}

func (p *Port) Options(_ context.Context, ticker string) (*providers.Options, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Options, nil
	}
	return nil, nil
}

func (p *Port) Quote(_ context.Context, ticker string) (*providers.Quote, error) {
	if s := p.symbol(ticker); s != nil {
		return s.Quote, nil
	}
	return nil, nil
}

func (p *Port) MinuteBars(_ context.Context, ticker string) ([]providers.Bar, error) {
	if s := p.symbol(ticker); s != nil {
		return s.MinuteBars, nil
	}
	return nil, nil
}

func (p *Port) DailyBars(_ context.Context, ticker string, _ int) ([]providers.Bar, error) {
	if s := p.symbol(ticker); s != nil {
		return s.DailyBars, nil
	}
	return nil, nil
}

func (p *Port) ShortVolume(_ context.Context, ticker string, _ string) (*providers.ShortVolumeRow, error) {
	if s := p.symbol(ticker); s != nil {
		return s.ShortVolume, nil
	}
	return nil, nil
}

// Universe lists the fixture tickers in sorted order.
func (p *Port) Universe(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(p.Symbols))
	for ticker := range p.Symbols {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out, nil
}

func (p *Port) Snapshot(_ context.Context) (map[string]providers.SnapshotRow, error) {
	if p.NoSnapshot {
		return nil, errors.New("snapshot unavailable")
	}
	out := make(map[string]providers.SnapshotRow, len(p.Rows))
	for k, v := range p.Rows {
		out[k] = v
	}
	return out, nil
}

func (p *Port) Holdings(_ context.Context) ([]string, error) {
	return append([]string(nil), p.Held...), nil
}

// Concurrency lets fixture runs fan out freely.
func (p *Port) Concurrency(string) int { return 8 }

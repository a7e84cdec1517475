package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type quoteDTO struct {
	Symbol    string   `json:"symbol"`
	Last      float64  `json:"latestPrice"`
	PrevClose *float64 `json:"previousClose"`
	Bid       *float64 `json:"bidPrice"`
	Ask       *float64 `json:"askPrice"`
	Halted    bool     `json:"halted"`
}

// Quote fetches the live last-trade snapshot. Live data, no TTL.
func (p *HTTPPort) Quote(ctx context.Context, ticker string) (*Quote, error) {
	ticker = strings.ToUpper(ticker)
	url := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", p.baseURL("broker"), ticker)
	var dto quoteDTO
	if err := p.getJSON(ctx, "broker", url, &dto); err != nil {
		return nil, err
	}

	q := &Quote{
		Last:      dto.Last,
		PrevClose: dto.PrevClose,
		Halted:    dto.Halted,
		AsOf:      time.Now().UTC(),
	}
	if dto.Bid != nil && dto.Ask != nil && *dto.Ask > 0 {
		mid := (*dto.Bid + *dto.Ask) / 2
		if mid > 0 {
			spread := 100 * (*dto.Ask - *dto.Bid) / mid
			q.SpreadPct = &spread
		}
	}
	return q, nil
}

type barsDTO struct {
	Bars []struct {
		T time.Time `json:"t"`
		O float64   `json:"o"`
		H float64   `json:"h"`
		L float64   `json:"l"`
		C float64   `json:"c"`
		V float64   `json:"v"`
	} `json:"bars"`
}

func (d barsDTO) toBars() []Bar {
	out := make([]Bar, 0, len(d.Bars))
	for _, b := range d.Bars {
		out = append(out, Bar{Time: b.T, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V})
	}
	return out
}

// MinuteBars fetches the current session's minute bars.
func (p *HTTPPort) MinuteBars(ctx context.Context, ticker string) ([]Bar, error) {
	ticker = strings.ToUpper(ticker)
	return p.minuteBars.GetOrFetch(ctx, ticker, p.ttl("bars"), func() ([]Bar, error) {
		url := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Min&limit=1000", p.baseURL("bars"), ticker)
		var dto barsDTO
		if err := p.getJSON(ctx, "bars", url, &dto); err != nil {
			return nil, err
		}
		return dto.toBars(), nil
	})
}

// DailyBars fetches the trailing daily bars used for RSI/ATR/EMA and the
// multi-day change fields.
func (p *HTTPPort) DailyBars(ctx context.Context, ticker string, days int) ([]Bar, error) {
	ticker = strings.ToUpper(ticker)
	key := fmt.Sprintf("%s:%d", ticker, days)
	return p.dailyBars.GetOrFetch(ctx, key, p.ttl("bars"), func() ([]Bar, error) {
		url := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Day&limit=%d", p.baseURL("bars"), ticker, days)
		var dto barsDTO
		if err := p.getJSON(ctx, "bars", url, &dto); err != nil {
			return nil, err
		}
		return dto.toBars(), nil
	})
}

type assetDTO struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Class    string `json:"class"`
	Status   string `json:"status"`
	Tradable bool   `json:"tradable"`
}

// Universe lists active, tradeable US common stocks on NASDAQ/NYSE.
func (p *HTTPPort) Universe(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v2/assets?status=active&asset_class=us_equity", p.baseURL("broker"))
	var assets []assetDTO
	if err := p.getJSON(ctx, "broker", url, &assets); err != nil {
		return nil, err
	}

	var out []string
	for _, a := range assets {
		if !a.Tradable || a.Status != "active" {
			continue
		}
		switch a.Exchange {
		case "NASDAQ", "NYSE":
			out = append(out, strings.ToUpper(a.Symbol))
		}
	}
	return out, nil
}

type snapshotDTO struct {
	Snapshots map[string]struct {
		Price        float64 `json:"price"`
		DayVolume    float64 `json:"day_volume"`
		DayChangePct float64 `json:"day_change_pct"`
	} `json:"snapshots"`
}

// Snapshot returns the full-market snapshot for the pre-filter.
func (p *HTTPPort) Snapshot(ctx context.Context) (map[string]SnapshotRow, error) {
	url := fmt.Sprintf("%s/v2/stocks/snapshots", p.baseURL("broker"))
	var dto snapshotDTO
	if err := p.getJSON(ctx, "broker", url, &dto); err != nil {
		return nil, err
	}

	out := make(map[string]SnapshotRow, len(dto.Snapshots))
	for sym, s := range dto.Snapshots {
		sym = strings.ToUpper(sym)
		out[sym] = SnapshotRow{
			Ticker:          sym,
			Price:           s.Price,
			DayVolume:       s.DayVolume,
			DayChangePct:    s.DayChangePct,
			DayDollarVolume: s.Price * s.DayVolume,
		}
	}
	return out, nil
}

type positionDTO struct {
	Symbol string `json:"symbol"`
}

// Holdings lists currently held tickers.
func (p *HTTPPort) Holdings(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v2/positions", p.baseURL("broker"))
	var positions []positionDTO
	if err := p.getJSON(ctx, "broker", url, &positions); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(positions))
	for _, pos := range positions {
		out = append(out, strings.ToUpper(pos.Symbol))
	}
	return out, nil
}

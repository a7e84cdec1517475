package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Vendor DTOs are kept next to the method that decodes them.

type fundamentalsDTO struct {
	Symbol            string   `json:"symbol"`
	FloatShares       *float64 `json:"floatShares"`
	MarketCap         *float64 `json:"marketCap"`
	SharesOutstanding *float64 `json:"sharesOutstanding"`
}

// Fundamentals fetches the share-structure record.
func (p *HTTPPort) Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	ticker = strings.ToUpper(ticker)
	return p.fundamentals.GetOrFetch(ctx, ticker, p.ttl("fundamentals"), func() (*Fundamentals, error) {
		url := fmt.Sprintf("%s/v11/finance/quoteSummary/%s?modules=defaultKeyStatistics", p.baseURL("fundamentals"), ticker)
		var dto fundamentalsDTO
		if err := p.getJSON(ctx, "fundamentals", url, &dto); err != nil {
			return nil, err
		}
		return &Fundamentals{
			FloatShares:       dto.FloatShares,
			MarketCap:         dto.MarketCap,
			SharesOutstanding: dto.SharesOutstanding,
			AsOf:              time.Now().UTC(),
		}, nil
	})
}

type liquidityDTO struct {
	Symbol         string   `json:"symbol"`
	AvgDollarVol30 *float64 `json:"averageDollarVolume30Day"`
	AvgShareVol30  *float64 `json:"averageDailyVolume30Day"`
}

// Liquidity fetches the 30-day activity record.
func (p *HTTPPort) Liquidity(ctx context.Context, ticker string) (*Liquidity, error) {
	ticker = strings.ToUpper(ticker)
	return p.liquidity.GetOrFetch(ctx, ticker, p.ttl("liquidity"), func() (*Liquidity, error) {
		url := fmt.Sprintf("%s/v8/finance/chart/%s?range=1mo&interval=1d&fields=volume", p.baseURL("liquidity"), ticker)
		var dto liquidityDTO
		if err := p.getJSON(ctx, "liquidity", url, &dto); err != nil {
			return nil, err
		}
		return &Liquidity{
			AvgDollarLiquidity30D: dto.AvgDollarVol30,
			ADV30Shares:           dto.AvgShareVol30,
			AsOf:                  time.Now().UTC(),
		}, nil
	})
}

type borrowDTO struct {
	Ticker      string   `json:"ticker"`
	Fee         *float64 `json:"fee"`
	FeeChange7D *float64 `json:"fee_change_7d"`
	Utilization *float64 `json:"utilization"`
}

// Borrow fetches the stock-loan record.
func (p *HTTPPort) Borrow(ctx context.Context, ticker string) (*Borrow, error) {
	ticker = strings.ToUpper(ticker)
	return p.borrow.GetOrFetch(ctx, ticker, p.ttl("borrow"), func() (*Borrow, error) {
		url := fmt.Sprintf("%s/ticker/%s", p.baseURL("borrow"), ticker)
		var dto borrowDTO
		if err := p.getJSON(ctx, "borrow", url, &dto); err != nil {
			return nil, err
		}
		return &Borrow{
			FeePct:         dto.Fee,
			TrendPP7D:      dto.FeeChange7D,
			UtilizationPct: dto.Utilization,
			AsOf:           time.Now().UTC(),
		}, nil
	})
}

type shortInterestDTO struct {
	Symbol       string   `json:"symbol"`
	ShortShares  *float64 `json:"shortInterest"`
	ShortPct     *float64 `json:"shortInterestPercent"`
	DaysToCover  *float64 `json:"daysToCover"`
	SettlementAt string   `json:"settlementDate"`
}

// ShortInterest fetches the direct biweekly short-interest record.
func (p *HTTPPort) ShortInterest(ctx context.Context, ticker string) (*ShortInterest, error) {
	ticker = strings.ToUpper(ticker)
	return p.shortInt.GetOrFetch(ctx, ticker, p.ttl("shortinterest"), func() (*ShortInterest, error) {
		url := fmt.Sprintf("%s/ss/us/%s", p.baseURL("shortinterest"), ticker)
		var dto shortInterestDTO
		if err := p.getJSON(ctx, "shortinterest", url, &dto); err != nil {
			return nil, err
		}
		asof := time.Now().UTC()
		if t, err := time.Parse("2006-01-02", dto.SettlementAt); err == nil {
			asof = t
		}
		return &ShortInterest{
			Shares:      dto.ShortShares,
			Pct:         dto.ShortPct,
			DaysToCover: dto.DaysToCover,
			AsOf:        asof,
		}, nil
	})
}

type catalystDTO struct {
	Type        string   `json:"type"`
	EventDate   string   `json:"event_date"`
	Confirmed   bool     `json:"confirmed"`
	Strength    float64  `json:"strength"`
	Items       []struct {
		Title string `json:"title"`
		Date  string `json:"date"`
		URL   string `json:"url"`
	} `json:"items"`
}

// Catalyst fetches the upcoming-event record.
func (p *HTTPPort) Catalyst(ctx context.Context, ticker string) (*Catalyst, error) {
	ticker = strings.ToUpper(ticker)
	return p.catalyst.GetOrFetch(ctx, ticker, p.ttl("catalyst"), func() (*Catalyst, error) {
		url := fmt.Sprintf("%s/v2/reference/events?ticker=%s", p.baseURL("catalyst"), ticker)
		var dto catalystDTO
		if err := p.getJSON(ctx, "catalyst", url, &dto); err != nil {
			return nil, err
		}
		if dto.Type == "" {
			return nil, nil // no known catalyst
		}

		rec := &Catalyst{
			Type:             dto.Type,
			VerifiedInWindow: dto.Confirmed,
			Strength:         dto.Strength,
		}
		if t, err := time.Parse("2006-01-02", dto.EventDate); err == nil {
			rec.DateValid = true
			days := time.Until(t).Hours() / 24
			rec.DaysToEvent = &days
		}
		for i, item := range dto.Items {
			if i == 3 {
				break // keep at most 3 items
			}
			rec.Items = append(rec.Items, CatalystItem{Title: item.Title, Date: item.Date, URL: item.URL})
		}
		return rec, nil
	})
}

type sentimentDTO struct {
	Ticker        string   `json:"ticker"`
	Score         *float64 `json:"sentiment_score"`
	MentionsToday *float64 `json:"no_of_comments"`
	AvgMentions7D *float64 `json:"avg_comments_7d"`
}

// Sentiment fetches the optional sentiment/social record.
func (p *HTTPPort) Sentiment(ctx context.Context, ticker string) (*Sentiment, error) {
	ticker = strings.ToUpper(ticker)
	return p.sentiment.GetOrFetch(ctx, ticker, p.ttl("sentiment"), func() (*Sentiment, error) {
		url := fmt.Sprintf("%s/reddit?ticker=%s", p.baseURL("sentiment"), ticker)
		var dto sentimentDTO
		if err := p.getJSON(ctx, "sentiment", url, &dto); err != nil {
			return nil, err
		}
		return &Sentiment{
			Score:         dto.Score,
			MentionsToday: dto.MentionsToday,
			AvgMentions7D: dto.AvgMentions7D,
		}, nil
	})
}

type optionsDTO struct {
	Ticker       string   `json:"ticker"`
	CallVolume   *float64 `json:"call_volume"`
	PutVolume    *float64 `json:"put_volume"`
	IVPercentile *float64 `json:"iv_percentile"`
}

// Options fetches the optional options-flow record.
func (p *HTTPPort) Options(ctx context.Context, ticker string) (*Options, error) {
	ticker = strings.ToUpper(ticker)
	return p.options.GetOrFetch(ctx, ticker, p.ttl("catalyst"), func() (*Options, error) {
		url := fmt.Sprintf("%s/v3/snapshot/options/%s", p.baseURL("catalyst"), ticker)
		var dto optionsDTO
		if err := p.getJSON(ctx, "catalyst", url, &dto); err != nil {
			return nil, err
		}
		rec := &Options{IVPercentile: dto.IVPercentile}
		if dto.CallVolume != nil && dto.PutVolume != nil && *dto.PutVolume > 0 {
			ratio := *dto.CallVolume / *dto.PutVolume
			rec.CallPutRatio = &ratio
		}
		return rec, nil
	})
}

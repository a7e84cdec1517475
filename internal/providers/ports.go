package providers

import "context"

// Port is the uniform per-symbol fetch contract. Every method returns
// (nil, err) on network/parse/HTTP failure and the caller treats any
// error as absent data; nil with nil error also means absent.
//
// The enrichment orchestrator is the only consumer; it never fails a
// ticker because a port came back empty.
type Port interface {
	Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
	Liquidity(ctx context.Context, ticker string) (*Liquidity, error)
	Borrow(ctx context.Context, ticker string) (*Borrow, error)
	ShortInterest(ctx context.Context, ticker string) (*ShortInterest, error)
	Catalyst(ctx context.Context, ticker string) (*Catalyst, error)
	Sentiment(ctx context.Context, ticker string) (*Sentiment, error)
	Options(ctx context.Context, ticker string) (*Options, error)
	Quote(ctx context.Context, ticker string) (*Quote, error)
	MinuteBars(ctx context.Context, ticker string) ([]Bar, error)
	DailyBars(ctx context.Context, ticker string, days int) ([]Bar, error)

	// ShortVolume returns the aggregated FINRA daily short-volume row for
	// the ticker, stepping back up to five trading days from asOfDate
	// (YYYY-MM-DD) when the latest file is absent.
	ShortVolume(ctx context.Context, ticker string, asOfDate string) (*ShortVolumeRow, error)
}

// MarketPort is the broker surface consumed by the universe builder.
type MarketPort interface {
	// Universe lists active, tradeable US common stocks on NASDAQ/NYSE.
	Universe(ctx context.Context) ([]string, error)
	// Snapshot returns the full-market snapshot keyed by ticker, or an
	// error when the snapshot endpoint is unavailable (the pre-filter
	// then falls back to its shape heuristic).
	Snapshot(ctx context.Context) (map[string]SnapshotRow, error)
	// Holdings lists currently held tickers, excluded from discovery.
	Holdings(ctx context.Context) ([]string, error)
}

// Concurrency reports a port's per-provider fan-out width, letting the
// orchestrator respect strict vendors. Ports that do not implement it
// run at the orchestrator default.
type Concurrency interface {
	Concurrency(kind string) int
}

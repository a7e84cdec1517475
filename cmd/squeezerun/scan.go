package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"squeezerun/internal/config"
	"squeezerun/internal/engine"
	"squeezerun/internal/models"
	"squeezerun/internal/providers"
	"squeezerun/internal/providers/fake"
)

func newScanCmd() *cobra.Command {
	var (
		offline bool
		asJSON  bool
		topN    int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one discovery pass and print the ranked candidates",
		Long: `Runs a single discovery pass: universe, pre-filter, provider
fan-out, gates, scoring, ranking. With --offline the run uses a frozen
in-memory fixture set instead of live providers, which is useful for
smoke-testing a preset without credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, closer, err := scanEngine(offline)
			if err != nil {
				return err
			}
			defer closer()

			run, err := eng.Run(ctx)
			if err != nil {
				return err
			}
			if topN > 0 && len(run.Candidates) > topN {
				run.Candidates = run.Candidates[:topN]
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			printRun(run)
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use the built-in fixture port instead of live providers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full run audit as JSON")
	cmd.Flags().IntVar(&topN, "top", 0, "limit printed candidates (0 = all)")
	return cmd
}

func scanEngine(offline bool) (*engine.Engine, func(), error) {
	if !offline {
		eng, _, closer, err := buildEngine()
		return eng, closer, err
	}

	port := offlineFixtures()
	eng, err := engine.New(engine.Options{
		Config: config.Default(),
		Port:   port,
		Market: port,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, func() {}, nil
}

func printRun(run *models.Run) {
	fmt.Printf("run %s  preset=%s  digest=%s  asof=%s\n",
		run.RunID, run.Preset, run.ConfigDigest, run.AsOf.Format(time.RFC3339))
	fmt.Printf("universe=%d prefiltered=%d passed=%d dropped=%d relaxed=%v\n\n",
		run.UniverseCount, run.PrefilteredCount, run.PassedCount, len(run.Drops), run.RelaxationActive)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPRICE\tSCORE\tTIER\tACTION\tENTRY\tSTOP\tTP1")
	for _, c := range run.Candidates {
		fmt.Fprintf(w, "%s\t%.2f\t%d\t%s\t%s\t%s\t%.2f\t%.2f\n",
			c.Ticker, c.Price, c.Composite, c.Tier, c.Action,
			c.EntryHint.Type, c.Risk.StopLoss, c.Risk.TP1)
	}
	w.Flush()

	if len(run.Drops) > 0 {
		fmt.Println("\ndrops:")
		for ticker, reasons := range run.Drops {
			fmt.Printf("  %s: %v\n", ticker, reasons)
		}
	}
}

// offlineFixtures is a small frozen market: one crowded short holding
// VWAP, one uncovered early mover, one penny stock for the gate audit.
func offlineFixtures() *fake.Port {
	now := time.Now().UTC()
	port := fake.NewPort()

	squeezed := &fake.Symbol{
		Quote: &providers.Quote{Last: 5.00},
		Fundamentals: &providers.Fundamentals{
			FloatShares: models.Float64(80_000_000),
		},
		Liquidity: &providers.Liquidity{
			AvgDollarLiquidity30D: models.Float64(12_000_000),
			ADV30Shares:           models.Float64(2_000_000),
		},
		ShortInterest: &providers.ShortInterest{
			Pct:         models.Float64(32),
			DaysToCover: models.Float64(4.5),
			AsOf:        now.AddDate(0, 0, -6),
		},
		Borrow: &providers.Borrow{
			FeePct:    models.Float64(14),
			TrendPP7D: models.Float64(1.5),
		},
		Catalyst: &providers.Catalyst{
			Type:             "earnings",
			VerifiedInWindow: true,
			DateValid:        true,
			DaysToEvent:      models.Float64(12),
			Strength:         0.8,
		},
		MinuteBars: []providers.Bar{
			{Time: now, High: 4.80, Low: 4.80, Close: 4.80, Volume: 8_000_000},
		},
		DailyBars: trendBars(now, 40, 4.0, 0.02, 2_000_000),
	}

	early := &fake.Symbol{
		Quote: &providers.Quote{Last: 8},
		Fundamentals: &providers.Fundamentals{
			FloatShares: models.Float64(40_000_000),
		},
		Liquidity: &providers.Liquidity{
			AvgDollarLiquidity30D: models.Float64(6_000_000),
			ADV30Shares:           models.Float64(1_000_000),
		},
		Sentiment: &providers.Sentiment{
			Score:         models.Float64(80),
			MentionsToday: models.Float64(30),
			AvgMentions7D: models.Float64(10),
		},
		MinuteBars: []providers.Bar{
			{Time: now, High: 6.40, Low: 6.40, Close: 6.40, Volume: 2_000_000},
		},
		DailyBars: trendBars(now, 3, 7.5, 0.1, 900_000),
	}

	penny := &fake.Symbol{Quote: &providers.Quote{Last: 0.25}}

	port.Add("SQZD", squeezed)
	port.Add("ERLY", early)
	port.Add("PNNY", penny)
	port.NoSnapshot = true // fixtures skip the snapshot pre-filter
	return port
}

func trendBars(end time.Time, n int, start, step, volume float64) []providers.Bar {
	day := end.AddDate(0, 0, -n)
	bars := make([]providers.Bar, 0, n)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		bars = append(bars, providers.Bar{
			Time: day.AddDate(0, 0, i), Open: c, High: c * 1.03, Low: c * 0.97, Close: c, Volume: volume,
		})
	}
	return bars
}

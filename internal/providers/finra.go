package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"squeezerun/internal/data/cache"
)

// maxFINRAStepback is how many trading days the port walks back when the
// latest daily short-volume file has not been published yet.
const maxFINRAStepback = 5

// ShortVolume returns the aggregated FINRA short-volume row for a ticker,
// stepping back up to five trading days from asOfDate.
func (p *HTTPPort) ShortVolume(ctx context.Context, ticker string, asOfDate string) (*ShortVolumeRow, error) {
	ticker = strings.ToUpper(ticker)

	day, err := time.Parse("2006-01-02", asOfDate)
	if err != nil {
		return nil, fmt.Errorf("finra: invalid asof date %q: %w", asOfDate, err)
	}

	for i := 0; i < maxFINRAStepback; i++ {
		if i > 0 {
			day = prevTradingDay(day)
		} else if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = prevTradingDay(day)
		}

		rows, err := p.shortVolumeDay(ctx, day)
		if err != nil {
			continue // file not published yet; step back
		}
		if row, ok := rows[ticker]; ok {
			return row, nil
		}
		return nil, nil // file exists but symbol did not trade
	}

	return nil, fmt.Errorf("finra: no short-volume file within %d trading days of %s", maxFINRAStepback, asOfDate)
}

// shortVolumeDay loads one trading day's file, preferring the in-memory
// cache, then the disk day-file, then FINRA itself.
func (p *HTTPPort) shortVolumeDay(ctx context.Context, day time.Time) (map[string]*ShortVolumeRow, error) {
	stamp := day.Format("20060102")

	return p.shortVolume.GetOrFetch(ctx, stamp, p.ttl("finra"), func() (map[string]*ShortVolumeRow, error) {
		if rows, err := p.readFINRADayFile(stamp); err == nil {
			return rows, nil
		}

		url := fmt.Sprintf("%s/CNMSshvol%s.txt", p.baseURL("finra"), stamp)
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.clients["finra"].Do(ctx, req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		rows, err := parseShortVolumeFile(resp.Body, day.Format("2006-01-02"))
		if err != nil {
			return nil, err
		}

		p.writeFINRADayFile(stamp, rows)
		return rows, nil
	})
}

func (p *HTTPPort) finraDayPath(stamp string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("finra_shortvol_%s.json", stamp))
}

func (p *HTTPPort) readFINRADayFile(stamp string) (map[string]*ShortVolumeRow, error) {
	data, err := os.ReadFile(p.finraDayPath(stamp))
	if err != nil {
		return nil, err
	}
	rows := make(map[string]*ShortVolumeRow)
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *HTTPPort) writeFINRADayFile(stamp string, rows map[string]*ShortVolumeRow) {
	if p.skipCache {
		return
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	if err := cache.WriteFileAtomic(p.finraDayPath(stamp), data); err != nil {
		log.Warn().Err(err).Str("stamp", stamp).Msg("failed to write finra day cache")
	}
}

// parseShortVolumeFile reads the pipe-delimited daily file
// (Date|Symbol|ShortVolume|ShortExemptVolume|TotalVolume|Market) and
// aggregates by symbol, summing short and total volume across tapes.
func parseShortVolumeFile(r io.Reader, date string) (map[string]*ShortVolumeRow, error) {
	rows := make(map[string]*ShortVolumeRow)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, "|")
		if len(fields) < 5 || fields[0] == "Date" {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(fields[1]))
		shortVol, err1 := strconv.ParseFloat(fields[2], 64)
		totalVol, err2 := strconv.ParseFloat(fields[4], 64)
		if symbol == "" || err1 != nil || err2 != nil {
			continue
		}

		row, ok := rows[symbol]
		if !ok {
			row = &ShortVolumeRow{Ticker: symbol, Date: date}
			rows[symbol] = row
		}
		row.ShortVolume += shortVol
		row.TotalVolume += totalVol
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("finra: failed to read daily file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("finra: daily file for %s is empty", date)
	}
	return rows, nil
}

func prevTradingDay(day time.Time) time.Time {
	day = day.AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// Package engine is the run controller: universe, enrichment, gates,
// scoring, action mapping, ranking and the audit record, in that order.
// A run is a pure function over the provider ports for a given asof and
// preset; the only cross-run state is the caches and the cold-tape
// detector.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"squeezerun/internal/action"
	"squeezerun/internal/config"
	"squeezerun/internal/enrich"
	"squeezerun/internal/gates"
	"squeezerun/internal/models"
	"squeezerun/internal/persistence"
	"squeezerun/internal/providers"
	"squeezerun/internal/score"
	"squeezerun/internal/telemetry/metrics"
	"squeezerun/internal/universe"
)

// ErrRunInFlight is returned when a trigger coalesces with a run that is
// still executing. The caller skips; triggers are never queued.
var ErrRunInFlight = errors.New("engine: run already in flight")

// Options wires an Engine. Port and Market are required; Repo defaults
// to the no-op sink and Clock to the system clock.
type Options struct {
	Config *config.Config
	Port   providers.Port
	Market providers.MarketPort
	Repo   persistence.DiscoveryRepo
	Clock  models.Clock
}

// Engine executes discovery runs.
type Engine struct {
	cfg      *config.Config
	digest   string
	universe *universe.Builder
	enricher *enrich.Orchestrator
	gater    *gates.Engine
	scorer   *score.Scorer
	mapper   *action.Mapper
	coldTape *gates.ColdTapeDetector
	repo     persistence.DiscoveryRepo
	clock    models.Clock

	running atomic.Bool
}

// New builds an Engine. Strict-mode credential checks happen here and
// nowhere else: a missing credential is fatal at construction, never
// per-run.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil || opts.Port == nil || opts.Market == nil {
		return nil, errors.New("engine: config, port and market are required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Config.CheckStrictCredentials(); err != nil {
		return nil, err
	}
	if opts.Repo == nil {
		opts.Repo = persistence.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = models.SystemClock{}
	}

	return &Engine{
		cfg:      opts.Config,
		digest:   opts.Config.Digest(),
		universe: universe.New(opts.Market, opts.Config),
		enricher: enrich.New(opts.Port, opts.Config, opts.Clock),
		gater:    gates.New(opts.Config),
		scorer:   score.New(opts.Config),
		mapper:   action.New(opts.Config),
		coldTape: gates.NewColdTapeDetector(opts.Config.ColdTape),
		repo:     opts.Repo,
		clock:    opts.Clock,
	}, nil
}

// ColdTapeActive reports the current regime, for status surfaces.
func (e *Engine) ColdTapeActive() bool { return e.coldTape.Active() }

// Run executes one discovery pass. It always returns a Run when it got
// past the universe stage, even on cancellation (partial audit with
// Cancelled set). Overlapping invocations return ErrRunInFlight.
func (e *Engine) Run(ctx context.Context) (*models.Run, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunInFlight
	}
	defer e.running.Store(false)

	asOf := e.clock.Now()
	started := time.Now()
	relaxed := e.coldTape.Active()

	run := &models.Run{
		RunID:            uuid.NewString(),
		AsOf:             asOf,
		Preset:           e.cfg.Preset,
		ConfigDigest:     e.digest,
		RelaxationActive: relaxed,
		GateCounts:       map[string]int{},
		Candidates:       []models.Candidate{},
		Drops:            map[string][]string{},
	}

	sel, err := e.universe.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: universe failed: %w", err)
	}
	run.UniverseCount = sel.UniverseSize
	run.PrefilteredCount = len(sel.Tickers)

	records := e.enricher.Enrich(ctx, sel.Tickers, sel.Holdings)
	run.EnrichedCount = len(records)
	if ctx.Err() != nil {
		return e.finish(run, started, true)
	}

	gated := e.gater.Apply(records, relaxed)
	run.GateCounts = gated.GateCounts
	run.Drops = gated.Drops
	run.PassedCount = len(gated.Passed)
	if ctx.Err() != nil {
		return e.finish(run, started, true)
	}

	for _, fr := range gated.Passed {
		composite, explain := e.scorer.Score(fr, relaxed)
		tier, act := e.mapper.Map(fr, composite, relaxed)
		fr.CompositeScore = composite
		fr.Tier = tier
		fr.Action = act
		run.Candidates = append(run.Candidates, buildCandidate(fr, composite, tier, act, explain))
	}
	score.Rank(run.Candidates)

	e.coldTape.Observe(asOf, run.GateCounts)
	return e.finish(run, started, false)
}

// finish stamps the outcome, persists the audit trail and records
// metrics. Persistence failure never fails the run.
func (e *Engine) finish(run *models.Run, started time.Time, cancelled bool) (*models.Run, error) {
	run.Cancelled = cancelled
	e.persist(run)

	metrics.RunDuration.Observe(time.Since(started).Seconds())
	for _, c := range run.Candidates {
		metrics.Candidates.WithLabelValues(string(c.Action)).Inc()
	}

	log.Info().
		Str("run_id", run.RunID).
		Str("preset", run.Preset).
		Int("prefiltered", run.PrefilteredCount).
		Int("passed", run.PassedCount).
		Int("candidates", len(run.Candidates)).
		Bool("relaxed", run.RelaxationActive).
		Bool("cancelled", run.Cancelled).
		Msg("run complete")
	return run, nil
}

func buildCandidate(fr *models.FeatureRecord, composite int, tier models.Tier, act models.Action, explain models.ScoreExplain) models.Candidate {
	price := fr.PriceValue()

	hint := models.EntryHint{Type: "base_breakout"}
	if fr.Technicals.VWAPHeldOrReclaimed {
		hint.Type = "vwap_reclaim"
	}

	return models.Candidate{
		Ticker:    fr.Ticker,
		Price:     price,
		Composite: composite,
		Tier:      tier,
		Action:    act,
		EntryHint: hint,
		Risk: models.Risk{
			StopLoss: 0.90 * price,
			TP1:      1.20 * price,
			TP2:      1.50 * price,
		},
		ScoreExplain: explain,
		Features:     fr,
	}
}

// persist writes one row per candidate plus the audit summary.
func (e *Engine) persist(run *models.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	epochMS := run.AsOf.UnixMilli()
	for _, c := range run.Candidates {
		features, err := json.Marshal(c.Features)
		if err != nil {
			log.Warn().Err(err).Str("ticker", c.Ticker).Msg("failed to encode features")
			continue
		}
		row := persistence.DiscoveryRow{
			ID:           fmt.Sprintf("%s-%d", c.Ticker, epochMS),
			Symbol:       c.Ticker,
			Price:        c.Price,
			Score:        c.Composite,
			Preset:       run.Preset,
			Action:       string(c.Action),
			FeaturesJSON: features,
			CreatedAt:    run.AsOf,
		}
		if err := e.repo.InsertDiscovery(ctx, row); err != nil {
			log.Warn().Err(err).Str("id", row.ID).Msg("discovery insert failed")
		}
	}

	audit, err := json.Marshal(run)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode audit record")
		return
	}
	auditRow := persistence.DiscoveryRow{
		ID:        fmt.Sprintf("audit-%s-%d", run.Preset, epochMS),
		Symbol:    "*",
		Preset:    run.Preset,
		Action:    "AUDIT",
		AuditJSON: audit,
		CreatedAt: run.AsOf,
	}
	if err := e.repo.InsertDiscovery(ctx, auditRow); err != nil {
		log.Warn().Err(err).Msg("audit insert failed")
	}
}

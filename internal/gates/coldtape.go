package gates

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"squeezerun/internal/config"
	"squeezerun/internal/models"
	"squeezerun/internal/telemetry/metrics"
)

// ColdTapeDetector tracks the per-stage gate counts of recent runs and
// flips the regime cold when every stage has been starved for the
// configured number of consecutive runs. It is the only state shared
// across runs besides the caches.
type ColdTapeDetector struct {
	mu      sync.Mutex
	cfg     config.ColdTape
	history []observation
	active  bool
}

type observation struct {
	at     time.Time
	counts map[string]int
}

// NewColdTapeDetector creates a detector with an empty window.
func NewColdTapeDetector(cfg config.ColdTape) *ColdTapeDetector {
	return &ColdTapeDetector{cfg: cfg}
}

// Active reports whether the tape is currently considered cold. The
// engine reads this before gating, so activation affects the run after
// the streak completes.
func (d *ColdTapeDetector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Observe records one run's stage counts and returns the updated regime.
// A single healthy run resets the streak. Observations older than the
// window are discarded, so a long gap between runs also resets it.
func (d *ColdTapeDetector) Observe(at time.Time, counts map[string]int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune(at)

	if !d.starved(counts) {
		d.history = nil
		d.setActive(false)
		return false
	}

	d.history = append(d.history, observation{at: at, counts: counts})
	d.setActive(len(d.history) >= d.cfg.Runs)
	return d.active
}

func (d *ColdTapeDetector) prune(now time.Time) {
	if d.cfg.WindowSec <= 0 {
		return
	}
	cutoff := now.Add(-time.Duration(d.cfg.WindowSec) * time.Second)
	kept := d.history[:0]
	for _, obs := range d.history {
		if obs.at.After(cutoff) {
			kept = append(kept, obs)
		}
	}
	d.history = kept
}

// starved reports whether every tracked stage is at or below the
// configured ceiling.
func (d *ColdTapeDetector) starved(counts map[string]int) bool {
	stages := []string{
		models.StageTradeReady,
		models.StageTechnical,
		models.StageSqueeze,
		models.StageCatalyst,
	}
	for _, stage := range stages {
		if counts[stage] > d.cfg.StageMax {
			return false
		}
	}
	return true
}

func (d *ColdTapeDetector) setActive(active bool) {
	if active != d.active {
		log.Info().Bool("active", active).Msg("cold tape regime changed")
	}
	d.active = active
	if active {
		metrics.ColdTapeActive.Set(1)
	} else {
		metrics.ColdTapeActive.Set(0)
	}
}

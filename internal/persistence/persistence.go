// Package persistence stores discovery rows and run audits. The engine
// treats persistence as best-effort: an insert failure is logged and the
// run still returns to the caller.
package persistence

import (
	"context"
	"time"
)

// EnvDatabaseURL selects the Postgres DSN; unset means no persistence.
const EnvDatabaseURL = "SQUEEZE_DATABASE_URL"

// DiscoveryRow is one persisted candidate or audit summary.
type DiscoveryRow struct {
	ID           string    `db:"id" json:"id"`
	Symbol       string    `db:"symbol" json:"symbol"`
	Price        float64   `db:"price" json:"price"`
	Score        int       `db:"score" json:"score"`
	Preset       string    `db:"preset" json:"preset"`
	Action       string    `db:"action" json:"action"`
	FeaturesJSON []byte    `db:"features_json" json:"features_json,omitempty"`
	AuditJSON    []byte    `db:"audit_json" json:"audit_json,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DiscoveryRepo is the persistence collaborator consumed by the engine.
type DiscoveryRepo interface {
	InsertDiscovery(ctx context.Context, row DiscoveryRow) error
	Close() error
}

// Noop discards every row. Used when no DSN is configured and in
// offline scans.
type Noop struct{}

func (Noop) InsertDiscovery(context.Context, DiscoveryRow) error { return nil }
func (Noop) Close() error                                        { return nil }

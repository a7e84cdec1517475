package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const discoverySchema = `
CREATE TABLE IF NOT EXISTS discoveries (
	id            TEXT PRIMARY KEY,
	symbol        TEXT NOT NULL,
	price         DOUBLE PRECISION NOT NULL,
	score         INTEGER NOT NULL,
	preset        TEXT NOT NULL,
	action        TEXT NOT NULL,
	features_json JSONB,
	audit_json    JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS discoveries_symbol_idx ON discoveries (symbol, created_at DESC);
CREATE INDEX IF NOT EXISTS discoveries_preset_idx ON discoveries (preset, created_at DESC);
`

const insertDiscovery = `
INSERT INTO discoveries (id, symbol, price, score, preset, action, features_json, audit_json, created_at)
VALUES (:id, :symbol, :price, :score, :preset, :action, :features_json, :audit_json, :created_at)
ON CONFLICT (id) DO NOTHING
`

// Postgres persists discovery rows through database/sql. Construction
// verifies connectivity and applies the schema.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to the DSN and ensures the discoveries table
// exists.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to connect: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(discoverySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: failed to apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// InsertDiscovery writes one row. Duplicate IDs are silently skipped so
// a replayed run does not error.
func (p *Postgres) InsertDiscovery(ctx context.Context, row DiscoveryRow) error {
	if _, err := p.db.NamedExecContext(ctx, insertDiscovery, row); err != nil {
		return fmt.Errorf("persistence: insert %s: %w", row.ID, err)
	}
	log.Debug().Str("id", row.ID).Str("action", row.Action).Msg("discovery persisted")
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

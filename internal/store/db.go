// Package store persists drift events: page-level failures that
// indicate the upstream markup changed. The captured page body is kept
// alongside so a redesign can be diagnosed offline from what the
// scraper actually saw. The store is optional; the pipeline itself
// persists nothing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS drift_events (
    id         BIGSERIAL PRIMARY KEY,
    world      TEXT NOT NULL DEFAULT '',
    town       TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    page_body  BYTEA,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS drift_events_created_at_idx ON drift_events (created_at DESC);
`

type Store struct {
	db *sql.DB
}

func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

type DriftEvent struct {
	ID        int64     `json:"id"`
	World     string    `json:"world,omitempty"`
	Town      string    `json:"town,omitempty"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordDriftEvent stores one page-level drift occurrence. A nil store
// drops the event so callers never have to branch on wiring.
func (s *Store) RecordDriftEvent(ctx context.Context, world, town, kind, detail string, pageBody []byte) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO drift_events (world, town, kind, detail, page_body)
VALUES ($1, $2, $3, $4, $5)
`, world, town, kind, detail, pageBody)
	if err != nil {
		return fmt.Errorf("failed to record drift event: %w", err)
	}
	return nil
}

// RecentDriftEvents lists the latest events, newest first. Page bodies
// are left out of the listing; they are only for offline inspection.
func (s *Store) RecentDriftEvents(ctx context.Context, limit int) ([]DriftEvent, error) {
	if s == nil {
		return []DriftEvent{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, world, town, kind, detail, created_at
FROM drift_events
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []DriftEvent{}
	for rows.Next() {
		var e DriftEvent
		if err := rows.Scan(&e.ID, &e.World, &e.Town, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/sitewatch/internal/domain"
)

const outcomeSchema = `
CREATE TABLE IF NOT EXISTS site_outcomes (
	id          BIGSERIAL PRIMARY KEY,
	site_id     TEXT NOT NULL,
	site_name   TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL,
	attempts    INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS site_outcomes_recorded_at_idx ON site_outcomes (recorded_at DESC);`

// PostgresStore journals terminal transitions in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// EnsureSchema creates the journal table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, outcomeSchema); err != nil {
		return fmt.Errorf("creating site_outcomes: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, o *domain.Outcome) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO site_outcomes (site_id, site_name, state, attempts, message)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING recorded_at`,
		o.SiteID, o.SiteName, string(o.State), o.Attempts, o.Message,
	).Scan(&o.RecordedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*domain.Outcome, error) {
	// LIMIT NULL is no limit.
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx,
		`SELECT site_id, site_name, state, attempts, message, recorded_at
		 FROM site_outcomes
		 ORDER BY recorded_at DESC
		 LIMIT $1`,
		lim,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Outcome, error) {
		var o domain.Outcome
		var state string
		if err := row.Scan(&o.SiteID, &o.SiteName, &state, &o.Attempts, &o.Message, &o.RecordedAt); err != nil {
			return nil, err
		}
		o.State = domain.TrackState(state)
		return &o, nil
	})
}

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Season scopes the redis leaderboards: every finished match folds its
// totals into the boards of whichever season is active at that moment.
type Season struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Active    bool       `json:"active"`
}

type SeasonStore struct {
	db *pgxpool.Pool
}

func NewSeasonStore(db *pgxpool.Pool) *SeasonStore {
	return &SeasonStore{db: db}
}

// Active returns the current season, or nil when none is open.
func (s *SeasonStore) Active(ctx context.Context) (*Season, error) {
	se := &Season{}
	err := s.db.QueryRow(ctx, `
		SELECT id, name, started_at, ended_at, active FROM seasons WHERE active = TRUE
	`).Scan(&se.ID, &se.Name, &se.StartedAt, &se.EndedAt, &se.Active)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return se, err
}

// Rollover closes the active season and opens a new one in a single
// transaction, so there is never an instant with two active seasons.
func (s *SeasonStore) Rollover(ctx context.Context, name string) (*Season, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE seasons SET active = FALSE, ended_at = NOW() WHERE active = TRUE
	`)
	if err != nil {
		return nil, err
	}

	se := &Season{}
	err = tx.QueryRow(ctx, `
		INSERT INTO seasons (name, started_at, active) VALUES ($1, NOW(), TRUE)
		RETURNING id, name, started_at, ended_at, active
	`, name).Scan(&se.ID, &se.Name, &se.StartedAt, &se.EndedAt, &se.Active)
	if err != nil {
		return nil, err
	}
	return se, tx.Commit(ctx)
}

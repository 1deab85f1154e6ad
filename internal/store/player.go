package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Player struct {
	ID               int64
	Username         string
	MatchesPlayed    int
	MatchesWon       int
	LifetimeKills    int
	LifetimeEarnings int64
	CreatedAt        time.Time
}

type PlayerStore struct {
	db *pgxpool.Pool
}

func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) Upsert(ctx context.Context, id int64, username string) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO players (id, username) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, matches_played, matches_won,
		          lifetime_kills, lifetime_earnings, created_at
	`, id, username).Scan(
		&p.ID, &p.Username, &p.MatchesPlayed, &p.MatchesWon,
		&p.LifetimeKills, &p.LifetimeEarnings, &p.CreatedAt,
	)
	return p, err
}

func (s *PlayerStore) Get(ctx context.Context, id int64) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		SELECT id, username, matches_played, matches_won,
		       lifetime_kills, lifetime_earnings, created_at
		FROM players WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Username, &p.MatchesPlayed, &p.MatchesWon,
		&p.LifetimeKills, &p.LifetimeEarnings, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// AddResult folds one match result into a player's lifetime stats.
func (s *PlayerStore) AddResult(ctx context.Context, id int64, won bool, kills int, earnings int64) error {
	wonInc := 0
	if won {
		wonInc = 1
	}
	_, err := s.db.Exec(ctx, `
		UPDATE players
		SET matches_played = matches_played + 1,
		    matches_won = matches_won + $2,
		    lifetime_kills = lifetime_kills + $3,
		    lifetime_earnings = lifetime_earnings + $4
		WHERE id = $1
	`, id, wonInc, kills, earnings)
	return err
}

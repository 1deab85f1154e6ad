package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRecord struct {
	ID          string
	WinningTeam string
	EndReason   string
	Rounds      int
	StartedAt   time.Time
	EndedAt     time.Time
}

type Participant struct {
	MatchID  string
	PlayerID int64
	Team     string
	Kills    int
	Damage   int64
	Earnings int64
	Won      bool
}

type MatchStore struct {
	db *pgxpool.Pool
}

func NewMatchStore(db *pgxpool.Pool) *MatchStore {
	return &MatchStore{db: db}
}

// RecordMatch writes the match row and all participant rows in one transaction.
func (s *MatchStore) RecordMatch(ctx context.Context, rec MatchRecord, parts []Participant) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO matches (id, winning_team, end_reason, rounds, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.WinningTeam, rec.EndReason, rec.Rounds, rec.StartedAt, rec.EndedAt)
	if err != nil {
		return err
	}

	for _, p := range parts {
		_, err = tx.Exec(ctx, `
			INSERT INTO match_participants (match_id, player_id, team, kills, damage, earnings, won)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.MatchID, p.PlayerID, p.Team, p.Kills, p.Damage, p.Earnings, p.Won)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *MatchStore) PlayerMatches(ctx context.Context, playerID int64, limit int) ([]Participant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT match_id, player_id, team, kills, damage, earnings, won
		FROM match_participants WHERE player_id = $1
		ORDER BY match_id DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.MatchID, &p.PlayerID, &p.Team, &p.Kills, &p.Damage, &p.Earnings, &p.Won); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

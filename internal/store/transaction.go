package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Transaction struct {
	ID        int64
	PlayerID  int64
	MatchID   string
	Round     int
	Kind      string
	Amount    int64
	CreatedAt time.Time
}

type TransactionStore struct {
	db *pgxpool.Pool
}

func NewTransactionStore(db *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Record(ctx context.Context, playerID int64, matchID string, round int, kind string, amount int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (player_id, match_id, round, kind, amount) VALUES ($1, $2, $3, $4, $5)
	`, playerID, matchID, round, kind, amount)
	return err
}

func (s *TransactionStore) PlayerHistory(ctx context.Context, playerID int64, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, match_id, round, kind, amount, created_at
		FROM transactions WHERE player_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.MatchID, &t.Round, &t.Kind, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

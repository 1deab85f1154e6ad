package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Psikuvit/cashclash/internal/cache"
)

type Entry struct {
	PlayerID int64   `json:"player_id"`
	Score    float64 `json:"score"`
	Rank     int64   `json:"rank"`
}

type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

// AddEarnings increments a player's season earnings score.
func (s *Service) AddEarnings(ctx context.Context, seasonID int, playerID int64, amount int64) error {
	key := fmt.Sprintf(cache.KeyEarningsBoard, seasonID)
	return s.rdb.ZIncrBy(ctx, key, float64(amount), strconv.FormatInt(playerID, 10)).Err()
}

// AddKills increments a player's season kill count.
func (s *Service) AddKills(ctx context.Context, seasonID int, playerID int64, kills int) error {
	key := fmt.Sprintf(cache.KeyKillsBoard, seasonID)
	return s.rdb.ZIncrBy(ctx, key, float64(kills), strconv.FormatInt(playerID, 10)).Err()
}

// TopEarnings returns the top N players by season earnings.
func (s *Service) TopEarnings(ctx context.Context, seasonID int, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, fmt.Sprintf(cache.KeyEarningsBoard, seasonID), count)
}

// TopKills returns the top N players by season kills.
func (s *Service) TopKills(ctx context.Context, seasonID int, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, fmt.Sprintf(cache.KeyKillsBoard, seasonID), count)
}

// PlayerRank returns a player's earnings rank and score for a season.
func (s *Service) PlayerRank(ctx context.Context, seasonID int, playerID int64) (*Entry, error) {
	key := fmt.Sprintf(cache.KeyEarningsBoard, seasonID)
	member := strconv.FormatInt(playerID, 10)

	rank, err := s.rdb.ZRevRank(ctx, key, member).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := s.rdb.ZScore(ctx, key, member).Result()
	if err != nil {
		return nil, err
	}

	return &Entry{PlayerID: playerID, Score: score, Rank: rank + 1}, nil
}

// ResetSeason removes leaderboard data for a given season.
func (s *Service) ResetSeason(ctx context.Context, seasonID int) error {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(cache.KeyEarningsBoard, seasonID))
	pipe.Del(ctx, fmt.Sprintf(cache.KeyKillsBoard, seasonID))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Service) topFromSortedSet(ctx context.Context, key string, count int64) ([]Entry, error) {
	results, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, count-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		id, _ := strconv.ParseInt(member, 10, 64)
		entries = append(entries, Entry{
			PlayerID: id,
			Score:    z.Score,
			Rank:     int64(i + 1),
		})
	}
	return entries, nil
}

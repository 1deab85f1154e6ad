package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Psikuvit/cashclash/internal/cache"
	"github.com/Psikuvit/cashclash/internal/config"
	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/game"
	"github.com/Psikuvit/cashclash/internal/leaderboard"
	"github.com/Psikuvit/cashclash/internal/match"
	"github.com/Psikuvit/cashclash/internal/server"
	"github.com/Psikuvit/cashclash/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores
	playerStore := store.NewPlayerStore(db)
	matchStore := store.NewMatchStore(db)
	txStore := store.NewTransactionStore(db)
	seasonStore := store.NewSeasonStore(db)
	boards := leaderboard.NewService(rdb)

	matches := match.NewManager()
	metrics := server.NewMetrics()

	// End-of-match callback: persist results and fold them into season boards.
	onEnd := func(m *match.Match, totals []match.PlayerTotal) {
		endCtx, endCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer endCancel()

		rec := store.MatchRecord{
			ID:          m.ID,
			WinningTeam: m.Winner().String(),
			EndReason:   string(m.Reason),
			Rounds:      m.Round(),
		}
		if m.StartedAt != nil {
			rec.StartedAt = *m.StartedAt
		}
		if m.EndedAt != nil {
			rec.EndedAt = *m.EndedAt
		}

		parts := make([]store.Participant, 0, len(totals))
		for _, t := range totals {
			parts = append(parts, store.Participant{
				MatchID:  m.ID,
				PlayerID: t.PlayerID,
				Team:     t.Team.String(),
				Kills:    t.Kills,
				Damage:   t.Damage,
				Earnings: t.Balance,
				Won:      t.Won,
			})
		}
		if err := matchStore.RecordMatch(endCtx, rec, parts); err != nil {
			logger.Error("record match", "match", m.ID, "err", err)
		}

		season, seasonErr := seasonStore.Active(endCtx)
		for _, t := range totals {
			if err := playerStore.AddResult(endCtx, t.PlayerID, t.Won, t.Kills, t.Balance); err != nil {
				logger.Error("update player", "player", t.PlayerID, "err", err)
			}
			if seasonErr == nil && season != nil {
				_ = boards.AddEarnings(endCtx, season.ID, t.PlayerID, t.Balance)
				_ = boards.AddKills(endCtx, season.ID, t.PlayerID, t.Kills)
			}
			metrics.AddPayout(t.Balance)
		}

		logger.Info("match finished",
			"match", m.ID,
			"winner", m.Winner().String(),
			"reason", m.Reason,
			"rounds", m.Round(),
			"players", len(totals),
		)
	}

	// Wire engine and hub (circular dependency resolved via SetHub)
	engine := game.NewEngine(matches, nil, logger, onEnd)
	hub := server.NewHub(cfg.TicketSecret, engine, metrics, logger)
	engine.SetHub(hub)

	// Every ledger movement lands in the transaction audit table.
	engine.SetRecorder(func(matchID string) economy.RecordFunc {
		return func(playerID int64, kind economy.TxKind, amount int64, round int) {
			recCtx, recCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer recCancel()
			if err := txStore.Record(recCtx, playerID, matchID, round, string(kind), amount); err != nil {
				logger.Error("record transaction", "player", playerID, "err", err)
			}
		}
	})

	srv := server.New(cfg, db, rdb, hub, matches, metrics, logger)
	srv.SetPlayerStore(playerStore)
	srv.SetControls(engine)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	engine.Shutdown()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

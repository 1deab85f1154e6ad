package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Psikuvit/cashclash/internal/auth"
	"github.com/Psikuvit/cashclash/internal/config"
	"github.com/Psikuvit/cashclash/internal/leaderboard"
	"github.com/Psikuvit/cashclash/internal/match"
	"github.com/Psikuvit/cashclash/internal/store"
)

// MatchControls is the slice of the game engine the HTTP layer drives.
// Defined here so transport does not depend on the engine package.
type MatchControls interface {
	StartMatch(matchID string, force bool) error
	ForcePhase(matchID string) error
	ForceRound(matchID string) error
	EndMatch(matchID string) error
}

type Server struct {
	cfg         *config.Config
	db          *pgxpool.Pool
	rdb         *redis.Client
	hub         *Hub
	logger      *slog.Logger
	mux         *http.ServeMux
	matches     *match.Manager
	players     *store.PlayerStore
	controls    MatchControls
	leaderboard *leaderboard.Service
	seasons     *store.SeasonStore
	metrics     *Metrics
}

func New(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, hub *Hub, matches *match.Manager, metrics *Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		db:          db,
		rdb:         rdb,
		hub:         hub,
		logger:      logger,
		mux:         http.NewServeMux(),
		matches:     matches,
		leaderboard: leaderboard.NewService(rdb),
		seasons:     store.NewSeasonStore(db),
		metrics:     metrics,
	}
	s.routes()
	return s
}

func (s *Server) SetPlayerStore(ps *store.PlayerStore) { s.players = ps }

func (s *Server) SetControls(mc MatchControls) { s.controls = mc }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics)
	s.mux.Handle("GET /ws", s.hub)

	// Read-only match surface
	s.mux.HandleFunc("GET /api/matches", s.handleListMatches)
	s.mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	s.mux.HandleFunc("GET /api/matches/{id}/ledger/{playerID}", s.handleGetLedger)

	// Player profile
	s.mux.HandleFunc("GET /api/player/{id}", s.handleGetPlayer)

	// Leaderboards
	s.mux.HandleFunc("GET /api/leaderboard/earnings", s.handleEarningsBoard)
	s.mux.HandleFunc("GET /api/leaderboard/kills", s.handleKillsBoard)
	s.mux.HandleFunc("GET /api/leaderboard/rank/{playerID}", s.handlePlayerRank)

	// Admin overrides
	s.mux.HandleFunc("POST /api/admin/matches/{id}/start", s.adminOnly(s.handleForceStart))
	s.mux.HandleFunc("POST /api/admin/matches/{id}/phase", s.adminOnly(s.handleForcePhase))
	s.mux.HandleFunc("POST /api/admin/matches/{id}/round", s.adminOnly(s.handleForceRound))
	s.mux.HandleFunc("POST /api/admin/matches/{id}/end", s.adminOnly(s.handleEndMatch))
	s.mux.HandleFunc("POST /api/admin/seasons", s.adminOnly(s.handleSeasonRollover))
}

// adminOnly gates a handler behind an admin-role ticket.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.ValidateTicket(r.Header.Get("X-Admin-Ticket"), s.cfg.TicketSecret)
		if err != nil || claims.Role != auth.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}

	if err := s.db.Ping(ctx); err != nil {
		status["db"] = "down"
		status["status"] = "degraded"
	} else {
		status["db"] = "ok"
	}

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		status["redis"] = "down"
		status["status"] = "degraded"
	} else {
		status["redis"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if status["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("write json", "err", err)
	}
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	type info struct {
		ID      string `json:"id"`
		Phase   string `json:"phase"`
		Round   int    `json:"round"`
		Players int    `json:"players"`
	}
	var list []info
	for _, phase := range []match.Phase{match.PhaseWaiting, match.PhasePreparing, match.PhaseCombat} {
		for _, m := range s.matches.ListByPhase(phase) {
			list = append(list, info{ID: m.ID, Phase: phase.String(), Round: m.Round(), Players: m.PlayerCount()})
		}
	}
	writeJSON(w, list)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matches.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, m.Snapshot())
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matches.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	pid, err := strconv.ParseInt(r.PathValue("playerID"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	view, ok := m.LedgerView(pid)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	if s.players == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	pid, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	player, err := s.players.Get(r.Context(), pid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if player == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, player)
}

func (s *Server) boardCount(r *http.Request) int64 {
	count := int64(50)
	if c := r.URL.Query().Get("count"); c != "" {
		if n, err := strconv.ParseInt(c, 10, 64); err == nil && n > 0 && n <= 100 {
			count = n
		}
	}
	return count
}

func (s *Server) handleEarningsBoard(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasons.Active(r.Context())
	if err != nil || season == nil {
		writeJSON(w, []any{})
		return
	}
	entries, err := s.leaderboard.TopEarnings(r.Context(), season.ID, s.boardCount(r))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleKillsBoard(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasons.Active(r.Context())
	if err != nil || season == nil {
		writeJSON(w, []any{})
		return
	}
	entries, err := s.leaderboard.TopKills(r.Context(), season.ID, s.boardCount(r))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handlePlayerRank(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasons.Active(r.Context())
	if err != nil || season == nil {
		http.Error(w, "no active season", http.StatusNotFound)
		return
	}
	pid, err := strconv.ParseInt(r.PathValue("playerID"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	entry, err := s.leaderboard.PlayerRank(r.Context(), season.ID, pid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "not ranked", http.StatusNotFound)
		return
	}
	writeJSON(w, entry)
}

func (s *Server) adminAction(w http.ResponseWriter, matchID string, fn func(string) error) {
	if s.controls == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := fn(matchID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleForceStart(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r.PathValue("id"), func(id string) error {
		return s.controls.StartMatch(id, true)
	})
}

func (s *Server) handleForcePhase(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r.PathValue("id"), s.controls.ForcePhase)
}

func (s *Server) handleForceRound(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r.PathValue("id"), s.controls.ForceRound)
}

func (s *Server) handleEndMatch(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r.PathValue("id"), s.controls.EndMatch)
}

// handleSeasonRollover closes the active season, clears its boards, and
// opens a fresh one under the given name.
func (s *Server) handleSeasonRollover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "season name required", http.StatusBadRequest)
		return
	}

	prev, err := s.seasons.Active(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	season, err := s.seasons.Rollover(r.Context(), req.Name)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if prev != nil {
		if err := s.leaderboard.ResetSeason(r.Context(), prev.ID); err != nil {
			s.logger.Error("reset season boards", "season", prev.ID, "err", err)
		}
	}
	writeJSON(w, season)
}

func (s *Server) Handler() http.Handler {
	limiter := NewRateLimiter(30, 60)
	return ChainMiddleware(s.mux,
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(limiter, s.logger),
	)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

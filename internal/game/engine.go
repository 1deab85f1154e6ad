package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/match"
	"github.com/Psikuvit/cashclash/internal/server"
)

// EndCallback receives the finished match and its aggregated totals for
// persistence.
type EndCallback func(m *match.Match, totals []match.PlayerTotal)

// RecorderFactory builds the economy audit sink for one match; nil disables
// auditing.
type RecorderFactory func(matchID string) economy.RecordFunc

type runner struct {
	ctrl   *Controller
	cancel context.CancelFunc
}

// Engine owns every live match controller and bridges the WebSocket hub to
// the per-match event loops.
type Engine struct {
	cfg      match.Config
	matches  *match.Manager
	hub      *server.Hub
	logger   *slog.Logger
	onEnd    EndCallback
	world    WorldAdapter
	recorder RecorderFactory

	mu      sync.Mutex
	running map[string]*runner
}

func NewEngine(matches *match.Manager, hub *server.Hub, logger *slog.Logger, onEnd EndCallback) *Engine {
	return &Engine{
		cfg:     match.DefaultConfig(),
		matches: matches,
		hub:     hub,
		logger:  logger,
		onEnd:   onEnd,
		world:   NopWorld{},
		running: make(map[string]*runner),
	}
}

// SetHub sets the WebSocket hub reference (used to break circular init).
func (e *Engine) SetHub(hub *server.Hub) { e.hub = hub }

func (e *Engine) SetWorld(w WorldAdapter) { e.world = w }

func (e *Engine) SetRecorder(f RecorderFactory) { e.recorder = f }

// CreateMatch registers a new match and starts its controller loop.
func (e *Engine) CreateMatch(ctx context.Context) *match.Match {
	m := e.matches.Create(e.cfg)

	opts := []Option{
		WithWorld(e.world),
		WithNotify(func(kind string, payload any) { e.broadcast(m.ID, kind, payload) }),
	}
	if e.recorder != nil {
		opts = append(opts, WithRecorder(e.recorder(m.ID)))
	}
	ctrl := NewController(m, e.logger.With("match", m.ID), e.finish, opts...)

	mCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.running[m.ID] = &runner{ctrl: ctrl, cancel: cancel}
	e.mu.Unlock()

	go ctrl.Run(mCtx)
	e.logger.Info("match created", "match", m.ID)
	return m
}

func (e *Engine) controller(matchID string) (*Controller, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.running[matchID]
	if !ok {
		return nil, false
	}
	return r.ctrl, true
}

// finish is the controller's end hook: hand off for persistence, then tear
// the runner down after a grace period so late snapshots still resolve.
func (e *Engine) finish(c *Controller) {
	m := c.Match()
	if e.onEnd != nil {
		e.onEnd(m, m.Totals())
	}

	e.mu.Lock()
	r := e.running[m.ID]
	delete(e.running, m.ID)
	e.mu.Unlock()
	if r != nil {
		r.cancel()
	}

	go func() {
		time.Sleep(30 * time.Second)
		e.matches.Remove(m.ID)
	}()
}

// Shutdown cancels every live match loop.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.running {
		r.cancel()
	}
}

// Join adds a player to a waiting match and binds the registry index.
func (e *Engine) Join(matchID string, playerID int64, team match.Team) (match.Team, error) {
	m, ok := e.matches.Get(matchID)
	if !ok {
		return match.TeamNone, ErrMatchOver
	}
	assigned, err := m.AddPlayer(playerID, team)
	if err != nil {
		return match.TeamNone, err
	}
	e.matches.Bind(playerID, matchID)
	e.broadcast(matchID, "state", m.Snapshot())
	return assigned, nil
}

// Leave routes through the match loop so elimination and win-condition
// bookkeeping happen in order.
func (e *Engine) Leave(playerID int64) {
	m, ok := e.matches.ByPlayer(playerID)
	if !ok {
		return
	}
	e.matches.Unbind(playerID)
	if ctrl, ok := e.controller(m.ID); ok {
		ctrl.Post(Event{Kind: EvLeave, Actor: playerID})
	}
}

// Admin controls. Each is a synchronous loop round-trip so the caller gets
// the user-facing reason for an invalid transition.

func (e *Engine) StartMatch(matchID string, force bool) error {
	ctrl, ok := e.controller(matchID)
	if !ok {
		return ErrMatchOver
	}
	kind := EvStart
	if force {
		kind = EvForceStart
	}
	return ctrl.Do(Event{Kind: kind})
}

func (e *Engine) ForcePhase(matchID string) error {
	ctrl, ok := e.controller(matchID)
	if !ok {
		return ErrMatchOver
	}
	return ctrl.Do(Event{Kind: EvForcePhase})
}

func (e *Engine) ForceRound(matchID string) error {
	ctrl, ok := e.controller(matchID)
	if !ok {
		return ErrMatchOver
	}
	return ctrl.Do(Event{Kind: EvForceRound})
}

func (e *Engine) EndMatch(matchID string) error {
	ctrl, ok := e.controller(matchID)
	if !ok {
		return ErrMatchOver
	}
	return ctrl.Do(Event{Kind: EvEndMatch})
}

func (e *Engine) broadcast(matchID, kind string, payload any) {
	if e.hub == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("marshal broadcast", "err", err)
		return
	}
	e.hub.BroadcastMatch(matchID, server.WSMessage{Type: kind, Payload: raw})
}

// HandleMessage implements server.MessageHandler.
func (e *Engine) HandleMessage(ctx context.Context, client *server.Client, msg server.WSMessage) {
	switch msg.Type {
	case "create_match":
		m := e.CreateMatch(context.WithoutCancel(ctx))
		e.hub.SendJSON(client.ID, "match_created", map[string]string{"match_id": m.ID})

	case "join_match":
		var p struct {
			MatchID string `json:"match_id"`
			Team    string `json:"team"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		team := match.TeamNone
		switch p.Team {
		case "red":
			team = match.TeamRed
		case "blue":
			team = match.TeamBlue
		}
		assigned, err := e.Join(p.MatchID, client.ID, team)
		if err != nil {
			e.hub.SendJSON(client.ID, "error", map[string]string{"reason": err.Error()})
			return
		}
		e.hub.JoinMatch(client.ID, p.MatchID)
		e.hub.SendJSON(client.ID, "joined", map[string]string{"match_id": p.MatchID, "team": assigned.String()})

	case "start_match":
		if m, ok := e.matches.ByPlayer(client.ID); ok {
			if err := e.StartMatch(m.ID, false); err != nil {
				e.hub.SendJSON(client.ID, "error", map[string]string{"reason": err.Error()})
			}
		}

	case "buy", "refund", "invest":
		m, ok := e.matches.ByPlayer(client.ID)
		if !ok {
			return
		}
		ctrl, ok := e.controller(m.ID)
		if !ok {
			return
		}
		var p struct {
			Item string `json:"item"`
		}
		_ = json.Unmarshal(msg.Payload, &p)
		kind := map[string]EventKind{"buy": EvPurchase, "refund": EvRefund, "invest": EvInvest}[msg.Type]
		if err := ctrl.Do(Event{Kind: kind, Actor: client.ID, Item: p.Item}); err != nil {
			e.hub.SendJSON(client.ID, "error", map[string]string{"reason": err.Error()})
		}

	case "transfer":
		m, ok := e.matches.ByPlayer(client.ID)
		if !ok {
			return
		}
		ctrl, ok := e.controller(m.ID)
		if !ok {
			return
		}
		var p struct {
			To     int64 `json:"to"`
			Amount int64 `json:"amount"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if err := ctrl.Do(Event{Kind: EvTransfer, Actor: client.ID, Target: p.To, Amount: p.Amount}); err != nil {
			e.hub.SendJSON(client.ID, "error", map[string]string{"reason": err.Error()})
		}

	case "vote_forfeit":
		if m, ok := e.matches.ByPlayer(client.ID); ok {
			if ctrl, ok := e.controller(m.ID); ok {
				ctrl.Post(Event{Kind: EvVoteForfeit, Actor: client.ID})
			}
		}

	case "kill", "damage":
		// Combat outcomes come from the authoritative world host only.
		if client.Role != server.RoleHost && client.Role != server.RoleAdmin {
			return
		}
		var p struct {
			MatchID  string `json:"match_id"`
			Attacker int64  `json:"attacker"`
			Victim   int64  `json:"victim"`
			Amount   int64  `json:"amount"`
			Health   int    `json:"health"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		ctrl, ok := e.controller(p.MatchID)
		if !ok {
			return
		}
		if msg.Type == "kill" {
			ctrl.Post(Event{Kind: EvKill, Actor: p.Attacker, Target: p.Victim})
		} else {
			ctrl.Post(Event{Kind: EvDamage, Actor: p.Attacker, Target: p.Victim, Amount: p.Amount, Health: p.Health})
		}

	case "state":
		if m, ok := e.matches.ByPlayer(client.ID); ok {
			e.hub.SendJSON(client.ID, "state", m.Snapshot())
		}

	case "list_matches":
		waiting := e.matches.ListByPhase(match.PhaseWaiting)
		type info struct {
			ID      string `json:"id"`
			Players int    `json:"players"`
		}
		list := make([]info, 0, len(waiting))
		for _, m := range waiting {
			list = append(list, info{ID: m.ID, Players: m.PlayerCount()})
		}
		e.hub.SendJSON(client.ID, "match_list", list)
	}
}

// HandleDisconnect implements server.MessageHandler: a dropped connection
// is not a leave — the ledger survives for the reconnect window.
func (e *Engine) HandleDisconnect(client *server.Client) {
	if m, ok := e.matches.ByPlayer(client.ID); ok {
		if ctrl, ok := e.controller(m.ID); ok {
			ctrl.Post(Event{Kind: EvDisconnect, Actor: client.ID})
		}
	}
}

// HandleReconnect clears the disconnected flag when a client returns.
func (e *Engine) HandleReconnect(client *server.Client) {
	if m, ok := e.matches.ByPlayer(client.ID); ok {
		if ctrl, ok := e.controller(m.ID); ok {
			ctrl.Post(Event{Kind: EvReconnect, Actor: client.ID})
		}
	}
}

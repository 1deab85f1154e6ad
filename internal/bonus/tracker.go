package bonus

import (
	"log/slog"
	"time"

	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/match"
)

// Award is one granted bonus, returned so the transport layer can announce it.
type Award struct {
	PlayerID int64 `json:"player_id"`
	Kind     Kind  `json:"kind"`
	Amount   int64 `json:"amount"`
}

type closeCallState struct {
	critical bool
	exitAt   time.Duration // elapsed-in-round when health rose back over critical; 0 = not recovering
}

// Tracker watches combat events for one match and grants each bonus kind at
// most once per its scope. All timing uses elapsed-in-round durations fed by
// the controller, so live play and simulations share the same arithmetic.
// State resets completely when a new round begins; nothing persists across
// rounds.
type Tracker struct {
	cfg    match.Config
	eco    *economy.Engine
	logger *slog.Logger

	round      int
	awarded    map[int64]map[Kind]bool
	milestones map[int64]map[int]bool
	alive      map[int64]bool
	spawnedAt  map[int64]time.Duration
	closeCall  map[int64]*closeCallState
}

// NewTracker starts with empty tracking maps so end-of-round evaluation is
// safe even if a round is closed before its combat phase ever began.
func NewTracker(cfg match.Config, eco *economy.Engine, logger *slog.Logger) *Tracker {
	return &Tracker{
		cfg:        cfg,
		eco:        eco,
		logger:     logger,
		awarded:    make(map[int64]map[Kind]bool),
		milestones: make(map[int64]map[int]bool),
		alive:      make(map[int64]bool),
		spawnedAt:  make(map[int64]time.Duration),
		closeCall:  make(map[int64]*closeCallState),
	}
}

// BeginRound wipes per-round state for a fresh RoundData.
func (t *Tracker) BeginRound(round int, playerIDs []int64) {
	t.round = round
	t.awarded = make(map[int64]map[Kind]bool, len(playerIDs))
	t.milestones = make(map[int64]map[int]bool)
	t.alive = make(map[int64]bool, len(playerIDs))
	t.spawnedAt = make(map[int64]time.Duration, len(playerIDs))
	t.closeCall = make(map[int64]*closeCallState, len(playerIDs))
	for _, id := range playerIDs {
		t.alive[id] = true
		t.spawnedAt[id] = 0
	}
}

// Remove drops all tracking state tied to a participant who left.
func (t *Tracker) Remove(id int64) {
	delete(t.awarded, id)
	delete(t.milestones, id)
	delete(t.alive, id)
	delete(t.spawnedAt, id)
	delete(t.closeCall, id)
}

func (t *Tracker) grant(id int64, k Kind) *Award {
	if t.awarded[id] == nil {
		t.awarded[id] = make(map[Kind]bool)
	}
	if t.awarded[id][k] {
		return nil
	}
	amount := Reward(t.cfg, k)
	if !t.eco.Award(id, amount, t.round) {
		return nil
	}
	t.awarded[id][k] = true
	t.logger.Info("bonus awarded", "player", id, "kind", string(k), "amount", amount, "round", t.round)
	return &Award{PlayerID: id, Kind: k, Amount: amount}
}

// grantMilestone is the rampage path: once per distinct streak milestone.
func (t *Tracker) grantMilestone(id int64, milestone int) *Award {
	if t.milestones[id] == nil {
		t.milestones[id] = make(map[int]bool)
	}
	if t.milestones[id][milestone] {
		return nil
	}
	amount := Reward(t.cfg, Rampage)
	if !t.eco.Award(id, amount, t.round) {
		return nil
	}
	t.milestones[id][milestone] = true
	t.logger.Info("bonus awarded", "player", id, "kind", string(Rampage), "milestone", milestone, "round", t.round)
	return &Award{PlayerID: id, Kind: Rampage, Amount: amount}
}

// OnKill reacts to a recorded kill: first blood, rampage milestones,
// comeback, and the victim's survivor/close-call window resets.
func (t *Tracker) OnKill(out match.KillOutcome, elapsed time.Duration) []Award {
	var awards []Award

	if out.FirstBlood {
		if a := t.grant(out.Killer, FirstBlood); a != nil {
			awards = append(awards, *a)
		}
	}
	if t.cfg.RampageStep > 0 && out.KillerStreak > 0 && out.KillerStreak%t.cfg.RampageStep == 0 {
		if a := t.grantMilestone(out.Killer, out.KillerStreak/t.cfg.RampageStep); a != nil {
			awards = append(awards, *a)
		}
	}
	if out.Comeback {
		if a := t.grant(out.Killer, Comeback); a != nil {
			awards = append(awards, *a)
		}
	}

	// Death interrupts the victim's continuous-survival window and any
	// close-call recovery in flight.
	delete(t.closeCall, out.Victim)
	if out.Eliminated {
		t.alive[out.Victim] = false
		delete(t.spawnedAt, out.Victim)
	} else {
		t.spawnedAt[out.Victim] = elapsed
	}
	return awards
}

// OnHealth tracks the close-call window: dip to critical, recover above it,
// then hold for the configured duration. Re-dipping restarts the window.
func (t *Tracker) OnHealth(id int64, health int, elapsed time.Duration) {
	if !t.alive[id] {
		return
	}
	st := t.closeCall[id]
	if health <= t.cfg.CriticalHealth {
		if st == nil {
			st = &closeCallState{}
			t.closeCall[id] = st
		}
		st.critical = true
		st.exitAt = 0
		return
	}
	if st != nil && st.critical {
		st.critical = false
		st.exitAt = elapsed
	}
}

// Tick evaluates the time-window bonuses. Called at least once per second
// during combat.
func (t *Tracker) Tick(elapsed time.Duration) []Award {
	var awards []Award

	for id, spawned := range t.spawnedAt {
		if !t.alive[id] {
			continue
		}
		if elapsed-spawned >= t.cfg.SurvivorWindow {
			if a := t.grant(id, Survivor); a != nil {
				awards = append(awards, *a)
			}
		}
	}

	for id, st := range t.closeCall {
		if st.critical || st.exitAt == 0 || !t.alive[id] {
			continue
		}
		if elapsed-st.exitAt >= t.cfg.CloseCallHold {
			if a := t.grant(id, CloseCall); a != nil {
				awards = append(awards, *a)
			}
			delete(t.closeCall, id)
		}
	}
	return awards
}

// EndOfRound grants the tally bonuses. Ties award nothing: with two equal
// leaders there is no single "most", and a deterministic coin flip would be
// worse than withholding the bonus.
func (t *Tracker) EndOfRound(results []match.RoundResult) []Award {
	var awards []Award

	if id, ok := topBy(results, func(r match.RoundResult) int64 { return int64(r.Kills) }); ok {
		if a := t.grant(id, MostKills); a != nil {
			awards = append(awards, *a)
		}
	}
	if id, ok := topBy(results, func(r match.RoundResult) int64 { return r.Damage }); ok {
		if a := t.grant(id, MostDamage); a != nil {
			awards = append(awards, *a)
		}
	}
	if id, ok := underdog(results, t.cfg.UnderdogMinKills); ok {
		if a := t.grant(id, Underdog); a != nil {
			awards = append(awards, *a)
		}
	}
	return awards
}

// topBy finds the unique leader by the given metric; ok=false on a tie or
// when nobody scored.
func topBy(results []match.RoundResult, metric func(match.RoundResult) int64) (int64, bool) {
	var best int64
	var bestID int64
	tied := false
	for _, r := range results {
		v := metric(r)
		if v <= 0 {
			continue
		}
		switch {
		case bestID == 0 || v > best:
			best, bestID, tied = v, r.PlayerID, false
		case v == best:
			tied = true
		}
	}
	if bestID == 0 || tied {
		return 0, false
	}
	return bestID, true
}

// underdog picks the qualifying participant (>= minKills) with the lowest
// total purchase spend. Spend ties award nothing.
func underdog(results []match.RoundResult, minKills int) (int64, bool) {
	var bestID int64
	var bestSpend int64
	found := false
	tied := false
	for _, r := range results {
		if r.Kills < minKills {
			continue
		}
		switch {
		case !found || r.Spend < bestSpend:
			bestID, bestSpend, found, tied = r.PlayerID, r.Spend, true, false
		case r.Spend == bestSpend:
			tied = true
		}
	}
	if !found || tied {
		return 0, false
	}
	return bestID, true
}

package game

import (
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Psikuvit/cashclash/internal/match"
)

// SimKill is one scripted kill: killer takes down victim.
type SimKill struct {
	Killer int64
	Victim int64
}

// SimConfig fully describes a deterministic match simulation.
type SimConfig struct {
	Cfg  match.Config
	Red  []int64
	Blue []int64

	// KillSchedule maps global tick number → kills applied at that tick.
	// Global ticks count every step of the loop, across prep and combat.
	KillSchedule map[int][]SimKill

	// PurchaseSchedule maps global tick number → player ID → item ID.
	// Purchases land only if the tick falls in a preparation phase.
	PurchaseSchedule map[int]map[int64]string

	// TransferSchedule maps global tick number → scripted transfers.
	TransferSchedule map[int][]SimTransfer

	// InvestAt maps player ID → global tick at which they invest.
	InvestAt map[int64]int

	// ForfeitAt maps player ID → global tick at which they vote to forfeit.
	ForfeitAt map[int64]int

	Seed     int64 // drives the event injector; same seed, same match
	MaxTicks int   // safety cap; 0 defaults to 2000
}

type SimTransfer struct {
	Sender   int64
	Receiver int64
	Amount   int64
}

type SimNotice struct {
	Tick    int
	Kind    string
	Payload any
}

type SimResult struct {
	Winner     match.Team
	Reason     match.EndReason
	Rounds     int
	TotalTicks int
	Notices    []SimNotice
	Totals     []match.PlayerTotal
	Balances   map[int64]int64
	RoundWins  map[match.Team]int
}

// RunSimulation executes a full match loop with no goroutines, no channels
// and no wall clock. The controller's event handler and tick step are driven
// directly, so a seeded config reproduces the identical match every run.
func RunSimulation(cfg SimConfig) SimResult {
	maxTicks := cfg.MaxTicks
	if maxTicks <= 0 {
		maxTicks = 2000
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := match.New("sim-match", cfg.Cfg)
	for _, pid := range cfg.Red {
		m.AddPlayer(pid, match.TeamRed)
	}
	for _, pid := range cfg.Blue {
		m.AddPlayer(pid, match.TeamBlue)
	}

	result := SimResult{Balances: make(map[int64]int64)}
	tick := 0

	c := NewController(m, logger, nil,
		WithRNG(rand.New(rand.NewSource(cfg.Seed))),
		WithNotify(func(kind string, payload any) {
			result.Notices = append(result.Notices, SimNotice{Tick: tick, Kind: kind, Payload: payload})
		}),
	)

	c.handle(Event{Kind: EvStart})

	for tick = 1; tick <= maxTicks; tick++ {
		if m.Phase() == match.PhaseEnding {
			break
		}

		for pid, at := range cfg.InvestAt {
			if at == tick {
				c.handle(Event{Kind: EvInvest, Actor: pid})
			}
		}
		if buys, ok := cfg.PurchaseSchedule[tick]; ok {
			for pid, item := range buys {
				c.handle(Event{Kind: EvPurchase, Actor: pid, Item: item})
			}
		}
		if xfers, ok := cfg.TransferSchedule[tick]; ok {
			for _, t := range xfers {
				c.handle(Event{Kind: EvTransfer, Actor: t.Sender, Target: t.Receiver, Amount: t.Amount})
			}
		}
		if kills, ok := cfg.KillSchedule[tick]; ok {
			for _, k := range kills {
				c.handle(Event{Kind: EvKill, Actor: k.Killer, Target: k.Victim})
			}
		}
		for pid, at := range cfg.ForfeitAt {
			if at == tick {
				c.handle(Event{Kind: EvVoteForfeit, Actor: pid})
			}
		}

		if m.Phase() == match.PhaseEnding {
			break
		}
		c.step()
	}

	result.Winner = m.Winner()
	result.Reason = m.Reason
	result.Rounds = m.Round()
	result.TotalTicks = tick
	result.Totals = m.Totals()
	result.RoundWins = c.roundWins
	for _, t := range result.Totals {
		result.Balances[t.PlayerID] = t.Balance
	}
	return result
}

// QuickSimConfig is a ready 2v2 setup with short phases, handy for tests and
// Monte Carlo sweeps.
func QuickSimConfig(seed int64) SimConfig {
	cfg := match.DefaultConfig()
	cfg.PrepTime = 3 * time.Second
	cfg.CombatTime = 30 * time.Second
	return SimConfig{
		Cfg:  cfg,
		Red:  []int64{1, 2},
		Blue: []int64{3, 4},
		Seed: seed,
	}
}

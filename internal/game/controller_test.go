package game

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/Psikuvit/cashclash/internal/match"
)

func forceController(t *testing.T) *Controller {
	t.Helper()
	cfg := match.DefaultConfig()
	cfg.EventChance = 0
	m := match.New("force-test", cfg)
	for _, id := range []int64{1, 2} {
		team := match.TeamRed
		if id > 1 {
			team = match.TeamBlue
		}
		if _, err := m.AddPlayer(id, team); err != nil {
			t.Fatalf("add player %d: %v", id, err)
		}
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewController(m, logger, nil, WithRNG(rand.New(rand.NewSource(1))))
}

// drive pushes one event through the loop's dispatcher and returns its verdict.
func drive(c *Controller, ev Event) error {
	ev.resp = make(chan error, 1)
	c.handle(ev)
	return <-ev.resp
}

func TestForceControlsRejectedBeforeStart(t *testing.T) {
	c := forceController(t)

	if err := drive(c, Event{Kind: EvForcePhase}); err != ErrNotStarted {
		t.Fatalf("force phase in waiting: %v", err)
	}
	if err := drive(c, Event{Kind: EvForceRound}); err != ErrNotStarted {
		t.Fatalf("force round in waiting: %v", err)
	}
	if c.m.Phase() != match.PhaseWaiting {
		t.Fatalf("phase moved: %s", c.m.Phase())
	}
}

func TestForcePhaseSkipsTimers(t *testing.T) {
	c := forceController(t)

	if err := drive(c, Event{Kind: EvStart}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.m.Phase() != match.PhasePreparing {
		t.Fatalf("phase after start: %s", c.m.Phase())
	}

	// skip preparation without waiting out the countdown
	if err := drive(c, Event{Kind: EvForcePhase}); err != nil {
		t.Fatalf("force phase from preparing: %v", err)
	}
	if c.m.Phase() != match.PhaseCombat || c.m.Round() != 1 {
		t.Fatalf("expected combat round 1, got %s round %d", c.m.Phase(), c.m.Round())
	}

	// skip combat; even alive counts decide nobody, round 2 opens
	if err := drive(c, Event{Kind: EvForcePhase}); err != nil {
		t.Fatalf("force phase from combat: %v", err)
	}
	if c.m.Phase() != match.PhasePreparing || c.m.Round() != 2 {
		t.Fatalf("expected preparing round 2, got %s round %d", c.m.Phase(), c.m.Round())
	}
	if c.roundWins[match.TeamRed] != 0 || c.roundWins[match.TeamBlue] != 0 {
		t.Fatal("an undecided forced round must not count as a win")
	}
}

// Closing a round from its preparation phase runs the end-of-round tallies
// before any combat bookkeeping for that round exists.
func TestForceRoundDuringPreparation(t *testing.T) {
	c := forceController(t)

	if err := drive(c, Event{Kind: EvStart}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := drive(c, Event{Kind: EvForceRound}); err != nil {
		t.Fatalf("force round from preparing: %v", err)
	}
	if c.m.Phase() != match.PhasePreparing || c.m.Round() != 2 {
		t.Fatalf("expected preparing round 2, got %s round %d", c.m.Phase(), c.m.Round())
	}

	// nobody scored, so no tally bonus can have paid out
	sub := c.cfg.Subsidies[0] + c.cfg.Subsidies[1]
	for _, id := range c.m.PlayerIDs() {
		if bal, _ := c.m.Balance(id); bal != sub {
			t.Fatalf("player %d balance %d, want subsidies only %d", id, bal, sub)
		}
	}
}

func TestRepeatedForceRoundEndsMatchExactlyOnce(t *testing.T) {
	c := forceController(t)

	if err := drive(c, Event{Kind: EvStart}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < c.cfg.Rounds; i++ {
		if err := drive(c, Event{Kind: EvForceRound}); err != nil {
			t.Fatalf("force round %d: %v", i+1, err)
		}
	}
	if c.m.Phase() != match.PhaseEnding {
		t.Fatalf("phase after exhausting rounds: %s", c.m.Phase())
	}
	if c.m.Round() != c.cfg.Rounds {
		t.Fatalf("round advanced past the bound: %d", c.m.Round())
	}
	if c.m.Reason != match.EndRoundsExhausted {
		t.Fatalf("end reason: %s", c.m.Reason)
	}
	ended := *c.m.EndedAt

	// one more force must be a rejected no-op, not a second ending
	if err := drive(c, Event{Kind: EvForceRound}); err != ErrMatchOver {
		t.Fatalf("force round after end: %v", err)
	}
	if err := drive(c, Event{Kind: EvForcePhase}); err != ErrMatchOver {
		t.Fatalf("force phase after end: %v", err)
	}
	if !c.m.EndedAt.Equal(ended) {
		t.Fatal("repeated force moved the end timestamp")
	}
}

package bonus

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/match"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func newTracker(t *testing.T) (*Tracker, *match.Match) {
	t.Helper()
	m := match.New("m1", match.DefaultConfig())
	for _, id := range []int64{1, 2, 3, 4} {
		team := match.TeamRed
		if id > 2 {
			team = match.TeamBlue
		}
		if _, err := m.AddPlayer(id, team); err != nil {
			t.Fatalf("add player %d: %v", id, err)
		}
	}
	m.BeginRound(1)
	m.SetPhase(match.PhaseCombat)

	eco := economy.NewEngine(m, testLogger, nil)
	tr := NewTracker(m.Cfg, eco, testLogger)
	tr.BeginRound(1, m.PlayerIDs())
	return tr, m
}

func kill(m *match.Match, killer, victim int64) match.KillOutcome {
	out, _ := m.RecordKill(killer, victim)
	return out
}

func hasKind(awards []Award, k Kind) bool {
	for _, a := range awards {
		if a.Kind == k {
			return true
		}
	}
	return false
}

func TestFirstBloodOncePerRound(t *testing.T) {
	tr, m := newTracker(t)

	awards := tr.OnKill(kill(m, 1, 3), 10*time.Second)
	if !hasKind(awards, FirstBlood) {
		t.Fatal("opening kill should grant first blood")
	}
	if bal, _ := m.Balance(1); bal != m.Cfg.FirstBloodReward {
		t.Fatalf("first blood credit: %d", bal)
	}

	awards = tr.OnKill(kill(m, 2, 3), 12*time.Second)
	if hasKind(awards, FirstBlood) {
		t.Fatal("first blood is single-shot per round")
	}
}

func TestRampageMilestones(t *testing.T) {
	tr, m := newTracker(t)

	var rampages int
	for i := 0; i < 6; i++ {
		victim := int64(3)
		if i%2 == 1 {
			victim = 4
		}
		awards := tr.OnKill(kill(m, 1, victim), time.Duration(i)*time.Second)
		if hasKind(awards, Rampage) {
			rampages++
		}
	}
	// streak hits 3 and 6: two distinct milestones
	if rampages != 2 {
		t.Fatalf("want 2 rampage awards from a 6 streak, got %d", rampages)
	}
}

func TestComebackForFirstDeath(t *testing.T) {
	tr, m := newTracker(t)

	tr.OnKill(kill(m, 1, 3), time.Second) // player 3 is the round's first death
	tr.OnKill(kill(m, 3, 1), 2*time.Second)
	awards := tr.OnKill(kill(m, 3, 2), 3*time.Second) // second kill after falling first
	if !hasKind(awards, Comeback) {
		t.Fatal("first death reaching the comeback mark should be rewarded")
	}
}

func TestSurvivorWindow(t *testing.T) {
	tr, m := newTracker(t)

	if awards := tr.Tick(tr.cfg.SurvivorWindow - time.Second); len(awards) != 0 {
		t.Fatalf("window not yet elapsed, got %v", awards)
	}

	// player 3 dies mid-round; their window restarts
	tr.OnKill(kill(m, 1, 3), 60*time.Second)

	awards := tr.Tick(tr.cfg.SurvivorWindow)
	granted := make(map[int64]bool)
	for _, a := range awards {
		if a.Kind != Survivor {
			t.Fatalf("unexpected kind %s", a.Kind)
		}
		granted[a.PlayerID] = true
	}
	if !granted[1] || !granted[2] || !granted[4] {
		t.Fatalf("undamaged players should collect survivor: %v", granted)
	}
	if granted[3] {
		t.Fatal("a death restarts the survivor window")
	}

	// second tick past the window must not double-pay
	if awards := tr.Tick(tr.cfg.SurvivorWindow + time.Second); len(awards) != 0 {
		t.Fatalf("survivor is once per round, got %v", awards)
	}
}

func TestCloseCallHold(t *testing.T) {
	tr, _ := newTracker(t)

	tr.OnHealth(1, 15, 10*time.Second) // dip to critical
	tr.OnHealth(1, 45, 20*time.Second) // recover

	if awards := tr.Tick(25 * time.Second); hasKind(awards, CloseCall) {
		t.Fatal("hold not yet satisfied")
	}
	awards := tr.Tick(30 * time.Second)
	if !hasKind(awards, CloseCall) {
		t.Fatalf("10s hold after recovery should pay close call, got %v", awards)
	}
}

func TestCloseCallRestartsOnRedip(t *testing.T) {
	tr, _ := newTracker(t)

	tr.OnHealth(1, 10, 10*time.Second)
	tr.OnHealth(1, 50, 20*time.Second)
	tr.OnHealth(1, 18, 25*time.Second) // re-dip before the hold completes
	if awards := tr.Tick(31 * time.Second); hasKind(awards, CloseCall) {
		t.Fatal("re-dip must restart the hold window")
	}
	tr.OnHealth(1, 60, 35*time.Second)
	if awards := tr.Tick(45 * time.Second); !hasKind(awards, CloseCall) {
		t.Fatal("fresh recovery plus hold should pay")
	}
}

func TestCloseCallCancelledByDeath(t *testing.T) {
	tr, m := newTracker(t)

	tr.OnHealth(3, 12, 10*time.Second)
	tr.OnHealth(3, 55, 15*time.Second)
	tr.OnKill(kill(m, 1, 3), 20*time.Second) // death wipes the recovery
	if awards := tr.Tick(40 * time.Second); hasKind(awards, CloseCall) {
		t.Fatal("death before the hold completes cancels close call")
	}
}

func TestEndOfRoundTalliesAndTies(t *testing.T) {
	tr, _ := newTracker(t)

	results := []match.RoundResult{
		{PlayerID: 1, Kills: 3, Damage: 900, Alive: true, Spend: 0},
		{PlayerID: 2, Kills: 1, Damage: 400, Alive: true, Spend: 800},
		{PlayerID: 3, Kills: 1, Damage: 900, Alive: false, Spend: 200},
		{PlayerID: 4, Kills: 0, Damage: 100, Alive: false, Spend: 0},
	}
	awards := tr.EndOfRound(results)

	if !hasKind(awards, MostKills) {
		t.Fatal("player 1 leads kills outright")
	}
	if hasKind(awards, MostDamage) {
		t.Fatal("damage tie between 1 and 3 awards nothing")
	}
	if hasKind(awards, Underdog) {
		t.Fatal("nobody reached the underdog kill mark")
	}
}

func TestUnderdogLowestSpend(t *testing.T) {
	tr, _ := newTracker(t)

	results := []match.RoundResult{
		{PlayerID: 1, Kills: 5, Damage: 900, Alive: true, Spend: 1200},
		{PlayerID: 2, Kills: 4, Damage: 700, Alive: true, Spend: 100},
		{PlayerID: 3, Kills: 2, Damage: 300, Alive: false, Spend: 0},
	}
	awards := tr.EndOfRound(results)

	found := false
	for _, a := range awards {
		if a.Kind == Underdog {
			found = true
			if a.PlayerID != 2 {
				t.Fatalf("underdog goes to the qualifying low spender, got %d", a.PlayerID)
			}
		}
	}
	if !found {
		t.Fatal("player 2 qualifies for underdog")
	}
}

func TestBeginRoundWipesAwards(t *testing.T) {
	tr, m := newTracker(t)

	tr.OnKill(kill(m, 1, 3), time.Second)

	m.EndRound()
	m.BeginRound(2)
	m.SetPhase(match.PhaseCombat)
	tr.BeginRound(2, m.PlayerIDs())

	awards := tr.OnKill(kill(m, 2, 4), time.Second)
	if !hasKind(awards, FirstBlood) {
		t.Fatal("new round has its own first blood")
	}
}

func TestAwardsBeforeBeginRound(t *testing.T) {
	m := match.New("m2", match.DefaultConfig())
	for _, id := range []int64{1, 2, 3, 4} {
		team := match.TeamRed
		if id > 2 {
			team = match.TeamBlue
		}
		if _, err := m.AddPlayer(id, team); err != nil {
			t.Fatalf("add player %d: %v", id, err)
		}
	}
	m.BeginRound(1)
	m.SetPhase(match.PhaseCombat)

	// a fresh tracker that never saw BeginRound still grants safely
	eco := economy.NewEngine(m, testLogger, nil)
	tr := NewTracker(m.Cfg, eco, testLogger)

	awards := tr.OnKill(kill(m, 1, 3), time.Second)
	if !hasKind(awards, FirstBlood) {
		t.Fatal("first blood should pay out")
	}

	m.EndRound()
	if !hasKind(tr.EndOfRound(m.RoundResults()), MostKills) {
		t.Fatal("most kills should pay out")
	}
}

package game

import (
	"testing"
	"time"

	"github.com/Psikuvit/cashclash/internal/match"
)

// helper: schedule kills on every tick in [from, to]
func killsEvery(from, to int, kills ...SimKill) map[int][]SimKill {
	m := make(map[int][]SimKill)
	for tick := from; tick <= to; tick++ {
		m[tick] = append([]SimKill{}, kills...)
	}
	return m
}

// ---------------------------------------------------------------------------
// 1. Round structure
// ---------------------------------------------------------------------------

func TestMatchRunsExactlyConfiguredRounds(t *testing.T) {
	sim := QuickSimConfig(1)
	result := RunSimulation(sim)

	if result.Reason != match.EndRoundsExhausted {
		t.Fatalf("idle match should run out its rounds, got %s", result.Reason)
	}
	if result.Rounds != sim.Cfg.Rounds {
		t.Fatalf("rounds played: %d, want %d", result.Rounds, sim.Cfg.Rounds)
	}
}

func TestDominantTeamWinsTheMatch(t *testing.T) {
	sim := QuickSimConfig(2)
	// red player 1 grinds down both blue players all match long; kills
	// outside combat are no-ops so one schedule covers every round
	sim.KillSchedule = killsEvery(1, 400,
		SimKill{Killer: 1, Victim: 3},
		SimKill{Killer: 1, Victim: 4},
	)
	result := RunSimulation(sim)

	if result.Winner != match.TeamRed {
		t.Fatalf("red wins every round, got %s", result.Winner)
	}
	if result.Reason != match.EndRoundsExhausted {
		t.Fatalf("reason: %s", result.Reason)
	}
	if result.RoundWins[match.TeamRed] != sim.Cfg.Rounds {
		t.Fatalf("red round wins: %d", result.RoundWins[match.TeamRed])
	}
}

// ---------------------------------------------------------------------------
// 2. Economy flows through a full match
// ---------------------------------------------------------------------------

func TestLateRoundKillStealsInsteadOfRewarding(t *testing.T) {
	sim := QuickSimConfig(3)
	sim.Cfg.EventChance = 0 // isolate the ledgers from random events

	// rounds 1-3 idle; a single kill lands mid round 4
	roundLen := int((sim.Cfg.PrepTime + sim.Cfg.CombatTime) / time.Second)
	prepTicks := int(sim.Cfg.PrepTime / time.Second)
	round4Kill := 3*roundLen + prepTicks + 2
	sim.KillSchedule = map[int][]SimKill{
		round4Kill: {{Killer: 1, Victim: 3}},
	}
	result := RunSimulation(sim)

	// Everyone collected subsidies 500+750+1000+1250 = 3500; the round 5
	// top-up adds nothing above the floor. The kill moves 20% of the
	// victim's 3500 and pays first blood plus the kill-lead bonus.
	base := int64(3500)
	stolen := base * int64(sim.Cfg.StealPct) / 100
	wantKiller := base + stolen + sim.Cfg.FirstBloodReward + sim.Cfg.MostKillsReward

	if result.Balances[3] != base-stolen {
		t.Errorf("victim balance: %d, want %d", result.Balances[3], base-stolen)
	}
	if result.Balances[1] != wantKiller {
		t.Errorf("killer balance: %d, want %d", result.Balances[1], wantKiller)
	}
	if result.Balances[2] != base || result.Balances[4] != base {
		t.Errorf("bystanders should hold exactly their subsidies: %d / %d", result.Balances[2], result.Balances[4])
	}
}

func TestForfeitEndsMatchAndForcesInvestmentLoss(t *testing.T) {
	sim := QuickSimConfig(4)
	sim.Cfg.EventChance = 0
	sim.InvestAt = map[int64]int{1: 1} // invest the whole round 1 subsidy
	sim.ForfeitAt = map[int64]int{1: 10, 2: 10, 3: 10}
	result := RunSimulation(sim)

	if result.Reason != match.EndForfeit {
		t.Fatalf("3 of 4 votes is a strict majority, got %s", result.Reason)
	}
	if result.Winner != match.TeamNone {
		t.Fatalf("forfeit has no winner, got %s", result.Winner)
	}
	// subsidy 500, investment cost 500, forced loss 250: the investor ends
	// below zero — the one sanctioned negative balance
	if result.Balances[1] != -sim.Cfg.InvestLoss {
		t.Fatalf("investor balance after forfeit: %d, want %d", result.Balances[1], -sim.Cfg.InvestLoss)
	}
	if result.Balances[2] != 500 {
		t.Fatalf("non-investor keeps the subsidy, got %d", result.Balances[2])
	}
}

func TestInvestmentPaysSurvivors(t *testing.T) {
	sim := QuickSimConfig(5)
	sim.Cfg.EventChance = 0
	sim.InvestAt = map[int64]int{2: 1}
	result := RunSimulation(sim)

	// 3500 in subsidies, minus 500 invested, plus the 900 payout; the round
	// 5 top-up then adds nothing
	want := int64(3500) - sim.Cfg.InvestmentCost + sim.Cfg.InvestPayout
	if result.Balances[2] != want {
		t.Fatalf("surviving investor: %d, want %d", result.Balances[2], want)
	}
}

// ---------------------------------------------------------------------------
// 3. Determinism
// ---------------------------------------------------------------------------

func TestSameSeedSameMatch(t *testing.T) {
	build := func() SimConfig {
		sim := QuickSimConfig(42)
		sim.KillSchedule = killsEvery(20, 60, SimKill{Killer: 3, Victim: 2})
		return sim
	}

	a := RunSimulation(build())
	b := RunSimulation(build())

	if a.Winner != b.Winner || a.Reason != b.Reason || a.TotalTicks != b.TotalTicks {
		t.Fatalf("same seed diverged: %+v vs %+v", a, b)
	}
	for pid, bal := range a.Balances {
		if b.Balances[pid] != bal {
			t.Fatalf("player %d balance diverged: %d vs %d", pid, bal, b.Balances[pid])
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Purchases and transfers inside phase windows
// ---------------------------------------------------------------------------

func TestPurchaseOnlyDuringPreparation(t *testing.T) {
	sim := QuickSimConfig(6)
	sim.Cfg.EventChance = 0
	prepTicks := int(sim.Cfg.PrepTime / time.Second)
	sim.PurchaseSchedule = map[int]map[int64]string{
		1:             {1: "tonic"}, // prep: lands
		prepTicks + 2: {2: "tonic"}, // combat: rejected
	}
	result := RunSimulation(sim)

	if result.Balances[1] != 3500-150 {
		t.Fatalf("prep purchase should debit the tonic, balance %d", result.Balances[1])
	}
	if result.Balances[2] != 3500 {
		t.Fatalf("combat purchase must be rejected, balance %d", result.Balances[2])
	}
}

func TestTransferAppliesRoundFee(t *testing.T) {
	sim := QuickSimConfig(7)
	sim.Cfg.EventChance = 0
	sim.TransferSchedule = map[int][]SimTransfer{
		2: {{Sender: 1, Receiver: 2, Amount: 200}}, // round 1: 5% fee
	}
	result := RunSimulation(sim)

	if result.Balances[1] != 3500-200 {
		t.Fatalf("sender pays the gross: %d", result.Balances[1])
	}
	if result.Balances[2] != 3500+190 {
		t.Fatalf("receiver gets the net after 5%% fee: %d", result.Balances[2])
	}
}

package match

import (
	"testing"
	"time"
)

// helper: a match in combat for round with two players per team
func combatMatch(t *testing.T, round int) *Match {
	t.Helper()
	m := New("m1", DefaultConfig())
	for _, p := range []struct {
		id   int64
		team Team
	}{{1, TeamRed}, {2, TeamRed}, {3, TeamBlue}, {4, TeamBlue}} {
		if _, err := m.AddPlayer(p.id, p.team); err != nil {
			t.Fatalf("add player %d: %v", p.id, err)
		}
	}
	for r := 1; r <= round; r++ {
		m.BeginRound(r)
	}
	m.SetPhase(PhaseCombat)
	return m
}

func TestAddPlayerBalancesTeams(t *testing.T) {
	m := New("m1", DefaultConfig())
	teams := make(map[Team]int)
	for id := int64(1); id <= 6; id++ {
		team, err := m.AddPlayer(id, TeamNone)
		if err != nil {
			t.Fatalf("add player %d: %v", id, err)
		}
		teams[team]++
	}
	if teams[TeamRed] != 3 || teams[TeamBlue] != 3 {
		t.Fatalf("auto-assign should balance: red=%d blue=%d", teams[TeamRed], teams[TeamBlue])
	}
}

func TestAddPlayerRejectsDuplicatesAndLateJoins(t *testing.T) {
	m := combatMatch(t, 1)
	if _, err := m.AddPlayer(1, TeamRed); err != ErrWrongPhase {
		t.Fatalf("joining mid-match should fail with ErrWrongPhase, got %v", err)
	}

	m2 := New("m2", DefaultConfig())
	m2.AddPlayer(1, TeamRed)
	if _, err := m2.AddPlayer(1, TeamBlue); err != ErrAlreadyJoined {
		t.Fatalf("double join should fail with ErrAlreadyJoined, got %v", err)
	}
}

func TestDebitNeverGoesNegative(t *testing.T) {
	m := combatMatch(t, 1)
	m.Credit(1, 100)
	if err := m.Debit(1, 150); err != ErrInsufficientFunds {
		t.Fatalf("overdraft should fail, got %v", err)
	}
	if bal, _ := m.Balance(1); bal != 100 {
		t.Fatalf("failed debit must not move the balance, got %d", bal)
	}
}

func TestTransferAtomicity(t *testing.T) {
	m := combatMatch(t, 1)
	m.Credit(1, 500)

	// sender cannot cover: nothing moves
	if err := m.Transfer(1, 3, 600, 570); err != ErrInsufficientFunds {
		t.Fatalf("uncovered transfer should fail, got %v", err)
	}
	b1, _ := m.Balance(1)
	b3, _ := m.Balance(3)
	if b1 != 500 || b3 != 0 {
		t.Fatalf("failed transfer leaked: sender=%d receiver=%d", b1, b3)
	}

	// covered: sender loses the gross, receiver gains the net
	if err := m.Transfer(1, 3, 400, 380); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	b1, _ = m.Balance(1)
	b3, _ = m.Balance(3)
	if b1 != 100 || b3 != 380 {
		t.Fatalf("transfer arithmetic wrong: sender=%d receiver=%d", b1, b3)
	}
}

func TestRecordKillOutcome(t *testing.T) {
	m := combatMatch(t, 1)

	out, ok := m.RecordKill(1, 3)
	if !ok {
		t.Fatal("first kill should register")
	}
	if !out.FirstBlood {
		t.Error("first kill of the round is first blood")
	}
	if out.KillerKills != 1 || out.KillerStreak != 1 {
		t.Errorf("killer tallies: kills=%d streak=%d", out.KillerKills, out.KillerStreak)
	}
	if out.Eliminated || out.VictimLives != 2 {
		t.Errorf("victim should lose one of three lives, got eliminated=%v lives=%d", out.Eliminated, out.VictimLives)
	}

	// grind victim 3 down to elimination
	m.RecordKill(1, 3)
	out, _ = m.RecordKill(1, 3)
	if !out.Eliminated || out.VictimLives != 0 {
		t.Fatalf("third death should eliminate, got eliminated=%v lives=%d", out.Eliminated, out.VictimLives)
	}
	if out.FirstBlood {
		t.Error("first blood must be set once")
	}

	// kills against an eliminated victim are stale
	if _, ok := m.RecordKill(1, 3); ok {
		t.Error("kill on an eliminated victim should not register")
	}
}

func TestWinningTeamRequiresFullElimination(t *testing.T) {
	m := combatMatch(t, 1)

	if _, ok := m.WinningTeam(); ok {
		t.Fatal("no winner while both teams stand")
	}
	for i := 0; i < 3; i++ {
		m.RecordKill(1, 3)
	}
	if _, ok := m.WinningTeam(); ok {
		t.Fatal("no winner while blue still has player 4")
	}
	for i := 0; i < 3; i++ {
		m.RecordKill(1, 4)
	}
	winner, ok := m.WinningTeam()
	if !ok || winner != TeamRed {
		t.Fatalf("red should win after eliminating blue, got %v ok=%v", winner, ok)
	}
}

func TestLifestealRestoresLife(t *testing.T) {
	m := combatMatch(t, 1)
	m.RecordKill(3, 1) // killer 3 drops to full streak, victim 1 at 2 lives
	m.SetLifesteal(true)
	out, _ := m.RecordKill(1, 3) // player 1 is below max lives, kill restores one
	if !out.LifestealUp {
		t.Fatal("kill during lifesteal window should restore a life")
	}
}

func TestSubsidyTopUp(t *testing.T) {
	m := combatMatch(t, 1)
	m.Credit(1, 1200)
	m.Credit(2, 2000)

	// flat grant ignores floor
	if got := m.SubsidyTopUp(3, 500, 1500, false); got != 500 {
		t.Fatalf("flat grant: got %d", got)
	}
	// top-up fills only the shortfall
	if got := m.SubsidyTopUp(1, 1500, 1500, true); got != 300 {
		t.Fatalf("top-up shortfall: got %d, want 300", got)
	}
	// already above floor: nothing
	if got := m.SubsidyTopUp(2, 1500, 1500, true); got != 0 {
		t.Fatalf("above floor should get nothing, got %d", got)
	}
}

func TestStealClampsAtVictimBalance(t *testing.T) {
	m := combatMatch(t, 1)
	m.Credit(3, 100)
	stolen := m.Steal(3, 1, func(balance int64) int64 { return balance + 500 })
	if stolen != 100 {
		t.Fatalf("steal should clamp at victim balance, got %d", stolen)
	}
	if b, _ := m.Balance(3); b != 0 {
		t.Fatalf("victim balance after clamped steal: %d", b)
	}
}

func TestInvestmentLifecycle(t *testing.T) {
	inv := Investment{Cost: 500, Payout: 900, Loss: 250}

	t.Run("survivor collects payout", func(t *testing.T) {
		m := combatMatch(t, 1)
		m.Credit(1, 600)
		if err := m.PlaceInvestment(1, inv); err != nil {
			t.Fatalf("place: %v", err)
		}
		if err := m.PlaceInvestment(1, inv); err != ErrHasInvestment {
			t.Fatalf("double invest should fail, got %v", err)
		}
		delta, had := m.ResolveInvestment(1, true, false)
		if !had || delta != 900 {
			t.Fatalf("survivor payout: delta=%d had=%v", delta, had)
		}
		if b, _ := m.Balance(1); b != 1000 {
			t.Fatalf("balance after payout: %d, want 1000", b)
		}
	})

	t.Run("death loss clamps at balance", func(t *testing.T) {
		m := combatMatch(t, 1)
		m.Credit(1, 600)
		m.PlaceInvestment(1, inv) // balance now 100
		delta, _ := m.ResolveInvestment(1, false, false)
		if delta != -100 {
			t.Fatalf("loss should clamp at remaining balance, got %d", delta)
		}
		if b, _ := m.Balance(1); b != 0 {
			t.Fatalf("balance should bottom out at zero, got %d", b)
		}
	})

	t.Run("forfeit loss may go negative", func(t *testing.T) {
		m := combatMatch(t, 1)
		m.Credit(1, 600)
		m.PlaceInvestment(1, inv) // balance now 100
		delta, _ := m.ResolveInvestment(1, false, true)
		if delta != -250 {
			t.Fatalf("forfeit applies full loss, got %d", delta)
		}
		if b, _ := m.Balance(1); b != -150 {
			t.Fatalf("forfeit is the one sanctioned negative balance, got %d", b)
		}
	})

	t.Run("cannot afford", func(t *testing.T) {
		m := combatMatch(t, 1)
		if err := m.PlaceInvestment(1, inv); err != ErrInsufficientFunds {
			t.Fatalf("broke invest should fail, got %v", err)
		}
	})
}

func TestVoteForfeitStrictMajority(t *testing.T) {
	m := combatMatch(t, 1)

	counted, reached := m.VoteForfeit(1)
	if !counted || reached {
		t.Fatalf("1/4 votes: counted=%v reached=%v", counted, reached)
	}
	// duplicate vote is not counted again
	counted, reached = m.VoteForfeit(1)
	if counted || reached {
		t.Fatalf("duplicate vote: counted=%v reached=%v", counted, reached)
	}
	if _, reached = m.VoteForfeit(2); reached {
		t.Fatal("2/4 is not a strict majority")
	}
	if _, reached = m.VoteForfeit(3); !reached {
		t.Fatal("3/4 is a strict majority")
	}
}

func TestPayOrLoseItem(t *testing.T) {
	m := combatMatch(t, 1)
	m.Credit(1, 1000)
	m.Purchase(1, "blade", 400)
	m.GrantItem(3, "tonic", 0) // player 3 has no money

	losses := m.PayOrLoseItem(150)
	if len(losses) != 2 {
		t.Fatalf("both item owners must resolve, got %d", len(losses))
	}
	for _, l := range losses {
		switch l.PlayerID {
		case 1:
			if !l.Paid {
				t.Error("player 1 can afford the ransom")
			}
		case 3:
			if l.Paid || l.Item != "tonic" {
				t.Errorf("player 3 should lose the tonic, got %+v", l)
			}
		}
	}
}

func TestRemovePlayerEnablesWin(t *testing.T) {
	m := combatMatch(t, 1)
	m.RemovePlayer(3)
	m.RemovePlayer(4)
	winner, ok := m.WinningTeam()
	if !ok || winner != TeamRed {
		t.Fatalf("red wins after all of blue leaves, got %v ok=%v", winner, ok)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	m := combatMatch(t, 1)
	if !m.End(EndForfeit, TeamNone) {
		t.Fatal("first End should apply")
	}
	if m.End(EndForced, TeamBlue) {
		t.Fatal("second End must be a no-op")
	}
	if m.Reason != EndForfeit {
		t.Fatalf("reason overwritten: %s", m.Reason)
	}
}

func TestBeginRoundResetsLivesAndStreaks(t *testing.T) {
	m := combatMatch(t, 1)
	m.RecordKill(1, 3)
	m.RecordKill(1, 3)
	m.RecordKill(1, 3) // eliminate 3

	m.EndRound()
	m.BeginRound(2)
	m.SetPhase(PhaseCombat)

	if m.AliveCount(TeamBlue) != 2 {
		t.Fatalf("new round revives eliminated players, alive=%d", m.AliveCount(TeamBlue))
	}
	snap, _ := m.LedgerView(1)
	if snap.KillStreak != 0 || snap.Lives != 3 {
		t.Fatalf("streaks and lives reset on round start: %+v", snap)
	}
	if m.RoundKills(1) != 0 {
		t.Fatal("round kill tally starts at zero")
	}
}

func TestRecordDamageStampsLastDamage(t *testing.T) {
	m := combatMatch(t, 1)
	at := time.Now()
	if !m.RecordDamage(1, 3, 40, at) {
		t.Fatal("damage in combat should register")
	}
	results := m.RoundResults()
	for _, r := range results {
		if r.PlayerID == 1 && r.Damage != 40 {
			t.Fatalf("attacker damage tally: %d", r.Damage)
		}
	}
	m.SetPhase(PhasePreparing)
	if m.RecordDamage(1, 3, 40, at) {
		t.Fatal("damage outside combat should not register")
	}
}

package economy

import (
	"testing"

	"github.com/Psikuvit/cashclash/internal/match"
)

var cfg = match.DefaultConfig()

func TestRoundSubsidy(t *testing.T) {
	cases := []struct {
		round int
		want  int64
		topUp bool
	}{
		{1, 500, false},
		{2, 750, false},
		{3, 1000, false},
		{4, 1250, false},
		{5, 1500, true},
		{0, 0, false},
		{6, 0, false},
	}
	for _, c := range cases {
		got, topUp := RoundSubsidy(cfg, c.round)
		if got != c.want || topUp != c.topUp {
			t.Errorf("round %d: got (%d, %v), want (%d, %v)", c.round, got, topUp, c.want, c.topUp)
		}
	}
}

func TestKillReward(t *testing.T) {
	cases := []struct {
		round       int
		killsBefore int
		want        int64
	}{
		{1, 0, 300},
		{1, 5, 300}, // round 1 pays flat regardless of streak
		{2, 0, 400},
		{2, 1, 250},
		{2, 2, 150},
		{2, 7, 150}, // past the last tier stays at the last tier
		{3, 0, 400},
		{4, 0, 0}, // late rounds pay via theft, not direct rewards
		{5, 3, 0},
	}
	for _, c := range cases {
		if got := KillReward(cfg, c.round, c.killsBefore); got != c.want {
			t.Errorf("round %d kills %d: got %d, want %d", c.round, c.killsBefore, got, c.want)
		}
	}
}

func TestStealsEnabled(t *testing.T) {
	for round := 1; round <= 5; round++ {
		want := round >= 4
		if got := StealsEnabled(cfg, round); got != want {
			t.Errorf("round %d: got %v, want %v", round, got, want)
		}
	}
}

func TestStealAmount(t *testing.T) {
	cases := []struct {
		balance int64
		want    int64
	}{
		{10000, 2000},
		{1000, 200},
		{5, 1},
		{4, 0}, // integer floor
		{0, 0},
		{-50, 0},
	}
	for _, c := range cases {
		if got := StealAmount(cfg, c.balance); got != c.want {
			t.Errorf("balance %d: got %d, want %d", c.balance, got, c.want)
		}
	}
}

func TestTransferNet(t *testing.T) {
	cases := []struct {
		round  int
		amount int64
		want   int64
	}{
		{1, 1000, 950},  // 5% fee
		{2, 1000, 900},  // 10% fee
		{3, 1000, 900},
		{4, 1000, 800},  // 20% fee
		{5, 1000, 800},
		{5, 7, 5}, // floor of 7*80/100
	}
	for _, c := range cases {
		if got := TransferNet(cfg, c.round, c.amount); got != c.want {
			t.Errorf("round %d amount %d: got %d, want %d", c.round, c.amount, got, c.want)
		}
	}
}

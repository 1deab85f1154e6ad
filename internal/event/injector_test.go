package event

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/match"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func setup(t *testing.T, cfg match.Config) (*match.Match, *economy.Engine) {
	t.Helper()
	m := match.New("m1", cfg)
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
	return m, economy.NewEngine(m, testLogger, nil)
}

func TestPollNeverFiresAtZeroChance(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.EventChance = 0
	m, eco := setup(t, cfg)

	in := NewInjector(cfg, rand.New(rand.NewSource(1)), testLogger)
	in.BeginRound()
	for i := 0; i < 100; i++ {
		if out := in.Poll(m, eco, 1); out != nil {
			t.Fatalf("zero chance fired %q", out.Kind)
		}
	}
}

func TestPollHonorsRoundCap(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.EventChance = 1.0 // fire on every poll
	m, eco := setup(t, cfg)

	in := NewInjector(cfg, rand.New(rand.NewSource(7)), testLogger)
	in.BeginRound()
	fired := 0
	for i := 0; i < 10; i++ {
		if in.Poll(m, eco, 1) != nil {
			fired++
		}
	}
	if fired != cfg.EventsPerRound {
		t.Fatalf("round cap: fired %d, cap %d", fired, cfg.EventsPerRound)
	}
}

func TestPollHonorsMatchCap(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.EventChance = 1.0
	m, eco := setup(t, cfg)

	in := NewInjector(cfg, rand.New(rand.NewSource(7)), testLogger)
	total := 0
	for round := 1; round <= cfg.Rounds; round++ {
		in.BeginRound()
		for i := 0; i < 10; i++ {
			if in.Poll(m, eco, round) != nil {
				total++
			}
		}
	}
	if total != cfg.EventsPerMatch {
		t.Fatalf("match cap: fired %d, cap %d", total, cfg.EventsPerMatch)
	}
}

func TestPollDeterministicWithSeed(t *testing.T) {
	cfg := match.DefaultConfig()

	run := func() []string {
		m, eco := setup(t, cfg)
		in := NewInjector(cfg, rand.New(rand.NewSource(99)), testLogger)
		in.BeginRound()
		var kinds []string
		for i := 0; i < 50; i++ {
			if out := in.Poll(m, eco, 1); out != nil {
				kinds = append(kinds, out.Kind)
			}
		}
		return kinds
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("same seed, different event counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed, different events at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestFiredEventComesFromCatalog(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.EventChance = 1.0
	m, eco := setup(t, cfg)

	in := NewInjector(cfg, rand.New(rand.NewSource(3)), testLogger)
	in.BeginRound()
	out := in.Poll(m, eco, 1)
	if out == nil {
		t.Fatal("guaranteed poll should fire")
	}
	for _, d := range Catalog {
		if d.Kind == out.Kind {
			return
		}
	}
	t.Fatalf("fired event %q is not in the catalog", out.Kind)
}

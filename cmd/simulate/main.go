package main

import (
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Psikuvit/cashclash/internal/game"
	"github.com/Psikuvit/cashclash/internal/match"
)

const totalMatches = 20_000

// archetype distribution across the four seats of a 2v2
type Archetype int

const (
	Brawler Archetype = iota // fights early and often
	Sniper                   // few kills, well timed
	Hoarder                  // buys nothing, invests every round
	Gambler                  // spends everything, transfers freely
)

func (a Archetype) String() string {
	return [...]string{"Brawler", "Sniper", "Hoarder", "Gambler"}[a]
}

type matchResult struct {
	winner    match.Team
	reason    match.EndReason
	rounds    int
	ticks     int
	balances  [4]int64
	kills     [4]int
	wonSeats  [4]bool
	archetype [4]Archetype
}

func main() {
	start := time.Now()

	workers := runtime.GOMAXPROCS(0)
	results := make([]matchResult, totalMatches)

	var progress atomic.Int64
	var wg sync.WaitGroup

	chunkSize := totalMatches / workers
	for w := 0; w < workers; w++ {
		wg.Add(1)
		lo := w * chunkSize
		hi := lo + chunkSize
		if w == workers-1 {
			hi = totalMatches
		}
		go func(lo, hi int) {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(int64(lo)*7919 + 1))
			for i := lo; i < hi; i++ {
				results[i] = runMatch(localRng, int64(i))
				if n := progress.Add(1); n%(totalMatches/10) == 0 {
					fmt.Printf("  ... %d/%d matches (%.0f%%)\n", n, totalMatches, float64(n)/float64(totalMatches)*100)
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	printReport(results, time.Since(start))
}

// runMatch scripts one 2v2 from four random archetypes and replays it through
// the deterministic simulation.
func runMatch(rng *rand.Rand, seed int64) matchResult {
	cfg := game.QuickSimConfig(seed)

	var res matchResult
	players := [4]int64{1, 2, 3, 4}
	for i := range res.archetype {
		res.archetype[i] = Archetype(rng.Intn(4))
	}

	sim := cfg
	sim.KillSchedule = make(map[int][]game.SimKill)
	sim.PurchaseSchedule = make(map[int]map[int64]string)
	sim.InvestAt = make(map[int64]int)
	sim.TransferSchedule = make(map[int][]game.SimTransfer)

	prepTicks := int(cfg.Cfg.PrepTime / time.Second)
	combatTicks := int(cfg.Cfg.CombatTime / time.Second)
	roundLen := prepTicks + combatTicks

	for seat, pid := range players {
		arch := res.archetype[seat]
		enemy := players[(seat+2)%4] // opposite team seat

		for round := 0; round < cfg.Cfg.Rounds; round++ {
			base := round*roundLen + 1 // first prep tick of the round
			combatStart := base + prepTicks

			switch arch {
			case Brawler:
				// several kill attempts early in combat
				for k := 0; k < 2+rng.Intn(3); k++ {
					at := combatStart + 1 + rng.Intn(combatTicks/2)
					sim.KillSchedule[at] = append(sim.KillSchedule[at], game.SimKill{Killer: pid, Victim: enemy})
				}
			case Sniper:
				at := combatStart + combatTicks/2 + rng.Intn(combatTicks/3)
				sim.KillSchedule[at] = append(sim.KillSchedule[at], game.SimKill{Killer: pid, Victim: enemy})
			case Hoarder:
				if round == 0 {
					sim.InvestAt[pid] = base + 1
				}
			case Gambler:
				buyAt := base + 1
				if sim.PurchaseSchedule[buyAt] == nil {
					sim.PurchaseSchedule[buyAt] = make(map[int64]string)
				}
				sim.PurchaseSchedule[buyAt][pid] = "tonic"
				ally := players[(seat+1)%4]
				xferAt := base + 2
				sim.TransferSchedule[xferAt] = append(sim.TransferSchedule[xferAt],
					game.SimTransfer{Sender: pid, Receiver: ally, Amount: 100})
			}
		}
	}

	out := game.RunSimulation(sim)

	res.winner = out.Winner
	res.reason = out.Reason
	res.rounds = out.Rounds
	res.ticks = out.TotalTicks
	for seat, pid := range players {
		res.balances[seat] = out.Balances[pid]
		for _, t := range out.Totals {
			if t.PlayerID == pid {
				res.kills[seat] = t.Kills
				res.wonSeats[seat] = t.Won
			}
		}
	}
	return res
}

func printReport(results []matchResult, elapsed time.Duration) {
	var balances, killCounts, tickCounts []float64
	reasons := make(map[match.EndReason]int)
	winsByTeam := make(map[match.Team]int)
	winsByArch := make(map[Archetype]int)
	seatsByArch := make(map[Archetype]int)
	balByArch := make(map[Archetype]float64)

	for _, r := range results {
		reasons[r.reason]++
		winsByTeam[r.winner]++
		tickCounts = append(tickCounts, float64(r.ticks))
		for seat := 0; seat < 4; seat++ {
			balances = append(balances, float64(r.balances[seat]))
			killCounts = append(killCounts, float64(r.kills[seat]))
			arch := r.archetype[seat]
			seatsByArch[arch]++
			balByArch[arch] += float64(r.balances[seat])
			if r.wonSeats[seat] {
				winsByArch[arch]++
			}
		}
	}
	sort.Float64s(balances)
	sort.Float64s(killCounts)
	sort.Float64s(tickCounts)

	fmt.Println()
	fmt.Println("═══ MATCH SIMULATION REPORT ═══════════════════════════════════")
	fmt.Printf("  Matches: %d  |  Elapsed: %v  |  Workers: %d\n",
		totalMatches, elapsed.Round(time.Millisecond), runtime.GOMAXPROCS(0))

	fmt.Println()
	fmt.Println("─── OUTCOMES ──────────────────────────────────────────────────")
	for _, team := range []match.Team{match.TeamRed, match.TeamBlue, match.TeamNone} {
		n := winsByTeam[team]
		fmt.Printf("  %-6s wins: %7d  (%5.1f%%)\n", team.String(), n, float64(n)/float64(totalMatches)*100)
	}
	for reason, n := range reasons {
		fmt.Printf("  ended by %-18s %7d  (%5.1f%%)\n", reason, n, float64(n)/float64(totalMatches)*100)
	}
	fmt.Printf("  mean match length: %.0f ticks  (median %.0f)\n", mean(tickCounts), percentile(tickCounts, 50))

	fmt.Println()
	fmt.Println("─── ECONOMY ───────────────────────────────────────────────────")
	fmt.Printf("  Mean final balance:    %8.1f\n", mean(balances))
	fmt.Printf("  Median final balance:  %8.1f\n", percentile(balances, 50))
	fmt.Printf("  10th pctl balance:     %8.1f\n", percentile(balances, 10))
	fmt.Printf("  90th pctl balance:     %8.1f\n", percentile(balances, 90))
	fmt.Printf("  Mean kills/seat:       %8.2f\n", mean(killCounts))

	fmt.Println()
	fmt.Println("─── ARCHETYPES ────────────────────────────────────────────────")
	for _, a := range []Archetype{Brawler, Sniper, Hoarder, Gambler} {
		seats := seatsByArch[a]
		if seats == 0 {
			continue
		}
		fmt.Printf("  %-8s  seats: %7d  win rate: %5.1f%%  mean balance: %8.1f\n",
			a.String(), seats,
			float64(winsByArch[a])/float64(seats)*100,
			balByArch[a]/float64(seats))
	}

	fmt.Println()
	fmt.Println("─── DIAGNOSIS ─────────────────────────────────────────────────")
	noWinner := float64(winsByTeam[match.TeamNone]) / float64(totalMatches) * 100
	if noWinner > 30 {
		fmt.Printf("  !! %.1f%% of matches end without a winner — tune round rewards\n", noWinner)
	} else {
		fmt.Printf("  OK %.1f%% drawn matches\n", noWinner)
	}
	if mb := mean(balances); mb < 0 {
		fmt.Println("  !! mean final balance is negative — forfeit losses dominate")
	} else {
		fmt.Printf("  OK mean final balance %.0f\n", mean(balances))
	}
	fmt.Println()
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	t := 0.0
	for _, v := range s {
		t += v
	}
	return t / float64(len(s))
}

func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * pct / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

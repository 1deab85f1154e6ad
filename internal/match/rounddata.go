package match

import "time"

// RoundData is the per-round event ledger. It is mutated only while its
// round is live (under the match lock) and treated as read-only history
// once the round ends.
type RoundData struct {
	Round int

	Kills       map[int64]int
	Damage      map[int64]int64
	Alive       map[int64]bool
	LastDamage  map[int64]time.Time
	FirstBlood  int64 // set-once; 0 until the first kill of the round
	FirstDeath  int64 // first participant to lose a life this round
	Survivors   []int64
	Events      []string // injector events applied this round
	LifestealOn bool     // life-steal window event active until round end

	frozen bool
}

func newRoundData(round int, playerIDs []int64) *RoundData {
	rd := &RoundData{
		Round:      round,
		Kills:      make(map[int64]int, len(playerIDs)),
		Damage:     make(map[int64]int64, len(playerIDs)),
		Alive:      make(map[int64]bool, len(playerIDs)),
		LastDamage: make(map[int64]time.Time, len(playerIDs)),
	}
	for _, id := range playerIDs {
		rd.Alive[id] = true
	}
	return rd
}

// freeze marks the round read-only and records the survivor set.
func (rd *RoundData) freeze() {
	if rd.frozen {
		return
	}
	rd.frozen = true
	for id, alive := range rd.Alive {
		if alive {
			rd.Survivors = append(rd.Survivors, id)
		}
	}
}

func (rd *RoundData) aliveCount(teams map[int64]Team, team Team) int {
	n := 0
	for id, alive := range rd.Alive {
		if alive && teams[id] == team {
			n++
		}
	}
	return n
}

// RoundResult is a frozen per-participant line used for end-of-round bonus
// evaluation and match stats.
type RoundResult struct {
	PlayerID int64
	Kills    int
	Damage   int64
	Alive    bool
	Spend    int64
}

package match

import "time"

type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreparing
	PhaseCombat
	PhaseEnding
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePreparing:
		return "preparing"
	case PhaseCombat:
		return "combat"
	case PhaseEnding:
		return "ending"
	default:
		return "unknown"
	}
}

type Team int

const (
	TeamNone Team = iota
	TeamRed
	TeamBlue
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "red"
	case TeamBlue:
		return "blue"
	default:
		return "none"
	}
}

// Opponent returns the other playing team.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

// EndReason records why a match finished.
type EndReason string

const (
	EndRoundsExhausted EndReason = "rounds_exhausted"
	EndForfeit         EndReason = "forfeit"
	EndForced          EndReason = "forced"
	EndAbandoned       EndReason = "abandoned"
)

// Config holds every tunable for one match. DefaultConfig is the shipped
// balance; tests override individual fields.
type Config struct {
	Rounds     int
	PrepTime   time.Duration
	CombatTime time.Duration

	Lives     int
	MaxHealth int

	// Economy
	Subsidies      []int64 // index round-1; last round is a top-up, see SubsidyFloor
	SubsidyFloor   int64
	KillRewardR1   int64
	KillTiers      []int64 // rounds 2-3, indexed by killer's kills so far this round
	StealPct       int     // rounds 4-5, percent of victim balance
	TransferFees   [3]int  // percent: rounds 1 / 2-3 / 4-5
	InvestmentCost int64
	InvestPayout   int64
	InvestLoss     int64

	// Bonuses
	FirstBloodReward int64
	RampageReward    int64
	RampageStep      int
	ComebackReward   int64
	ComebackKills    int
	SurvivorReward   int64
	SurvivorWindow   time.Duration
	CloseCallReward  int64
	CloseCallHold    time.Duration
	CriticalHealth   int
	MostKillsReward  int64
	MostDamageReward int64
	UnderdogReward   int64
	UnderdogMinKills int

	// Event injector
	EventPoll         time.Duration
	EventChance       float64
	EventsPerRound    int
	EventsPerMatch    int
	LotteryPrize      int64
	StipendAmount     int64
	TaxPct            int
	ItemRansom        int64
	MinPlayersPerTeam int
}

func DefaultConfig() Config {
	return Config{
		Rounds:     5,
		PrepTime:   45 * time.Second,
		CombatTime: 240 * time.Second,

		Lives:     3,
		MaxHealth: 100,

		Subsidies:      []int64{500, 750, 1000, 1250, 1500},
		SubsidyFloor:   1500,
		KillRewardR1:   300,
		KillTiers:      []int64{400, 250, 150},
		StealPct:       20,
		TransferFees:   [3]int{5, 10, 20},
		InvestmentCost: 500,
		InvestPayout:   900,
		InvestLoss:     250,

		FirstBloodReward: 200,
		RampageReward:    300,
		RampageStep:      3,
		ComebackReward:   350,
		ComebackKills:    2,
		SurvivorReward:   400,
		SurvivorWindow:   3 * time.Minute,
		CloseCallReward:  250,
		CloseCallHold:    10 * time.Second,
		CriticalHealth:   20,
		MostKillsReward:  300,
		MostDamageReward: 300,
		UnderdogReward:   500,
		UnderdogMinKills: 4,

		EventPoll:         15 * time.Second,
		EventChance:       0.25,
		EventsPerRound:    2,
		EventsPerMatch:    6,
		LotteryPrize:      500,
		StipendAmount:     200,
		TaxPct:            10,
		ItemRansom:        150,
		MinPlayersPerTeam: 1,
	}
}

// FeeTier maps a round number onto the transfer fee bands.
func (c Config) FeeTier(round int) int {
	switch {
	case round <= 1:
		return c.TransferFees[0]
	case round <= 3:
		return c.TransferFees[1]
	default:
		return c.TransferFees[2]
	}
}

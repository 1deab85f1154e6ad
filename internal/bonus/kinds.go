package bonus

import "github.com/Psikuvit/cashclash/internal/match"

// Kind tags one bonus variety. Behavior lives in the Tracker; kinds carry
// only identity plus the reward/scope lookup below.
type Kind string

const (
	FirstBlood Kind = "first_blood"
	Rampage    Kind = "rampage"
	Comeback   Kind = "comeback"
	Survivor   Kind = "survivor"
	CloseCall  Kind = "close_call"
	MostKills  Kind = "most_kills"
	MostDamage Kind = "most_damage"
	Underdog   Kind = "underdog"
)

// Scope is how often a kind may fire for one participant.
type Scope int

const (
	// ScopeRound allows one award per participant per round.
	ScopeRound Scope = iota
	// ScopeMilestone allows one award per distinct milestone per round
	// (rampage streak steps).
	ScopeMilestone
)

type definition struct {
	scope  Scope
	reward func(match.Config) int64
}

var definitions = map[Kind]definition{
	FirstBlood: {ScopeRound, func(c match.Config) int64 { return c.FirstBloodReward }},
	Rampage:    {ScopeMilestone, func(c match.Config) int64 { return c.RampageReward }},
	Comeback:   {ScopeRound, func(c match.Config) int64 { return c.ComebackReward }},
	Survivor:   {ScopeRound, func(c match.Config) int64 { return c.SurvivorReward }},
	CloseCall:  {ScopeRound, func(c match.Config) int64 { return c.CloseCallReward }},
	MostKills:  {ScopeRound, func(c match.Config) int64 { return c.MostKillsReward }},
	MostDamage: {ScopeRound, func(c match.Config) int64 { return c.MostDamageReward }},
	Underdog:   {ScopeRound, func(c match.Config) int64 { return c.UnderdogReward }},
}

// Reward resolves the configured payout for a kind.
func Reward(cfg match.Config, k Kind) int64 {
	def, ok := definitions[k]
	if !ok {
		return 0
	}
	return def.reward(cfg)
}

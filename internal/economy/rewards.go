package economy

import "github.com/Psikuvit/cashclash/internal/match"

// RoundSubsidy returns the preparation-phase grant for a round and whether
// it uses top-up semantics. The final round only fills a balance up to the
// configured floor instead of granting flat.
func RoundSubsidy(cfg match.Config, round int) (amount int64, topUp bool) {
	if round < 1 || round > len(cfg.Subsidies) {
		return 0, false
	}
	return cfg.Subsidies[round-1], round == cfg.Rounds
}

// KillReward is the direct credit for a kill. Round 1 pays flat; rounds 2-3
// pay a tier keyed by how many kills the killer already had this round;
// rounds 4-5 pay nothing here — late rounds route through theft instead.
func KillReward(cfg match.Config, round, killsBefore int) int64 {
	switch {
	case round <= 1:
		return cfg.KillRewardR1
	case round <= 3:
		if killsBefore < 0 {
			killsBefore = 0
		}
		if killsBefore >= len(cfg.KillTiers) {
			killsBefore = len(cfg.KillTiers) - 1
		}
		return cfg.KillTiers[killsBefore]
	default:
		return 0
	}
}

// StealsEnabled reports whether kills in this round take a cut of the
// victim's balance instead of a direct reward.
func StealsEnabled(cfg match.Config, round int) bool {
	return round > 3 && round <= cfg.Rounds
}

// StealAmount is the killer's cut of the victim's balance at time of death.
func StealAmount(cfg match.Config, victimBalance int64) int64 {
	if victimBalance <= 0 {
		return 0
	}
	return victimBalance * int64(cfg.StealPct) / 100
}

// TransferNet is what the receiver sees after the round-tier fee. The fee
// is destroyed, never redirected.
func TransferNet(cfg match.Config, round int, amount int64) int64 {
	fee := cfg.FeeTier(round)
	return amount * int64(100-fee) / 100
}

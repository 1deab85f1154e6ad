package event

import (
	"fmt"
	"math/rand"

	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/match"
)

// Outcome summarizes an applied event for logging and broadcast.
type Outcome struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Descriptor couples an event kind with its match-wide effect. The injector
// never looks inside Apply, so the catalog can grow without touching the
// trigger logic.
type Descriptor struct {
	Kind  string
	Apply func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome
}

// Catalog is the fixed set of injectable mid-combat events.
var Catalog = []Descriptor{
	{
		Kind: "lottery",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			ids := m.PlayerIDs()
			if len(ids) == 0 {
				return Outcome{Kind: "lottery", Detail: "no players"}
			}
			winner := ids[rng.Intn(len(ids))]
			prize := m.Cfg.LotteryPrize
			eco.Award(winner, prize, round)
			return Outcome{Kind: "lottery", Detail: fmt.Sprintf("player %d wins %d", winner, prize)}
		},
	},
	{
		Kind: "lifesteal",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			m.SetLifesteal(true)
			return Outcome{Kind: "lifesteal", Detail: "kills restore a life until round end"}
		},
	},
	{
		Kind: "stipend",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			n := m.CreditAll(m.Cfg.StipendAmount)
			return Outcome{Kind: "stipend", Detail: fmt.Sprintf("%d players credited %d", n, m.Cfg.StipendAmount)}
		},
	},
	{
		Kind: "tax",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			total := m.TaxAll(m.Cfg.TaxPct)
			return Outcome{Kind: "tax", Detail: fmt.Sprintf("%d%% levy collected %d", m.Cfg.TaxPct, total)}
		},
	},
	{
		Kind: "free_item",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			ids := m.PlayerIDs()
			if len(ids) == 0 {
				return Outcome{Kind: "free_item", Detail: "no players"}
			}
			target := ids[rng.Intn(len(ids))]
			item := match.Catalog[rng.Intn(len(match.Catalog))]
			m.GrantItem(target, item.ID, 0)
			return Outcome{Kind: "free_item", Detail: fmt.Sprintf("player %d receives %s", target, item.ID)}
		},
	},
	{
		Kind: "gear_loss",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			owners := m.PlayersWithPurchases()
			if len(owners) == 0 {
				return Outcome{Kind: "gear_loss", Detail: "nobody owns gear"}
			}
			target := owners[rng.Intn(len(owners))]
			p, _ := m.DropCheapestItem(target)
			return Outcome{Kind: "gear_loss", Detail: fmt.Sprintf("player %d loses %s", target, p.ItemID)}
		},
	},
	{
		Kind: "ransom",
		Apply: func(m *match.Match, eco *economy.Engine, rng *rand.Rand, round int) Outcome {
			losses := m.PayOrLoseItem(m.Cfg.ItemRansom)
			paid, lost := 0, 0
			for _, l := range losses {
				if l.Paid {
					paid++
				} else {
					lost++
				}
			}
			return Outcome{Kind: "ransom", Detail: fmt.Sprintf("%d paid, %d lost an item", paid, lost)}
		},
	},
}

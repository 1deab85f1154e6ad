package event

import (
	"log/slog"
	"math/rand"

	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/match"
)

// Injector probabilistically fires catalog events during combat, bounded by
// an overall per-match cap and a per-round cap. Hitting either cap silences
// the injector for the rest of the match or round respectively.
type Injector struct {
	cfg     match.Config
	rng     *rand.Rand
	logger  *slog.Logger
	catalog []Descriptor

	matchCount int
	roundCount int
}

// NewInjector builds an injector with its own RNG so simulations can seed
// deterministically.
func NewInjector(cfg match.Config, rng *rand.Rand, logger *slog.Logger) *Injector {
	return &Injector{cfg: cfg, rng: rng, logger: logger, catalog: Catalog}
}

// BeginRound resets the per-round counter; the match total carries over.
func (in *Injector) BeginRound() {
	in.roundCount = 0
}

// Poll rolls once. Returns the applied outcome, or nil when nothing fired.
func (in *Injector) Poll(m *match.Match, eco *economy.Engine, round int) *Outcome {
	if in.matchCount >= in.cfg.EventsPerMatch || in.roundCount >= in.cfg.EventsPerRound {
		return nil
	}
	if in.rng.Float64() >= in.cfg.EventChance {
		return nil
	}

	desc := in.catalog[in.rng.Intn(len(in.catalog))]
	out := desc.Apply(m, eco, in.rng, round)

	in.matchCount++
	in.roundCount++
	m.RecordEvent(out.Kind)
	in.logger.Info("event injected", "match", m.ID, "round", round, "kind", out.Kind, "detail", out.Detail)
	return &out
}

package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Psikuvit/cashclash/internal/bonus"
	"github.com/Psikuvit/cashclash/internal/economy"
	"github.com/Psikuvit/cashclash/internal/event"
	"github.com/Psikuvit/cashclash/internal/match"
)

var (
	ErrMatchOver      = errors.New("match already ended")
	ErrAlreadyStarted = errors.New("match already started")
	ErrNotStarted     = errors.New("match has not started")
)

// EventKind tags a domain event on the controller's internal queue.
type EventKind int

const (
	EvStart EventKind = iota
	EvForceStart
	EvForcePhase
	EvForceRound
	EvEndMatch
	EvKill
	EvDamage
	EvHealth
	EvPurchase
	EvRefund
	EvTransfer
	EvInvest
	EvVoteForfeit
	EvLeave
	EvDisconnect
	EvReconnect
)

// Event is the tagged-variant domain event delivered to the match loop.
// Which fields matter depends on Kind.
type Event struct {
	Kind   EventKind
	Actor  int64
	Target int64
	Amount int64
	Item   string
	Health int

	resp chan error
}

// tickInterval drives the combat countdown; the win condition is evaluated
// at least this often.
const tickInterval = time.Second

// Controller runs one match: a single goroutine owns every phase and round
// transition, so state never sees parallel mutation. Timers are explicit
// countdown fields — there is no scheduler handle to leak, and "cancelling"
// a phase timer is just the phase moving on.
type Controller struct {
	m        *match.Match
	cfg      match.Config
	eco      *economy.Engine
	bonuses  *bonus.Tracker
	injector *event.Injector
	world    WorldAdapter
	logger   *slog.Logger
	notify   func(kind string, payload any)
	onEnd    func(*Controller)

	events chan Event
	done   chan struct{}

	// loop-owned counters
	prepLeft   int // seconds left in preparation
	combatLeft int // seconds left in combat
	combatTick int // ticks since this round's combat began
	pollEvery  int // injector cadence in ticks
	lastPoll   int
	roundWins  map[match.Team]int

	warnedNoRespawn bool
}

// Option tweaks a controller at construction (simulations inject RNG and
// silence transport).
type Option func(*Controller)

func WithRNG(rng *rand.Rand) Option {
	return func(c *Controller) {
		c.injector = event.NewInjector(c.cfg, rng, c.logger)
	}
}

func WithNotify(fn func(kind string, payload any)) Option {
	return func(c *Controller) { c.notify = fn }
}

func WithWorld(w WorldAdapter) Option {
	return func(c *Controller) { c.world = w }
}

func WithRecorder(rec economy.RecordFunc) Option {
	return func(c *Controller) {
		c.eco = economy.NewEngine(c.m, c.logger, rec)
		c.bonuses = bonus.NewTracker(c.cfg, c.eco, c.logger)
	}
}

func NewController(m *match.Match, logger *slog.Logger, onEnd func(*Controller), opts ...Option) *Controller {
	c := &Controller{
		m:         m,
		cfg:       m.Cfg,
		logger:    logger,
		onEnd:     onEnd,
		world:     NopWorld{},
		events:    make(chan Event, 256),
		done:      make(chan struct{}),
		roundWins: map[match.Team]int{},
	}
	c.eco = economy.NewEngine(m, logger, nil)
	c.bonuses = bonus.NewTracker(c.cfg, c.eco, logger)
	c.injector = event.NewInjector(c.cfg, rand.New(rand.NewSource(time.Now().UnixNano())), logger)
	c.pollEvery = int(c.cfg.EventPoll / tickInterval)
	if c.pollEvery < 1 {
		c.pollEvery = 1
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Match() *match.Match { return c.m }

// Post queues a fire-and-forget domain event. Events arriving after the
// match ended are dropped (stale references are silent no-ops).
func (c *Controller) Post(ev Event) {
	select {
	case <-c.done:
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped, queue full", "match", c.m.ID, "kind", ev.Kind)
	}
}

// Do queues an event and waits for the loop's verdict.
func (c *Controller) Do(ev Event) error {
	ev.resp = make(chan error, 1)
	select {
	case <-c.done:
		return ErrMatchOver
	case c.events <- ev:
	}
	select {
	case <-c.done:
		return ErrMatchOver
	case err := <-ev.resp:
		return err
	}
}

// Run owns the match until it ends or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.endMatch(match.EndAbandoned, match.TeamNone)
			return
		case <-c.done:
			return
		case ev := <-c.events:
			c.handle(ev)
		case <-ticker.C:
			c.step()
		}
	}
}

func reply(ev Event, err error) {
	if ev.resp != nil {
		ev.resp <- err
	}
}

// handle dispatches one domain event. Invalid transitions answer with a
// reason and change nothing.
func (c *Controller) handle(ev Event) {
	switch ev.Kind {
	case EvStart, EvForceStart:
		reply(ev, c.startMatch(ev.Kind == EvForceStart))
	case EvForcePhase:
		reply(ev, c.forcePhase())
	case EvForceRound:
		reply(ev, c.forceRound())
	case EvEndMatch:
		c.endMatch(match.EndForced, match.TeamNone)
		reply(ev, nil)
	case EvKill:
		c.handleKill(ev.Actor, ev.Target)
		reply(ev, nil)
	case EvDamage:
		if c.m.RecordDamage(ev.Actor, ev.Target, ev.Amount, time.Now()) {
			c.bonuses.OnHealth(ev.Target, ev.Health, c.elapsed())
		}
		reply(ev, nil)
	case EvHealth:
		c.bonuses.OnHealth(ev.Actor, ev.Health, c.elapsed())
		reply(ev, nil)
	case EvPurchase:
		reply(ev, c.purchase(ev.Actor, ev.Item))
	case EvRefund:
		if c.m.Phase() != match.PhasePreparing {
			reply(ev, match.ErrWrongPhase)
			return
		}
		c.eco.RefundLast(ev.Actor, c.m.Round())
		reply(ev, nil)
	case EvTransfer:
		reply(ev, c.transfer(ev.Actor, ev.Target, ev.Amount))
	case EvInvest:
		if c.m.Phase() != match.PhasePreparing {
			reply(ev, match.ErrWrongPhase)
			return
		}
		reply(ev, c.eco.PlaceInvestment(ev.Actor, c.m.Round()))
	case EvVoteForfeit:
		c.voteForfeit(ev.Actor)
		reply(ev, nil)
	case EvLeave:
		c.leave(ev.Actor)
		reply(ev, nil)
	case EvDisconnect:
		c.m.MarkDisconnected(ev.Actor, true)
		reply(ev, nil)
	case EvReconnect:
		c.m.MarkDisconnected(ev.Actor, false)
		reply(ev, nil)
	default:
		reply(ev, nil)
	}
}

// step advances one tick. Only PREPARING and COMBAT consume time.
func (c *Controller) step() {
	switch c.m.Phase() {
	case match.PhasePreparing:
		c.prepLeft--
		if c.prepLeft <= 0 {
			c.startCombat()
		}
	case match.PhaseCombat:
		c.combatTick++

		// Win condition first: a decided round never waits out the clock.
		if winner, ok := c.m.WinningTeam(); ok {
			c.finishRound(winner)
			return
		}

		for _, a := range c.bonuses.Tick(c.elapsed()) {
			c.announce("bonus", a)
		}

		if c.combatTick-c.lastPoll >= c.pollEvery {
			c.lastPoll = c.combatTick
			if out := c.injector.Poll(c.m, c.eco, c.m.Round()); out != nil {
				c.announce("event", *out)
			}
		}

		c.combatLeft--
		if c.combatLeft <= 0 {
			c.finishRound(c.timeoutWinner())
		}
	}
}

func (c *Controller) elapsed() time.Duration {
	return time.Duration(c.combatTick) * tickInterval
}

func (c *Controller) announce(kind string, payload any) {
	if c.notify != nil {
		c.notify(kind, payload)
	}
}

// startMatch moves WAITING → PREPARING for round 1. force bypasses the
// minimum-team check.
func (c *Controller) startMatch(force bool) error {
	if c.m.Phase() != match.PhaseWaiting {
		return ErrAlreadyStarted
	}
	if !force {
		if err := c.m.CanStart(); err != nil {
			return err
		}
	}
	c.beginRound(1)
	return nil
}

func (c *Controller) beginRound(round int) {
	c.m.BeginRound(round)
	c.eco.GrantSubsidies(round)
	c.prepLeft = int(c.cfg.PrepTime / tickInterval)
	c.world.TeleportAll(c.m.ID, match.PhasePreparing)
	c.logger.Info("round begins", "match", c.m.ID, "round", round)
	c.announce("phase", c.m.Snapshot())
}

func (c *Controller) startCombat() {
	c.m.SetPhase(match.PhaseCombat)
	c.combatTick = 0
	c.lastPoll = 0
	c.combatLeft = int(c.cfg.CombatTime / tickInterval)
	c.bonuses.BeginRound(c.m.Round(), c.m.PlayerIDs())
	c.injector.BeginRound()
	c.world.TeleportAll(c.m.ID, match.PhaseCombat)
	c.logger.Info("combat begins", "match", c.m.ID, "round", c.m.Round())
	c.announce("phase", c.m.Snapshot())
}

// forcePhase is the admin "skip the current timer" control.
func (c *Controller) forcePhase() error {
	switch c.m.Phase() {
	case match.PhasePreparing:
		c.startCombat()
		return nil
	case match.PhaseCombat:
		c.finishRound(c.timeoutWinner())
		return nil
	case match.PhaseWaiting:
		return ErrNotStarted
	default:
		return ErrMatchOver
	}
}

// forceRound skips ahead a full round; on the final round it ends the match
// instead of advancing past the bound.
func (c *Controller) forceRound() error {
	switch c.m.Phase() {
	case match.PhaseWaiting:
		return ErrNotStarted
	case match.PhaseEnding:
		return ErrMatchOver
	}
	c.finishRound(match.TeamNone)
	return nil
}

// timeoutWinner decides a round that ran out its clock: the team with more
// standing participants takes it, an even count takes nobody.
func (c *Controller) timeoutWinner() match.Team {
	red := c.m.AliveCount(match.TeamRed)
	blue := c.m.AliveCount(match.TeamBlue)
	switch {
	case red > blue:
		return match.TeamRed
	case blue > red:
		return match.TeamBlue
	default:
		return match.TeamNone
	}
}

// finishRound closes the current round: freeze stats, end-of-round bonuses,
// settle investments, then advance or end the match. Safe to reach from the
// win condition, the timer, and admin forcing — the phase guard makes a
// second call a no-op.
func (c *Controller) finishRound(winner match.Team) {
	phase := c.m.Phase()
	if phase != match.PhaseCombat && phase != match.PhasePreparing {
		return
	}
	round := c.m.Round()
	c.m.EndRound()

	results := c.m.RoundResults()
	for _, a := range c.bonuses.EndOfRound(results) {
		c.announce("bonus", a)
	}
	c.eco.SettleRoundInvestments(round)

	if winner != match.TeamNone {
		c.roundWins[winner]++
	}
	c.logger.Info("round over", "match", c.m.ID, "round", round, "winner", winner.String())

	if round >= c.cfg.Rounds {
		c.endMatch(match.EndRoundsExhausted, c.matchWinner())
		return
	}
	c.beginRound(round + 1)
}

func (c *Controller) matchWinner() match.Team {
	red, blue := c.roundWins[match.TeamRed], c.roundWins[match.TeamBlue]
	switch {
	case red > blue:
		return match.TeamRed
	case blue > red:
		return match.TeamBlue
	default:
		return match.TeamNone
	}
}

// endMatch is the single exit path. It is idempotent and synchronously
// final: once the phase flips to ENDING the loop stops consuming ticks, so
// no stale countdown can fire afterwards.
func (c *Controller) endMatch(reason match.EndReason, winner match.Team) {
	if !c.m.End(reason, winner) {
		return
	}
	c.logger.Info("match over", "match", c.m.ID, "reason", string(reason), "winner", winner.String())
	c.announce("phase", c.m.Snapshot())
	if c.onEnd != nil {
		c.onEnd(c)
	}
	close(c.done)
}

func (c *Controller) handleKill(killer, victim int64) {
	out, ok := c.m.RecordKill(killer, victim)
	if !ok {
		return
	}
	credited := c.eco.SettleKill(out, c.m.Round())
	for _, a := range c.bonuses.OnKill(out, c.elapsed()) {
		c.announce("bonus", a)
	}
	// In rounds where the victim keeps lives, they respawn; the arena layer
	// decides where, falling back to a default when unconfigured.
	if !out.Eliminated {
		if _, ok := c.world.RespawnLocation(c.m.ID); !ok && !c.warnedNoRespawn {
			c.warnedNoRespawn = true
			c.logger.Warn("no respawn location configured, using default", "match", c.m.ID)
		}
	}
	c.announce("kill", map[string]any{
		"killer": killer, "victim": victim, "credited": credited,
		"eliminated": out.Eliminated, "streak": out.KillerStreak,
	})

	if winner, ok := c.m.WinningTeam(); ok {
		c.finishRound(winner)
	}
}

func (c *Controller) purchase(actor int64, itemID string) error {
	if c.m.Phase() != match.PhasePreparing {
		return match.ErrWrongPhase
	}
	if err := c.eco.Purchase(actor, itemID, c.m.Round()); err != nil {
		return err
	}
	c.announce("purchase", map[string]any{"player": actor, "item": itemID})
	return nil
}

func (c *Controller) transfer(sender, receiver, amount int64) error {
	phase := c.m.Phase()
	if phase != match.PhasePreparing && phase != match.PhaseCombat {
		return match.ErrWrongPhase
	}
	return c.eco.Transfer(sender, receiver, amount, c.m.Round())
}

func (c *Controller) voteForfeit(actor int64) {
	counted, reached := c.m.VoteForfeit(actor)
	if counted {
		c.announce("forfeit_vote", map[string]any{"player": actor, "votes": c.m.ForfeitVotes()})
	}
	if reached {
		c.eco.ApplyForfeitPenalties(c.m.Round())
		c.endMatch(match.EndForfeit, match.TeamNone)
	}
}

func (c *Controller) leave(actor int64) {
	if !c.m.RemovePlayer(actor) {
		return
	}
	c.bonuses.Remove(actor)
	c.announce("leave", map[string]any{"player": actor})

	if c.m.PlayerCount() == 0 {
		c.endMatch(match.EndAbandoned, match.TeamNone)
		return
	}
	if c.m.Phase() == match.PhaseCombat {
		if winner, ok := c.m.WinningTeam(); ok {
			c.finishRound(winner)
		}
	}
}

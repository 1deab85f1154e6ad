package economy

import (
	"errors"
	"log/slog"

	"github.com/Psikuvit/cashclash/internal/match"
)

var ErrUnknownItem = errors.New("unknown item")

// TxKind labels an audit line for the persistence layer.
type TxKind string

const (
	TxSubsidy    TxKind = "subsidy"
	TxKillReward TxKind = "kill_reward"
	TxTheft      TxKind = "theft"
	TxTransfer   TxKind = "transfer"
	TxBonus      TxKind = "bonus"
	TxEvent      TxKind = "event"
	TxInvestment TxKind = "investment"
	TxForfeit    TxKind = "forfeit"
	TxPurchase   TxKind = "purchase"
	TxRefund     TxKind = "refund"
)

// RecordFunc receives every balance-changing operation for the audit log.
// nil disables recording (simulations).
type RecordFunc func(playerID int64, kind TxKind, amount int64, round int)

// Engine applies the reward arithmetic to one match's ledgers. All writes go
// through Match primitives, so each operation is atomic with respect to a
// single ledger (or a debit+credit pair).
type Engine struct {
	m      *match.Match
	cfg    match.Config
	logger *slog.Logger
	record RecordFunc
}

func NewEngine(m *match.Match, logger *slog.Logger, record RecordFunc) *Engine {
	return &Engine{m: m, cfg: m.Cfg, logger: logger, record: record}
}

func (e *Engine) note(playerID int64, kind TxKind, amount int64, round int) {
	if e.record != nil && amount != 0 {
		e.record(playerID, kind, amount, round)
	}
}

// GrantSubsidies credits the round-start grant to every participant.
func (e *Engine) GrantSubsidies(round int) {
	grant, topUp := RoundSubsidy(e.cfg, round)
	if grant <= 0 {
		return
	}
	for _, id := range e.m.PlayerIDs() {
		credited := e.m.SubsidyTopUp(id, grant, e.cfg.SubsidyFloor, topUp)
		e.note(id, TxSubsidy, credited, round)
	}
}

// SettleKill pays the killer for one recorded kill: a direct reward in
// rounds 1-3, a theft cut in rounds 4-5. Returns the credited amount.
func (e *Engine) SettleKill(out match.KillOutcome, round int) int64 {
	if StealsEnabled(e.cfg, round) {
		stolen := e.m.Steal(out.Victim, out.Killer, func(balance int64) int64 {
			return StealAmount(e.cfg, balance)
		})
		if stolen > 0 {
			e.note(out.Killer, TxTheft, stolen, round)
			e.note(out.Victim, TxTheft, -stolen, round)
		}
		return stolen
	}
	reward := KillReward(e.cfg, round, out.KillerKills-1)
	if reward > 0 && e.m.Credit(out.Killer, reward) {
		e.note(out.Killer, TxKillReward, reward, round)
		return reward
	}
	return 0
}

// Transfer moves amount from sender to receiver minus the round-tier fee.
// Rejected entirely when the sender cannot cover the full amount.
func (e *Engine) Transfer(senderID, receiverID, amount int64, round int) error {
	if amount <= 0 {
		return nil
	}
	net := TransferNet(e.cfg, round, amount)
	if err := e.m.Transfer(senderID, receiverID, amount, net); err != nil {
		return err
	}
	e.note(senderID, TxTransfer, -amount, round)
	e.note(receiverID, TxTransfer, net, round)
	return nil
}

// Award credits a bonus through the normal ledger path.
func (e *Engine) Award(playerID int64, amount int64, round int) bool {
	if amount <= 0 {
		return false
	}
	if !e.m.Credit(playerID, amount) {
		return false
	}
	e.note(playerID, TxBonus, amount, round)
	return true
}

// PlaceInvestment opens the configured wager for a participant.
func (e *Engine) PlaceInvestment(playerID int64, round int) error {
	inv := match.Investment{
		Cost:   e.cfg.InvestmentCost,
		Payout: e.cfg.InvestPayout,
		Loss:   e.cfg.InvestLoss,
	}
	if err := e.m.PlaceInvestment(playerID, inv); err != nil {
		return err
	}
	e.note(playerID, TxInvestment, -inv.Cost, round)
	return nil
}

// ResolveInvestment settles a single holder: payout when eligible, loss
// otherwise. One-shot; the investment is cleared either way.
func (e *Engine) ResolveInvestment(playerID int64, survived bool, round int) {
	delta, had := e.m.ResolveInvestment(playerID, survived, false)
	if had {
		e.note(playerID, TxInvestment, delta, round)
	}
}

// SettleRoundInvestments resolves every open investment at round end:
// survivors collect, the fallen take the loss.
func (e *Engine) SettleRoundInvestments(round int) {
	for _, rr := range e.m.RoundResults() {
		e.ResolveInvestment(rr.PlayerID, rr.Alive, round)
	}
}

// ApplyForfeitPenalties forces every open investment to its worst case.
func (e *Engine) ApplyForfeitPenalties(round int) {
	for _, id := range e.m.PlayerIDs() {
		delta, had := e.m.ResolveInvestment(id, false, true)
		if had {
			e.note(id, TxForfeit, delta, round)
			e.logger.Info("forfeit penalty applied", "match", e.m.ID, "player", id, "amount", delta)
		}
	}
}

// Purchase debits the participant and appends purchase history.
func (e *Engine) Purchase(playerID int64, itemID string, round int) error {
	item, ok := match.ItemByID(itemID)
	if !ok {
		return ErrUnknownItem
	}
	if err := e.m.Purchase(playerID, item.ID, item.Price); err != nil {
		return err
	}
	e.note(playerID, TxPurchase, -item.Price, round)
	return nil
}

// RefundLast undoes the most recent purchase.
func (e *Engine) RefundLast(playerID int64, round int) bool {
	p, ok := e.m.RefundLastPurchase(playerID)
	if !ok {
		return false
	}
	e.note(playerID, TxRefund, p.Price, round)
	return true
}

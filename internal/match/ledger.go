package match

import "errors"

var ErrInsufficientFunds = errors.New("insufficient funds")

// Purchase is one shop transaction, kept for refunds and spend accounting.
type Purchase struct {
	ItemID string
	Price  int64
}

// Investment is a one-shot wager resolved at round end or on death.
type Investment struct {
	Cost   int64
	Payout int64 // credited when the holder survives the round
	Loss   int64 // debited when the holder dies or forfeits
}

// Ledger is a participant's economic record for the current match.
// It is never accessed directly from outside the package; all mutation
// goes through Match methods so a credit+debit pair is a single
// critical section.
type Ledger struct {
	PlayerID   int64
	Team       Team
	Balance    int64
	Lives      int
	KillStreak int
	Purchases  []Purchase
	Investment *Investment

	Disconnected bool
}

func newLedger(playerID int64, team Team, lives int) *Ledger {
	return &Ledger{PlayerID: playerID, Team: team, Lives: lives}
}

func (l *Ledger) credit(n int64) {
	if n > 0 {
		l.Balance += n
	}
}

// debit fails atomically; the balance never goes negative here. The only
// sanctioned negative adjustment is the forfeit investment loss, which
// uses forceDebit.
func (l *Ledger) debit(n int64) error {
	if n < 0 {
		return nil
	}
	if l.Balance < n {
		return ErrInsufficientFunds
	}
	l.Balance -= n
	return nil
}

func (l *Ledger) forceDebit(n int64) {
	if n > 0 {
		l.Balance -= n
	}
}

func (l *Ledger) totalSpend() int64 {
	var sum int64
	for _, p := range l.Purchases {
		sum += p.Price
	}
	return sum
}

// cheapestPurchase returns the index of the lowest-priced purchase, -1 when
// the participant owns nothing.
func (l *Ledger) cheapestPurchase() int {
	idx := -1
	for i, p := range l.Purchases {
		if idx == -1 || p.Price < l.Purchases[idx].Price {
			idx = i
		}
	}
	return idx
}

func (l *Ledger) resetRound(lives int) {
	l.Lives = lives
	l.KillStreak = 0
}

// LedgerSnapshot is the read-only view handed to transport and stats layers.
type LedgerSnapshot struct {
	PlayerID      int64      `json:"player_id"`
	Team          string     `json:"team"`
	Balance       int64      `json:"balance"`
	Lives         int        `json:"lives"`
	KillStreak    int        `json:"kill_streak"`
	Purchases     []Purchase `json:"purchases,omitempty"`
	HasInvestment bool       `json:"has_investment"`
	TotalSpend    int64      `json:"total_spend"`
}

func (l *Ledger) snapshot() LedgerSnapshot {
	purchases := make([]Purchase, len(l.Purchases))
	copy(purchases, l.Purchases)
	return LedgerSnapshot{
		PlayerID:      l.PlayerID,
		Team:          l.Team.String(),
		Balance:       l.Balance,
		Lives:         l.Lives,
		KillStreak:    l.KillStreak,
		Purchases:     purchases,
		HasInvestment: l.Investment != nil,
		TotalSpend:    l.totalSpend(),
	}
}

package match

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrGone          = errors.New("participant no longer in match")
	ErrWrongPhase    = errors.New("operation not allowed in current phase")
	ErrMatchFull     = errors.New("match is full")
	ErrAlreadyJoined = errors.New("already in match")
	ErrNoInvestment  = errors.New("no active investment")
	ErrHasInvestment = errors.New("investment already active")
	ErrTeamsNotReady = errors.New("both teams need at least one player")
)

const maxPlayersPerTeam = 8

// Match holds the full mutable state for one active session. Every mutation
// is a single critical section under mu; combined operations (debit+credit,
// kill bookkeeping) never expose intermediate state to concurrent readers.
type Match struct {
	mu sync.RWMutex

	ID  string
	Cfg Config

	phase   Phase
	round   int
	ledgers map[int64]*Ledger
	rounds  []*RoundData // history retained; index round-1
	votes   map[int64]bool

	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Reason    EndReason
	winner    Team
}

func New(id string, cfg Config) *Match {
	return &Match{
		ID:        id,
		Cfg:       cfg,
		phase:     PhaseWaiting,
		ledgers:   make(map[int64]*Ledger),
		votes:     make(map[int64]bool),
		CreatedAt: time.Now(),
	}
}

// AddPlayer joins a participant before the match starts. TeamNone picks the
// smaller side.
func (m *Match) AddPlayer(id int64, team Team) (Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseWaiting {
		return TeamNone, ErrWrongPhase
	}
	if _, ok := m.ledgers[id]; ok {
		return TeamNone, ErrAlreadyJoined
	}
	if team == TeamNone {
		if m.teamSize(TeamRed) <= m.teamSize(TeamBlue) {
			team = TeamRed
		} else {
			team = TeamBlue
		}
	}
	if m.teamSize(team) >= maxPlayersPerTeam {
		return TeamNone, ErrMatchFull
	}
	m.ledgers[id] = newLedger(id, team, m.Cfg.Lives)
	return team, nil
}

// RemovePlayer drops a participant entirely: ledger gone, vote gone, and
// when a round is live they are marked dead so the win condition can fire.
func (m *Match) RemovePlayer(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledgers[id]; !ok {
		return false
	}
	delete(m.ledgers, id)
	delete(m.votes, id)
	if rd := m.liveRound(); rd != nil {
		delete(rd.Alive, id)
	}
	return true
}

func (m *Match) MarkDisconnected(id int64, down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[id]; ok {
		l.Disconnected = down
	}
}

func (m *Match) HasPlayer(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ledgers[id]
	return ok
}

func (m *Match) PlayerTeam(id int64) Team {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.ledgers[id]; ok {
		return l.Team
	}
	return TeamNone
}

// PlayerIDs returns all participant IDs in ascending order. Event and
// round-end evaluation iterate this so results are deterministic.
func (m *Match) PlayerIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playerIDs()
}

func (m *Match) playerIDs() []int64 {
	ids := make([]int64, 0, len(m.ledgers))
	for id := range m.ledgers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Match) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ledgers)
}

func (m *Match) teamSize(team Team) int {
	n := 0
	for _, l := range m.ledgers {
		if l.Team == team {
			n++
		}
	}
	return n
}

// CanStart reports whether both teams meet the minimum size.
func (m *Match) CanStart() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phase != PhaseWaiting {
		return ErrWrongPhase
	}
	if m.teamSize(TeamRed) < m.Cfg.MinPlayersPerTeam || m.teamSize(TeamBlue) < m.Cfg.MinPlayersPerTeam {
		return ErrTeamsNotReady
	}
	return nil
}

func (m *Match) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

func (m *Match) Round() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round
}

func (m *Match) SetPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = p
}

// BeginRound opens preparation for the given round: fresh RoundData, lives
// and kill streaks reset. Round numbers only move forward.
func (m *Match) BeginRound(round int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if round <= m.round && round != 1 {
		return
	}
	m.round = round
	m.phase = PhasePreparing
	for _, l := range m.ledgers {
		l.resetRound(m.Cfg.Lives)
	}
	m.rounds = append(m.rounds, newRoundData(round, m.playerIDs()))
	if round == 1 {
		now := time.Now()
		m.StartedAt = &now
	}
}

// EndRound freezes the live round's data.
func (m *Match) EndRound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rd := m.liveRound(); rd != nil {
		rd.freeze()
	}
}

// End moves the match to ENDING. Idempotent.
func (m *Match) End(reason EndReason, winner Team) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseEnding {
		return false
	}
	m.phase = PhaseEnding
	m.Reason = reason
	m.winner = winner
	if rd := m.liveRound(); rd != nil {
		rd.freeze()
	}
	now := time.Now()
	m.EndedAt = &now
	return true
}

func (m *Match) Winner() Team {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.winner
}

// liveRound is the data for the current round while it is mutable, nil
// otherwise. Callers hold mu.
func (m *Match) liveRound() *RoundData {
	if m.round == 0 || m.round > len(m.rounds) {
		return nil
	}
	rd := m.rounds[m.round-1]
	if rd.frozen {
		return nil
	}
	return rd
}

func (m *Match) teams() map[int64]Team {
	t := make(map[int64]Team, len(m.ledgers))
	for id, l := range m.ledgers {
		t[id] = l.Team
	}
	return t
}

func (m *Match) AliveCount(team Team) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == 0 || m.round > len(m.rounds) {
		return 0
	}
	return m.rounds[m.round-1].aliveCount(m.teams(), team)
}

// WinningTeam reports the round winner: exactly one team with zero alive
// participants while the other still has at least one.
func (m *Match) WinningTeam() (Team, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == 0 || m.round > len(m.rounds) {
		return TeamNone, false
	}
	rd := m.rounds[m.round-1]
	teams := m.teams()
	red := rd.aliveCount(teams, TeamRed)
	blue := rd.aliveCount(teams, TeamBlue)
	switch {
	case red == 0 && blue > 0:
		return TeamBlue, true
	case blue == 0 && red > 0:
		return TeamRed, true
	default:
		return TeamNone, false
	}
}

// KillOutcome describes what one kill changed, captured atomically so the
// economy and bonus layers act on a consistent view even when deaths land
// back to back.
type KillOutcome struct {
	Killer       int64
	Victim       int64
	KillerKills  int // count after this kill
	KillerStreak int
	FirstBlood   bool
	Comeback     bool // killer was the round's first death and just hit the comeback mark
	Eliminated   bool // victim is out of lives for this round
	VictimLives  int
	LifestealUp  bool // life-steal window restored a killer life
}

// RecordKill applies one death: victim loses a life (eliminated at zero),
// killer's tallies advance, first blood and first death are set once.
// Returns ok=false for stale references or outside combat.
func (m *Match) RecordKill(killer, victim int64) (KillOutcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseCombat {
		return KillOutcome{}, false
	}
	rd := m.liveRound()
	if rd == nil {
		return KillOutcome{}, false
	}
	kl, kok := m.ledgers[killer]
	vl, vok := m.ledgers[victim]
	if !kok || !vok || !rd.Alive[victim] {
		return KillOutcome{}, false
	}

	out := KillOutcome{Killer: killer, Victim: victim}

	if rd.FirstBlood == 0 {
		rd.FirstBlood = killer
		rd.FirstDeath = victim
		out.FirstBlood = true
	}

	rd.Kills[killer]++
	kl.KillStreak++
	vl.KillStreak = 0
	vl.Lives--
	if vl.Lives <= 0 {
		vl.Lives = 0
		rd.Alive[victim] = false
		out.Eliminated = true
	}
	if rd.LifestealOn && kl.Lives < m.Cfg.Lives {
		kl.Lives++
		out.LifestealUp = true
	}

	out.KillerKills = rd.Kills[killer]
	out.KillerStreak = kl.KillStreak
	out.VictimLives = vl.Lives
	out.Comeback = killer == rd.FirstDeath && rd.Kills[killer] == m.Cfg.ComebackKills
	return out, true
}

// RecordDamage accumulates damage dealt and stamps the victim's last-damage
// time for close-call tracking.
func (m *Match) RecordDamage(attacker, victim int64, amount int64, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseCombat {
		return false
	}
	rd := m.liveRound()
	if rd == nil {
		return false
	}
	if _, ok := m.ledgers[attacker]; !ok {
		return false
	}
	if !rd.Alive[victim] {
		return false
	}
	if amount > 0 {
		rd.Damage[attacker] += amount
	}
	rd.LastDamage[victim] = at
	return true
}

// SetLifesteal flips the life-steal window for the live round.
func (m *Match) SetLifesteal(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rd := m.liveRound(); rd != nil {
		rd.LifestealOn = on
	}
}

// RecordEvent appends an injector event name to the live round's log.
func (m *Match) RecordEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rd := m.liveRound(); rd != nil {
		rd.Events = append(rd.Events, name)
	}
}

// --- economy primitives -----------------------------------------------------

func (m *Match) Credit(id int64, n int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return false
	}
	l.credit(n)
	return true
}

func (m *Match) Debit(id int64, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return ErrGone
	}
	return l.debit(n)
}

func (m *Match) Balance(id int64) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[id]
	if !ok {
		return 0, false
	}
	return l.Balance, true
}

// Transfer debits the sender the full amount and credits the receiver the
// post-fee net, as one critical section. No partial effect on failure.
func (m *Match) Transfer(senderID, receiverID, amount, net int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, sok := m.ledgers[senderID]
	r, rok := m.ledgers[receiverID]
	if !sok || !rok {
		return ErrGone
	}
	if err := s.debit(amount); err != nil {
		return err
	}
	r.credit(net)
	return nil
}

// Steal reads the victim's balance once, applies cut to it, then moves the
// result from victim to killer. Returns the stolen amount.
func (m *Match) Steal(victimID, killerID int64, cut func(int64) int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, vok := m.ledgers[victimID]
	k, kok := m.ledgers[killerID]
	if !vok || !kok {
		return 0
	}
	amt := cut(v.Balance)
	if amt <= 0 {
		return 0
	}
	if amt > v.Balance {
		amt = v.Balance
	}
	v.Balance -= amt
	k.credit(amt)
	return amt
}

// SubsidyTopUp credits the grant, or for top-up semantics credits only the
// shortfall below floor (zero when already at or above it).
func (m *Match) SubsidyTopUp(id int64, grant int64, floor int64, topUp bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return 0
	}
	if !topUp {
		l.credit(grant)
		return grant
	}
	if l.Balance >= floor {
		return 0
	}
	short := floor - l.Balance
	if short > grant {
		short = grant
	}
	l.credit(short)
	return short
}

// --- purchases and investments ----------------------------------------------

func (m *Match) Purchase(id int64, itemID string, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return ErrGone
	}
	if err := l.debit(price); err != nil {
		return err
	}
	l.Purchases = append(l.Purchases, Purchase{ItemID: itemID, Price: price})
	return nil
}

// RefundLastPurchase undoes the most recent purchase, crediting its price back.
func (m *Match) RefundLastPurchase(id int64) (Purchase, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok || len(l.Purchases) == 0 {
		return Purchase{}, false
	}
	p := l.Purchases[len(l.Purchases)-1]
	l.Purchases = l.Purchases[:len(l.Purchases)-1]
	l.credit(p.Price)
	return p, true
}

// GrantItem appends a zero-or-given-price purchase without debiting (free
// item event, admin grants).
func (m *Match) GrantItem(id int64, itemID string, price int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return false
	}
	l.Purchases = append(l.Purchases, Purchase{ItemID: itemID, Price: price})
	return true
}

// DropCheapestItem removes the cheapest purchase with no refund.
func (m *Match) DropCheapestItem(id int64) (Purchase, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return Purchase{}, false
	}
	idx := l.cheapestPurchase()
	if idx < 0 {
		return Purchase{}, false
	}
	p := l.Purchases[idx]
	l.Purchases = append(l.Purchases[:idx], l.Purchases[idx+1:]...)
	return p, true
}

// PlayersWithPurchases returns IDs owning at least one item, ascending.
func (m *Match) PlayersWithPurchases() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, l := range m.ledgers {
		if len(l.Purchases) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Match) PlaceInvestment(id int64, inv Investment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return ErrGone
	}
	if l.Investment != nil {
		return ErrHasInvestment
	}
	if err := l.debit(inv.Cost); err != nil {
		return err
	}
	cp := inv
	l.Investment = &cp
	return nil
}

// ResolveInvestment settles and clears the active investment. survived pays
// the configured bonus; otherwise the loss applies. A forfeit resolution is
// the one sanctioned path to a negative balance.
func (m *Match) ResolveInvestment(id int64, survived, forfeit bool) (delta int64, had bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok || l.Investment == nil {
		return 0, false
	}
	inv := *l.Investment
	l.Investment = nil
	switch {
	case survived && !forfeit:
		l.credit(inv.Payout)
		return inv.Payout, true
	case forfeit:
		l.forceDebit(inv.Loss)
		return -inv.Loss, true
	default:
		loss := inv.Loss
		if loss > l.Balance {
			loss = l.Balance
		}
		l.Balance -= loss
		return -loss, true
	}
}

// --- event helpers ----------------------------------------------------------

// CreditAll grants every participant the same amount (universal stipend).
func (m *Match) CreditAll(n int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.ledgers {
		l.credit(n)
	}
	return len(m.ledgers)
}

// TaxAll debits pct percent of each balance, clamped at zero. Returns the
// total collected (the tax is destroyed, not redistributed).
func (m *Match) TaxAll(pct int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, l := range m.ledgers {
		cut := l.Balance * int64(pct) / 100
		l.Balance -= cut
		total += cut
	}
	return total
}

// ItemLoss reports one pay-or-lose resolution line.
type ItemLoss struct {
	PlayerID int64
	Paid     bool
	Item     string
}

// PayOrLoseItem charges every item owner the ransom; those who cannot pay
// lose their cheapest item instead. Order is ascending ID for determinism.
func (m *Match) PayOrLoseItem(fee int64) []ItemLoss {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.ledgers))
	for id, l := range m.ledgers {
		if len(l.Purchases) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []ItemLoss
	for _, id := range ids {
		l := m.ledgers[id]
		if l.debit(fee) == nil {
			out = append(out, ItemLoss{PlayerID: id, Paid: true})
			continue
		}
		idx := l.cheapestPurchase()
		p := l.Purchases[idx]
		l.Purchases = append(l.Purchases[:idx], l.Purchases[idx+1:]...)
		out = append(out, ItemLoss{PlayerID: id, Item: p.ItemID})
	}
	return out
}

// --- forfeit ----------------------------------------------------------------

// VoteForfeit registers a cooperative surrender vote. The threshold is a
// strict majority of current participants.
func (m *Match) VoteForfeit(id int64) (counted bool, reached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledgers[id]; !ok {
		return false, false
	}
	if m.phase != PhasePreparing && m.phase != PhaseCombat {
		return false, false
	}
	if m.votes[id] {
		return false, len(m.votes)*2 > len(m.ledgers)
	}
	m.votes[id] = true
	return true, len(m.votes)*2 > len(m.ledgers)
}

func (m *Match) ForfeitVotes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.votes)
}

// --- read-only views --------------------------------------------------------

// RoundResults returns the current round's per-participant lines in
// ascending ID order. Used for end-of-round bonuses and persistence.
func (m *Match) RoundResults() []RoundResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == 0 || m.round > len(m.rounds) {
		return nil
	}
	rd := m.rounds[m.round-1]
	out := make([]RoundResult, 0, len(m.ledgers))
	for _, id := range m.playerIDs() {
		l := m.ledgers[id]
		out = append(out, RoundResult{
			PlayerID: id,
			Kills:    rd.Kills[id],
			Damage:   rd.Damage[id],
			Alive:    rd.Alive[id],
			Spend:    l.totalSpend(),
		})
	}
	return out
}

// RoundKills reports a participant's kill count for the current round.
func (m *Match) RoundKills(id int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == 0 || m.round > len(m.rounds) {
		return 0
	}
	return m.rounds[m.round-1].Kills[id]
}

func (m *Match) LedgerView(id int64) (LedgerSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[id]
	if !ok {
		return LedgerSnapshot{}, false
	}
	return l.snapshot(), true
}

// PlayerTotal sums one participant's performance across every round played.
type PlayerTotal struct {
	PlayerID int64
	Team     Team
	Kills    int
	Damage   int64
	Balance  int64
	Won      bool
}

// Totals aggregates the retained round history for end-of-match persistence.
func (m *Match) Totals() []PlayerTotal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PlayerTotal, 0, len(m.ledgers))
	for _, id := range m.playerIDs() {
		l := m.ledgers[id]
		t := PlayerTotal{
			PlayerID: id,
			Team:     l.Team,
			Balance:  l.Balance,
			Won:      m.winner != TeamNone && l.Team == m.winner,
		}
		for _, rd := range m.rounds {
			t.Kills += rd.Kills[id]
			t.Damage += rd.Damage[id]
		}
		out = append(out, t)
	}
	return out
}

// Snapshot is the read-only surface exposed to transport and collaborators.
type Snapshot struct {
	ID        string           `json:"id"`
	Phase     string           `json:"phase"`
	Round     int              `json:"round"`
	Rounds    int              `json:"rounds"`
	AliveRed  int              `json:"alive_red"`
	AliveBlue int              `json:"alive_blue"`
	Players   []LedgerSnapshot `json:"players"`
	Winner    string           `json:"winner,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

func (m *Match) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		ID:     m.ID,
		Phase:  m.phase.String(),
		Round:  m.round,
		Rounds: m.Cfg.Rounds,
	}
	if m.round > 0 && m.round <= len(m.rounds) {
		rd := m.rounds[m.round-1]
		teams := m.teams()
		snap.AliveRed = rd.aliveCount(teams, TeamRed)
		snap.AliveBlue = rd.aliveCount(teams, TeamBlue)
	}
	for _, id := range m.playerIDs() {
		snap.Players = append(snap.Players, m.ledgers[id].snapshot())
	}
	if m.phase == PhaseEnding {
		snap.Winner = m.winner.String()
		snap.Reason = string(m.Reason)
	}
	return snap
}

package game

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/raydebug/puretexaspoker-sub007/internal/deck"
	"github.com/raydebug/puretexaspoker-sub007/internal/evaluator"
)

// TableConfig carries the immutable parameters of one table.
type TableConfig struct {
	Name       string
	Seats      int
	SmallBlind int
	BigBlind   int
	MinBuyIn   int
	MaxBuyIn   int
}

// Table is the authoritative state machine for one hold'em table: seating,
// blinds, dealing, betting, pot settlement and showdown. It is not safe for
// concurrent use; the table loop serializes all access.
type Table struct {
	ID   string
	Name string

	cfg     TableConfig
	seats   []*Seat
	phase   Phase
	hand    int
	dealer  int
	deck    *deck.Deck
	board   []deck.Card
	round   *BettingRound
	pots    *PotEngine
	history *ActionHistory
	sink    EventSink
	log     *log.Logger
	rng     *rand.Rand

	// bankroll is the lifetime chip inflow minus withdrawals. After every
	// mutation the chips on the table must sum to exactly this.
	bankroll int
	halted   bool

	lastResult *HandResult
	nextDeck   *deck.Deck // when set, seeds the next hand's deck
}

// NewTable builds an empty table with the given configuration.
func NewTable(cfg TableConfig, sink EventSink, logger *log.Logger, rng *rand.Rand) *Table {
	seats := make([]*Seat, cfg.Seats)
	for i := range seats {
		seats[i] = &Seat{Index: i}
	}
	id := ulid.Make().String()
	return &Table{
		ID:      id,
		Name:    cfg.Name,
		cfg:     cfg,
		seats:   seats,
		phase:   PhaseWaiting,
		dealer:  -1,
		pots:    newPotEngine(),
		history: newActionHistory(),
		sink:    sink,
		log:     logger.WithPrefix("table").With("table", id),
		rng:     rng,
	}
}

// Config returns the table's parameters.
func (t *Table) Config() TableConfig { return t.cfg }

// Phase returns the current hand phase.
func (t *Table) Phase() Phase { return t.phase }

// Halted reports whether an invariant violation stopped the table.
func (t *Table) Halted() bool { return t.halted }

// HandInProgress reports whether a hand is being played out.
func (t *Table) HandInProgress() bool {
	return t.phase != PhaseWaiting && t.phase != PhaseHandComplete
}

// SeatOf returns the seat index held by the player, or -1.
func (t *Table) SeatOf(playerID string) int {
	for _, s := range t.seats {
		if s.Occupied() && s.PlayerID == playerID {
			return s.Index
		}
	}
	return -1
}

// Actor returns the seat index whose turn it is, or -1.
func (t *Table) Actor() int {
	if t.round == nil || t.round.State != RoundOpen {
		return -1
	}
	return t.round.Turn
}

// History returns the action log of the current or last completed hand.
func (t *Table) History() []ActionHistoryEntry {
	return t.history.Entries()
}

// HistorySeq returns the last issued history sequence number.
func (t *Table) HistorySeq() int {
	return t.history.Seq()
}

// LastResult returns the most recent hand result, or nil.
func (t *Table) LastResult() *HandResult {
	return t.lastResult
}

// HoleCards returns the player's current hole cards.
func (t *Table) HoleCards(playerID string) []deck.Card {
	idx := t.SeatOf(playerID)
	if idx == -1 {
		return nil
	}
	return t.seats[idx].HoleCards
}

// SeatPlayer seats a player with the given buy-in. seatIdx -1 picks the first
// empty seat. A player joining mid-hand waits for the next deal.
func (t *Table) SeatPlayer(playerID, name string, seatIdx, buyIn int) (int, error) {
	if t.halted {
		return -1, ErrTableHalted
	}
	if t.SeatOf(playerID) != -1 {
		return -1, fmt.Errorf("%w: player %s is already seated", ErrSeatConflict, playerID)
	}
	if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
		return -1, fmt.Errorf("%w: buy-in %d outside [%d, %d]", ErrIllegalAction, buyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
	}
	if seatIdx == -1 {
		for _, s := range t.seats {
			if !s.Occupied() {
				seatIdx = s.Index
				break
			}
		}
		if seatIdx == -1 {
			return -1, fmt.Errorf("%w: table is full", ErrSeatConflict)
		}
	}
	if seatIdx < 0 || seatIdx >= len(t.seats) {
		return -1, fmt.Errorf("%w: seat %d does not exist", ErrSeatConflict, seatIdx)
	}
	seat := t.seats[seatIdx]
	if seat.Occupied() {
		return -1, fmt.Errorf("%w: seat %d is taken", ErrSeatConflict, seatIdx)
	}

	seat.PlayerID = playerID
	seat.Name = name
	seat.Stack = buyIn
	seat.Status = SeatSeated
	t.bankroll += buyIn
	t.log.Info("player seated", "player", playerID, "seat", seatIdx, "buyIn", buyIn)
	t.audit()
	t.broadcastState()
	return seatIdx, nil
}

// StandUp removes the player and returns the chips handed back. Standing up
// mid-hand folds; chips already wagered stay in the pot.
func (t *Table) StandUp(playerID string) (int, error) {
	if t.halted {
		return 0, ErrTableHalted
	}
	idx := t.SeatOf(playerID)
	if idx == -1 {
		return 0, fmt.Errorf("%w: player %s is not seated", ErrSeatConflict, playerID)
	}
	seat := t.seats[idx]
	returned := seat.Stack
	seat.Stack = 0
	t.bankroll -= returned

	if t.HandInProgress() && seat.inHand {
		t.foldOut(seat)
		seat.departing = true
		t.log.Info("player stood up mid-hand", "player", playerID, "seat", idx, "returned", returned)
		t.progress()
	} else {
		seat.clear()
		t.log.Info("player stood up", "player", playerID, "seat", idx, "returned", returned)
	}
	t.audit()
	t.broadcastState()
	return returned, nil
}

// Rebuy adds chips to the player's stack between hands.
func (t *Table) Rebuy(playerID string, amount int) error {
	if t.halted {
		return ErrTableHalted
	}
	idx := t.SeatOf(playerID)
	if idx == -1 {
		return fmt.Errorf("%w: player %s is not seated", ErrSeatConflict, playerID)
	}
	seat := t.seats[idx]
	if t.HandInProgress() && seat.inHand {
		return fmt.Errorf("%w: rebuy while in a hand", ErrHandInProgress)
	}
	if amount <= 0 || seat.Stack+amount > t.cfg.MaxBuyIn {
		return fmt.Errorf("%w: rebuy of %d would exceed max buy-in %d", ErrIllegalAction, amount, t.cfg.MaxBuyIn)
	}
	seat.Stack += amount
	t.bankroll += amount
	if seat.Status == SeatSittingOut {
		seat.Status = SeatSeated
	}
	t.log.Info("rebuy", "player", playerID, "seat", idx, "amount", amount)
	t.audit()
	t.broadcastState()
	return nil
}

// SetAway toggles the player's away flag. Away seats are skipped when dealing
// and auto-acted when a hand is already underway.
func (t *Table) SetAway(playerID string, away bool) error {
	if t.halted {
		return ErrTableHalted
	}
	idx := t.SeatOf(playerID)
	if idx == -1 {
		return fmt.Errorf("%w: player %s is not seated", ErrSeatConflict, playerID)
	}
	t.seats[idx].Away = away
	if away {
		t.progress()
	}
	t.audit()
	t.broadcastState()
	return nil
}

// TryStartHand begins a new hand when at least two funded, present players
// are seated. It reports whether a hand started.
func (t *Table) TryStartHand() bool {
	if t.halted || t.HandInProgress() {
		return false
	}

	inHand := 0
	for _, s := range t.seats {
		s.resetForHand()
		if s.Away || s.departing {
			s.inHand = false
		}
		if s.inHand {
			inHand++
		}
	}
	if inHand < 2 {
		t.phase = PhaseWaiting
		return false
	}

	t.hand++
	t.history.beginHand(t.hand)
	t.board = nil
	t.lastResult = nil
	if t.nextDeck != nil {
		t.deck = t.nextDeck
		t.nextDeck = nil
	} else {
		t.deck = deck.New(t.rng)
		t.deck.Shuffle()
	}

	t.dealer = t.nextInHand(t.dealer + 1)

	// Heads-up the button posts the small blind and acts first preflop.
	var sb, bb int
	if inHand == 2 {
		sb = t.dealer
		bb = t.nextInHand(sb + 1)
	} else {
		sb = t.nextInHand(t.dealer + 1)
		bb = t.nextInHand(sb + 1)
	}

	t.phase = PhasePreflop
	t.round = newBettingRound(PhasePreflop, t.cfg.BigBlind)

	posted := t.round.postBlind(t.seats[sb], t.cfg.SmallBlind)
	t.emit(ActionEvent{Entry: t.history.append(sb, KindSmallBlind, posted, PhasePreflop)})
	posted = t.round.postBlind(t.seats[bb], t.cfg.BigBlind)
	t.emit(ActionEvent{Entry: t.history.append(bb, KindBigBlind, posted, PhasePreflop)})

	t.dealHoleCards()
	t.round.open(t.seats, bb+1)

	t.log.Info("hand started", "hand", t.hand, "dealer", t.dealer, "players", inHand)
	t.emit(HandStartEvent{Hand: t.hand, Dealer: t.dealer, SmallBlindSeat: sb, BigBlindSeat: bb})

	t.progress()
	t.audit()
	t.broadcastState()
	return true
}

// HandleAction applies a player's betting action.
func (t *Table) HandleAction(playerID string, action Action, amount int) error {
	if t.halted {
		return ErrTableHalted
	}
	if !t.phase.Betting() || t.round == nil {
		return fmt.Errorf("%w: no betting round open", ErrIllegalAction)
	}
	idx := t.SeatOf(playerID)
	if idx == -1 {
		return fmt.Errorf("%w: player %s is not seated", ErrSeatConflict, playerID)
	}

	applied, err := t.round.apply(t.seats, idx, action, amount)
	if err != nil {
		return err
	}
	t.emit(ActionEvent{Entry: t.history.append(applied.Seat, applied.Action.String(), applied.Amount, t.phase)})
	t.log.Debug("action", "hand", t.hand, "seat", idx, "action", applied.Action, "amount", applied.Amount)

	t.progress()
	t.audit()
	t.broadcastState()
	return nil
}

// AutoAct plays the forced action for the seat at idx: check when free, fold
// otherwise. Used for turn timeouts and away seats.
func (t *Table) AutoAct(idx int) {
	if t.halted || t.round == nil || t.round.State != RoundOpen || t.round.Turn != idx {
		return
	}
	t.autoAct(idx)
	t.progress()
	t.audit()
	t.broadcastState()
}

func (t *Table) autoAct(idx int) {
	seat := t.seats[idx]
	action := Fold
	if seat.Bet == t.round.CurrentBet {
		action = Check
	}
	applied, err := t.round.apply(t.seats, idx, action, 0)
	if err != nil {
		t.halt(fmt.Sprintf("auto action rejected for seat %d: %v", idx, err))
		return
	}
	t.emit(ActionEvent{Entry: t.history.append(idx, applied.Action.String(), applied.Amount, t.phase), Auto: true})
	t.log.Debug("auto action", "hand", t.hand, "seat", idx, "action", applied.Action)
}

// foldOut folds a seat outside the normal turn flow, advancing the turn when
// the seat was the actor.
func (t *Table) foldOut(seat *Seat) {
	wasTurn := t.round != nil && t.round.State == RoundOpen && t.round.Turn == seat.Index
	seat.Status = SeatFolded
	seat.acted = true
	t.emit(ActionEvent{Entry: t.history.append(seat.Index, Fold.String(), 0, t.phase), Auto: true})
	if wasTurn {
		t.round.advance(t.seats, seat.Index)
	}
}

// progress drives the hand forward through everything that needs no player
// input: uncontested wins, closed rounds, street deals, all-in runouts,
// showdown, and auto actions for away or departing actors.
func (t *Table) progress() {
	for t.HandInProgress() && !t.halted {
		if t.contenders() == 1 {
			t.finishUncontested()
			return
		}
		if t.round == nil {
			return
		}
		if t.round.State == RoundClosed {
			t.advanceStreet()
			continue
		}
		idx := t.round.Turn
		if idx >= 0 && (t.seats[idx].Away || t.seats[idx].departing) {
			t.autoAct(idx)
			continue
		}
		return
	}
}

// advanceStreet settles the closed round and deals the next street, or runs
// the showdown after the river.
func (t *Table) advanceStreet() {
	t.pots.settleRound(t.seats)

	switch t.phase {
	case PhasePreflop:
		t.dealBoard(PhaseFlop, 3)
	case PhaseFlop:
		t.dealBoard(PhaseTurn, 1)
	case PhaseTurn:
		t.dealBoard(PhaseRiver, 1)
	case PhaseRiver:
		t.showdown()
		return
	default:
		t.halt(fmt.Sprintf("round closed in phase %s", t.phase))
		return
	}
	if t.halted {
		return
	}

	t.round = newBettingRound(t.phase, t.cfg.BigBlind)
	t.round.open(t.seats, t.dealer+1)
}

// dealBoard burns one card and deals n to the board.
func (t *Table) dealBoard(phase Phase, n int) {
	if err := t.deck.Burn(); err != nil {
		t.halt(fmt.Sprintf("deck exhausted dealing %s: %v", phase, err))
		return
	}
	cards, err := t.deck.Draw(n)
	if err != nil {
		t.halt(fmt.Sprintf("deck exhausted dealing %s: %v", phase, err))
		return
	}
	t.board = append(t.board, cards...)
	t.phase = phase
	t.emit(StreetEvent{Phase: phase, Board: t.boardCopy()})
	t.log.Debug("street dealt", "hand", t.hand, "phase", phase, "board", t.board)
}

// dealHoleCards deals two cards to each seat in the hand, one per pass,
// starting left of the dealer.
func (t *Table) dealHoleCards() {
	for pass := 0; pass < 2; pass++ {
		for i := 1; i <= len(t.seats); i++ {
			seat := t.seats[(t.dealer+i)%len(t.seats)]
			if !seat.inHand {
				continue
			}
			cards, err := t.deck.Draw(1)
			if err != nil {
				t.halt(fmt.Sprintf("deck exhausted dealing hole cards: %v", err))
				return
			}
			seat.HoleCards = append(seat.HoleCards, cards[0])
		}
	}
	for _, s := range t.seats {
		if s.inHand {
			t.emit(HoleCardsEvent{PlayerID: s.PlayerID, Seat: s.Index, Cards: append([]deck.Card(nil), s.HoleCards...)})
		}
	}
}

// showdown evaluates every remaining hand, awards the pots and closes out.
func (t *Table) showdown() {
	t.phase = PhaseShowdown
	ranks := make(map[int]evaluator.HandRank)
	var shown []ShownHand
	for _, s := range t.seats {
		if !s.InHand() {
			continue
		}
		rank := evaluator.Evaluate(append(append([]deck.Card(nil), s.HoleCards...), t.board...))
		ranks[s.Index] = rank
		shown = append(shown, ShownHand{Seat: s.Index, Cards: append([]deck.Card(nil), s.HoleCards...), Rank: rank.String()})
	}

	awards := t.pots.award(t.seats, ranks, t.dealer)
	t.finishHand(awards, shown)
}

// finishUncontested hands everything to the last seat standing without a
// showdown or reveal.
func (t *Table) finishUncontested() {
	t.pots.settleRound(t.seats)
	awards := t.pots.award(t.seats, nil, t.dealer)
	t.round = nil
	t.finishHand(awards, nil)
}

func (t *Table) finishHand(awards []PotAward, shown []ShownHand) {
	t.phase = PhaseHandComplete
	t.round = nil

	result := HandResult{Hand: t.hand, Board: t.boardCopy(), Awards: awards, Showdown: shown}
	t.lastResult = &result
	t.log.Info("hand complete", "hand", t.hand, "awards", len(awards))
	t.emit(HandResultEvent{Result: result})

	for _, s := range t.seats {
		if s.departing {
			s.clear()
			continue
		}
		if s.Occupied() && s.Stack == 0 {
			s.Status = SeatSittingOut
		}
	}
	t.audit()
}

// contenders counts the seats still in the hand.
func (t *Table) contenders() int {
	n := 0
	for _, s := range t.seats {
		if s.InHand() {
			n++
		}
	}
	return n
}

// nextInHand returns the first in-hand seat index at or after from.
func (t *Table) nextInHand(from int) int {
	n := len(t.seats)
	for i := 0; i < n; i++ {
		idx := ((from+i)%n + n) % n
		if t.seats[idx].inHand {
			return idx
		}
	}
	return -1
}

// Snapshot builds the public view of the table.
func (t *Table) Snapshot() TableSnapshot {
	snap := TableSnapshot{
		TableID:  t.ID,
		Name:     t.Name,
		Phase:    t.phase.String(),
		Hand:     t.hand,
		Dealer:   t.dealer,
		Board:    t.boardCopy(),
		Pots:     t.pots.Pots(),
		TotalPot: t.pots.Total(),
		Actor:    t.Actor(),
		Seats:    make([]SeatInfo, len(t.seats)),
	}
	if t.round != nil {
		snap.CurrentBet = t.round.CurrentBet
		snap.MinRaise = t.round.MinRaise
		snap.TotalPot += t.liveBets()
		if snap.Actor != -1 {
			snap.ValidActions = t.round.legalActions(t.seats, snap.Actor)
		}
	}
	// Hands revealed at showdown are public until the next deal. Uncontested
	// wins reveal nothing.
	revealed := t.phase == PhaseHandComplete && t.lastResult != nil && len(t.lastResult.Showdown) > 0
	for i, s := range t.seats {
		snap.Seats[i] = SeatInfo{
			Index:    s.Index,
			PlayerID: s.PlayerID,
			Name:     s.Name,
			Stack:    s.Stack,
			Status:   s.Status.String(),
			Away:     s.Away,
			Bet:      s.Bet,
			TotalBet: s.TotalBet,
		}
		if revealed && s.InHand() {
			snap.Seats[i].HoleCards = append([]deck.Card(nil), s.HoleCards...)
		}
	}
	return snap
}

func (t *Table) liveBets() int {
	total := 0
	for _, s := range t.seats {
		total += s.Bet
	}
	return total
}

func (t *Table) boardCopy() []deck.Card {
	return append([]deck.Card(nil), t.board...)
}

// audit checks chip conservation: stacks plus live bets plus settled pots
// must equal the lifetime inflow. A mismatch halts the table.
func (t *Table) audit() {
	if t.halted {
		return
	}
	total := t.pots.Total() + t.liveBets()
	for _, s := range t.seats {
		total += s.Stack
	}
	if total != t.bankroll {
		t.halt((&InvariantError{Table: t.ID, Reason: fmt.Sprintf("chip conservation violated: counted %d, expected %d", total, t.bankroll)}).Error())
	}
}

func (t *Table) halt(reason string) {
	if t.halted {
		return
	}
	t.halted = true
	t.log.Error("table halted", "reason", reason)
	t.emit(HaltedEvent{Reason: reason})
}

func (t *Table) emit(ev Event) {
	if t.sink != nil {
		t.sink.OnEvent(t.ID, ev)
	}
}

func (t *Table) broadcastState() {
	t.emit(TableStateEvent{State: t.Snapshot()})
}

// seedDeck plants a prepared deck for the next hand.
func (t *Table) seedDeck(d *deck.Deck) {
	t.nextDeck = d
}

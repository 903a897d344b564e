package game

import "fmt"

// RoundState tracks a betting round's lifecycle: OPEN while an actor is
// awaited, CLOSED once every remaining seat has matched or is all-in, SETTLED
// after the pot engine folded the contributions in.
type RoundState int

const (
	RoundOpen RoundState = iota
	RoundClosed
	RoundSettled
)

// BettingRound enforces legal actions, minimum raise sizing, turn rotation
// and round-completion detection for one street.
type BettingRound struct {
	Phase         Phase
	State         RoundState
	CurrentBet    int // highest per-seat contribution this round
	MinRaise      int // minimum raise increment (last full raise, or big blind)
	LastAggressor int // seat index of the last full raise, -1 when none
	Turn          int // seat index whose turn it is, -1 when closed

	bigBlind int
}

func newBettingRound(phase Phase, bigBlind int) *BettingRound {
	return &BettingRound{
		Phase:         phase,
		State:         RoundOpen,
		MinRaise:      bigBlind,
		LastAggressor: -1,
		Turn:          -1,
		bigBlind:      bigBlind,
	}
}

// postBlind posts a forced contribution. Short stacks post what they have and
// are all-in. Blinds do not count as having acted: the big blind retains its
// option when action returns unraised.
func (br *BettingRound) postBlind(seat *Seat, amount int) int {
	posted := min(amount, seat.Stack)
	seat.place(posted)
	if seat.Bet > br.CurrentBet {
		br.CurrentBet = seat.Bet
	}
	return posted
}

// open sets the first actor, scanning clockwise from the given seat index.
// The round closes immediately when nobody can act (everyone all-in).
func (br *BettingRound) open(seats []*Seat, first int) {
	br.Turn = br.nextPending(seats, first)
	if br.Turn == -1 {
		br.State = RoundClosed
	}
}

// Applied describes the normalized outcome of an accepted action. A call for
// less than the current bet comes back as AllIn, matching how the action is
// recorded and broadcast.
type Applied struct {
	Seat        int
	Action      Action
	Amount      int // chips moved by this action
	RoundClosed bool
}

// apply validates and executes an action for the seat at idx. For Bet and
// Raise the amount is the seat's total contribution for the round ("raise
// to"). Rejected actions leave all state untouched.
func (br *BettingRound) apply(seats []*Seat, idx int, action Action, amount int) (Applied, error) {
	if br.State != RoundOpen {
		return Applied{}, fmt.Errorf("%w: betting round is not open", ErrIllegalAction)
	}
	if idx != br.Turn {
		return Applied{}, fmt.Errorf("%w: not seat %d's turn", ErrIllegalAction, idx)
	}
	seat := seats[idx]

	applied := Applied{Seat: idx, Action: action}
	switch action {
	case Fold:
		seat.Status = SeatFolded
		seat.acted = true

	case Check:
		if seat.Bet != br.CurrentBet {
			return Applied{}, fmt.Errorf("%w: cannot check facing a bet of %d", ErrIllegalAction, br.CurrentBet)
		}
		seat.acted = true

	case Call:
		toCall := br.CurrentBet - seat.Bet
		if toCall <= 0 {
			return Applied{}, fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		amount := toCall
		if toCall >= seat.Stack {
			// Short call: reclassified as an all-in for the available amount.
			applied.Action = AllIn
			amount = seat.Stack
		}
		if err := contribute(seat, amount); err != nil {
			return Applied{}, err
		}
		applied.Amount = amount
		seat.acted = true

	case Bet:
		if br.CurrentBet != 0 {
			return Applied{}, fmt.Errorf("%w: cannot bet facing a bet, raise instead", ErrIllegalAction)
		}
		a, err := br.raiseTo(seats, seat, amount)
		if err != nil {
			return Applied{}, err
		}
		applied = a

	case Raise:
		a, err := br.raiseTo(seats, seat, amount)
		if err != nil {
			return Applied{}, err
		}
		applied = a

	case AllIn:
		a, err := br.raiseTo(seats, seat, seat.Stack+seat.Bet)
		if err != nil {
			return Applied{}, err
		}
		applied = a

	default:
		return Applied{}, fmt.Errorf("%w: unknown action", ErrIllegalAction)
	}

	applied.Seat = idx
	br.advance(seats, idx)
	applied.RoundClosed = br.State == RoundClosed
	return applied, nil
}

// raiseTo moves the seat's round contribution up to the given total. A raise
// short of the minimum increment is only legal as an all-in, and such a short
// all-in does not reopen betting: the minimum raise and acted flags are left
// as they were, so players who already matched the prior bet may call or fold
// but not raise again.
func (br *BettingRound) raiseTo(seats []*Seat, seat *Seat, to int) (Applied, error) {
	available := seat.Stack + seat.Bet
	allIn := false
	if to >= available {
		to = available
		allIn = true
	}

	if to <= br.CurrentBet {
		if !allIn {
			return Applied{}, fmt.Errorf("%w: raise to %d does not exceed current bet %d", ErrIllegalAction, to, br.CurrentBet)
		}
		// All-in below the current bet: a call for less.
		amount := to - seat.Bet
		if amount <= 0 {
			return Applied{}, fmt.Errorf("%w: nothing behind", ErrIllegalAction)
		}
		if err := contribute(seat, amount); err != nil {
			return Applied{}, err
		}
		seat.acted = true
		return Applied{Action: AllIn, Amount: amount}, nil
	}

	if seat.acted {
		return Applied{}, fmt.Errorf("%w: betting was not reopened for seat %d", ErrIllegalAction, seat.Index)
	}

	delta := to - br.CurrentBet
	if delta < br.MinRaise && !allIn {
		return Applied{}, fmt.Errorf("%w: raise of %d below minimum %d", ErrIllegalAction, delta, br.MinRaise)
	}

	if delta >= br.MinRaise {
		// Full raise: reopens the action for everyone still able to act.
		br.MinRaise = delta
		br.LastAggressor = seat.Index
		for _, s := range seats {
			if s != seat && s.CanAct() {
				s.acted = false
			}
		}
	}
	amount := to - seat.Bet
	if err := contribute(seat, amount); err != nil {
		return Applied{}, err
	}
	br.CurrentBet = to
	seat.acted = true

	action := Raise
	if allIn {
		action = AllIn
	}
	return Applied{Action: action, Amount: amount}, nil
}

// advance moves the turn to the next pending seat clockwise, closing the
// round when none remains.
func (br *BettingRound) advance(seats []*Seat, from int) {
	br.Turn = br.nextPending(seats, from+1)
	if br.Turn == -1 {
		br.State = RoundClosed
	}
}

// pending reports whether the seat still owes an action this round: it can
// act and has either not acted at the current bet level or has not matched
// the current bet.
func (br *BettingRound) pending(seat *Seat) bool {
	return seat.CanAct() && (!seat.acted || seat.Bet != br.CurrentBet)
}

// nextPending scans one full clockwise lap starting at from.
func (br *BettingRound) nextPending(seats []*Seat, from int) int {
	n := len(seats)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if br.pending(seats[idx]) {
			return idx
		}
	}
	return -1
}

// ValidAction describes one action currently legal for the acting seat,
// with its chip bounds for bets and raises.
type ValidAction struct {
	Action Action `json:"action"`
	Min    int    `json:"min,omitempty"`
	Max    int    `json:"max,omitempty"`
}

// legalActions projects the action menu for the seat at idx. It is a pure
// function of round state, used for broadcasts and never for enforcement.
func (br *BettingRound) legalActions(seats []*Seat, idx int) []ValidAction {
	if br.State != RoundOpen || idx != br.Turn {
		return nil
	}
	seat := seats[idx]
	actions := []ValidAction{{Action: Fold}}

	toCall := br.CurrentBet - seat.Bet
	if toCall <= 0 {
		actions = append(actions, ValidAction{Action: Check})
	} else {
		actions = append(actions, ValidAction{Action: Call, Min: min(toCall, seat.Stack), Max: min(toCall, seat.Stack)})
	}

	available := seat.Stack + seat.Bet
	if !seat.acted && available > br.CurrentBet {
		kind := Raise
		if br.CurrentBet == 0 {
			kind = Bet
		}
		actions = append(actions, ValidAction{
			Action: kind,
			Min:    min(br.CurrentBet+br.MinRaise, available),
			Max:    available,
		})
	}
	// A shove is legal when it raises (seat not acted) or when it is a call
	// for less (stack does not cover the current bet).
	if seat.Stack > 0 && (!seat.acted || available <= br.CurrentBet) {
		actions = append(actions, ValidAction{Action: AllIn, Min: seat.Stack, Max: seat.Stack})
	}
	return actions
}

package game

import "github.com/raydebug/puretexaspoker-sub007/internal/deck"

// SeatStatus tracks a seat's standing within the table and the current hand.
type SeatStatus int

const (
	SeatEmpty SeatStatus = iota
	SeatSeated
	SeatFolded
	SeatAllIn
	SeatSittingOut
)

func (s SeatStatus) String() string {
	switch s {
	case SeatEmpty:
		return "empty"
	case SeatSeated:
		return "seated"
	case SeatFolded:
		return "folded"
	case SeatAllIn:
		return "allin"
	case SeatSittingOut:
		return "sitting_out"
	default:
		return "unknown"
	}
}

// Seat is one position in the table's fixed seat arena. Seats are owned
// exclusively by the Table; everything else refers to them by index.
type Seat struct {
	Index     int
	PlayerID  string
	Name      string
	Stack     int
	Status    SeatStatus
	Away      bool
	HoleCards []deck.Card

	// Per-hand betting ledger. Bet is the contribution in the current
	// betting round, TotalBet across the whole hand.
	Bet      int
	TotalBet int

	inHand    bool // dealt into the current hand
	acted     bool // has acted at the current bet level
	departing bool // stood up mid-hand, seat clears at hand end
}

// Occupied reports whether a player holds this seat.
func (s *Seat) Occupied() bool {
	return s.Status != SeatEmpty
}

// InHand reports whether the seat was dealt in and has not folded.
func (s *Seat) InHand() bool {
	return s.inHand && s.Status != SeatFolded
}

// CanAct reports whether the seat may still take betting actions this hand.
func (s *Seat) CanAct() bool {
	return s.InHand() && s.Status != SeatAllIn
}

// place moves amount from stack into the round ledger, marking the seat
// all-in when the stack is emptied. Callers validate amount <= Stack.
func (s *Seat) place(amount int) {
	s.Stack -= amount
	s.Bet += amount
	s.TotalBet += amount
	if s.Stack == 0 {
		s.Status = SeatAllIn
	}
}

// clear vacates the seat, keeping only its index.
func (s *Seat) clear() {
	*s = Seat{Index: s.Index}
}

// resetForHand clears the per-hand ledger and deals the seat in when it is
// occupied, not sitting out, and funded.
func (s *Seat) resetForHand() {
	s.Bet = 0
	s.TotalBet = 0
	s.HoleCards = nil
	s.acted = false
	s.inHand = false
	if s.Status == SeatFolded || s.Status == SeatAllIn {
		s.Status = SeatSeated
	}
	if s.Status == SeatSeated && s.Stack > 0 {
		s.inHand = true
	}
}

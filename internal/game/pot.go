package game

import (
	"fmt"
	"sort"

	"github.com/raydebug/puretexaspoker-sub007/internal/evaluator"
)

// Pot is one segment of the wagered chips. Cap is the per-player contribution
// level that closed this pot (0 for the open, uncapped segment). Eligible
// lists the seat indices that can win it: seats still in the hand that
// contributed past the previous cap.
type Pot struct {
	Amount   int   `json:"amount"`
	Cap      int   `json:"cap,omitempty"`
	Eligible []int `json:"eligible"`
}

// PotEngine folds per-round contributions into the main pot and side pots.
// Pots are recomputed from the seats' per-hand ledgers at every round
// settlement, which keeps the layering correct however the all-ins stack up.
type PotEngine struct {
	pots []Pot
}

func newPotEngine() *PotEngine {
	return &PotEngine{}
}

// contribute moves amount from the seat's stack into the round ledger. It is
// the single funnel through which chips enter play.
func contribute(seat *Seat, amount int) error {
	if amount > seat.Stack {
		return fmt.Errorf("%w: seat %d has %d, needs %d", ErrInsufficientStack, seat.Index, seat.Stack, amount)
	}
	seat.place(amount)
	return nil
}

// settleRound folds the current round's contributions into the pot structure
// and clears the per-round ledgers. Contributions capped by an all-in form
// side pots eligible only to seats that contributed beyond that cap.
func (pe *PotEngine) settleRound(seats []*Seat) {
	for _, s := range seats {
		s.Bet = 0
		s.acted = false
	}

	// Distinct all-in contribution levels define the pot caps, ascending.
	capSet := map[int]bool{}
	for _, s := range seats {
		if s.Status == SeatAllIn && s.TotalBet > 0 {
			capSet[s.TotalBet] = true
		}
	}
	caps := make([]int, 0, len(capSet))
	for c := range capSet {
		caps = append(caps, c)
	}
	sort.Ints(caps)

	pe.pots = pe.pots[:0]
	prev := 0
	for _, level := range caps {
		pot := Pot{Cap: level}
		for _, s := range seats {
			layer := min(s.TotalBet, level) - prev
			if layer > 0 {
				pot.Amount += layer
			}
			if s.InHand() && s.TotalBet > prev {
				pot.Eligible = append(pot.Eligible, s.Index)
			}
		}
		if pot.Amount > 0 {
			pe.pots = append(pe.pots, pot)
		}
		prev = level
	}

	// Uncapped remainder. Folded contributions above the last cap stay in,
	// eligibility does not: chips are conserved, claims are not.
	open := Pot{}
	for _, s := range seats {
		if s.TotalBet > prev {
			open.Amount += s.TotalBet - prev
		}
		if s.InHand() && s.TotalBet > prev {
			open.Eligible = append(open.Eligible, s.Index)
		}
	}
	if open.Amount > 0 {
		pe.pots = append(pe.pots, open)
	}
}

// Pots returns a copy of the current pot structure.
func (pe *PotEngine) Pots() []Pot {
	pots := make([]Pot, len(pe.pots))
	copy(pots, pe.pots)
	return pots
}

// Total returns the settled chips across all pots.
func (pe *PotEngine) Total() int {
	total := 0
	for _, p := range pe.pots {
		total += p.Amount
	}
	return total
}

// SeatWin is one seat's share of one pot.
type SeatWin struct {
	Seat   int                `json:"seat"`
	Amount int                `json:"amount"`
	Rank   evaluator.HandRank `json:"rank,omitempty"`
}

// PotAward is the resolution of a single pot.
type PotAward struct {
	Pot     int       `json:"pot"`
	Amount  int       `json:"amount"`
	Winners []SeatWin `json:"winners"`
}

// award distributes every pot to its best-ranked eligible seats and credits
// their stacks. Ties split as evenly as integer chips allow; any odd
// remainder chips go to winners in clockwise order starting left of the
// dealer. That rule is fixed so replays settle identically.
func (pe *PotEngine) award(seats []*Seat, ranks map[int]evaluator.HandRank, dealer int) []PotAward {
	awards := make([]PotAward, 0, len(pe.pots))
	for i, pot := range pe.pots {
		winners := potWinners(pot, seats, ranks)
		if len(winners) == 0 {
			// Every contributor to this pot folded. The chips go to the
			// remaining contenders instead of evaporating.
			fallback := Pot{Eligible: inHandSeats(seats)}
			winners = potWinners(fallback, seats, ranks)
		}
		if len(winners) == 0 {
			continue
		}
		sortClockwiseFrom(winners, dealer+1, len(seats))

		award := PotAward{Pot: i, Amount: pot.Amount}
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for j, w := range winners {
			amount := share
			if j < remainder {
				amount++
			}
			seats[w].Stack += amount
			award.Winners = append(award.Winners, SeatWin{Seat: w, Amount: amount, Rank: ranks[w]})
		}
		awards = append(awards, award)
	}
	pe.pots = nil
	return awards
}

// potWinners picks the eligible seats holding the best rank. With no ranks
// (uncontested hand) every remaining eligible seat wins.
func potWinners(pot Pot, seats []*Seat, ranks map[int]evaluator.HandRank) []int {
	var best evaluator.HandRank
	var winners []int
	for _, idx := range pot.Eligible {
		if !seats[idx].InHand() {
			continue
		}
		rank := ranks[idx]
		switch evaluator.Compare(rank, best) {
		case 1:
			best = rank
			winners = winners[:0]
			winners = append(winners, idx)
		case 0:
			winners = append(winners, idx)
		}
	}
	return winners
}

// inHandSeats lists the indices of seats still in the hand.
func inHandSeats(seats []*Seat) []int {
	var idxs []int
	for _, s := range seats {
		if s.InHand() {
			idxs = append(idxs, s.Index)
		}
	}
	return idxs
}

// sortClockwiseFrom orders seat indices by clockwise distance from start.
func sortClockwiseFrom(seatIdxs []int, start, n int) {
	sort.Slice(seatIdxs, func(i, j int) bool {
		di := (seatIdxs[i] - start + n) % n
		dj := (seatIdxs[j] - start + n) % n
		return di < dj
	})
}

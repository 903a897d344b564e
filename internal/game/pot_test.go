package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raydebug/puretexaspoker-sub007/internal/evaluator"
)

func TestContributeRejectsOverdraw(t *testing.T) {
	seats := newSeats(10)
	err := contribute(seats[0], 11)
	require.ErrorIs(t, err, ErrInsufficientStack)
	assert.Equal(t, 10, seats[0].Stack)
	assert.Equal(t, 0, seats[0].Bet)
}

func TestSidePotLayers(t *testing.T) {
	// Seat 0 is all-in for 50; seats 1 and 2 continue to 200 each.
	seats := newSeats(50, 200, 200)
	require.NoError(t, contribute(seats[0], 50))
	require.NoError(t, contribute(seats[1], 200))
	require.NoError(t, contribute(seats[2], 200))
	require.Equal(t, SeatAllIn, seats[0].Status)

	pe := newPotEngine()
	pe.settleRound(seats)

	pots := pe.Pots()
	require.Len(t, pots, 2)

	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, 50, pots[0].Cap)
	assert.Equal(t, []int{0, 1, 2}, pots[0].Eligible)

	assert.Equal(t, 300, pots[1].Amount)
	assert.Equal(t, 0, pots[1].Cap)
	assert.Equal(t, []int{1, 2}, pots[1].Eligible)

	assert.Equal(t, 450, pe.Total())
}

func TestSettleRoundClearsRoundBets(t *testing.T) {
	seats := newSeats(100, 100)
	require.NoError(t, contribute(seats[0], 10))
	require.NoError(t, contribute(seats[1], 10))

	pe := newPotEngine()
	pe.settleRound(seats)

	for _, s := range seats {
		assert.Equal(t, 0, s.Bet)
		assert.Equal(t, 10, s.TotalBet)
		assert.False(t, s.acted)
	}
}

func TestMultiRoundSettlementRebuildsLayers(t *testing.T) {
	// Round one: everyone in for 20. Round two: seat 0 all-in for 30 more,
	// seat 1 covers. The main pot cap is the all-in total across the hand.
	seats := newSeats(50, 200, 200)
	for _, s := range seats {
		require.NoError(t, contribute(s, 20))
	}
	pe := newPotEngine()
	pe.settleRound(seats)
	require.Equal(t, 60, pe.Total())

	require.NoError(t, contribute(seats[0], 30))
	require.NoError(t, contribute(seats[1], 30))
	seats[2].Status = SeatFolded
	pe.settleRound(seats)

	pots := pe.Pots()
	require.Len(t, pots, 1)
	assert.Equal(t, 120, pots[0].Amount)
	assert.Equal(t, 50, pots[0].Cap)
	assert.Equal(t, []int{0, 1}, pots[0].Eligible)
}

func TestFoldedChipsStayInPotWithoutEligibility(t *testing.T) {
	// Seat 1 raises beyond the all-in cap and folds: the excess stays in
	// the pot but the folder cannot win anything.
	seats := newSeats(50, 200, 200)
	require.NoError(t, contribute(seats[0], 50))
	require.NoError(t, contribute(seats[1], 80))
	require.NoError(t, contribute(seats[2], 80))
	seats[1].Status = SeatFolded

	pe := newPotEngine()
	pe.settleRound(seats)

	pots := pe.Pots()
	require.Len(t, pots, 2)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []int{0, 2}, pots[0].Eligible)
	assert.Equal(t, 60, pots[1].Amount)
	assert.Equal(t, []int{2}, pots[1].Eligible)

	// No chips were lost.
	assert.Equal(t, 50+80+80, pe.Total())
}

func TestAwardSplitsEvenly(t *testing.T) {
	seats := newSeats(100, 100)
	require.NoError(t, contribute(seats[0], 10))
	require.NoError(t, contribute(seats[1], 10))

	pe := newPotEngine()
	pe.settleRound(seats)

	ranks := map[int]evaluator.HandRank{0: 500, 1: 500}
	awards := pe.award(seats, ranks, 0)

	require.Len(t, awards, 1)
	require.Len(t, awards[0].Winners, 2)
	assert.Equal(t, 100, seats[0].Stack)
	assert.Equal(t, 100, seats[1].Stack)
	assert.Empty(t, pe.Pots())
}

func TestOddChipGoesClockwiseFromDealer(t *testing.T) {
	seats := newSeats(100, 100, 100)
	require.NoError(t, contribute(seats[0], 5))
	require.NoError(t, contribute(seats[1], 5))
	require.NoError(t, contribute(seats[2], 5))
	seats[2].Status = SeatFolded

	pe := newPotEngine()
	pe.settleRound(seats)
	require.Equal(t, 15, pe.Total())

	// Seats 0 and 1 tie for a 15 chip pot with the button on seat 1: the
	// first winner clockwise from the button is seat 2's side, so seat 0
	// takes the odd chip.
	ranks := map[int]evaluator.HandRank{0: 700, 1: 700}
	awards := pe.award(seats, ranks, 1)

	require.Len(t, awards, 1)
	require.Len(t, awards[0].Winners, 2)
	assert.Equal(t, 0, awards[0].Winners[0].Seat)
	assert.Equal(t, 8, awards[0].Winners[0].Amount)
	assert.Equal(t, 7, awards[0].Winners[1].Amount)
	assert.Equal(t, 103, seats[0].Stack)
	assert.Equal(t, 102, seats[1].Stack)
}

func TestAwardUncontested(t *testing.T) {
	seats := newSeats(100, 100)
	require.NoError(t, contribute(seats[0], 2))
	require.NoError(t, contribute(seats[1], 4))
	seats[0].Status = SeatFolded

	pe := newPotEngine()
	pe.settleRound(seats)

	awards := pe.award(seats, nil, 0)
	require.Len(t, awards, 1)
	require.Len(t, awards[0].Winners, 1)
	assert.Equal(t, 1, awards[0].Winners[0].Seat)
	assert.Equal(t, 6, awards[0].Winners[0].Amount)
	assert.Equal(t, 102, seats[1].Stack)
}

func TestOrphanedSidePotFallsToContenders(t *testing.T) {
	// Seat 1 contributed past the all-in cap and folded: the layer above
	// the cap has no eligible contributor, so it goes to the remaining
	// contenders rather than vanishing.
	seats := newSeats(50, 200, 50)
	require.NoError(t, contribute(seats[0], 50))
	require.NoError(t, contribute(seats[1], 120))
	require.NoError(t, contribute(seats[2], 50))
	seats[1].Status = SeatFolded

	pe := newPotEngine()
	pe.settleRound(seats)
	require.Equal(t, 220, pe.Total())

	ranks := map[int]evaluator.HandRank{0: 900, 2: 800}
	awards := pe.award(seats, ranks, 0)

	// Main pot (cap 50) and the orphaned excess both land on seat 0.
	total := 0
	for _, award := range awards {
		for _, win := range award.Winners {
			require.Equal(t, 0, win.Seat)
			total += win.Amount
		}
	}
	assert.Equal(t, 220, total)
	assert.Equal(t, 220, seats[0].Stack)
}

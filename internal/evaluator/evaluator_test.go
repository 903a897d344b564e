package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raydebug/puretexaspoker-sub007/internal/deck"
)

func cards(ss ...string) []deck.Card {
	out := make([]deck.Card, len(ss))
	for i, s := range ss {
		out[i] = deck.MustParse(s)
	}
	return out
}

func TestCategoryOrdering(t *testing.T) {
	// One representative hand per category, weakest first. Every hand must
	// beat all hands before it.
	hands := []struct {
		name  string
		cards []deck.Card
		cat   Category
	}{
		{"high card", cards("As", "Kd", "9h", "5c", "2s"), HighCard},
		{"pair", cards("As", "Ad", "9h", "5c", "2s"), Pair},
		{"two pair", cards("As", "Ad", "9h", "9c", "2s"), TwoPair},
		{"trips", cards("As", "Ad", "Ah", "5c", "2s"), ThreeOfAKind},
		{"straight", cards("9s", "8d", "7h", "6c", "5s"), Straight},
		{"flush", cards("As", "Js", "9s", "5s", "2s"), Flush},
		{"full house", cards("As", "Ad", "Ah", "2c", "2s"), FullHouse},
		{"quads", cards("As", "Ad", "Ah", "Ac", "2s"), FourOfAKind},
		{"straight flush", cards("9s", "8s", "7s", "6s", "5s"), StraightFlush},
	}

	for i, h := range hands {
		rank := Evaluate(h.cards)
		require.NotZero(t, rank, h.name)
		assert.Equal(t, h.cat, rank.Category(), h.name)
		for _, weaker := range hands[:i] {
			assert.Equal(t, 1, Compare(rank, Evaluate(weaker.cards)),
				"%s should beat %s", h.name, weaker.name)
		}
	}
}

func TestWheelStraight(t *testing.T) {
	wheel := Evaluate(cards("As", "2d", "3h", "4c", "5s"))
	require.Equal(t, Straight, wheel.Category())

	// The ace plays low: a six-high straight beats the wheel.
	sixHigh := Evaluate(cards("2d", "3h", "4c", "5s", "6d"))
	assert.Equal(t, 1, Compare(sixHigh, wheel))
}

func TestBroadwayStraight(t *testing.T) {
	broadway := Evaluate(cards("Ts", "Jd", "Qh", "Kc", "As"))
	require.Equal(t, Straight, broadway.Category())

	kingHigh := Evaluate(cards("9s", "Td", "Jh", "Qc", "Ks"))
	assert.Equal(t, 1, Compare(broadway, kingHigh))
}

func TestNoWraparoundStraight(t *testing.T) {
	rank := Evaluate(cards("Qs", "Kd", "Ah", "2c", "3s"))
	assert.Equal(t, HighCard, rank.Category())
}

func TestWheelStraightFlush(t *testing.T) {
	rank := Evaluate(cards("As", "2s", "3s", "4s", "5s"))
	assert.Equal(t, StraightFlush, rank.Category())

	royal := Evaluate(cards("Ts", "Js", "Qs", "Ks", "As"))
	assert.Equal(t, 1, Compare(royal, rank))
}

func TestBestFiveOfSeven(t *testing.T) {
	// Seven cards holding both a straight and a flush: the flush plays.
	rank := Evaluate(cards("9h", "8h", "7h", "6h", "5c", "2h", "Kh"))
	assert.Equal(t, Flush, rank.Category())

	// Pair on the board plus a higher pair in hand: two pair, not one.
	rank = Evaluate(cards("As", "Ad", "9h", "9c", "5s", "3d", "2c"))
	assert.Equal(t, TwoPair, rank.Category())
}

func TestKickerDecides(t *testing.T) {
	aceKicker := Evaluate(cards("Ts", "Td", "Ah", "7c", "2s"))
	kingKicker := Evaluate(cards("Th", "Tc", "Kh", "7d", "2d"))
	assert.Equal(t, 1, Compare(aceKicker, kingKicker))
}

func TestExactTieAcrossSuits(t *testing.T) {
	a := Evaluate(cards("As", "Ks", "9d", "5h", "2c"))
	b := Evaluate(cards("Ah", "Kd", "9c", "5s", "2d"))
	assert.Equal(t, 0, Compare(a, b))
}

func TestFullHouseFromTwoTrips(t *testing.T) {
	// Two sets of trips in seven cards: bigger trip plus pair of the other.
	twoTrips := Evaluate(cards("As", "Ad", "Ah", "9c", "9s", "9d", "2c"))
	require.Equal(t, FullHouse, twoTrips.Category())

	acesOverNines := Evaluate(cards("Ac", "Ad", "Ah", "9c", "9s", "4d", "2c"))
	assert.Equal(t, 0, Compare(twoTrips, acesOverNines))

	// A loose pair higher than the second trip plays as the pair.
	withKings := Evaluate(cards("As", "Ad", "Ah", "Kc", "Ks", "9d", "9c"))
	acesOverKings := Evaluate(cards("Ac", "Ad", "Ah", "Kd", "Kh", "5d", "2c"))
	assert.Equal(t, 0, Compare(withKings, acesOverKings))
}

func TestQuadsKicker(t *testing.T) {
	withAce := Evaluate(cards("9s", "9d", "9h", "9c", "As", "3d", "2c"))
	withKing := Evaluate(cards("9s", "9d", "9h", "9c", "Ks", "3h", "2d"))
	require.Equal(t, FourOfAKind, withAce.Category())
	assert.Equal(t, 1, Compare(withAce, withKing))
}

func TestOverpairLosesToTopPair(t *testing.T) {
	board := cards("2c", "7d", "Js", "Kh", "3s")

	bigSlick := Evaluate(append(cards("As", "Ks"), board...))
	queens := Evaluate(append(cards("Qh", "Qd"), board...))

	require.Equal(t, Pair, bigSlick.Category())
	require.Equal(t, Pair, queens.Category())
	assert.Equal(t, 1, Compare(bigSlick, queens), "pair of kings beats pair of queens")
}

func TestEvaluateRejectsWrongCardCount(t *testing.T) {
	assert.Zero(t, Evaluate(cards("As", "Kd", "9h", "5c")))
	assert.Zero(t, Evaluate(cards("As", "Kd", "9h", "5c", "2s", "3d", "4h", "6c")))
	assert.Zero(t, Evaluate(nil))
}

package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustParse(t *testing.T) {
	tests := []struct {
		in   string
		rank Rank
		suit Suit
	}{
		{"As", Ace, Spades},
		{"Td", Ten, Diamonds},
		{"2c", Two, Clubs},
		{"Kh", King, Hearts},
		{"9s", Nine, Spades},
	}

	for _, tt := range tests {
		card := MustParse(tt.in)
		assert.Equal(t, tt.rank, card.Rank, tt.in)
		assert.Equal(t, tt.suit, card.Suit, tt.in)
	}
}

func TestMustParsePanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() { MustParse("") })
	assert.Panics(t, func() { MustParse("Ace of spades") })
	assert.Panics(t, func() { MustParse("1s") })
	assert.Panics(t, func() { MustParse("Ax") })
}

func TestCardString(t *testing.T) {
	require.Equal(t, "A♠", MustParse("As").String())
	require.Equal(t, "T♦", MustParse("Td").String())
	require.Equal(t, "2♣", MustParse("2c").String())
}

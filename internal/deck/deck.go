package deck

import (
	"errors"
	"math/rand"
)

// ErrDeckExhausted is returned when a draw asks for more cards than remain.
// A correct single-deck hold'em hand never exhausts the deck, so callers treat
// this as an invariant violation rather than a recoverable input error.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is a 52-card deck with a cursor over cards already dealt. Cards behind
// the cursor never repeat within a hand; Shuffle resets the cursor and
// re-randomizes the full deck.
type Deck struct {
	cards  [52]Card
	cursor int
	rng    *rand.Rand
}

// New creates a deck using the supplied random source. Tests pass a seeded
// source for deterministic hands; the permutation itself is always a full
// Fisher-Yates shuffle.
func New(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	i := 0
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	return d
}

// Shuffle resets the dealt cursor and randomizes all 52 cards.
func (d *Deck) Shuffle() {
	d.cursor = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw returns the next n undealt cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n > d.Remaining() {
		return nil, ErrDeckExhausted
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.cursor:d.cursor+n])
	d.cursor += n
	return cards, nil
}

// Burn draws and discards exactly one card without exposing it.
func (d *Deck) Burn() error {
	if d.Remaining() < 1 {
		return ErrDeckExhausted
	}
	d.cursor++
	return nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.cursor
}

// Dealt returns the number of cards consumed since the last shuffle,
// including burns.
func (d *Deck) Dealt() int {
	return d.cursor
}

// Stack arranges the deck so the given cards are dealt first, in order, with
// the rest of the deck following in a fixed order. Test helper for scripted
// boards; never used in live play.
func (d *Deck) Stack(cards ...Card) {
	d.cursor = 0
	used := make(map[Card]bool, len(cards))
	for i, c := range cards {
		d.cards[i] = c
		used[c] = true
	}
	i := len(cards)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := NewCard(rank, suit)
			if used[c] {
				continue
			}
			d.cards[i] = c
			i++
		}
	}
}

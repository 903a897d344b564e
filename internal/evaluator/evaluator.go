package evaluator

import (
	"math/bits"

	"github.com/raydebug/puretexaspoker-sub007/internal/deck"
)

// Category enumerates poker hand categories ordered from weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a human-readable category description.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank is a totally ordered hand strength. Higher values are stronger and
// exactly equal values are a tie (split pot). The category occupies the high
// bits; up to five tie-break ranks follow in descending significance, so
// integer comparison implements the full poker tie-break rules.
type HandRank uint32

// Category returns the category encoded in the rank.
func (hr HandRank) Category() Category {
	return Category(hr >> 20)
}

// String returns the category description for the rank.
func (hr HandRank) String() string {
	return hr.Category().String()
}

// Compare returns 1 if a is stronger, -1 if b is stronger, 0 for a tie.
func Compare(a, b HandRank) int {
	if a > b {
		return 1
	}
	if a < b {
		return -1
	}
	return 0
}

// Evaluate ranks the best five-card hand available in 5 to 7 cards.
// Passing fewer than 5 or more than 7 cards returns 0.
func Evaluate(cards []deck.Card) HandRank {
	if len(cards) < 5 || len(cards) > 7 {
		return 0
	}

	var rankCounts [15]int // indexed by deck.Rank (2..14)
	var suitCounts [4]int
	var suitMasks [4]uint16
	var rankMask uint16
	for _, c := range cards {
		rankCounts[c.Rank]++
		suitCounts[c.Suit]++
		suitMasks[c.Suit] |= 1 << uint(c.Rank)
		rankMask |= 1 << uint(c.Rank)
	}

	flushSuit := -1
	for s, n := range suitCounts {
		if n >= 5 {
			flushSuit = s
			break
		}
	}

	if flushSuit >= 0 {
		if high := straightHigh(suitMasks[flushSuit]); high > 0 {
			return pack(StraightFlush, high)
		}
	}

	quad, trips, pairs := groupRanks(rankCounts)

	if quad > 0 {
		kicker := topRanksExcluding(rankMask, 1, quad)
		return pack(FourOfAKind, append([]deck.Rank{quad}, kicker...)...)
	}

	if len(trips) > 0 {
		// Second trip plays as the pair of a full house.
		pairRank := deck.Rank(0)
		if len(trips) > 1 {
			pairRank = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > pairRank {
			pairRank = pairs[0]
		}
		if pairRank > 0 {
			return pack(FullHouse, trips[0], pairRank)
		}
	}

	if flushSuit >= 0 {
		top := topRanks(suitMasks[flushSuit], 5)
		return pack(Flush, top...)
	}

	if high := straightHigh(rankMask); high > 0 {
		return pack(Straight, high)
	}

	if len(trips) > 0 {
		kickers := topRanksExcluding(rankMask, 2, trips[0])
		return pack(ThreeOfAKind, append([]deck.Rank{trips[0]}, kickers...)...)
	}

	if len(pairs) >= 2 {
		kicker := topRanksExcluding(rankMask, 1, pairs[0], pairs[1])
		return pack(TwoPair, pairs[0], pairs[1], kicker[0])
	}

	if len(pairs) == 1 {
		kickers := topRanksExcluding(rankMask, 3, pairs[0])
		return pack(Pair, append([]deck.Rank{pairs[0]}, kickers...)...)
	}

	return pack(HighCard, topRanks(rankMask, 5)...)
}

// pack encodes a category and up to five tie-break ranks, most significant first.
func pack(cat Category, ranks ...deck.Rank) HandRank {
	v := HandRank(cat) << 20
	shift := uint(16)
	for _, r := range ranks {
		v |= HandRank(r) << shift
		shift -= 4
	}
	return v
}

// groupRanks splits rank counts into the best quad, descending trips and
// descending pairs.
func groupRanks(counts [15]int) (quad deck.Rank, trips, pairs []deck.Rank) {
	for r := deck.Ace; r >= deck.Two; r-- {
		switch counts[r] {
		case 4:
			if quad == 0 {
				quad = r
			}
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		}
	}
	return quad, trips, pairs
}

// straightHigh returns the high rank of the best straight in the rank mask, or
// 0 if there is none. An ace plays high (broadway) or low (wheel); straights
// do not wrap beyond those.
func straightHigh(mask uint16) deck.Rank {
	for high := deck.Ace; high >= deck.Six; high-- {
		run := uint16(0x1F) << uint(high-deck.Six+2)
		if mask&run == run {
			return high
		}
	}
	const wheel = 1<<uint(deck.Ace) | 1<<uint(deck.Two) | 1<<uint(deck.Three) | 1<<uint(deck.Four) | 1<<uint(deck.Five)
	if mask&wheel == wheel {
		return deck.Five
	}
	return 0
}

// topRanks returns the n highest ranks present in the mask, descending.
func topRanks(mask uint16, n int) []deck.Rank {
	ranks := make([]deck.Rank, 0, n)
	for len(ranks) < n && mask != 0 {
		top := deck.Rank(bits.Len16(mask) - 1)
		ranks = append(ranks, top)
		mask &^= 1 << uint(top)
	}
	return ranks
}

// topRanksExcluding returns the n highest ranks in the mask after removing the
// excluded ranks.
func topRanksExcluding(mask uint16, n int, exclude ...deck.Rank) []deck.Rank {
	for _, r := range exclude {
		mask &^= 1 << uint(r)
	}
	return topRanks(mask, n)
}

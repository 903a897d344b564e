package game

import (
	"github.com/coder/quartz"
	"github.com/oklog/ulid/v2"

	"github.com/raydebug/puretexaspoker-sub007/internal/deck"
)

// Session binds a player to a table across connections. The token is the
// reconnect credential: a player who drops keeps their seat, stack and hole
// cards until the grace window expires.
type Session struct {
	Token    string
	PlayerID string
	Name     string

	connected  bool
	graceTimer *quartz.Timer
	graceGen   int
}

func newSession(playerID, name string) *Session {
	return &Session{
		Token:     ulid.Make().String(),
		PlayerID:  playerID,
		Name:      name,
		connected: true,
	}
}

// ReconnectState is everything a returning client needs to resume: the
// public snapshot, the full action history for sequence-gap recovery, and
// the player's private cards.
type ReconnectState struct {
	Token     string               `json:"token"`
	Seat      int                  `json:"seat"`
	HoleCards []deck.Card          `json:"holeCards,omitempty"`
	Snapshot  TableSnapshot        `json:"snapshot"`
	History   []ActionHistoryEntry `json:"history"`
}

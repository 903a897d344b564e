package game

import "github.com/raydebug/puretexaspoker-sub007/internal/deck"

// EventType identifies a broadcast event emitted by the table.
type EventType string

const (
	EventTypeTableState EventType = "table_state"
	EventTypeHandStart  EventType = "hand_start"
	EventTypeStreet     EventType = "street"
	EventTypeAction     EventType = "action"
	EventTypeHoleCards  EventType = "hole_cards"
	EventTypeHandResult EventType = "hand_result"
	EventTypeHalted     EventType = "table_halted"
)

// Event is anything the table broadcasts on a state change. The transport
// layer renders events to connected clients; the engine never blocks on them.
type Event interface {
	EventType() EventType
}

// PrivateEvent is addressed to a single player's session instead of the
// whole table.
type PrivateEvent interface {
	Event
	Recipient() string
}

// EventSink receives the table's canonical event stream.
type EventSink interface {
	OnEvent(tableID string, ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(tableID string, ev Event)

func (f EventSinkFunc) OnEvent(tableID string, ev Event) { f(tableID, ev) }

// SeatInfo is the public view of one seat.
type SeatInfo struct {
	Index     int         `json:"index"`
	PlayerID  string      `json:"playerId,omitempty"`
	Name      string      `json:"name,omitempty"`
	Stack     int         `json:"stack"`
	Status    string      `json:"status"`
	Away      bool        `json:"away,omitempty"`
	Bet       int         `json:"bet,omitempty"`
	TotalBet  int         `json:"totalBet,omitempty"`
	HoleCards []deck.Card `json:"holeCards,omitempty"` // only after showdown reveal
}

// TableSnapshot is the full public table state broadcast on every change.
// TimeLeftMS is filled in by the turn timer owner, not the table itself.
type TableSnapshot struct {
	TableID      string        `json:"tableId"`
	Name         string        `json:"name"`
	Phase        string        `json:"phase"`
	Hand         int           `json:"hand"`
	Dealer       int           `json:"dealer"`
	Board        []deck.Card   `json:"board"`
	Pots         []Pot         `json:"pots"`
	TotalPot     int           `json:"totalPot"`
	CurrentBet   int           `json:"currentBet"`
	MinRaise     int           `json:"minRaise"`
	Actor        int           `json:"actor"` // -1 when nobody is to act
	ValidActions []ValidAction `json:"validActions,omitempty"`
	TimeLeftMS   int64         `json:"timeLeftMs,omitempty"`
	Seats        []SeatInfo    `json:"seats"`
}

// TableStateEvent carries a full snapshot.
type TableStateEvent struct {
	State TableSnapshot `json:"state"`
}

func (TableStateEvent) EventType() EventType { return EventTypeTableState }

// HandStartEvent announces a new hand.
type HandStartEvent struct {
	Hand           int `json:"hand"`
	Dealer         int `json:"dealer"`
	SmallBlindSeat int `json:"smallBlindSeat"`
	BigBlindSeat   int `json:"bigBlindSeat"`
}

func (HandStartEvent) EventType() EventType { return EventTypeHandStart }

// StreetEvent announces dealt community cards.
type StreetEvent struct {
	Phase Phase       `json:"phase"`
	Board []deck.Card `json:"board"`
}

func (StreetEvent) EventType() EventType { return EventTypeStreet }

// ActionEvent appends one history entry to the broadcast stream. Auto marks
// engine-generated actions (timeout folds and checks).
type ActionEvent struct {
	Entry ActionHistoryEntry `json:"entry"`
	Auto  bool               `json:"auto,omitempty"`
}

func (ActionEvent) EventType() EventType { return EventTypeAction }

// HoleCardsEvent is the private deal notification for one player.
type HoleCardsEvent struct {
	PlayerID string      `json:"-"`
	Seat     int         `json:"seat"`
	Cards    []deck.Card `json:"cards"`
}

func (HoleCardsEvent) EventType() EventType { return EventTypeHoleCards }

// Recipient implements PrivateEvent.
func (e HoleCardsEvent) Recipient() string { return e.PlayerID }

// ShownHand is a seat's revealed holding at showdown.
type ShownHand struct {
	Seat  int         `json:"seat"`
	Cards []deck.Card `json:"cards"`
	Rank  string      `json:"rank"`
}

// HandResult is produced once per completed hand.
type HandResult struct {
	Hand     int         `json:"hand"`
	Board    []deck.Card `json:"board"`
	Awards   []PotAward  `json:"awards"`
	Showdown []ShownHand `json:"showdown,omitempty"` // empty for uncontested pots
}

// HandResultEvent broadcasts the settlement of a hand.
type HandResultEvent struct {
	Result HandResult `json:"result"`
}

func (HandResultEvent) EventType() EventType { return EventTypeHandResult }

// HaltedEvent reports an invariant violation that stopped the table.
type HaltedEvent struct {
	Reason string `json:"reason"`
}

func (HaltedEvent) EventType() EventType { return EventTypeHalted }

package game

// Phase is the table state machine's position within a hand. It is a closed
// set; every transition function is total over it.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseHandComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePreflop:
		return "preflop"
	case PhaseFlop:
		return "flop"
	case PhaseTurn:
		return "turn"
	case PhaseRiver:
		return "river"
	case PhaseShowdown:
		return "showdown"
	case PhaseHandComplete:
		return "hand_complete"
	default:
		return "unknown"
	}
}

// Betting reports whether player actions are accepted in this phase.
func (p Phase) Betting() bool {
	return p >= PhasePreflop && p <= PhaseRiver
}

// Action represents a player betting action.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseAction converts a wire action string into an Action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "bet":
		return Bet, true
	case "raise":
		return Raise, true
	case "allin":
		return AllIn, true
	default:
		return 0, false
	}
}

package game

// ActionHistoryEntry is an immutable record of one betting event. Sequence
// numbers are table-scoped and strictly increasing across hands, so a
// reconnecting client can dedupe without per-hand bookkeeping.
type ActionHistoryEntry struct {
	Seq    int    `json:"seq"`
	Hand   int    `json:"hand"`
	Seat   int    `json:"seat"`
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
	Phase  Phase  `json:"phase"`
}

// Entry kinds beyond plain player actions.
const (
	KindSmallBlind = "small_blind"
	KindBigBlind   = "big_blind"
)

// ActionHistory is the append-only per-hand action log. Starting a new hand
// archives the previous hand's entries so the most recently completed hand
// stays queryable.
type ActionHistory struct {
	seq      int
	hand     int
	entries  []ActionHistoryEntry
	archived []ActionHistoryEntry
}

func newActionHistory() *ActionHistory {
	return &ActionHistory{}
}

// append records an entry for the current hand and returns it.
func (h *ActionHistory) append(seat int, kind string, amount int, phase Phase) ActionHistoryEntry {
	h.seq++
	entry := ActionHistoryEntry{
		Seq:    h.seq,
		Hand:   h.hand,
		Seat:   seat,
		Kind:   kind,
		Amount: amount,
		Phase:  phase,
	}
	h.entries = append(h.entries, entry)
	return entry
}

// beginHand retires the previous hand's entries and opens the log for the
// given hand number.
func (h *ActionHistory) beginHand(hand int) {
	if len(h.entries) > 0 {
		h.archived = h.entries
	}
	h.entries = nil
	h.hand = hand
}

// Entries returns the ordered history of the current hand, or of the most
// recently completed hand when no hand is underway.
func (h *ActionHistory) Entries() []ActionHistoryEntry {
	src := h.entries
	if len(src) == 0 {
		src = h.archived
	}
	out := make([]ActionHistoryEntry, len(src))
	copy(out, src)
	return out
}

// Seq returns the last issued sequence number.
func (h *ActionHistory) Seq() int {
	return h.seq
}

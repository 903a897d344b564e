package game

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalAction covers wrong-turn, wrong-phase and bet-state violations.
	// The action is rejected and table state is unchanged.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInsufficientStack is returned when a contribution exceeds the seat's
	// stack and poker rules do not allow reclassifying it as an all-in.
	ErrInsufficientStack = errors.New("insufficient stack")

	// ErrSeatConflict is returned when a seat is already occupied or the
	// player is already seated at the table.
	ErrSeatConflict = errors.New("seat conflict")

	// ErrStaleSequence is returned when an action loses a race against a
	// timeout or a newer mutation for the same turn.
	ErrStaleSequence = errors.New("stale sequence")

	// ErrHandInProgress rejects seat mutations that must wait for the hand
	// to finish.
	ErrHandInProgress = errors.New("hand in progress")

	// ErrTableHalted is returned for every request after an invariant
	// violation stopped the table.
	ErrTableHalted = errors.New("table halted")
)

// InvariantError indicates a logic defect (chip conservation or deck
// integrity failure). It is fatal to the table and requires operator
// intervention; it is never caused by bad input.
type InvariantError struct {
	Table  string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("table %s invariant violation: %s", e.Table, e.Reason)
}

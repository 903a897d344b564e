package game

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sinkRecorder captures forwarded events. The loop goroutine writes it, test
// goroutines read it.
type sinkRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *sinkRecorder) OnEvent(tableID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *sinkRecorder) lastState() (TableSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if ev, ok := r.events[i].(TableStateEvent); ok {
			return ev.State, true
		}
	}
	return TableSnapshot{}, false
}

func (r *sinkRecorder) count(et EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.EventType() == et {
			n++
		}
	}
	return n
}

func startTestLoop(t *testing.T) (*Loop, *quartz.Mock) {
	t.Helper()
	return startTestLoopWithSink(t, nil)
}

func startTestLoopWithSink(t *testing.T, sink EventSink) (*Loop, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)
	tbl := NewTable(TableConfig{
		Name:       "test",
		Seats:      3,
		SmallBlind: 1,
		BigBlind:   2,
		MinBuyIn:   40,
		MaxBuyIn:   400,
	}, sink, log.New(io.Discard), rand.New(rand.NewSource(7)))

	loop := NewLoop(tbl, mock, LoopOptions{
		TurnTimeout:    10 * time.Second,
		ReconnectGrace: 30 * time.Second,
		InterHandDelay: time.Second,
	}, log.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()
	return loop, mock
}

// seatTwo connects and seats two players and deals the first hand.
func seatTwo(t *testing.T, loop *Loop, mock *quartz.Mock) (tok0, tok1 string) {
	t.Helper()
	tok0, err := loop.Connect("p0", "p0")
	require.NoError(t, err)
	_, err = loop.Seat(tok0, 0, 100)
	require.NoError(t, err)

	tok1, err = loop.Connect("p1", "p1")
	require.NoError(t, err)
	_, err = loop.Seat(tok1, 1, 100)
	require.NoError(t, err)

	mock.Advance(time.Second).MustWait(context.Background())

	snap, err := loop.Snapshot()
	require.NoError(t, err)
	require.Equal(t, "preflop", snap.Phase)
	return tok0, tok1
}

// advanceOver steps the mock clock through d. quartz refuses to advance past
// the next pending timer in a single Advance call, so each intermediate event
// is fired and drained through the loop before stepping further.
func advanceOver(t *testing.T, loop *Loop, mock *quartz.Mock, d time.Duration) {
	t.Helper()
	for d > 0 {
		next, ok := mock.Peek()
		if !ok || next > d {
			mock.Advance(d).MustWait(context.Background())
			return
		}
		_, w := mock.AdvanceNext()
		w.MustWait(context.Background())
		d -= next
		_, err := loop.Snapshot()
		require.NoError(t, err)
	}
}

func TestLoopStartsHandAfterDelay(t *testing.T) {
	loop, mock := startTestLoop(t)
	seatTwo(t, loop, mock)

	snap, err := loop.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Hand)
	assert.Equal(t, 0, snap.Actor, "heads-up button acts first preflop")
	assert.Equal(t, int64(10_000), snap.TimeLeftMS)
}

func TestBroadcastStateCarriesTurnClock(t *testing.T) {
	rec := &sinkRecorder{}
	loop, mock := startTestLoopWithSink(t, rec)
	tok0, _ := seatTwo(t, loop, mock)

	// The state broadcast for the new hand carries the full acting window.
	state, ok := rec.lastState()
	require.True(t, ok)
	assert.Equal(t, "preflop", state.Phase)
	assert.Equal(t, 0, state.Actor)
	assert.Equal(t, int64(10_000), state.TimeLeftMS)
	assert.Equal(t, 1, rec.count(EventTypeHandStart))

	// Acting mid-window hands the turn to the next actor with a fresh clock,
	// not the old deadline's remainder.
	mock.Advance(4 * time.Second).MustWait(context.Background())
	require.NoError(t, loop.Act(tok0, Call, 0, -1))
	_, err := loop.Snapshot()
	require.NoError(t, err)

	state, ok = rec.lastState()
	require.True(t, ok)
	assert.Equal(t, 1, state.Actor)
	assert.Equal(t, int64(10_000), state.TimeLeftMS)
}

func TestTurnTimeoutAutoFolds(t *testing.T) {
	loop, mock := startTestLoop(t)
	seatTwo(t, loop, mock)

	// The button owes a call, so timing out folds and ends the hand.
	mock.Advance(10 * time.Second).MustWait(context.Background())

	snap, err := loop.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "hand_complete", snap.Phase)

	entries, err := loop.History()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, "fold", last.Kind)
	assert.Equal(t, 0, last.Seat)
}

func TestActionStalesPendingTimeout(t *testing.T) {
	loop, mock := startTestLoop(t)
	tok0, _ := seatTwo(t, loop, mock)

	require.NoError(t, loop.Act(tok0, Call, 0, -1))

	// The original turn timer was disarmed by the action; advancing past
	// its deadline times out the next actor instead, whose free option is
	// a check, not a fold.
	mock.Advance(10 * time.Second).MustWait(context.Background())

	snap, err := loop.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "flop", snap.Phase)

	entries, err := loop.History()
	require.NoError(t, err)
	kinds := map[int]string{}
	for _, e := range entries {
		kinds[e.Seat] = e.Kind
	}
	assert.Equal(t, "call", kinds[0], "the player who acted was not folded")
	assert.Equal(t, "check", kinds[1])
}

func TestActRejectsStaleSequence(t *testing.T) {
	loop, mock := startTestLoop(t)
	tok0, _ := seatTwo(t, loop, mock)

	entries, err := loop.History()
	require.NoError(t, err)
	seq := entries[len(entries)-1].Seq

	err = loop.Act(tok0, Call, 0, seq-1)
	require.ErrorIs(t, err, ErrStaleSequence)

	require.NoError(t, loop.Act(tok0, Call, 0, seq))
}

func TestActRequiresKnownSession(t *testing.T) {
	loop, mock := startTestLoop(t)
	seatTwo(t, loop, mock)

	err := loop.Act("bogus-token", Call, 0, -1)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestReconnectResumesSeatAndCards(t *testing.T) {
	loop, mock := startTestLoop(t)
	tok0, _ := seatTwo(t, loop, mock)

	require.NoError(t, loop.Disconnect(tok0))

	state, err := loop.Reconnect(tok0)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Seat)
	assert.Len(t, state.HoleCards, 2)
	assert.Equal(t, "preflop", state.Snapshot.Phase)
	assert.NotEmpty(t, state.History)

	// Reconnecting is idempotent and the grace timer is disarmed: even far
	// past the grace window the seat is retained.
	_, err = loop.Reconnect(tok0)
	require.NoError(t, err)

	advanceOver(t, loop, mock, 40*time.Second)
	snap, err := loop.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "p0", snap.Seats[0].PlayerID)
}

func TestDisconnectGraceExpiryVacatesSeat(t *testing.T) {
	loop, mock := startTestLoop(t)

	tok0, err := loop.Connect("p0", "p0")
	require.NoError(t, err)
	_, err = loop.Seat(tok0, 0, 100)
	require.NoError(t, err)

	require.NoError(t, loop.Disconnect(tok0))
	advanceOver(t, loop, mock, 30*time.Second)

	snap, err := loop.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Seats[0].PlayerID, "seat vacated after grace expiry")

	_, err = loop.Reconnect(tok0)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestLoopRejectsAfterStop(t *testing.T) {
	mock := quartz.NewMock(t)
	tbl := NewTable(TableConfig{Name: "test", Seats: 2, SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 400},
		nil, log.New(io.Discard), rand.New(rand.NewSource(7)))
	loop := NewLoop(tbl, mock, LoopOptions{TurnTimeout: time.Second, ReconnectGrace: time.Second, InterHandDelay: time.Second}, log.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, err := loop.Connect("p0", "p0")
	require.ErrorIs(t, err, ErrLoopStopped)
}

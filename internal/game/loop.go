package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// ErrLoopStopped is returned for requests made after the table loop exited.
var ErrLoopStopped = errors.New("table loop stopped")

// ErrUnknownSession is returned for tokens with no live session.
var ErrUnknownSession = errors.New("unknown session")

// LoopOptions configure the table loop's timing behavior.
type LoopOptions struct {
	TurnTimeout    time.Duration // acting window before auto check/fold
	ReconnectGrace time.Duration // disconnect window before the seat is vacated
	InterHandDelay time.Duration // pause between hand end and next deal
}

// Loop is the single-goroutine owner of a Table. Every request is a closure
// executed on the loop goroutine, so the table itself needs no locking. Turn
// and grace timers run on an injected clock and are generation-guarded: a
// fire that lost a race against a real action is dropped. The loop also
// interposes on the table's event stream: state broadcasts are stamped with
// the turn clock, which only the timer owner knows.
type Loop struct {
	table *Table
	clock quartz.Clock
	opts  LoopOptions
	log   *log.Logger

	sink         EventSink
	pendingState *TableStateEvent

	cmds chan func()
	done chan struct{}

	sessions map[string]*Session // by token
	byPlayer map[string]*Session

	turnGen      int
	turnTimer    *quartz.Timer
	turnDeadline time.Time
	turnActor    int
	turnSeq      int

	startTimer *quartz.Timer
}

// NewLoop wraps the table in its actor and splices itself into the table's
// event stream.
func NewLoop(table *Table, clock quartz.Clock, opts LoopOptions, logger *log.Logger) *Loop {
	l := &Loop{
		table:     table,
		clock:     clock,
		opts:      opts,
		log:       logger.WithPrefix("loop").With("table", table.ID),
		cmds:      make(chan func(), 64),
		done:      make(chan struct{}),
		sessions:  make(map[string]*Session),
		byPlayer:  make(map[string]*Session),
		turnActor: -1,
	}
	l.sink = table.sink
	table.sink = l
	return l
}

// Table returns the wrapped table. Callers must not touch it while the loop
// is running; it exists for setup and post-shutdown inspection.
func (l *Loop) Table() *Table {
	return l.table
}

// Run executes commands until the context is canceled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.stopTimers()
	l.syncTimers()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.cmds:
			cmd()
			l.syncTimers()
			l.flushPendingState()
		}
	}
}

// exec runs fn on the loop goroutine and waits for it.
func (l *Loop) exec(fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}
	select {
	case l.cmds <- wrapped:
	case <-l.done:
		return ErrLoopStopped
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Connect opens a session for the player, replacing any previous one. The
// returned token is the reconnect credential.
func (l *Loop) Connect(playerID, name string) (string, error) {
	var token string
	err := l.exec(func() {
		if old, ok := l.byPlayer[playerID]; ok {
			l.dropGraceTimer(old)
			delete(l.sessions, old.Token)
		}
		sess := newSession(playerID, name)
		l.sessions[sess.Token] = sess
		l.byPlayer[playerID] = sess
		token = sess.Token
		l.log.Info("session opened", "player", playerID)
	})
	return token, err
}

// Seat seats the session's player.
func (l *Loop) Seat(token string, seatIdx, buyIn int) (int, error) {
	var (
		seat int
		err  error
	)
	execErr := l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			err = ErrUnknownSession
			return
		}
		seat, err = l.table.SeatPlayer(sess.PlayerID, sess.Name, seatIdx, buyIn)
	})
	if execErr != nil {
		return -1, execErr
	}
	return seat, err
}

// Act submits a betting action. seq is the last history sequence number the
// client has seen; an action raced by a timeout or another mutation is
// rejected with ErrStaleSequence. Pass -1 to skip the check.
func (l *Loop) Act(token string, action Action, amount, seq int) error {
	var err error
	execErr := l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			err = ErrUnknownSession
			return
		}
		if seq != -1 && seq != l.table.HistorySeq() {
			err = fmt.Errorf("%w: saw %d, table at %d", ErrStaleSequence, seq, l.table.HistorySeq())
			return
		}
		err = l.table.HandleAction(sess.PlayerID, action, amount)
	})
	if execErr != nil {
		return execErr
	}
	return err
}

// StandUp vacates the session's seat and returns the chips handed back.
func (l *Loop) StandUp(token string) (int, error) {
	var (
		returned int
		err      error
	)
	execErr := l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			err = ErrUnknownSession
			return
		}
		returned, err = l.table.StandUp(sess.PlayerID)
	})
	if execErr != nil {
		return 0, execErr
	}
	return returned, err
}

// Rebuy tops up the session's stack between hands.
func (l *Loop) Rebuy(token string, amount int) error {
	var err error
	execErr := l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			err = ErrUnknownSession
			return
		}
		err = l.table.Rebuy(sess.PlayerID, amount)
	})
	if execErr != nil {
		return execErr
	}
	return err
}

// SetAway toggles the session's away flag.
func (l *Loop) SetAway(token string, away bool) error {
	var err error
	execErr := l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			err = ErrUnknownSession
			return
		}
		err = l.table.SetAway(sess.PlayerID, away)
	})
	if execErr != nil {
		return execErr
	}
	return err
}

// Disconnect marks the session dropped and starts the grace timer. If the
// player does not reconnect in time their seat is vacated.
func (l *Loop) Disconnect(token string) error {
	return l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			return
		}
		sess.connected = false
		sess.graceGen++
		gen := sess.graceGen
		l.dropGraceTimer(sess)
		sess.graceTimer = l.clock.AfterFunc(l.opts.ReconnectGrace, func() {
			l.enqueue(func() { l.expireSession(token, gen) })
		})
		l.log.Info("session disconnected", "player", sess.PlayerID)
	})
}

// Reconnect resumes a dropped session, returning everything the client needs
// to catch up. Reconnecting is idempotent.
func (l *Loop) Reconnect(token string) (ReconnectState, error) {
	var (
		state ReconnectState
		err   error
	)
	execErr := l.exec(func() {
		sess, ok := l.sessions[token]
		if !ok {
			err = ErrUnknownSession
			return
		}
		sess.connected = true
		sess.graceGen++
		l.dropGraceTimer(sess)
		state = ReconnectState{
			Token:     sess.Token,
			Seat:      l.table.SeatOf(sess.PlayerID),
			HoleCards: l.table.HoleCards(sess.PlayerID),
			Snapshot:  l.snapshotLocked(),
			History:   l.table.History(),
		}
		l.log.Info("session reconnected", "player", sess.PlayerID)
	})
	if execErr != nil {
		return ReconnectState{}, execErr
	}
	return state, err
}

// Snapshot returns the public table state with the turn clock filled in.
func (l *Loop) Snapshot() (TableSnapshot, error) {
	var snap TableSnapshot
	err := l.exec(func() {
		snap = l.snapshotLocked()
	})
	return snap, err
}

// History returns the action log of the current or last completed hand.
func (l *Loop) History() ([]ActionHistoryEntry, error) {
	var entries []ActionHistoryEntry
	err := l.exec(func() {
		entries = l.table.History()
	})
	return entries, err
}

func (l *Loop) snapshotLocked() TableSnapshot {
	snap := l.table.Snapshot()
	if snap.Actor != -1 {
		snap.TimeLeftMS = l.timeLeftMS()
	}
	return snap
}

func (l *Loop) timeLeftMS() int64 {
	if l.turnTimer == nil {
		return 0
	}
	left := l.turnDeadline.Sub(l.clock.Now())
	if left < 0 {
		left = 0
	}
	return left.Milliseconds()
}

// OnEvent implements EventSink for the wrapped table. A state broadcast is
// held back until the command that produced it finishes and timers are
// re-armed; everything else passes straight through.
func (l *Loop) OnEvent(tableID string, ev Event) {
	if state, ok := ev.(TableStateEvent); ok {
		l.pendingState = &state
		return
	}
	if l.sink != nil {
		l.sink.OnEvent(tableID, ev)
	}
}

// flushPendingState forwards a command's final state broadcast with the turn
// clock filled in. Commands emit at most one state that matters: the last.
func (l *Loop) flushPendingState() {
	if l.pendingState == nil {
		return
	}
	ev := *l.pendingState
	l.pendingState = nil
	if ev.State.Actor != -1 {
		ev.State.TimeLeftMS = l.timeLeftMS()
	}
	if l.sink != nil {
		l.sink.OnEvent(l.table.ID, ev)
	}
}

// enqueue schedules work on the loop goroutine without waiting, for timer
// callbacks.
func (l *Loop) enqueue(fn func()) {
	select {
	case l.cmds <- fn:
	case <-l.done:
	}
}

// syncTimers reconciles the armed timers with the table state after every
// command. The turn timer is keyed on (actor, history seq); any action
// bumps the key and stales the old timer.
func (l *Loop) syncTimers() {
	if l.table.Halted() {
		l.stopTimers()
		return
	}

	actor := l.table.Actor()
	seq := l.table.HistorySeq()
	if actor != l.turnActor || seq != l.turnSeq {
		if l.turnTimer != nil {
			l.turnTimer.Stop()
			l.turnTimer = nil
		}
		l.turnGen++
		l.turnActor = actor
		l.turnSeq = seq
		if actor != -1 && l.opts.TurnTimeout > 0 {
			gen := l.turnGen
			l.turnDeadline = l.clock.Now().Add(l.opts.TurnTimeout)
			l.turnTimer = l.clock.AfterFunc(l.opts.TurnTimeout, func() {
				l.enqueue(func() { l.onTurnTimeout(gen, actor) })
			})
		}
	}

	if !l.table.HandInProgress() && l.startTimer == nil {
		l.startTimer = l.clock.AfterFunc(l.opts.InterHandDelay, func() {
			l.enqueue(l.onStartTimer)
		})
	}
}

func (l *Loop) onTurnTimeout(gen, actor int) {
	if gen != l.turnGen {
		return // raced by a real action
	}
	l.log.Info("turn timed out", "seat", actor)
	l.table.AutoAct(actor)
}

func (l *Loop) onStartTimer() {
	l.startTimer = nil
	l.table.TryStartHand()
}

func (l *Loop) expireSession(token string, gen int) {
	sess, ok := l.sessions[token]
	if !ok || sess.connected || sess.graceGen != gen {
		return
	}
	l.log.Info("session expired", "player", sess.PlayerID)
	if l.table.SeatOf(sess.PlayerID) != -1 {
		if _, err := l.table.StandUp(sess.PlayerID); err != nil {
			l.log.Error("stand up on expiry failed", "player", sess.PlayerID, "err", err)
		}
	}
	delete(l.sessions, token)
	delete(l.byPlayer, sess.PlayerID)
}

func (l *Loop) dropGraceTimer(sess *Session) {
	if sess.graceTimer != nil {
		sess.graceTimer.Stop()
		sess.graceTimer = nil
	}
}

func (l *Loop) stopTimers() {
	if l.turnTimer != nil {
		l.turnTimer.Stop()
		l.turnTimer = nil
	}
	if l.startTimer != nil {
		l.startTimer.Stop()
		l.startTimer = nil
	}
	for _, sess := range l.sessions {
		l.dropGraceTimer(sess)
	}
}

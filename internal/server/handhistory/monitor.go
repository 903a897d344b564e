package handhistory

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/raydebug/puretexaspoker-sub007/internal/deck"
	"github.com/raydebug/puretexaspoker-sub007/internal/game"
)

// MonitorConfig configures one table's history writer.
type MonitorConfig struct {
	TableID    string
	TableName  string
	Stakes     string
	OutputDir  string
	Filename   string
	FlushHands int  // flush to disk after this many completed hands
	ShowHoles  bool // include dealt hole cards in the record
}

// Monitor renders one table's event stream into a text hand history and
// appends completed hands to a session file. It implements game.EventSink
// and is safe for use from the table loop goroutine plus the manager's
// flush goroutine.
type Monitor struct {
	cfg  MonitorConfig
	path string

	mu       sync.Mutex
	file     *os.File
	w        *bufio.Writer
	lines    []string // current hand under construction
	pending  int      // hands written since last flush
	notifier func()
}

// NewMonitor opens (or creates) the session file for appending.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Filename == "" {
		cfg.Filename = "session.log"
	}
	if cfg.FlushHands <= 0 {
		cfg.FlushHands = 100
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("handhistory: create output dir: %w", err)
	}

	path := filepath.Join(cfg.OutputDir, cfg.Filename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("handhistory: open %s: %w", path, err)
	}

	return &Monitor{
		cfg:  cfg,
		path: path,
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

// SetFlushNotifier registers a callback invoked when enough hands have
// accumulated to warrant a flush.
func (m *Monitor) SetFlushNotifier(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = fn
}

// OnEvent consumes one table event.
func (m *Monitor) OnEvent(tableID string, ev game.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := ev.(type) {
	case game.HandStartEvent:
		m.lines = m.lines[:0]
		m.addf("hand #%d  table %s  %s  %s",
			e.Hand, m.cfg.TableName, m.cfg.Stakes, time.Now().UTC().Format(time.RFC3339))
		m.addf("  dealer seat %d, small blind seat %d, big blind seat %d",
			e.Dealer, e.SmallBlindSeat, e.BigBlindSeat)

	case game.HoleCardsEvent:
		if m.cfg.ShowHoles {
			m.addf("  dealt seat %d: %s", e.Seat, cardList(e.Cards))
		}

	case game.ActionEvent:
		line := fmt.Sprintf("  [%s] seat %d %s", e.Entry.Phase, e.Entry.Seat, e.Entry.Kind)
		if e.Entry.Amount > 0 {
			line += fmt.Sprintf(" %d", e.Entry.Amount)
		}
		if e.Auto {
			line += " (auto)"
		}
		m.add(line)

	case game.StreetEvent:
		m.addf("  %s: %s", e.Phase, cardList(e.Board))

	case game.HandResultEvent:
		m.renderResult(e.Result)
		m.commitLocked()
	}
}

func (m *Monitor) renderResult(res game.HandResult) {
	if len(res.Board) > 0 {
		m.addf("  board: %s", cardList(res.Board))
	}
	for _, sh := range res.Showdown {
		m.addf("  shows seat %d: %s (%s)", sh.Seat, cardList(sh.Cards), sh.Rank)
	}
	for _, award := range res.Awards {
		for _, win := range award.Winners {
			m.addf("  seat %d wins %d from pot %d", win.Seat, win.Amount, award.Pot)
		}
	}
}

// commitLocked writes the assembled hand to the buffer.
func (m *Monitor) commitLocked() {
	if len(m.lines) == 0 {
		return
	}
	for _, line := range m.lines {
		_, _ = m.w.WriteString(line)
		_ = m.w.WriteByte('\n')
	}
	_ = m.w.WriteByte('\n')
	m.lines = m.lines[:0]

	m.pending++
	if m.pending >= m.cfg.FlushHands && m.notifier != nil {
		m.notifier()
	}
}

// Flush writes buffered hands to disk.
func (m *Monitor) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = 0
	return m.w.Flush()
}

// Close flushes and closes the session file.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.w.Flush(); err != nil {
		_ = m.file.Close()
		return err
	}
	return m.file.Close()
}

// Path returns the session file location.
func (m *Monitor) Path() string {
	return m.path
}

func (m *Monitor) add(line string) {
	m.lines = append(m.lines, line)
}

func (m *Monitor) addf(format string, args ...interface{}) {
	m.add(fmt.Sprintf(format, args...))
}

func cardList(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

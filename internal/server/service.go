package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/raydebug/puretexaspoker-sub007/internal/game"
	"github.com/raydebug/puretexaspoker-sub007/internal/server/handhistory"
)

// Broadcaster delivers messages to connected clients. The Server implements
// it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToTable(tableID string, msg *Message)
	SendToPlayer(playerID string, msg *Message) error
}

// Service owns the table loops and bridges game events onto the wire. It
// implements game.EventSink.
type Service struct {
	broadcaster Broadcaster
	clock       quartz.Clock
	logger      *log.Logger

	history *handhistory.Manager

	mu       sync.RWMutex
	loops    map[string]*game.Loop // by table ID
	names    map[string]string     // table name -> ID
	monitors map[string]*handhistory.Monitor
}

// NewService builds a service with no tables.
func NewService(b Broadcaster, clock quartz.Clock, logger *log.Logger) *Service {
	return &Service{
		broadcaster: b,
		clock:       clock,
		logger:      logger.WithPrefix("service"),
		loops:       make(map[string]*game.Loop),
		names:       make(map[string]string),
		monitors:    make(map[string]*handhistory.Monitor),
	}
}

// SetHistory enables hand-history recording for tables created afterwards.
func (s *Service) SetHistory(manager *handhistory.Manager) {
	s.history = manager
}

// CreateTable builds a table and its loop from configuration. Tables are
// created before Run and live for the server's lifetime.
func (s *Service) CreateTable(cfg TableConfig) (*game.Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[cfg.Name]; exists {
		return nil, fmt.Errorf("table %s already exists", cfg.Name)
	}

	table := game.NewTable(game.TableConfig{
		Name:       cfg.Name,
		Seats:      cfg.Seats,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		MinBuyIn:   cfg.BuyInMin,
		MaxBuyIn:   cfg.BuyInMax,
	}, s, s.logger, rand.New(rand.NewSource(time.Now().UnixNano())))

	loop := game.NewLoop(table, s.clock, game.LoopOptions{
		TurnTimeout:    cfg.TurnTimeout(),
		ReconnectGrace: cfg.ReconnectGrace(),
		InterHandDelay: cfg.InterHandDelay(),
	}, s.logger)

	s.loops[table.ID] = loop
	s.names[cfg.Name] = table.ID
	if s.history != nil {
		stakes := fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind)
		monitor, err := s.history.CreateMonitor(table.ID, cfg.Name, stakes)
		if err != nil {
			s.logger.Error("hand history disabled for table", "table", cfg.Name, "err", err)
		} else {
			s.monitors[table.ID] = monitor
		}
	}
	s.logger.Info("table created", "id", table.ID, "name", cfg.Name,
		"stakes", fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind), "seats", cfg.Seats)
	return loop, nil
}

// Run drives every table loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.mu.RLock()
	for _, loop := range s.loops {
		loop := loop
		g.Go(func() error { return loop.Run(ctx) })
	}
	s.mu.RUnlock()
	return g.Wait()
}

// Resolve finds a table loop by ID or name.
func (s *Service) Resolve(table string) (*game.Loop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if loop, ok := s.loops[table]; ok {
		return loop, nil
	}
	if id, ok := s.names[table]; ok {
		return s.loops[id], nil
	}
	return nil, fmt.Errorf("table not found: %s", table)
}

// ListTables returns the lobby view of every table.
func (s *Service) ListTables() []TableInfo {
	s.mu.RLock()
	loops := make([]*game.Loop, 0, len(s.loops))
	for _, loop := range s.loops {
		loops = append(loops, loop)
	}
	s.mu.RUnlock()

	infos := make([]TableInfo, 0, len(loops))
	for _, loop := range loops {
		snap, err := loop.Snapshot()
		if err != nil {
			continue
		}
		count := 0
		for _, seat := range snap.Seats {
			if seat.PlayerID != "" {
				count++
			}
		}
		cfg := loop.Table().Config()
		infos = append(infos, TableInfo{
			ID:          snap.TableID,
			Name:        snap.Name,
			PlayerCount: count,
			MaxPlayers:  cfg.Seats,
			Stakes:      fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind),
			Phase:       snap.Phase,
		})
	}
	return infos
}

// OnEvent forwards a game event to the table's clients and to the table's
// hand-history monitor. Private events go only to their recipient.
func (s *Service) OnEvent(tableID string, ev game.Event) {
	s.mu.RLock()
	monitor := s.monitors[tableID]
	s.mu.RUnlock()
	if monitor != nil {
		monitor.OnEvent(tableID, ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal event", "type", ev.EventType(), "err", err)
		return
	}
	msg := &Message{
		Type:      MessageType(ev.EventType()),
		Data:      data,
		Timestamp: time.Now(),
	}

	if private, ok := ev.(game.PrivateEvent); ok {
		if err := s.broadcaster.SendToPlayer(private.Recipient(), msg); err != nil {
			s.logger.Debug("private event dropped", "player", private.Recipient(), "type", ev.EventType())
		}
		return
	}
	s.broadcaster.BroadcastToTable(tableID, msg)
}

package handhistory

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ManagerConfig configures the hand-history manager.
type ManagerConfig struct {
	BaseDir       string
	FlushInterval time.Duration
	FlushHands    int
	ShowHoles     bool
}

// Manager coordinates flushing for multiple monitors: a ticker plus an
// explicit flush request channel fed by monitors that hit their hand count.
type Manager struct {
	cfg    ManagerConfig
	logger *log.Logger

	mu       sync.RWMutex
	monitors map[string]*Monitor
	flushReq chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates and starts a hand-history manager.
func NewManager(logger *log.Logger, cfg ManagerConfig) *Manager {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "hands"
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.FlushHands <= 0 {
		cfg.FlushHands = 100
	}

	m := &Manager{
		cfg:      cfg,
		logger:   logger.WithPrefix("handhistory"),
		monitors: make(map[string]*Monitor),
		flushReq: make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Shutdown stops the ticker and flushes all monitors.
func (m *Manager) Shutdown() {
	close(m.stop)
	m.wg.Wait()

	m.mu.Lock()
	monitors := m.monitors
	m.monitors = make(map[string]*Monitor)
	m.mu.Unlock()

	for _, monitor := range monitors {
		if err := monitor.Close(); err != nil {
			m.logger.Error("hand history flush on shutdown failed", "err", err)
		}
	}
}

// CreateMonitor instantiates and registers a monitor for the given table.
func (m *Manager) CreateMonitor(tableID, tableName, stakes string) (*Monitor, error) {
	m.mu.Lock()
	if _, exists := m.monitors[tableID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("handhistory: monitor for %s already exists", tableID)
	}
	m.mu.Unlock()

	monitor, err := NewMonitor(MonitorConfig{
		TableID:    tableID,
		TableName:  tableName,
		Stakes:     stakes,
		OutputDir:  filepath.Join(m.cfg.BaseDir, fmt.Sprintf("table-%s", tableID)),
		FlushHands: m.cfg.FlushHands,
		ShowHoles:  m.cfg.ShowHoles,
	})
	if err != nil {
		return nil, err
	}
	monitor.SetFlushNotifier(func() { m.requestFlush() })

	m.mu.Lock()
	m.monitors[tableID] = monitor
	m.mu.Unlock()

	return monitor, nil
}

func (m *Manager) requestFlush() {
	select {
	case m.flushReq <- struct{}{}:
	default:
	}
}

func (m *Manager) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flushAll()
		case <-m.flushReq:
			m.flushAll()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) flushAll() {
	m.mu.RLock()
	monitors := make([]*Monitor, 0, len(m.monitors))
	for _, monitor := range m.monitors {
		monitors = append(monitors, monitor)
	}
	m.mu.RUnlock()

	for _, monitor := range monitors {
		if err := monitor.Flush(); err != nil {
			m.logger.Error("hand history flush failed", "path", monitor.Path(), "err", err)
		}
	}
}

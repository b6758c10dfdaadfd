package system

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/systems"
)

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)

// ManagerMetrics provides system manager statistics.
type ManagerMetrics struct {
	RegisteredSystems uint32
	EnabledSystems    uint32
	TotalUpdateTime   time.Duration
	AverageUpdateTime time.Duration
	Updates           uint64
	SystemErrorCount  map[string]uint32
	LastUpdateTime    time.Time
}

type entry struct {
	sys     systems.System
	enabled bool
}

// Manager runs registered systems once per tick, ordered by phase and then by
// descending priority. Registration order breaks ties.
type Manager struct {
	mu      sync.RWMutex
	entries []*entry
	logger  log.Log
	metrics ManagerMetrics
}

func NewManager(logger log.Log) *Manager {
	return &Manager{
		logger:  logger.Named("systems"),
		metrics: ManagerMetrics{SystemErrorCount: make(map[string]uint32)},
	}
}

func (m *Manager) RegisterSystem(s systems.System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.sys.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
		}
	}
	m.entries = append(m.entries, &entry{sys: s, enabled: true})
	slices.SortStableFunc(m.entries, func(a, b *entry) int {
		if a.sys.ExecutionPhase() != b.sys.ExecutionPhase() {
			return int(a.sys.ExecutionPhase()) - int(b.sys.ExecutionPhase())
		}
		return int(b.sys.Priority()) - int(a.sys.Priority())
	})
	m.logger.Debug("system registered", log.String("system", s.Name()))
	return nil
}

func (m *Manager) SetEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.sys.Name() == name {
			e.enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
}

// ExecutionOrder lists system names in the order Update runs them.
func (m *Manager) ExecutionOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.sys.Name())
	}
	return out
}

// Update runs every enabled system. A failing system does not stop the ones
// after it; all errors are joined.
func (m *Manager) Update(ctx context.Context, deltaTime float64) error {
	start := time.Now()
	m.mu.RLock()
	entries := slices.Clone(m.entries)
	m.mu.RUnlock()

	var all error
	enabled := uint32(0)
	for _, e := range entries {
		if !e.enabled {
			continue
		}
		enabled++
		if err := e.sys.Update(ctx, deltaTime); err != nil {
			m.logger.Error("system update failed", log.String("system", e.sys.Name()), log.Error(err))
			all = errors.Join(all, fmt.Errorf("%s: %w", e.sys.Name(), err))
			m.mu.Lock()
			m.metrics.SystemErrorCount[e.sys.Name()]++
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	m.metrics.Updates++
	m.metrics.RegisteredSystems = uint32(len(entries))
	m.metrics.EnabledSystems = enabled
	m.metrics.TotalUpdateTime += time.Since(start)
	m.metrics.AverageUpdateTime = m.metrics.TotalUpdateTime / time.Duration(m.metrics.Updates)
	m.metrics.LastUpdateTime = start
	m.mu.Unlock()
	return all
}

func (m *Manager) GetMetrics() ManagerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.metrics
	out.SystemErrorCount = make(map[string]uint32, len(m.metrics.SystemErrorCount))
	for k, v := range m.metrics.SystemErrorCount {
		out.SystemErrorCount[k] = v
	}
	return out
}

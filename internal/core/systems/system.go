package systems

import (
	"context"
	"sync"
	"time"
)

// System is a per-tick game logic processor driven by the system manager.
type System interface {
	Name() string
	Priority() Priority
	ExecutionPhase() ExecutionPhase

	// Update advances the system by deltaTime seconds.
	Update(ctx context.Context, deltaTime float64) error

	GetMetrics() Metrics
}

// Priority defines execution order within a phase; higher runs first.
type Priority uint16

const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// ExecutionPhase defines when a system runs within a tick.
type ExecutionPhase uint8

const (
	PhasePreUpdate ExecutionPhase = iota
	PhaseUpdate
	PhasePostUpdate
)

// Metrics provides runtime metrics for a system.
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
	EntitiesProcessed    uint64
}

// MetricsRecorder accumulates Metrics across executions. Safe for concurrent use.
type MetricsRecorder struct {
	mu sync.Mutex
	m  Metrics
}

// Record adds one execution.
func (r *MetricsRecorder) Record(started time.Time, entities int, err error) {
	elapsed := time.Since(started)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.ExecutionCount++
	r.m.TotalExecutionTime += elapsed
	r.m.AverageExecutionTime = r.m.TotalExecutionTime / time.Duration(r.m.ExecutionCount)
	if elapsed > r.m.MaxExecutionTime {
		r.m.MaxExecutionTime = elapsed
	}
	if r.m.MinExecutionTime == 0 || elapsed < r.m.MinExecutionTime {
		r.m.MinExecutionTime = elapsed
	}
	r.m.LastExecutionTime = started
	r.m.EntitiesProcessed += uint64(max(entities, 0))
	if err != nil {
		r.m.ErrorCount++
		r.m.LastError = err
	}
}

func (r *MetricsRecorder) Snapshot() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m
}

// Package physics advances positions, velocities and orientations of every
// dynamic entity once per tick: entity pushback, force integration and swept
// collision against voxel terrain and voxel-carrying entities.
package physics

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/deferred"
	"github.com/zeusync/voxphys/internal/core/events/bus"
	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/spatial"
	"github.com/zeusync/voxphys/internal/core/systems"
	"github.com/zeusync/voxphys/internal/core/terrain"
	"github.com/zeusync/voxphys/pkg/concurrent"
)

var _ systems.System = (*Engine)(nil)

// Engine runs the physics passes over a World. Tick must not be called
// concurrently; the terrain volume and manifest snapshots must not change
// while a tick runs.
type Engine struct {
	cfg       Config
	world     *World
	vol       terrain.Volume
	manifests *ManifestStore
	bus       bus.EventBus
	logger    log.Log
	workers   int

	deferred deferred.Buffer
	recorder systems.MetricsRecorder
	cached   atomic.Pointer[spatial.Grid]
	last     atomic.Pointer[TickMetrics]
	ticks    uint64
}

// NewEngine wires an engine. The bus may be nil, in which case events are
// dropped.
func NewEngine(cfg Config, world *World, vol terrain.Volume, manifests *ManifestStore, eb bus.EventBus, logger log.Log) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if vol == nil {
		return nil, ErrNoTerrain
	}
	if world == nil {
		world = NewWorld()
	}
	if manifests == nil {
		manifests = NewManifestStore()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		world:     world,
		vol:       vol,
		manifests: manifests,
		bus:       eb,
		logger:    logger.Named("physics"),
		workers:   concurrent.Workers(cfg.Workers),
	}
	e.cached.Store(spatial.Fine())
	e.last.Store(&TickMetrics{})
	return e, nil
}

func (e *Engine) World() *World             { return e.world }
func (e *Engine) Manifests() *ManifestStore { return e.manifests }
func (e *Engine) Config() Config            { return e.cfg }
func (e *Engine) LastTick() TickMetrics     { return *e.last.Load() }
func (e *Engine) CachedGrid() *spatial.Grid { return e.cached.Load() }

// Digest fingerprints the committed world. Call it between ticks.
func (e *Engine) Digest() uint64 { return StateDigest(e.world) }

func (e *Engine) Name() string                           { return "physics" }
func (e *Engine) Priority() systems.Priority             { return systems.PriorityHigh }
func (e *Engine) ExecutionPhase() systems.ExecutionPhase { return systems.PhaseUpdate }
func (e *Engine) GetMetrics() systems.Metrics            { return e.recorder.Snapshot() }

// Update implements systems.System.
func (e *Engine) Update(ctx context.Context, deltaTime float64) error {
	_, err := e.Tick(ctx, deltaTime)
	return err
}

// Tick advances the world by dt seconds. Once started a tick always runs to
// completion; ctx is only checked before it begins. The only errors are an
// invalid dt, a cancelled ctx and, with Debug set, failed numeric assertions.
func (e *Engine) Tick(ctx context.Context, dt float64) (TickMetrics, error) {
	if err := ctx.Err(); err != nil {
		return TickMetrics{}, err
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return TickMetrics{}, fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}

	started := time.Now()
	e.ticks++
	t := &tick{
		cfg:      e.cfg,
		dt:       dt,
		world:    e.world,
		vol:      e.vol,
		manifest: e.manifests.Snapshot(),
		workers:  e.workers,
		deferred: &e.deferred,
		stats:    make([]pushbackStats, e.workers),
	}
	m, events, err := t.run()
	m.Tick = e.ticks
	m.Duration = time.Since(started)
	e.recorder.Record(started, m.Entities, err)
	if err != nil {
		e.logger.Error("physics tick failed", log.Uint64("tick", m.Tick), log.Error(err))
		return m, err
	}

	e.cached.Store(t.cachedGrid)
	if e.cfg.Debug {
		m.Digest = StateDigest(e.world)
	}
	e.last.Store(&m)
	e.publish(events)

	if m.StuckEntities > 0 {
		e.logger.Warn("entities stuck in terrain", log.Uint64("tick", m.Tick), log.Int("count", m.StuckEntities))
	}
	if e.logger.Enabled(log.LevelDebug) {
		e.logger.Debug("physics tick", m.fields()...)
	}
	return m, nil
}

func (e *Engine) publish(events []bus.Event) {
	if e.bus == nil || len(events) == 0 {
		return
	}
	if err := e.bus.PublishBatch(events...); err != nil {
		e.logger.Warn("physics event handlers failed", log.Int("events", len(events)), log.Error(err))
	}
}

// tick is the state shared by the passes of one Engine.Tick. Everything in it
// is read-only while a parallel pass runs, except per-worker stats.
type tick struct {
	cfg      Config
	dt       float64
	world    *World
	vol      terrain.Volume
	manifest *Manifest
	workers  int
	deferred *deferred.Buffer

	fine       *spatial.Grid
	voxels     *spatial.Grid
	cachedGrid *spatial.Grid
	stats      []pushbackStats
}

func (t *tick) run() (TickMetrics, []bus.Event, error) {
	var m TickMetrics
	w := t.world
	timed := func(d *time.Duration, fn func() error) error {
		start := time.Now()
		err := fn()
		*d = time.Since(start)
		return err
	}

	defer t.releaseGrids()
	t.ensureComponents()
	sim := w.simulated()
	m.Entities = len(sim)

	if err := timed(&m.CacheTime, func() error { return t.buildCaches(sim) }); err != nil {
		return m, nil, fmt.Errorf("cache pass: %w", err)
	}

	pushIDs := t.pushbackEntities(sim)
	t.fine = buildFineGrid(w, pushIDs)
	m.FineGridOverflow = t.fine.Overflowed()
	if err := timed(&m.PushbackTime, func() error { return t.pushback(pushIDs) }); err != nil {
		return m, nil, fmt.Errorf("pushback pass: %w", err)
	}
	stats := concurrent.Reduce(t.stats, pushbackStats{}, func(acc, s pushbackStats) pushbackStats {
		acc.checks += s.checks
		acc.collisions += s.collisions
		return acc
	})
	m.EntityEntityChecks, m.EntityEntityCollisions = stats.checks, stats.collisions

	t.voxels = t.buildVoxelGrid(sim)
	if err := timed(&m.IntegrateTime, func() error { return t.integrate(t.integrationEntities(sim)) }); err != nil {
		return m, nil, fmt.Errorf("integrate pass: %w", err)
	}

	carriers, rest := splitCarriers(w, sim)
	m.Carriers = len(carriers)
	var events []bus.Event
	for _, pass := range []struct {
		name string
		ids  []models.EntityID
		d    *time.Duration
	}{
		{"carrier", carriers, &m.CarrierTime},
		{"terrain", rest, &m.TerrainTime},
	} {
		var (
			results []terrainResult
			writes  int
		)
		err := timed(pass.d, func() (err error) {
			results, writes, err = t.terrainPass(pass.ids)
			return err
		})
		if err != nil {
			return m, nil, fmt.Errorf("%s pass: %w", pass.name, err)
		}
		m.CommittedWrites += writes
		for _, r := range results {
			if r.stuck {
				m.StuckEntities++
			}
			if r.landed != nil {
				m.Landings++
			}
			if r.hit != nil {
				m.ProjectileHits++
			}
			events = append(events, r.events()...)
		}
	}

	t.recordPoses(sim)
	t.cachedGrid = buildCachedGrid(w, sim)
	return m, events, nil
}

func (t *tick) releaseGrids() {
	if t.fine != nil {
		fineGrids.Put(t.fine)
		t.fine = nil
	}
	if t.voxels != nil {
		coarseGrids.Put(t.voxels)
		t.voxels = nil
	}
}

// buildCachedGrid indexes final positions for read-only use by other systems.
func buildCachedGrid(w *World, sim []models.EntityID) *spatial.Grid {
	g := spatial.Fine()
	for _, id := range sim {
		pos, _ := w.Positions.Value(id)
		cache, _ := w.PrevCaches.Get(id)
		g.Insert(spatial.BucketPos(pos[0], pos[1]), uint32(math.Ceil(cache.ScaledRadius)), id)
	}
	return g
}

// assertFinite panics on NaN or infinite components when Debug is set. The
// worker pool turns the panic into a tick error.
func (t *tick) assertFinite(v mgl64.Vec3, what string) {
	if !t.cfg.Debug {
		return
	}
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			panic(fmt.Sprintf("physics: non-finite %s %v", what, v))
		}
	}
}

// Package app drives the physics engine in real time over a generated scene
// and streams its metrics to telemetry clients.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zeusync/voxphys/internal/config"
	"github.com/zeusync/voxphys/internal/core/events/bus"
	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/system"
	"github.com/zeusync/voxphys/internal/core/systems/physics"
	"github.com/zeusync/voxphys/internal/core/terrain"
	"github.com/zeusync/voxphys/internal/telemetry"
)

// Stats tallies the physics events observed on the bus.
type Stats struct {
	Landings       uint64
	ProjectileHits uint64
}

type App struct {
	cfg     config.Config
	logger  log.Log
	bus     bus.EventBus
	terrain *terrain.Chunked
	engine  *physics.Engine
	manager *system.Manager
	hub     *telemetry.Hub
	server  *telemetry.Server
	scene   Scene

	landings atomic.Uint64
	hits     atomic.Uint64
}

// New populates the scene and registers the helm and physics systems. The
// hub observes every bus event.
func New(
	cfg config.Config,
	logger log.Log,
	eb bus.EventBus,
	vol *terrain.Chunked,
	engine *physics.Engine,
	manager *system.Manager,
	hub *telemetry.Hub,
	server *telemetry.Server,
) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  logger.Named("app"),
		bus:     eb,
		terrain: vol,
		engine:  engine,
		manager: manager,
		hub:     hub,
		server:  server,
	}

	scene, err := Populate(cfg.Simulation.Scene, engine)
	if err != nil {
		return nil, fmt.Errorf("app: populate scene: %w", err)
	}
	a.scene = scene

	if err := manager.RegisterSystem(NewHelm(engine.World(), scene.Ships)); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := manager.RegisterSystem(engine); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if _, err := eb.Subscribe(physics.EventLandOnGround, func(bus.Event) error {
		a.landings.Add(1)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("app: subscribe landings: %w", err)
	}
	if _, err := eb.Subscribe(physics.EventProjectileHit, func(ev bus.Event) error {
		a.hits.Add(1)
		if hit, ok := ev.Data().(physics.ProjectileHit); ok {
			a.logger.Debug("projectile stuck",
				log.Uint64("entity", uint64(hit.Entity)),
				log.Any("block", hit.Block),
			)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("app: subscribe hits: %w", err)
	}
	eb.AddObserver(hub)

	a.logger.Info("scene populated",
		log.Int("walkers", len(scene.Walkers)),
		log.Int("arrows", len(scene.Arrows)),
		log.Int("ships", len(scene.Ships)),
		log.Uint64("seed", cfg.Simulation.Scene.Seed),
	)
	return a, nil
}

func (a *App) Engine() *physics.Engine   { return a.engine }
func (a *App) Manager() *system.Manager  { return a.manager }
func (a *App) Terrain() *terrain.Chunked { return a.terrain }
func (a *App) Hub() *telemetry.Hub       { return a.hub }
func (a *App) Scene() Scene              { return a.scene }

func (a *App) Stats() Stats {
	return Stats{Landings: a.landings.Load(), ProjectileHits: a.hits.Load()}
}

// Step runs every system once and publishes the resulting tick.
func (a *App) Step(ctx context.Context, dt float64) error {
	if err := a.manager.Update(ctx, dt); err != nil {
		return err
	}
	a.hub.PublishTick(a.engine.LastTick())
	return nil
}

// Run steps the simulation at the configured tick rate until ctx is done or
// the configured number of ticks has run.
func (a *App) Run(ctx context.Context) error {
	sim := a.cfg.Simulation
	if a.cfg.Telemetry.Enabled {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("app: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.server.Stop(stopCtx); err != nil {
				a.logger.Warn("telemetry stop failed", log.Error(err))
			}
		}()
	}

	dt := 1 / sim.TickRate
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	a.logger.Info("simulation started", log.Float64("tick_rate", sim.TickRate), log.Uint64("ticks", sim.Ticks))
	defer a.logSummary()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := a.Step(ctx, dt); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("app: tick %d: %w", a.engine.LastTick().Tick+1, err)
		}
		if sim.Ticks > 0 && a.engine.LastTick().Tick >= sim.Ticks {
			return nil
		}
	}
}

func (a *App) logSummary() {
	m := a.manager.GetMetrics()
	last := a.engine.LastTick()
	stats := a.Stats()
	a.logger.Info("simulation stopped",
		log.Uint64("ticks", last.Tick),
		log.Uint64("digest", a.engine.Digest()),
		log.Uint64("landings", stats.Landings),
		log.Uint64("projectile_hits", stats.ProjectileHits),
		log.Duration("avg_update", m.AverageUpdateTime),
	)
}

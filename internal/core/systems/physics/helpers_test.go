package physics

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxphys/internal/core/events/bus"
	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/terrain"
)

const testDt = 1.0 / 30

var rock = terrain.Block{Kind: terrain.Rock}

func humanoidBody() *Body {
	return &Body{Kind: BodyHumanoid, Dimensions: mgl64.Vec3{0.8, 0.8, 1.8}}
}

func walkerSpec(pos, vel mgl64.Vec3) EntitySpec {
	return EntitySpec{
		Pos:      pos,
		Vel:      vel,
		Collider: CapsulePrism{Radius: 0.4, ZMax: 1.8},
		Body:     humanoidBody(),
		Mass:     80,
		Density:  1000,
	}
}

// flatWorld has its ground surface at z = 10.
func flatWorld() *terrain.Chunked {
	return terrain.Flat(1, 10, rock)
}

func newEngine(t *testing.T, vol terrain.Volume, eb bus.EventBus, opts ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 2
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := NewEngine(cfg, NewWorld(), vol, NewManifestStore(), eb, log.NewNop())
	require.NoError(t, err)
	return e
}

func spawn(t *testing.T, e *Engine, spec EntitySpec) models.EntityID {
	t.Helper()
	id, err := e.World().Spawn(spec)
	require.NoError(t, err)
	return id
}

func tickN(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.Tick(context.Background(), testDt)
		require.NoError(t, err)
	}
}

func position(e *Engine, id models.EntityID) mgl64.Vec3 {
	p, _ := e.World().Positions.Value(id)
	return p
}

func velocity(e *Engine, id models.EntityID) mgl64.Vec3 {
	v, _ := e.World().Velocities.Value(id)
	return v
}

func physicsState(e *Engine, id models.EntityID) PhysicsState {
	s, _ := e.World().PhysicsStates.Value(id)
	return s
}

func requireVecInDelta(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		require.InDelta(t, want[i], got[i], delta, "axis %d: want %v got %v", i, want, got)
	}
}

package app

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/systems"
	"github.com/zeusync/voxphys/internal/core/systems/physics"
)

const (
	shipSpeed   = 3.0
	shipYawRate = 0.2
)

// Helm steers ships along circles by setting their velocity and yaw before
// the physics system runs. Ships have no mass, so the integrator never
// touches them and the velocity set here is what the sweep applies.
type Helm struct {
	world    *physics.World
	ships    []models.EntityID
	recorder systems.MetricsRecorder
}

var _ systems.System = (*Helm)(nil)

func NewHelm(world *physics.World, ships []models.EntityID) *Helm {
	return &Helm{world: world, ships: ships}
}

func (h *Helm) Name() string                           { return "helm" }
func (h *Helm) Priority() systems.Priority             { return systems.PriorityNormal }
func (h *Helm) ExecutionPhase() systems.ExecutionPhase { return systems.PhasePreUpdate }
func (h *Helm) GetMetrics() systems.Metrics            { return h.recorder.Snapshot() }

func (h *Helm) Update(_ context.Context, deltaTime float64) error {
	started := time.Now()
	steered := 0
	turn := mgl64.QuatRotate(shipYawRate*deltaTime, mgl64.Vec3{0, 0, 1})
	for _, id := range h.ships {
		ori, ok := h.world.Orientations.Get(id)
		if !ok {
			continue
		}
		*ori = turn.Mul(*ori).Normalize()
		h.world.Velocities.Insert(id, ori.Rotate(mgl64.Vec3{shipSpeed, 0, 0}))
		steered++
	}
	h.recorder.Record(started, steered, nil)
	return nil
}

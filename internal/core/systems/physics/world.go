package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
)

// World is the component store the engine simulates. Tables are only mutated
// between ticks or from the engine's single-threaded phases.
type World struct {
	ids models.Allocator

	Positions       *models.Table[mgl64.Vec3]
	Velocities      *models.Table[mgl64.Vec3]
	Orientations    *models.Table[mgl64.Quat]
	Colliders       *models.Table[Collider]
	Masses          *models.Table[float64]
	Densities       *models.Table[float64]
	Scales          *models.Table[float64]
	Bodies          *models.Table[Body]
	CharacterStates *models.Table[CharacterState]

	Sticky      *models.Set
	Immovable   *models.Set
	Projectiles *models.Set

	PhysicsStates *models.Table[PhysicsState]
	PrevCaches    *models.Table[PreviousPhysCache]
}

func NewWorld() *World {
	return &World{
		Positions:       models.NewTable[mgl64.Vec3](),
		Velocities:      models.NewTable[mgl64.Vec3](),
		Orientations:    models.NewTable[mgl64.Quat](),
		Colliders:       models.NewTable[Collider](),
		Masses:          models.NewTable[float64](),
		Densities:       models.NewTable[float64](),
		Scales:          models.NewTable[float64](),
		Bodies:          models.NewTable[Body](),
		CharacterStates: models.NewTable[CharacterState](),
		Sticky:          models.NewSet(),
		Immovable:       models.NewSet(),
		Projectiles:     models.NewSet(),
		PhysicsStates:   models.NewTable[PhysicsState](),
		PrevCaches:      models.NewTable[PreviousPhysCache](),
	}
}

// EntitySpec describes an entity to spawn. Zero Mass or Density leave the
// component absent, excluding the entity from the passes that need it.
type EntitySpec struct {
	Pos      mgl64.Vec3
	Vel      mgl64.Vec3
	Ori      mgl64.Quat
	Collider Collider
	Body     *Body
	Mass     float64
	Density  float64
	// Scale defaults to 1.
	Scale          float64
	CharacterState *CharacterState

	Sticky     bool
	Immovable  bool
	Projectile bool
}

func (s EntitySpec) validate() error {
	switch {
	case s.Mass < 0 || math.IsNaN(s.Mass):
		return fmt.Errorf("%w: %v", ErrInvalidMass, s.Mass)
	case s.Density < 0 || math.IsNaN(s.Density):
		return fmt.Errorf("%w: %v", ErrInvalidDensity, s.Density)
	case s.Scale < 0 || math.IsNaN(s.Scale):
		return fmt.Errorf("%w: %v", ErrInvalidScale, s.Scale)
	}
	return nil
}

// Spawn creates an entity from spec.
func (w *World) Spawn(spec EntitySpec) (models.EntityID, error) {
	if err := spec.validate(); err != nil {
		return 0, err
	}
	id := w.ids.Next()

	ori := spec.Ori
	if ori == (mgl64.Quat{}) {
		ori = mgl64.QuatIdent()
	}
	w.Positions.Insert(id, spec.Pos)
	w.Velocities.Insert(id, spec.Vel)
	w.Orientations.Insert(id, ori.Normalize())
	if spec.Collider != nil {
		w.Colliders.Insert(id, spec.Collider)
	}
	if spec.Body != nil {
		w.Bodies.Insert(id, *spec.Body)
	}
	if spec.Mass > 0 {
		w.Masses.Insert(id, spec.Mass)
	}
	if spec.Density > 0 {
		w.Densities.Insert(id, spec.Density)
	}
	if spec.Scale > 0 {
		w.Scales.Insert(id, spec.Scale)
	}
	if spec.CharacterState != nil {
		w.CharacterStates.Insert(id, *spec.CharacterState)
	}
	if spec.Sticky {
		models.Mark(w.Sticky, id)
	}
	if spec.Immovable {
		models.Mark(w.Immovable, id)
	}
	if spec.Projectile {
		models.Mark(w.Projectiles, id)
	}
	return id, nil
}

// Despawn removes every component of id.
func (w *World) Despawn(id models.EntityID) {
	w.Positions.Remove(id)
	w.Velocities.Remove(id)
	w.Orientations.Remove(id)
	w.Colliders.Remove(id)
	w.Masses.Remove(id)
	w.Densities.Remove(id)
	w.Scales.Remove(id)
	w.Bodies.Remove(id)
	w.CharacterStates.Remove(id)
	w.Sticky.Remove(id)
	w.Immovable.Remove(id)
	w.Projectiles.Remove(id)
	w.PhysicsStates.Remove(id)
	w.PrevCaches.Remove(id)
}

func (w *World) scale(id models.EntityID) float64 {
	if s, ok := w.Scales.Value(id); ok {
		return s
	}
	return 1
}

func (w *World) characterState(id models.EntityID) *CharacterState {
	cs, _ := w.CharacterStates.Get(id)
	return cs
}

// simulated lists, in ascending id order, every entity the terrain and cache
// passes run on.
func (w *World) simulated() []models.EntityID {
	return w.Colliders.Join(w.Positions, w.Velocities, w.Orientations, w.PhysicsStates, w.PrevCaches).Collect()
}

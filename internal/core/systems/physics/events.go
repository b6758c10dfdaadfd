package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/events/bus"
	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/terrain"
)

const (
	EventLandOnGround  = "physics.land_on_ground"
	EventProjectileHit = "physics.projectile_hit"

	eventSource = "physics"
)

// LandOnGround is published when an entity that was airborne last tick comes
// to rest on a surface. Vel is the velocity at impact.
type LandOnGround struct {
	Entity        models.EntityID
	Vel           mgl64.Vec3
	SurfaceNormal mgl64.Vec3
}

// ProjectileHit is published when a sticky point collider enters a block.
type ProjectileHit struct {
	Entity models.EntityID
	Pos    mgl64.Vec3
	Block  terrain.Pos
	Kind   terrain.BlockKind
	Vel    mgl64.Vec3
}

func (r terrainResult) events() []bus.Event {
	var out []bus.Event
	if r.landed != nil {
		out = append(out, bus.NewEvent(EventLandOnGround, eventSource, *r.landed))
	}
	if r.hit != nil {
		out = append(out, bus.NewEvent(EventProjectileHit, eventSource, *r.hit))
	}
	return out
}

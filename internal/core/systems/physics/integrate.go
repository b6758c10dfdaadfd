package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/terrain"
	"github.com/zeusync/voxphys/pkg/concurrent"
)

// forceBody holds the per-entity inputs of the integrator.
type forceBody struct {
	body    Body
	wings   *Wings
	mass    float64
	density float64
	scale   float64
}

// integrateForces advances vel by gravity, buoyancy and drag over dt.
func (c Config) integrateForces(dt float64, vel mgl64.Vec3, b forceBody, fluid Fluid) mgl64.Vec3 {
	if !fluid.Present() {
		vel[2] -= dt * c.Gravity
		return vel
	}

	fluidDensity := c.FluidDensity(fluid, b.body.Height()*b.scale)
	relFlow := fluid.Vel.Sub(vel)
	if relFlow.Len() > epsilon {
		if fluid.IsLiquid() {
			k := b.body.DragCoefficientLiquid(fluidDensity, b.scale) / b.mass
			vel = fluid.Vel.Add(vel.Sub(fluid.Vel).Mul(math.Exp(-k * dt)))
		} else {
			vel = applyImpulse(vel, b.body.AerodynamicForces(relFlow, fluidDensity, b.wings, b.scale).Mul(dt), b.mass)
		}
	}

	vel[2] -= dt * c.Gravity * (b.density - fluidDensity) / b.density
	return vel
}

// applyImpulse adds impulse/mass to vel unless that would flip the velocity
// along the impulse direction, in which case 90% of the velocity along that
// direction is removed instead.
func applyImpulse(vel, impulse mgl64.Vec3, mass float64) mgl64.Vec3 {
	mag := impulse.Len()
	if mag < epsilon {
		return vel
	}
	next := vel.Add(impulse.Mul(1 / mass))
	dir := impulse.Mul(1 / mag)
	along, nextAlong := vel.Dot(dir), next.Dot(dir)
	if along*nextAlong < 0 {
		return vel.Sub(dir.Mul(along * 0.9))
	}
	return next
}

func (t *tick) integrationEntities(sim []models.EntityID) []models.EntityID {
	w := t.world
	out := make([]models.EntityID, 0, len(sim))
	for _, id := range sim {
		if w.Bodies.Has(id) && w.Masses.Has(id) && w.Densities.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// integrate runs the force integrator. Each task owns the velocity of its
// entity and reads nothing about other entities.
func (t *tick) integrate(ids []models.EntityID) error {
	w := t.world
	dt := math.Min(t.dt, MaxIntegrationDt)
	return concurrent.ForEach(len(ids), t.workers, func(_, i int) error {
		id := ids[i]
		pos, _ := w.Positions.Value(id)
		if !t.vol.Loaded(terrain.PosOf(pos)) {
			return nil
		}
		cache, _ := w.PrevCaches.Get(id)
		if w.Sticky.Has(id) && cache.WasOnSurface {
			return nil
		}

		body, _ := w.Bodies.Value(id)
		mass, _ := w.Masses.Value(id)
		density, _ := w.Densities.Value(id)
		b := forceBody{
			body:    body,
			wings:   w.characterState(id).wings(),
			mass:    mass,
			density: density,
			scale:   w.scale(id),
		}
		vel, _ := w.Velocities.Get(id)
		*vel = t.cfg.integrateForces(dt, *vel, b, cache.PrevFluid)
		t.assertFinite(*vel, "integrated velocity")
		return nil
	})
}

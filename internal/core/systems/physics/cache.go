package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/pkg/concurrent"
)

// zLimits returns the scaled vertical extents of c, halved for dodging and
// gliding characters.
func zLimits(c Collider, cs *CharacterState, scale float64) (float64, float64) {
	zMin, zMax := c.ZLimits()
	m := cs.hitboxScale() * scale
	return zMin * m, zMax * m
}

func rotateFlat(q mgl64.Quat, v mgl64.Vec2) mgl64.Vec2 {
	r := q.Rotate(mgl64.Vec3{v[0], v[1], 0})
	return mgl64.Vec2{r[0], r[1]}
}

// prismOrigins rotates the prism endpoints into world space and restores the
// axis length lost to pitch and roll. Coincident endpoints collapse to one
// point.
func prismOrigins(c CapsulePrism, ori mgl64.Quat, scale float64) [2]mgl64.Vec2 {
	mid := rotateFlat(ori, c.P0.Add(c.P1).Mul(0.5)).Mul(scale)
	axis := c.P1.Sub(c.P0)
	length := axis.Len()
	if length < epsilon {
		return [2]mgl64.Vec2{mid, mid}
	}
	dir := rotateFlat(ori, axis)
	if dir.Len() < epsilon {
		dir = axis
	}
	half := dir.Normalize().Mul(length * scale / 2)
	return [2]mgl64.Vec2{mid.Sub(half), mid.Add(half)}
}

// cacheFor derives the start-of-tick geometry. The end-of-tick pose recorded
// in prev and the contact hints of state carry over.
func cacheFor(prev PreviousPhysCache, state *PhysicsState, c Collider, cs *CharacterState,
	pos, vel mgl64.Vec3, ori mgl64.Quat, scale, dt float64,
) PreviousPhysCache {
	zMin, zMax := zLimits(c, cs, scale)
	half := (zMax - zMin) / 2
	vdt := vel.Mul(dt)
	flat := c.BoundingRadius() * scale

	next := PreviousPhysCache{
		VelocityDt:        vdt,
		Center:            pos.Add(mgl64.Vec3{0, 0, zMin + half}).Add(vdt.Mul(0.5)),
		CollisionBoundary: math.Hypot(flat, half) + vdt.Len()/2,
		Scale:             scale,
		ScaledRadius:      flat,
		ZLimits:           [2]float64{zMin, zMax},
		Pos:               prev.Pos,
		Ori:               prev.Ori,
		WasOnGround:       state.OnGround,
		WasOnSurface:      state.OnSurface(),
		PrevFluid:         state.InFluid,
	}
	switch c := c.(type) {
	case CapsulePrism:
		next.NeighborhoodRadius = c.Radius * scale
		next.Origins = prismOrigins(c, ori, scale)
		next.HasOrigins = true
	case Voxel:
		next.NeighborhoodRadius = flat
	case Point:
	}
	return next
}

func (t *tick) ensureComponents() {
	w := t.world
	for id := range w.Colliders.Join(w.Positions, w.Velocities, w.Orientations).Seq() {
		w.PhysicsStates.InsertIfAbsent(id, newPhysicsState)
		w.PrevCaches.InsertIfAbsent(id, func() PreviousPhysCache {
			pos, _ := w.Positions.Value(id)
			ori, _ := w.Orientations.Value(id)
			return PreviousPhysCache{Pos: pos, Ori: ori}
		})
	}
}

func (t *tick) buildCaches(ids []models.EntityID) error {
	w := t.world
	return concurrent.ForEach(len(ids), t.workers, func(_, i int) error {
		id := ids[i]
		cache, _ := w.PrevCaches.Get(id)
		state, _ := w.PhysicsStates.Get(id)
		c, _ := w.Colliders.Value(id)
		pos, _ := w.Positions.Value(id)
		vel, _ := w.Velocities.Value(id)
		ori, _ := w.Orientations.Value(id)
		*cache = cacheFor(*cache, state, c, w.characterState(id), pos, vel, ori, w.scale(id), t.dt)
		t.assertFinite(cache.Center, "cache center")
		return nil
	})
}

// recordPoses stores the committed end-of-tick pose, read next tick to derive
// carrier motion.
func (t *tick) recordPoses(ids []models.EntityID) {
	w := t.world
	for _, id := range ids {
		cache, _ := w.PrevCaches.Get(id)
		cache.Pos, _ = w.Positions.Value(id)
		cache.Ori, _ = w.Orientations.Value(id)
	}
}

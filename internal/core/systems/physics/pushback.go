package physics

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/spatial"
	"github.com/zeusync/voxphys/pkg/concurrent"
	"github.com/zeusync/voxphys/pkg/generic"
)

// Per-tick broad phase grids are recycled across ticks. The cached grid is
// published to other systems and never comes from these pools.
var (
	fineGrids   = generic.NewResetPool(spatial.Fine, resetGrid)
	coarseGrids = generic.NewResetPool(spatial.Coarse, resetGrid)
)

func resetGrid(g *spatial.Grid) *spatial.Grid {
	g.Clear()
	return g
}

// pushbackIncrements is the number of sub-steps needed so the relative
// displacement of a pair never exceeds MinCollisionDist per step.
func pushbackIncrements(vdtA, vdtB mgl64.Vec3) int {
	return int(math.Ceil(math.Max(1, vdtA.Sub(vdtB).Len()/MinCollisionDist)))
}

// closestPoints returns the closest pair of points between segments p1q1 and
// p2q2. Degenerate segments are treated as points.
func closestPoints(p1, q1, p2, q2 mgl64.Vec2) (mgl64.Vec2, mgl64.Vec2) {
	d1, d2, r := q1.Sub(p1), q2.Sub(p2), p1.Sub(p2)
	a, e, f := d1.Dot(d1), d2.Dot(d2), d2.Dot(r)

	var s, t float64
	switch {
	case a <= epsilon && e <= epsilon:
		return p1, p2
	case a <= epsilon:
		t = mgl64.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= epsilon {
			s = mgl64.Clamp(-c/a, 0, 1)
			break
		}
		b := d1.Dot(d2)
		if denom := a*e - b*b; denom > epsilon {
			s = mgl64.Clamp((b*f-c*e)/denom, 0, 1)
		}
		t = (b*s + f) / e
		if t < 0 {
			t, s = 0, mgl64.Clamp(-c/a, 0, 1)
		} else if t > 1 {
			t, s = 1, mgl64.Clamp((b-c)/a, 0, 1)
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

// pushbackBody is everything the pushback pass reads about one side of a pair.
type pushbackBody struct {
	id    models.EntityID
	pos   mgl64.Vec3
	cache *PreviousPhysCache
	mass  float64
	// inert bodies neither push nor get pushed.
	inert bool
}

func (b *pushbackBody) footprint(factor float64) (mgl64.Vec3, mgl64.Vec2, mgl64.Vec2) {
	pos := b.pos.Add(b.cache.VelocityDt.Mul(factor))
	flat := mgl64.Vec2{pos[0], pos[1]}
	if !b.cache.HasOrigins {
		return pos, flat, flat
	}
	return pos, flat.Add(b.cache.Origins[0]), flat.Add(b.cache.Origins[1])
}

func (t *tick) bodyFor(id models.EntityID) (pushbackBody, bool) {
	w := t.world
	cache, ok := w.PrevCaches.Get(id)
	if !ok {
		return pushbackBody{}, false
	}
	mass, ok := w.Masses.Value(id)
	if !ok {
		return pushbackBody{}, false
	}
	pos, _ := w.Positions.Value(id)
	c, _ := w.Colliders.Value(id)
	_, voxel := c.(Voxel)
	inert := voxel ||
		w.Projectiles.Has(id) ||
		w.Immovable.Has(id) ||
		(w.Sticky.Has(id) && cache.WasOnSurface) ||
		w.characterState(id).forcedMovement()
	return pushbackBody{id: id, pos: pos, cache: cache, mass: mass, inert: inert}, true
}

// pushbackEntities lists the entities taking part in pushback.
func (t *tick) pushbackEntities(sim []models.EntityID) []models.EntityID {
	w := t.world
	out := make([]models.EntityID, 0, len(sim))
	for _, id := range sim {
		if w.Masses.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func buildFineGrid(w *World, ids []models.EntityID) *spatial.Grid {
	g := fineGrids.Get()
	for _, id := range ids {
		cache, _ := w.PrevCaches.Get(id)
		g.Insert(spatial.BucketPos(cache.Center[0], cache.Center[1]), uint32(math.Ceil(cache.CollisionBoundary)), id)
	}
	return g
}

// pushback applies entity-vs-entity repulsion to every id. Each task writes
// only its own velocity and touch set; other entities are read from the
// cache and committed positions.
func (t *tick) pushback(ids []models.EntityID) error {
	w := t.world
	return concurrent.ForEach(len(ids), t.workers, func(worker, i int) error {
		self, _ := t.bodyFor(ids[i])
		state, _ := w.PhysicsStates.Get(self.id)
		clear(state.Touching)
		if self.cache.CollisionBoundary > MaxPushbackBoundary {
			return nil
		}

		stats := &t.stats[worker]
		var dv mgl64.Vec3
		center := [2]float64{self.cache.Center[0], self.cache.Center[1]}
		// Sorted so the impulse sum does not depend on bucket iteration order.
		for _, other := range slices.Sorted(t.fine.InCircleAABR(center, self.cache.CollisionBoundary)) {
			if other == self.id {
				continue
			}
			ob, ok := t.bodyFor(other)
			if !ok {
				continue
			}
			reach := self.cache.CollisionBoundary + ob.cache.CollisionBoundary
			if d := self.cache.Center.Sub(ob.cache.Center); d.Dot(d) > reach*reach {
				continue
			}
			stats.checks++
			touched, delta := resolvePair(&self, &ob)
			if touched {
				stats.collisions++
				state.Touching[other] = struct{}{}
				dv = dv.Add(delta)
			}
		}

		if dv != (mgl64.Vec3{}) {
			vel, _ := w.Velocities.Get(self.id)
			*vel = vel.Add(dv.Mul(t.dt))
			t.assertFinite(*vel, "pushback velocity")
		}
		return nil
	})
}

// resolvePair sweeps both bodies along their cached displacement and returns
// whether they touched along with the force accumulated on a.
func resolvePair(a, b *pushbackBody) (bool, mgl64.Vec3) {
	increments := pushbackIncrements(a.cache.VelocityDt, b.cache.VelocityDt)
	step := 1 / float64(increments)
	pushable := !a.inert && !b.inert
	collisionDist := a.cache.NeighborhoodRadius + b.cache.NeighborhoodRadius

	var (
		touched bool
		force   mgl64.Vec3
	)
	for i := 0; i < increments; i++ {
		factor := float64(i) * step
		posA, a0, a1 := a.footprint(factor)
		posB, b0, b1 := b.footprint(factor)

		if posA[2]+a.cache.ZLimits[1] < posB[2]+b.cache.ZLimits[0] ||
			posA[2]+a.cache.ZLimits[0] > posB[2]+b.cache.ZLimits[1] {
			continue
		}

		pa, pb := closestPoints(a0, a1, b0, b1)
		diff := pa.Sub(pb)
		dist := diff.Len()
		if dist >= collisionDist {
			continue
		}
		touched = true
		if !pushable {
			continue
		}

		normal := separationNormal(diff, dist, a.id, b.id)
		massCoef := b.mass / (a.mass + b.mass)
		magnitude := ElasticForceCoefficient * (collisionDist - dist) * massCoef * step
		force = force.Add(mgl64.Vec3{normal[0], normal[1], 0}.Mul(magnitude))
	}
	return touched, force
}

// separationNormal points from b toward a. Coincident centers fall back to an
// axis ordered by id so the two sides of a pair push in opposite directions.
func separationNormal(diff mgl64.Vec2, dist float64, a, b models.EntityID) mgl64.Vec2 {
	if dist > epsilon {
		return diff.Mul(1 / dist)
	}
	if a < b {
		return mgl64.Vec2{-1, 0}
	}
	return mgl64.Vec2{1, 0}
}

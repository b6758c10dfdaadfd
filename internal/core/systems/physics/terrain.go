package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/deferred"
	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/terrain"
	"github.com/zeusync/voxphys/pkg/concurrent"
)

// terrainResult is what one terrain task hands to the sequential reduction.
type terrainResult struct {
	landed *LandOnGround
	hit    *ProjectileHit
	stuck  bool
}

// splitCarriers separates entities carrying a voxel volume, which must settle
// before anything can collide with them.
func splitCarriers(w *World, sim []models.EntityID) (carriers, rest []models.EntityID) {
	for _, id := range sim {
		shape, _ := w.Colliders.Value(id)
		if _, ok := shape.(Voxel); ok {
			carriers = append(carriers, id)
		} else {
			rest = append(rest, id)
		}
	}
	return carriers, rest
}

// terrainPass resolves ids against terrain and carriers in parallel. Writes
// go to the deferred buffer and are committed once every task has finished.
func (t *tick) terrainPass(ids []models.EntityID) ([]terrainResult, int, error) {
	results := make([]terrainResult, len(ids))
	t.deferred.Begin(ids)
	err := concurrent.ForEach(len(ids), t.workers, func(_, i int) error {
		results[i] = t.resolveTerrain(ids[i], t.deferred.Slot(i))
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return results, t.deferred.Commit(t.commit), nil
}

func (t *tick) commit(id models.EntityID, p deferred.Pending) {
	w := t.world
	if p.Pos != nil {
		w.Positions.Insert(id, *p.Pos)
	}
	if p.Vel != nil {
		w.Velocities.Insert(id, *p.Vel)
	}
	if p.Ori != nil {
		w.Orientations.Insert(id, p.Ori.Normalize())
	}
}

// shapeCylinder approximates a collider against voxels. Points have no
// cylinder and are ray cast instead.
func shapeCylinder(shape Collider, scale float64) (cylinder, bool) {
	switch c := shape.(type) {
	case Voxel:
		return cylinder{radius: c.BoundingRadius() * scale * voxelRadiusFraction, zMax: c.Height * scale}, true
	case CapsulePrism:
		return cylinder{
			radius: math.Min(c.BoundingRadius(), maxCapsuleRadius) * scale,
			zMin:   c.ZMin * scale,
			zMax:   mgl64.Clamp(c.ZMax, minCapsuleHeight, maxCapsuleHeight) * scale,
		}, true
	default:
		return cylinder{}, false
	}
}

// resolveTerrain is the narrow phase of one entity. It reads committed state
// only and owns the entity's PhysicsState.
func (t *tick) resolveTerrain(id models.EntityID, out *deferred.Pending) terrainResult {
	w := t.world
	pos, _ := w.Positions.Value(id)
	vel, _ := w.Velocities.Value(id)
	ori, _ := w.Orientations.Value(id)
	shape, _ := w.Colliders.Value(id)
	state, _ := w.PhysicsStates.Get(id)
	cache, _ := w.PrevCaches.Get(id)
	body, hasBody := w.Bodies.Value(id)
	scale := w.scale(id)
	sticky := w.Sticky.Has(id)
	origPos, origVel, origOri := pos, vel, ori

	var res terrainResult
	land := func(v, n mgl64.Vec3) {
		res.landed = &LandOnGround{Entity: id, Vel: v, SurfaceNormal: n}
	}

	loaded := t.vol.Loaded(terrain.PosOf(pos))
	displacement := func(v mgl64.Vec3) mgl64.Vec3 {
		if !loaded {
			return mgl64.Vec3{}
		}
		return v.Mul(t.dt)
	}

	var next PhysicsState
	switch cyl, isCylinder := shapeCylinder(shape, scale); {
	case sticky && cache.WasOnSurface:
		// Stuck in place: follow the surface and keep the contacts.
		next = *state
		vel = state.GroundVel
		pos = pos.Add(displacement(vel))

	case isCylinder:
		next = PhysicsState{Touching: state.Touching}
		in := sweepInput{
			wasOnGround:  cache.WasOnGround,
			blockSnap:    hasBody && body.FloorSnaps(),
			climbing:     w.characterState(id).climbing(),
			prevInLiquid: cache.PrevFluid.IsLiquid(),
			friction:     t.cfg.GroundFriction,
			dt:           t.dt,
			carrier:      state.Carrier,
			carrierVel:   state.GroundVel,
		}
		// The terrain result becomes the target of every carrier sweep, each
		// of which starts again from pos.
		cpos := pos
		sw := sweeper{vol: t.vol, cyl: cyl}
		res.stuck = sw.resolve(in, &cpos, pos.Add(displacement(vel)), &vel, &next, land)
		res.stuck = t.collideWithCarriers(id, cyl, in, pos, &cpos, &vel, &ori, &next, land) || res.stuck
		pos = cpos
		if sticky && next.OnSurface() {
			vel = next.GroundVel
		}

	default:
		next = PhysicsState{Touching: state.Touching}
		res.hit = t.resolvePoint(id, &pos, pos.Add(displacement(vel)), &vel, &next, sticky && !cache.WasOnSurface)
	}

	t.assertFinite(pos, "resolved position")
	t.assertFinite(vel, "resolved velocity")
	*state = next
	if pos != origPos {
		out.SetPos(pos)
	}
	if vel != origVel {
		out.SetVel(vel)
	}
	if ori != origOri {
		out.SetOri(ori)
	}
	return res
}

// resolvePoint ray casts a point collider to its target. A ray starting inside
// a solid block hits at distance zero, which keeps resting points in place.
func (t *tick) resolvePoint(id models.EntityID, pos *mgl64.Vec3, tgt mgl64.Vec3, vel *mgl64.Vec3, state *PhysicsState, fresh bool) *ProjectileHit {
	delta := tgt.Sub(*pos)
	hit := terrain.Ray(t.vol, *pos, tgt).Cast()

	var event *ProjectileHit
	if !hit.Hit {
		*pos = tgt
	} else {
		if l := delta.Len(); l > epsilon {
			*pos = pos.Add(delta.Mul(hit.Dist / l))
		}
		impact := *vel
		// Classify the face by the offset from the center of the filled part
		// of the block, scaled by its half extents.
		half := 0.5
		if h := hit.Block.SolidHeight(); h > 0 {
			half = h / 2
		}
		rpos := pos.Sub(hit.Pos.Vec().Add(mgl64.Vec3{0.5, 0.5, half}))
		ax, ay, az := math.Abs(rpos[0])/0.5, math.Abs(rpos[1])/0.5, math.Abs(rpos[2])/half
		switch {
		case az >= ax && az >= ay:
			if rpos[2] > 0 {
				state.setGround(hit.Block)
			} else {
				state.OnCeiling = true
			}
			vel[2] = 0
		case ax >= ay:
			state.OnWall = true
			state.WallDir = mgl64.Vec3{-math.Copysign(1, rpos[0]), 0, 0}
			vel[0] = 0
		default:
			state.OnWall = true
			state.WallDir = mgl64.Vec3{0, -math.Copysign(1, rpos[1]), 0}
			vel[1] = 0
		}
		if fresh {
			event = &ProjectileHit{Entity: id, Pos: *pos, Block: hit.Pos, Kind: hit.Block.Kind, Vel: impact}
		}
	}

	state.InFluid = AirFluid(pos[2])
	if b, ok := t.vol.Get(terrain.PosOf(*pos)); ok {
		if kind, liquid := b.LiquidKind(); liquid {
			cell := terrain.PosOf(*pos)
			state.InFluid = LiquidFluid(kind, float64(cell.Z)+1-pos[2])
		}
	}
	return event
}

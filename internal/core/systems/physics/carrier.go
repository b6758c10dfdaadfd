package physics

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/spatial"
)

// frame is the rigid transform of a voxel carrier at one instant.
type frame struct {
	pos         mgl64.Vec3
	ori         mgl64.Quat
	scale       float64
	translation mgl64.Vec3
}

func (f frame) toLocal(w mgl64.Vec3) mgl64.Vec3 {
	return f.ori.Conjugate().Rotate(w.Sub(f.pos)).Mul(1 / f.scale).Sub(f.translation)
}

func (f frame) toWorld(l mgl64.Vec3) mgl64.Vec3 {
	return f.pos.Add(f.ori.Rotate(l.Add(f.translation).Mul(f.scale)))
}

// carrier is another entity's voxel volume seen from the current pass: now is
// its committed pose, last its pose at the end of the previous tick.
type carrier struct {
	id     models.EntityID
	volume VoxelVolume
	now    frame
	last   frame
}

func (t *tick) carrier(id models.EntityID) (carrier, bool) {
	w := t.world
	shape, _ := w.Colliders.Value(id)
	v, ok := shape.(Voxel)
	if !ok {
		return carrier{}, false
	}
	vv, ok := t.manifest.Get(v.ID)
	if !ok || vv.Volume == nil {
		return carrier{}, false
	}
	cache, ok := w.PrevCaches.Get(id)
	if !ok {
		return carrier{}, false
	}
	pos, _ := w.Positions.Value(id)
	ori, _ := w.Orientations.Value(id)
	scale := w.scale(id)
	return carrier{
		id:     id,
		volume: vv,
		now:    frame{pos: pos, ori: ori, scale: scale, translation: vv.Translation},
		last:   frame{pos: cache.Pos, ori: cache.Ori, scale: scale, translation: vv.Translation},
	}, true
}

// bounds returns the sphere enclosing the volume at its committed pose.
func (c carrier) bounds() (mgl64.Vec3, float64) {
	half := c.volume.Height / 2
	center := c.now.pos.Add(c.now.ori.Rotate(mgl64.Vec3{0, 0, half * c.now.scale}))
	return center, math.Hypot(c.volume.Radius, half) * c.now.scale
}

// riderRotation is the yaw the carrier turned through since the last tick.
func (c carrier) riderRotation() mgl64.Quat {
	fwd := c.now.ori.Mul(c.last.ori.Conjugate()).Rotate(mgl64.Vec3{1, 0, 0})
	if math.Hypot(fwd[0], fwd[1]) < epsilon {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(math.Atan2(fwd[1], fwd[0]), mgl64.Vec3{0, 0, 1})
}

// buildVoxelGrid indexes every entity carrying a known voxel volume.
func (t *tick) buildVoxelGrid(sim []models.EntityID) *spatial.Grid {
	g := coarseGrids.Get()
	for _, id := range sim {
		c, ok := t.carrier(id)
		if !ok {
			continue
		}
		cache, _ := t.world.PrevCaches.Get(id)
		center, radius := c.bounds()
		g.Insert(spatial.BucketPos(center[0], center[1]), uint32(math.Ceil(radius+cache.VelocityDt.Len()))+1, id)
	}
	return g
}

// collideWithCarriers repeats the sweep from pos toward *tgt inside the local
// frame of every nearby carrier and merges the outcome into state. It reports
// whether any of the sweeps got stuck.
func (t *tick) collideWithCarriers(id models.EntityID, cyl cylinder, in sweepInput, pos mgl64.Vec3,
	tgt, vel *mgl64.Vec3, ori *mgl64.Quat, state *PhysicsState, land landFunc,
) bool {
	reach := tgt.Sub(pos).Len() + cyl.radius + cyl.zMax
	candidates := slices.Sorted(t.voxels.InCircleAABR([2]float64{pos[0], pos[1]}, reach))

	stuck := false
	for _, other := range candidates {
		if other == id {
			continue
		}
		c, ok := t.carrier(other)
		if !ok {
			continue
		}
		center, radius := c.bounds()
		if pos.Sub(center).Len() > radius+reach {
			continue
		}

		rposLast := c.last.toLocal(pos)
		carrierVel := c.now.toWorld(rposLast).Sub(pos).Mul(1 / t.dt)
		toLocal := c.now.ori.Conjugate()
		if in.carrier == c.id {
			// Turn the velocity relative to the carrier along with it, so a
			// rider at rest on a yawing deck stays at rest on it.
			rel := c.last.ori.Conjugate().Rotate(vel.Sub(in.carrierVel))
			carried := c.now.ori.Rotate(rel).Add(carrierVel)
			*tgt = tgt.Add(carried.Sub(*vel).Mul(t.dt))
			*vel = carried
		}

		lpos := rposLast
		lvel := toLocal.Rotate(vel.Sub(carrierVel)).Mul(1 / c.now.scale)
		local := PhysicsState{}
		lin := in
		lin.groundVel = mgl64.Vec3{}
		localLand := func(v, n mgl64.Vec3) {
			land(c.now.ori.Rotate(v.Mul(c.now.scale)).Add(carrierVel), c.now.ori.Rotate(n))
		}

		sw := sweeper{vol: c.volume.Volume, cyl: cylinder{
			radius: cyl.radius / c.now.scale,
			zMin:   cyl.zMin / c.now.scale,
			zMax:   cyl.zMax / c.now.scale,
		}}
		if sw.resolve(lin, &lpos, c.now.toLocal(*tgt), &lvel, &local, localLand) {
			stuck = true
		}

		*tgt = c.now.toWorld(lpos)
		*vel = c.now.ori.Rotate(lvel.Mul(c.now.scale)).Add(carrierVel)
		c.reconcile(state, &local, carrierVel, ori)
	}
	return stuck
}

// reconcile merges the contact state found inside a carrier with what the
// entity already touches. Contacts accumulate and the deepest liquid wins.
func (c carrier) reconcile(state, local *PhysicsState, carrierVel mgl64.Vec3, ori *mgl64.Quat) {
	if local.OnGround {
		if !state.OnGround {
			state.setGround(local.GroundBlock)
		}
		state.GroundVel = carrierVel
		state.Carrier = c.id
	}
	if local.OnSurface() {
		*ori = c.riderRotation().Mul(*ori).Normalize()
	}
	state.OnCeiling = state.OnCeiling || local.OnCeiling
	if local.OnWall {
		state.OnWall = true
		state.WallDir = state.WallDir.Add(c.now.ori.Rotate(local.WallDir))
	}
	f := local.InFluid
	f.Depth *= c.now.scale
	if f.IsLiquid() && (!state.InFluid.IsLiquid() || f.Depth > state.InFluid.Depth) {
		f.Vel = carrierVel
		state.InFluid = f
	}
}

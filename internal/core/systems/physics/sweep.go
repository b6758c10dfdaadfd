package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/terrain"
)

type aabb struct {
	min, max mgl64.Vec3
}

func blockAABB(p terrain.Pos, b terrain.Block) aabb {
	lo := p.Vec()
	return aabb{min: lo, max: lo.Add(mgl64.Vec3{1, 1, b.SolidHeight()})}
}

// overlaps is strict: boxes sharing a face do not overlap.
func (a aabb) overlaps(b aabb) bool {
	for i := 0; i < 3; i++ {
		if a.min[i] >= b.max[i] || a.max[i] <= b.min[i] {
			return false
		}
	}
	return true
}

// intersection is the volume shared by a and b.
func (a aabb) intersection(b aabb) float64 {
	v := 1.0
	for i := 0; i < 3; i++ {
		d := math.Min(a.max[i], b.max[i]) - math.Max(a.min[i], b.min[i])
		if d <= 0 {
			return 0
		}
		v *= d
	}
	return v
}

func (a aabb) translate(v mgl64.Vec3) aabb {
	return aabb{min: a.min.Add(v), max: a.max.Add(v)}
}

// collisionVector is the per-axis penetration of b into a, signed toward b.
func collisionVector(a, b aabb) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		ha, hb := (a.max[i]-a.min[i])/2, (b.max[i]-b.min[i])/2
		d := (b.min[i] + hb) - (a.min[i] + ha)
		overlap := ha + hb - math.Abs(d)
		if d < 0 {
			overlap = -overlap
		}
		out[i] = overlap
	}
	return out
}

func minAbsAxis(v mgl64.Vec3) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(v[i]) < math.Abs(v[axis]) {
			axis = i
		}
	}
	return axis
}

// cylinder is the vertical cylinder a shape is approximated by against voxels.
// Its bounding box is what actually collides.
type cylinder struct {
	radius     float64
	zMin, zMax float64
}

func (c cylinder) aabb(pos mgl64.Vec3) aabb {
	return aabb{
		min: pos.Add(mgl64.Vec3{-c.radius, -c.radius, c.zMin}),
		max: pos.Add(mgl64.Vec3{c.radius, c.radius, c.zMax}),
	}
}

type landFunc func(vel, normal mgl64.Vec3)

// sweepInput carries the per-entity flags the box-voxel resolver consults.
type sweepInput struct {
	wasOnGround  bool
	blockSnap    bool
	climbing     bool
	prevInLiquid bool
	groundVel    mgl64.Vec3
	friction     float64
	dt           float64

	// carrier stood on last tick and its point velocity under the entity.
	carrier    models.EntityID
	carrierVel mgl64.Vec3
}

// sweeper resolves a cylinder against one voxel volume.
type sweeper struct {
	vol terrain.Volume
	cyl cylinder
}

// blocksIn calls fn for every loaded block whose cell intersects box.
func (s sweeper) blocksIn(box aabb, fn func(p terrain.Pos, b terrain.Block)) {
	lo, hi := terrain.PosOf(box.min), terrain.PosOf(box.max)
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				p := terrain.Pos{X: x, Y: y, Z: z}
				if b, ok := s.vol.Get(p); ok {
					fn(p, b)
				}
			}
		}
	}
}

func (s sweeper) collidesAt(pos mgl64.Vec3) bool {
	box := s.cyl.aabb(pos)
	hit := false
	s.blocksIn(box, func(p terrain.Pos, b terrain.Block) {
		if !hit && b.IsSolid() && blockAABB(p, b).overlaps(box) {
			hit = true
		}
	})
	return hit
}

type contact struct {
	block terrain.Block
	box   aabb
	dir   mgl64.Vec3
	// resolve is the single-axis push that separates the cylinder.
	resolve mgl64.Vec3
}

// mostColliding finds the overlapping solid block sharing the most volume
// with the cylinder box; ties go to the one cheapest to resolve.
func (s sweeper) mostColliding(pos mgl64.Vec3) (contact, bool) {
	box := s.cyl.aabb(pos)
	var (
		best   contact
		found  bool
		volume float64
		cost   float64
	)
	s.blocksIn(box, func(p terrain.Pos, b terrain.Block) {
		if !b.IsSolid() {
			return
		}
		bb := blockAABB(p, b)
		if !bb.overlaps(box) {
			return
		}
		dir := collisionVector(box, bb)
		axis := minAbsAxis(dir)
		var resolve mgl64.Vec3
		resolve[axis] = -dir[axis]
		v, c := box.intersection(bb), math.Abs(resolve[axis])
		if !found || v > volume+1e-12 || (math.Abs(v-volume) <= 1e-12 && c < cost) {
			best = contact{block: b, box: bb, dir: dir, resolve: resolve}
			found, volume, cost = true, v, c
		}
	})
	return best, found
}

// sweep moves the cylinder from pos toward tgt in increments of at most
// SweepIncrement per axis, relaxing one contact axis at a time. It reports
// whether the attempt budget ran out, in which case the entity is stopped at
// the start of the failing increment.
func (s sweeper) sweep(pos *mgl64.Vec3, tgt mgl64.Vec3, vel *mgl64.Vec3, state *PhysicsState, wasOnGround bool, land landFunc) bool {
	delta := tgt.Sub(*pos)
	largest := math.Max(math.Abs(delta[0]), math.Max(math.Abs(delta[1]), math.Abs(delta[2])))
	increments := int(mgl64.Clamp(math.Ceil(largest/SweepIncrement), 1, MaxSweepIncrements))
	step := delta.Mul(1 / float64(increments))
	up := mgl64.Vec3{0, 0, 1}

	landOnce := func() {
		if !wasOnGround && !state.OnGround {
			land(*vel, up)
		}
	}

	attempts := 0
	for i := 0; i < increments; i++ {
		before := *pos
		*pos = pos.Add(step)

		for attempts < MaxResolveAttempts {
			c, ok := s.mostColliding(*pos)
			if !ok {
				break
			}

			switch {
			case c.resolve[2] > 0:
				landOnce()
				state.setGround(c.block)
			case c.resolve[2] < 0 && vel[2] >= 0:
				state.OnCeiling = true
			}

			if s.canHop(*pos, c) {
				pos[2] = math.Max(pos[2], c.box.max[2])
				landOnce()
				vel[2] = math.Max(vel[2], 0)
				push := mgl64.Vec2{vel[0] * c.resolve[0], vel[1] * c.resolve[1]}
				if push.Len() < 1 {
					*pos = pos.Sub(c.resolve.Normalize().Mul(blockHopNudge))
				}
				state.setGround(c.block)
				break
			}

			axis := minAbsAxis(c.dir)
			if c.resolve[axis]*vel[axis] < 0 {
				vel[axis] = 0
			}
			step[axis] = 0
			*pos = pos.Add(c.resolve)
			attempts++
		}

		if attempts >= MaxResolveAttempts {
			*vel = mgl64.Vec3{}
			*pos = before
			return true
		}
	}
	return false
}

// canHop reports whether a horizontal push against c is really a single block
// step the cylinder can climb: the contact sits low on the body, the space a
// block up is free and there is ground under the resolved position.
func (s sweeper) canHop(pos mgl64.Vec3, c contact) bool {
	if c.resolve[2] != 0 || c.dir[2] >= -blockHopMinOverlap {
		return false
	}
	above := mgl64.Vec3{pos[0], pos[1], math.Ceil(pos[2] + 0.1)}
	if s.collidesAt(above) {
		return false
	}
	return s.collidesAt(pos.Add(c.resolve).Sub(mgl64.Vec3{0, 0, blockHopProbe}))
}

// snapToFloor pulls a walking entity that just lost contact down onto ground
// close beneath it.
func (s sweeper) snapToFloor(in sweepInput, pos, vel *mgl64.Vec3, state *PhysicsState) {
	if state.OnGround || vel[2] > 0 || !in.wasOnGround || !in.blockSnap || in.prevInLiquid {
		return
	}
	if !s.collidesAt(pos.Sub(mgl64.Vec3{0, 0, floorSnapProbe})) {
		return
	}
	height := 0.0
	if b, ok := s.vol.Get(terrain.PosOf(pos.Sub(mgl64.Vec3{0, 0, 0.1}))); ok && b.IsSolid() {
		height = b.SolidHeight()
	}
	vel[2] = 0
	pos[2] = math.Floor(pos[2]-0.1) + height
	if b, ok := s.vol.Get(terrain.PosOf(pos.Sub(mgl64.Vec3{0, 0, 0.01}))); ok && b.IsSolid() {
		state.setGround(b)
	}
}

var wallDirs = [4]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}

// probe classifies liquid and wall contact around pos in a single walk over
// the neighborhood.
func (s sweeper) probe(pos mgl64.Vec3, state *PhysicsState) {
	box := s.cyl.aabb(pos)
	var probes [4]aabb
	for i, d := range wallDirs {
		probes[i] = box.translate(d.Mul(wallProbe))
		probes[i].min[2] += wallProbe
	}

	var (
		walls      [4]bool
		liquidKind terrain.LiquidKind
	)
	liquidTop := math.Inf(-1)
	reach := aabb{
		min: box.min.Sub(mgl64.Vec3{wallProbe, wallProbe, 0}),
		max: box.max.Add(mgl64.Vec3{wallProbe, wallProbe, 0}),
	}
	s.blocksIn(reach, func(p terrain.Pos, b terrain.Block) {
		if kind, ok := b.LiquidKind(); ok {
			cell := aabb{min: p.Vec(), max: p.Vec().Add(mgl64.Vec3{1, 1, 1})}
			if top := cell.max[2]; cell.overlaps(box) && top > liquidTop {
				liquidTop, liquidKind = top, kind
			}
			return
		}
		if !b.IsSolid() {
			return
		}
		bb := blockAABB(p, b)
		for i := range probes {
			if !walls[i] && bb.overlaps(probes[i]) {
				walls[i] = true
			}
		}
	})

	for i, hit := range walls {
		if hit {
			state.OnWall = true
			state.WallDir = state.WallDir.Add(wallDirs[i])
		}
	}
	if !math.IsInf(liquidTop, -1) {
		state.InFluid = LiquidFluid(liquidKind, liquidTop-pos[2])
	} else {
		state.InFluid = AirFluid(pos[2])
	}
}

// applyFriction removes the friction fraction of vel once per 1/60 s.
func applyFriction(vel mgl64.Vec3, friction, dt float64) mgl64.Vec3 {
	return vel.Mul(math.Pow(1-math.Min(friction, 1), dt*60))
}

// resolve runs the full box-voxel resolution: sweep, floor snap, liquid and
// wall probe, then ground friction.
func (s sweeper) resolve(in sweepInput, pos *mgl64.Vec3, tgt mgl64.Vec3, vel *mgl64.Vec3, state *PhysicsState, land landFunc) bool {
	stuck := s.sweep(pos, tgt, vel, state, in.wasOnGround, land)
	s.snapToFloor(in, pos, vel, state)
	s.probe(*pos, state)
	if state.OnGround || (state.OnWall && in.climbing) {
		*vel = applyFriction(*vel, in.friction, in.dt)
		state.GroundVel = in.groundVel
	}
	return stuck
}

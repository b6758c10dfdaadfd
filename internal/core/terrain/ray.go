package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RayCast walks the blocks crossed by a segment using a 3D DDA.
type RayCast struct {
	vol      Volume
	from, to mgl64.Vec3
	until    func(Block) bool
}

// RayHit is the result of a cast. Dist is the distance travelled along the
// segment to the filled part of Block; when nothing was hit it is the full
// segment length.
type RayHit struct {
	Dist  float64
	Pos   Pos
	Block Block
	Hit   bool
}

func Ray(vol Volume, from, to mgl64.Vec3) RayCast {
	return RayCast{vol: vol, from: from, to: to, until: Block.IsSolid}
}

// Until sets the predicate that stops the ray. Unloaded blocks never stop it.
func (r RayCast) Until(pred func(Block) bool) RayCast {
	r.until = pred
	return r
}

func (r RayCast) test(p Pos) (Block, bool) {
	b, ok := r.vol.Get(p)
	return b, ok && r.until(b)
}

// enter reports when, between entering a stopping block at t and leaving its
// cell at exit, the ray first reaches the filled part of the block. Partial
// blocks such as slabs fill only the bottom of their cell.
func (r RayCast) enter(p Pos, b Block, dir mgl64.Vec3, t, exit float64) (float64, bool) {
	h := b.SolidHeight()
	if h <= 0 || h >= 1 {
		return t, true
	}
	top := float64(p.Z) + h
	if r.from[2]+dir[2]*t <= top+1e-9 {
		return t, true
	}
	if dir[2] >= 0 {
		return 0, false
	}
	if tt := (r.from[2] - top) / -dir[2]; tt <= exit {
		return tt, true
	}
	return 0, false
}

func (r RayCast) Cast() RayHit {
	cell := PosOf(r.from)
	delta := r.to.Sub(r.from)
	length := delta.Len()
	if length < 1e-9 {
		if b, ok := r.test(cell); ok {
			if _, in := r.enter(cell, b, mgl64.Vec3{}, 0, 0); in {
				return RayHit{Dist: 0, Pos: cell, Block: b, Hit: true}
			}
		}
		return RayHit{Dist: 0}
	}
	dir := delta.Mul(1 / length)

	var (
		step   [3]int32
		tMax   [3]float64
		tDelta [3]float64
	)
	c := [3]int32{cell.X, cell.Y, cell.Z}
	for axis := 0; axis < 3; axis++ {
		switch {
		case dir[axis] > 0:
			step[axis] = 1
			tMax[axis] = (float64(c[axis]) + 1 - r.from[axis]) / dir[axis]
			tDelta[axis] = 1 / dir[axis]
		case dir[axis] < 0:
			step[axis] = -1
			tMax[axis] = (r.from[axis] - float64(c[axis])) / -dir[axis]
			tDelta[axis] = 1 / -dir[axis]
		default:
			tMax[axis] = math.Inf(1)
			tDelta[axis] = math.Inf(1)
		}
	}

	// exit is when the ray leaves the current cell, capped at the segment end.
	exit := func() float64 {
		return math.Min(length, math.Min(tMax[0], math.Min(tMax[1], tMax[2])))
	}
	if b, ok := r.test(cell); ok {
		if d, in := r.enter(cell, b, dir, 0, exit()); in {
			return RayHit{Dist: d, Pos: cell, Block: b, Hit: true}
		}
	}

	end := PosOf(r.to)
	maxSteps := abs32(end.X-cell.X) + abs32(end.Y-cell.Y) + abs32(end.Z-cell.Z) + 3
	for i := int32(0); i < maxSteps; i++ {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t := tMax[axis]
		if t > length {
			break
		}
		c[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		p := Pos{c[0], c[1], c[2]}
		if b, ok := r.test(p); ok {
			if d, in := r.enter(p, b, dir, t, exit()); in {
				return RayHit{Dist: d, Pos: p, Block: b, Hit: true}
			}
		}
	}
	return RayHit{Dist: length}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

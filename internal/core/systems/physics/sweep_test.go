package physics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxphys/internal/core/terrain"
)

// solidEverywhere is a loaded volume with no free space.
type solidEverywhere struct{}

func (solidEverywhere) Get(terrain.Pos) (terrain.Block, bool) { return rock, true }
func (solidEverywhere) Loaded(terrain.Pos) bool               { return true }

func noLanding(mgl64.Vec3, mgl64.Vec3) {}

func TestCollisionVector(t *testing.T) {
	a := aabb{min: mgl64.Vec3{0, 0, 0}, max: mgl64.Vec3{1, 1, 1}}
	b := aabb{min: mgl64.Vec3{0.8, 0, 0}, max: mgl64.Vec3{1.8, 1, 1}}

	dir := collisionVector(a, b)
	requireVecInDelta(t, mgl64.Vec3{0.2, 1, 1}, dir, 1e-12)
	require.Equal(t, 0, minAbsAxis(dir))

	dir = collisionVector(b, a)
	require.InDelta(t, -0.2, dir[0], 1e-12)
}

func TestAABBOverlapIsStrict(t *testing.T) {
	a := aabb{min: mgl64.Vec3{0, 0, 0}, max: mgl64.Vec3{1, 1, 1}}
	require.False(t, a.overlaps(a.translate(mgl64.Vec3{1, 0, 0})))
	require.True(t, a.overlaps(a.translate(mgl64.Vec3{0.999, 0, 0})))
	require.False(t, a.overlaps(a.translate(mgl64.Vec3{0, 0, -1})))
}

func TestSweepLandsOnGround(t *testing.T) {
	sw := sweeper{vol: flatWorld(), cyl: cylinder{radius: 0.45, zMax: 1.8}}
	pos := mgl64.Vec3{0.5, 0.5, 10.5}
	vel := mgl64.Vec3{0, 0, -30}
	state := newPhysicsState()

	var landings []mgl64.Vec3
	stuck := sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, false, func(v, n mgl64.Vec3) {
		landings = append(landings, n)
	})

	require.False(t, stuck)
	require.InDelta(t, 10, pos[2], 1e-9)
	require.Zero(t, vel[2])
	require.True(t, state.OnGround)
	require.Equal(t, terrain.Rock, state.GroundBlock.Kind)
	require.Equal(t, []mgl64.Vec3{{0, 0, 1}}, landings)
}

func TestSweepStopsAtWall(t *testing.T) {
	vol := flatWorld()
	vol.Fill(terrain.Pos{X: 2, Y: -2, Z: 10}, terrain.Pos{X: 2, Y: 2, Z: 13}, rock)
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.45, zMax: 1.8}}

	pos := mgl64.Vec3{1.3, 0.5, 10}
	vel := mgl64.Vec3{9, 0, 0}
	state := newPhysicsState()
	stuck := sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, true, noLanding)

	require.False(t, stuck)
	require.InDelta(t, 2-0.45, pos[0], 1e-9)
	require.Zero(t, vel[0])
	require.False(t, state.OnCeiling)
}

func TestSweepHitsCeiling(t *testing.T) {
	vol := flatWorld()
	vol.Fill(terrain.Pos{X: -2, Y: -2, Z: 12}, terrain.Pos{X: 2, Y: 2, Z: 12}, rock)
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.45, zMax: 1.8}}

	pos := mgl64.Vec3{0.5, 0.5, 10.1}
	vel := mgl64.Vec3{0, 0, 6}
	state := newPhysicsState()
	sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, false, noLanding)

	require.True(t, state.OnCeiling)
	require.InDelta(t, 12-1.8, pos[2], 1e-9)
	require.Zero(t, vel[2])
}

func TestSweepHopsSingleBlock(t *testing.T) {
	vol := flatWorld()
	vol.Set(terrain.Pos{X: 5, Y: 0, Z: 10}, rock)
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.45, zMax: 1.8}}

	pos := mgl64.Vec3{4.53, 0.5, 10}
	vel := mgl64.Vec3{4, 0, -25 * testDt}
	state := newPhysicsState()
	stuck := sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, true, noLanding)

	require.False(t, stuck)
	require.InDelta(t, 11, pos[2], 1e-9)
	require.InDelta(t, 4.53+4*testDt+blockHopNudge, pos[0], 1e-9)
	require.Equal(t, 4.0, vel[0])
	require.Zero(t, vel[2])
	require.True(t, state.OnGround)
}

func TestSweepDoesNotHopTwoBlocks(t *testing.T) {
	vol := flatWorld()
	vol.Fill(terrain.Pos{X: 5, Y: 0, Z: 10}, terrain.Pos{X: 5, Y: 0, Z: 11}, rock)
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.45, zMax: 1.8}}

	pos := mgl64.Vec3{4.53, 0.5, 10}
	vel := mgl64.Vec3{4, 0, -25 * testDt}
	state := newPhysicsState()
	sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, true, noLanding)

	require.InDelta(t, 10, pos[2], 1e-9)
	require.InDelta(t, 5-0.45, pos[0], 1e-9)
	require.Zero(t, vel[0])
}

func TestSweepStuckRollsBack(t *testing.T) {
	sw := sweeper{vol: solidEverywhere{}, cyl: cylinder{radius: 0.45, zMax: 1.8}}
	start := mgl64.Vec3{0.5, 0.5, 10}
	pos := start
	vel := mgl64.Vec3{3, 0, 0}
	state := newPhysicsState()

	stuck := sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, true, noLanding)

	require.True(t, stuck)
	require.Equal(t, start, pos)
	require.Equal(t, mgl64.Vec3{}, vel)
}

func TestSnapToFloor(t *testing.T) {
	vol := flatWorld()
	vol.Set(terrain.Pos{X: 3, Y: 0, Z: 10}, terrain.Block{Kind: terrain.Slab})
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.45, zMax: 1.8}}
	walking := sweepInput{wasOnGround: true, blockSnap: true}

	tests := []struct {
		name  string
		in    sweepInput
		pos   mgl64.Vec3
		wantZ float64
		snaps bool
	}{
		{"small drop", walking, mgl64.Vec3{0.5, 0.5, 10.3}, 10, true},
		{"onto slab", walking, mgl64.Vec3{3.5, 0.5, 10.8}, 10.5, true},
		{"too far above", walking, mgl64.Vec3{0.5, 0.5, 11.5}, 11.5, false},
		{"was airborne", sweepInput{blockSnap: true}, mgl64.Vec3{0.5, 0.5, 10.3}, 10.3, false},
		{"body does not snap", sweepInput{wasOnGround: true}, mgl64.Vec3{0.5, 0.5, 10.3}, 10.3, false},
		{"left liquid", sweepInput{wasOnGround: true, blockSnap: true, prevInLiquid: true}, mgl64.Vec3{0.5, 0.5, 10.3}, 10.3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, vel := tt.pos, mgl64.Vec3{1, 0, -2}
			state := newPhysicsState()
			sw.snapToFloor(tt.in, &pos, &vel, &state)

			require.InDelta(t, tt.wantZ, pos[2], 1e-9)
			require.Equal(t, tt.snaps, state.OnGround)
			if tt.snaps {
				require.Zero(t, vel[2])
			}
		})
	}
}

func TestProbeLiquid(t *testing.T) {
	vol := flatWorld()
	vol.Fill(terrain.Pos{X: 0, Y: 0, Z: 10}, terrain.Pos{X: 3, Y: 3, Z: 11}, terrain.Block{Kind: terrain.Water})
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.45, zMax: 1.8}}

	state := newPhysicsState()
	sw.probe(mgl64.Vec3{1.5, 1.5, 10}, &state)

	require.True(t, state.InFluid.IsLiquid())
	require.Equal(t, terrain.LiquidWater, state.InFluid.Liquid)
	require.InDelta(t, 2, state.InFluid.Depth, 1e-12)
	require.False(t, state.OnWall)
}

func TestProbeWalls(t *testing.T) {
	vol := flatWorld()
	vol.Set(terrain.Pos{X: 1, Y: 0, Z: 10}, rock)
	sw := sweeper{vol: vol, cyl: cylinder{radius: 0.495, zMax: 1.8}}

	state := newPhysicsState()
	sw.probe(mgl64.Vec3{0.5, 0.5, 10}, &state)

	require.True(t, state.OnWall)
	requireVecInDelta(t, mgl64.Vec3{1, 0, 0}, state.WallDir, 0)
	require.Equal(t, FluidAir, state.InFluid.Kind)
	require.Equal(t, 10.0, state.InFluid.Elevation)
}

func TestApplyFriction(t *testing.T) {
	vel := mgl64.Vec3{4, -2, 0}
	prev := 0.0
	for _, dt := range []float64{0.1, 1.0 / 30, 1.0 / 60, 1.0 / 240, 1e-4, 1e-7} {
		got := applyFriction(vel, 0.15, dt).Len()
		require.Greater(t, got, prev, "dt %v", dt)
		require.LessOrEqual(t, got, vel.Len())
		prev = got
	}
	require.InDelta(t, vel.Len(), prev, 1e-5)

	requireVecInDelta(t, vel.Mul(0.85), applyFriction(vel, 0.15, 1.0/60), 1e-12)
	require.Equal(t, mgl64.Vec3{}, applyFriction(vel, 1, testDt))
	require.Equal(t, vel, applyFriction(vel, 0, testDt))
}

func TestSweepNeverEndsInsideSolid(t *testing.T) {
	vol := flatWorld()
	rng := rand.New(rand.NewPCG(7, 11))
	for range 40 {
		x, y := int32(rng.IntN(20)-10), int32(rng.IntN(20)-10)
		vol.Fill(terrain.Pos{X: x, Y: y, Z: 10}, terrain.Pos{X: x, Y: y, Z: 12}, rock)
	}
	cyl := cylinder{radius: 0.45, zMax: 1.8}
	sw := sweeper{vol: vol, cyl: cyl}

	for i := range 500 {
		pos := mgl64.Vec3{rng.Float64()*16 - 8, rng.Float64()*16 - 8, 10 + rng.Float64()*0.5}
		if sw.collidesAt(pos) {
			continue
		}
		speed := rng.Float64() * 0.9 / testDt
		angle := rng.Float64() * 2 * math.Pi
		vel := mgl64.Vec3{speed * math.Cos(angle), speed * math.Sin(angle), -rng.Float64() * 5}
		state := newPhysicsState()

		sw.sweep(&pos, pos.Add(vel.Mul(testDt)), &vel, &state, true, noLanding)

		box := cyl.aabb(pos)
		sw.blocksIn(box, func(p terrain.Pos, b terrain.Block) {
			if !b.IsSolid() {
				return
			}
			bb := blockAABB(p, b)
			for axis := range 3 {
				depth := math.Min(box.max[axis]-bb.min[axis], bb.max[axis]-box.min[axis])
				if depth <= 1e-7 {
					return
				}
			}
			t.Fatalf("case %d: %v penetrates block %v", i, pos, p)
		})
	}
}

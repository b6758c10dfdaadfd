package app

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/config"
	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/systems/physics"
	"github.com/zeusync/voxphys/internal/core/terrain"
)

const (
	deckSize     = 8
	shipAltitude = 8
	arrowHeight  = 15
	walkerDrop   = 5
)

var (
	rock  = terrain.Block{Kind: terrain.Rock}
	earth = terrain.Block{Kind: terrain.Earth}
	water = terrain.Block{Kind: terrain.Water}
	wood  = terrain.Block{Kind: terrain.Wood}
)

// Scene lists the entities the driver populated, by role.
type Scene struct {
	Walkers []models.EntityID
	Arrows  []models.EntityID
	Ships   []models.EntityID
	Riders  []models.EntityID
}

func (s Scene) Len() int {
	return len(s.Walkers) + len(s.Arrows) + len(s.Ships) + len(s.Riders)
}

// BuildTerrain lays out a flat earth world with rock pillars and a water
// pool centered on the origin. Layout is fully determined by sc.Seed.
func BuildTerrain(sc config.Scene) *terrain.Chunked {
	vol := terrain.Flat(sc.HalfChunks, sc.GroundZ, earth)
	extent := sc.HalfChunks * terrain.ChunkSize

	if sc.Pool > 0 {
		lo, hi := -sc.Pool/2, sc.Pool-sc.Pool/2-1
		vol.Fill(terrain.Pos{X: lo, Y: lo, Z: sc.GroundZ - 3}, terrain.Pos{X: hi, Y: hi, Z: sc.GroundZ - 3}, rock)
		vol.Fill(terrain.Pos{X: lo, Y: lo, Z: sc.GroundZ - 2}, terrain.Pos{X: hi, Y: hi, Z: sc.GroundZ - 1}, water)
	}

	rng := rand.New(rand.NewPCG(sc.Seed, 0))
	for range sc.Pillars {
		x := randInt32(rng, -extent+2, extent-2)
		y := randInt32(rng, -extent+2, extent-2)
		if inPool(sc, x, y) {
			continue
		}
		h := randInt32(rng, 1, 4)
		vol.Fill(terrain.Pos{X: x, Y: y, Z: sc.GroundZ}, terrain.Pos{X: x, Y: y, Z: sc.GroundZ + h - 1}, rock)
	}
	return vol
}

func inPool(sc config.Scene, x, y int32) bool {
	if sc.Pool <= 0 {
		return false
	}
	lo, hi := -sc.Pool/2-1, sc.Pool-sc.Pool/2
	return x >= lo && x <= hi && y >= lo && y <= hi
}

// randInt32 returns a value in [lo, hi).
func randInt32(rng *rand.Rand, lo, hi int32) int32 {
	return lo + rng.Int32N(hi-lo)
}

func humanoid(pos, vel mgl64.Vec3, mass float64) physics.EntitySpec {
	return physics.EntitySpec{
		Pos:      pos,
		Vel:      vel,
		Collider: physics.CapsulePrism{Radius: 0.4, ZMax: 1.8},
		Body:     &physics.Body{Kind: physics.BodyHumanoid, Dimensions: mgl64.Vec3{0.8, 0.8, 1.8}},
		Mass:     mass,
		Density:  1000,
	}
}

// Deck builds the voxel volume of a ship: a square wooden platform one block
// thick whose top sits one unit above the ship origin.
func Deck() physics.VoxelVolume {
	vol := terrain.NewChunked()
	vol.Fill(terrain.Pos{}, terrain.Pos{X: deckSize - 1, Y: deckSize - 1}, wood)
	return physics.NewVoxelVolume(vol)
}

// Populate spawns the dynamic entities of sc into e. Walkers drop onto the
// terrain, arrows fall toward it, and every ship carries one rider.
func Populate(sc config.Scene, e *physics.Engine) (Scene, error) {
	var out Scene
	w := e.World()
	rng := rand.New(rand.NewPCG(sc.Seed, 1))
	extent := float64(sc.HalfChunks*terrain.ChunkSize) - 4
	ground := float64(sc.GroundZ)
	spawn := func(dst *[]models.EntityID, spec physics.EntitySpec) error {
		id, err := w.Spawn(spec)
		if err != nil {
			return err
		}
		*dst = append(*dst, id)
		return nil
	}
	randXY := func() (float64, float64) {
		return (rng.Float64()*2 - 1) * extent, (rng.Float64()*2 - 1) * extent
	}

	for range sc.Walkers {
		x, y := randXY()
		pos := mgl64.Vec3{x, y, ground + walkerDrop + rng.Float64()*3}
		vel := mgl64.Vec3{rng.Float64()*6 - 3, rng.Float64()*6 - 3, 0}
		if err := spawn(&out.Walkers, humanoid(pos, vel, 60+rng.Float64()*40)); err != nil {
			return out, fmt.Errorf("spawn walker: %w", err)
		}
	}

	for range sc.Arrows {
		x, y := randXY()
		spec := physics.EntitySpec{
			Pos:        mgl64.Vec3{x, y, ground + arrowHeight},
			Vel:        mgl64.Vec3{rng.Float64()*4 - 2, rng.Float64()*4 - 2, -20},
			Collider:   physics.Point{},
			Body:       &physics.Body{Kind: physics.BodyArrow, Dimensions: mgl64.Vec3{0.05, 0.05, 0.7}},
			Mass:       0.05,
			Density:    600,
			Sticky:     true,
			Projectile: true,
		}
		if err := spawn(&out.Arrows, spec); err != nil {
			return out, fmt.Errorf("spawn arrow: %w", err)
		}
	}

	for i := range sc.Ships {
		id := fmt.Sprintf("ship-%d", i)
		deck := Deck()
		e.Manifests().Put(id, deck)

		angle := 2 * math.Pi * float64(i) / float64(sc.Ships)
		pos := mgl64.Vec3{math.Cos(angle) * extent / 2, math.Sin(angle) * extent / 2, ground + shipAltitude}
		spec := physics.EntitySpec{
			Pos:       pos,
			Ori:       mgl64.QuatRotate(angle, mgl64.Vec3{0, 0, 1}),
			Collider:  physics.VoxelShape(id, deck),
			Immovable: true,
		}
		if err := spawn(&out.Ships, spec); err != nil {
			return out, fmt.Errorf("spawn %s: %w", id, err)
		}
		if err := spawn(&out.Riders, humanoid(pos.Add(mgl64.Vec3{0, 0, deck.Height}), mgl64.Vec3{}, 80)); err != nil {
			return out, fmt.Errorf("spawn rider: %w", err)
		}
	}
	return out, nil
}

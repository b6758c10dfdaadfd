package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxphys/internal/core/terrain"
)

func TestSpawnValidation(t *testing.T) {
	tests := []struct {
		name string
		spec EntitySpec
		err  error
	}{
		{"negative mass", EntitySpec{Mass: -1}, ErrInvalidMass},
		{"nan mass", EntitySpec{Mass: math.NaN()}, ErrInvalidMass},
		{"negative density", EntitySpec{Density: -5}, ErrInvalidDensity},
		{"nan scale", EntitySpec{Scale: math.NaN()}, ErrInvalidScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld()
			_, err := w.Spawn(tt.spec)
			require.ErrorIs(t, err, tt.err)
			require.Zero(t, w.Positions.Len())
		})
	}
}

func TestSpawnDefaults(t *testing.T) {
	w := NewWorld()
	id, err := w.Spawn(EntitySpec{Pos: mgl64.Vec3{1, 2, 3}, Collider: Point{}, Sticky: true})
	require.NoError(t, err)

	ori, _ := w.Orientations.Value(id)
	require.Equal(t, mgl64.QuatIdent(), ori)
	require.Equal(t, 1.0, w.scale(id))
	require.False(t, w.Masses.Has(id))
	require.False(t, w.Bodies.Has(id))
	require.True(t, w.Sticky.Has(id))
	require.False(t, w.Projectiles.Has(id))
	require.Nil(t, w.characterState(id))

	other, err := w.Spawn(EntitySpec{Scale: 3, CharacterState: &CharacterState{Kind: CharacterClimb}})
	require.NoError(t, err)
	require.NotEqual(t, id, other)
	require.Equal(t, 3.0, w.scale(other))
	require.True(t, w.characterState(other).climbing())
}

func TestDespawnRemovesEverything(t *testing.T) {
	w := NewWorld()
	spec := walkerSpec(mgl64.Vec3{}, mgl64.Vec3{})
	spec.Immovable = true
	id, err := w.Spawn(spec)
	require.NoError(t, err)
	w.PhysicsStates.Insert(id, newPhysicsState())

	w.Despawn(id)
	for _, has := range []bool{
		w.Positions.Has(id), w.Velocities.Has(id), w.Orientations.Has(id),
		w.Colliders.Has(id), w.Masses.Has(id), w.Densities.Has(id),
		w.Bodies.Has(id), w.Immovable.Has(id), w.PhysicsStates.Has(id),
	} {
		require.False(t, has)
	}
}

func TestStateDigest(t *testing.T) {
	build := func(x float64) *World {
		w := NewWorld()
		_, err := w.Spawn(walkerSpec(mgl64.Vec3{x, 0, 10}, mgl64.Vec3{1, 0, 0}))
		require.NoError(t, err)
		return w
	}
	require.Equal(t, StateDigest(build(1)), StateDigest(build(1)))
	require.NotEqual(t, StateDigest(build(1)), StateDigest(build(1.0000001)))
	require.NotEqual(t, StateDigest(NewWorld()), StateDigest(build(1)))
}

func TestManifestStoreVersions(t *testing.T) {
	s := NewManifestStore()
	before := s.Snapshot()
	require.Zero(t, before.Version())

	vv := deck()
	s.Put("ship", vv)
	after := s.Snapshot()
	require.Equal(t, uint64(1), after.Version())
	require.Zero(t, before.Len())
	got, ok := after.Get("ship")
	require.True(t, ok)
	require.Equal(t, vv.Translation, got.Translation)

	s.Delete("ship")
	require.Equal(t, uint64(2), s.Snapshot().Version())
	_, ok = s.Snapshot().Get("ship")
	require.False(t, ok)
	require.Equal(t, 1, after.Len())

	var nilManifest *Manifest
	require.Zero(t, nilManifest.Len())
	_, ok = nilManifest.Get("ship")
	require.False(t, ok)
}

func TestNewVoxelVolume(t *testing.T) {
	vol := terrain.NewChunked()
	vol.Fill(terrain.Pos{X: 2, Y: 4, Z: 1}, terrain.Pos{X: 5, Y: 5, Z: 2}, rock)

	vv := NewVoxelVolume(vol)
	require.Equal(t, mgl64.Vec3{-4, -5, -1}, vv.Translation)
	require.InDelta(t, math.Hypot(4, 2)/2, vv.Radius, 1e-12)
	require.Equal(t, 2.0, vv.Height)

	shape := VoxelShape("crate", vv)
	require.Equal(t, vv.Radius, shape.BoundingRadius())
	zMin, zMax := shape.ZLimits()
	require.Equal(t, 0.0, zMin)
	require.Equal(t, 2.0, zMax)

	empty := NewVoxelVolume(terrain.NewChunked())
	require.Zero(t, empty.Radius)
	require.NotNil(t, empty.Volume)
}

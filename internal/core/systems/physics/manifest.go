package physics

import (
	"maps"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/terrain"
)

// VoxelVolume is a voxel sub-volume carried by an entity. Local block
// coordinates l map to world space as pos + ori * (scale * (l + Translation)).
type VoxelVolume struct {
	Volume      terrain.Volume
	Translation mgl64.Vec3
	// Radius and Height describe the footprint in the entity frame.
	Radius float64
	Height float64
}

// NewVoxelVolume wraps a chunked volume, placing the bottom center of its
// populated bounds at the entity origin.
func NewVoxelVolume(vol *terrain.Chunked) VoxelVolume {
	lo, hi, ok := vol.Bounds()
	if !ok {
		return VoxelVolume{Volume: vol}
	}
	size := hi.Sub(lo)
	return VoxelVolume{
		Volume:      vol,
		Translation: mgl64.Vec3{-(lo[0] + size[0]/2), -(lo[1] + size[1]/2), -lo[2]},
		Radius:      math.Hypot(size[0], size[1]) / 2,
		Height:      size[2],
	}
}

// Manifest is an immutable, versioned lookup of voxel colliders by id.
type Manifest struct {
	version   uint64
	colliders map[string]VoxelVolume
}

func (m *Manifest) Version() uint64 {
	if m == nil {
		return 0
	}
	return m.version
}

func (m *Manifest) Get(id string) (VoxelVolume, bool) {
	if m == nil {
		return VoxelVolume{}, false
	}
	vv, ok := m.colliders[id]
	return vv, ok
}

func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.colliders)
}

// ManifestStore publishes manifest snapshots. The engine captures one
// snapshot per tick, so publishing never contends with a running pass.
type ManifestStore struct {
	current atomic.Pointer[Manifest]
}

func NewManifestStore() *ManifestStore {
	s := &ManifestStore{}
	s.current.Store(&Manifest{colliders: map[string]VoxelVolume{}})
	return s
}

// Snapshot returns the current manifest.
func (s *ManifestStore) Snapshot() *Manifest {
	return s.current.Load()
}

// Put publishes a new version with id set to vv.
func (s *ManifestStore) Put(id string, vv VoxelVolume) {
	s.update(func(m map[string]VoxelVolume) { m[id] = vv })
}

// Delete publishes a new version without id.
func (s *ManifestStore) Delete(id string) {
	s.update(func(m map[string]VoxelVolume) { delete(m, id) })
}

func (s *ManifestStore) update(fn func(map[string]VoxelVolume)) {
	for {
		old := s.current.Load()
		next := &Manifest{version: old.version + 1, colliders: maps.Clone(old.colliders)}
		if next.colliders == nil {
			next.colliders = map[string]VoxelVolume{}
		}
		fn(next.colliders)
		if s.current.CompareAndSwap(old, next) {
			return
		}
	}
}

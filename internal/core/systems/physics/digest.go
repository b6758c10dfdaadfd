package physics

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// StateDigest fingerprints the position, velocity and orientation of every
// entity in id order. Two worlds simulated from the same inputs must produce
// the same digest regardless of worker count.
func StateDigest(w *World) uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putVec := func(v mgl64.Vec3) {
		for _, c := range v {
			put(math.Float64bits(c))
		}
	}

	for _, id := range w.Positions.IDs() {
		put(uint64(id))
		pos, _ := w.Positions.Value(id)
		putVec(pos)
		if vel, ok := w.Velocities.Value(id); ok {
			putVec(vel)
		}
		if ori, ok := w.Orientations.Value(id); ok {
			put(math.Float64bits(ori.W))
			putVec(ori.V)
		}
	}
	return h.Sum64()
}

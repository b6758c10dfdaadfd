// Package terrain holds the voxel volume abstractions the physics engine reads:
// blocks, the read-only Volume oracle, a chunked in-memory store and ray casts.
package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type BlockKind uint8

const (
	Air BlockKind = iota
	Rock
	Earth
	Sand
	Wood
	// Slab is a solid block that only fills the lower half of its cell.
	Slab
	Water
	Lava
)

type LiquidKind uint8

const (
	LiquidWater LiquidKind = iota + 1
	LiquidLava
)

type Block struct {
	Kind BlockKind
}

var AirBlock = Block{Kind: Air}

func (b Block) IsSolid() bool {
	switch b.Kind {
	case Rock, Earth, Sand, Wood, Slab:
		return true
	default:
		return false
	}
}

func (b Block) IsLiquid() bool {
	_, ok := b.LiquidKind()
	return ok
}

func (b Block) LiquidKind() (LiquidKind, bool) {
	switch b.Kind {
	case Water:
		return LiquidWater, true
	case Lava:
		return LiquidLava, true
	default:
		return 0, false
	}
}

// SolidHeight is the filled fraction of the block cell along z.
func (b Block) SolidHeight() float64 {
	switch {
	case b.Kind == Slab:
		return 0.5
	case b.IsSolid():
		return 1
	default:
		return 0
	}
}

// Pos is an integer block coordinate; z is up.
type Pos struct{ X, Y, Z int32 }

// PosOf returns the block containing the world-space point.
func PosOf(v mgl64.Vec3) Pos {
	return Pos{int32(math.Floor(v[0])), int32(math.Floor(v[1])), int32(math.Floor(v[2]))}
}

func (p Pos) Add(o Pos) Pos { return Pos{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }

// Vec returns the minimum corner of the block.
func (p Pos) Vec() mgl64.Vec3 { return mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)} }

// Center returns the center of the block cell.
func (p Pos) Center() mgl64.Vec3 { return p.Vec().Add(mgl64.Vec3{0.5, 0.5, 0.5}) }

// Volume is the read-only voxel oracle. Get reports false for blocks whose
// chunk is not loaded. Implementations must be safe for concurrent reads.
type Volume interface {
	Get(p Pos) (Block, bool)
	Loaded(p Pos) bool
}

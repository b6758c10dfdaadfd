// Package spatial implements the uniform 2D bucket grid used as the broad
// phase for entity-vs-entity and entity-vs-voxel-collider queries.
package spatial

import (
	"iter"
	"math"

	"github.com/zeusync/voxphys/internal/core/models"
)

// Cell is an integer bucket coordinate.
type Cell struct{ X, Y int32 }

// Grid buckets entity ids by their 2D position. Entities whose radius exceeds
// the cutoff are kept in an overflow list that every query returns: large
// bodies are never missed, at the price of being checked against everyone.
//
// A Grid is built single-threaded and then only read, so queries are safe to
// run concurrently once building is done. There is no removal; grids are
// rebuilt every tick.
type Grid struct {
	cells        map[Cell][]models.EntityID
	overflow     []models.EntityID
	lg2CellSize  uint
	radiusCutoff uint32
	count        int
}

// New creates a grid with cells of 2^lg2CellSize units. Entities with a radius
// up to radiusCutoff are bucketed; larger ones overflow.
func New(lg2CellSize uint, radiusCutoff uint32) *Grid {
	return &Grid{
		cells:        make(map[Cell][]models.EntityID),
		lg2CellSize:  lg2CellSize,
		radiusCutoff: radiusCutoff,
	}
}

// Fine is the grid used for entity-vs-entity pushback.
func Fine() *Grid { return New(5, 8) }

// Coarse is the grid used for entity-vs-voxel-collider lookups, where bodies
// such as ships have much larger footprints.
func Coarse() *Grid { return New(7, 64) }

func (g *Grid) Insert(pos [2]int32, radius uint32, id models.EntityID) {
	g.count++
	if radius > g.radiusCutoff {
		g.overflow = append(g.overflow, id)
		return
	}
	cell := Cell{pos[0] >> g.lg2CellSize, pos[1] >> g.lg2CellSize}
	g.cells[cell] = append(g.cells[cell], id)
}

// InCircleAABR yields every id whose bucket intersects the square bounding the
// circle, padded by the radius cutoff so bucketed entities whose own extent
// reaches into the square are found. Results may over-report; callers
// re-check exact distances.
func (g *Grid) InCircleAABR(center [2]float64, radius float64) iter.Seq[models.EntityID] {
	return func(yield func(models.EntityID) bool) {
		for _, id := range g.overflow {
			if !yield(id) {
				return
			}
		}
		if len(g.cells) == 0 {
			return
		}

		// One unit of slack covers the truncation of center to integers.
		pad := int64(math.Ceil(radius)) + 1 + int64(g.radiusCutoff)
		cx, cy := int64(math.Floor(center[0])), int64(math.Floor(center[1]))
		minX, maxX := g.toCell(cx-pad), g.toCell(cx+pad)
		minY, maxY := g.toCell(cy-pad), g.toCell(cy+pad)

		// Degenerate huge queries would walk an enormous empty range; scan the
		// populated buckets instead.
		if (maxX-minX+1)*(maxY-minY+1) > int64(len(g.cells)) {
			for cell, ids := range g.cells {
				x, y := int64(cell.X), int64(cell.Y)
				if x < minX || x > maxX || y < minY || y > maxY {
					continue
				}
				for _, id := range ids {
					if !yield(id) {
						return
					}
				}
			}
			return
		}

		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				for _, id := range g.cells[Cell{int32(x), int32(y)}] {
					if !yield(id) {
						return
					}
				}
			}
		}
	}
}

// Len is the number of inserted entities.
func (g *Grid) Len() int { return g.count }

// Overflowed is the number of entities stored outside the buckets.
func (g *Grid) Overflowed() int { return len(g.overflow) }

func (g *Grid) Clear() {
	clear(g.cells)
	g.overflow = g.overflow[:0]
	g.count = 0
}

func (g *Grid) toCell(v int64) int64 {
	return v >> g.lg2CellSize
}

// BucketPos truncates a world-space coordinate pair to the integer position
// used for insertion.
func BucketPos(x, y float64) [2]int32 {
	return [2]int32{int32(math.Floor(x)), int32(math.Floor(y))}
}

package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	ChunkSize = 32

	// 32 = 2^5
	chunkShift = 5
	chunkMask  = ChunkSize - 1
	shiftY     = 5
	shiftZ     = 10

	chunkVolume = ChunkSize * ChunkSize * ChunkSize
)

type ChunkKey struct{ X, Y, Z int32 }

// Chunk is the storage for a 32^3 region. Kinds are kept as a flat array
// indexed by x | y<<5 | z<<10.
type Chunk struct {
	Key   ChunkKey
	Kinds [chunkVolume]BlockKind
}

func chunkIndex(x, y, z int32) int {
	return int(x) | int(y)<<shiftY | int(z)<<shiftZ
}

// Chunked is a sparse map of chunks. A block is loaded iff its chunk exists.
// Writes are not synchronized; the engine treats a Chunked as an immutable
// snapshot for the duration of a tick.
type Chunked struct {
	chunks map[ChunkKey]*Chunk
	min    Pos
	max    Pos
	filled bool
}

var _ Volume = (*Chunked)(nil)

func NewChunked() *Chunked {
	return &Chunked{chunks: make(map[ChunkKey]*Chunk)}
}

func keyOf(p Pos) ChunkKey {
	return ChunkKey{p.X >> chunkShift, p.Y >> chunkShift, p.Z >> chunkShift}
}

func (c *Chunked) Get(p Pos) (Block, bool) {
	ch, ok := c.chunks[keyOf(p)]
	if !ok {
		return AirBlock, false
	}
	return Block{Kind: ch.Kinds[chunkIndex(p.X&chunkMask, p.Y&chunkMask, p.Z&chunkMask)]}, true
}

func (c *Chunked) Loaded(p Pos) bool {
	_, ok := c.chunks[keyOf(p)]
	return ok
}

// LoadChunk marks the chunk containing p as loaded (all air).
func (c *Chunked) LoadChunk(p Pos) *Chunk {
	key := keyOf(p)
	ch, ok := c.chunks[key]
	if !ok {
		ch = &Chunk{Key: key}
		c.chunks[key] = ch
	}
	return ch
}

// UnloadChunk drops the chunk containing p.
func (c *Chunked) UnloadChunk(p Pos) {
	delete(c.chunks, keyOf(p))
}

// Set writes a block, loading its chunk if needed.
func (c *Chunked) Set(p Pos, b Block) {
	ch := c.LoadChunk(p)
	ch.Kinds[chunkIndex(p.X&chunkMask, p.Y&chunkMask, p.Z&chunkMask)] = b.Kind
	if b.Kind == Air {
		return
	}
	if !c.filled {
		c.min, c.max, c.filled = p, p, true
		return
	}
	c.min = Pos{min(c.min.X, p.X), min(c.min.Y, p.Y), min(c.min.Z, p.Z)}
	c.max = Pos{max(c.max.X, p.X), max(c.max.Y, p.Y), max(c.max.Z, p.Z)}
}

// Fill sets every block in the inclusive box [from, to].
func (c *Chunked) Fill(from, to Pos, b Block) {
	for z := from.Z; z <= to.Z; z++ {
		for y := from.Y; y <= to.Y; y++ {
			for x := from.X; x <= to.X; x++ {
				c.Set(Pos{x, y, z}, b)
			}
		}
	}
}

// Bounds returns the world-space box spanned by every non-air block ever set.
func (c *Chunked) Bounds() (lo, hi mgl64.Vec3, ok bool) {
	if !c.filled {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return c.min.Vec(), c.max.Vec().Add(mgl64.Vec3{1, 1, 1}), true
}

// Flat builds a loaded, square world of the given half extent (in chunks)
// whose ground surface sits at z = groundZ.
func Flat(halfChunks int32, groundZ int32, ground Block) *Chunked {
	c := NewChunked()
	lo := -halfChunks * ChunkSize
	hi := halfChunks*ChunkSize - 1
	for cz := int32(math.Floor(float64(groundZ-ChunkSize) / ChunkSize)); cz <= (groundZ+2*ChunkSize)/ChunkSize; cz++ {
		for cy := -halfChunks; cy < halfChunks; cy++ {
			for cx := -halfChunks; cx < halfChunks; cx++ {
				c.LoadChunk(Pos{cx * ChunkSize, cy * ChunkSize, cz * ChunkSize})
			}
		}
	}
	c.Fill(Pos{lo, lo, groundZ - 2}, Pos{hi, hi, groundZ - 1}, ground)
	return c
}

package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func TestBlockClassification(t *testing.T) {
	require.True(t, Block{Kind: Rock}.IsSolid())
	require.False(t, Block{Kind: Water}.IsSolid())
	require.True(t, Block{Kind: Water}.IsLiquid())
	require.Equal(t, 0.5, Block{Kind: Slab}.SolidHeight())
	require.Equal(t, 1.0, Block{Kind: Earth}.SolidHeight())
	require.Zero(t, AirBlock.SolidHeight())

	kind, ok := Block{Kind: Lava}.LiquidKind()
	require.True(t, ok)
	require.Equal(t, LiquidLava, kind)
}

func TestChunkedGetSetAndLoading(t *testing.T) {
	c := NewChunked()
	p := Pos{-1, 40, 3}
	_, ok := c.Get(p)
	require.False(t, ok)
	require.False(t, c.Loaded(p))

	c.Set(p, Block{Kind: Rock})
	b, ok := c.Get(p)
	require.True(t, ok)
	require.Equal(t, Rock, b.Kind)

	// Same chunk, untouched block: loaded air.
	b, ok = c.Get(Pos{-2, 40, 3})
	require.True(t, ok)
	require.Equal(t, Air, b.Kind)

	lo, hi, ok := c.Bounds()
	require.True(t, ok)
	require.Equal(t, mgl64.Vec3{-1, 40, 3}, lo)
	require.Equal(t, mgl64.Vec3{0, 41, 4}, hi)

	c.UnloadChunk(p)
	require.False(t, c.Loaded(p))
}

func TestFlatWorld(t *testing.T) {
	w := Flat(1, 0, Block{Kind: Earth})
	b, ok := w.Get(Pos{5, -5, -1})
	require.True(t, ok)
	require.True(t, b.IsSolid())
	b, ok = w.Get(Pos{5, -5, 0})
	require.True(t, ok)
	require.False(t, b.IsSolid())
	require.True(t, w.Loaded(Pos{0, 0, 40}))
	require.False(t, w.Loaded(Pos{100, 0, 0}))
}

func TestRayStopsAtFirstSolid(t *testing.T) {
	w := Flat(1, 0, Block{Kind: Earth})
	hit := Ray(w, mgl64.Vec3{0.5, 0.5, 5}, mgl64.Vec3{0.5, 0.5, -5}).Cast()
	require.True(t, hit.Hit)
	require.InDelta(t, 5.0, hit.Dist, 1e-9)
	require.Equal(t, Pos{0, 0, -1}, hit.Pos)

	miss := Ray(w, mgl64.Vec3{0.5, 0.5, 5}, mgl64.Vec3{3.5, 0.5, 2}).Cast()
	require.False(t, miss.Hit)
	require.InDelta(t, mgl64.Vec3{3, 0, -3}.Len(), miss.Dist, 1e-9)
}

func TestRayStartingInsideSolid(t *testing.T) {
	w := Flat(1, 0, Block{Kind: Earth})
	hit := Ray(w, mgl64.Vec3{0.5, 0.5, -0.5}, mgl64.Vec3{0.5, 0.5, -0.5}).Cast()
	require.True(t, hit.Hit)
	require.Zero(t, hit.Dist)
}

func TestRayDiagonalIntoWall(t *testing.T) {
	w := NewChunked()
	w.LoadChunk(Pos{})
	w.Fill(Pos{4, 0, 0}, Pos{4, 8, 8}, Block{Kind: Rock})
	hit := Ray(w, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{8.5, 4.5, 0.5}).Cast()
	require.True(t, hit.Hit)
	require.Equal(t, int32(4), hit.Pos.X)
	require.InDelta(t, 3.5/8.0*mgl64.Vec3{8, 4, 0}.Len(), hit.Dist, 1e-9)

	liquid := Ray(w, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{8.5, 0.5, 0.5}).Until(Block.IsLiquid).Cast()
	require.False(t, liquid.Hit)
}

func TestRayStopsOnSlabSurface(t *testing.T) {
	w := Flat(1, 0, Block{Kind: Earth})
	w.Set(Pos{0, 0, 0}, Block{Kind: Slab})

	down := Ray(w, mgl64.Vec3{0.5, 0.5, 5}, mgl64.Vec3{0.5, 0.5, -5}).Cast()
	require.True(t, down.Hit)
	require.Equal(t, Pos{0, 0, 0}, down.Pos)
	require.InDelta(t, 4.5, down.Dist, 1e-9)

	rest := Ray(w, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0.5, 0.5, 0.4}).Cast()
	require.True(t, rest.Hit)
	require.Zero(t, rest.Dist)

	// Enters the slab cell through its side above the slab and descends onto it.
	slope := Ray(w, mgl64.Vec3{-0.5, 0.5, 0.9}, mgl64.Vec3{1.5, 0.5, -0.1}).Cast()
	require.True(t, slope.Hit)
	require.Equal(t, Pos{0, 0, 0}, slope.Pos)
	require.InDelta(t, 0.4*mgl64.Vec3{2, 0, -1}.Len(), slope.Dist, 1e-9)

	over := Ray(w, mgl64.Vec3{-0.5, 0.5, 0.9}, mgl64.Vec3{1.5, 0.5, 0.6}).Cast()
	require.False(t, over.Hit)

	side := Ray(w, mgl64.Vec3{-1.5, 0.5, 0.25}, mgl64.Vec3{1.5, 0.5, 0.25}).Cast()
	require.True(t, side.Hit)
	require.Equal(t, Pos{0, 0, 0}, side.Pos)
	require.InDelta(t, 1.5, side.Dist, 1e-9)
}

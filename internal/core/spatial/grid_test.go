package spatial

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxphys/internal/core/models"
)

func collect(g *Grid, x, y, r float64) []models.EntityID {
	out := slices.Collect(g.InCircleAABR([2]float64{x, y}, r))
	slices.Sort(out)
	return out
}

func TestFindsNearbyAndSkipsFarEntities(t *testing.T) {
	g := Fine()
	g.Insert(BucketPos(10, 10), 1, 1)
	g.Insert(BucketPos(12, 9), 1, 2)
	g.Insert(BucketPos(500, 500), 1, 3)

	require.Equal(t, []models.EntityID{1, 2}, collect(g, 11, 10, 2))
	require.Equal(t, []models.EntityID{3}, collect(g, 499, 501, 2))
	require.Equal(t, 3, g.Len())
}

func TestNegativeCoordinates(t *testing.T) {
	g := Fine()
	g.Insert(BucketPos(-0.5, -0.5), 1, 7)
	g.Insert(BucketPos(-33, -1), 1, 8)
	require.Contains(t, collect(g, 0.2, 0.2, 1), models.EntityID(7))
	require.Contains(t, collect(g, -32, 0, 1), models.EntityID(8))
}

func TestOverflowBucketAlwaysReturned(t *testing.T) {
	g := Coarse()
	g.Insert(BucketPos(0, 0), 200, 42)
	g.Insert(BucketPos(0, 0), 4, 43)
	require.Equal(t, 1, g.Overflowed())

	got := collect(g, 10_000, -10_000, 1)
	require.Equal(t, []models.EntityID{42}, got)
}

func TestHugeQueryFallsBackToBucketScan(t *testing.T) {
	g := Fine()
	g.Insert(BucketPos(3, 3), 1, 1)
	g.Insert(BucketPos(40_000, 3), 1, 2)
	require.Equal(t, []models.EntityID{1}, collect(g, 0, 0, 1000))
	require.Equal(t, []models.EntityID{1, 2}, collect(g, 0, 0, 1_000_000))
}

func TestClear(t *testing.T) {
	g := Fine()
	g.Insert(BucketPos(1, 1), 1, 1)
	g.Insert(BucketPos(1, 1), 100, 2)
	g.Clear()
	require.Zero(t, g.Len())
	require.Empty(t, collect(g, 1, 1, 5))
}

func TestEarlyStop(t *testing.T) {
	g := Fine()
	for i := range 10 {
		g.Insert(BucketPos(1, 1), 1, models.EntityID(i+1))
	}
	n := 0
	for range g.InCircleAABR([2]float64{1, 1}, 1) {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)
}

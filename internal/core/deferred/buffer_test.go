package deferred

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxphys/internal/core/models"
)

func TestCommitAppliesOnlyWrittenSlots(t *testing.T) {
	var b Buffer
	b.Begin([]models.EntityID{10, 11, 12})
	b.Slot(0).SetPos(mgl64.Vec3{1, 2, 3})
	b.Slot(2).SetVel(mgl64.Vec3{0, 0, -1})
	b.Slot(2).SetOri(mgl64.QuatIdent())

	got := map[models.EntityID]Pending{}
	n := b.Commit(func(id models.EntityID, p Pending) { got[id] = p })
	require.Equal(t, 2, n)
	require.Len(t, got, 2)
	require.Equal(t, mgl64.Vec3{1, 2, 3}, *got[10].Pos)
	require.Nil(t, got[10].Vel)
	require.Equal(t, mgl64.Vec3{0, 0, -1}, *got[12].Vel)
	require.NotNil(t, got[12].Ori)

	// Slots are cleared after commit.
	require.Zero(t, b.Commit(func(models.EntityID, Pending) { t.Fatal("unexpected write") }))
}

func TestBeginReusesAndClears(t *testing.T) {
	var b Buffer
	b.Begin([]models.EntityID{1, 2})
	b.Slot(1).SetPos(mgl64.Vec3{})
	b.Begin([]models.EntityID{5})
	require.True(t, b.Slot(0).Empty())
	require.Zero(t, b.Commit(func(models.EntityID, Pending) {}))
}

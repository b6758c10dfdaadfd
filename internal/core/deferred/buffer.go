// Package deferred holds pending per-entity writes produced during a parallel
// pass so that every task reads the same committed state.
package deferred

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
)

// Pending is the set of writes one task wants to make to its own entity.
// A nil field means "unchanged".
type Pending struct {
	Pos *mgl64.Vec3
	Vel *mgl64.Vec3
	Ori *mgl64.Quat
}

func (p *Pending) Empty() bool {
	return p.Pos == nil && p.Vel == nil && p.Ori == nil
}

func (p *Pending) SetPos(v mgl64.Vec3) { p.Pos = &v }
func (p *Pending) SetVel(v mgl64.Vec3) { p.Vel = &v }
func (p *Pending) SetOri(q mgl64.Quat) { p.Ori = &q }
func (p *Pending) reset()              { *p = Pending{} }

// Buffer is a side table of pending writes with one slot per task. Slot i is
// owned by the task handling entity ids[i]; only that task may touch it while
// the pass runs.
type Buffer struct {
	ids   []models.EntityID
	slots []Pending
}

// Begin prepares the buffer for a pass over ids.
func (b *Buffer) Begin(ids []models.EntityID) {
	b.ids = ids
	if cap(b.slots) < len(ids) {
		b.slots = make([]Pending, len(ids))
	}
	b.slots = b.slots[:len(ids)]
	for i := range b.slots {
		b.slots[i].reset()
	}
}

// Slot returns the pending writes for task i.
func (b *Buffer) Slot(i int) *Pending {
	return &b.slots[i]
}

// Commit hands every non-empty slot to apply, in task order, and clears it.
// It must only be called after all tasks of the pass have finished. It returns
// the number of entities that had writes.
func (b *Buffer) Commit(apply func(id models.EntityID, p Pending)) int {
	n := 0
	for i := range b.slots {
		if b.slots[i].Empty() {
			continue
		}
		apply(b.ids[i], b.slots[i])
		b.slots[i].reset()
		n++
	}
	return n
}

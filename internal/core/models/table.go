package models

import (
	"slices"

	"github.com/zeusync/voxphys/pkg/sequence"
)

// Table is dense, typed per-entity storage. Values live in a contiguous slice
// and are addressed through an id index; pointers returned by Get stay valid
// until the next Insert or Remove, so structural changes must not happen while
// a parallel pass holds them. Writes through distinct pointers are safe to
// perform concurrently.
type Table[T any] struct {
	ids   []EntityID
	data  []T
	index map[EntityID]int
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{index: make(map[EntityID]int)}
}

func (t *Table[T]) Len() int { return len(t.ids) }

func (t *Table[T]) Has(id EntityID) bool {
	_, ok := t.index[id]
	return ok
}

// Get returns a pointer to the stored value.
func (t *Table[T]) Get(id EntityID) (*T, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.data[i], true
}

// Value returns a copy of the stored value, or the zero value when absent.
func (t *Table[T]) Value(id EntityID) (T, bool) {
	i, ok := t.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.data[i], true
}

// Insert stores v, replacing any existing value.
func (t *Table[T]) Insert(id EntityID, v T) {
	if i, ok := t.index[id]; ok {
		t.data[i] = v
		return
	}
	t.index[id] = len(t.ids)
	t.ids = append(t.ids, id)
	t.data = append(t.data, v)
}

// InsertIfAbsent stores the value produced by mk only when id has no entry.
// It reports whether an insert happened.
func (t *Table[T]) InsertIfAbsent(id EntityID, mk func() T) (*T, bool) {
	if i, ok := t.index[id]; ok {
		return &t.data[i], false
	}
	t.Insert(id, mk())
	return &t.data[len(t.data)-1], true
}

// Remove deletes the entry with a swap-remove.
func (t *Table[T]) Remove(id EntityID) bool {
	i, ok := t.index[id]
	if !ok {
		return false
	}
	last := len(t.ids) - 1
	if i != last {
		t.ids[i] = t.ids[last]
		t.data[i] = t.data[last]
		t.index[t.ids[i]] = i
	}
	var zero T
	t.data[last] = zero
	t.ids = t.ids[:last]
	t.data = t.data[:last]
	delete(t.index, id)
	return true
}

// IDs returns the stored ids sorted ascending. Sorting keeps pass order, and
// therefore event order, deterministic regardless of insertion history.
func (t *Table[T]) IDs() []EntityID {
	out := slices.Clone(t.ids)
	slices.Sort(out)
	return out
}

// Join iterates the ids of t that are present in every filter.
func (t *Table[T]) Join(filters ...Presence) *sequence.Iterator[EntityID] {
	return sequence.From(t.IDs()).Filter(func(id EntityID) bool {
		for _, f := range filters {
			if !f.Has(id) {
				return false
			}
		}
		return true
	})
}

// Set is a table of marker components.
type Set = Table[struct{}]

func NewSet() *Set { return NewTable[struct{}]() }

// Mark adds a marker component.
func Mark(s *Set, id EntityID) { s.Insert(id, struct{}{}) }

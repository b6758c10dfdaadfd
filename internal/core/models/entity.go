package models

import "sync/atomic"

// EntityID identifies an entity across every component table.
type EntityID uint64

// Allocator hands out monotonically increasing entity ids. Zero is never issued.
type Allocator struct {
	next atomic.Uint64
}

func (a *Allocator) Next() EntityID {
	return EntityID(a.next.Add(1))
}

// Presence is satisfied by every table; it is what join filters need.
type Presence interface {
	Has(EntityID) bool
}

// Not inverts a presence filter, for "without component" joins.
func Not(p Presence) Presence { return absent{p} }

type absent struct{ p Presence }

func (a absent) Has(id EntityID) bool { return !a.p.Has(id) }

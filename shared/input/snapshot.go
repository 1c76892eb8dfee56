// Package input holds per-tick input snapshots and the ring buffers that keep
// them for simulation and rollback replay.
package input

import (
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netconfig"
	"github.com/automoto/rollback-mp/shared/tick"
)

// ActionSet is a bitmask of pressed actions.
type ActionSet uint32

// Actions builds a set from the given actions.
func Actions(actions ...netconfig.ActionID) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s = s.With(a)
	}
	return s
}

// Pressed reports whether a is in the set.
func (s ActionSet) Pressed(a netconfig.ActionID) bool {
	return s&(1<<uint(a)) != 0
}

// With returns the set with a added.
func (s ActionSet) With(a netconfig.ActionID) ActionSet {
	return s | 1<<uint(a)
}

// Without returns the set with a removed.
func (s ActionSet) Without(a netconfig.ActionID) ActionSet {
	return s &^ (1 << uint(a))
}

// Snapshot is the input sampled for one entity at one tick. A zero Snapshot
// means "nothing pressed"; an unknown input is expressed by the absence of a
// Snapshot, never by a zero value.
type Snapshot struct {
	Tick    tick.Tick
	Actions ActionSet
	Axis    gamemath.Vec2 // free-form analog input, added to the digital direction
}

// Pressed reports whether a was held in this snapshot.
func (s Snapshot) Pressed(a netconfig.ActionID) bool {
	return s.Actions.Pressed(a)
}

// JustPressed reports whether a is held now but was not held in prev.
func (s Snapshot) JustPressed(a netconfig.ActionID, prev Snapshot, hasPrev bool) bool {
	if !s.Pressed(a) {
		return false
	}
	return !hasPrev || !prev.Pressed(a)
}

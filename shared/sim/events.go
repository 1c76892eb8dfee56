package sim

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"

	"github.com/automoto/rollback-mp/shared/tick"
)

// DesyncEvent is published when a confirmed snapshot is older than anything
// the prediction history still holds, so it could not be checked.
type DesyncEvent struct {
	Entity    donburi.Entity
	Confirmed tick.Tick
	Floor     tick.Tick
}

// MispredictionEvent is published when a locally pre-spawned entity found no
// server counterpart within the match window and was discarded.
type MispredictionEvent struct {
	Entity donburi.Entity
	Hash   uint64
}

// DespawnReason says why an entity left the world.
type DespawnReason int

const (
	DespawnReplicated   DespawnReason = iota // the server stopped replicating it
	DespawnDisconnected                      // the owning connection closed
	DespawnMisprediction                     // an unmatched pre-spawn expired
)

// DespawnEvent is published before an entity is removed.
type DespawnEvent struct {
	Entity donburi.Entity
	Reason DespawnReason
}

var (
	Desync        = events.NewEventType[DesyncEvent]()
	Misprediction = events.NewEventType[MispredictionEvent]()
	Despawn       = events.NewEventType[DespawnEvent]()
)

// ProcessEvents delivers every queued lifecycle event to its subscribers.
func ProcessEvents(w donburi.World) {
	Desync.ProcessEvents(w)
	Misprediction.ProcessEvents(w)
	Despawn.ProcessEvents(w)
}

package netcomponents

import (
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/yohamta/donburi"
)

// NetPreSpawnData carries the content hash of an entity that clients may
// have spawned speculatively before the server replicated it.
type NetPreSpawnData struct {
	Hash uint64
	Tick tick.Tick
	Salt uint64
}

var NetPreSpawn = donburi.NewComponentType[NetPreSpawnData]()

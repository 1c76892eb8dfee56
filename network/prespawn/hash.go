// Package prespawn matches entities a client spawned speculatively with the
// entities the server later replicates for them, by content hash.
package prespawn

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/rotisserie/eris"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/shared/protocol"
	"github.com/automoto/rollback-mp/shared/tick"
)

var (
	ErrUnregisteredComponent = eris.New("component is not registered for replication")
	ErrDuplicateComponent    = eris.New("component appears twice")
)

// Hash is the fingerprint of a spawn.
type Hash uint64

type hashedComponent struct {
	ID    uint
	Value any
}

type hashInput struct {
	Tick       uint64
	Components []hashedComponent
	Salt       uint64
}

var handle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	return h
}()

// Compute fingerprints a spawn at t from its component values and salt.
// Components are ordered by sync id; continuously simulated components
// contribute only their id, identity components their id and value. The
// pre-spawn marker itself is left out. Callers salt with the owning peer so
// two players spawning at the same tick do not collide.
func Compute(t tick.Tick, values []any, salt uint64) (Hash, error) {
	in := hashInput{Tick: uint64(t), Salt: salt}
	seen := make(map[uint]bool, len(values))

	for _, v := range values {
		info, ok := protocol.ForValue(v)
		if !ok {
			return 0, eris.Wrapf(ErrUnregisteredComponent, "%T", v)
		}
		if seen[info.SyncID] {
			return 0, eris.Wrapf(ErrDuplicateComponent, "%s", info.Name)
		}
		seen[info.SyncID] = true

		switch info.Hash {
		case protocol.HashType:
			in.Components = append(in.Components, hashedComponent{ID: info.SyncID})
		case protocol.HashValue:
			in.Components = append(in.Components, hashedComponent{ID: info.SyncID, Value: v})
		}
	}
	sort.Slice(in.Components, func(i, j int) bool {
		return in.Components[i].ID < in.Components[j].ID
	})

	d := xxhash.New()
	if err := codec.NewEncoder(d, handle).Encode(in); err != nil {
		return 0, eris.Wrap(err, "encode spawn")
	}
	return Hash(d.Sum64()), nil
}

// ComputeEntry fingerprints every registered component held by entry.
func ComputeEntry(entry *donburi.Entry, t tick.Tick, salt uint64) (Hash, error) {
	var values []any
	for _, c := range protocol.Components() {
		if v, ok := c.Get(entry); ok {
			values = append(values, v)
		}
	}
	return Compute(t, values, salt)
}

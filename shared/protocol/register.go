package protocol

import (
	"sort"

	"github.com/leap-fish/necs/esync"
	"github.com/rotisserie/eris"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
)

// Sync ID constants - ID 1 is reserved by necs for NetworkId
const (
	SyncIDNetKinematic uint = 10
	SyncIDNetPlayer    uint = 11
	SyncIDNetName      uint = 12
	SyncIDNetBody      uint = 13
	SyncIDNetBullet    uint = 14
	SyncIDNetPreSpawn  uint = 15
)

// Interpolation IDs (uint8 for WithInterpFn)
const (
	InterpIDNetKinematic uint8 = 10
)

// HashMode says how a component contributes to a pre-spawn hash.
type HashMode int

const (
	// HashNone components are left out entirely.
	HashNone HashMode = iota
	// HashType components contribute their sync id only. Used for
	// continuously simulated state, which drifts between peers by the time
	// the hash is compared.
	HashType
	// HashValue components contribute their sync id and value.
	HashValue
)

// ComponentInfo is the registration record of one replicated component.
type ComponentInfo struct {
	SyncID        uint
	Name          string
	Type          donburi.IComponentType
	Prediction    netconfig.PredictionMode
	Interpolation netconfig.PredictionMode
	Hash          HashMode

	is       func(v any) bool
	get      func(e *donburi.Entry) (any, bool)
	set      func(e *donburi.Entry, v any) bool
	register func() error
}

// Is reports whether v is a value of this component.
func (c ComponentInfo) Is(v any) bool { return c.is(v) }

// Get returns the component value held by e.
func (c ComponentInfo) Get(e *donburi.Entry) (any, bool) { return c.get(e) }

// Set adds the component to e if needed and stores v. It returns false when v
// is not a value of this component.
func (c ComponentInfo) Set(e *donburi.Entry, v any) bool { return c.set(e, v) }

func component[T any](
	syncID uint,
	name string,
	ctype *donburi.ComponentType[T],
	prediction, interpolation netconfig.PredictionMode,
	hash HashMode,
) ComponentInfo {
	var zero T
	return ComponentInfo{
		SyncID:        syncID,
		Name:          name,
		Type:          ctype,
		Prediction:    prediction,
		Interpolation: interpolation,
		Hash:          hash,
		is: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
		get: func(e *donburi.Entry) (any, bool) {
			if !e.HasComponent(ctype) {
				return nil, false
			}
			return *ctype.Get(e), true
		},
		set: func(e *donburi.Entry, v any) bool {
			val, ok := v.(T)
			if !ok {
				return false
			}
			if !e.HasComponent(ctype) {
				e.AddComponent(ctype)
			}
			ctype.SetValue(e, val)
			return true
		},
		register: func() error {
			return esync.RegisterComponent(syncID, zero, ctype)
		},
	}
}

func (c ComponentInfo) withRegistration(fn func() error) ComponentInfo {
	c.register = fn
	return c
}

// components mirrors the replication protocol: the kinematic state is
// predicted and interpolated every tick, everything else is identity data
// copied once.
var components = []ComponentInfo{
	component(SyncIDNetKinematic, "kinematic", netcomponents.NetKinematic,
		netconfig.ModeFull, netconfig.ModeFull, HashType).
		withRegistration(func() error {
			return esync.RegisterComponent(
				SyncIDNetKinematic,
				netcomponents.NetKinematicData{},
				netcomponents.NetKinematic,
				esync.WithInterpFn(InterpIDNetKinematic, netcomponents.LerpNetKinematic),
			)
		}),
	component(SyncIDNetPlayer, "player", netcomponents.NetPlayer,
		netconfig.ModeOnce, netconfig.ModeOnce, HashValue),
	component(SyncIDNetName, "name", netcomponents.NetName,
		netconfig.ModeOnce, netconfig.ModeOnce, HashValue),
	component(SyncIDNetBody, "body", netcomponents.NetBody,
		netconfig.ModeOnce, netconfig.ModeNone, HashValue),
	component(SyncIDNetBullet, "bullet", netcomponents.NetBullet,
		netconfig.ModeOnce, netconfig.ModeOnce, HashValue),
	component(SyncIDNetPreSpawn, "prespawn", netcomponents.NetPreSpawn,
		netconfig.ModeOnce, netconfig.ModeNone, HashNone),
}

// Components returns every registered component ordered by sync id.
func Components() []ComponentInfo {
	out := make([]ComponentInfo, len(components))
	copy(out, components)
	sort.Slice(out, func(i, j int) bool { return out[i].SyncID < out[j].SyncID })
	return out
}

// Lookup returns the registration of a component type.
func Lookup(ctype donburi.IComponentType) (ComponentInfo, bool) {
	for _, c := range components {
		if c.Type == ctype {
			return c, true
		}
	}
	return ComponentInfo{}, false
}

// ForValue returns the registration matching a deserialized component value.
func ForValue(v any) (ComponentInfo, bool) {
	for _, c := range components {
		if c.Is(v) {
			return c, true
		}
	}
	return ComponentInfo{}, false
}

// RegisterComponents registers all network components with necs for serialization.
// This must be called by both server and client before any network operations.
func RegisterComponents() error {
	for _, c := range components {
		if err := c.register(); err != nil {
			return eris.Wrapf(err, "register component %s", c.Name)
		}
	}
	return nil
}

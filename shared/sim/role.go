// Package sim holds the pieces of the per-peer simulation world that client
// and server share: entity roles, the component-add observer registry, the
// lifecycle event bus and the deterministic per-tick stepper.
package sim

import (
	"github.com/rotisserie/eris"
	"github.com/yohamta/donburi"
)

var (
	ErrRoleConflict     = eris.New("entity already has a different role")
	ErrBadCounterpart   = eris.New("invalid counterpart")
	ErrAlreadyConfirmed = eris.New("entity is already bound to a confirmed counterpart")
)

// RoleKind is the role an entity plays on one peer.
type RoleKind int

const (
	// RoleConfirmed is the server's authoritative entity, or the client's
	// received copy of it.
	RoleConfirmed RoleKind = iota + 1
	// RolePredicted is simulated locally ahead of the server.
	RolePredicted
	// RoleInterpolated is display-only and follows confirmed snapshots.
	RoleInterpolated
)

func (k RoleKind) String() string {
	switch k {
	case RoleConfirmed:
		return "confirmed"
	case RolePredicted:
		return "predicted"
	case RoleInterpolated:
		return "interpolated"
	default:
		return "none"
	}
}

// RoleData tags an entity with its role. Predicted and interpolated entities
// point at their confirmed counterpart; confirmed entities never point back.
// A predicted entity with a null counterpart was spawned locally and is still
// waiting for its server entity.
type RoleData struct {
	Kind        RoleKind
	Counterpart donburi.Entity
}

var Role = donburi.NewComponentType[RoleData]()

// Unconfirmed reports whether the role is a locally pre-spawned prediction.
func (r RoleData) Unconfirmed() bool {
	return r.Kind == RolePredicted && r.Counterpart == donburi.Null
}

// RoleOf returns the role of entry, if it has one. A Role component that was
// created but never assigned counts as no role.
func RoleOf(entry *donburi.Entry) (RoleData, bool) {
	if !entry.HasComponent(Role) {
		return RoleData{}, false
	}
	r := *Role.Get(entry)
	return r, r.Kind != 0
}

// SetRole gives entry its role. An entity keeps the role it was first given;
// assigning a different kind is rejected. Confirmed entities must not have a
// counterpart and interpolated entities must have a valid one.
func SetRole(entry *donburi.Entry, kind RoleKind, counterpart donburi.Entity) error {
	if current, ok := RoleOf(entry); ok && current.Kind != kind {
		return eris.Wrapf(ErrRoleConflict, "entity %v is %s, not %s", entry.Entity(), current.Kind, kind)
	}

	switch kind {
	case RoleConfirmed:
		if counterpart != donburi.Null {
			return eris.Wrap(ErrBadCounterpart, "confirmed entities have no counterpart")
		}
	case RoleInterpolated:
		if !entry.World.Valid(counterpart) {
			return eris.Wrap(ErrBadCounterpart, "interpolated entity needs a confirmed counterpart")
		}
	case RolePredicted:
		if counterpart != donburi.Null && !entry.World.Valid(counterpart) {
			return eris.Wrap(ErrBadCounterpart, "counterpart is not a live entity")
		}
	default:
		return eris.Wrapf(ErrRoleConflict, "unknown role %d", kind)
	}

	if kind != RoleConfirmed && counterpart != donburi.Null {
		cp := entry.World.Entry(counterpart)
		if r, ok := RoleOf(cp); !ok || r.Kind != RoleConfirmed {
			return eris.Wrap(ErrBadCounterpart, "counterpart is not a confirmed entity")
		}
	}

	if !entry.HasComponent(Role) {
		entry.AddComponent(Role)
	}
	Role.SetValue(entry, RoleData{Kind: kind, Counterpart: counterpart})
	return nil
}

// Bind attaches a pre-spawned predicted entity to the confirmed entity the
// server replicated for it. It succeeds at most once per entity.
func Bind(entry *donburi.Entry, confirmed donburi.Entity) error {
	r, ok := RoleOf(entry)
	if !ok || r.Kind != RolePredicted {
		return eris.Wrap(ErrRoleConflict, "only predicted entities can be bound")
	}
	if !r.Unconfirmed() {
		return ErrAlreadyConfirmed
	}
	return SetRole(entry, RolePredicted, confirmed)
}

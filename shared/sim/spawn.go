package sim

import (
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/tick"
)

// PlayerSpec describes a player body.
type PlayerSpec struct {
	PeerID   uint64
	Name     string
	Position gamemath.Vec2
	Size     float64
}

// BulletSpec describes a projectile fired by Shooter.
type BulletSpec struct {
	Shooter  uint64
	Position gamemath.Vec2
	Velocity gamemath.Vec2
	Size     float64
}

// CreatePlayer adds a player entity to w. Server and client build players
// through here so their component sets agree.
func CreatePlayer(w donburi.World, spec PlayerSpec, t tick.Tick) *donburi.Entry {
	e := w.Entry(w.Create(
		netcomponents.NetKinematic,
		netcomponents.NetPlayer,
		netcomponents.NetName,
		netcomponents.NetBody,
	))
	netcomponents.NetKinematic.SetValue(e, netcomponents.NetKinematicData{Tick: t, Position: spec.Position})
	netcomponents.NetPlayer.SetValue(e, netcomponents.NetPlayerData{PeerID: spec.PeerID})
	netcomponents.NetName.SetValue(e, netcomponents.NetNameData{Name: spec.Name})
	netcomponents.NetBody.SetValue(e, netcomponents.NetBodyData{
		Kind:       netcomponents.BodyKinematic,
		Width:      spec.Size,
		Height:     spec.Size,
		Controller: true,
	})
	return e
}

// CreateBullet adds a bullet entity to w. The component values feed the
// pre-spawn hash, so both peers must build them identically.
func CreateBullet(w donburi.World, spec BulletSpec, t tick.Tick) *donburi.Entry {
	e := w.Entry(w.Create(
		netcomponents.NetKinematic,
		netcomponents.NetBullet,
		netcomponents.NetBody,
	))
	netcomponents.NetKinematic.SetValue(e, netcomponents.NetKinematicData{
		Tick:     t,
		Position: spec.Position,
		Velocity: spec.Velocity,
	})
	netcomponents.NetBullet.SetValue(e, netcomponents.NetBulletData{ShooterPeerID: spec.Shooter})
	netcomponents.NetBody.SetValue(e, netcomponents.NetBodyData{
		Kind:   netcomponents.BodyKinematic,
		Width:  spec.Size,
		Height: spec.Size,
	})
	return e
}

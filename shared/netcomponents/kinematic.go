package netcomponents

import (
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/yohamta/donburi"
)

// NetKinematicData is the simulation-relevant state of one body at one tick.
// It doubles as the state snapshot stored in the prediction history.
type NetKinematicData struct {
	Tick            tick.Tick
	Position        gamemath.Vec2
	Rotation        float64 // radians
	Velocity        gamemath.Vec2
	AngularVelocity float64
}

var NetKinematic = donburi.NewComponentType[NetKinematicData]()

// LerpNetKinematic interpolates between two kinematic states. Rotation
// follows the shortest arc; velocities are lerped too so extrapolation off the
// interpolated state stays smooth.
func LerpNetKinematic(from, to NetKinematicData, t float64) *NetKinematicData {
	return &NetKinematicData{
		Tick:            to.Tick,
		Position:        from.Position.Lerp(to.Position, t),
		Rotation:        gamemath.LerpAngle(from.Rotation, to.Rotation, t),
		Velocity:        from.Velocity.Lerp(to.Velocity, t),
		AngularVelocity: from.AngularVelocity + (to.AngularVelocity-from.AngularVelocity)*t,
	}
}

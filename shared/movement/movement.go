// Package movement is the pure movement step shared by client prediction,
// rollback replay and server authority. Given identical inputs it must
// produce bit-identical outputs, so it never reads clocks, never iterates
// maps and never allocates shared state.
package movement

import (
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
)

// Config holds the movement tuning constants.
type Config struct {
	Speed float64
	Mode  netconfig.MovementMode
}

// Direction accumulates the active movement actions (and the analog axis)
// into a normalized direction. Opposite actions cancel; no input yields the
// zero vector.
func Direction(in input.Snapshot) gamemath.Vec2 {
	dir := in.Axis
	if in.Pressed(netconfig.ActionUp) {
		dir.Y++
	}
	if in.Pressed(netconfig.ActionDown) {
		dir.Y--
	}
	if in.Pressed(netconfig.ActionRight) {
		dir.X++
	}
	if in.Pressed(netconfig.ActionLeft) {
		dir.X--
	}
	return dir.Normalize()
}

// Step applies one input snapshot to state over dt seconds.
func Step(cfg Config, state netcomponents.NetKinematicData, in input.Snapshot, dt float64) netcomponents.NetKinematicData {
	move := Direction(in).Scale(cfg.Speed)

	switch cfg.Mode {
	case netconfig.MovementPosition:
		state.Position = state.Position.Add(move.Scale(dt))
	default:
		state.Velocity = move
	}
	return state
}

// Integrate advances position and rotation by the current velocities.
func Integrate(state netcomponents.NetKinematicData, dt float64) netcomponents.NetKinematicData {
	state.Position = state.Position.Add(state.Velocity.Scale(dt))
	if state.AngularVelocity != 0 {
		state.Rotation = gamemath.WrapAngle(state.Rotation + state.AngularVelocity*dt)
	}
	return state
}

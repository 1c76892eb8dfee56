package prediction

import (
	"math"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
)

// Predicate reports whether a predicted state diverges from the confirmed
// state for the same tick.
type Predicate func(predicted, confirmed netcomponents.NetKinematicData) bool

// PositionDiverged triggers when the positions are eps or more apart.
func PositionDiverged(eps float64) Predicate {
	return func(p, c netcomponents.NetKinematicData) bool {
		return p.Position.Distance(c.Position) >= eps
	}
}

// RotationDiverged triggers when the shortest angle between the rotations is
// eps radians or more.
func RotationDiverged(eps float64) Predicate {
	return func(p, c netcomponents.NetKinematicData) bool {
		return gamemath.AngleDiff(p.Rotation, c.Rotation) >= eps
	}
}

// VelocityDiverged triggers when linear velocities differ by eps or more, or
// angular velocities by eps or more.
func VelocityDiverged(eps float64) Predicate {
	return func(p, c netcomponents.NetKinematicData) bool {
		return p.Velocity.Distance(c.Velocity) >= eps ||
			math.Abs(p.AngularVelocity-c.AngularVelocity) >= eps
	}
}

// Any combines predicates; the result triggers if any of them does.
func Any(preds ...Predicate) Predicate {
	return func(p, c netcomponents.NetKinematicData) bool {
		for _, pred := range preds {
			if pred(p, c) {
				return true
			}
		}
		return false
	}
}

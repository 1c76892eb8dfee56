// Package kinematic implements collision response for kinematic character
// controllers. Kinematic bodies are not pushed by the solver, so after the
// narrow phase has produced contact manifolds this pass pushes them out of
// penetration and applies velocity corrections that slide along walls and
// stop one tick short of speculative contacts.
//
// The pass is a pure function of (state, manifolds, dt) and runs unchanged on
// the server, during client prediction and during rollback replay.
package kinematic

import (
	"math"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
)

// BodyID identifies a collider within one collision pass.
type BodyID uint64

// Contact is one contact point. Penetration is positive when the shapes
// overlap and negative for speculative contacts that are still apart.
type Contact struct {
	Point       gamemath.Vec2
	Penetration float64
}

// Manifold is a set of contacts sharing one normal. The normal points from
// body A toward body B of the owning Collision.
type Manifold struct {
	Normal   gamemath.Vec2
	Contacts []Contact
}

// Collision is every manifold between one pair of bodies.
type Collision struct {
	A, B      BodyID
	Manifolds []Manifold
}

// Body is what the resolver needs to know about a collider.
type Body struct {
	Kind       netcomponents.BodyKind
	Controller bool
	State      *netcomponents.NetKinematicData
}

// Bodies looks colliders up by id.
type Bodies interface {
	Body(id BodyID) (Body, bool)
}

// BodyMap is the simplest Bodies implementation.
type BodyMap map[BodyID]Body

func (m BodyMap) Body(id BodyID) (Body, bool) {
	b, ok := m[id]
	return b, ok
}

// Deepest returns the largest penetration across the manifold's contacts.
func (m Manifold) Deepest() float64 {
	deepest := -math.MaxFloat64
	for _, c := range m.Contacts {
		deepest = math.Max(deepest, c.Penetration)
	}
	return deepest
}

// ResolveManifold applies the response for one manifold to state. normal must
// point away from the other body, toward the controller.
//
//  1. translate along normal by the deepest positive penetration, once
//  2. stop there if the other body is dynamic
//  3. stop if the body is separating or at rest relative to the surface
//  4. otherwise remove the approaching velocity, over-correcting by the
//     deepest penetration per dt (speculative contact)
func ResolveManifold(state *netcomponents.NetKinematicData, normal gamemath.Vec2, m Manifold, otherDynamic bool, dt float64) {
	if len(m.Contacts) == 0 {
		return
	}

	deepest := m.Deepest()
	if deepest > 0 {
		state.Position = state.Position.Add(normal.Scale(deepest))
	}

	if otherDynamic {
		return
	}

	normalSpeed := state.Velocity.Dot(normal)
	if normalSpeed >= 0 {
		return
	}

	impulse := normalSpeed - deepest/dt
	state.Velocity = state.Velocity.Sub(normal.Scale(impulse))
}

// Resolve runs the response for every collision involving a kinematic
// controller. Collisions are processed in slice order, which the caller must
// keep stable for determinism.
func Resolve(collisions []Collision, bodies Bodies, dt float64) {
	for _, c := range collisions {
		a, okA := bodies.Body(c.A)
		b, okB := bodies.Body(c.B)
		if !okA || !okB {
			continue
		}

		var (
			self    Body
			other   Body
			isFirst bool
		)
		switch {
		case a.Controller && a.State != nil:
			self, other, isFirst = a, b, true
		case b.Controller && b.State != nil:
			self, other, isFirst = b, a, false
		default:
			continue
		}

		if self.Kind != netcomponents.BodyKinematic {
			continue
		}

		otherDynamic := other.Kind == netcomponents.BodyDynamic
		for _, m := range c.Manifolds {
			normal := m.Normal
			if isFirst {
				normal = normal.Scale(-1)
			}
			ResolveManifold(self.State, normal, m, otherDynamic, dt)
		}
	}
}

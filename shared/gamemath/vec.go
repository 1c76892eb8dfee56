// Package gamemath holds the small amount of deterministic vector math shared
// by the client prediction step and the server authority step.
package gamemath

import "math"

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float64
}

// Zero is the zero vector.
var Zero = Vec2{}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Distance returns the euclidean distance between v and o.
func (v Vec2) Distance(o Vec2) float64 {
	return v.Sub(o).Len()
}

// Normalize returns the unit vector of v. The zero vector stays zero.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Zero
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// IsZero reports whether both components are exactly zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Lerp linearly interpolates from v to o.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{
		X: v.X + (o.X-v.X)*t,
		Y: v.Y + (o.Y-v.Y)*t,
	}
}

package gamemath

import "math"

// WrapAngle maps a in radians into (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// AngleDiff returns the absolute shortest-arc difference between a and b.
func AngleDiff(a, b float64) float64 {
	return math.Abs(WrapAngle(b - a))
}

// LerpAngle interpolates from a to b along the shortest arc.
func LerpAngle(a, b, t float64) float64 {
	return WrapAngle(a + WrapAngle(b-a)*t)
}

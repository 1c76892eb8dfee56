package gamemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeZeroStaysZero(t *testing.T) {
	assert.Equal(t, Zero, Zero.Normalize())

	n := Vec2{X: 3, Y: 4}.Normalize()
	assert.InDelta(t, 0.6, n.X, 1e-12)
	assert.InDelta(t, 0.8, n.Y, 1e-12)
}

func TestLerpMidpoint(t *testing.T) {
	a := Vec2{X: -2, Y: 10}
	b := Vec2{X: 4, Y: 0}
	assert.Equal(t, Vec2{X: 1, Y: 5}, a.Lerp(b, 0.5))
	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4 * math.Pi, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, WrapAngle(tt.in), 1e-9, "WrapAngle(%v)", tt.in)
	}
}

func TestLerpAngleTakesShortestArc(t *testing.T) {
	a := math.Pi - 0.1
	b := -math.Pi + 0.1
	mid := LerpAngle(a, b, 0.5)
	assert.InDelta(t, math.Pi, math.Abs(mid), 1e-9)
	assert.InDelta(t, 0.2, AngleDiff(a, b), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.25, Clamp(0.25, 0, 1))
}

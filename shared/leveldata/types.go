// Package leveldata describes the static collision layout of an arena and
// loads it from TMX files. It has no dependencies on donburi or resolv, only
// plain data.
package leveldata

import "github.com/automoto/rollback-mp/shared/gamemath"

// Arena holds the static walls of a level.
type Arena struct {
	Walls       []Wall
	SpawnPoints []gamemath.Vec2
}

// Wall is an axis-aligned box centered on Center.
type Wall struct {
	Center        gamemath.Vec2
	Width, Height float64
}

// Min returns the wall's lower-left corner.
func (w Wall) Min() gamemath.Vec2 {
	return gamemath.Vec2{X: w.Center.X - w.Width/2, Y: w.Center.Y - w.Height/2}
}

// Max returns the wall's upper-right corner.
func (w Wall) Max() gamemath.Vec2 {
	return gamemath.Vec2{X: w.Center.X + w.Width/2, Y: w.Center.Y + w.Height/2}
}

// DefaultArena is the four-wall box every peer uses when no level file is
// configured.
func DefaultArena() *Arena {
	return &Arena{
		Walls: []Wall{
			{Center: gamemath.Vec2{X: -250}, Width: 20, Height: 450},
			{Center: gamemath.Vec2{X: 250}, Width: 20, Height: 450},
			{Center: gamemath.Vec2{Y: 200}, Width: 600, Height: 20},
			{Center: gamemath.Vec2{Y: -200}, Width: 600, Height: 20},
		},
		SpawnPoints: []gamemath.Vec2{{X: 0, Y: 100}},
	}
}

// Bounds returns the smallest box containing every wall.
func (a *Arena) Bounds() (min, max gamemath.Vec2) {
	for i, w := range a.Walls {
		lo, hi := w.Min(), w.Max()
		if i == 0 {
			min, max = lo, hi
			continue
		}
		min.X = minf(min.X, lo.X)
		min.Y = minf(min.Y, lo.Y)
		max.X = maxf(max.X, hi.X)
		max.Y = maxf(max.Y, hi.Y)
	}
	return min, max
}

// Spawn returns the spawn point for the n-th player, cycling through the
// configured points.
func (a *Arena) Spawn(n int) gamemath.Vec2 {
	if len(a.SpawnPoints) == 0 {
		return gamemath.Zero
	}
	if n < 0 {
		n = -n
	}
	return a.SpawnPoints[n%len(a.SpawnPoints)]
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

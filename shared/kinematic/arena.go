package kinematic

import (
	"math"
	"sort"

	"github.com/solarlune/resolv"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/leveldata"
	"github.com/automoto/rollback-mp/shared/netcomponents"
)

const (
	wallTag  = "wall"
	sensorTag = "sensor"

	cellSize    = 16
	spaceMargin = 64
)

// Arena is the narrow-phase collaborator: a resolv.Space holding the static
// walls of a level, queried with a sensor box per body size for candidate
// walls. Manifolds come from the box overlap with each candidate.
type Arena struct {
	space   *resolv.Space
	walls   []leveldata.Wall
	offset  gamemath.Vec2 // arena coordinates -> space coordinates
	sensors map[[2]float64]*resolv.Object
}

// WallID returns the body id used for the i-th wall in generated collisions.
// Wall ids live in the top of the id space so they never clash with entity ids.
func WallID(i int) BodyID {
	return BodyID(math.MaxUint64 - uint64(i))
}

// NewArena builds the collision space for a level.
func NewArena(level *leveldata.Arena) *Arena {
	min, max := level.Bounds()
	a := &Arena{
		walls: level.Walls,
		offset: gamemath.Vec2{
			X: spaceMargin - min.X,
			Y: spaceMargin - min.Y,
		},
		sensors: make(map[[2]float64]*resolv.Object),
	}

	w := int(max.X-min.X) + 2*spaceMargin
	h := int(max.Y-min.Y) + 2*spaceMargin
	a.space = resolv.NewSpace(w, h, cellSize, cellSize)

	for i, wall := range level.Walls {
		lo := wall.Min().Add(a.offset)
		obj := resolv.NewObject(lo.X, lo.Y, wall.Width, wall.Height, wallTag)
		obj.Data = i
		a.space.Add(obj)
	}

	return a
}

// Bodies returns the static bodies of the arena, for use with Resolve.
func (a *Arena) Bodies(into BodyMap) BodyMap {
	if into == nil {
		into = make(BodyMap, len(a.walls))
	}
	for i := range a.walls {
		into[WallID(i)] = Body{Kind: netcomponents.BodyStatic}
	}
	return into
}

// Contacts returns a collision for every wall the box of size (w, h) centered
// on state.Position overlaps. Body A is id, body B is the wall; normals point
// from A to B. Collisions are ordered by wall index.
func (a *Arena) Contacts(id BodyID, state netcomponents.NetKinematicData, w, h float64) []Collision {
	sensor := a.sensor(w, h)
	lo := state.Position.Add(a.offset).Sub(gamemath.Vec2{X: w / 2, Y: h / 2})
	sensor.X, sensor.Y = lo.X, lo.Y
	sensor.Update()

	check := sensor.Check(0, 0, wallTag)
	if check == nil {
		return nil
	}

	walls := check.ObjectsByTags(wallTag)
	sort.Slice(walls, func(i, j int) bool {
		return walls[i].Data.(int) < walls[j].Data.(int)
	})

	half := gamemath.Vec2{X: w / 2, Y: h / 2}
	bmin, bmax := state.Position.Sub(half), state.Position.Add(half)

	var out []Collision
	for _, obj := range walls {
		idx := obj.Data.(int)
		m, ok := overlap(bmin, bmax, a.walls[idx])
		if !ok {
			continue
		}
		out = append(out, Collision{A: id, B: WallID(idx), Manifolds: []Manifold{m}})
	}
	return out
}

// overlap builds the manifold of box [bmin, bmax] against an axis-aligned
// wall. The normal is the axis of least overlap, pointing from the box into
// the wall; touching boxes do not collide.
func overlap(bmin, bmax gamemath.Vec2, wall leveldata.Wall) (Manifold, bool) {
	wmin, wmax := wall.Min(), wall.Max()
	lo := gamemath.Vec2{X: math.Max(bmin.X, wmin.X), Y: math.Max(bmin.Y, wmin.Y)}
	hi := gamemath.Vec2{X: math.Min(bmax.X, wmax.X), Y: math.Min(bmax.Y, wmax.Y)}
	dx, dy := hi.X-lo.X, hi.Y-lo.Y
	if dx <= 0 || dy <= 0 {
		return Manifold{}, false
	}

	center := bmin.Add(bmax).Scale(0.5)
	var normal gamemath.Vec2
	depth := dx
	if dx <= dy {
		normal.X = 1
		if wall.Center.X < center.X {
			normal.X = -1
		}
	} else {
		depth = dy
		normal.Y = 1
		if wall.Center.Y < center.Y {
			normal.Y = -1
		}
	}

	// Contact points are the two corners of the overlap region on the face
	// the box pushes against.
	var p1, p2 gamemath.Vec2
	switch {
	case normal.X > 0:
		p1, p2 = gamemath.Vec2{X: lo.X, Y: lo.Y}, gamemath.Vec2{X: lo.X, Y: hi.Y}
	case normal.X < 0:
		p1, p2 = gamemath.Vec2{X: hi.X, Y: lo.Y}, gamemath.Vec2{X: hi.X, Y: hi.Y}
	case normal.Y > 0:
		p1, p2 = gamemath.Vec2{X: lo.X, Y: lo.Y}, gamemath.Vec2{X: hi.X, Y: lo.Y}
	default:
		p1, p2 = gamemath.Vec2{X: lo.X, Y: hi.Y}, gamemath.Vec2{X: hi.X, Y: hi.Y}
	}
	return Manifold{
		Normal: normal,
		Contacts: []Contact{
			{Point: p1, Penetration: depth},
			{Point: p2, Penetration: depth},
		},
	}, true
}

func (a *Arena) sensor(w, h float64) *resolv.Object {
	key := [2]float64{w, h}
	if p, ok := a.sensors[key]; ok {
		return p
	}
	p := resolv.NewObject(0, 0, w, h, sensorTag)
	a.space.Add(p)
	a.sensors[key] = p
	return p
}

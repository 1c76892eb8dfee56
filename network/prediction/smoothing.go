package prediction

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/automoto/rollback-mp/shared/gamemath"
)

// correction is a display-only offset that decays to zero after a rollback.
// The simulation state never sees it.
type correction struct {
	offset gamemath.Vec2
	tween  *gween.Tween
	weight float64
}

func newCorrection(offset gamemath.Vec2, d time.Duration) *correction {
	if d <= 0 || offset.IsZero() {
		return nil
	}
	return &correction{
		offset: offset,
		tween:  gween.New(1, 0, float32(d.Seconds()), ease.OutQuad),
		weight: 1,
	}
}

// current returns the offset still to be shown.
func (c *correction) current() gamemath.Vec2 {
	if c == nil {
		return gamemath.Zero
	}
	return c.offset.Scale(c.weight)
}

// advance moves the decay forward by dt seconds and reports whether it is done.
func (c *correction) advance(dt float64) bool {
	if c == nil {
		return true
	}
	w, done := c.tween.Update(float32(dt))
	c.weight = float64(w)
	if done {
		c.weight = 0
	}
	return done
}

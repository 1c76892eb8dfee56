// Package tick defines the simulation tick counter and the fixed-step clock
// shared by client and server.
package tick

import "time"

// Tick identifies one discrete simulation step. Wrap-around is not handled.
type Tick uint64

// maxStepsPerAdvance caps how many fixed steps Accumulate will report for a
// single wall-clock update so a long stall cannot snowball.
const maxStepsPerAdvance = 8

// Clock is a fixed-rate tick counter with a wall-clock accumulator.
type Clock struct {
	rate        int
	step        time.Duration
	current     Tick
	accumulator time.Duration
}

// NewClock returns a clock advancing at rate ticks per second.
func NewClock(rate int) *Clock {
	if rate < 1 {
		rate = 1
	}
	return &Clock{
		rate: rate,
		step: time.Second / time.Duration(rate),
	}
}

// Tick returns the current tick.
func (c *Clock) Tick() Tick {
	return c.current
}

// Advance moves the clock forward by one tick and returns the new tick.
func (c *Clock) Advance() Tick {
	c.current++
	return c.current
}

// Set re-seats the clock, dropping any accumulated fraction.
func (c *Clock) Set(t Tick) {
	c.current = t
	c.accumulator = 0
}

// Rate returns ticks per second.
func (c *Clock) Rate() int {
	return c.rate
}

// Step returns the duration of one tick.
func (c *Clock) Step() time.Duration {
	return c.step
}

// Dt returns the duration of one tick in seconds.
func (c *Clock) Dt() float64 {
	return 1.0 / float64(c.rate)
}

// Accumulate adds elapsed wall-clock time and returns how many fixed steps
// are due. The caller is expected to Advance that many times.
func (c *Clock) Accumulate(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	c.accumulator += elapsed

	steps := int(c.accumulator / c.step)
	if steps > maxStepsPerAdvance {
		steps = maxStepsPerAdvance
		c.accumulator = 0
		return steps
	}
	c.accumulator -= time.Duration(steps) * c.step
	return steps
}

// Fraction returns how far wall-clock time has progressed into the next
// tick, in [0, 1).
func (c *Clock) Fraction() float64 {
	return float64(c.accumulator) / float64(c.step)
}

// TicksFor converts a duration into a whole number of ticks at rate,
// rounding to nearest and never returning less than one.
func TicksFor(d time.Duration, rate int) int {
	n := int((d*time.Duration(rate) + time.Second/2) / time.Second)
	if n < 1 {
		return 1
	}
	return n
}

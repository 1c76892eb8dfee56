package tick

import (
	"context"
	"sync"
	"time"
)

// Func is invoked once per fixed step with the tick being simulated.
type Func func(ctx context.Context, t Tick)

// Loop drives a Clock from a wall-clock ticker.
type Loop struct {
	clock    *Clock
	fn       Func
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewLoop returns a loop that calls fn for every tick of clock.
func NewLoop(clock *Clock, fn Func) *Loop {
	return &Loop{
		clock:    clock,
		fn:       fn,
		stopChan: make(chan struct{}),
	}
}

// Clock returns the loop's clock.
func (l *Loop) Clock() *Clock {
	return l.clock
}

// Run blocks until ctx is cancelled or Stop is called. Each wall-clock tick
// is converted through the clock's accumulator so late wakeups still produce
// the right number of fixed steps.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.clock.Step())
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case now := <-ticker.C:
			steps := l.clock.Accumulate(now.Sub(last))
			last = now
			for i := 0; i < steps; i++ {
				l.fn(ctx, l.clock.Advance())
			}
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

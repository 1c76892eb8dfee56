package sim

import (
	"context"

	"github.com/automoto/rollback-mp/shared/tick"
)

// Phases is the fixed order of work inside one tick, shared by client and
// server. Any phase may be nil.
type Phases struct {
	Drain    tick.Func // inbound queue into input buffers and confirmed state
	Simulate tick.Func // movement, integration, collision response
	Record   tick.Func // hand results to prediction history or replication
	Dispatch tick.Func // outbound input or snapshots
}

// Run executes the phases for tick t. A cancelled context stops before the
// next phase starts; a phase that is already running is not interrupted.
func (p Phases) Run(ctx context.Context, t tick.Tick) {
	for _, fn := range []tick.Func{p.Drain, p.Simulate, p.Record, p.Dispatch} {
		if ctx.Err() != nil {
			return
		}
		if fn != nil {
			fn(ctx, t)
		}
	}
}

// Func adapts the phases to a tick.Loop.
func (p Phases) Func() tick.Func {
	return p.Run
}

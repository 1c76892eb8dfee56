package client

import (
	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/netconfig"
	"github.com/automoto/rollback-mp/shared/tick"
)

// InputSource produces the local player's input for a tick.
type InputSource interface {
	Sample(t tick.Tick) input.Snapshot
}

// InputFunc adapts a function to InputSource.
type InputFunc func(t tick.Tick) input.Snapshot

func (f InputFunc) Sample(t tick.Tick) input.Snapshot {
	return f(t)
}

// Step holds a set of actions for a number of ticks.
type Step struct {
	Actions input.ActionSet
	Ticks   int
}

// Script replays a fixed list of steps forever. It drives headless clients.
type Script struct {
	steps []Step
	total int
}

func NewScript(steps ...Step) *Script {
	s := &Script{}
	for _, st := range steps {
		if st.Ticks < 1 {
			continue
		}
		s.steps = append(s.steps, st)
		s.total += st.Ticks
	}
	return s
}

// DefaultScript walks a square and fires once per side.
func DefaultScript() *Script {
	shoot := func(a netconfig.ActionID) input.ActionSet {
		return input.Actions(a, netconfig.ActionShoot)
	}
	return NewScript(
		Step{Actions: shoot(netconfig.ActionRight), Ticks: 1},
		Step{Actions: input.Actions(netconfig.ActionRight), Ticks: 63},
		Step{Actions: shoot(netconfig.ActionUp), Ticks: 1},
		Step{Actions: input.Actions(netconfig.ActionUp), Ticks: 63},
		Step{Actions: shoot(netconfig.ActionLeft), Ticks: 1},
		Step{Actions: input.Actions(netconfig.ActionLeft), Ticks: 63},
		Step{Actions: shoot(netconfig.ActionDown), Ticks: 1},
		Step{Actions: input.Actions(netconfig.ActionDown), Ticks: 63},
	)
}

func (s *Script) Sample(t tick.Tick) input.Snapshot {
	if s.total == 0 {
		return input.Snapshot{Tick: t}
	}
	pos := int(uint64(t) % uint64(s.total))
	for _, st := range s.steps {
		if pos < st.Ticks {
			return input.Snapshot{Tick: t, Actions: st.Actions}
		}
		pos -= st.Ticks
	}
	return input.Snapshot{Tick: t}
}

package core

import (
	"context"

	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// Phases returns the work of one server tick: drain the network inbox, step
// every body, fire bullets, and replicate on the snapshot cadence.
func (s *Server) Phases() sim.Phases {
	return sim.Phases{
		Drain:    s.drain,
		Simulate: s.simulate,
		Record:   s.shoot,
		Dispatch: s.dispatch,
	}
}

func (s *Server) drain(_ context.Context, t tick.Tick) {
	for _, c := range s.inbox.drain() {
		switch c.kind {
		case cmdJoin:
			s.handleJoin(c.client, c.join, t)
		case cmdInput:
			s.handleInput(c.client, c.input, t)
		case cmdLeave:
			s.handleLeave(c.client)
		}
	}
}

func (s *Server) simulate(_ context.Context, t tick.Tick) {
	s.stepper.StepRole(sim.RoleConfirmed, t)
	s.cullBullets()
}

func (s *Server) dispatch(_ context.Context, t tick.Tick) {
	sim.ProcessEvents(s.world)
	if int(t)%s.syncEvery != 0 {
		return
	}
	if err := s.replica.Sync(); err != nil {
		s.log.Warn().Err(err).Msg("sync error")
	}
}

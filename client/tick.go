package client

import (
	"context"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/network/interpolation"
	"github.com/automoto/rollback-mp/network/prespawn"
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// tracked holds every entity with a role and a kinematic state. Interpolated
// entities carry no body, so sim.Bodies misses them.
var tracked = donburi.NewQuery(filter.Contains(sim.Role, netcomponents.NetKinematic))

// Phases returns the per-tick work of the session. updates is polled at the
// start of every tick and may return nil when no snapshot arrived.
//
// Applying a snapshot can re-seat the clock, so every phase after the drain
// runs at the clock's tick rather than the one the loop started with.
func (s *Session) Phases(updates func() []network.EntityUpdate) sim.Phases {
	current := func(fn tick.Func) tick.Func {
		return func(ctx context.Context, _ tick.Tick) {
			fn(ctx, s.clock.Tick())
		}
	}
	return sim.Phases{
		Drain: func(ctx context.Context, _ tick.Tick) {
			if u := updates(); u != nil {
				s.ApplySnapshot(ctx, u)
			}
		},
		Simulate: current(s.simulate),
		Record:   current(s.record),
		Dispatch: current(s.dispatch),
	}
}

// simulate samples the local input, steps every predicted entity and fires
// pre-spawned bullets.
func (s *Session) simulate(_ context.Context, t tick.Tick) {
	if !s.synced {
		return
	}
	shoot := false
	if s.local != donburi.Null {
		snap := s.source.Sample(t)
		s.inputs.Write(s.local, t, snap)
		var prev = snap
		hasPrev := false
		if t > 0 {
			prev, hasPrev = s.inputs.ReadOrHold(s.local, t-1)
		}
		shoot = snap.JustPressed(netconfig.ActionShoot, prev, hasPrev)
	}

	s.stepper.StepRole(sim.RolePredicted, t)

	if shoot {
		s.preSpawnBullet(t)
	}
}

// preSpawnBullet spawns the local player's bullet before the server confirms
// it and registers it for matching.
func (s *Session) preSpawnBullet(t tick.Tick) {
	player := s.world.Entry(s.local)
	pos := netcomponents.NetKinematic.Get(player).Position

	entry := sim.CreateBullet(s.world, sim.BulletSpec{
		Shooter:  s.peerID,
		Position: pos,
		Velocity: s.cfg.BulletVelocity,
		Size:     s.cfg.BulletSize,
	}, t)
	hash, err := prespawn.ComputeEntry(entry, t, s.peerID)
	if err != nil {
		s.log.Error().Err(err).Msg("pre-spawn hash")
		s.world.Remove(entry.Entity())
		return
	}
	entry.AddComponent(netcomponents.NetPreSpawn)
	netcomponents.NetPreSpawn.SetValue(entry, netcomponents.NetPreSpawnData{Hash: uint64(hash), Tick: t, Salt: s.peerID})

	if err := sim.SetRole(entry, sim.RolePredicted, donburi.Null); err != nil {
		s.log.Error().Err(err).Msg("pre-spawn role")
		s.world.Remove(entry.Entity())
		return
	}
	// A colliding hash still gets tracked; the matcher expires it later.
	_ = s.matcher.Register(entry.Entity(), hash, s.now())
	s.predict.Track(entry.Entity(), t, *netcomponents.NetKinematic.Get(entry))
	s.observers.Add(entry, sim.Role)
}

// record stores the predicted states and moves interpolated entities to the
// render tick.
func (s *Session) record(_ context.Context, t tick.Tick) {
	tracked.Each(s.world, func(entry *donburi.Entry) {
		r := sim.Role.Get(entry)
		switch r.Kind {
		case sim.RolePredicted:
			_ = s.predict.Record(entry.Entity(), t, *netcomponents.NetKinematic.Get(entry))
		case sim.RoleInterpolated:
			if st, ok := s.interp.Sample(entry.Entity(), s.renderTick(t)); ok {
				netcomponents.NetKinematic.SetValue(entry, st)
			}
		}
	})
}

// renderTick is the fractional server tick interpolated entities show. The
// clock runs InputLeadTicks ahead of the server, so that lead is removed
// first.
func (s *Session) renderTick(t tick.Tick) float64 {
	lead := tick.Tick(s.cfg.InputLeadTicks)
	server := tick.Tick(0)
	if t > lead {
		server = t - lead
	}
	return interpolation.RenderTick(server, s.clock.Fraction(), s.cfg.InterpolationDelay, s.cfg.TickRate)
}

// dispatch sends the input message, discards expired pre-spawns, decays the
// rollback corrections and delivers the tick's lifecycle events.
func (s *Session) dispatch(_ context.Context, t tick.Tick) {
	if s.local != donburi.Null {
		if buf, ok := s.inputs.Buffer(s.local); ok {
			after := tick.Tick(0)
			if r := tick.Tick(s.cfg.InputRedundancy) + 1; t >= r {
				after = t - r
			}
			if history := buf.Since(after, t); len(history) > 0 {
				if err := s.send(messages.NewInputMessage(history)); err != nil {
					s.log.Warn().Err(err).Msg("send input")
				}
			}
		}
	}

	for _, e := range s.matcher.Expire(s.now()) {
		if !s.world.Valid(e) {
			continue
		}
		entry := s.world.Entry(e)
		if r, ok := sim.RoleOf(entry); !ok || !r.Unconfirmed() {
			continue
		}
		var hash uint64
		if entry.HasComponent(netcomponents.NetPreSpawn) {
			hash = netcomponents.NetPreSpawn.Get(entry).Hash
		}
		s.log.Warn().Uint64("hash", hash).Msg("pre-spawned entity never confirmed")
		sim.Misprediction.Publish(s.world, sim.MispredictionEvent{Entity: e, Hash: hash})
		s.despawn(e, sim.DespawnMisprediction)
	}

	s.predict.AdvanceVisual(s.cfg.Dt())
	sim.ProcessEvents(s.world)
}

// Position returns where entity is drawn, or the zero vector.
func (s *Session) Position(entity donburi.Entity) gamemath.Vec2 {
	st, ok := s.Display(entity)
	if !ok {
		return gamemath.Zero
	}
	return st.Position
}

// Package client runs the client side of the simulation: it keeps the
// replicated confirmed entities, predicts the locally controlled ones ahead
// of the server, interpolates the rest, and sends the local input upstream.
package client

import (
	"time"

	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/network/interpolation"
	"github.com/automoto/rollback-mp/network/prediction"
	"github.com/automoto/rollback-mp/network/prespawn"
	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/kinematic"
	"github.com/automoto/rollback-mp/shared/leveldata"
	"github.com/automoto/rollback-mp/shared/movement"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// Options are the collaborators of a Session. Zero values are replaced with
// defaults: no input, a sender that drops everything and time.Now.
type Options struct {
	Input InputSource
	Send  func(msg any) error
	Now   func() time.Time
	Clock *tick.Clock
	Arena *leveldata.Arena
}

// Stats counts what the session did since it started.
type Stats struct {
	Rollbacks      int
	Replayed       int
	Stale          int
	Mispredictions int
	Merged         int
}

// Session is one client's view of the game. It is driven from a single
// goroutine through Phases.
type Session struct {
	cfg    *config.Config
	peerID uint64

	world     donburi.World
	observers *sim.Observers
	stepper   *sim.Stepper
	inputs    *input.Store[donburi.Entity]
	predict   *prediction.Manager[donburi.Entity]
	interp    *interpolation.Manager[donburi.Entity, netcomponents.NetKinematicData]
	matcher   *prespawn.Matcher[donburi.Entity]
	clock     *tick.Clock

	source InputSource
	send   func(msg any) error
	now    func() time.Time

	// counterparts maps a confirmed entity to its predicted or interpolated
	// entity. Confirmed-only entities have no entry.
	counterparts map[donburi.Entity]donburi.Entity
	present      map[esync.NetworkId]bool
	local        donburi.Entity
	synced       bool
	stats        Stats

	log zerolog.Logger
}

// NewSession builds a session for the peer peerID.
func NewSession(cfg *config.Config, peerID uint64, opts Options) *Session {
	if opts.Input == nil {
		opts.Input = InputFunc(func(t tick.Tick) input.Snapshot { return input.Snapshot{Tick: t} })
	}
	if opts.Send == nil {
		opts.Send = func(any) error { return nil }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Clock == nil {
		opts.Clock = tick.NewClock(cfg.TickRate)
	}
	if opts.Arena == nil {
		opts.Arena = leveldata.DefaultArena()
	}

	world := donburi.NewWorld()
	inputs := input.NewStore[donburi.Entity](cfg.InputBufferDepth)
	stepper := &sim.Stepper{
		World:    world,
		Movement: movement.Config{Speed: cfg.Speed, Mode: cfg.MovementMode},
		Arena:    kinematic.NewArena(opts.Arena),
		Inputs:   inputs,
		Dt:       cfg.Dt(),
	}

	s := &Session{
		cfg:       cfg,
		peerID:    peerID,
		world:     world,
		observers: sim.NewObservers(),
		stepper:   stepper,
		inputs:    inputs,
		predict: prediction.NewManager[donburi.Entity](prediction.Config{
			Depth: cfg.HistoryDepth,
			Diverged: prediction.Any(
				prediction.PositionDiverged(cfg.PositionThreshold),
				prediction.RotationDiverged(cfg.RotationThreshold),
				prediction.VelocityDiverged(cfg.VelocityThreshold),
			),
			CorrectionDuration: cfg.CorrectionDuration,
		}, stepper),
		interp:       interpolation.NewManager[donburi.Entity](netcomponents.LerpNetKinematic),
		matcher:      prespawn.NewMatcher[donburi.Entity](cfg.PreSpawnWindow),
		clock:        opts.Clock,
		source:       opts.Input,
		send:         opts.Send,
		now:          opts.Now,
		counterparts: make(map[donburi.Entity]donburi.Entity),
		present:      make(map[esync.NetworkId]bool),
		local:        donburi.Null,
		log:          logging.For("client"),
	}
	s.subscribe()
	return s
}

func (s *Session) subscribe() {
	s.observers.On(sim.Role, func(entry *donburi.Entry) {
		r := sim.Role.Get(entry)
		if r.Kind != sim.RolePredicted || !entry.HasComponent(netcomponents.NetPlayer) {
			return
		}
		if netcomponents.NetPlayer.Get(entry).PeerID == s.peerID {
			s.local = entry.Entity()
			s.log.Info().Msg("predicted player spawned")
		}
	})
	s.observers.On(sim.Role, func(entry *donburi.Entry) {
		r := sim.Role.Get(entry)
		if r.Kind == sim.RoleInterpolated && entry.HasComponent(netcomponents.NetName) {
			s.log.Info().Str("name", netcomponents.NetName.Get(entry).Name).Msg("interpolated player spawned")
		}
	})

	sim.Desync.Subscribe(s.world, func(w donburi.World, ev sim.DesyncEvent) {
		s.stats.Stale++
	})
	sim.Misprediction.Subscribe(s.world, func(w donburi.World, ev sim.MispredictionEvent) {
		s.stats.Mispredictions++
	})
	sim.Despawn.Subscribe(s.world, func(w donburi.World, ev sim.DespawnEvent) {
		s.log.Debug().Interface("entity", ev.Entity).Int("reason", int(ev.Reason)).Msg("despawned")
	})
}

// World returns the session's entity world.
func (s *Session) World() donburi.World {
	return s.world
}

// Observers returns the component-add registry, for callers that want to
// react to spawned entities.
func (s *Session) Observers() *sim.Observers {
	return s.observers
}

// Clock returns the session clock. It runs InputLeadTicks ahead of the
// latest confirmed tick.
func (s *Session) Clock() *tick.Clock {
	return s.clock
}

// LocalPlayer returns the predicted entity of the local player, or
// donburi.Null before it was replicated.
func (s *Session) LocalPlayer() donburi.Entity {
	return s.local
}

// Counterpart returns the predicted or interpolated entity paired with a
// confirmed entity.
func (s *Session) Counterpart(confirmed donburi.Entity) (donburi.Entity, bool) {
	e, ok := s.counterparts[confirmed]
	return e, ok
}

// Confirmed returns the confirmed entity replicated under id.
func (s *Session) Confirmed(id esync.NetworkId) (donburi.Entity, bool) {
	e := esync.FindByNetworkId(s.world, id)
	return e, s.world.Valid(e)
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Prediction returns the prediction manager.
func (s *Session) Prediction() *prediction.Manager[donburi.Entity] {
	return s.predict
}

// Display returns the state to draw for entity. Predicted entities include
// the decaying rollback correction; the others are drawn as they are.
func (s *Session) Display(entity donburi.Entity) (netcomponents.NetKinematicData, bool) {
	if st, ok := s.predict.Display(entity); ok {
		return st, true
	}
	if !s.world.Valid(entity) {
		return netcomponents.NetKinematicData{}, false
	}
	entry := s.world.Entry(entity)
	if !entry.HasComponent(netcomponents.NetKinematic) {
		return netcomponents.NetKinematicData{}, false
	}
	return *netcomponents.NetKinematic.Get(entry), true
}

// despawn removes entity and everything the session tracks for it.
func (s *Session) despawn(entity donburi.Entity, reason sim.DespawnReason) {
	if !s.world.Valid(entity) {
		return
	}
	sim.Despawn.Publish(s.world, sim.DespawnEvent{Entity: entity, Reason: reason})
	s.predict.Untrack(entity)
	s.interp.Remove(entity)
	s.inputs.Remove(entity)
	s.matcher.Forget(entity)
	delete(s.counterparts, entity)
	if entity == s.local {
		s.local = donburi.Null
	}
	s.world.Remove(entity)
}

// despawnConfirmed removes a confirmed entity together with its counterpart.
func (s *Session) despawnConfirmed(confirmed donburi.Entity, reason sim.DespawnReason) {
	if cp, ok := s.counterparts[confirmed]; ok {
		s.despawn(cp, reason)
	}
	s.despawn(confirmed, reason)
}

// Close removes every entity, as happens when the connection goes away.
func (s *Session) Close() {
	var all []donburi.Entity
	tracked.Each(s.world, func(entry *donburi.Entry) {
		all = append(all, entry.Entity())
	})
	for _, e := range all {
		s.despawn(e, sim.DespawnDisconnected)
	}
	sim.ProcessEvents(s.world)
}

package client

import (
	"context"

	"github.com/leap-fish/necs/esync"
	"github.com/rotisserie/eris"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/network/prediction"
	"github.com/automoto/rollback-mp/network/prespawn"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
	"github.com/automoto/rollback-mp/shared/protocol"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// ApplySnapshot folds one replicated world snapshot into the session.
// Confirmed entities are created or updated from the server state, new ones
// get a predicted or interpolated counterpart, predicted ones are reconciled
// and entities missing from the snapshot are despawned.
func (s *Session) ApplySnapshot(ctx context.Context, updates []network.EntityUpdate) {
	clear(s.present)

	for _, u := range updates {
		s.present[u.ID] = true

		entity := esync.FindByNetworkId(s.world, u.ID)
		if !s.world.Valid(entity) {
			s.spawnConfirmed(ctx, u)
			continue
		}

		entry := s.world.Entry(entity)
		for _, data := range u.Components {
			applyComponent(entry, data)
		}
		s.follow(ctx, entry)
		if ctx.Err() != nil {
			return
		}
	}

	var gone []donburi.Entity
	esync.NetworkEntityQuery.Each(s.world, func(entry *donburi.Entry) {
		id := esync.GetNetworkId(entry)
		if id == nil {
			return
		}
		if !s.present[*id] {
			gone = append(gone, entry.Entity())
		}
	})
	for _, e := range gone {
		s.despawnConfirmed(e, sim.DespawnReplicated)
	}
}

// spawnConfirmed creates the confirmed copy of a newly replicated entity and
// its counterpart.
func (s *Session) spawnConfirmed(ctx context.Context, u network.EntityUpdate) {
	entry := s.world.Entry(s.world.Create(esync.NetworkIdComponent))
	esync.NetworkIdComponent.SetValue(entry, u.ID)
	for _, data := range u.Components {
		applyComponent(entry, data)
	}
	if err := sim.SetRole(entry, sim.RoleConfirmed, donburi.Null); err != nil {
		s.log.Error().Err(err).Msg("confirmed role")
		return
	}
	s.observers.Add(entry, sim.Role)
	if entry.HasComponent(netcomponents.NetKinematic) {
		s.observeConfirmedTick(netcomponents.NetKinematic.Get(entry).Tick)
	}

	if entry.HasComponent(netcomponents.NetPreSpawn) {
		hash := prespawn.Hash(netcomponents.NetPreSpawn.Get(entry).Hash)
		if local, ok := s.matcher.Match(hash, s.now()); ok && s.world.Valid(local) {
			s.merge(ctx, entry, local)
			return
		}
		if s.matcher.Merged(hash) {
			s.log.Debug().Uint64("hash", uint64(hash)).Msg("hash already merged, spawning own counterpart")
		}
	}

	if s.ownedByUs(entry) {
		s.spawnPredicted(entry)
	} else {
		s.spawnInterpolated(entry)
	}
}

// merge binds a locally pre-spawned entity to its server entity. The local
// entity keeps its history and goes on being predicted.
func (s *Session) merge(ctx context.Context, confirmed *donburi.Entry, local donburi.Entity) {
	localEntry := s.world.Entry(local)
	if err := sim.Bind(localEntry, confirmed.Entity()); err != nil {
		s.log.Warn().Err(err).Msg("pre-spawn merge")
		return
	}
	s.counterparts[confirmed.Entity()] = local
	s.stats.Merged++
	s.log.Debug().Uint64("hash", netcomponents.NetPreSpawn.Get(confirmed).Hash).Msg("pre-spawn merged")

	if confirmed.HasComponent(netcomponents.NetKinematic) {
		s.reconcile(ctx, local, *netcomponents.NetKinematic.Get(confirmed))
	}
}

func (s *Session) ownedByUs(entry *donburi.Entry) bool {
	if entry.HasComponent(netcomponents.NetPlayer) {
		return netcomponents.NetPlayer.Get(entry).PeerID == s.peerID
	}
	if entry.HasComponent(netcomponents.NetBullet) {
		return netcomponents.NetBullet.Get(entry).ShooterPeerID == s.peerID
	}
	return false
}

// copyComponents copies every component of src whose mode (picked by mode)
// is not ModeNone into a new entity. The entity always carries a Role.
func (s *Session) copyComponents(src *donburi.Entry, mode func(protocol.ComponentInfo) netconfig.PredictionMode) *donburi.Entry {
	var (
		infos  []protocol.ComponentInfo
		values []any
	)
	types := []donburi.IComponentType{sim.Role}
	for _, info := range protocol.Components() {
		if mode(info) == netconfig.ModeNone {
			continue
		}
		if v, ok := info.Get(src); ok {
			types = append(types, info.Type)
			infos = append(infos, info)
			values = append(values, v)
		}
	}

	dst := s.world.Entry(s.world.Create(types...))
	for i, info := range infos {
		info.Set(dst, values[i])
	}
	return dst
}

func (s *Session) spawnPredicted(confirmed *donburi.Entry) {
	entry := s.copyComponents(confirmed, func(c protocol.ComponentInfo) netconfig.PredictionMode { return c.Prediction })
	if err := sim.SetRole(entry, sim.RolePredicted, confirmed.Entity()); err != nil {
		s.log.Error().Err(err).Msg("predicted role")
		s.world.Remove(entry.Entity())
		return
	}
	s.counterparts[confirmed.Entity()] = entry.Entity()
	if entry.HasComponent(netcomponents.NetKinematic) {
		kin := netcomponents.NetKinematic.Get(entry)
		s.predict.Track(entry.Entity(), kin.Tick, *kin)
	}
	s.observers.Add(entry, sim.Role)
}

func (s *Session) spawnInterpolated(confirmed *donburi.Entry) {
	entry := s.copyComponents(confirmed, func(c protocol.ComponentInfo) netconfig.PredictionMode { return c.Interpolation })
	if err := sim.SetRole(entry, sim.RoleInterpolated, confirmed.Entity()); err != nil {
		s.log.Error().Err(err).Msg("interpolated role")
		s.world.Remove(entry.Entity())
		return
	}
	s.counterparts[confirmed.Entity()] = entry.Entity()
	if entry.HasComponent(netcomponents.NetKinematic) {
		kin := netcomponents.NetKinematic.Get(entry)
		s.interp.Push(entry.Entity(), kin.Tick, *kin)
	}
	s.observers.Add(entry, sim.Role)
}

// follow brings the counterpart of an updated confirmed entity in line with
// the new server state.
func (s *Session) follow(ctx context.Context, confirmed *donburi.Entry) {
	if !confirmed.HasComponent(netcomponents.NetKinematic) {
		return
	}
	kin := *netcomponents.NetKinematic.Get(confirmed)
	s.observeConfirmedTick(kin.Tick)

	cp, ok := s.counterparts[confirmed.Entity()]
	if !ok || !s.world.Valid(cp) {
		return
	}
	r, _ := sim.RoleOf(s.world.Entry(cp))
	switch r.Kind {
	case sim.RolePredicted:
		s.reconcile(ctx, cp, kin)
	case sim.RoleInterpolated:
		s.interp.Push(cp, kin.Tick, kin)
	}
}

func (s *Session) reconcile(ctx context.Context, entity donburi.Entity, confirmed netcomponents.NetKinematicData) {
	res, err := s.predict.Reconcile(ctx, entity, confirmed)
	switch {
	case eris.Is(err, prediction.ErrStaleConfirmation):
		s.log.Warn().Uint64("tick", uint64(res.Tick)).Uint64("floor", uint64(res.Floor)).Msg("confirmation older than prediction history")
		sim.Desync.Publish(s.world, sim.DesyncEvent{Entity: entity, Confirmed: res.Tick, Floor: res.Floor})
		return
	case res.Outcome == prediction.OutcomeCancelled:
		s.log.Debug().Err(err).Msg("replay cancelled")
		return
	case err != nil:
		s.log.Error().Err(err).Msg("reconcile")
		return
	}

	if res.Outcome != prediction.OutcomeRolledBack {
		return
	}
	s.stats.Rollbacks++
	s.stats.Replayed += res.Replayed
	entry := s.world.Entry(entity)
	if entry.HasComponent(netcomponents.NetKinematic) {
		netcomponents.NetKinematic.SetValue(entry, res.State)
	}
}

// observeConfirmedTick keeps the clock InputLeadTicks ahead of the server.
// It is re-seated on the first confirmation and whenever the server catches
// up with it.
func (s *Session) observeConfirmedTick(t tick.Tick) {
	lead := tick.Tick(s.cfg.InputLeadTicks)
	if s.synced && s.clock.Tick() > t {
		return
	}
	s.clock.Set(t + lead)
	if s.synced {
		s.log.Info().Uint64("confirmed", uint64(t)).Msg("clock resync")
	}
	s.synced = true
}

// applyComponent writes one replicated value into entry.
func applyComponent(entry *donburi.Entry, data any) {
	if info, ok := protocol.ForValue(data); ok {
		info.Set(entry, data)
	}
}

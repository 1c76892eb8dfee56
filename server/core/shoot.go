package core

import (
	"context"
	"sort"

	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/automoto/rollback-mp/network/prespawn"
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

var (
	players = donburi.NewQuery(filter.Contains(netcomponents.NetPlayer, netcomponents.NetKinematic))
	bullets = donburi.NewQuery(filter.Contains(netcomponents.NetBullet, netcomponents.NetKinematic))
)

// bulletMargin is how far past the outermost wall a bullet may fly before it
// is removed.
const bulletMargin = 100

// shoot fires a bullet for every player whose shoot action was pressed this
// tick. A held button fires once. The bullet starts at the shooter's
// position after this tick's step and carries the same pre-spawn hash the
// shooter's client computed.
func (s *Server) shoot(_ context.Context, t tick.Tick) {
	type shooter struct {
		peer uint64
		pos  gamemath.Vec2
	}
	var firing []shooter
	players.Each(s.world, func(entry *donburi.Entry) {
		snap, ok := s.inputs.Read(entry.Entity(), t)
		if !ok {
			return
		}
		prev, hasPrev := snap, false
		if t > 0 {
			prev, hasPrev = s.inputs.ReadOrHold(entry.Entity(), t-1)
		}
		if !snap.JustPressed(netconfig.ActionShoot, prev, hasPrev) {
			return
		}
		firing = append(firing, shooter{
			peer: netcomponents.NetPlayer.Get(entry).PeerID,
			pos:  netcomponents.NetKinematic.Get(entry).Position,
		})
	})
	sort.Slice(firing, func(i, j int) bool { return firing[i].peer < firing[j].peer })

	for _, f := range firing {
		s.spawnBullet(f.peer, f.pos, t)
	}
}

func (s *Server) spawnBullet(peer uint64, pos gamemath.Vec2, t tick.Tick) {
	entry := sim.CreateBullet(s.world, sim.BulletSpec{
		Shooter:  peer,
		Position: pos,
		Velocity: s.cfg.BulletVelocity,
		Size:     s.cfg.BulletSize,
	}, t)
	hash, err := prespawn.ComputeEntry(entry, t, peer)
	if err != nil {
		s.log.Error().Err(err).Msg("bullet hash")
		s.world.Remove(entry.Entity())
		return
	}
	entry.AddComponent(netcomponents.NetPreSpawn)
	netcomponents.NetPreSpawn.SetValue(entry, netcomponents.NetPreSpawnData{Hash: uint64(hash), Tick: t, Salt: peer})
	if err := sim.SetRole(entry, sim.RoleConfirmed, donburi.Null); err != nil {
		s.log.Error().Err(err).Msg("bullet role")
		s.world.Remove(entry.Entity())
		return
	}

	entity := entry.Entity()
	err = s.replica.Track(s.world, &entity,
		srvsync.WithInterp(netcomponents.NetKinematic),
		netcomponents.NetBullet,
		netcomponents.NetBody,
		netcomponents.NetPreSpawn,
	)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to set up network sync for bullet")
		s.world.Remove(entity)
		return
	}
	s.log.Debug().Uint64("peer", peer).Uint64("tick", uint64(t)).Msg("bullet fired")
}

// cullBullets removes bullets that left the arena.
func (s *Server) cullBullets() {
	min, max := s.level.Bounds()
	min = min.Sub(gamemath.Vec2{X: bulletMargin, Y: bulletMargin})
	max = max.Add(gamemath.Vec2{X: bulletMargin, Y: bulletMargin})

	var gone []donburi.Entity
	bullets.Each(s.world, func(entry *donburi.Entry) {
		p := netcomponents.NetKinematic.Get(entry).Position
		if p.X < min.X || p.X > max.X || p.Y < min.Y || p.Y > max.Y {
			gone = append(gone, entry.Entity())
		}
	})
	for _, e := range gone {
		s.despawn(e, sim.DespawnReplicated)
	}
}

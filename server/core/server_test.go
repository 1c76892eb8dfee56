package core

import (
	"context"
	"testing"

	"github.com/leap-fish/necs/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/network/prespawn"
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

type fakeReplica struct {
	tracked []donburi.Entity
	syncs   int
}

func (f *fakeReplica) Track(_ donburi.World, entity *donburi.Entity, _ ...interface{}) error {
	f.tracked = append(f.tracked, *entity)
	return nil
}

func (f *fakeReplica) Sync() error {
	f.syncs++
	return nil
}

func newTestServer(t *testing.T, version string) (*Server, *fakeReplica) {
	t.Helper()
	cfg := config.Default()
	replica := &fakeReplica{}
	return newServer(&cfg, nil, version, replica), replica
}

func (s *Server) runTicks(n int) {
	ph := s.Phases()
	for i := 0; i < n; i++ {
		ph.Run(context.Background(), s.clock.Advance())
	}
}

func join(s *Server, peer uint64) *router.NetworkClient {
	c := &router.NetworkClient{}
	s.inbox.push(command{kind: cmdJoin, client: c, join: messages.JoinRequest{PeerID: peer, PlayerName: "p"}})
	return c
}

func sendInput(s *Server, c *router.NetworkClient, from, to tick.Tick, actions input.ActionSet) {
	var snaps []input.Snapshot
	for t := from; t <= to; t++ {
		snaps = append(snaps, input.Snapshot{Tick: t, Actions: actions})
	}
	s.inbox.push(command{kind: cmdInput, client: c, input: messages.NewInputMessage(snaps)})
}

func playerEntry(t *testing.T, s *Server, c *router.NetworkClient) *donburi.Entry {
	t.Helper()
	e, ok := s.clientEntities[c]
	require.True(t, ok)
	require.True(t, s.world.Valid(e))
	return s.world.Entry(e)
}

func TestJoinSpawnsConfirmedPlayer(t *testing.T) {
	s, replica := newTestServer(t, "")
	c := join(s, 42)
	s.runTicks(1)

	entry := playerEntry(t, s, c)
	assert.Equal(t, sim.RoleData{Kind: sim.RoleConfirmed, Counterpart: donburi.Null}, *sim.Role.Get(entry))
	assert.Equal(t, uint64(42), netcomponents.NetPlayer.Get(entry).PeerID)
	assert.Equal(t, gamemath.Vec2{Y: 100}, netcomponents.NetKinematic.Get(entry).Position)
	assert.True(t, netcomponents.NetBody.Get(entry).Controller)
	assert.Equal(t, []donburi.Entity{entry.Entity()}, replica.tracked)
	assert.Equal(t, 1, s.PlayerCount())

	s.inbox.push(command{kind: cmdJoin, client: c, join: messages.JoinRequest{PeerID: 42}})
	s.runTicks(1)
	assert.Equal(t, 1, s.PlayerCount(), "second join from the same connection is ignored")
}

func TestJoinRejectsWrongVersion(t *testing.T) {
	s, _ := newTestServer(t, "1.0")
	c := &router.NetworkClient{}
	s.inbox.push(command{kind: cmdJoin, client: c, join: messages.JoinRequest{Version: "0.9", PeerID: 1}})
	s.runTicks(1)
	assert.Zero(t, s.PlayerCount())
}

func TestInputMovesPlayer(t *testing.T) {
	s, _ := newTestServer(t, "")
	c := join(s, 1)
	s.runTicks(1)

	sendInput(s, c, 2, 5, input.Actions(netconfig.ActionRight))
	s.runTicks(4) // ticks 2..5

	kin := netcomponents.NetKinematic.Get(playerEntry(t, s, c))
	step := s.cfg.Speed * s.cfg.Dt()
	assert.InDelta(t, 4*step, kin.Position.X, 1e-9)
	assert.Equal(t, tick.Tick(5), kin.Tick)
}

func TestMissingInputHoldsLast(t *testing.T) {
	s, _ := newTestServer(t, "")
	c := join(s, 1)
	s.runTicks(1)

	sendInput(s, c, 2, 2, input.Actions(netconfig.ActionUp))
	s.runTicks(3) // ticks 2..4, only 2 known

	kin := netcomponents.NetKinematic.Get(playerEntry(t, s, c))
	step := s.cfg.Speed * s.cfg.Dt()
	assert.InDelta(t, 100+3*step, kin.Position.Y, 1e-9)
}

func TestShootSpawnsHashedBullet(t *testing.T) {
	s, replica := newTestServer(t, "")
	c := join(s, 9)
	s.runTicks(1)

	shoot := input.Actions(netconfig.ActionShoot)
	sendInput(s, c, 2, 4, shoot)
	s.runTicks(3) // held for ticks 2..4: fires once

	var found []*donburi.Entry
	bullets.Each(s.world, func(entry *donburi.Entry) { found = append(found, entry) })
	require.Len(t, found, 1)
	b := found[0]

	marker := netcomponents.NetPreSpawn.Get(b)
	assert.Equal(t, tick.Tick(2), marker.Tick)
	assert.Equal(t, uint64(9), marker.Salt)

	want, err := prespawn.Compute(2, []any{
		netcomponents.NetKinematicData{},
		netcomponents.NetBulletData{ShooterPeerID: 9},
		netcomponents.NetBodyData{Kind: netcomponents.BodyKinematic, Width: s.cfg.BulletSize, Height: s.cfg.BulletSize},
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(want), marker.Hash)

	kin := netcomponents.NetKinematic.Get(b)
	assert.InDelta(t, 2*s.cfg.BulletVelocity.X*s.cfg.Dt(), kin.Position.X, 1e-9, "stepped on ticks 3 and 4")
	assert.Len(t, replica.tracked, 2)
}

func TestBulletsLeavingTheArenaAreRemoved(t *testing.T) {
	s, _ := newTestServer(t, "")
	s.spawnBullet(1, gamemath.Vec2{X: 399}, 0)
	s.spawnBullet(1, gamemath.Vec2{X: 0}, 0)

	s.runTicks(1)
	assert.Equal(t, 2, bullets.Count(s.world))

	s.runTicks(s.cfg.TickRate)
	assert.Equal(t, 1, bullets.Count(s.world))
}

func TestLeaveDespawnsPlayer(t *testing.T) {
	s, _ := newTestServer(t, "")
	c := join(s, 1)
	s.runTicks(1)
	entity := playerEntry(t, s, c).Entity()

	s.inbox.push(command{kind: cmdLeave, client: c})
	s.runTicks(1)
	assert.False(t, s.world.Valid(entity))
	assert.Zero(t, s.PlayerCount())
	_, ok := s.inputs.Buffer(entity)
	assert.False(t, ok)
}

func TestReplicationCadence(t *testing.T) {
	s, replica := newTestServer(t, "")
	s.runTicks(60)
	assert.Equal(t, 60/s.syncEvery, replica.syncs)
	assert.Equal(t, 6, s.syncEvery, "100ms at 64 Hz")
}

func TestLoadLevelBuiltIn(t *testing.T) {
	level, err := LoadLevel("")
	require.NoError(t, err)
	assert.Len(t, level.Walls, 4)
	assert.NotEmpty(t, level.SpawnPoints)
}

func TestLoadLevelMissingFile(t *testing.T) {
	_, err := LoadLevel(t.TempDir() + "/missing.tmx")
	assert.Error(t, err)
}

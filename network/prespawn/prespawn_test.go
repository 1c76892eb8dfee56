package prespawn

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
)

func bullet(shooter uint64, pos gamemath.Vec2) []any {
	return []any{
		netcomponents.NetKinematicData{Position: pos, Velocity: gamemath.Vec2{X: 20}},
		netcomponents.NetBulletData{ShooterPeerID: shooter},
		netcomponents.NetBodyData{Kind: netcomponents.BodyKinematic, Width: 10, Height: 10},
	}
}

func TestComputeIsStable(t *testing.T) {
	a, err := Compute(42, bullet(1, gamemath.Zero), 1)
	require.NoError(t, err)
	b, err := Compute(42, bullet(1, gamemath.Zero), 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeIgnoresComponentOrder(t *testing.T) {
	v := bullet(1, gamemath.Zero)
	a, err := Compute(42, v, 1)
	require.NoError(t, err)
	b, err := Compute(42, []any{v[2], v[0], v[1]}, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeIgnoresSimulatedValues(t *testing.T) {
	a, _ := Compute(42, bullet(1, gamemath.Vec2{X: 10}), 1)
	b, _ := Compute(42, bullet(1, gamemath.Vec2{X: 10.3}), 1)
	assert.Equal(t, a, b, "predicted and authoritative positions may differ slightly")
}

func TestComputeSeparates(t *testing.T) {
	base, _ := Compute(42, bullet(1, gamemath.Zero), 1)

	otherTick, _ := Compute(43, bullet(1, gamemath.Zero), 1)
	otherSalt, _ := Compute(42, bullet(1, gamemath.Zero), 2)
	otherShooter, _ := Compute(42, bullet(2, gamemath.Zero), 1)
	fewer, _ := Compute(42, bullet(1, gamemath.Zero)[:2], 1)

	for name, h := range map[string]Hash{
		"tick": otherTick, "salt": otherSalt, "value": otherShooter, "component set": fewer,
	} {
		assert.NotEqual(t, base, h, name)
	}
}

func TestComputeLeavesMarkerOut(t *testing.T) {
	a, _ := Compute(7, bullet(1, gamemath.Zero), 1)
	b, _ := Compute(7, append(bullet(1, gamemath.Zero), netcomponents.NetPreSpawnData{Hash: 99}), 1)
	assert.Equal(t, a, b)
}

func TestComputeRejects(t *testing.T) {
	_, err := Compute(1, []any{struct{}{}}, 0)
	assert.True(t, eris.Is(err, ErrUnregisteredComponent))

	_, err = Compute(1, []any{netcomponents.NetBulletData{}, netcomponents.NetBulletData{}}, 0)
	assert.True(t, eris.Is(err, ErrDuplicateComponent))
}

func TestComputeEntryMatchesValues(t *testing.T) {
	w := donburi.NewWorld()
	e := w.Entry(w.Create(netcomponents.NetKinematic, netcomponents.NetBullet, netcomponents.NetBody))
	v := bullet(5, gamemath.Zero)
	netcomponents.NetKinematic.SetValue(e, v[0].(netcomponents.NetKinematicData))
	netcomponents.NetBullet.SetValue(e, v[1].(netcomponents.NetBulletData))
	netcomponents.NetBody.SetValue(e, v[2].(netcomponents.NetBodyData))

	fromEntry, err := ComputeEntry(e, 9, 5)
	require.NoError(t, err)
	fromValues, err := Compute(9, v, 5)
	require.NoError(t, err)
	assert.Equal(t, fromValues, fromEntry)
}

func TestMatchMergesOnce(t *testing.T) {
	now := time.Unix(100, 0)
	m := NewMatcher[int](time.Second)
	require.NoError(t, m.Register(1, 0xabc, now))
	assert.True(t, m.Pending(1))

	got, ok := m.Match(0xabc, now)
	require.True(t, ok)
	assert.Equal(t, 1, got)
	assert.False(t, m.Pending(1))
	assert.True(t, m.Merged(0xabc))

	_, ok = m.Match(0xabc, now)
	assert.False(t, ok, "second server entity with the same hash is a no-op")

	_, ok = m.Match(0xdef, now)
	assert.False(t, ok)
}

func TestCollisionFirstWins(t *testing.T) {
	now := time.Unix(100, 0)
	m := NewMatcher[int](time.Second)
	require.NoError(t, m.Register(1, 0xabc, now))

	err := m.Register(2, 0xabc, now.Add(time.Millisecond))
	assert.True(t, eris.Is(err, ErrHashCollision))
	assert.False(t, m.Pending(2))
	assert.Equal(t, 2, m.Len())

	got, ok := m.Match(0xabc, now)
	require.True(t, ok)
	assert.Equal(t, 1, got)

	expired := m.Expire(now.Add(2 * time.Second))
	assert.Equal(t, []int{2}, expired, "the orphan is discarded when the window elapses")
	assert.Zero(t, m.Len())
}

func TestRegisterAfterMergeIsOrphan(t *testing.T) {
	now := time.Unix(100, 0)
	m := NewMatcher[int](time.Second)
	require.NoError(t, m.Register(1, 0xabc, now))
	m.Match(0xabc, now)

	assert.True(t, eris.Is(m.Register(2, 0xabc, now), ErrHashCollision))
}

func TestExpireWindow(t *testing.T) {
	start := time.Unix(100, 0)
	m := NewMatcher[int](500 * time.Millisecond)
	require.NoError(t, m.Register(1, 1, start))
	require.NoError(t, m.Register(2, 2, start.Add(300*time.Millisecond)))
	require.NoError(t, m.Register(3, 3, start.Add(100*time.Millisecond)))

	assert.Empty(t, m.Expire(start.Add(400*time.Millisecond)))
	assert.Equal(t, []int{1, 3}, m.Expire(start.Add(650*time.Millisecond)), "oldest registration first")

	_, ok := m.Match(1, start)
	assert.False(t, ok, "expired entities can no longer merge")

	_, ok = m.Match(2, start)
	assert.True(t, ok)
}

func TestLateMatchIsRejected(t *testing.T) {
	start := time.Unix(100, 0)
	m := NewMatcher[int](time.Second)
	require.NoError(t, m.Register(1, 7, start))

	_, ok := m.Match(7, start.Add(time.Second))
	assert.False(t, ok)
	assert.Equal(t, []int{1}, m.Expire(start.Add(time.Second)))
}

func TestExpireForgetsMergedHashes(t *testing.T) {
	start := time.Unix(100, 0)
	m := NewMatcher[int](time.Second)
	require.NoError(t, m.Register(1, 7, start))
	m.Match(7, start)

	m.Expire(start.Add(2 * time.Second))
	assert.False(t, m.Merged(7))
	assert.NoError(t, m.Register(2, 7, start.Add(2*time.Second)), "hash can be reused after the window")
}

func TestForget(t *testing.T) {
	m := NewMatcher[int](time.Second)
	require.NoError(t, m.Register(1, 7, time.Unix(1, 0)))
	m.Forget(1)
	_, ok := m.Match(7, time.Unix(1, 0))
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

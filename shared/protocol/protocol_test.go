package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/netconfig"
)

func TestComponentsOrderedAndUnique(t *testing.T) {
	seen := make(map[uint]bool)
	var prev uint
	for i, c := range Components() {
		assert.False(t, seen[c.SyncID], "duplicate sync id %d", c.SyncID)
		seen[c.SyncID] = true
		assert.Greater(t, c.SyncID, uint(1), "sync id 1 belongs to necs")
		if i > 0 {
			assert.Greater(t, c.SyncID, prev)
		}
		prev = c.SyncID
	}
}

func TestKinematicIsFullAndHashedByType(t *testing.T) {
	c, ok := Lookup(netcomponents.NetKinematic)
	require.True(t, ok)
	assert.Equal(t, netconfig.ModeFull, c.Prediction)
	assert.Equal(t, netconfig.ModeFull, c.Interpolation)
	assert.Equal(t, HashType, c.Hash)
}

func TestIdentityComponentsAreOnce(t *testing.T) {
	for _, ct := range []donburi.IComponentType{netcomponents.NetPlayer, netcomponents.NetName, netcomponents.NetBullet} {
		c, ok := Lookup(ct)
		require.True(t, ok)
		assert.Equal(t, netconfig.ModeOnce, c.Prediction, c.Name)
		assert.Equal(t, HashValue, c.Hash, c.Name)
	}

	c, ok := Lookup(netcomponents.NetPreSpawn)
	require.True(t, ok)
	assert.Equal(t, HashNone, c.Hash, "the hash carrier never hashes itself")
}

func TestForValueRoundTripsThroughEntry(t *testing.T) {
	w := donburi.NewWorld()
	e := w.Entry(w.Create(netcomponents.NetKinematic))

	v := netcomponents.NetBulletData{ShooterPeerID: 9}
	c, ok := ForValue(v)
	require.True(t, ok)
	assert.Equal(t, SyncIDNetBullet, c.SyncID)

	require.True(t, c.Set(e, v))
	got, ok := c.Get(e)
	require.True(t, ok)
	assert.Equal(t, v, got)

	assert.False(t, c.Set(e, netcomponents.NetNameData{}), "wrong value type is rejected")

	_, ok = ForValue(42)
	assert.False(t, ok)
}

func TestChannels(t *testing.T) {
	snap, ok := ChannelByName(ChannelSnapshots)
	require.True(t, ok)
	assert.Equal(t, netconfig.OrderedReliable, snap.Mode)
	assert.Equal(t, netconfig.ServerToClient, snap.Direction)

	in, ok := ChannelByName(ChannelInputs)
	require.True(t, ok)
	assert.Equal(t, netconfig.ClientToServer, in.Direction)

	_, ok = ChannelByName("voice")
	assert.False(t, ok)
}

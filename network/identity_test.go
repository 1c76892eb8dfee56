package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	items   map[string][]byte
	loadErr error
}

func (m *memStore) LoadItem(key string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.items[key], nil
}

func (m *memStore) SaveItem(key string, data []byte) error {
	m.items[key] = data
	return nil
}

func TestPeerIDPersists(t *testing.T) {
	store := &memStore{items: map[string][]byte{}}

	first, err := LoadPeerID(store)
	require.NoError(t, err)
	assert.NotZero(t, first)

	second, err := LoadPeerID(store)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPeerIDReplacesCorruptItem(t *testing.T) {
	store := &memStore{items: map[string][]byte{peerIDItem: []byte("nope")}}
	id, err := LoadPeerID(store)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, store.items[peerIDItem], 8)
}

func TestPeerIDLoadError(t *testing.T) {
	store := &memStore{items: map[string][]byte{}, loadErr: errors.New("disk gone")}
	_, err := LoadPeerID(store)
	assert.Error(t, err)
}

func TestResolvePeerIDOverride(t *testing.T) {
	opened := false
	open := func() (ItemStore, error) {
		opened = true
		return &memStore{items: map[string][]byte{}}, nil
	}

	id, err := ResolvePeerID(42, open)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.False(t, opened, "an explicit id never touches the store")

	id, err = ResolvePeerID(0, open)
	require.NoError(t, err)
	assert.True(t, opened)
	assert.NotZero(t, id)
	assert.NotEqual(t, uint64(42), id)
}

func TestResolvePeerIDStoreError(t *testing.T) {
	_, err := ResolvePeerID(0, func() (ItemStore, error) { return nil, errors.New("no home dir") })
	assert.Error(t, err)
}

package network

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/quasilyte/gdata"
	"github.com/rotisserie/eris"
)

const peerIDItem = "peer-id"

// ItemStore is the part of gdata.Manager the identity needs.
type ItemStore interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

// OpenStore opens the per-user data directory for appName.
func OpenStore(appName string) (*gdata.Manager, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, eris.Wrap(err, "open data store")
	}
	return m, nil
}

// LoadPeerID returns the peer id persisted in store, creating and saving a
// new random one on first use. The id salts pre-spawn hashes and tells the
// client which replicated player is its own, so it must survive restarts.
func LoadPeerID(store ItemStore) (uint64, error) {
	data, err := store.LoadItem(peerIDItem)
	if err != nil {
		return 0, eris.Wrap(err, "load peer id")
	}
	if len(data) == 8 {
		if id := binary.BigEndian.Uint64(data); id != 0 {
			return id, nil
		}
	}

	id, err := newPeerID()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := store.SaveItem(peerIDItem, buf); err != nil {
		return 0, eris.Wrap(err, "save peer id")
	}
	return id, nil
}

// ResolvePeerID returns override when it is set, so several clients of one
// user can play side by side. Otherwise it opens the store and loads the
// persisted id.
func ResolvePeerID(override uint64, open func() (ItemStore, error)) (uint64, error) {
	if override != 0 {
		return override, nil
	}
	store, err := open()
	if err != nil {
		return 0, err
	}
	return LoadPeerID(store)
}

func newPeerID() (uint64, error) {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, eris.Wrap(err, "generate peer id")
		}
		if id := binary.BigEndian.Uint64(buf[:]); id != 0 {
			return id, nil
		}
	}
}
